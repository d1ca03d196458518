package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/kbqa/ai"
)

// MockAnnotator is a test double for ai.Annotator.
// It allows custom behavior injection via function fields.
type MockAnnotator struct {
	// AnnotateFunc is called by Annotate if set.
	// If nil, scripted annotations are used.
	AnnotateFunc func(ctx context.Context, text string) (*ai.Annotation, error)

	mu          sync.Mutex
	annotations map[string]*ai.Annotation
	calls       []string
}

// NewMockAnnotator creates a mock annotator with default behavior.
func NewMockAnnotator() *MockAnnotator {
	return &MockAnnotator{
		annotations: make(map[string]*ai.Annotation),
	}
}

// WithAnnotation scripts the annotation returned for text.
func (m *MockAnnotator) WithAnnotation(text string, annotation *ai.Annotation) *MockAnnotator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.annotations[text] = annotation
	return m
}

// Annotate returns the scripted annotation for text. Unscripted texts are
// annotated with their lowercased words as entities and no frames.
func (m *MockAnnotator) Annotate(ctx context.Context, text string) (*ai.Annotation, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	scripted, found := m.annotations[text]
	fn := m.AnnotateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	if found {
		return scripted, nil
	}

	annotation := &ai.Annotation{}
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if len(word) < 2 {
			continue
		}
		annotation.Entities = append(annotation.Entities, word)
		annotation.Spans = append(annotation.Spans, ai.Span{Surface: word, Normalized: word})
	}
	annotation.Entities = ai.Distinct(annotation.Entities)
	return annotation, nil
}

// CallCount returns the number of times Annotate was called.
func (m *MockAnnotator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns the texts Annotate was called with, in call order.
func (m *MockAnnotator) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Reset clears the call history, scripted annotations and custom function.
func (m *MockAnnotator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.annotations = make(map[string]*ai.Annotation)
	m.AnnotateFunc = nil
}
