package mock

import (
	"context"
	"sync"
)

// MockFrameClassifier is a test double for ai.FrameClassifier.
type MockFrameClassifier struct {
	// ClassifyFramesFunc is called by ClassifyFrames if set.
	ClassifyFramesFunc func(ctx context.Context, texts []string) ([][]string, error)

	mu        sync.Mutex
	frames    map[string][]string
	callCount int
	texts     int
}

// NewMockFrameClassifier creates a mock classifier that returns no frames.
func NewMockFrameClassifier() *MockFrameClassifier {
	return &MockFrameClassifier{
		frames: make(map[string][]string),
	}
}

// WithFrames scripts the frames returned for text.
func (m *MockFrameClassifier) WithFrames(text string, frames ...string) *MockFrameClassifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames[text] = frames
	return m
}

// ClassifyFrames returns the scripted frames of each text.
func (m *MockFrameClassifier) ClassifyFrames(ctx context.Context, texts []string) ([][]string, error) {
	m.mu.Lock()
	m.callCount++
	m.texts += len(texts)
	fn := m.ClassifyFramesFunc
	result := make([][]string, len(texts))
	for i, text := range texts {
		result[i] = m.frames[text]
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, texts)
	}
	return result, nil
}

// CallCount returns the number of batches classified.
func (m *MockFrameClassifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// TextCount returns the number of texts classified across all batches.
func (m *MockFrameClassifier) TextCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.texts
}

// Reset clears counters, scripted frames and the custom function.
func (m *MockFrameClassifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.texts = 0
	m.frames = make(map[string][]string)
	m.ClassifyFramesFunc = nil
}
