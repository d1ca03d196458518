// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/kbqa/ai"
	"github.com/poiesic/kbqa/ai/lexical"
	"github.com/poiesic/kbqa/core"
	"github.com/tmc/langchaingo/llms"
)

// Annotator implements ai.Annotator and ai.FrameClassifier using an
// OpenAI-compatible chat model.
type Annotator struct {
	client      llms.Model
	tagger      *lexical.Annotator
	frames      map[string]bool
	frameList   []string
	maxAttempts int
	logger      *slog.Logger
}

var (
	_ ai.Annotator       = (*Annotator)(nil)
	_ ai.FrameClassifier = (*Annotator)(nil)
)

// annotationResponse is the JSON shape requested from the model.
type annotationResponse struct {
	Entities []string `json:"entities"`
	Frames   []string `json:"frames"`
}

type framesResponse struct {
	Frames [][]string `json:"frames"`
}

// newAnnotator builds an annotator over client. The lexicon provides the
// frame inventory offered to the model and the part-of-speech tagger.
func newAnnotator(client llms.Model, lex *lexical.Lexicon, maxAttempts int) *Annotator {
	frameList := lex.FrameNames()
	frames := make(map[string]bool, len(frameList))
	for _, name := range frameList {
		frames[name] = true
	}
	return &Annotator{
		client:      client,
		tagger:      lexical.NewAnnotator(lex),
		frames:      frames,
		frameList:   frameList,
		maxAttempts: max(maxAttempts, 1),
		logger:      slog.Default().With("component", "openai-annotator"),
	}
}

// Annotate asks the model for entity mentions and frames. Mentions that do
// not occur in text are dropped, as are frames outside the inventory.
func (a *Annotator) Annotate(ctx context.Context, text string) (*ai.Annotation, error) {
	base, err := a.tagger.Annotate(ctx, text)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return base, nil
	}

	var response annotationResponse
	if err := a.generate(ctx, buildAnnotationPrompt(a.frameList), text, &response); err != nil {
		return nil, err
	}

	annotation := &ai.Annotation{
		Spans:  a.spans(text, response.Entities),
		Frames: a.knownFrames(response.Frames),
		Tokens: base.Tokens,
	}
	entities := make([]string, len(annotation.Spans))
	for i, span := range annotation.Spans {
		entities[i] = span.Normalized
	}
	annotation.Entities = ai.Distinct(entities)

	a.logger.Debug("annotated text",
		"mentions", len(response.Entities),
		"entities", len(annotation.Entities),
		"frames", len(annotation.Frames))
	return annotation, nil
}

// ClassifyFrames asks the model for the frames of a batch of texts.
func (a *Annotator) ClassifyFrames(ctx context.Context, texts []string) ([][]string, error) {
	if len(texts) == 0 {
		return [][]string{}, nil
	}

	var response framesResponse
	err := a.generate(ctx, buildFramesPrompt(a.frameList), numberLines(texts), &response, func() error {
		if len(response.Frames) != len(texts) {
			return fmt.Errorf("expected %d frame lists, got %d", len(texts), len(response.Frames))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([][]string, len(texts))
	for i, frames := range response.Frames {
		result[i] = a.knownFrames(frames)
	}
	return result, nil
}

// generate sends the prompts in JSON mode and decodes the answer into out,
// retrying up to maxAttempts times while the answer is malformed. Transport
// errors are returned at once.
func (a *Annotator) generate(ctx context.Context, system, human string, out any, checks ...func() error) error {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, human),
	}

	var lastErr error
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		response, err := a.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			a.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return err
		}
		if len(response.Choices) < 1 {
			lastErr = fmt.Errorf("no choices returned from model")
			continue
		}

		responseText := cleanResponse(response.Choices[0].Content)
		if err := json.Unmarshal([]byte(responseText), out); err != nil {
			lastErr = err
			a.logger.Warn("error parsing annotator response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		for _, check := range checks {
			if err := check(); err != nil {
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}
		a.logger.Warn("rejected annotator response", "attempt", attempt+1, "err", lastErr)
	}

	a.logger.Error("failed to parse annotator response after retries", "err", lastErr)
	return fmt.Errorf("%w: %w", ai.ErrMalformedAnnotation, lastErr)
}

// spans keeps the mentions that occur in text, splitting them around
// over-long tokens, and normalizes them.
func (a *Annotator) spans(text string, mentions []string) []ai.Span {
	var spans []ai.Span
	seen := make(map[string]bool)
	for _, mention := range mentions {
		for _, phrase := range core.EntityPhrases(strings.Fields(mention)) {
			if seen[phrase] || !strings.Contains(text, phrase) {
				continue
			}
			seen[phrase] = true
			normalized := core.NormalizeEntity(phrase)
			if len(normalized) < core.MinEntityLength {
				continue
			}
			spans = append(spans, ai.Span{Surface: phrase, Normalized: normalized})
		}
	}
	return spans
}

func (a *Annotator) knownFrames(frames []string) []string {
	known := make([]string, 0, len(frames))
	for _, frame := range frames {
		frame = strings.TrimSpace(frame)
		if a.frames[frame] {
			known = append(known, frame)
		} else if frame != "" {
			a.logger.Debug("dropping unknown frame", "frame", frame)
		}
	}
	return ai.Distinct(known)
}
