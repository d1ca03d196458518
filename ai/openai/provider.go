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
	"log/slog"

	"github.com/poiesic/kbqa/ai"
	"github.com/poiesic/kbqa/ai/lexical"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider implements ai.AIProvider using an OpenAI-compatible service.
type Provider struct {
	config    *ai.Config
	annotator *Annotator
	logger    *slog.Logger
}

// NewProvider creates a new AI provider with an OpenAI-compatible annotator.
// The config is validated and normalized before use.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	lex := lexical.DefaultLexicon()
	if config.FrameLexicon != "" {
		var err error
		lex, err = lexical.LoadLexiconFile(config.FrameLexicon)
		if err != nil {
			return nil, err
		}
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken("none"),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:    config,
		annotator: newAnnotator(client, lex, config.MaxAttempts),
		logger:    slog.Default().With("component", "openai-provider"),
	}, nil
}

// Annotator returns the annotation service.
func (p *Provider) Annotator() ai.Annotator {
	return p.annotator
}

// FrameClassifier returns the frame classification service.
func (p *Provider) FrameClassifier() ai.FrameClassifier {
	return p.annotator
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying client doesn't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
