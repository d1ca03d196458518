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


package mock

import "github.com/poiesic/kbqa/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock annotator and frame classifier instances.
type MockProvider struct {
	annotator  *MockAnnotator
	classifier *MockFrameClassifier
	closed     bool
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockAnnotator()/GetMockClassifier() to access concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		annotator:  NewMockAnnotator(),
		classifier: NewMockFrameClassifier(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(annotator *MockAnnotator, classifier *MockFrameClassifier) *MockProvider {
	return &MockProvider{
		annotator:  annotator,
		classifier: classifier,
	}
}

// Annotator returns the mock annotator.
func (p *MockProvider) Annotator() ai.Annotator {
	return p.annotator
}

// FrameClassifier returns the mock frame classifier.
func (p *MockProvider) FrameClassifier() ai.FrameClassifier {
	return p.classifier
}

// Close marks the provider closed.
func (p *MockProvider) Close() error {
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool {
	return p.closed
}

// GetMockAnnotator returns the underlying mock annotator for test assertions.
func (p *MockProvider) GetMockAnnotator() *MockAnnotator {
	return p.annotator
}

// GetMockClassifier returns the underlying mock classifier for test assertions.
func (p *MockProvider) GetMockClassifier() *MockFrameClassifier {
	return p.classifier
}
