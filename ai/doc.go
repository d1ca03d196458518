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


// Package ai provides the linguistic annotation services used by kbqa.
//
// Questions, heading labels and ingested sentences all go through an
// Annotator, which extracts normalized entities, semantic frame labels,
// entity spans and part-of-speech tokens. Offline jobs that only need frames
// use the batched FrameClassifier.
//
// # Implementation Packages
//
//   - ai/lexical: Deterministic rule-based annotator with a YAML frame lexicon
//   - ai/openai: Annotator backed by an OpenAI-compatible chat model
//   - ai/mock: Test doubles for unit testing without a backend
//
// # Decorators
//
// CachingAnnotator memoizes annotations by text and RateLimitedAnnotator
// bounds the call rate against remote backends. Decorate applies both
// according to a Config.
//
//	cfg := ai.DefaultConfig()
//	provider, err := lexical.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	annotator, classifier := ai.Decorate(provider, cfg)
//	annotation, err := annotator.Annotate(ctx, "How do I restart the gateway?")
package ai
