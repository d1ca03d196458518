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


// Package search answers questions from the knowledge base by ranking
// document sections.
//
// The Engine runs a question through a fixed pipeline:
//   - the annotator extracts normalized entities and frame labels
//   - the EntityResolver fuzzily maps entities to stored entity ids,
//     retrying with shorter sub-phrases until enough headings qualify
//   - the HeadingAggregator groups matching sentences by heading and keeps
//     headings that mention every matched entity
//   - the RelevanceScorer rates each heading along its path to the top
//   - the TierBucketer sorts headings into BEST, GOOD and INDIRECT
//   - the WindowMerger and AnswerAssembler turn hits into readable excerpts
//
// A question without a matching section yields a single fallback answer.
// Store or annotator failures yield ErrUpstreamUnavailable instead.
package search
