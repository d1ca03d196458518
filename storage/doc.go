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

// Package storage defines the persistence contracts of a knowledge base.
//
// Writers (ingestion, reframe) use the per-record repositories:
//
//   - EntityRepository holds normalized entities and answers approximate lookups
//   - HeadingRepository holds the heading tree under the ROOT sentinel
//   - SentenceRepository holds sentences and their entity occurrences
//   - FrameRepository holds the append-only frame index
//   - CheckpointRepository holds resume markers of offline jobs
//
// The answer engine reads through KnowledgeStore only. Package badger
// implements all of them over a single embedded database:
//
//	repos, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repos.Close()
//
//	store := repos.KnowledgeStore()
//
// Implementations are safe for concurrent use and honor context
// cancellation between records.
package storage
