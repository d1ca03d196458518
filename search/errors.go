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


package search

import (
	"errors"
	"fmt"

	"github.com/poiesic/kbqa/ai"
	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
)

var (
	// ErrStoreRequired is returned when a knowledge store is not provided.
	ErrStoreRequired = errors.New("knowledge store required")

	// ErrAnnotatorRequired is returned when an annotator is not provided.
	ErrAnnotatorRequired = errors.New("annotator required")

	// ErrInvalidConfig is returned when an engine configuration is unusable.
	ErrInvalidConfig = errors.New("invalid search config")

	// ErrUpstreamUnavailable is returned when the annotator or the knowledge
	// store fails or times out while answering a question. It is distinct
	// from a question that simply has no answer.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// isLocalFailure reports errors confined to one lookup or one heading
// rather than to the store or annotator as a whole.
func isLocalFailure(err error) bool {
	return errors.Is(err, storage.ErrInvalidQuery) ||
		errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, core.ErrInconsistentHeadingTree) ||
		errors.Is(err, ai.ErrMalformedAnnotation)
}

// unavailable wraps err in ErrUpstreamUnavailable unless it already is.
func unavailable(op string, err error) error {
	if errors.Is(err, ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, op, err)
}
