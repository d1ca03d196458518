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


package core

import (
	"fmt"
	"unicode/utf8"
)

const (
	// MinEntityLength is the shortest normalized entity text accepted.
	MinEntityLength = 2
	// MaxEntityLength is the longest normalized entity text accepted.
	MaxEntityLength = 100
)

// ValidateEntity validates an Entity according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Text length must be within MinEntityLength..MaxEntityLength
//
// NOT validated:
//   - ID (derived from Text on insert)
func ValidateEntity(entity *Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}

	if entity.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyContent)
	}

	n := utf8.RuneCountInString(entity.Text)
	if n < MinEntityLength || n > MaxEntityLength {
		return fmt.Errorf("%w: %w: %d characters", ErrInvalidEntity, ErrEntityLength, n)
	}

	return nil
}

// ValidateHeading validates a Heading according to domain rules.
//
// Validation rules:
//   - Label must not be empty
//   - Only ROOT may have depth 0
//   - A heading cannot be its own parent
func ValidateHeading(heading *Heading) error {
	if heading == nil {
		return fmt.Errorf("%w: heading is nil", ErrInvalidHeading)
	}

	if heading.Label == "" {
		return fmt.Errorf("%w: %w", ErrInvalidHeading, ErrEmptyContent)
	}

	if heading.Depth < 1 {
		return fmt.Errorf("%w: %w: depth %d", ErrInvalidHeading, ErrRootHeading, heading.Depth)
	}

	if heading.Id != RootHeadingID && heading.Id == heading.ParentId {
		return fmt.Errorf("%w: heading %d is its own parent", ErrInvalidHeading, heading.Id)
	}

	return nil
}

// ValidateSentence validates a Sentence according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Sentences may not hang directly from ROOT
//
// NOT validated:
//   - ID (0 is replaced from the database sequence)
//   - EntityIds (a sentence may mention no entity)
func ValidateSentence(sentence *Sentence) error {
	if sentence == nil {
		return fmt.Errorf("%w: sentence is nil", ErrInvalidSentence)
	}

	if sentence.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSentence, ErrEmptyContent)
	}

	if sentence.HeadingId == RootHeadingID {
		return fmt.Errorf("%w: %w", ErrInvalidSentence, ErrRootHeading)
	}

	return nil
}
