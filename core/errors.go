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

import "errors"

// Domain validation errors
var (
	// ErrInvalidEntity indicates an Entity failed validation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrInvalidHeading indicates a Heading failed validation.
	ErrInvalidHeading = errors.New("invalid heading")

	// ErrInvalidSentence indicates a Sentence failed validation.
	ErrInvalidSentence = errors.New("invalid sentence")

	// ErrEmptyContent indicates a required text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEntityLength indicates entity text is outside the accepted length bounds.
	ErrEntityLength = errors.New("entity length out of bounds")

	// ErrRootHeading indicates an attempt to write or reparent the ROOT heading.
	ErrRootHeading = errors.New("root heading is reserved")

	// ErrCorruptRecord indicates a stored record could not be decoded.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrInconsistentHeadingTree indicates a heading whose parent chain does
	// not terminate at ROOT, either because of a cycle or a dangling parent.
	ErrInconsistentHeadingTree = errors.New("inconsistent heading tree")
)
