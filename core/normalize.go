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
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"
)

const (
	// MaxLeafLength is the longest single token allowed inside an entity.
	// Longer tokens (hashes, keys, URLs) split the phrase around them.
	MaxLeafLength = 25

	// MinAlnumRatio is the minimum share of alphanumeric characters in an entity.
	MinAlnumRatio = 0.5
)

var (
	reAcronymPlural = regexp.MustCompile(`([A-Z])s$`)
	reNonAlnumSpace = regexp.MustCompile(`[^A-Za-z0-9\s]`)
	reSpaces        = regexp.MustCompile(`\s+`)
)

// NormalizeEntity converts a surface phrase to its stored form: acronym
// plurals dropped ("APIs" -> "API"), punctuation replaced by spaces, spaces
// collapsed, lowercased, and the rightmost word singularized.
func NormalizeEntity(phrase string) string {
	phrase = reAcronymPlural.ReplaceAllString(phrase, "$1")
	phrase = reNonAlnumSpace.ReplaceAllString(phrase, " ")
	phrase = strings.ToLower(strings.TrimSpace(reSpaces.ReplaceAllString(phrase, " ")))
	if phrase == "" {
		return ""
	}

	words := strings.Split(phrase, " ")
	last := len(words) - 1
	words[last] = singular(words[last])
	return strings.Join(words, " ")
}

// singular returns the singular form of a lowercase word, leaving short
// words and words without a plural suffix untouched.
func singular(word string) string {
	if len(word) < 4 || !strings.HasSuffix(word, "s") || strings.HasSuffix(word, "ss") {
		return word
	}
	return inflection.Singular(word)
}

// ValidEntityText reports whether phrase is acceptable as an entity: its
// length is within bounds and at least half its characters are alphanumeric
// or spaces.
func ValidEntityText(phrase string) bool {
	total := len(phrase)
	if total < MinEntityLength || total > MaxEntityLength {
		return false
	}
	junk := len(reNonAlnumSpace.FindAllStringIndex(phrase, -1))
	return 1-float64(junk)/float64(total) >= MinAlnumRatio
}

// EntityPhrases joins the leaves of a candidate noun phrase into entity
// phrases. A leaf longer than MaxLeafLength splits the phrase and is dropped.
// Phrases failing ValidEntityText are discarded.
func EntityPhrases(leaves []string) []string {
	var phrases []string
	emit := func(part []string) {
		if len(part) == 0 {
			return
		}
		phrase := strings.Join(part, " ")
		if ValidEntityText(phrase) {
			phrases = append(phrases, phrase)
		}
	}

	start := 0
	for i, leaf := range leaves {
		if len(leaf) > MaxLeafLength {
			emit(leaves[start:i])
			start = i + 1
		}
	}
	if start < len(leaves) {
		emit(leaves[start:])
	}
	return phrases
}
