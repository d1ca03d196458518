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
	"slices"
	"strings"
)

var (
	// [surface(@E)]
	reEntityMarkup = regexp.MustCompile(`\[([^\[\]]+?)\(@E\)\]`)
	// [surface(E:normalized|@:id)]
	reLegacyEntityMarkup = regexp.MustCompile(`\[([^\[\]]+?)\(E:[^|\]]*\|@:[^)\]]*\)\]`)
	reBracketEscape      = regexp.MustCompile(`\s*-([LR])([RSC])B-\s*`)
	reMarkupSpaces       = regexp.MustCompile(`\s{2,}`)
	reSpaceBeforePunct   = regexp.MustCompile(`([)\]}]) ([.,;:!?])`)
)

var bracketEscaper = strings.NewReplacer(
	"(", "-LRB-", ")", "-RRB-",
	"[", "-LSB-", "]", "-RSB-",
	"{", "-LCB-", "}", "-RCB-",
)

var openBrackets = map[string]string{"R": "(", "S": "[", "C": "{"}
var closeBrackets = map[string]string{"R": ")", "S": "]", "C": "}"}

// EscapeBrackets replaces literal brackets with tokenizer escapes so they
// cannot be confused with entity markup. StripMarkup restores them.
func EscapeBrackets(text string) string {
	return bracketEscaper.Replace(text)
}

// MarkEntity wraps a surface phrase in inline entity markup.
func MarkEntity(surface string) string {
	return "[" + surface + "(@E)]"
}

// MarkEntities rewrites text so every occurrence of each surface phrase is
// wrapped in entity markup. Longer surfaces are marked first so a phrase
// is never marked inside another.
func MarkEntities(text string, surfaces []string) string {
	ordered := make([]string, 0, len(surfaces))
	seen := make(map[string]bool, len(surfaces))
	for _, s := range surfaces {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		ordered = append(ordered, s)
	}
	slices.SortStableFunc(ordered, func(a, b string) int {
		return len(b) - len(a)
	})

	// Mark into placeholders so later surfaces cannot match inside earlier markup
	placeholders := make([]string, len(ordered))
	for i, s := range ordered {
		placeholders[i] = "\x00" + string(rune('A'+i%26)) + strings.Repeat("\x01", i/26+1) + "\x00"
		text = strings.ReplaceAll(text, s, placeholders[i])
	}
	for i, s := range ordered {
		text = strings.ReplaceAll(text, placeholders[i], MarkEntity(s))
	}
	return text
}

// StripMarkup removes inline entity markup of both the current and the
// legacy form, then restores escaped brackets.
func StripMarkup(text string) string {
	text = reLegacyEntityMarkup.ReplaceAllString(text, "$1")
	text = reEntityMarkup.ReplaceAllString(text, "$1")
	return RestoreBrackets(text)
}

// RestoreBrackets replaces tokenizer bracket escapes (-LRB-, -RSB-, ...) with
// the literal brackets, attaching them to the text they enclose.
func RestoreBrackets(text string) string {
	if !strings.Contains(text, "B-") {
		return text
	}
	text = reBracketEscape.ReplaceAllStringFunc(text, func(m string) string {
		sub := reBracketEscape.FindStringSubmatch(m)
		if sub[1] == "L" {
			return " " + openBrackets[sub[2]]
		}
		return closeBrackets[sub[2]] + " "
	})
	text = reSpaceBeforePunct.ReplaceAllString(text, "$1$2")
	return strings.TrimSpace(reMarkupSpaces.ReplaceAllString(text, " "))
}
