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
	"regexp"
	"strings"
)

var (
	// `, frames":` lost its opening quote.
	halfQuotedKey = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z_ ]*?)":`)
	// `[1, 2,]` and `{"a": 1,}`.
	trailingComma = regexp.MustCompile(`,\s*([\]}])`)
)

// cleanResponse cuts the JSON object out of a model response, dropping code
// fences and chatter around it, and repairs the slips small models make.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); start >= 0 && end > start {
		s = s[start : end+1]
	}
	return repairJSON(s)
}

// repairJSON restores missing opening quotes on keys and drops trailing
// commas. Well formed input comes back unchanged.
func repairJSON(s string) string {
	s = halfQuotedKey.ReplaceAllString(s, `$1"$2":`)
	return trailingComma.ReplaceAllString(s, "$1")
}
