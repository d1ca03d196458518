package lexical

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
	"github.com/poiesic/kbqa/ai"
)

// reToken matches words, keeping inner joiners so "rate-limit", "v1.2"
// and "oauth2/token" stay single tokens.
var reToken = regexp.MustCompile(`[A-Za-z0-9]+(?:['._/-][A-Za-z0-9]+)*`)

type token struct {
	text       string
	start, end int
	pos        string
}

func tokenize(text string) []token {
	locs := reToken.FindAllStringIndex(text, -1)
	tokens := make([]token, len(locs))
	for i, loc := range locs {
		tokens[i] = token{text: text[loc[0]:loc[1]], start: loc[0], end: loc[1]}
	}
	return tokens
}

var closedClass = map[string]string{
	"the": ai.TagDeterminer, "a": ai.TagDeterminer, "an": ai.TagDeterminer, "this": ai.TagDeterminer,
	"that": ai.TagDeterminer, "these": ai.TagDeterminer, "those": ai.TagDeterminer, "each": ai.TagDeterminer,
	"every": ai.TagDeterminer, "any": ai.TagDeterminer, "some": ai.TagDeterminer, "all": ai.TagDeterminer,
	"no": ai.TagDeterminer, "both": ai.TagDeterminer,

	"in": ai.TagPreposition, "on": ai.TagPreposition, "at": ai.TagPreposition, "of": ai.TagPreposition,
	"to": ai.TagPreposition, "for": ai.TagPreposition, "with": ai.TagPreposition, "from": ai.TagPreposition,
	"by": ai.TagPreposition, "about": ai.TagPreposition, "into": ai.TagPreposition, "over": ai.TagPreposition,
	"under": ai.TagPreposition, "between": ai.TagPreposition, "through": ai.TagPreposition, "during": ai.TagPreposition,
	"before": ai.TagPreposition, "after": ai.TagPreposition, "within": ai.TagPreposition, "without": ai.TagPreposition,
	"via": ai.TagPreposition, "per": ai.TagPreposition, "as": ai.TagPreposition, "if": ai.TagPreposition,
	"than": ai.TagPreposition, "until": ai.TagPreposition, "against": ai.TagPreposition,

	"and": ai.TagConjunction, "or": ai.TagConjunction, "but": ai.TagConjunction, "nor": ai.TagConjunction,

	"i": ai.TagPronoun, "you": ai.TagPronoun, "he": ai.TagPronoun, "she": ai.TagPronoun, "it": ai.TagPronoun,
	"we": ai.TagPronoun, "they": ai.TagPronoun, "me": ai.TagPronoun, "him": ai.TagPronoun, "her": ai.TagPronoun,
	"us": ai.TagPronoun, "them": ai.TagPronoun, "my": ai.TagPronoun, "your": ai.TagPronoun, "its": ai.TagPronoun,
	"our": ai.TagPronoun, "their": ai.TagPronoun,

	"what": ai.TagWhPronoun, "which": ai.TagWhPronoun, "who": ai.TagWhPronoun, "whom": ai.TagWhPronoun,
	"whose": ai.TagWhPronoun,
	"how": ai.TagWhAdverb, "when": ai.TagWhAdverb, "where": ai.TagWhAdverb, "why": ai.TagWhAdverb,

	"can": ai.TagModal, "could": ai.TagModal, "will": ai.TagModal, "would": ai.TagModal, "shall": ai.TagModal,
	"should": ai.TagModal, "may": ai.TagModal, "might": ai.TagModal, "must": ai.TagModal,

	"is": ai.TagVerb, "are": ai.TagVerb, "was": ai.TagVerb, "were": ai.TagVerb, "be": ai.TagVerb,
	"been": ai.TagVerb, "being": ai.TagVerb, "am": ai.TagVerb, "do": ai.TagVerb, "does": ai.TagVerb,
	"did": ai.TagVerb, "have": ai.TagVerb, "has": ai.TagVerb, "had": ai.TagVerb,

	"not": ai.TagAdverb, "also": ai.TagAdverb, "then": ai.TagAdverb, "only": ai.TagAdverb, "there": ai.TagAdverb,
	"here": ai.TagAdverb, "very": ai.TagAdverb, "again": ai.TagAdverb,
}

var adjectives = map[string]bool{
	"new": true, "old": true, "default": true, "custom": true, "maximum": true, "minimum": true,
	"public": true, "private": true, "internal": true, "external": true, "remote": true, "local": true,
	"global": true, "main": true, "primary": true, "secondary": true, "multiple": true, "single": true,
	"different": true, "same": true, "other": true, "first": true, "last": true, "next": true,
	"available": true, "required": true, "optional": true, "valid": true, "invalid": true,
	"dynamic": true, "static": true, "secure": true, "active": true, "inactive": true,
}

var adjectiveSuffixes = []string{"ous", "ful", "less", "able", "ible"}

// verbContext holds the tags after which a lexicon verb is read as a verb.
var verbContext = map[string]bool{
	ai.TagModal: true, ai.TagPronoun: true, ai.TagWhAdverb: true, ai.TagAdverb: true,
}

var auxiliaries = map[string]bool{
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"has": true, "have": true, "had": true, "get": true, "gets": true, "got": true,
}

// tag assigns a part-of-speech tag to every token in place.
func tag(tokens []token, lex *Lexicon) {
	for i := range tokens {
		tok := &tokens[i]
		lower := strings.ToLower(tok.text)
		prev, prevWord := "", ""
		if i > 0 {
			prev = tokens[i-1].pos
			prevWord = strings.ToLower(tokens[i-1].text)
		}

		if pos, ok := closedClass[lower]; ok {
			tok.pos = pos
			continue
		}

		switch {
		case isNumber(lower):
			tok.pos = ai.TagNumber
		case (imperative(tokens, i) || verbContext[prev] || prevWord == "to") && lex.isVerb(lower):
			tok.pos = ai.TagVerb
		case len(lower) > 4 && strings.HasSuffix(lower, "ly"):
			tok.pos = ai.TagAdverb
		case len(lower) > 5 && strings.HasSuffix(lower, "ing"):
			if prev == ai.TagDeterminer || prev == ai.TagAdjective {
				tok.pos = ai.TagNoun
			} else {
				tok.pos = ai.TagGerund
			}
		case len(lower) > 4 && strings.HasSuffix(lower, "ed"):
			if auxiliaries[prevWord] {
				tok.pos = ai.TagParticiple
			} else {
				tok.pos = ai.TagAdjective
			}
		case isAdjective(lower):
			tok.pos = ai.TagAdjective
		case isProperNoun(tok.text, i):
			tok.pos = ai.TagProperNoun
		case isPlural(lower):
			tok.pos = ai.TagPluralNoun
		default:
			tok.pos = ai.TagNoun
		}
	}
}

// imperative reports whether the first token opens an instruction: it
// stands alone or is followed by a determiner, pronoun or preposition.
func imperative(tokens []token, i int) bool {
	if i != 0 {
		return false
	}
	if len(tokens) == 1 {
		return true
	}
	switch closedClass[strings.ToLower(tokens[1].text)] {
	case ai.TagDeterminer, ai.TagPronoun, ai.TagPreposition:
		return true
	}
	return false
}

func isNumber(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) && r != '.' {
			return false
		}
	}
	return true
}

func isAdjective(word string) bool {
	if adjectives[word] {
		return true
	}
	for _, suffix := range adjectiveSuffixes {
		if len(word) > len(suffix)+2 && strings.HasSuffix(word, suffix) {
			return true
		}
	}
	return false
}

// isProperNoun treats capitalized words after the first token and acronyms
// anywhere as proper nouns.
func isProperNoun(word string, index int) bool {
	runes := []rune(word)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	if index > 0 {
		return true
	}
	upper := 0
	for _, r := range runes {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return upper >= 2
}

func isPlural(word string) bool {
	return len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss")
}

func isNoun(pos string) bool {
	return strings.HasPrefix(pos, "NN")
}

type suffixRule struct {
	suffix, replace string
}

var verbSuffixes = []suffixRule{
	{"ies", "y"}, {"ied", "y"}, {"ing", "e"}, {"ing", ""}, {"es", ""}, {"ed", "e"}, {"ed", ""}, {"s", ""},
}

// lemmas lists the candidate base forms of word for a lexicon part of
// speech ("v", "n" or "a"), the word itself first.
func lemmas(word, pos string) []string {
	w := strings.ToLower(word)
	out := []string{w}
	switch pos {
	case "v":
		for _, rule := range verbSuffixes {
			if !strings.HasSuffix(w, rule.suffix) || len(w)-len(rule.suffix) < 2 {
				continue
			}
			stem := w[:len(w)-len(rule.suffix)] + rule.replace
			out = append(out, stem)
			if n := len(stem); rule.replace == "" && n > 2 && stem[n-1] == stem[n-2] {
				out = append(out, stem[:n-1])
			}
		}
	case "n":
		if singular := inflection.Singular(w); singular != w {
			out = append(out, singular)
		}
	}
	return out
}

// unitPOS maps a tag to the lexicon part of speech, or "" for tags that
// never evoke frames.
func unitPOS(tag string) string {
	switch {
	case strings.HasPrefix(tag, "VB"):
		return "v"
	case strings.HasPrefix(tag, "NN"):
		return "n"
	case tag == ai.TagAdjective:
		return "a"
	}
	return ""
}
