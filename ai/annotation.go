package ai

import (
	"fmt"
	"strings"
)

// Part-of-speech tags used in Token.POS. They follow the Penn Treebank
// names so stored annotations stay readable.
const (
	TagNoun        = "NN"
	TagPluralNoun  = "NNS"
	TagProperNoun  = "NNP"
	TagVerb        = "VB"
	TagGerund      = "VBG"
	TagParticiple  = "VBN"
	TagAdjective   = "JJ"
	TagAdverb      = "RB"
	TagDeterminer  = "DT"
	TagPreposition = "IN"
	TagConjunction = "CC"
	TagPronoun     = "PRP"
	TagModal       = "MD"
	TagWhPronoun   = "WP"
	TagWhAdverb    = "WRB"
	TagNumber      = "CD"
)

// TokenSeparator joins a token to its tag in stored annotations.
const TokenSeparator = "__"

// Annotation is the result of annotating one text.
type Annotation struct {
	// Entities are the distinct normalized entity texts, in order of first mention.
	Entities []string

	// Frames are the distinct frame labels evoked by the text.
	Frames []string

	// Spans map each entity mention as written to its normalized form.
	Spans []Span

	// Tokens are the part-of-speech tagged tokens of the text.
	Tokens []Token
}

// Span is one entity mention.
type Span struct {
	Surface    string
	Normalized string
}

// Token is one tagged token.
type Token struct {
	Text string
	POS  string
}

// Validate reports ErrMalformedAnnotation when the annotation carries blank
// entities, frames or spans.
func (a *Annotation) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: nil annotation", ErrMalformedAnnotation)
	}
	for _, entity := range a.Entities {
		if strings.TrimSpace(entity) == "" {
			return fmt.Errorf("%w: blank entity", ErrMalformedAnnotation)
		}
	}
	for _, frame := range a.Frames {
		if strings.TrimSpace(frame) == "" {
			return fmt.Errorf("%w: blank frame", ErrMalformedAnnotation)
		}
	}
	for _, span := range a.Spans {
		if span.Surface == "" || span.Normalized == "" {
			return fmt.Errorf("%w: incomplete span %q", ErrMalformedAnnotation, span.Surface)
		}
	}
	return nil
}

// TaggedTokens renders the tokens as "token__POS" pairs.
func (a *Annotation) TaggedTokens() []string {
	tagged := make([]string, len(a.Tokens))
	for i, token := range a.Tokens {
		tagged[i] = token.Text + TokenSeparator + token.POS
	}
	return tagged
}

// Surfaces returns the distinct surface forms of the entity spans.
func (a *Annotation) Surfaces() []string {
	seen := make(map[string]bool, len(a.Spans))
	surfaces := make([]string, 0, len(a.Spans))
	for _, span := range a.Spans {
		if !seen[span.Surface] {
			seen[span.Surface] = true
			surfaces = append(surfaces, span.Surface)
		}
	}
	return surfaces
}

// Distinct returns values without blanks and duplicates, keeping first occurrences.
func Distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
