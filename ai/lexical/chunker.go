package lexical

import (
	"github.com/poiesic/kbqa/ai"
	"github.com/poiesic/kbqa/core"
)

// chunk finds entity mentions: maximal runs of adjectives followed by at
// least one noun, with numbers allowed after the first noun. Tokens longer
// than core.MaxLeafLength split a run and are dropped.
func chunk(text string, tokens []token) []ai.Span {
	var spans []ai.Span
	emit := func(run []token) {
		// trailing adjectives never belong to a mention
		for len(run) > 0 && !isNoun(run[len(run)-1].pos) && run[len(run)-1].pos != ai.TagNumber {
			run = run[:len(run)-1]
		}
		if !hasNoun(run) {
			return
		}
		surface := text[run[0].start:run[len(run)-1].end]
		if !core.ValidEntityText(surface) {
			return
		}
		normalized := core.NormalizeEntity(surface)
		if len(normalized) < core.MinEntityLength {
			return
		}
		spans = append(spans, ai.Span{Surface: surface, Normalized: normalized})
	}

	start := -1
	nounSeen := false
	flush := func(end int) {
		if start >= 0 {
			emit(tokens[start:end])
		}
		start = -1
		nounSeen = false
	}

	for i, tok := range tokens {
		if len(tok.text) > core.MaxLeafLength {
			flush(i)
			continue
		}
		switch {
		case tok.pos == ai.TagAdjective:
			if nounSeen {
				flush(i)
			}
			if start < 0 {
				start = i
			}
		case isNoun(tok.pos):
			if start < 0 {
				start = i
			}
			nounSeen = true
		case tok.pos == ai.TagNumber && nounSeen:
		default:
			flush(i)
		}
	}
	flush(len(tokens))
	return spans
}

func hasNoun(run []token) bool {
	for _, tok := range run {
		if isNoun(tok.pos) {
			return true
		}
	}
	return false
}
