package lexical

import (
	"context"
	"log/slog"

	"github.com/poiesic/kbqa/ai"
)

// Annotator implements ai.Annotator and ai.FrameClassifier with rules.
type Annotator struct {
	lexicon *Lexicon
	logger  *slog.Logger
}

var (
	_ ai.Annotator       = (*Annotator)(nil)
	_ ai.FrameClassifier = (*Annotator)(nil)
)

// NewAnnotator creates an annotator over lex. A nil lexicon selects the
// built-in one.
func NewAnnotator(lex *Lexicon) *Annotator {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Annotator{
		lexicon: lex,
		logger:  slog.Default().With("component", "lexical-annotator"),
	}
}

// Annotate tags text, chunks its entity mentions and looks up its frames.
func (a *Annotator) Annotate(ctx context.Context, text string) (*ai.Annotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := tokenize(text)
	tag(tokens, a.lexicon)

	annotation := &ai.Annotation{
		Spans:  chunk(text, tokens),
		Frames: a.frames(tokens),
		Tokens: make([]ai.Token, len(tokens)),
	}
	for i, tok := range tokens {
		annotation.Tokens[i] = ai.Token{Text: tok.text, POS: tok.pos}
	}
	entities := make([]string, len(annotation.Spans))
	for i, span := range annotation.Spans {
		entities[i] = span.Normalized
	}
	annotation.Entities = ai.Distinct(entities)

	a.logger.Debug("annotated text",
		"tokens", len(tokens),
		"entities", len(annotation.Entities),
		"frames", len(annotation.Frames))
	return annotation, nil
}

// ClassifyFrames annotates each text and keeps only its frames.
func (a *Annotator) ClassifyFrames(ctx context.Context, texts []string) ([][]string, error) {
	result := make([][]string, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tokens := tokenize(text)
		tag(tokens, a.lexicon)
		result[i] = a.frames(tokens)
	}
	return result, nil
}

// frames collects the distinct frames evoked by the tagged tokens in order
// of first evocation. The first lemma candidate found in the lexicon wins.
func (a *Annotator) frames(tokens []token) []string {
	var frames []string
	for _, tok := range tokens {
		pos := unitPOS(tok.pos)
		if pos == "" {
			continue
		}
		for _, lemma := range lemmas(tok.text, pos) {
			if evoked := a.lexicon.Frames(lemma + "." + pos); len(evoked) > 0 {
				frames = append(frames, evoked...)
				break
			}
		}
	}
	return ai.Distinct(frames)
}

// Provider implements ai.AIProvider with a single lexical annotator.
type Provider struct {
	annotator *Annotator
}

// NewProvider creates a lexical provider. The frame lexicon is read from
// config.FrameLexicon when set.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	lex := DefaultLexicon()
	if config.FrameLexicon != "" {
		var err error
		lex, err = LoadLexiconFile(config.FrameLexicon)
		if err != nil {
			return nil, err
		}
	}
	return &Provider{annotator: NewAnnotator(lex)}, nil
}

// Annotator returns the annotation service.
func (p *Provider) Annotator() ai.Annotator {
	return p.annotator
}

// FrameClassifier returns the frame classification service.
func (p *Provider) FrameClassifier() ai.FrameClassifier {
	return p.annotator
}

// Close is a no-op; the lexical provider holds no resources.
func (p *Provider) Close() error {
	return nil
}
