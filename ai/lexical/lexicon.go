package lexical

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed frames.yaml
var defaultLexiconYAML string

// ErrInvalidLexicon is returned for a lexicon file that cannot be used.
var ErrInvalidLexicon = errors.New("invalid frame lexicon")

// Lexicon maps lexical units ("lemma.pos") to the frames they evoke.
type Lexicon struct {
	units  map[string][]string
	frames []string
}

type lexiconFile struct {
	Frames map[string][]string `yaml:"frames"`
}

// LoadLexicon decodes a YAML lexicon of the form
//
//	frames:
//	  Activity_start: [start.v, restart.v, startup.n]
func LoadLexicon(r io.Reader) (*Lexicon, error) {
	var file lexiconFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLexicon, err)
	}
	if len(file.Frames) == 0 {
		return nil, fmt.Errorf("%w: no frames", ErrInvalidLexicon)
	}

	lex := &Lexicon{units: make(map[string][]string)}
	for frame, units := range file.Frames {
		frame = strings.TrimSpace(frame)
		if frame == "" {
			return nil, fmt.Errorf("%w: blank frame name", ErrInvalidLexicon)
		}
		lex.frames = append(lex.frames, frame)
		for _, unit := range units {
			unit = strings.ToLower(strings.TrimSpace(unit))
			if !validUnit(unit) {
				return nil, fmt.Errorf("%w: frame %s: bad lexical unit %q", ErrInvalidLexicon, frame, unit)
			}
			lex.units[unit] = append(lex.units[unit], frame)
		}
	}

	slices.Sort(lex.frames)
	for unit := range lex.units {
		slices.Sort(lex.units[unit])
	}
	return lex, nil
}

// LoadLexiconFile reads a YAML lexicon from path.
func LoadLexiconFile(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadLexicon(f)
}

var defaultLexicon = sync.OnceValues(func() (*Lexicon, error) {
	return LoadLexicon(strings.NewReader(defaultLexiconYAML))
})

// DefaultLexicon returns the built-in lexicon.
func DefaultLexicon() *Lexicon {
	lex, err := defaultLexicon()
	if err != nil {
		panic(err)
	}
	return lex
}

func validUnit(unit string) bool {
	lemma, pos, ok := strings.Cut(unit, ".")
	if !ok || lemma == "" {
		return false
	}
	switch pos {
	case "v", "n", "a":
		return true
	}
	return false
}

// Frames returns the frames evoked by a lexical unit.
func (l *Lexicon) Frames(unit string) []string {
	return l.units[unit]
}

// FrameNames returns every frame of the lexicon in lexical order.
func (l *Lexicon) FrameNames() []string {
	return slices.Clone(l.frames)
}

// isVerb reports whether any verb lemma of word is a verb unit.
func (l *Lexicon) isVerb(word string) bool {
	for _, lemma := range lemmas(word, "v") {
		if _, ok := l.units[lemma+".v"]; ok {
			return true
		}
	}
	return false
}
