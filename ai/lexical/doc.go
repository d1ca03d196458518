// Package lexical implements a deterministic, rule-based ai.Annotator.
//
// Text is split into word tokens which are tagged from closed-class word
// lists, suffix rules and the verbs of the frame lexicon. Entity mentions are
// the maximal adjective-noun runs, split around over-long tokens and
// normalized with core.NormalizeEntity. Frames are looked up in a lexicon of
// lexical units ("restart.v", "timeout.n") loaded from YAML; a built-in
// lexicon covering common operations vocabulary is embedded.
//
// The annotator needs no network access, so it is the default provider and
// the one used by tests of the packages above it.
package lexical
