package ingestion

import "strings"

// MinSentenceLength is the shortest sentence, in bytes, kept by SplitSentences.
const MinSentenceLength = 4

const sentenceTerminators = "!.?;:"

// SplitSentences splits a paragraph into sentences. A sentence ends at a
// terminator preceded by a letter when the next non-space character is an
// uppercase letter or the text ends there. Sentences shorter than
// MinSentenceLength are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	emit := func(s string) {
		s = strings.TrimSpace(s)
		if len(s) >= MinSentenceLength {
			sentences = append(sentences, s)
		}
	}

	start := 0
	for i := 1; i < len(text); i++ {
		if !strings.ContainsRune(sentenceTerminators, rune(text[i])) || !isLetter(text[i-1]) {
			continue
		}
		j := i + 1
		for j < len(text) && isSpace(text[j]) {
			j++
		}
		if j == len(text) || isUpper(text[j]) {
			emit(text[start : i+1])
			start = j
		}
	}
	if start < len(text) {
		emit(text[start:])
	}
	return sentences
}

func isLetter(b byte) bool {
	return isUpper(b) || ('a' <= b && b <= 'z')
}

func isUpper(b byte) bool {
	return 'A' <= b && b <= 'Z'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
