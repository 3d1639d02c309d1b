package textutil

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Maximum accepted edit distance for a correction, by input length.
const (
	shortWordLimit     = 6
	shortWordThreshold = 2
	longWordThreshold  = 3
	// candidateLengthSlack bounds the vocabulary scan to words whose length
	// differs from the input by at most this much.
	candidateLengthSlack = 2
)

// SpellChecker corrects likely typos in query terms against a learned
// vocabulary. Zero value is usable but corrects nothing until Train is called.
type SpellChecker struct {
	vocab map[string]struct{}
	// words holds the vocabulary in lexicographic order so that ties on
	// minimum edit distance resolve to the same candidate every run.
	words []string
}

// NewSpellChecker returns an empty spell checker.
func NewSpellChecker() *SpellChecker {
	return &SpellChecker{vocab: make(map[string]struct{})}
}

// Train adds every token from the given texts to the vocabulary.
// May be called more than once; the vocabulary only grows.
func (s *SpellChecker) Train(texts []string) {
	if s.vocab == nil {
		s.vocab = make(map[string]struct{})
	}
	added := false
	for _, text := range texts {
		for _, tok := range Tokenize(text) {
			if _, ok := s.vocab[tok]; !ok {
				s.vocab[tok] = struct{}{}
				added = true
			}
		}
	}
	if added {
		s.words = s.words[:0]
		for w := range s.vocab {
			s.words = append(s.words, w)
		}
		sort.Strings(s.words)
	}
}

// VocabSize reports the number of known words.
func (s *SpellChecker) VocabSize() int {
	return len(s.vocab)
}

// Known reports whether the word (lowercased) is in the vocabulary.
func (s *SpellChecker) Known(word string) bool {
	_, ok := s.vocab[strings.ToLower(word)]
	return ok
}

// Correct returns the closest vocabulary word within the edit-distance
// threshold, or the input unchanged when it is already known or no candidate
// qualifies. The threshold is 2 edits for words shorter than 6 runes, 3
// otherwise. Ties resolve to the lexicographically first candidate.
func (s *SpellChecker) Correct(word string) string {
	word = strings.ToLower(word)
	if _, ok := s.vocab[word]; ok {
		return word
	}

	wordLen := utf8.RuneCountInString(word)
	threshold := longWordThreshold
	if wordLen < shortWordLimit {
		threshold = shortWordThreshold
	}

	best := word
	bestDist := threshold + 1
	for _, cand := range s.words {
		diff := utf8.RuneCountInString(cand) - wordLen
		if diff < -candidateLengthSlack || diff > candidateLengthSlack {
			continue
		}
		if d := Distance(word, cand); d < bestDist {
			bestDist = d
			best = cand
		}
	}
	return best
}

// CorrectSentence tokenizes the text and corrects each token, returning the
// corrected tokens joined by single spaces.
func (s *SpellChecker) CorrectSentence(text string) string {
	tokens := Tokenize(text)
	for i, tok := range tokens {
		tokens[i] = s.Correct(tok)
	}
	return strings.Join(tokens, " ")
}
