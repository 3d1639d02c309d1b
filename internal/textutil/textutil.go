// Package textutil provides the text primitives shared by the ranking
// pipeline: tokenization, Levenshtein edit distance, and vocabulary-based
// spell correction for incoming queries.
package textutil

import (
	"strings"
	"unicode"
)

// Tokenize splits text into lowercase alphanumeric tokens. Anything that is
// not a letter or digit is a separator, matching the tokenization used by the
// classifier and the spell checker so their vocabularies line up.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Distance computes the Levenshtein edit distance between a and b: the
// minimum number of single-character insertions, deletions, or substitutions
// needed to turn one into the other. Operates on runes, not bytes.
func Distance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i, ca := range ra {
		curr[0] = i + 1
		for j, cb := range rb {
			ins := prev[j+1] + 1
			del := curr[j] + 1
			sub := prev[j]
			if ca != cb {
				sub++
			}
			curr[j+1] = min3(ins, del, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
