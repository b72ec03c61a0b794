// Package tokenizer normalises document and query text. It lower-cases input,
// splits on non-alphanumeric boundaries, removes stop-words, and stems with the
// Snowball English (Porter2) stemmer. Removed words still consume a position so
// that proximity operators see the original word distances.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Token is a normalised term and the position of its word in the original
// text.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into stemmed, lowercased Tokens with stop-words
// removed.
func Tokenize(text string) []Token {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		term, ok := normalizeWord(word)
		if !ok {
			continue
		}
		tokens = append(tokens, Token{Term: term, Position: pos})
	}
	return tokens
}

// Terms tokenizes a query term and returns the surviving terms in order. A
// single query word may yield several terms ("wal-mart") or none (a
// stop-word).
func Terms(text string) []string {
	tokens := Tokenize(text)
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Term)
	}
	return out
}

func normalizeWord(word string) (string, bool) {
	if len(word) < 2 {
		return "", false
	}
	if _, isStop := stopWords[word]; isStop {
		return "", false
	}
	stemmed := stem(word)
	if stemmed == "" {
		return "", false
	}
	return stemmed, true
}

// stem reduces a word to its Porter2 stem. Stop-words are filtered before this
// point, so the stemmer's own stop list is bypassed.
func stem(word string) string {
	return english.Stem(word, true)
}
