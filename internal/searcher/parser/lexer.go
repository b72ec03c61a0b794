package parser

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokOpen
	tokClose
)

type token struct {
	kind tokenKind
	text string
}

func (t token) String() string {
	switch t.kind {
	case tokOpen:
		return `"("`
	case tokClose:
		return `")"`
	default:
		return `"` + t.text + `"`
	}
}

// lex splits a query into words and parentheses.
func lex(query string) []token {
	var toks []token
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			toks = append(toks, token{kind: tokWord, text: word.String()})
			word.Reset()
		}
	}
	for _, r := range query {
		switch {
		case r == '(':
			flush()
			toks = append(toks, token{kind: tokOpen})
		case r == ')':
			flush()
			toks = append(toks, token{kind: tokClose})
		case unicode.IsSpace(r):
			flush()
		default:
			word.WriteRune(r)
		}
	}
	flush()
	return toks
}

type state struct {
	toks []token
	pos  int
}

func (s *state) done() bool {
	return s.pos >= len(s.toks)
}

func (s *state) peekToken() (token, bool) {
	if s.done() {
		return token{}, false
	}
	return s.toks[s.pos], true
}

func (s *state) peek() token {
	t, _ := s.peekToken()
	return t
}

func (s *state) next() (token, bool) {
	t, ok := s.peekToken()
	if ok {
		s.pos++
	}
	return t, ok
}
