package sigparse

import (
	"fmt"
	"unicode"
)

type tokenType int

const (
	tokIdent tokenType = iota
	tokPunct
	tokArrow
)

func (t tokenType) String() string {
	switch t {
	case tokIdent:
		return "identifier"
	case tokPunct:
		return "punctuation"
	case tokArrow:
		return "'->'"
	}
	return "unknown"
}

type token struct {
	Value string
	Type  tokenType
	Line  int
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' ||
		r == '.' || r == '[' || r == ']' || r == '%'
}

// tokenize splits src into identifiers, single-rune punctuation and
// arrows. Line comments start with "//".
func tokenize(src string) ([]token, error) {
	var tokens []token
	line := 1
	runes := []rune(src)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			line++
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}

		if r == '/' && i+1 < len(runes) && runes[i+1] == '/' {
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			line++
			continue
		}

		if r == '-' && i+1 < len(runes) && runes[i+1] == '>' {
			tokens = append(tokens, token{"->", tokArrow, line})
			i++
			continue
		}

		switch r {
		case ':', ',', '(', ')', '<', '>', '{', '}', '=', ';':
			tokens = append(tokens, token{string(r), tokPunct, line})
			continue
		}

		if isIdentRune(r) {
			start := i
			for i < len(runes) && isIdentRune(runes[i]) {
				// stop before an arrow glued to the identifier
				if runes[i] == '-' && i+1 < len(runes) && runes[i+1] == '>' {
					break
				}
				i++
			}
			tokens = append(tokens, token{string(runes[start:i]), tokIdent, line})
			i--
			continue
		}

		return nil, fmt.Errorf("line %d: unexpected character %q", line, r)
	}

	return tokens, nil
}
