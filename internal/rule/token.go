package rule

import (
	"strings"
)

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokenAtom TokenKind = iota
	TokenLParen
	TokenRParen
	TokenLogical
	TokenComparison
)

func (k TokenKind) String() string {
	switch k {
	case TokenAtom:
		return "atom"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenLogical:
		return "logical operator"
	case TokenComparison:
		return "comparison operator"
	default:
		return "unknown"
	}
}

// Token is one lexical unit of a rule string.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

// Tokenize splits a rule string into tokens. Parentheses, comparison
// operators and the words AND and OR are separate tokens; every other run of
// non-space characters is an atom. A single-quoted literal is kept as one atom
// including its quotes, so 'New York' survives as a single token. An
// unterminated quote runs to the end of the input.
//
// Tokenize never fails; structural validation is left to the parser.
func Tokenize(s string) []Token {
	var tokens []Token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case isSpace(c):
			i++
		case c == '(':
			tokens = append(tokens, Token{Kind: TokenLParen, Text: "(", Pos: i})
			i++
		case c == ')':
			tokens = append(tokens, Token{Kind: TokenRParen, Text: ")", Pos: i})
			i++
		default:
			if n := comparisonLen(s[i:]); n > 0 {
				tokens = append(tokens, Token{Kind: TokenComparison, Text: s[i : i+n], Pos: i})
				i += n
				continue
			}
			start := i
			i = scanAtom(s, i)
			text := s[start:i]
			kind := TokenAtom
			if text == string(And) || text == string(Or) {
				kind = TokenLogical
			}
			tokens = append(tokens, Token{Kind: kind, Text: text, Pos: start})
		}
	}
	return tokens
}

// scanAtom returns the end offset of the atom starting at i.
func scanAtom(s string, i int) int {
	for i < len(s) {
		c := s[i]
		if c == '\'' {
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				return len(s)
			}
			i += end + 2
			continue
		}
		if isSpace(c) || c == '(' || c == ')' || comparisonLen(s[i:]) > 0 {
			return i
		}
		i++
	}
	return i
}

// comparisonLen returns the length of the comparison operator at the start of
// s, or 0 if there is none.
func comparisonLen(s string) int {
	if len(s) >= 2 {
		switch s[:2] {
		case "<=", ">=", "!=", "==":
			return 2
		}
	}
	if len(s) >= 1 {
		switch s[0] {
		case '<', '>', '=':
			return 1
		}
	}
	return 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
