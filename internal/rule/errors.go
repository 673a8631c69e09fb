package rule

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is wrapped by every *ParseError.
	ErrParse = errors.New("parse error")

	// ErrEmptyCombination is returned by Combine when given no rules.
	ErrEmptyCombination = errors.New("no rules to combine")

	// ErrInvalidOperator is returned when a logical operator is not AND or OR.
	ErrInvalidOperator = errors.New("invalid logical operator")
)

// ParseError describes why a rule string could not be parsed.
type ParseError struct {
	Pos   int    // byte offset in the rule string, -1 at end of input
	Token string // offending token text, empty at end of input
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("parse error at end of input: %s", e.Msg)
	}
	return fmt.Sprintf("parse error at offset %d near %q: %s", e.Pos, e.Token, e.Msg)
}

// Unwrap lets errors.Is match ErrParse.
func (e *ParseError) Unwrap() error {
	return ErrParse
}
