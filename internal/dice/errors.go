package dice

import (
	"errors"
	"fmt"
)

// Parse failure kinds. Every error returned by Parse matches exactly one of
// these with errors.Is.
var (
	ErrEmptyExpression     = errors.New("empty expression")
	ErrInvalidFlatModifier = errors.New("invalid flat modifier")
	ErrMalformedTerm       = errors.New("malformed dice term")
	ErrInvalidCount        = errors.New("invalid die count")
	ErrInvalidSides        = errors.New("invalid die sides")
	ErrNonPositiveValue    = errors.New("die count and sides must be > 0")
	ErrNothingToRoll       = errors.New("nothing to roll")
)

// ParseError describes why an expression could not be parsed.
type ParseError struct {
	Input string // the raw expression
	Token string // offending token; empty for whole-expression failures
	Kind  error  // one of the Err* sentinels above
	Err   error  // underlying cause (e.g. *strconv.NumError), may be nil
}

func (e *ParseError) Error() string {
	msg := "dice: " + e.Kind.Error()
	if e.Token != "" {
		msg += fmt.Sprintf(" %q", e.Token)
	}
	if e.Input != "" && e.Input != e.Token {
		msg += fmt.Sprintf(" in %q", e.Input)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the failure kind and the underlying cause.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func parseErr(input, token string, kind, cause error) *ParseError {
	return &ParseError{Input: input, Token: token, Kind: kind, Err: cause}
}
