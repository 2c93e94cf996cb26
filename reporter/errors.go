// Package reporter implements the parse-event sink contract: the
// failure/EOF callback the parser reports through, plus a typed,
// position-carrying error hierarchy satisfying the standard error
// interfaces. Grounded on protocompile's reporter.ErrorWithPos /
// errorWithSourcePos wrapper idiom and on go/scanner's Error/ErrorHandler/
// ErrorList shape (golang-china-golangdoc.translations/src/go/scanner).
package reporter

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies the kind of failure the parser encountered.
type Code int

const (
	// InvalidSyntax: a well-formed token appeared somewhere the grammar
	// doesn't accept it (e.g. EOF mid-expression).
	InvalidSyntax Code = iota
	// InvalidToken: the lexeme class was right but its content wasn't
	// (e.g. a missing ')', a keyword where an identifier was required).
	InvalidToken
	// InvalidLeftValue: '=' whose left-hand side isn't assignable.
	InvalidLeftValue
	// NotEnoughMemory: the AST arena's allocator returned an error.
	NotEnoughMemory
)

func (c Code) String() string {
	switch c {
	case InvalidSyntax:
		return "InvalidSyntax"
	case InvalidToken:
		return "InvalidToken"
	case InvalidLeftValue:
		return "InvalidLeftValue"
	case NotEnoughMemory:
		return "NotEnoughMemory"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Sentinel errors, one per Code, so callers can match with errors.Is
// without caring about the wrapped message or position — mirrors the
// teacher's ErrNoSyntax/parseError sentinel-plus-wrapper idiom in
// parser/errors.go.
var (
	ErrInvalidSyntax    = errors.New("invalid syntax")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidLeftValue = errors.New("invalid left-hand value in assignment")
	ErrNotEnoughMemory  = errors.New("not enough memory")
)

func sentinelFor(c Code) error {
	switch c {
	case InvalidSyntax:
		return ErrInvalidSyntax
	case InvalidToken:
		return ErrInvalidToken
	case InvalidLeftValue:
		return ErrInvalidLeftValue
	case NotEnoughMemory:
		return ErrNotEnoughMemory
	default:
		return ErrInvalidSyntax
	}
}

// Error is a failure reported at a specific source position. It always
// wraps one of the package's sentinel errors, so errors.Is(err,
// reporter.ErrInvalidToken) works regardless of how Error itself is
// wrapped further up the call stack.
type Error struct {
	Code Code
	Line int
	Col  int
	// Err is the underlying cause, if any; defaults to the Code's
	// sentinel when nil.
	Err error
}

func NewError(code Code, line, col int) *Error {
	return &Error{Code: code, Line: line, Col: col}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", e.Line, e.Col, e.Code, e.cause())
}

func (e *Error) cause() error {
	if e.Err != nil {
		return e.Err
	}
	return sentinelFor(e.Code)
}

func (e *Error) Unwrap() error {
	return e.cause()
}

// Is matches the sentinel for e's Code, so errors.Is finds it even when
// Err holds a different cause.
func (e *Error) Is(target error) bool {
	return target == sentinelFor(e.Code)
}

// List collects every Error reported during a parse, for embedders that
// want to gather more than the first failure. The core parser still
// aborts on its first error, with no recovery; List is for a Sink that
// accumulates across multiple independent parse calls. Modeled on
// go/scanner.ErrorList.
type List []*Error

func (l *List) Add(e *Error) {
	*l = append(*l, e)
}

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	var b strings.Builder
	for i, e := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Error())
	}
	return b.String()
}
