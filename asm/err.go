package asm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sarchlab/m64sim/translate"
)

var f = translate.From

var (
	ErrUnknownInstruction = errors.New(f("unknown instruction"))
	ErrUnknownDirective   = errors.New(f("unknown directive"))
	ErrOperandCount       = errors.New(f("wrong number of operands"))
	ErrRegisterInvalid    = errors.New(f("invalid register"))
	ErrValueInvalid       = errors.New(f("invalid value"))
	ErrValueRange         = errors.New(f("value out of range"))
	ErrLabelInvalid       = errors.New(f("invalid label"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrLabelMissing       = errors.New(f("undefined label"))
	ErrSectionMismatch    = errors.New(f("statement not allowed in this section"))
	ErrDataOverflow       = errors.New(f("data memory overflow"))
	ErrStringInvalid      = errors.New(f("invalid string literal"))
	ErrExpression         = errors.New(f("invalid expression"))
	ErrHaltMissing        = errors.New(f("program does not end with HALT or SYSCALL 0"))
)

// Error is one positioned assembler diagnostic.
type Error struct {
	Row       int
	Col       int
	Err       error
	IsWarning bool
}

func (e *Error) Error() string {
	kind := f("error")
	if e.IsWarning {
		kind = f("warning")
	}
	return fmt.Sprintf("%s %d:%d: %v", kind, e.Row, e.Col, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Line returns the 1-based source line.
func (e *Error) Line() int { return e.Row }

// Column returns the 1-based source column.
func (e *Error) Column() int { return e.Col }

// Warning reports whether the diagnostic does not prevent loading.
func (e *Error) Warning() bool { return e.IsWarning }

// ErrorList collects every diagnostic of one assembly run in source order.
type ErrorList []*Error

func (l ErrorList) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// Unwrap exposes the diagnostics to errors.Is, errors.As and callers that
// flatten aggregated errors.
func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

// HasErrors reports whether any diagnostic is not a warning.
func (l ErrorList) HasErrors() bool {
	for _, e := range l {
		if !e.IsWarning {
			return true
		}
	}
	return false
}
