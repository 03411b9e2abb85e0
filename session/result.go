package session

import (
	"errors"
	"fmt"

	"github.com/sarchlab/m64sim/engine"
	"github.com/sarchlab/m64sim/snapshot"
)

// ParseError is one parser diagnostic.
type ParseError struct {
	Row         int    `json:"row"`
	Column      int    `json:"column"`
	Description string `json:"description"`
	IsWarning   bool   `json:"isWarning"`
}

// Result is the outcome of a session operation together with a full
// snapshot of the machine.
type Result struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage"`
	Stdout       string `json:"stdout"`

	Status     snapshot.Status   `json:"status"`
	Pipeline   snapshot.Pipeline `json:"pipeline"`
	Memory     string            `json:"memory"`
	Registers  string            `json:"registers"`
	Statistics string            `json:"statistics"`

	ParsedInstructions []snapshot.Instruction `json:"parsedInstructions"`
	ParsingErrors      []ParseError           `json:"parsingErrors"`
	EncounteredBreak   bool                   `json:"encounteredBreak"`

	// Counters is the decoded form of Statistics.
	Counters snapshot.StatisticsDump `json:"-"`
	// RegisterBanks is the decoded form of Registers.
	RegisterBanks snapshot.RegisterDump `json:"-"`
}

func newResult(s snapshot.Snapshot, err error) Result {
	r := Result{
		Success:            err == nil,
		Stdout:             s.Stdout,
		Status:             s.Status,
		Pipeline:           s.Pipeline,
		Memory:             s.Memory,
		Registers:          s.Registers,
		Statistics:         s.Statistics,
		ParsedInstructions: s.ParsedInstructions,
		ParsingErrors:      []ParseError{},
		Counters:           s.Counters,
		RegisterBanks:      s.RegisterBanks,
	}
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	return r
}

// ParseErrorsFrom flattens an aggregated parse error into one record per
// diagnostic, in order. Elements that are not engine.Diagnostic values
// still produce a record carrying their text.
func ParseErrorsFrom(err error) []ParseError {
	if err == nil {
		return nil
	}

	errs := []error{err}
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		errs = multi.Unwrap()
	}

	out := make([]ParseError, 0, len(errs))
	for _, e := range errs {
		out = append(out, parseErrorFrom(e))
	}
	return out
}

func parseErrorFrom(err error) (pe ParseError) {
	defer func() {
		if r := recover(); r != nil {
			pe = ParseError{Description: fmt.Sprint(r)}
		}
	}()

	if err == nil {
		return ParseError{}
	}

	var d engine.Diagnostic
	if !errors.As(err, &d) {
		return ParseError{Description: err.Error()}
	}

	pe = ParseError{
		Row:         d.Line(),
		Column:      d.Column(),
		Description: d.Error(),
		IsWarning:   d.Warning(),
	}
	if inner, ok := d.(interface{ Unwrap() error }); ok && inner.Unwrap() != nil {
		pe.Description = inner.Unwrap().Error()
	}

	return pe
}

// hasFatal reports whether any diagnostic of err is not a warning.
func hasFatal(errs []ParseError) bool {
	for _, e := range errs {
		if !e.IsWarning {
			return true
		}
	}
	return false
}

// attachParseErrors appends the diagnostics of err to r. A nil err leaves
// r unchanged.
func attachParseErrors(r Result, err error) Result {
	if err == nil {
		return r
	}
	r.ParsingErrors = append(r.ParsingErrors, ParseErrorsFrom(err)...)
	return r
}
