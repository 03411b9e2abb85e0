package asm

import (
	"fmt"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// isExpr reports whether s is a $(...) compile-time expression.
func isExpr(s string) bool {
	return strings.HasPrefix(s, "$(") && strings.HasSuffix(s, ")")
}

// parenEval evaluates a $(...) expression body with starlark. Every label
// defined so far is visible as an integer.
func (a *Assembler) parenEval(expr string) (starlark.Value, error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}

	pred := starlark.StringDict{}
	for name, addr := range a.labels {
		pred[name] = starlark.MakeUint64(addr)
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExpression, err)
	}

	rc, ok := dict["rc"]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExpression, expr)
	}

	return rc, nil
}

// intValue parses an integer operand: a number in Go syntax (decimal, 0x,
// 0o, 0b, optional sign), a label or a $(...) expression.
func (a *Assembler) intValue(s string) (int64, error) {
	if isExpr(s) {
		v, err := a.parenEval(s[2 : len(s)-1])
		if err != nil {
			return 0, err
		}
		i, ok := v.(starlark.Int)
		if !ok {
			return 0, fmt.Errorf("%w: %s is %s, not int", ErrExpression, s, v.Type())
		}
		if n, ok := i.Int64(); ok {
			return n, nil
		}
		if n, ok := i.Uint64(); ok {
			return int64(n), nil
		}
		return 0, fmt.Errorf("%w: %s", ErrValueRange, s)
	}

	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return n, nil
	}
	if n, err := strconv.ParseUint(s, 0, 64); err == nil {
		return int64(n), nil
	}

	if addr, ok := a.labels[s]; ok {
		return int64(addr), nil
	}

	if validLabel(s) {
		return 0, fmt.Errorf("%w: %s", ErrLabelMissing, s)
	}

	return 0, fmt.Errorf("%w: %q", ErrValueInvalid, s)
}

// floatValue parses a .double operand.
func (a *Assembler) floatValue(s string) (float64, error) {
	if isExpr(s) {
		v, err := a.parenEval(s[2 : len(s)-1])
		if err != nil {
			return 0, err
		}
		switch x := v.(type) {
		case starlark.Float:
			return float64(x), nil
		case starlark.Int:
			return float64(x.Float()), nil
		}
		return 0, fmt.Errorf("%w: %s is %s, not a number", ErrExpression, s, v.Type())
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrValueInvalid, s)
	}

	return v, nil
}

// checkRange verifies lo <= v <= hi.
func checkRange(v, lo, hi int64) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrValueRange, v, lo, hi)
	}
	return nil
}
