package session

import (
	"errors"

	"github.com/sarchlab/m64sim/translate"
)

var f = translate.From

var (
	ErrStepCount        = errors.New(f("The number of steps must be positive"))
	ErrParsing          = errors.New(f("Parsing errors."))
	ErrCacheUnsupported = errors.New(f("The engine has no configurable cache"))
	ErrSyntaxUnchecked  = errors.New(f("Syntax checking is not available"))
)

func errNotRunning(state any) error {
	return errors.New(f("Cannot run in state %v", state))
}
