package worker

import (
	"errors"

	"github.com/sarchlab/m64sim/translate"
)

var f = translate.From

var (
	ErrUnknownMethod = errors.New(f("unknown method"))
	ErrMalformed     = errors.New(f("malformed request"))
	ErrMissingConfig = errors.New(f("missing cache configuration"))
)
