package session

import (
	"github.com/sarchlab/m64sim/engine"
	"github.com/sarchlab/m64sim/timing/core"
)

// FromMachine creates a session over the reference MIPS64 machine, wiring
// its symbol table, cache-traffic model and output buffer. Syntax checks
// run on scratch machines with the same configuration.
func FromMachine(m *core.Machine, opts ...Option) *Session {
	base := []Option{
		WithSymbolTable(m.Symbols()),
		WithTrafficModel(m.Traffic()),
		WithStdout(m.Stdout()),
		WithCacheConfigurer(m),
		WithSyntaxChecker(func() engine.Parser {
			scratch, err := core.NewMachine(m.Config())
			if err != nil {
				return nil
			}
			return scratch
		}),
	}

	return New(m, m, m, append(base, opts...)...)
}
