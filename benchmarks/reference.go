package benchmarks

import (
	"io"
	"log/slog"

	"github.com/sarchlab/m64sim/asm"
	"github.com/sarchlab/m64sim/emu"
	"github.com/sarchlab/m64sim/timing/core"
)

// referenceResult runs the benchmark on the functional emulator and returns
// the final value of ResultRegister. The pipeline must agree with it.
func referenceResult(b Benchmark, config *core.Config, maxInstructions int, logger *slog.Logger) (int64, error) {
	if config == nil {
		config = core.DefaultConfig()
	}

	memory := emu.NewMemoryWithSize(config.Timing.DataMemorySize)
	code := emu.NewCodeMemory(config.Timing.CodeMemorySize)

	err := asm.New(code, memory, emu.NewSymbolTable(), asm.WithLogger(logger)).Parse(b.Source)
	if asm.Diagnostics(err).HasErrors() {
		return 0, err
	}

	e := emu.NewEmulator(code, memory,
		emu.WithStdout(io.Discard),
		emu.WithSyncExceptions(config.Timing.SyncExceptions),
		emu.WithMaxInstructions(uint64(maxInstructions)),
	)

	if res := e.Run(); res.Err != nil {
		return 0, res.Err
	}

	return int64(e.RegFile().ReadGPR(ResultRegister)), nil
}
