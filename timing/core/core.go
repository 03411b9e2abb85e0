// Package core provides the MIPS64 machine: the pipeline together with its
// memories, symbol table, assembler, cache-traffic model and output buffer.
// A Machine is the engine a session drives.
package core

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/sarchlab/m64sim/asm"
	"github.com/sarchlab/m64sim/emu"
	"github.com/sarchlab/m64sim/engine"
	"github.com/sarchlab/m64sim/timing/cache"
	"github.com/sarchlab/m64sim/timing/latency"
	"github.com/sarchlab/m64sim/timing/pipeline"
)

var (
	_ engine.Engine = (*Machine)(nil)
	_ engine.Memory = (*Machine)(nil)
	_ engine.Parser = (*Machine)(nil)
)

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger of the machine and its assembler.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// Machine is a cycle-accurate MIPS64 machine. It implements engine.Engine,
// engine.Memory and engine.Parser.
type Machine struct {
	pipe   *pipeline.Pipeline
	config *Config

	regFile *emu.RegFile
	memory  *emu.Memory
	code    *emu.CodeMemory
	symbols *emu.SymbolTable

	assembler *asm.Assembler
	traffic   *cache.Traffic
	stdout    *bytes.Buffer

	logger *slog.Logger
}

// NewMachine creates a machine with the given configuration. A nil config
// selects the defaults.
func NewMachine(config *Config, opts ...Option) (*Machine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid machine configuration: %w", err)
	}
	config = config.Clone()

	traffic, err := cache.NewTraffic(config.Cache)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		config:  config,
		regFile: &emu.RegFile{},
		memory:  emu.NewMemoryWithSize(config.Timing.DataMemorySize),
		code:    emu.NewCodeMemory(config.Timing.CodeMemorySize),
		symbols: emu.NewSymbolTable(),
		traffic: traffic,
		stdout:  &bytes.Buffer{},
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.assembler = asm.New(m.code, m.memory, m.symbols, asm.WithLogger(m.logger))
	m.pipe = pipeline.NewPipeline(m.code, m.regFile, m.memory,
		pipeline.WithLatencyTable(latency.NewTableWithConfig(config.Timing)),
		pipeline.WithTraffic(traffic),
		pipeline.WithStdout(m.stdout),
	)

	return m, nil
}

// Pipe returns the underlying 5-stage pipeline.
func (m *Machine) Pipe() *pipeline.Pipeline {
	return m.pipe
}

// Config returns a copy of the machine configuration.
func (m *Machine) Config() *Config {
	return m.config.Clone()
}

// Symbols returns the symbol table.
func (m *Machine) Symbols() *emu.SymbolTable {
	return m.symbols
}

// Traffic returns the cache-traffic model.
func (m *Machine) Traffic() *cache.Traffic {
	return m.traffic
}

// Stdout returns the buffer capturing the program output.
func (m *Machine) Stdout() *bytes.Buffer {
	return m.stdout
}

// RegFile returns the register file.
func (m *Machine) RegFile() *emu.RegFile {
	return m.regFile
}

// DataMemory returns the data memory.
func (m *Machine) DataMemory() *emu.Memory {
	return m.memory
}

// ConfigureCache replaces the L1 geometry of the traffic model.
func (m *Machine) ConfigureCache(config cache.HierarchyConfig) error {
	if err := m.traffic.Configure(config); err != nil {
		return err
	}
	m.config.Cache = config
	m.logger.Debug("cache reconfigured",
		"l1i_size", config.L1I.Size, "l1d_size", config.L1D.Size)
	return nil
}

// WriteTrace writes the Dinero trace of the memory references so far.
func (m *Machine) WriteTrace(w io.Writer) error {
	return m.traffic.WriteTrace(w)
}

// Status returns the execution status.
func (m *Machine) Status() engine.Status {
	return m.pipe.Status()
}

// SetStatus forces the execution status.
func (m *Machine) SetStatus(s engine.Status) {
	m.pipe.SetStatus(s)
}

// Reset clears the registers, the pipeline, the counters and both memories.
func (m *Machine) Reset() {
	m.pipe.Reset()
	m.memory.Reset()
	m.code.Reset()
}

// Step executes one pipeline cycle.
func (m *Machine) Step() engine.StepResult {
	return m.pipe.Tick()
}

// Run executes the machine until it halts, breaks or fails.
func (m *Machine) Run() engine.StepResult {
	return m.pipe.Run()
}

// RunCycles executes at most n cycles.
func (m *Machine) RunCycles(n uint64) engine.StepResult {
	return m.pipe.RunCycles(n)
}

// Pipeline returns the occupants of the core stages. Empty stages are
// absent.
func (m *Machine) Pipeline() map[engine.Stage]engine.Instruction {
	out := make(map[engine.Stage]engine.Instruction, len(engine.Stages))
	for _, s := range engine.Stages {
		if in := m.pipe.Stage(s); in != nil {
			out[s] = in
		}
	}
	return out
}

// FunctionalUnit returns the occupant of an FP unit slot, or nil.
func (m *Machine) FunctionalUnit(kind engine.UnitKind, slot int) engine.Instruction {
	in := m.pipe.Unit(kind, slot)
	if in == nil {
		return nil
	}
	return in
}

// GeneralRegisters returns R0 to R31.
func (m *Machine) GeneralRegisters() ([]engine.Register, error) {
	regs := make([]engine.Register, len(m.regFile.GPR))
	for i, v := range m.regFile.GPR {
		regs[i] = engine.Register{
			Name:  emu.GPRName(i),
			Alias: emu.GPRAlias(i),
			Bits:  v,
		}
	}
	return regs, nil
}

// FloatingPointRegisters returns F0 to F31.
func (m *Machine) FloatingPointRegisters() ([]engine.Register, error) {
	regs := make([]engine.Register, len(m.regFile.FPR))
	for i, v := range m.regFile.FPR {
		regs[i] = engine.Register{
			Name:  emu.FPRName(i),
			Bits:  v,
			Float: true,
		}
	}
	return regs, nil
}

// SpecialRegisters returns LO, HI and FCSR.
func (m *Machine) SpecialRegisters() (engine.SpecialRegisters, error) {
	return engine.SpecialRegisters{
		LO:   m.regFile.LO,
		HI:   m.regFile.HI,
		FCSR: m.regFile.FCSR,
	}, nil
}

// Statistics returns the pipeline and cache counters.
func (m *Machine) Statistics() engine.Statistics {
	s := m.pipe.Stats()
	return engine.Statistics{
		Cycles:        s.Cycles,
		Instructions:  s.Instructions,
		RAWStalls:     s.RAWStalls,
		WAWStalls:     s.WAWStalls,
		DividerStalls: s.DividerStalls,
		MemoryStalls:  s.MemoryStalls,
		Cache:         m.traffic.Stats(),
	}
}

// InstructionCount returns the number of instructions in code memory.
func (m *Machine) InstructionCount() int {
	return m.code.Len()
}

// InstructionAt returns a static view of the instruction at a byte offset,
// or nil.
func (m *Machine) InstructionAt(offset uint64) engine.Instruction {
	inst := m.code.At(offset)
	if inst == nil {
		return nil
	}
	return pipeline.NewInstance(inst, 0)
}

// Dump renders the data memory as JSON.
func (m *Machine) Dump() (string, error) {
	return m.memory.Dump()
}

// Parse assembles source into code and data memory.
func (m *Machine) Parse(source string) error {
	err := m.assembler.Parse(source)
	m.logger.Debug("program assembled",
		"instructions", m.code.Len(), "diagnostics", len(asm.Diagnostics(err)))
	return err
}
