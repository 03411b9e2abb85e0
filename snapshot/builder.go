package snapshot

import (
	"encoding/json"
	"log/slog"

	"github.com/sarchlab/m64sim/engine"
)

// Placeholders used when a facet cannot be read.
const (
	EmptyMemory     = `{"cells":[]}`
	EmptyRegisters  = `{"gpr":[],"fpu":[],"special":[]}`
	EmptyStatistics = `{}`
)

// Snapshot is the visible machine state at one instant. It holds no
// reference into the engine.
type Snapshot struct {
	Status   Status
	Pipeline Pipeline

	// Memory, Registers and Statistics are JSON documents.
	Memory     string
	Registers  string
	Statistics string

	// RegisterBanks and Counters are the decoded forms of Registers and
	// Statistics.
	RegisterBanks RegisterDump
	Counters      StatisticsDump

	ParsedInstructions []Instruction
	Stdout             string
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger that reports degraded facets.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithStdout sets the sink the program output is read from.
func WithStdout(sink engine.OutputSink) Option {
	return func(b *Builder) {
		b.stdout = sink
	}
}

// Builder reads every facet of an engine into a Snapshot. It must only be
// used between engine steps.
type Builder struct {
	cpu    engine.Engine
	mem    engine.Memory
	stdout engine.OutputSink
	logger *slog.Logger
}

// NewBuilder creates a snapshot builder over an engine and its memory.
func NewBuilder(cpu engine.Engine, mem engine.Memory, opts ...Option) *Builder {
	b := &Builder{
		cpu:    cpu,
		mem:    mem,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Build reads the engine. A facet that fails or panics is logged and
// replaced by an empty value; Build itself always returns a Snapshot.
func (b *Builder) Build() Snapshot {
	s := Snapshot{
		Status:     StatusStopped,
		Memory:     EmptyMemory,
		Registers:  EmptyRegisters,
		Statistics: EmptyStatistics,
		RegisterBanks: RegisterDump{
			GPR: []RegisterEntry{},
			FPU: []RegisterEntry{},
		},
		ParsedInstructions: []Instruction{},
	}

	b.read("status", func() error {
		s.Status = Classify(b.cpu.Status())
		return nil
	})

	b.buildPipeline(&s)
	special := b.buildRegisters(&s)

	b.read("memory", func() error {
		dump, err := b.mem.Dump()
		if err != nil {
			return err
		}
		s.Memory = dump
		return nil
	})

	instructionCount := 0
	b.read("parsed instructions", func() error {
		instructionCount = b.mem.InstructionCount()
		parsed := make([]Instruction, 0, instructionCount)
		for i := 0; i < instructionCount; i++ {
			if inst := Copy(b.mem.InstructionAt(uint64(i * InstructionWidth))); inst != nil {
				parsed = append(parsed, *inst)
			}
		}
		s.ParsedInstructions = parsed
		return nil
	})

	b.read("statistics", func() error {
		counters := newStatisticsDump(b.cpu.Statistics(), instructionCount, special.FCSR)
		data, err := json.Marshal(counters)
		if err != nil {
			return err
		}

		s.Counters = counters
		s.Statistics = string(data)
		return nil
	})

	if b.stdout != nil {
		b.read("stdout", func() error {
			s.Stdout = b.stdout.String()
			return nil
		})
	}

	return s
}

func (b *Builder) buildPipeline(s *Snapshot) {
	b.read("pipeline", func() error {
		var p Pipeline
		stages := b.cpu.Pipeline()
		for _, st := range engine.Stages {
			p.SetStage(st, Copy(stages[st]))
		}
		s.Pipeline = p
		return nil
	})

	for _, kind := range Units {
		b.read(kind.String(), func() error {
			slots := make([]*Instruction, kind.Slots())
			for i := range slots {
				slots[i] = Copy(b.cpu.FunctionalUnit(kind, i))
			}
			for i, inst := range slots {
				s.Pipeline.SetSlot(kind, i, inst)
			}
			return nil
		})
	}
}

func (b *Builder) buildRegisters(s *Snapshot) engine.SpecialRegisters {
	b.read("general registers", func() error {
		regs, err := b.cpu.GeneralRegisters()
		if err != nil {
			return err
		}
		s.RegisterBanks.GPR = registerEntries(regs)
		return nil
	})

	b.read("floating point registers", func() error {
		regs, err := b.cpu.FloatingPointRegisters()
		if err != nil {
			return err
		}
		s.RegisterBanks.FPU = registerEntries(regs)
		return nil
	})

	var special engine.SpecialRegisters
	b.read("special registers", func() error {
		var err error
		special, err = b.cpu.SpecialRegisters()
		if err != nil {
			special = engine.SpecialRegisters{}
		}
		return err
	})
	s.RegisterBanks.Special = specialEntries(special)

	data, err := json.Marshal(s.RegisterBanks)
	if err != nil {
		b.logger.Warn("snapshot facet unavailable", "facet", "registers", "error", err)
		return special
	}
	s.Registers = string(data)

	return special
}

// read runs one facet reader, logging and absorbing errors and panics.
func (b *Builder) read(facet string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("snapshot facet unavailable", "facet", facet, "panic", r)
		}
	}()

	if err := fn(); err != nil {
		b.logger.Warn("snapshot facet unavailable", "facet", facet, "error", err)
	}
}
