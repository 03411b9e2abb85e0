package pipeline_test

import (
	"bytes"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m64sim/asm"
	"github.com/sarchlab/m64sim/emu"
	"github.com/sarchlab/m64sim/engine"
	"github.com/sarchlab/m64sim/timing/latency"
	"github.com/sarchlab/m64sim/timing/pipeline"
)

type machine struct {
	regFile *emu.RegFile
	memory  *emu.Memory
	stdout  *bytes.Buffer
	pipe    *pipeline.Pipeline
}

func build(source string, config *latency.TimingConfig) *machine {
	code := emu.NewCodeMemory(0)
	memory := emu.NewMemoryWithSize(1024)
	a := asm.New(code, memory, emu.NewSymbolTable())
	Expect(asm.Diagnostics(a.Parse(source)).HasErrors()).To(BeFalse())

	if config == nil {
		config = latency.DefaultTimingConfig()
	}

	m := &machine{
		regFile: &emu.RegFile{},
		memory:  memory,
		stdout:  &bytes.Buffer{},
	}
	m.pipe = pipeline.NewPipeline(code, m.regFile, memory,
		pipeline.WithLatencyTable(latency.NewTableWithConfig(config)),
		pipeline.WithStdout(m.stdout),
	)
	m.pipe.SetStatus(engine.StatusRunning)

	return m
}

var _ = Describe("Pipeline", func() {
	Describe("Tick", func() {
		It("should refuse to tick before a program is running", func() {
			m := build("halt", nil)
			m.pipe.SetStatus(engine.StatusReady)

			Expect(m.pipe.Tick().Outcome).To(Equal(engine.OutcomeFailed))
			Expect(m.pipe.Stats().Cycles).To(BeZero())
		})

		It("should halt a HALT-only program in WB at cycle 5", func() {
			m := build("halt", nil)

			for i := 0; i < 4; i++ {
				Expect(m.pipe.Tick().Outcome).To(Equal(engine.OutcomeCompleted))
			}
			Expect(m.pipe.Status()).To(Equal(engine.StatusStopping))

			Expect(m.pipe.Tick().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.pipe.Status()).To(Equal(engine.StatusHalted))
			Expect(m.pipe.Stats().Cycles).To(Equal(uint64(5)))
			Expect(m.pipe.Stats().Instructions).To(Equal(uint64(1)))
			Expect(m.pipe.Stage(engine.StageWB).Name()).To(Equal("HALT"))

			Expect(m.pipe.Tick().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.pipe.Stats().Cycles).To(Equal(uint64(5)))
		})

		It("should move instructions through the stages", func() {
			m := build("daddi r1, r0, 1\ndaddi r2, r0, 2\nhalt", nil)

			m.pipe.Tick()
			Expect(m.pipe.Stage(engine.StageIF).Name()).To(Equal("DADDI"))
			Expect(m.pipe.Stage(engine.StageIF).Serial()).To(Equal(1))
			Expect(m.pipe.Stage(engine.StageID)).To(BeNil())

			m.pipe.Tick()
			Expect(m.pipe.Stage(engine.StageID).Serial()).To(Equal(1))
			Expect(m.pipe.Stage(engine.StageIF).Serial()).To(Equal(2))

			m.pipe.Tick()
			Expect(m.pipe.Stage(engine.StageEX).Code()).To(Equal("daddi r1, r0, 1"))
			Expect(m.pipe.Stage(engine.StageID).Address()).To(Equal(uint64(4)))
			Expect(m.pipe.Stage(engine.StageIF).Name()).To(Equal("HALT"))
		})

		It("should report a breakpoint when BREAK leaves ID", func() {
			m := build("break\nhalt", nil)

			Expect(m.pipe.Tick().Outcome).To(Equal(engine.OutcomeCompleted))
			Expect(m.pipe.Tick().Outcome).To(Equal(engine.OutcomeCompleted))
			Expect(m.pipe.Tick().Outcome).To(Equal(engine.OutcomeBroke))

			Expect(m.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.pipe.Stats().Instructions).To(Equal(uint64(2)))
		})

		It("should halt after draining a program without HALT", func() {
			m := build("daddi r1, r0, 3", nil)

			Expect(m.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.regFile.GPR[1]).To(Equal(uint64(3)))
		})
	})

	Describe("Data hazards", func() {
		It("should forward ALU results without stalling", func() {
			m := build("daddi r1, r0, 5\ndadd r2, r1, r1\nhalt", nil)

			Expect(m.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.regFile.GPR[2]).To(Equal(uint64(10)))
			Expect(m.pipe.Stats().RAWStalls).To(BeZero())
			Expect(m.pipe.Stats().Cycles).To(Equal(uint64(7)))
		})

		It("should stall once on a load-use hazard", func() {
			m := build(".data\nv: .word 7\n.code\nld r1, v(r0)\ndadd r2, r1, r1\nhalt", nil)

			Expect(m.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.regFile.GPR[2]).To(Equal(uint64(14)))
			Expect(m.pipe.Stats().RAWStalls).To(Equal(uint64(1)))
			Expect(m.pipe.Stats().Cycles).To(Equal(uint64(8)))
		})

		It("should wait for WB without forwarding", func() {
			config := latency.DefaultTimingConfig()
			config.Forwarding = false
			m := build("daddi r1, r0, 5\ndadd r2, r1, r1\nhalt", config)

			Expect(m.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.regFile.GPR[2]).To(Equal(uint64(10)))
			Expect(m.pipe.Stats().RAWStalls).To(Equal(uint64(2)))
			Expect(m.pipe.Stats().Cycles).To(Equal(uint64(9)))
		})

		It("should charge a load-use hazard more without forwarding", func() {
			source := ".data\nv: .word 7\n.code\nld r1, v(r0)\ndadd r2, r1, r1\nhalt"
			config := latency.DefaultTimingConfig()
			config.Forwarding = false
			m := build(source, config)

			Expect(m.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.regFile.GPR[2]).To(Equal(uint64(14)))
			Expect(m.pipe.Stats().RAWStalls).To(Equal(uint64(2)))
			Expect(m.pipe.Stats().Cycles).To(Equal(uint64(9)))

			forwarded := build(source, nil)
			Expect(forwarded.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.pipe.Stats().Cycles).To(BeNumerically(">", forwarded.pipe.Stats().Cycles))
		})

		It("should stall on a write-after-write hazard", func() {
			m := build("div.d f2, f0, f0\nadd.d f2, f0, f0\nhalt", nil)

			Expect(m.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.pipe.Stats().WAWStalls).To(BeNumerically(">", 0))
			Expect(m.pipe.Stats().RAWStalls).To(BeZero())
		})
	})

	Describe("FP units", func() {
		It("should send ADD.D through the adder", func() {
			m := build("add.d f2, f0, f0\nhalt", nil)

			m.pipe.RunCycles(3)
			Expect(m.pipe.Unit(engine.UnitAdder, 0).Name()).To(Equal("ADD.D"))
			Expect(m.pipe.Stage(engine.StageEX)).To(BeNil())

			m.pipe.Tick()
			Expect(m.pipe.Unit(engine.UnitAdder, 0)).To(BeNil())
			Expect(m.pipe.Unit(engine.UnitAdder, 1).Name()).To(Equal("ADD.D"))

			Expect(m.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.pipe.Stats().Cycles).To(Equal(uint64(9)))
		})

		It("should compute FP results", func() {
			source := ".data\na: .double 1.5\nb: .double 2.0\n.code\n" +
				"l.d f0, a(r0)\nl.d f1, b(r0)\nmul.d f2, f0, f1\ns.d f2, a(r0)\nhalt"
			m := build(source, nil)

			Expect(m.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(math.Float64frombits(m.regFile.FPR[2])).To(Equal(3.0))

			v, err := m.memory.Read(0, 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(math.Float64frombits(v)).To(Equal(3.0))
			Expect(m.pipe.Stats().RAWStalls).To(BeNumerically(">", 0))
		})

		It("should stall DIV.D while the divider is busy", func() {
			config := latency.DefaultTimingConfig()
			config.DividerLatency = 3
			m := build("div.d f2, f0, f0\ndiv.d f4, f0, f0\nhalt", config)

			Expect(m.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.pipe.Stats().DividerStalls).To(Equal(uint64(2)))
		})

		It("should let one instruction at a time into MEM", func() {
			m := build("add.d f2, f0, f0\ndaddi r1, r0, 1\ndaddi r2, r0, 2\ndaddi r3, r0, 3\nhalt", nil)

			Expect(m.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.pipe.Stats().MemoryStalls).To(Equal(uint64(1)))
			Expect(m.regFile.GPR[3]).To(Equal(uint64(3)))
		})
	})

	Describe("Control flow", func() {
		It("should run a loop", func() {
			m := build("daddi r1, r0, 3\nloop: daddi r1, r1, -1\nbnez r1, loop\nhalt", nil)

			Expect(m.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.regFile.GPR[1]).To(BeZero())
			Expect(m.pipe.Stats().Instructions).To(Equal(uint64(8)))
		})

		It("should link on JAL and return on JR", func() {
			source := "jal fn\ndaddi r2, r0, 1\nhalt\nfn: daddi r3, r0, 7\njr r31"
			m := build(source, nil)

			Expect(m.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.regFile.GPR[31]).To(Equal(uint64(4)))
			Expect(m.regFile.GPR[2]).To(Equal(uint64(1)))
			Expect(m.regFile.GPR[3]).To(Equal(uint64(7)))
		})
	})

	Describe("Exceptions", func() {
		It("should fail on an unaligned access", func() {
			m := build(".data\nv: .word 1\n.code\nld r1, 3(r0)\nhalt", nil)

			result := m.pipe.Run()
			Expect(result.Outcome).To(Equal(engine.OutcomeFailed))
			Expect(result.Err).To(MatchError(emu.ErrUnalignedAccess))
			Expect(result.Err.Error()).To(Equal("LD at line 4: unaligned memory access: 8 bytes at 0x3"))
			Expect(m.pipe.Status()).To(Equal(engine.StatusHalted))
		})

		It("should mask division by zero by default", func() {
			m := build("ddiv r1, r0\nhalt", nil)
			Expect(m.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
		})

		It("should fail on division by zero with synchronous exceptions", func() {
			config := latency.DefaultTimingConfig()
			config.SyncExceptions = true
			m := build("ddiv r1, r0\nhalt", config)

			result := m.pipe.Run()
			Expect(result.Outcome).To(Equal(engine.OutcomeFailed))
			Expect(result.Err).To(MatchError(emu.ErrDivisionByZero))
		})
	})

	Describe("System calls", func() {
		It("should print through SYSCALL 5 and exit on SYSCALL 0", func() {
			source := ".data\nmsg: .asciiz \"%d items\"\nparams: .word msg\n.word 42\n.code\n" +
				"daddi r14, r0, params\nsyscall 5\nsyscall 0\ndaddi r5, r0, 1"
			m := build(source, nil)

			Expect(m.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.stdout.String()).To(Equal("42 items"))
			Expect(m.regFile.GPR[1]).To(Equal(uint64(8)))
			Expect(m.regFile.GPR[5]).To(BeZero())
		})
	})

	Describe("Reset", func() {
		It("should clear state but keep the program", func() {
			m := build("daddi r1, r0, 5\nhalt", nil)
			m.pipe.Run()

			m.pipe.Reset()
			Expect(m.pipe.Status()).To(Equal(engine.StatusReady))
			Expect(m.pipe.Stats()).To(Equal(pipeline.Statistics{}))
			Expect(m.pipe.PC()).To(BeZero())
			Expect(m.regFile.GPR[1]).To(BeZero())

			m.pipe.SetStatus(engine.StatusRunning)
			Expect(m.pipe.Run().Outcome).To(Equal(engine.OutcomeHalted))
			Expect(m.regFile.GPR[1]).To(Equal(uint64(5)))
		})
	})
})
