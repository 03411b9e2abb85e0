package session

import (
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m64sim/snapshot"
	"github.com/sarchlab/m64sim/timing/cache"
	"github.com/sarchlab/m64sim/timing/core"
)

var _ = Describe("Session over the reference machine", func() {
	var (
		m *core.Machine
		s *Session
	)

	BeforeEach(func() {
		var err error
		m, err = core.NewMachine(nil)
		Expect(err).NotTo(HaveOccurred())

		s = FromMachine(m, WithLogger(slog.New(slog.DiscardHandler)))
	})

	It("should start ready", func() {
		r := s.Snapshot()

		Expect(r.Status).To(Equal(snapshot.StatusReady))
		Expect(r.ParsedInstructions).To(BeEmpty())
		Expect(r.Pipeline.IF).To(BeNil())
	})

	It("should run a program to its halt", func() {
		r := s.LoadProgram("daddi r1, r0, 7\nhalt")
		Expect(r.Success).To(BeTrue())
		Expect(r.Status).To(Equal(snapshot.StatusRunning))
		Expect(r.ParsedInstructions).To(HaveLen(2))
		Expect(r.ParsedInstructions[0].Name).To(Equal("DADDI"))
		Expect(r.Counters.CodeSizeBytes).To(Equal(8))

		r = s.Step(1)
		Expect(r.Pipeline.IF).NotTo(BeNil())
		Expect(r.Pipeline.IF.Name).To(Equal("DADDI"))

		r = s.Step(100)
		Expect(r.Success).To(BeTrue())
		Expect(r.Status).To(Equal(snapshot.StatusStopped))
		Expect(r.Counters.Instructions).To(Equal(uint64(2)))
		Expect(r.RegisterBanks.GPR[1].Value).To(Equal("7"))

		r = s.Step(1)
		Expect(r.Success).To(BeFalse())
		Expect(r.ErrorMessage).To(Equal("Cannot run in state HALTED"))
	})

	It("should stop on a break and resume", func() {
		s.LoadProgram("break\nhalt")

		r := s.Step(5)
		Expect(r.Success).To(BeTrue())
		Expect(r.EncounteredBreak).To(BeTrue())
		Expect(r.Counters.Cycles).To(Equal(uint64(3)))

		r = s.Step(10)
		Expect(r.Success).To(BeTrue())
		Expect(r.EncounteredBreak).To(BeFalse())
		Expect(r.Status).To(Equal(snapshot.StatusStopped))
	})

	It("should report an engine failure", func() {
		s.LoadProgram(".data\nv: .word 1\n.code\nld r1, 3(r0)\nhalt")

		r := s.Step(20)

		Expect(r.Success).To(BeFalse())
		Expect(r.ErrorMessage).To(HavePrefix("LD at line 4: unaligned memory access"))
		Expect(r.Status).To(Equal(snapshot.StatusStopped))
	})

	It("should capture the program output", func() {
		s.LoadProgram(".data\nmsg: .asciiz \"hello\"\np: .word msg\n.code\n" +
			"daddi r14, r0, p\nsyscall 5\nhalt")

		r := s.Step(50)
		Expect(r.Stdout).To(Equal("hello"))

		r = s.Reset()
		Expect(r.Stdout).To(BeEmpty())
		Expect(r.Status).To(Equal(snapshot.StatusReady))
		Expect(r.Counters.Cycles).To(BeZero())
	})

	It("should load the same program twice with the same result", func() {
		source := "daddi r1, r0, 1\ndaddi r2, r1, 2\nhalt"

		first := s.LoadProgram(source)
		s.Step(3)
		second := s.LoadProgram(source)

		Expect(second).To(Equal(first))
	})

	It("should reject a program with errors", func() {
		r := s.LoadProgram("frobnicate r1\nhalt")

		Expect(r.Success).To(BeFalse())
		Expect(r.ErrorMessage).To(Equal("Parsing errors."))
		Expect(r.Status).To(Equal(snapshot.StatusReady))
		Expect(r.ParsingErrors).NotTo(BeEmpty())
		Expect(r.ParsingErrors[0].Row).To(Equal(1))
		Expect(r.ParsingErrors[0].IsWarning).To(BeFalse())
	})

	It("should run a program with a missing halt", func() {
		r := s.LoadProgram("daddi r1, r0, 3")

		Expect(r.Success).To(BeTrue())
		Expect(r.ParsingErrors).To(HaveLen(1))
		Expect(r.ParsingErrors[0].IsWarning).To(BeTrue())

		r = s.Step(20)
		Expect(r.Success).To(BeTrue())
		Expect(r.Status).To(Equal(snapshot.StatusStopped))
		Expect(r.ParsingErrors).To(HaveLen(1))
	})

	It("should check syntax without loading", func() {
		s.LoadProgram("daddi r1, r0, 1\nhalt")

		r := s.CheckSyntax("frobnicate\nhalt")

		Expect(r.Success).To(BeFalse())
		Expect(r.ParsingErrors).NotTo(BeEmpty())
		Expect(r.ParsedInstructions).To(HaveLen(2))
		Expect(r.Status).To(Equal(snapshot.StatusRunning))
	})

	It("should reconfigure the caches", func() {
		config := cache.DefaultHierarchyConfig()
		config.L1D.Associativity = 4

		Expect(s.SetCacheConfig(config).Success).To(BeTrue())
		Expect(m.Config().Cache.L1D.Associativity).To(Equal(4))

		config.L1I.BlockSize = 3
		r := s.SetCacheConfig(config)
		Expect(r.Success).To(BeFalse())
		Expect(r.ErrorMessage).NotTo(BeEmpty())
	})
})
