package session

import (
	"encoding/json"
	"errors"
	"log/slog"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m64sim/asm"
	"github.com/sarchlab/m64sim/engine"
	"github.com/sarchlab/m64sim/snapshot"
	"github.com/sarchlab/m64sim/timing/cache"
)

type fakeConfigurer struct {
	got cache.HierarchyConfig
	err error
}

func (c *fakeConfigurer) ConfigureCache(config cache.HierarchyConfig) error {
	c.got = config
	return c.err
}

var _ = Describe("Session", func() {
	var (
		mockCtrl *gomock.Controller
		cpu      *MockEngine
		mem      *MockMemory
		parser   *MockParser
		traffic  *MockTrafficModel
		symbols  *MockResetter
		stdout   *MockOutputSink

		status engine.Status
		cycles uint64
		count  int

		s *Session
	)

	fatalErrors := asm.ErrorList{
		{Row: 2, Col: 7, Err: asm.ErrUnknownInstruction},
		{Row: 4, Col: 1, Err: asm.ErrHaltMissing, IsWarning: true},
	}
	warnings := asm.ErrorList{
		{Row: 3, Col: 1, Err: asm.ErrHaltMissing, IsWarning: true},
	}

	expectReset := func() {
		cpu.EXPECT().Reset().Do(func() {
			status = engine.StatusReady
			cycles = 0
		})
		traffic.EXPECT().Reset()
		symbols.EXPECT().Reset()
		stdout.EXPECT().Reset()
	}

	expectLoad := func(parseErr error) {
		expectReset()
		parser.EXPECT().Parse("program").Return(parseErr)
	}

	expectRunning := func() {
		traffic.EXPECT().SetDataOffset(uint64(count * 4))
		cpu.EXPECT().SetStatus(engine.StatusRunning).Do(func(st engine.Status) {
			status = st
		})
	}

	completedSteps := func() func() engine.StepResult {
		return func() engine.StepResult {
			cycles++
			return engine.Completed()
		}
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		cpu = NewMockEngine(mockCtrl)
		mem = NewMockMemory(mockCtrl)
		parser = NewMockParser(mockCtrl)
		traffic = NewMockTrafficModel(mockCtrl)
		symbols = NewMockResetter(mockCtrl)
		stdout = NewMockOutputSink(mockCtrl)

		status = engine.StatusReady
		cycles = 0
		count = 3

		cpu.EXPECT().Status().
			DoAndReturn(func() engine.Status { return status }).AnyTimes()
		cpu.EXPECT().Pipeline().Return(nil).AnyTimes()
		cpu.EXPECT().FunctionalUnit(gomock.Any(), gomock.Any()).
			Return(nil).AnyTimes()
		cpu.EXPECT().GeneralRegisters().
			Return([]engine.Register{{Name: "R0", Alias: "zero"}}, nil).AnyTimes()
		cpu.EXPECT().FloatingPointRegisters().
			Return([]engine.Register{{Name: "F0", Float: true}}, nil).AnyTimes()
		cpu.EXPECT().SpecialRegisters().
			Return(engine.SpecialRegisters{}, nil).AnyTimes()
		cpu.EXPECT().Statistics().
			DoAndReturn(func() engine.Statistics {
				return engine.Statistics{Cycles: cycles}
			}).AnyTimes()
		mem.EXPECT().Dump().Return(snapshot.EmptyMemory, nil).AnyTimes()
		mem.EXPECT().InstructionCount().
			DoAndReturn(func() int { return count }).AnyTimes()
		mem.EXPECT().InstructionAt(gomock.Any()).Return(nil).AnyTimes()
		stdout.EXPECT().String().Return("").AnyTimes()

		s = New(cpu, mem, parser,
			WithSymbolTable(symbols),
			WithTrafficModel(traffic),
			WithStdout(stdout),
			WithLogger(slog.New(slog.DiscardHandler)),
		)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("reset", func() {
		It("should wipe every component", func() {
			cycles = 12
			expectReset()

			r := s.Reset()

			Expect(r.Success).To(BeTrue())
			Expect(r.ErrorMessage).To(BeEmpty())
			Expect(r.Status).To(Equal(snapshot.StatusReady))
			Expect(r.Counters.Cycles).To(BeZero())
			Expect(r.ParsingErrors).To(BeEmpty())
			Expect(r.EncounteredBreak).To(BeFalse())
		})

		It("should keep pending parse errors", func() {
			expectLoad(fatalErrors)
			s.LoadProgram("program")

			expectReset()
			r := s.Reset()

			Expect(r.ParsingErrors).To(BeEmpty())
			Expect(s.PendingErrors()).To(HaveLen(2))
		})
	})

	Context("step", func() {
		It("should refuse to run when no program is loaded", func() {
			r := s.Step(1)

			Expect(r.Success).To(BeFalse())
			Expect(r.ErrorMessage).To(Equal("Cannot run in state READY"))
			Expect(r.Status).To(Equal(snapshot.StatusReady))
		})

		It("should refuse to run a halted program", func() {
			status = engine.StatusHalted

			r := s.Step(1)

			Expect(r.Success).To(BeFalse())
			Expect(r.ErrorMessage).To(Equal("Cannot run in state HALTED"))
			Expect(r.Status).To(Equal(snapshot.StatusStopped))
		})

		DescribeTable("should reject a non-positive step count",
			func(n int) {
				status = engine.StatusRunning

				r := s.Step(n)

				Expect(r.Success).To(BeFalse())
				Expect(r.ErrorMessage).
					To(Equal("The number of steps must be positive"))
				Expect(r.Counters.Cycles).To(BeZero())
			},
			Entry("zero", 0),
			Entry("minus one", -1),
			Entry("large negative", -100),
		)

		It("should check the state before the step count", func() {
			r := s.Step(0)

			Expect(r.ErrorMessage).To(Equal("Cannot run in state READY"))
		})

		It("should run every requested step", func() {
			status = engine.StatusRunning
			cpu.EXPECT().Step().DoAndReturn(completedSteps()).Times(4)

			r := s.Step(4)

			Expect(r.Success).To(BeTrue())
			Expect(r.Status).To(Equal(snapshot.StatusRunning))
			Expect(r.Counters.Cycles).To(Equal(uint64(4)))
			Expect(r.EncounteredBreak).To(BeFalse())
		})

		It("should keep running while the pipeline drains", func() {
			status = engine.StatusStopping
			cpu.EXPECT().Step().DoAndReturn(completedSteps())

			r := s.Step(1)

			Expect(r.Success).To(BeTrue())
			Expect(r.Status).To(Equal(snapshot.StatusRunning))
		})

		It("should end the loop successfully on halt", func() {
			status = engine.StatusRunning
			gomock.InOrder(
				cpu.EXPECT().Step().DoAndReturn(completedSteps()),
				cpu.EXPECT().Step().DoAndReturn(func() engine.StepResult {
					cycles++
					status = engine.StatusHalted
					return engine.Halted()
				}),
			)

			r := s.Step(10)

			Expect(r.Success).To(BeTrue())
			Expect(r.Status).To(Equal(snapshot.StatusStopped))
			Expect(r.EncounteredBreak).To(BeFalse())
			Expect(r.Counters.Cycles).To(Equal(uint64(2)))
		})

		It("should stop on a break", func() {
			status = engine.StatusRunning
			gomock.InOrder(
				cpu.EXPECT().Step().DoAndReturn(completedSteps()).Times(2),
				cpu.EXPECT().Step().DoAndReturn(func() engine.StepResult {
					cycles++
					return engine.Broke()
				}),
			)

			r := s.Step(5)

			Expect(r.Success).To(BeTrue())
			Expect(r.EncounteredBreak).To(BeTrue())
			Expect(r.Status).To(Equal(snapshot.StatusRunning))
			Expect(r.Counters.Cycles).To(Equal(uint64(3)))
		})

		It("should report an engine failure", func() {
			status = engine.StatusRunning
			gomock.InOrder(
				cpu.EXPECT().Step().DoAndReturn(completedSteps()),
				cpu.EXPECT().Step().
					Return(engine.Failed(errors.New("unaligned memory access"))),
			)

			r := s.Step(3)

			Expect(r.Success).To(BeFalse())
			Expect(r.ErrorMessage).To(Equal("unaligned memory access"))
			Expect(r.Status).To(Equal(snapshot.StatusRunning))
			Expect(r.EncounteredBreak).To(BeFalse())
		})

		It("should describe a failure without an error", func() {
			status = engine.StatusRunning
			cpu.EXPECT().Step().Return(engine.StepResult{Outcome: engine.OutcomeFailed})

			r := s.Step(1)

			Expect(r.Success).To(BeFalse())
			Expect(r.ErrorMessage).To(ContainSubstring("failed"))
		})

		It("should turn an engine panic into a failure", func() {
			status = engine.StatusRunning
			cpu.EXPECT().Step().DoAndReturn(func() engine.StepResult {
				panic("corrupted latch")
			})

			r := s.Step(2)

			Expect(r.Success).To(BeFalse())
			Expect(r.ErrorMessage).To(ContainSubstring("corrupted latch"))
		})
	})

	Context("load", func() {
		It("should start a cleanly parsed program", func() {
			expectLoad(nil)
			expectRunning()

			r := s.LoadProgram("program")

			Expect(r.Success).To(BeTrue())
			Expect(r.Status).To(Equal(snapshot.StatusRunning))
			Expect(r.ParsingErrors).To(BeEmpty())
			Expect(r.Counters.CodeSizeBytes).To(Equal(12))
			Expect(s.PendingErrors()).To(BeNil())
		})

		It("should reject a program with errors", func() {
			expectLoad(fatalErrors)

			r := s.LoadProgram("program")

			Expect(r.Success).To(BeFalse())
			Expect(r.ErrorMessage).To(Equal("Parsing errors."))
			Expect(r.Status).To(Equal(snapshot.StatusReady))
			Expect(r.ParsingErrors).To(Equal([]ParseError{
				{Row: 2, Column: 7, Description: "unknown instruction"},
				{
					Row:         4,
					Column:      1,
					Description: asm.ErrHaltMissing.Error(),
					IsWarning:   true,
				},
			}))
		})

		It("should surface the errors on later steps", func() {
			expectLoad(fatalErrors)
			s.LoadProgram("program")

			r := s.Step(1)

			Expect(r.ErrorMessage).To(Equal("Cannot run in state READY"))
			Expect(r.ParsingErrors).To(HaveLen(2))
		})

		It("should run a program with warnings only", func() {
			expectLoad(warnings)
			expectRunning()

			r := s.LoadProgram("program")

			Expect(r.Success).To(BeTrue())
			Expect(r.Status).To(Equal(snapshot.StatusRunning))
			Expect(r.ParsingErrors).To(HaveLen(1))
			Expect(r.ParsingErrors[0].IsWarning).To(BeTrue())

			cpu.EXPECT().Step().DoAndReturn(completedSteps())
			r = s.Step(1)

			Expect(r.Success).To(BeTrue())
			Expect(r.ParsingErrors).To(HaveLen(1))
		})

		It("should clear pending errors on a clean load", func() {
			expectLoad(warnings)
			expectRunning()
			s.LoadProgram("program")

			expectLoad(nil)
			expectRunning()
			r := s.LoadProgram("program")

			Expect(r.ParsingErrors).To(BeEmpty())
			Expect(s.PendingErrors()).To(BeNil())
		})

		It("should not clear pending errors on a failed load", func() {
			expectLoad(warnings)
			expectRunning()
			s.LoadProgram("program")

			expectLoad(fatalErrors)
			r := s.LoadProgram("program")

			Expect(r.ParsingErrors).To(HaveLen(2))
			Expect(s.PendingErrors()).To(HaveLen(2))
		})
	})

	Context("syntax check", func() {
		It("should fail without a syntax checker", func() {
			r := s.CheckSyntax("program")

			Expect(r.Success).To(BeFalse())
			Expect(r.ErrorMessage).To(Equal(ErrSyntaxUnchecked.Error()))
		})

		It("should report diagnostics without touching the session", func() {
			scratch := NewMockParser(mockCtrl)
			scratch.EXPECT().Parse("program").Return(fatalErrors)
			s = New(cpu, mem, parser,
				WithLogger(slog.New(slog.DiscardHandler)),
				WithSyntaxChecker(func() engine.Parser { return scratch }),
			)

			r := s.CheckSyntax("program")

			Expect(r.Success).To(BeFalse())
			Expect(r.ErrorMessage).To(Equal("Parsing errors."))
			Expect(r.ParsingErrors).To(HaveLen(2))
			Expect(s.PendingErrors()).To(BeNil())
		})

		It("should accept a program with warnings only", func() {
			scratch := NewMockParser(mockCtrl)
			scratch.EXPECT().Parse("program").Return(warnings)
			s = New(cpu, mem, parser,
				WithLogger(slog.New(slog.DiscardHandler)),
				WithSyntaxChecker(func() engine.Parser { return scratch }),
			)

			r := s.CheckSyntax("program")

			Expect(r.Success).To(BeTrue())
			Expect(r.ParsingErrors).To(HaveLen(1))
		})
	})

	Context("cache configuration", func() {
		It("should fail without a configurable cache", func() {
			r := s.SetCacheConfig(cache.DefaultHierarchyConfig())

			Expect(r.Success).To(BeFalse())
			Expect(r.ErrorMessage).To(Equal(ErrCacheUnsupported.Error()))
		})

		It("should forward the configuration", func() {
			c := &fakeConfigurer{}
			s = New(cpu, mem, parser,
				WithLogger(slog.New(slog.DiscardHandler)),
				WithCacheConfigurer(c),
			)
			config := cache.DefaultHierarchyConfig()
			config.L1D.Size *= 2

			r := s.SetCacheConfig(config)

			Expect(r.Success).To(BeTrue())
			Expect(c.got).To(Equal(config))
		})

		It("should report a rejected configuration", func() {
			c := &fakeConfigurer{err: errors.New("bad geometry")}
			s = New(cpu, mem, parser,
				WithLogger(slog.New(slog.DiscardHandler)),
				WithCacheConfigurer(c),
			)

			r := s.SetCacheConfig(cache.HierarchyConfig{})

			Expect(r.Success).To(BeFalse())
			Expect(r.ErrorMessage).To(Equal("bad geometry"))
		})
	})

	It("should serialize every pipeline slot", func() {
		expectReset()
		data, err := json.Marshal(s.Reset())
		Expect(err).NotTo(HaveOccurred())

		var wire map[string]json.RawMessage
		Expect(json.Unmarshal(data, &wire)).To(Succeed())
		Expect(wire).To(HaveKey("encounteredBreak"))
		Expect(wire).To(HaveKey("parsingErrors"))
		Expect(string(wire["parsingErrors"])).To(Equal("[]"))
		Expect(string(wire["status"])).To(Equal(`"READY"`))

		var pipeline map[string]json.RawMessage
		Expect(json.Unmarshal(wire["pipeline"], &pipeline)).To(Succeed())
		Expect(pipeline).To(HaveLen(17))
		Expect(string(pipeline["FPDivider"])).To(Equal("null"))
	})
})
