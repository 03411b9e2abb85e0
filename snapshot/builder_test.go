package snapshot_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m64sim/engine"
	"github.com/sarchlab/m64sim/snapshot"
	"github.com/sarchlab/m64sim/timing/core"
)

// faultyEngine breaks selected facets of a working engine.
type faultyEngine struct {
	engine.Engine

	gprErr     error
	panicUnits bool
}

func (f *faultyEngine) GeneralRegisters() ([]engine.Register, error) {
	if f.gprErr != nil {
		return nil, f.gprErr
	}
	return f.Engine.GeneralRegisters()
}

func (f *faultyEngine) FunctionalUnit(kind engine.UnitKind, slot int) engine.Instruction {
	if f.panicUnits {
		panic("unit state unavailable")
	}
	return f.Engine.FunctionalUnit(kind, slot)
}

type faultyMemory struct {
	engine.Memory
}

func (faultyMemory) Dump() (string, error) {
	return "", errors.New("memory locked")
}

var _ = Describe("Builder", func() {
	var (
		m       *core.Machine
		logs    *bytes.Buffer
		logger  *slog.Logger
		builder *snapshot.Builder
	)

	BeforeEach(func() {
		var err error
		m, err = core.NewMachine(nil)
		Expect(err).NotTo(HaveOccurred())

		logs = &bytes.Buffer{}
		logger = slog.New(slog.NewTextHandler(logs, nil))
		builder = snapshot.NewBuilder(m, m,
			snapshot.WithLogger(logger),
			snapshot.WithStdout(m.Stdout()),
		)
	})

	It("should snapshot an idle machine", func() {
		s := builder.Build()

		Expect(s.Status).To(Equal(snapshot.StatusReady))
		Expect(s.Pipeline).To(Equal(snapshot.Pipeline{}))
		Expect(s.ParsedInstructions).To(BeEmpty())
		Expect(s.RegisterBanks.GPR).To(HaveLen(32))
		Expect(s.RegisterBanks.FPU).To(HaveLen(32))
		Expect(s.Counters.Cycles).To(BeZero())
		Expect(s.Counters.FCSR).To(Equal("00000000000000000000000000000000"))
		Expect(logs.String()).To(BeEmpty())
	})

	It("should serialise every pipeline slot, empty or not", func() {
		data, err := json.Marshal(builder.Build().Pipeline)
		Expect(err).NotTo(HaveOccurred())

		var slots map[string]any
		Expect(json.Unmarshal(data, &slots)).To(Succeed())
		Expect(slots).To(HaveLen(17))
		Expect(slots).To(HaveKeyWithValue("IF", BeNil()))
		Expect(slots).To(HaveKeyWithValue("FPMultiplier7", BeNil()))
		Expect(slots).To(HaveKeyWithValue("FPDivider", BeNil()))
	})

	It("should capture a running program", func() {
		Expect(m.Parse("daddi r1, r0, -3\nadd.d f2, f0, f0\nhalt")).To(Succeed())
		m.SetStatus(engine.StatusRunning)
		m.RunCycles(4)

		s := builder.Build()

		Expect(s.Status).To(Equal(snapshot.StatusRunning))
		Expect(s.Pipeline.MEM.Name).To(Equal("DADDI"))
		Expect(s.Pipeline.MEM.Code).To(Equal("daddi r1, r0, -3"))
		Expect(s.Pipeline.MEM.SerialNumber).To(Equal(1))
		Expect(s.Pipeline.EX).To(BeNil())
		Expect(s.Pipeline.FPAdder1.Name).To(Equal("ADD.D"))
		Expect(s.Pipeline.Slot(engine.UnitAdder, 0)).To(BeIdenticalTo(s.Pipeline.FPAdder1))
		Expect(s.Pipeline.FPAdder2).To(BeNil())
		Expect(s.Pipeline.ID.Name).To(Equal("HALT"))
		Expect(s.ParsedInstructions).To(HaveLen(3))
		Expect(s.ParsedInstructions[0].SerialNumber).To(BeZero())
		Expect(s.ParsedInstructions[0].Opcode).To(Equal("011000"))
		Expect(s.ParsedInstructions[0].BinaryRepresentation).To(HaveLen(32))
		Expect(s.Counters.CodeSizeBytes).To(Equal(12))
		Expect(s.Counters.Cycles).To(Equal(uint64(4)))

		var banks snapshot.RegisterDump
		Expect(json.Unmarshal([]byte(s.Registers), &banks)).To(Succeed())
		Expect(banks.GPR[1]).To(Equal(snapshot.RegisterEntry{
			Name:      "R1",
			Alias:     "at",
			HexString: "FFFFFFFFFFFFFFFD",
			Value:     "-3",
		}))
		Expect(banks.Special).To(HaveLen(3))
		Expect(banks.Special[0].Name).To(Equal("LO"))
		Expect(banks.Special[1].Name).To(Equal("HI"))
		Expect(banks.Special[2].Name).To(Equal("FCSR"))

		var counters map[string]any
		Expect(json.Unmarshal([]byte(s.Statistics), &counters)).To(Succeed())
		Expect(counters).To(HaveKey("rawStalls"))
		Expect(counters).To(HaveKey("codeSizeBytes"))
		Expect(counters).To(HaveKey("l1dReadMisses"))
	})

	It("should not be affected by later steps", func() {
		Expect(m.Parse("daddi r1, r0, 1\nhalt")).To(Succeed())
		m.SetStatus(engine.StatusRunning)
		m.RunCycles(1)

		before := builder.Build()
		m.RunCycles(1)

		Expect(before.Pipeline.IF.Name).To(Equal("DADDI"))
		Expect(before.Pipeline.ID).To(BeNil())
		Expect(before.Counters.Cycles).To(Equal(uint64(1)))
	})

	It("should render FP registers as doubles", func() {
		source := ".data\nx: .double 2.5\n.code\nl.d f4, x(r0)\nhalt"
		Expect(m.Parse(source)).To(Succeed())
		m.SetStatus(engine.StatusRunning)
		m.Run()

		s := builder.Build()
		Expect(s.RegisterBanks.FPU[4].Value).To(Equal("2.5"))
		Expect(s.RegisterBanks.FPU[4].HexString).To(Equal("4004000000000000"))
		Expect(s.Status).To(Equal(snapshot.StatusStopped))
	})

	It("should include the program output", func() {
		m.Stdout().WriteString("hello")
		Expect(builder.Build().Stdout).To(Equal("hello"))
	})

	Context("when facets fail", func() {
		It("should substitute placeholders and log", func() {
			faulty := &faultyEngine{
				Engine:     m,
				gprErr:     errors.New("bank busy"),
				panicUnits: true,
			}
			b := snapshot.NewBuilder(faulty, faultyMemory{Memory: m},
				snapshot.WithLogger(logger))

			s := b.Build()

			Expect(s.Status).To(Equal(snapshot.StatusReady))
			Expect(s.RegisterBanks.GPR).To(BeEmpty())
			Expect(s.RegisterBanks.FPU).To(HaveLen(32))
			Expect(s.RegisterBanks.Special).To(HaveLen(3))
			Expect(s.Memory).To(Equal(snapshot.EmptyMemory))
			Expect(s.Pipeline.FPDivider).To(BeNil())

			Expect(logs.String()).To(ContainSubstring("bank busy"))
			Expect(logs.String()).To(ContainSubstring("unit state unavailable"))
			Expect(logs.String()).To(ContainSubstring("memory locked"))
		})
	})
})
