package pipeline

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/m64sim/emu"
	"github.com/sarchlab/m64sim/engine"
	"github.com/sarchlab/m64sim/insts"
	"github.com/sarchlab/m64sim/timing/latency"
)

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired in WB.
	Instructions uint64
	// RAWStalls is the number of cycles ID waited on a pending source.
	RAWStalls uint64
	// WAWStalls is the number of cycles ID waited on a pending destination.
	WAWStalls uint64
	// DividerStalls is the number of cycles DIV.D waited on the divider.
	DividerStalls uint64
	// MemoryStalls is the number of cycles an instruction could not enter
	// MEM because another one took it.
	MemoryStalls uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler emu.SyscallHandler) PipelineOption {
	return func(p *Pipeline) {
		p.syscallHandler = handler
	}
}

// WithStdout sets the writer of the default syscall handler.
func WithStdout(w io.Writer) PipelineOption {
	return func(p *Pipeline) {
		p.stdout = w
	}
}

// WithLatencyTable sets the timing configuration and unit latencies.
func WithLatencyTable(table *latency.Table) PipelineOption {
	return func(p *Pipeline) {
		p.latencyTable = table
	}
}

// WithTraffic sends every fetch and data access to a traffic recorder.
func WithTraffic(traffic TrafficRecorder) PipelineOption {
	return func(p *Pipeline) {
		p.traffic = traffic
	}
}

// Pipeline implements the MIPS64 5-stage pipeline.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
// FP arithmetic leaves ID for the adder, multiplier or divider instead of EX
// and rejoins the core pipeline in MEM.
//
// Each instance performs the work of a stage when it enters it, except ID,
// where the work happens when the instance tries to issue.
type Pipeline struct {
	stages latches
	fpu    *FPU

	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	hazardUnit *HazardUnit

	latencyTable *latency.Table

	regFile *emu.RegFile
	memory  *emu.Memory
	code    *emu.CodeMemory

	syscallHandler emu.SyscallHandler
	stdout         io.Writer
	traffic        TrafficRecorder

	pc     uint64
	serial int
	status engine.Status
	stats  Statistics
}

// NewPipeline creates a new pipeline over an assembled program.
func NewPipeline(
	code *emu.CodeMemory,
	regFile *emu.RegFile,
	memory *emu.Memory,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		code:    code,
		regFile: regFile,
		memory:  memory,
		stdout:  os.Stdout,
		traffic: nopTraffic{},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.latencyTable == nil {
		p.latencyTable = latency.NewTable()
	}
	if p.syscallHandler == nil {
		p.syscallHandler = emu.NewDefaultSyscallHandler(memory, p.stdout)
	}

	config := p.latencyTable.Config()
	p.fpu = NewFPU()
	p.fetchStage = NewFetchStage(code, p.traffic)
	p.decodeStage = NewDecodeStage(regFile)
	p.executeStage = NewExecuteStage(config.SyncExceptions)
	p.memoryStage = NewMemoryStage(memory, p.syscallHandler, p.traffic)
	p.writebackStage = NewWritebackStage(regFile)
	p.hazardUnit = NewHazardUnit()

	return p
}

// Status returns the execution status.
func (p *Pipeline) Status() engine.Status {
	return p.status
}

// SetStatus forces the execution status.
func (p *Pipeline) SetStatus(s engine.Status) {
	p.status = s
}

// PC returns the address of the next fetch.
func (p *Pipeline) PC() uint64 {
	return p.pc
}

// SetPC sets the address of the next fetch.
func (p *Pipeline) SetPC(pc uint64) {
	p.pc = pc
}

// Stats returns the pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Stage returns the occupant of a core stage, or nil.
func (p *Pipeline) Stage(s engine.Stage) *Instance {
	switch s {
	case engine.StageIF:
		return p.stages.ifStage
	case engine.StageID:
		return p.stages.idStage
	case engine.StageEX:
		return p.stages.exStage
	case engine.StageMEM:
		return p.stages.memStage
	case engine.StageWB:
		return p.stages.wbStage
	default:
		return nil
	}
}

// Unit returns the occupant of a functional-unit slot, or nil.
func (p *Pipeline) Unit(kind engine.UnitKind, slot int) *Instance {
	return p.fpu.Slot(kind, slot)
}

// Reset clears the registers, the pipeline, the counters and the status.
// Code and data memory are left untouched.
func (p *Pipeline) Reset() {
	p.stages.clear()
	p.fpu.Reset()
	p.hazardUnit.Reset()
	p.regFile.Reset()
	p.pc = 0
	p.serial = 0
	p.status = engine.StatusReady
	p.stats = Statistics{}
}

// Tick advances the pipeline by one clock cycle.
func (p *Pipeline) Tick() engine.StepResult {
	switch p.status {
	case engine.StatusHalted:
		return engine.Halted()
	case engine.StatusReady:
		return engine.Failed(fmt.Errorf("pipeline is not running"))
	}

	p.stats.Cycles++

	if p.tickWriteback() {
		p.status = engine.StatusHalted
		return engine.Halted()
	}

	if err := p.tickMemory(); err != nil {
		p.status = engine.StatusHalted
		return engine.Failed(err)
	}

	p.fpu.Advance()

	broke, err := p.tickIssue()
	if err != nil {
		p.status = engine.StatusHalted
		return engine.Failed(err)
	}

	p.tickFetch()

	if p.stages.empty() && p.fpu.Empty() {
		// Ran past the last instruction without terminating.
		p.status = engine.StatusHalted
		return engine.Halted()
	}

	if broke {
		return engine.Broke()
	}

	return engine.Completed()
}

// Run ticks until the program halts, breaks or fails.
func (p *Pipeline) Run() engine.StepResult {
	for {
		result := p.Tick()
		if result.Outcome != engine.OutcomeCompleted {
			return result
		}
	}
}

// RunCycles ticks at most n cycles. It returns the last result.
func (p *Pipeline) RunCycles(n uint64) engine.StepResult {
	result := engine.Completed()
	for i := uint64(0); i < n; i++ {
		result = p.Tick()
		if result.Outcome != engine.OutcomeCompleted {
			return result
		}
	}
	return result
}

// tickWriteback moves MEM into WB and retires it. It reports whether the
// retired instruction terminates the program.
func (p *Pipeline) tickWriteback() bool {
	in := p.stages.memStage
	p.stages.memStage = nil
	p.stages.wbStage = in

	if in == nil {
		return false
	}

	p.release(in)
	p.stats.Instructions++

	switch in.Inst.Class() {
	case insts.ClassHalt:
		return true
	case insts.ClassSyscall:
		return uint64(in.Inst.Imm) == emu.SyscallExit
	}

	return false
}

// tickMemory lets one instance enter MEM. The divider has priority, then
// the multiplier, the adder and finally EX.
func (p *Pipeline) tickMemory() error {
	candidates := 0
	var in *Instance

	if d := p.fpu.Done(engine.UnitDivider); d != nil {
		candidates++
		in = d
	}
	if m := p.fpu.Done(engine.UnitMultiplier); m != nil {
		candidates++
		if in == nil {
			in = m
		}
	}
	if a := p.fpu.Done(engine.UnitAdder); a != nil {
		candidates++
		if in == nil {
			in = a
		}
	}
	if p.stages.exStage != nil {
		candidates++
		if in == nil {
			in = p.stages.exStage
		}
	}

	if in == nil {
		return nil
	}
	if candidates > 1 {
		p.stats.MemoryStalls++
	}

	if in == p.stages.exStage {
		p.stages.exStage = nil
	} else {
		p.fpu.Remove(in)
	}
	p.stages.memStage = in

	if err := p.memoryStage.Access(in); err != nil {
		return fmt.Errorf("%s at line %d: %w", in.Inst.Name(), in.Inst.Line, err)
	}

	if p.latencyTable.Config().Forwarding {
		p.release(in)
	}

	return nil
}

// tickIssue tries to move the instance in ID to EX or to an FP unit.
func (p *Pipeline) tickIssue() (broke bool, err error) {
	in := p.stages.idStage
	if in == nil {
		return false, nil
	}

	unit := p.latencyTable.Unit(in.Inst)

	switch p.detectStall(in, unit) {
	case StallNone:
	case StallRAW:
		p.stats.RAWStalls++
		return false, nil
	case StallWAW:
		p.stats.WAWStalls++
		return false, nil
	case StallDivider:
		p.stats.DividerStalls++
		return false, nil
	default:
		return false, nil
	}

	decoded := p.decodeStage.Decode(in)
	p.stages.idStage = nil

	if decoded.Stop {
		p.status = engine.StatusStopping
		p.stages.ifStage = nil
	}
	if decoded.BranchTaken {
		p.pc = decoded.BranchTarget
		p.stages.ifStage = nil
	}

	p.hazardUnit.Reserve(in.Inst)

	if err := p.executeStage.Execute(in); err != nil {
		p.stages.exStage = in
		return false, fmt.Errorf("%s at line %d: %w", in.Inst.Name(), in.Inst.Line, err)
	}

	if kind, ok := unit.Kind(); ok {
		p.fpu.Issue(kind, in, p.latencyTable.GetLatency(in.Inst))
		return decoded.Break, nil
	}

	p.stages.exStage = in

	// ALU results are forwarded from the end of EX. Loads and system calls
	// produce theirs in MEM.
	if p.latencyTable.Config().Forwarding {
		switch in.Inst.Class() {
		case insts.ClassLoad, insts.ClassSyscall:
		default:
			p.release(in)
		}
	}

	return decoded.Break, nil
}

func (p *Pipeline) detectStall(in *Instance, unit latency.Unit) StallReason {
	if reason := p.hazardUnit.Detect(in.Inst, p.stats.Cycles); reason != StallNone {
		return reason
	}

	if in.Inst.Class() == insts.ClassHalt && !p.fpu.Empty() {
		return StallStructural
	}

	kind, ok := unit.Kind()
	if !ok {
		if p.stages.exStage != nil {
			return StallStructural
		}
		return StallNone
	}

	if !p.fpu.CanIssue(kind) {
		if kind == engine.UnitDivider {
			return StallDivider
		}
		return StallStructural
	}

	return StallNone
}

// tickFetch moves IF into ID and fetches the next instruction.
func (p *Pipeline) tickFetch() {
	if p.stages.idStage == nil && p.stages.ifStage != nil {
		p.stages.idStage = p.stages.ifStage
		p.stages.ifStage = nil
	}

	if p.stages.ifStage != nil || p.status != engine.StatusRunning {
		return
	}

	inst, ok := p.fetchStage.Fetch(p.pc)
	if !ok {
		return
	}

	p.serial++
	p.stages.ifStage = NewInstance(inst, p.serial)
	p.pc += 4
}

// release writes the results of the instance and frees its destinations.
func (p *Pipeline) release(in *Instance) {
	if in.written {
		return
	}
	p.writebackStage.Writeback(in)
	p.hazardUnit.Release(in.Inst, p.stats.Cycles)
}
