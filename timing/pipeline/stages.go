package pipeline

import (
	"errors"

	"github.com/sarchlab/m64sim/emu"
	"github.com/sarchlab/m64sim/insts"
)

// TrafficRecorder receives the memory references of the pipeline, e.g. a
// cache-traffic model.
type TrafficRecorder interface {
	Fetch(addr uint64)
	Read(addr uint64)
	Write(addr uint64)
}

type nopTraffic struct{}

func (nopTraffic) Fetch(uint64) {}
func (nopTraffic) Read(uint64)  {}
func (nopTraffic) Write(uint64) {}

// FetchStage handles instruction fetch from code memory.
type FetchStage struct {
	code    *emu.CodeMemory
	traffic TrafficRecorder
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(code *emu.CodeMemory, traffic TrafficRecorder) *FetchStage {
	return &FetchStage{
		code:    code,
		traffic: traffic,
	}
}

// Fetch returns the instruction at pc, or false past the end of the program.
func (s *FetchStage) Fetch(pc uint64) (*insts.Instruction, bool) {
	inst := s.code.At(pc)
	if inst == nil {
		return nil, false
	}
	s.traffic.Fetch(pc)
	return inst, true
}

// DecodeStage handles register read and branch resolution.
type DecodeStage struct {
	regFile    *emu.RegFile
	branchUnit *emu.BranchUnit
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile) *DecodeStage {
	return &DecodeStage{
		regFile:    regFile,
		branchUnit: emu.NewBranchUnit(),
	}
}

// DecodeResult holds the control decisions taken in ID.
type DecodeResult struct {
	// Stop is set for instructions that terminate the program.
	Stop bool
	// Break is set for BREAK.
	Break bool

	// For branches.
	BranchTaken  bool
	BranchTarget uint64
}

// Decode reads the operands of the instance and resolves control flow.
func (s *DecodeStage) Decode(in *Instance) DecodeResult {
	in.ops = emu.ReadOperands(s.regFile, in.Inst)

	var result DecodeResult

	switch in.Inst.Class() {
	case insts.ClassHalt:
		result.Stop = true
	case insts.ClassSyscall:
		result.Stop = uint64(in.Inst.Imm) == emu.SyscallExit
	case insts.ClassBreak:
		result.Break = true
	case insts.ClassBranch, insts.ClassJump:
		result.BranchTaken, result.BranchTarget = s.branchUnit.Resolve(in.Inst, in.ops)
	}

	return result
}

// ExecuteStage computes integer results, FP results and effective
// addresses.
type ExecuteStage struct {
	alu            *emu.ALU
	syncExceptions bool
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage(syncExceptions bool) *ExecuteStage {
	return &ExecuteStage{
		alu:            emu.NewALU(),
		syncExceptions: syncExceptions,
	}
}

// Execute computes the results of the instance. Integer overflow and
// division by zero only fail the step with synchronous exceptions enabled.
func (s *ExecuteStage) Execute(in *Instance) error {
	inst := in.Inst

	switch inst.Class() {
	case insts.ClassNop, insts.ClassHalt, insts.ClassBreak, insts.ClassSyscall:
		return nil
	case insts.ClassBranch:
		return nil
	case insts.ClassLoad, insts.ClassStore:
		in.addr = emu.EffectiveAddress(inst, in.ops.A)
		return nil
	case insts.ClassMulDiv:
		lo, hi, err := s.alu.MulDiv(inst, in.ops)
		in.lo, in.hi = lo, hi
		return s.trap(err)
	case insts.ClassFPAdd, insts.ClassFPMul, insts.ClassFPDiv:
		in.result = emu.FPArith(inst.Op, in.ops.A, in.ops.B)
		return nil
	case insts.ClassJump:
		if len(inst.Dests()) == 0 {
			return nil
		}
	}

	v, err := s.alu.Execute(inst, in.ops)
	in.result = v
	return s.trap(err)
}

func (s *ExecuteStage) trap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, emu.ErrIntegerOverflow) || errors.Is(err, emu.ErrDivisionByZero) {
		if !s.syncExceptions {
			return nil
		}
	}
	return err
}

// MemoryStage handles data memory access and system calls.
type MemoryStage struct {
	lsu            *emu.LoadStoreUnit
	syscallHandler emu.SyscallHandler
	traffic        TrafficRecorder
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(
	memory *emu.Memory,
	handler emu.SyscallHandler,
	traffic TrafficRecorder,
) *MemoryStage {
	return &MemoryStage{
		lsu:            emu.NewLoadStoreUnit(memory),
		syscallHandler: handler,
		traffic:        traffic,
	}
}

// Access performs the memory operation of the instance.
func (s *MemoryStage) Access(in *Instance) error {
	inst := in.Inst

	switch inst.Class() {
	case insts.ClassLoad:
		v, err := s.lsu.Load(inst, in.addr)
		if err != nil {
			return err
		}
		s.traffic.Read(in.addr)
		in.result = v
	case insts.ClassStore:
		if err := s.lsu.Store(inst, in.addr, in.ops.B); err != nil {
			return err
		}
		s.traffic.Write(in.addr)
	case insts.ClassSyscall:
		code := uint64(inst.Imm)
		if code == emu.SyscallExit {
			return nil
		}
		res := s.syscallHandler.Handle(code, in.ops.A)
		if res.Err != nil {
			return res.Err
		}
		in.result = res.Return
	}

	return nil
}

// WritebackStage writes results to the register file.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{
		regFile: regFile,
	}
}

// Writeback writes the results of the instance once.
func (s *WritebackStage) Writeback(in *Instance) {
	if in.written {
		return
	}
	in.written = true

	if in.Inst.Class() == insts.ClassMulDiv {
		s.regFile.LO, s.regFile.HI = in.lo, in.hi
		return
	}

	for _, r := range in.Inst.Dests() {
		s.regFile.Write(r, in.result)
	}
}
