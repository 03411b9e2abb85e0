package emu

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/m64sim/insts"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true if the program terminated (HALT or SYSCALL 0).
	Exited bool

	// Broke is true if a BREAK instruction was executed.
	Broke bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes MIPS64 programs functionally, one instruction per step,
// without timing. It is the architectural reference for the pipeline.
type Emulator struct {
	regFile        *RegFile
	memory         *Memory
	code           *CodeMemory
	syscallHandler SyscallHandler

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	stdout io.Writer
	pc     uint64

	syncExceptions   bool
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler SyscallHandler) EmulatorOption {
	return func(e *Emulator) {
		e.syscallHandler = handler
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithSyncExceptions makes integer overflow and division by zero fail the
// step instead of being masked.
func WithSyncExceptions(enabled bool) EmulatorOption {
	return func(e *Emulator) {
		e.syncExceptions = enabled
	}
}

// NewEmulator creates a functional emulator over an assembled program.
func NewEmulator(code *CodeMemory, memory *Memory, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		memory:  memory,
		code:    code,
		stdout:  os.Stdout,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.alu = NewALU()
	e.lsu = NewLoadStoreUnit(memory)
	e.branchUnit = NewBranchUnit()

	if e.syscallHandler == nil {
		e.syscallHandler = NewDefaultSyscallHandler(memory, e.stdout)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's data memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// PC returns the program counter.
func (e *Emulator) PC() uint64 {
	return e.pc
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Reset clears the registers and rewinds to the first instruction. Data
// memory is left untouched.
func (e *Emulator) Reset() {
	e.regFile.Reset()
	e.pc = 0
	e.instructionCount = 0
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: fmt.Errorf("max instructions reached")}
	}

	inst := e.code.At(e.pc)
	if inst == nil {
		return StepResult{Exited: true}
	}

	result := e.execute(inst)
	e.instructionCount++

	if result.Err != nil {
		result.Err = fmt.Errorf("%s at line %d: %w", inst.Name(), inst.Line, result.Err)
	}

	return result
}

// Run executes instructions until the program exits, breaks or fails.
func (e *Emulator) Run() StepResult {
	for {
		result := e.Step()
		if result.Exited || result.Broke || result.Err != nil {
			return result
		}
	}
}

func (e *Emulator) execute(inst *insts.Instruction) StepResult {
	ops := ReadOperands(e.regFile, inst)
	next := e.pc + 4

	switch inst.Class() {
	case insts.ClassNop:
	case insts.ClassHalt:
		return StepResult{Exited: true}
	case insts.ClassBreak:
		e.pc = next
		return StepResult{Broke: true}
	case insts.ClassSyscall:
		res := e.syscallHandler.Handle(uint64(inst.Imm), ops.A)
		if res.Err != nil {
			return StepResult{Err: res.Err}
		}
		if res.Exited {
			return StepResult{Exited: true}
		}
		e.regFile.WriteGPR(1, res.Return)
	case insts.ClassBranch, insts.ClassJump:
		if taken, target := e.branchUnit.Resolve(inst, ops); taken {
			next = target
		}
		if inst.Op == insts.OpJAL || inst.Op == insts.OpJALR {
			e.regFile.WriteGPR(31, inst.Address+4)
		}
	case insts.ClassLoad:
		v, err := e.lsu.Load(inst, EffectiveAddress(inst, ops.A))
		if err != nil {
			return StepResult{Err: err}
		}
		e.writeDests(inst, v)
	case insts.ClassStore:
		if err := e.lsu.Store(inst, EffectiveAddress(inst, ops.A), ops.B); err != nil {
			return StepResult{Err: err}
		}
	case insts.ClassMulDiv:
		lo, hi, err := e.alu.MulDiv(inst, ops)
		if err != nil && e.syncExceptions {
			return StepResult{Err: err}
		}
		e.regFile.LO, e.regFile.HI = lo, hi
	case insts.ClassFPAdd, insts.ClassFPMul, insts.ClassFPDiv:
		e.regFile.FPR[inst.Fd&31] = FPArith(inst.Op, ops.A, ops.B)
	default:
		v, err := e.alu.Execute(inst, ops)
		if err != nil && (e.syncExceptions || !errors.Is(err, ErrIntegerOverflow)) {
			return StepResult{Err: err}
		}
		e.writeDests(inst, v)
	}

	e.pc = next

	return StepResult{}
}

func (e *Emulator) writeDests(inst *insts.Instruction, v uint64) {
	for _, r := range inst.Dests() {
		e.regFile.Write(r, v)
	}
}
