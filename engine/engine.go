// Package engine defines the contracts between a simulation session and the
// pipelined CPU engine it drives.
//
// The session layer only talks to the engine through these interfaces. Any
// engine (the reference MIPS64 machine in timing/core, a test double, or an
// adapter around another simulator) can be plugged in as long as it reports
// its state through them.
package engine

// Instruction is the engine's view of an instruction that occupies a pipeline
// slot or an instruction memory location. Implementations may be live engine
// objects; callers that keep the data must copy it.
type Instruction interface {
	// Name is the mnemonic, e.g. "DADDI".
	Name() string
	// Code is the full source text, e.g. "DADDI R1, R0, 5".
	Code() string
	// Comment is the source comment attached to the instruction, if any.
	Comment() string
	// Label is the label defined on the instruction's line, if any.
	Label() string
	// Address is the byte offset of the instruction in code memory.
	Address() uint64
	// Line is the 1-based source line.
	Line() int
	// Serial uniquely identifies one dynamic instance of the instruction.
	Serial() int
	// Encoding is the 32-bit machine word.
	Encoding() uint32
}

// Register is one architectural register value.
type Register struct {
	// Name is the canonical name, e.g. "R4" or "F2".
	Name string
	// Alias is the ABI name, e.g. "a0". Empty when the register has none.
	Alias string
	// Bits is the raw 64-bit content.
	Bits uint64
	// Float marks registers whose value is an IEEE-754 double.
	Float bool
}

// SpecialRegisters holds the registers outside the GPR and FPU banks.
type SpecialRegisters struct {
	LO   uint64
	HI   uint64
	FCSR uint32
}

// Statistics holds the engine's execution counters.
type Statistics struct {
	// Cycles is the number of clock cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired in WB.
	Instructions uint64
	// RAWStalls counts cycles lost to read-after-write hazards.
	RAWStalls uint64
	// WAWStalls counts cycles lost to write-after-write hazards.
	WAWStalls uint64
	// DividerStalls counts structural stalls on the FP divider.
	DividerStalls uint64
	// MemoryStalls counts structural stalls on the MEM stage.
	MemoryStalls uint64

	// Cache holds the cache-traffic model counters, if the engine has one.
	Cache CacheStatistics
}

// CacheStatistics holds the counters of the cache-traffic model.
type CacheStatistics struct {
	L1IReads       uint64
	L1IReadMisses  uint64
	L1DReads       uint64
	L1DReadMisses  uint64
	L1DWrites      uint64
	L1DWriteMisses uint64
}

// Engine is the pipelined CPU the session drives one step at a time.
type Engine interface {
	// Status returns the fine-grained execution status.
	Status() Status
	// SetStatus forces the execution status, e.g. to RUNNING after a load.
	SetStatus(s Status)
	// Reset re-initializes the CPU: registers, pipeline, counters, status.
	Reset()
	// Step advances the engine by exactly one step (one clock cycle).
	Step() StepResult

	// Pipeline returns the occupancy of the five core stages. Empty stages
	// may be absent from the map or map to nil.
	Pipeline() map[Stage]Instruction
	// FunctionalUnit returns the instruction in the given 0-based slot of an
	// FP functional unit, or nil.
	FunctionalUnit(kind UnitKind, slot int) Instruction

	GeneralRegisters() ([]Register, error)
	FloatingPointRegisters() ([]Register, error)
	SpecialRegisters() (SpecialRegisters, error)
	Statistics() Statistics
}

// Memory is the engine's program and data store.
type Memory interface {
	// InstructionCount returns the number of instructions in code memory.
	InstructionCount() int
	// InstructionAt returns the instruction at a byte offset, or nil.
	InstructionAt(offset uint64) Instruction
	// Dump renders the data memory as text.
	Dump() (string, error)
}

// Parser turns source text into code and data in the engine's memory.
//
// Parse returns nil on a clean parse. Otherwise the error aggregates one or
// more diagnostics and implements Unwrap() []error; each element should
// implement Diagnostic.
type Parser interface {
	Parse(source string) error
}

// Diagnostic is one positioned parser message.
type Diagnostic interface {
	error
	// Line is the 1-based source line.
	Line() int
	// Column is the 1-based column.
	Column() int
	// Warning reports whether the diagnostic is non-fatal.
	Warning() bool
}

// OutputSink captures the program's standard output. *bytes.Buffer
// satisfies it.
type OutputSink interface {
	String() string
	Reset()
}

// Resetter is a component that can be wiped in place, like a symbol table.
type Resetter interface {
	Reset()
}

// TrafficModel is a cache-traffic model fed by the engine.
type TrafficModel interface {
	Reset()
	// SetDataOffset places data addresses after the code in the trace.
	SetDataOffset(offset uint64)
}
