// Package latency provides the functional-unit and latency model of the
// MIPS64 pipeline.
//
// Integer instructions spend one cycle in EX. FP additions and
// multiplications traverse the fully pipelined adder and multiplier; DIV.D
// occupies the single, non-pipelined divider for a configurable number of
// cycles.
package latency

import (
	"github.com/sarchlab/m64sim/engine"
	"github.com/sarchlab/m64sim/insts"
)

// Unit identifies the execution unit an instruction goes through.
type Unit int

// Execution units.
const (
	UnitInteger Unit = iota
	UnitFPAdder
	UnitFPMultiplier
	UnitFPDivider
)

// Kind returns the engine functional unit for FP units. ok is false for
// UnitInteger.
func (u Unit) Kind() (kind engine.UnitKind, ok bool) {
	switch u {
	case UnitFPAdder:
		return engine.UnitAdder, true
	case UnitFPMultiplier:
		return engine.UnitMultiplier, true
	case UnitFPDivider:
		return engine.UnitDivider, true
	default:
		return 0, false
	}
}

// Table provides unit and latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing
// configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// Unit returns the execution unit of the instruction.
func (t *Table) Unit(inst *insts.Instruction) Unit {
	if inst == nil {
		return UnitInteger
	}

	switch inst.Class() {
	case insts.ClassFPAdd:
		return UnitFPAdder
	case insts.ClassFPMul:
		return UnitFPMultiplier
	case insts.ClassFPDiv:
		return UnitFPDivider
	default:
		return UnitInteger
	}
}

// GetLatency returns the number of cycles the instruction spends in its
// execution unit.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	switch t.Unit(inst) {
	case UnitFPAdder:
		return engine.AdderSlots
	case UnitFPMultiplier:
		return engine.MultiplierSlots
	case UnitFPDivider:
		return t.config.DividerLatency
	default:
		return 1
	}
}

// IsMemoryOp returns true if the instruction accesses data memory in MEM.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	return t.IsLoadOp(inst) || t.IsStoreOp(inst)
}

// IsLoadOp returns true if the instruction is a load operation.
func (t *Table) IsLoadOp(inst *insts.Instruction) bool {
	return inst != nil && inst.Class() == insts.ClassLoad
}

// IsStoreOp returns true if the instruction is a store operation.
func (t *Table) IsStoreOp(inst *insts.Instruction) bool {
	return inst != nil && inst.Class() == insts.ClassStore
}

// IsBranchOp returns true if the instruction may redirect the PC.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	return inst != nil && inst.Class().IsControl()
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
