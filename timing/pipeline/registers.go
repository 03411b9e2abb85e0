// Package pipeline provides the 5-stage MIPS64 pipeline with its FP
// functional units.
package pipeline

import (
	"github.com/sarchlab/m64sim/emu"
	"github.com/sarchlab/m64sim/insts"
)

// Instance is one dynamic instance of an instruction travelling through the
// pipeline. It carries the values latched between stages.
type Instance struct {
	// Inst is the static instruction.
	Inst *insts.Instruction

	serial int

	// Operands read in ID.
	ops emu.Operands

	// Result is the single-register result, valid once computed.
	result uint64
	lo, hi uint64
	// addr is the effective address of loads and stores.
	addr uint64

	// remaining counts the divider cycles left.
	remaining uint64

	// written marks that the results reached the register file.
	written bool
}

// NewInstance wraps inst as a dynamic instance. Serial 0 is reserved for
// static views of code memory.
func NewInstance(inst *insts.Instruction, serial int) *Instance {
	return &Instance{Inst: inst, serial: serial}
}

// Name returns the mnemonic.
func (i *Instance) Name() string { return i.Inst.Name() }

// Code returns the source text, or the canonical form when the instruction
// was not assembled from source.
func (i *Instance) Code() string {
	if i.Inst.Text != "" {
		return i.Inst.Text
	}
	return i.Inst.Format()
}

// Comment returns the source comment.
func (i *Instance) Comment() string { return i.Inst.Comment }

// Label returns the label defined on the instruction's line.
func (i *Instance) Label() string { return i.Inst.Label }

// Address returns the byte offset in code memory.
func (i *Instance) Address() uint64 { return i.Inst.Address }

// Line returns the 1-based source line.
func (i *Instance) Line() int { return i.Inst.Line }

// Serial returns the dynamic instance number.
func (i *Instance) Serial() int { return i.serial }

// Encoding returns the 32-bit machine word.
func (i *Instance) Encoding() uint32 { return i.Inst.Encode() }

// latches holds the occupant of each core stage. A nil entry is a bubble.
type latches struct {
	ifStage  *Instance
	idStage  *Instance
	exStage  *Instance
	memStage *Instance
	wbStage  *Instance
}

func (l *latches) clear() {
	*l = latches{}
}

func (l *latches) empty() bool {
	return l.ifStage == nil && l.idStage == nil && l.exStage == nil &&
		l.memStage == nil && l.wbStage == nil
}
