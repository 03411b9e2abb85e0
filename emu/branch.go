package emu

import "github.com/sarchlab/m64sim/insts"

// BranchUnit resolves MIPS64 branches and jumps.
type BranchUnit struct{}

// NewBranchUnit creates a new BranchUnit.
func NewBranchUnit() *BranchUnit {
	return &BranchUnit{}
}

// Resolve reports whether a control-flow instruction redirects the program
// counter, and to which address.
func (b *BranchUnit) Resolve(inst *insts.Instruction, ops Operands) (taken bool, target uint64) {
	switch inst.Op {
	case insts.OpB, insts.OpJ, insts.OpJAL:
		return true, inst.Target
	case insts.OpJR, insts.OpJALR:
		return true, ops.A
	case insts.OpBEQ:
		taken = ops.A == ops.B
	case insts.OpBNE:
		taken = ops.A != ops.B
	case insts.OpBEQZ:
		taken = ops.A == 0
	case insts.OpBNEZ:
		taken = ops.A != 0
	case insts.OpBC1T:
		taken = ops.FCC
	case insts.OpBC1F:
		taken = !ops.FCC
	default:
		return false, 0
	}

	return taken, inst.Target
}
