package emu

import "github.com/sarchlab/m64sim/insts"

// LoadStoreUnit implements MIPS64 load and store operations.
type LoadStoreUnit struct {
	memory *Memory
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// memory.
func NewLoadStoreUnit(memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{memory: memory}
}

// AccessSize returns the number of bytes a load or store touches.
func AccessSize(op insts.Op) int {
	switch op {
	case insts.OpLB, insts.OpLBU, insts.OpSB:
		return 1
	case insts.OpLH, insts.OpLHU, insts.OpSH:
		return 2
	case insts.OpLW, insts.OpLWU, insts.OpSW:
		return 4
	default:
		return 8
	}
}

// EffectiveAddress returns base + offset.
func EffectiveAddress(inst *insts.Instruction, base uint64) uint64 {
	return base + uint64(inst.Imm)
}

// Load reads memory for a load instruction, applying sign extension.
func (lsu *LoadStoreUnit) Load(inst *insts.Instruction, addr uint64) (uint64, error) {
	size := AccessSize(inst.Op)

	v, err := lsu.memory.Read(addr, size)
	if err != nil {
		return 0, err
	}

	switch inst.Op {
	case insts.OpLB:
		return uint64(int64(int8(v))), nil
	case insts.OpLH:
		return uint64(int64(int16(v))), nil
	case insts.OpLW:
		return uint64(int64(int32(v))), nil
	}

	return v, nil
}

// Store writes value for a store instruction.
func (lsu *LoadStoreUnit) Store(inst *insts.Instruction, addr, value uint64) error {
	return lsu.memory.Write(addr, AccessSize(inst.Op), value)
}
