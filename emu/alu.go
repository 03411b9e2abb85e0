package emu

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/sarchlab/m64sim/insts"
)

// Operands holds the register values an instruction reads in ID.
type Operands struct {
	// A is the rs value, or fs for FP instructions, LO/HI for MFLO/MFHI and
	// R14 for SYSCALL.
	A uint64
	// B is the rt value, or ft for FP instructions.
	B uint64
	// FCC is the FP condition flag, read by BC1T and BC1F.
	FCC bool
}

// ReadOperands reads the operands of inst from the register file.
func ReadOperands(r *RegFile, inst *insts.Instruction) Operands {
	switch inst.Op {
	case insts.OpMFLO:
		return Operands{A: r.LO}
	case insts.OpMFHI:
		return Operands{A: r.HI}
	case insts.OpBC1T, insts.OpBC1F:
		return Operands{FCC: r.FCC()}
	case insts.OpMTC1, insts.OpDMTC1:
		return Operands{B: r.ReadGPR(inst.Rt)}
	case insts.OpMFC1, insts.OpDMFC1:
		return Operands{A: r.FPR[inst.Fs&31]}
	case insts.OpSDC1:
		return Operands{A: r.ReadGPR(inst.Rs), B: r.FPR[inst.Ft&31]}
	case insts.OpSYSCALL:
		return Operands{A: r.ReadGPR(14)}
	}

	switch inst.Op.Syntax() {
	case insts.SyntaxFdFsFt, insts.SyntaxFdFs, insts.SyntaxFsFt:
		return Operands{A: r.FPR[inst.Fs&31], B: r.FPR[inst.Ft&31]}
	}

	return Operands{A: r.ReadGPR(inst.Rs), B: r.ReadGPR(inst.Rt)}
}

// ALU implements MIPS64 integer arithmetic, logic and FP moves.
//
// Trapping operations still produce their wrapped-around result together with
// the error, so callers that mask synchronous exceptions can ignore it.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Execute computes the single-register result of inst.
func (a *ALU) Execute(inst *insts.Instruction, ops Operands) (uint64, error) {
	x, y := ops.A, ops.B
	imm := uint64(inst.Imm)
	uimm := uint64(uint16(inst.Imm))

	switch inst.Op {
	case insts.OpDADD:
		return addSigned(x, y)
	case insts.OpDADDU:
		return x + y, nil
	case insts.OpDSUB:
		r := x - y
		if (int64(x) < 0) != (int64(y) < 0) && (int64(r) < 0) != (int64(x) < 0) {
			return r, ErrIntegerOverflow
		}
		return r, nil
	case insts.OpDSUBU:
		return x - y, nil
	case insts.OpAND:
		return x & y, nil
	case insts.OpOR:
		return x | y, nil
	case insts.OpXOR:
		return x ^ y, nil
	case insts.OpNOR:
		return ^(x | y), nil
	case insts.OpSLT:
		return boolToUint(int64(x) < int64(y)), nil
	case insts.OpSLTU:
		return boolToUint(x < y), nil
	case insts.OpDSLLV:
		return y << (x & 63), nil
	case insts.OpDSRLV:
		return y >> (x & 63), nil
	case insts.OpDSRAV:
		return uint64(int64(y) >> (x & 63)), nil
	case insts.OpDSLL:
		return y << inst.Sa, nil
	case insts.OpDSRL:
		return y >> inst.Sa, nil
	case insts.OpDSRA:
		return uint64(int64(y) >> inst.Sa), nil
	case insts.OpDADDI:
		return addSigned(x, imm)
	case insts.OpDADDIU:
		return x + imm, nil
	case insts.OpANDI:
		return x & uimm, nil
	case insts.OpORI:
		return x | uimm, nil
	case insts.OpXORI:
		return x ^ uimm, nil
	case insts.OpSLTI:
		return boolToUint(int64(x) < inst.Imm), nil
	case insts.OpSLTIU:
		return boolToUint(x < imm), nil
	case insts.OpLUI:
		return uint64(int64(int32(uint32(uimm) << 16))), nil
	case insts.OpMFLO, insts.OpMFHI, insts.OpDMFC1, insts.OpMOVD:
		return x, nil
	case insts.OpMFC1:
		return uint64(int64(int32(uint32(x)))), nil
	case insts.OpMTC1:
		return uint64(uint32(y)), nil
	case insts.OpDMTC1:
		return y, nil
	case insts.OpJAL, insts.OpJALR:
		return inst.Address + 4, nil
	case insts.OpCEQD, insts.OpCLTD, insts.OpCLED:
		return boolToUint(FPCompare(inst.Op, x, y)), nil
	}

	return 0, fmt.Errorf("no ALU operation for %s", inst.Op)
}

// MulDiv computes the LO and HI results of DMULT, DMULTU, DDIV and DDIVU.
func (a *ALU) MulDiv(inst *insts.Instruction, ops Operands) (lo, hi uint64, err error) {
	x, y := ops.A, ops.B

	switch inst.Op {
	case insts.OpDMULT:
		hi, lo = bits.Mul64(x, y)
		if int64(x) < 0 {
			hi -= y
		}
		if int64(y) < 0 {
			hi -= x
		}
		return lo, hi, nil
	case insts.OpDMULTU:
		hi, lo = bits.Mul64(x, y)
		return lo, hi, nil
	case insts.OpDDIV:
		if y == 0 {
			return 0, 0, ErrDivisionByZero
		}
		if int64(x) == math.MinInt64 && int64(y) == -1 {
			return x, 0, nil
		}
		return uint64(int64(x) / int64(y)), uint64(int64(x) % int64(y)), nil
	case insts.OpDDIVU:
		if y == 0 {
			return 0, 0, ErrDivisionByZero
		}
		return x / y, x % y, nil
	}

	return 0, 0, fmt.Errorf("no multiply/divide operation for %s", inst.Op)
}

// FPArith computes a double-precision arithmetic result on raw bits.
func FPArith(op insts.Op, a, b uint64) uint64 {
	x, y := math.Float64frombits(a), math.Float64frombits(b)

	var r float64
	switch op {
	case insts.OpADDD:
		r = x + y
	case insts.OpSUBD:
		r = x - y
	case insts.OpMULD:
		r = x * y
	case insts.OpDIVD:
		r = x / y
	default:
		return 0
	}

	return math.Float64bits(r)
}

// FPCompare evaluates C.EQ.D, C.LT.D and C.LE.D on raw bits.
func FPCompare(op insts.Op, a, b uint64) bool {
	x, y := math.Float64frombits(a), math.Float64frombits(b)

	switch op {
	case insts.OpCEQD:
		return x == y
	case insts.OpCLTD:
		return x < y
	case insts.OpCLED:
		return x <= y
	}

	return false
}

func addSigned(x, y uint64) (uint64, error) {
	r := x + y
	if (int64(x) < 0) == (int64(y) < 0) && (int64(r) < 0) != (int64(x) < 0) {
		return r, ErrIntegerOverflow
	}
	return r, nil
}

func boolToUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
