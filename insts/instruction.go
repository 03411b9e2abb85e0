package insts

import (
	"fmt"
	"strings"
)

// Reg identifies an architectural register for dependency tracking.
// GPRs occupy 0-31, FPRs 32-63, followed by LO, HI and the FP condition flag.
type Reg uint8

// Special register identifiers.
const (
	RegLO  Reg = 64
	RegHI  Reg = 65
	RegFCC Reg = 66

	// NumRegs is the number of trackable registers.
	NumRegs = 67
)

// GPR returns the Reg of general-purpose register n.
func GPR(n uint8) Reg { return Reg(n & 31) }

// FPR returns the Reg of floating-point register n.
func FPR(n uint8) Reg { return Reg(32 + n&31) }

// IsZero reports whether r is the hardwired zero register R0.
func (r Reg) IsZero() bool { return r == 0 }

func (r Reg) String() string {
	switch {
	case r < 32:
		return fmt.Sprintf("R%d", r)
	case r < 64:
		return fmt.Sprintf("F%d", r-32)
	case r == RegLO:
		return "LO"
	case r == RegHI:
		return "HI"
	case r == RegFCC:
		return "FCC"
	default:
		return fmt.Sprintf("Reg(%d)", uint8(r))
	}
}

// Instruction represents one assembled MIPS64 instruction.
type Instruction struct {
	Op Op

	// Integer register operands.
	Rd, Rs, Rt uint8
	// Floating-point register operands.
	Fd, Fs, Ft uint8
	// Sa is the shift amount.
	Sa uint8
	// Imm is the sign-extended immediate, memory offset or syscall code.
	Imm int64

	// TargetLabel is the symbolic branch or jump target.
	TargetLabel string
	// Target is the resolved absolute byte address of the branch or jump.
	Target uint64

	// Address is the byte offset in code memory.
	Address uint64
	// Line is the 1-based source line.
	Line int
	// Label is the label defined on the source line, if any.
	Label string
	// Comment is the source comment, if any.
	Comment string
	// Text is the source text as written, without label and comment.
	Text string
}

// Name returns the mnemonic.
func (i *Instruction) Name() string { return i.Op.String() }

// Class returns the pipeline class.
func (i *Instruction) Class() Class { return i.Op.Class() }

// Sources returns the registers the instruction reads.
func (i *Instruction) Sources() []Reg {
	switch i.Op {
	case OpMFLO:
		return []Reg{RegLO}
	case OpMFHI:
		return []Reg{RegHI}
	case OpBC1T, OpBC1F:
		return []Reg{RegFCC}
	case OpMTC1, OpDMTC1:
		return []Reg{GPR(i.Rt)}
	case OpMFC1, OpDMFC1:
		return []Reg{FPR(i.Fs)}
	case OpSYSCALL:
		return []Reg{GPR(14)}
	}

	switch i.Op.Syntax() {
	case SyntaxRdRsRt, SyntaxRdRtRs, SyntaxRsRt, SyntaxRsRtLabel:
		return []Reg{GPR(i.Rs), GPR(i.Rt)}
	case SyntaxRdRtSa:
		return []Reg{GPR(i.Rt)}
	case SyntaxRtRsImm, SyntaxRsLabel, SyntaxRs:
		return []Reg{GPR(i.Rs)}
	case SyntaxRtOffRs:
		if i.Class() == ClassStore {
			return []Reg{GPR(i.Rs), GPR(i.Rt)}
		}
		return []Reg{GPR(i.Rs)}
	case SyntaxFtOffRs:
		if i.Class() == ClassStore {
			return []Reg{GPR(i.Rs), FPR(i.Ft)}
		}
		return []Reg{GPR(i.Rs)}
	case SyntaxFdFsFt, SyntaxFsFt:
		return []Reg{FPR(i.Fs), FPR(i.Ft)}
	case SyntaxFdFs:
		return []Reg{FPR(i.Fs)}
	}

	return nil
}

// Dests returns the registers the instruction writes. R0 is never reported.
func (i *Instruction) Dests() []Reg {
	var dests []Reg

	switch i.Op {
	case OpDMULT, OpDMULTU, OpDDIV, OpDDIVU:
		return []Reg{RegLO, RegHI}
	case OpJAL, OpJALR:
		dests = []Reg{GPR(31)}
	case OpMTC1, OpDMTC1:
		return []Reg{FPR(i.Fs)}
	case OpMFC1, OpDMFC1:
		dests = []Reg{GPR(i.Rt)}
	case OpCEQD, OpCLTD, OpCLED:
		return []Reg{RegFCC}
	case OpSYSCALL:
		// SYSCALL 0 exits without a result.
		if i.Imm != 0 {
			dests = []Reg{GPR(1)}
		}
	default:
		switch i.Op.Syntax() {
		case SyntaxRdRsRt, SyntaxRdRtRs, SyntaxRdRtSa, SyntaxRd:
			dests = []Reg{GPR(i.Rd)}
		case SyntaxRtRsImm, SyntaxRtImm:
			dests = []Reg{GPR(i.Rt)}
		case SyntaxRtOffRs:
			if i.Class() == ClassLoad {
				dests = []Reg{GPR(i.Rt)}
			}
		case SyntaxFtOffRs:
			if i.Class() == ClassLoad {
				return []Reg{FPR(i.Ft)}
			}
		case SyntaxFdFsFt, SyntaxFdFs:
			return []Reg{FPR(i.Fd)}
		}
	}

	out := dests[:0]
	for _, r := range dests {
		if !r.IsZero() {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}

	return out
}

// BranchOffset returns the signed word offset from the delay slot to Target.
func (i *Instruction) BranchOffset() int64 {
	return (int64(i.Target) - int64(i.Address+4)) >> 2
}

// Encode returns the 32-bit machine word.
func (i *Instruction) Encode() uint32 {
	if i.Op >= numOps {
		return 0
	}

	info := opTable[i.Op]
	rs, rt, rd := uint32(i.Rs&31), uint32(i.Rt&31), uint32(i.Rd&31)

	switch info.enc {
	case encR:
		if i.Op.Syntax() == SyntaxRd {
			rs, rt = 0, 0
		}
		if i.Op == OpJALR {
			rd = 31
		}
		return rs<<21 | rt<<16 | rd<<11 | uint32(i.Sa&31)<<6 | info.code
	case encI:
		if i.Op.Syntax() == SyntaxFtOffRs {
			rt = uint32(i.Ft & 31)
		}
		return info.code<<26 | rs<<21 | rt<<16 | uint32(uint16(i.Imm))
	case encBranch:
		switch i.Op.Syntax() {
		case SyntaxLabel:
			rs, rt = 0, 0
		case SyntaxRsLabel:
			rt = 0
		}
		return info.code<<26 | rs<<21 | rt<<16 | uint32(uint16(i.BranchOffset()))
	case encJ:
		return info.code<<26 | uint32(i.Target>>2)&0x03FFFFFF
	case encFR:
		return 0x11<<26 | 0x11<<21 | uint32(i.Ft&31)<<16 |
			uint32(i.Fs&31)<<11 | uint32(i.Fd&31)<<6 | info.code
	case encFMove:
		return 0x11<<26 | info.code<<21 | rt<<16 | uint32(i.Fs&31)<<11
	case encBC1:
		return 0x11<<26 | 0x08<<21 | info.code<<16 | uint32(uint16(i.BranchOffset()))
	default:
		if i.Op == OpSYSCALL {
			return uint32(i.Imm&0xFFFFF)<<6 | info.code
		}
		return info.code
	}
}

// Format returns the canonical assembly text of the instruction.
func (i *Instruction) Format() string {
	name := i.Op.String()
	target := i.TargetLabel
	if target == "" {
		target = fmt.Sprintf("%d", i.Target)
	}

	var ops []string

	switch i.Op.Syntax() {
	case SyntaxRdRsRt:
		ops = []string{gpr(i.Rd), gpr(i.Rs), gpr(i.Rt)}
	case SyntaxRdRtRs:
		ops = []string{gpr(i.Rd), gpr(i.Rt), gpr(i.Rs)}
	case SyntaxRdRtSa:
		ops = []string{gpr(i.Rd), gpr(i.Rt), fmt.Sprintf("%d", i.Sa)}
	case SyntaxRtRsImm:
		ops = []string{gpr(i.Rt), gpr(i.Rs), fmt.Sprintf("%d", i.Imm)}
	case SyntaxRtImm:
		ops = []string{gpr(i.Rt), fmt.Sprintf("%d", i.Imm)}
	case SyntaxRsRt:
		ops = []string{gpr(i.Rs), gpr(i.Rt)}
	case SyntaxRd:
		ops = []string{gpr(i.Rd)}
	case SyntaxRtOffRs:
		ops = []string{gpr(i.Rt), fmt.Sprintf("%d(%s)", i.Imm, gpr(i.Rs))}
	case SyntaxFtOffRs:
		ops = []string{fpr(i.Ft), fmt.Sprintf("%d(%s)", i.Imm, gpr(i.Rs))}
	case SyntaxRsRtLabel:
		ops = []string{gpr(i.Rs), gpr(i.Rt), target}
	case SyntaxRsLabel:
		ops = []string{gpr(i.Rs), target}
	case SyntaxLabel:
		ops = []string{target}
	case SyntaxRs:
		ops = []string{gpr(i.Rs)}
	case SyntaxFdFsFt:
		ops = []string{fpr(i.Fd), fpr(i.Fs), fpr(i.Ft)}
	case SyntaxFdFs:
		ops = []string{fpr(i.Fd), fpr(i.Fs)}
	case SyntaxFsFt:
		ops = []string{fpr(i.Fs), fpr(i.Ft)}
	case SyntaxRtFs:
		ops = []string{gpr(i.Rt), fpr(i.Fs)}
	case SyntaxImmOpt:
		ops = []string{fmt.Sprintf("%d", i.Imm)}
	}

	if len(ops) == 0 {
		return name
	}

	return name + " " + strings.Join(ops, ", ")
}

func gpr(n uint8) string { return fmt.Sprintf("R%d", n&31) }
func fpr(n uint8) string { return fmt.Sprintf("F%d", n&31) }
