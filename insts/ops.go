package insts

import "strings"

// Op represents a MIPS64 opcode.
type Op uint16

// MIPS64 opcodes.
const (
	OpUnknown Op = iota

	// Integer ALU, register form
	OpDADD
	OpDADDU
	OpDSUB
	OpDSUBU
	OpAND
	OpOR
	OpXOR
	OpNOR
	OpSLT
	OpSLTU
	OpDSLLV
	OpDSRLV
	OpDSRAV

	// Integer ALU, shift amount form
	OpDSLL
	OpDSRL
	OpDSRA

	// Integer ALU, immediate form
	OpDADDI
	OpDADDIU
	OpANDI
	OpORI
	OpXORI
	OpSLTI
	OpSLTIU
	OpLUI

	// Multiply and divide
	OpDMULT
	OpDMULTU
	OpDDIV
	OpDDIVU
	OpMFLO
	OpMFHI

	// Loads and stores
	OpLB
	OpLBU
	OpLH
	OpLHU
	OpLW
	OpLWU
	OpLD
	OpSB
	OpSH
	OpSW
	OpSD
	OpLDC1 // L.D
	OpSDC1 // S.D

	// Control flow
	OpB
	OpBEQ
	OpBNE
	OpBEQZ
	OpBNEZ
	OpJ
	OpJAL
	OpJR
	OpJALR
	OpBC1T
	OpBC1F

	// Floating point
	OpADDD
	OpSUBD
	OpMULD
	OpDIVD
	OpMOVD
	OpCEQD
	OpCLTD
	OpCLED
	OpMTC1
	OpMFC1
	OpDMTC1
	OpDMFC1

	// Machine control
	OpNOP
	OpHALT
	OpBREAK
	OpSYSCALL

	numOps
)

// Syntax describes the operand list an opcode takes in assembly source.
type Syntax uint8

// Operand syntaxes.
const (
	SyntaxNone      Syntax = iota // NOP
	SyntaxRdRsRt                  // DADD rd, rs, rt
	SyntaxRdRtRs                  // DSLLV rd, rt, rs
	SyntaxRdRtSa                  // DSLL rd, rt, sa
	SyntaxRtRsImm                 // DADDI rt, rs, imm
	SyntaxRtImm                   // LUI rt, imm
	SyntaxRsRt                    // DMULT rs, rt
	SyntaxRd                      // MFLO rd
	SyntaxRtOffRs                 // LD rt, off(rs)
	SyntaxFtOffRs                 // L.D ft, off(rs)
	SyntaxRsRtLabel               // BEQ rs, rt, label
	SyntaxRsLabel                 // BEQZ rs, label
	SyntaxLabel                   // J label
	SyntaxRs                      // JR rs
	SyntaxFdFsFt                  // ADD.D fd, fs, ft
	SyntaxFdFs                    // MOV.D fd, fs
	SyntaxFsFt                    // C.LT.D fs, ft
	SyntaxRtFs                    // MTC1 rt, fs
	SyntaxImmOpt                  // SYSCALL [code]
)

// Class groups opcodes by the way the pipeline handles them.
type Class uint8

// Instruction classes.
const (
	ClassNop     Class = iota // No effect
	ClassALU                  // Integer result computed in EX
	ClassMulDiv               // Writes LO and HI in EX
	ClassLoad                 // Reads data memory in MEM
	ClassStore                // Writes data memory in MEM
	ClassBranch               // Conditional branch resolved in ID
	ClassJump                 // Unconditional jump resolved in ID
	ClassFPAdd                // FP adder pipeline
	ClassFPMul                // FP multiplier pipeline
	ClassFPDiv                // FP divider
	ClassFPMove               // FP move/compare/transfer computed in EX
	ClassHalt                 // Terminates the program
	ClassBreak                // Breakpoint
	ClassSyscall              // System call handled in MEM
)

// encoding identifies how an opcode is laid out in a machine word.
type encoding uint8

const (
	encFixed encoding = iota // constant word
	encR                     // SPECIAL: rs rt rd sa funct
	encI                     // opcode rs rt imm16
	encBranch                // opcode rs rt offset16
	encJ                     // opcode target26
	encFR                    // COP1 fmt=D: ft fs fd funct
	encFMove                 // COP1 sub rt fs
	encBC1                   // COP1 BC: tf offset16
)

type opInfo struct {
	name   string
	syntax Syntax
	class  Class
	enc    encoding
	code   uint32 // opcode, funct, COP1 sub-opcode or fixed word
}

var opTable = [numOps]opInfo{
	OpUnknown: {"UNKNOWN", SyntaxNone, ClassNop, encFixed, 0},

	OpDADD:  {"DADD", SyntaxRdRsRt, ClassALU, encR, 0x2C},
	OpDADDU: {"DADDU", SyntaxRdRsRt, ClassALU, encR, 0x2D},
	OpDSUB:  {"DSUB", SyntaxRdRsRt, ClassALU, encR, 0x2E},
	OpDSUBU: {"DSUBU", SyntaxRdRsRt, ClassALU, encR, 0x2F},
	OpAND:   {"AND", SyntaxRdRsRt, ClassALU, encR, 0x24},
	OpOR:    {"OR", SyntaxRdRsRt, ClassALU, encR, 0x25},
	OpXOR:   {"XOR", SyntaxRdRsRt, ClassALU, encR, 0x26},
	OpNOR:   {"NOR", SyntaxRdRsRt, ClassALU, encR, 0x27},
	OpSLT:   {"SLT", SyntaxRdRsRt, ClassALU, encR, 0x2A},
	OpSLTU:  {"SLTU", SyntaxRdRsRt, ClassALU, encR, 0x2B},
	OpDSLLV: {"DSLLV", SyntaxRdRtRs, ClassALU, encR, 0x14},
	OpDSRLV: {"DSRLV", SyntaxRdRtRs, ClassALU, encR, 0x16},
	OpDSRAV: {"DSRAV", SyntaxRdRtRs, ClassALU, encR, 0x17},

	OpDSLL: {"DSLL", SyntaxRdRtSa, ClassALU, encR, 0x38},
	OpDSRL: {"DSRL", SyntaxRdRtSa, ClassALU, encR, 0x3A},
	OpDSRA: {"DSRA", SyntaxRdRtSa, ClassALU, encR, 0x3B},

	OpDADDI:  {"DADDI", SyntaxRtRsImm, ClassALU, encI, 0x18},
	OpDADDIU: {"DADDIU", SyntaxRtRsImm, ClassALU, encI, 0x19},
	OpANDI:   {"ANDI", SyntaxRtRsImm, ClassALU, encI, 0x0C},
	OpORI:    {"ORI", SyntaxRtRsImm, ClassALU, encI, 0x0D},
	OpXORI:   {"XORI", SyntaxRtRsImm, ClassALU, encI, 0x0E},
	OpSLTI:   {"SLTI", SyntaxRtRsImm, ClassALU, encI, 0x0A},
	OpSLTIU:  {"SLTIU", SyntaxRtRsImm, ClassALU, encI, 0x0B},
	OpLUI:    {"LUI", SyntaxRtImm, ClassALU, encI, 0x0F},

	OpDMULT:  {"DMULT", SyntaxRsRt, ClassMulDiv, encR, 0x1C},
	OpDMULTU: {"DMULTU", SyntaxRsRt, ClassMulDiv, encR, 0x1D},
	OpDDIV:   {"DDIV", SyntaxRsRt, ClassMulDiv, encR, 0x1E},
	OpDDIVU:  {"DDIVU", SyntaxRsRt, ClassMulDiv, encR, 0x1F},
	OpMFLO:   {"MFLO", SyntaxRd, ClassALU, encR, 0x12},
	OpMFHI:   {"MFHI", SyntaxRd, ClassALU, encR, 0x10},

	OpLB:   {"LB", SyntaxRtOffRs, ClassLoad, encI, 0x20},
	OpLBU:  {"LBU", SyntaxRtOffRs, ClassLoad, encI, 0x24},
	OpLH:   {"LH", SyntaxRtOffRs, ClassLoad, encI, 0x21},
	OpLHU:  {"LHU", SyntaxRtOffRs, ClassLoad, encI, 0x25},
	OpLW:   {"LW", SyntaxRtOffRs, ClassLoad, encI, 0x23},
	OpLWU:  {"LWU", SyntaxRtOffRs, ClassLoad, encI, 0x27},
	OpLD:   {"LD", SyntaxRtOffRs, ClassLoad, encI, 0x37},
	OpSB:   {"SB", SyntaxRtOffRs, ClassStore, encI, 0x28},
	OpSH:   {"SH", SyntaxRtOffRs, ClassStore, encI, 0x29},
	OpSW:   {"SW", SyntaxRtOffRs, ClassStore, encI, 0x2B},
	OpSD:   {"SD", SyntaxRtOffRs, ClassStore, encI, 0x3F},
	OpLDC1: {"L.D", SyntaxFtOffRs, ClassLoad, encI, 0x35},
	OpSDC1: {"S.D", SyntaxFtOffRs, ClassStore, encI, 0x3D},

	OpB:    {"B", SyntaxLabel, ClassJump, encBranch, 0x04},
	OpBEQ:  {"BEQ", SyntaxRsRtLabel, ClassBranch, encBranch, 0x04},
	OpBNE:  {"BNE", SyntaxRsRtLabel, ClassBranch, encBranch, 0x05},
	OpBEQZ: {"BEQZ", SyntaxRsLabel, ClassBranch, encBranch, 0x04},
	OpBNEZ: {"BNEZ", SyntaxRsLabel, ClassBranch, encBranch, 0x05},
	OpJ:    {"J", SyntaxLabel, ClassJump, encJ, 0x02},
	OpJAL:  {"JAL", SyntaxLabel, ClassJump, encJ, 0x03},
	OpJR:   {"JR", SyntaxRs, ClassJump, encR, 0x08},
	OpJALR: {"JALR", SyntaxRs, ClassJump, encR, 0x09},
	OpBC1T: {"BC1T", SyntaxLabel, ClassBranch, encBC1, 1},
	OpBC1F: {"BC1F", SyntaxLabel, ClassBranch, encBC1, 0},

	OpADDD:  {"ADD.D", SyntaxFdFsFt, ClassFPAdd, encFR, 0x00},
	OpSUBD:  {"SUB.D", SyntaxFdFsFt, ClassFPAdd, encFR, 0x01},
	OpMULD:  {"MUL.D", SyntaxFdFsFt, ClassFPMul, encFR, 0x02},
	OpDIVD:  {"DIV.D", SyntaxFdFsFt, ClassFPDiv, encFR, 0x03},
	OpMOVD:  {"MOV.D", SyntaxFdFs, ClassFPMove, encFR, 0x06},
	OpCEQD:  {"C.EQ.D", SyntaxFsFt, ClassFPMove, encFR, 0x32},
	OpCLTD:  {"C.LT.D", SyntaxFsFt, ClassFPMove, encFR, 0x3C},
	OpCLED:  {"C.LE.D", SyntaxFsFt, ClassFPMove, encFR, 0x3E},
	OpMTC1:  {"MTC1", SyntaxRtFs, ClassFPMove, encFMove, 0x04},
	OpMFC1:  {"MFC1", SyntaxRtFs, ClassFPMove, encFMove, 0x00},
	OpDMTC1: {"DMTC1", SyntaxRtFs, ClassFPMove, encFMove, 0x05},
	OpDMFC1: {"DMFC1", SyntaxRtFs, ClassFPMove, encFMove, 0x01},

	OpNOP:     {"NOP", SyntaxNone, ClassNop, encFixed, 0x00000000},
	OpHALT:    {"HALT", SyntaxNone, ClassHalt, encFixed, 0x04000000},
	OpBREAK:   {"BREAK", SyntaxNone, ClassBreak, encFixed, 0x0000000D},
	OpSYSCALL: {"SYSCALL", SyntaxImmOpt, ClassSyscall, encFixed, 0x0000000C},
}

var opByName = func() map[string]Op {
	m := make(map[string]Op, numOps)
	for op := OpUnknown + 1; op < numOps; op++ {
		m[opTable[op].name] = op
	}
	return m
}()

// Lookup returns the opcode for a mnemonic, case-insensitively.
func Lookup(mnemonic string) (Op, bool) {
	op, ok := opByName[strings.ToUpper(mnemonic)]
	return op, ok
}

// String returns the mnemonic.
func (op Op) String() string {
	if op >= numOps {
		return "UNKNOWN"
	}
	return opTable[op].name
}

// Syntax returns the operand syntax of the opcode.
func (op Op) Syntax() Syntax {
	if op >= numOps {
		return SyntaxNone
	}
	return opTable[op].syntax
}

// Class returns the pipeline class of the opcode.
func (op Op) Class() Class {
	if op >= numOps {
		return ClassNop
	}
	return opTable[op].class
}

// IsFP reports whether the opcode runs on an FP functional unit.
func (c Class) IsFP() bool {
	return c == ClassFPAdd || c == ClassFPMul || c == ClassFPDiv
}

// IsControl reports whether the opcode redirects the program counter.
func (c Class) IsControl() bool {
	return c == ClassBranch || c == ClassJump
}
