// Package insts provides MIPS64 instruction definitions and encoding.
//
// This package describes the subset of the MIPS64 instruction set understood
// by the assembler and the pipeline:
//   - Integer ALU: DADD, DADDI, AND, ORI, SLT, DSLL, LUI, ...
//   - Multiply/divide through LO/HI: DMULT, DDIV, MFLO, MFHI
//   - Loads and stores: LB ... LD, SB ... SD, L.D, S.D
//   - Control flow: B, BEQ, BNE, BEQZ, BNEZ, J, JAL, JR, JALR, BC1T, BC1F
//   - Double precision FP: ADD.D, SUB.D, MUL.D, DIV.D, MOV.D, C.xx.D, MTC1, MFC1
//   - Machine control: NOP, HALT, BREAK, SYSCALL
//
// Usage:
//
//	inst := &insts.Instruction{Op: insts.OpDADDI, Rt: 1, Rs: 0, Imm: 5}
//	fmt.Printf("%s => 0x%08X\n", inst.Format(), inst.Encode())
package insts
