// Package emu provides functional MIPS64 emulation.
package emu

import (
	"fmt"
	"strings"

	"github.com/sarchlab/m64sim/insts"
)

// FCSR bit holding the FP condition flag set by C.xx.D.
const fccBit = 23

// gprAliases holds the ABI names of the general-purpose registers.
var gprAliases = [32]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

// RegFile represents the MIPS64 register file.
// It contains 32 general-purpose registers (R0-R31), 32 floating-point
// registers (F0-F31), the LO/HI multiply-divide registers and FCSR.
type RegFile struct {
	// GPR holds general-purpose registers. GPR[0] always reads as 0.
	GPR [32]uint64

	// FPR holds the raw bits of the floating-point registers.
	FPR [32]uint64

	LO uint64
	HI uint64

	// FCSR is the floating-point control and status register.
	FCSR uint32
}

// ReadGPR reads a general-purpose register. R0 returns 0.
func (r *RegFile) ReadGPR(n uint8) uint64 {
	n &= 31
	if n == 0 {
		return 0
	}
	return r.GPR[n]
}

// WriteGPR writes a general-purpose register. Writes to R0 are ignored.
func (r *RegFile) WriteGPR(n uint8, value uint64) {
	n &= 31
	if n == 0 {
		return
	}
	r.GPR[n] = value
}

// FCC returns the FP condition flag.
func (r *RegFile) FCC() bool {
	return r.FCSR&(1<<fccBit) != 0
}

// SetFCC sets or clears the FP condition flag.
func (r *RegFile) SetFCC(v bool) {
	if v {
		r.FCSR |= 1 << fccBit
		return
	}
	r.FCSR &^= 1 << fccBit
}

// Read reads any trackable register.
func (r *RegFile) Read(reg insts.Reg) uint64 {
	switch {
	case reg < 32:
		return r.ReadGPR(uint8(reg))
	case reg < 64:
		return r.FPR[reg-32]
	case reg == insts.RegLO:
		return r.LO
	case reg == insts.RegHI:
		return r.HI
	case reg == insts.RegFCC:
		if r.FCC() {
			return 1
		}
		return 0
	}
	return 0
}

// Write writes any trackable register.
func (r *RegFile) Write(reg insts.Reg, value uint64) {
	switch {
	case reg < 32:
		r.WriteGPR(uint8(reg), value)
	case reg < 64:
		r.FPR[reg-32] = value
	case reg == insts.RegLO:
		r.LO = value
	case reg == insts.RegHI:
		r.HI = value
	case reg == insts.RegFCC:
		r.SetFCC(value != 0)
	}
}

// Reset clears every register.
func (r *RegFile) Reset() {
	*r = RegFile{}
}

// GPRName returns the canonical name of general-purpose register n.
func GPRName(n int) string { return fmt.Sprintf("R%d", n) }

// GPRAlias returns the ABI name of general-purpose register n.
func GPRAlias(n int) string {
	if n < 0 || n >= len(gprAliases) {
		return ""
	}
	return gprAliases[n]
}

// FPRName returns the canonical name of floating-point register n.
func FPRName(n int) string { return fmt.Sprintf("F%d", n) }

// LookupGPR resolves "R4", "r4", "$4" or an ABI alias like "a0" or "$a0".
func LookupGPR(name string) (uint8, bool) {
	return lookupReg(name, 'r', gprAliases[:])
}

// LookupFPR resolves "F2" or "f2".
func LookupFPR(name string) (uint8, bool) {
	return lookupReg(name, 'f', nil)
}

func lookupReg(name string, prefix byte, aliases []string) (uint8, bool) {
	if name == "" {
		return 0, false
	}

	s := name
	if s[0] == '$' {
		s = s[1:]
	} else if s[0] == prefix || s[0] == prefix-32 {
		s = s[1:]
	} else if aliases == nil {
		return 0, false
	}

	if n, ok := parseRegNumber(s); ok {
		return n, true
	}

	for i, a := range aliases {
		if strings.EqualFold(a, s) || strings.EqualFold(a, name) {
			return uint8(i), true
		}
	}

	return 0, false
}

func parseRegNumber(s string) (uint8, bool) {
	if s == "" || len(s) > 2 {
		return 0, false
	}

	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n > 31 {
		return 0, false
	}

	return uint8(n), true
}
