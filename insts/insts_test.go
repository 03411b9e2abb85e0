package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m64sim/insts"
)

var _ = Describe("Insts Package", func() {
	It("should look up mnemonics case-insensitively", func() {
		op, ok := insts.Lookup("daddi")
		Expect(ok).To(BeTrue())
		Expect(op).To(Equal(insts.OpDADDI))

		op, ok = insts.Lookup("l.d")
		Expect(ok).To(BeTrue())
		Expect(op).To(Equal(insts.OpLDC1))

		_, ok = insts.Lookup("FOO")
		Expect(ok).To(BeFalse())
	})

	It("should classify instructions", func() {
		Expect(insts.OpLD.Class()).To(Equal(insts.ClassLoad))
		Expect(insts.OpMULD.Class().IsFP()).To(BeTrue())
		Expect(insts.OpBNEZ.Class().IsControl()).To(BeTrue())
		Expect(insts.OpHALT.Class()).To(Equal(insts.ClassHalt))
	})

	Describe("Encode", func() {
		It("should encode the fixed words", func() {
			Expect((&insts.Instruction{Op: insts.OpHALT}).Encode()).
				To(Equal(uint32(0x04000000)))
			Expect((&insts.Instruction{Op: insts.OpNOP}).Encode()).
				To(BeZero())
			Expect((&insts.Instruction{Op: insts.OpBREAK}).Encode()).
				To(Equal(uint32(0x0000000D)))
		})

		It("should encode R-type instructions", func() {
			inst := &insts.Instruction{Op: insts.OpDADD, Rd: 3, Rs: 1, Rt: 2}
			Expect(inst.Encode()).To(Equal(uint32(0x0022182C)))
		})

		It("should encode I-type instructions", func() {
			inst := &insts.Instruction{Op: insts.OpDADDI, Rt: 1, Rs: 0, Imm: 5}
			Expect(inst.Encode()).To(Equal(uint32(0x60010005)))

			inst = &insts.Instruction{Op: insts.OpDADDI, Rt: 1, Rs: 1, Imm: -1}
			Expect(inst.Encode()).To(Equal(uint32(0x6021FFFF)))
		})

		It("should encode loads with the base register in rs", func() {
			inst := &insts.Instruction{Op: insts.OpLD, Rt: 2, Rs: 3, Imm: 8}
			Expect(inst.Encode()).To(Equal(uint32(0xDC620008)))
		})

		It("should encode branch offsets relative to the next instruction", func() {
			inst := &insts.Instruction{
				Op: insts.OpBNE, Rs: 1, Rt: 0, Address: 8, Target: 0,
			}
			Expect(inst.BranchOffset()).To(Equal(int64(-3)))
			Expect(inst.Encode()).To(Equal(uint32(0x1420FFFD)))
		})

		It("should encode jumps as word addresses", func() {
			inst := &insts.Instruction{Op: insts.OpJ, Target: 16}
			Expect(inst.Encode()).To(Equal(uint32(0x08000004)))
		})

		It("should encode FP arithmetic in COP1", func() {
			inst := &insts.Instruction{Op: insts.OpADDD, Fd: 2, Fs: 0, Ft: 1}
			Expect(inst.Encode()).To(Equal(uint32(0x46210080)))
		})
	})

	Describe("Sources and Dests", func() {
		It("should never report R0 as a destination", func() {
			inst := &insts.Instruction{Op: insts.OpDADDI, Rt: 0, Rs: 1, Imm: 1}
			Expect(inst.Dests()).To(BeEmpty())
		})

		It("should report LO and HI for multiplies", func() {
			inst := &insts.Instruction{Op: insts.OpDMULT, Rs: 1, Rt: 2}
			Expect(inst.Dests()).To(ConsistOf(insts.RegLO, insts.RegHI))
			Expect(inst.Sources()).To(Equal([]insts.Reg{insts.GPR(1), insts.GPR(2)}))
		})

		It("should read the stored value on stores", func() {
			inst := &insts.Instruction{Op: insts.OpSD, Rt: 4, Rs: 5}
			Expect(inst.Sources()).To(ConsistOf(insts.GPR(5), insts.GPR(4)))
			Expect(inst.Dests()).To(BeEmpty())
		})

		It("should write R1 only for system calls that return a value", func() {
			printf := &insts.Instruction{Op: insts.OpSYSCALL, Imm: 5}
			Expect(printf.Dests()).To(Equal([]insts.Reg{insts.GPR(1)}))

			exit := &insts.Instruction{Op: insts.OpSYSCALL, Imm: 0}
			Expect(exit.Dests()).To(BeEmpty())
		})

		It("should track FP registers separately", func() {
			inst := &insts.Instruction{Op: insts.OpMULD, Fd: 4, Fs: 2, Ft: 4}
			Expect(inst.Dests()).To(Equal([]insts.Reg{insts.FPR(4)}))
			Expect(inst.Sources()).To(ContainElement(insts.FPR(2)))
			Expect(insts.FPR(4).String()).To(Equal("F4"))
		})
	})

	Describe("Format", func() {
		It("should format operands in source order", func() {
			Expect((&insts.Instruction{Op: insts.OpLD, Rt: 1, Rs: 2, Imm: 16}).Format()).
				To(Equal("LD R1, 16(R2)"))
			Expect((&insts.Instruction{Op: insts.OpBEQZ, Rs: 3, TargetLabel: "loop"}).Format()).
				To(Equal("BEQZ R3, loop"))
			Expect((&insts.Instruction{Op: insts.OpHALT}).Format()).To(Equal("HALT"))
			Expect((&insts.Instruction{Op: insts.OpDIVD, Fd: 0, Fs: 1, Ft: 2}).Format()).
				To(Equal("DIV.D F0, F1, F2"))
		})
	})
})
