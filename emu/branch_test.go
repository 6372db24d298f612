package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/legsim/emu"
	"github.com/sarchlab/legsim/insts"
)

var _ = Describe("BranchUnit", func() {
	var (
		regFile    *emu.RegFile
		alu        *emu.ALU
		branchUnit *emu.BranchUnit
		decoder    *insts.Decoder
	)

	decode := func(word uint32) *insts.Instruction {
		inst, err := decoder.Decode(word)
		Expect(err).NotTo(HaveOccurred())
		return inst
	}

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		regFile.PC = 0x1000
		alu = emu.NewALU(regFile)
		branchUnit = emu.NewBranchUnit(regFile)
		decoder = insts.NewDecoder()
	})

	Describe("B", func() {
		It("should branch forward", func() {
			taken, next := branchUnit.Resolve(decode(insts.EncodeB(25)))

			Expect(taken).To(BeTrue())
			Expect(next).To(Equal(uint64(0x1000 + 100)))
		})

		It("should branch backward", func() {
			_, next := branchUnit.Resolve(decode(insts.EncodeB(-25)))

			Expect(next).To(Equal(uint64(0x1000 - 100)))
		})

		It("should spin on a zero offset", func() {
			_, next := branchUnit.Resolve(decode(insts.EncodeB(0)))

			Expect(next).To(Equal(uint64(0x1000)))
		})
	})

	Describe("BR", func() {
		It("should jump to the register value", func() {
			regFile.WriteReg(9, 0x400020)

			taken, next := branchUnit.Resolve(decode(insts.EncodeBR(9)))

			Expect(taken).To(BeTrue())
			Expect(next).To(Equal(uint64(0x400020)))
		})
	})

	Describe("CBZ and CBNZ", func() {
		It("should take CBZ only on zero", func() {
			taken, next := branchUnit.Resolve(decode(insts.EncodeCBZ(3, 4)))
			Expect(taken).To(BeTrue())
			Expect(next).To(Equal(uint64(0x1010)))

			regFile.WriteReg(3, 1)
			taken, next = branchUnit.Resolve(decode(insts.EncodeCBZ(3, 4)))
			Expect(taken).To(BeFalse())
			Expect(next).To(Equal(uint64(0x1004)))
		})

		It("should take CBNZ only on non-zero", func() {
			regFile.WriteReg(3, 0xFFFF_FFFF_FFFF_FFFF)

			taken, _ := branchUnit.Resolve(decode(insts.EncodeCBNZ(3, -1)))

			Expect(taken).To(BeTrue())
		})

		It("should treat XZR as zero", func() {
			taken, _ := branchUnit.Resolve(decode(insts.EncodeCBZ(31, 2)))

			Expect(taken).To(BeTrue())
		})
	})

	DescribeTable("CheckCondition",
		func(cond insts.Cond, n, z, want bool) {
			regFile.Flags = emu.Flags{N: n, Z: z}

			Expect(branchUnit.CheckCondition(cond)).To(Equal(want))
		},
		Entry("EQ with Z", insts.CondEQ, false, true, true),
		Entry("EQ without Z", insts.CondEQ, false, false, false),
		Entry("NE without Z", insts.CondNE, false, false, true),
		Entry("NE with Z", insts.CondNE, false, true, false),
		Entry("GE positive", insts.CondGE, false, false, true),
		Entry("GE negative", insts.CondGE, true, false, false),
		Entry("LT negative", insts.CondLT, true, false, true),
		Entry("LT zero", insts.CondLT, false, true, false),
		Entry("GT positive", insts.CondGT, false, false, true),
		Entry("GT zero", insts.CondGT, false, true, false),
		Entry("LE zero", insts.CondLE, false, true, true),
		Entry("LE negative", insts.CondLE, true, false, true),
		Entry("LE positive", insts.CondLE, false, false, false),
	)

	// The loop pattern: SUBIS X0, X0, #1 / B.NE loop.
	Describe("SUBIS followed by B.NE", func() {
		It("should loop while the counter is non-zero", func() {
			regFile.WriteReg(0, 2)

			alu.Execute(decode(insts.EncodeSUBIS(0, 0, 1)))
			taken, _ := branchUnit.Resolve(decode(insts.EncodeBCond(insts.CondNE, -1)))
			Expect(taken).To(BeTrue())

			alu.Execute(decode(insts.EncodeSUBIS(0, 0, 1)))
			taken, next := branchUnit.Resolve(decode(insts.EncodeBCond(insts.CondNE, -1)))
			Expect(taken).To(BeFalse())
			Expect(next).To(Equal(uint64(0x1004)))
			Expect(regFile.Flags.Z).To(BeTrue())
		})

		It("should compare with CMPI without writing a register", func() {
			regFile.WriteReg(1, 5)

			alu.Execute(decode(insts.EncodeCMPI(1, 7)))

			Expect(regFile.ReadReg(1)).To(Equal(uint64(5)))
			Expect(regFile.Flags).To(Equal(emu.Flags{N: true}))
			Expect(branchUnit.CheckCondition(insts.CondLT)).To(BeTrue())
		})
	})
})
