package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/legsim/insts"
)

var _ = Describe("Insts Package", func() {
	DescribeTable("layout dependency shapes",
		func(layout insts.Layout, isStore, usesReg1, usesReg2 bool) {
			r1, r2 := layout.Sources(isStore)
			Expect(r1).To(Equal(usesReg1))
			Expect(r2).To(Equal(usesReg2))
		},
		Entry("R", insts.LayoutR, false, true, true),
		Entry("I", insts.LayoutI, false, true, false),
		Entry("BR", insts.LayoutBR, false, true, false),
		Entry("CB", insts.LayoutCB, false, false, true),
		Entry("D load", insts.LayoutD, false, true, false),
		Entry("D store", insts.LayoutD, true, true, true),
		Entry("B", insts.LayoutB, false, false, false),
		Entry("IM", insts.LayoutIM, false, false, false),
		Entry("BC", insts.LayoutBC, false, false, false),
		Entry("NOP", insts.LayoutNOP, false, false, false),
	)

	DescribeTable("condition evaluation",
		func(cond insts.Cond, n, z, holds bool) {
			Expect(cond.Holds(n, z)).To(Equal(holds))
		},
		Entry("EQ on zero", insts.CondEQ, false, true, true),
		Entry("NE on zero", insts.CondNE, false, true, false),
		Entry("GE on negative", insts.CondGE, true, false, false),
		Entry("LT on negative", insts.CondLT, true, false, true),
		Entry("GT on positive", insts.CondGT, false, false, true),
		Entry("GT on zero", insts.CondGT, false, true, false),
		Entry("LE on zero", insts.CondLE, false, true, true),
	)

	DescribeTable("condition support",
		func(cond insts.Cond, valid bool) {
			Expect(cond.Valid()).To(Equal(valid))
		},
		Entry("EQ", insts.CondEQ, true),
		Entry("NE", insts.CondNE, true),
		Entry("GE", insts.CondGE, true),
		Entry("LT", insts.CondLT, true),
		Entry("GT", insts.CondGT, true),
		Entry("LE", insts.CondLE, true),
		Entry("CS", insts.Cond(0b0010), false),
		Entry("VS", insts.Cond(0b0110), false),
		Entry("AL", insts.Cond(0b1110), false),
	)

	It("should panic on a layout it does not know", func() {
		Expect(func() { insts.Layout(200).Sources(false) }).To(Panic())
	})

	It("should name opcodes", func() {
		Expect(insts.OpBCond.String()).To(Equal("B.cond"))
		Expect(insts.OpLDURB.String()).To(Equal("LDURB"))
		Expect(insts.OpLDURB.IsLoad()).To(BeTrue())
		Expect(insts.OpSTURH.IsStore()).To(BeTrue())
		Expect(insts.OpMOVZ.IsLoad()).To(BeFalse())
	})
})
