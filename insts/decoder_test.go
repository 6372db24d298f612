package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/sarchlab/legsim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	decode := func(word uint32) *insts.Instruction {
		inst, err := decoder.Decode(word)
		Expect(err).NotTo(HaveOccurred())
		return inst
	}

	Describe("R-format", func() {
		// ADD X0, X1, X2 -> 0x8B020020
		It("should decode ADD X0, X1, X2", func() {
			inst := decode(0x8B020020)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Layout).To(Equal(insts.LayoutR))
			Expect(inst.Rd).To(Equal(uint8(0)))
			Expect(inst.Rn).To(Equal(uint8(1)))
			Expect(inst.Rm).To(Equal(uint8(2)))
			Expect(inst.ReadRegister2()).To(Equal(uint8(2)))
		})

		It("should decode the extended-register ADD form", func() {
			inst := decode(0x8B226020) // ADD X0, X1, X2, UXTX

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Rm).To(Equal(uint8(2)))
		})

		It("should reject a nonzero register shift", func() {
			_, err := decoder.Decode(0x8B020420) // ADD X0, X1, X2, LSL #1

			Expect(errors.Cause(err)).To(Equal(insts.ErrUnknownOpcode))
		})

		It("should read Rm for MUL even though bit 28 is set", func() {
			inst := decode(insts.EncodeMUL(3, 4, 5))

			Expect(inst.Op).To(Equal(insts.OpMUL))
			Expect(inst.ReadRegister2()).To(Equal(uint8(5)))
		})

		DescribeTable("logical and subtract ops",
			func(word uint32, op insts.Op) {
				Expect(decode(word).Op).To(Equal(op))
			},
			Entry("ADDS", insts.EncodeADDS(1, 2, 3), insts.OpADDS),
			Entry("SUB", insts.EncodeSUB(1, 2, 3), insts.OpSUB),
			Entry("SUBS", insts.EncodeSUBS(1, 2, 3), insts.OpSUBS),
			Entry("AND", insts.EncodeAND(1, 2, 3), insts.OpAND),
			Entry("ANDS", insts.EncodeANDS(1, 2, 3), insts.OpANDS),
			Entry("EOR", insts.EncodeEOR(1, 2, 3), insts.OpEOR),
			Entry("ORR", insts.EncodeORR(1, 2, 3), insts.OpORR),
		)
	})

	Describe("I-format", func() {
		// ADDI X0, X1, #42 -> 0x9100A820
		It("should decode ADDI X0, X1, #42", func() {
			inst := decode(0x9100A820)

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Layout).To(Equal(insts.LayoutI))
			Expect(inst.Imm).To(Equal(int64(42)))
		})

		It("should zero-extend imm12", func() {
			inst := decode(insts.EncodeSUBI(1, 1, 0xFFF))

			Expect(inst.Op).To(Equal(insts.OpSUBI))
			Expect(inst.Imm).To(Equal(int64(0xFFF)))
		})

		It("should apply the LSL #12 immediate shift", func() {
			inst := decode(0x91400420) // ADDI X0, X1, #1, LSL #12

			Expect(inst.Imm).To(Equal(int64(0x1000)))
		})

		It("should decode LSR from UBFM", func() {
			inst := decode(insts.EncodeLSR(1, 2, 4))

			Expect(inst.Op).To(Equal(insts.OpLSR))
			Expect(inst.Imm).To(Equal(int64(4)))
		})

		It("should decode LSL from UBFM", func() {
			inst := decode(insts.EncodeLSL(1, 2, 3))

			Expect(inst.Op).To(Equal(insts.OpLSL))
			Expect(inst.Imm).To(Equal(int64(3)))
		})

		It("should reject other bitfield moves", func() {
			_, err := decoder.Decode(0xD3401C20) // UBFM X0, X1, #0, #7 (UXTB)

			Expect(errors.Cause(err)).To(Equal(insts.ErrUnknownOpcode))
		})
	})

	Describe("D-format", func() {
		// LDUR X2, [X3, #-8] -> 0xF85F8062
		It("should decode LDUR with a negative offset", func() {
			inst := decode(0xF85F8062)

			Expect(inst.Op).To(Equal(insts.OpLDUR))
			Expect(inst.Layout).To(Equal(insts.LayoutD))
			Expect(inst.Rd).To(Equal(uint8(2)))
			Expect(inst.Rn).To(Equal(uint8(3)))
			Expect(inst.Imm).To(Equal(int64(-8)))
			Expect(inst.Size).To(Equal(8))
		})

		DescribeTable("access widths",
			func(word uint32, op insts.Op, size int) {
				inst := decode(word)
				Expect(inst.Op).To(Equal(op))
				Expect(inst.Size).To(Equal(size))
			},
			Entry("LDURW", insts.EncodeLDURW(1, 2, 4), insts.OpLDURW, 4),
			Entry("LDURH", insts.EncodeLDURH(1, 2, 4), insts.OpLDURH, 2),
			Entry("LDURB", insts.EncodeLDURB(1, 2, 4), insts.OpLDURB, 1),
			Entry("STUR", insts.EncodeSTUR(1, 2, 4), insts.OpSTUR, 8),
			Entry("STURW", insts.EncodeSTURW(1, 2, 4), insts.OpSTURW, 4),
			Entry("STURH", insts.EncodeSTURH(1, 2, 4), insts.OpSTURH, 2),
			Entry("STURB", insts.EncodeSTURB(1, 2, 4), insts.OpSTURB, 1),
		)

		It("should read the store data register through port 2", func() {
			inst := decode(insts.EncodeSTUR(7, 2, 16))

			Expect(inst.ReadRegister1()).To(Equal(uint8(2)))
			Expect(inst.ReadRegister2()).To(Equal(uint8(7)))
		})
	})

	Describe("IM-format", func() {
		// MOVZ X1, #0x1234, LSL #16 -> 0xD2A24681
		It("should decode MOVZ with a halfword shift", func() {
			inst := decode(0xD2A24681)

			Expect(inst.Op).To(Equal(insts.OpMOVZ))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(int64(0x12340000)))
		})
	})

	Describe("Branches", func() {
		It("should decode B with a backward offset", func() {
			inst := decode(insts.EncodeB(-2))

			Expect(inst.Op).To(Equal(insts.OpB))
			Expect(inst.Imm).To(Equal(int64(-2)))
		})

		It("should decode BR", func() {
			inst := decode(insts.EncodeBR(9))

			Expect(inst.Op).To(Equal(insts.OpBR))
			Expect(inst.Layout).To(Equal(insts.LayoutBR))
			Expect(inst.Rn).To(Equal(uint8(9)))
		})

		It("should decode CBZ and CBNZ", func() {
			cbz := decode(insts.EncodeCBZ(4, 5))
			cbnz := decode(insts.EncodeCBNZ(4, -5))

			Expect(cbz.Op).To(Equal(insts.OpCBZ))
			Expect(cbz.Imm).To(Equal(int64(5)))
			Expect(cbz.ReadRegister2()).To(Equal(uint8(4)))
			Expect(cbnz.Op).To(Equal(insts.OpCBNZ))
			Expect(cbnz.Imm).To(Equal(int64(-5)))
		})

		// B.EQ +3 -> 0x54000060
		It("should decode B.EQ", func() {
			inst := decode(0x54000060)

			Expect(inst.Op).To(Equal(insts.OpBCond))
			Expect(inst.Cond).To(Equal(insts.CondEQ))
			Expect(inst.Imm).To(Equal(int64(3)))
		})

		It("should reject unsupported conditions", func() {
			_, err := decoder.Decode(0x54000062) // B.CS

			Expect(errors.Cause(err)).To(Equal(insts.ErrUnknownOpcode))
		})
	})

	It("should decode HLT", func() {
		inst := decode(0xD4400000)

		Expect(inst.Op).To(Equal(insts.OpHLT))
		Expect(inst.Layout).To(Equal(insts.LayoutNOP))
	})

	It("should fault on words outside the subset", func() {
		inst, err := decoder.Decode(0x00000000)

		Expect(inst).To(BeNil())
		Expect(errors.Cause(err)).To(Equal(insts.ErrUnknownOpcode))
		Expect(err.Error()).To(ContainSubstring("0x00000000"))
	})
})
