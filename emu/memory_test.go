package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/legsim/emu"
)

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory()
	})

	It("should read zero from untouched addresses", func() {
		Expect(memory.Read64(0xDEAD0000)).To(Equal(uint64(0)))
	})

	It("should store little-endian words across a page boundary", func() {
		memory.Write64(0xFFC, 0x0102030405060708)

		Expect(memory.Read8(0xFFC)).To(Equal(byte(0x08)))
		Expect(memory.Read32(0x1000)).To(Equal(uint32(0x01020304)))
		Expect(memory.Read64(0xFFC)).To(Equal(uint64(0x0102030405060708)))
	})

	It("should read and write sized values", func() {
		memory.WriteSized(0x40, 2, 0xAABBCCDD)

		Expect(memory.Read16(0x40)).To(Equal(uint16(0xCCDD)))
		Expect(memory.ReadSized(0x40, 4)).To(Equal(uint64(0xCCDD)))
	})

	It("should clone independently", func() {
		memory.Write32(0x100, 1)
		clone := memory.Clone()
		clone.Write32(0x100, 2)

		Expect(memory.Read32(0x100)).To(Equal(uint32(1)))
		Expect(clone.Read32(0x100)).To(Equal(uint32(2)))
	})
})

var _ = Describe("RegFile", func() {
	It("should hard-wire register 31 to zero", func() {
		regFile := &emu.RegFile{}
		regFile.WriteReg(31, 5)
		regFile.WriteReg(30, 6)

		Expect(regFile.ReadReg(31)).To(Equal(uint64(0)))
		Expect(regFile.ReadReg(30)).To(Equal(uint64(6)))
	})

	It("should derive N and Z from a result", func() {
		Expect(emu.FlagsFor(0)).To(Equal(emu.Flags{Z: true}))
		Expect(emu.FlagsFor(1 << 63)).To(Equal(emu.Flags{N: true}))
	})
})
