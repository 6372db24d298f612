package loader_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/legsim/emu"
	"github.com/sarchlab/legsim/insts"
	"github.com/sarchlab/legsim/loader"
)

var _ = Describe("Image Loader", func() {
	Describe("Parse", func() {
		It("should place words at the text base", func() {
			prog, err := loader.Parse(strings.NewReader(
				"910014a1\n0xD4400000\n"))

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.EntryPoint).To(Equal(uint64(0x00400000)))
			Expect(prog.Segments).To(HaveLen(1))
			Expect(prog.Segments[0].Words).To(Equal([]uint32{0x910014a1, 0xD4400000}))
		})

		It("should skip comments and blank lines", func() {
			prog, err := loader.Parse(strings.NewReader(`
# a tiny program
91001421   // ADDI X1, X1, #5

d4400000 # HLT
`))

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Words()).To(Equal(2))
		})

		It("should start a new segment at an address directive", func() {
			prog, err := loader.Parse(strings.NewReader(
				"d4400000\n@10010000\n00000007\n00000009\n"))

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(HaveLen(2))
			Expect(prog.Segments[1].Addr).To(Equal(uint64(0x10010000)))
			Expect(prog.Segments[1].End()).To(Equal(uint64(0x10010008)))
		})

		It("should reject a word that is not hex", func() {
			_, err := loader.Parse(strings.NewReader("d4400000\nzz\n"))

			Expect(err).To(MatchError(ContainSubstring("line 2")))
		})

		It("should reject a word wider than 32 bits", func() {
			_, err := loader.Parse(strings.NewReader("1d4400000\n"))

			Expect(err).To(HaveOccurred())
		})

		It("should reject a misaligned address", func() {
			_, err := loader.Parse(strings.NewReader("@10010002\n00000001\n"))

			Expect(err).To(MatchError(ContainSubstring("word aligned")))
		})

		It("should reject overlapping segments", func() {
			_, err := loader.Parse(strings.NewReader(
				"00000001\n00000002\n@400004\n00000003\n"))

			Expect(err).To(MatchError(ContainSubstring("overlap")))
		})
	})

	Describe("Load", func() {
		It("should read an image file into memory", func() {
			path := filepath.Join(GinkgoT().TempDir(), "prog.hex")
			image := "91001421\nd4400000\n@10010000\ncafef00d\n"
			Expect(os.WriteFile(path, []byte(image), 0644)).To(Succeed())

			prog, err := loader.Load(path)
			Expect(err).NotTo(HaveOccurred())

			memory := emu.NewMemory()
			prog.LoadInto(memory)

			Expect(memory.Read32(0x00400000)).To(Equal(uint32(0x91001421)))
			Expect(memory.Read32(0x00400004)).To(Equal(insts.EncodeHLT()))
			Expect(memory.Read32(0x10010000)).To(Equal(uint32(0xcafef00d)))
		})

		It("should fail on a missing file", func() {
			_, err := loader.Load(filepath.Join(GinkgoT().TempDir(), "missing.hex"))

			Expect(err).To(HaveOccurred())
		})
	})
})
