package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/legsim/timing/config"
)

var _ = Describe("Config", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	Describe("Defaults", func() {
		It("should describe the reference machine", func() {
			c := config.DefaultConfig()

			Expect(c.ICache.Sets).To(Equal(64))
			Expect(c.ICache.Ways).To(Equal(4))
			Expect(c.DCache.Sets).To(Equal(256))
			Expect(c.DCache.Ways).To(Equal(8))
			Expect(c.DCache.MissLatency).To(Equal(10))
			Expect(c.Predictor.HistoryBits).To(Equal(uint(8)))
			Expect(c.Predictor.BTBIndexBits).To(Equal(uint(10)))
			Expect(c.EntryPC).To(Equal(uint64(0x00400000)))
			Expect(c.Validate()).To(Succeed())
		})
	})

	Describe("Save and Load", func() {
		It("should round-trip a modified configuration", func() {
			path := filepath.Join(tmpDir, "timing.json")
			c := config.DefaultConfig()
			c.DCache.MissLatency = 25
			c.MaxCycles = 1000

			Expect(c.SaveConfig(path)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(c))
		})

		It("should keep defaults for fields the file omits", func() {
			path := filepath.Join(tmpDir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"max_cycles": 42}`), 0644)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.MaxCycles).To(Equal(uint64(42)))
			Expect(loaded.ICache).To(Equal(config.DefaultConfig().ICache))
		})

		It("should fail on a missing file", func() {
			_, err := config.LoadConfig(filepath.Join(tmpDir, "nope.json"))

			Expect(err).To(HaveOccurred())
		})

		It("should fail on malformed JSON", func() {
			path := filepath.Join(tmpDir, "bad.json")
			Expect(os.WriteFile(path, []byte(`{"icache": `), 0644)).To(Succeed())

			_, err := config.LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("failed to parse")))
		})

		It("should reject an invalid geometry on load", func() {
			path := filepath.Join(tmpDir, "sets.json")
			Expect(os.WriteFile(path, []byte(`{"icache": {"sets": 3}}`), 0644)).To(Succeed())

			_, err := config.LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("icache")))
		})
	})

	Describe("Validate", func() {
		var c *config.Config

		BeforeEach(func() {
			c = config.DefaultConfig()
		})

		It("should reject a zero miss latency", func() {
			c.DCache.MissLatency = 0
			Expect(c.Validate()).To(MatchError(ContainSubstring("miss_latency")))
		})

		It("should reject oversized predictor history", func() {
			c.Predictor.HistoryBits = 17
			Expect(c.Validate()).To(HaveOccurred())
		})

		It("should reject a misaligned entry", func() {
			c.EntryPC = 0x400002
			Expect(c.Validate()).To(HaveOccurred())
		})

		It("should reject a non-positive frequency", func() {
			c.FrequencyGHz = 0
			Expect(c.Validate()).To(HaveOccurred())
		})
	})

	Describe("Clone", func() {
		It("should not share state with the original", func() {
			c := config.DefaultConfig()
			clone := c.Clone()
			clone.ICache.Ways = 1

			Expect(c.ICache.Ways).To(Equal(4))
		})
	})

	It("should produce one option per pipeline setting", func() {
		Expect(config.DefaultConfig().PipelineOptions()).To(HaveLen(4))
	})
})
