package benchmarks_test

import (
	"bytes"
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/legsim/benchmarks"
	"github.com/sarchlab/legsim/insts"
)

var _ = Describe("Harness", func() {
	var (
		out     *bytes.Buffer
		harness *benchmarks.Harness
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		config := benchmarks.DefaultConfig()
		config.Output = out
		harness = benchmarks.NewHarness(config)
	})

	Describe("Microbenchmarks", func() {
		for _, bench := range benchmarks.GetMicrobenchmarks() {
			It("should match the emulator on "+bench.Name, func() {
				result := harness.Run(bench)

				Expect(result.Err).To(BeEmpty())
				Expect(result.Mismatches).To(BeEmpty())
				Expect(result.InstructionsRetired).To(BeNumerically(">", 0))
				Expect(result.CPI).To(BeNumerically(">=", 1))
			})
		}
	})

	It("should keep a warm dependency chain at one cycle per instruction", func() {
		seq := harness.Run(benchmarks.GetMicrobenchmarks()[0])
		dep := harness.Run(benchmarks.GetMicrobenchmarks()[1])

		Expect(dep.DataStalls).To(BeZero())
		Expect(dep.SimulatedCycles).To(Equal(seq.SimulatedCycles))
	})

	It("should stall once per link of a pointer chase", func() {
		var bench benchmarks.Benchmark
		for _, b := range benchmarks.GetMicrobenchmarks() {
			if b.Name == "load_use_chain" {
				bench = b
			}
		}

		result := harness.Run(bench)

		Expect(result.DataStalls).To(Equal(uint64(3)))
		Expect(result.DCacheMisses).To(BeNumerically(">=", 1))
	})

	It("should compute the prefix sums of 1..16", func() {
		result := harness.Run(benchmarks.GetCoreBenchmarks()[1])

		Expect(result.Name).To(Equal("array_prefix_sum"))
		Expect(result.Passed()).To(BeTrue())
		Expect(result.BranchResolved).To(Equal(uint64(31)))
		Expect(result.BranchCorrect + result.BranchMispredictions).To(Equal(result.BranchResolved))
		Expect(result.BranchMispredictions).To(BeNumerically(">=", 2))
	})

	It("should flag a wrong expectation", func() {
		result := harness.Run(benchmarks.Benchmark{
			Name:         "wrong",
			Program:      []uint32{insts.EncodeADDI(1, 31, 2), insts.EncodeHLT()},
			ExpectedRegs: map[uint8]uint64{1: 3},
		})

		Expect(result.Passed()).To(BeFalse())
		Expect(result.Mismatches).To(ConsistOf(ContainSubstring("X1: got 0x2")))
	})

	It("should report a program that faults", func() {
		result := harness.Run(benchmarks.Benchmark{
			Name:    "fault",
			Program: []uint32{0x00000000},
		})

		Expect(result.Passed()).To(BeFalse())
		Expect(result.Err).To(ContainSubstring("timing core"))
	})

	Describe("Output", func() {
		var results []benchmarks.BenchmarkResult

		BeforeEach(func() {
			harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
			results = harness.RunAll()
		})

		It("should run every benchmark added", func() {
			Expect(results).To(HaveLen(3))
		})

		It("should print a readable report", func() {
			harness.PrintResults(results)

			Expect(out.String()).To(ContainSubstring("Benchmark: countdown_loop [ok]"))
			Expect(out.String()).To(ContainSubstring("Simulated Cycles:"))
		})

		It("should print one CSV row per result", func() {
			harness.PrintCSV(results)

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			Expect(lines).To(HaveLen(4))
			Expect(lines[0]).To(HavePrefix("name,cycles,instructions"))
			Expect(lines[1]).To(HaveSuffix(",true"))
		})

		It("should write JSON that decodes back", func() {
			Expect(harness.WriteJSON(results)).To(Succeed())

			var decoded []benchmarks.BenchmarkResult
			Expect(json.Unmarshal(out.Bytes(), &decoded)).To(Succeed())
			Expect(decoded).To(HaveLen(3))
			Expect(decoded[2].Name).To(Equal("zero_search"))
		})
	})
})
