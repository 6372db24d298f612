// Package benchmarks runs small programs on the timing core and checks the
// results against the functional emulator.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/sarchlab/legsim/emu"
	"github.com/sarchlab/legsim/timing/config"
	"github.com/sarchlab/legsim/timing/core"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	DataStalls       uint64 `json:"data_stalls"`
	ControlBubbles   uint64 `json:"control_bubbles"`
	MemStalls        uint64 `json:"mem_stalls"`
	FetchStalls      uint64 `json:"fetch_stalls"`
	Flushes          uint64 `json:"flushes"`
	CancelledFetches uint64 `json:"cancelled_fetches"`

	ICacheHits   uint64 `json:"icache_hits"`
	ICacheMisses uint64 `json:"icache_misses"`
	DCacheHits   uint64 `json:"dcache_hits"`
	DCacheMisses uint64 `json:"dcache_misses"`

	// Branch predictor stats
	BranchResolved        uint64  `json:"branch_resolved"`
	BranchCorrect         uint64  `json:"branch_correct"`
	BranchMispredictions  uint64  `json:"branch_mispredictions"`
	BranchAccuracyPercent float64 `json:"branch_accuracy_percent"`

	// Mismatches lists every place the pipeline disagrees with the emulator
	// or with the benchmark's expected values.
	Mismatches []string `json:"mismatches,omitempty"`

	// Err is set when either model stopped on an error.
	Err string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Passed reports whether the run finished and matched the reference.
func (r BenchmarkResult) Passed() bool {
	return r.Err == "" && len(r.Mismatches) == 0
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares memory before the run, typically input data.
	Setup func(memory *emu.Memory)

	// Program is loaded at the entry PC.
	Program []uint32

	// Outputs are the addresses of 64-bit results compared after the run.
	Outputs []uint64

	// ExpectedRegs are known final register values.
	ExpectedRegs map[uint8]uint64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Timing is the core configuration every benchmark runs with.
	Timing *config.Config

	// MaxInstructions bounds the emulator run.
	MaxInstructions uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	timing := config.DefaultConfig()
	timing.MaxCycles = 1_000_000

	return HarnessConfig{
		Timing:          timing,
		MaxInstructions: 100_000,
		Output:          os.Stdout,
	}
}

// Harness runs benchmarks and collects results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	def := DefaultConfig()
	if config.Output == nil {
		config.Output = def.Output
	}
	if config.Timing == nil {
		config.Timing = def.Timing
	}

	return &Harness{config: config}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll runs all benchmarks in order.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		results = append(results, h.Run(bench))
	}

	return results
}

// Run executes one benchmark on the timing core and on the emulator, and
// compares the architectural outcome.
func (h *Harness) Run(bench Benchmark) BenchmarkResult {
	memory := emu.NewMemory()
	if bench.Setup != nil {
		bench.Setup(memory)
	}

	refMemory := memory.Clone()

	c := core.MakeBuilder().
		WithConfig(h.config.Timing).
		WithMemory(memory).
		Build(bench.Name)

	for i, w := range bench.Program {
		memory.Write32(h.config.Timing.EntryPC+uint64(i)*4, w)
	}

	start := time.Now()
	runErr := c.Run()
	wallTime := time.Since(start)

	result := collect(bench, c)
	result.WallTime = wallTime

	ref := emu.NewEmulator(
		emu.WithMemory(refMemory),
		emu.WithMaxInstructions(h.config.MaxInstructions),
	)
	ref.LoadProgram(h.config.Timing.EntryPC, bench.Program)
	refErr := ref.Run()

	switch {
	case runErr != nil:
		result.Err = errors.Wrap(runErr, "timing core").Error()
	case refErr != nil:
		result.Err = errors.Wrap(refErr, "emulator").Error()
	default:
		result.Mismatches = compare(bench, c, ref)
	}

	return result
}

func collect(bench Benchmark, c *core.Core) BenchmarkResult {
	stats := c.Stats()

	return BenchmarkResult{
		Name:                  bench.Name,
		Description:           bench.Description,
		SimulatedCycles:       stats.Cycles,
		InstructionsRetired:   stats.Instructions,
		CPI:                   stats.CPI(),
		DataStalls:            stats.DataStalls,
		ControlBubbles:        stats.ControlBubbles,
		MemStalls:             stats.MemStalls,
		FetchStalls:           stats.FetchStalls,
		Flushes:               stats.Flushes,
		CancelledFetches:      stats.CancelledFetches,
		ICacheHits:            stats.ICache.Hits,
		ICacheMisses:          stats.ICache.Misses,
		DCacheHits:            stats.DCache.Hits,
		DCacheMisses:          stats.DCache.Misses,
		BranchResolved:        stats.Predictor.Resolved,
		BranchCorrect:         stats.Predictor.Correct,
		BranchMispredictions:  stats.Predictor.Mispredictions,
		BranchAccuracyPercent: stats.Predictor.Accuracy(),
	}
}

func compare(bench Benchmark, c *core.Core, ref *emu.Emulator) []string {
	var diffs []string

	got, want := c.RegFile(), ref.RegFile()

	for reg := uint8(0); reg < emu.XZR; reg++ {
		if got.ReadReg(reg) != want.ReadReg(reg) {
			diffs = append(diffs, fmt.Sprintf("X%d: pipeline 0x%x, emulator 0x%x",
				reg, got.ReadReg(reg), want.ReadReg(reg)))
		}
	}

	if got.PC != want.PC {
		diffs = append(diffs, fmt.Sprintf("PC: pipeline 0x%x, emulator 0x%x", got.PC, want.PC))
	}

	if got.Flags != want.Flags {
		diffs = append(diffs, fmt.Sprintf("flags: pipeline %+v, emulator %+v",
			got.Flags, want.Flags))
	}

	if c.Stats().Instructions != ref.InstructionCount() {
		diffs = append(diffs, fmt.Sprintf("retired: pipeline %d, emulator %d",
			c.Stats().Instructions, ref.InstructionCount()))
	}

	for _, addr := range bench.Outputs {
		g, w := c.Memory().Read64(addr), ref.Memory().Read64(addr)
		if g != w {
			diffs = append(diffs, fmt.Sprintf("mem[0x%x]: pipeline 0x%x, emulator 0x%x",
				addr, g, w))
		}
	}

	for reg, value := range bench.ExpectedRegs {
		if got.ReadReg(reg) != value {
			diffs = append(diffs, fmt.Sprintf("X%d: got 0x%x, expected 0x%x",
				reg, got.ReadReg(reg), value))
		}
	}

	return diffs
}

// PrintResults prints benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	out := h.config.Output

	_, _ = fmt.Fprintln(out, "=== legsim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(out, "")

	for _, r := range results {
		status := "ok"
		if !r.Passed() {
			status = "FAIL"
		}

		_, _ = fmt.Fprintf(out, "Benchmark: %s [%s]\n", r.Name, status)
		_, _ = fmt.Fprintf(out, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintln(out, "  --- Timing ---")
		_, _ = fmt.Fprintf(out, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(out, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(out, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(out, "  Data Stalls:          %d\n", r.DataStalls)
		_, _ = fmt.Fprintf(out, "  Control Bubbles:      %d\n", r.ControlBubbles)
		_, _ = fmt.Fprintf(out, "  Mem Stalls:           %d\n", r.MemStalls)
		_, _ = fmt.Fprintf(out, "  Fetch Stalls:         %d\n", r.FetchStalls)
		_, _ = fmt.Fprintf(out, "  Flushes:              %d\n", r.Flushes)
		_, _ = fmt.Fprintln(out, "  --- Caches ---")
		_, _ = fmt.Fprintf(out, "  I-Cache Hits/Misses:  %d/%d\n", r.ICacheHits, r.ICacheMisses)
		_, _ = fmt.Fprintf(out, "  D-Cache Hits/Misses:  %d/%d\n", r.DCacheHits, r.DCacheMisses)

		if r.BranchResolved > 0 {
			_, _ = fmt.Fprintln(out, "  --- Branch Predictor ---")
			_, _ = fmt.Fprintf(out, "  Resolved:        %d\n", r.BranchResolved)
			_, _ = fmt.Fprintf(out, "  Mispredictions:  %d\n", r.BranchMispredictions)
			_, _ = fmt.Fprintf(out, "  Accuracy:        %.1f%%\n", r.BranchAccuracyPercent)
		}

		if r.Err != "" {
			_, _ = fmt.Fprintf(out, "  Error: %s\n", r.Err)
		}
		for _, m := range r.Mismatches {
			_, _ = fmt.Fprintf(out, "  Mismatch: %s\n", m)
		}

		_, _ = fmt.Fprintf(out, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(out, "")
	}
}

// PrintCSV prints results in CSV format for analysis.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	out := h.config.Output

	_, _ = fmt.Fprintln(out,
		"name,cycles,instructions,cpi,data_stalls,control_bubbles,mem_stalls,fetch_stalls,flushes,icache_hits,icache_misses,dcache_hits,dcache_misses,passed")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d,%d,%t\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.DataStalls,
			r.ControlBubbles,
			r.MemStalls,
			r.FetchStalls,
			r.Flushes,
			r.ICacheHits,
			r.ICacheMisses,
			r.DCacheHits,
			r.DCacheMisses,
			r.Passed(),
		)
	}
}

// WriteJSON writes the results as an indented JSON array.
func (h *Harness) WriteJSON(results []BenchmarkResult) error {
	enc := json.NewEncoder(h.config.Output)
	enc.SetIndent("", "  ")

	if err := enc.Encode(results); err != nil {
		return errors.Wrap(err, "failed to encode benchmark results")
	}

	return nil
}
