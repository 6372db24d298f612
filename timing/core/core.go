// Package core provides the cycle-accurate CPU core model.
// It wraps the pipeline in an akita ticking component so that a run is driven
// by an event engine, and reports pipeline events through akita hooks.
package core

import (
	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/legsim/emu"
	"github.com/sarchlab/legsim/timing/cache"
	"github.com/sarchlab/legsim/timing/config"
	"github.com/sarchlab/legsim/timing/pipeline"
)

// ErrCycleLimit is returned by Run when the configured cycle budget runs out
// before the program halts.
var ErrCycleLimit = pipeline.ErrCycleLimit

// Hook positions, one per pipeline event kind. The hook item is the
// pipeline.Event.
var (
	HookPosRetire      = &sim.HookPos{Name: "Retire"}
	HookPosFlush       = &sim.HookPos{Name: "Flush"}
	HookPosDataStall   = &sim.HookPos{Name: "DataStall"}
	HookPosMemStall    = &sim.HookPos{Name: "MemStall"}
	HookPosFetchStall  = &sim.HookPos{Name: "FetchStall"}
	HookPosFetchCancel = &sim.HookPos{Name: "FetchCancel"}
	HookPosHalt        = &sim.HookPos{Name: "Halt"}
)

var hookPosByKind = map[pipeline.EventKind]*sim.HookPos{
	pipeline.EventRetire:      HookPosRetire,
	pipeline.EventFlush:       HookPosFlush,
	pipeline.EventDataStall:   HookPosDataStall,
	pipeline.EventMemStall:    HookPosMemStall,
	pipeline.EventFetchStall:  HookPosFetchStall,
	pipeline.EventFetchCancel: HookPosFetchCancel,
	pipeline.EventHalt:        HookPosHalt,
}

// HookPosForKind returns the hook position events of the given kind are
// reported at.
func HookPosForKind(kind pipeline.EventKind) *sim.HookPos {
	return hookPosByKind[kind]
}

// Stats holds performance statistics for the core.
type Stats struct {
	pipeline.Statistics

	Predictor pipeline.BranchPredictorStats
	ICache    cache.Statistics
	DCache    cache.Statistics
}

// Core represents a cycle-accurate CPU core model.
type Core struct {
	*sim.TickingComponent

	pipeline *pipeline.Pipeline
	engine   sim.Engine

	regFile *emu.RegFile
	memory  *emu.Memory

	maxCycles uint64
	limitHit  bool
}

// Tick advances the pipeline by one cycle. It returns false once the program
// has halted or the cycle budget is spent, which stops the engine from
// scheduling further ticks.
func (c *Core) Tick() bool {
	if c.maxCycles > 0 && c.pipeline.Stats().Cycles >= c.maxCycles {
		c.limitHit = true
		return false
	}

	return c.pipeline.Tick()
}

// Record forwards a pipeline event to the hooks attached to the core.
func (c *Core) Record(e pipeline.Event) {
	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    hookPosByKind[e.Kind],
		Item:   e,
	})
}

// Initialize resets architectural state, predictor, caches and statistics.
// Memory keeps its contents.
func (c *Core) Initialize() {
	c.pipeline.Reset()
	c.limitHit = false
}

// StepCycle advances exactly one cycle outside of the engine and reports
// whether the core is still running.
func (c *Core) StepCycle() bool {
	return c.pipeline.Tick()
}

// RunCycles steps up to n cycles and reports whether the core is still
// running.
func (c *Core) RunCycles(n uint64) bool {
	return c.pipeline.RunCycles(n)
}

// Run schedules the first tick and lets the engine drive the core until the
// program halts, faults, or exceeds the cycle budget.
func (c *Core) Run() error {
	if !c.pipeline.Running() {
		return c.pipeline.Err()
	}

	c.limitHit = false
	c.TickLater()

	if err := c.engine.Run(); err != nil {
		return errors.Wrap(err, "engine run")
	}

	if c.limitHit {
		return errors.Wrapf(ErrCycleLimit, "after %d cycles at pc 0x%x",
			c.pipeline.Stats().Cycles, c.regFile.PC)
	}

	return c.pipeline.Err()
}

// Running reports whether the core can still make progress.
func (c *Core) Running() bool {
	return c.pipeline.Running()
}

// Halted returns true if the core has stopped.
func (c *Core) Halted() bool {
	return c.pipeline.Halted()
}

// Err returns the fault that stopped the core, if any.
func (c *Core) Err() error {
	return c.pipeline.Err()
}

// PC returns the fetch PC.
func (c *Core) PC() uint64 {
	return c.regFile.PC
}

// Register returns the value of register reg.
func (c *Core) Register(reg uint8) uint64 {
	return c.regFile.ReadReg(reg)
}

// Flags returns the architectural condition flags.
func (c *Core) Flags() emu.Flags {
	return c.regFile.Flags
}

// RegFile returns the architectural register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Memory returns the backing memory.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// Pipeline returns the underlying pipeline.
func (c *Core) Pipeline() *pipeline.Pipeline {
	return c.pipeline
}

// Engine returns the engine driving the core.
func (c *Core) Engine() sim.Engine {
	return c.engine
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	return Stats{
		Statistics: c.pipeline.Stats(),
		Predictor:  c.pipeline.Predictor().Stats(),
		ICache:     c.pipeline.ICache().Stats(),
		DCache:     c.pipeline.DCache().Stats(),
	}
}

// Dump formats the pipeline state for a diagnostic report.
func (c *Core) Dump() string {
	return c.pipeline.Dump()
}

// Builder can build cores.
type Builder struct {
	engine sim.Engine
	freq   sim.Freq
	config *config.Config
	memory *emu.Memory
}

// MakeBuilder returns a Builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		config: config.DefaultConfig(),
	}
}

// WithEngine sets the engine that drives the core.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the core clock. It overrides the configured frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithConfig sets the cache, predictor and run-limit configuration.
func (b Builder) WithConfig(c *config.Config) Builder {
	b.config = c
	return b
}

// WithMemory sets the memory the core runs from.
func (b Builder) WithMemory(memory *emu.Memory) Builder {
	b.memory = memory
	return b
}

// Build creates a core with the given name. Missing engine and memory are
// created fresh.
func (b Builder) Build(name string) *Core {
	if b.engine == nil {
		b.engine = sim.NewSerialEngine()
	}

	if b.memory == nil {
		b.memory = emu.NewMemory()
	}

	freq := b.freq
	if freq == 0 {
		freq = sim.Freq(b.config.FrequencyGHz) * sim.GHz
	}

	c := &Core{
		engine:    b.engine,
		regFile:   &emu.RegFile{},
		memory:    b.memory,
		maxCycles: b.config.MaxCycles,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, freq, c)

	opts := append(b.config.PipelineOptions(), pipeline.WithRecorder(c))
	c.pipeline = pipeline.NewPipeline(c.regFile, c.memory, opts...)

	return c
}
