package pipeline

import (
	"fmt"
	"log"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/legsim/emu"
	"github.com/sarchlab/legsim/insts"
	"github.com/sarchlab/legsim/timing/cache"
)

// DefaultEntryPC is where programs are loaded and fetch starts.
const DefaultEntryPC uint64 = 0x00400000

// ErrCycleLimit is returned by Run when the cycle budget runs out before the
// program halts.
var ErrCycleLimit = errors.New("cycle limit reached")

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions completed (retired).
	Instructions uint64
	// DataStalls is the number of data bubbles inserted by Execute.
	DataStalls uint64
	// ControlBubbles is the number of control bubbles inserted by Decode.
	ControlBubbles uint64
	// MemStalls is the number of cycles Memory waited on the data cache.
	MemStalls uint64
	// FetchStalls is the number of cycles Fetch waited on the instruction cache.
	FetchStalls uint64
	// Flushes is the number of pipeline flushes (due to branch mispredictions).
	Flushes uint64
	// CancelledFetches is the number of wrong-path instruction cache misses
	// dropped on a flush.
	CancelledFetches uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithICache sets the instruction cache geometry.
func WithICache(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		p.icacheConfig = config
	}
}

// WithDCache sets the data cache geometry.
func WithDCache(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		p.dcacheConfig = config
	}
}

// WithBranchPredictor sets the predictor table sizes.
func WithBranchPredictor(config BranchPredictorConfig) PipelineOption {
	return func(p *Pipeline) {
		p.predictorConfig = config
	}
}

// WithRecorder sends every pipeline event to r.
func WithRecorder(r Recorder) PipelineOption {
	return func(p *Pipeline) {
		p.probe.recorder = r
	}
}

// WithEntryPC sets the PC the pipeline starts fetching from after Reset.
func WithEntryPC(pc uint64) PipelineOption {
	return func(p *Pipeline) {
		p.entryPC = pc
	}
}

// Pipeline implements a 5-stage pipelined CPU model.
// Stages: Fetch (IF) -> Decode (DE) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
// Each Tick runs the stages in reverse order so that every stage sees the
// previous cycle's view of the register in front of it, then advances the
// cache miss timers.
type Pipeline struct {
	state State

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	hazardUnit *HazardUnit
	predictor  *BranchPredictor

	caches *cache.System
	icache *cache.Cache
	dcache *cache.Cache

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory

	icacheConfig    cache.Config
	dcacheConfig    cache.Config
	predictorConfig BranchPredictorConfig
	entryPC         uint64

	probe probe
	stats Statistics
	err   error
}

// NewPipeline creates a new pipeline with the given register file and memory.
// The pipeline is reset and ready to fetch from the entry PC.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		regFile:         regFile,
		memory:          memory,
		hazardUnit:      NewHazardUnit(),
		icacheConfig:    cache.DefaultInstructionConfig(),
		dcacheConfig:    cache.DefaultDataConfig(),
		predictorConfig: DefaultBranchPredictorConfig(),
		entryPC:         DefaultEntryPC,
	}
	p.probe.stats = &p.stats

	for _, opt := range opts {
		opt(p)
	}

	backing := cache.NewMemoryBacking(memory)
	p.caches = cache.NewSystem()
	p.icache = p.caches.NewCache("icache", p.icacheConfig, backing)
	p.dcache = p.caches.NewCache("dcache", p.dcacheConfig, backing)
	p.predictor = NewBranchPredictor(p.predictorConfig)

	p.fetchStage = NewFetchStage(regFile, p.icache, p.predictor, &p.probe)
	p.decodeStage = NewDecodeStage(regFile, &p.probe)
	p.executeStage = NewExecuteStage(regFile, p.icache, p.predictor, &p.probe)
	p.memoryStage = NewMemoryStage(p.dcache, &p.probe)
	p.writebackStage = NewWritebackStage(regFile, &p.probe)

	p.Reset()

	return p
}

// Reset clears architectural state, predictor, caches and statistics, and
// points PC at the entry. Memory is left untouched.
func (p *Pipeline) Reset() {
	p.regFile.Reset(p.entryPC)
	p.predictor.Reset()
	p.caches.Reset()
	p.memoryStage.checkpoint.Clear()
	p.state = State{Running: true}
	p.stats = Statistics{}
	p.err = nil
}

// Tick advances the pipeline by one cycle and reports whether it is still
// running.
func (p *Pipeline) Tick() bool {
	if !p.state.Running {
		return false
	}

	p.stats.Cycles++

	p.hazardUnit.Apply(&p.state, p.regFile.Flags)

	p.writebackStage.Tick(&p.state)
	p.memoryStage.Tick(&p.state)
	p.executeStage.Tick(&p.state)

	if err := p.decodeStage.Tick(&p.state); err != nil {
		p.fault(err)
		return false
	}

	p.fetchStage.Tick(&p.state)

	p.state.DCacheStalled = p.dcache.Pending()
	p.caches.Tick()

	return p.state.Running
}

func (p *Pipeline) fault(err error) {
	p.err = err
	p.state.Running = false
	log.Printf("pipeline stopped: %v\n%s", err, p.Dump())
}

// RunCycles advances up to n cycles and reports whether it is still running.
func (p *Pipeline) RunCycles(n uint64) bool {
	for i := uint64(0); i < n; i++ {
		if !p.Tick() {
			return false
		}
	}
	return p.state.Running
}

// Run ticks until the program halts. A maxCycles of zero means no limit.
func (p *Pipeline) Run(maxCycles uint64) error {
	for p.state.Running {
		if maxCycles > 0 && p.stats.Cycles >= maxCycles {
			return errors.Wrapf(ErrCycleLimit, "after %d cycles at pc 0x%x",
				p.stats.Cycles, p.regFile.PC)
		}
		p.Tick()
	}

	return p.err
}

// Running reports whether the simulation is still running.
func (p *Pipeline) Running() bool {
	return p.state.Running
}

// Halted returns true if the pipeline has stopped.
func (p *Pipeline) Halted() bool {
	return !p.state.Running
}

// Err returns the fault that stopped the pipeline, if any.
func (p *Pipeline) Err() error {
	return p.err
}

// PC returns the fetch PC.
func (p *Pipeline) PC() uint64 {
	return p.regFile.PC
}

// SetPC redirects fetch. Use it only before the first Tick.
func (p *Pipeline) SetPC(pc uint64) {
	p.regFile.PC = pc
}

// RegFile returns the architectural register file.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

// Memory returns the backing memory.
func (p *Pipeline) Memory() *emu.Memory {
	return p.memory
}

// State returns a copy of the pipeline registers and global flags.
func (p *Pipeline) State() State {
	return p.state
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Predictor returns the branch predictor.
func (p *Pipeline) Predictor() *BranchPredictor {
	return p.predictor
}

// ICache returns the instruction cache.
func (p *Pipeline) ICache() *cache.Cache {
	return p.icache
}

// DCache returns the data cache.
func (p *Pipeline) DCache() *cache.Cache {
	return p.dcache
}

// Dump formats the pipeline for a diagnostic report.
func (p *Pipeline) Dump() string {
	var b strings.Builder

	st := &p.state
	fmt.Fprintf(&b, "cycle %d, %d retired\n", p.stats.Cycles, p.stats.Instructions)
	fmt.Fprintf(&b, "stalls: control=%t pending=%t data=%t icache=%t dcache=%t\n",
		st.ControlStalled, st.ControlStallPending, st.DataStalled,
		st.ICacheWaiting, st.DCacheStalled)
	fmt.Fprintf(&b, "halted: FE=%t DE=%t EX=%t MEM=%t\n",
		st.FEHalted, st.DEHalted, st.EXHalted, st.MEMHalted)
	fmt.Fprintf(&b, "IF/DE  valid=%t pc=0x%x word=0x%08x squash=%t flush=%t memstall=%t\n",
		st.IFDE.Valid, st.IFDE.Snapshot.PC, st.IFDE.InstructionWord,
		st.IFDE.Squash, st.IFDE.Flush, st.IFDE.MemStall)
	fmt.Fprintf(&b, "DE/EX  valid=%t pc=0x%x %v %s\n",
		st.DEEX.Valid, st.DEEX.Snapshot.PC, st.DEEX.Category, opName(st.DEEX.Inst))
	fmt.Fprintf(&b, "EX/MEM valid=%t pc=0x%x %v %s alu=0x%x\n",
		st.EXMEM.Valid, st.EXMEM.Snapshot.PC, st.EXMEM.Category,
		opName(st.EXMEM.Inst), st.EXMEM.ALUResult)
	fmt.Fprintf(&b, "MEM/WB valid=%t pc=0x%x %v %s alu=0x%x mem=0x%x\n",
		st.MEMWB.Valid, st.MEMWB.Snapshot.PC, st.MEMWB.Category,
		opName(st.MEMWB.Inst), st.MEMWB.ALUResult, st.MEMWB.MemData)
	b.WriteString(p.regFile.String())

	return b.String()
}

func opName(inst *insts.Instruction) string {
	if inst == nil {
		return "-"
	}
	return inst.Op.String()
}
