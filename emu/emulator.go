package emu

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/legsim/insts"
)

// StepResult reports the outcome of executing one instruction.
type StepResult struct {
	// Halted is true once HLT has executed.
	Halted bool
	// Err is set when the instruction could not be decoded.
	Err error
}

// Emulator executes programs one instruction at a time with no timing. It
// serves as the architectural reference the pipeline is checked against.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder

	alu *ALU
	bu  *BranchUnit
	lsu *LoadStoreUnit

	instructionCount uint64
	maxInstructions  uint64
	halted           bool
}

// EmulatorOption configures an Emulator.
type EmulatorOption func(*Emulator)

// WithMaxInstructions bounds Run. Zero means unbounded.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithMemory makes the emulator operate on an existing memory image.
func WithMemory(memory *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = memory
	}
}

// NewEmulator creates an emulator with a fresh register file.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		memory:  NewMemory(),
		decoder: insts.NewDecoder(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.alu = NewALU(e.regFile)
	e.bu = NewBranchUnit(e.regFile)
	e.lsu = NewLoadStoreUnit(e.regFile, e.memory)

	return e
}

// RegFile returns the register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed, HLT included.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Halted reports whether HLT has executed.
func (e *Emulator) Halted() bool {
	return e.halted
}

// LoadProgram writes the instruction words at entry and points the PC there.
func (e *Emulator) LoadProgram(entry uint64, program []uint32) {
	for i, word := range program {
		e.memory.Write32(entry+uint64(i)*4, word)
	}

	e.regFile.PC = entry
}

// Reset clears registers and counters. Memory is left untouched.
func (e *Emulator) Reset() {
	e.regFile.Reset(0)
	e.instructionCount = 0
	e.halted = false
}

// Step executes the instruction at PC.
func (e *Emulator) Step() StepResult {
	if e.halted {
		return StepResult{Halted: true}
	}

	pc := e.regFile.PC
	word := e.memory.Read32(pc)

	inst, err := e.decoder.Decode(word)
	if err != nil {
		return StepResult{Err: errors.Wrapf(err, "pc 0x%x", pc)}
	}

	e.instructionCount++
	next := pc + 4

	switch inst.Layout {
	case insts.LayoutR, insts.LayoutI, insts.LayoutIM:
		e.alu.Execute(inst)
	case insts.LayoutD:
		if inst.Op.IsStore() {
			e.lsu.Store(inst)
		} else {
			e.lsu.Load(inst)
		}
	case insts.LayoutB, insts.LayoutBR, insts.LayoutCB, insts.LayoutBC:
		_, next = e.bu.Resolve(inst)
	case insts.LayoutNOP:
		e.halted = true
	}

	e.regFile.PC = next

	return StepResult{Halted: e.halted}
}

// Run steps until HLT, a decode fault, or the instruction limit.
func (e *Emulator) Run() error {
	for {
		if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
			return errors.Errorf("instruction limit %d reached", e.maxInstructions)
		}

		result := e.Step()
		if result.Err != nil {
			return result.Err
		}

		if result.Halted {
			return nil
		}
	}
}
