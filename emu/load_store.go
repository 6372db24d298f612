package emu

import "github.com/sarchlab/legsim/insts"

// LoadStoreUnit implements the unscaled load and store instructions.
type LoadStoreUnit struct {
	regFile *RegFile
	memory  *Memory
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and memory.
func NewLoadStoreUnit(regFile *RegFile, memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		memory:  memory,
	}
}

// Address computes Xn + imm9.
func (lsu *LoadStoreUnit) Address(inst *insts.Instruction) uint64 {
	return lsu.regFile.ReadReg(inst.Rn) + uint64(inst.Imm)
}

// Load performs LDUR/LDURW/LDURH/LDURB: Xt = zero_extend(mem[Xn + imm9]).
func (lsu *LoadStoreUnit) Load(inst *insts.Instruction) {
	value := lsu.memory.ReadSized(lsu.Address(inst), inst.Size)
	lsu.regFile.WriteReg(inst.Rd, value)
}

// Store performs STUR/STURW/STURH/STURB: mem[Xn + imm9] = Xt.
func (lsu *LoadStoreUnit) Store(inst *insts.Instruction) {
	lsu.memory.WriteSized(lsu.Address(inst), inst.Size, lsu.regFile.ReadReg(inst.Rd))
}
