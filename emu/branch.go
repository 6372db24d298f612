package emu

import "github.com/sarchlab/legsim/insts"

// BranchUnit resolves control-flow instructions.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// Resolve returns whether the branch at the current PC is taken and the
// address of the next instruction.
func (b *BranchUnit) Resolve(inst *insts.Instruction) (taken bool, next uint64) {
	pc := b.regFile.PC
	target := uint64(int64(pc) + inst.Imm*4)

	switch inst.Op {
	case insts.OpB:
		taken = true
	case insts.OpBR:
		taken = true
		target = b.regFile.ReadReg(inst.Rn)
	case insts.OpCBZ:
		taken = b.regFile.ReadReg(inst.Rd) == 0
	case insts.OpCBNZ:
		taken = b.regFile.ReadReg(inst.Rd) != 0
	case insts.OpBCond:
		taken = b.CheckCondition(inst.Cond)
	default:
		panic("not a branch: " + inst.Op.String())
	}

	if taken {
		return true, target
	}

	return false, pc + 4
}

// CheckCondition evaluates a condition code against the current flags.
func (b *BranchUnit) CheckCondition(cond insts.Cond) bool {
	return cond.Holds(b.regFile.Flags.N, b.regFile.Flags.Z)
}
