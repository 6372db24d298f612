package emu

import "github.com/sarchlab/legsim/insts"

// ALU implements the arithmetic, logic, shift and move instructions.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// Execute performs an R-, I- or IM-format instruction, writing Rd and,
// for the S-forms, the flags.
func (a *ALU) Execute(inst *insts.Instruction) {
	op1 := a.regFile.ReadReg(inst.Rn)
	op2 := a.regFile.ReadReg(inst.Rm)
	imm := uint64(inst.Imm)

	var result uint64
	setFlags := false

	switch inst.Op {
	case insts.OpADD:
		result = op1 + op2
	case insts.OpADDS:
		result, setFlags = op1+op2, true
	case insts.OpADDI:
		result = op1 + imm
	case insts.OpADDIS:
		result, setFlags = op1+imm, true
	case insts.OpSUB:
		result = op1 - op2
	case insts.OpSUBS:
		result, setFlags = op1-op2, true
	case insts.OpSUBI:
		result = op1 - imm
	case insts.OpSUBIS:
		result, setFlags = op1-imm, true
	case insts.OpAND:
		result = op1 & op2
	case insts.OpANDS:
		result, setFlags = op1&op2, true
	case insts.OpEOR:
		result = op1 ^ op2
	case insts.OpORR:
		result = op1 | op2
	case insts.OpMUL:
		result = op1 * op2
	case insts.OpLSL:
		result = op1 << (imm & 63)
	case insts.OpLSR:
		result = op1 >> (imm & 63)
	case insts.OpMOVZ:
		result = imm
	default:
		panic("ALU cannot execute " + inst.Op.String())
	}

	a.regFile.WriteReg(inst.Rd, result)

	if setFlags {
		a.regFile.Flags = FlagsFor(result)
	}
}
