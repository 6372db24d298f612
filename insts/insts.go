// Package insts provides LEGv8 instruction definitions and decoding.
//
// This package implements decoding of the LEGv8 subset the pipeline executes
// into structured instruction representations. It supports:
//   - R-format: ADD, ADDS, SUB, SUBS, AND, ANDS, EOR, ORR, MUL
//   - I-format: ADDI, ADDIS, SUBI, SUBIS, LSL, LSR
//   - D-format: LDUR, LDURW, LDURH, LDURB, STUR, STURW, STURH, STURB
//   - IM-format: MOVZ
//   - Branches: B, BR, CBZ, CBNZ, B.cond
//   - HLT
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst, err := decoder.Decode(0x91002820) // ADDI X0, X1, #10
//	fmt.Printf("Op: %v, Rd: %d, Rn: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Rn, inst.Imm)
package insts

import "log"

// Op represents a LEGv8 opcode.
type Op uint8

// LEGv8 opcodes.
const (
	OpUnknown Op = iota
	OpADD
	OpADDS
	OpADDI
	OpADDIS
	OpSUB
	OpSUBS
	OpSUBI
	OpSUBIS
	OpAND
	OpANDS
	OpEOR
	OpORR
	OpMUL
	OpLSL
	OpLSR
	OpLDUR
	OpLDURW
	OpLDURH
	OpLDURB
	OpSTUR
	OpSTURW
	OpSTURH
	OpSTURB
	OpMOVZ
	OpB
	OpBR
	OpCBZ
	OpCBNZ
	OpBCond
	OpHLT
	numOps
)

var opNames = [numOps]string{
	"UNKNOWN",
	"ADD", "ADDS", "ADDI", "ADDIS",
	"SUB", "SUBS", "SUBI", "SUBIS",
	"AND", "ANDS", "EOR", "ORR", "MUL",
	"LSL", "LSR",
	"LDUR", "LDURW", "LDURH", "LDURB",
	"STUR", "STURW", "STURH", "STURB",
	"MOVZ",
	"B", "BR", "CBZ", "CBNZ", "B.cond",
	"HLT",
}

func (op Op) String() string {
	if op >= numOps {
		return "INVALID"
	}
	return opNames[op]
}

// IsLoad reports whether op reads data memory.
func (op Op) IsLoad() bool {
	return op >= OpLDUR && op <= OpLDURB
}

// IsStore reports whether op writes data memory.
func (op Op) IsStore() bool {
	return op >= OpSTUR && op <= OpSTURB
}

// Layout is the encoding layout of an instruction. It decides which of the
// two register read ports carry a real dependency.
type Layout uint8

// Instruction layouts.
const (
	LayoutNOP Layout = iota // no register sources (HLT)
	LayoutR                 // register-register
	LayoutI                 // register-immediate
	LayoutD                 // load/store, base register + imm9
	LayoutB                 // unconditional PC-relative branch
	LayoutCB                // compare-and-branch on a register
	LayoutIM                // wide immediate move
	LayoutBR                // branch to register
	LayoutBC                // conditional branch on flags
)

var layoutNames = []string{"NOP", "R", "I", "D", "B", "CB", "IM", "BR", "BC"}

func (l Layout) String() string {
	if int(l) >= len(layoutNames) {
		return "INVALID"
	}
	return layoutNames[l]
}

// Sources reports which read ports hold a true dependency. The second port
// of a D-format instruction only matters for stores, where it carries the
// data to write.
func (l Layout) Sources(isStore bool) (usesReg1, usesReg2 bool) {
	switch l {
	case LayoutR:
		return true, true
	case LayoutI, LayoutBR:
		return true, false
	case LayoutCB:
		return false, true
	case LayoutD:
		return true, isStore
	case LayoutNOP, LayoutB, LayoutIM, LayoutBC:
		return false, false
	default:
		log.Panicf("insts: unknown layout %d", l)
		return false, false
	}
}

// Cond represents a B.cond condition code.
type Cond uint8

// Supported condition codes.
const (
	CondEQ Cond = 0b0000 // Equal (Z == 1)
	CondNE Cond = 0b0001 // Not Equal (Z == 0)
	CondGE Cond = 0b1010 // Signed greater than or equal (N == 0)
	CondLT Cond = 0b1011 // Signed less than (N == 1)
	CondGT Cond = 0b1100 // Signed greater than (Z == 0 && N == 0)
	CondLE Cond = 0b1101 // Signed less than or equal (Z == 1 || N == 1)
)

// Valid reports whether the subset supports the condition code.
func (c Cond) Valid() bool {
	switch c {
	case CondEQ, CondNE, CondGE, CondLT, CondGT, CondLE:
		return true
	default:
		return false
	}
}

func (c Cond) String() string {
	switch c {
	case CondEQ:
		return "EQ"
	case CondNE:
		return "NE"
	case CondGE:
		return "GE"
	case CondLT:
		return "LT"
	case CondGT:
		return "GT"
	case CondLE:
		return "LE"
	default:
		return "??"
	}
}

// Holds evaluates the condition against the N and Z flags. The subset keeps
// no carry or overflow flag, so signed comparisons read N alone.
func (c Cond) Holds(n, z bool) bool {
	switch c {
	case CondEQ:
		return z
	case CondNE:
		return !z
	case CondGE:
		return !n
	case CondLT:
		return n
	case CondGT:
		return !z && !n
	case CondLE:
		return z || n
	default:
		return false
	}
}

// Instruction represents a decoded LEGv8 instruction.
type Instruction struct {
	Word   uint32 // Raw instruction word
	Op     Op     // Operation code
	Layout Layout // Encoding layout

	Rd uint8 // Destination register, or Rt for loads, stores and CBZ/CBNZ
	Rn uint8 // First source register
	Rm uint8 // Second source register (R-format)

	// Imm is the decoded immediate: the zero-extended (and possibly shifted)
	// imm12 of I-format arithmetic, the shift amount of LSL/LSR, the signed
	// imm9 of loads and stores, imm16<<(hw*16) of MOVZ, or the signed branch
	// offset in instructions.
	Imm int64

	Cond Cond // Condition code for B.cond
	Size int  // Memory access width in bytes for loads and stores
}

// ReadRegister1 returns the register read through the first port.
func (i *Instruction) ReadRegister1() uint8 {
	return i.Rn
}

// ReadRegister2 returns the register read through the second port: Rt for
// stores and compare-and-branch, Rm otherwise.
func (i *Instruction) ReadRegister2() uint8 {
	if i.Layout == LayoutD || i.Layout == LayoutCB {
		return i.Rd
	}
	return i.Rm
}

// Sources reports which read ports carry a dependency.
func (i *Instruction) Sources() (usesReg1, usesReg2 bool) {
	return i.Layout.Sources(i.Op.IsStore())
}
