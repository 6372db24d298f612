package pipeline

import (
	"log"

	"github.com/sarchlab/legsim/insts"
)

// ALUOp selects the Execute stage operation.
type ALUOp uint8

// ALU operations.
const (
	ALUPass ALUOp = iota // result = operand 2
	ALUAdd
	ALUSub
	ALUAnd
	ALUOr
	ALUXor
	ALULsl
	ALULsr
	ALUMul
)

// BranchKind tells Execute how to resolve a control instruction.
type BranchKind uint8

// Branch kinds.
const (
	BranchNone BranchKind = iota
	BranchImmediate
	BranchRegister
	BranchCompare
	BranchFlags
)

// ExecuteControl is the part of the control bundle Execute consumes.
type ExecuteControl struct {
	ALUSrc bool // operand 2 is the immediate
	ALUOp  ALUOp
	Branch BranchKind
	Cond   insts.Cond
	// BranchIfZero selects CBZ over CBNZ for BranchCompare.
	BranchIfZero bool
}

// MemoryControl is the part of the control bundle Memory consumes.
type MemoryControl struct {
	ConfirmedBranch bool // unconditional branch
	ConditionMet    bool // filled in by Execute
	MemRead         bool
	MemWrite        bool
	Size            int
}

// WritebackControl is the part of the control bundle Writeback consumes.
type WritebackControl struct {
	RegWrite bool
	MemToReg bool
	SetFlags bool
}

// Controls is the bundle Decode generates once per instruction.
type Controls struct {
	EX ExecuteControl
	M  MemoryControl
	WB WritebackControl
}

type controlEntry struct {
	category Category
	controls Controls
}

func operate(op ALUOp, imm, setFlags bool) controlEntry {
	return controlEntry{CategoryOperate, Controls{
		EX: ExecuteControl{ALUSrc: imm, ALUOp: op},
		WB: WritebackControl{RegWrite: true, SetFlags: setFlags},
	}}
}

var (
	loadEntry = controlEntry{CategoryDataMove, Controls{
		EX: ExecuteControl{ALUSrc: true, ALUOp: ALUAdd},
		M:  MemoryControl{MemRead: true},
		WB: WritebackControl{RegWrite: true, MemToReg: true},
	}}
	storeEntry = controlEntry{CategoryDataMove, Controls{
		EX: ExecuteControl{ALUSrc: true, ALUOp: ALUAdd},
		M:  MemoryControl{MemWrite: true},
	}}
)

var controlTable = map[insts.Op]controlEntry{
	insts.OpADD:   operate(ALUAdd, false, false),
	insts.OpADDS:  operate(ALUAdd, false, true),
	insts.OpADDI:  operate(ALUAdd, true, false),
	insts.OpADDIS: operate(ALUAdd, true, true),
	insts.OpSUB:   operate(ALUSub, false, false),
	insts.OpSUBS:  operate(ALUSub, false, true),
	insts.OpSUBI:  operate(ALUSub, true, false),
	insts.OpSUBIS: operate(ALUSub, true, true),
	insts.OpAND:   operate(ALUAnd, false, false),
	insts.OpANDS:  operate(ALUAnd, false, true),
	insts.OpEOR:   operate(ALUXor, false, false),
	insts.OpORR:   operate(ALUOr, false, false),
	insts.OpMUL:   operate(ALUMul, false, false),
	insts.OpLSL:   operate(ALULsl, true, false),
	insts.OpLSR:   operate(ALULsr, true, false),

	insts.OpLDUR:  loadEntry,
	insts.OpLDURW: loadEntry,
	insts.OpLDURH: loadEntry,
	insts.OpLDURB: loadEntry,
	insts.OpSTUR:  storeEntry,
	insts.OpSTURW: storeEntry,
	insts.OpSTURH: storeEntry,
	insts.OpSTURB: storeEntry,

	insts.OpMOVZ: {CategoryDataMove, Controls{
		EX: ExecuteControl{ALUSrc: true, ALUOp: ALUPass},
		WB: WritebackControl{RegWrite: true},
	}},

	insts.OpB: {CategoryControl, Controls{
		EX: ExecuteControl{Branch: BranchImmediate},
		M:  MemoryControl{ConfirmedBranch: true},
	}},
	insts.OpBR: {CategoryControl, Controls{
		EX: ExecuteControl{Branch: BranchRegister},
		M:  MemoryControl{ConfirmedBranch: true},
	}},
	insts.OpCBZ: {CategoryControl, Controls{
		EX: ExecuteControl{ALUOp: ALUPass, Branch: BranchCompare, BranchIfZero: true},
	}},
	insts.OpCBNZ: {CategoryControl, Controls{
		EX: ExecuteControl{ALUOp: ALUPass, Branch: BranchCompare},
	}},
	insts.OpBCond: {CategoryControl, Controls{
		EX: ExecuteControl{Branch: BranchFlags},
	}},

	insts.OpHLT: {CategoryOther, Controls{}},
}

// ControlsFor returns the category and control bundle for a decoded
// instruction. Every opcode the decoder accepts has an entry.
func ControlsFor(inst *insts.Instruction) (Category, Controls) {
	entry, ok := controlTable[inst.Op]
	if !ok {
		log.Panicf("no control signals for %v", inst.Op)
	}

	c := entry.controls
	c.EX.Cond = inst.Cond
	c.M.Size = inst.Size

	return entry.category, c
}

// executeALU runs one ALU operation. Shift amounts are taken modulo 64.
func executeALU(op ALUOp, a, b uint64) uint64 {
	switch op {
	case ALUPass:
		return b
	case ALUAdd:
		return a + b
	case ALUSub:
		return a - b
	case ALUAnd:
		return a & b
	case ALUOr:
		return a | b
	case ALUXor:
		return a ^ b
	case ALULsl:
		return a << (b & 63)
	case ALULsr:
		return a >> (b & 63)
	case ALUMul:
		return a * b
	default:
		log.Panicf("unknown ALU operation %d", op)
		return 0
	}
}
