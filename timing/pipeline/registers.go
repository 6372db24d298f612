// Package pipeline provides the 5-stage pipeline implementation for timing simulation.
package pipeline

import (
	"github.com/sarchlab/legsim/emu"
	"github.com/sarchlab/legsim/insts"
)

// Category tags what occupies a pipeline register: an instruction class or
// one of the three bubble kinds.
type Category uint8

// Categories.
const (
	CategoryInvalid Category = iota
	CategoryOperate
	CategoryDataMove
	CategoryControl
	CategoryOther
	CategoryDataBubble
	CategoryControlBubble
	CategoryMemBubble
)

var categoryNames = []string{
	"INVALID", "OPERATE", "DATA-MOVE", "CONTROL", "OTHER",
	"DATA-BUBBLE", "CONTROL-BUBBLE", "MEM-BUBBLE",
}

func (c Category) String() string {
	if int(c) >= len(categoryNames) {
		return "?"
	}
	return categoryNames[c]
}

// IsBubble reports whether c is one of the bubble kinds.
func (c Category) IsBubble() bool {
	return c >= CategoryDataBubble
}

// Snapshot is the architectural state an instruction carries with it: its
// own PC and the flags it will test.
type Snapshot struct {
	PC    uint64
	Flags emu.Flags
}

// IFDERegister holds state between Fetch and Decode stages.
type IFDERegister struct {
	// Valid indicates the register has been filled at least once.
	Valid bool

	Snapshot        Snapshot
	InstructionWord uint32

	// Squash discards the word because an older branch is unresolved.
	Squash bool
	// Flush discards the word because an older branch was mispredicted.
	Flush bool
	// MemStall marks that the last fetch missed in the instruction cache.
	MemStall bool

	// Branch prediction made at fetch time.
	PredictedTaken bool
	PredictedPC    uint64
}

// Clear resets the IF/DE register to empty state.
func (r *IFDERegister) Clear() {
	*r = IFDERegister{}
}

// DEEXRegister holds state between Decode and Execute stages.
type DEEXRegister struct {
	Valid    bool
	Snapshot Snapshot
	Category Category
	Controls Controls

	// Inst is the decoded instruction; nil for bubbles.
	Inst *insts.Instruction

	// Read ports and the values read (or forwarded) through them.
	Rn      uint8
	Rm      uint8
	RnValue uint64
	RmValue uint64

	Imm int64
	Rd  uint8

	PredictedTaken bool
	PredictedPC    uint64
}

// Clear resets the DE/EX register to empty state.
func (r *DEEXRegister) Clear() {
	*r = DEEXRegister{}
}

// EXMEMRegister holds state between Execute and Memory stages.
type EXMEMRegister struct {
	Valid    bool
	Snapshot Snapshot
	Category Category
	M        MemoryControl
	WB       WritebackControl
	Inst     *insts.Instruction

	TargetPC   uint64
	ALUZero    bool
	ALUResult  uint64
	StoreValue uint64
	Rd         uint8
}

// Clear resets the EX/MEM register to empty state.
func (r *EXMEMRegister) Clear() {
	*r = EXMEMRegister{}
}

// MEMWBRegister holds state between Memory and Writeback stages.
type MEMWBRegister struct {
	Valid    bool
	Snapshot Snapshot
	Category Category
	WB       WritebackControl
	Inst     *insts.Instruction

	ALUResult uint64
	MemData   uint64
	Rd        uint8
}

// Clear resets the MEM/WB register to empty state.
func (r *MEMWBRegister) Clear() {
	*r = MEMWBRegister{}
}

// State is everything the five stages share: the four pipeline registers
// and the global stall and halt flags. The driver owns it and hands it to
// each stage in WB, MEM, EX, DE, IF order.
type State struct {
	IFDE  IFDERegister
	DEEX  DEEXRegister
	EXMEM EXMEMRegister
	MEMWB MEMWBRegister

	// ControlStallPending is raised when Decode sees a branch; Fetch turns
	// it into ControlStalled on its next fetch.
	ControlStallPending bool
	ControlStalled      bool
	DataStalled         bool
	ICacheWaiting       bool
	DCacheStalled       bool

	FEHalted  bool
	DEHalted  bool
	EXHalted  bool
	MEMHalted bool

	Running bool
}

func isHalt(inst *insts.Instruction) bool {
	return inst != nil && inst.Op == insts.OpHLT
}
