package pipeline

import (
	"github.com/sarchlab/legsim/emu"
)

// ForwardSource indicates where a forwarded value should come from.
type ForwardSource int

const (
	// ForwardNone means no forwarding needed - use register file value.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM means forward from EX/MEM pipeline register.
	ForwardFromEXMEM
	// ForwardFromMEMWB means forward from MEM/WB pipeline register.
	ForwardFromMEMWB
)

// ForwardingResult contains forwarding decisions for both read ports and
// the flags.
type ForwardingResult struct {
	// ForwardRn specifies the forwarding source for the first read port.
	ForwardRn ForwardSource
	// ForwardRm specifies the forwarding source for the second read port.
	ForwardRm ForwardSource
	// ForwardFlags specifies where the condition flags come from.
	ForwardFlags ForwardSource
	// Stall is set when a source is produced by a load still in EX/MEM.
	Stall bool
}

// HazardUnit detects data hazards and determines forwarding/stall signals.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// producesRegister reports whether the slot will write a register value that
// a younger instruction may consume.
func producesRegister(valid bool, cat Category, wb WritebackControl) bool {
	return valid && wb.RegWrite && (cat == CategoryOperate || cat == CategoryDataMove)
}

func isLoadSlot(exmem *EXMEMRegister) bool {
	return exmem.Category == CategoryDataMove && exmem.WB.MemToReg && exmem.WB.RegWrite
}

// DetectForwarding determines how the instruction in DE/EX gets its operands.
// EX/MEM holds the younger producer and is checked first.
func (h *HazardUnit) DetectForwarding(
	deex *DEEXRegister,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) ForwardingResult {
	result := ForwardingResult{ForwardFlags: h.detectFlags(exmem, memwb)}

	if !deex.Valid || deex.Inst == nil || deex.Category.IsBubble() {
		return result
	}

	usesRn, usesRm := deex.Inst.Sources()

	if usesRn {
		var stall bool
		result.ForwardRn, stall = h.detectForwardForReg(deex.Rn, exmem, memwb)
		result.Stall = result.Stall || stall
	}

	if usesRm {
		var stall bool
		result.ForwardRm, stall = h.detectForwardForReg(deex.Rm, exmem, memwb)
		result.Stall = result.Stall || stall
	}

	return result
}

// detectForwardForReg checks if a specific register needs forwarding.
func (h *HazardUnit) detectForwardForReg(
	reg uint8,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) (ForwardSource, bool) {
	// XZR (register 31) always reads as 0, no need to forward
	if reg == emu.XZR {
		return ForwardNone, false
	}

	if producesRegister(exmem.Valid, exmem.Category, exmem.WB) && exmem.Rd == reg {
		if isLoadSlot(exmem) {
			return ForwardNone, true
		}
		return ForwardFromEXMEM, false
	}

	if producesRegister(memwb.Valid, memwb.Category, memwb.WB) && memwb.Rd == reg {
		return ForwardFromMEMWB, false
	}

	return ForwardNone, false
}

func (h *HazardUnit) detectFlags(exmem *EXMEMRegister, memwb *MEMWBRegister) ForwardSource {
	if exmem.Valid && exmem.WB.SetFlags {
		return ForwardFromEXMEM
	}
	if memwb.Valid && memwb.WB.SetFlags {
		return ForwardFromMEMWB
	}
	return ForwardNone
}

// GetForwardedValue returns the value to use based on forwarding decision.
func (h *HazardUnit) GetForwardedValue(
	forward ForwardSource,
	originalValue uint64,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) uint64 {
	switch forward {
	case ForwardFromEXMEM:
		return exmem.ALUResult
	case ForwardFromMEMWB:
		// For load instructions, use memory data; otherwise use ALU result
		if memwb.WB.MemToReg {
			return memwb.MemData
		}
		return memwb.ALUResult
	default:
		return originalValue
	}
}

// GetForwardedFlags returns the flags the instruction in DE/EX should test.
func (h *HazardUnit) GetForwardedFlags(
	forward ForwardSource,
	architectural emu.Flags,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) emu.Flags {
	switch forward {
	case ForwardFromEXMEM:
		return emu.FlagsFor(exmem.ALUResult)
	case ForwardFromMEMWB:
		return emu.FlagsFor(memwb.ALUResult)
	default:
		return architectural
	}
}

// Apply runs forwarding for the cycle: it patches the DE/EX operands and
// flags in place and raises or clears the data stall.
func (h *HazardUnit) Apply(st *State, architectural emu.Flags) ForwardingResult {
	result := h.DetectForwarding(&st.DEEX, &st.EXMEM, &st.MEMWB)
	st.DataStalled = result.Stall

	if !st.DEEX.Valid || st.DEEX.Category.IsBubble() {
		return result
	}

	deex := &st.DEEX
	deex.RnValue = h.GetForwardedValue(result.ForwardRn, deex.RnValue, &st.EXMEM, &st.MEMWB)
	deex.RmValue = h.GetForwardedValue(result.ForwardRm, deex.RmValue, &st.EXMEM, &st.MEMWB)
	deex.Snapshot.Flags = h.GetForwardedFlags(
		result.ForwardFlags, architectural, &st.EXMEM, &st.MEMWB)

	return result
}
