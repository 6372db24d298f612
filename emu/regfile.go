// Package emu provides the architectural state of the simulated LEGv8 core
// and a functional reference emulator for it.
package emu

import "fmt"

// XZR is the index of the hard-wired zero register.
const XZR = 31

// RegFile represents the architectural register file.
// It contains 31 general-purpose registers (X0-X30),
// the program counter (PC), and the condition flags.
type RegFile struct {
	// X holds general-purpose registers X0-X30.
	// X[31] is the zero register (XZR) which always reads as 0.
	X [32]uint64

	// PC is the program counter.
	PC uint64

	// Flags holds the condition flags.
	Flags Flags
}

// Flags holds the two condition flags the ISA subset uses.
type Flags struct {
	// N is the negative flag.
	N bool
	// Z is the zero flag.
	Z bool
}

// FlagsFor returns the flags a flag-setting instruction produces for result.
func FlagsFor(result uint64) Flags {
	return Flags{
		N: int64(result) < 0,
		Z: result == 0,
	}
}

// ReadReg reads a register value. Register 31 returns 0 (XZR).
func (r *RegFile) ReadReg(reg uint8) uint64 {
	if reg >= XZR {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to register 31+ are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if reg >= XZR {
		return
	}
	r.X[reg] = value
}

// Reset clears all registers and flags and sets the PC.
func (r *RegFile) Reset(pc uint64) {
	*r = RegFile{PC: pc}
}

// String formats the register file for diagnostic dumps.
func (r *RegFile) String() string {
	s := fmt.Sprintf("PC=0x%016x N=%t Z=%t\n", r.PC, r.Flags.N, r.Flags.Z)
	for i := 0; i < XZR; i++ {
		s += fmt.Sprintf("X%-2d=0x%016x", i, r.X[i])
		if i%4 == 3 {
			s += "\n"
		} else {
			s += "  "
		}
	}

	return s + "\n"
}
