package cache

import (
	"github.com/sarchlab/legsim/emu"
)

// MemoryBacking wraps emu.Memory as a BackingStore and counts the word
// traffic the caches generate.
type MemoryBacking struct {
	memory *emu.Memory

	WordReads  uint64
	WordWrites uint64
}

// NewMemoryBacking creates a new MemoryBacking adapter.
func NewMemoryBacking(memory *emu.Memory) *MemoryBacking {
	return &MemoryBacking{memory: memory}
}

// ReadWord fetches a word from the backing memory.
func (m *MemoryBacking) ReadWord(addr uint64) uint32 {
	m.WordReads++
	return m.memory.Read32(addr)
}

// WriteWord stores a word to the backing memory.
func (m *MemoryBacking) WriteWord(addr uint64, value uint32) {
	m.WordWrites++
	m.memory.Write32(addr, value)
}
