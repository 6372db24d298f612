package emu

import "encoding/binary"

const pageSize = 4096

// Memory is a sparse, byte-addressable, little-endian memory. Unwritten
// bytes read as zero. It never stalls; all timing comes from the caches
// placed in front of it.
type Memory struct {
	pages map[uint64]*[pageSize]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint64]*[pageSize]byte)}
}

func (m *Memory) page(addr uint64, create bool) *[pageSize]byte {
	base := addr &^ (pageSize - 1)

	p, ok := m.pages[base]
	if !ok && create {
		p = new([pageSize]byte)
		m.pages[base] = p
	}

	return p
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint64) byte {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}

	return p[addr&(pageSize-1)]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint64, value byte) {
	m.page(addr, true)[addr&(pageSize-1)] = value
}

func (m *Memory) read(addr uint64, buf []byte) {
	for i := range buf {
		buf[i] = m.Read8(addr + uint64(i))
	}
}

func (m *Memory) write(addr uint64, buf []byte) {
	for i, b := range buf {
		m.Write8(addr+uint64(i), b)
	}
}

// Read16 reads a little-endian halfword.
func (m *Memory) Read16(addr uint64) uint16 {
	var buf [2]byte
	m.read(addr, buf[:])
	return binary.LittleEndian.Uint16(buf[:])
}

// Write16 writes a little-endian halfword.
func (m *Memory) Write16(addr uint64, value uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], value)
	m.write(addr, buf[:])
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint64) uint32 {
	var buf [4]byte
	m.read(addr, buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint64, value uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	m.write(addr, buf[:])
}

// Read64 reads a little-endian doubleword.
func (m *Memory) Read64(addr uint64) uint64 {
	var buf [8]byte
	m.read(addr, buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// Write64 writes a little-endian doubleword.
func (m *Memory) Write64(addr uint64, value uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	m.write(addr, buf[:])
}

// ReadSized reads a zero-extended value of size bytes (1, 2, 4 or 8).
func (m *Memory) ReadSized(addr uint64, size int) uint64 {
	var buf [8]byte
	m.read(addr, buf[:size])
	return binary.LittleEndian.Uint64(buf[:])
}

// WriteSized writes the low size bytes of value.
func (m *Memory) WriteSized(addr uint64, size int, value uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	m.write(addr, buf[:size])
}

// Clone returns a deep copy, used to run two models on the same image.
func (m *Memory) Clone() *Memory {
	c := NewMemory()
	for base, p := range m.pages {
		cp := *p
		c.pages[base] = &cp
	}

	return c
}
