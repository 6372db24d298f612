// Package bitfield extracts and sign-extends fixed-width fields from
// instruction and data words, and moves little-endian values in and out of
// byte blocks.
package bitfield

import (
	"encoding/binary"
	"log"
)

// Truncate32 returns bits [lo, hi) of v, shifted down to bit 0.
func Truncate32(v uint32, lo, hi uint) uint32 {
	return uint32(Truncate64(uint64(v), lo, hi))
}

// Truncate64 returns bits [lo, hi) of v, shifted down to bit 0.
func Truncate64(v uint64, lo, hi uint) uint64 {
	if hi <= lo {
		return 0
	}

	width := hi - lo
	if width >= 64 {
		return v >> lo
	}

	return (v >> lo) & (1<<width - 1)
}

// SignExtend returns bits [lo, hi) of v interpreted as a two's complement
// number of width hi-lo.
func SignExtend(v uint64, lo, hi uint) int64 {
	width := hi - lo
	field := Truncate64(v, lo, hi)
	if width == 0 || width >= 64 {
		return int64(field)
	}

	shift := 64 - width

	return int64(field<<shift) >> shift
}

// SignExtend32 is SignExtend for 32-bit instruction words.
func SignExtend32(v uint32, lo, hi uint) int64 {
	return SignExtend(uint64(v), lo, hi)
}

// ReadBytes reads a little-endian value of size bytes (1..8) at offset.
// The access must lie inside buf.
func ReadBytes(buf []byte, offset uint64, size int) uint64 {
	checkRange(buf, offset, size)

	var tmp [8]byte
	copy(tmp[:], buf[offset:offset+uint64(size)])

	return binary.LittleEndian.Uint64(tmp[:])
}

// WriteBytes stores the low size bytes of v at offset, little-endian.
func WriteBytes(buf []byte, offset uint64, size int, v uint64) {
	checkRange(buf, offset, size)

	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	copy(buf[offset:offset+uint64(size)], tmp[:size])
}

// Mask keeps the low size bytes of v.
func Mask(v uint64, size int) uint64 {
	if size >= 8 {
		return v
	}

	return v & (1<<(uint(size)*8) - 1)
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns the base-2 logarithm of a power of two.
func Log2(n int) uint {
	var l uint
	for n > 1 {
		n >>= 1
		l++
	}

	return l
}

func checkRange(buf []byte, offset uint64, size int) {
	if size < 1 || size > 8 || offset+uint64(size) > uint64(len(buf)) {
		log.Panicf("access of %d bytes at offset %d outside %d-byte block",
			size, offset, len(buf))
	}
}
