package insts

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/legsim/bitfield"
)

// ErrUnknownOpcode is the cause of every decode fault.
var ErrUnknownOpcode = errors.New("unknown opcode")

type opcodeEntry struct {
	mask   uint32
	match  uint32
	op     Op
	layout Layout
}

// opcodeTable is matched top to bottom; the first entry whose masked bits
// equal match wins.
var opcodeTable = []opcodeEntry{
	// R-format, shifted register (bit 21 clear) and extended register (set).
	{0xFFE00000, 0x8B000000, OpADD, LayoutR},
	{0xFFE00000, 0x8B200000, OpADD, LayoutR},
	{0xFFE00000, 0xAB000000, OpADDS, LayoutR},
	{0xFFE00000, 0xAB200000, OpADDS, LayoutR},
	{0xFFE00000, 0xCB000000, OpSUB, LayoutR},
	{0xFFE00000, 0xCB200000, OpSUB, LayoutR},
	{0xFFE00000, 0xEB000000, OpSUBS, LayoutR},
	{0xFFE00000, 0xEB200000, OpSUBS, LayoutR},
	{0xFFE00000, 0x8A000000, OpAND, LayoutR},
	{0xFFE00000, 0xEA000000, OpANDS, LayoutR},
	{0xFFE00000, 0xCA000000, OpEOR, LayoutR},
	{0xFFE00000, 0xAA000000, OpORR, LayoutR},
	{0xFFE0FC00, 0x9B007C00, OpMUL, LayoutR},

	// I-format arithmetic; bit 22 selects LSL #12 on imm12.
	{0xFF800000, 0x91000000, OpADDI, LayoutI},
	{0xFF800000, 0xB1000000, OpADDIS, LayoutI},
	{0xFF800000, 0xD1000000, OpSUBI, LayoutI},
	{0xFF800000, 0xF1000000, OpSUBIS, LayoutI},

	// UBFM; split into LSL/LSR by its immr/imms fields.
	{0xFFC00000, 0xD3400000, OpLSR, LayoutI},

	// D-format, unscaled offset (bits 11:10 clear).
	{0xFFE00C00, 0xF8400000, OpLDUR, LayoutD},
	{0xFFE00C00, 0xB8400000, OpLDURW, LayoutD},
	{0xFFE00C00, 0x78400000, OpLDURH, LayoutD},
	{0xFFE00C00, 0x38400000, OpLDURB, LayoutD},
	{0xFFE00C00, 0xF8000000, OpSTUR, LayoutD},
	{0xFFE00C00, 0xB8000000, OpSTURW, LayoutD},
	{0xFFE00C00, 0x78000000, OpSTURH, LayoutD},
	{0xFFE00C00, 0x38000000, OpSTURB, LayoutD},

	{0xFF800000, 0xD2800000, OpMOVZ, LayoutIM},

	{0xFFFFFC1F, 0xD61F0000, OpBR, LayoutBR},
	{0xFC000000, 0x14000000, OpB, LayoutB},
	{0xFF000000, 0xB4000000, OpCBZ, LayoutCB},
	{0xFF000000, 0xB5000000, OpCBNZ, LayoutCB},
	{0xFF000010, 0x54000000, OpBCond, LayoutBC},

	{0xFFE0001F, 0xD4400000, OpHLT, LayoutNOP},
}

// Decoder decodes LEGv8 machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit instruction word. Words outside the supported
// subset return an error whose cause is ErrUnknownOpcode.
func (d *Decoder) Decode(word uint32) (*Instruction, error) {
	for _, e := range opcodeTable {
		if word&e.mask != e.match {
			continue
		}

		inst := &Instruction{
			Word:   word,
			Op:     e.op,
			Layout: e.layout,
			Rd:     uint8(bitfield.Truncate32(word, 0, 5)),
			Rn:     uint8(bitfield.Truncate32(word, 5, 10)),
			Rm:     uint8(bitfield.Truncate32(word, 16, 21)),
		}

		if err := d.decodeOperands(inst); err != nil {
			return nil, err
		}

		return inst, nil
	}

	return nil, errors.Wrapf(ErrUnknownOpcode, "word 0x%08x", word)
}

func (d *Decoder) decodeOperands(inst *Instruction) error {
	word := inst.Word

	switch inst.Layout {
	case LayoutR:
		// Shifted-register forms with a nonzero shift are outside the subset.
		extended := bitfield.Truncate32(word, 21, 22) == 1
		if inst.Op != OpMUL && !extended && bitfield.Truncate32(word, 10, 16) != 0 {
			return errors.Wrapf(ErrUnknownOpcode,
				"word 0x%08x: shifted register operand", word)
		}
	case LayoutI:
		return d.decodeImmediate(inst)
	case LayoutD:
		inst.Imm = bitfield.SignExtend32(word, 12, 21)
		inst.Size = 1 << bitfield.Truncate32(word, 30, 32)
	case LayoutIM:
		hw := bitfield.Truncate32(word, 21, 23)
		inst.Imm = int64(uint64(bitfield.Truncate32(word, 5, 21)) << (hw * 16))
	case LayoutB:
		inst.Imm = bitfield.SignExtend32(word, 0, 26)
	case LayoutCB:
		inst.Imm = bitfield.SignExtend32(word, 5, 24)
	case LayoutBC:
		inst.Imm = bitfield.SignExtend32(word, 5, 24)
		inst.Cond = Cond(bitfield.Truncate32(word, 0, 4))
		if !inst.Cond.Valid() {
			return errors.Wrapf(ErrUnknownOpcode,
				"word 0x%08x: condition %04b", word, uint8(inst.Cond))
		}
	}

	return nil
}

func (d *Decoder) decodeImmediate(inst *Instruction) error {
	word := inst.Word

	if inst.Op != OpLSR {
		imm := int64(bitfield.Truncate32(word, 10, 22))
		if bitfield.Truncate32(word, 22, 23) == 1 {
			imm <<= 12
		}
		inst.Imm = imm

		return nil
	}

	immr := bitfield.Truncate32(word, 16, 22)
	imms := bitfield.Truncate32(word, 10, 16)

	switch {
	case imms == 63:
		inst.Imm = int64(immr)
	case imms+1 == immr:
		inst.Op = OpLSL
		inst.Imm = int64(63 - imms)
	default:
		return errors.Wrapf(ErrUnknownOpcode,
			"word 0x%08x: bitfield move is not a shift", word)
	}

	return nil
}
