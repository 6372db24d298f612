package insts

// Encoders for the supported subset. Branch offsets are in instructions,
// not bytes. They are used to build test programs and benchmarks.

func encodeR(base uint32, rd, rn, rm uint8) uint32 {
	return base | uint32(rm&0x1F)<<16 | uint32(rn&0x1F)<<5 | uint32(rd&0x1F)
}

func encodeI(base uint32, rd, rn uint8, imm12 uint16) uint32 {
	return base | uint32(imm12&0xFFF)<<10 | uint32(rn&0x1F)<<5 | uint32(rd&0x1F)
}

func encodeD(base uint32, rt, rn uint8, offset int16) uint32 {
	return base | (uint32(offset)&0x1FF)<<12 | uint32(rn&0x1F)<<5 | uint32(rt&0x1F)
}

func encodeCB(base uint32, rt uint8, offset int32) uint32 {
	return base | (uint32(offset)&0x7FFFF)<<5 | uint32(rt&0x1F)
}

// EncodeADD encodes ADD Xd, Xn, Xm.
func EncodeADD(rd, rn, rm uint8) uint32 { return encodeR(0x8B000000, rd, rn, rm) }

// EncodeADDS encodes ADDS Xd, Xn, Xm.
func EncodeADDS(rd, rn, rm uint8) uint32 { return encodeR(0xAB000000, rd, rn, rm) }

// EncodeSUB encodes SUB Xd, Xn, Xm.
func EncodeSUB(rd, rn, rm uint8) uint32 { return encodeR(0xCB000000, rd, rn, rm) }

// EncodeSUBS encodes SUBS Xd, Xn, Xm.
func EncodeSUBS(rd, rn, rm uint8) uint32 { return encodeR(0xEB000000, rd, rn, rm) }

// EncodeCMP encodes CMP Xn, Xm (SUBS XZR, Xn, Xm).
func EncodeCMP(rn, rm uint8) uint32 { return EncodeSUBS(31, rn, rm) }

// EncodeAND encodes AND Xd, Xn, Xm.
func EncodeAND(rd, rn, rm uint8) uint32 { return encodeR(0x8A000000, rd, rn, rm) }

// EncodeANDS encodes ANDS Xd, Xn, Xm.
func EncodeANDS(rd, rn, rm uint8) uint32 { return encodeR(0xEA000000, rd, rn, rm) }

// EncodeEOR encodes EOR Xd, Xn, Xm.
func EncodeEOR(rd, rn, rm uint8) uint32 { return encodeR(0xCA000000, rd, rn, rm) }

// EncodeORR encodes ORR Xd, Xn, Xm.
func EncodeORR(rd, rn, rm uint8) uint32 { return encodeR(0xAA000000, rd, rn, rm) }

// EncodeMUL encodes MUL Xd, Xn, Xm (MADD with XZR accumulator).
func EncodeMUL(rd, rn, rm uint8) uint32 { return encodeR(0x9B007C00, rd, rn, rm) }

// EncodeADDI encodes ADDI Xd, Xn, #imm12.
func EncodeADDI(rd, rn uint8, imm12 uint16) uint32 { return encodeI(0x91000000, rd, rn, imm12) }

// EncodeADDIS encodes ADDIS Xd, Xn, #imm12.
func EncodeADDIS(rd, rn uint8, imm12 uint16) uint32 { return encodeI(0xB1000000, rd, rn, imm12) }

// EncodeSUBI encodes SUBI Xd, Xn, #imm12.
func EncodeSUBI(rd, rn uint8, imm12 uint16) uint32 { return encodeI(0xD1000000, rd, rn, imm12) }

// EncodeSUBIS encodes SUBIS Xd, Xn, #imm12.
func EncodeSUBIS(rd, rn uint8, imm12 uint16) uint32 { return encodeI(0xF1000000, rd, rn, imm12) }

// EncodeCMPI encodes CMPI Xn, #imm12 (SUBIS XZR, Xn, #imm12).
func EncodeCMPI(rn uint8, imm12 uint16) uint32 { return EncodeSUBIS(31, rn, imm12) }

// EncodeLSL encodes LSL Xd, Xn, #shift.
func EncodeLSL(rd, rn uint8, shift uint8) uint32 {
	s := uint32(shift & 63)
	immr := (64 - s) & 63
	imms := 63 - s
	return 0xD3400000 | immr<<16 | imms<<10 | uint32(rn&0x1F)<<5 | uint32(rd&0x1F)
}

// EncodeLSR encodes LSR Xd, Xn, #shift.
func EncodeLSR(rd, rn uint8, shift uint8) uint32 {
	return 0xD3400000 | uint32(shift&63)<<16 | 63<<10 | uint32(rn&0x1F)<<5 | uint32(rd&0x1F)
}

// EncodeLDUR encodes LDUR Xt, [Xn, #offset].
func EncodeLDUR(rt, rn uint8, offset int16) uint32 { return encodeD(0xF8400000, rt, rn, offset) }

// EncodeLDURW encodes a 32-bit LDUR.
func EncodeLDURW(rt, rn uint8, offset int16) uint32 { return encodeD(0xB8400000, rt, rn, offset) }

// EncodeLDURH encodes LDURH.
func EncodeLDURH(rt, rn uint8, offset int16) uint32 { return encodeD(0x78400000, rt, rn, offset) }

// EncodeLDURB encodes LDURB.
func EncodeLDURB(rt, rn uint8, offset int16) uint32 { return encodeD(0x38400000, rt, rn, offset) }

// EncodeSTUR encodes STUR Xt, [Xn, #offset].
func EncodeSTUR(rt, rn uint8, offset int16) uint32 { return encodeD(0xF8000000, rt, rn, offset) }

// EncodeSTURW encodes a 32-bit STUR.
func EncodeSTURW(rt, rn uint8, offset int16) uint32 { return encodeD(0xB8000000, rt, rn, offset) }

// EncodeSTURH encodes STURH.
func EncodeSTURH(rt, rn uint8, offset int16) uint32 { return encodeD(0x78000000, rt, rn, offset) }

// EncodeSTURB encodes STURB.
func EncodeSTURB(rt, rn uint8, offset int16) uint32 { return encodeD(0x38000000, rt, rn, offset) }

// EncodeMOVZ encodes MOVZ Xd, #imm16, LSL #(hw*16).
func EncodeMOVZ(rd uint8, imm16 uint16, hw uint8) uint32 {
	return 0xD2800000 | uint32(hw&3)<<21 | uint32(imm16)<<5 | uint32(rd&0x1F)
}

// EncodeB encodes B with an offset in instructions.
func EncodeB(offset int32) uint32 {
	return 0x14000000 | uint32(offset)&0x3FFFFFF
}

// EncodeBR encodes BR Xn.
func EncodeBR(rn uint8) uint32 {
	return 0xD61F0000 | uint32(rn&0x1F)<<5
}

// EncodeCBZ encodes CBZ Xt, offset.
func EncodeCBZ(rt uint8, offset int32) uint32 { return encodeCB(0xB4000000, rt, offset) }

// EncodeCBNZ encodes CBNZ Xt, offset.
func EncodeCBNZ(rt uint8, offset int32) uint32 { return encodeCB(0xB5000000, rt, offset) }

// EncodeBCond encodes B.cond offset.
func EncodeBCond(cond Cond, offset int32) uint32 {
	return 0x54000000 | (uint32(offset)&0x7FFFF)<<5 | uint32(cond&0xF)
}

// EncodeHLT encodes HLT #0.
func EncodeHLT() uint32 {
	return 0xD4400000
}
