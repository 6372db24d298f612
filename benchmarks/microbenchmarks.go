package benchmarks

import (
	"github.com/sarchlab/legsim/emu"
	"github.com/sarchlab/legsim/insts"
)

// DataBase is where benchmarks keep their input and output arrays.
const DataBase uint64 = 0x10010000

// loadDataBase puts DataBase into rd.
func loadDataBase(rd uint8) uint32 {
	return insts.EncodeMOVZ(rd, uint16(DataBase>>16), 1)
}

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each one
// targets a specific pipeline behavior.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		loadUseChain(),
		countdownLoop(),
		prefixSum(),
		indirectBranch(),
		zeroSearch(),
		mulShiftLogic(),
		subwordAccess(),
	}
}

// GetCoreBenchmarks returns a small set for quick validation: a loop, a
// memory-heavy kernel and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		countdownLoop(),
		prefixSum(),
		zeroSearch(),
	}
}

func arithmeticSequential() Benchmark {
	program := make([]uint32, 0, 21)
	for i := 0; i < 20; i++ {
		r := uint8(i % 5)
		program = append(program, insts.EncodeADDI(r, r, 1))
	}
	program = append(program, insts.EncodeHLT())

	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 ADDIs over 5 registers - no stalls once the I-cache is warm",
		Program:      program,
		ExpectedRegs: map[uint8]uint64{0: 4, 4: 4},
	}
}

func dependencyChain() Benchmark {
	program := make([]uint32, 0, 21)
	for i := 0; i < 20; i++ {
		program = append(program, insts.EncodeADDI(0, 0, 1))
	}
	program = append(program, insts.EncodeHLT())

	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent ADDIs (X0 = X0 + 1) - every operand forwarded",
		Program:      program,
		ExpectedRegs: map[uint8]uint64{0: 20},
	}
}

func loadUseChain() Benchmark {
	return Benchmark{
		Name:        "load_use_chain",
		Description: "pointer chase through memory - one data stall per link",
		Setup: func(memory *emu.Memory) {
			memory.Write64(DataBase, DataBase+0x100)
			memory.Write64(DataBase+0x100, DataBase+0x200)
			memory.Write64(DataBase+0x200, 77)
		},
		Program: []uint32{
			loadDataBase(1),
			insts.EncodeLDUR(2, 1, 0),
			insts.EncodeLDUR(3, 2, 0),
			insts.EncodeLDUR(4, 3, 0),
			insts.EncodeADD(5, 4, 4),
			insts.EncodeHLT(),
		},
		ExpectedRegs: map[uint8]uint64{4: 77, 5: 154},
	}
}

func countdownLoop() Benchmark {
	return Benchmark{
		Name:        "countdown_loop",
		Description: "10-iteration SUBIS/B.NE loop - flag forwarding into a conditional branch",
		Program: []uint32{
			insts.EncodeADDI(0, 31, 10),
			insts.EncodeADDI(1, 1, 3),
			insts.EncodeSUBIS(0, 0, 1),
			insts.EncodeBCond(insts.CondNE, -2),
			insts.EncodeHLT(),
		},
		ExpectedRegs: map[uint8]uint64{0: 0, 1: 30},
	}
}

const prefixSumLen = 16

func prefixSum() Benchmark {
	outputs := make([]uint64, prefixSumLen)
	for i := range outputs {
		outputs[i] = DataBase + uint64(i)*8
	}

	return Benchmark{
		Name:        "array_prefix_sum",
		Description: "fill a[i] = i+1, then prefix-sum in place - loads, stores and loops",
		Program: []uint32{
			loadDataBase(1),
			insts.EncodeADDI(2, 31, prefixSumLen),
			insts.EncodeADDI(3, 31, 0),
			insts.EncodeADDI(4, 1, 0),
			// fill
			insts.EncodeADDI(3, 3, 1),
			insts.EncodeSTUR(3, 4, 0),
			insts.EncodeADDI(4, 4, 8),
			insts.EncodeSUBIS(2, 2, 1),
			insts.EncodeBCond(insts.CondNE, -4),
			// scan
			insts.EncodeADDI(2, 31, prefixSumLen-1),
			insts.EncodeADDI(4, 1, 8),
			insts.EncodeLDUR(5, 1, 0),
			insts.EncodeLDUR(6, 4, 0),
			insts.EncodeADD(5, 5, 6),
			insts.EncodeSTUR(5, 4, 0),
			insts.EncodeADDI(4, 4, 8),
			insts.EncodeSUBIS(2, 2, 1),
			insts.EncodeBCond(insts.CondNE, -5),
			insts.EncodeHLT(),
		},
		Outputs:      outputs,
		ExpectedRegs: map[uint8]uint64{5: prefixSumLen * (prefixSumLen + 1) / 2},
	}
}

func indirectBranch() Benchmark {
	return Benchmark{
		Name:        "indirect_branch",
		Description: "BR into a body that branches back - BTB targets for BR and B",
		Program: []uint32{
			insts.EncodeMOVZ(9, 0x40, 1),
			insts.EncodeADDI(9, 9, 32),
			insts.EncodeADDI(0, 31, 4),
			insts.EncodeBR(9),
			insts.EncodeADDI(7, 31, 99),
			insts.EncodeSUBIS(0, 0, 1),
			insts.EncodeBCond(insts.CondNE, -3),
			insts.EncodeHLT(),
			insts.EncodeADDI(1, 1, 5),
			insts.EncodeB(-4),
		},
		ExpectedRegs: map[uint8]uint64{1: 20, 7: 0},
	}
}

func zeroSearch() Benchmark {
	return Benchmark{
		Name:        "zero_search",
		Description: "CBZ on freshly loaded values - load-use stall feeding a branch",
		Setup: func(memory *emu.Memory) {
			for i, v := range []uint64{5, 3, 7, 0, 9} {
				memory.Write64(DataBase+uint64(i)*8, v)
			}
		},
		Program: []uint32{
			loadDataBase(1),
			insts.EncodeADDI(2, 31, 0),
			insts.EncodeLDUR(3, 1, 0),
			insts.EncodeCBZ(3, 4),
			insts.EncodeADDI(1, 1, 8),
			insts.EncodeADDI(2, 2, 1),
			insts.EncodeB(-4),
			insts.EncodeHLT(),
		},
		ExpectedRegs: map[uint8]uint64{2: 3},
	}
}

func mulShiftLogic() Benchmark {
	return Benchmark{
		Name:        "mul_shift_logic",
		Description: "MUL, shifts and bitwise ops in a dependent chain",
		Program: []uint32{
			insts.EncodeADDI(1, 31, 7),
			insts.EncodeADDI(2, 31, 6),
			insts.EncodeMUL(3, 1, 2),
			insts.EncodeLSL(4, 3, 4),
			insts.EncodeLSR(5, 4, 2),
			insts.EncodeAND(6, 5, 3),
			insts.EncodeORR(7, 6, 1),
			insts.EncodeEOR(8, 7, 2),
			insts.EncodeHLT(),
		},
		ExpectedRegs: map[uint8]uint64{3: 42, 4: 672, 5: 168, 6: 40, 7: 47, 8: 41},
	}
}

func subwordAccess() Benchmark {
	return Benchmark{
		Name:        "subword_access",
		Description: "byte, halfword and word loads and stores within one block",
		Setup: func(memory *emu.Memory) {
			memory.Write64(DataBase, 0x0123456789ABCDEF)
		},
		Program: []uint32{
			loadDataBase(1),
			insts.EncodeLDUR(2, 1, 0),
			insts.EncodeLDURW(3, 1, 0),
			insts.EncodeLDURH(4, 1, 2),
			insts.EncodeLDURB(5, 1, 7),
			insts.EncodeSTURB(2, 1, 8),
			insts.EncodeSTURH(2, 1, 16),
			insts.EncodeSTURW(2, 1, 24),
			insts.EncodeHLT(),
		},
		Outputs: []uint64{DataBase + 8, DataBase + 16, DataBase + 24},
		ExpectedRegs: map[uint8]uint64{
			3: 0x89ABCDEF,
			4: 0x89AB,
			5: 0x01,
		},
	}
}
