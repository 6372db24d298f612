package pipeline

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/legsim/emu"
	"github.com/sarchlab/legsim/insts"
	"github.com/sarchlab/legsim/timing/cache"
)

// FetchStage handles instruction fetch through the instruction cache.
type FetchStage struct {
	*probe
	regFile   *emu.RegFile
	icache    *cache.Cache
	predictor *BranchPredictor
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(
	regFile *emu.RegFile,
	icache *cache.Cache,
	predictor *BranchPredictor,
	p *probe,
) *FetchStage {
	return &FetchStage{probe: p, regFile: regFile, icache: icache, predictor: predictor}
}

// Tick fetches the word at PC into IF/DE and moves PC to the predicted next
// PC. A miss leaves PC where it is and marks IF/DE as a memory stall.
func (s *FetchStage) Tick(st *State) {
	if st.FEHalted || st.DCacheStalled {
		return
	}

	if st.ControlStalled {
		st.IFDE.Squash = true
		return
	}

	if st.DataStalled {
		return
	}

	if st.ControlStallPending {
		st.ControlStallPending = false
		st.ControlStalled = true
	}

	pc := s.regFile.PC

	res := s.icache.Read(pc, 4)
	if !res.Done() {
		st.ICacheWaiting = true
		st.IFDE.MemStall = true
		st.IFDE.Squash = false
		st.IFDE.Flush = false
		s.stats.FetchStalls++
		s.record(EventFetchStall, pc, 0)

		return
	}

	st.ICacheWaiting = false

	pred := s.predictor.Predict(pc)
	st.IFDE = IFDERegister{
		Valid:           true,
		Snapshot:        Snapshot{PC: pc, Flags: s.regFile.Flags},
		InstructionWord: uint32(res.Data),
		PredictedTaken:  pred.Taken,
		PredictedPC:     pred.NextPC,
	}
	s.regFile.PC = pred.NextPC
}

// DecodeStage handles instruction decode and register read.
type DecodeStage struct {
	*probe
	regFile *emu.RegFile
	decoder *insts.Decoder
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile, p *probe) *DecodeStage {
	return &DecodeStage{
		probe:   p,
		regFile: regFile,
		decoder: insts.NewDecoder(),
	}
}

// Tick turns IF/DE into DE/EX. It returns an error only for a word the
// decoder does not know, which ends the run.
func (s *DecodeStage) Tick(st *State) error {
	if !st.IFDE.Valid || st.DEHalted || st.DCacheStalled {
		return nil
	}

	in := &st.IFDE

	if in.Squash || in.Flush {
		st.DEEX = DEEXRegister{
			Valid:    true,
			Snapshot: in.Snapshot,
			Category: CategoryControlBubble,
		}
		s.stats.ControlBubbles++

		return nil
	}

	// DE/EX holds the stalled instruction; a pending fetch miss waits behind it.
	if st.DataStalled {
		return nil
	}

	if in.MemStall {
		st.DEEX = DEEXRegister{
			Valid:    true,
			Snapshot: in.Snapshot,
			Category: CategoryMemBubble,
		}

		return nil
	}

	inst, err := s.decoder.Decode(in.InstructionWord)
	if err != nil {
		return errors.Wrapf(err, "decode fault at pc 0x%x", in.Snapshot.PC)
	}

	category, controls := ControlsFor(inst)
	if category == CategoryControl {
		st.ControlStallPending = true
	}

	rn := inst.ReadRegister1()
	rm := inst.ReadRegister2()

	st.DEEX = DEEXRegister{
		Valid:          true,
		Snapshot:       in.Snapshot,
		Category:       category,
		Controls:       controls,
		Inst:           inst,
		Rn:             rn,
		Rm:             rm,
		RnValue:        s.regFile.ReadReg(rn),
		RmValue:        s.regFile.ReadReg(rm),
		Imm:            inst.Imm,
		Rd:             inst.Rd,
		PredictedTaken: in.PredictedTaken,
		PredictedPC:    in.PredictedPC,
	}

	if isHalt(inst) {
		st.FEHalted = true
		s.regFile.PC = in.Snapshot.PC + 4
		s.record(EventHalt, in.Snapshot.PC, in.InstructionWord)
	}

	if st.FEHalted {
		st.DEHalted = true
	}

	return nil
}

// ExecuteStage handles ALU operations and branch resolution.
type ExecuteStage struct {
	*probe
	regFile   *emu.RegFile
	icache    *cache.Cache
	predictor *BranchPredictor
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage(
	regFile *emu.RegFile,
	icache *cache.Cache,
	predictor *BranchPredictor,
	p *probe,
) *ExecuteStage {
	return &ExecuteStage{probe: p, regFile: regFile, icache: icache, predictor: predictor}
}

// Tick executes DE/EX into EX/MEM. Under a data stall DE/EX is left alone
// and a data bubble goes down the pipe instead.
func (s *ExecuteStage) Tick(st *State) {
	if st.EXHalted || st.DCacheStalled || !st.DEEX.Valid {
		return
	}

	in := st.DEEX

	if st.DataStalled {
		st.EXMEM = EXMEMRegister{
			Valid:    true,
			Snapshot: in.Snapshot,
			Category: CategoryDataBubble,
		}
		s.stats.DataStalls++
		s.record(EventDataStall, in.Snapshot.PC, 0)

		return
	}

	if in.Category.IsBubble() {
		if in.Category == CategoryControlBubble {
			st.ControlStalled = false
		}

		st.EXMEM = EXMEMRegister{
			Valid:    true,
			Snapshot: in.Snapshot,
			Category: in.Category,
		}

		return
	}

	ex := in.Controls.EX

	op2 := in.RmValue
	if ex.ALUSrc {
		op2 = uint64(in.Imm)
	}

	result := executeALU(ex.ALUOp, in.RnValue, op2)
	zero := result == 0

	target := in.Snapshot.PC + uint64(in.Imm*4)
	if ex.Branch == BranchRegister {
		target = in.RnValue
	}

	m := in.Controls.M
	if in.Category == CategoryControl {
		m.ConditionMet = s.resolveBranch(st, &in, zero, target)
	}

	if isHalt(in.Inst) {
		st.EXHalted = true
	}

	st.EXMEM = EXMEMRegister{
		Valid:      true,
		Snapshot:   in.Snapshot,
		Category:   in.Category,
		M:          m,
		WB:         in.Controls.WB,
		Inst:       in.Inst,
		TargetPC:   target,
		ALUZero:    zero,
		ALUResult:  result,
		StoreValue: in.RmValue,
		Rd:         in.Rd,
	}
}

// resolveBranch settles a control instruction against its prediction,
// redirects fetch on a mismatch and trains the predictor.
func (s *ExecuteStage) resolveBranch(st *State, in *DEEXRegister, zero bool, target uint64) bool {
	ex := in.Controls.EX
	pc := in.Snapshot.PC

	taken := in.Controls.M.ConfirmedBranch
	switch ex.Branch {
	case BranchCompare:
		taken = zero == ex.BranchIfZero
	case BranchFlags:
		taken = ex.Cond.Holds(in.Snapshot.Flags.N, in.Snapshot.Flags.Z)
	}

	next := pc + 4
	if taken {
		next = target
	}

	fetchPC := s.regFile.PC
	correct := next == in.PredictedPC

	st.IFDE.Squash = true
	if correct {
		st.ControlStalled = false
		st.IFDE.Squash = false
	} else {
		s.regFile.PC = next
		st.IFDE.Flush = true
		s.stats.Flushes++
		s.record(EventFlush, pc, in.Inst.Word)
	}

	s.predictor.Update(!in.Controls.M.ConfirmedBranch, taken, pc, target)
	s.predictor.RecordOutcome(correct)

	blockMask := ^uint64(s.icache.Config().BlockSize - 1)
	if st.ICacheWaiting && fetchPC&blockMask != s.regFile.PC&blockMask {
		if _, pending := s.icache.Remaining(fetchPC); pending {
			s.icache.Cancel(fetchPC)
			s.stats.CancelledFetches++
			s.record(EventFetchCancel, fetchPC, 0)
		}
		st.ICacheWaiting = false
	}

	return taken
}

// MemoryStage handles data memory access through the data cache.
type MemoryStage struct {
	*probe
	dcache *cache.Cache

	// checkpoint is the EX/MEM contents at the start of a data cache stall.
	checkpoint EXMEMRegister
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(dcache *cache.Cache, p *probe) *MemoryStage {
	return &MemoryStage{probe: p, dcache: dcache}
}

// Tick issues or polls the data cache access for EX/MEM. While the access
// is outstanding MEM/WB receives memory bubbles.
func (s *MemoryStage) Tick(st *State) {
	if st.MEMHalted || !st.EXMEM.Valid {
		return
	}

	in := st.EXMEM
	if st.DCacheStalled {
		in = s.checkpoint
	}

	var res cache.AccessResult

	switch {
	case in.M.MemRead:
		res = s.dcache.Read(in.ALUResult, in.M.Size)
	case in.M.MemWrite:
		res = s.dcache.Write(in.ALUResult, in.M.Size, in.StoreValue)
	}

	if !res.Done() {
		if !st.DCacheStalled {
			s.checkpoint = in
		}

		st.MEMWB = MEMWBRegister{
			Valid:    true,
			Snapshot: in.Snapshot,
			Category: CategoryMemBubble,
		}
		s.stats.MemStalls++
		s.record(EventMemStall, in.Snapshot.PC, 0)

		return
	}

	st.MEMWB = MEMWBRegister{
		Valid:     true,
		Snapshot:  in.Snapshot,
		Category:  in.Category,
		WB:        in.WB,
		Inst:      in.Inst,
		ALUResult: in.ALUResult,
		MemData:   res.Data,
		Rd:        in.Rd,
	}

	if isHalt(in.Inst) {
		st.MEMHalted = true
	}
}

// WritebackStage handles writing results back to the register file.
type WritebackStage struct {
	*probe
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile, p *probe) *WritebackStage {
	return &WritebackStage{probe: p, regFile: regFile}
}

// Tick retires MEM/WB. Once the halt has passed Memory, the run ends here.
func (s *WritebackStage) Tick(st *State) {
	if !st.MEMWB.Valid {
		return
	}

	in := &st.MEMWB

	value := in.ALUResult
	if in.WB.MemToReg {
		value = in.MemData
	}

	if in.WB.RegWrite {
		s.regFile.WriteReg(in.Rd, value)
	}

	if in.WB.SetFlags {
		s.regFile.Flags = emu.FlagsFor(value)
	}

	if !in.Category.IsBubble() {
		s.stats.Instructions++

		var word uint32
		if in.Inst != nil {
			word = in.Inst.Word
		}
		s.record(EventRetire, in.Snapshot.PC, word)
	}

	if st.MEMHalted {
		st.Running = false
	}
}
