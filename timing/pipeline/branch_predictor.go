package pipeline

import (
	"github.com/sarchlab/legsim/bitfield"
)

// BranchPredictorConfig holds configuration for the branch predictor.
type BranchPredictorConfig struct {
	// HistoryBits is the global history length. The pattern history table
	// has 1<<HistoryBits entries. Default is 8.
	HistoryBits uint `json:"history_bits"`
	// BTBIndexBits sizes the Branch Target Buffer at 1<<BTBIndexBits
	// entries. Default is 10.
	BTBIndexBits uint `json:"btb_index_bits"`
}

// DefaultBranchPredictorConfig returns a default configuration.
func DefaultBranchPredictorConfig() BranchPredictorConfig {
	return BranchPredictorConfig{
		HistoryBits:  8,
		BTBIndexBits: 10,
	}
}

// BranchPredictorStats holds statistics for the branch predictor.
type BranchPredictorStats struct {
	// Lookups is the number of fetches that consulted the predictor.
	Lookups uint64
	// BTBHits is the number of lookups that found their own BTB entry.
	BTBHits uint64
	// BTBMisses is the number of lookups that did not.
	BTBMisses uint64
	// Resolved is the number of control instructions resolved in Execute.
	Resolved uint64
	// Correct is the number of resolved branches whose next PC was predicted.
	Correct uint64
	// Mispredictions is the number of resolved branches that flushed.
	Mispredictions uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s BranchPredictorStats) Accuracy() float64 {
	if s.Resolved == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Resolved) * 100
}

// BTBHitRate returns the BTB hit rate as a percentage.
func (s BranchPredictorStats) BTBHitRate() float64 {
	total := s.BTBHits + s.BTBMisses
	if total == 0 {
		return 0
	}
	return float64(s.BTBHits) / float64(total) * 100
}

// Prediction represents a branch prediction result.
type Prediction struct {
	// Taken indicates whether the fetch is predicted to redirect.
	Taken bool
	// NextPC is the PC to fetch next.
	NextPC uint64
}

// BTBEntry is one Branch Target Buffer slot.
type BTBEntry struct {
	// Tag is the full PC of the branch that owns the slot.
	Tag           uint64
	Valid         bool
	IsConditional bool
	Target        uint64
}

// BranchPredictor implements a gshare direction predictor with a
// direct-mapped Branch Target Buffer.
type BranchPredictor struct {
	// Global history register, HistoryBits wide.
	ghr         uint64
	historyMask uint64

	// Pattern history table - 2-bit saturating counters
	// States: 0=Strongly Not Taken, 1=Weakly Not Taken,
	//         2=Weakly Taken, 3=Strongly Taken
	pht []uint8

	btb []BTBEntry

	config BranchPredictorConfig
	stats  BranchPredictorStats
}

// NewBranchPredictor creates a new branch predictor with the given configuration.
func NewBranchPredictor(config BranchPredictorConfig) *BranchPredictor {
	def := DefaultBranchPredictorConfig()
	if config.HistoryBits == 0 {
		config.HistoryBits = def.HistoryBits
	}
	if config.BTBIndexBits == 0 {
		config.BTBIndexBits = def.BTBIndexBits
	}

	return &BranchPredictor{
		historyMask: 1<<config.HistoryBits - 1,
		pht:         make([]uint8, 1<<config.HistoryBits),
		btb:         make([]BTBEntry, 1<<config.BTBIndexBits),
		config:      config,
	}
}

// Config returns the predictor configuration.
func (bp *BranchPredictor) Config() BranchPredictorConfig {
	return bp.config
}

func (bp *BranchPredictor) btbIndex(pc uint64) uint64 {
	return bitfield.Truncate64(pc, 2, 2+bp.config.BTBIndexBits)
}

func (bp *BranchPredictor) phtIndex(pc uint64) uint64 {
	return (bp.ghr ^ bitfield.Truncate64(pc, 2, 2+bp.config.HistoryBits)) & bp.historyMask
}

// Predict makes a prediction for the instruction fetched at pc. A BTB miss
// always predicts the fall-through.
func (bp *BranchPredictor) Predict(pc uint64) Prediction {
	bp.stats.Lookups++

	e := bp.btb[bp.btbIndex(pc)]
	if !e.Valid || e.Tag != pc {
		bp.stats.BTBMisses++
		return Prediction{NextPC: pc + 4}
	}

	bp.stats.BTBHits++

	if !e.IsConditional || bp.pht[bp.phtIndex(pc)] > 1 {
		return Prediction{Taken: true, NextPC: e.Target}
	}

	return Prediction{NextPC: pc + 4}
}

// Update trains the predictor with a resolved branch. The BTB slot is always
// claimed; direction and history only move for conditional branches.
func (bp *BranchPredictor) Update(isConditional, taken bool, pc, target uint64) {
	bp.btb[bp.btbIndex(pc)] = BTBEntry{
		Tag:           pc,
		Valid:         true,
		IsConditional: isConditional,
		Target:        target,
	}

	if !isConditional {
		return
	}

	idx := bp.phtIndex(pc)
	counter := bp.pht[idx]

	// Update 2-bit saturating counter
	if taken {
		if counter < 3 {
			bp.pht[idx] = counter + 1
		}
	} else {
		if counter > 0 {
			bp.pht[idx] = counter - 1
		}
	}

	bp.ghr <<= 1
	if taken {
		bp.ghr |= 1
	}
	bp.ghr &= bp.historyMask
}

// RecordOutcome counts one resolved branch.
func (bp *BranchPredictor) RecordOutcome(correct bool) {
	bp.stats.Resolved++
	if correct {
		bp.stats.Correct++
	} else {
		bp.stats.Mispredictions++
	}
}

// GHR returns the global history register.
func (bp *BranchPredictor) GHR() uint64 {
	return bp.ghr
}

// Counter returns the pattern history counter pc currently maps to.
func (bp *BranchPredictor) Counter(pc uint64) uint8 {
	return bp.pht[bp.phtIndex(pc)]
}

// Entry returns the BTB slot pc indexes, and whether that slot belongs to pc.
func (bp *BranchPredictor) Entry(pc uint64) (BTBEntry, bool) {
	e := bp.btb[bp.btbIndex(pc)]
	return e, e.Valid && e.Tag == pc
}

// Stats returns the branch predictor statistics.
func (bp *BranchPredictor) Stats() BranchPredictorStats {
	return bp.stats
}

// Reset clears all predictor state and statistics.
func (bp *BranchPredictor) Reset() {
	bp.ghr = 0
	clear(bp.pht)
	clear(bp.btb)
	bp.stats = BranchPredictorStats{}
}
