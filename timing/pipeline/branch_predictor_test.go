package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/legsim/timing/pipeline"
)

var _ = Describe("BranchPredictor", func() {
	var bp *pipeline.BranchPredictor

	const (
		pc     = uint64(0x400010)
		target = uint64(0x400100)
	)

	BeforeEach(func() {
		bp = pipeline.NewBranchPredictor(pipeline.DefaultBranchPredictorConfig())
	})

	Describe("Prediction", func() {
		It("should predict the fall-through on a BTB miss", func() {
			pred := bp.Predict(pc)

			Expect(pred.Taken).To(BeFalse())
			Expect(pred.NextPC).To(Equal(pc + 4))
			Expect(bp.Stats().BTBMisses).To(Equal(uint64(1)))
		})

		It("should always follow an unconditional BTB entry", func() {
			bp.Update(false, true, pc, target)

			pred := bp.Predict(pc)

			Expect(pred.Taken).To(BeTrue())
			Expect(pred.NextPC).To(Equal(target))
			Expect(bp.Stats().BTBHits).To(Equal(uint64(1)))
		})

		It("should not follow a conditional entry with a weak counter", func() {
			bp.Update(true, true, pc, target)

			Expect(bp.Predict(pc).NextPC).To(Equal(pc + 4))
		})

		It("should learn an always-taken branch", func() {
			for i := 0; i < 12; i++ {
				bp.Update(true, true, pc, target)
			}

			pred := bp.Predict(pc)
			Expect(pred.Taken).To(BeTrue())
			Expect(pred.NextPC).To(Equal(target))
			Expect(bp.Counter(pc)).To(Equal(uint8(3)))
		})

		It("should miss when another branch owns the BTB slot", func() {
			alias := pc + 4<<10
			bp.Update(false, true, pc, target)

			Expect(bp.Predict(alias).NextPC).To(Equal(alias + 4))

			_, ok := bp.Entry(alias)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Update", func() {
		It("should saturate counters at zero", func() {
			for i := 0; i < 5; i++ {
				bp.Update(true, false, pc, target)
			}

			Expect(bp.Counter(pc)).To(Equal(uint8(0)))
			Expect(bp.GHR()).To(Equal(uint64(0)))
		})

		It("should shift outcomes into the global history", func() {
			bp.Update(true, true, pc, target)
			bp.Update(true, true, pc, target)
			bp.Update(true, false, pc, target)

			Expect(bp.GHR()).To(Equal(uint64(0b110)))
		})

		It("should keep history to its configured width", func() {
			for i := 0; i < 20; i++ {
				bp.Update(true, true, pc, target)
			}

			Expect(bp.GHR()).To(Equal(uint64(0xFF)))
		})

		It("should leave history alone for unconditional branches", func() {
			bp.Update(false, true, pc, target)

			Expect(bp.GHR()).To(Equal(uint64(0)))
		})

		It("should record the branch in the BTB even when not taken", func() {
			bp.Update(true, false, pc, target)

			e, ok := bp.Entry(pc)
			Expect(ok).To(BeTrue())
			Expect(e.Tag).To(Equal(pc))
			Expect(e.IsConditional).To(BeTrue())
			Expect(e.Target).To(Equal(target))
		})
	})

	Describe("Stats", func() {
		It("should compute accuracy over resolved branches", func() {
			bp.RecordOutcome(true)
			bp.RecordOutcome(true)
			bp.RecordOutcome(true)
			bp.RecordOutcome(false)

			stats := bp.Stats()
			Expect(stats.Resolved).To(Equal(uint64(4)))
			Expect(stats.Mispredictions).To(Equal(uint64(1)))
			Expect(stats.Accuracy()).To(BeNumerically("~", 75.0, 0.01))
		})
	})

	Describe("Reset", func() {
		It("should clear tables, history and statistics", func() {
			for i := 0; i < 4; i++ {
				bp.Update(true, true, pc, target)
			}
			bp.Predict(pc)

			bp.Reset()

			_, ok := bp.Entry(pc)
			Expect(ok).To(BeFalse())
			Expect(bp.GHR()).To(Equal(uint64(0)))
			Expect(bp.Stats()).To(Equal(pipeline.BranchPredictorStats{}))
		})
	})
})
