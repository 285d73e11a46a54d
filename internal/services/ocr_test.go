package services

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/shelfwise/receiptscan/internal/models"
)

var _ = Describe("linesFromText", func() {
	It("should split, trim and index the lines", func() {
		lines := linesFromText("  WALMART \n\n  GV 100 BRD 1.33  \n", 0.42)

		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).To(Equal(models.OcrLine{Text: "WALMART", Confidence: 0.42, LineIndex: 0}))
		Expect(lines[1]).To(Equal(models.OcrLine{Text: "GV 100 BRD 1.33", Confidence: 0.42, LineIndex: 1}))
	})

	It("should return nothing for blank text", func() {
		Expect(linesFromText("", 0.9)).To(BeEmpty())
		Expect(linesFromText("  \n \n ", 0.9)).To(BeEmpty())
	})
})

var _ = Describe("estimateTextConfidence", func() {
	It("should score empty text as zero", func() {
		Expect(estimateTextConfidence("")).To(BeZero())
		Expect(estimateTextConfidence("   \n ")).To(BeZero())
	})

	It("should cap clean structured text at the ceiling", func() {
		text := "WALMART SUPERCENTER\nGV 100 BRD 1.33\nTOTAL 12.32"
		Expect(estimateTextConfidence(text)).To(BeNumerically("~", 0.85, 1e-9))
	})

	It("should punish glyph soup", func() {
		Expect(estimateTextConfidence("~~~ ^^^ ~~~")).To(BeNumerically("~", 0.3, 1e-9))
	})

	It("should reward a mostly clean line moderately", func() {
		Expect(estimateTextConfidence("ABCDEFGHI~")).To(BeNumerically("~", 0.6, 1e-9))
	})
})

var _ = Describe("FakeEngine", func() {
	var (
		engine *FakeEngine
		ctx    context.Context
	)

	BeforeEach(func() {
		engine = &FakeEngine{
			Lines: []models.OcrLine{
				{Text: "COFFEE 4.50", Confidence: 0.9, LineIndex: 0},
			},
		}
		ctx = context.Background()
	})

	It("should return the canned lines", func() {
		lines, err := engine.Recognize(ctx, nil, models.DefaultOcrOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(Equal(engine.Lines))
	})

	It("should hand out a fresh copy each call", func() {
		lines, err := engine.Recognize(ctx, nil, models.DefaultOcrOptions())
		Expect(err).NotTo(HaveOccurred())
		lines[0].Text = "mutated"

		again, err := engine.Recognize(ctx, nil, models.DefaultOcrOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(again[0].Text).To(Equal("COFFEE 4.50"))
	})

	It("should record the calls and the last options", func() {
		opts := models.DefaultOcrOptions()
		opts.PageSegMode = models.PSMSparseText

		_, err := engine.Recognize(ctx, nil, models.DefaultOcrOptions())
		Expect(err).NotTo(HaveOccurred())
		_, err = engine.Recognize(ctx, nil, opts)
		Expect(err).NotTo(HaveOccurred())

		Expect(engine.Calls()).To(Equal(2))
		Expect(engine.LastOptions().PageSegMode).To(Equal(models.PSMSparseText))
	})

	It("should return the configured error", func() {
		engine.Err = errors.New("boom")
		_, err := engine.Recognize(ctx, nil, models.DefaultOcrOptions())
		Expect(err).To(MatchError("boom"))
	})

	It("should respect cancellation before the work starts", func() {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := engine.Recognize(canceled, nil, models.DefaultOcrOptions())
		Expect(err).To(MatchError(context.Canceled))
	})

	It("should give up on a deadline during the delay", func() {
		engine.Delay = 500 * time.Millisecond
		deadlined, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		_, err := engine.Recognize(deadlined, nil, models.DefaultOcrOptions())
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})
})
