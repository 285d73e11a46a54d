package services

import (
	"fmt"
	"math"

	"github.com/shelfwise/receiptscan/internal/models"
)

const (
	lowConfidenceThreshold = 0.6
	fullItemCount          = 5
	subtotalTolerance      = 0.10
)

// ConfidenceScorer rates how trustworthy a parsed receipt is and tells
// the review UI what to do about weak extractions.
type ConfidenceScorer struct{}

// NewConfidenceScorer creates a new confidence scorer.
func NewConfidenceScorer() *ConfidenceScorer {
	return &ConfidenceScorer{}
}

// Score blends OCR quality, extraction yield and item confidence into
// an overall score, attaches per-field confidences and emits advisory
// recommendations for weak results. Scoring never rejects a receipt.
//
// The yield term treats a near-empty extraction as suspect even when
// the OCR scored well, because it usually means the line heuristics
// failed to fire rather than that the receipt had one item.
func (s *ConfidenceScorer) Score(lines []models.OcrLine, receipt *models.ParsedReceipt) *models.ScoredReceipt {
	ocrConf := meanLineConfidence(lines)
	itemConf := meanItemConfidence(receipt.Items)
	countSignal := math.Min(float64(len(receipt.Items))/fullItemCount, 1)

	overall := clamp01(0.4*ocrConf + 0.3*countSignal + 0.3*itemConf)

	scored := &models.ScoredReceipt{
		ParsedReceipt: *receipt,
		FieldConfidence: models.FieldConfidence{
			Merchant: lineConfidenceAt(lines, receipt.Sources.Merchant),
			Date:     lineConfidenceAt(lines, receipt.Sources.Date),
			Subtotal: lineConfidenceAt(lines, receipt.Sources.Subtotal),
			Tax:      lineConfidenceAt(lines, receipt.Sources.Tax),
			Total:    lineConfidenceAt(lines, receipt.Sources.Total),
			Items:    itemConf,
		},
		ConfidenceLevel: confidenceLevel(overall),
	}
	scored.Confidence = overall

	// An item total that disagrees with the printed subtotal means a
	// line was misread or missed. Advisory only, the overall blend is
	// left alone.
	if deviates, gap := subtotalDeviation(receipt); deviates {
		scored.FieldConfidence.Items *= 0.7
		scored.FieldConfidence.Subtotal *= 0.7
		scored.Recommendations = append(scored.Recommendations,
			fmt.Sprintf("Extracted items differ from the printed subtotal by %.0f%%; verify items manually", gap*100))
	}

	if overall < lowConfidenceThreshold {
		if len(receipt.Items) == 0 {
			scored.Recommendations = append(scored.Recommendations,
				"No items were recognized; retake the photo closer to the receipt or enter items manually")
		} else {
			scored.Recommendations = append(scored.Recommendations,
				"Verify extracted items manually")
		}
		scored.Recommendations = append(scored.Recommendations,
			"Retake the photo with better lighting and a steady hand")
	}

	return scored
}

// lineConfidenceAt finds the OCR confidence of the line a field was
// read from; unset fields score zero.
func lineConfidenceAt(lines []models.OcrLine, lineIndex int) float64 {
	if lineIndex < 0 {
		return 0
	}
	for _, line := range lines {
		if line.LineIndex == lineIndex {
			return clamp01(line.Confidence)
		}
	}
	return 0
}

func meanLineConfidence(lines []models.OcrLine) float64 {
	if len(lines) == 0 {
		return 0
	}
	sum := 0.0
	for _, line := range lines {
		sum += clamp01(line.Confidence)
	}
	return sum / float64(len(lines))
}

func meanItemConfidence(items []models.ExtractedItem) float64 {
	if len(items) == 0 {
		return 0
	}
	sum := 0.0
	for _, item := range items {
		sum += clamp01(item.Confidence)
	}
	return sum / float64(len(items))
}

func subtotalDeviation(receipt *models.ParsedReceipt) (bool, float64) {
	if receipt.Subtotal == nil || *receipt.Subtotal <= 0 || len(receipt.Items) == 0 {
		return false, 0
	}
	gap := math.Abs(receipt.ItemSum()-*receipt.Subtotal) / *receipt.Subtotal
	return gap > subtotalTolerance, gap
}

// confidenceLevel buckets a score for display.
func confidenceLevel(confidence float64) string {
	switch {
	case confidence >= 0.9:
		return "high"
	case confidence >= 0.7:
		return "medium"
	case confidence >= 0.5:
		return "low"
	default:
		return "none"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
