package services

import (
	"context"
	"strings"
	"unicode"

	"github.com/shelfwise/receiptscan/internal/models"
)

// Engine extracts text lines from a prepared receipt image. Recognize
// blocks until the work finishes or ctx is done; implementations must
// return ctx.Err() promptly after cancellation. Close releases any
// underlying resources and makes the engine unusable.
type Engine interface {
	Recognize(ctx context.Context, imageBytes []byte, opts models.OcrOptions) ([]models.OcrLine, error)
	Name() string
	Close() error
}

// linesFromText splits raw engine output into ordered OcrLine values,
// dropping empty lines and assigning the same document-level confidence
// to each. Used when the engine cannot report per-line confidence.
func linesFromText(text string, confidence float64) []models.OcrLine {
	var lines []models.OcrLine
	for _, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		lines = append(lines, models.OcrLine{
			Text:       trimmed,
			Confidence: confidence,
			LineIndex:  len(lines),
		})
	}
	return lines
}

// estimateTextConfidence derives a document-level confidence from the
// shape of the recognized text when the engine reports none. Mostly
// alphanumeric output with some line structure scores higher than
// sparse glyph soup.
func estimateTextConfidence(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	var total, sane int
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("$.,:-/%#*()", r) {
			sane++
		}
	}
	if total == 0 {
		return 0
	}

	score := 0.5
	ratio := float64(sane) / float64(total)
	switch {
	case ratio > 0.95:
		score += 0.2
	case ratio > 0.85:
		score += 0.1
	case ratio < 0.6:
		score -= 0.2
	}
	if total >= 40 {
		score += 0.1
	}
	if len(strings.Split(trimmed, "\n")) >= 3 {
		score += 0.05
	}

	if score < 0.1 {
		score = 0.1
	}
	if score > 0.85 {
		score = 0.85
	}
	return score
}
