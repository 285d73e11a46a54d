//go:build !windows

package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/shelfwise/receiptscan/internal/models"
)

// TesseractEngine runs OCR through libtesseract with a fixed pool of
// reusable clients. Checkout blocks when every client is busy, so the
// pool doubles as the concurrency limit.
type TesseractEngine struct {
	pool     chan *gosseract.Client
	language string
}

// NewTesseractEngine creates an engine with poolSize warmed-up clients.
func NewTesseractEngine(poolSize int, language string) (*TesseractEngine, error) {
	if poolSize < 1 {
		poolSize = 1
	}
	if language == "" {
		language = "eng"
	}

	e := &TesseractEngine{
		pool:     make(chan *gosseract.Client, poolSize),
		language: language,
	}
	for i := 0; i < poolSize; i++ {
		client := gosseract.NewClient()
		if err := client.SetLanguage(language); err != nil {
			client.Close()
			e.Close()
			return nil, fmt.Errorf("failed to set OCR language: %w", err)
		}
		e.pool <- client
	}
	return e, nil
}

// Name identifies the engine implementation.
func (e *TesseractEngine) Name() string {
	return "tesseract"
}

// Recognize checks out a pooled client, runs recognition in the
// background and waits for either the result or ctx. On cancellation
// the abandoned run finishes on its own and returns the client to the
// pool.
func (e *TesseractEngine) Recognize(ctx context.Context, imageBytes []byte, opts models.OcrOptions) ([]models.OcrLine, error) {
	var client *gosseract.Client
	select {
	case client = <-e.pool:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	type outcome struct {
		lines []models.OcrLine
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() { e.pool <- client }()
		lines, err := recognizeWithClient(client, imageBytes, opts)
		done <- outcome{lines: lines, err: err}
	}()

	select {
	case out := <-done:
		return out.lines, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts down every idle client. Callers must not use the engine
// afterwards.
func (e *TesseractEngine) Close() error {
	var firstErr error
	for {
		select {
		case client := <-e.pool:
			if err := client.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		default:
			return firstErr
		}
	}
}

func recognizeWithClient(client *gosseract.Client, imageBytes []byte, opts models.OcrOptions) ([]models.OcrLine, error) {
	if opts.Language != "" {
		if err := client.SetLanguage(opts.Language); err != nil {
			return nil, fmt.Errorf("failed to set OCR language: %w", err)
		}
	}
	if err := client.SetPageSegMode(pageSegMode(opts.PageSegMode)); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	// Receipts are not prose; the dictionary models hurt more than
	// they help on product codes and abbreviations.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")
	_ = client.SetVariable("language_model_penalty_non_freq_dict_word", "0.1")
	_ = client.SetVariable("language_model_penalty_non_dict_word", "0.15")
	_ = client.SetVariable("tessedit_ocr_engine_mode", engineModeValue(opts.EngineMode))

	if err := client.SetImageFromBytes(imageBytes); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err == nil && len(boxes) > 0 {
		return linesFromBoxes(boxes), nil
	}

	// Word geometry unavailable, fall back to plain text with an
	// estimated document-level confidence.
	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}
	return linesFromText(text, estimateTextConfidence(text)), nil
}

func pageSegMode(mode models.PageSegMode) gosseract.PageSegMode {
	switch mode {
	case models.PSMAuto:
		return gosseract.PSM_AUTO
	case models.PSMSparseText:
		return gosseract.PSM_SPARSE_TEXT
	default:
		return gosseract.PSM_SINGLE_BLOCK
	}
}

func engineModeValue(mode models.EngineMode) string {
	switch mode {
	case models.EngineLegacy:
		return "0"
	case models.EngineNeural:
		return "1"
	default:
		return "2"
	}
}

// linesFromBoxes reassembles tesseract word boxes into visual lines in
// top-down reading order, averaging word confidence (0-100) down to the
// 0-1 range and taking the union of the word rectangles as the line box.
func linesFromBoxes(boxes []gosseract.BoundingBox) []models.OcrLine {
	type lineKey struct{ block, par, line int }

	order := make([]lineKey, 0)
	groups := make(map[lineKey][]gosseract.BoundingBox)
	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		key := lineKey{box.BlockNum, box.ParNum, box.LineNum}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], box)
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.block != b.block {
			return a.block < b.block
		}
		if a.par != b.par {
			return a.par < b.par
		}
		return a.line < b.line
	})

	lines := make([]models.OcrLine, 0, len(order))
	for _, key := range order {
		words := groups[key]
		sort.Slice(words, func(i, j int) bool { return words[i].WordNum < words[j].WordNum })

		parts := make([]string, 0, len(words))
		union := words[0].Box
		confSum := 0.0
		for _, word := range words {
			parts = append(parts, strings.TrimSpace(word.Word))
			union = union.Union(word.Box)
			confSum += word.Confidence
		}
		text := strings.TrimSpace(strings.Join(parts, " "))
		if text == "" {
			continue
		}

		conf := confSum / float64(len(words)) / 100.0
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		lines = append(lines, models.OcrLine{
			Text:       text,
			Confidence: conf,
			LineIndex:  len(lines),
			BoundingBox: &models.BoundingBox{
				X:      union.Min.X,
				Y:      union.Min.Y,
				Width:  union.Dx(),
				Height: union.Dy(),
			},
		})
	}
	return lines
}
