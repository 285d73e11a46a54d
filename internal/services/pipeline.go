package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shelfwise/receiptscan/internal/models"
)

// Options controls a single pipeline invocation.
type Options struct {
	PreprocessLevel models.PreprocessLevel
	Validate        bool
	Constraints     models.ValidationConstraints
	Ocr             models.OcrOptions
	OcrTimeout      time.Duration
}

// DefaultOptions returns the settings used for ordinary uploads.
func DefaultOptions() Options {
	return Options{
		PreprocessLevel: models.PreprocessStandard,
		Validate:        true,
		Constraints:     models.DefaultConstraints(),
		Ocr:             models.DefaultOcrOptions(),
		OcrTimeout:      30 * time.Second,
	}
}

// Pipeline turns an uploaded receipt photo into a scored receipt:
// normalize, validate, preprocess, recognize, parse, score. A pipeline
// is stateless across invocations and safe for concurrent use; the
// engine serializes access to its own pooled resources.
type Pipeline struct {
	validator    *ImageValidator
	preprocessor *ImagePreprocessor
	engine       Engine
	parser       *ReceiptParser
	normalizer   *ItemNormalizer
	scorer       *ConfidenceScorer
}

// NewPipeline wires the processing stages around the given OCR engine.
func NewPipeline(engine Engine) *Pipeline {
	return &Pipeline{
		validator:    NewImageValidator(),
		preprocessor: NewImagePreprocessor(),
		engine:       engine,
		parser:       NewReceiptParser(),
		normalizer:   NewItemNormalizer(),
		scorer:       NewConfidenceScorer(),
	}
}

// ProcessReceiptImage runs the full pipeline on one image. The returned
// receipt is always scored; callers decide what to do with a weak one.
// Errors are classified: ErrInvalidImage for undecodable input, a
// ValidationFailedError carrying every quality issue, ErrOcrTimeout
// when recognition exceeds opts.OcrTimeout and ErrOcrFailure when the
// engine fails or finds no usable text.
func (p *Pipeline) ProcessReceiptImage(ctx context.Context, imageBytes []byte, opts Options) (*models.ScoredReceipt, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidImage)
	}

	normalized, err := normalizeImage(imageBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if opts.Validate {
		result := p.validator.Validate(normalized, opts.Constraints)
		if !result.Valid {
			if len(result.Issues) == 1 && result.Issues[0].Kind == models.IssueUnreadable {
				return nil, fmt.Errorf("%w: %s", ErrInvalidImage, result.Issues[0].Message)
			}
			return nil, &ValidationFailedError{Issues: result.Issues}
		}
	}

	pre := p.preprocessor.Process(normalized, opts.PreprocessLevel)

	ocrCtx := ctx
	if opts.OcrTimeout > 0 {
		var cancel context.CancelFunc
		ocrCtx, cancel = context.WithTimeout(ctx, opts.OcrTimeout)
		defer cancel()
	}

	lines, err := p.engine.Recognize(ocrCtx, pre.Image, opts.Ocr)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%w after %s", ErrOcrTimeout, opts.OcrTimeout)
		case errors.Is(err, context.Canceled):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %v", ErrOcrFailure, err)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no usable text found", ErrOcrFailure)
	}

	receipt := p.parser.Parse(lines)
	p.normalizer.NormalizeItems(receipt.Items)

	return p.scorer.Score(lines, receipt), nil
}
