//go:build windows

package services

import (
	"context"
	"errors"

	"github.com/shelfwise/receiptscan/internal/models"
)

// TesseractEngine is a stub on Windows, where libtesseract is not
// linked. Run the server in the Docker container instead.
type TesseractEngine struct{}

// NewTesseractEngine always fails on Windows.
func NewTesseractEngine(poolSize int, language string) (*TesseractEngine, error) {
	return nil, errors.New("tesseract engine is not available on Windows - run in Docker container")
}

// Name identifies the engine implementation.
func (e *TesseractEngine) Name() string {
	return "tesseract"
}

// Recognize always fails on Windows.
func (e *TesseractEngine) Recognize(ctx context.Context, imageBytes []byte, opts models.OcrOptions) ([]models.OcrLine, error) {
	return nil, errors.New("tesseract engine is not available on Windows")
}

// Close releases nothing on Windows.
func (e *TesseractEngine) Close() error {
	return nil
}
