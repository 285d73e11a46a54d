package services

import (
	"context"
	"sync"
	"time"

	"github.com/shelfwise/receiptscan/internal/models"
)

// FakeEngine is an in-memory Engine for tests and local development.
// It returns canned lines after an optional delay and records how it
// was called.
type FakeEngine struct {
	Lines []models.OcrLine
	Err   error
	Delay time.Duration

	mu          sync.Mutex
	calls       int
	lastOptions models.OcrOptions
}

// Name identifies the engine implementation.
func (f *FakeEngine) Name() string {
	return "fake"
}

// Recognize returns the canned lines, honoring ctx during the
// configured delay.
func (f *FakeEngine) Recognize(ctx context.Context, imageBytes []byte, opts models.OcrOptions) ([]models.OcrLine, error) {
	f.mu.Lock()
	f.calls++
	f.lastOptions = opts
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}

	lines := make([]models.OcrLine, len(f.Lines))
	copy(lines, f.Lines)
	return lines, nil
}

// Close is a no-op.
func (f *FakeEngine) Close() error {
	return nil
}

// Calls reports how many times Recognize ran.
func (f *FakeEngine) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LastOptions reports the options of the most recent Recognize call.
func (f *FakeEngine) LastOptions() models.OcrOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOptions
}
