package models

import (
	"fmt"
)

// PreprocessLevel selects how much image cleanup runs before OCR.
// Each level is a superset of the one below it.
type PreprocessLevel string

const (
	PreprocessNone     PreprocessLevel = "none"
	PreprocessQuick    PreprocessLevel = "quick"
	PreprocessStandard PreprocessLevel = "standard"
	PreprocessFull     PreprocessLevel = "full"
)

// ParsePreprocessLevel converts a string to a PreprocessLevel.
func ParsePreprocessLevel(s string) (PreprocessLevel, error) {
	switch PreprocessLevel(s) {
	case PreprocessNone, PreprocessQuick, PreprocessStandard, PreprocessFull:
		return PreprocessLevel(s), nil
	}
	return "", fmt.Errorf("unknown preprocess level: %q", s)
}

// PreprocessResult carries the enhanced image together with a record of
// exactly which operations ran. When preprocessing fails the image is
// the unmodified input and Applied is empty.
type PreprocessResult struct {
	Image         []byte   `json:"-"`
	Applied       []string `json:"applied"`
	OriginalSize  int      `json:"original_size"`
	ProcessedSize int      `json:"processed_size"`
}
