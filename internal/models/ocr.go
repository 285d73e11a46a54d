package models

import (
	"fmt"
)

// PageSegMode describes the expected layout of text on the page.
type PageSegMode string

const (
	PSMSingleBlock PageSegMode = "single_block"
	PSMSparseText  PageSegMode = "sparse_text"
	PSMAuto        PageSegMode = "auto"
)

// ParsePageSegMode converts a string to a PageSegMode.
func ParsePageSegMode(s string) (PageSegMode, error) {
	switch PageSegMode(s) {
	case PSMSingleBlock, PSMSparseText, PSMAuto:
		return PageSegMode(s), nil
	}
	return "", fmt.Errorf("unknown page segmentation mode: %q", s)
}

// EngineMode selects the recognition engine variant.
type EngineMode string

const (
	EngineLegacy   EngineMode = "legacy"
	EngineNeural   EngineMode = "neural"
	EngineCombined EngineMode = "combined"
)

// ParseEngineMode converts a string to an EngineMode.
func ParseEngineMode(s string) (EngineMode, error) {
	switch EngineMode(s) {
	case EngineLegacy, EngineNeural, EngineCombined:
		return EngineMode(s), nil
	}
	return "", fmt.Errorf("unknown engine mode: %q", s)
}

// OcrOptions configures a single recognition call.
type OcrOptions struct {
	PageSegMode PageSegMode `json:"page_seg_mode"`
	EngineMode  EngineMode  `json:"engine_mode"`
	Language    string      `json:"language"`
}

// DefaultOcrOptions is tuned for single-column thermal receipts:
// uniform block segmentation with the combined legacy+neural engine.
func DefaultOcrOptions() OcrOptions {
	return OcrOptions{
		PageSegMode: PSMSingleBlock,
		EngineMode:  EngineCombined,
		Language:    "eng",
	}
}
