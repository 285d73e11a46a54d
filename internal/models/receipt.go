package models

import (
	"time"
)

// OcrLine is a single recognized text line. Lines are ordered top to
// bottom, matching the printed receipt layout.
type OcrLine struct {
	Text        string       `json:"text"`
	Confidence  float64      `json:"confidence"`
	LineIndex   int          `json:"line_index"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
}

// BoundingBox is the pixel region a line was recognized in.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ExtractedItem is a purchased item extracted from a single OCR line.
// Price is always within (0, 10000) and Name is at least 2 characters
// after cleanup.
type ExtractedItem struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	NormalizedName  string  `json:"normalized_name,omitempty"`
	Price           float64 `json:"price"`
	Quantity        int     `json:"quantity"`
	Confidence      float64 `json:"confidence"`
	SourceLineIndex int     `json:"source_line_index"`
	RawText         string  `json:"raw_text"`
}

// FieldSources records which OCR line each receipt metadata field was
// read from. An index of -1 means the field was not found.
type FieldSources struct {
	Merchant int `json:"merchant"`
	Date     int `json:"date"`
	Subtotal int `json:"subtotal"`
	Tax      int `json:"tax"`
	Total    int `json:"total"`
}

// UnsetFieldSources returns sources with every field marked not found.
func UnsetFieldSources() FieldSources {
	return FieldSources{Merchant: -1, Date: -1, Subtotal: -1, Tax: -1, Total: -1}
}

// ParsedReceipt is the structured result of parsing one receipt image.
// Optional metadata fields stay nil when no line matched.
type ParsedReceipt struct {
	Items        []ExtractedItem `json:"items"`
	MerchantName *string         `json:"merchant_name,omitempty"`
	Date         *time.Time      `json:"date,omitempty"`
	Subtotal     *float64        `json:"subtotal,omitempty"`
	Tax          *float64        `json:"tax,omitempty"`
	Total        *float64        `json:"total,omitempty"`
	Confidence   float64         `json:"confidence"`
	RawText      string          `json:"raw_text"`
	Sources      FieldSources    `json:"sources"`
}

// ItemSum returns the sum of price times quantity over all items.
func (r *ParsedReceipt) ItemSum() float64 {
	sum := 0.0
	for _, item := range r.Items {
		sum += item.Price * float64(item.Quantity)
	}
	return sum
}

// FieldConfidence holds per-field confidence scores in [0, 1].
type FieldConfidence struct {
	Merchant float64 `json:"merchant"`
	Date     float64 `json:"date"`
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
	Items    float64 `json:"items"`
}

// ScoredReceipt is a ParsedReceipt with finalized confidence scores and
// review recommendations. It is handed to the caller unchanged.
type ScoredReceipt struct {
	ParsedReceipt
	FieldConfidence FieldConfidence `json:"field_confidence"`
	ConfidenceLevel string          `json:"confidence_level"`
	Recommendations []string        `json:"recommendations,omitempty"`
}
