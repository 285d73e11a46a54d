package services

import (
	"strings"

	"github.com/shelfwise/receiptscan/internal/models"
)

// ItemNormalizer expands the terse abbreviations receipt printers use
// into searchable names. The parsed OCR name is kept untouched; the
// expansion goes into NormalizedName so callers can match items against
// a catalog without losing the original text.
type ItemNormalizer struct {
	abbreviations map[string]string
}

// NewItemNormalizer creates a normalizer with the stock grocery
// abbreviation table.
func NewItemNormalizer() *ItemNormalizer {
	return &ItemNormalizer{
		// Expansion is per token, so "org" expands but "forgot" is
		// left alone.
		abbreviations: map[string]string{
			"org":   "organic",
			"whl":   "whole",
			"chkn":  "chicken",
			"brst":  "breast",
			"bnls":  "boneless",
			"sknls": "skinless",
			"gal":   "gallon",
			"qt":    "quart",
			"pt":    "pint",
			"oz":    "ounce",
			"lb":    "pound",
			"lbs":   "pounds",
			"pkg":   "package",
			"btl":   "bottle",
			"cn":    "can",
			"bx":    "box",
			"bg":    "bag",
			"ea":    "each",
			"ct":    "count",
			"pc":    "piece",
			"pcs":   "pieces",
			"lrg":   "large",
			"med":   "medium",
			"sml":   "small",
			"frsh":  "fresh",
			"frzn":  "frozen",
			"flr":   "flour",
			"veg":   "vegetable",
			"vegs":  "vegetables",
			"frt":   "fruit",
			"jce":   "juice",
			"mlk":   "milk",
			"chse":  "cheese",
			"brd":   "bread",
			"wht":   "white",
			"brn":   "brown",
			"grn":   "green",
			"yel":   "yellow",
			"blk":   "black",
		},
	}
}

// Normalize expands a single item name.
func (n *ItemNormalizer) Normalize(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	for i, field := range fields {
		if full, ok := n.abbreviations[field]; ok {
			fields[i] = full
		}
	}
	return strings.Join(fields, " ")
}

// NormalizeItems fills NormalizedName on every item in place.
func (n *ItemNormalizer) NormalizeItems(items []models.ExtractedItem) {
	for i := range items {
		items[i].NormalizedName = n.Normalize(items[i].Name)
	}
}
