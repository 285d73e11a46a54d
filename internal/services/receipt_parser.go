package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/shelfwise/receiptscan/internal/models"
)

const (
	merchantHeaderLines   = 5
	merchantMinConfidence = 0.7
	maxItemPrice          = 10000
)

// priceMatcher is one strategy in the ordered price-detection list.
// The pattern must expose three groups: the full price token, the
// integer digits and the cents.
type priceMatcher struct {
	name    string
	pattern *regexp.Regexp
}

type priceMatch struct {
	price float64
	start int
	end   int
}

func (m *priceMatcher) find(line string) *priceMatch {
	loc := m.pattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return nil
	}
	price, err := strconv.ParseFloat(line[loc[4]:loc[5]]+"."+line[loc[6]:loc[7]], 64)
	if err != nil {
		return nil
	}
	return &priceMatch{price: price, start: loc[2], end: loc[3]}
}

// ReceiptParser extracts structured receipt data from OCR lines.
type ReceiptParser struct {
	priceMatchers       []priceMatcher
	excludePatterns     []*regexp.Regexp
	datePatterns        []*regexp.Regexp
	totalPatterns       []*regexp.Regexp
	subtotalPatterns    []*regexp.Regexp
	taxPatterns         []*regexp.Regexp
	quantityPattern     *regexp.Regexp
	amountLinePattern   *regexp.Regexp
	spacePattern        *regexp.Regexp
	upcPattern          *regexp.Regexp
	leadingCodePattern  *regexp.Regexp
	trailingFlagPattern *regexp.Regexp
}

// NewReceiptParser creates a new receipt parser.
func NewReceiptParser() *ReceiptParser {
	return &ReceiptParser{
		// Tried in order; the first pattern that matches a line wins
		// and no later pattern is consulted.
		priceMatchers: []priceMatcher{
			{
				// Explicit currency symbol: CANDY PNUT BTR $1.18 F
				name:    "currency",
				pattern: regexp.MustCompile(`([$€£]\s?(\d+)[.,](\d{2}))(?:[^\d]|$)`),
			},
			{
				// Bare decimal at end of line: GV 100 BRD 1.33 N
				name:    "trailing",
				pattern: regexp.MustCompile(`(?:^|\s)((\d+)[.,](\d{2})\s*[FfNnTt]?)\s*$`),
			},
			{
				// Currency glyph misread by the OCR engine: COFFEE S4.50
				name:    "glyph",
				pattern: regexp.MustCompile(`(?:^|\s)([S§]\s?(\d+)[.,](\d{2})\s*[FfNnTt]?)\s*$`),
			},
		},
		excludePatterns: []*regexp.Regexp{
			// Summary, payment and boilerplate vocabulary.
			regexp.MustCompile(`(?i)^\s*(TAX|SUBTOTAL|SUB\s*TOTAL|TOTAL|GRAND\s*TOTAL|BALANCE|CHANGE|CASH|CREDIT|DEBIT|CARD|VISA|MASTERCARD|AMEX|DISCOVER|PAYMENT|PAID|SAVINGS|DISCOUNT|COUPON|MEMBER|LOYALTY|POINTS|REWARD|THANK\s*YOU|HAVE\s*A|STORE\s*#|CASHIER|TRANS|REG|DATE|TIME|TEL|PHONE|ADDRESS|RECEIPT|RETURN|REFUND|VOID|SURCHARGE|SOLD\s*ITEMS?|PURCHASE)\b`),
			// The core summary words disqualify a line wherever they
			// appear, so "SALES TAX 2.04" stays out of the item list
			// even though it does not lead with the keyword.
			regexp.MustCompile(`(?i)\b(SUB\s*-?\s*T[O0]TAL|T[O0]TAL|TAX|CASHIER|PAYMENT|CHANGE|CARD|DATE|TIME)\b`),
			// Courtesy phrases can land mid-line when the header wraps.
			regexp.MustCompile(`(?i)\b(THANK\s+YOU|HAVE\s+A\s+(NICE|GREAT|GOOD)\s+DAY)\b`),
			// Separator rows.
			regexp.MustCompile(`^\s*[-=*_.]+\s*$`),
			// Date-only and time-only rows.
			regexp.MustCompile(`^\s*\d{1,2}[./-]\d{1,2}[./-]\d{2,4}\s*$`),
			regexp.MustCompile(`(?i)^\s*\d{1,2}:\d{2}(:\d{2})?\s*(AM|PM)?\s*$`),
			// Department headers.
			regexp.MustCompile(`(?i)^\s*(DAIRY|PRODUCE|BAKERY|DELI|MEAT|SEAFOOD|GROCERY|FROZEN\s*FOODS?|BEVERAGES?|HOUSEHOLD|HEALTH\s*(AND|&)\s*BEAUTY|PET\s*SUPPLIES?)\s*$`),
			// Quantity/weight detail rows: "2 @ $2.79 EACH", "0.96 lb @ $0.99 / lb".
			regexp.MustCompile(`(?i)^\s*\d+\.?\d*\s*(lb|oz|kg|g)?\s*@\s*\$?\d+\.\d{2}\s*(/\s*(lb|oz|kg|g)|EACH|EA)?\s*$`),
		},
		datePatterns: []*regexp.Regexp{
			// Year first: 2024-03-25
			regexp.MustCompile(`(\d{4})[./-](\d{1,2})[./-](\d{1,2})`),
			// Day first: 25/03/2024 or 25/03/24
			regexp.MustCompile(`(\d{1,2})[./-](\d{1,2})[./-](\d{2,4})`),
		},
		totalPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:^|\s)(?:GRAND\s+T[O0]TAL|T[O0]TAL|BALANCE\s+DUE|AMOUNT\s+DUE)\s*:?\s*[$€£]?\s*(\d+)[.,](\d{2})\b`),
		},
		subtotalPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:^|\s)SUB\s*-?\s*T[O0]TAL\s*:?\s*[$€£]?\s*(\d+)[.,](\d{2})\b`),
		},
		taxPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:^|\s)(?:SALES\s+)?TAX\s*:?\s*[$€£]?\s*(\d+)[.,](\d{2})\b`),
		},
		quantityPattern:     regexp.MustCompile(`^(\d{1,3})\s*[xX]\s+`),
		amountLinePattern:   regexp.MustCompile(`^\s*[$€£]?\s*\d{1,5}([.,]\d{2})?\s*$`),
		spacePattern:        regexp.MustCompile(`\s+`),
		upcPattern:          regexp.MustCompile(`\b\d{11,14}\b`),
		leadingCodePattern:  regexp.MustCompile(`^\d{4,}\s+`),
		trailingFlagPattern: regexp.MustCompile(`\s+[FNT]$`),
	}
}

// Parse turns ordered OCR lines into a structured receipt. Parsing is
// heuristic and never fails: lines that fit no pattern are skipped and
// fields without a match stay unset.
func (p *ReceiptParser) Parse(lines []models.OcrLine) *models.ParsedReceipt {
	receipt := &models.ParsedReceipt{
		Items:   []models.ExtractedItem{},
		RawText: joinLines(lines),
		Sources: models.UnsetFieldSources(),
	}

	for _, line := range lines {
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}
		// Non-item vocabulary always wins over a price match, so
		// "TOTAL 45.00" can never become an item named TOTAL.
		if p.shouldExclude(text) {
			continue
		}
		if item := p.parseItemLine(line); item != nil {
			receipt.Items = append(receipt.Items, *item)
		}
	}

	p.extractTotals(lines, receipt)
	p.extractDate(lines, receipt)
	p.extractMerchant(lines, receipt)

	return receipt
}

// parseItemLine attempts to read one line as a priced item.
func (p *ReceiptParser) parseItemLine(line models.OcrLine) *models.ExtractedItem {
	text := p.cleanLine(line.Text)

	quantity := 1
	if loc := p.quantityPattern.FindStringSubmatchIndex(text); loc != nil {
		if qty, err := strconv.Atoi(text[loc[2]:loc[3]]); err == nil && qty > 0 {
			quantity = qty
			text = text[loc[1]:]
		}
	}

	var match *priceMatch
	for i := range p.priceMatchers {
		if match = p.priceMatchers[i].find(text); match != nil {
			break
		}
	}
	if match == nil {
		return nil
	}
	if match.price <= 0 || match.price >= maxItemPrice {
		// A number this size is a product code or phone fragment,
		// not a price. Treat the line as non-priced.
		return nil
	}

	name := p.cleanItemName(text[:match.start] + " " + text[match.end:])
	if utf8.RuneCountInString(name) < 2 {
		return nil
	}

	return &models.ExtractedItem{
		ID:              itemID(line.LineIndex, line.Text),
		Name:            name,
		Price:           match.price,
		Quantity:        quantity,
		Confidence:      line.Confidence,
		SourceLineIndex: line.LineIndex,
		RawText:         line.Text,
	}
}

// shouldExclude checks if a line is non-item vocabulary.
func (p *ReceiptParser) shouldExclude(line string) bool {
	for _, pattern := range p.excludePatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

// cleanLine removes common OCR artifacts before matching.
func (p *ReceiptParser) cleanLine(line string) string {
	line = strings.ReplaceAll(line, "|", " ")
	line = strings.ReplaceAll(line, `\`, " ")
	line = p.spacePattern.ReplaceAllString(line, " ")
	return strings.TrimSpace(line)
}

// cleanItemName strips product codes, tax flags and stray punctuation
// around an item name.
func (p *ReceiptParser) cleanItemName(name string) string {
	name = p.upcPattern.ReplaceAllString(name, " ")
	name = p.spacePattern.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = p.leadingCodePattern.ReplaceAllString(name, "")
	name = p.trailingFlagPattern.ReplaceAllString(name, "")
	name = strings.TrimRight(name, ".,;:-_")
	for _, prefix := range []string{"@", "#", "*"} {
		name = strings.TrimPrefix(name, prefix)
	}
	return strings.TrimSpace(name)
}

// extractTotals scans from the bottom, where receipts print their
// summary block, and keeps the first match for each field.
func (p *ReceiptParser) extractTotals(lines []models.OcrLine, receipt *models.ParsedReceipt) {
	for i := len(lines) - 1; i >= 0; i-- {
		text := lines[i].Text
		if receipt.Total == nil {
			if amount := matchAmount(p.totalPatterns, text); amount != nil {
				receipt.Total = amount
				receipt.Sources.Total = lines[i].LineIndex
			}
		}
		if receipt.Subtotal == nil {
			if amount := matchAmount(p.subtotalPatterns, text); amount != nil {
				receipt.Subtotal = amount
				receipt.Sources.Subtotal = lines[i].LineIndex
			}
		}
		if receipt.Tax == nil {
			if amount := matchAmount(p.taxPatterns, text); amount != nil {
				receipt.Tax = amount
				receipt.Sources.Tax = lines[i].LineIndex
			}
		}
		if receipt.Total != nil && receipt.Subtotal != nil && receipt.Tax != nil {
			return
		}
	}
}

func matchAmount(patterns []*regexp.Regexp, line string) *float64 {
	for _, pattern := range patterns {
		matches := pattern.FindStringSubmatch(line)
		if len(matches) < 3 {
			continue
		}
		amount, err := strconv.ParseFloat(matches[1]+"."+matches[2], 64)
		if err != nil || amount <= 0 {
			continue
		}
		return &amount
	}
	return nil
}

// extractDate scans top-down for the first date-shaped substring that
// survives a real calendar check, so a misread like 31/02 cannot slip
// through by normalizing into March.
func (p *ReceiptParser) extractDate(lines []models.OcrLine, receipt *models.ParsedReceipt) {
	for _, line := range lines {
		for _, pattern := range p.datePatterns {
			matches := pattern.FindStringSubmatch(line.Text)
			if len(matches) < 4 {
				continue
			}

			var day, month, year int
			if len(matches[1]) == 4 {
				year, _ = strconv.Atoi(matches[1])
				month, _ = strconv.Atoi(matches[2])
				day, _ = strconv.Atoi(matches[3])
			} else {
				day, _ = strconv.Atoi(matches[1])
				month, _ = strconv.Atoi(matches[2])
				year, _ = strconv.Atoi(matches[3])
				if year < 100 {
					if year > 50 {
						year += 1900
					} else {
						year += 2000
					}
				}
			}

			if date, ok := calendarDate(year, month, day); ok {
				receipt.Date = &date
				receipt.Sources.Date = line.LineIndex
				return
			}
		}
	}
}

func calendarDate(year, month, day int) (time.Time, bool) {
	if year < 1990 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || date.Month() != time.Month(month) || date.Day() != day {
		return time.Time{}, false
	}
	return date, true
}

// extractMerchant takes the first confident, non-price header line.
// Receipts conventionally print the store name at the top; requiring
// high confidence avoids promoting a garbled banner to the name.
func (p *ReceiptParser) extractMerchant(lines []models.OcrLine, receipt *models.ParsedReceipt) {
	limit := min(len(lines), merchantHeaderLines)
	for i := 0; i < limit; i++ {
		line := lines[i]
		text := strings.TrimSpace(line.Text)
		if utf8.RuneCountInString(text) <= 3 {
			continue
		}
		if line.Confidence <= merchantMinConfidence {
			continue
		}
		if p.amountLinePattern.MatchString(text) {
			continue
		}
		name := text
		receipt.MerchantName = &name
		receipt.Sources.Merchant = line.LineIndex
		return
	}
}

// itemID is deterministic so reprocessing the same image yields the
// same item identifiers.
func itemID(lineIndex int, rawText string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%d:%s", lineIndex, rawText))).String()
}

func joinLines(lines []models.OcrLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, line.Text)
	}
	return strings.Join(parts, "\n")
}
