package services

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/shelfwise/receiptscan/internal/models"
)

var _ = Describe("ReceiptParser", func() {
	var (
		parser *ReceiptParser
		lines  []models.OcrLine

		receipt *models.ParsedReceipt
	)

	BeforeEach(func() {
		parser = NewReceiptParser()
		lines = nil
	})

	JustBeforeEach(func() {
		receipt = parser.Parse(lines)
	})

	When("the lines cover a whole receipt", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "WALMART SUPERCENTER", Confidence: 0.92, LineIndex: 0},
				{Text: "STORE #1234", Confidence: 0.85, LineIndex: 1},
				{Text: "25/03/2024 14:23", Confidence: 0.8, LineIndex: 2},
				{Text: "GV 100 BRD 078742366900 F 1.33 N", Confidence: 0.9, LineIndex: 3},
				{Text: "CANDY PNUT BTR 00034000004409 $1.18 F", Confidence: 0.88, LineIndex: 4},
				{Text: "2 x COFFEE 4.50", Confidence: 0.9, LineIndex: 5},
				{Text: "SUBTOTAL 11.51", Confidence: 0.95, LineIndex: 6},
				{Text: "TAX 0.81", Confidence: 0.95, LineIndex: 7},
				{Text: "TOTAL 12.32", Confidence: 0.95, LineIndex: 8},
				{Text: "CASH 20.00", Confidence: 0.9, LineIndex: 9},
				{Text: "CHANGE 7.68", Confidence: 0.9, LineIndex: 10},
				{Text: "THANK YOU", Confidence: 0.9, LineIndex: 11},
			}
		})

		It("should extract the purchased items in order", func() {
			Expect(receipt.Items).To(HaveLen(3))
			Expect(receipt.Items[0].Name).To(Equal("GV 100 BRD"))
			Expect(receipt.Items[1].Name).To(Equal("CANDY PNUT BTR"))
			Expect(receipt.Items[2].Name).To(Equal("COFFEE"))
		})

		It("should read prices and quantities", func() {
			Expect(receipt.Items[0].Price).To(Equal(1.33))
			Expect(receipt.Items[0].Quantity).To(Equal(1))
			Expect(receipt.Items[1].Price).To(Equal(1.18))
			Expect(receipt.Items[2].Price).To(Equal(4.50))
			Expect(receipt.Items[2].Quantity).To(Equal(2))
		})

		It("should read the summary block", func() {
			Expect(receipt.Subtotal).To(HaveValue(Equal(11.51)))
			Expect(receipt.Tax).To(HaveValue(Equal(0.81)))
			Expect(receipt.Total).To(HaveValue(Equal(12.32)))
			Expect(receipt.Sources.Subtotal).To(Equal(6))
			Expect(receipt.Sources.Tax).To(Equal(7))
			Expect(receipt.Sources.Total).To(Equal(8))
		})

		It("should read the purchase date", func() {
			Expect(receipt.Date).NotTo(BeNil())
			Expect(receipt.Date.Format("2006-01-02")).To(Equal("2024-03-25"))
			Expect(receipt.Sources.Date).To(Equal(2))
		})

		It("should read the merchant from the header", func() {
			Expect(receipt.MerchantName).To(HaveValue(Equal("WALMART SUPERCENTER")))
			Expect(receipt.Sources.Merchant).To(Equal(0))
		})

		It("should keep the raw text", func() {
			Expect(receipt.RawText).To(HavePrefix("WALMART SUPERCENTER"))
			Expect(receipt.RawText).To(ContainSubstring("GV 100 BRD"))
		})

		It("should mint stable distinct item ids", func() {
			Expect(receipt.Items[0].ID).To(HaveLen(36))
			Expect(receipt.Items[0].ID).NotTo(Equal(receipt.Items[1].ID))
			Expect(parser.Parse(lines)).To(Equal(receipt))
		})
	})

	When("a line has a product code, tax flags and a bare price", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "GV 100 BRD 078742366900 F 1.33 N", Confidence: 0.9, LineIndex: 0},
			}
		})

		It("should extract a single clean item", func() {
			Expect(receipt.Items).To(HaveLen(1))
			item := receipt.Items[0]
			Expect(item.Name).To(ContainSubstring("GV 100 BRD"))
			Expect(item.Price).To(Equal(1.33))
			Expect(item.Quantity).To(Equal(1))
		})

		It("should carry the source line along", func() {
			item := receipt.Items[0]
			Expect(item.Confidence).To(Equal(0.9))
			Expect(item.SourceLineIndex).To(Equal(0))
			Expect(item.RawText).To(Equal("GV 100 BRD 078742366900 F 1.33 N"))
		})
	})

	When("a summary line carries a price", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "TOTAL 113.16", Confidence: 0.95, LineIndex: 0},
			}
		})

		It("should never turn it into an item", func() {
			Expect(receipt.Items).To(BeEmpty())
		})

		It("should still read the total", func() {
			Expect(receipt.Total).To(HaveValue(Equal(113.16)))
			Expect(receipt.Sources.Total).To(Equal(0))
			Expect(receipt.Subtotal).To(BeNil())
			Expect(receipt.Tax).To(BeNil())
		})
	})

	When("a line starts with a quantity prefix", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "2 x COFFEE 4.50", Confidence: 0.9, LineIndex: 0},
			}
		})

		It("should read the quantity and the unit price", func() {
			Expect(receipt.Items).To(HaveLen(1))
			Expect(receipt.Items[0].Quantity).To(Equal(2))
			Expect(receipt.Items[0].Price).To(Equal(4.50))
			Expect(receipt.Items[0].Name).To(ContainSubstring("COFFEE"))
		})
	})

	When("the quantity is glued to the x", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "2x MILK 3.50", Confidence: 0.9, LineIndex: 0},
			}
		})

		It("should still read the quantity", func() {
			Expect(receipt.Items).To(HaveLen(1))
			Expect(receipt.Items[0].Quantity).To(Equal(2))
			Expect(receipt.Items[0].Name).To(Equal("MILK"))
		})
	})

	When("a dimension merely looks like a quantity prefix", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "4X4 LUMBER 12.99", Confidence: 0.9, LineIndex: 0},
			}
		})

		It("should keep it in the name", func() {
			Expect(receipt.Items).To(HaveLen(1))
			Expect(receipt.Items[0].Quantity).To(Equal(1))
			Expect(receipt.Items[0].Name).To(Equal("4X4 LUMBER"))
		})
	})

	When("the currency glyph is misread as a letter", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "LATTE S4.50", Confidence: 0.85, LineIndex: 0},
			}
		})

		It("should still find the price", func() {
			Expect(receipt.Items).To(HaveLen(1))
			Expect(receipt.Items[0].Price).To(Equal(4.50))
			Expect(receipt.Items[0].Name).To(Equal("LATTE"))
		})
	})

	When("the price uses a comma decimal", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "BREZEL 2,50", Confidence: 0.9, LineIndex: 0},
			}
		})

		It("should read it as a decimal point", func() {
			Expect(receipt.Items).To(HaveLen(1))
			Expect(receipt.Items[0].Price).To(Equal(2.50))
		})
	})

	When("the price is implausibly large", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "MYSTERY GADGET 15000.00", Confidence: 0.9, LineIndex: 0},
			}
		})

		It("should not create an item", func() {
			Expect(receipt.Items).To(BeEmpty())
		})
	})

	When("the price sits just inside the plausible range", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "WIDGET 9999.99", Confidence: 0.9, LineIndex: 0},
			}
		})

		It("should keep the item", func() {
			Expect(receipt.Items).To(HaveLen(1))
			Expect(receipt.Items[0].Price).To(Equal(9999.99))
		})
	})

	When("the price is zero", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "FREEBIE 0.00", Confidence: 0.9, LineIndex: 0},
			}
		})

		It("should not create an item", func() {
			Expect(receipt.Items).To(BeEmpty())
		})
	})

	When("nothing but a product code surrounds the price", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "1234567890123 4.56", Confidence: 0.9, LineIndex: 0},
			}
		})

		It("should reject the nameless item", func() {
			Expect(receipt.Items).To(BeEmpty())
		})
	})

	When("the lines are all boilerplate", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "--------------------", Confidence: 0.9, LineIndex: 0},
				{Text: "25/03/2024", Confidence: 0.9, LineIndex: 1},
				{Text: "14:23", Confidence: 0.9, LineIndex: 2},
				{Text: "HAVE A NICE DAY", Confidence: 0.9, LineIndex: 3},
			}
		})

		It("should extract no items", func() {
			Expect(receipt.Items).To(BeEmpty())
		})

		It("should still pick up the date", func() {
			Expect(receipt.Date).NotTo(BeNil())
			Expect(receipt.Date.Format("2006-01-02")).To(Equal("2024-03-25"))
		})
	})

	When("there are no lines at all", func() {
		It("should return an empty receipt", func() {
			Expect(receipt.Items).NotTo(BeNil())
			Expect(receipt.Items).To(BeEmpty())
			Expect(receipt.MerchantName).To(BeNil())
			Expect(receipt.Date).To(BeNil())
			Expect(receipt.Total).To(BeNil())
			Expect(receipt.RawText).To(BeEmpty())
			Expect(receipt.Sources).To(Equal(models.UnsetFieldSources()))
		})
	})

	When("the total keyword is damaged by the OCR", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "T0TAL 113.16", Confidence: 0.8, LineIndex: 0},
			}
		})

		It("should still read the total", func() {
			Expect(receipt.Total).To(HaveValue(Equal(113.16)))
		})

		It("should not mistake the damaged line for an item", func() {
			Expect(receipt.Items).To(BeEmpty())
		})
	})

	When("the summary keyword sits mid-line", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "SALES TAX 2.04", Confidence: 0.9, LineIndex: 0},
			}
		})

		It("should exclude the line from the items", func() {
			Expect(receipt.Items).To(BeEmpty())
			Expect(receipt.Tax).To(HaveValue(Equal(2.04)))
		})
	})

	When("only a subtotal is printed", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "SUBTOTAL 99.10", Confidence: 0.9, LineIndex: 0},
			}
		})

		It("should not bleed into the total", func() {
			Expect(receipt.Subtotal).To(HaveValue(Equal(99.10)))
			Expect(receipt.Total).To(BeNil())
			Expect(receipt.Tax).To(BeNil())
		})
	})

	When("several total lines appear", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "TOTAL 10.00", Confidence: 0.9, LineIndex: 0},
				{Text: "VOIDED AND RERUNG", Confidence: 0.9, LineIndex: 1},
				{Text: "TOTAL 113.16", Confidence: 0.9, LineIndex: 2},
			}
		})

		It("should keep the bottom-most one", func() {
			Expect(receipt.Total).To(HaveValue(Equal(113.16)))
			Expect(receipt.Sources.Total).To(Equal(2))
		})
	})

	When("the summary uses punctuation and currency", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "SALES TAX 2.04", Confidence: 0.9, LineIndex: 0},
				{Text: "BALANCE DUE: $55.00", Confidence: 0.9, LineIndex: 1},
			}
		})

		It("should read both fields", func() {
			Expect(receipt.Tax).To(HaveValue(Equal(2.04)))
			Expect(receipt.Total).To(HaveValue(Equal(55.00)))
		})
	})

	When("the date is printed year first", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "2024/03/25", Confidence: 0.9, LineIndex: 0},
			}
		})

		It("should prefer the year-first reading", func() {
			Expect(receipt.Date).NotTo(BeNil())
			Expect(receipt.Date.Format("2006-01-02")).To(Equal("2024-03-25"))
		})
	})

	When("the date has a two digit year", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "25/03/24", Confidence: 0.9, LineIndex: 0},
				{Text: "SOMETHING ELSE", Confidence: 0.9, LineIndex: 1},
			}
		})

		It("should expand it into this century", func() {
			Expect(receipt.Date).NotTo(BeNil())
			Expect(receipt.Date.Format("2006-01-02")).To(Equal("2024-03-25"))
		})
	})

	When("the date has a two digit year from last century", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "25/03/99", Confidence: 0.9, LineIndex: 0},
			}
		})

		It("should expand it into the nineties", func() {
			Expect(receipt.Date).NotTo(BeNil())
			Expect(receipt.Date.Format("2006-01-02")).To(Equal("1999-03-25"))
		})
	})

	When("the first date-shaped token is not a real day", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "31/02/2024", Confidence: 0.9, LineIndex: 0},
				{Text: "25/03/2024", Confidence: 0.9, LineIndex: 1},
			}
		})

		It("should skip it and keep the first valid date", func() {
			Expect(receipt.Date).NotTo(BeNil())
			Expect(receipt.Date.Format("2006-01-02")).To(Equal("2024-03-25"))
			Expect(receipt.Sources.Date).To(Equal(1))
		})
	})

	When("no line carries a date", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "NO CALENDAR HERE", Confidence: 0.9, LineIndex: 0},
			}
		})

		It("should leave the date unset", func() {
			Expect(receipt.Date).To(BeNil())
			Expect(receipt.Sources.Date).To(Equal(-1))
		})
	})

	When("the top line is price shaped", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "$4.50", Confidence: 0.95, LineIndex: 0},
				{Text: "KROGER MARKETPLACE", Confidence: 0.9, LineIndex: 1},
			}
		})

		It("should skip it when picking the merchant", func() {
			Expect(receipt.MerchantName).To(HaveValue(Equal("KROGER MARKETPLACE")))
			Expect(receipt.Sources.Merchant).To(Equal(1))
		})
	})

	When("the header confidence is borderline", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "SAFEWAY STORES", Confidence: 0.70, LineIndex: 0},
				{Text: "ALBERTSONS MARKET", Confidence: 0.71, LineIndex: 1},
			}
		})

		It("should require confidence strictly above the bar", func() {
			Expect(receipt.MerchantName).To(HaveValue(Equal("ALBERTSONS MARKET")))
		})
	})

	When("the header line is too short to be a name", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "WM", Confidence: 0.99, LineIndex: 0},
				{Text: "COSTCO WHOLESALE", Confidence: 0.9, LineIndex: 1},
			}
		})

		It("should fall through to the next line", func() {
			Expect(receipt.MerchantName).To(HaveValue(Equal("COSTCO WHOLESALE")))
		})
	})

	When("the store name appears below the header window", func() {
		BeforeEach(func() {
			lines = []models.OcrLine{
				{Text: "GARBLED BANNER ONE", Confidence: 0.4, LineIndex: 0},
				{Text: "GARBLED BANNER TWO", Confidence: 0.4, LineIndex: 1},
				{Text: "GARBLED BANNER THREE", Confidence: 0.4, LineIndex: 2},
				{Text: "GARBLED BANNER FOUR", Confidence: 0.4, LineIndex: 3},
				{Text: "GARBLED BANNER FIVE", Confidence: 0.4, LineIndex: 4},
				{Text: "COSTCO WHOLESALE", Confidence: 0.99, LineIndex: 5},
			}
		})

		It("should leave the merchant unset", func() {
			Expect(receipt.MerchantName).To(BeNil())
			Expect(receipt.Sources.Merchant).To(Equal(-1))
		})
	})
})
