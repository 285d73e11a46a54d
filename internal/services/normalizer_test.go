package services

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/shelfwise/receiptscan/internal/models"
)

var _ = Describe("ItemNormalizer", func() {
	var normalizer *ItemNormalizer

	BeforeEach(func() {
		normalizer = NewItemNormalizer()
	})

	It("should expand known abbreviations", func() {
		Expect(normalizer.Normalize("GV 100 BRD")).To(Equal("gv 100 bread"))
		Expect(normalizer.Normalize("ORG WHL MLK")).To(Equal("organic whole milk"))
		Expect(normalizer.Normalize("FRZN VEG")).To(Equal("frozen vegetable"))
	})

	It("should leave unknown tokens lowercased", func() {
		Expect(normalizer.Normalize("ORG COFFEE 2%")).To(Equal("organic coffee 2%"))
	})

	It("should only expand whole tokens", func() {
		Expect(normalizer.Normalize("FORGOT SOMETHING")).To(Equal("forgot something"))
		Expect(normalizer.Normalize("EACH")).To(Equal("each"))
	})

	Describe("NormalizeItems", func() {
		It("should fill the normalized name and keep the original", func() {
			items := []models.ExtractedItem{
				{Name: "CHKN BRST BNLS"},
				{Name: "WHT BRD"},
			}
			normalizer.NormalizeItems(items)

			Expect(items[0].Name).To(Equal("CHKN BRST BNLS"))
			Expect(items[0].NormalizedName).To(Equal("chicken breast boneless"))
			Expect(items[1].NormalizedName).To(Equal("white bread"))
		})
	})
})
