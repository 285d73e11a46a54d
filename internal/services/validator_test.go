package services

import (
	"bytes"
	"image"
	"image/png"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/shelfwise/receiptscan/internal/models"
)

var _ = Describe("ImageValidator", func() {
	var (
		validator   *ImageValidator
		imageBytes  []byte
		constraints models.ValidationConstraints

		result models.ValidationResult
	)

	BeforeEach(func() {
		validator = NewImageValidator()
		constraints = models.DefaultConstraints()
	})

	JustBeforeEach(func() {
		result = validator.Validate(imageBytes, constraints)
	})

	When("the image is a well-lit detailed photo", func() {
		BeforeEach(func() {
			imageBytes = makeNoisePNG(400, 400)
		})

		It("should report it valid", func() {
			Expect(result.Valid).To(BeTrue())
			Expect(result.Issues).To(BeEmpty())
		})
	})

	When("the bytes cannot be decoded", func() {
		BeforeEach(func() {
			imageBytes = []byte("definitely not an image")
		})

		It("should report a single unreadable issue", func() {
			Expect(result.Valid).To(BeFalse())
			Expect(result.Issues).To(HaveLen(1))
			Expect(result.Issues[0].Kind).To(Equal(models.IssueUnreadable))
			Expect(result.Issues[0].Message).NotTo(BeEmpty())
		})
	})

	When("the image is both small and dark", func() {
		BeforeEach(func() {
			imageBytes = makeSolidPNG(100, 80, 10)
		})

		It("should report the resolution issue", func() {
			Expect(issueKindsOf(result.Issues)).To(ContainElement(models.IssueResolutionTooLow))
		})

		It("should report the darkness issue", func() {
			Expect(issueKindsOf(result.Issues)).To(ContainElement(models.IssueTooDark))
		})

		It("should accumulate instead of stopping at the first failure", func() {
			Expect(result.Valid).To(BeFalse())
			Expect(len(result.Issues)).To(BeNumerically(">=", 2))
		})
	})

	When("the image has contrast but no sharp edges", func() {
		BeforeEach(func() {
			imageBytes = makeGradientPNG(400, 400)
			constraints.MinFileSizeBytes = 0
		})

		It("should flag only the blur", func() {
			Expect(result.Valid).To(BeFalse())
			Expect(result.Issues).To(HaveLen(1))
			Expect(result.Issues[0].Kind).To(Equal(models.IssueBlurry))
		})
	})

	When("the file is larger than allowed", func() {
		BeforeEach(func() {
			imageBytes = makeNoisePNG(400, 400)
			constraints.MaxFileSizeBytes = 1024
		})

		It("should flag only the file size", func() {
			Expect(result.Valid).To(BeFalse())
			Expect(result.Issues).To(HaveLen(1))
			Expect(result.Issues[0].Kind).To(Equal(models.IssueFileTooLarge))
		})
	})

	When("the file is suspiciously small", func() {
		BeforeEach(func() {
			imageBytes = makeCheckerboardPNG(400, 400)
		})

		It("should flag the thumbnail-sized file", func() {
			Expect(result.Valid).To(BeFalse())
			Expect(result.Issues).To(HaveLen(1))
			Expect(result.Issues[0].Kind).To(Equal(models.IssueFileTooSmall))
		})
	})

	When("the size gates are relaxed", func() {
		BeforeEach(func() {
			imageBytes = makeCheckerboardPNG(400, 400)
			constraints.MinFileSizeBytes = 0
		})

		It("should pass the quality gates", func() {
			Expect(result.Valid).To(BeTrue())
			Expect(result.Issues).To(BeEmpty())
		})
	})
})

func issueKindsOf(issues []models.ValidationIssue) []models.IssueKind {
	kinds := make([]models.IssueKind, 0, len(issues))
	for _, issue := range issues {
		kinds = append(kinds, issue.Kind)
	}
	return kinds
}

func encodeGrayPNG(img *image.Gray) []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

// makeNoisePNG builds a gray noise image. Noise barely compresses, so
// the file has realistic byte weight, and it carries full brightness,
// contrast and edge spread, so it passes every default quality gate.
func makeNoisePNG(width, height int) []byte {
	rng := rand.New(rand.NewSource(42))
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return encodeGrayPNG(img)
}

func makeSolidPNG(width, height int, level uint8) []byte {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = level
	}
	return encodeGrayPNG(img)
}

// makeGradientPNG ramps luminance left to right. Plenty of global
// contrast, yet no two neighboring pixels differ enough to count as an
// edge.
func makeGradientPNG(width, height int) []byte {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Pix[y*img.Stride+x] = uint8(x * 255 / (width - 1))
		}
	}
	return encodeGrayPNG(img)
}

// makeCheckerboardPNG alternates black and white per pixel: maximal
// contrast and edge density in a file that compresses to almost
// nothing.
func makeCheckerboardPNG(width, height int) []byte {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x+y)%2 == 0 {
				img.Pix[y*img.Stride+x] = 255
			}
		}
	}
	return encodeGrayPNG(img)
}
