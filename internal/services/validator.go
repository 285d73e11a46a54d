package services

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/shelfwise/receiptscan/internal/models"
)

// ImageValidator rejects unusable images before the expensive OCR step.
type ImageValidator struct{}

// NewImageValidator creates a new image validator.
func NewImageValidator() *ImageValidator {
	return &ImageValidator{}
}

// Validate runs every quality gate and accumulates issues so the caller
// sees all problems at once. If the bytes cannot be decoded at all the
// result is a single unreadable issue.
func (v *ImageValidator) Validate(imageBytes []byte, constraints models.ValidationConstraints) models.ValidationResult {
	var issues []models.ValidationIssue

	size := int64(len(imageBytes))
	if constraints.MinFileSizeBytes > 0 && size < constraints.MinFileSizeBytes {
		issues = append(issues, models.ValidationIssue{
			Kind:    models.IssueFileTooSmall,
			Message: fmt.Sprintf("file is %d bytes, below the %d byte minimum; upload the original photo, not a thumbnail", size, constraints.MinFileSizeBytes),
		})
	}
	if constraints.MaxFileSizeBytes > 0 && size > constraints.MaxFileSizeBytes {
		issues = append(issues, models.ValidationIssue{
			Kind:    models.IssueFileTooLarge,
			Message: fmt.Sprintf("file is %d bytes, above the %d byte maximum; export a smaller copy", size, constraints.MaxFileSizeBytes),
		})
	}

	img, err := imaging.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return models.ValidationResult{
			Valid: false,
			Issues: []models.ValidationIssue{{
				Kind:    models.IssueUnreadable,
				Message: "image could not be decoded; upload a JPEG, PNG or WebP photo",
			}},
		}
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < constraints.MinWidth || height < constraints.MinHeight {
		issues = append(issues, models.ValidationIssue{
			Kind:    models.IssueResolutionTooLow,
			Message: fmt.Sprintf("image is %dx%d, below the %dx%d minimum; move closer or use a higher camera resolution", width, height, constraints.MinWidth, constraints.MinHeight),
		})
	}

	stats := measureLuminance(img)
	if stats.mean < constraints.MinBrightness {
		issues = append(issues, models.ValidationIssue{
			Kind:    models.IssueTooDark,
			Message: fmt.Sprintf("average brightness is %.0f, below the %.0f minimum; retake the photo with more light", stats.mean, constraints.MinBrightness),
		})
	}
	if stats.stdDev < constraints.MinContrast {
		issues = append(issues, models.ValidationIssue{
			Kind:    models.IssueLowContrast,
			Message: fmt.Sprintf("contrast is %.0f, below the %.0f minimum; avoid glare and even out the lighting", stats.stdDev, constraints.MinContrast),
		})
	}
	if stats.edgeDensity < constraints.MinSharpness {
		issues = append(issues, models.ValidationIssue{
			Kind:    models.IssueBlurry,
			Message: fmt.Sprintf("edge density is %.3f, below the %.3f minimum; hold the camera steady and refocus", stats.edgeDensity, constraints.MinSharpness),
		})
	}

	return models.ValidationResult{Valid: len(issues) == 0, Issues: issues}
}

type luminanceStats struct {
	mean        float64
	stdDev      float64
	edgeDensity float64
}

// measureLuminance samples pixel luminance on a stride, returning the
// mean, the standard deviation (contrast proxy) and the fraction of
// samples sitting on a strong luminance edge (sharpness proxy).
func measureLuminance(img image.Image) luminanceStats {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return luminanceStats{}
	}

	// Cap the work at roughly 250k samples regardless of image size.
	stride := 1
	for (width/stride)*(height/stride) > 250000 {
		stride++
	}

	var (
		sum, sumSq float64
		count      int
		edges      int
	)
	const edgeThreshold = 25.0

	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		var prev float64
		first := true
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
			sum += lum
			sumSq += lum * lum
			count++
			if !first && math.Abs(lum-prev) > edgeThreshold {
				edges++
			}
			prev = lum
			first = false
		}
	}

	if count == 0 {
		return luminanceStats{}
	}
	mean := sum / float64(count)
	variance := sumSq/float64(count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return luminanceStats{
		mean:        mean,
		stdDev:      math.Sqrt(variance),
		edgeDensity: float64(edges) / float64(count),
	}
}
