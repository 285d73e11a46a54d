package services

import (
	"bytes"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/shelfwise/receiptscan/internal/models"
)

const inkThreshold = 100

// ImagePreprocessor normalizes receipt photos before OCR. Processing is
// best-effort: when the input cannot be decoded or re-encoded the
// original bytes come back untouched with an empty Applied list.
type ImagePreprocessor struct{}

// NewImagePreprocessor creates a new image preprocessor.
func NewImagePreprocessor() *ImagePreprocessor {
	return &ImagePreprocessor{}
}

// Process runs the operation chain for the requested level and records
// which operations were applied.
func (p *ImagePreprocessor) Process(imageBytes []byte, level models.PreprocessLevel) models.PreprocessResult {
	result := models.PreprocessResult{
		Image:         imageBytes,
		Applied:       []string{},
		OriginalSize:  len(imageBytes),
		ProcessedSize: len(imageBytes),
	}
	if level == models.PreprocessNone || level == "" {
		return result
	}

	img, err := imaging.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return result
	}

	var applied []string

	gray := imaging.Grayscale(img)
	applied = append(applied, "grayscale")
	gray = stretchContrast(gray)
	applied = append(applied, "contrast_stretch")

	if level == models.PreprocessStandard || level == models.PreprocessFull {
		gray = medianFilter3(gray)
		applied = append(applied, "denoise")
		gray = clahe(gray, 8, 2.0)
		applied = append(applied, "clahe")
	}

	if level == models.PreprocessFull {
		if angle := estimateSkew(gray); math.Abs(angle) >= 0.5 {
			gray = imaging.Rotate(gray, angle, color.White)
			applied = append(applied, "deskew")
		}
		gray = imaging.Sharpen(gray, 1.0)
		applied = append(applied, "sharpen")
	}

	encoded, err := encodePNG(gray)
	if err != nil {
		return result
	}

	result.Image = encoded
	result.Applied = applied
	result.ProcessedSize = len(encoded)
	return result
}

// stretchContrast linearly maps the 2nd..98th luminance percentiles to
// the full 0..255 range. Receipts are dark print on near-white paper,
// so a plain linear stretch recovers most of the washed-out contrast.
func stretchContrast(img *image.NRGBA) *image.NRGBA {
	lo, hi := luminancePercentiles(img, 0.02, 0.98)
	if int(hi)-int(lo) < 10 {
		// Nearly flat image, stretching would only amplify noise.
		return img
	}
	scale := 255.0 / float64(int(hi)-int(lo))
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := clampUint8((float64(c.R) - float64(lo)) * scale)
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

func luminancePercentiles(img *image.NRGBA, plo, phi float64) (uint8, uint8) {
	var hist [256]int
	bounds := img.Bounds()
	total := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		i := img.PixOffset(bounds.Min.X, y)
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[img.Pix[i]]++
			i += 4
			total++
		}
	}
	if total == 0 {
		return 0, 255
	}

	loCount := int(plo * float64(total))
	hiCount := int(phi * float64(total))
	lo, hi := uint8(0), uint8(255)
	cum := 0
	seenLo := false
	for v := 0; v < 256; v++ {
		cum += hist[v]
		if !seenLo && cum > loCount {
			lo = uint8(v)
			seenLo = true
		}
		if cum >= hiCount {
			hi = uint8(v)
			break
		}
	}
	return lo, hi
}

// medianFilter3 applies a 3x3 median filter, removing salt-and-pepper
// speckle without softening glyph edges the way a box blur would.
func medianFilter3(img *image.NRGBA) *image.NRGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	var window [9]uint8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					window[n] = img.Pix[img.PixOffset(bounds.Min.X+xx, bounds.Min.Y+yy)]
					n++
				}
			}
			m := medianOf(window[:n])
			i := out.PixOffset(x, y)
			out.Pix[i] = m
			out.Pix[i+1] = m
			out.Pix[i+2] = m
			out.Pix[i+3] = 255
		}
	}
	return out
}

func medianOf(vals []uint8) uint8 {
	// Insertion sort, the window is at most 9 wide.
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && vals[j] < vals[j-1]; j-- {
			vals[j], vals[j-1] = vals[j-1], vals[j]
		}
	}
	return vals[len(vals)/2]
}

// clahe applies contrast-limited adaptive histogram equalization over a
// tile grid, interpolating between neighboring tile mappings to avoid
// visible seams. Local equalization lifts faint thermal print that a
// global stretch leaves gray.
func clahe(img *image.NRGBA, tiles int, clipLimit float64) *image.NRGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < tiles || h < tiles {
		return img
	}

	tileW := (w + tiles - 1) / tiles
	tileH := (h + tiles - 1) / tiles

	luts := make([][256]uint8, tiles*tiles)
	for ty := 0; ty < tiles; ty++ {
		for tx := 0; tx < tiles; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := min(x0+tileW, w), min(y0+tileH, h)
			luts[ty*tiles+tx] = tileLUT(img, bounds, x0, y0, x1, y1, clipLimit)
		}
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)/float64(tileH) - 0.5
		ty0 := int(math.Floor(fy))
		wy := fy - float64(ty0)
		ty1 := clampInt(ty0+1, 0, tiles-1)
		ty0 = clampInt(ty0, 0, tiles-1)
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/float64(tileW) - 0.5
			tx0 := int(math.Floor(fx))
			wx := fx - float64(tx0)
			tx1 := clampInt(tx0+1, 0, tiles-1)
			tx0 = clampInt(tx0, 0, tiles-1)

			v := img.Pix[img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)]
			top := (1-wx)*float64(luts[ty0*tiles+tx0][v]) + wx*float64(luts[ty0*tiles+tx1][v])
			bot := (1-wx)*float64(luts[ty1*tiles+tx0][v]) + wx*float64(luts[ty1*tiles+tx1][v])
			res := clampUint8((1-wy)*top + wy*bot)

			i := out.PixOffset(x, y)
			out.Pix[i] = res
			out.Pix[i+1] = res
			out.Pix[i+2] = res
			out.Pix[i+3] = 255
		}
	}
	return out
}

// tileLUT builds the clipped-equalization lookup table for one tile.
func tileLUT(img *image.NRGBA, bounds image.Rectangle, x0, y0, x1, y1 int, clipLimit float64) [256]uint8 {
	var lut [256]uint8
	var hist [256]float64
	count := 0
	for y := y0; y < y1; y++ {
		i := img.PixOffset(bounds.Min.X+x0, bounds.Min.Y+y)
		for x := x0; x < x1; x++ {
			hist[img.Pix[i]]++
			i += 4
			count++
		}
	}
	if count == 0 {
		for v := range lut {
			lut[v] = uint8(v)
		}
		return lut
	}

	// Clip histogram peaks and spread the excess across all bins so
	// flat regions do not get their noise amplified.
	limit := clipLimit * float64(count) / 256.0
	if limit < 1 {
		limit = 1
	}
	excess := 0.0
	for v := 0; v < 256; v++ {
		if hist[v] > limit {
			excess += hist[v] - limit
			hist[v] = limit
		}
	}
	bonus := excess / 256.0
	cum := 0.0
	for v := 0; v < 256; v++ {
		cum += hist[v] + bonus
		lut[v] = clampUint8(cum * 255.0 / float64(count))
	}
	return lut
}

type inkPoint struct{ x, y int }

// estimateSkew returns the rotation angle in degrees that straightens
// the text lines, positive when the lines droop toward the right. The
// angle maximizing the variance of the sheared horizontal projection
// profile is the one where rows of print line up. Search covers ±10°
// coarsely, then refines around the best candidate.
func estimateSkew(img *image.NRGBA) float64 {
	small := img
	if img.Bounds().Dx() > 400 {
		small = imaging.Resize(img, 400, 0, imaging.Linear)
	}
	bounds := small.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	var ink []inkPoint
	for y := 0; y < h; y++ {
		i := small.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		for x := 0; x < w; x++ {
			if small.Pix[i] < inkThreshold {
				ink = append(ink, inkPoint{x, y})
			}
			i += 4
		}
	}
	if len(ink) < 50 {
		return 0
	}

	best, bestScore := 0.0, -1.0
	for angle := -10.0; angle <= 10.0; angle += 0.5 {
		if score := projectionVariance(ink, h, angle); score > bestScore {
			bestScore = score
			best = angle
		}
	}
	for angle := best - 0.4; angle <= best+0.4; angle += 0.1 {
		if score := projectionVariance(ink, h, angle); score > bestScore {
			bestScore = score
			best = angle
		}
	}
	return best
}

func projectionVariance(ink []inkPoint, rows int, angleDeg float64) float64 {
	if rows <= 0 {
		return 0
	}
	shear := math.Tan(angleDeg * math.Pi / 180.0)
	counts := make([]float64, rows)
	for _, p := range ink {
		row := p.y - int(math.Round(float64(p.x)*shear))
		if row < 0 || row >= rows {
			continue
		}
		counts[row]++
	}
	var sum, sumSq float64
	for _, c := range counts {
		sum += c
		sumSq += c * c
	}
	mean := sum / float64(rows)
	return sumSq/float64(rows) - mean*mean
}

func clampUint8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
