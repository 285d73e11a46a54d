package services

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// normalizeImage converts supported input bytes (JPEG, PNG, GIF, WebP,
// HEIC, single-page PDF) into bytes the rest of the pipeline can
// decode. JPEG and PNG input passes through untouched; everything else
// is re-encoded as PNG. The input format is sniffed from the bytes,
// never from a declared content type.
func normalizeImage(data []byte) ([]byte, error) {
	if isPDFFormat(data) {
		return pdfToImage(data)
	}
	if isHEICFormat(data) {
		return heicToPNG(data)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	switch format {
	case "png", "jpeg":
		return data, nil
	}
	return encodePNG(img)
}

// pdfToImage rasterizes the first page of a PDF. Receipts are almost
// always single page.
func pdfToImage(data []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("failed to render pdf page: %w", err)
	}
	return encodePNG(img)
}

func heicToPNG(data []byte) ([]byte, error) {
	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode heic image: %w", err)
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEICFormat checks for an ftyp box with a HEIC/HEIF brand, the
// container used by iPhone photos.
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if !bytes.Equal(data[4:8], []byte("ftyp")) {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isPDFFormat(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF"))
}
