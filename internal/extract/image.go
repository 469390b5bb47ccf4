package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// normalizeForOCR decodes the image, upscales it to at least minWidth wide,
// and converts it to grayscale. Recognition accuracy on small or colored
// scans improves substantially with this preparation.
func normalizeForOCR(data []byte, minWidth int) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image has empty bounds")
	}

	targetWidth := width
	targetHeight := height
	if width < minWidth {
		scale := float64(minWidth) / float64(width)
		targetWidth = minWidth
		targetHeight = int(float64(height) * scale)
	}

	gray := image.NewGray(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(gray, gray.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("encode normalized image: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeImage(data []byte) (image.Image, error) {
	if img, err := png.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := jpeg.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}
