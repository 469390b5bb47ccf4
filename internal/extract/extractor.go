package extract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"docchat/internal/model"
)

var ErrUnsupportedFormat = errors.New("unsupported media type")

// OCRFailurePlaceholder is stored as the extracted text when recognition
// fails. The document must stay conversable even with no recoverable text.
const OCRFailurePlaceholder = "No readable text could be extracted from this image."

// OCREngine recognizes text in a normalized raster image.
type OCREngine interface {
	Recognize(ctx context.Context, png []byte) (string, error)
}

// Extractor converts uploaded file bytes into plain text.
type Extractor struct {
	ocr      OCREngine
	minWidth int
}

func NewExtractor(ocr OCREngine, minWidth int) *Extractor {
	if minWidth <= 0 {
		minWidth = 1024
	}
	return &Extractor{ocr: ocr, minWidth: minWidth}
}

// Extract returns the trimmed plain text of the file. PDF parse errors are
// fatal; image OCR failure is not and yields OCRFailurePlaceholder instead.
func (e *Extractor) Extract(ctx context.Context, data []byte, mediaType string) (string, error) {
	switch mediaType {
	case model.MediaTypePDF:
		text, err := pdfText(data)
		if err != nil {
			return "", fmt.Errorf("extract pdf text failed: %w", err)
		}
		return strings.TrimSpace(text), nil
	case model.MediaTypeImage:
		return e.extractImage(ctx, data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mediaType)
	}
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) string {
	normalized, err := normalizeForOCR(data, e.minWidth)
	if err != nil {
		log.Printf("normalize image for ocr failed: %v", err)
		return OCRFailurePlaceholder
	}
	text, err := e.ocr.Recognize(ctx, normalized)
	if err != nil {
		log.Printf("image ocr failed: %v", err)
		return OCRFailurePlaceholder
	}
	return strings.TrimSpace(text)
}
