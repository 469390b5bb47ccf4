package extract

import (
	"bytes"
	"io"

	"github.com/ledongthuc/pdf"
)

// pdfText extracts the concatenated page text of a PDF in reading order.
// Returns an empty string for a PDF with no extractable text.
func pdfText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
