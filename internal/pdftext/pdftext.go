// Package pdftext extracts plain text from PDF files for ingestion.
package pdftext

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// Extract returns the plain text content of the PDF at path.
func Extract(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text from %s: %w", path, err)
	}

	text, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read text from %s: %w", path, err)
	}
	return string(text), nil
}
