// Package pdftext extracts the embedded text layer from PDF invoices.
// Scanned documents without a text layer yield empty text; OCR is out of
// scope, callers must treat empty output as a parse failure.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrNotPDF indicates the uploaded bytes are not a well-formed PDF.
var ErrNotPDF = errors.New("file is not a valid PDF")

// Validate checks that data is a structurally sound PDF and returns its
// page count. Runs before text extraction so the user gets a clear error
// for truncated or mislabeled uploads.
func Validate(data []byte) (int, error) {
	rs := bytes.NewReader(data)
	if err := pdfapi.Validate(rs, nil); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	if _, err := rs.Seek(0, 0); err != nil {
		return 0, err
	}
	pages, err := pdfapi.PageCount(rs, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	return pages, nil
}

// Extract reads all text from a PDF document. Pages are concatenated
// with newline separators; within a page, text rows are joined with
// newlines and words with single spaces.
func Extract(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			// A single unreadable page should not discard the rest of
			// the document.
			continue
		}
		for _, row := range rows {
			for _, word := range row.Content {
				sb.WriteString(word.S)
				sb.WriteString(" ")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// Normalize collapses all whitespace runs into single spaces. Vendor
// parsers match against normalized text so patterns can span the PDF's
// line breaks.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
