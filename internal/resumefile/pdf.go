// Package resumefile extracts plain text from uploaded resume files.
package resumefile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
)

// ContentTypePDF is the only accepted upload type.
const ContentTypePDF = "application/pdf"

var (
	ErrUnsupportedType = errors.New("only PDF files are allowed")
	ErrUnreadable      = errors.New("unable to extract text from PDF")
)

var pdfHeader = []byte("%PDF-")

// IsPDF reports whether data starts with the PDF file header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfHeader)
}

// Extractor turns PDF resumes into text.
type Extractor struct {
	parser *pdf.PDFParser
}

// NewExtractor creates an Extractor that returns the whole document as one text.
func NewExtractor(ctx context.Context) (*Extractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	if err != nil {
		return nil, fmt.Errorf("create PDF parser: %w", err)
	}
	return &Extractor{parser: p}, nil
}

// ExtractPDF returns the trimmed text layer of a PDF. A scanned PDF without a
// text layer yields an empty string, not an error.
func (e *Extractor) ExtractPDF(ctx context.Context, data []byte) (string, error) {
	if !IsPDF(data) {
		return "", ErrUnsupportedType
	}

	docs, err := e.parser.Parse(ctx, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	var b strings.Builder
	for _, doc := range docs {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(doc.Content)
	}
	return strings.TrimSpace(b.String()), nil
}
