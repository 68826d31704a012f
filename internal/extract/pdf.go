package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor implements Extractor for application/pdf.
type PDFExtractor struct{}

// Format implements Extractor.
func (PDFExtractor) Format() string { return "pdf" }

// Supports implements Extractor.
func (PDFExtractor) Supports(m string) bool {
	return strings.EqualFold(m, MIMEPDF)
}

// Extract returns the text of every page that has any, one page per line.
func (PDFExtractor) Extract(data []byte) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrCorrupt, r)
		}
	}()

	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var b strings.Builder
	for i := 1; i <= rdr.NumPage(); i++ {
		page := rdr.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Image-only or problematic page.
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String()), nil
}
