package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TextExtractor implements Extractor for UTF-8 plain text.
type TextExtractor struct{}

// Format implements Extractor.
func (TextExtractor) Format() string { return "text" }

// Supports implements Extractor.
func (TextExtractor) Supports(m string) bool {
	return strings.HasPrefix(strings.ToLower(m), "text/")
}

// Extract validates the encoding and strips a leading byte order mark.
func (TextExtractor) Extract(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", ErrCorrupt)
	}
	return strings.TrimPrefix(string(data), "\uFEFF"), nil
}
