// Package extract reads plain text out of uploaded documents.
package extract

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// Supported MIME types.
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEText = "text/plain"
	mimeZip  = "application/zip"
	mimeXZip = "application/x-zip-compressed"
	mimeBin  = "application/octet-stream"
)

var (
	// ErrExtraction wraps every failure to get text out of a document.
	ErrExtraction = errors.New("text extraction failed")
	// ErrUnsupportedType is returned for documents no extractor handles.
	ErrUnsupportedType = errors.New("unsupported document type")
	// ErrNoText is returned when a document was read but held no text.
	ErrNoText = errors.New("no text could be extracted from the document")
	// ErrCorrupt is returned when a document could not be parsed.
	ErrCorrupt = errors.New("document could not be parsed")
)

// Extractor turns one document format into plain text.
type Extractor interface {
	// Format is the short name of the format, e.g. "pdf".
	Format() string
	Supports(mimeType string) bool
	Extract(data []byte) (string, error)
}

// Document is the outcome of a successful extraction.
type Document struct {
	Text   string
	MIME   string
	Format string
}

// Registry dispatches documents to the first extractor that supports them.
type Registry struct {
	extractors []Extractor
}

// NewRegistry returns a registry with the PDF, DOCX and plain text extractors.
func NewRegistry(extra ...Extractor) *Registry {
	r := &Registry{extractors: []Extractor{PDFExtractor{}, DOCXExtractor{}, TextExtractor{}}}
	r.extractors = append(r.extractors, extra...)
	return r
}

// Extract detects the document type from its declared content type, name and
// leading bytes, then extracts its text. On any failure the text is empty.
func (r *Registry) Extract(name, contentType string, data []byte) (*Document, error) {
	mimeType := DetectMIME(name, contentType, data)

	for _, e := range r.extractors {
		if !e.Supports(mimeType) {
			continue
		}
		text, err := e.Extract(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrExtraction, e.Format(), err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("%w: %s: %w", ErrExtraction, e.Format(), ErrNoText)
		}
		return &Document{Text: text, MIME: mimeType, Format: e.Format()}, nil
	}

	return nil, fmt.Errorf("%w: %w: %s", ErrExtraction, ErrUnsupportedType, mimeType)
}

var defaultRegistry = NewRegistry()

// Extract reads the text of a document with the built-in extractors. On
// failure the text is empty and the error wraps ErrExtraction.
func Extract(name, contentType string, data []byte) (string, error) {
	doc, err := defaultRegistry.Extract(name, contentType, data)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

// FormatOf returns the short format name for a MIME type, or "unknown".
func (r *Registry) FormatOf(mimeType string) string {
	for _, e := range r.extractors {
		if e.Supports(mimeType) {
			return e.Format()
		}
	}
	return "unknown"
}

var extensionTypes = map[string]string{
	".pdf":  MIMEPDF,
	".docx": MIMEDOCX,
	".txt":  MIMEText,
	".md":   MIMEText,
	".text": MIMEText,
}

// DetectMIME resolves a document's MIME type. A specific declared type wins,
// then a known extension, then content sniffing. A declared zip type is read
// as DOCX, the only zip-based format supported.
func DetectMIME(name, declared string, head []byte) string {
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != mimeBin {
			if mediaType == mimeZip || mediaType == mimeXZip {
				return MIMEDOCX
			}
			return mediaType
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	if m, ok := extensionTypes[ext]; ok {
		return m
	}

	if len(head) > 512 {
		head = head[:512]
	}
	sniffed := http.DetectContentType(head)
	switch {
	case sniffed == MIMEPDF:
		return MIMEPDF
	case sniffed == mimeZip:
		// DOCX files are zip archives.
		return MIMEDOCX
	case strings.HasPrefix(sniffed, MIMEText):
		return MIMEText
	}

	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
				return mediaType
			}
		}
	}
	if len(head) > 0 && isLikelyUTF8(head) {
		return MIMEText
	}
	return mimeBin
}

func isLikelyUTF8(head []byte) bool {
	r := bufio.NewReader(bytes.NewReader(head))
	for i := 0; i < len(head) && i < 2048; i++ {
		c, size, err := r.ReadRune()
		if err != nil {
			break
		}
		if c == 0xFFFD && size == 1 {
			return false
		}
		if c == 0 {
			return false
		}
	}
	return true
}
