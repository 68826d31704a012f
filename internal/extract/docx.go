package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const docxBody = "word/document.xml"

// DOCXExtractor implements Extractor for Word documents.
type DOCXExtractor struct{}

// Format implements Extractor.
func (DOCXExtractor) Format() string { return "docx" }

// Supports implements Extractor.
func (DOCXExtractor) Supports(m string) bool {
	return strings.EqualFold(m, MIMEDOCX)
}

// Extract returns the non-blank paragraphs of the document body joined by
// newlines. Tabs and line breaks inside a paragraph are kept.
func (DOCXExtractor) Extract(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("%w: missing %s", ErrCorrupt, docxBody)
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer rc.Close()

	paragraphs, err := readParagraphs(rc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

// readParagraphs walks WordprocessingML and collects the text of each w:p.
func readParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var paragraphs []string
	var current strings.Builder
	inParagraph := false
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inText = inParagraph
			case "tab":
				if inParagraph {
					current.WriteString("\t")
				}
			case "br", "cr":
				if inParagraph {
					current.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := current.String(); strings.TrimSpace(text) != "" {
					paragraphs = append(paragraphs, text)
				}
				inParagraph = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}
