package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("[Content_Types].xml")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Types/>`))

	w, err = zw.Create(docxBody)
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`
	w.Write([]byte(doc))

	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestDOCXExtractor(t *testing.T) {
	data := buildDOCX(t,
		`<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>`+
			`<w:p></w:p>`+
			`<w:p><w:r><w:t xml:space="preserve">Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>Col A</w:t><w:tab/><w:t>Col B</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>   </w:t></w:r></w:p>`)

	got, err := DOCXExtractor{}.Extract(data)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	want := "First paragraph.\nSecond paragraph.\nCol A\tCol B"
	if got != want {
		t.Errorf("Extract = %q, want %q", got, want)
	}
}

func TestDOCXExtractorRejectsNonZip(t *testing.T) {
	_, err := DOCXExtractor{}.Extract([]byte("not a zip archive"))
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestDOCXExtractorMissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("readme.txt")
	w.Write([]byte("hello"))
	zw.Close()

	_, err := DOCXExtractor{}.Extract(buf.Bytes())
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestPDFExtractorRejectsGarbage(t *testing.T) {
	_, err := PDFExtractor{}.Extract([]byte("%PDF-1.4\nthis is not really a pdf"))
	if err == nil {
		t.Fatal("expected an error for a corrupt PDF")
	}
}

func TestTextExtractor(t *testing.T) {
	got, err := TextExtractor{}.Extract([]byte("\xEF\xBB\xBFhello world"))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if got != "hello world" {
		t.Errorf("Extract = %q, want %q", got, "hello world")
	}

	got, err = TextExtractor{}.Extract([]byte("no mark \xEF\xBB\xBF inside"))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if got != "no mark \uFEFF inside" {
		t.Errorf("Expected only a leading byte order mark to be stripped, got %q", got)
	}

	if _, err := (TextExtractor{}).Extract([]byte{0xff, 0xfe, 0xfd}); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt for invalid UTF-8, got %v", err)
	}
}

func TestDetectMIME(t *testing.T) {
	var zipped bytes.Buffer
	zw := zip.NewWriter(&zipped)
	w, _ := zw.Create(docxBody)
	w.Write([]byte("<w:document/>"))
	zw.Close()

	tests := []struct {
		name     string
		file     string
		declared string
		head     []byte
		want     string
	}{
		{"pdf extension", "report.pdf", "", nil, MIMEPDF},
		{"docx extension", "Report.DOCX", "", nil, MIMEDOCX},
		{"txt extension", "notes.txt", "", nil, MIMEText},
		{"declared type with params", "upload", "application/pdf; charset=binary", nil, MIMEPDF},
		{"octet-stream falls through to extension", "a.docx", "application/octet-stream", nil, MIMEDOCX},
		{"declared zip is docx", "a.docx", "application/zip", nil, MIMEDOCX},
		{"declared windows zip is docx", "upload", "application/x-zip-compressed", nil, MIMEDOCX},
		{"sniffed pdf", "upload", "", []byte("%PDF-1.7\n1 0 obj"), MIMEPDF},
		{"sniffed zip", "upload", "", zipped.Bytes(), MIMEDOCX},
		{"sniffed text", "upload", "", []byte("plain words here"), MIMEText},
		{"binary", "", "", []byte{0x00, 0x01, 0x02, 0xff}, mimeBin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMIME(tt.file, tt.declared, tt.head); got != tt.want {
				t.Errorf("DetectMIME(%q, %q) = %q, want %q", tt.file, tt.declared, got, tt.want)
			}
		})
	}
}

func TestRegistryExtract(t *testing.T) {
	r := NewRegistry()

	t.Run("text", func(t *testing.T) {
		doc, err := r.Extract("notes.txt", "", []byte("  Some notes.  \n"))
		if err != nil {
			t.Fatalf("Extract returned error: %v", err)
		}
		if doc.Text != "Some notes." || doc.Format != "text" || doc.MIME != MIMEText {
			t.Errorf("unexpected document: %+v", doc)
		}
	})

	t.Run("docx", func(t *testing.T) {
		data := buildDOCX(t, `<w:p><w:r><w:t>Hello from Word.</w:t></w:r></w:p>`)
		doc, err := r.Extract("letter.docx", "", data)
		if err != nil {
			t.Fatalf("Extract returned error: %v", err)
		}
		if doc.Text != "Hello from Word." || doc.Format != "docx" {
			t.Errorf("unexpected document: %+v", doc)
		}
	})

	t.Run("docx declared as zip", func(t *testing.T) {
		data := buildDOCX(t, `<w:p><w:r><w:t>Sent as a zip.</w:t></w:r></w:p>`)
		doc, err := r.Extract("letter.docx", "application/zip", data)
		if err != nil {
			t.Fatalf("Extract returned error: %v", err)
		}
		if doc.Text != "Sent as a zip." || doc.MIME != MIMEDOCX {
			t.Errorf("unexpected document: %+v", doc)
		}
	})

	t.Run("blank text", func(t *testing.T) {
		doc, err := r.Extract("empty.txt", "", []byte(" \n\t "))
		if !errors.Is(err, ErrNoText) {
			t.Errorf("expected ErrNoText, got %v", err)
		}
		if doc != nil {
			t.Errorf("expected no document, got %+v", doc)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := r.Extract("picture.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
		if !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("expected ErrUnsupportedType, got %v", err)
		}
		if !strings.Contains(err.Error(), "image/png") {
			t.Errorf("error should name the type: %v", err)
		}
	})

	t.Run("corrupt pdf", func(t *testing.T) {
		doc, err := r.Extract("broken.pdf", "", []byte("%PDF-1.4 garbage"))
		if err == nil {
			t.Fatal("expected an error")
		}
		if doc != nil {
			t.Errorf("expected no document, got %+v", doc)
		}
	})
}

func TestExtractWrapsErrExtraction(t *testing.T) {
	text, err := Extract("broken.docx", "", []byte("PK but not really"))
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}

	text, err = Extract("a.txt", "", []byte("Readable."))
	if err != nil || text != "Readable." {
		t.Errorf("Extract = %q, %v", text, err)
	}
}

func TestFormatOf(t *testing.T) {
	r := NewRegistry()
	if got := r.FormatOf(MIMEPDF); got != "pdf" {
		t.Errorf("FormatOf(pdf) = %q", got)
	}
	if got := r.FormatOf("image/png"); got != "unknown" {
		t.Errorf("FormatOf(png) = %q", got)
	}
}
