package extractor

import (
	"bytes"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextExtractor returns the extracted text layer of a staged document.
// An empty string means the document has no usable text layer; extraction
// is treated as a deterministic, pure function of document content.
type TextExtractor interface {
	ExtractText(path string) string
}

// PDFExtractor reads the text layer of a PDF. No OCR: scanned PDFs with
// no text layer come back as "".
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) ExtractText(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return ExtractPDF(data)
}

// ExtractPDF extracts the concatenated text of all pages. Any parse
// failure yields "" rather than an error: an unreadable document is the
// same terminal outcome as a missing text layer.
func ExtractPDF(data []byte) string {
	reader := bytes.NewReader(data)

	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return ""
	}

	var textBuilder strings.Builder
	numPages := pdfReader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages, keep the rest
			continue
		}

		text = strings.ReplaceAll(text, "\r\n", "\n")
		text = strings.ReplaceAll(text, "\r", "\n")

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	return strings.TrimSpace(textBuilder.String())
}
