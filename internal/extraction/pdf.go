package extraction

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// FromPDF returns the plain text of every page in page order, one page per
// newline-separated segment. Pages without text contribute an empty segment.
func FromPDF(data []byte) (string, error) {
	pages, err := readPDFPages(data)
	if err != nil {
		return "", err
	}
	return joinPages(pages), nil
}

func joinPages(pages []string) string {
	return strings.Join(pages, "\n")
}

// readPDFPages extracts the text of each page. The pdf library panics on some
// malformed inputs, so panics are converted into parse errors.
func readPDFPages(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &DocumentParseError{Format: FormatPDF, Cause: fmt.Errorf("malformed PDF: %v", r)}
		}
	}()

	if len(data) == 0 {
		return nil, &DocumentParseError{Format: FormatPDF, Cause: fmt.Errorf("empty file")}
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &DocumentParseError{Format: FormatPDF, Cause: err}
	}

	numPages := reader.NumPage()
	pages = make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, &DocumentParseError{Format: FormatPDF, Cause: fmt.Errorf("page %d: %w", i, err)}
		}
		// The reader opens every text object with a newline
		pages = append(pages, strings.Trim(text, "\n"))
	}

	return pages, nil
}
