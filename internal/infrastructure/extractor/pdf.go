package extractor

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

// extractPDF returns one page per PDF page that has text. Blank pages are
// skipped but the remaining pages keep their original 1-based numbers.
func extractPDF(data []byte) (pages []domain.Page, err error) {
	// The decoder panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = domain.WrapError(domain.ErrParse, "extract pdf", fmt.Errorf("decoder panic: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrParse, "extract pdf", err)
	}

	total := reader.NumPage()
	pages = make([]domain.Page, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		raw, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, domain.WrapError(domain.ErrParse, fmt.Sprintf("extract pdf page %d", i), err)
		}

		text := cleanText(raw)
		if text == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}
	return pages, nil
}
