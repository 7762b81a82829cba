package extractor

import (
	"context"
	"fmt"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

// Extractor selects one extraction strategy per declared format.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, format domain.Format, data []byte) ([]domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		pages []domain.Page
		err   error
	)
	switch format {
	case domain.FormatPDF:
		pages, err = extractPDF(data)
	case domain.FormatDOCX:
		pages, err = extractDOCX(data)
	case domain.FormatTXT:
		pages, err = extractPlainText(data)
	default:
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "extract", fmt.Errorf("format %q", format))
	}
	if err != nil {
		return nil, err
	}

	if len(pages) == 0 {
		return nil, domain.WrapError(domain.ErrEmptyDocument, "extract "+string(format), fmt.Errorf("no text found"))
	}
	return pages, nil
}

// singlePage wraps formats without page boundaries.
func singlePage(text string) []domain.Page {
	text = cleanText(text)
	if text == "" {
		return nil
	}
	return []domain.Page{{Number: 1, Text: text}}
}
