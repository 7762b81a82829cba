package extractor

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func extractPlainText(data []byte) ([]domain.Page, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, domain.WrapError(domain.ErrParse, "extract txt", errors.New("content is not valid UTF-8"))
	}
	return singlePage(string(data)), nil
}
