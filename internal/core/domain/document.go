package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Format is the closed set of document formats the assistant can ingest.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

var supportedFormats = []Format{FormatPDF, FormatDOCX, FormatTXT}

func SupportedFormats() []Format {
	out := make([]Format, len(supportedFormats))
	copy(out, supportedFormats)
	return out
}

// FormatFromFilename resolves the declared format from the file extension.
func FormatFromFilename(filename string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(filename)), "."))
	for _, f := range supportedFormats {
		if string(f) == ext {
			return f, nil
		}
	}
	if ext == "" {
		return "", WrapError(ErrUnsupportedFormat, "detect format", fmt.Errorf("%q has no extension; supported: pdf, docx, txt", filename))
	}
	return "", WrapError(ErrUnsupportedFormat, "detect format", fmt.Errorf(".%s files are not supported; supported: pdf, docx, txt", ext))
}

func (f Format) MimeType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatTXT:
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// Page is the cleaned text of one source page. Numbers start at 1.
type Page struct {
	Number int    `json:"page_number"`
	Text   string `json:"text"`
}

type DocumentInfo struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Filename   string    `json:"filename"`
	Format     Format    `json:"format"`
	MimeType   string    `json:"mime_type"`
	PageCount  int       `json:"page_count"`
	ChunkCount int       `json:"chunk_count"`
	CharCount  int       `json:"char_count"`
	CreatedAt  time.Time `json:"created_at"`
}
