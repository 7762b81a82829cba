package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

const docxBodyPart = "word/document.xml"

type docxDocument struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
	Tabs []struct{} `xml:"tab"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

// extractDOCX reads paragraph text from the main document part. DOCX has
// no stable page boundaries, so the result is a single page.
func extractDOCX(data []byte) ([]domain.Page, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrParse, "extract docx", err)
	}

	raw, err := readZipPart(reader, docxBodyPart)
	if err != nil {
		return nil, domain.WrapError(domain.ErrParse, "extract docx", err)
	}

	var doc docxDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, domain.WrapError(domain.ErrParse, "extract docx", fmt.Errorf("decode %s: %w", docxBodyPart, err))
	}

	paragraphs := make([]string, 0, len(doc.Body.Paragraphs))
	for _, para := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, run := range para.Runs {
			if len(run.Tabs) > 0 {
				b.WriteString(" ")
			}
			for _, t := range run.Text {
				b.WriteString(t.Content)
			}
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	return singlePage(strings.Join(paragraphs, "\n\n")), nil
}

func readZipPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return content, nil
	}
	return nil, errors.New("missing " + name)
}
