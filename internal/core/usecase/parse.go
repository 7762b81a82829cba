package usecase

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

const citationSnippetRunes = 240

var inlineCitation = regexp.MustCompile(`\[([\w\s\-.\(\)]+),\s*Page\s*(\d+)\]`)

type modelAnswer struct {
	Answer    string          `json:"answer"`
	Citations []modelCitation `json:"citations"`
}

type modelCitation struct {
	Filename   string     `json:"filename"`
	PageNumber pageNumber `json:"page_number"`
	Text       string     `json:"text"`
}

// pageNumber accepts 3, "3" and "Page 3".
type pageNumber int

func (p *pageNumber) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*p = pageNumber(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "page"))
	n, err := strconv.Atoi(s)
	if err != nil {
		*p = 0
		return nil
	}
	*p = pageNumber(n)
	return nil
}

// parseAnswer turns raw model output into answer text and the citations that
// point at retrieved chunks. Structured JSON is preferred; otherwise the raw
// text is used and inline [file, Page N] markers become the citations.
func parseAnswer(raw string, retrieved []domain.RetrievedChunk) (string, []domain.Citation) {
	body := stripCodeFence(raw)

	var text string
	var candidates []domain.Citation
	var decoded modelAnswer
	if err := json.Unmarshal([]byte(extractJSONObject(body)), &decoded); err == nil && strings.TrimSpace(decoded.Answer) != "" {
		text = strings.TrimSpace(decoded.Answer)
		for _, c := range decoded.Citations {
			candidates = append(candidates, domain.Citation{
				Filename:   strings.TrimSpace(c.Filename),
				PageNumber: int(c.PageNumber),
				Text:       strings.TrimSpace(c.Text),
			})
		}
	} else {
		text = strings.TrimSpace(body)
	}
	candidates = append(candidates, inlineCitations(text)...)

	return text, validateCitations(candidates, retrieved)
}

func inlineCitations(text string) []domain.Citation {
	matches := inlineCitation.FindAllStringSubmatch(text, -1)
	out := make([]domain.Citation, 0, len(matches))
	for _, m := range matches {
		page, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		out = append(out, domain.Citation{Filename: strings.TrimSpace(m[1]), PageNumber: page})
	}
	return out
}

type citationKey struct {
	filename string
	page     int
}

// validateCitations keeps citations whose (filename, page) was retrieved,
// first occurrence wins. Missing quotes are filled from the chunk text.
func validateCitations(candidates []domain.Citation, retrieved []domain.RetrievedChunk) []domain.Citation {
	known := make(map[citationKey]domain.RetrievedChunk, len(retrieved))
	for _, chunk := range retrieved {
		key := citationKey{filename: strings.ToLower(chunk.Filename), page: chunk.PageNumber}
		if _, ok := known[key]; !ok {
			known[key] = chunk
		}
	}

	seen := make(map[citationKey]struct{}, len(candidates))
	out := make([]domain.Citation, 0, len(candidates))
	for _, c := range candidates {
		key := citationKey{filename: strings.ToLower(c.Filename), page: c.PageNumber}
		chunk, ok := known[key]
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		text := c.Text
		if text == "" {
			text = snippet(chunk.Text, citationSnippetRunes)
		}
		out = append(out, domain.Citation{Filename: chunk.Filename, PageNumber: chunk.PageNumber, Text: text})
	}
	return out
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}

func snippet(text string, limit int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= limit {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
