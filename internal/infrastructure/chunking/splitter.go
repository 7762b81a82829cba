package chunking

import (
	"unicode"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200

	pageSeparator = '\n'
)

// Splitter cuts joined page text into windows of at most ChunkSize runes.
// Consecutive windows share roughly Overlap runes.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

type pageSpan struct {
	number int
	start  int
}

// Split joins pages with a single newline and emits chunks whose Start/End
// are rune offsets into the joined text. Each chunk is attributed to the
// page containing its midpoint.
func (s *Splitter) Split(pages []domain.Page) []domain.Chunk {
	runes, spans := joinPages(pages)
	n := len(runes)
	if n == 0 {
		return nil
	}

	out := make([]domain.Chunk, 0, n/max(s.ChunkSize-s.Overlap, 1)+1)
	start := 0
	for {
		end := n
		if n-start > s.ChunkSize {
			minCut := start + max(s.Overlap+1, s.ChunkSize/2)
			end = findCut(runes, minCut, start+s.ChunkSize)
		}

		out = append(out, domain.Chunk{
			Index:      len(out),
			Text:       string(runes[start:end]),
			Start:      start,
			End:        end,
			PageNumber: pageAt(spans, (start+end)/2),
		})
		if end >= n {
			return out
		}
		start = nextStart(runes, end-s.Overlap, end)
	}
}

func joinPages(pages []domain.Page) ([]rune, []pageSpan) {
	var runes []rune
	spans := make([]pageSpan, 0, len(pages))
	for _, page := range pages {
		text := []rune(page.Text)
		if len(text) == 0 {
			continue
		}
		if len(runes) > 0 {
			runes = append(runes, pageSeparator)
		}
		spans = append(spans, pageSpan{number: page.Number, start: len(runes)})
		runes = append(runes, text...)
	}
	return runes, spans
}

// findCut returns the best cut in [lo, hi]: before a paragraph break, after
// sentence punctuation, before whitespace, or a hard cut at hi.
func findCut(runes []rune, lo, hi int) int {
	n := len(runes)
	if hi > n {
		hi = n
	}
	if lo > hi {
		lo = hi
	}

	for c := hi; c >= lo; c-- {
		if c+1 < n && runes[c] == '\n' && runes[c+1] == '\n' {
			return c
		}
	}
	for c := hi; c >= lo; c-- {
		if c > 0 && c < n && isSentenceEnd(runes[c-1]) && unicode.IsSpace(runes[c]) {
			return c
		}
	}
	for c := hi; c >= lo; c-- {
		if c < n && unicode.IsSpace(runes[c]) {
			return c
		}
	}
	return hi
}

// nextStart moves from the raw overlap point forward to the next word start,
// never past the previous chunk end.
func nextStart(runes []rune, from, limit int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < limit; i++ {
		if isWordStart(runes, i) {
			return i
		}
	}
	return from
}

func isWordStart(runes []rune, i int) bool {
	if unicode.IsSpace(runes[i]) {
		return false
	}
	return i == 0 || unicode.IsSpace(runes[i-1])
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// pageAt returns the last page starting at or before pos. A chunk spanning a
// page break is attributed by its midpoint only.
func pageAt(spans []pageSpan, pos int) int {
	page := 0
	for _, span := range spans {
		if span.start > pos {
			break
		}
		page = span.number
	}
	if page == 0 && len(spans) > 0 {
		page = spans[0].number
	}
	return page
}
