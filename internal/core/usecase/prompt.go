package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

const answerInstructions = `You are an assistant for renewable energy project documents (PPAs, permits, land leases, environmental assessments, financing terms).
Answer the question using only the sources below. If the sources do not contain the answer, say so directly.
Cite every fact with the filename and page number it came from.

Return strict JSON with keys:
answer (string), citations (array of objects with filename (string), page_number (integer), text (string: the short quote supporting the answer)).
No markdown, no extra keys.`

// buildAnswerPrompt renders the retrieved chunks in rank order as numbered
// source blocks. Blocks are appended while the context stays within
// maxContext runes; the first block is always present, truncated if needed.
func buildAnswerPrompt(question string, chunks []domain.RetrievedChunk, maxContext int) string {
	var sources strings.Builder
	used := 0
	for idx, chunk := range chunks {
		block := sourceBlock(idx+1, chunk.Filename, chunk.PageNumber, chunk.Text)
		size := len([]rune(block))
		if maxContext > 0 && used+size > maxContext {
			if idx > 0 {
				break
			}
			block = string([]rune(block)[:maxContext])
			size = maxContext
		}
		sources.WriteString(block)
		used += size
	}

	return fmt.Sprintf(`%s

Sources:
%s
Question:
%s
`, answerInstructions, sources.String(), question)
}

func sourceBlock(n int, filename string, page int, text string) string {
	return fmt.Sprintf("--- Source %d ---\nFilename: %s\nPage: %d\nContent: %s\n\n", n, filename, page, text)
}

func buildExampleQuestionsPrompt(filenames []string, count int) string {
	return fmt.Sprintf(`The user uploaded these renewable energy project documents:
%s

Suggest %d short, specific questions a due diligence analyst would ask about them.
Return one question per line, no numbering, no extra text.
`, "- "+strings.Join(filenames, "\n- "), count)
}
