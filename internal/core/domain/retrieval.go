package domain

// Chunk is a contiguous span of a document's joined page text.
// Start and End are rune offsets into that text.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	PageNumber int    `json:"page_number"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

type IndexHit struct {
	ChunkID  string
	Distance float64
}

type RetrievedChunk struct {
	Chunk
	Distance float64 `json:"distance"`
	Score    float64 `json:"score"`
}

type Citation struct {
	Filename   string `json:"filename"`
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

type Answer struct {
	QueryID     string           `json:"query_id"`
	Question    string           `json:"question"`
	Text        string           `json:"text"`
	Citations   []Citation       `json:"citations"`
	Context     []RetrievedChunk `json:"context"`
	NoDocuments bool             `json:"no_documents,omitempty"`
	Usage       *TokenUsage      `json:"usage,omitempty"`
}

type GenerationParams struct {
	Temperature     float32 `json:"temperature"`
	TopP            float32 `json:"top_p"`
	TopK            int32   `json:"top_k"`
	MaxOutputTokens int32   `json:"max_output_tokens"`
}

type TokenUsage struct {
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

type Generation struct {
	Text  string
	Usage TokenUsage
}
