package domain

import "time"

type QueryStatus string

const (
	QueryAnswered    QueryStatus = "answered"
	QueryNoDocuments QueryStatus = "no_documents"
	QueryFailed      QueryStatus = "failed"
)

func (s QueryStatus) Valid() bool {
	switch s {
	case QueryAnswered, QueryNoDocuments, QueryFailed:
		return true
	}
	return false
}

type QueryLog struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Question  string      `json:"question"`
	Answer    string      `json:"answer"`
	Citations []Citation  `json:"citations"`
	Status    QueryStatus `json:"status"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

const (
	MinFeedbackRating = 1
	MaxFeedbackRating = 5
)

type Feedback struct {
	ID        string    `json:"id"`
	QueryID   string    `json:"query_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
