package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) EnsureSchema(ctx context.Context) error {
	return EnsureSchema(ctx, r.db)
}

func (r *HistoryRepository) SaveDocument(ctx context.Context, info domain.DocumentInfo) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, session_id, filename, format, mime_type, page_count, chunk_count, char_count, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO NOTHING
`,
		info.ID, info.SessionID, info.Filename, string(info.Format), info.MimeType,
		info.PageCount, info.ChunkCount, info.CharCount, info.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *HistoryRepository) DeleteDocument(ctx context.Context, sessionID, documentID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE session_id = $1 AND id = $2`, sessionID, documentID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "delete document", fmt.Errorf("document id=%s", documentID))
	}
	return nil
}

func (r *HistoryRepository) DeleteSessionDocuments(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete session documents: %w", err)
	}
	return nil
}

func (r *HistoryRepository) ListDocuments(ctx context.Context, sessionID string) ([]domain.DocumentInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, filename, format, mime_type, page_count, chunk_count, char_count, created_at
FROM documents
WHERE session_id = $1
ORDER BY created_at ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentInfo, 0)
	for rows.Next() {
		var info domain.DocumentInfo
		var format string
		if err := rows.Scan(
			&info.ID, &info.SessionID, &info.Filename, &format, &info.MimeType,
			&info.PageCount, &info.ChunkCount, &info.CharCount, &info.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		info.Format = domain.Format(format)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// LogQuery is idempotent on the log id so redelivered messages are harmless.
func (r *HistoryRepository) LogQuery(ctx context.Context, entry domain.QueryLog) error {
	if !entry.Status.Valid() {
		return domain.WrapError(domain.ErrInvalidInput, "log query", fmt.Errorf("unknown status %q", entry.Status))
	}
	citations := entry.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	citationsJSON, err := json.Marshal(citations)
	if err != nil {
		return fmt.Errorf("marshal citations: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO query_logs (
	id, session_id, question, answer, citations, status, error_message, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO NOTHING
`,
		entry.ID, entry.SessionID, entry.Question, entry.Answer, citationsJSON,
		string(entry.Status), entry.Error, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert query log: %w", err)
	}
	return nil
}

func (r *HistoryRepository) SaveFeedback(ctx context.Context, fb domain.Feedback) error {
	if fb.Rating < domain.MinFeedbackRating || fb.Rating > domain.MaxFeedbackRating {
		return domain.WrapError(domain.ErrInvalidInput, "save feedback", fmt.Errorf("rating %d out of range", fb.Rating))
	}

	result, err := r.db.ExecContext(ctx, `
INSERT INTO feedback (id, query_id, rating, comment, created_at)
SELECT $1, $2, $3, $4, $5
WHERE EXISTS (SELECT 1 FROM query_logs WHERE id = $2)
`, fb.ID, fb.QueryID, fb.Rating, fb.Comment, fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert feedback rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "save feedback", fmt.Errorf("query id=%s", fb.QueryID))
	}
	return nil
}

func (r *HistoryRepository) RecentQueries(ctx context.Context, sessionID string, limit int) ([]domain.QueryLog, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, question, answer, citations, status, error_message, created_at
FROM query_logs
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT $2
`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list query logs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.QueryLog, 0, limit)
	for rows.Next() {
		var entry domain.QueryLog
		var citationsRaw []byte
		var status string
		if err := rows.Scan(
			&entry.ID, &entry.SessionID, &entry.Question, &entry.Answer, &citationsRaw,
			&status, &entry.Error, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan query log: %w", err)
		}
		if err := json.Unmarshal(citationsRaw, &entry.Citations); err != nil {
			return nil, fmt.Errorf("unmarshal citations: %w", err)
		}
		entry.Status = domain.QueryStatus(status)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query logs: %w", err)
	}
	return out, nil
}
