package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

func TestRecentQueriesNewestFirstPerSession(t *testing.T) {
	repo := NewHistoryRepository(0)
	ctx := context.Background()

	require.NoError(t, repo.LogQuery(ctx, domain.QueryLog{ID: "a", SessionID: "s1"}))
	require.NoError(t, repo.LogQuery(ctx, domain.QueryLog{ID: "b", SessionID: "s2"}))
	require.NoError(t, repo.LogQuery(ctx, domain.QueryLog{ID: "c", SessionID: "s1"}))
	require.NoError(t, repo.LogQuery(ctx, domain.QueryLog{ID: "c", SessionID: "s1"}))

	logs, err := repo.RecentQueries(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "c", logs[0].ID)
	assert.Equal(t, "a", logs[1].ID)

	logs, err = repo.RecentQueries(ctx, "s1", 1)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestLogQueryDropsOldestBeyondCapacity(t *testing.T) {
	repo := NewHistoryRepository(3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.LogQuery(ctx, domain.QueryLog{ID: fmt.Sprintf("q%d", i), SessionID: "s"}))
	}

	logs, err := repo.RecentQueries(ctx, "s", 10)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "q4", logs[0].ID)
	assert.Equal(t, "q2", logs[2].ID)

	err = repo.SaveFeedback(ctx, domain.Feedback{ID: "f", QueryID: "q0", Rating: 3})
	assert.True(t, domain.IsKind(err, domain.ErrNotFound))
}

func TestSaveFeedback(t *testing.T) {
	repo := NewHistoryRepository(0)
	ctx := context.Background()
	require.NoError(t, repo.LogQuery(ctx, domain.QueryLog{ID: "q1", SessionID: "s"}))

	require.NoError(t, repo.SaveFeedback(ctx, domain.Feedback{ID: "f1", QueryID: "q1", Rating: 5}))
	assert.Len(t, repo.Feedback("q1"), 1)

	err := repo.SaveFeedback(ctx, domain.Feedback{ID: "f2", QueryID: "q1", Rating: 0})
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))

	err = repo.SaveFeedback(ctx, domain.Feedback{ID: "f3", QueryID: "nope", Rating: 2})
	assert.True(t, domain.IsKind(err, domain.ErrNotFound))
}

func TestDocumentsAreScopedBySession(t *testing.T) {
	repo := NewHistoryRepository(0)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveDocument(ctx, domain.DocumentInfo{ID: "d2", SessionID: "s1", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, repo.SaveDocument(ctx, domain.DocumentInfo{ID: "d1", SessionID: "s1", CreatedAt: base}))
	require.NoError(t, repo.SaveDocument(ctx, domain.DocumentInfo{ID: "d3", SessionID: "s2", CreatedAt: base}))

	docs, err := repo.ListDocuments(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "d1", docs[0].ID)

	err = repo.DeleteDocument(ctx, "s2", "d1")
	assert.True(t, domain.IsKind(err, domain.ErrNotFound))

	require.NoError(t, repo.DeleteDocument(ctx, "s1", "d1"))
	require.NoError(t, repo.DeleteSessionDocuments(ctx, "s1"))
	docs, err = repo.ListDocuments(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = repo.ListDocuments(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
