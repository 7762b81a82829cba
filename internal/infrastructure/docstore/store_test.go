package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

func TestStorePutGet(t *testing.T) {
	s := New()

	id := s.Put(domain.Chunk{DocumentID: "doc-1", Filename: "ppa.pdf", PageNumber: 3, Text: "Tariff escalates 2% per year."})
	require.NotEmpty(t, id)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "ppa.pdf", got.Filename)
	assert.Equal(t, 3, got.PageNumber)
	assert.Equal(t, 1, s.Len())
}

func TestStoreGeneratesDistinctIDs(t *testing.T) {
	s := New()
	a := s.Put(domain.Chunk{Text: "same"})
	b := s.Put(domain.Chunk{Text: "same"})
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, s.Len())
}

func TestStoreGetMissing(t *testing.T) {
	_, err := New().Get("missing")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrNotFound))
}
