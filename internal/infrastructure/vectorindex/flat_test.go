package vectorindex

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

func TestFlatQueryEmptyIndex(t *testing.T) {
	idx := NewFlat(MetricL2)

	hits, err := idx.Query([]float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestFlatQueryOrdersByDistance(t *testing.T) {
	idx := NewFlat(MetricL2)
	require.NoError(t, idx.Insert([]float32{10, 0}, "far"))
	require.NoError(t, idx.Insert([]float32{1, 0}, "near"))
	require.NoError(t, idx.Insert([]float32{3, 0}, "mid"))

	hits, err := idx.Query([]float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].ChunkID)
	assert.Equal(t, "mid", hits[1].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Distance, 1e-9)
	assert.InDelta(t, 9.0, hits[1].Distance, 1e-9)
}

func TestFlatQueryTiesKeepInsertionOrder(t *testing.T) {
	idx := NewFlat(MetricL2)
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, idx.Insert([]float32{1, 1}, id))
	}

	hits, err := idx.Query([]float32{0, 0}, 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ChunkID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
}

func TestFlatQueryRespectsK(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	idx := NewFlat(MetricL2)
	for i := 0; i < 50; i++ {
		require.NoError(t, idx.Insert([]float32{rng.Float32(), rng.Float32(), rng.Float32()}, string(rune('A'+i%26))+string(rune('a'+i/26))))
	}

	for _, k := range []int{1, 3, 7, 50, 80} {
		hits, err := idx.Query([]float32{0.5, 0.5, 0.5}, k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(hits), k)
		for i := 1; i < len(hits); i++ {
			assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
		}
	}

	hits, err := idx.Query([]float32{0.5, 0.5, 0.5}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFlatInnerProduct(t *testing.T) {
	idx := NewFlat(MetricInnerProduct)
	require.NoError(t, idx.Insert([]float32{1, 0}, "x"))
	require.NoError(t, idx.Insert([]float32{0, 2}, "y"))

	hits, err := idx.Query([]float32{0, 1}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "y", hits[0].ChunkID)
	assert.InDelta(t, -2.0, hits[0].Distance, 1e-9)
	assert.InDelta(t, 2.0, MetricInnerProduct.Score(hits[0].Distance), 1e-9)
}

func TestFlatDimensionMismatch(t *testing.T) {
	idx := NewFlat(MetricL2)
	require.NoError(t, idx.Insert([]float32{1, 2, 3}, "a"))

	err := idx.Insert([]float32{1, 2}, "b")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))

	_, err = idx.Query([]float32{1}, 1)
	require.Error(t, err)
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 3, idx.Dimension())
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricL2, m)

	m, err = ParseMetric(" IP ")
	require.NoError(t, err)
	assert.Equal(t, MetricInnerProduct, m)

	_, err = ParseMetric("cosine")
	assert.Error(t, err)

	assert.InDelta(t, 0.5, MetricL2.Score(1), 1e-9)
}
