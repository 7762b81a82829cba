package vectorindex

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

type Metric string

const (
	MetricL2           Metric = "l2"
	MetricInnerProduct Metric = "ip"
)

func ParseMetric(raw string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(raw))) {
	case "", MetricL2:
		return MetricL2, nil
	case MetricInnerProduct:
		return MetricInnerProduct, nil
	default:
		return "", fmt.Errorf("unknown index metric %q (want l2 or ip)", raw)
	}
}

// Score converts a distance into a display score where larger is better.
func (m Metric) Score(distance float64) float64 {
	if m == MetricInnerProduct {
		return -distance
	}
	return 1 / (1 + distance)
}

// Flat is an exact brute-force index. Entries are append-only; a changed
// document set is handled by building a new index.
type Flat struct {
	metric Metric

	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	ids       []string
}

func NewFlat(metric Metric) *Flat {
	if metric == "" {
		metric = MetricL2
	}
	return &Flat{metric: metric}
}

func (f *Flat) Metric() Metric {
	return f.metric
}

func (f *Flat) Dimension() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dimension
}

func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Insert adds one entry. The first insert fixes the index dimension.
func (f *Flat) Insert(vector []float32, chunkID string) error {
	if len(vector) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "index insert", fmt.Errorf("empty vector for chunk %s", chunkID))
	}
	if chunkID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "index insert", fmt.Errorf("chunk id is required"))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dimension == 0 {
		f.dimension = len(vector)
	}
	if len(vector) != f.dimension {
		return domain.WrapError(domain.ErrInvalidInput, "index insert", fmt.Errorf("dimension %d, index has %d", len(vector), f.dimension))
	}

	f.vectors = append(f.vectors, slices.Clone(vector))
	f.ids = append(f.ids, chunkID)
	return nil
}

// Query returns at most k hits in ascending distance order. Equal distances
// keep insertion order. An empty index yields an empty result.
func (f *Flat) Query(vector []float32, k int) ([]domain.IndexHit, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if k <= 0 || len(f.ids) == 0 {
		return []domain.IndexHit{}, nil
	}
	if len(vector) != f.dimension {
		return nil, domain.WrapError(domain.ErrInvalidInput, "index query", fmt.Errorf("dimension %d, index has %d", len(vector), f.dimension))
	}

	hits := make([]domain.IndexHit, len(f.ids))
	for i, stored := range f.vectors {
		hits[i] = domain.IndexHit{ChunkID: f.ids[i], Distance: f.distance(stored, vector)}
	}
	slices.SortStableFunc(hits, func(a, b domain.IndexHit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *Flat) distance(a, b []float32) float64 {
	var sum float64
	if f.metric == MetricInnerProduct {
		for i := range a {
			sum += float64(a[i]) * float64(b[i])
		}
		return -sum
	}
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
