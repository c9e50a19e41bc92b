package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

type entry struct {
	vector   []float32
	metadata map[string]string
}

// Memory is a brute-force cosine index kept in process.
type Memory struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry)}
}

func (m *Memory) Upsert(_ context.Context, id string, vector []float32, meta map[string]string) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty vector for %s", id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		m.order = append(m.order, id)
	}
	cp := make(map[string]string, len(meta))
	for k, v := range meta {
		cp[k] = v
	}
	m.entries[id] = entry{vector: append([]float32(nil), vector...), metadata: cp}
	return nil
}

func (m *Memory) SearchByVector(_ context.Context, vector []float32, k int) ([]schema.VectorMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]schema.VectorMatch, 0, len(m.order))
	for _, id := range m.order {
		e := m.entries[id]
		if len(e.vector) != len(vector) {
			continue
		}
		out = append(out, schema.VectorMatch{ID: id, Score: Cosine(vector, e.vector), Metadata: e.metadata})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Len reports the number of indexed vectors.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
