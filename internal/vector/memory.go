package vector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/MikePfunk28/intelhub/internal/models"
)

// MemoryIndex is a brute-force in-memory index. Vectors are normalized on
// insert so inner product equals cosine similarity. Suitable for the
// collection sizes this service handles; rebuilt from SQLite at startup.
type MemoryIndex struct {
	dimensions int
	keys       []models.RecordKey
	vectors    [][]float32
	pos        map[models.RecordKey]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an index for vectors of the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		pos:        make(map[models.RecordKey]int),
	}, nil
}

// Upsert replaces the vector stored for key, or appends it if absent.
func (m *MemoryIndex) Upsert(key models.RecordKey, vec []float32) error {
	if len(vec) != m.dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), m.dimensions)
	}
	normalized := Normalize(vec)

	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.pos[key]; ok {
		m.vectors[i] = normalized
		return nil
	}
	m.pos[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vectors = append(m.vectors, normalized)
	return nil
}

// Remove drops the given keys from the index.
func (m *MemoryIndex) Remove(keys ...models.RecordKey) {
	removeSet := make(map[models.RecordKey]bool, len(keys))
	for _, k := range keys {
		removeSet[k] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	newKeys := make([]models.RecordKey, 0, len(m.keys))
	newVectors := make([][]float32, 0, len(m.vectors))
	for i, k := range m.keys {
		if !removeSet[k] {
			newKeys = append(newKeys, k)
			newVectors = append(newVectors, m.vectors[i])
		}
	}
	m.keys = newKeys
	m.vectors = newVectors
	m.pos = make(map[models.RecordKey]int, len(m.keys))
	for i, k := range m.keys {
		m.pos[k] = i
	}
}

// Search returns the top-k entries by cosine similarity against query,
// restricted to the given content types (nil or empty means all). The query
// is normalized before scoring.
func (m *MemoryIndex) Search(query []float32, k int, types map[models.ContentType]bool) ([]*Result, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	q := Normalize(query)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.keys) == 0 {
		return nil, nil
	}
	scores := make([]*Result, 0, len(m.keys))
	for i, key := range m.keys {
		if len(types) > 0 && !types[key.ContentType] {
			continue
		}
		scores = append(scores, &Result{Key: key, Score: InnerProduct(q, m.vectors[i])})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if k < len(scores) {
		scores = scores[:k]
	}
	return scores, nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}
