package vectorindex

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"vidprint/internal/errs"
)

// Memory is an in-process Index. It backs tests and small local runs that
// have no Postgres available.
type Memory struct {
	mu     sync.RWMutex
	dim    int
	metric Metric
	nextID int64
	rows   []memoryRow
}

type memoryRow struct {
	meta VideoMeta
	fp   []float32
}

func NewMemory(dim int, metric Metric) *Memory {
	return &Memory{dim: dim, metric: metric, nextID: 1}
}

func (m *Memory) prepare(fingerprint []float32) ([]float32, error) {
	if len(fingerprint) != m.dim {
		return nil, errs.New(errs.KindIndex, fmt.Sprintf("fingerprint has %d dims, index expects %d", len(fingerprint), m.dim))
	}
	if m.metric == MetricCosine {
		return Normalize(fingerprint), nil
	}
	out := make([]float32, len(fingerprint))
	copy(out, fingerprint)
	return out, nil
}

func (m *Memory) Insert(_ context.Context, meta VideoMeta, fingerprint []float32) (int64, error) {
	fp, err := m.prepare(fingerprint)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].meta.Source == meta.Source {
			id, created := m.rows[i].meta.ID, m.rows[i].meta.CreatedAt
			meta.ID, meta.CreatedAt = id, created
			m.rows[i] = memoryRow{meta: meta, fp: fp}
			return id, nil
		}
	}
	meta.ID = m.nextID
	m.nextID++
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}
	m.rows = append(m.rows, memoryRow{meta: meta, fp: fp})
	return meta.ID, nil
}

func (m *Memory) Search(_ context.Context, fingerprint []float32, topK int) ([]Match, error) {
	fp, err := m.prepare(fingerprint)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.rows))
	for _, row := range m.rows {
		d := m.metric.Distance(fp, row.fp)
		matches = append(matches, Match{
			Video:      row.meta,
			Distance:   d,
			Similarity: m.metric.Similarity(d),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Video.ID < matches[j].Video.ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Neighbors returns the topK closest videos to an already indexed one,
// excluding the video itself.
func (m *Memory) Neighbors(_ context.Context, id int64, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var query []float32
	for _, row := range m.rows {
		if row.meta.ID == id {
			query = row.fp
			break
		}
	}
	if query == nil {
		return nil, errs.New(errs.KindIndex, fmt.Sprintf("video %d not indexed", id))
	}

	matches := make([]Match, 0, len(m.rows))
	for _, row := range m.rows {
		if row.meta.ID == id {
			continue
		}
		d := m.metric.Distance(query, row.fp)
		matches = append(matches, Match{
			Video:      row.meta,
			Distance:   d,
			Similarity: m.metric.Similarity(d),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Video.ID < matches[j].Video.ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *Memory) Get(_ context.Context, id int64) (*VideoMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, row := range m.rows {
		if row.meta.ID == id {
			meta := row.meta
			return &meta, nil
		}
	}
	return nil, nil
}

func (m *Memory) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.meta.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.rows)), nil
}

func (m *Memory) Close() {}
