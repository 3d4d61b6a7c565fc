// Package vectorindex stores video fingerprints and answers top-k
// nearest-neighbor queries over them.
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"time"
)

// VideoMeta identifies one indexed video and carries the metadata used for
// reporting and representative selection.
type VideoMeta struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	Title      string    `json:"title,omitempty"`
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	Duration   float64   `json:"duration,omitempty"`
	FrameCount int       `json:"frame_count,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// Match is one search hit with its score mapped into [0,1] similarity.
type Match struct {
	Video      VideoMeta `json:"video"`
	Similarity float64   `json:"similarity"`
	Distance   float64   `json:"distance"`
}

// Index is the narrow contract the pipeline holds against any vector store.
// Implementations must support concurrent Insert and Search, and Insert must
// be idempotent per source: re-inserting the same source updates the
// existing record instead of duplicating it.
type Index interface {
	Insert(ctx context.Context, meta VideoMeta, fingerprint []float32) (int64, error)
	Search(ctx context.Context, fingerprint []float32, topK int) ([]Match, error)
	Neighbors(ctx context.Context, id int64, topK int) ([]Match, error)
	Get(ctx context.Context, id int64) (*VideoMeta, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
	Close()
}

// Metric is the distance metric fingerprints are compared under.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

func ParseMetric(name string) (Metric, error) {
	switch Metric(name) {
	case MetricCosine, MetricL2:
		return Metric(name), nil
	}
	return "", fmt.Errorf("unsupported metric %q", name)
}

// Similarity maps a raw distance into [0,1]. Cosine distance maps linearly;
// L2 uses the 1/(1+d) squash so unbounded distances stay in range.
func (m Metric) Similarity(distance float64) float64 {
	switch m {
	case MetricL2:
		return 1.0 / (1.0 + distance)
	default:
		s := 1.0 - distance
		if s < 0 {
			return 0
		}
		if s > 1 {
			return 1
		}
		return s
	}
}

// Distance computes the raw metric distance between two equal-length
// vectors. Cosine inputs must already be L2-normalized.
func (m Metric) Distance(a, b []float32) float64 {
	switch m {
	case MetricL2:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	default:
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		return 1.0 - dot
	}
}

// Normalize returns the L2-normalized copy of v. The zero vector is returned
// unchanged. Fingerprints are normalized by this layer before cosine
// comparison; the aggregator emits raw projected vectors.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
