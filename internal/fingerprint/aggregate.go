package fingerprint

import (
	"fmt"
	"math"
	"math/rand"

	"vidprint/internal/errs"
)

// ProjectionVersion identifies the fixed projection matrix baked into this
// build. Fingerprints computed under different versions are not comparable;
// bump this whenever projectionSeed or the descriptor layout changes.
const ProjectionVersion = "rp-v1"

const projectionSeed int64 = 0x76696470

// Projection is a fixed linear map from the mean+std statistics vector down
// to the configured fingerprint dimension. The matrix is a seeded Gaussian
// random projection generated once and identical across runs and processes,
// so all fingerprints remain comparable under the same metric.
type Projection struct {
	inDim  int
	outDim int
	m      []float64
}

// NewProjection builds the projection for the given input and output
// dimensions. The same (inDim, outDim) pair always yields the same matrix.
func NewProjection(inDim, outDim int) *Projection {
	rng := rand.New(rand.NewSource(projectionSeed))
	scale := 1 / math.Sqrt(float64(outDim))
	m := make([]float64, inDim*outDim)
	for i := range m {
		m[i] = rng.NormFloat64() * scale
	}
	return &Projection{inDim: inDim, outDim: outDim, m: m}
}

// OutDim returns the fingerprint dimension this projection emits.
func (p *Projection) OutDim() int { return p.outDim }

func (p *Projection) apply(v []float64) []float32 {
	out := make([]float32, p.outDim)
	for i, x := range v {
		if x == 0 {
			continue
		}
		row := p.m[i*p.outDim : (i+1)*p.outDim]
		for j, w := range row {
			out[j] += float32(x * w)
		}
	}
	return out
}

// Aggregate reduces an ordered sequence of frame descriptors into one
// fixed-dimension fingerprint: per-dimension mean and standard deviation
// across frames, concatenated and passed through the fixed projection. A
// single-frame sequence is valid; its deviation half is all zeros. The raw
// projected vector is returned; any L2 normalization before distance
// comparison is the index's concern.
func Aggregate(descs []Descriptor, p *Projection) ([]float32, error) {
	if len(descs) == 0 {
		return nil, errs.New(errs.KindExtraction, "no frame descriptors to aggregate")
	}
	for i, d := range descs {
		if len(d) != DescriptorLen {
			return nil, errs.New(errs.KindExtraction,
				fmt.Sprintf("descriptor length mismatch at frame %d", i))
		}
	}
	if p.inDim != 2*DescriptorLen {
		return nil, errs.New(errs.KindExtraction, "projection input dimension mismatch")
	}

	n := float64(len(descs))
	stats := make([]float64, 2*DescriptorLen)
	mean := stats[:DescriptorLen]
	std := stats[DescriptorLen:]

	for _, d := range descs {
		for i, x := range d {
			mean[i] += x
		}
	}
	for i := range mean {
		mean[i] /= n
	}
	for _, d := range descs {
		for i, x := range d {
			delta := x - mean[i]
			std[i] += delta * delta
		}
	}
	for i := range std {
		std[i] = math.Sqrt(std[i] / n)
	}

	return p.apply(stats), nil
}
