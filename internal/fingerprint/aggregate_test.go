package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantDescriptor(v float64) Descriptor {
	d := make(Descriptor, DescriptorLen)
	for i := range d {
		d[i] = v
	}
	return d
}

func TestAggregate_FixedDimension(t *testing.T) {
	p := NewProjection(2*DescriptorLen, 512)

	one, err := Aggregate([]Descriptor{constantDescriptor(0.1)}, p)
	require.NoError(t, err)
	assert.Len(t, one, 512)

	many := make([]Descriptor, 40)
	for i := range many {
		many[i] = constantDescriptor(float64(i) / 40)
	}
	fp, err := Aggregate(many, p)
	require.NoError(t, err)
	assert.Len(t, fp, 512)
}

func TestAggregate_Deterministic(t *testing.T) {
	p := NewProjection(2*DescriptorLen, 128)
	descs := []Descriptor{constantDescriptor(0.2), constantDescriptor(0.8)}

	a, err := Aggregate(descs, p)
	require.NoError(t, err)
	b, err := Aggregate(descs, p)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// a freshly built projection must produce the identical matrix
	c, err := Aggregate(descs, NewProjection(2*DescriptorLen, 128))
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestAggregate_SingleFrameHasZeroDeviation(t *testing.T) {
	// With one frame the std half of the statistics vector is all zeros, so
	// an identical two-frame sequence must aggregate to the same fingerprint.
	p := NewProjection(2*DescriptorLen, 64)
	d := constantDescriptor(0.3)

	single, err := Aggregate([]Descriptor{d}, p)
	require.NoError(t, err)
	repeated, err := Aggregate([]Descriptor{d, d, d}, p)
	require.NoError(t, err)
	assert.InDeltaSlice(t, float32sTo64(single), float32sTo64(repeated), 1e-6)
}

func TestAggregate_Errors(t *testing.T) {
	p := NewProjection(2*DescriptorLen, 64)

	_, err := Aggregate(nil, p)
	require.Error(t, err)

	_, err = Aggregate([]Descriptor{make(Descriptor, 3)}, p)
	require.Error(t, err)

	wrong := NewProjection(10, 64)
	_, err = Aggregate([]Descriptor{constantDescriptor(1)}, wrong)
	require.Error(t, err)
}

func TestAggregate_FrameCountIndependence(t *testing.T) {
	// Mean/std statistics do not scale with the number of frames: repeating
	// the same two-frame pattern must not move the fingerprint.
	p := NewProjection(2*DescriptorLen, 64)
	a := constantDescriptor(0.1)
	b := constantDescriptor(0.9)

	short, err := Aggregate([]Descriptor{a, b}, p)
	require.NoError(t, err)
	long, err := Aggregate([]Descriptor{a, b, a, b, a, b, a, b}, p)
	require.NoError(t, err)
	assert.InDeltaSlice(t, float32sTo64(short), float32sTo64(long), 1e-5)
}

func float32sTo64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
