package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleIndices_IntervalWalk(t *testing.T) {
	got := SampleIndices(100, 15, 5, 100)
	assert.Equal(t, []int{0, 15, 30, 45, 60, 75, 90}, got)
}

func TestSampleIndices_TooFewRecomputesInterval(t *testing.T) {
	// 40 frames at interval 15 would yield only 3 samples; the sampler must
	// spread exactly minFrames indices instead.
	got := SampleIndices(40, 15, 5, 100)
	require.Len(t, got, 5)
	assert.Equal(t, 0, got[0])
	assert.Equal(t, 39, got[len(got)-1])
	assertStrictlyIncreasing(t, got)
}

func TestSampleIndices_TooManyRecomputesInterval(t *testing.T) {
	got := SampleIndices(10000, 1, 5, 100)
	require.Len(t, got, 100)
	assert.Equal(t, 0, got[0])
	assert.Equal(t, 9999, got[len(got)-1])
	assertStrictlyIncreasing(t, got)
}

func TestSampleIndices_ShortVideoDegradesGracefully(t *testing.T) {
	got := SampleIndices(3, 15, 5, 100)
	assert.Equal(t, []int{0, 1, 2}, got)

	got = SampleIndices(1, 15, 5, 100)
	assert.Equal(t, []int{0}, got)
}

func TestSampleIndices_EmptyVideo(t *testing.T) {
	assert.Empty(t, SampleIndices(0, 15, 5, 100))
	assert.Empty(t, SampleIndices(-7, 15, 5, 100))
}

func TestSampleIndices_Bounds(t *testing.T) {
	const minFrames, maxFrames = 5, 100
	for _, total := range []int{1, 2, 4, 5, 6, 74, 75, 76, 1499, 1500, 1501, 50000} {
		got := SampleIndices(total, 15, minFrames, maxFrames)
		lower := minFrames
		if total < minFrames {
			lower = total
		}
		assert.GreaterOrEqual(t, len(got), lower, "total=%d", total)
		assert.LessOrEqual(t, len(got), maxFrames, "total=%d", total)
		assertStrictlyIncreasing(t, got)
		assert.Less(t, got[len(got)-1], total, "total=%d", total)
	}
}

func assertStrictlyIncreasing(t *testing.T, indices []int) {
	t.Helper()
	for i := 1; i < len(indices); i++ {
		require.Greater(t, indices[i], indices[i-1])
	}
}
