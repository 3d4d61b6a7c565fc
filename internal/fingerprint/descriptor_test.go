package fingerprint

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidprint/internal/errs"
)

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func noiseFrame(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

func TestDescribe_FixedLength(t *testing.T) {
	e := NewExtractor(64)

	for name, img := range map[string]image.Image{
		"noise": noiseFrame(64, 64, 1),
		"tiny":  noiseFrame(3, 2, 2),
		"large": noiseFrame(320, 180, 3),
	} {
		desc, err := e.Describe(img)
		require.NoError(t, err, name)
		assert.Len(t, desc, DescriptorLen, name)
	}
}

func TestDescribe_Deterministic(t *testing.T) {
	e := NewExtractor(64)
	img := noiseFrame(120, 80, 42)

	a, err := e.Describe(img)
	require.NoError(t, err)
	b, err := e.Describe(img)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDescribe_ValuesNormalized(t *testing.T) {
	e := NewExtractor(64)
	desc, err := e.Describe(noiseFrame(64, 64, 7))
	require.NoError(t, err)

	for i, v := range desc {
		assert.GreaterOrEqual(t, v, 0.0, "dimension %d", i)
	}

	sum := func(v []float64) float64 {
		total := 0.0
		for _, x := range v {
			total += x
		}
		return total
	}
	assert.InDelta(t, 1.0, sum(desc[:hueBins]), 1e-9)
	assert.InDelta(t, 1.0, sum(desc[hueBins:hueBins+satBins]), 1e-9)
	assert.InDelta(t, 1.0, sum(desc[hueBins+satBins:hueBins+satBins+valBins]), 1e-9)
	assert.InDelta(t, 1.0, sum(desc[hueBins+satBins+valBins:hueBins+satBins+valBins+lbpBins]), 1e-9)
}

func TestDescribe_DegenerateFramesDoNotFail(t *testing.T) {
	e := NewExtractor(64)

	black, err := e.Describe(solidFrame(64, 64, color.RGBA{A: 255}))
	require.NoError(t, err)
	assert.Len(t, black, DescriptorLen)

	red, err := e.Describe(solidFrame(64, 64, color.RGBA{R: 200, A: 255}))
	require.NoError(t, err)
	assert.Len(t, red, DescriptorLen)

	// a solid frame has no edges at all
	assert.Zero(t, red[DescriptorLen-1])
}

func TestDescribe_RejectsUnusableInput(t *testing.T) {
	e := NewExtractor(64)

	_, err := e.Describe(nil)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindExtraction))

	_, err = e.Describe(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindExtraction))
}

func TestDescribe_DistinguishesContent(t *testing.T) {
	e := NewExtractor(64)

	red, err := e.Describe(solidFrame(64, 64, color.RGBA{R: 220, A: 255}))
	require.NoError(t, err)
	blue, err := e.Describe(solidFrame(64, 64, color.RGBA{B: 220, A: 255}))
	require.NoError(t, err)

	assert.NotEqual(t, red[:hueBins], blue[:hueBins])
}

func TestRGBToHSV(t *testing.T) {
	h, s, v := rgbToHSV(1, 0, 0)
	assert.InDelta(t, 0.0, h, 1e-9)
	assert.InDelta(t, 1.0, s, 1e-9)
	assert.InDelta(t, 1.0, v, 1e-9)

	h, s, v = rgbToHSV(0, 1, 0)
	assert.InDelta(t, 120.0, h, 1e-9)

	h, s, v = rgbToHSV(0, 0, 1)
	assert.InDelta(t, 240.0, h, 1e-9)

	h, s, v = rgbToHSV(0.5, 0.5, 0.5)
	assert.Zero(t, h)
	assert.Zero(t, s)
	assert.InDelta(t, 0.5, v, 1e-9)
}
