package fingerprint

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"vidprint/internal/errs"
)

// Sub-vector layout of a frame descriptor, concatenated in this order.
const (
	hueBins         = 50
	satBins         = 60
	valBins         = 60
	lbpBins         = 256
	orientationBins = 36
	edgeScalars     = 1

	// DescriptorLen is the fixed length of every frame descriptor,
	// independent of frame content.
	DescriptorLen = hueBins + satBins + valBins + lbpBins + orientationBins + edgeScalars
)

// Sobel magnitudes above this count as edge pixels (gray values are 0..255).
const edgeMagnitudeThreshold = 100.0

// Descriptor is the per-frame feature vector: HSV color histograms, a local
// binary pattern histogram, and edge orientation/density statistics. All
// histogram mass is normalized per sub-vector.
type Descriptor []float64

// Extractor computes frame descriptors at a fixed working resolution.
type Extractor struct {
	imageSize int
}

func NewExtractor(imageSize int) *Extractor {
	if imageSize < 1 {
		imageSize = 224
	}
	return &Extractor{imageSize: imageSize}
}

// Describe resizes one decoded frame to the working resolution and computes
// its descriptor. Degenerate frames (solid color, all black) produce valid
// degenerate histograms; only an unreadable or empty image is an error.
func (e *Extractor) Describe(img image.Image) (Descriptor, error) {
	if img == nil {
		return nil, errs.New(errs.KindExtraction, "nil frame")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errs.New(errs.KindExtraction, "empty frame")
	}

	frame := e.resize(img)
	gray := grayPlane(frame)

	desc := make(Descriptor, 0, DescriptorLen)
	desc = append(desc, colorHistogram(frame)...)
	desc = append(desc, lbpHistogram(gray)...)
	desc = append(desc, edgeFeatures(gray)...)
	return desc, nil
}

func (e *Extractor) resize(img image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, e.imageSize, e.imageSize))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// colorHistogram builds per-channel HSV histograms: 50 hue bins, 60
// saturation bins, 60 value bins, each normalized to sum to 1. Hue and
// saturation are robust to brightness shifts and re-encoding artifacts.
func colorHistogram(img *image.RGBA) []float64 {
	hist := make([]float64, hueBins+satBins+valBins)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			r := float64(row[x*4]) / 255.0
			g := float64(row[x*4+1]) / 255.0
			bl := float64(row[x*4+2]) / 255.0
			h, s, v := rgbToHSV(r, g, bl)
			hist[binIndex(h/360.0, hueBins)]++
			hist[hueBins+binIndex(s, satBins)]++
			hist[hueBins+satBins+binIndex(v, valBins)]++
		}
	}
	normalizeL1(hist[:hueBins])
	normalizeL1(hist[hueBins : hueBins+satBins])
	normalizeL1(hist[hueBins+satBins:])
	return hist
}

// lbpHistogram computes a 256-bin local binary pattern distribution over the
// grayscale plane. Each interior pixel's 8 neighbors are compared against its
// own intensity, clockwise from the top-left, one bit per neighbor.
func lbpHistogram(gray [][]float64) []float64 {
	hist := make([]float64, lbpBins)
	rows := len(gray)
	cols := len(gray[0])
	// clockwise 8-neighborhood offsets
	offsets := [8][2]int{
		{-1, -1}, {-1, 0}, {-1, 1}, {0, 1},
		{1, 1}, {1, 0}, {1, -1}, {0, -1},
	}
	for y := 1; y < rows-1; y++ {
		for x := 1; x < cols-1; x++ {
			center := gray[y][x]
			code := 0
			for bit, off := range offsets {
				if gray[y+off[0]][x+off[1]] >= center {
					code |= 1 << (7 - bit)
				}
			}
			hist[code]++
		}
	}
	normalizeL1(hist)
	return hist
}

// edgeFeatures runs 3x3 Sobel operators over the grayscale plane and
// summarizes structure: a 36-bin gradient orientation histogram over edge
// pixels weighted by magnitude, plus the overall edge density.
func edgeFeatures(gray [][]float64) []float64 {
	out := make([]float64, orientationBins+edgeScalars)
	orientation := out[:orientationBins]
	rows := len(gray)
	cols := len(gray[0])

	edgePixels := 0
	for y := 1; y < rows-1; y++ {
		for x := 1; x < cols-1; x++ {
			gx := gray[y-1][x+1] + 2*gray[y][x+1] + gray[y+1][x+1] -
				gray[y-1][x-1] - 2*gray[y][x-1] - gray[y+1][x-1]
			gy := gray[y+1][x-1] + 2*gray[y+1][x] + gray[y+1][x+1] -
				gray[y-1][x-1] - 2*gray[y-1][x] - gray[y-1][x+1]
			magnitude := math.Hypot(gx, gy)
			if magnitude < edgeMagnitudeThreshold {
				continue
			}
			edgePixels++
			// atan2 in (-pi, pi] mapped onto [0, orientationBins)
			theta := (math.Atan2(gy, gx) + math.Pi) / (2 * math.Pi)
			orientation[binIndex(theta, orientationBins)] += magnitude
		}
	}
	normalizeL1(orientation)
	out[orientationBins] = float64(edgePixels) / float64(rows*cols)
	return out
}

// grayPlane converts to luminance using the same weights OpenCV applies.
func grayPlane(img *image.RGBA) [][]float64 {
	b := img.Bounds()
	rows := b.Dy()
	cols := b.Dx()
	gray := make([][]float64, rows)
	for y := 0; y < rows; y++ {
		gray[y] = make([]float64, cols)
		row := img.Pix[y*img.Stride:]
		for x := 0; x < cols; x++ {
			r := float64(row[x*4])
			g := float64(row[x*4+1])
			bl := float64(row[x*4+2])
			gray[y][x] = 0.299*r + 0.587*g + 0.114*bl
		}
	}
	return gray
}

// rgbToHSV converts r,g,b in [0,1] to h in [0,360), s and v in [0,1].
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	v = max
	delta := max - min
	if max > 0 {
		s = delta / max
	}
	if delta == 0 {
		return 0, s, v
	}
	switch max {
	case r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// binIndex maps a value in [0,1] onto one of n bins, clamping the endpoints.
func binIndex(v float64, n int) int {
	idx := int(v * float64(n))
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

func normalizeL1(v []float64) {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	if sum == 0 {
		return
	}
	for i := range v {
		v[i] /= sum
	}
}
