package fingerprint

// SampleIndices selects which frame indices to decode from a video with
// total frames. Indices walk 0, interval, 2*interval while the resulting
// count stays within [minFrames, maxFrames]; outside those bounds the
// effective interval is recomputed so that exactly minFrames or maxFrames
// evenly spaced indices are produced. A video with fewer than minFrames
// frames yields one index per available frame.
//
// The result is strictly increasing with no duplicates. Pure selection; no
// pixels are touched here.
func SampleIndices(total, interval, minFrames, maxFrames int) []int {
	if total <= 0 {
		return nil
	}
	if interval < 1 {
		interval = 1
	}
	if minFrames < 1 {
		minFrames = 1
	}
	if maxFrames < minFrames {
		maxFrames = minFrames
	}

	if total <= minFrames {
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	count := (total-1)/interval + 1
	switch {
	case count < minFrames:
		return evenlySpaced(total, minFrames)
	case count > maxFrames:
		return evenlySpaced(total, maxFrames)
	}

	indices := make([]int, 0, count)
	for i := 0; i < total; i += interval {
		indices = append(indices, i)
	}
	return indices
}

// evenlySpaced spreads exactly n indices across [0, total). Requires
// total >= n, which keeps the integer step at least 1 and the output
// strictly increasing.
func evenlySpaced(total, n int) []int {
	if n == 1 {
		return []int{0}
	}
	indices := make([]int, n)
	for i := 0; i < n; i++ {
		indices[i] = i * (total - 1) / (n - 1)
	}
	return indices
}
