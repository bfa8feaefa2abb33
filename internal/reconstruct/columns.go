package reconstruct

import (
	"math"
	"sort"
)

const (
	// gapMultiplier scales the median gap into the split threshold.
	gapMultiplier = 2.5

	// minBandGap is the floor of the split threshold in pixels.
	minBandGap = 20.0
)

// ColumnBand is the horizontal position of one visual column.
type ColumnBand float64

// ClusterColumns clusters left positions into column bands, ascending.
//
// Positions are deduplicated and sorted; a new band starts wherever the gap
// to the previous position exceeds max(median(gaps)*2.5, 20). Each band sits
// at the mean of its members.
func ClusterColumns(lefts []float64) []ColumnBand {
	xs := uniqueSorted(lefts)
	if len(xs) < 2 {
		bands := make([]ColumnBand, len(xs))
		for i, x := range xs {
			bands[i] = ColumnBand(x)
		}
		return bands
	}

	gaps := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		gaps[i-1] = xs[i] - xs[i-1]
	}
	threshold := math.Max(median(gaps)*gapMultiplier, minBandGap)

	var bands []ColumnBand
	group := []float64{xs[0]}
	for i := 1; i < len(xs); i++ {
		if xs[i]-xs[i-1] > threshold {
			bands = append(bands, ColumnBand(mean(group)))
			group = group[:0]
		}
		group = append(group, xs[i])
	}
	bands = append(bands, ColumnBand(mean(group)))

	return bands
}

// nearestBand returns the index of the band closest to x. Ties go to the
// lower index.
func nearestBand(bands []ColumnBand, x float64) int {
	best := 0
	bestDist := math.Abs(float64(bands[0]) - x)
	for i := 1; i < len(bands); i++ {
		if d := math.Abs(float64(bands[i]) - x); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func uniqueSorted(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	xs := make([]float64, len(values))
	copy(xs, values)
	sort.Float64s(xs)

	out := xs[:1]
	for _, x := range xs[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}

// median expects a non-empty slice. Even counts average the middle pair.
func median(values []float64) float64 {
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)

	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
