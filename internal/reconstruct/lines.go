package reconstruct

import (
	"math"
	"sort"
)

// Line is a run of fragments sharing a text row, ordered left to right.
type Line struct {
	// Top is the reference position the line was opened with.
	Top       float64
	Fragments []TextFragment
}

// Lefts returns the left edge of every fragment in the line.
func (l Line) Lefts() []float64 {
	out := make([]float64, len(l.Fragments))
	for i, f := range l.Fragments {
		out[i] = f.Left
	}
	return out
}

// GroupLines groups fragments into lines ordered top to bottom.
//
// A fragment opens a new line when its top differs from the current line's
// reference by more than tolerance. The reference is the top of the line's
// first fragment and is not moved as fragments are added, so tolerance is
// measured against the line start rather than the previous fragment.
func GroupLines(frags []TextFragment, tolerance float64) []Line {
	if len(frags) == 0 {
		return nil
	}

	sorted := make([]TextFragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Top != sorted[j].Top {
			return sorted[i].Top < sorted[j].Top
		}
		return sorted[i].Left < sorted[j].Left
	})

	var lines []Line
	current := Line{Top: sorted[0].Top, Fragments: []TextFragment{sorted[0]}}
	for _, f := range sorted[1:] {
		if math.Abs(f.Top-current.Top) > tolerance {
			lines = append(lines, current)
			current = Line{Top: f.Top}
		}
		current.Fragments = append(current.Fragments, f)
	}
	lines = append(lines, current)

	for i := range lines {
		frs := lines[i].Fragments
		sort.SliceStable(frs, func(a, b int) bool {
			return frs[a].Left < frs[b].Left
		})
	}

	return lines
}
