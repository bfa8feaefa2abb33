package reconstruct

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Space width as a fraction of the average character width. Both values
// come from calibration runs against different fonts; neither is universally
// right, so callers choose one per font/DPI profile.
const (
	SpaceRatioNarrow = 0.4
	SpaceRatioMono   = 0.6
)

// fallbackCharWidth is used when the left fragment has no text to measure.
const fallbackCharWidth = 10.0

// MaxSpaces caps EstimateSpaces. A letter-size page rendered at 1200 DPI is
// about 10200 px wide, so even a 10 px space width stays under this.
const MaxSpaces = 1024

// EstimateSpaces estimates how many literal spaces separate a and b, where b
// follows a on the same line. The result is within [1, MaxSpaces].
func EstimateSpaces(a, b TextFragment, ratio float64) int {
	gap := b.Left - a.Right()

	charWidth := fallbackCharWidth
	if n := utf8.RuneCountInString(a.Text); n > 0 {
		charWidth = a.Width / float64(n)
	}

	spaceWidth := charWidth * ratio
	if spaceWidth <= 0 {
		return 1
	}

	n := math.RoundToEven(gap / spaceWidth)
	if !(n >= 1) {
		return 1
	}
	if n > MaxSpaces {
		return MaxSpaces
	}
	return int(n)
}

// LineText rebuilds the text of a line, separating neighbouring fragments
// with the estimated number of spaces.
func LineText(line Line, ratio float64) string {
	var b strings.Builder
	for i, f := range line.Fragments {
		if i > 0 {
			b.WriteString(strings.Repeat(" ", EstimateSpaces(line.Fragments[i-1], f, ratio)))
		}
		b.WriteString(f.Text)
	}
	return b.String()
}

// LinesAsRows returns one single-cell row per line, used when no column
// structure could be derived.
func LinesAsRows(lines []Line, ratio float64) Grid {
	grid := make(Grid, 0, len(lines))
	for _, l := range lines {
		grid = append(grid, []string{LineText(l, ratio)})
	}
	return grid
}
