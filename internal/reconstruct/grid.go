package reconstruct

import "fmt"

// Grid is a rectangular matrix of cell text, rows top to bottom.
type Grid [][]string

// Width returns the length of the longest row.
func (g Grid) Width() int {
	w := 0
	for _, row := range g {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// Pad right-pads every row with empty cells to the longest row's length.
func (g Grid) Pad() Grid {
	w := g.Width()
	for i, row := range g {
		if len(row) < w {
			padded := make([]string, w)
			copy(padded, row)
			g[i] = padded
		}
	}
	return g
}

// IsEmpty reports whether the grid holds no non-empty cell.
func (g Grid) IsEmpty() bool {
	for _, row := range g {
		for _, cell := range row {
			if cell != "" {
				return false
			}
		}
	}
	return true
}

// AssembleGrid places each fragment of each line in the cell of its nearest
// column band. Fragments landing in an occupied cell are appended with a
// single space.
func AssembleGrid(lines []Line, bands []ColumnBand) (Grid, error) {
	if len(bands) == 0 {
		if len(lines) > 0 {
			return nil, ErrNoColumnsDetected
		}
		return Grid{}, nil
	}

	grid := make(Grid, 0, len(lines))
	for _, line := range lines {
		row := make([]string, len(bands))
		for _, f := range line.Fragments {
			col := nearestBand(bands, f.Left)
			if row[col] != "" {
				row[col] += " " + f.Text
			} else {
				row[col] = f.Text
			}
		}
		grid = append(grid, row)
	}
	return grid, nil
}

// ReconstructGrid turns a page of fragments into a grid with one row per
// line and one column per band. An empty input yields an empty grid.
func ReconstructGrid(frags []TextFragment, lineTolerance float64) (Grid, error) {
	for i, f := range frags {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("fragment %d: %w", i, err)
		}
	}
	if len(frags) == 0 {
		return Grid{}, nil
	}

	lines := GroupLines(frags, lineTolerance)

	var lefts []float64
	for _, l := range lines {
		lefts = append(lefts, l.Lefts()...)
	}

	return AssembleGrid(lines, ClusterColumns(lefts))
}
