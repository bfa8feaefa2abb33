package processor

import (
	"strings"

	"github.com/adverant/nexus/pdf-extractor/internal/reconstruct"
)

// Layout kinds reported per page.
const (
	LayoutEmpty = "empty"
	LayoutText  = "text"
	LayoutTable = "table"
)

// PageLayout describes the structure found in a reconstructed grid.
type PageLayout struct {
	Kind        string        `json:"kind"`
	FilledCells int           `json:"filledCells"`
	Density     float64       `json:"density"`
	Tables      []TableRegion `json:"tables,omitempty"`
}

// TableRegion is a run of consecutive rows with a stable number of
// filled cells. Rows are zero-based and inclusive.
type TableRegion struct {
	StartRow int `json:"startRow"`
	EndRow   int `json:"endRow"`
	Columns  int `json:"columns"`
}

// analyzeLayout classifies a page grid and detects table regions
func analyzeLayout(grid reconstruct.Grid) PageLayout {
	layout := PageLayout{Kind: LayoutEmpty}
	if grid.IsEmpty() {
		return layout
	}

	counts := make([]int, len(grid))
	for i, row := range grid {
		counts[i] = filledCells(row)
		layout.FilledCells += counts[i]
	}
	if layout.FilledCells == 0 {
		return layout
	}
	if total := len(grid) * grid.Width(); total > 0 {
		layout.Density = float64(layout.FilledCells) / float64(total)
	}

	layout.Tables = detectTableRegions(counts)
	if len(layout.Tables) > 0 {
		layout.Kind = LayoutTable
	} else {
		layout.Kind = LayoutText
	}
	return layout
}

// detectTableRegions finds runs of 2+ rows that each fill at least two
// cells, accepting a variation of one cell for irregular tables.
func detectTableRegions(counts []int) []TableRegion {
	regions := make([]TableRegion, 0)

	i := 0
	for i < len(counts) {
		if counts[i] < 2 {
			i++
			continue
		}

		start := i
		expected := counts[i]
		widest := counts[i]
		i++
		for i < len(counts) && counts[i] >= 2 && abs(counts[i]-expected) <= 1 {
			if counts[i] > widest {
				widest = counts[i]
			}
			i++
		}

		if i-start >= 2 {
			regions = append(regions, TableRegion{StartRow: start, EndRow: i - 1, Columns: widest})
		}
	}

	return regions
}

func filledCells(row []string) int {
	n := 0
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			n++
		}
	}
	return n
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
