// Package reconstruct rebuilds page text from OCR word fragments.
//
// Fragments are grouped into lines by vertical proximity, their left edges
// are clustered into column bands and the result is emitted as a rectangular
// grid of cells ready for spreadsheet export. Everything in this package is
// pure: no I/O, no shared state, safe to call from any goroutine.
package reconstruct

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidFragment is returned when a fragment has a negative size or
	// a non-finite coordinate.
	ErrInvalidFragment = errors.New("invalid fragment")

	// ErrNoColumnsDetected is returned when lines exist but no column band
	// could be derived from them. Callers usually fall back to one raw text
	// row per line.
	ErrNoColumnsDetected = errors.New("no columns detected")
)

// DefaultMinConfidence is the percent confidence below which fragments are
// discarded before grouping.
const DefaultMinConfidence = 30.0

// TextFragment is one recognized token with its bounding box in pixels.
// Confidence is on the percent scale [0,100].
type TextFragment struct {
	Text       string  `json:"text"`
	Left       float64 `json:"left"`
	Top        float64 `json:"top"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

// Right returns the x coordinate of the fragment's right edge.
func (f TextFragment) Right() float64 {
	return f.Left + f.Width
}

// Validate reports whether the fragment can take part in reconstruction.
func (f TextFragment) Validate() error {
	for _, v := range []float64{f.Left, f.Top, f.Width, f.Height, f.Confidence} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate in %q", ErrInvalidFragment, f.Text)
		}
	}
	if f.Width < 0 || f.Height < 0 {
		return fmt.Errorf("%w: negative size %.1fx%.1f in %q", ErrInvalidFragment, f.Width, f.Height, f.Text)
	}
	return nil
}

// Point is a corner of a polygonal bounding box.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FragmentFromPolygon converts a corner-point bounding box into a fragment.
// confScale is the upper bound of the engine's confidence scale (1 for
// engines reporting [0,1], 100 for engines already reporting percent).
func FragmentFromPolygon(text string, pts []Point, confidence, confScale float64) (TextFragment, error) {
	if len(pts) == 0 {
		return TextFragment{}, fmt.Errorf("%w: empty polygon for %q", ErrInvalidFragment, text)
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	f := TextFragment{
		Text:       text,
		Left:       minX,
		Top:        minY,
		Width:      maxX - minX,
		Height:     maxY - minY,
		Confidence: NormalizeConfidence(confidence, confScale),
	}
	return f, f.Validate()
}

// NormalizeConfidence maps a confidence reported on [0,scale] onto [0,100].
func NormalizeConfidence(confidence, scale float64) float64 {
	if scale <= 0 {
		return confidence
	}
	return confidence / scale * 100
}

// FilterByConfidence returns the fragments whose confidence is at least min.
// The input slice is not modified.
func FilterByConfidence(frags []TextFragment, min float64) []TextFragment {
	kept := make([]TextFragment, 0, len(frags))
	for _, f := range frags {
		if f.Confidence >= min {
			kept = append(kept, f)
		}
	}
	return kept
}
