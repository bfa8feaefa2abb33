/**
 * Result types - data structures returned by the pipeline
 *
 * Shared by the HTTP handlers, the queue consumer and the CLI.
 */

package processor

import (
	"strings"

	"github.com/adverant/nexus/pdf-extractor/internal/reconstruct"
)

// ProcessResult represents the processing result
type ProcessResult struct {
	JobID            string       `json:"jobId,omitempty"`
	Workbook         []byte       `json:"-"`
	Filename         string       `json:"filename"`
	MimeType         string       `json:"mimeType"`
	Engine           string       `json:"engine"`
	Profile          string       `json:"profile"`
	Pages            []PageResult `json:"pages"`
	ProcessingTimeMs int64        `json:"processingTimeMs"`
}

// PageResult summarizes one reconstructed page
type PageResult struct {
	PageNumber    int        `json:"page"`
	Fragments     int        `json:"fragments"`
	KeptFragments int        `json:"keptFragments"`
	Rows          int        `json:"rows"`
	Columns       int        `json:"columns"`
	Fallback      bool       `json:"rawTextFallback"`
	Confidence    float64    `json:"meanConfidence"`
	Layout        PageLayout `json:"layout"`

	Grid  reconstruct.Grid   `json:"-"`
	Lines []reconstruct.Line `json:"-"`
}

// PageCount returns the number of pages processed
func (r *ProcessResult) PageCount() int {
	return len(r.Pages)
}

// Text renders every page as plain text with estimated inter-word spacing.
// Pages are separated by a blank line.
func (r *ProcessResult) Text(spaceRatio float64) string {
	var b strings.Builder
	for i, page := range r.Pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		for j, line := range page.Lines {
			if j > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(reconstruct.SanitizeXMLText(reconstruct.LineText(line, spaceRatio)))
		}
	}
	return b.String()
}
