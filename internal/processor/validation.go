package processor

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/adverant/nexus/pdf-extractor/internal/reconstruct"
)

// Item codes look like "12345-6789" followed by a suffix such as "3A".
// The number of spaces between the two parts is significant.
var (
	codeBasePattern   = regexp.MustCompile(`^\d{5}-\d{4}`)
	codeSuffixPattern = regexp.MustCompile(`^\d+A`)
)

// GroundTruth holds the expected content of a document.
type GroundTruth struct {
	Lines []GroundTruthLine `json:"lines"`
}

// GroundTruthLine is one expected line. Text, when set, must match a
// reconstructed line exactly including spacing. CodeBase and CodeSpaces,
// when set, check the spacing detected between an item code and its suffix.
// Page 0 matches any page.
type GroundTruthLine struct {
	Page       int    `json:"page,omitempty"`
	Text       string `json:"text,omitempty"`
	CodeBase   string `json:"code_base,omitempty"`
	CodeSpaces int    `json:"code_spaces,omitempty"`
}

// LoadGroundTruth decodes a ground truth JSON document.
func LoadGroundTruth(r io.Reader) (*GroundTruth, error) {
	var gt GroundTruth
	if err := json.NewDecoder(r).Decode(&gt); err != nil {
		return nil, fmt.Errorf("decode ground truth: %w", err)
	}
	if len(gt.Lines) == 0 {
		return nil, fmt.Errorf("ground truth has no lines")
	}
	return &gt, nil
}

// DetectedCode is an item code found on a reconstructed line.
type DetectedCode struct {
	Page     int     `json:"page"`
	Line     int     `json:"line"`
	CodeBase string  `json:"codeBase"`
	Suffix   string  `json:"suffix"`
	Spaces   int     `json:"spaces"`
	GapPx    float64 `json:"gapPx"`
}

// DetectCodes finds the first code-suffix pair on each line and measures
// the spaces between them with ratio.
func DetectCodes(pages []PageResult, ratio float64) []DetectedCode {
	var codes []DetectedCode
	for _, page := range pages {
		for li, line := range page.Lines {
			frags := line.Fragments
			for i := 0; i+1 < len(frags); i++ {
				base := codeBasePattern.FindString(frags[i].Text)
				if base == "" || !codeSuffixPattern.MatchString(frags[i+1].Text) {
					continue
				}
				codes = append(codes, DetectedCode{
					Page:     page.PageNumber,
					Line:     li + 1,
					CodeBase: frags[i].Text,
					Suffix:   frags[i+1].Text,
					Spaces:   reconstruct.EstimateSpaces(frags[i], frags[i+1], ratio),
					GapPx:    frags[i+1].Left - frags[i].Right(),
				})
				break
			}
		}
	}
	return codes
}

// Mismatch describes one ground truth line that was not reproduced.
type Mismatch struct {
	Page     int    `json:"page,omitempty"`
	Expected string `json:"expected"`
	Got      string `json:"got,omitempty"`
}

// ValidationReport summarizes a comparison against ground truth.
type ValidationReport struct {
	LinesTotal   int        `json:"linesTotal"`
	LinesMatched int        `json:"linesMatched"`
	LineAccuracy float64    `json:"lineAccuracy"`
	CodesTotal   int        `json:"codesTotal"`
	CodesCorrect int        `json:"codesCorrect"`
	CodeAccuracy float64    `json:"codeAccuracy"`
	Mismatches   []Mismatch `json:"mismatches,omitempty"`
}

// Accuracy is the overall fraction of checks that passed.
func (r *ValidationReport) Accuracy() float64 {
	total := r.LinesTotal + r.CodesTotal
	if total == 0 {
		return 0
	}
	return float64(r.LinesMatched+r.CodesCorrect) / float64(total)
}

// Validate compares a processing result with ground truth. Line text is
// rebuilt with textRatio; code spacing is measured with codeRatio.
// Codes that were never detected are not counted, only mis-spaced ones.
func Validate(result *ProcessResult, gt *GroundTruth, textRatio, codeRatio float64) *ValidationReport {
	report := &ValidationReport{}
	if result == nil || gt == nil {
		return report
	}

	texts := make(map[int]map[string]bool)
	all := make(map[string]bool)
	for _, page := range result.Pages {
		set := make(map[string]bool, len(page.Lines))
		for _, line := range page.Lines {
			text := reconstruct.LineText(line, textRatio)
			set[text] = true
			all[text] = true
		}
		texts[page.PageNumber] = set
	}

	codes := DetectCodes(result.Pages, codeRatio)

	for _, want := range gt.Lines {
		if want.Text != "" {
			report.LinesTotal++
			candidates := all
			if want.Page > 0 {
				candidates = texts[want.Page]
			}
			if candidates[want.Text] {
				report.LinesMatched++
			} else {
				report.Mismatches = append(report.Mismatches, Mismatch{
					Page:     want.Page,
					Expected: want.Text,
					Got:      closestLine(candidates, want.Text),
				})
			}
		}

		if want.CodeBase == "" {
			continue
		}
		found, ok := findCode(codes, want)
		if !ok {
			continue
		}
		report.CodesTotal++
		if found.Spaces == want.CodeSpaces {
			report.CodesCorrect++
			continue
		}
		report.Mismatches = append(report.Mismatches, Mismatch{
			Page:     found.Page,
			Expected: want.CodeBase + strings.Repeat(" ", want.CodeSpaces) + found.Suffix,
			Got:      found.CodeBase + strings.Repeat(" ", found.Spaces) + found.Suffix,
		})
	}

	if report.LinesTotal > 0 {
		report.LineAccuracy = float64(report.LinesMatched) / float64(report.LinesTotal)
	}
	if report.CodesTotal > 0 {
		report.CodeAccuracy = float64(report.CodesCorrect) / float64(report.CodesTotal)
	}
	return report
}

func findCode(codes []DetectedCode, want GroundTruthLine) (DetectedCode, bool) {
	for _, c := range codes {
		if c.CodeBase == want.CodeBase && (want.Page == 0 || c.Page == want.Page) {
			return c, true
		}
	}
	return DetectedCode{}, false
}

// closestLine returns the candidate that equals want once whitespace is
// collapsed, which is the usual failure mode of space estimation.
func closestLine(candidates map[string]bool, want string) string {
	norm := normalizeContent(want)
	for text := range candidates {
		if normalizeContent(text) == norm {
			return text
		}
	}
	return ""
}

func normalizeContent(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
