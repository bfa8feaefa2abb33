package processor

import (
	"math"
	"strings"
	"testing"

	"github.com/adverant/nexus/pdf-extractor/internal/reconstruct"
)

func validationResult() *ProcessResult {
	frags := []reconstruct.TextFragment{
		// 10 chars over 100px: a space is 6px at ratio 0.6, so 18px is 3 spaces.
		frag("00012-3456", 10, 10), frag("3A", 128, 10), frag("Bolt", 200, 10),
		frag("00099-0001", 10, 40), frag("12A", 116, 40),
		frag("Item", 10, 70), frag("total", 58, 70),
	}
	return &ProcessResult{Pages: []PageResult{{
		PageNumber: 1,
		Lines:      reconstruct.GroupLines(frags, 10),
	}}}
}

func TestDetectCodes(t *testing.T) {
	codes := DetectCodes(validationResult().Pages, reconstruct.SpaceRatioMono)
	if len(codes) != 2 {
		t.Fatalf("DetectCodes() found %d codes: %+v", len(codes), codes)
	}
	if c := codes[0]; c.CodeBase != "00012-3456" || c.Suffix != "3A" || c.Spaces != 3 || c.Line != 1 || c.GapPx != 18 {
		t.Errorf("first code = %+v", c)
	}
	if c := codes[1]; c.CodeBase != "00099-0001" || c.Suffix != "12A" || c.Spaces != 1 {
		t.Errorf("second code = %+v", c)
	}
}

func TestValidate(t *testing.T) {
	gt, err := LoadGroundTruth(strings.NewReader(`{
		"lines": [
			{"code_base": "00012-3456", "code_spaces": 3},
			{"code_base": "00099-0001", "code_spaces": 2},
			{"code_base": "77777-0000", "code_spaces": 1},
			{"text": "Item  total"},
			{"page": 1, "text": "Item total"}
		]
	}`))
	if err != nil {
		t.Fatalf("LoadGroundTruth() error = %v", err)
	}

	report := Validate(validationResult(), gt, reconstruct.SpaceRatioNarrow, reconstruct.SpaceRatioMono)

	if report.CodesTotal != 2 || report.CodesCorrect != 1 {
		t.Errorf("codes = %d/%d, want 1/2", report.CodesCorrect, report.CodesTotal)
	}
	if report.LinesTotal != 2 || report.LinesMatched != 1 {
		t.Errorf("lines = %d/%d, want 1/2", report.LinesMatched, report.LinesTotal)
	}
	if report.CodeAccuracy != 0.5 || report.LineAccuracy != 0.5 || math.Abs(report.Accuracy()-0.5) > 1e-9 {
		t.Errorf("accuracy = %v / %v / %v", report.CodeAccuracy, report.LineAccuracy, report.Accuracy())
	}

	if len(report.Mismatches) != 2 {
		t.Fatalf("mismatches = %+v", report.Mismatches)
	}
	if m := report.Mismatches[0]; m.Expected != "00099-0001  12A" || m.Got != "00099-0001 12A" {
		t.Errorf("code mismatch = %+v", m)
	}
	if m := report.Mismatches[1]; m.Expected != "Item total" || m.Got != "Item  total" {
		t.Errorf("line mismatch = %+v", m)
	}
}

func TestValidateNil(t *testing.T) {
	if r := Validate(nil, nil, 0.4, 0.6); r.Accuracy() != 0 {
		t.Errorf("Accuracy() = %v", r.Accuracy())
	}
}

func TestLoadGroundTruthErrors(t *testing.T) {
	if _, err := LoadGroundTruth(strings.NewReader(`{"lines": []}`)); err == nil {
		t.Error("expected error for empty ground truth")
	}
	if _, err := LoadGroundTruth(strings.NewReader(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
