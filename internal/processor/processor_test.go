package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/image/tiff"

	"github.com/adverant/nexus/pdf-extractor/internal/config"
	"github.com/adverant/nexus/pdf-extractor/internal/engine"
	apperrors "github.com/adverant/nexus/pdf-extractor/internal/errors"
	"github.com/adverant/nexus/pdf-extractor/internal/raster"
	"github.com/adverant/nexus/pdf-extractor/internal/reconstruct"
	"github.com/adverant/nexus/pdf-extractor/internal/sheet"
)

func frag(text string, left, top float64) reconstruct.TextFragment {
	return reconstruct.TextFragment{Text: text, Left: left, Top: top, Width: 10 * float64(len(text)), Height: 12, Confidence: 90}
}

// fakeEngine returns the same fragments for every page.
type fakeEngine struct {
	frags []reconstruct.TextFragment
	err   error
	calls atomic.Int32
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(ctx context.Context, page engine.PageImage) ([]reconstruct.TextFragment, error) {
	f.calls.Add(1)
	if len(page.PNG) == 0 {
		return nil, errors.New("empty page image")
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]reconstruct.TextFragment(nil), f.frags...), nil
}

func (f *fakeEngine) Close() error { return nil }

func testProfiles(t *testing.T) *config.ProfileSet {
	t.Helper()
	def := config.Profile{RenderDPI: 72, LineTolerance: 15, MinConfidence: 30, SpaceRatio: reconstruct.SpaceRatioNarrow}
	set, err := config.ParseProfiles([]byte("profiles:\n  mono:\n    space_ratio: 0.6\n"), def)
	if err != nil {
		t.Fatalf("ParseProfiles() error = %v", err)
	}
	return set
}

func newTestProcessor(t *testing.T, eng engine.Engine) *DocumentProcessor {
	t.Helper()
	reg := engine.NewRegistry()
	if err := reg.Register(eng); err != nil {
		t.Fatal(err)
	}
	p, err := NewDocumentProcessor(&ProcessorConfig{
		Engines:         reg,
		Profiles:        testProfiles(t),
		DefaultEngine:   eng.Name(),
		MaxFileSize:     1 << 20,
		PageConcurrency: 2,
	})
	if err != nil {
		t.Fatalf("NewDocumentProcessor() error = %v", err)
	}
	return p
}

func testTIFF(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 300, 120))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatalf("tiff.Encode() error = %v", err)
	}
	data := buf.Bytes()
	doc, err := raster.Open(data)
	if err != nil {
		t.Skipf("MuPDF could not open TIFF here: %v", err)
	}
	doc.Close()
	return data
}

func TestDetectMimeTypeFromMagicBytes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"pdf", []byte("%PDF-1.7\n"), "application/pdf"},
		{"tiff little endian", []byte{0x49, 0x49, 0x2A, 0x00, 0x08}, "image/tiff"},
		{"tiff big endian", []byte{0x4D, 0x4D, 0x00, 0x2A, 0x00}, "image/tiff"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		{"zip", []byte{0x50, 0x4B, 0x03, 0x04}, "application/zip"},
		{"short", []byte{0x25}, ""},
		{"text", []byte("hello world"), ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectMimeTypeFromMagicBytes(tc.data); got != tc.want {
				t.Errorf("detectMimeTypeFromMagicBytes() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewDocumentProcessorValidation(t *testing.T) {
	if _, err := NewDocumentProcessor(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewDocumentProcessor(&ProcessorConfig{Engines: engine.NewRegistry(), Profiles: testProfiles(t)}); err == nil {
		t.Error("expected error for empty registry")
	}

	reg := engine.NewRegistry()
	_ = reg.Register(&fakeEngine{})
	_, err := NewDocumentProcessor(&ProcessorConfig{Engines: reg, Profiles: testProfiles(t), DefaultEngine: "paddle"})
	if err == nil {
		t.Error("expected error for unregistered default engine")
	}
}

func TestProcessDocumentRejectsInput(t *testing.T) {
	p := newTestProcessor(t, &fakeEngine{})
	pdf := []byte("%PDF-1.4\n%%EOF\n")

	tests := []struct {
		name string
		req  *ProcessRequest
		want apperrors.ErrorCode
	}{
		{"empty", &ProcessRequest{JobID: "j1"}, apperrors.ErrorInvalidInput},
		{"too large", &ProcessRequest{JobID: "j2", FileBuffer: bytes.Repeat([]byte("x"), 2<<20)}, apperrors.ErrorFileTooLarge},
		{"png", &ProcessRequest{JobID: "j3", FileBuffer: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, MimeType: "image/png"}, apperrors.ErrorUnsupportedFormat},
		{"unknown bytes", &ProcessRequest{JobID: "j4", FileBuffer: []byte("plain text"), MimeType: "application/pdf"}, apperrors.ErrorUnsupportedFormat},
		{"unknown engine", &ProcessRequest{JobID: "j5", FileBuffer: pdf, Engine: "surya"}, apperrors.ErrorUnknownEngine},
		{"unknown profile", &ProcessRequest{JobID: "j6", FileBuffer: pdf, Profile: "comic-sans"}, apperrors.ErrorUnknownProfile},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.ProcessDocument(context.Background(), tc.req)
			if got := apperrors.CodeOf(err); got != tc.want {
				t.Errorf("error code = %q, want %q (err = %v)", got, tc.want, err)
			}
		})
	}
}

func TestProcessDocumentTIFF(t *testing.T) {
	data := testTIFF(t)

	eng := &fakeEngine{frags: []reconstruct.TextFragment{
		frag("Code", 10, 10), frag("Description", 150, 10), frag("Value", 400, 10),
		frag("00012-3456", 12, 40), frag("Bolt", 152, 40), frag("R$", 398, 40),
		{Text: "smudge", Left: 250, Top: 40, Width: 60, Height: 12, Confidence: 5},
	}}
	p := newTestProcessor(t, eng)

	result, err := p.ProcessDocument(context.Background(), &ProcessRequest{
		JobID:      "job-tiff",
		Filename:   "scan.tif",
		MimeType:   "application/octet-stream",
		FileBuffer: data,
	})
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}

	if result.MimeType != "image/tiff" || result.Engine != "fake" || result.Profile != config.DefaultProfileName {
		t.Errorf("result = %+v", result)
	}
	if result.Filename != "scan_OCR.xlsx" {
		t.Errorf("Filename = %q", result.Filename)
	}
	if result.PageCount() != 1 || eng.calls.Load() != 1 {
		t.Fatalf("pages = %d, engine calls = %d", result.PageCount(), eng.calls.Load())
	}

	page := result.Pages[0]
	want := reconstruct.Grid{
		{"Code", "Description", "Value"},
		{"00012-3456", "Bolt", "R$"},
	}
	if !reflect.DeepEqual(page.Grid, want) {
		t.Errorf("grid = %v, want %v", page.Grid, want)
	}
	if page.Fragments != 7 || page.KeptFragments != 6 || page.Fallback {
		t.Errorf("page = %+v", page)
	}
	if page.Layout.Kind != LayoutTable {
		t.Errorf("layout kind = %q", page.Layout.Kind)
	}

	names, grids, err := sheet.ReadGrids(result.Workbook)
	if err != nil {
		t.Fatalf("ReadGrids() error = %v", err)
	}
	if len(names) != 1 || names[0] != "Page_1" {
		t.Fatalf("sheets = %v", names)
	}
	if got := grids["Page_1"]; len(got) != 2 || got[1][0] != "00012-3456" {
		t.Errorf("sheet grid = %v", got)
	}
}

func TestProcessDocumentEngineFailure(t *testing.T) {
	data := testTIFF(t)
	p := newTestProcessor(t, &fakeEngine{err: errors.New("model crashed")})

	_, err := p.ProcessDocument(context.Background(), &ProcessRequest{JobID: "job-fail", FileBuffer: data})
	if apperrors.CodeOf(err) != apperrors.ErrorOCRFailed {
		t.Fatalf("expected OCR_FAILED, got %v", err)
	}
	if !strings.Contains(err.Error(), "model crashed") {
		t.Errorf("cause missing from %q", err.Error())
	}
}

func TestProcessDocumentMalformedFragment(t *testing.T) {
	data := testTIFF(t)
	p := newTestProcessor(t, &fakeEngine{err: fmt.Errorf("item 0: %w", reconstruct.ErrInvalidFragment)})

	_, err := p.ProcessDocument(context.Background(), &ProcessRequest{JobID: "job-bad-item", FileBuffer: data})
	if apperrors.CodeOf(err) != apperrors.ErrorInvalidFragment {
		t.Fatalf("expected INVALID_FRAGMENT, got %v", err)
	}
	if !errors.Is(err, reconstruct.ErrInvalidFragment) {
		t.Errorf("cause not wrapped: %v", err)
	}
}

func TestProcessDocumentCanceled(t *testing.T) {
	data := testTIFF(t)
	p := newTestProcessor(t, &fakeEngine{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.ProcessDocument(ctx, &ProcessRequest{JobID: "job-cancel", FileBuffer: data}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReconstructPage(t *testing.T) {
	profile := config.Profile{Name: "p", RenderDPI: 72, LineTolerance: 15, MinConfidence: 30, SpaceRatio: 0.4}

	page, err := reconstructPage(3, nil, profile)
	if err != nil {
		t.Fatalf("reconstructPage(nil) error = %v", err)
	}
	if page.PageNumber != 3 || page.Rows != 0 || page.Layout.Kind != LayoutEmpty {
		t.Errorf("empty page = %+v", page)
	}

	bad := []reconstruct.TextFragment{{Text: "bad", Width: -1, Height: 5, Confidence: 99}}
	if _, err := reconstructPage(1, bad, profile); !errors.Is(err, reconstruct.ErrInvalidFragment) {
		t.Errorf("expected ErrInvalidFragment, got %v", err)
	}

	page, err = reconstructPage(1, []reconstruct.TextFragment{frag("only", 10, 10), frag("line", 58, 11)}, profile)
	if err != nil {
		t.Fatal(err)
	}
	if page.Layout.Kind != LayoutText || len(page.Lines) != 1 {
		t.Errorf("page = %+v", page)
	}
	if page.Fallback || page.Rows != len(page.Lines) {
		t.Errorf("grid should come from the grouped lines: rows=%d lines=%d fallback=%v", page.Rows, len(page.Lines), page.Fallback)
	}
	if page.Confidence != 90 {
		t.Errorf("mean confidence = %v", page.Confidence)
	}
}

func TestDetectTableRegions(t *testing.T) {
	got := detectTableRegions([]int{1, 3, 3, 2, 0, 2, 1, 4, 4})
	want := []TableRegion{
		{StartRow: 1, EndRow: 3, Columns: 3},
		{StartRow: 7, EndRow: 8, Columns: 4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("detectTableRegions() = %+v, want %+v", got, want)
	}
}

func TestProcessResultText(t *testing.T) {
	lines := reconstruct.GroupLines([]reconstruct.TextFragment{
		frag("Item", 10, 10), frag("total", 58, 10),
		frag("next", 10, 40),
	}, 15)
	result := &ProcessResult{Pages: []PageResult{{PageNumber: 1, Lines: lines}, {PageNumber: 2}}}

	if got, want := result.Text(0.4), "Item  total\nnext\n\n"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}
