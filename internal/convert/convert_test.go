package convert

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/tiff"
)

func grayTIFF(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 251)
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		t.Fatalf("tiff.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"relatório final.tiff", "relatorio_final.tiff"},
		{"Nota Fiscal - Março (2).tif", "Nota_Fiscal_Marco_2.tif"},
		{"a--b  c.TIF", "a_b_c.TIF"},
		{"noext", "noext"},
		{"quote\".tif\"", "quote.tif"},
		{"ação", "acao"},
	}
	for _, tc := range tests {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	long := SanitizeFilename(string(bytes.Repeat([]byte("x"), 150)) + ".tif")
	if long != string(bytes.Repeat([]byte("x"), 100))+".tif" {
		t.Errorf("long name not truncated: %d chars", len(long))
	}
}

func TestPDFFilename(t *testing.T) {
	if got := PDFFilename("Digitalização 01.tiff"); got != "Digitalizacao_01.pdf" {
		t.Errorf("PDFFilename() = %q", got)
	}
	if got := PDFFilename("ção.tif"); got != "cao.pdf" {
		t.Errorf("PDFFilename() = %q", got)
	}
	if got := PDFFilename("###.tif"); got != "document.pdf" {
		t.Errorf("PDFFilename() = %q", got)
	}
}

func TestIsTIFF(t *testing.T) {
	tests := []struct {
		name, contentType string
		want              bool
	}{
		{"scan.tif", "image/tiff", true},
		{"scan.TIFF", "", true},
		{"scan.tiff", "image/x-tiff", true},
		{"scan.tiff", "application/octet-stream", true},
		{"scan.tiff", "image/png", false},
		{"scan.png", "image/tiff", false},
	}
	for _, tc := range tests {
		if got := IsTIFF(tc.name, tc.contentType); got != tc.want {
			t.Errorf("IsTIFF(%q, %q) = %v, want %v", tc.name, tc.contentType, got, tc.want)
		}
	}
}

func TestInspect(t *testing.T) {
	data := grayTIFF(t, 64, 40)
	if !IsTIFFData(data) {
		t.Fatal("encoded TIFF not recognized by header")
	}

	info, err := Inspect("scan.tif", data)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if info.Width != 64 || info.Height != 40 || info.Pages != 1 {
		t.Errorf("info = %+v", info)
	}
	if info.Format != "TIFF" || info.Mode != "L" || info.SizeBytes != len(data) {
		t.Errorf("info = %+v", info)
	}

	if _, err := Inspect("bad.tif", []byte("not a tiff")); err == nil {
		t.Error("expected error for invalid TIFF")
	}
}

func TestColorModeName(t *testing.T) {
	if got := colorModeName(color.Palette{color.Black, color.White}); got != "P" {
		t.Errorf("palette = %q", got)
	}
	if got := colorModeName(color.CMYKModel); got != "CMYK" {
		t.Errorf("cmyk = %q", got)
	}
}

func TestTIFFToPDF(t *testing.T) {
	data := grayTIFF(t, 200, 100)

	for _, optimize := range []bool{false, true} {
		pdf, err := TIFFToPDF(context.Background(), data, optimize)
		if err != nil {
			t.Fatalf("TIFFToPDF(optimize=%v) error = %v", optimize, err)
		}
		if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
			t.Fatalf("output is not a PDF: %q", pdf[:min(len(pdf), 8)])
		}
		n, err := PDFPageCount(pdf)
		if err != nil {
			t.Fatalf("PDFPageCount() error = %v", err)
		}
		if n != 1 {
			t.Errorf("pages = %d, want 1", n)
		}
	}

	if _, err := TIFFToPDF(context.Background(), []byte("%PDF-1.4"), true); err == nil {
		t.Error("expected error for non-TIFF input")
	}
}
