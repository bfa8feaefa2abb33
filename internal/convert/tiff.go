/**
 * TIFF utilities
 *
 * Converts scanned TIFF files (single or multi-page) into PDF and reports
 * TIFF metadata without converting. Multi-page TIFFs are split through
 * MuPDF since x/image/tiff only decodes the first frame.
 */

package convert

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/tiff"

	"github.com/adverant/nexus/pdf-extractor/internal/logging"
	"github.com/adverant/nexus/pdf-extractor/internal/raster"
)

// Accepted upload extensions and content types.
var (
	tiffExtensions   = map[string]bool{".tif": true, ".tiff": true}
	tiffContentTypes = map[string]bool{"image/tiff": true, "image/tif": true, "image/x-tiff": true}
)

const fallbackDPI = 150

func logger() *logging.Logger { return logging.NewLogger("Convert") }

// TIFFInfo describes a TIFF file.
type TIFFInfo struct {
	Filename  string  `json:"filename"`
	SizeBytes int     `json:"size_bytes"`
	SizeMB    float64 `json:"size_mb"`
	Pages     int     `json:"pages"`
	Format    string  `json:"format"`
	Mode      string  `json:"mode"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	DPI       int     `json:"dpi,omitempty"`
}

// IsTIFF validates an upload by extension and, when present, content type.
func IsTIFF(filename, contentType string) bool {
	if !tiffExtensions[strings.ToLower(filepath.Ext(filename))] {
		return false
	}
	if contentType == "" || contentType == "application/octet-stream" {
		return true
	}
	return tiffContentTypes[strings.ToLower(contentType)]
}

// IsTIFFData reports whether data starts with a TIFF byte-order header.
func IsTIFFData(data []byte) bool {
	return bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*"))
}

// Inspect reads TIFF metadata.
func Inspect(filename string, data []byte) (*TIFFInfo, error) {
	cfg, err := tiff.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid TIFF: %w", err)
	}

	info := &TIFFInfo{
		Filename:  filename,
		SizeBytes: len(data),
		SizeMB:    math.Round(float64(len(data))/1024/1024*100) / 100,
		Pages:     1,
		Format:    "TIFF",
		Mode:      colorModeName(cfg.ColorModel),
		Width:     cfg.Width,
		Height:    cfg.Height,
	}

	doc, err := raster.Open(data)
	if err != nil {
		logger().Warn("MuPDF could not open TIFF, assuming one page", "filename", filename, "error", err)
		return info, nil
	}
	defer doc.Close()

	info.Pages = doc.PageCount()
	info.DPI = nativeDPI(doc, cfg.Width)
	return info, nil
}

// TIFFToPDF converts every page of a TIFF into one PDF page each. When
// optimize is set the result is run through the pdfcpu optimizer.
func TIFFToPDF(ctx context.Context, data []byte, optimize bool) ([]byte, error) {
	cfg, err := tiff.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid TIFF: %w", err)
	}

	pages := 1
	var doc *raster.Document
	if d, err := raster.Open(data); err == nil {
		doc = d
		defer doc.Close()
		pages = doc.PageCount()
	}

	var imgs []io.Reader
	if pages <= 1 || doc == nil {
		logger().Info("Converting single-page TIFF", "width", cfg.Width, "height", cfg.Height)
		imgs = append(imgs, bytes.NewReader(data))
	} else {
		dpi := nativeDPI(doc, cfg.Width)
		logger().Info("Converting multi-page TIFF", "pages", pages, "dpi", dpi)
		for i := 0; i < pages; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			page, err := doc.RenderPage(i, dpi)
			if err != nil {
				return nil, err
			}
			imgs = append(imgs, bytes.NewReader(page.PNG))
		}
	}

	return imagesToPDF(imgs, optimize)
}

func imagesToPDF(imgs []io.Reader, optimize bool) ([]byte, error) {
	conf := model.NewDefaultConfiguration()

	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, imgs, pdfcpu.DefaultImportConfig(), conf); err != nil {
		return nil, fmt.Errorf("pdfcpu import: %w", err)
	}

	if !optimize {
		return out.Bytes(), nil
	}

	var optimized bytes.Buffer
	if err := api.Optimize(bytes.NewReader(out.Bytes()), &optimized, conf); err != nil {
		return nil, fmt.Errorf("pdfcpu optimize: %w", err)
	}
	return optimized.Bytes(), nil
}

// PDFPageCount returns the number of pages of a PDF.
func PDFPageCount(data []byte) (int, error) {
	return api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
}

// nativeDPI derives the resolution MuPDF assumed for the first frame so
// frames are rendered back at their original pixel size.
func nativeDPI(doc *raster.Document, pixelWidth int) int {
	widthPts, _, err := doc.PageSize(0)
	if err != nil || widthPts <= 0 || pixelWidth <= 0 {
		return fallbackDPI
	}
	return int(math.Round(float64(pixelWidth) * 72 / widthPts))
}

func colorModeName(m color.Model) string {
	// Palettes are slices and must be matched before comparing models.
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	switch m {
	case color.GrayModel, color.Gray16Model:
		return "L"
	case color.RGBAModel, color.RGBA64Model:
		return "RGB"
	case color.NRGBAModel, color.NRGBA64Model:
		return "RGBA"
	case color.CMYKModel:
		return "CMYK"
	}
	return "unknown"
}
