// Package raster turns PDF and TIFF documents into page images through
// MuPDF (go-fitz).
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// ErrPageOutOfRange is returned for a page index outside the document.
var ErrPageOutOfRange = errors.New("page out of range")

// Page is one rendered page.
type Page struct {
	Index int
	Image image.Image
	PNG   []byte
	DPI   int
}

// Width returns the raster width in pixels.
func (p *Page) Width() int { return p.Image.Bounds().Dx() }

// Height returns the raster height in pixels.
func (p *Page) Height() int { return p.Image.Bounds().Dy() }

// Document is an opened PDF or image document.
//
// MuPDF contexts are not goroutine-safe. The primary handle answers
// metadata queries under a mutex; RenderPage opens a private handle from
// the same bytes so pages can be rendered in parallel.
type Document struct {
	mu   sync.Mutex
	doc  *fitz.Document
	data []byte
}

// Open parses data as a PDF, TIFF or other MuPDF-supported document.
func Open(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return &Document{doc: doc, data: data}, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.NumPage()
}

// PageSize returns the page size in points.
func (d *Document) PageSize(index int) (width, height float64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if index < 0 || index >= d.doc.NumPage() {
		return 0, 0, fmt.Errorf("%w: %d", ErrPageOutOfRange, index)
	}
	rect, err := d.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

// RenderPage rasterizes one page at dpi and encodes it as PNG.
func (d *Document) RenderPage(index int, dpi int) (*Page, error) {
	if n := d.PageCount(); index < 0 || index >= n {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, index, n)
	}

	worker, err := fitz.NewFromMemory(d.data)
	if err != nil {
		return nil, fmt.Errorf("failed to open render handle: %w", err)
	}
	defer worker.Close()

	img, err := worker.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", index+1, err)
	}

	encoded, err := EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode page %d: %w", index+1, err)
	}

	return &Page{Index: index, Image: img, PNG: encoded, DPI: dpi}, nil
}

// Close releases the MuPDF handle.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Close()
}

var (
	bufPool = sync.Pool{New: func() interface{} { return new(bytes.Buffer) }}
	encoder = png.Encoder{CompressionLevel: png.BestSpeed, BufferPool: &encoderPool{}}
)

type encoderPool struct{ p sync.Pool }

func (e *encoderPool) Get() *png.EncoderBuffer {
	b, _ := e.p.Get().(*png.EncoderBuffer)
	return b
}

func (e *encoderPool) Put(b *png.EncoderBuffer) { e.p.Put(b) }

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)

	if err := encoder.Encode(buf, img); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}
