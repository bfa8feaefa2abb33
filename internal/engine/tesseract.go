/**
 * Tesseract engine
 *
 * Local, offline word recognition through gosseract. A fixed pool of
 * clients is created up front; each Recognize call borrows one client for
 * the duration of the page.
 */

package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/adverant/nexus/pdf-extractor/internal/logging"
	"github.com/adverant/nexus/pdf-extractor/internal/reconstruct"
)

// TesseractName is the registry name of the Tesseract engine.
const TesseractName = "tesseract"

// TesseractConfig holds Tesseract configuration
type TesseractConfig struct {
	Languages []string // e.g. ["por", "eng"]
	PoolSize  int
}

// TesseractEngine runs OCR through a pool of gosseract clients.
type TesseractEngine struct {
	languages []string
	pool      chan *gosseract.Client
	all       []*gosseract.Client
	closeOnce sync.Once
	closed    chan struct{}
	logger    *logging.Logger
}

// ParseLanguages splits a Tesseract language list such as "por+eng".
func ParseLanguages(list string) []string {
	var langs []string
	for _, l := range strings.FieldsFunc(list, func(r rune) bool { return r == '+' || r == ',' }) {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}

// NewTesseractEngine creates the engine and its client pool.
func NewTesseractEngine(cfg *TesseractConfig) (*TesseractEngine, error) {
	size := cfg.PoolSize
	if size < 1 {
		size = 1
	}

	e := &TesseractEngine{
		languages: cfg.Languages,
		pool:      make(chan *gosseract.Client, size),
		closed:    make(chan struct{}),
		logger:    logging.NewLogger("TesseractEngine"),
	}

	for i := 0; i < size; i++ {
		client := gosseract.NewClient()
		if len(cfg.Languages) > 0 {
			if err := client.SetLanguage(cfg.Languages...); err != nil {
				client.Close()
				e.Close()
				return nil, fmt.Errorf("set languages: %w", err)
			}
		}
		e.all = append(e.all, client)
		e.pool <- client
	}

	e.logger.Info("Tesseract engine ready", "poolSize", size, "languages", strings.Join(cfg.Languages, "+"))
	return e, nil
}

func (e *TesseractEngine) Name() string { return TesseractName }

func (e *TesseractEngine) acquire(ctx context.Context) (*gosseract.Client, error) {
	select {
	case <-e.closed:
		return nil, ErrEngineClosed
	default:
	}

	select {
	case c := <-e.pool:
		return c, nil
	case <-e.closed:
		return nil, ErrEngineClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *TesseractEngine) release(c *gosseract.Client) {
	e.pool <- c
}

// Recognize returns one fragment per recognized word. Confidence from
// Tesseract is already on the percent scale.
func (e *TesseractEngine) Recognize(ctx context.Context, page PageImage) ([]reconstruct.TextFragment, error) {
	client, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer e.release(client)

	if err := client.SetImageFromBytes(page.PNG); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if page.DPI > 0 {
		if err := client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(page.DPI)); err != nil {
			return nil, fmt.Errorf("set dpi: %w", err)
		}
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	return fragmentsFromBoxes(boxes), nil
}

func fragmentsFromBoxes(boxes []gosseract.BoundingBox) []reconstruct.TextFragment {
	frags := make([]reconstruct.TextFragment, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" || b.Confidence < 0 {
			continue
		}
		frags = append(frags, reconstruct.TextFragment{
			Text:       text,
			Left:       float64(b.Box.Min.X),
			Top:        float64(b.Box.Min.Y),
			Width:      float64(b.Box.Dx()),
			Height:     float64(b.Box.Dy()),
			Confidence: b.Confidence,
		})
	}
	return frags
}

// Close waits for every borrowed client to be released, then closes the
// whole pool. Calls after the first are no-ops.
func (e *TesseractEngine) Close() error {
	var firstErr error
	e.closeOnce.Do(func() {
		close(e.closed)
		for range e.all {
			<-e.pool
		}
		for _, c := range e.all {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
