/**
 * OCR engine boundary
 *
 * Every recognizer (local Tesseract, remote model sidecars) is reduced to
 * the same contract: a page image in, a flat list of word fragments out,
 * with boxes in pixels and confidence on the percent scale.
 */

package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/adverant/nexus/pdf-extractor/internal/reconstruct"
)

// ErrEngineClosed is returned by Recognize after Close.
var ErrEngineClosed = errors.New("engine closed")

// PageImage is one rasterized page handed to an engine.
type PageImage struct {
	Index  int    // zero-based page index
	PNG    []byte // PNG-encoded raster
	Width  int
	Height int
	DPI    int
}

// Engine recognizes the words on a page image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, page PageImage) ([]reconstruct.TextFragment, error)
	Close() error
}

// Registry is the caller-owned set of opened engines.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// Register adds e under e.Name(). Registering a name twice is an error.
func (r *Registry) Register(e Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[e.Name()]; exists {
		return fmt.Errorf("engine %q already registered", e.Name())
	}
	r.engines[e.Name()] = e
	return nil
}

// Get returns the engine registered under name.
func (r *Registry) Get(name string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	return e, ok
}

// Names returns the registered engine names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every engine and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, e := range r.engines {
		if err := e.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	r.engines = make(map[string]Engine)
	return errors.Join(errs...)
}
