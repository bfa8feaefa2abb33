/**
 * Document Processor for the PDF extractor
 *
 * Orchestrates one document through the extraction pipeline:
 * - format check (size limit, magic-byte MIME detection; PDF and TIFF only)
 * - engine and calibration profile resolution
 * - page rasterization and concurrent per-page OCR
 * - line grouping, column banding and grid assembly per page
 * - XLSX export with one worksheet per page
 */

package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adverant/nexus/pdf-extractor/internal/config"
	"github.com/adverant/nexus/pdf-extractor/internal/engine"
	apperrors "github.com/adverant/nexus/pdf-extractor/internal/errors"
	"github.com/adverant/nexus/pdf-extractor/internal/logging"
	"github.com/adverant/nexus/pdf-extractor/internal/raster"
	"github.com/adverant/nexus/pdf-extractor/internal/reconstruct"
	"github.com/adverant/nexus/pdf-extractor/internal/sheet"
	"github.com/adverant/nexus/pdf-extractor/internal/storage"
)

const (
	mimePDF  = "application/pdf"
	mimeTIFF = "image/tiff"
)

// DocumentProcessorInterface defines the interface for document processing
type DocumentProcessorInterface interface {
	ProcessDocument(ctx context.Context, req *ProcessRequest) (*ProcessResult, error)
	UpdateJobStatus(ctx context.Context, jobID string, status string, progress int, metadata map[string]interface{}) error
}

// ProcessorConfig holds processor configuration
type ProcessorConfig struct {
	Engines         *engine.Registry
	Profiles        *config.ProfileSet
	DefaultEngine   string
	MaxFileSize     int64
	PageConcurrency int
	StorageManager  *storage.StorageManager // optional; job status is not persisted without it
}

// ProcessRequest represents a document processing request
type ProcessRequest struct {
	JobID      string
	Filename   string
	MimeType   string
	FileBuffer []byte
	Engine     string // empty selects the default engine
	Profile    string // empty selects the default profile
}

// DocumentProcessor handles document processing
type DocumentProcessor struct {
	config  *ProcessorConfig
	storage *storage.StorageManager
	logger  *logging.Logger
}

// NewDocumentProcessor creates a new document processor
func NewDocumentProcessor(cfg *ProcessorConfig) (*DocumentProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Engines == nil || len(cfg.Engines.Names()) == 0 {
		return nil, fmt.Errorf("at least one OCR engine is required")
	}
	if cfg.Profiles == nil {
		return nil, fmt.Errorf("calibration profiles are required")
	}
	if _, ok := cfg.Engines.Get(cfg.DefaultEngine); !ok {
		return nil, fmt.Errorf("default engine %q is not registered (have %v)", cfg.DefaultEngine, cfg.Engines.Names())
	}
	if cfg.PageConcurrency < 1 {
		cfg.PageConcurrency = 1
	}

	return &DocumentProcessor{
		config:  cfg,
		storage: cfg.StorageManager,
		logger:  logging.NewLogger("DocumentProcessor"),
	}, nil
}

// Engines returns the names of the available OCR engines.
func (p *DocumentProcessor) Engines() []string {
	return p.config.Engines.Names()
}

// Profiles returns the names of the available calibration profiles.
func (p *DocumentProcessor) Profiles() []string {
	return p.config.Profiles.Names()
}

// Profile returns the named calibration profile. An empty name selects
// the default.
func (p *DocumentProcessor) Profile(name string) (config.Profile, bool) {
	return p.config.Profiles.Get(name)
}

// ProcessDocument processes a document through the complete pipeline
func (p *DocumentProcessor) ProcessDocument(ctx context.Context, req *ProcessRequest) (*ProcessResult, error) {
	start := time.Now()
	log := p.logger.With("job", req.JobID)
	log.Info("Starting document processing pipeline", "filename", req.Filename, "bytes", len(req.FileBuffer))

	// Step 1: Validate input size and format
	if len(req.FileBuffer) == 0 {
		return nil, apperrors.NewInvalidInputError("empty file")
	}
	if p.config.MaxFileSize > 0 && int64(len(req.FileBuffer)) > p.config.MaxFileSize {
		return nil, apperrors.NewFileTooLargeError(req.JobID, int64(len(req.FileBuffer)), p.config.MaxFileSize)
	}

	detectedMime := detectMimeTypeFromMagicBytes(req.FileBuffer)
	if detectedMime != req.MimeType {
		log.Debug("Corrected MIME type from magic bytes", "declared", req.MimeType, "detected", detectedMime)
	}
	if detectedMime != mimePDF && detectedMime != mimeTIFF {
		mime := detectedMime
		if mime == "" {
			mime = req.MimeType
		}
		return nil, apperrors.NewUnsupportedFormatError(req.JobID, mime)
	}
	req.MimeType = detectedMime

	// Step 2: Resolve engine and calibration profile
	engineName := req.Engine
	if engineName == "" {
		engineName = p.config.DefaultEngine
	}
	eng, ok := p.config.Engines.Get(engineName)
	if !ok {
		return nil, apperrors.NewUnknownEngineError(engineName, p.config.Engines.Names())
	}
	profile, ok := p.config.Profiles.Get(req.Profile)
	if !ok {
		return nil, apperrors.NewUnknownProfileError(req.Profile, p.config.Profiles.Names())
	}
	log.Info("Resolved engine and profile", "engine", eng.Name(), "profile", profile.Name, "dpi", profile.RenderDPI)

	// Step 3: Open document
	doc, err := raster.Open(req.FileBuffer)
	if err != nil {
		return nil, apperrors.NewRasterizeFailedError(req.JobID, err)
	}
	defer doc.Close()

	pageCount := doc.PageCount()
	if pageCount == 0 {
		return nil, apperrors.NewRasterizeFailedError(req.JobID, errors.New("document has no pages"))
	}
	log.Info("Document opened", "mime", req.MimeType, "pages", pageCount)

	// Step 4: Rasterize, recognize and reconstruct pages concurrently
	pages := make([]PageResult, pageCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.PageConcurrency)

	for i := 0; i < pageCount; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rendered, err := doc.RenderPage(i, profile.RenderDPI)
			if err != nil {
				return apperrors.NewRasterizeFailedError(req.JobID, err).WithDetail("page", i+1)
			}

			frags, err := eng.Recognize(gctx, engine.PageImage{
				Index:  i,
				PNG:    rendered.PNG,
				Width:  rendered.Width(),
				Height: rendered.Height(),
				DPI:    rendered.DPI,
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if errors.Is(err, reconstruct.ErrInvalidFragment) {
					return apperrors.NewInvalidFragmentError(req.JobID, i+1, err)
				}
				return apperrors.NewOCRFailedError(req.JobID, eng.Name(), i+1, err)
			}

			page, err := reconstructPage(i+1, frags, profile)
			if err != nil {
				return apperrors.NewInvalidFragmentError(req.JobID, i+1, err)
			}
			pages[i] = page

			log.Debug("Page reconstructed",
				"page", i+1,
				"fragments", page.Fragments,
				"kept", page.KeptFragments,
				"rows", page.Rows,
				"columns", page.Columns,
				"fallback", page.Fallback)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("Page processing failed", "error", err)
		return nil, err
	}

	// Step 5: Write workbook
	wb := sheet.NewWorkbook()
	defer wb.Close()
	for _, page := range pages {
		if err := wb.AddPage(page.PageNumber, page.Grid); err != nil {
			return nil, apperrors.NewStorageFailedError(req.JobID, err)
		}
	}
	workbook, err := wb.Bytes()
	if err != nil {
		return nil, apperrors.NewStorageFailedError(req.JobID, err)
	}

	result := &ProcessResult{
		JobID:            req.JobID,
		Workbook:         workbook,
		Filename:         sheet.OutputFilename(req.Filename),
		MimeType:         req.MimeType,
		Engine:           eng.Name(),
		Profile:          profile.Name,
		Pages:            pages,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}

	log.Info("Processing pipeline complete",
		"pages", len(pages),
		"sheets", wb.Pages(),
		"workbookBytes", len(workbook),
		"durationMs", result.ProcessingTimeMs)

	return result, nil
}

// reconstructPage filters, groups and assembles one page. Lines are grouped
// once and shared by the grid and the raw-line fallback.
func reconstructPage(pageNumber int, frags []reconstruct.TextFragment, profile config.Profile) (PageResult, error) {
	kept := reconstruct.FilterByConfidence(frags, profile.MinConfidence)
	for i, f := range kept {
		if err := f.Validate(); err != nil {
			return PageResult{}, fmt.Errorf("fragment %d: %w", i, err)
		}
	}

	lines := reconstruct.GroupLines(kept, profile.LineTolerance)
	var lefts []float64
	for _, l := range lines {
		lefts = append(lefts, l.Lefts()...)
	}

	// Every non-empty line contributes a left edge, so the fallback only
	// guards against a band-less clustering.
	grid, err := reconstruct.AssembleGrid(lines, reconstruct.ClusterColumns(lefts))
	fallback := false
	if errors.Is(err, reconstruct.ErrNoColumnsDetected) {
		grid = reconstruct.LinesAsRows(lines, profile.SpaceRatio)
		fallback = true
	} else if err != nil {
		return PageResult{}, err
	}

	page := PageResult{
		PageNumber:    pageNumber,
		Fragments:     len(frags),
		KeptFragments: len(kept),
		Rows:          len(grid),
		Columns:       grid.Width(),
		Fallback:      fallback,
		Confidence:    meanConfidence(kept),
		Grid:          grid,
		Lines:         lines,
	}
	page.Layout = analyzeLayout(grid)
	return page, nil
}

func meanConfidence(frags []reconstruct.TextFragment) float64 {
	if len(frags) == 0 {
		return 0
	}
	var sum float64
	for _, f := range frags {
		sum += f.Confidence
	}
	return sum / float64(len(frags))
}

// UpdateJobStatus updates job status in database
func (p *DocumentProcessor) UpdateJobStatus(ctx context.Context, jobID string, status string, progress int, metadata map[string]interface{}) error {
	if p.storage == nil {
		return nil
	}

	update := &storage.JobUpdate{
		JobID:    jobID,
		Status:   status,
		Progress: progress,
		Metadata: metadata,
	}

	// Extract specific fields from metadata if present
	if metadata != nil {
		if filename, ok := metadata["filename"].(string); ok {
			update.Filename = filename
		}
		if engineName, ok := metadata["engine"].(string); ok {
			update.Engine = engineName
		}
		if profile, ok := metadata["profile"].(string); ok {
			update.Profile = profile
		}
		if pages, ok := metadata["pages"].(int); ok {
			update.PageCount = pages
		}
		if processingTime, ok := metadata["processingTime"].(int64); ok {
			update.ProcessingTimeMs = processingTime
		}
		if code, ok := metadata["error_code"].(string); ok {
			update.ErrorCode = code
		}
		if errorMsg, ok := metadata["error"].(string); ok {
			if update.ErrorCode == "" {
				update.ErrorCode = "PROCESSING_ERROR"
			}
			update.ErrorMessage = errorMsg
		}
	}

	return p.storage.UpdateJobStatus(ctx, update)
}

// detectMimeTypeFromMagicBytes detects the actual MIME type from file content magic bytes
// Uploads frequently arrive as "application/octet-stream"
func detectMimeTypeFromMagicBytes(data []byte) string {
	if len(data) < 4 {
		return ""
	}

	// PDF: %PDF-
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return mimePDF
	}

	// TIFF: 'I' 'I' 0x2A 0x00 (little-endian) or 'M' 'M' 0x00 0x2A (big-endian)
	if bytes.HasPrefix(data, []byte{0x49, 0x49, 0x2A, 0x00}) || bytes.HasPrefix(data, []byte{0x4D, 0x4D, 0x00, 0x2A}) {
		return mimeTIFF
	}

	// PNG: 0x89 'P' 'N' 'G' 0x0D 0x0A 0x1A 0x0A
	if len(data) >= 8 && bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}) {
		return "image/png"
	}

	// JPEG: 0xFF 0xD8 0xFF
	if bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}) {
		return "image/jpeg"
	}

	// ZIP (and Office documents): 'P' 'K' 0x03 0x04
	if bytes.HasPrefix(data, []byte{0x50, 0x4B, 0x03, 0x04}) {
		return "application/zip"
	}

	return ""
}
