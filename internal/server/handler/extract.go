package handler

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adverant/nexus/pdf-extractor/internal/processor"
)

// Extractor runs documents through the extraction pipeline.
type Extractor interface {
	ProcessDocument(ctx context.Context, req *processor.ProcessRequest) (*processor.ProcessResult, error)
	Engines() []string
	Profiles() []string
}

// ExtractHandler serves synchronous extraction.
type ExtractHandler struct {
	extractor   Extractor
	maxFileSize int64
}

// NewExtractHandler builds the handler.
func NewExtractHandler(extractor Extractor, maxFileSize int64) *ExtractHandler {
	return &ExtractHandler{extractor: extractor, maxFileSize: maxFileSize}
}

// HandleProcessPDF extracts an uploaded PDF or TIFF and answers with the
// workbook encoded as base64.
func (h *ExtractHandler) HandleProcessPDF(c *gin.Context) {
	up, err := readUpload(c, h.maxFileSize)
	if err != nil {
		abortWithError(c, err)
		return
	}

	result, err := h.extractor.ProcessDocument(c.Request.Context(), &processor.ProcessRequest{
		JobID:      uuid.NewString(),
		Filename:   up.Filename,
		MimeType:   up.ContentType,
		FileBuffer: up.Data,
		Engine:     c.PostForm("engine"),
		Profile:    c.PostForm("profile"),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"excel_base64":     base64.StdEncoding.EncodeToString(result.Workbook),
		"filename":         result.Filename,
		"engine":           result.Engine,
		"profile":          result.Profile,
		"pages":            result.Pages,
		"processingTimeMs": result.ProcessingTimeMs,
	})
}
