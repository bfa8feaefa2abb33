package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/adverant/nexus/pdf-extractor/internal/convert"
	apperrors "github.com/adverant/nexus/pdf-extractor/internal/errors"
)

// ConvertHandler serves TIFF to PDF conversion.
type ConvertHandler struct {
	maxFileSize int64
}

// NewConvertHandler builds the handler.
func NewConvertHandler(maxFileSize int64) *ConvertHandler {
	return &ConvertHandler{maxFileSize: maxFileSize}
}

func (h *ConvertHandler) readTIFF(c *gin.Context) (*upload, bool) {
	up, err := readUpload(c, h.maxFileSize)
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	if !convert.IsTIFF(up.Filename, up.ContentType) {
		abortWithError(c, apperrors.NewUnsupportedFormatError("", up.ContentType).
			WithDetail("filename", up.Filename))
		return nil, false
	}
	return up, true
}

// HandleConvert converts an uploaded TIFF into a PDF download. The
// optimize form or query value defaults to true.
func (h *ConvertHandler) HandleConvert(c *gin.Context) {
	up, ok := h.readTIFF(c)
	if !ok {
		return
	}

	optimize := true
	if raw := c.DefaultPostForm("optimize", c.Query("optimize")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			abortWithError(c, apperrors.NewInvalidInputError("optimize must be a boolean"))
			return
		}
		optimize = v
	}

	pdf, err := convert.TIFFToPDF(c.Request.Context(), up.Data, optimize)
	if err != nil {
		abortWithError(c, apperrors.NewConversionFailedError(up.Filename, err))
		return
	}

	attachment(c, convert.PDFFilename(up.Filename), "application/pdf", pdf)
}

// HandleInfo reports TIFF metadata without converting.
func (h *ConvertHandler) HandleInfo(c *gin.Context) {
	up, ok := h.readTIFF(c)
	if !ok {
		return
	}

	info, err := convert.Inspect(up.Filename, up.Data)
	if err != nil {
		abortWithError(c, apperrors.NewConversionFailedError(up.Filename, err))
		return
	}

	c.JSON(http.StatusOK, info)
}
