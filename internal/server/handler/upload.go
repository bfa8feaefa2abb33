package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/adverant/nexus/pdf-extractor/internal/errors"
)

// upload is a file read from the "file" multipart field.
type upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// multipartOverhead is the allowance for boundaries, headers and other
// form fields on top of the file itself.
const multipartOverhead = 1 << 20

// readUpload reads the "file" field, rejecting files above maxSize. The
// request body is capped before the multipart form is parsed.
func readUpload(c *gin.Context, maxSize int64) (*upload, error) {
	if maxSize > 0 {
		limit := maxSize + multipartOverhead
		if c.Request.ContentLength > limit {
			return nil, apperrors.NewFileTooLargeError("", c.Request.ContentLength, maxSize)
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.NewFileTooLargeError("", tooLarge.Limit, maxSize)
		}
		return nil, apperrors.NewInvalidInputError("missing file")
	}
	if header.Filename == "" {
		return nil, apperrors.NewInvalidInputError("filename not provided")
	}
	if maxSize > 0 && header.Size > maxSize {
		return nil, apperrors.NewFileTooLargeError("", header.Size, maxSize)
	}

	f, err := header.Open()
	if err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("failed to open upload: %v", err))
	}
	defer f.Close()

	r := io.Reader(f)
	if maxSize > 0 {
		r = io.LimitReader(f, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("failed to read upload: %v", err))
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, apperrors.NewFileTooLargeError("", int64(len(data)), maxSize)
	}

	return &upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// abortWithError answers with the status mapped from err.
func abortWithError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	body := gin.H{"error": err.Error()}
	if code := apperrors.CodeOf(err); code != "" {
		body["code"] = string(code)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// attachment sets the download headers for data and writes it.
func attachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
