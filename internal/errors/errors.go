package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

/**
 * Structured error types for the PDF extractor
 *
 * Every failure that crosses a package boundary (pipeline, queue, HTTP)
 * is a *ProcessingError carrying a stable code. Callers branch on the code,
 * the HTTP layer maps it to a status and the job store persists ToMap().
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Processing errors
	ErrorProcessingTimeout ErrorCode = "PROCESSING_TIMEOUT"
	ErrorOCRFailed         ErrorCode = "OCR_FAILED"
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrorFileTooLarge      ErrorCode = "FILE_TOO_LARGE"
	ErrorInvalidFragment   ErrorCode = "INVALID_FRAGMENT"
	ErrorNoColumns         ErrorCode = "NO_COLUMNS_DETECTED"
	ErrorRasterizeFailed   ErrorCode = "RASTERIZE_FAILED"
	ErrorConversionFailed  ErrorCode = "CONVERSION_FAILED"

	// Request errors
	ErrorUnknownEngine  ErrorCode = "UNKNOWN_ENGINE"
	ErrorUnknownProfile ErrorCode = "UNKNOWN_PROFILE"
	ErrorInvalidInput   ErrorCode = "INVALID_INPUT"

	// Storage errors
	ErrorStorageFailed  ErrorCode = "STORAGE_FAILED"
	ErrorDatabaseFailed ErrorCode = "DATABASE_FAILED"
	ErrorNotFound       ErrorCode = "NOT_FOUND"
	ErrorUnavailable    ErrorCode = "SERVICE_UNAVAILABLE"
)

// ProcessingError represents a structured processing error
type ProcessingError struct {
	Code      ErrorCode
	Message   string
	JobID     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches one detail entry and returns e for chaining.
func (e *ProcessingError) WithDetail(key string, value interface{}) *ProcessingError {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// Factory functions for common errors

func NewProcessingTimeoutError(jobID string, duration time.Duration, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorProcessingTimeout,
		Message:   fmt.Sprintf("Processing timed out after %v", duration),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": duration.String(),
		},
		Cause: cause,
	}
}

func NewOCRFailedError(jobID string, engine string, page int, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorOCRFailed,
		Message:   fmt.Sprintf("OCR failed on page %d with engine %s", page, engine),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"engine": engine,
			"page":   page,
		},
		Cause: cause,
	}
}

func NewUnsupportedFormatError(jobID string, mimeType string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorUnsupportedFormat,
		Message:   fmt.Sprintf("Unsupported file format: %s", mimeType),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"mime_type": mimeType,
		},
	}
}

func NewFileTooLargeError(jobID string, size, limit int64) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorFileTooLarge,
		Message:   fmt.Sprintf("File too large: %d bytes (max %d MB)", size, limit/(1024*1024)),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"size_bytes":  size,
			"limit_bytes": limit,
		},
	}
}

func NewInvalidFragmentError(jobID string, page int, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorInvalidFragment,
		Message:   fmt.Sprintf("Engine returned a malformed fragment on page %d", page),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"page": page,
		},
		Cause: cause,
	}
}

func NewRasterizeFailedError(jobID string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorRasterizeFailed,
		Message:   "Failed to rasterize document",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewConversionFailedError(filename string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorConversionFailed,
		Message:   fmt.Sprintf("Failed to convert %s", filename),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"filename": filename,
		},
		Cause: cause,
	}
}

func NewUnknownEngineError(name string, available []string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorUnknownEngine,
		Message:   fmt.Sprintf("Unknown OCR engine: %s", name),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"available": available,
		},
	}
}

func NewUnknownProfileError(name string, available []string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorUnknownProfile,
		Message:   fmt.Sprintf("Unknown calibration profile: %s", name),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"available": available,
		},
	}
}

func NewInvalidInputError(message string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorInvalidInput,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewStorageFailedError(jobID string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorStorageFailed,
		Message:   "Failed to store processing results",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewDatabaseFailedError(jobID string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorDatabaseFailed,
		Message:   "Database operation failed",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewNotFoundError(jobID string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorNotFound,
		Message:   fmt.Sprintf("Job not found: %s", jobID),
		JobID:     jobID,
		Timestamp: time.Now(),
	}
}

// NewUnavailableError reports a feature whose backend is not configured.
func NewUnavailableError(feature string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorUnavailable,
		Message:   fmt.Sprintf("%s is not configured", feature),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"feature": feature,
		},
	}
}

// CodeOf returns the code of the first ProcessingError in err's chain, or
// an empty code.
func CodeOf(err error) ErrorCode {
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// HTTPStatus maps an error to the status code the API answers with.
// Client-side problems are 400, missing jobs 404, missing backends 503,
// timeouts 504 and everything else 500.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrorUnsupportedFormat, ErrorFileTooLarge, ErrorUnknownEngine,
		ErrorUnknownProfile, ErrorInvalidInput:
		return http.StatusBadRequest
	case ErrorNotFound:
		return http.StatusNotFound
	case ErrorUnavailable:
		return http.StatusServiceUnavailable
	case ErrorProcessingTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ToMap converts error to map for database storage
func (e *ProcessingError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
