package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"too large", NewFileTooLargeError("j", 60<<20, 50<<20), http.StatusBadRequest},
		{"unsupported", NewUnsupportedFormatError("j", "image/png"), http.StatusBadRequest},
		{"unknown engine", NewUnknownEngineError("paddle", []string{"tesseract"}), http.StatusBadRequest},
		{"unknown profile", NewUnknownProfileError("x", nil), http.StatusBadRequest},
		{"not found", NewNotFoundError("j"), http.StatusNotFound},
		{"unavailable", NewUnavailableError("job queue"), http.StatusServiceUnavailable},
		{"timeout", NewProcessingTimeoutError("j", time.Minute, nil), http.StatusGatewayTimeout},
		{"wrapped", fmt.Errorf("outer: %w", NewInvalidInputError("no file")), http.StatusBadRequest},
		{"ocr", NewOCRFailedError("j", "tesseract", 1, stderrors.New("boom")), http.StatusInternalServerError},
		{"plain", stderrors.New("plain"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := HTTPStatus(tc.err); got != tc.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestProcessingErrorUnwrapAndMap(t *testing.T) {
	cause := stderrors.New("tesseract crashed")
	err := NewOCRFailedError("job-1", "tesseract", 3, cause).WithDetail("words", 0)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable through Unwrap")
	}

	m := err.ToMap()
	if m["error_code"] != "OCR_FAILED" {
		t.Errorf("error_code = %v", m["error_code"])
	}
	if m["page"] != 3 || m["engine"] != "tesseract" || m["words"] != 0 {
		t.Errorf("details missing from map: %v", m)
	}
	if m["cause"] != "tesseract crashed" {
		t.Errorf("cause = %v", m["cause"])
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(stderrors.New("x")); got != "" {
		t.Errorf("CodeOf(plain) = %q", got)
	}
	if got := CodeOf(NewStorageFailedError("j", nil)); got != ErrorStorageFailed {
		t.Errorf("CodeOf() = %q", got)
	}
}
