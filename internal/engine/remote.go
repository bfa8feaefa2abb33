/**
 * Remote engine - HTTP adapter for model sidecars
 *
 * Deep-learning recognizers (PaddleOCR, EasyOCR, Surya) run as a separate
 * HTTP service. This adapter sends one page per request and converts the
 * reply into fragments. Replies carry either corner-point polygons or
 * [left, top, width, height] boxes, and scores on [0,1].
 */

package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adverant/nexus/pdf-extractor/internal/logging"
	"github.com/adverant/nexus/pdf-extractor/internal/reconstruct"
)

// Model names accepted by the sidecar.
var remoteModels = map[string]bool{
	"paddle":  true,
	"easyocr": true,
	"surya":   true,
}

// RemoteConfig holds remote engine configuration
type RemoteConfig struct {
	BaseURL   string
	Model     string // paddle, easyocr or surya
	Languages []string
	Timeout   time.Duration
}

// RemoteEngine calls an OCR sidecar over HTTP.
type RemoteEngine struct {
	baseURL    string
	model      string
	languages  []string
	httpClient *http.Client
	logger     *logging.Logger
}

// RecognizeRequest is the body posted to {baseURL}/recognize.
type RecognizeRequest struct {
	Engine    string   `json:"engine"`
	Page      int      `json:"page"`
	Image     string   `json:"image"` // base64 PNG
	Languages []string `json:"languages,omitempty"`
}

// RecognizeResponse is the sidecar reply.
type RecognizeResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Items   []RecognizeItem `json:"items"`
}

// RecognizeItem is one recognized token. Exactly one of Polygon or BBox is
// expected.
type RecognizeItem struct {
	Text    string       `json:"text"`
	Score   float64      `json:"score"`
	Polygon [][2]float64 `json:"polygon,omitempty"`
	BBox    []float64    `json:"bbox,omitempty"`
}

// NewRemoteEngine creates a remote engine. Unknown models are rejected.
func NewRemoteEngine(cfg *RemoteConfig) (*RemoteEngine, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote OCR URL is required")
	}
	if !remoteModels[cfg.Model] {
		return nil, fmt.Errorf("unsupported remote OCR model %q", cfg.Model)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &RemoteEngine{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		languages:  cfg.Languages,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewLogger("RemoteEngine"),
	}, nil
}

// Name returns the model name, which is also the registry key.
func (e *RemoteEngine) Name() string { return e.model }

// Recognize posts the page and converts the reply to fragments.
func (e *RemoteEngine) Recognize(ctx context.Context, page PageImage) ([]reconstruct.TextFragment, error) {
	reqBody, err := json.Marshal(&RecognizeRequest{
		Engine:    e.model,
		Page:      page.Index,
		Image:     base64.StdEncoding.EncodeToString(page.PNG),
		Languages: e.languages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/recognize", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Source", "pdf-extractor")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to OCR sidecar failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OCR sidecar returned error status %d: %s", resp.StatusCode, string(body))
	}

	var out RecognizeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("OCR sidecar operation failed: %s", out.Message)
	}

	frags := make([]reconstruct.TextFragment, 0, len(out.Items))
	for i, item := range out.Items {
		if strings.TrimSpace(item.Text) == "" {
			continue
		}
		f, err := item.Fragment()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		frags = append(frags, f)
	}

	e.logger.Debug("Page recognized",
		"model", e.model,
		"page", page.Index,
		"items", len(out.Items),
		"duration", time.Since(start))

	return frags, nil
}

// Fragment converts the item into a fragment with percent confidence.
func (it RecognizeItem) Fragment() (reconstruct.TextFragment, error) {
	text := strings.TrimSpace(it.Text)
	switch {
	case len(it.Polygon) > 0:
		pts := make([]reconstruct.Point, len(it.Polygon))
		for i, p := range it.Polygon {
			pts[i] = reconstruct.Point{X: p[0], Y: p[1]}
		}
		return reconstruct.FragmentFromPolygon(text, pts, it.Score, 1)
	case len(it.BBox) == 4:
		f := reconstruct.TextFragment{
			Text:       text,
			Left:       it.BBox[0],
			Top:        it.BBox[1],
			Width:      it.BBox[2],
			Height:     it.BBox[3],
			Confidence: reconstruct.NormalizeConfidence(it.Score, 1),
		}
		return f, f.Validate()
	default:
		return reconstruct.TextFragment{}, fmt.Errorf("%w: %q has neither polygon nor 4-value bbox", reconstruct.ErrInvalidFragment, text)
	}
}

// Close releases idle connections.
func (e *RemoteEngine) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}
