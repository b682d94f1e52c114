package depthbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient talks to a remote depth inference service. The service is
// expected to share a filesystem with the pipeline (same-host deployment):
// requests carry paths, and the service writes the NPZ artifact itself.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient constructs a remote-mode client.
func NewHTTPClient(baseURL string, timeoutSeconds int) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("depth backend URL required")
	}
	timeout := time.Duration(timeoutSeconds) * time.Second
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Status probes the service health endpoint. Used by preflight: a remote
// backend that cannot answer /status fails the run before any stage work.
func (c *HTTPClient) Status(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return fmt.Errorf("depth backend status: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("depth backend status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("depth backend status: %s", resp.Status)
	}
	return nil
}

type inferRequest struct {
	Video      string  `json:"video"`
	Resolution int     `json:"resolution"`
	FPS        float64 `json:"fps,omitempty"`
	Output     string  `json:"output"`
}

type inferResponse struct {
	OK  bool   `json:"ok"`
	Log string `json:"log"`
}

// Infer posts one scene to the service and waits for completion.
func (c *HTTPClient) Infer(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.SceneVideo) == "" {
		return Result{}, errors.New("depth backend: scene video required")
	}
	if strings.TrimSpace(req.OutputNPZ) == "" {
		return Result{}, errors.New("depth backend: output path required")
	}

	payload, err := json.Marshal(inferRequest{
		Video:      req.SceneVideo,
		Resolution: req.Resolution,
		FPS:        req.FPS,
		Output:     req.OutputNPZ,
	})
	if err != nil {
		return Result{}, fmt.Errorf("depth backend: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/infer", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("depth backend: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("depth backend infer: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if readErr != nil {
		return Result{}, fmt.Errorf("depth backend infer: read response: %w", readErr)
	}

	// Non-200 responses surface the body as combined output so the
	// classifier can detect service-side exhaustion reports.
	if resp.StatusCode != http.StatusOK {
		return Result{Output: string(body)}, fmt.Errorf("depth backend infer: %s", resp.Status)
	}

	var decoded inferResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Result{Output: string(body)}, fmt.Errorf("depth backend infer: decode response: %w", err)
	}
	if !decoded.OK {
		return Result{Output: decoded.Log}, errors.New("depth backend infer: service reported failure")
	}
	return Result{Output: decoded.Log}, nil
}
