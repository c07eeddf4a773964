package humanizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// HTTPClient implements Client against the upstream HTTP API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient constructs an HTTPClient. The timeout bounds the whole
// request; an expired timeout surfaces as an ordinary error.
func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("HUMANIZER_URL is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type humanizeRequest struct {
	Text string `json:"text"`
}

type humanizeResponse struct {
	Result string `json:"result"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// Humanize sends the text upstream and returns the rewritten version.
func (c *HTTPClient) Humanize(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(humanizeRequest{Text: text})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/humanize", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("humanizer request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("humanizer read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("humanizer http status %d", resp.StatusCode)
	}

	// The upstream sometimes serves an HTML login page with a 200 status.
	if !json.Valid(body) {
		return "", fmt.Errorf("humanizer returned non-JSON body (%d bytes)", len(body))
	}

	var parsed humanizeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("humanizer decode: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("humanizer error: %s", parsed.Error)
	}

	result := parsed.Result
	if result == "" {
		result = parsed.Output
	}
	if strings.TrimSpace(result) == "" {
		return "", ErrEmptyResult
	}
	return result, nil
}
