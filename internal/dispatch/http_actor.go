// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultHTTPTimeout bounds a single actor request
const DefaultHTTPTimeout = 30 * time.Second

// HTTPActor delivers envelopes as JSON POST requests
type HTTPActor struct {
	url    string
	client *http.Client
}

// NewHTTPActor creates an HTTP actor for the given endpoint
func NewHTTPActor(url string, timeout time.Duration) *HTTPActor {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTTPActor{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Deliver posts the envelope and decodes the JSON response
func (h *HTTPActor) Deliver(ctx context.Context, env Envelope) (map[string]interface{}, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("http: failed to encode envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-ID", env.CorrelationID)
	req.Header.Set("X-Message-ID", env.MessageID)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("http: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http: %d %s", resp.StatusCode, string(bytes.TrimSpace(respBody)))
	}

	var response map[string]interface{}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("http: invalid response body: %w", err)
	}
	return response, nil
}
