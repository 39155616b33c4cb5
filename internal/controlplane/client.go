// Package controlplane is a client for the HTTP control plane served by
// "dragonlog run". The CLI uses it to inspect a running instance.
package controlplane

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/winter-dragon/dragonlog/internal/gateway"
)

// Client is a minimal client for the local control plane API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for baseURL, e.g. http://127.0.0.1:6090.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ForPort returns a Client for a control plane on localhost.
func ForPort(port int) *Client {
	return New(fmt.Sprintf("http://127.0.0.1:%d", port))
}

// Health is the body of GET /health.
type Health struct {
	Status   string                  `json:"status"`
	Error    string                  `json:"error,omitempty"`
	Pipeline gateway.HeartbeatStatus `json:"pipeline"`
}

// Health calls GET /health. A database outage is reported in the result
// rather than as an error.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.get(ctx, "/health", &out, http.StatusServiceUnavailable); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status calls GET /api/status.
func (c *Client) Status(ctx context.Context) (*gateway.Status, error) {
	var out gateway.Status
	if err := c.get(ctx, "/api/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Actions calls GET /api/actions.
func (c *Client) Actions(ctx context.Context) ([]gateway.ActionInfo, error) {
	var out []gateway.ActionInfo
	if err := c.get(ctx, "/api/actions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// get decodes a JSON response into dst. Statuses other than 2xx and the
// listed extra codes are converted to descriptive errors.
func (c *Client) get(ctx context.Context, path string, dst any, okStatus ...int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req) // #nosec G107 -- the base URL is the local control plane
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", c.baseURL+path, err)
	}
	defer res.Body.Close() //nolint:errcheck

	b, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	ok := res.StatusCode >= 200 && res.StatusCode < 300
	for _, s := range okStatus {
		ok = ok || res.StatusCode == s
	}
	if !ok {
		var apiErr struct {
			Error string `json:"error"`
		}
		if jsonErr := json.Unmarshal(b, &apiErr); jsonErr == nil && apiErr.Error != "" {
			return fmt.Errorf("control plane error (%d): %s", res.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("control plane returned %d", res.StatusCode)
	}

	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
