package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hostel-sync-backend/config"
)

// RemoteError is returned for any network or remote-validation failure. The
// gateway performs no retries; retry policy belongs to the caller.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Client translates typed domain operations into table-scoped requests
// against the remote store's REST API. It owns no state beyond the transport.
type Client struct {
	base    string
	headers map[string]string
	client  *http.Client
}

// NewClient creates a gateway client for the configured remote store.
func NewClient(cfg *config.RemoteConfig) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Gateway will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	headers := make(map[string]string, len(cfg.Headers)+2)
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if cfg.APIKey != "" {
		headers["apikey"] = cfg.APIKey
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}

	return &Client{
		base:    strings.TrimRight(cfg.URL, "/"),
		headers: headers,
		client: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// selectRows performs a filtered select against a table and decodes the rows
// into out, which must be a pointer to a slice.
func (c *Client) selectRows(ctx context.Context, op, table string, params url.Values, out any) error {
	body, err := c.do(ctx, http.MethodGet, table, params, nil)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &RemoteError{Op: op, Err: fmt.Errorf("failed to decode rows: %w", err)}
	}
	return nil
}

// writeRows performs an insert, update or delete against a table.
func (c *Client) writeRows(ctx context.Context, op, method, table string, params url.Values, payload any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return &RemoteError{Op: op, Err: fmt.Errorf("failed to marshal payload: %w", err)}
		}
		body = bytes.NewReader(encoded)
	}
	if _, err := c.do(ctx, method, table, params, body); err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, table string, params url.Values, body io.Reader) ([]byte, error) {
	endpoint := c.base + "/" + table
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("received non-2xx status code %d: %s", resp.StatusCode, truncate(respBody, 256))
	}
	return respBody, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
