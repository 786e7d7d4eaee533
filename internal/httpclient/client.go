// Package httpclient is the small JSON/bytes client shared by the provider adapters.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxBody caps any response read into memory.
const maxBody = 32 << 20

// HTTPError is a non-2xx upstream response.
type HTTPError struct {
	Service    string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Service, e.Path, e.StatusCode, e.Body)
}

// HTTPStatus exposes the status code to the retry classifier.
func (e *HTTPError) HTTPStatus() int { return e.StatusCode }

// checkResp returns an error if the status is not 2xx.
// On error it includes the upstream body for debugging.
func checkResp(resp *http.Response, service, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &HTTPError{Service: service, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// Client calls one upstream service.
type Client struct {
	service    string
	baseURL    string
	httpClient *http.Client
}

// New returns a Client for service rooted at baseURL. An empty baseURL means paths are absolute URLs.
func New(service, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		service:    service,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// PostJSON sends body as JSON and decodes the response into out when out is non-nil.
func (c *Client) PostJSON(ctx context.Context, path string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s %s: encode: %w", c.service, path, err)
	}
	data, _, err := c.Do(ctx, http.MethodPost, path, "application/json", headers, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", c.service, path, err)
	}
	return nil
}

// GetJSON fetches path with query and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, headers map[string]string, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	data, _, err := c.Do(ctx, http.MethodGet, path, "", headers, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", c.service, path, err)
	}
	return nil
}

// Fetch downloads an absolute URL and returns the body and its content type.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	return c.Do(ctx, http.MethodGet, rawURL, "", nil, nil)
}

// Do performs a request and returns the body and content type of a 2xx response.
func (c *Client) Do(ctx context.Context, method, path, contentType string, headers map[string]string, body []byte) ([]byte, string, error) {
	target := path
	if c.baseURL != "" && !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + path
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, "", fmt.Errorf("%s %s: %w", c.service, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%s %s: %w", c.service, path, err)
	}
	defer resp.Body.Close()

	if err := checkResp(resp, c.service, path); err != nil {
		return nil, "", err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, "", fmt.Errorf("%s %s: read: %w", c.service, path, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
