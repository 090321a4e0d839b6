package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxSnapshotBytes = 1 << 20

// SnapshotClient reads the current status of an order. HTTPClient may be an
// httptest client in tests.
type SnapshotClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// FetchSnapshot calls GET /orders/{id}. Transport failures and non-2xx
// responses return *FetchError; malformed bodies return *ParseError.
func (c *SnapshotClient) FetchSnapshot(ctx context.Context, id OrderID) (OrderSnapshot, error) {
	if c == nil || c.HTTPClient == nil {
		return OrderSnapshot{}, fmt.Errorf("http client not set")
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/orders/" + url.PathEscape(string(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return OrderSnapshot{}, &FetchError{OrderID: id, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return OrderSnapshot{}, &FetchError{OrderID: id, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return OrderSnapshot{}, &FetchError{OrderID: id, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return OrderSnapshot{}, &FetchError{OrderID: id, Err: err}
	}
	return ParseSnapshot(body)
}

// NewDefaultHTTPClient returns an http.Client with a request timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
