// Package apiclient is the rate-limited JSON GET client shared by the HTTP-backed tools.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single HTTP request when no client is supplied.
const DefaultTimeout = 10 * time.Second

// MaxBodySize caps how much of a response body is read.
const MaxBodySize = 1 << 20

// StatusError is returned for non-200 responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Client issues GET requests and decodes JSON bodies. Requests wait on the limiter, which is
// shared by every call made through the client.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Limiter *rate.Limiter
}

// New returns a client for baseURL. A nil httpClient uses one with DefaultTimeout; a nil limiter
// disables rate limiting.
func New(baseURL string, httpClient *http.Client, limiter *rate.Limiter) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    httpClient,
		Limiter: limiter,
	}
}

// GetJSON requests BaseURL+path with query and decodes a 200 response into dest.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, dest any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate limiter wait")
		}
	}
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if int64(len(body)) > MaxBodySize {
		return errors.Errorf("response body exceeds %d bytes", MaxBodySize)
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
