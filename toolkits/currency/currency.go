// Package currency provides the convert_currency tool backed by the exchangerate.host API.
package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/skosovsky/tooldesk"
	"github.com/skosovsky/tooldesk/toolkits/internal/apiclient"
)

// DefaultBaseURL is the public exchangerate.host endpoint.
const DefaultBaseURL = "https://api.exchangerate.host"

// ResultError is returned when the API answers 200 without a result.
type ResultError struct {
	Message string
}

func (e *ResultError) Error() string {
	return e.Message
}

// Client converts amounts between ISO currency codes.
type Client struct {
	api    *apiclient.Client
	apiKey string
}

// Option configures a Client.
type Option func(*options)

type options struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithAPIKey sends key as access_key. Without it no key is sent.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithRateLimiter shares limiter across requests.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// NewClient returns a Client.
func NewClient(opts ...Option) *Client {
	o := options{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{
		api:    apiclient.New(o.baseURL, o.httpClient, o.limiter),
		apiKey: o.apiKey,
	}
}

type convertResponse struct {
	Result *float64        `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// Convert returns amount in from expressed in to. Codes are upper-cased.
func (c *Client) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	q := url.Values{}
	q.Set("from", strings.ToUpper(from))
	q.Set("to", strings.ToUpper(to))
	q.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	if c.apiKey != "" {
		q.Set("access_key", c.apiKey)
	}
	var resp convertResponse
	if err := c.api.GetJSON(ctx, "/convert", q, &resp); err != nil {
		return 0, err
	}
	if resp.Result == nil {
		return 0, &ResultError{Message: errorMessage(resp.Error)}
	}
	return *resp.Result, nil
}

// errorMessage reads the API's error field, which is a string in older responses and an
// object with "info" in newer ones.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "Unknown error"
	}
	var s string
	if json.Unmarshal(raw, &s) == nil && s != "" {
		return s
	}
	var obj struct {
		Info string `json:"info"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Info != "" {
		return obj.Info
	}
	return string(raw)
}

// Args are the convert_currency arguments.
type Args struct {
	Amount       float64 `json:"amount" description:"The amount of money to convert."`
	FromCurrency string  `json:"from_currency" description:"ISO currency code to convert from, e.g. USD."`
	ToCurrency   string  `json:"to_currency" description:"ISO currency code to convert to, e.g. EUR."`
}

// Tool returns the convert_currency tool. Failures are reported in the result text.
func (c *Client) Tool() tooldesk.ToolSpec {
	return tooldesk.MustTool("convert_currency",
		"Convert an amount between currencies using ISO codes (e.g. USD, EUR, IDR).",
		func(ctx context.Context, a Args) string {
			from, to := strings.ToUpper(a.FromCurrency), strings.ToUpper(a.ToCurrency)
			result, err := c.Convert(ctx, a.Amount, from, to)
			if err != nil {
				return "Currency conversion failed: " + failure(err)
			}
			return fmt.Sprintf("%s %s is equal to %.2f %s.", strconv.FormatFloat(a.Amount, 'f', -1, 64), from, result, to)
		})
}

func failure(err error) string {
	var se *apiclient.StatusError
	if errors.As(err, &se) {
		return se.Error()
	}
	return err.Error()
}
