// Package weather provides the get_weather tool backed by the OpenWeatherMap current weather API.
package weather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/skosovsky/tooldesk"
	"github.com/skosovsky/tooldesk/toolkits/internal/apiclient"
)

// DefaultBaseURL is the public OpenWeatherMap endpoint.
const DefaultBaseURL = "https://api.openweathermap.org"

// FailureResult is returned by the tool for every failed lookup.
const FailureResult = `{"error":"Could not get weather"}`

// ErrIncomplete is returned when a 200 response lacks the fields a Report needs.
var ErrIncomplete = errors.New("incomplete weather response")

// Report is the tool's JSON result.
type Report struct {
	Temperature float64  `json:"temperature"`
	Description string   `json:"description"`
	Humidity    *float64 `json:"humidity"`
	WindSpeed   *float64 `json:"wind_speed"`
	City        string   `json:"city"`
	Country     string   `json:"country"`
}

// Client looks up current weather by city name. Temperatures are metric.
type Client struct {
	api    *apiclient.Client
	apiKey string
	log    zerolog.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithAPIKey sets the appid.
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

// WithLogger logs lookup failures, which the tool otherwise collapses into FailureResult.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// NewClient returns a Client.
func NewClient(opts ...Option) *Client {
	o := options{baseURL: DefaultBaseURL, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{
		api:    apiclient.New(o.baseURL, o.httpClient, o.limiter),
		apiKey: o.apiKey,
		log:    o.log,
	}
}

type currentResponse struct {
	Name string `json:"name"`
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
}

// Current returns the weather in city.
func (c *Client) Current(ctx context.Context, city string) (Report, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	var resp currentResponse
	if err := c.api.GetJSON(ctx, "/data/2.5/weather", q, &resp); err != nil {
		return Report{}, err
	}
	if resp.Main == nil || resp.Main.Temp == nil || len(resp.Weather) == 0 {
		return Report{}, ErrIncomplete
	}
	return Report{
		Temperature: *resp.Main.Temp,
		Description: resp.Weather[0].Description,
		Humidity:    resp.Main.Humidity,
		WindSpeed:   resp.Wind.Speed,
		City:        resp.Name,
		Country:     resp.Sys.Country,
	}, nil
}

// Args are the get_weather arguments.
type Args struct {
	City string `json:"city" description:"The city to get the weather for."`
}

// Tool returns the get_weather tool. Its result is a Report as JSON or FailureResult.
func (c *Client) Tool() tooldesk.ToolSpec {
	return tooldesk.MustTool("get_weather",
		"Get the current weather for a city: temperature in °C, description, humidity and wind speed.",
		func(ctx context.Context, a Args) string {
			report, err := c.Current(ctx, a.City)
			if err != nil {
				c.log.Warn().Err(err).Str("city", a.City).Msg("weather lookup failed")
				return FailureResult
			}
			data, err := json.Marshal(report)
			if err != nil {
				return FailureResult
			}
			return string(data)
		})
}
