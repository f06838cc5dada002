package maps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/contactbook-backend/pkg/metrics"
	"github.com/angelmondragon/contactbook-backend/pkg/upstream"
)

const (
	// ServiceName labels metrics and logs for this provider.
	ServiceName = "geocoding"

	defaultBaseURL             = "https://maps.googleapis.com"
	geocodePath                = "/maps/api/geocode/json"
	apiKeyHeader               = "X-Goog-Api-Key"
	defaultRegion              = "br"
	responseBodyLimit          = 1 << 20
	requestBodyReadLimit int64 = 1024
)

// Geocoding API statuses.
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusOverQueryLimit = "OVER_QUERY_LIMIT"
	StatusRequestDenied  = "REQUEST_DENIED"
	StatusInvalidRequest = "INVALID_REQUEST"
	StatusUnknownError   = "UNKNOWN_ERROR"
)

var (
	errAPIKeyRequired = errors.New("google maps api key is required")

	// ErrNoLocation is returned when an OK answer carries no coordinates.
	ErrNoLocation = errors.New("geocode result has no location")
)

// APIError is a non-OK status reported inside a 200 answer.
type APIError struct {
	Status  string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "geocoding status " + e.Status
	}
	return fmt.Sprintf("geocoding status %s: %s", e.Status, e.Message)
}

// LatLng is the latitude/longitude pair returned by Google.
type LatLng struct {
	Latitude  float64
	Longitude float64
}

// Observer receives one observation per logical call.
type Observer interface {
	ObserveUpstream(service, outcome string, duration time.Duration)
}

// Client wraps the Google Geocoding API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	region     string
	policy     upstream.Policy
	observer   Observer
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithPolicy sets the timeout/retry budget of every call.
func WithPolicy(p upstream.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithObserver records call outcomes.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// NewClient builds the Google Maps client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		region:     defaultRegion,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		policy:     upstream.DefaultPolicy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location *struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves a free-form address into the coordinates of the first
// result. Non-OK statuses come back as *APIError and are never retried.
func (c *Client) Geocode(ctx context.Context, address string) (loc *LatLng, err error) {
	if c == nil {
		return nil, errors.New("google maps client not configured")
	}
	started := time.Now()
	defer func() { c.observe(err, time.Since(started)) }()

	query := url.Values{}
	query.Set("address", address)
	query.Set("region", c.region)
	endpoint := c.baseURL + geocodePath + "?" + query.Encode()

	var body []byte
	err = upstream.Do(ctx, c.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set(apiKeyHeader, c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
			return &upstream.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		}
		body, err = io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
		return err
	})
	if err != nil {
		return nil, err
	}

	var apiResp geocodeResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&apiResp); err != nil {
		return nil, upstream.Unavailable(fmt.Errorf("decode geocode response: %w", err))
	}
	if apiResp.Status != StatusOK {
		return nil, &APIError{Status: apiResp.Status, Message: apiResp.ErrorMessage}
	}
	if len(apiResp.Results) == 0 || apiResp.Results[0].Geometry.Location == nil {
		return nil, ErrNoLocation
	}

	location := apiResp.Results[0].Geometry.Location
	return &LatLng{Latitude: location.Lat, Longitude: location.Lng}, nil
}

func (c *Client) observe(err error, duration time.Duration) {
	if c.observer == nil {
		return
	}
	outcome := metrics.OutcomeSuccess
	var apiErr *APIError
	switch {
	case err == nil:
	case errors.Is(err, ErrNoLocation), errors.As(err, &apiErr) && apiErr.Status == StatusZeroResults:
		outcome = metrics.OutcomeNotFound
	case errors.Is(err, upstream.ErrUnavailable):
		outcome = metrics.OutcomeUnavailable
	default:
		outcome = metrics.OutcomeRejected
	}
	c.observer.ObserveUpstream(ServiceName, outcome, duration)
}
