// Package viacep talks to the ViaCEP postal code service.
package viacep

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
	ServiceName = "viacep"

	defaultBaseURL       = "https://viacep.com.br/ws"
	responseBodyLimit    = 1 << 20
	errorBodyReadLimit   = 1024
	defaultClientTimeout = 30 * time.Second
)

// ErrNotFound is returned when ViaCEP flags the lookup with "erro".
var ErrNotFound = errors.New("postal code not found")

// Entry is one address as returned by ViaCEP, with its Portuguese keys mapped.
type Entry struct {
	CEP        string
	State      string
	City       string
	Street     string
	District   string
	Complement string
}

type rawEntry struct {
	CEP         string          `json:"cep"`
	Logradouro  string          `json:"logradouro"`
	Complemento string          `json:"complemento"`
	Bairro      string          `json:"bairro"`
	Localidade  string          `json:"localidade"`
	UF          string          `json:"uf"`
	Erro        json.RawMessage `json:"erro"`
}

// flagged reports the "erro" marker, which ViaCEP has sent both as a boolean
// and as the string "true".
func (r rawEntry) flagged() bool {
	v := strings.Trim(strings.TrimSpace(string(r.Erro)), `"`)
	return v != "" && v != "false" && v != "null"
}

func (r rawEntry) entry() Entry {
	return Entry{
		CEP:        r.CEP,
		State:      r.UF,
		City:       r.Localidade,
		Street:     r.Logradouro,
		District:   r.Bairro,
		Complement: r.Complemento,
	}
}

// Observer receives one observation per logical call.
type Observer interface {
	ObserveUpstream(service, outcome string, duration time.Duration)
}

// Client wraps the two ViaCEP endpoints used for address autocomplete.
type Client struct {
	httpClient *http.Client
	baseURL    string
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

// WithBaseURL overrides the ViaCEP base URL.
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

// NewClient builds a ViaCEP client. ViaCEP needs no credentials.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: defaultClientTimeout},
		baseURL:    defaultBaseURL,
		policy:     upstream.DefaultPolicy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Lookup resolves a single 8-digit postal code.
func (c *Client) Lookup(ctx context.Context, cep string) (entry *Entry, err error) {
	started := time.Now()
	defer func() { c.observe(err, time.Since(started)) }()

	body, err := c.fetch(ctx, fmt.Sprintf("%s/%s/json/", c.baseURL, url.PathEscape(cep)))
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(body, []byte("{")) {
		return nil, upstream.Unavailable(fmt.Errorf("viacep lookup: unexpected body %.64q", body))
	}

	var raw rawEntry
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, upstream.Unavailable(fmt.Errorf("decode viacep lookup: %w", err))
	}
	if raw.flagged() {
		return nil, ErrNotFound
	}
	found := raw.entry()
	return &found, nil
}

// Search lists addresses of a city whose street matches query, in the order
// ViaCEP returns them. Entries flagged with "erro" are dropped.
func (c *Client) Search(ctx context.Context, state, city, query string) (entries []Entry, err error) {
	started := time.Now()
	defer func() { c.observe(err, time.Since(started)) }()

	endpoint := fmt.Sprintf("%s/%s/%s/%s/json/",
		c.baseURL,
		url.PathEscape(state),
		url.PathEscape(city),
		url.PathEscape(query),
	)
	body, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var raw []rawEntry
	switch {
	case bytes.HasPrefix(body, []byte("[")):
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, upstream.Unavailable(fmt.Errorf("decode viacep search: %w", err))
		}
	case bytes.HasPrefix(body, []byte("{")):
		// an unknown city comes back as a single flagged object
		var single rawEntry
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, upstream.Unavailable(fmt.Errorf("decode viacep search: %w", err))
		}
		raw = []rawEntry{single}
	default:
		return nil, upstream.Unavailable(fmt.Errorf("viacep search: unexpected body %.64q", body))
	}

	entries = make([]Entry, 0, len(raw))
	for _, r := range raw {
		if r.flagged() {
			continue
		}
		entries = append(entries, r.entry())
	}
	return entries, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	var body []byte
	err := upstream.Do(ctx, c.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
			return &upstream.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
		return err
	})
	if err != nil {
		return nil, err
	}
	return bytes.TrimSpace(body), nil
}

func (c *Client) observe(err error, duration time.Duration) {
	if c.observer == nil {
		return
	}
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = metrics.OutcomeNotFound
	case errors.Is(err, upstream.ErrUnavailable):
		outcome = metrics.OutcomeUnavailable
	default:
		outcome = metrics.OutcomeRejected
	}
	c.observer.ObserveUpstream(ServiceName, outcome, duration)
}
