// Package client is the HTTP client for the rates endpoint of an fxconvert
// server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sig-0/fxconvert/storage/types"
)

const (
	DefaultTimeout = time.Second * 10

	ratesPath = "/v1/rates"
)

// ErrRatesUnavailable is returned when the server reports a failure
var ErrRatesUnavailable = errors.New("Failed to fetch exchange rates") //nolint:stylecheck // user-facing message

type Option func(c *Client)

// WithHTTPClient specifies the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client fetches rate snapshots from a remote server
type Client struct {
	http    *http.Client
	baseURL string
}

// New creates a new rates client for the given server URL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL: baseURL,
	}

	// Apply the options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Latest fetches the server's rates response as-is
func (c *Client) Latest(ctx context.Context) (*types.RatesResponse, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse base URL: %w", err)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + ratesPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("unable to create new GET request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	// Failures still carry the response contract, so the body is
	// decoded before the status code is considered
	var body types.RatesResponse

	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
		}

		return nil, fmt.Errorf("unable to decode response: %w", err)
	}

	return &body, nil
}

// Fetch fetches the latest snapshot, failing when the server reports
// that rates are unavailable
func (c *Client) Fetch(ctx context.Context) (*types.ExchangeRateSnapshot, error) {
	resp, err := c.Latest(ctx)
	if err != nil {
		return nil, err
	}

	if !resp.Success || resp.Data == nil {
		if resp.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrRatesUnavailable, resp.Error)
		}

		return nil, ErrRatesUnavailable
	}

	return resp.Data, nil
}
