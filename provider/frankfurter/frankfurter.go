// Package frankfurter provides the frankfurter.app exchange rate provider.
//
// Source: "frankfurter.app"
// URL: https://api.frankfurter.app/latest?from=USD
// Interval: 1 hour
//
// The API publishes the ECB reference rates against the requested base.
// The base itself is not part of the returned rates, so it is added with
// a rate of 1.
package frankfurter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sig-0/fxconvert/storage/types"
)

const (
	// DefaultURL is the latest USD-based rates endpoint
	DefaultURL = "https://api.frankfurter.app/latest?from=USD"

	// DefaultTimeout is the default request timeout
	DefaultTimeout = time.Second * 10

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

var Source types.Source = "frankfurter.app"

var (
	errMissingBase  = errors.New("missing base currency")
	errMissingRates = errors.New("missing rates")
	errInvalidRate  = errors.New("invalid rate")
)

// latestResponse is the /latest endpoint response
type latestResponse struct {
	Rates  map[string]float64 `json:"rates"`
	Base   string             `json:"base"`
	Date   string             `json:"date"`
	Amount float64            `json:"amount"`
}

// Provider is the frankfurter.app JSON API provider
type Provider struct {
	client *http.Client
	url    string
}

// NewProvider creates a new instance of the frankfurter.app provider
func NewProvider(url string, timeout time.Duration) *Provider {
	return &Provider{
		client: &http.Client{
			Timeout: timeout,
		},
		url: url,
	}
}

func (p *Provider) Name() string {
	return Source.String()
}

func (p *Provider) Interval() time.Duration {
	return time.Hour // the reference rates are updated once per working day
}

func (p *Provider) Fetch(ctx context.Context) (*types.ExchangeRateSnapshot, error) {
	// Prepare the request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("unable to create new GET request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	// Execute the request
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	var latest latestResponse

	if err = json.NewDecoder(resp.Body).Decode(&latest); err != nil {
		return nil, fmt.Errorf("unable to decode response: %w", err)
	}

	return parseLatest(&latest, time.Now())
}

// parseLatest converts the API response into a snapshot
func parseLatest(latest *latestResponse, fetchedAt time.Time) (*types.ExchangeRateSnapshot, error) {
	base := strings.ToUpper(strings.TrimSpace(latest.Base))
	if base == "" {
		return nil, errMissingBase
	}

	if len(latest.Rates) == 0 {
		return nil, errMissingRates
	}

	rates := make(map[types.Currency]float64, len(latest.Rates)+1)

	for code, rate := range latest.Rates {
		if rate <= 0 {
			return nil, fmt.Errorf("%w for %s: %f", errInvalidRate, code, rate)
		}

		rates[types.Currency(strings.ToUpper(code))] = rate
	}

	// the base is not part of the response
	rates[types.Currency(base)] = 1

	return &types.ExchangeRateSnapshot{
		Base:      types.Currency(base),
		Rates:     rates,
		Source:    Source,
		Timestamp: fetchedAt.UnixMilli(),
	}, nil
}
