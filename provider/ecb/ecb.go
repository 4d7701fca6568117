// Package ecb provides the European Central Bank reference rate provider.
//
// Source: "ecb.europa.eu"
// URL: https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml
// Interval: 6 hours
//
// The daily feed lists around 30 currencies against EUR, published once
// per working day around 16:00 CET.
package ecb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sig-0/fxconvert/provider/currencies"
	"github.com/sig-0/fxconvert/storage/types"
)

const (
	// DefaultURL is the daily reference rates feed
	DefaultURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"

	// DefaultTimeout is the default request timeout
	DefaultTimeout = time.Second * 10
)

var Source types.Source = "ecb.europa.eu"

var errNoRates = errors.New("no rates found in feed")

// Provider is the ECB daily XML feed provider
type Provider struct {
	client *http.Client
	url    string
}

// NewProvider creates a new instance of the ECB feed provider
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
	return time.Hour * 6
}

func (p *Provider) Fetch(ctx context.Context) (*types.ExchangeRateSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invalid status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to parse feed: %w", err)
	}

	return parseFeed(doc, time.Now())
}

// parseFeed extracts the EUR-based rates from the feed document.
// The HTML parser lowercases element and attribute names, so the
// <Cube currency="..." rate="..."/> entries are matched as cube[currency]
func parseFeed(doc *goquery.Document, fetchedAt time.Time) (*types.ExchangeRateSnapshot, error) {
	rates := map[types.Currency]float64{
		currencies.EUR: 1,
	}

	doc.Find("cube[currency]").Each(func(_ int, s *goquery.Selection) {
		code, _ := s.Attr("currency")
		rateTxt, _ := s.Attr("rate")

		code = strings.ToUpper(strings.TrimSpace(code))
		if len(code) != 3 {
			return
		}

		rate, err := strconv.ParseFloat(strings.TrimSpace(rateTxt), 64)
		if err != nil || rate <= 0 {
			return
		}

		rates[types.Currency(code)] = rate
	})

	if len(rates) == 1 {
		return nil, errNoRates
	}

	return &types.ExchangeRateSnapshot{
		Base:      currencies.EUR,
		Rates:     rates,
		Source:    Source,
		Timestamp: fetchedAt.UnixMilli(),
	}, nil
}
