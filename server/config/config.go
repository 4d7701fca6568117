package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"

	"github.com/pelletier/go-toml"
)

const (
	DefaultListenAddress = "0.0.0.0:8545"

	DefaultFrankfurterURL = "https://api.frankfurter.app/latest?from=USD"
	DefaultECBURL         = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"

	DefaultFetchTimeout = 10   // seconds
	DefaultMaxAge       = 3600 // seconds
)

var (
	ErrInvalidListenAddress = errors.New("invalid listen address")
	ErrInvalidSourceURL     = errors.New("invalid rate source URL")
	ErrInvalidFetchTimeout  = errors.New("invalid fetch timeout")
	ErrInvalidMaxAge        = errors.New("invalid max age")
)

var listenAddressRegex = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}:\d+$`)

// Config defines the base-level server configuration
type Config struct {
	// The associated CORS config, if any
	CORSConfig *CORS `toml:"cors_config"`

	// The rate source configuration
	Rates *Rates `toml:"rates"`

	// The address at which the server will be served.
	// Format should be: <IP>:<PORT>
	ListenAddress string `toml:"listen_address"`
}

// CORS defines the CORS middleware configuration
type CORS struct {
	AllowedOrigins []string `toml:"allowed_origins"`
	AllowedMethods []string `toml:"allowed_methods"`
	AllowedHeaders []string `toml:"allowed_headers"`
}

// Rates defines the rate source configuration
type Rates struct {
	// Live source endpoints. An empty URL disables the source
	FrankfurterURL string `toml:"frankfurter_url"`
	ECBURL         string `toml:"ecb_url"`

	// Per-source fetch timeout, in seconds
	FetchTimeout int64 `toml:"fetch_timeout"`

	// Max age of a served snapshot, in seconds
	MaxAge int64 `toml:"max_age"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddress: DefaultListenAddress,
		CORSConfig:    DefaultCORSConfig(),
		Rates:         DefaultRatesConfig(),
	}
}

// DefaultCORSConfig returns the default, permissive CORS configuration
func DefaultCORSConfig() *CORS {
	return &CORS{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
	}
}

// DefaultRatesConfig returns the default rate source configuration
func DefaultRatesConfig() *Rates {
	return &Rates{
		FrankfurterURL: DefaultFrankfurterURL,
		ECBURL:         DefaultECBURL,
		FetchTimeout:   DefaultFetchTimeout,
		MaxAge:         DefaultMaxAge,
	}
}

// ValidateConfig validates the server configuration
func ValidateConfig(config *Config) error {
	// Validate the listen address
	if !listenAddressRegex.MatchString(config.ListenAddress) {
		return ErrInvalidListenAddress
	}

	if config.Rates == nil {
		return nil
	}

	// Validate the rate sources
	for _, raw := range []string{config.Rates.FrankfurterURL, config.Rates.ECBURL} {
		if raw == "" {
			continue
		}

		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidSourceURL, raw)
		}
	}

	if config.Rates.FetchTimeout <= 0 {
		return ErrInvalidFetchTimeout
	}

	if config.Rates.MaxAge <= 0 {
		return ErrInvalidMaxAge
	}

	return nil
}

// Read reads the configuration from the given path.
// Values missing from the file keep their defaults
func Read(path string) (*Config, error) {
	// Read the config file
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Parse it
	tree, err := toml.LoadBytes(content)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	if err := tree.Unmarshal(cfg); err != nil {
		return nil, err
	}

	fillRatesDefaults(tree, cfg)

	return cfg, nil
}

// fillRatesDefaults sets the rate source values missing from the file
// to their defaults. A source URL explicitly set to "" stays disabled
func fillRatesDefaults(tree *toml.Tree, cfg *Config) {
	if cfg.Rates == nil {
		cfg.Rates = DefaultRatesConfig()

		return
	}

	defaults := DefaultRatesConfig()

	if !tree.Has("rates.frankfurter_url") {
		cfg.Rates.FrankfurterURL = defaults.FrankfurterURL
	}

	if !tree.Has("rates.ecb_url") {
		cfg.Rates.ECBURL = defaults.ECBURL
	}

	if !tree.Has("rates.fetch_timeout") {
		cfg.Rates.FetchTimeout = defaults.FetchTimeout
	}

	if !tree.Has("rates.max_age") {
		cfg.Rates.MaxAge = defaults.MaxAge
	}
}
