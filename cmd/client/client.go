package client

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	fxclient "github.com/sig-0/fxconvert/client"
	"github.com/sig-0/fxconvert/converter"
	"github.com/sig-0/fxconvert/kv/file"
	"github.com/sig-0/fxconvert/provider/ecb"
	"github.com/sig-0/fxconvert/provider/frankfurter"
	"github.com/sig-0/fxconvert/provider/static"
	"github.com/sig-0/fxconvert/rates"
)

const dataDirName = "fxconvert"

var errMissingDataDir = errors.New("missing data directory")

// clientCfg wraps the configuration shared by the local commands
type clientCfg struct {
	out io.Writer

	dataDir   string
	serverURL string
	timeout   time.Duration
}

func newClientCfg(out io.Writer) *clientCfg {
	return &clientCfg{
		out: out,
	}
}

func (c *clientCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.dataDir,
		"data-dir",
		defaultDataDir(),
		"the directory for history and favorites files",
	)

	fs.StringVar(
		&c.serverURL,
		"server",
		"",
		"the fxconvert server URL to fetch rates from. Rates are fetched directly if empty",
	)

	fs.DurationVar(
		&c.timeout,
		"timeout",
		frankfurter.DefaultTimeout,
		"the rate fetch timeout",
	)
}

// logger returns the command logger. Only warnings are shown,
// so store degradation is visible without cluttering the output
func (c *clientCfg) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// openStore opens the file-backed user data store
func (c *clientCfg) openStore() (*file.Store, error) {
	if c.dataDir == "" {
		return nil, errMissingDataDir
	}

	store, err := file.New(c.dataDir, file.WithLogger(c.logger()))
	if err != nil {
		return nil, fmt.Errorf("unable to open data directory: %w", err)
	}

	return store, nil
}

// fetcher returns the rate source for the command, and its cleanup
func (c *clientCfg) fetcher() (converter.Fetcher, func(), error) {
	if c.serverURL != "" {
		return fxclient.New(c.serverURL), func() {}, nil
	}

	svc, err := rates.New(
		nil,
		rates.WithLogger(c.logger()),
		rates.WithSources(
			frankfurter.NewProvider(frankfurter.DefaultURL, c.timeout),
			ecb.NewProvider(ecb.DefaultURL, c.timeout),
		),
		rates.WithFallback(static.NewProvider()),
		rates.WithFetchTimeout(c.timeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create rate service: %w", err)
	}

	return svc, svc.Close, nil
}

// fetchRates refreshes a rates tracker from the configured source
func (c *clientCfg) fetchRates(ctx context.Context) (*converter.Rates, error) {
	f, closeFn, err := c.fetcher()
	if err != nil {
		return nil, err
	}

	defer closeFn()

	tracker := converter.NewRates(f)

	// The failure is kept in the tracker state
	_ = tracker.Refresh(ctx) //nolint:errcheck // Checked by callers

	return tracker, nil
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "."+dataDirName)
	}

	return filepath.Join(dir, dataDirName)
}
