package serve

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"

	"github.com/sig-0/fxconvert/cmd/env"
	"github.com/sig-0/fxconvert/favorites"
	"github.com/sig-0/fxconvert/history"
	"github.com/sig-0/fxconvert/ingest"
	"github.com/sig-0/fxconvert/kv"
	"github.com/sig-0/fxconvert/server"
	"github.com/sig-0/fxconvert/server/config"
	"github.com/sig-0/fxconvert/storage"
	"github.com/sig-0/fxconvert/storage/types"
)

// serveCfg wraps the serve configuration
type serveCfg struct {
	config *config.Config

	configPath string
}

// NewServeCmd creates the serve subcommand
func NewServeCmd() *ffcli.Command {
	cfg := &serveCfg{
		config: config.DefaultConfig(),
	}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg.registerFlags(fs)

	cmd := &ffcli.Command{
		Name:       "serve",
		ShortUsage: "serve <subcommand> [flags]",
		LongHelp:   "Serves the fxconvert backend",
		FlagSet:    fs,
		Exec: func(_ context.Context, _ []string) error {
			return flag.ErrHelp
		},
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}

	cmd.Subcommands = []*ffcli.Command{
		newServeSQLCmd(cfg),
		newServeMemoryCmd(cfg),
	}

	return cmd
}

func (c *serveCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.config.ListenAddress,
		"listen",
		config.DefaultListenAddress,
		"the IP:PORT URL for the server",
	)

	fs.StringVar(
		&c.configPath,
		"config",
		"",
		"the path to the server TOML configuration, if any",
	)
}

// readConfig reads the server configuration, if any.
// The listen flag takes precedence over the file when set explicitly
func (c *serveCfg) readConfig() error {
	if c.configPath == "" {
		return nil
	}

	listenAddress := c.config.ListenAddress

	serverCfg, err := config.Read(c.configPath)
	if err != nil {
		return fmt.Errorf("unable to read server config, %w", err)
	}

	if listenAddress != config.DefaultListenAddress {
		serverCfg.ListenAddress = listenAddress
	}

	c.config = serverCfg

	return nil
}

// run wires up the rate service, the ingestion orchestrator, the stores
// and the HTTP server, and runs them until the context is cancelled [BLOCKING]
func (c *serveCfg) run(
	ctx context.Context,
	logger *slog.Logger,
	store storage.Storage,
	kvStore kv.Store,
) error {
	sources := newSources(c.config.Rates)

	// Create the rate service
	rateService, err := newRateService(store, c.config.Rates, sources, logger)
	if err != nil {
		return fmt.Errorf("unable to create rate service, %w", err)
	}

	defer rateService.Close()

	// Create the ingestion service.
	// Every saved snapshot invalidates the served one
	orchestrator := ingest.New(
		store,
		ingest.WithLogger(logger),
		ingest.WithSaveHook(func(_ *types.ExchangeRateSnapshot) {
			rateService.Invalidate()
		}),
	)

	for _, source := range sources {
		if err = orchestrator.Register(source); err != nil {
			return fmt.Errorf("unable to register provider: %w", err)
		}
	}

	runCtx, cancelFn := signal.NotifyContext(
		ctx,
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer cancelFn()

	// Create the user stores
	var (
		historyStore   = history.New(kvStore, history.WithLogger(logger))
		favoritesStore = favorites.New(runCtx, kvStore, favorites.WithLogger(logger))
	)

	// Create the server instance
	s, err := server.New(
		rateService,
		server.WithLogger(logger),
		server.WithConfig(c.config),
		server.WithHistory(historyStore),
		server.WithFavorites(favoritesStore),
		server.WithStorage(store),
	)
	if err != nil {
		return fmt.Errorf("unable to create server, %w", err)
	}

	group, gCtx := errgroup.WithContext(runCtx)

	// Start the HTTP server
	group.Go(func() error {
		return s.Serve(gCtx)
	})

	// Start the ingestion service
	group.Go(func() error {
		return orchestrator.Start(gCtx)
	})

	// Follow favorites changes made by other instances
	group.Go(func() error {
		return favoritesStore.Start(gCtx)
	})

	return group.Wait()
}
