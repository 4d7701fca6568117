package serve

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/fxconvert/cmd/env"
	"github.com/sig-0/fxconvert/kv"
	"github.com/sig-0/fxconvert/kv/file"
	kvmemory "github.com/sig-0/fxconvert/kv/memory"
	"github.com/sig-0/fxconvert/storage/memory"
)

type serveMemoryCfg struct {
	rootCfg *serveCfg

	dataDir string
}

// newServeMemoryCmd creates the serve memory command.
func newServeMemoryCmd(rootCfg *serveCfg) *ffcli.Command {
	cfg := &serveMemoryCfg{
		rootCfg: rootCfg,
	}

	fs := flag.NewFlagSet("memory", flag.ExitOnError)
	cfg.rootCfg.registerFlags(fs)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "memory",
		ShortUsage: "serve memory [flags]",
		LongHelp:   "Serves the fxconvert backend, using an in-memory datastore",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *serveMemoryCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.dataDir,
		"data-dir",
		"",
		"the directory for history and favorites files. Kept in memory if empty",
	)
}

func (c *serveMemoryCfg) exec(ctx context.Context, _ []string) error {
	// Read the server configuration, if any
	if err := c.rootCfg.readConfig(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Warn("unable to load .env file")
	}

	// Create the user data store
	var kvStore kv.Store = kvmemory.NewStore()

	if c.dataDir != "" {
		fileStore, err := file.New(c.dataDir, file.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("unable to open data directory, %w", err)
		}

		kvStore = fileStore
	}

	// Create an in-memory store
	store := memory.NewStorage()

	return c.rootCfg.run(ctx, logger, store, kvStore)
}
