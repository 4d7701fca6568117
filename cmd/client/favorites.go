package client

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/fxconvert/cmd/env"
	"github.com/sig-0/fxconvert/favorites"
	"github.com/sig-0/fxconvert/storage/types"
)

var (
	errMissingCode = errors.New("missing currency code")
	errInvalidCode = errors.New("invalid currency code (must be 3 letters)")
)

// NewFavoritesCmd creates the favorites command
func NewFavoritesCmd(out io.Writer) *ffcli.Command {
	cfg := newClientCfg(out)

	fs := flag.NewFlagSet("favorites", flag.ExitOnError)
	cfg.registerFlags(fs)

	cmd := &ffcli.Command{
		Name:       "favorites",
		ShortUsage: "favorites <subcommand> [flags] [<code>]",
		LongHelp:   "Manages the favorite currencies",
		FlagSet:    fs,
		Exec: func(_ context.Context, _ []string) error {
			return flag.ErrHelp
		},
	}

	cmd.Subcommands = []*ffcli.Command{
		newFavoritesSubcommand(cfg, "list", "Lists the favorite currencies", listFavorites),
		newFavoritesSubcommand(cfg, "add", "Adds a favorite currency", addFavorite),
		newFavoritesSubcommand(cfg, "remove", "Removes a favorite currency", removeFavorite),
	}

	return cmd
}

type favoritesExecFn func(context.Context, *favorites.Store, []string) error

func newFavoritesSubcommand(cfg *clientCfg, name, help string, fn favoritesExecFn) *ffcli.Command {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       name,
		ShortUsage: fmt.Sprintf("favorites %s [flags]", name),
		LongHelp:   help,
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			store, err := cfg.openStore()
			if err != nil {
				return err
			}

			favs := favorites.New(ctx, store, favorites.WithLogger(cfg.logger()))

			if err = fn(ctx, favs, args); err != nil {
				return err
			}

			printFavorites(cfg.out, favs.List())

			return nil
		},
		Options: []ff.Option{
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func listFavorites(_ context.Context, _ *favorites.Store, _ []string) error {
	return nil
}

func addFavorite(ctx context.Context, favs *favorites.Store, args []string) error {
	code, err := codeArg(args)
	if err != nil {
		return err
	}

	if !favorites.IsValid(code) {
		return fmt.Errorf("%w: %q", errInvalidCode, args[0])
	}

	favs.Add(ctx, code)

	return nil
}

func removeFavorite(ctx context.Context, favs *favorites.Store, args []string) error {
	code, err := codeArg(args)
	if err != nil {
		return err
	}

	favs.Remove(ctx, code)

	return nil
}

func codeArg(args []string) (types.Currency, error) {
	if len(args) == 0 {
		return "", errMissingCode
	}

	return types.Currency(strings.ToUpper(strings.TrimSpace(args[0]))), nil
}

func printFavorites(out io.Writer, codes []types.Currency) {
	if len(codes) == 0 {
		_, _ = fmt.Fprintln(out, "No favorite currencies")

		return
	}

	for _, code := range codes {
		_, _ = fmt.Fprintln(out, code)
	}
}
