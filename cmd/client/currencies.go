package client

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/fxconvert/cmd/env"
	"github.com/sig-0/fxconvert/favorites"
	"github.com/sig-0/fxconvert/provider/currencies"
)

// NewCurrenciesCmd creates the currencies command
func NewCurrenciesCmd(out io.Writer) *ffcli.Command {
	cfg := newClientCfg(out)

	fs := flag.NewFlagSet("currencies", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "currencies",
		ShortUsage: "currencies [flags]",
		LongHelp:   "Lists the supported currencies. Favorites are marked with *",
		FlagSet:    fs,
		Exec: func(ctx context.Context, _ []string) error {
			store, err := cfg.openStore()
			if err != nil {
				return err
			}

			favs := favorites.New(ctx, store, favorites.WithLogger(cfg.logger()))

			w := tabwriter.NewWriter(cfg.out, 0, 4, 2, ' ', 0)

			for _, info := range currencies.All() {
				marker := ""
				if favs.Contains(info.Code) {
					marker = "*"
				}

				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.Code, info.Symbol, info.Name, marker)
			}

			return w.Flush()
		},
		Options: []ff.Option{
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}
