package client

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/fxconvert/cmd/env"
	"github.com/sig-0/fxconvert/provider/currencies"
)

// NewRatesCmd creates the rates command
func NewRatesCmd(out io.Writer) *ffcli.Command {
	cfg := newClientCfg(out)

	fs := flag.NewFlagSet("rates", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "rates",
		ShortUsage: "rates [flags]",
		LongHelp:   "Fetches and prints the latest exchange rates",
		FlagSet:    fs,
		Exec: func(ctx context.Context, _ []string) error {
			tracker, err := cfg.fetchRates(ctx)
			if err != nil {
				return err
			}

			state := tracker.State()
			if state.Snapshot == nil {
				return fmt.Errorf("unable to fetch rates: %w", state.Err)
			}

			snapshot := state.Snapshot

			_, _ = fmt.Fprintf(
				cfg.out,
				"Base %s, source %s, as of %s\n",
				snapshot.Base,
				snapshot.Source,
				snapshot.Time().Format(time.RFC3339),
			)

			w := tabwriter.NewWriter(cfg.out, 0, 4, 2, ' ', 0)

			for _, code := range snapshot.Currencies() {
				name := ""
				if info, ok := currencies.Lookup(code); ok {
					name = info.Name
				}

				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", code, currencies.FormatAmount(snapshot.Rates[code], 6), name)
			}

			return w.Flush()
		},
		Options: []ff.Option{
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}
