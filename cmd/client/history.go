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
	"github.com/sig-0/fxconvert/history"
	"github.com/sig-0/fxconvert/provider/currencies"
)

// NewHistoryCmd creates the history command
func NewHistoryCmd(out io.Writer) *ffcli.Command {
	cfg := newClientCfg(out)

	fs := flag.NewFlagSet("history", flag.ExitOnError)
	cfg.registerFlags(fs)

	cmd := &ffcli.Command{
		Name:       "history",
		ShortUsage: "history <subcommand> [flags]",
		LongHelp:   "Manages the conversion history",
		FlagSet:    fs,
		Exec: func(_ context.Context, _ []string) error {
			return flag.ErrHelp
		},
	}

	cmd.Subcommands = []*ffcli.Command{
		newHistorySubcommand(cfg, "list", "Lists the recorded conversions, newest first", listHistory),
		newHistorySubcommand(cfg, "clear", "Clears the recorded conversions", clearHistory),
	}

	return cmd
}

type historyExecFn func(context.Context, *clientCfg, *history.Store) error

func newHistorySubcommand(cfg *clientCfg, name, help string, fn historyExecFn) *ffcli.Command {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       name,
		ShortUsage: fmt.Sprintf("history %s [flags]", name),
		LongHelp:   help,
		FlagSet:    fs,
		Exec: func(ctx context.Context, _ []string) error {
			store, err := cfg.openStore()
			if err != nil {
				return err
			}

			return fn(ctx, cfg, history.New(store, history.WithLogger(cfg.logger())))
		},
		Options: []ff.Option{
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func listHistory(ctx context.Context, cfg *clientCfg, h *history.Store) error {
	records := h.List(ctx)
	if len(records) == 0 {
		_, _ = fmt.Fprintln(cfg.out, "No conversions recorded")

		return nil
	}

	w := tabwriter.NewWriter(cfg.out, 0, 4, 2, ' ', 0)

	for i, record := range records {
		_, _ = fmt.Fprintf(
			w,
			"%d\t%s\t%s\t%s\t%s\n",
			i+1,
			time.UnixMilli(record.Timestamp).Format(time.DateTime),
			currencies.FormatDisplay(record.Amount, record.From),
			currencies.FormatDisplay(record.Result, record.To),
			currencies.FormatAmount(record.Rate, 6),
		)
	}

	return w.Flush()
}

func clearHistory(ctx context.Context, cfg *clientCfg, h *history.Store) error {
	h.Clear(ctx)

	_, _ = fmt.Fprintln(cfg.out, "Conversion history cleared")

	return nil
}
