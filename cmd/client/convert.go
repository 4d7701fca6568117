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
	"github.com/sig-0/fxconvert/convert"
	"github.com/sig-0/fxconvert/converter"
	"github.com/sig-0/fxconvert/history"
	"github.com/sig-0/fxconvert/provider/currencies"
	"github.com/sig-0/fxconvert/storage/types"
)

var errInvalidHistoryIndex = errors.New("invalid history index")

type convertCfg struct {
	rootCfg *clientCfg

	swap        bool
	fromHistory int
}

// NewConvertCmd creates the convert command
func NewConvertCmd(out io.Writer) *ffcli.Command {
	cfg := &convertCfg{
		rootCfg: newClientCfg(out),
	}

	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	cfg.rootCfg.registerFlags(fs)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "convert",
		ShortUsage: "convert [flags] <amount> [from] [to]",
		LongHelp:   "Converts an amount between currencies (defaults to USD -> EUR), and records it in the history",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *convertCfg) registerFlags(fs *flag.FlagSet) {
	fs.BoolVar(
		&c.swap,
		"swap",
		false,
		"swap the source and target currencies",
	)

	fs.IntVar(
		&c.fromHistory,
		"from-history",
		0,
		"repeat the n-th most recent conversion (1-based), ignoring the arguments",
	)
}

func (c *convertCfg) exec(ctx context.Context, args []string) error {
	store, err := c.rootCfg.openStore()
	if err != nil {
		return err
	}

	session := converter.NewSession(
		history.New(store, history.WithLogger(c.rootCfg.logger())),
	)

	if err = c.prepare(ctx, session, args); err != nil {
		return err
	}

	// Fail fast on invalid input, without fetching rates
	if v := convert.Validate(session.Amount()); !v.IsValid {
		return fmt.Errorf("invalid amount %q: %w", session.Amount(), v.Err())
	}

	tracker, err := c.rootCfg.fetchRates(ctx)
	if err != nil {
		return err
	}

	record, err := session.Perform(ctx, tracker.Snapshot())
	if err != nil {
		if state := tracker.State(); state.Err != nil {
			return fmt.Errorf("%w: %w", err, state.Err)
		}

		return err
	}

	_, _ = fmt.Fprintf(
		c.rootCfg.out,
		"%s = %s\n1 %s = %s %s\n",
		currencies.FormatMoney(record.Amount, record.From),
		currencies.FormatMoney(record.Result, record.To),
		record.From,
		currencies.FormatAmount(record.Rate, 6),
		record.To,
	)

	return nil
}

// prepare sets up the session from the arguments or the history
func (c *convertCfg) prepare(ctx context.Context, session *converter.Session, args []string) error {
	if c.fromHistory > 0 {
		records := session.History(ctx)
		if c.fromHistory > len(records) {
			return fmt.Errorf("%w: %d (%d recorded)", errInvalidHistoryIndex, c.fromHistory, len(records))
		}

		session.LoadFromHistory(records[c.fromHistory-1])
	} else if c.fromHistory < 0 {
		return fmt.Errorf("%w: %d", errInvalidHistoryIndex, c.fromHistory)
	}

	if c.fromHistory == 0 {
		if len(args) > 0 {
			session.SetAmount(args[0])
		}

		if len(args) > 1 {
			if err := session.SetFrom(parseCode(args[1])); err != nil {
				return err
			}
		}

		if len(args) > 2 {
			if err := session.SetTo(parseCode(args[2])); err != nil {
				return err
			}
		}
	}

	if c.swap {
		session.Swap()
	}

	return nil
}

func parseCode(raw string) types.Currency {
	return types.Currency(strings.ToUpper(strings.TrimSpace(raw)))
}
