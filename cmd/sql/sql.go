package sql

import (
	"context"
	"flag"

	"github.com/peterbourgon/ff/v3/ffcli"
)

const sqlLongHelp = "Manages the fxconvert PostgreSQL schema, which holds the " +
	"exchange rate snapshots, conversion history and favorite currencies"

// sqlCfg is shared by the schema subcommands
type sqlCfg struct{}

// NewSQLCmd creates the sql command group for schema management
func NewSQLCmd() *ffcli.Command {
	cfg := &sqlCfg{}

	fs := flag.NewFlagSet("sql", flag.ExitOnError)
	cfg.RegisterFlags(fs)

	cmd := &ffcli.Command{
		Name:       "sql",
		ShortUsage: "sql <subcommand> [flags]",
		LongHelp:   sqlLongHelp,
		FlagSet:    fs,
		Exec: func(_ context.Context, _ []string) error {
			return flag.ErrHelp
		},
	}

	cmd.Subcommands = []*ffcli.Command{
		newMigrateCmd(cfg),
	}

	return cmd
}

// RegisterFlags registers the flags shared by every schema subcommand.
// The connection settings live on each subcommand
func (c *sqlCfg) RegisterFlags(_ *flag.FlagSet) {}
