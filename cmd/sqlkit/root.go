package main

import (
	"github.com/mitranim/sqlkit"
	"github.com/mitranim/sqlkit/config"
	"github.com/spf13/cobra"
)

// Command group IDs
const (
	groupSchema  = `schema`
	groupRuntime = `runtime`
)

// Persistent flags shared by every command.
type globals struct {
	cfgFile string
	dialect string
}

func newRootCmd() *cobra.Command {
	var glob globals

	cmd := &cobra.Command{
		Use:   `sqlkit`,
		Short: `Dialect-aware SQL schema tooling`,
		Long: `sqlkit - dialect-aware SQL schema tooling

Generates Go table definitions from CREATE TABLE statements, renders DDL for
PostgreSQL, CockroachDB, AWS DSQL and SQLite, validates schemas against the
capabilities of a dialect, and tails LISTEN/NOTIFY channels.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&glob.cfgFile, `config`, ``, `config file (default: auto-discover sqlkit.yaml)`)
	cmd.PersistentFlags().StringVar(&glob.dialect, `dialect`, ``, `target dialect: postgres, crdb, dsql, sqlite (default: from config, else postgres)`)

	cmd.AddGroup(
		&cobra.Group{ID: groupSchema, Title: `Schema:`},
		&cobra.Group{ID: groupRuntime, Title: `Runtime:`},
	)

	for _, sub := range []*cobra.Command{newCodegenCmd(), newDDLCmd(&glob), newValidateCmd(&glob)} {
		sub.GroupID = groupSchema
		cmd.AddCommand(sub)
	}
	for _, sub := range []*cobra.Command{newListenCmd(&glob), newConfigCmd(&glob)} {
		sub.GroupID = groupRuntime
		cmd.AddCommand(sub)
	}
	return cmd
}

/*
Precedence: the --dialect flag, then the dialect of the config file, then
PostgreSQL. A config that fails to load is an error only when --config was
given explicitly.
*/
func (self *globals) resolveDialect() (sqlkit.Dialect, error) {
	if self.dialect != `` {
		return sqlkit.ParseDialect(self.dialect)
	}
	conf, err := config.Load(self.cfgFile)
	if err != nil {
		if self.cfgFile != `` {
			return ``, err
		}
		return sqlkit.Postgres, nil
	}
	return conf.SQLDialect(), nil
}

// Loads the config, with --dialect applied on top.
func (self *globals) loadConfig() (config.Config, error) {
	conf, err := config.Load(self.cfgFile)
	if err != nil {
		return conf, err
	}
	if self.dialect != `` {
		conf.Dialect = self.dialect
		if err := conf.Validate(); err != nil {
			return conf, err
		}
	}
	return conf, nil
}
