package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDDLCmd(glob *globals) *cobra.Command {
	return &cobra.Command{
		Use:   `ddl FILE...`,
		Short: `Render CREATE statements for a dialect`,
		Long: `Render CREATE statements for a dialect, in dependency order. Input is
CREATE TABLE statements or YAML table definitions.`,
		Example: `  # Re-render a PostgreSQL dump for SQLite
  sqlkit ddl --dialect sqlite schema.sql`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dialect, err := glob.resolveDialect()
			if err != nil {
				return err
			}

			sch, err := readSchema(args)
			if err != nil {
				return err
			}

			stmts, err := sch.Statements(dialect)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, stmt := range stmts {
				fmt.Fprintf(out, "%s;\n\n", stmt)
			}
			return nil
		},
	}
}
