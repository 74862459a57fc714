package main

import (
	"encoding/json"
	"fmt"

	"github.com/mitranim/sqlkit/dialect"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

func newValidateCmd(glob *globals) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   `validate FILE...`,
		Short: `Check a schema against the capabilities of a dialect`,
		Long: `Check a schema against the capabilities of a dialect. Exits with an error
when the report has error entries; warnings and infos are only printed.`,
		Example: `  # Check a PostgreSQL schema for AWS DSQL
  sqlkit validate --dialect dsql schema.sql

  # Machine-readable report
  sqlkit validate --dialect dsql --format json schema.sql`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := glob.resolveDialect()
			if err != nil {
				return err
			}

			sch, err := readSchema(args)
			if err != nil {
				return err
			}

			report := dialect.Validate(dialect.For(name), sch)
			if err := writeReport(cmd, format, report); err != nil {
				return err
			}
			if report.HasErrors() {
				return fmt.Errorf(`schema has %d errors for %v`, len(report.Errors()), name)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, `format`, `f`, `text`, `output format: text, yaml or json`)
	return cmd
}

func writeReport(cmd *cobra.Command, format string, report dialect.Report) error {
	out := cmd.OutOrStdout()

	switch format {
	case `text`:
		_, err := fmt.Fprintln(out, report.String())
		return err

	case `yaml`:
		body, err := yaml.Marshal(report)
		if err != nil {
			return err
		}
		_, err = out.Write(body)
		return err

	case `json`:
		enc := json.NewEncoder(out)
		enc.SetIndent(``, `  `)
		return enc.Encode(report)

	default:
		return fmt.Errorf(`unknown format %q, expected text, yaml or json`, format)
	}
}
