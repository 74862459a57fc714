package main

import (
	"os"

	"github.com/mitranim/sqlkit/introspect"
	"github.com/spf13/cobra"
)

func newCodegenCmd() *cobra.Command {
	var (
		pkg    string
		output string
	)

	cmd := &cobra.Command{
		Use:   `codegen FILE...`,
		Short: `Generate Go table definitions`,
		Long:  `Generate Go table definitions from CREATE TABLE statements or YAML table definitions.`,
		Example: `  # Print generated code for a SQL dump
  sqlkit codegen schema.sql

  # Write a file in package "models"
  sqlkit codegen --package models -o models/tables.go schema.sql`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := readTables(args)
			if err != nil {
				return err
			}

			out, err := introspect.Generate(pkg, tables)
			if err != nil {
				return err
			}

			if output == `` {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			return os.WriteFile(output, out, 0o644)
		},
	}

	cmd.Flags().StringVar(&pkg, `package`, `models`, `package name of the generated file`)
	cmd.Flags().StringVarP(&output, `output`, `o`, ``, `output file (default: stdout)`)
	return cmd
}
