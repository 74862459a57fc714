package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitranim/sqlkit/introspect"
	"github.com/mitranim/sqlkit/schema"
	"sigs.k8s.io/yaml"
)

/*
Table definitions in YAML or JSON, mirroring the introspection AST:

	tables:
	  - name: users
	    columns:
	      - {name: id, type: bigint, primaryKey: true}
	      - {name: email, type: text, notNull: true, unique: true}
*/
type tableFile struct {
	Tables []introspect.Table `json:"tables"`
}

// Reads tables from ".sql" files with CREATE TABLE statements, or from
// ".yaml", ".yml" and ".json" table definitions.
func readTables(paths []string) ([]introspect.Table, error) {
	var out []introspect.Table
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf(`reading %v: %w`, path, err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case `.yaml`, `.yml`, `.json`:
			var file tableFile
			if err := yaml.UnmarshalStrict(src, &file); err != nil {
				return nil, fmt.Errorf(`decoding %v: %w`, path, err)
			}
			out = append(out, file.Tables...)

		default:
			tables, err := introspect.Parse(string(src))
			if err != nil {
				return nil, fmt.Errorf(`parsing %v: %w`, path, err)
			}
			out = append(out, tables...)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf(`no tables found in %v`, strings.Join(paths, `, `))
	}
	return out, nil
}

func readSchema(paths []string) (*schema.Schema, error) {
	src, err := readTables(paths)
	if err != nil {
		return nil, err
	}

	tables := make([]*schema.Table, 0, len(src))
	for _, val := range src {
		table, err := schema.FromAST(val)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return schema.NewSchema(tables...)
}
