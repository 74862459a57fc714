/*
Package introspect parses CREATE TABLE statements into a dialect-neutral AST and
regenerates Go table definitions from it.

The parser is forgiving: it understands the common column modifiers and
table-level constraints of PostgreSQL and SQLite, and skips anything else
instead of failing.
*/
package introspect

import "strings"

// One parsed CREATE TABLE statement.
type Table struct {
	Name        string       `json:"name"`
	Schema      string       `json:"schema,omitempty"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  []string     `json:"primaryKey,omitempty"`
	Uniques     [][]string   `json:"uniques,omitempty"`
	ForeignKeys []ForeignKey `json:"foreignKeys,omitempty"`
	Checks      []string     `json:"checks,omitempty"`

	Temporary    bool `json:"temporary,omitempty"`
	Unlogged     bool `json:"unlogged,omitempty"`
	IfNotExists  bool `json:"ifNotExists,omitempty"`
	Strict       bool `json:"strict,omitempty"`
	WithoutRowID bool `json:"withoutRowId,omitempty"`
}

// Returns the column with the given name.
func (self Table) Column(name string) (Column, bool) {
	for _, col := range self.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

/*
One column. `Type` is the lower-case base type without parameters, such as
"varchar" or "timestamp with time zone". `Params` holds the type parameters,
such as ["10", "2"] for "NUMERIC(10, 2)".
*/
type Column struct {
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	Params        []string   `json:"params,omitempty"`
	Array         bool       `json:"array,omitempty"`
	NotNull       bool       `json:"notNull,omitempty"`
	PrimaryKey    bool       `json:"primaryKey,omitempty"`
	Unique        bool       `json:"unique,omitempty"`
	AutoIncrement bool       `json:"autoIncrement,omitempty"`
	Default       string     `json:"default,omitempty"`
	References    *Reference `json:"references,omitempty"`
	Collate       string     `json:"collate,omitempty"`
	Check         string     `json:"check,omitempty"`
	Generated     string     `json:"generated,omitempty"`

	// "always" or "by default".
	Identity string `json:"identity,omitempty"`
}

// Full SQL type including parameters and the array suffix.
func (self Column) SQLType() string {
	out := self.Type
	if len(self.Params) > 0 {
		out += `(` + strings.Join(self.Params, `, `) + `)`
	}
	if self.Array {
		out += `[]`
	}
	return out
}

// Single-column foreign key target.
type Reference struct {
	Table    string `json:"table"`
	Column   string `json:"column,omitempty"`
	OnDelete string `json:"onDelete,omitempty"`
	OnUpdate string `json:"onUpdate,omitempty"`
}

// Multi-column foreign key declared at table level.
type ForeignKey struct {
	Name       string   `json:"name,omitempty"`
	Columns    []string `json:"columns"`
	Table      string   `json:"table"`
	RefColumns []string `json:"refColumns,omitempty"`
	OnDelete   string   `json:"onDelete,omitempty"`
	OnUpdate   string   `json:"onUpdate,omitempty"`
}
