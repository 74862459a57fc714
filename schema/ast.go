package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mitranim/sqlkit"
	"github.com/mitranim/sqlkit/introspect"
	"github.com/zeebo/xxh3"
)

/*
Exposes the table in the shape produced by the introspection parser, so tables
defined in Go and tables parsed from SQL can be compared uniformly.
*/
func (self *Table) ToAST() introspect.Table {
	out := introspect.Table{
		Name:         self.name,
		Schema:       self.opts.Schema,
		Temporary:    self.opts.Temporary,
		Unlogged:     self.opts.Unlogged,
		IfNotExists:  self.opts.IfNotExists,
		Strict:       self.opts.Strict,
		WithoutRowID: self.opts.WithoutRowID,
	}

	for _, col := range self.cols {
		out.Columns = append(out.Columns, col.ast(col.name))
	}

	if len(self.pk) > 1 || (len(self.pk) == 1 && !self.cols[self.names[self.pk[0]]].primaryKey) {
		out.PrimaryKey = self.PrimaryKey()
	}
	for _, cols := range self.opts.Uniques {
		out.Uniques = append(out.Uniques, self.mustResolve(cols))
	}
	for _, fk := range self.opts.ForeignKeys {
		out.ForeignKeys = append(out.ForeignKeys, introspect.ForeignKey{
			Name:       fk.Name,
			Columns:    self.mustResolve(fk.Columns),
			Table:      fk.Table,
			RefColumns: fk.RefColumns,
			OnDelete:   string(fk.OnDelete),
			OnUpdate:   string(fk.OnUpdate),
		})
	}
	for _, val := range self.opts.Checks {
		out.Checks = append(out.Checks, val.Expr)
	}
	return out
}

func (self Column) ast(name string) introspect.Column {
	out := introspect.Column{
		Name:          name,
		Type:          self.base,
		Params:        append([]string(nil), self.params...),
		Array:         self.array,
		NotNull:       self.notNull && !self.primaryKey,
		PrimaryKey:    self.primaryKey,
		Unique:        self.unique,
		AutoIncrement: self.autoIncrement,
		Collate:       self.collate,
		Check:         self.check,
		Generated:     self.generated,
	}
	if len(out.Params) == 0 {
		out.Params = nil
	}

	switch self.identity {
	case sqlkit.IdentityAlways:
		out.Identity = `always`
	case sqlkit.IdentityByDefault:
		out.Identity = `by default`
	}

	if self.hasDefault {
		out.Default = defaultSQL(self.dflt)
	}
	if ref := self.ref; ref != nil {
		out.References = &introspect.Reference{
			Table:    ref.Table,
			Column:   ref.Column,
			OnDelete: string(ref.OnDelete),
			OnUpdate: string(ref.OnUpdate),
		}
	}
	return out
}

func defaultSQL(val any) string {
	switch val := val.(type) {
	case nil:
		return `NULL`
	case sqlkit.Expr:
		return sqlkit.TryRender(val)
	default:
		return sqlkit.TryFormat(`%L`, val)
	}
}

/*
Converts a parsed table into a table definition. Column keys equal the SQL
names. Defaults are kept as trusted SQL.
*/
func FromAST(src introspect.Table) (*Table, error) {
	cols := make(Cols, 0, len(src.Columns))
	for _, val := range src.Columns {
		cols = append(cols, Col{Key: val.Name, Column: columnFromAST(val)})
	}

	opts := TableOpts{
		Schema:       src.Schema,
		PrimaryKey:   src.PrimaryKey,
		Uniques:      src.Uniques,
		Temporary:    src.Temporary,
		Unlogged:     src.Unlogged,
		IfNotExists:  src.IfNotExists,
		Strict:       src.Strict,
		WithoutRowID: src.WithoutRowID,
	}
	for _, fk := range src.ForeignKeys {
		opts.ForeignKeys = append(opts.ForeignKeys, ForeignKey{
			Name:       fk.Name,
			Columns:    fk.Columns,
			Table:      fk.Table,
			RefColumns: fk.RefColumns,
			OnDelete:   sqlkit.RefAction(fk.OnDelete),
			OnUpdate:   sqlkit.RefAction(fk.OnUpdate),
		})
	}
	for _, val := range src.Checks {
		opts.Checks = append(opts.Checks, Check{Expr: val})
	}
	return DefineTable(src.Name, cols, opts)
}

func columnFromAST(src introspect.Column) Column {
	out := Column{
		base:          src.Type,
		params:        src.Params,
		array:         src.Array,
		notNull:       src.NotNull,
		primaryKey:    src.PrimaryKey,
		unique:        src.Unique,
		autoIncrement: src.AutoIncrement,
		generated:     src.Generated,
		collate:       src.Collate,
		check:         src.Check,
	}

	switch src.Identity {
	case `always`:
		out.identity = sqlkit.IdentityAlways
	case `by default`:
		out.identity = sqlkit.IdentityByDefault
	}

	if src.Default != `` {
		out = out.DefaultSQL(src.Default)
	}
	if ref := src.References; ref != nil {
		out = out.References(ref.Table, ref.Column).
			OnDelete(sqlkit.RefAction(ref.OnDelete)).
			OnUpdate(sqlkit.RefAction(ref.OnUpdate))
	}
	return out
}

// Subset of the definition that affects the checksum.
type tableSnapshot struct {
	Table    introspect.Table  `json:"table"`
	Indexes  []Index           `json:"indexes,omitempty"`
	Comments map[string]string `json:"comments,omitempty"`
	IDs      map[string]string `json:"ids,omitempty"`
}

func (self *Table) snapshot() tableSnapshot {
	out := tableSnapshot{Table: self.ToAST(), Indexes: self.opts.Indexes}

	put := func(tar *map[string]string, key, val string) {
		if val == `` {
			return
		}
		if *tar == nil {
			*tar = map[string]string{}
		}
		(*tar)[key] = val
	}

	put(&out.Comments, ``, self.opts.Comment)
	put(&out.IDs, ``, self.opts.ID)
	for _, col := range self.cols {
		put(&out.Comments, col.name, col.comment)
		put(&out.IDs, col.name, col.id)
	}
	return out
}

/*
Stable hex digest of the definition, for detecting drift between deployed and
declared tables. Equal definitions produce equal checksums regardless of
column keys.
*/
func (self *Table) Checksum() string {
	return formatHash(xxh3.Hash(self.snapshotJSON()))
}

func (self *Table) snapshotJSON() []byte {
	out, err := json.Marshal(self.snapshot())
	if err != nil {
		panic(fmt.Errorf(`[sqlkit] failed to encode snapshot of table %q: %w`, self.Key(), err))
	}
	return out
}

func formatHash(val uint64) string {
	out := strconv.FormatUint(val, 16)
	return strings.Repeat(`0`, 16-len(out)) + out
}

func sortedKeys[A any](src map[string]A) []string {
	out := make([]string, 0, len(src))
	for key := range src {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
