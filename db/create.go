package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/mitranim/sqlkit"
	"github.com/mitranim/sqlkit/schema"
)

// Rows of related tables, keyed by table name.
type Related map[string][]Row

// Result of `CreateWith`: the stored parent row and the stored related rows.
type Created struct {
	Row     Row
	Related Related
}

/*
Inserts a row together with rows of related tables, linking them through the
foreign keys of the relations graph, in one transaction:

	* A related table referenced by the parent ("belongs to") is inserted
	  first, and the parent's foreign key is set from the stored row. Exactly
	  one row is allowed.
	* A related table referencing the parent ("has many") is inserted after the
	  parent, with each row's foreign key set from the stored parent.

Foreign key values already present in a row are overwritten. Requires
RETURNING. Inside `Tx`, runs in the current transaction.
*/
func (self *DB) CreateWith(ctx context.Context, table string, row Row, related Related) (out Created, err error) {
	if self.tx != nil {
		return self.createWith(ctx, table, row, related)
	}
	err = self.Tx(ctx, func(tx *Tx) (err error) {
		out, err = tx.createWith(ctx, table, row, related)
		return
	})
	return
}

type link struct {
	table *schema.Table
	edge  schema.Edge
	rows  []Row
}

func (self *DB) createWith(ctx context.Context, table string, row Row, related Related) (Created, error) {
	parent, err := self.Table(table)
	if err != nil {
		return Created{}, err
	}
	if !self.caps.Returning {
		return Created{}, errCascade(parent.Key(), `returning`, fmt.Errorf(`cascade inserts need RETURNING, which is disabled for %v`, self.Dialect()))
	}

	before, after, err := self.links(parent, related)
	if err != nil {
		return Created{}, err
	}

	out := Created{Row: copyRow(row), Related: Related{}}

	for _, val := range before {
		if len(val.rows) != 1 {
			return Created{}, errCascade(parent.Key(), val.table.Key(), fmt.Errorf(`%q is referenced by %q and takes exactly one row, got %v`, val.table.Key(), parent.Key(), len(val.rows)))
		}
		stored, err := self.create(ctx, val.table, val.rows[0])
		if err != nil {
			return Created{}, err
		}
		out.Row[columnKey(parent, val.edge.FromColumn)] = stored[columnKey(val.table, val.edge.ToColumn)]
		out.Related[val.table.Key()] = []Row{stored}
	}

	stored, err := self.create(ctx, parent, out.Row)
	if err != nil {
		return Created{}, err
	}
	out.Row = stored

	for _, val := range after {
		ref := stored[columnKey(parent, val.edge.FromColumn)]
		fk := columnKey(val.table, val.edge.ToColumn)

		for _, src := range val.rows {
			child := copyRow(src)
			child[fk] = ref
			stored, err := self.create(ctx, val.table, child)
			if err != nil {
				return Created{}, err
			}
			out.Related[val.table.Key()] = append(out.Related[val.table.Key()], stored)
		}
	}
	return out, nil
}

// Splits related tables into those inserted before and after the parent, in
// a stable order.
func (self *DB) links(parent *schema.Table, related Related) (before, after []link, _ error) {
	names := make([]string, 0, len(related))
	for name := range related {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		tab, err := self.Table(name)
		if err != nil {
			return nil, nil, err
		}

		edge, ok := self.schema.Relations().Resolve(parent.Key(), tab.Key())
		if !ok {
			return nil, nil, errCascade(parent.Key(), tab.Key(), fmt.Errorf(`no foreign key between %q and %q`, parent.Key(), tab.Key()))
		}

		val := link{table: tab, edge: edge, rows: related[name]}
		if edge.Direction == schema.Forward {
			before = append(before, val)
		} else {
			after = append(after, val)
		}
	}
	return before, after, nil
}

// Edges carry SQL names; rows are keyed by column keys.
func columnKey(tab *schema.Table, name string) string {
	if desc, ok := tab.Column(name); ok {
		return desc.Key
	}
	return name
}

func errCascade(table, missing string, cause error) sqlkit.ErrBuilder {
	return sqlkit.ErrBuilder{
		Err:     sqlkit.MakeErr(`creating `+table+` with related rows`, cause),
		Builder: `create with`,
		Missing: missing,
		Hint:    `declare the foreign key with References or TableOpts.ForeignKeys`,
	}
}
