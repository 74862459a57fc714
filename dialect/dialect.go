/*
Package dialect describes what each supported database can do, and validates
schemas against it. Descriptors are static data; validation never fails, it
produces a `Report` and leaves the decision to the caller:

	report := dialect.Validate(dialect.For(sqlkit.AWSDSQL), reg)
	if err := report.Err(); err != nil {
		return err
	}
*/
package dialect

import (
	"github.com/mitranim/sqlkit"
)

// Schema feature that a dialect may lack.
type Feature string

const (
	FeatureSequences            Feature = `sequences`
	FeatureTriggers             Feature = `triggers`
	FeatureSerial               Feature = `serial`
	FeatureJSON                 Feature = `json`
	FeatureJSONB                Feature = `jsonb`
	FeatureExtensions           Feature = `extensions`
	FeaturePartitioning         Feature = `partitioning`
	FeatureForeignKeys          Feature = `foreign keys`
	FeatureMaterializedViews    Feature = `materialized views`
	FeatureExclusionConstraints Feature = `exclusion constraints`
	FeatureIdentity             Feature = `identity columns`
	FeatureGeneratedColumns     Feature = `generated columns`
	FeatureArrays               Feature = `arrays`
	FeatureEnumTypes            Feature = `enum types`
	FeatureCheckConstraints     Feature = `check constraints`
	FeatureCollations           Feature = `collations`
	FeatureTablespaces          Feature = `tablespaces`
	FeatureUnlogged             Feature = `unlogged tables`
	FeatureInherits             Feature = `table inheritance`
	FeatureFunctions            Feature = `functions`
	FeatureViews                Feature = `views`
	FeatureConcurrentIndexes    Feature = `concurrent indexes`
	FeatureIndexInclude         Feature = `index include`
	FeaturePartialIndexes       Feature = `partial indexes`
	FeatureExpressionIndexes    Feature = `expression indexes`
	FeatureComments             Feature = `comments`
	FeatureStrictTables         Feature = `strict tables`
	FeatureWithoutRowID         Feature = `without rowid`
)

// Numeric limits of a dialect. Zero means no practical limit.
type Limits struct {
	IdentifierLength int
	ColumnsPerTable  int
	Tables           int
	IndexesPerTable  int
	Connections      int
}

/*
Static capability descriptor of one dialect. Maps are shared between callers
of `For` and must not be modified.
*/
type Capabilities struct {
	Dialect sqlkit.Dialect

	// Lower-case base types accepted in column definitions.
	Types map[string]bool

	IndexMethods      map[sqlkit.IndexMethod]bool
	FunctionLanguages map[string]bool
	Blocked           map[Feature]bool
	Limits            Limits

	// Suggested replacement for each blocked feature.
	Alternatives map[Feature]string

	// Whether INSERT, UPDATE and DELETE may use RETURNING.
	Returning bool
}

func (self Capabilities) Supports(val Feature) bool { return !self.Blocked[val] }

func (self Capabilities) SupportsType(typ string) bool { return self.Types[typ] }

/*
Rendering overrides for statement builders: RETURNING is omitted when the
dialect lacks it, and JSON values are cast to text when JSONB is blocked.
*/
func (self Capabilities) Render() sqlkit.Capabilities {
	return sqlkit.Capabilities{
		DisableReturning: !self.Returning,
		JsonAsText:       self.Blocked[FeatureJSONB],
	}
}

/*
Applies a configured RETURNING override. Returns a copy; the shared maps are
not touched.
*/
func (self Capabilities) WithReturning(val bool) Capabilities {
	self.Returning = val
	return self
}

// Capability descriptor of the dialect. Unknown dialects get the PostgreSQL
// descriptor.
func For(val sqlkit.Dialect) Capabilities {
	switch val {
	case sqlkit.CockroachDB:
		return cockroachCaps
	case sqlkit.AWSDSQL:
		return dsqlCaps
	case sqlkit.SQLite:
		return sqliteCaps
	default:
		return postgresCaps
	}
}

func set[A comparable](vals ...A) map[A]bool {
	out := make(map[A]bool, len(vals))
	for _, val := range vals {
		out[val] = true
	}
	return out
}

func union[A comparable](src map[A]bool, vals ...A) map[A]bool {
	out := make(map[A]bool, len(src)+len(vals))
	for key := range src {
		out[key] = true
	}
	for _, val := range vals {
		out[val] = true
	}
	return out
}

func without[A comparable](src map[A]bool, vals ...A) map[A]bool {
	out := union(src)
	for _, val := range vals {
		delete(out, val)
	}
	return out
}

var postgresTypes = set(
	`smallint`, `integer`, `int`, `int2`, `int4`, `int8`, `bigint`,
	`serial`, `serial2`, `serial4`, `serial8`, `smallserial`, `bigserial`,
	`real`, `float4`, `float8`, `float`, `double precision`, `numeric`, `decimal`,
	`text`, `varchar`, `character varying`, `char`, `character`, `bpchar`, `citext`,
	`boolean`, `bool`, `uuid`, `date`, `time`, `timetz`, `timestamp`, `timestamptz`,
	`time with time zone`, `time without time zone`,
	`timestamp with time zone`, `timestamp without time zone`, `interval`,
	`json`, `jsonb`, `bytea`, `inet`, `cidr`, `macaddr`, `money`,
	`tsvector`, `tsquery`, `xml`, `point`, `line`, `box`, `polygon`, `circle`,
	`bit`, `varbit`, `oid`,
)

var postgresCaps = Capabilities{
	Dialect:           sqlkit.Postgres,
	Types:             postgresTypes,
	IndexMethods:      set(sqlkit.IndexBtree, sqlkit.IndexHash, sqlkit.IndexGin, sqlkit.IndexGist, sqlkit.IndexSpgist, sqlkit.IndexBrin),
	FunctionLanguages: set(`plpgsql`, `sql`, `c`, `internal`),
	Blocked:           set(FeatureStrictTables, FeatureWithoutRowID),
	Limits:            Limits{IdentifierLength: 63, ColumnsPerTable: 1600},
	Alternatives: map[Feature]string{
		FeatureStrictTables: `use CHECK constraints or precise column types`,
		FeatureWithoutRowID: `use a regular table with a primary key`,
	},
	Returning: true,
}

var cockroachCaps = Capabilities{
	Dialect:           sqlkit.CockroachDB,
	Types:             without(postgresTypes, `money`, `xml`, `cidr`, `macaddr`, `line`, `polygon`, `circle`, `tsquery`),
	IndexMethods:      set(sqlkit.IndexBtree, sqlkit.IndexGin, sqlkit.IndexGist),
	FunctionLanguages: set(`plpgsql`, `sql`),
	Blocked: union(
		postgresCaps.Blocked,
		FeatureExclusionConstraints,
		FeatureInherits,
		FeatureTablespaces,
		FeatureExtensions,
		FeatureUnlogged,
	),
	Limits: Limits{ColumnsPerTable: 1600},
	Alternatives: map[Feature]string{
		FeatureExclusionConstraints: `enforce the exclusion in the application or with a unique index`,
		FeatureInherits:             `copy the parent columns into each table`,
		FeatureTablespaces:          `use zone configurations`,
		FeatureExtensions:           `CockroachDB bundles the common extension types natively`,
		FeatureUnlogged:             `use a regular table`,
		FeatureStrictTables:         postgresCaps.Alternatives[FeatureStrictTables],
		FeatureWithoutRowID:         postgresCaps.Alternatives[FeatureWithoutRowID],
	},
	Returning: true,
}

var dsqlCaps = Capabilities{
	Dialect: sqlkit.AWSDSQL,
	Types: set(
		`smallint`, `integer`, `int`, `int2`, `int4`, `int8`, `bigint`,
		`real`, `float4`, `float8`, `float`, `double precision`, `numeric`, `decimal`,
		`text`, `varchar`, `character varying`, `char`, `character`, `bpchar`,
		`boolean`, `bool`, `uuid`, `date`, `time`, `timetz`, `timestamp`, `timestamptz`,
		`time with time zone`, `time without time zone`,
		`timestamp with time zone`, `timestamp without time zone`, `interval`, `bytea`,
	),
	IndexMethods:      set(sqlkit.IndexBtree),
	FunctionLanguages: set(`sql`),
	Blocked: union(
		postgresCaps.Blocked,
		FeatureSequences,
		FeatureTriggers,
		FeatureSerial,
		FeatureJSON,
		FeatureJSONB,
		FeatureExtensions,
		FeaturePartitioning,
		FeatureForeignKeys,
		FeatureMaterializedViews,
		FeatureExclusionConstraints,
		FeatureArrays,
		FeatureEnumTypes,
		FeatureTablespaces,
		FeatureUnlogged,
		FeatureInherits,
		FeatureConcurrentIndexes,
		FeatureIdentity,
	),
	Limits: Limits{
		IdentifierLength: 63,
		ColumnsPerTable:  255,
		Tables:           1000,
		IndexesPerTable:  24,
		Connections:      10000,
	},
	Alternatives: map[Feature]string{
		FeatureSequences:            `use UUID keys generated with gen_random_uuid()`,
		FeatureTriggers:             `move trigger logic into the application`,
		FeatureSerial:               `use UUID keys generated with gen_random_uuid()`,
		FeatureJSON:                 `store JSON as text and cast at query time`,
		FeatureJSONB:                `store JSON as text and cast at query time`,
		FeatureExtensions:           `remove the extension`,
		FeaturePartitioning:         `split data into separate tables`,
		FeatureForeignKeys:          `enforce referential integrity in the application`,
		FeatureMaterializedViews:    `use a regular view or a summary table`,
		FeatureExclusionConstraints: `enforce the exclusion in the application`,
		FeatureArrays:               `use a child table or JSON text`,
		FeatureEnumTypes:            `use text with a CHECK constraint`,
		FeatureTablespaces:          `remove the tablespace`,
		FeatureUnlogged:             `use a regular table`,
		FeatureInherits:             `copy the parent columns into each table`,
		FeatureConcurrentIndexes:    `use CREATE INDEX ASYNC`,
		FeatureIdentity:             `use UUID keys generated with gen_random_uuid()`,
		FeatureStrictTables:         postgresCaps.Alternatives[FeatureStrictTables],
		FeatureWithoutRowID:         postgresCaps.Alternatives[FeatureWithoutRowID],
	},
	Returning: true,
}

// Types accepted by STRICT tables.
var sqliteStrictTypes = set(`int`, `integer`, `real`, `text`, `blob`, `any`)

var sqliteCaps = Capabilities{
	Dialect: sqlkit.SQLite,
	Types: union(
		sqliteStrictTypes,
		`numeric`, `decimal`, `boolean`, `bool`, `date`, `datetime`, `timestamp`,
		`varchar`, `char`, `character`, `character varying`, `clob`,
		`double`, `double precision`, `float`, `smallint`, `bigint`, `tinyint`, `mediumint`,
	),
	IndexMethods: set(sqlkit.IndexBtree),
	Blocked: set(
		FeatureSequences,
		FeatureSerial,
		FeatureExtensions,
		FeaturePartitioning,
		FeatureMaterializedViews,
		FeatureExclusionConstraints,
		FeatureIdentity,
		FeatureArrays,
		FeatureEnumTypes,
		FeatureTablespaces,
		FeatureUnlogged,
		FeatureInherits,
		FeatureFunctions,
		FeatureConcurrentIndexes,
		FeatureIndexInclude,
		FeatureComments,
		FeatureJSONB,
	),
	Limits: Limits{ColumnsPerTable: 2000},
	Alternatives: map[Feature]string{
		FeatureSequences:            `use INTEGER PRIMARY KEY AUTOINCREMENT`,
		FeatureSerial:               `use INTEGER PRIMARY KEY AUTOINCREMENT`,
		FeatureExtensions:           `load the extension at connection time`,
		FeaturePartitioning:         `split data into separate tables`,
		FeatureMaterializedViews:    `use a regular view or a summary table`,
		FeatureExclusionConstraints: `enforce the exclusion in a trigger`,
		FeatureIdentity:             `use INTEGER PRIMARY KEY AUTOINCREMENT`,
		FeatureArrays:               `use a child table or JSON text`,
		FeatureEnumTypes:            `use text with a CHECK constraint`,
		FeatureTablespaces:          `attach a separate database file`,
		FeatureUnlogged:             `use a regular table`,
		FeatureInherits:             `copy the parent columns into each table`,
		FeatureFunctions:            `register application-defined functions on the connection`,
		FeatureConcurrentIndexes:    `create the index without CONCURRENTLY`,
		FeatureIndexInclude:         `add the columns to the index key`,
		FeatureComments:             `keep comments in the Go definitions`,
		FeatureJSONB:                `use text with the JSON functions`,
	},
	Returning: true,
}
