package dialect

import (
	"fmt"
	"strings"

	"github.com/mitranim/sqlkit"
	"github.com/mitranim/sqlkit/schema"
)

/*
Checks every object of the schema against the capability descriptor. Never
fails; blocked features become error entries whose hints come from
`Capabilities.Alternatives`. A nil schema yields an empty report.
*/
func Validate(caps Capabilities, src *schema.Schema) Report {
	out := validator{caps: caps, report: Report{Dialect: caps.Dialect}}
	if src != nil {
		out.schema(src)
	}
	return out.report
}

type validator struct {
	caps   Capabilities
	report Report
}

func (self *validator) add(sev Severity, rule Rule, loc, msg, hint string) {
	self.report.Entries = append(self.report.Entries, Entry{
		Severity: sev,
		Rule:     rule,
		Location: loc,
		Message:  msg,
		Hint:     hint,
	})
}

func (self *validator) errorf(rule Rule, loc, hint, msg string, args ...any) {
	self.add(SeverityError, rule, loc, fmt.Sprintf(msg, args...), hint)
}

func (self *validator) warnf(rule Rule, loc, hint, msg string, args ...any) {
	self.add(SeverityWarning, rule, loc, fmt.Sprintf(msg, args...), hint)
}

func (self *validator) infof(rule Rule, loc, hint, msg string, args ...any) {
	self.add(SeverityInfo, rule, loc, fmt.Sprintf(msg, args...), hint)
}

// Reports an error when the feature is blocked. Returns true if it was.
func (self *validator) blocked(val Feature, rule Rule, loc string) bool {
	if self.caps.Supports(val) {
		return false
	}
	self.errorf(rule, loc, self.caps.Alternatives[val], `%v doesn't support %v`, self.caps.Dialect, val)
	return true
}

func (self *validator) schema(src *schema.Schema) {
	tables := src.Tables()
	if limit := self.caps.Limits.Tables; limit > 0 && len(tables) > limit {
		self.errorf(RuleTableCount, `schema`, `split the schema across databases`,
			`%v tables exceed the limit of %v`, len(tables), limit)
	}

	for _, val := range src.Extensions() {
		self.blocked(FeatureExtensions, RuleExtensionUnsupported, `extension `+val.Name)
	}
	for _, val := range src.Sequences() {
		loc := `sequence ` + val.Name
		self.identifier(loc, val.Name)
		self.blocked(FeatureSequences, RuleSequenceUnsupported, loc)
	}
	for _, val := range src.Functions() {
		self.function(val)
	}
	for _, val := range tables {
		self.table(val)
	}
	for _, val := range src.Views() {
		self.view(val)
	}
	for _, val := range src.Triggers() {
		self.trigger(val)
	}
}

func (self *validator) identifier(loc, name string) {
	limit := self.caps.Limits.IdentifierLength
	if limit > 0 && len(name) > limit {
		self.errorf(RuleIdentifierLength, loc, `shorten the name`,
			`identifier %q is %v bytes long, the limit is %v`, name, len(name), limit)
	}
}

func (self *validator) function(val schema.Function) {
	loc := `function ` + val.Name
	self.identifier(loc, val.Name)
	if self.blocked(FeatureFunctions, RuleFunctionUnsupported, loc) {
		return
	}

	lang := strings.ToLower(val.Language)
	if lang == `` {
		lang = `plpgsql`
	}
	if !self.caps.FunctionLanguages[lang] {
		self.errorf(RuleFunctionLanguage, loc, `rewrite the function in `+languages(self.caps.FunctionLanguages),
			`%v doesn't support functions in %v`, self.caps.Dialect, lang)
	}
}

func languages(src map[string]bool) string {
	for _, val := range []string{`sql`, `plpgsql`} {
		if src[val] {
			return val
		}
	}
	return `a supported language`
}

func (self *validator) view(val schema.View) {
	loc := `view ` + val.Name
	self.identifier(loc, val.Name)
	if val.Materialized {
		self.blocked(FeatureMaterializedViews, RuleViewMaterialized, loc)
		return
	}
	self.blocked(FeatureViews, RuleViewUnsupported, loc)
}

func (self *validator) trigger(val schema.Trigger) {
	loc := `trigger ` + val.Name
	self.identifier(loc, val.Name)
	if self.blocked(FeatureTriggers, RuleTriggerUnsupported, loc) {
		return
	}

	if self.caps.Dialect == sqlkit.SQLite {
		if val.Body == `` {
			self.errorf(RuleTriggerBody, loc, `set Trigger.Body to the trigger statements`,
				`SQLite triggers run inline statements and can't execute functions`)
		}
		if len(val.Events) > 1 {
			self.errorf(RuleTriggerBody, loc, `declare one trigger per event`,
				`SQLite triggers fire on a single event, got %v`, len(val.Events))
		}
		return
	}
	if val.Function == `` {
		self.errorf(RuleTriggerBody, loc, `set Trigger.Function to a trigger function`,
			`%v triggers need a function to execute`, self.caps.Dialect)
	}
}

func (self *validator) table(src *schema.Table) {
	loc := src.Key()
	opts := src.Opts()
	self.identifier(`table `+loc, src.Name())

	keys := src.Columns()
	if limit := self.caps.Limits.ColumnsPerTable; limit > 0 && len(keys) > limit {
		self.errorf(RuleColumnCount, loc, `split the table`,
			`%v columns exceed the limit of %v`, len(keys), limit)
	}

	sqlite := self.caps.Dialect == sqlkit.SQLite

	if opts.Strict {
		self.blocked(FeatureStrictTables, RuleTableStrict, loc)
	}
	if opts.WithoutRowID {
		self.blocked(FeatureWithoutRowID, RuleTableWithoutRowID, loc)
	}
	if opts.Partition != nil {
		self.blocked(FeaturePartitioning, RuleTablePartitioning, loc)
	}
	if len(opts.Inherits) > 0 {
		self.blocked(FeatureInherits, RuleTableInherits, loc)
	}
	if opts.Unlogged {
		self.blocked(FeatureUnlogged, RuleTableUnlogged, loc)
	}
	if opts.Tablespace != `` {
		self.blocked(FeatureTablespaces, RuleTableTablespace, loc)
	}
	if len(opts.With) > 0 && sqlite {
		self.errorf(RuleTableStorage, loc, `remove TableOpts.With`,
			`SQLite has no table storage parameters`)
	}
	if opts.Comment != `` && !self.caps.Supports(FeatureComments) {
		self.infof(RuleComments, loc, ``, `table comment is not stored by %v`, self.caps.Dialect)
	}

	for _, key := range keys {
		desc, _ := src.Column(key)
		self.column(src, opts, desc)
	}

	for _, fk := range src.ForeignKeys() {
		self.blocked(FeatureForeignKeys, RuleForeignKey, fmt.Sprintf(`%v (%v)`, loc, strings.Join(fk.Columns, `, `)))
	}
	if len(opts.Checks) > 0 {
		self.blocked(FeatureCheckConstraints, RuleCheck, loc)
	}
	for _, val := range opts.Constraints {
		if val.Kind == sqlkit.ConstraintExclude {
			self.blocked(FeatureExclusionConstraints, RuleExclusion, constraintLoc(loc, val.Name))
		}
	}

	self.indexes(src, opts)
}

func constraintLoc(table, name string) string {
	if name == `` {
		return table
	}
	return table + ` constraint ` + name
}

func (self *validator) column(table *schema.Table, opts schema.TableOpts, desc schema.ColumnDesc) {
	loc := table.Key() + `.` + desc.Name
	self.identifier(loc, desc.Name)

	base := strings.ToLower(desc.BaseType)
	switch {
	case desc.Enum:
		self.blocked(FeatureEnumTypes, RuleTypeEnum, loc)
	case isSerial(base) && self.blocked(FeatureSerial, RuleTypeSerial, loc):
	case base == `json` && self.blocked(FeatureJSON, RuleTypeJSON, loc):
	case base == `jsonb` && self.blocked(FeatureJSONB, RuleTypeJSON, loc):
	default:
		self.columnType(opts, loc, base)
	}

	if desc.Array {
		self.blocked(FeatureArrays, RuleTypeArray, loc)
	}
	if desc.Identity != sqlkit.IdentityNone {
		self.blocked(FeatureIdentity, RuleIdentity, loc)
	}
	if desc.Generated != `` {
		self.blocked(FeatureGeneratedColumns, RuleGenerated, loc)
	}
	if desc.Collate != `` {
		self.blocked(FeatureCollations, RuleCollation, loc)
	}
	if desc.Check != `` {
		self.blocked(FeatureCheckConstraints, RuleCheck, loc)
	}
	if desc.Comment != `` && !self.caps.Supports(FeatureComments) {
		self.infof(RuleComments, loc, ``, `column comment is not stored by %v`, self.caps.Dialect)
	}
	if desc.AutoIncrement {
		self.autoIncrement(table, loc, desc)
	}
}

func (self *validator) columnType(opts schema.TableOpts, loc, base string) {
	if self.caps.Dialect == sqlkit.SQLite {
		if opts.Strict {
			if !sqliteStrictTypes[base] {
				self.errorf(RuleTypeUnsupported, loc, `use INT, INTEGER, REAL, TEXT, BLOB, or ANY`,
					`STRICT tables don't accept type %q`, base)
			}
			return
		}
		if !self.caps.SupportsType(base) {
			self.infof(RuleTypeAffinity, loc, ``,
				`type %q is stored with %v affinity`, base, sqliteAffinity(base))
		}
		return
	}

	if self.caps.SupportsType(base) {
		return
	}
	if self.caps.Dialect == sqlkit.AWSDSQL {
		self.errorf(RuleTypeUnsupported, loc, `use text or bytea`,
			`%v doesn't support type %q`, self.caps.Dialect, base)
		return
	}
	self.warnf(RuleTypeUnsupported, loc, `make sure the type is created before the table`,
		`type %q is not built into %v`, base, self.caps.Dialect)
}

func (self *validator) autoIncrement(table *schema.Table, loc string, desc schema.ColumnDesc) {
	switch self.caps.Dialect {
	case sqlkit.SQLite:
		if len(table.PrimaryKey()) != 1 || !desc.PrimaryKey {
			self.errorf(RuleAutoIncrement, loc, `make the column the only primary key`,
				`SQLite AUTOINCREMENT requires a single-column INTEGER PRIMARY KEY`)
		}
	default:
		self.blocked(FeatureIdentity, RuleAutoIncrement, loc)
	}
}

func (self *validator) indexes(table *schema.Table, opts schema.TableOpts) {
	indexes := table.Indexes()

	if limit := self.caps.Limits.IndexesPerTable; limit > 0 {
		count := len(indexes) + len(opts.Uniques)
		for _, key := range table.Columns() {
			if desc, _ := table.Column(key); desc.Unique {
				count++
			}
		}
		if count > limit {
			self.errorf(RuleIndexCount, table.Key(), `drop or merge indexes`,
				`%v indexes exceed the limit of %v`, count, limit)
		}
	}

	for _, val := range indexes {
		name := table.IndexName(val)
		loc := `index ` + name
		self.identifier(loc, name)

		if val.Method != `` && !self.caps.IndexMethods[val.Method] {
			self.errorf(RuleIndexMethod, loc, `use a btree index`,
				`%v doesn't support index method %q`, self.caps.Dialect, val.Method)
		}
		if val.Concurrently {
			self.blocked(FeatureConcurrentIndexes, RuleIndexConcurrently, loc)
		}
		if len(val.Include) > 0 {
			self.blocked(FeatureIndexInclude, RuleIndexInclude, loc)
		}
		if val.Where != `` {
			self.blocked(FeaturePartialIndexes, RuleIndexPartial, loc)
		}
		if val.Expr != `` {
			self.blocked(FeatureExpressionIndexes, RuleIndexExpression, loc)
		}
	}
}

func isSerial(typ string) bool {
	switch typ {
	case `serial`, `serial2`, `serial4`, `serial8`, `smallserial`, `bigserial`:
		return true
	}
	return false
}

// Column affinity of a declared type, per the SQLite type name rules.
func sqliteAffinity(typ string) string {
	typ = strings.ToUpper(typ)
	switch {
	case strings.Contains(typ, `INT`):
		return `INTEGER`
	case strings.Contains(typ, `CHAR`), strings.Contains(typ, `CLOB`), strings.Contains(typ, `TEXT`):
		return `TEXT`
	case typ == ``, strings.Contains(typ, `BLOB`):
		return `BLOB`
	case strings.Contains(typ, `REAL`), strings.Contains(typ, `FLOA`), strings.Contains(typ, `DOUB`):
		return `REAL`
	default:
		return `NUMERIC`
	}
}
