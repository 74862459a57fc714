package dialect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitranim/sqlkit"
)

// Severity of a report entry. Only errors make `Report.Err` non-nil.
type Severity string

const (
	SeverityError   Severity = `error`
	SeverityWarning Severity = `warning`
	SeverityInfo    Severity = `info`
)

// Code of a validation rule, grouped by category prefix.
type Rule string

const (
	RuleTypeUnsupported Rule = `types/unsupported`
	RuleTypeArray       Rule = `types/array`
	RuleTypeEnum        Rule = `types/enum`
	RuleTypeSerial      Rule = `types/serial`
	RuleTypeJSON        Rule = `types/json`
	RuleTypeAffinity    Rule = `types/affinity`

	RuleIdentifierLength Rule = `limits/identifier-length`
	RuleColumnCount      Rule = `limits/column-count`
	RuleTableCount       Rule = `limits/table-count`
	RuleIndexCount       Rule = `limits/index-count`

	RuleForeignKey Rule = `constraints/foreign-key`
	RuleExclusion  Rule = `constraints/exclusion`
	RuleIdentity   Rule = `constraints/identity`
	RuleGenerated  Rule = `constraints/generated`
	RuleCheck      Rule = `constraints/check`
	RuleCollation  Rule = `constraints/collation`

	RuleIndexMethod       Rule = `indexes/method`
	RuleIndexConcurrently Rule = `indexes/concurrently`
	RuleIndexInclude      Rule = `indexes/include`
	RuleIndexPartial      Rule = `indexes/partial`
	RuleIndexExpression   Rule = `indexes/expression`

	RuleTableStrict       Rule = `tables/strict`
	RuleTableWithoutRowID Rule = `tables/without-rowid`
	RuleTablePartitioning Rule = `tables/partitioning`
	RuleTableInherits     Rule = `tables/inherits`
	RuleTableUnlogged     Rule = `tables/unlogged`
	RuleTableTablespace   Rule = `tables/tablespace`
	RuleTableStorage      Rule = `tables/storage`

	RuleFunctionUnsupported Rule = `functions/unsupported`
	RuleFunctionLanguage    Rule = `functions/language`

	RuleTriggerUnsupported Rule = `triggers/unsupported`
	RuleTriggerBody        Rule = `triggers/body`

	RuleViewUnsupported  Rule = `views/unsupported`
	RuleViewMaterialized Rule = `views/materialized`

	RuleSequenceUnsupported Rule = `sequences/unsupported`

	RuleExtensionUnsupported Rule = `extensions/unsupported`

	RuleReturning     Rule = `misc/returning`
	RuleComments      Rule = `misc/comments`
	RuleAutoIncrement Rule = `misc/autoincrement`
)

// Category of the rule, such as "types".
func (self Rule) Category() string {
	out, _, _ := strings.Cut(string(self), `/`)
	return out
}

/*
Single validation finding. `Location` names the object, such as
"users.email" for a column or "index users_email_key" for an index.
*/
type Entry struct {
	Severity Severity `json:"severity"`
	Rule     Rule     `json:"rule"`
	Location string   `json:"location"`
	Message  string   `json:"message"`
	Hint     string   `json:"hint,omitempty"`
}

// Implement `error`, for joining error entries.
func (self Entry) Error() string {
	var buf strings.Builder
	buf.WriteString(self.Location)
	buf.WriteString(`: `)
	buf.WriteString(self.Message)
	buf.WriteString(` [`)
	buf.WriteString(string(self.Rule))
	buf.WriteString(`]`)
	if self.Hint != `` {
		buf.WriteString(`; hint: `)
		buf.WriteString(self.Hint)
	}
	return buf.String()
}

// Validation result. Entries are ordered by the walk over the schema.
type Report struct {
	Dialect sqlkit.Dialect `json:"dialect"`
	Entries []Entry        `json:"entries"`
}

func (self Report) HasErrors() bool {
	for _, val := range self.Entries {
		if val.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (self Report) Errors() []Entry   { return self.filter(SeverityError) }
func (self Report) Warnings() []Entry { return self.filter(SeverityWarning) }
func (self Report) Infos() []Entry    { return self.filter(SeverityInfo) }

func (self Report) filter(sev Severity) (out []Entry) {
	for _, val := range self.Entries {
		if val.Severity == sev {
			out = append(out, val)
		}
	}
	return
}

// Entries of the given category, such as "indexes".
func (self Report) Category(name string) (out []Entry) {
	for _, val := range self.Entries {
		if val.Rule.Category() == name {
			out = append(out, val)
		}
	}
	return
}

/*
Joins error entries into one error, or returns nil when there are none.
Warnings and infos are ignored.
*/
func (self Report) Err() error {
	src := self.Errors()
	if len(src) == 0 {
		return nil
	}
	errs := make([]error, 0, len(src))
	for _, val := range src {
		errs = append(errs, val)
	}
	return sqlkit.MakeErr(
		fmt.Sprintf(`validating schema for %v`, self.Dialect),
		errors.Join(errs...),
	)
}

/*
Human-readable listing, one entry per line, followed by a summary line such
as "awsdsql: 2 errors, 1 warning, 0 infos".
*/
func (self Report) String() string {
	var buf strings.Builder
	for _, val := range self.Entries {
		fmt.Fprintf(&buf, "%-7s %s\n", val.Severity, val.Error())
	}
	fmt.Fprintf(
		&buf, `%v: %v, %v, %v`,
		self.Dialect,
		plural(len(self.Errors()), `error`),
		plural(len(self.Warnings()), `warning`),
		plural(len(self.Infos()), `info`),
	)
	return buf.String()
}

func plural(count int, word string) string {
	if count == 1 {
		return `1 ` + word
	}
	return fmt.Sprintf(`%d %ss`, count, word)
}
