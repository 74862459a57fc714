package sqlkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	errStackDepth = 32
	errStackShown = 5
)

/*
Base error type embedded by every error kind in this package. Captures the time
of creation and the caller stack. Use `errors.As` with a specific kind such as
`ErrQuery`, or `errors.Is` with a zero value of the kind:

	if errors.Is(err, sqlkit.ErrTimeout{}) {
		// Handle the timeout.
	}
*/
type Err struct {
	While string
	Cause error
	Time  time.Time
	Stack []uintptr
}

// Creates an `Err` with the current time and the caller's stack.
func MakeErr(while string, cause error) Err {
	return makeErr(while, cause, 3)
}

func makeErr(while string, cause error, skip int) Err {
	var pcs [errStackDepth]uintptr
	count := runtime.Callers(skip, pcs[:])
	return Err{
		While: while,
		Cause: cause,
		Time:  time.Now().UTC(),
		Stack: pcs[:count:count],
	}
}

// Implement `error`.
func (self Err) Error() string { return self.message(`error`) }

// Implement a hidden interface in "errors".
func (self Err) Unwrap() error { return self.Cause }

func (self Err) message(kind string) string {
	if self.While == `` && self.Cause == nil {
		return ``
	}

	var buf strings.Builder
	buf.WriteString(`[sqlkit] `)
	buf.WriteString(kind)
	if self.While != `` {
		buf.WriteString(` while `)
		buf.WriteString(self.While)
	}
	if self.Cause != nil {
		buf.WriteString(`: `)
		buf.WriteString(self.Cause.Error())
	}
	return buf.String()
}

// Returns up to `limit` stack frames as "function (file:line)" strings.
func (self Err) Frames(limit int) []string {
	if len(self.Stack) == 0 || limit <= 0 {
		return nil
	}

	var out []string
	frames := runtime.CallersFrames(self.Stack)
	for len(out) < limit {
		frame, more := frames.Next()
		if frame.Function != `` {
			out = append(out, frame.Function+` (`+frame.File+`:`+strconv.Itoa(frame.Line)+`)`)
		}
		if !more {
			break
		}
	}
	return out
}

type errField struct {
	Key string
	Val any
}

func (self errField) empty() bool {
	switch val := self.Val.(type) {
	case nil:
		return true
	case string:
		return val == ``
	case int:
		return val == 0
	case time.Duration:
		return val == 0
	default:
		return false
	}
}

/*
Shared implementation of `fmt.Formatter`. `%v` and `%s` print the message.
`%+v` additionally prints the timestamp, the labeled context fields, and the
top stack frames.
*/
func formatErr(out fmt.State, verb rune, base Err, msg string, fields []errField) {
	_, _ = io.WriteString(out, msg)
	if verb != 'v' || !out.Flag('+') {
		return
	}

	_, _ = io.WriteString(out, "\n    timestamp: "+base.Time.Format(time.RFC3339Nano))
	for _, field := range fields {
		if field.empty() {
			continue
		}
		_, _ = fmt.Fprintf(out, "\n    %v: %v", field.Key, field.Val)
	}
	if base.Cause != nil {
		_, _ = fmt.Fprintf(out, "\n    cause: %+v", base.Cause)
	}
	for _, frame := range base.Frames(errStackShown) {
		_, _ = io.WriteString(out, "\n    at "+frame)
	}
}

// Shared implementation of `json.Marshaler`.
func marshalErr(name string, base Err, msg string, fields []errField) ([]byte, error) {
	out := map[string]any{
		`name`:      name,
		`message`:   msg,
		`timestamp`: base.Time.Format(time.RFC3339Nano),
	}
	if base.Cause != nil {
		out[`cause`] = base.Cause.Error()
	}
	for _, field := range fields {
		if !field.empty() {
			out[field.Key] = field.Val
		}
	}
	return json.Marshal(out)
}

func (self Err) Format(out fmt.State, verb rune) {
	formatErr(out, verb, self, self.Error(), nil)
}

func (self Err) MarshalJSON() ([]byte, error) {
	return marshalErr(`Error`, self, self.Error(), nil)
}

/*
Message of an error kind defined in another package, in the shape shared by
the kinds of this package: "[sqlkit] <kind> while <while>: <cause>".
*/
func (self Err) Message(kind string) string { return self.message(kind) }

/*
`fmt.Formatter` implementation for error kinds defined in other packages.
`fields` are alternating labels and values, as in "log/slog".
*/
func (self Err) FormatKind(out fmt.State, verb rune, msg string, fields ...any) {
	formatErr(out, verb, self, msg, pairFields(fields))
}

// `json.Marshaler` implementation for error kinds defined in other packages.
func (self Err) MarshalKind(name, msg string, fields ...any) ([]byte, error) {
	return marshalErr(name, self, msg, pairFields(fields))
}

func pairFields(src []any) []errField {
	out := make([]errField, 0, len(src)/2)
	for ind := 0; ind+1 < len(src); ind += 2 {
		out = append(out, errField{Key: fmt.Sprint(src[ind]), Val: src[ind+1]})
	}
	return out
}

// Backend unreachable, lost, or refused the connection.
type ErrConnection struct {
	Err
	Code string
	Host string
	Port int
}

func (self ErrConnection) Error() string {
	return self.message(`connection error`) + suffixCode(self.Code)
}

func (self ErrConnection) Is(err error) bool {
	_, ok := err.(ErrConnection)
	return ok
}

func (self ErrConnection) fields() []errField {
	return []errField{{`code`, self.Code}, {`host`, self.Host}, {`port`, self.Port}}
}

func (self ErrConnection) Format(out fmt.State, verb rune) {
	formatErr(out, verb, self.Err, self.Error(), self.fields())
}

func (self ErrConnection) MarshalJSON() ([]byte, error) {
	return marshalErr(`ConnectionError`, self.Err, self.Error(), self.fields())
}

// Backend rejected a statement.
type ErrQuery struct {
	Err
	SQL    string
	Code   string
	Detail string
	Hint   string
}

func (self ErrQuery) Error() string {
	return self.message(`query error`) + suffixCode(self.Code)
}

func (self ErrQuery) Is(err error) bool {
	_, ok := err.(ErrQuery)
	return ok
}

func (self ErrQuery) fields() []errField {
	return []errField{
		{`sql`, self.SQL}, {`code`, self.Code}, {`detail`, self.Detail}, {`hint`, self.Hint},
	}
}

func (self ErrQuery) Format(out fmt.State, verb rune) {
	formatErr(out, verb, self.Err, self.Error(), self.fields())
}

func (self ErrQuery) MarshalJSON() ([]byte, error) {
	return marshalErr(`QueryError`, self.Err, self.Error(), self.fields())
}

// Illegal transaction transition, such as COMMIT without BEGIN.
type ErrTransaction struct {
	Err
	Operation string
	State     TxState
}

func (self ErrTransaction) Error() string { return self.message(`transaction error`) }

func (self ErrTransaction) Is(err error) bool {
	_, ok := err.(ErrTransaction)
	return ok
}

func (self ErrTransaction) fields() []errField {
	return []errField{{`operation`, self.Operation}, {`transactionState`, string(self.State)}}
}

func (self ErrTransaction) Format(out fmt.State, verb rune) {
	formatErr(out, verb, self.Err, self.Error(), self.fields())
}

func (self ErrTransaction) MarshalJSON() ([]byte, error) {
	return marshalErr(`TransactionError`, self.Err, self.Error(), self.fields())
}

// Operation exceeded a deadline or was cancelled by the backend.
type ErrTimeout struct {
	Err
	Timeout   time.Duration
	Operation string
}

func (self ErrTimeout) Error() string { return self.message(`timeout error`) }

func (self ErrTimeout) Is(err error) bool {
	_, ok := err.(ErrTimeout)
	return ok
}

func (self ErrTimeout) fields() []errField {
	return []errField{{`timeout`, self.Timeout}, {`operation`, self.Operation}}
}

func (self ErrTimeout) Format(out fmt.State, verb rune) {
	formatErr(out, verb, self.Err, self.Error(), self.fields())
}

func (self ErrTimeout) MarshalJSON() ([]byte, error) {
	fields := self.fields()
	fields[0].Val = self.Timeout.Milliseconds()
	return marshalErr(`TimeoutError`, self.Err, self.Error(), fields)
}

// Connection pool exhausted or misconfigured.
type ErrPool struct {
	Err
	PoolSize int
	Active   int
	Waiting  int
}

func (self ErrPool) Error() string { return self.message(`pool error`) }

func (self ErrPool) Is(err error) bool {
	_, ok := err.(ErrPool)
	return ok
}

func (self ErrPool) fields() []errField {
	return []errField{
		{`poolSize`, self.PoolSize}, {`activeConnections`, self.Active}, {`waitingClients`, self.Waiting},
	}
}

func (self ErrPool) Format(out fmt.State, verb rune) {
	formatErr(out, verb, self.Err, self.Error(), self.fields())
}

func (self ErrPool) MarshalJSON() ([]byte, error) {
	return marshalErr(`PoolError`, self.Err, self.Error(), self.fields())
}

// Invalid configuration value.
type ErrConfig struct {
	Err
	Field string
	Value any
}

func (self ErrConfig) Error() string { return self.message(`config error`) }

func (self ErrConfig) Is(err error) bool {
	_, ok := err.(ErrConfig)
	return ok
}

func (self ErrConfig) fields() []errField {
	return []errField{{`field`, self.Field}, {`value`, self.Value}}
}

func (self ErrConfig) Format(out fmt.State, verb rune) {
	formatErr(out, verb, self.Err, self.Error(), self.fields())
}

func (self ErrConfig) MarshalJSON() ([]byte, error) {
	return marshalErr(`ConfigError`, self.Err, self.Error(), self.fields())
}

// Required environment variable missing or malformed.
type ErrEnv struct {
	Err
	Var string
}

func (self ErrEnv) Error() string { return self.message(`environment error`) }

func (self ErrEnv) Is(err error) bool {
	_, ok := err.(ErrEnv)
	return ok
}

func (self ErrEnv) fields() []errField { return []errField{{`variable`, self.Var}} }

func (self ErrEnv) Format(out fmt.State, verb rune) {
	formatErr(out, verb, self.Err, self.Error(), self.fields())
}

func (self ErrEnv) MarshalJSON() ([]byte, error) {
	return marshalErr(`EnvironmentError`, self.Err, self.Error(), self.fields())
}

// Builder rendered without a required clause, or with conflicting clauses.
type ErrBuilder struct {
	Err
	Builder string
	Missing string
	Hint    string
}

func (self ErrBuilder) Error() string {
	msg := self.message(`builder error`)
	if self.Hint != `` {
		msg += ` (hint: ` + self.Hint + `)`
	}
	return msg
}

func (self ErrBuilder) Is(err error) bool {
	_, ok := err.(ErrBuilder)
	return ok
}

func (self ErrBuilder) fields() []errField {
	return []errField{{`builder`, self.Builder}, {`missing`, self.Missing}, {`hint`, self.Hint}}
}

func (self ErrBuilder) Format(out fmt.State, verb rune) {
	formatErr(out, verb, self.Err, self.Error(), self.fields())
}

func (self ErrBuilder) MarshalJSON() ([]byte, error) {
	return marshalErr(`BuilderError`, self.Err, self.Error(), self.fields())
}

// Misuse of `Format`: unknown specifier, missing argument, or an unencodable
// value.
type ErrFormat struct {
	Err
	Template string
}

func (self ErrFormat) Error() string { return self.message(`format error`) }

func (self ErrFormat) Is(err error) bool {
	_, ok := err.(ErrFormat)
	return ok
}

func (self ErrFormat) fields() []errField { return []errField{{`template`, self.Template}} }

func (self ErrFormat) Format(out fmt.State, verb rune) {
	formatErr(out, verb, self.Err, self.Error(), self.fields())
}

func (self ErrFormat) MarshalJSON() ([]byte, error) {
	return marshalErr(`FormatError`, self.Err, self.Error(), self.fields())
}

func suffixCode(code string) string {
	if code == `` {
		return ``
	}
	return ` (code ` + code + `)`
}

func errBuilder(builder, missing, hint string) ErrBuilder {
	return ErrBuilder{
		Err:     makeErr(`rendering `+builder, errors.New(`missing `+missing), 3),
		Builder: builder,
		Missing: missing,
		Hint:    hint,
	}
}

func errBuilderInvalid(builder, field string, cause error) ErrBuilder {
	return ErrBuilder{
		Err:     makeErr(`rendering `+builder, cause, 3),
		Builder: builder,
		Missing: field,
	}
}

func errFormat(tpl string, cause error) ErrFormat {
	return ErrFormat{Err: makeErr(`formatting SQL`, cause, 3), Template: tpl}
}

func errTx(op string, state TxState, cause error) ErrTransaction {
	return ErrTransaction{
		Err:       makeErr(`applying `+op, cause, 3),
		Operation: op,
		State:     state,
	}
}
