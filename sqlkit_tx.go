package sqlkit

import (
	"sync"
)

// Transaction isolation level.
type Isolation string

const (
	IsolationDefault        Isolation = ``
	IsolationReadCommitted  Isolation = `READ COMMITTED`
	IsolationRepeatableRead Isolation = `REPEATABLE READ`
	IsolationSerializable   Isolation = `SERIALIZABLE`
)

// SQLite locking mode of BEGIN.
type TxMode string

const (
	TxDeferred  TxMode = `DEFERRED`
	TxImmediate TxMode = `IMMEDIATE`
	TxExclusive TxMode = `EXCLUSIVE`
)

/*
Options of BEGIN. On SQLite only `Mode` applies; on PostgreSQL-family dialects
`Mode` is rejected.
*/
type TxOpts struct {
	Dialect    Dialect
	Isolation  Isolation
	ReadOnly   bool
	Deferrable bool
	Mode       TxMode
}

// Renders BEGIN with the given options.
func Begin(opts ...TxOpts) BeginStmt {
	var out BeginStmt
	if len(opts) > 0 {
		out.Opts = opts[0]
	}
	return out
}

type BeginStmt struct{ Opts TxOpts }

// Implement the `Expr` interface, making this a sub-expression.
func (self BeginStmt) AppendExpr(text []byte) []byte {
	opts := self.Opts
	bui := Bui{text}
	bui.Str(`BEGIN`)

	if opts.Dialect == SQLite {
		if opts.Isolation != `` || opts.ReadOnly || opts.Deferrable {
			panic(errUnsupported(`begin`, `isolation and access modes`, opts.Dialect))
		}
		if opts.Mode != `` {
			bui.Str(string(opts.Mode))
		}
		return bui.Text
	}

	if opts.Mode != `` {
		panic(errUnsupported(`begin`, string(opts.Mode), opts.Dialect))
	}
	if opts.Deferrable && !(opts.ReadOnly && opts.Isolation == IsolationSerializable) {
		panic(errBuilderInvalid(`begin`, `DEFERRABLE`, errf(`DEFERRABLE requires SERIALIZABLE READ ONLY`)))
	}
	if opts.Isolation != `` {
		bui.Str(`ISOLATION LEVEL`)
		bui.Str(string(opts.Isolation))
	}
	if opts.ReadOnly {
		bui.Str(`READ ONLY`)
	}
	if opts.Deferrable {
		bui.Str(`DEFERRABLE`)
	}
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse.
func (self BeginStmt) String() string { return exprString(self) }

// Renders `COMMIT`.
func Commit() SqlExpr { return `COMMIT` }

// Renders `ROLLBACK`.
func Rollback() SqlExpr { return `ROLLBACK` }

// Renders `SAVEPOINT "name"`. See `Release` and `RollbackTo`.
func Savepoint(name string) SavepointStmt { return SavepointStmt{Name: name} }

type SavepointStmt struct {
	Name string
	op   string
}

// Renders `RELEASE SAVEPOINT "name"`.
func (self SavepointStmt) Release() SavepointStmt {
	self.op = `RELEASE SAVEPOINT`
	return self
}

// Renders `ROLLBACK TO SAVEPOINT "name"`.
func (self SavepointStmt) RollbackTo() SavepointStmt {
	self.op = `ROLLBACK TO SAVEPOINT`
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self SavepointStmt) AppendExpr(text []byte) []byte {
	if self.Name == `` {
		panic(errBuilder(`savepoint`, `name`, `pass a savepoint name`))
	}
	bui := Bui{text}
	if self.op == `` {
		bui.Str(`SAVEPOINT`)
	} else {
		bui.Str(self.op)
	}
	bui.Ident(self.Name)
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse.
func (self SavepointStmt) String() string { return exprString(self) }

// State of a tracked transaction.
type TxState string

const (
	TxIdle    TxState = `idle`
	TxActive  TxState = `active`
	TxAborted TxState = `aborted`
)

/*
Tracks the state of one transaction on a dedicated session and renders the
control statements for legal transitions. Illegal transitions, such as COMMIT
without BEGIN, return `ErrTransaction` without rendering anything. The zero
value is idle and ready to use. Safe for concurrent use.

	var tx sqlkit.Transaction
	begin, err := tx.Begin(sqlkit.TxOpts{Isolation: sqlkit.IsolationSerializable})
*/
type Transaction struct {
	lock       sync.Mutex
	state      TxState
	savepoints []string
}

func (self *Transaction) State() TxState {
	self.lock.Lock()
	defer self.lock.Unlock()
	return self.stateLocked()
}

func (self *Transaction) stateLocked() TxState {
	if self.state == `` {
		return TxIdle
	}
	return self.state
}

// Returns a copy of the currently open savepoints, outermost first.
func (self *Transaction) Savepoints() []string {
	self.lock.Lock()
	defer self.lock.Unlock()
	return copyStrings(self.savepoints)
}

func (self *Transaction) Begin(opts ...TxOpts) (_ string, err error) {
	self.lock.Lock()
	defer self.lock.Unlock()

	if state := self.stateLocked(); state != TxIdle {
		return ``, errTx(`BEGIN`, state, errf(`transaction already %v`, state))
	}
	out, err := Render(Begin(opts...))
	if err != nil {
		return ``, err
	}
	self.state = TxActive
	return out, nil
}

// Commit of an aborted transaction is rejected; roll back instead.
func (self *Transaction) Commit() (string, error) {
	self.lock.Lock()
	defer self.lock.Unlock()

	switch state := self.stateLocked(); state {
	case TxActive:
		self.reset()
		return `COMMIT`, nil
	case TxAborted:
		return ``, errTx(`COMMIT`, state, errf(`transaction is aborted; roll back instead`))
	default:
		return ``, errTx(`COMMIT`, state, errf(`no transaction in progress`))
	}
}

func (self *Transaction) Rollback() (string, error) {
	self.lock.Lock()
	defer self.lock.Unlock()

	if state := self.stateLocked(); state == TxIdle {
		return ``, errTx(`ROLLBACK`, state, errf(`no transaction in progress`))
	}
	self.reset()
	return `ROLLBACK`, nil
}

func (self *Transaction) Savepoint(name string) (string, error) {
	self.lock.Lock()
	defer self.lock.Unlock()

	if state := self.stateLocked(); state != TxActive {
		return ``, errTx(`SAVEPOINT`, state, errf(`savepoints require an active transaction`))
	}
	out, err := Render(Savepoint(name))
	if err != nil {
		return ``, err
	}
	self.savepoints = append(self.savepoints, name)
	return out, nil
}

// Releases the savepoint and every savepoint opened after it.
func (self *Transaction) Release(name string) (string, error) {
	self.lock.Lock()
	defer self.lock.Unlock()

	state := self.stateLocked()
	if state != TxActive {
		return ``, errTx(`RELEASE SAVEPOINT`, state, errf(`savepoints require an active transaction`))
	}
	ind := self.savepointIndex(name)
	if ind < 0 {
		return ``, errTx(`RELEASE SAVEPOINT`, state, errf(`unknown savepoint %q`, name))
	}
	self.savepoints = self.savepoints[:ind]
	return Savepoint(name).Release().String(), nil
}

/*
Rolls back to the savepoint, discarding savepoints opened after it. Legal in an
aborted transaction, which becomes active again.
*/
func (self *Transaction) RollbackTo(name string) (string, error) {
	self.lock.Lock()
	defer self.lock.Unlock()

	state := self.stateLocked()
	if state == TxIdle {
		return ``, errTx(`ROLLBACK TO SAVEPOINT`, state, errf(`no transaction in progress`))
	}
	ind := self.savepointIndex(name)
	if ind < 0 {
		return ``, errTx(`ROLLBACK TO SAVEPOINT`, state, errf(`unknown savepoint %q`, name))
	}
	self.savepoints = self.savepoints[:ind+1]
	self.state = TxActive
	return Savepoint(name).RollbackTo().String(), nil
}

/*
Marks an active transaction as aborted. Executors call this when a statement
fails inside the transaction. A nop in any other state.
*/
func (self *Transaction) Fail() {
	self.lock.Lock()
	defer self.lock.Unlock()

	if self.stateLocked() == TxActive {
		self.state = TxAborted
	}
}

func (self *Transaction) reset() {
	self.state = TxIdle
	self.savepoints = nil
}

// Innermost match wins.
func (self *Transaction) savepointIndex(name string) int {
	for ind := len(self.savepoints) - 1; ind >= 0; ind-- {
		if self.savepoints[ind] == name {
			return ind
		}
	}
	return -1
}
