package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitranim/sqlkit"
)

/*
Client bound to one session inside an open transaction. Every method of `DB`
is available and runs on the session. A failing statement marks the
transaction aborted; after that only `Savepoint` recovery or the final rollback
can run.
*/
type Tx struct {
	DB
	sess sqlkit.Session
}

// Executor recording statement failures on the tracker.
type txExecutor struct {
	sess  sqlkit.Session
	track *sqlkit.Transaction
}

func (self txExecutor) Exec(ctx context.Context, sql string) (sqlkit.Result, error) {
	out, err := self.sess.Exec(ctx, sql)
	if err != nil {
		self.track.Fail()
	}
	return out, err
}

/*
Runs the function in a transaction on a dedicated session. Commits when the
function returns nil, rolls back on errors and panics. Inside a transaction,
runs the function in a savepoint instead, so transactions nest.

Requires an executor implementing `sqlkit.SessionProvider`.
*/
func (self *DB) Tx(ctx context.Context, fun func(*Tx) error, opts ...sqlkit.TxOpts) error {
	if self.tx != nil {
		return self.nested(ctx, fun)
	}

	provider, ok := self.exec.(sqlkit.SessionProvider)
	if !ok {
		return sqlkit.ErrTransaction{
			Err:       sqlkit.MakeErr(`beginning transaction`, fmt.Errorf(`executor %T can't provide sessions`, self.exec)),
			Operation: `BEGIN`,
			State:     sqlkit.TxIdle,
		}
	}

	sess, err := provider.Session(ctx)
	if err != nil {
		return err
	}
	defer sess.Release()

	track := new(sqlkit.Transaction)
	begin, err := track.Begin(opts...)
	if err != nil {
		return err
	}
	if _, err := sess.Exec(ctx, begin); err != nil {
		return err
	}
	self.log.Debug(`transaction started`, `sql`, begin)

	tx := &Tx{DB: *self, sess: sess}
	tx.exec = txExecutor{sess: sess, track: track}
	tx.tx = track
	tx.close = nil

	err = tx.run(ctx, fun)
	if err != nil {
		tx.rollback(ctx)
		return err
	}

	commit, err := track.Commit()
	if err != nil {
		tx.rollback(ctx)
		return err
	}
	if _, err := sess.Exec(ctx, commit); err != nil {
		return err
	}
	self.log.Debug(`transaction committed`)
	return nil
}

// Converts panics to errors after rolling back, then re-panics.
func (self *Tx) run(ctx context.Context, fun func(*Tx) error) (err error) {
	defer func() {
		if val := recover(); val != nil {
			self.rollback(ctx)
			panic(val)
		}
	}()
	return fun(self)
}

func (self *Tx) rollback(ctx context.Context) {
	sql, err := self.tx.Rollback()
	if err != nil {
		return
	}
	if _, err := self.sess.Exec(context.WithoutCancel(ctx), sql); err != nil {
		self.log.Warn(`failed to roll back transaction`, `error`, err)
		return
	}
	self.log.Debug(`transaction rolled back`)
}

func (self *DB) nested(ctx context.Context, fun func(*Tx) error) error {
	tx := &Tx{DB: *self, sess: self.exec.(txExecutor).sess}
	return tx.Savepoint(ctx, fmt.Sprintf(`sp_%d`, len(self.tx.Savepoints())+1), fun)
}

/*
Runs the function inside a savepoint. An error or an aborted transaction rolls
back to the savepoint and releases it, leaving the outer transaction usable.
*/
func (self *Tx) Savepoint(ctx context.Context, name string, fun func(*Tx) error) error {
	open, err := self.tx.Savepoint(name)
	if err != nil {
		return err
	}
	if _, err := self.sess.Exec(ctx, open); err != nil {
		self.tx.Fail()
		return err
	}

	err = self.runSavepoint(ctx, name, fun)
	if err == nil && self.tx.State() == sqlkit.TxAborted {
		err = sqlkit.ErrTransaction{
			Err:       sqlkit.MakeErr(`releasing savepoint`, errors.New(`a statement failed inside the savepoint`)),
			Operation: `RELEASE SAVEPOINT`,
			State:     sqlkit.TxAborted,
		}
	}
	if err != nil {
		if undoErr := self.undo(ctx, name); undoErr != nil {
			return errors.Join(err, undoErr)
		}
		return err
	}

	release, err := self.tx.Release(name)
	if err != nil {
		return err
	}
	_, err = self.exec.Exec(ctx, release)
	return err
}

func (self *Tx) runSavepoint(ctx context.Context, name string, fun func(*Tx) error) (err error) {
	defer func() {
		if val := recover(); val != nil {
			_ = self.undo(ctx, name)
			panic(val)
		}
	}()
	return fun(self)
}

func (self *Tx) undo(ctx context.Context, name string) error {
	back, err := self.tx.RollbackTo(name)
	if err != nil {
		return err
	}
	if _, err := self.sess.Exec(ctx, back); err != nil {
		return err
	}
	release, err := self.tx.Release(name)
	if err != nil {
		return err
	}
	_, err = self.sess.Exec(ctx, release)
	return err
}

// Tracker of the transaction state.
func (self *Tx) State() sqlkit.TxState { return self.tx.State() }
