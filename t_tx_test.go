package sqlkit

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Begin(t *testing.T) {
	testExpr(t, `BEGIN`, Begin())
	testExpr(t, `BEGIN ISOLATION LEVEL SERIALIZABLE`, Begin(TxOpts{Isolation: IsolationSerializable}))
	testExpr(t, `BEGIN ISOLATION LEVEL READ COMMITTED READ ONLY`, Begin(TxOpts{Isolation: IsolationReadCommitted, ReadOnly: true}))
	testExpr(
		t,
		`BEGIN ISOLATION LEVEL SERIALIZABLE READ ONLY DEFERRABLE`,
		Begin(TxOpts{Isolation: IsolationSerializable, ReadOnly: true, Deferrable: true}),
	)
	testExpr(t, `BEGIN IMMEDIATE`, Begin(TxOpts{Dialect: SQLite, Mode: TxImmediate}))
	testExpr(t, `BEGIN`, Begin(TxOpts{Dialect: SQLite}))

	testBuilderErr(t, `DEFERRABLE requires SERIALIZABLE READ ONLY`, Begin(TxOpts{Deferrable: true}))
	testBuilderErr(t, `isolation and access modes is not supported by sqlite`, Begin(TxOpts{Dialect: SQLite, ReadOnly: true}))
	testBuilderErr(t, `EXCLUSIVE is not supported by postgres`, Begin(TxOpts{Mode: TxExclusive}))
}

func Test_tx_statements(t *testing.T) {
	testExpr(t, `COMMIT`, Commit())
	testExpr(t, `ROLLBACK`, Rollback())
	testExpr(t, `SAVEPOINT "sp1"`, Savepoint(`sp1`))
	testExpr(t, `RELEASE SAVEPOINT "sp1"`, Savepoint(`sp1`).Release())
	testExpr(t, `ROLLBACK TO SAVEPOINT "sp1"`, Savepoint(`sp1`).RollbackTo())
	testBuilderErr(t, `name`, Savepoint(``))
}

func txErr(t testing.TB, err error, state TxState) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTransaction{}), `%+v`, err)

	var txErr ErrTransaction
	require.ErrorAs(t, err, &txErr)
	eq(t, state, txErr.State)
}

func Test_Transaction(t *testing.T) {
	var tx Transaction
	eq(t, TxIdle, tx.State())

	_, err := tx.Commit()
	txErr(t, err, TxIdle)

	_, err = tx.Rollback()
	txErr(t, err, TxIdle)

	_, err = tx.Savepoint(`sp`)
	txErr(t, err, TxIdle)

	out, err := tx.Begin(TxOpts{Isolation: IsolationRepeatableRead})
	require.NoError(t, err)
	eq(t, `BEGIN ISOLATION LEVEL REPEATABLE READ`, out)
	eq(t, TxActive, tx.State())

	_, err = tx.Begin()
	txErr(t, err, TxActive)

	out, err = tx.Commit()
	require.NoError(t, err)
	eq(t, `COMMIT`, out)
	eq(t, TxIdle, tx.State())
}

func Test_Transaction_invalid_begin(t *testing.T) {
	var tx Transaction
	_, err := tx.Begin(TxOpts{Deferrable: true})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrBuilder{}))
	eq(t, TxIdle, tx.State())
}

func Test_Transaction_savepoints(t *testing.T) {
	var tx Transaction
	_, err := tx.Begin()
	require.NoError(t, err)

	for _, name := range []string{`a`, `b`, `c`} {
		out, err := tx.Savepoint(name)
		require.NoError(t, err)
		eq(t, `SAVEPOINT "`+name+`"`, out)
	}
	eq(t, []string{`a`, `b`, `c`}, tx.Savepoints())

	out, err := tx.RollbackTo(`b`)
	require.NoError(t, err)
	eq(t, `ROLLBACK TO SAVEPOINT "b"`, out)
	eq(t, []string{`a`, `b`}, tx.Savepoints())

	out, err = tx.Release(`a`)
	require.NoError(t, err)
	eq(t, `RELEASE SAVEPOINT "a"`, out)
	eq(t, []string{}, tx.Savepoints())

	_, err = tx.Release(`missing`)
	txErr(t, err, TxActive)

	_, err = tx.Savepoint(``)
	require.True(t, errors.Is(err, ErrBuilder{}))
	eq(t, []string{}, tx.Savepoints())

	out, err = tx.Rollback()
	require.NoError(t, err)
	eq(t, `ROLLBACK`, out)
	eq(t, TxIdle, tx.State())
}

func Test_Transaction_aborted(t *testing.T) {
	var tx Transaction
	tx.Fail()
	eq(t, TxIdle, tx.State())

	_, err := tx.Begin()
	require.NoError(t, err)
	_, err = tx.Savepoint(`sp`)
	require.NoError(t, err)

	tx.Fail()
	eq(t, TxAborted, tx.State())

	_, err = tx.Commit()
	txErr(t, err, TxAborted)

	_, err = tx.Savepoint(`other`)
	txErr(t, err, TxAborted)

	_, err = tx.Release(`sp`)
	txErr(t, err, TxAborted)

	out, err := tx.RollbackTo(`sp`)
	require.NoError(t, err)
	eq(t, `ROLLBACK TO SAVEPOINT "sp"`, out)
	eq(t, TxActive, tx.State())
	eq(t, []string{`sp`}, tx.Savepoints())

	tx.Fail()
	out, err = tx.Rollback()
	require.NoError(t, err)
	eq(t, `ROLLBACK`, out)
	eq(t, TxIdle, tx.State())
	eq(t, []string(nil), tx.Savepoints())
}

func Test_Transaction_innermost_savepoint(t *testing.T) {
	var tx Transaction
	_, _ = tx.Begin()
	_, _ = tx.Savepoint(`x`)
	_, _ = tx.Savepoint(`y`)
	_, _ = tx.Savepoint(`x`)

	_, err := tx.Release(`x`)
	require.NoError(t, err)
	eq(t, []string{`x`, `y`}, tx.Savepoints())
}

func Test_Transaction_concurrent(t *testing.T) {
	var tx Transaction
	var wg sync.WaitGroup
	var lock sync.Mutex
	var began int

	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tx.Begin(); err == nil {
				lock.Lock()
				began++
				lock.Unlock()
			}
		}()
	}
	wg.Wait()

	eq(t, 1, began)
	eq(t, TxActive, tx.State())
}
