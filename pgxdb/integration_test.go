//go:build integration

package pgxdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mitranim/sqlkit"
	"github.com/mitranim/sqlkit/config"
	"github.com/mitranim/sqlkit/listen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
)

func testDSN(tb testing.TB) string {
	tb.Helper()

	containerOnce.Do(func() {
		ctx := context.Background()
		container, err := postgres.Run(ctx,
			`postgres:17-alpine`,
			postgres.WithDatabase(`sqlkit`),
			postgres.WithUsername(`test`),
			postgres.WithPassword(`test`),
			testcontainers.WithWaitStrategy(
				wait.ForLog(`database system is ready to accept connections`).
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			containerErr = err
			return
		}
		containerDSN, containerErr = container.ConnectionString(ctx, `sslmode=disable`)
	})

	require.NoError(tb, containerErr, `failed to start PostgreSQL container`)
	return containerDSN
}

func testPool(tb testing.TB) *Pool {
	tb.Helper()
	ctx := context.Background()

	pool, err := Open(ctx, config.Config{ConnectionString: testDSN(tb)}, nil)
	require.NoError(tb, err)
	tb.Cleanup(pool.Close)
	return pool
}

func Test_Pool_roundtrip(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)

	_, err := pool.Exec(ctx, `
		drop table if exists gadgets;
		create table gadgets (id serial primary key, name text not null, tags text[]);
	`)
	require.NoError(t, err)

	res, err := sqlkit.Exec(ctx, pool, sqlkit.Insert(`gadgets`).
		Rows(
			map[string]any{`name`: `sprocket`, `tags`: []string{`a`, `b`}},
			map[string]any{`name`: `it's a widget`},
		).
		Returning(`id`, `name`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RowCount)
	assert.Equal(t, []string{`id`, `name`}, res.Fields)
	assert.Equal(t, `it's a widget`, res.Rows[1][`name`])

	res, err = sqlkit.Exec(ctx, pool, sqlkit.Select(`gadgets`, `name`).Where(func(val *sqlkit.Conds) { val.Equal(`name`, `sprocket`) }))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	_, err = pool.Exec(ctx, `select * from missing_table`)
	var queryErr sqlkit.ErrQuery
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, `42P01`, queryErr.Code)
	assert.Equal(t, `select * from missing_table`, queryErr.SQL)

	_, err = pool.Exec(ctx, `set statement_timeout = 10; select pg_sleep(1)`)
	require.ErrorIs(t, err, sqlkit.ErrTimeout{})
}

func Test_Pool_session(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)

	sess, err := pool.Session(ctx)
	require.NoError(t, err)
	defer sess.Release()

	var tx sqlkit.Transaction
	begin, err := tx.Begin()
	require.NoError(t, err)

	_, err = sess.Exec(ctx, begin)
	require.NoError(t, err)
	_, err = sess.Exec(ctx, `create temp table scratch (val int)`)
	require.NoError(t, err)

	rollback, err := tx.Rollback()
	require.NoError(t, err)
	_, err = sess.Exec(ctx, rollback)
	require.NoError(t, err)

	_, err = sess.Exec(ctx, `select * from scratch`)
	require.ErrorIs(t, err, sqlkit.ErrQuery{})
}

func Test_Listener(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)

	lis := listen.New(listen.Options{Dial: Dialer(testDSN(t))})
	defer lis.Close(ctx)

	got := make(chan listen.Notification, 4)
	sub, err := lis.Subscribe(ctx, `gadget_events`, func(val listen.Notification) { got <- val })
	require.NoError(t, err)
	assert.Equal(t, listen.StateConnected, lis.State())

	_, err = sqlkit.Exec(ctx, pool, sqlkit.Notify(`gadget_events`, map[string]any{`id`: 1}))
	require.NoError(t, err)
	_, err = sqlkit.Exec(ctx, pool, sqlkit.Notify(`gadget_events`, `plain text`))
	require.NoError(t, err)

	first := recv(t, got)
	assert.Equal(t, map[string]any{`id`: float64(1)}, first.Payload)
	assert.Equal(t, `plain text`, recv(t, got).Payload)

	require.NoError(t, sub.Close(ctx))
	assert.Equal(t, listen.StateDisconnected, lis.State())
}

func recv(tb testing.TB, src chan listen.Notification) listen.Notification {
	tb.Helper()
	select {
	case val := <-src:
		return val
	case <-time.After(10 * time.Second):
		tb.Fatal(`timed out waiting for notification`)
		return listen.Notification{}
	}
}
