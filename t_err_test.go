package sqlkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Err_message(t *testing.T) {
	eq(t, ``, Err{}.Error())
	eq(t, `[sqlkit] error while opening: boom`, MakeErr(`opening`, errors.New(`boom`)).Error())

	err := ErrQuery{Err: MakeErr(`running query`, errors.New(`relation "x" does not exist`)), SQL: `SELECT * FROM x`, Code: `42P01`}
	eq(t, `[sqlkit] query error while running query: relation "x" does not exist (code 42P01)`, err.Error())

	eq(t, `[sqlkit] connection error while dialing: refused`, ErrConnection{Err: MakeErr(`dialing`, errors.New(`refused`))}.Error())
	eq(t, `[sqlkit] timeout error while waiting`, ErrTimeout{Err: MakeErr(`waiting`, nil)}.Error())
}

func Test_Err_kinds(t *testing.T) {
	kinds := []error{
		ErrConnection{}, ErrQuery{}, ErrTransaction{}, ErrTimeout{},
		ErrPool{}, ErrConfig{}, ErrEnv{}, ErrBuilder{}, ErrFormat{},
	}

	for ind, kind := range kinds {
		wrapped := fmt.Errorf(`outer: %w`, kind)
		for other, target := range kinds {
			eq(t, ind == other, errors.Is(wrapped, target))
		}
	}
}

func Test_Err_As(t *testing.T) {
	_, err := Select(`users`).Cols().Build()

	var builderErr ErrBuilder
	require.ErrorAs(t, err, &builderErr)
	eq(t, `select`, builderErr.Builder)
	eq(t, `columns`, builderErr.Missing)
	require.NotEmpty(t, builderErr.Stack)
	require.False(t, builderErr.Time.IsZero())
}

func Test_Err_Format(t *testing.T) {
	err := ErrQuery{
		Err:  MakeErr(`running query`, errors.New(`boom`)),
		SQL:  `SELECT 1`,
		Code: `XX000`,
	}

	eq(t, err.Error(), fmt.Sprintf(`%v`, err))
	eq(t, err.Error(), fmt.Sprintf(`%s`, err))

	out := fmt.Sprintf(`%+v`, err)
	require.Contains(t, out, err.Error())
	require.Contains(t, out, "\n    timestamp: ")
	require.Contains(t, out, "\n    sql: SELECT 1")
	require.Contains(t, out, "\n    code: XX000")
	require.Contains(t, out, "\n    cause: boom")
	require.Contains(t, out, "\n    at ")
	require.NotContains(t, out, `detail:`)
}

func Test_Err_MarshalJSON(t *testing.T) {
	decode := func(val any) map[string]any {
		t.Helper()
		var out map[string]any
		require.NoError(t, json.Unmarshal(mustJson(t, val), &out))
		return out
	}

	out := decode(ErrPool{Err: MakeErr(`acquiring`, errors.New(`exhausted`)), PoolSize: 10, Active: 10, Waiting: 3})
	eq(t, `PoolError`, out[`name`])
	eq(t, `[sqlkit] pool error while acquiring: exhausted`, out[`message`])
	eq(t, `exhausted`, out[`cause`])
	eq(t, float64(10), out[`poolSize`])
	eq(t, float64(3), out[`waitingClients`])
	require.NotEmpty(t, out[`timestamp`])

	out = decode(ErrTimeout{Err: MakeErr(`querying`, nil), Timeout: 1500 * time.Millisecond, Operation: `query`})
	eq(t, `TimeoutError`, out[`name`])
	eq(t, float64(1500), out[`timeout`])
	eq(t, `query`, out[`operation`])
	_, ok := out[`cause`]
	eq(t, false, ok)

	out = decode(ErrEnv{Err: MakeErr(`reading env`, nil), Var: `DATABASE_URL`})
	eq(t, `EnvironmentError`, out[`name`])
	eq(t, `DATABASE_URL`, out[`variable`])
}

func mustJson(t testing.TB, val any) []byte {
	t.Helper()
	out, err := json.Marshal(val)
	require.NoError(t, err)
	return out
}
