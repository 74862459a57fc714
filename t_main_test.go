package sqlkit

import (
	"errors"
	"fmt"
	r "reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type Builder interface {
	Expr
	Build() (string, error)
}

func eq(t testing.TB, exp, act any) {
	t.Helper()
	require.Equal(t, exp, act, `
expected (detailed):
	%#[1]v
actual (detailed):
	%#[2]v
`, exp, act)
}

func testExpr(t testing.TB, exp string, val Expr) {
	t.Helper()
	eq(t, exp, string(val.AppendExpr(nil)))

	out, err := Render(val)
	require.NoError(t, err)
	eq(t, exp, out)
}

func testBuild(t testing.TB, exp string, val Builder) {
	t.Helper()
	out, err := val.Build()
	require.NoError(t, err)
	eq(t, exp, out)
}

// Asserts that rendering fails with `ErrBuilder` whose message contains the
// given text.
func testBuilderErr(t testing.TB, msg string, val Expr) {
	t.Helper()
	_, err := Render(val)
	require.Error(t, err)

	var target ErrBuilder
	require.ErrorAs(t, err, &target)
	require.Contains(t, err.Error(), msg)
}

func testFormatErr(t testing.TB, msg string, val Expr) {
	t.Helper()
	_, err := Render(val)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrFormat{}), `expected ErrFormat, got %T: %v`, err, err)
	require.Contains(t, err.Error(), msg)
}

func panics(t testing.TB, msg string, fun func()) {
	t.Helper()
	val := catchAny(fun)

	if val == nil {
		t.Fatalf(`expected %v to panic, found no panic`, runtime.FuncForPC(r.ValueOf(fun).Pointer()).Name())
	}

	str := fmt.Sprint(val)
	if !strings.Contains(str, msg) {
		t.Fatalf(`
expected %v to panic with a message containing:
	%v
found the following message:
	%v
`, runtime.FuncForPC(r.ValueOf(fun).Pointer()).Name(), msg, str)
	}
}

func catchAny(fun func()) (val any) {
	defer recAny(&val)
	fun()
	return
}

func recAny(ptr *any) { *ptr = recover() }
