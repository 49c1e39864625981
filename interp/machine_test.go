package interp

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasal82/koto/vm"
)

func newTestMachine(t *testing.T, src string) *Machine {
	t.Helper()
	p, err := vm.CompileLiteral("test.star", src)
	require.NoError(t, err)
	m := NewMachine(p)
	m.Out = &bytes.Buffer{}
	return m
}

func runScript(t *testing.T, src string) *Machine {
	t.Helper()
	m := newTestMachine(t, src)
	_, err := m.Run()
	require.NoError(t, err)
	return m
}

func runScriptErr(t *testing.T, src string) error {
	t.Helper()
	m := newTestMachine(t, src)
	_, err := m.Run()
	require.Error(t, err)
	return err
}

func global(t *testing.T, m *Machine, name string) vm.Value {
	t.Helper()
	v, ok := m.Global(name)
	require.True(t, ok, "global %s is not defined", name)
	return v
}

func TestScripts(t *testing.T) {
	err := filepath.WalkDir("../testdata", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".star") {
			return nil
		}
		t.Run(filepath.Base(path), func(t *testing.T) {
			f, err := os.Open(path)
			require.NoError(t, err)
			defer f.Close()
			p, err := vm.LoadFile(path, f)
			require.NoError(t, err)
			m := NewMachine(p)
			m.Out = &bytes.Buffer{}
			_, err = m.Run()
			require.NoError(t, err)
		})
		return nil
	})
	require.NoError(t, err)
}

func TestPrint(t *testing.T) {
	m := newTestMachine(t, `
Foo = {"@display": lambda self: "Foo!"}
print("a", 1, 2.5, [1, "s"], stamp({}, Foo), None)
`)
	_, err := m.Run()
	require.NoError(t, err)
	assert.Equal(t, "a 1 2.5 [1, \"s\"] Foo! null\n", m.Out.(*bytes.Buffer).String())
}

func TestLocalsDontLeak(t *testing.T) {
	m := runScript(t, `
x = 1
def f():
    x = 2
    return x
y = f()
`)
	assert.Equal(t, vm.IntValue(1), global(t, m, "x"))
	assert.Equal(t, vm.IntValue(2), global(t, m, "y"))
}

func TestRecursion(t *testing.T) {
	m := runScript(t, `
def fib(n):
    if n < 2:
        return n
    return fib(n - 1) + fib(n - 2)
r = fib(10)
`)
	assert.Equal(t, vm.IntValue(55), global(t, m, "r"))
}

func TestStepBudget(t *testing.T) {
	m := newTestMachine(t, `
while True:
    pass
`)
	m.MaxSteps = 1000
	_, err := m.Run()
	require.ErrorIs(t, err, vm.ErrStepBudgetExceeded)
	assert.Equal(t, 1001, m.Steps())
}

func TestCallDepth(t *testing.T) {
	m := newTestMachine(t, `
def down(n):
    return down(n + 1)
down(0)
`)
	m.MaxCallDepth = 50
	_, err := m.Run()
	require.ErrorIs(t, err, vm.ErrCallDepthExceeded)
}

func TestCallDepthThroughMeta(t *testing.T) {
	// @+ calls + on itself, so every level re-enters the machine
	m := newTestMachine(t, `
Loop = {"@+": lambda self, other: self + other}
v = stamp({}, Loop)
v + 1
`)
	m.MaxCallDepth = 20
	_, err := m.Run()
	require.ErrorIs(t, err, vm.ErrCallDepthExceeded)
}

func TestScriptErrorLocation(t *testing.T) {
	err := runScriptErr(t, "x = 1\ny = 2\nz = x + undefined_name\n")
	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "test.star", se.File)
	assert.Equal(t, 3, se.Line)
	assert.Contains(t, err.Error(), "test.star:3:")
}

func TestAssertSpecial(t *testing.T) {
	err := runScriptErr(t, "assert(1 == 2)\n")
	assert.ErrorIs(t, err, vm.ErrAssertionFailed)
	assert.Contains(t, err.Error(), "test.star:1:1")

	err = runScriptErr(t, "assert_eq([1, 2], [1, 3])\n")
	assert.ErrorIs(t, err, vm.ErrAssertionFailed)
	assert.Contains(t, err.Error(), "expected [1, 2] == [1, 3]")
}

func TestSelfContainingMapsFailInScripts(t *testing.T) {
	err := runScriptErr(t, "a = {}\na.me = a\nb = {}\nb.me = b\nx = a == b\n")
	assert.ErrorIs(t, err, vm.ErrNestingTooDeep)
	assert.Contains(t, err.Error(), "test.star:5:")

	err = runScriptErr(t, "a = {}\na.me = a\nprint(a)\n")
	assert.ErrorIs(t, err, vm.ErrNestingTooDeep)

	m := runScript(t, "a = {}\na.me = a\nsame = a == a\n")
	assert.Equal(t, vm.BoolTrue, global(t, m, "same"))
}

func TestDivisionByZeroNamesOperator(t *testing.T) {
	err := runScriptErr(t, "x = 1\ny = x // 0\n")
	assert.Contains(t, err.Error(), "test.star:2: division by zero: '//' on Number")
}

func TestEval(t *testing.T) {
	m := NewMachine(nil)
	m.Out = &bytes.Buffer{}

	_, err := m.Eval("def double(x):\n    return x * 2\n")
	require.NoError(t, err)
	_, err = m.Eval("Foo = {\"@+\": lambda self, other: self.x + other}\n")
	require.NoError(t, err)
	_, err = m.Eval("f = stamp({\"x\": 1}, Foo)\n")
	require.NoError(t, err)

	v, err := m.Eval("double(21)")
	require.NoError(t, err)
	assert.Equal(t, vm.IntValue(42), v)

	v, err = m.Eval("f + 2")
	require.NoError(t, err)
	assert.Equal(t, vm.IntValue(3), v)

	_, err = m.Eval("missing")
	assert.Error(t, err)
}

func TestSetGlobal(t *testing.T) {
	m := newTestMachine(t, "y = x * 2\n")
	m.SetGlobal("x", vm.IntValue(4))
	_, err := m.Run()
	require.NoError(t, err)
	assert.Equal(t, vm.IntValue(8), global(t, m, "y"))
}

func TestNativeCallsBack(t *testing.T) {
	m := newTestMachine(t, `
def inc(x):
    return x + 1
r = apply(inc, 41)
`)
	m.SetGlobal("apply", vm.NewNative("apply", func(c vm.Caller, args []vm.Value) (vm.Value, error) {
		return c.Call(args[0], args[1])
	}))
	_, err := m.Run()
	require.NoError(t, err)
	assert.Equal(t, vm.IntValue(42), global(t, m, "r"))
}

func TestUnpackAssign(t *testing.T) {
	m := runScript(t, `
a, b = (1, 2)
c, d = [3, 4]
a, b = b, a
`)
	assert.Equal(t, vm.IntValue(2), global(t, m, "a"))
	assert.Equal(t, vm.IntValue(1), global(t, m, "b"))
	assert.Equal(t, vm.IntValue(4), global(t, m, "d"))

	err := runScriptErr(t, "a, b = (1, 2, 3)\n")
	assert.ErrorContains(t, err, "can't unpack 3 values into 2 targets")
}
