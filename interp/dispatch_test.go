package interp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasal82/koto/vm"
)

// fooType builds a meta map whose arithmetic acts on the field x, and a
// constructor for values stamped with it.
func fooType(t *testing.T) (*vm.MetaMap, func(x int) *vm.MapValue) {
	t.Helper()
	meta := vm.NewMetaMap()
	var foo func(x int) *vm.MapValue
	foo = func(x int) *vm.MapValue {
		v := vm.NewMapWithMeta(meta)
		v.Set("x", vm.IntValue(x))
		return v
	}
	field := func(v vm.Value) int {
		x, _ := v.(*vm.MapValue).Get("x")
		return int(x.(vm.IntValue))
	}
	arith := func(op func(a, b int) int) *vm.NativeValue {
		return vm.NewNative("arith", func(_ vm.Caller, args []vm.Value) (vm.Value, error) {
			return foo(op(field(args[0]), field(args[1]))), nil
		})
	}
	entries := map[vm.MetaKeyID]vm.Value{
		vm.MetaAdd:       arith(func(a, b int) int { return a + b }),
		vm.MetaSubtract:  arith(func(a, b int) int { return a - b }),
		vm.MetaMultiply:  arith(func(a, b int) int { return a * b }),
		vm.MetaDivide:    arith(func(a, b int) int { return a / b }),
		vm.MetaRemainder: arith(func(a, b int) int { return a % b }),
		vm.MetaNegate: vm.NewNative("negate", func(_ vm.Caller, args []vm.Value) (vm.Value, error) {
			return foo(-field(args[0])), nil
		}),
		vm.MetaType: vm.StrValue("Foo"),
	}
	for _, id := range []vm.MetaKeyID{vm.MetaAdd, vm.MetaSubtract, vm.MetaMultiply, vm.MetaDivide, vm.MetaRemainder, vm.MetaNegate, vm.MetaType} {
		require.NoError(t, meta.Insert(vm.KeyOf(id), entries[id]))
	}
	return meta, foo
}

func xOf(t *testing.T, v vm.Value) vm.Value {
	t.Helper()
	mv, ok := v.(*vm.MapValue)
	require.True(t, ok, "expected a map, got %s", vm.KindName(v))
	x, ok := mv.Get("x")
	require.True(t, ok)
	return x
}

func TestArithmeticOnField(t *testing.T) {
	m := NewMachine(nil)
	_, foo := fooType(t)
	ops := []struct {
		op   vm.Opcode
		want func(a, b int) int
	}{
		{vm.ADD, func(a, b int) int { return a + b }},
		{vm.SUBTRACT, func(a, b int) int { return a - b }},
		{vm.MULTIPLY, func(a, b int) int { return a * b }},
		{vm.DIVIDE, func(a, b int) int { return a / b }},
		{vm.MODULO, func(a, b int) int { return a % b }},
	}
	pairs := [][2]int{{10, 3}, {-7, 2}, {0, 5}, {12, -4}}
	for _, o := range ops {
		for _, p := range pairs {
			res, err := m.BinaryOp(o.op, foo(p[0]), foo(p[1]))
			require.NoError(t, err, o.op.String())
			assert.Equal(t, vm.IntValue(o.want(p[0], p[1])), xOf(t, res), "%d %s %d", p[0], o.op.Symbol(), p[1])
		}
	}
}

func TestCompoundFallsBackToOperator(t *testing.T) {
	m := NewMachine(nil)
	_, foo := fooType(t)
	res, err := m.CompoundOp(vm.ADD_ASSIGN, foo(2), foo(3))
	require.NoError(t, err)
	assert.Equal(t, vm.IntValue(5), xOf(t, res))

	res, err = m.CompoundOp(vm.ADD_ASSIGN, vm.IntValue(2), vm.IntValue(3))
	require.NoError(t, err)
	assert.Equal(t, vm.IntValue(5), res)
}

func TestNegate(t *testing.T) {
	m := NewMachine(nil)
	_, foo := fooType(t)
	res, err := m.UnaryOp(vm.NEGATE, foo(4))
	require.NoError(t, err)
	assert.Equal(t, vm.IntValue(-4), xOf(t, res))
	name, err := m.TypeName(res)
	require.NoError(t, err)
	assert.Equal(t, "Foo", name)

	res, err = m.UnaryOp(vm.NEGATE, vm.FloatValue(1.5))
	require.NoError(t, err)
	assert.Equal(t, vm.FloatValue(-1.5), res)

	_, err = m.UnaryOp(vm.NEGATE, vm.StrValue("s"))
	assert.ErrorIs(t, err, vm.ErrUnsupportedOperator)
}

func TestNotEntryMustReturnBool(t *testing.T) {
	m := NewMachine(nil)
	v := vm.NewMap()
	require.NoError(t, v.MetaMut().Insert(vm.KeyOf(vm.MetaNot), vm.NewNative("not", func(vm.Caller, []vm.Value) (vm.Value, error) {
		return vm.IntValue(0), nil
	})))
	_, err := m.UnaryOp(vm.NOT, v)
	assert.ErrorContains(t, err, "@not must return a Bool")
}

func TestNotWithoutEntryUsesTruthiness(t *testing.T) {
	m := NewMachine(nil)
	res, err := m.UnaryOp(vm.NOT, vm.NewMap())
	require.NoError(t, err)
	assert.Equal(t, vm.BoolTrue, res)
	res, err = m.UnaryOp(vm.NOT, vm.IntValue(3))
	require.NoError(t, err)
	assert.Equal(t, vm.BoolFalse, res)
}

func TestOrderingWithoutEntryFails(t *testing.T) {
	m := NewMachine(nil)
	_, foo := fooType(t)
	for _, op := range []vm.Opcode{vm.LT, vm.LTE, vm.GT, vm.GTE} {
		_, err := m.BinaryOp(op, foo(1), foo(2))
		var oe *vm.OperatorError
		require.True(t, errors.As(err, &oe), op.String())
		assert.Equal(t, op.Symbol(), oe.Op)
		assert.Equal(t, "Foo", oe.TypeName)
	}
}

func TestListsHaveNoOrdering(t *testing.T) {
	m := NewMachine(nil)
	l := vm.NewList(ints(1, 2)...)
	for _, op := range []vm.Opcode{vm.LT, vm.LTE, vm.GT, vm.GTE} {
		_, err := m.BinaryOp(op, l, l)
		assert.ErrorIs(t, err, vm.ErrUnsupportedOperator, op.String())
	}
	eq, err := m.Equal(l, vm.NewList(ints(1, 2)...))
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestSelfContainingValues(t *testing.T) {
	m := NewMachine(nil)
	a := vm.NewMap()
	a.Set("me", a)
	b := vm.NewMap()
	b.Set("me", b)

	eq, err := m.Equal(a, a)
	require.NoError(t, err)
	assert.True(t, eq)

	_, err = m.Equal(a, b)
	assert.ErrorIs(t, err, vm.ErrNestingTooDeep)
	_, err = m.NotEqual(a, b)
	assert.ErrorIs(t, err, vm.ErrNestingTooDeep)
	_, err = m.Display(a)
	assert.ErrorIs(t, err, vm.ErrNestingTooDeep)

	l := vm.NewList()
	l.Items = append(l.Items, l)
	other := vm.NewList()
	other.Items = append(other.Items, other)
	eq, err = m.Equal(l, l)
	require.NoError(t, err)
	assert.True(t, eq)
	_, err = m.Equal(l, other)
	assert.ErrorIs(t, err, vm.ErrNestingTooDeep)
	_, err = m.Display(l)
	assert.ErrorIs(t, err, vm.ErrNestingTooDeep)
}

func TestMissingOperatorNamesType(t *testing.T) {
	m := NewMachine(nil)
	_, err := m.BinaryOp(vm.ADD, vm.NewMap(), vm.IntValue(1))
	require.ErrorIs(t, err, vm.ErrUnsupportedOperator)
	assert.Contains(t, err.Error(), "'+' for Map")
}

func TestRightOperandIsNotConsulted(t *testing.T) {
	m := NewMachine(nil)
	_, foo := fooType(t)
	_, err := m.BinaryOp(vm.ADD, vm.IntValue(1), foo(2))
	assert.ErrorIs(t, err, vm.ErrUnsupportedOperator)
}

func TestBuiltinNumbers(t *testing.T) {
	m := NewMachine(nil)
	cases := []struct {
		op   vm.Opcode
		a, b vm.Value
		want vm.Value
	}{
		{vm.ADD, vm.IntValue(1), vm.FloatValue(0.5), vm.FloatValue(1.5)},
		{vm.DIVIDE, vm.IntValue(7), vm.IntValue(2), vm.FloatValue(3.5)},
		{vm.DIVIDE, vm.IntValue(6), vm.IntValue(3), vm.FloatValue(2)},
		{vm.DIVIDE, vm.FloatValue(7), vm.IntValue(2), vm.FloatValue(3.5)},
		{vm.FLOOR_DIVIDE, vm.IntValue(-7), vm.IntValue(2), vm.IntValue(-4)},
		{vm.FLOOR_DIVIDE, vm.IntValue(7), vm.IntValue(2), vm.IntValue(3)},
		{vm.MODULO, vm.IntValue(7), vm.IntValue(3), vm.IntValue(1)},
		{vm.MULTIPLY, vm.StrValue("ab"), vm.IntValue(2), vm.StrValue("abab")},
		{vm.ADD, vm.StrValue("a"), vm.StrValue("b"), vm.StrValue("ab")},
		{vm.LT, vm.StrValue("a"), vm.StrValue("b"), vm.BoolTrue},
		{vm.GTE, vm.IntValue(2), vm.FloatValue(2), vm.BoolTrue},
		{vm.EQ, vm.IntValue(2), vm.FloatValue(2), vm.BoolTrue},
		{vm.NEQ, vm.StrValue("a"), vm.IntValue(1), vm.BoolTrue},
	}
	for _, c := range cases {
		got, err := m.BinaryOp(c.op, c.a, c.b)
		require.NoError(t, err, "%s %s %s", vm.FormatValue(c.a), c.op.Symbol(), vm.FormatValue(c.b))
		assert.Equal(t, c.want, got)
	}

	_, err := m.BinaryOp(vm.DIVIDE, vm.IntValue(1), vm.IntValue(0))
	assert.ErrorIs(t, err, errDivisionByZero)
	assert.EqualError(t, err, "division by zero: '/' on Number")
	_, err = m.BinaryOp(vm.MODULO, vm.FloatValue(1), vm.IntValue(0))
	assert.ErrorIs(t, err, errDivisionByZero)
	assert.Contains(t, err.Error(), "'%' on Number")
	_, err = m.BinaryOp(vm.FLOOR_DIVIDE, vm.IntValue(1), vm.IntValue(0))
	assert.Contains(t, err.Error(), "'//' on Number")

	res, err := m.BinaryOp(vm.ADD, vm.NewList(ints(1)...), vm.NewList(ints(2)...))
	require.NoError(t, err)
	assert.Equal(t, ints(1, 2), res.(*vm.ListValue).Items)
}

func TestEqualityRules(t *testing.T) {
	m := NewMachine(nil)
	_, foo := fooType(t)

	eq, err := m.Equal(foo(1), foo(1))
	require.NoError(t, err)
	assert.True(t, eq)
	ne, err := m.NotEqual(foo(1), foo(1))
	require.NoError(t, err)
	assert.False(t, ne)

	eq, err = m.Equal(foo(1), foo(2))
	require.NoError(t, err)
	assert.False(t, eq)

	// Custom equality; != negates it
	v := vm.NewMap()
	v.Set("x", vm.IntValue(1))
	require.NoError(t, v.MetaMut().Insert(vm.KeyOf(vm.MetaEqual), vm.NewNative("eq", func(vm.Caller, []vm.Value) (vm.Value, error) {
		return vm.BoolTrue, nil
	})))
	eq, err = m.Equal(v, foo(99))
	require.NoError(t, err)
	assert.True(t, eq)
	ne, err = m.NotEqual(v, foo(99))
	require.NoError(t, err)
	assert.False(t, ne)

	// Equality entries must produce a Bool
	bad := vm.NewMap()
	require.NoError(t, bad.MetaMut().Insert(vm.KeyOf(vm.MetaEqual), vm.NewNative("eq", func(vm.Caller, []vm.Value) (vm.Value, error) {
		return vm.IntValue(1), nil
	})))
	_, err = m.Equal(bad, bad)
	assert.ErrorContains(t, err, "@== must return a Bool")
}

func TestIndexAndCallEntries(t *testing.T) {
	m := NewMachine(nil)
	_, foo := fooType(t)
	v := foo(10)
	other := foo(1)
	meta := v.MetaMut()
	require.NoError(t, meta.Insert(vm.KeyOf(vm.MetaIndex), vm.NewNative("index", func(_ vm.Caller, args []vm.Value) (vm.Value, error) {
		x, _ := args[0].(*vm.MapValue).Get("x")
		return x.(vm.IntValue) + args[1].(vm.IntValue), nil
	})))
	require.NoError(t, meta.Insert(vm.KeyOf(vm.MetaCall), vm.NewNative("call", func(_ vm.Caller, args []vm.Value) (vm.Value, error) {
		x, _ := args[0].(*vm.MapValue).Get("x")
		return x, nil
	})))

	for _, i := range []int{0, 5, -3} {
		got, err := m.Index(v, vm.IntValue(i))
		require.NoError(t, err)
		assert.Equal(t, vm.IntValue(10+i), got)
	}
	got, err := m.Call(v)
	require.NoError(t, err)
	assert.Equal(t, vm.IntValue(10), got)

	// Other values of the type keep the shared table
	_, err = m.Call(other)
	assert.ErrorIs(t, err, vm.ErrUnsupportedOperator)
}

func TestNativeIndexing(t *testing.T) {
	m := NewMachine(nil)
	l := vm.NewList(ints(1, 2, 3)...)
	v, err := m.Index(l, vm.IntValue(-1))
	require.NoError(t, err)
	assert.Equal(t, vm.IntValue(3), v)
	_, err = m.Index(l, vm.IntValue(3))
	assert.Error(t, err)

	v, err = m.Index(vm.StrValue("abc"), vm.IntValue(1))
	require.NoError(t, err)
	assert.Equal(t, vm.StrValue("b"), v)

	v, err = m.Slice(l, vm.IntValue(1), vm.None)
	require.NoError(t, err)
	assert.Equal(t, ints(2, 3), v.(*vm.ListValue).Items)

	_, err = m.Index(vm.IntValue(1), vm.IntValue(0))
	assert.ErrorIs(t, err, vm.ErrUnsupportedOperator)
}

func TestAttributes(t *testing.T) {
	m := NewMachine(nil)
	meta, foo := fooType(t)
	v := foo(3)

	x, err := m.GetAttr(v, "x")
	require.NoError(t, err)
	assert.Equal(t, vm.IntValue(3), x)

	_, err = m.GetAttr(v, "nope")
	var ae *vm.AttributeError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "nope", ae.Name)
	assert.Equal(t, "Foo", ae.TypeName)

	// Operator entries are not attributes
	_, err = m.GetAttr(v, "+")
	assert.ErrorIs(t, err, vm.ErrUnknownAttribute)

	require.NoError(t, m.SetAttr(v, "y", vm.IntValue(1)))
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, 7, meta.Len())
	assert.False(t, meta.Contains(vm.NamedKey("y")))
}

func TestDisplayAndType(t *testing.T) {
	m := NewMachine(nil)
	v := vm.NewMap()
	v.Set("x", vm.IntValue(-1))
	meta := v.MetaMut()
	require.NoError(t, meta.Insert(vm.KeyOf(vm.MetaDisplay), vm.NewNative("display", func(c vm.Caller, args []vm.Value) (vm.Value, error) {
		x, _ := args[0].(*vm.MapValue).Get("x")
		s, err := c.Display(x)
		return vm.StrValue("Foo (" + s + ")"), err
	})))
	require.NoError(t, meta.Insert(vm.KeyOf(vm.MetaType), vm.NewNative("type", func(vm.Caller, []vm.Value) (vm.Value, error) {
		return vm.StrValue("Computed"), nil
	})))

	s, err := m.Display(v)
	require.NoError(t, err)
	assert.Equal(t, "Foo (-1)", s)

	s, err = m.Display(vm.NewList(v, vm.StrValue("q")))
	require.NoError(t, err)
	assert.Equal(t, `[Foo (-1), "q"]`, s)

	name, err := m.TypeName(v)
	require.NoError(t, err)
	assert.Equal(t, "Computed", name)

	name, err = m.TypeName(vm.None)
	require.NoError(t, err)
	assert.Equal(t, "Null", name)
}

func TestBaseChainCycle(t *testing.T) {
	m := NewMachine(nil)
	a := vm.NewMap()
	b := vm.NewMap()
	require.NoError(t, a.MetaMut().Insert(vm.KeyOf(vm.MetaBase), b))
	require.NoError(t, b.MetaMut().Insert(vm.KeyOf(vm.MetaBase), a))

	_, err := m.BinaryOp(vm.ADD, a, vm.IntValue(1))
	assert.ErrorIs(t, err, vm.ErrUnsupportedOperator)
	_, err = m.GetAttr(a, "missing")
	assert.ErrorIs(t, err, vm.ErrUnknownAttribute)
}

func TestMethodResolution(t *testing.T) {
	m := runScript(t, `
xs = [1, 2]
xs.append(3)
has = xs.contains(2)
s = "{} and {1}".format("a", "b")
up = "abc".upper()
d = {"a": 1}
old = d.insert("a", 2)
got = d.get("missing", 7)
`)
	assert.Equal(t, ints(1, 2, 3), global(t, m, "xs").(*vm.ListValue).Items)
	assert.Equal(t, vm.BoolTrue, global(t, m, "has"))
	assert.Equal(t, vm.StrValue("a and b"), global(t, m, "s"))
	assert.Equal(t, vm.StrValue("ABC"), global(t, m, "up"))
	assert.Equal(t, vm.IntValue(1), global(t, m, "old"))
	assert.Equal(t, vm.IntValue(7), global(t, m, "got"))

	err := runScriptErr(t, "x = [1].nope()\n")
	assert.ErrorIs(t, err, vm.ErrUnknownAttribute)
}
