package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasal82/koto/vm"
)

func TestSerializeDataOnly(t *testing.T) {
	m := NewMachine(nil)
	_, foo := fooType(t)

	plain := vm.NewMap()
	plain.Set("x", vm.IntValue(4))

	a, err := Serialize(foo(4))
	require.NoError(t, err)
	b, err := Serialize(plain)
	require.NoError(t, err)
	assert.Equal(t, b, a)

	back, err := Deserialize(a)
	require.NoError(t, err)
	eq, err := m.Equal(back, plain)
	require.NoError(t, err)
	assert.True(t, eq)
	assert.False(t, back.(*vm.MapValue).HasMeta())
}

func TestSerializeKeepsOrderAndKinds(t *testing.T) {
	m := NewMachine(nil)
	v := vm.NewMap()
	v.Set("z", vm.TupleValue{vm.IntValue(1), vm.StrValue("s")})
	v.Set("a", vm.NewList(vm.FloatValue(0.25), vm.None, vm.BoolTrue))
	b, err := Serialize(v)
	require.NoError(t, err)
	back, err := Deserialize(b)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a"}, back.(*vm.MapValue).Keys())
	eq, err := m.Equal(back, v)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestHashIgnoresMeta(t *testing.T) {
	_, foo := fooType(t)
	h1, err := Hash(foo(1))
	require.NoError(t, err)
	h2, err := Hash(foo(1))
	require.NoError(t, err)
	h3, err := Hash(foo(2))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestSerializeRejectsFunctions(t *testing.T) {
	_, err := Serialize(vm.NewList(vm.BuiltinValue{Name: "len"}))
	assert.Error(t, err)
}
