package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasal82/koto/vm"
)

func ints(n ...int) []vm.Value {
	out := make([]vm.Value, len(n))
	for i, v := range n {
		out[i] = vm.IntValue(v)
	}
	return out
}

func TestSliceIteratorBothEnds(t *testing.T) {
	iter := NewSliceIterator(ints(1, 2, 3))

	v, ok, err := iter.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, vm.IntValue(1), v)

	v, ok, _ = iter.NextBack()
	require.True(t, ok)
	assert.Equal(t, vm.IntValue(3), v)

	v, ok, _ = iter.NextBack()
	require.True(t, ok)
	assert.Equal(t, vm.IntValue(2), v)

	_, ok, _ = iter.Next()
	assert.False(t, ok)
	_, ok, _ = iter.NextBack()
	assert.False(t, ok)
}

func TestDictIteratorYieldsPairs(t *testing.T) {
	m := vm.NewMap()
	m.Set("a", vm.IntValue(1))
	m.Set("b", vm.IntValue(2))
	m.Set("c", vm.IntValue(3))
	require.NoError(t, m.MetaMut().Insert(vm.KeyOf(vm.MetaType), vm.StrValue("Hidden")))

	iter := NewDictIterator(m)
	v, ok, _ := iter.Next()
	require.True(t, ok)
	assert.Equal(t, vm.TupleValue{vm.StrValue("a"), vm.IntValue(1)}, v)

	// Removed entries are skipped
	m.Delete("b")
	v, ok, _ = iter.NextBack()
	require.True(t, ok)
	assert.Equal(t, vm.TupleValue{vm.StrValue("c"), vm.IntValue(3)}, v)
	_, ok, _ = iter.Next()
	assert.False(t, ok)
}

// counter builds a map with @next/@next_back natives sharing a cursor over
// [0, n).
func counter(t *testing.T, n int) *vm.MapValue {
	t.Helper()
	state := vm.NewMap()
	state.Set("front", vm.IntValue(0))
	state.Set("back", vm.IntValue(n))
	step := func(fromBack bool) *vm.NativeValue {
		return vm.NewNative("step", func(_ vm.Caller, args []vm.Value) (vm.Value, error) {
			self := args[0].(*vm.MapValue)
			f, _ := self.Get("front")
			b, _ := self.Get("back")
			front, back := f.(vm.IntValue), b.(vm.IntValue)
			if front >= back {
				return vm.None, nil
			}
			if fromBack {
				self.Set("back", back-1)
				return back - 1, nil
			}
			self.Set("front", front+1)
			return front, nil
		})
	}
	meta := state.MetaMut()
	require.NoError(t, meta.Insert(vm.KeyOf(vm.MetaNext), step(false)))
	require.NoError(t, meta.Insert(vm.KeyOf(vm.MetaNextBack), step(true)))
	return state
}

func TestMetaIteratorConverges(t *testing.T) {
	m := NewMachine(nil)
	it, err := m.MakeIterator(counter(t, 4))
	require.NoError(t, err)
	de, ok := it.(vm.DoubleEndedIterator)
	require.True(t, ok)

	v, _, _ := de.Next()
	assert.Equal(t, vm.IntValue(0), v)
	v, _, _ = de.NextBack()
	assert.Equal(t, vm.IntValue(3), v)
	v, _, _ = de.NextBack()
	assert.Equal(t, vm.IntValue(2), v)
	v, _, _ = de.Next()
	assert.Equal(t, vm.IntValue(1), v)

	_, ok, err = de.Next()
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = de.NextBack()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMetaIteratorStaysExhausted(t *testing.T) {
	m := NewMachine(nil)
	calls := 0
	state := vm.NewMap()
	// Ends once, then would produce values again
	require.NoError(t, state.MetaMut().Insert(vm.KeyOf(vm.MetaNext), vm.NewNative("next", func(vm.Caller, []vm.Value) (vm.Value, error) {
		calls++
		if calls == 2 {
			return vm.None, nil
		}
		return vm.IntValue(calls), nil
	})))
	it, err := m.MakeIterator(state)
	require.NoError(t, err)
	got, err := m.collect(it, false)
	require.NoError(t, err)
	assert.Equal(t, ints(1), got)

	_, ok, _ := it.Next()
	assert.False(t, ok)
	assert.Equal(t, 2, calls)
}

func TestMetaIteratorWithoutNextBack(t *testing.T) {
	m := NewMachine(nil)
	state := vm.NewMap()
	require.NoError(t, state.MetaMut().Insert(vm.KeyOf(vm.MetaNext), vm.NewNative("next", func(vm.Caller, []vm.Value) (vm.Value, error) {
		return vm.None, nil
	})))
	it, err := m.MakeIterator(state)
	require.NoError(t, err)
	_, _, err = it.(vm.DoubleEndedIterator).NextBack()
	assert.ErrorIs(t, err, vm.ErrUnsupportedOperator)
}

func TestIteratorEntryRestarts(t *testing.T) {
	m := NewMachine(nil)
	v := vm.NewMap()
	require.NoError(t, v.MetaMut().Insert(vm.KeyOf(vm.MetaIterator), vm.NewNative("iterator", func(vm.Caller, []vm.Value) (vm.Value, error) {
		return counter(t, 3), nil
	})))
	for i := 0; i < 2; i++ {
		it, err := m.MakeIterator(v)
		require.NoError(t, err)
		got, err := m.collect(it, false)
		require.NoError(t, err)
		assert.Equal(t, ints(0, 1, 2), got)
	}
}

func TestIteratorEntryReturningSequence(t *testing.T) {
	m := NewMachine(nil)
	v := vm.NewMap()
	require.NoError(t, v.MetaMut().Insert(vm.KeyOf(vm.MetaIterator), vm.NewNative("iterator", func(vm.Caller, []vm.Value) (vm.Value, error) {
		return vm.NewList(ints(7, 8)...), nil
	})))
	it, err := m.MakeIterator(v)
	require.NoError(t, err)
	got, err := m.collect(it, true)
	require.NoError(t, err)
	assert.Equal(t, ints(8, 7), got)
}

func TestMakeIteratorRejectsNumbers(t *testing.T) {
	m := NewMachine(nil)
	_, err := m.MakeIterator(vm.IntValue(3))
	assert.ErrorIs(t, err, vm.ErrUnsupportedOperator)
}

func TestEnumerateIterator(t *testing.T) {
	e := &EnumerateIterator{Inner: NewSliceIterator([]vm.Value{vm.StrValue("a"), vm.StrValue("b")})}
	v, ok, _ := e.Next()
	require.True(t, ok)
	assert.Equal(t, vm.TupleValue{vm.IntValue(0), vm.StrValue("a")}, v)
	v, _, _ = e.Next()
	assert.Equal(t, vm.TupleValue{vm.IntValue(1), vm.StrValue("b")}, v)
	_, ok, _ = e.Next()
	assert.False(t, ok)
}
