package interp

import (
	"fmt"
	"strings"

	"github.com/jasal82/koto/vm"
)

type builtinFn func(m *Machine, args []vm.Value) (vm.Value, error)

// machineBuiltins need the interpreter, e.g. to dispatch through meta
// maps. Pure builtins live in vm.BuiltinRegistry.
var machineBuiltins map[string]builtinFn

func init() {
	machineBuiltins = map[string]builtinFn{
		"print":       builtinPrint,
		"str":         builtinStr,
		"type":        builtinType,
		"assert_eq":   builtinAssertEq,
		"assert_ne":   builtinAssertNe,
		"iter":        builtinIter,
		"next":        builtinNext,
		"next_back":   builtinNextBack,
		"list":        builtinList,
		"tuple":       builtinTuple,
		"reversed":    builtinReversed,
		"enumerate":   builtinEnumerate,
		"hash":        builtinHash,
		"serialize":   builtinSerialize,
		"deserialize": builtinDeserialize,
		"run_tests":   builtinRunTests,
	}
}

func lookupBuiltin(name string) (vm.BuiltinValue, bool) {
	if _, ok := machineBuiltins[name]; ok {
		return vm.BuiltinValue{Name: name}, true
	}
	if _, ok := vm.BuiltinRegistry[name]; ok {
		return vm.BuiltinValue{Name: name}, true
	}
	return vm.BuiltinValue{}, false
}

// BuiltinNames lists every builtin, for completion and documentation.
func BuiltinNames() []string {
	out := make([]string, 0, len(machineBuiltins)+len(vm.BuiltinRegistry))
	for k := range machineBuiltins {
		out = append(out, k)
	}
	for k := range vm.BuiltinRegistry {
		out = append(out, k)
	}
	return out
}

func (m *Machine) callBuiltin(name string, args []vm.Value) (vm.Value, error) {
	if fn, ok := machineBuiltins[name]; ok {
		return fn(m, args)
	}
	if fn, ok := vm.BuiltinRegistry[name]; ok {
		return fn(args)
	}
	return nil, fmt.Errorf("unknown builtin %s", name)
}

func argCount(name string, args []vm.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s() takes exactly %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func builtinPrint(m *Machine, args []vm.Value) (vm.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		s, err := m.Display(a)
		if err != nil {
			return nil, err
		}
		parts[i] = s
	}
	fmt.Fprintln(m.Out, strings.Join(parts, " "))
	return vm.None, nil
}

func builtinStr(m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount("str", args, 1); err != nil {
		return nil, err
	}
	s, err := m.Display(args[0])
	if err != nil {
		return nil, err
	}
	return vm.StrValue(s), nil
}

func builtinType(m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount("type", args, 1); err != nil {
		return nil, err
	}
	s, err := m.TypeName(args[0])
	if err != nil {
		return nil, err
	}
	return vm.StrValue(s), nil
}

func builtinAssertEq(m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount("assert_eq", args, 2); err != nil {
		return nil, err
	}
	eq, err := m.Equal(args[0], args[1])
	if err != nil {
		return nil, err
	}
	if !eq {
		return nil, m.assertionError("==", args[0], args[1])
	}
	return vm.None, nil
}

func builtinAssertNe(m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount("assert_ne", args, 2); err != nil {
		return nil, err
	}
	ne, err := m.NotEqual(args[0], args[1])
	if err != nil {
		return nil, err
	}
	if !ne {
		return nil, m.assertionError("!=", args[0], args[1])
	}
	return vm.None, nil
}

func (m *Machine) assertionError(op string, a, b vm.Value) error {
	as, err := m.Display(a)
	if err != nil {
		as = vm.FormatValue(a)
	}
	bs, err := m.Display(b)
	if err != nil {
		bs = vm.FormatValue(b)
	}
	return fmt.Errorf("%w: expected %s %s %s", vm.ErrAssertionFailed, as, op, bs)
}

func builtinIter(m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount("iter", args, 1); err != nil {
		return nil, err
	}
	if it, ok := args[0].(*vm.IteratorValue); ok {
		return it, nil
	}
	it, err := m.MakeIterator(args[0])
	if err != nil {
		return nil, err
	}
	return vm.NewIteratorValue(it), nil
}

// builtinNext pulls one value, returning None at the end.
func builtinNext(m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount("next", args, 1); err != nil {
		return nil, err
	}
	it, err := m.MakeIterator(args[0])
	if err != nil {
		return nil, err
	}
	v, ok, err := it.Next()
	if err != nil || !ok {
		return vm.None, err
	}
	return v, nil
}

func builtinNextBack(m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount("next_back", args, 1); err != nil {
		return nil, err
	}
	it, err := m.MakeIterator(args[0])
	if err != nil {
		return nil, err
	}
	de, ok := it.(vm.DoubleEndedIterator)
	if !ok {
		return nil, &vm.OperatorError{Op: vm.KeyOf(vm.MetaNextBack).String(), TypeName: m.reportedType(args[0])}
	}
	v, ok, err := de.NextBack()
	if err != nil || !ok {
		return vm.None, err
	}
	return v, nil
}

func (m *Machine) drain(name string, args []vm.Value, reverse bool) ([]vm.Value, error) {
	if err := argCount(name, args, 1); err != nil {
		return nil, err
	}
	it, err := m.MakeIterator(args[0])
	if err != nil {
		return nil, err
	}
	return m.collect(it, reverse)
}

func builtinList(m *Machine, args []vm.Value) (vm.Value, error) {
	items, err := m.drain("list", args, false)
	if err != nil {
		return nil, err
	}
	return vm.NewList(items...), nil
}

func builtinTuple(m *Machine, args []vm.Value) (vm.Value, error) {
	items, err := m.drain("tuple", args, false)
	if err != nil {
		return nil, err
	}
	return vm.TupleValue(items), nil
}

// builtinReversed consumes a double-ended iterator from the back.
func builtinReversed(m *Machine, args []vm.Value) (vm.Value, error) {
	items, err := m.drain("reversed", args, true)
	if err != nil {
		return nil, err
	}
	return vm.NewList(items...), nil
}

func builtinEnumerate(m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount("enumerate", args, 1); err != nil {
		return nil, err
	}
	it, err := m.MakeIterator(args[0])
	if err != nil {
		return nil, err
	}
	return vm.NewIteratorValue(&EnumerateIterator{Inner: it}), nil
}
