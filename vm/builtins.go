package vm

import (
	"fmt"
)

// BuiltinRegistry maps the names of builtins that don't need the
// interpreter to their implementations.
var BuiltinRegistry = map[string]func(args []Value) (Value, error){
	"range":        builtinRange,
	"len":          builtinLen,
	"size":         builtinSize,
	"keys":         builtinKeys,
	"values":       builtinValues,
	"copy":         builtinCopy,
	"stamp":        builtinStamp,
	"with_meta":    builtinStamp,
	"extract_meta": builtinExtractMeta,
	"get_meta":     builtinExtractMeta,
	"meta_set":     builtinMetaSet,
	"meta_keys":    builtinMetaKeys,
}

// builtinRange implements Python-like range() function
// Supports 3 forms:
// - range(stop): returns [0, 1, ..., stop-1]
// - range(start, stop): returns [start, start+1, ..., stop-1]
// - range(start, stop, step): returns [start, start+step, ..., < stop]
func builtinRange(args []Value) (Value, error) {
	var start, stop, step int

	ints := make([]int, len(args))
	for i, a := range args {
		v, ok := a.(IntValue)
		if !ok {
			return nil, fmt.Errorf("range() arguments must be integers, got %s", KindName(a))
		}
		ints[i] = int(v)
	}

	switch len(ints) {
	case 1:
		start, stop, step = 0, ints[0], 1
	case 2:
		start, stop, step = ints[0], ints[1], 1
	case 3:
		start, stop, step = ints[0], ints[1], ints[2]
		if step == 0 {
			return nil, fmt.Errorf("range() step argument must not be zero")
		}
	default:
		return nil, fmt.Errorf("range() takes 1 to 3 arguments, got %d", len(args))
	}

	result := NewList()
	if step > 0 {
		// Ascending range
		for i := start; i < stop; i += step {
			result.Items = append(result.Items, IntValue(i))
		}
	} else {
		// Descending range
		for i := start; i > stop; i += step {
			result.Items = append(result.Items, IntValue(i))
		}
	}
	return result, nil
}

// builtinLen returns the length of lists, tuples, strings, or the data
// entries of a map
func builtinLen(args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len() takes exactly 1 argument, got %d", len(args))
	}

	switch val := args[0].(type) {
	case *ListValue:
		return IntValue(len(val.Items)), nil
	case TupleValue:
		return IntValue(len(val)), nil
	case StrValue:
		return IntValue(len(val)), nil
	case *MapValue:
		return IntValue(val.Len()), nil
	default:
		return nil, fmt.Errorf("len() argument must be a list, tuple, string, or map, got %s", KindName(args[0]))
	}
}

func builtinSize(args []Value) (Value, error) {
	m, err := mapArg("size", args, 1)
	if err != nil {
		return nil, err
	}
	return IntValue(m.Len()), nil
}

func builtinKeys(args []Value) (Value, error) {
	m, err := mapArg("keys", args, 1)
	if err != nil {
		return nil, err
	}
	return keysList(m), nil
}

func builtinValues(args []Value) (Value, error) {
	m, err := mapArg("values", args, 1)
	if err != nil {
		return nil, err
	}
	return NewList(m.Values()...), nil
}

// builtinCopy copies the data of a map or list. A copied map keeps its
// meta map.
func builtinCopy(args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("copy() takes exactly 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case *MapValue:
		return v.Copy(), nil
	case *ListValue:
		return NewList(append([]Value(nil), v.Items...)...), nil
	}
	return args[0], nil
}

// builtinStamp implements stamp(data, meta_source).
func builtinStamp(args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("stamp() takes exactly 2 arguments, got %d", len(args))
	}
	data, ok := args[0].(*MapValue)
	if !ok {
		return nil, fmt.Errorf("stamp() first argument must be a map, got %s", KindName(args[0]))
	}
	src, ok := args[1].(*MapValue)
	if !ok {
		return nil, fmt.Errorf("stamp() second argument must be a map, got %s", KindName(args[1]))
	}
	if !src.HasMeta() {
		return nil, fmt.Errorf("%w: stamp() source has no meta map", ErrMetaMapAbsent)
	}
	return Stamp(data, src.Meta()), nil
}

func builtinExtractMeta(args []Value) (Value, error) {
	m, err := mapArg("extract_meta", args, 1)
	if err != nil {
		return nil, err
	}
	return ExtractMeta(m)
}

// builtinMetaSet implements meta_set(map, key, value). A shared meta map
// is cloned first, so other holders keep their entries.
func builtinMetaSet(args []Value) (Value, error) {
	m, err := mapArg("meta_set", args, 3)
	if err != nil {
		return nil, err
	}
	name, ok := args[1].(StrValue)
	if !ok {
		return nil, fmt.Errorf("meta_set() key must be a string, got %s", KindName(args[1]))
	}
	key, err := ParseMetaKey(string(name))
	if err != nil {
		return nil, err
	}
	if err := m.MetaMut().Insert(key, args[2]); err != nil {
		return nil, err
	}
	return m, nil
}

func builtinMetaKeys(args []Value) (Value, error) {
	m, err := mapArg("meta_keys", args, 1)
	if err != nil {
		return nil, err
	}
	out := NewList()
	if m.HasMeta() {
		for _, k := range m.Meta().Keys() {
			out.Items = append(out.Items, StrValue(k.String()))
		}
	}
	return out, nil
}

func mapArg(name string, args []Value, n int) (*MapValue, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s() takes exactly %d argument(s), got %d", name, n, len(args))
	}
	m, ok := args[0].(*MapValue)
	if !ok {
		return nil, fmt.Errorf("%s() argument must be a map, got %s", name, KindName(args[0]))
	}
	return m, nil
}

func keysList(m *MapValue) *ListValue {
	out := NewList()
	for _, k := range m.Keys() {
		out.Items = append(out.Items, StrValue(k))
	}
	return out
}
