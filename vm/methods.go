package vm

import (
	"fmt"
	"strings"
)

// MethodImpl represents a method implementation.
// It takes the receiver value and arguments and returns the call's result.
// Lists and maps are mutated in place.
type MethodImpl func(receiver Value, args []Value) (Value, error)

// MethodTable maps method names to their implementations for a specific type
type MethodTable map[string]MethodImpl

// MethodRegistry maps kind names to their method tables
var MethodRegistry = map[string]MethodTable{
	"List": {
		"append":   listAppend,
		"extend":   listExtend,
		"pop":      listPop,
		"clear":    listClear,
		"is_empty": listIsEmpty,
	},
	"String": {
		"upper":       stringMap(strings.ToUpper),
		"lower":       stringMap(strings.ToLower),
		"strip":       stringMap(strings.TrimSpace),
		"split":       stringSplit,
		"join":        stringJoin,
		"starts_with": stringPredicate(strings.HasPrefix),
		"ends_with":   stringPredicate(strings.HasSuffix),
	},
	"Map": {
		"contains_key": mapContainsKey,
		"get":          mapGet,
		"insert":       mapInsert,
		"is_empty":     mapIsEmpty,
		"keys":         mapKeys,
		"remove":       mapRemove,
		"size":         mapSize,
		"values":       mapValues,
	},
}

// LookupMethod finds a core method for the receiver's kind.
func LookupMethod(receiver Value, name string) (MethodImpl, bool) {
	table, ok := MethodRegistry[KindName(receiver)]
	if !ok {
		return nil, false
	}
	impl, ok := table[name]
	return impl, ok
}

func wantArgs(name string, args []Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

// listAppend implements the .append() method for lists
func listAppend(receiver Value, args []Value) (Value, error) {
	l := receiver.(*ListValue)
	if err := wantArgs("append", args, 1); err != nil {
		return nil, err
	}
	l.Items = append(l.Items, args[0])
	return None, nil
}

func listExtend(receiver Value, args []Value) (Value, error) {
	l := receiver.(*ListValue)
	if err := wantArgs("extend", args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case *ListValue:
		l.Items = append(l.Items, v.Items...)
	case TupleValue:
		l.Items = append(l.Items, v...)
	default:
		return nil, fmt.Errorf("extend expects a list or tuple, got %s", KindName(args[0]))
	}
	return None, nil
}

func listPop(receiver Value, args []Value) (Value, error) {
	l := receiver.(*ListValue)
	if err := wantArgs("pop", args, 0); err != nil {
		return nil, err
	}
	if len(l.Items) == 0 {
		return None, nil
	}
	last := l.Items[len(l.Items)-1]
	l.Items = l.Items[:len(l.Items)-1]
	return last, nil
}

func listClear(receiver Value, args []Value) (Value, error) {
	l := receiver.(*ListValue)
	if err := wantArgs("clear", args, 0); err != nil {
		return nil, err
	}
	l.Items = nil
	return None, nil
}

func listIsEmpty(receiver Value, args []Value) (Value, error) {
	if err := wantArgs("is_empty", args, 0); err != nil {
		return nil, err
	}
	return BoolValue(len(receiver.(*ListValue).Items) == 0), nil
}

func stringMap(fn func(string) string) MethodImpl {
	return func(receiver Value, args []Value) (Value, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("string method takes no arguments, got %d", len(args))
		}
		return StrValue(fn(string(receiver.(StrValue)))), nil
	}
}

func stringPredicate(fn func(string, string) bool) MethodImpl {
	return func(receiver Value, args []Value) (Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("string predicate expects 1 argument, got %d", len(args))
		}
		s, ok := args[0].(StrValue)
		if !ok {
			return nil, fmt.Errorf("string predicate expects a string, got %s", KindName(args[0]))
		}
		return BoolValue(fn(string(receiver.(StrValue)), string(s))), nil
	}
}

func stringSplit(receiver Value, args []Value) (Value, error) {
	s := string(receiver.(StrValue))
	var parts []string
	switch len(args) {
	case 0:
		parts = strings.Fields(s)
	case 1:
		sep, ok := args[0].(StrValue)
		if !ok {
			return nil, fmt.Errorf("split expects a string separator, got %s", KindName(args[0]))
		}
		parts = strings.Split(s, string(sep))
	default:
		return nil, fmt.Errorf("split expects at most 1 argument, got %d", len(args))
	}
	out := NewList()
	for _, p := range parts {
		out.Items = append(out.Items, StrValue(p))
	}
	return out, nil
}

func stringJoin(receiver Value, args []Value) (Value, error) {
	if err := wantArgs("join", args, 1); err != nil {
		return nil, err
	}
	var items []Value
	switch v := args[0].(type) {
	case *ListValue:
		items = v.Items
	case TupleValue:
		items = v
	default:
		return nil, fmt.Errorf("join expects a list or tuple, got %s", KindName(args[0]))
	}
	parts := make([]string, len(items))
	for i, it := range items {
		s, ok := it.(StrValue)
		if !ok {
			return nil, fmt.Errorf("join expects strings, got %s", KindName(it))
		}
		parts[i] = string(s)
	}
	return StrValue(strings.Join(parts, string(receiver.(StrValue)))), nil
}

func keyArg(name string, v Value) (string, error) {
	s, ok := v.(StrValue)
	if !ok {
		return "", fmt.Errorf("%s expects a string key, got %s", name, KindName(v))
	}
	return string(s), nil
}

func mapContainsKey(receiver Value, args []Value) (Value, error) {
	if err := wantArgs("contains_key", args, 1); err != nil {
		return nil, err
	}
	k, err := keyArg("contains_key", args[0])
	if err != nil {
		return nil, err
	}
	return BoolValue(receiver.(*MapValue).Contains(k)), nil
}

// mapGet returns the entry for a key, or the optional default (None).
func mapGet(receiver Value, args []Value) (Value, error) {
	if len(args) != 1 && len(args) != 2 {
		return nil, fmt.Errorf("get expects 1 or 2 arguments, got %d", len(args))
	}
	k, err := keyArg("get", args[0])
	if err != nil {
		return nil, err
	}
	if v, ok := receiver.(*MapValue).Get(k); ok {
		return v, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return None, nil
}

// mapInsert sets an entry and returns the value it replaced, or None.
func mapInsert(receiver Value, args []Value) (Value, error) {
	if len(args) != 1 && len(args) != 2 {
		return nil, fmt.Errorf("insert expects 1 or 2 arguments, got %d", len(args))
	}
	k, err := keyArg("insert", args[0])
	if err != nil {
		return nil, err
	}
	var v Value = None
	if len(args) == 2 {
		v = args[1]
	}
	m := receiver.(*MapValue)
	old, ok := m.Get(k)
	m.Set(k, v)
	if !ok {
		return None, nil
	}
	return old, nil
}

func mapIsEmpty(receiver Value, args []Value) (Value, error) {
	if err := wantArgs("is_empty", args, 0); err != nil {
		return nil, err
	}
	return BoolValue(receiver.(*MapValue).Len() == 0), nil
}

func mapKeys(receiver Value, args []Value) (Value, error) {
	if err := wantArgs("keys", args, 0); err != nil {
		return nil, err
	}
	return keysList(receiver.(*MapValue)), nil
}

func mapRemove(receiver Value, args []Value) (Value, error) {
	if err := wantArgs("remove", args, 1); err != nil {
		return nil, err
	}
	k, err := keyArg("remove", args[0])
	if err != nil {
		return nil, err
	}
	if old, ok := receiver.(*MapValue).Delete(k); ok {
		return old, nil
	}
	return None, nil
}

func mapSize(receiver Value, args []Value) (Value, error) {
	if err := wantArgs("size", args, 0); err != nil {
		return nil, err
	}
	return IntValue(receiver.(*MapValue).Len()), nil
}

func mapValues(receiver Value, args []Value) (Value, error) {
	if err := wantArgs("values", args, 0); err != nil {
		return nil, err
	}
	return NewList(receiver.(*MapValue).Values()...), nil
}
