package interp

import (
	"fmt"

	farm "github.com/dgryski/go-farm"
	"github.com/shamaton/msgpack/v2"

	"github.com/jasal82/koto/vm"
)

// Maps and tuples are encoded as single-entry msgpack maps tagged with
// these keys, so that the encoding is deterministic and keeps insertion
// order. Meta maps are never encoded.
const (
	mapTag   = "m"
	tupleTag = "t"
)

// Serialize encodes the data of v with msgpack.
func Serialize(v vm.Value) ([]byte, error) {
	plain, err := toPlain(v, 0)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(plain)
}

func Deserialize(b []byte) (vm.Value, error) {
	var plain any
	if err := msgpack.Unmarshal(b, &plain); err != nil {
		return nil, err
	}
	return fromPlain(plain)
}

// Hash is the farm hash of the serialized form, so structurally equal data
// hashes the same regardless of meta maps.
func Hash(v vm.Value) (uint64, error) {
	b, err := Serialize(v)
	if err != nil {
		return 0, err
	}
	return farm.Hash64(b), nil
}

const maxSerializeDepth = 128

func toPlain(v vm.Value, depth int) (any, error) {
	if depth > maxSerializeDepth {
		return nil, fmt.Errorf("can't serialize: value nested deeper than %d", maxSerializeDepth)
	}
	switch c := v.(type) {
	case vm.NoneValue:
		return nil, nil
	case vm.BoolValue:
		return bool(c), nil
	case vm.IntValue:
		return int64(c), nil
	case vm.FloatValue:
		return float64(c), nil
	case vm.StrValue:
		return string(c), nil
	case *vm.ListValue:
		return plainSeq(c.Items, depth)
	case vm.TupleValue:
		items, err := plainSeq(c, depth)
		if err != nil {
			return nil, err
		}
		return map[string]any{tupleTag: items}, nil
	case *vm.MapValue:
		items := make([]any, 0, 2*c.Len())
		var err error
		c.Each(func(k string, elem vm.Value) bool {
			var p any
			p, err = toPlain(elem, depth+1)
			items = append(items, k, p)
			return err == nil
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{mapTag: items}, nil
	}
	return nil, fmt.Errorf("can't serialize a %s", vm.KindName(v))
}

func plainSeq(items []vm.Value, depth int) ([]any, error) {
	out := make([]any, len(items))
	for i, it := range items {
		p, err := toPlain(it, depth+1)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func fromPlain(p any) (vm.Value, error) {
	switch c := p.(type) {
	case nil:
		return vm.None, nil
	case bool:
		return vm.BoolValue(c), nil
	case string:
		return vm.StrValue(c), nil
	case []byte:
		return vm.StrValue(c), nil
	case int8, int16, int32, int64, int, uint8, uint16, uint32, uint64, uint:
		return vm.IntValue(toInt(c)), nil
	case float32:
		return vm.FloatValue(c), nil
	case float64:
		return vm.FloatValue(c), nil
	case []any:
		items, err := fromPlainSeq(c)
		if err != nil {
			return nil, err
		}
		return vm.NewList(items...), nil
	case map[any]any:
		if len(c) != 1 {
			break
		}
		for k, v := range c {
			tag, _ := k.(string)
			return fromTagged(tag, v)
		}
	case map[string]any:
		if len(c) != 1 {
			break
		}
		for k, v := range c {
			return fromTagged(k, v)
		}
	}
	return nil, fmt.Errorf("can't deserialize %T", p)
}

func fromTagged(tag string, v any) (vm.Value, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("can't deserialize tagged %T", v)
	}
	switch tag {
	case tupleTag:
		vals, err := fromPlainSeq(items)
		if err != nil {
			return nil, err
		}
		return vm.TupleValue(vals), nil
	case mapTag:
		if len(items)%2 != 0 {
			return nil, fmt.Errorf("can't deserialize map with %d items", len(items))
		}
		out := vm.NewMap()
		for i := 0; i < len(items); i += 2 {
			k, ok := items[i].(string)
			if !ok {
				return nil, fmt.Errorf("can't deserialize map key %T", items[i])
			}
			val, err := fromPlain(items[i+1])
			if err != nil {
				return nil, err
			}
			out.Set(k, val)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown serialization tag %q", tag)
}

func fromPlainSeq(items []any) ([]vm.Value, error) {
	out := make([]vm.Value, len(items))
	for i, it := range items {
		v, err := fromPlain(it)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case int:
		return n
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		return int(n)
	case uint:
		return int(n)
	}
	return 0
}

func builtinHash(m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount("hash", args, 1); err != nil {
		return nil, err
	}
	h, err := Hash(args[0])
	if err != nil {
		return nil, err
	}
	return vm.IntValue(int(h)), nil
}

func builtinSerialize(m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount("serialize", args, 1); err != nil {
		return nil, err
	}
	b, err := Serialize(args[0])
	if err != nil {
		return nil, err
	}
	return vm.StrValue(b), nil
}

func builtinDeserialize(m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount("deserialize", args, 1); err != nil {
		return nil, err
	}
	s, ok := args[0].(vm.StrValue)
	if !ok {
		return nil, fmt.Errorf("deserialize() argument must be a String, got %s", m.reportedType(args[0]))
	}
	return Deserialize([]byte(s))
}
