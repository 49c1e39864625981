package vm

import (
	"cmp"
	"strings"
)

type Value interface {
	isValue()
	AsBool() bool
	// Cmp orders scalar values. The second result is false when the two
	// values have no built-in ordering.
	Cmp(other Value) (int, bool)
}

// Caller is the part of the interpreter that host functions may use to call
// back into script code.
type Caller interface {
	Call(fn Value, args ...Value) (Value, error)
	Display(v Value) (string, error)
	TypeName(v Value) (string, error)
}

// NativeFn is a host function. Meta entries implemented in Go receive the
// receiver as args[0].
type NativeFn func(c Caller, args []Value) (Value, error)

type BoolValue bool

func (BoolValue) isValue() {}

var (
	BoolTrue  = BoolValue(true)
	BoolFalse = BoolValue(false)
)

func (b BoolValue) AsBool() bool {
	return bool(b)
}

func (b BoolValue) Cmp(other Value) (int, bool) {
	o, ok := other.(BoolValue)
	if !ok {
		return 0, false
	}
	switch {
	case b == o:
		return 0, true
	case !bool(b):
		return -1, true
	}
	return 1, true
}

type StrValue string

func (StrValue) isValue() {}
func (s StrValue) AsBool() bool {
	return s != ""
}

func (s StrValue) Cmp(other Value) (int, bool) {
	o, ok := other.(StrValue)
	if !ok {
		return 0, false
	}
	return strings.Compare(string(s), string(o)), true
}

type IntValue int

func (IntValue) isValue() {}
func (i IntValue) AsBool() bool {
	return i != 0
}

func (i IntValue) Cmp(other Value) (int, bool) {
	switch o := other.(type) {
	case IntValue:
		return cmp.Compare(i, o), true
	case FloatValue:
		return cmp.Compare(float64(i), float64(o)), true
	}
	return 0, false
}

type FloatValue float64

func (FloatValue) isValue() {}
func (f FloatValue) AsBool() bool {
	return f != 0
}

func (f FloatValue) Cmp(other Value) (int, bool) {
	switch o := other.(type) {
	case IntValue:
		return cmp.Compare(float64(f), float64(o)), true
	case FloatValue:
		return cmp.Compare(f, o), true
	}
	return 0, false
}

type NoneValue struct{}

var None = NoneValue{}

func (NoneValue) isValue()     {}
func (NoneValue) AsBool() bool { return false }

func (NoneValue) Cmp(other Value) (int, bool) {
	_, ok := other.(NoneValue)
	return 0, ok
}

// ListValue is mutable and shared by reference.
type ListValue struct {
	Items []Value
}

func NewList(items ...Value) *ListValue {
	return &ListValue{Items: items}
}

func (*ListValue) isValue() {}
func (l *ListValue) AsBool() bool {
	return len(l.Items) != 0
}

// Lists have no ordering; equality goes through the interpreter.
func (*ListValue) Cmp(Value) (int, bool) {
	return 0, false
}

type TupleValue []Value

func (TupleValue) isValue() {}
func (t TupleValue) AsBool() bool {
	return len(t) != 0
}

func (TupleValue) Cmp(Value) (int, bool) {
	return 0, false
}

type FnPtrValue ExecPtr

func (FnPtrValue) isValue()     {}
func (FnPtrValue) AsBool() bool { return true }

func (f FnPtrValue) Cmp(other Value) (int, bool) {
	o, ok := other.(FnPtrValue)
	return 0, ok && o == f
}

type BuiltinValue struct {
	Name string
}

func (BuiltinValue) isValue()     {}
func (BuiltinValue) AsBool() bool { return true }

func (b BuiltinValue) Cmp(other Value) (int, bool) {
	o, ok := other.(BuiltinValue)
	return 0, ok && o.Name == b.Name
}

type NativeValue struct {
	Name string
	Fn   NativeFn
}

func NewNative(name string, fn NativeFn) *NativeValue {
	return &NativeValue{Name: name, Fn: fn}
}

func (*NativeValue) isValue()     {}
func (*NativeValue) AsBool() bool { return true }

func (n *NativeValue) Cmp(other Value) (int, bool) {
	o, ok := other.(*NativeValue)
	return 0, ok && o == n
}

// IteratorValue carries a lazy iterator as a first-class value.
type IteratorValue struct {
	Iter Iterator
}

func (*IteratorValue) isValue()     {}
func (*IteratorValue) AsBool() bool { return true }

func (it *IteratorValue) Cmp(other Value) (int, bool) {
	o, ok := other.(*IteratorValue)
	return 0, ok && o == it
}

// ArgValue is a call argument on the operand stack. Key is empty for
// positional arguments.
type ArgValue struct {
	Key   string
	Value Value
}

func (ArgValue) isValue()       {}
func (a ArgValue) AsBool() bool { return a.Value.AsBool() }
func (ArgValue) Cmp(Value) (int, bool) {
	return 0, false
}

// IsCallable reports whether v can be invoked without meta dispatch.
func IsCallable(v Value) bool {
	switch v.(type) {
	case FnPtrValue, BuiltinValue, *NativeValue:
		return true
	}
	return false
}

// KindName is the type name reported for a value when no @type entry
// overrides it.
func KindName(v Value) string {
	switch v.(type) {
	case BoolValue:
		return "Bool"
	case IntValue, FloatValue:
		return "Number"
	case StrValue:
		return "String"
	case NoneValue:
		return "Null"
	case *ListValue:
		return "List"
	case TupleValue:
		return "Tuple"
	case FnPtrValue, BuiltinValue, *NativeValue:
		return "Function"
	case *IteratorValue:
		return "Iterator"
	case *MapValue:
		return "Map"
	default:
		return "Unknown"
	}
}
