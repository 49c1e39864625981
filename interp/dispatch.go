package interp

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jasal82/koto/vm"
)

var errDivisionByZero = errors.New("division by zero")

// dispatch calls a meta entry with self prepended to args.
func (m *Machine) dispatch(key vm.MetaKey, fn vm.Value, self vm.Value, args ...vm.Value) (vm.Value, error) {
	log.Trace().Str("key", key.String()).Str("kind", vm.KindName(self)).Msg("dispatch")
	return m.Call(fn, append([]vm.Value{self}, args...)...)
}

// BinaryOp evaluates a ⊕ b for a binary operator opcode. A meta entry on
// the left operand takes precedence over built-in semantics.
func (m *Machine) BinaryOp(op vm.Opcode, a, b vm.Value) (vm.Value, error) {
	switch op {
	case vm.EQ:
		ok, err := m.Equal(a, b)
		if err != nil {
			return nil, err
		}
		return vm.BoolValue(ok), nil
	case vm.NEQ:
		ok, err := m.NotEqual(a, b)
		if err != nil {
			return nil, err
		}
		return vm.BoolValue(ok), nil
	case vm.IN:
		ok, err := m.Contains(b, a)
		if err != nil {
			return nil, err
		}
		return vm.BoolValue(ok), nil
	}
	if key, ok := op.OperatorKey(); ok {
		if fn, found := m.lookupMeta(a, key); found {
			return m.dispatch(key, fn, a, b)
		}
	}
	return m.builtinBinary(op, a, b)
}

// CompoundOp evaluates the value bound by `a op= b`. The assignment entry
// is preferred; without one the plain operator is used. Either way the
// caller stores the result back.
func (m *Machine) CompoundOp(op vm.Opcode, a, b vm.Value) (vm.Value, error) {
	if key, ok := op.OperatorKey(); ok {
		if fn, found := m.lookupMeta(a, key); found {
			return m.dispatch(key, fn, a, b)
		}
	}
	bin, ok := op.BinaryOf()
	if !ok {
		return nil, fmt.Errorf("%s is not a compound assignment", op)
	}
	return m.BinaryOp(bin, a, b)
}

// UnaryOp evaluates NEGATE and NOT.
func (m *Machine) UnaryOp(op vm.Opcode, a vm.Value) (vm.Value, error) {
	key, ok := op.OperatorKey()
	if !ok {
		return nil, fmt.Errorf("%s is not a unary operator", op)
	}
	if fn, found := m.lookupMeta(a, key); found {
		res, err := m.dispatch(key, fn, a)
		if err != nil {
			return nil, err
		}
		if op == vm.NOT {
			b, ok := res.(vm.BoolValue)
			if !ok {
				return nil, fmt.Errorf("%s must return a Bool, got %s", key, m.reportedType(res))
			}
			return b, nil
		}
		return res, nil
	}
	switch op {
	case vm.NOT:
		return vm.BoolValue(!a.AsBool()), nil
	case vm.NEGATE:
		switch v := a.(type) {
		case vm.IntValue:
			return -v, nil
		case vm.FloatValue:
			return -v, nil
		}
	}
	return nil, &vm.OperatorError{Op: op.Symbol(), TypeName: m.reportedType(a)}
}

// Equal resolves a == b: the left operand's @== entry, else structural
// comparison.
func (m *Machine) Equal(a, b vm.Value) (bool, error) {
	return m.equal(a, b, 0)
}

func (m *Machine) equal(a, b vm.Value, depth int) (bool, error) {
	if fn, ok := m.lookupMeta(a, vm.KeyOf(vm.MetaEqual)); ok {
		return m.boolResult(vm.KeyOf(vm.MetaEqual), fn, a, b)
	}
	return m.structuralEqual(a, b, depth)
}

// NotEqual resolves a != b: the left operand's @!= entry, else the
// negation of Equal, whichever form Equal takes.
func (m *Machine) NotEqual(a, b vm.Value) (bool, error) {
	if fn, ok := m.lookupMeta(a, vm.KeyOf(vm.MetaNotEqual)); ok {
		return m.boolResult(vm.KeyOf(vm.MetaNotEqual), fn, a, b)
	}
	eq, err := m.Equal(a, b)
	return !eq, err
}

func (m *Machine) boolResult(key vm.MetaKey, fn, a, b vm.Value) (bool, error) {
	res, err := m.dispatch(key, fn, a, b)
	if err != nil {
		return false, err
	}
	out, ok := res.(vm.BoolValue)
	if !ok {
		return false, fmt.Errorf("%s must return a Bool, got %s", key, m.reportedType(res))
	}
	return bool(out), nil
}

func (m *Machine) structuralEqual(a, b vm.Value, depth int) (bool, error) {
	if depth > vm.MaxNestingDepth {
		return false, fmt.Errorf("%w: '==' on %s deeper than %d levels", vm.ErrNestingTooDeep, m.reportedType(a), vm.MaxNestingDepth)
	}
	switch av := a.(type) {
	case *vm.MapValue:
		bv, ok := b.(*vm.MapValue)
		if !ok {
			return false, nil
		}
		if av == bv {
			return true, nil
		}
		if av.Len() != bv.Len() {
			return false, nil
		}
		eq := true
		var err error
		av.Each(func(k string, x vm.Value) bool {
			y, ok := bv.Get(k)
			if !ok {
				eq = false
				return false
			}
			eq, err = m.equal(x, y, depth+1)
			return err == nil && eq
		})
		return eq, err
	case *vm.ListValue:
		bv, ok := b.(*vm.ListValue)
		if !ok {
			return false, nil
		}
		if av == bv {
			return true, nil
		}
		return m.seqEqual(av.Items, bv.Items, depth)
	case vm.TupleValue:
		bv, ok := b.(vm.TupleValue)
		if !ok {
			return false, nil
		}
		return m.seqEqual(av, bv, depth)
	}
	c, ok := a.Cmp(b)
	return ok && c == 0, nil
}

func (m *Machine) seqEqual(a, b []vm.Value, depth int) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	for i := range a {
		eq, err := m.equal(a[i], b[i], depth+1)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// Contains evaluates `item in coll`.
func (m *Machine) Contains(coll, item vm.Value) (bool, error) {
	switch c := coll.(type) {
	case *vm.ListValue:
		return m.seqContains(c.Items, item)
	case vm.TupleValue:
		return m.seqContains(c, item)
	case vm.StrValue:
		s, ok := item.(vm.StrValue)
		if !ok {
			return false, fmt.Errorf("'in <String>' requires a String, got %s", m.reportedType(item))
		}
		return strings.Contains(string(c), string(s)), nil
	case *vm.MapValue:
		s, ok := item.(vm.StrValue)
		if !ok {
			return false, fmt.Errorf("'in <Map>' requires a String key, got %s", m.reportedType(item))
		}
		return c.Contains(string(s)), nil
	}
	return false, &vm.OperatorError{Op: "in", TypeName: m.reportedType(coll)}
}

func (m *Machine) seqContains(items []vm.Value, item vm.Value) (bool, error) {
	for _, elem := range items {
		eq, err := m.Equal(elem, item)
		if err != nil {
			return false, err
		}
		if eq {
			return true, nil
		}
	}
	return false, nil
}

// Index evaluates v[k]: the @[] entry, else native indexing of lists,
// tuples and strings, or a data read on a map.
func (m *Machine) Index(v, k vm.Value) (vm.Value, error) {
	key := vm.KeyOf(vm.MetaIndex)
	if fn, ok := m.lookupMeta(v, key); ok {
		return m.dispatch(key, fn, v, k)
	}
	switch c := v.(type) {
	case *vm.ListValue:
		i, err := m.seqIndex(k, len(c.Items))
		if err != nil {
			return nil, err
		}
		return c.Items[i], nil
	case vm.TupleValue:
		i, err := m.seqIndex(k, len(c))
		if err != nil {
			return nil, err
		}
		return c[i], nil
	case vm.StrValue:
		i, err := m.seqIndex(k, len(c))
		if err != nil {
			return nil, err
		}
		return c[i : i+1], nil
	case *vm.MapValue:
		s, ok := k.(vm.StrValue)
		if !ok {
			return nil, &vm.OperatorError{Op: "[]", TypeName: m.reportedType(v), Detail: "index is " + m.reportedType(k)}
		}
		if val, ok := c.Get(string(s)); ok {
			return val, nil
		}
		return nil, fmt.Errorf("key '%s' not found in %s", s, m.reportedType(v))
	}
	return nil, &vm.OperatorError{Op: "[]", TypeName: m.reportedType(v)}
}

// SetIndex evaluates v[k] = val on lists and map data.
func (m *Machine) SetIndex(v, k, val vm.Value) error {
	switch c := v.(type) {
	case *vm.ListValue:
		i, err := m.seqIndex(k, len(c.Items))
		if err != nil {
			return err
		}
		c.Items[i] = val
		return nil
	case *vm.MapValue:
		s, ok := k.(vm.StrValue)
		if !ok {
			return fmt.Errorf("map keys must be strings, got %s", m.reportedType(k))
		}
		c.Set(string(s), val)
		return nil
	}
	return &vm.OperatorError{Op: "[]=", TypeName: m.reportedType(v)}
}

// seqIndex resolves an index, counting negative indices from the end.
func (m *Machine) seqIndex(k vm.Value, n int) (int, error) {
	idx, ok := k.(vm.IntValue)
	if !ok {
		return 0, fmt.Errorf("index must be a Number, got %s", m.reportedType(k))
	}
	i := int(idx)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index %d out of bounds for length %d", int(idx), n)
	}
	return i, nil
}

// Slice evaluates v[lo:hi]. None bounds mean the start or the end.
func (m *Machine) Slice(v, lo, hi vm.Value) (vm.Value, error) {
	var n int
	switch c := v.(type) {
	case *vm.ListValue:
		n = len(c.Items)
	case vm.TupleValue:
		n = len(c)
	case vm.StrValue:
		n = len(c)
	default:
		return nil, &vm.OperatorError{Op: "[:]", TypeName: m.reportedType(v)}
	}
	start, err := sliceBound(lo, 0, n)
	if err != nil {
		return nil, err
	}
	end, err := sliceBound(hi, n, n)
	if err != nil {
		return nil, err
	}
	if start > end {
		start = end
	}
	switch c := v.(type) {
	case *vm.ListValue:
		return vm.NewList(append([]vm.Value(nil), c.Items[start:end]...)...), nil
	case vm.TupleValue:
		return append(vm.TupleValue(nil), c[start:end]...), nil
	default:
		return v.(vm.StrValue)[start:end], nil
	}
}

func sliceBound(v vm.Value, def, n int) (int, error) {
	if _, ok := v.(vm.NoneValue); ok {
		return def, nil
	}
	idx, ok := v.(vm.IntValue)
	if !ok {
		return 0, fmt.Errorf("slice index must be a Number or None, got %s", vm.KindName(v))
	}
	i := int(idx)
	if i < 0 {
		i += n
	}
	return max(0, min(i, n)), nil
}

func (m *Machine) builtinBinary(op vm.Opcode, a, b vm.Value) (vm.Value, error) {
	switch op {
	case vm.LT, vm.LTE, vm.GT, vm.GTE:
		if _, isMap := a.(*vm.MapValue); !isMap {
			if c, ok := a.Cmp(b); ok {
				return vm.BoolValue(compareResult(op, c)), nil
			}
		}
		return nil, m.operatorError(op, a, b)
	}
	switch av := a.(type) {
	case vm.IntValue, vm.FloatValue:
		v, err := numericOp(op, a, b)
		if err != nil {
			if errors.Is(err, errDivisionByZero) {
				return nil, fmt.Errorf("%w: '%s' on %s", err, op.Symbol(), m.reportedType(a))
			}
			return nil, m.operatorError(op, a, b)
		}
		return v, nil
	case vm.StrValue:
		switch bv := b.(type) {
		case vm.StrValue:
			if op == vm.ADD {
				return av + bv, nil
			}
		case vm.IntValue:
			if op == vm.MULTIPLY && bv >= 0 {
				return vm.StrValue(strings.Repeat(string(av), int(bv))), nil
			}
		}
	case *vm.ListValue:
		if bv, ok := b.(*vm.ListValue); ok && op == vm.ADD {
			items := make([]vm.Value, 0, len(av.Items)+len(bv.Items))
			items = append(items, av.Items...)
			return vm.NewList(append(items, bv.Items...)...), nil
		}
	case vm.TupleValue:
		if bv, ok := b.(vm.TupleValue); ok && op == vm.ADD {
			out := make(vm.TupleValue, 0, len(av)+len(bv))
			return append(append(out, av...), bv...), nil
		}
	}
	return nil, m.operatorError(op, a, b)
}

func (m *Machine) operatorError(op vm.Opcode, a, b vm.Value) error {
	return &vm.OperatorError{
		Op:       op.Symbol(),
		TypeName: m.reportedType(a),
		Detail:   "right operand is " + m.reportedType(b),
	}
}

func compareResult(op vm.Opcode, c int) bool {
	switch op {
	case vm.LT:
		return c < 0
	case vm.LTE:
		return c <= 0
	case vm.GT:
		return c > 0
	}
	return c >= 0
}

func numericOp(op vm.Opcode, a, b vm.Value) (vm.Value, error) {
	if av, ok := a.(vm.FloatValue); ok {
		if bv, ok := b.(vm.FloatValue); ok {
			return floatOp(op, float64(av), float64(bv))
		} else if bv, ok := b.(vm.IntValue); ok {
			return floatOp(op, float64(av), float64(bv))
		}
		return nil, fmt.Errorf("Trying to do a numeric operation between a %T and a %T", a, b)
	}
	if av, ok := a.(vm.IntValue); ok {
		if bv, ok := b.(vm.FloatValue); ok {
			return floatOp(op, float64(av), float64(bv))
		} else if bv, ok := b.(vm.IntValue); ok {
			return intOp(op, int(av), int(bv))
		}
		return nil, fmt.Errorf("Trying to do a numeric operation between a %T and a %T", a, b)
	}
	return nil, fmt.Errorf("Trying to do a numeric operation between a %T and a %T", a, b)
}

func floatOp(op vm.Opcode, a, b float64) (vm.Value, error) {
	switch op {
	case vm.ADD:
		return vm.FloatValue(a + b), nil
	case vm.SUBTRACT:
		return vm.FloatValue(a - b), nil
	case vm.MULTIPLY:
		return vm.FloatValue(a * b), nil
	}
	if b == 0 {
		return nil, errDivisionByZero
	}
	switch op {
	case vm.DIVIDE:
		return vm.FloatValue(a / b), nil
	case vm.MODULO:
		return vm.FloatValue(math.Mod(a, b)), nil
	case vm.FLOOR_DIVIDE:
		return vm.FloatValue(math.Floor(a / b)), nil
	}
	return nil, fmt.Errorf("Unhandled float operation %s", op)
}

func intOp(op vm.Opcode, a, b int) (vm.Value, error) {
	switch op {
	case vm.ADD:
		return vm.IntValue(a + b), nil
	case vm.SUBTRACT:
		return vm.IntValue(a - b), nil
	case vm.MULTIPLY:
		return vm.IntValue(a * b), nil
	}
	if b == 0 {
		return nil, errDivisionByZero
	}
	switch op {
	case vm.DIVIDE:
		return vm.FloatValue(float64(a) / float64(b)), nil
	case vm.MODULO:
		return vm.IntValue(a % b), nil
	case vm.FLOOR_DIVIDE:
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return vm.IntValue(q), nil
	}
	return nil, fmt.Errorf("Unhandled integer operation %s", op)
}
