package interp

import (
	"github.com/jasal82/koto/vm"
)

// SliceIterator iterates over list and tuple values, from either end
type SliceIterator struct {
	Values []vm.Value // The items being iterated
	Front  int        // Next position from the front
	Back   int        // One past the next position from the back
}

func NewSliceIterator(values []vm.Value) *SliceIterator {
	return &SliceIterator{Values: values, Back: len(values)}
}

// Next advances the iterator from the front
func (s *SliceIterator) Next() (vm.Value, bool, error) {
	if s.Front >= s.Back {
		return nil, false, nil
	}
	v := s.Values[s.Front]
	s.Front++
	return v, true, nil
}

// NextBack advances the iterator from the back
func (s *SliceIterator) NextBack() (vm.Value, bool, error) {
	if s.Front >= s.Back {
		return nil, false, nil
	}
	s.Back--
	return s.Values[s.Back], true, nil
}

// DictIterator iterates over the data of a map as (key, value) tuples in
// insertion order. Keys are captured up front; entries removed during
// iteration are skipped.
type DictIterator struct {
	Map   *vm.MapValue
	Keys  []string
	Front int
	Back  int
}

func NewDictIterator(m *vm.MapValue) *DictIterator {
	keys := m.Keys()
	return &DictIterator{Map: m, Keys: keys, Back: len(keys)}
}

func (d *DictIterator) Next() (vm.Value, bool, error) {
	for d.Front < d.Back {
		k := d.Keys[d.Front]
		d.Front++
		if v, ok := d.Map.Get(k); ok {
			return vm.TupleValue{vm.StrValue(k), v}, true, nil
		}
	}
	return nil, false, nil
}

func (d *DictIterator) NextBack() (vm.Value, bool, error) {
	for d.Front < d.Back {
		d.Back--
		k := d.Keys[d.Back]
		if v, ok := d.Map.Get(k); ok {
			return vm.TupleValue{vm.StrValue(k), v}, true, nil
		}
	}
	return nil, false, nil
}

// MetaIterator pulls values from a map's @next and @next_back entries.
// None ends the sequence. Once either end is exhausted both ends stay
// exhausted.
type MetaIterator struct {
	m      *Machine
	Target *vm.MapValue
	done   bool
}

func (it *MetaIterator) Next() (vm.Value, bool, error) {
	return it.pull(vm.MetaNext)
}

func (it *MetaIterator) NextBack() (vm.Value, bool, error) {
	return it.pull(vm.MetaNextBack)
}

func (it *MetaIterator) pull(id vm.MetaKeyID) (vm.Value, bool, error) {
	if it.done {
		return nil, false, nil
	}
	key := vm.KeyOf(id)
	fn, ok := it.m.stepEntry(it.Target, id)
	if !ok {
		return nil, false, &vm.OperatorError{Op: key.String(), TypeName: it.m.reportedType(it.Target)}
	}
	v, err := it.m.dispatch(key, fn, it.Target)
	if err != nil {
		return nil, false, err
	}
	if _, end := v.(vm.NoneValue); end {
		it.done = true
		return nil, false, nil
	}
	return v, true, nil
}

// stepEntry finds a forward or backward step function: the @next or
// @next_back entry, or a named entry spelled the same way.
func (m *Machine) stepEntry(v vm.Value, id vm.MetaKeyID) (vm.Value, bool) {
	key := vm.KeyOf(id)
	if fn, ok := m.lookupMeta(v, key); ok {
		return fn, true
	}
	return m.lookupMeta(v, vm.NamedKey(key.Symbol()))
}

// EnumerateIterator pairs each value of Inner with its position.
type EnumerateIterator struct {
	Inner vm.Iterator
	Index int
}

func (e *EnumerateIterator) Next() (vm.Value, bool, error) {
	v, ok, err := e.Inner.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	out := vm.TupleValue{vm.IntValue(e.Index), v}
	e.Index++
	return out, true, nil
}

// MakeIterator returns a fresh iterator over v. A map's @iterator entry is
// called each time, so every call starts over; its result may be a map
// with step entries, an iterator or a sequence. A map with step entries
// and no @iterator is iterated directly. Other maps yield their data.
func (m *Machine) MakeIterator(v vm.Value) (vm.Iterator, error) {
	switch c := v.(type) {
	case *vm.IteratorValue:
		return c.Iter, nil
	case *vm.ListValue:
		return NewSliceIterator(c.Items), nil
	case vm.TupleValue:
		return NewSliceIterator(c), nil
	case vm.StrValue:
		var chars []vm.Value
		for _, r := range string(c) {
			chars = append(chars, vm.StrValue(string(r)))
		}
		return NewSliceIterator(chars), nil
	case *vm.MapValue:
		key := vm.KeyOf(vm.MetaIterator)
		if fn, ok := m.lookupMeta(c, key); ok {
			res, err := m.dispatch(key, fn, c)
			if err != nil {
				return nil, err
			}
			if rm, ok := res.(*vm.MapValue); ok && rm == c {
				if _, ok := m.stepEntry(c, vm.MetaNext); ok {
					return &MetaIterator{m: m, Target: c}, nil
				}
				return nil, &vm.OperatorError{Op: key.String(), TypeName: m.reportedType(c), Detail: "returned itself without a @next entry"}
			}
			if rm, ok := res.(*vm.MapValue); ok {
				if _, ok := m.stepEntry(rm, vm.MetaNext); ok {
					return &MetaIterator{m: m, Target: rm}, nil
				}
			}
			return m.MakeIterator(res)
		}
		if _, ok := m.stepEntry(c, vm.MetaNext); ok {
			return &MetaIterator{m: m, Target: c}, nil
		}
		return NewDictIterator(c), nil
	}
	return nil, &vm.OperatorError{Op: "iterator", TypeName: m.reportedType(v)}
}

// collect drains it from the front, or from the back when reverse is set.
func (m *Machine) collect(it vm.Iterator, reverse bool) ([]vm.Value, error) {
	pull := it.Next
	if reverse {
		de, ok := it.(vm.DoubleEndedIterator)
		if !ok {
			return nil, &vm.OperatorError{Op: vm.KeyOf(vm.MetaNextBack).String(), TypeName: "Iterator"}
		}
		pull = de.NextBack
	}
	var out []vm.Value
	for {
		v, ok, err := pull()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
