package vm

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MapValue is a structured map: insertion-ordered data entries plus an
// optional shared meta map. Meta entries never appear in the data table.
type MapValue struct {
	data *orderedmap.OrderedMap[string, Value]
	meta *MetaMap
}

func NewMap() *MapValue {
	return &MapValue{
		data: orderedmap.New[string, Value](),
	}
}

// NewMapWithMeta returns an empty map holding a reference to meta.
func NewMapWithMeta(meta *MetaMap) *MapValue {
	m := NewMap()
	m.attach(meta)
	return m
}

func (*MapValue) isValue() {}

func (m *MapValue) AsBool() bool {
	return m.data.Len() != 0
}

func (m *MapValue) Cmp(other Value) (int, bool) {
	o, ok := other.(*MapValue)
	return 0, ok && o == m
}

func (m *MapValue) Get(key string) (Value, bool) {
	return m.data.Get(key)
}

func (m *MapValue) Set(key string, value Value) {
	m.data.Set(key, value)
}

func (m *MapValue) Delete(key string) (Value, bool) {
	return m.data.Delete(key)
}

func (m *MapValue) Contains(key string) bool {
	_, ok := m.data.Get(key)
	return ok
}

// Len counts data entries only.
func (m *MapValue) Len() int {
	return m.data.Len()
}

func (m *MapValue) Keys() []string {
	out := make([]string, 0, m.data.Len())
	for pair := m.data.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

func (m *MapValue) Values() []Value {
	out := make([]Value, 0, m.data.Len())
	for pair := m.data.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Each visits the data entries in insertion order until fn returns false.
func (m *MapValue) Each(fn func(key string, value Value) bool) {
	for pair := m.data.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// EntryAt returns the i-th data entry in insertion order.
func (m *MapValue) EntryAt(i int) (string, Value, bool) {
	if i < 0 || i >= m.data.Len() {
		return "", nil, false
	}
	pair := m.data.Oldest()
	for ; i > 0; i-- {
		pair = pair.Next()
	}
	return pair.Key, pair.Value, true
}

func (m *MapValue) Meta() *MetaMap {
	return m.meta
}

func (m *MapValue) HasMeta() bool {
	return m.meta != nil
}

// MetaMut returns a meta map that may be modified without affecting any
// other map. A shared table is cloned and the clone replaces it on this
// map only.
func (m *MapValue) MetaMut() *MetaMap {
	switch {
	case m.meta == nil:
		m.attach(NewMetaMap())
	case m.meta.Shared():
		m.attach(m.meta.Clone())
	}
	return m.meta
}

// Copy returns a map with a fresh copy of the data table that shares this
// map's meta map.
func (m *MapValue) Copy() *MapValue {
	out := NewMap()
	for pair := m.data.Oldest(); pair != nil; pair = pair.Next() {
		out.data.Set(pair.Key, pair.Value)
	}
	if m.meta != nil {
		out.attach(m.meta)
	}
	return out
}

func (m *MapValue) attach(meta *MetaMap) {
	m.meta = meta
	if meta != nil {
		meta.retain()
	}
}

// Stamp returns a map that shares value's data table and refers to meta.
// Nothing is copied, so the cost does not depend on the size of either
// table.
func Stamp(value *MapValue, meta *MetaMap) *MapValue {
	out := &MapValue{data: value.data}
	out.attach(meta)
	return out
}

// ExtractMeta returns a map with no data that refers to value's meta map.
func ExtractMeta(value *MapValue) (*MapValue, error) {
	if value.meta == nil {
		return nil, fmt.Errorf("%w: value has no meta map to extract", ErrMetaMapAbsent)
	}
	return NewMapWithMeta(value.meta), nil
}
