package vm

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MetaMap is an ordered table of operator and attribute implementations
// shared by every map stamped with it.
//
// holders counts the maps that were attached to the table. It only grows:
// once a table has been handed to a second map it stays shared, and any
// customization has to happen on a clone (see MapValue.MetaMut).
type MetaMap struct {
	entries *orderedmap.OrderedMap[MetaKey, Value]
	holders int
}

func NewMetaMap() *MetaMap {
	return &MetaMap{
		entries: orderedmap.New[MetaKey, Value](),
	}
}

func (m *MetaMap) Get(key MetaKey) (Value, bool) {
	return m.entries.Get(key)
}

func (m *MetaMap) Contains(key MetaKey) bool {
	_, ok := m.entries.Get(key)
	return ok
}

func (m *MetaMap) Len() int {
	return m.entries.Len()
}

// Insert adds or replaces an entry. It refuses to touch a table that more
// than one map refers to.
func (m *MetaMap) Insert(key MetaKey, value Value) error {
	if m.Shared() {
		return fmt.Errorf("%w: can't insert %s", ErrMetaMapShared, key)
	}
	m.entries.Set(key, value)
	return nil
}

func (m *MetaMap) Keys() []MetaKey {
	out := make([]MetaKey, 0, m.entries.Len())
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Each visits the entries in insertion order until fn returns false.
func (m *MetaMap) Each(fn func(MetaKey, Value) bool) {
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Clone returns a private copy with no holders.
func (m *MetaMap) Clone() *MetaMap {
	out := NewMetaMap()
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		out.entries.Set(pair.Key, pair.Value)
	}
	return out
}

func (m *MetaMap) Holders() int {
	return m.holders
}

func (m *MetaMap) Shared() bool {
	return m.holders > 1
}

func (m *MetaMap) retain() {
	m.holders++
}
