package interp

import (
	"fmt"

	"github.com/jasal82/koto/vm"
)

// Display renders v as text. Maps with a @display entry render through
// it, at any nesting depth; everything else renders structurally.
func (m *Machine) Display(v vm.Value) (string, error) {
	return vm.Render(v, m.displayHook)
}

func (m *Machine) displayHook(v vm.Value) (string, bool, error) {
	key := vm.KeyOf(vm.MetaDisplay)
	fn, ok := m.lookupMeta(v, key)
	if !ok {
		return "", false, nil
	}
	res, err := m.dispatch(key, fn, v)
	if err != nil {
		return "", false, err
	}
	s, ok := res.(vm.StrValue)
	if !ok {
		return "", false, fmt.Errorf("%s must return a String, got %s", key, vm.KindName(res))
	}
	return string(s), true, nil
}

// TypeName reports the type of v. A @type entry may be a String or a
// function returning one; without it the kind name is used.
func (m *Machine) TypeName(v vm.Value) (string, error) {
	key := vm.KeyOf(vm.MetaType)
	entry, ok := m.lookupMeta(v, key)
	if !ok {
		return vm.KindName(v), nil
	}
	if s, ok := entry.(vm.StrValue); ok {
		return string(s), nil
	}
	if !vm.IsCallable(entry) {
		return "", fmt.Errorf("%s must be a String or a function, got %s", key, vm.KindName(entry))
	}
	res, err := m.dispatch(key, entry, v)
	if err != nil {
		return "", err
	}
	s, ok := res.(vm.StrValue)
	if !ok {
		return "", fmt.Errorf("%s must return a String, got %s", key, vm.KindName(res))
	}
	return string(s), nil
}

// reportedType is TypeName for error messages, where a failing @type
// falls back to the kind name.
func (m *Machine) reportedType(v vm.Value) string {
	s, err := m.TypeName(v)
	if err != nil {
		return vm.KindName(v)
	}
	return s
}
