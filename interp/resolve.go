package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jasal82/koto/vm"
)

// maxBaseDepth bounds @base chains so that a cycle fails instead of
// looping forever.
const maxBaseDepth = 64

func baseOf(mv *vm.MapValue) *vm.MapValue {
	meta := mv.Meta()
	if meta == nil {
		return nil
	}
	base, ok := meta.Get(vm.KeyOf(vm.MetaBase))
	if !ok {
		return nil
	}
	b, _ := base.(*vm.MapValue)
	return b
}

// lookupMeta finds key in v's meta map, falling back along the @base
// chain. Only maps have meta maps.
func (m *Machine) lookupMeta(v vm.Value, key vm.MetaKey) (vm.Value, bool) {
	mv, _ := v.(*vm.MapValue)
	for depth := 0; mv != nil && depth < maxBaseDepth; depth++ {
		meta := mv.Meta()
		if meta == nil {
			return nil, false
		}
		if fn, ok := meta.Get(key); ok {
			return fn, true
		}
		mv = baseOf(mv)
	}
	return nil, false
}

// GetAttr reads v.name: the map's data first, then a named meta entry,
// then the same lookups on the @base chain. Meta functions are called
// with v as self.
func (m *Machine) GetAttr(v vm.Value, name string) (vm.Value, error) {
	mv, ok := v.(*vm.MapValue)
	if !ok {
		return nil, &vm.AttributeError{Name: name, TypeName: m.reportedType(v)}
	}
	holder := mv
	for depth := 0; holder != nil && depth < maxBaseDepth; depth++ {
		if val, ok := holder.Get(name); ok {
			return val, nil
		}
		if meta := holder.Meta(); meta != nil {
			if entry, ok := meta.Get(vm.NamedKey(name)); ok {
				if vm.IsCallable(entry) {
					log.Trace().Str("key", vm.NamedKey(name).String()).Str("kind", vm.KindName(mv)).Msg("dispatch")
					return m.Call(entry, mv)
				}
				return entry, nil
			}
		}
		holder = baseOf(holder)
	}
	return nil, &vm.AttributeError{Name: name, TypeName: m.reportedType(v)}
}

// SetAttr writes v.name = val into the map's data. The meta map is never
// touched.
func (m *Machine) SetAttr(v vm.Value, name string, val vm.Value) error {
	mv, ok := v.(*vm.MapValue)
	if !ok {
		return fmt.Errorf("can't set attribute '%s' on %s", name, m.reportedType(v))
	}
	mv.Set(name, val)
	return nil
}

type hostMethod func(m *Machine, receiver vm.Value, args []vm.Value) (vm.Value, error)

// methodTarget is what a method call resolved to: either a callable value,
// possibly taking the receiver as its first argument, or a host method.
type methodTarget struct {
	fn    vm.Value
	bound bool
	impl  hostMethod
}

var hostMethods map[string]map[string]hostMethod

func init() {
	hostMethods = map[string]map[string]hostMethod{
		"String": {
			"format": stringFormat,
		},
		"List": {
			"contains": containsMethod,
		},
		"Tuple": {
			"contains": containsMethod,
		},
	}
}

func (m *Machine) resolveMethod(receiver vm.Value, name string) (methodTarget, error) {
	if mv, ok := receiver.(*vm.MapValue); ok {
		holder := mv
		for depth := 0; holder != nil && depth < maxBaseDepth; depth++ {
			if val, ok := holder.Get(name); ok {
				return methodTarget{fn: val, bound: m.wantsSelf(val)}, nil
			}
			if meta := holder.Meta(); meta != nil {
				if entry, ok := meta.Get(vm.NamedKey(name)); ok {
					log.Trace().Str("key", vm.NamedKey(name).String()).Str("kind", vm.KindName(mv)).Msg("dispatch")
					return methodTarget{fn: entry, bound: true}, nil
				}
			}
			holder = baseOf(holder)
		}
	}
	if table, ok := hostMethods[vm.KindName(receiver)]; ok {
		if impl, ok := table[name]; ok {
			return methodTarget{impl: impl}, nil
		}
	}
	if impl, ok := vm.LookupMethod(receiver, name); ok {
		return methodTarget{impl: func(_ *Machine, r vm.Value, args []vm.Value) (vm.Value, error) {
			return impl(r, args)
		}}, nil
	}
	return methodTarget{}, &vm.AttributeError{Name: name, TypeName: m.reportedType(receiver)}
}

// stringFormat replaces each {} with the display form of the next
// argument, and {N} with the N-th argument.
func stringFormat(m *Machine, receiver vm.Value, args []vm.Value) (vm.Value, error) {
	s := string(receiver.(vm.StrValue))
	var b strings.Builder
	next := 0
	for {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			b.WriteString(s)
			break
		}
		end := strings.IndexByte(s[open:], '}')
		if end < 0 {
			return nil, fmt.Errorf("format: unclosed placeholder in %q", string(receiver.(vm.StrValue)))
		}
		end += open
		b.WriteString(s[:open])
		idx := next
		if field := s[open+1 : end]; field != "" {
			n, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("format: invalid placeholder {%s}", field)
			}
			idx = n
		} else {
			next++
		}
		if idx < 0 || idx >= len(args) {
			return nil, fmt.Errorf("format: missing argument %d", idx)
		}
		out, err := m.Display(args[idx])
		if err != nil {
			return nil, err
		}
		b.WriteString(out)
		s = s[end+1:]
	}
	return vm.StrValue(b.String()), nil
}

func containsMethod(m *Machine, receiver vm.Value, args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("contains expects 1 argument, got %d", len(args))
	}
	ok, err := m.Contains(receiver, args[0])
	if err != nil {
		return nil, err
	}
	return vm.BoolValue(ok), nil
}
