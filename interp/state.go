package interp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jasal82/koto/vm"
)

func (f *StackFrame) Pop() vm.Value {
	if len(f.Stack) == 0 {
		panic("Stack underrun")
	}
	v := f.Stack[len(f.Stack)-1]
	f.Stack = f.Stack[:len(f.Stack)-1]
	return v
}

func (f *StackFrame) Push(v vm.Value) {
	f.Stack = append(f.Stack, v)
}

// Peek returns the value n slots below the top of the stack.
func (f *StackFrame) Peek(n int) vm.Value {
	return f.Stack[len(f.Stack)-1-n]
}

func (f *StackFrame) StoreVar(key string, value vm.Value) {
	if f.Variables == nil {
		f.Variables = make(map[string]vm.Value)
	}
	f.Variables[key] = value
}

func (f *StackFrame) Has(key string) bool {
	if f.Variables == nil {
		return false
	}
	_, ok := f.Variables[key]
	return ok
}

func (f *StackFrame) Lookup(key string) (vm.Value, bool) {
	if f.Variables == nil {
		return nil, false
	}
	v, ok := f.Variables[key]
	return v, ok
}

// PrettyPrint returns the variables of the frame, sorted by name, skipping
// functions.
func (f *StackFrame) PrettyPrint() string {
	var b strings.Builder
	keys := make([]string, 0, len(f.Variables))
	for k, v := range f.Variables {
		if vm.IsCallable(v) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s = %s\n", k, vm.FormatValue(f.Variables[k]))
	}
	return b.String()
}
