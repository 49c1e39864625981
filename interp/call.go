package interp

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/jasal82/koto/vm"
)

// Call invokes any callable value with positional arguments and runs it
// to completion. Maps are callable through their @() entry.
func (m *Machine) Call(fn vm.Value, args ...vm.Value) (vm.Value, error) {
	return m.callArgs(fn, positionalArgs(args))
}

func (m *Machine) callArgs(fn vm.Value, args []vm.ArgValue) (vm.Value, error) {
	frame, res, err := m.prepareCall(fn, args)
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return res, nil
	}
	if err := m.enter(); err != nil {
		return nil, err
	}
	defer func() { m.depth-- }()
	return m.RunToEnd(frame)
}

// prepareCall either returns a frame for a compiled function, or the
// result of calling anything else.
func (m *Machine) prepareCall(fn vm.Value, args []vm.ArgValue) (*StackFrame, vm.Value, error) {
	switch f := fn.(type) {
	case vm.FnPtrValue:
		frame, err := BuildCallFrame(m.Program, vm.ExecPtr(f), args)
		return frame, nil, err
	case vm.BuiltinValue:
		vals, err := plainArgs(f.Name, args)
		if err != nil {
			return nil, nil, err
		}
		res, err := m.callBuiltin(f.Name, vals)
		return nil, res, err
	case *vm.NativeValue:
		vals, err := plainArgs(f.Name, args)
		if err != nil {
			return nil, nil, err
		}
		res, err := f.Fn(m, vals)
		return nil, res, err
	case *vm.MapValue:
		if callFn, ok := m.lookupMeta(f, vm.KeyOf(vm.MetaCall)); ok {
			log.Trace().Str("key", "@()").Str("kind", vm.KindName(f)).Msg("dispatch")
			res, err := m.callArgs(callFn, append([]vm.ArgValue{{Value: f}}, args...))
			return nil, res, err
		}
	}
	return nil, nil, &vm.OperatorError{Op: "()", TypeName: m.reportedType(fn)}
}

// callFromStack handles CALL. Stack: arg1 ... argN fn
func (m *Machine) callFromStack(frame *StackFrame, n int) (*StackFrame, error) {
	if len(frame.Stack) < n+1 {
		return nil, fmt.Errorf("Call stack is too short to build a call")
	}
	fn := frame.Pop()
	args, err := popArgs(frame, n)
	if err != nil {
		return nil, err
	}
	newf, res, err := m.prepareCall(fn, args)
	if err != nil {
		return nil, err
	}
	if newf == nil {
		frame.Push(res)
	}
	return newf, nil
}

// callMethodFromStack handles CALL_METHOD. Stack: arg1 ... argN receiver name
func (m *Machine) callMethodFromStack(frame *StackFrame, n int) (*StackFrame, error) {
	if len(frame.Stack) < n+2 {
		return nil, fmt.Errorf("Call stack is too short to build a method call")
	}
	name := mustString(frame.Pop())
	receiver := frame.Pop()
	args, err := popArgs(frame, n)
	if err != nil {
		return nil, err
	}
	target, err := m.resolveMethod(receiver, name)
	if err != nil {
		return nil, err
	}
	if target.impl != nil {
		vals, err := plainArgs(name, args)
		if err != nil {
			return nil, err
		}
		res, err := target.impl(m, receiver, vals)
		if err != nil {
			return nil, err
		}
		frame.Push(res)
		return nil, nil
	}
	if target.bound {
		args = append([]vm.ArgValue{{Value: receiver}}, args...)
	}
	newf, res, err := m.prepareCall(target.fn, args)
	if err != nil {
		return nil, err
	}
	if newf == nil {
		frame.Push(res)
	}
	return newf, nil
}

func popArgs(frame *StackFrame, n int) ([]vm.ArgValue, error) {
	args := make([]vm.ArgValue, n)
	for i := n - 1; i >= 0; i-- {
		a, ok := frame.Pop().(vm.ArgValue)
		if !ok {
			return nil, fmt.Errorf("Compiler error: stack contains non-call arguments")
		}
		args[i] = a
	}
	return args, nil
}

func positionalArgs(vals []vm.Value) []vm.ArgValue {
	out := make([]vm.ArgValue, len(vals))
	for i, v := range vals {
		out[i] = vm.ArgValue{Value: v}
	}
	return out
}

// plainArgs strips the call protocol wrapper for callees that don't take
// keyword arguments.
func plainArgs(name string, args []vm.ArgValue) ([]vm.Value, error) {
	out := make([]vm.Value, len(args))
	for i, a := range args {
		if a.Key != "" {
			return nil, fmt.Errorf("%s does not accept keyword argument '%s'", name, a.Key)
		}
		out[i] = a.Value
	}
	return out, nil
}

func BuildCallFrame(prog *vm.Program, ptr vm.ExecPtr, args []vm.ArgValue) (*StackFrame, error) {
	fn := prog.GetFunction(ptr)
	if fn == nil {
		return nil, fmt.Errorf("no function at %s", ptr)
	}
	args = slices.Clone(args)
	newFrame := &StackFrame{
		PC: ptr,
	}
	for _, p := range fn.Params {
		found := false
		for i, a := range args {
			if a.Key == p.Name {
				newFrame.StoreVar(p.Name, a.Value)
				args = slices.Delete(args, i, i+1)
				found = true
				break
			}
		}
		if found {
			continue
		}
		if i := slices.IndexFunc(args, isPositional); i >= 0 {
			newFrame.StoreVar(p.Name, args[i].Value)
			args = slices.Delete(args, i, i+1)
			continue
		}
		if p.Default != nil {
			newFrame.StoreVar(p.Name, p.Default)
		} else {
			return nil, fmt.Errorf("Not enough arguments to call %s: missing '%s'", fn.Name, p.Name)
		}
	}
	if len(args) != 0 {
		if args[0].Key != "" {
			return nil, fmt.Errorf("%s has no parameter '%s'", fn.Name, args[0].Key)
		}
		return nil, fmt.Errorf("Too many arguments to call %s: takes %d", fn.Name, len(fn.Params))
	}
	return newFrame, nil
}

func isPositional(a vm.ArgValue) bool {
	return a.Key == ""
}

// wantsSelf reports whether a function stored in a map's data expects the
// map as its first argument.
func (m *Machine) wantsSelf(fn vm.Value) bool {
	ptr, ok := fn.(vm.FnPtrValue)
	if !ok {
		return false
	}
	f := m.Program.GetFunction(vm.ExecPtr(ptr))
	return f != nil && len(f.Params) > 0 && f.Params[0].Name == "self"
}
