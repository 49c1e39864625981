package interp

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jasal82/koto/vm"
)

// Step executes one instruction of the innermost frame.
func (m *Machine) Step(stack StackFrames) (StepResult, int, error) {
	if len(stack) == 0 {
		log.Trace().Msg("Step: empty stack, returning error")
		return ErrorStep, 0, errors.New("No stack frame")
	}
	frame := stack.CurrentStack()
	inst, err := m.Program.GetInstruction(frame.PC)
	if err != nil {
		if errors.Is(err, vm.ErrEndOfCode) {
			log.Trace().Str("pc", frame.PC.String()).Msg("Step: end of code")
			return EndStep, 0, nil
		}
		log.Trace().Err(err).Str("pc", frame.PC.String()).Msg("Step: error getting instruction")
		return ErrorStep, 0, err
	}

	log.Trace().
		Str("opcode", inst.Code.String()).
		Str("pc", frame.PC.String()).
		Str("arg", argString(inst.Arg)).
		Int("stack_depth", len(frame.Stack)).
		Msg("Step: executing instruction")

	switch inst.Code {
	case vm.NOP:
	case vm.POP:
		frame.Pop()
	case vm.PUSH:
		frame.Push(inst.Arg)
	case vm.SETVAL:
		// Assignments bind in the current frame; the top-level frame is
		// the global frame.
		name := mustString(frame.Pop())
		val := frame.Pop()
		frame.StoreVar(name, val)
		log.Trace().Str("variable", name).Bool("global", frame == m.Globals).Msg("  SETVAL")
	case vm.GETVAL:
		name := mustString(frame.Pop())
		v, err := m.resolveVar(name, frame)
		if err != nil {
			return ErrorStep, 0, err
		}
		frame.Push(v)
	case vm.SWAP:
		a := frame.Pop()
		b := frame.Pop()
		frame.Push(a)
		frame.Push(b)
	case vm.DUP:
		frame.Push(frame.Peek(0))
	case vm.DUP2:
		a, b := frame.Peek(1), frame.Peek(0)
		frame.Push(a)
		frame.Push(b)
	case vm.UNPACK:
		n := int(inst.Arg.(vm.IntValue))
		v := frame.Pop()
		var items []vm.Value
		switch c := v.(type) {
		case vm.TupleValue:
			items = c
		case *vm.ListValue:
			items = c.Items
		default:
			return ErrorStep, 0, fmt.Errorf("can't unpack %s into %d targets", m.reportedType(v), n)
		}
		if len(items) != n {
			return ErrorStep, 0, fmt.Errorf("can't unpack %d values into %d targets", len(items), n)
		}
		for _, it := range items {
			frame.Push(it)
		}
	case vm.GETATTR:
		// Stack: A B -> C where C = A.B
		key := mustString(frame.Pop())
		obj := frame.Pop()
		val, err := m.GetAttr(obj, key)
		if err != nil {
			return ErrorStep, 0, err
		}
		frame.Push(val)
	case vm.SETATTR:
		// Stack: A B C -> nothing, sets A.B = C
		val := frame.Pop()
		key := mustString(frame.Pop())
		obj := frame.Pop()
		if err := m.SetAttr(obj, key, val); err != nil {
			return ErrorStep, 0, err
		}
	case vm.INDEX:
		k := frame.Pop()
		obj := frame.Pop()
		val, err := m.Index(obj, k)
		if err != nil {
			return ErrorStep, 0, err
		}
		frame.Push(val)
	case vm.SETINDEX:
		val := frame.Pop()
		k := frame.Pop()
		obj := frame.Pop()
		if err := m.SetIndex(obj, k, val); err != nil {
			return ErrorStep, 0, err
		}
	case vm.ADD, vm.SUBTRACT, vm.MULTIPLY, vm.DIVIDE, vm.MODULO, vm.FLOOR_DIVIDE,
		vm.EQ, vm.NEQ, vm.LT, vm.LTE, vm.GT, vm.GTE, vm.IN:
		b := frame.Pop()
		a := frame.Pop()
		v, err := m.BinaryOp(inst.Code, a, b)
		if err != nil {
			log.Trace().Str("op", inst.Code.String()).Err(err).Msg("  BINARY_OP: error")
			return ErrorStep, 0, err
		}
		frame.Push(v)
	case vm.ADD_ASSIGN, vm.SUBTRACT_ASSIGN, vm.MULTIPLY_ASSIGN, vm.DIVIDE_ASSIGN, vm.MODULO_ASSIGN:
		b := frame.Pop()
		a := frame.Pop()
		v, err := m.CompoundOp(inst.Code, a, b)
		if err != nil {
			log.Trace().Str("op", inst.Code.String()).Err(err).Msg("  COMPOUND_OP: error")
			return ErrorStep, 0, err
		}
		frame.Push(v)
	case vm.NOT, vm.NEGATE:
		a := frame.Pop()
		v, err := m.UnaryOp(inst.Code, a)
		if err != nil {
			return ErrorStep, 0, err
		}
		frame.Push(v)
	case vm.SLICE:
		// Stack: Seq Start End -> Result
		hi := frame.Pop()
		lo := frame.Pop()
		seq := frame.Pop()
		v, err := m.Slice(seq, lo, hi)
		if err != nil {
			return ErrorStep, 0, err
		}
		frame.Push(v)
	case vm.JMP:
		// Unconditional jump to label
		if label, ok := inst.Arg.(vm.IntValue); ok {
			frame.PC = frame.PC.SetOffset(int(label))
			return ContinueStep, 0, nil
		}
		return ErrorStep, 0, fmt.Errorf("JMP requires integer label")
	case vm.JFALSE:
		// Jump to label if top of stack is false
		cond := frame.Pop()
		if !cond.AsBool() {
			if label, ok := inst.Arg.(vm.IntValue); ok {
				frame.PC = frame.PC.SetOffset(int(label))
				return ContinueStep, 0, nil
			}
			return ErrorStep, 0, fmt.Errorf("JFALSE requires integer label")
		}
	case vm.RETURN:
		return ReturnStep, 0, nil
	case vm.BUILD_LIST:
		l := popN(frame, int(inst.Arg.(vm.IntValue)))
		frame.Push(vm.NewList(l...))
	case vm.BUILD_TUPLE:
		l := popN(frame, int(inst.Arg.(vm.IntValue)))
		frame.Push(vm.TupleValue(l))
	case vm.BUILD_DICT:
		d, err := m.buildDict(popN(frame, int(inst.Arg.(vm.IntValue))))
		if err != nil {
			return ErrorStep, 0, err
		}
		frame.Push(d)
	case vm.BUILD_ARG:
		name := frame.Pop()
		val := frame.Pop()
		if _, ok := name.(vm.NoneValue); ok {
			frame.Push(vm.ArgValue{Value: val})
		} else {
			frame.Push(vm.ArgValue{Key: mustString(name), Value: val})
		}
	case vm.CALL:
		if v, ok := inst.Arg.(vm.IntValue); ok {
			// Stack: arg1, arg2, ..., argN, fn
			return CallStep, int(v), nil
		}
		return ErrorStep, 0, fmt.Errorf("Error in compilation; CALL should carry an int")
	case vm.CALL_METHOD:
		if v, ok := inst.Arg.(vm.IntValue); ok {
			// Stack: arg1, arg2, ..., argN, receiver, methodName
			return MethodCallStep, int(v), nil
		}
		return ErrorStep, 0, fmt.Errorf("Error in compilation; CALL_METHOD should carry an int")
	case vm.ASSERT:
		cond := frame.Pop()
		if !cond.AsBool() {
			return ErrorStep, 0, fmt.Errorf("%w at %s", vm.ErrAssertionFailed, argString(inst.Arg))
		}
		frame.Push(vm.None)
	case vm.ITER_START, vm.ITER_START_2:
		iterable := frame.Pop()
		vars := 1
		if inst.Code == vm.ITER_START_2 {
			vars = 2
		}
		// Variable names were pushed in order before the iterable
		names := make([]string, vars)
		for i := vars - 1; i >= 0; i-- {
			names[i] = mustString(frame.Pop())
		}
		iter, err := m.MakeIterator(iterable)
		if err != nil {
			return ErrorStep, 0, err
		}

		// Get end label from instruction arg (preserve CodeID, set offset)
		endLabel := frame.PC.SetOffset(int(inst.Arg.(vm.IntValue)))
		iterState := &IteratorState{
			Start:    frame.PC.Inc(), // Resume point for loop body
			End:      endLabel,       // Exit point
			Iter:     iter,
			VarNames: names,
		}
		frame.IteratorStack = append(frame.IteratorStack, iterState)
		return m.advanceLoop(frame, iterState)
	case vm.ITER_NEXT:
		if len(frame.IteratorStack) == 0 {
			return ErrorStep, 0, fmt.Errorf("ITER_NEXT with empty iterator stack")
		}
		return m.advanceLoop(frame, frame.IteratorStack[len(frame.IteratorStack)-1])
	case vm.ITER_END:
		// Pop current iterator and jump to end
		if len(frame.IteratorStack) == 0 {
			return ErrorStep, 0, fmt.Errorf("ITER_END with empty iterator stack")
		}
		iterState := frame.IteratorStack[len(frame.IteratorStack)-1]
		frame.IteratorStack = frame.IteratorStack[:len(frame.IteratorStack)-1]
		frame.PC = iterState.End
		log.Trace().Str("end_pc", iterState.End.String()).Msg("  ITER_END: breaking from loop")
		return ContinueStep, 0, nil
	default:
		return ErrorStep, 0, fmt.Errorf("Unhandled step instruction %s", inst.Code)
	}
	frame.PC = frame.PC.Inc()
	return ContinueStep, 0, nil
}

// advanceLoop pulls the next value of a for loop, binding the loop
// variables and jumping to the body, or popping the iterator and jumping
// past the loop when it is exhausted.
func (m *Machine) advanceLoop(frame *StackFrame, iterState *IteratorState) (StepResult, int, error) {
	v, ok, err := iterState.Iter.Next()
	if err != nil {
		return ErrorStep, 0, err
	}
	if !ok {
		frame.IteratorStack = frame.IteratorStack[:len(frame.IteratorStack)-1]
		frame.PC = iterState.End
		log.Trace().Str("end_pc", iterState.End.String()).Msg("  ITER: exhausted, exiting loop")
		return ContinueStep, 0, nil
	}
	if len(iterState.VarNames) == 1 {
		frame.StoreVar(iterState.VarNames[0], v)
	} else {
		var pair []vm.Value
		switch c := v.(type) {
		case vm.TupleValue:
			pair = c
		case *vm.ListValue:
			pair = c.Items
		}
		if len(pair) != 2 {
			return ErrorStep, 0, fmt.Errorf("can't unpack %s into 2 loop variables", m.reportedType(v))
		}
		frame.StoreVar(iterState.VarNames[0], pair[0])
		frame.StoreVar(iterState.VarNames[1], pair[1])
	}
	frame.PC = iterState.Start
	return ContinueStep, 0, nil
}

// buildDict assembles a map literal from (key, value) pairs. Keys starting
// with '@' go to the meta map.
func (m *Machine) buildDict(pairs []vm.Value) (*vm.MapValue, error) {
	d := vm.NewMap()
	for _, p := range pairs {
		pair, ok := p.(vm.TupleValue)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("Error in compilation; BUILD_DICT expects pairs")
		}
		k, ok := pair[0].(vm.StrValue)
		if !ok {
			return nil, fmt.Errorf("map keys must be strings, got %s", m.reportedType(pair[0]))
		}
		if !vm.IsMetaKey(string(k)) {
			d.Set(string(k), pair[1])
			continue
		}
		key, err := vm.ParseMetaKey(string(k))
		if err != nil {
			return nil, err
		}
		if err := d.MetaMut().Insert(key, pair[1]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func popN(frame *StackFrame, n int) []vm.Value {
	l := make([]vm.Value, n)
	for i := n - 1; i >= 0; i-- {
		l[i] = frame.Pop()
	}
	return l
}

func mustString(v vm.Value) string {
	return string(v.(vm.StrValue))
}

func argString(v vm.Value) string {
	if v == nil {
		return ""
	}
	return vm.FormatValue(v)
}

// resolveVar looks a name up in the current frame, then the globals, then
// the program's functions, then the builtins.
func (m *Machine) resolveVar(name string, frame *StackFrame) (vm.Value, error) {
	if v, ok := frame.Lookup(name); ok {
		return v, nil
	}
	if v, ok := m.Globals.Lookup(name); ok {
		return v, nil
	}
	if v, ok := m.Program.Resolve(name); ok {
		return vm.FnPtrValue(v), nil
	}
	if b, ok := lookupBuiltin(name); ok {
		return b, nil
	}
	return nil, fmt.Errorf("No such variable defined: %s", name)
}
