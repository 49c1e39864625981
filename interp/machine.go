package interp

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/jasal82/koto/vm"
)

// DefaultMaxCallDepth bounds nested calls, including re-entrant meta
// dispatch, when no configuration overrides it.
const DefaultMaxCallDepth = 256

// Machine runs one compiled program. It is not safe for concurrent use.
type Machine struct {
	Program *vm.Program
	Globals *StackFrame
	Out     io.Writer

	// MaxSteps is the instruction budget for the machine's lifetime, 0 for
	// unlimited.
	MaxSteps     int
	MaxCallDepth int

	// Trace, when set, is called before every instruction.
	Trace func(frames StackFrames)

	steps int
	depth int
}

var _ vm.Caller = (*Machine)(nil)

func NewMachine(prog *vm.Program) *Machine {
	if prog == nil {
		prog = &vm.Program{
			Definitions: make(map[string]int),
			Main:        &vm.Function{Name: "<main>"},
		}
	}
	return &Machine{
		Program:      prog,
		Globals:      &StackFrame{},
		Out:          os.Stdout,
		MaxCallDepth: DefaultMaxCallDepth,
	}
}

func (m *Machine) SetGlobal(name string, v vm.Value) {
	m.Globals.StoreVar(name, v)
}

func (m *Machine) Global(name string) (vm.Value, bool) {
	return m.Globals.Lookup(name)
}

// Steps reports the number of instructions executed so far.
func (m *Machine) Steps() int {
	return m.steps
}

// Run executes the program's main code with the global frame as its
// frame, so top-level assignments define globals.
func (m *Machine) Run() (vm.Value, error) {
	m.Globals.PC = vm.NewExecPtr(0)
	m.Globals.Stack = nil
	m.Globals.IteratorStack = nil
	return m.RunToEnd(m.Globals)
}

// Eval compiles src into the running program and executes it. An
// expression evaluates to its value; statements evaluate to None.
// Functions defined by earlier calls stay callable.
func (m *Machine) Eval(src string) (vm.Value, error) {
	p, err := vm.CompileExpr(src)
	if err != nil {
		p, err = vm.CompileLiteral("<eval>", src)
		if err != nil {
			return nil, err
		}
	}
	return m.Load(p)
}

// Load merges a compiled program into the machine and runs its main code.
// Globals set by earlier programs stay visible.
func (m *Machine) Load(p *vm.Program) (vm.Value, error) {
	m.Program.Merge(p)
	return m.Run()
}

// ScriptError decorates a runtime error with the source location of the
// instruction that failed.
type ScriptError struct {
	File string
	Line int
	Err  error
}

func (e *ScriptError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.File, e.Err)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

func (m *Machine) wrapErr(frame *StackFrame, err error) error {
	var se *ScriptError
	if errors.As(err, &se) {
		return err
	}
	file := m.Program.Filename
	if file == "" {
		file = "<script>"
	}
	return &ScriptError{
		File: filepath.Base(file),
		Line: m.Program.GetLineNumber(frame.PC),
		Err:  err,
	}
}

// enter accounts for one more active frame.
func (m *Machine) enter() error {
	m.depth++
	if m.MaxCallDepth > 0 && m.depth > m.MaxCallDepth {
		m.depth--
		return fmt.Errorf("%w: limit is %d", vm.ErrCallDepthExceeded, m.MaxCallDepth)
	}
	return nil
}

func (m *Machine) RunToEnd(start *StackFrame) (vm.Value, error) {
	frames := StackFrames{start}
	base := m.depth
	defer func() { m.depth = base }()
	for {
		cur := frames.CurrentStack()
		m.steps++
		if m.MaxSteps > 0 && m.steps > m.MaxSteps {
			return nil, m.wrapErr(cur, fmt.Errorf("%w: limit is %d", vm.ErrStepBudgetExceeded, m.MaxSteps))
		}
		if m.Trace != nil {
			m.Trace(frames)
		}
		c, n, err := m.Step(frames)
		if err != nil {
			return nil, m.wrapErr(cur, err)
		}
		switch c {
		case ContinueStep:
			continue
		case ReturnStep, EndStep:
			f := frames.PopStack()
			var val vm.Value = vm.None
			if c == ReturnStep {
				val = f.Pop()
			}
			if len(frames) == 0 {
				start.Stack = nil
				return val, nil
			}
			m.depth--
			frames.CurrentStack().Push(val)
			log.Trace().Int("stack_depth", len(frames)).Msg("RunToEnd: function returned")
		case CallStep, MethodCallStep:
			var newf *StackFrame
			if c == CallStep {
				newf, err = m.callFromStack(cur, n)
			} else {
				newf, err = m.callMethodFromStack(cur, n)
			}
			if err != nil {
				return nil, m.wrapErr(cur, err)
			}
			// Move past the CALL; a pushed frame returns here
			cur.PC = cur.PC.Inc()
			if newf != nil {
				if err := m.enter(); err != nil {
					return nil, m.wrapErr(cur, err)
				}
				frames.Append(newf)
				log.Trace().Int("stack_depth", len(frames)).Msg("RunToEnd: pushed call frame")
			}
		default:
			return nil, m.wrapErr(cur, fmt.Errorf("unhandled step result %s", c))
		}
	}
}
