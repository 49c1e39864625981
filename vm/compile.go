package vm

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"go.starlark.net/syntax"
)

type Op struct {
	Code Opcode
	Arg  Value
	Line int
}

func (o Op) String() string {
	if o.Arg == nil {
		return o.Code.String()
	}
	return fmt.Sprintf("%s %s", o.Code, FormatValue(o.Arg))
}

type loopLabels struct {
	breakLabel    string
	continueLabel string
	forLoop       bool
}

type compileContext struct {
	ops        []Op
	name       string
	topLevel   bool
	root       *compileContext
	subContext map[string]*compileContext
	params     []FunctionParam
	loops      []loopLabels
	line       int
}

func (cc *compileContext) DebugPrint() {
	fmt.Printf("ops: %#v\n", cc.ops)
	fmt.Printf("params: %#v\n", cc.params)
	if len(cc.subContext) != 0 {
		for k, v := range cc.subContext {
			fmt.Printf("%s:\n", k)
			fmt.Printf("\tops: %#v\n", v.ops)
			fmt.Printf("\tparams: %#v\n", v.params)
		}
	}
}

func (cc *compileContext) emit(op Opcode, arg ...Value) {
	o := Op{Code: op, Line: cc.line}
	if len(arg) != 0 {
		o.Arg = arg[0]
	}
	cc.ops = append(cc.ops, o)
}

func (cc *compileContext) newLabel() string {
	return uuid.NewString()
}

func (cc *compileContext) emitLabel(s string) {
	cc.ops = append(cc.ops, Op{Code: LABEL, Arg: StrValue(s)})
}

func (cc *compileContext) setLine(n syntax.Node) {
	start, _ := n.Span()
	if start.Line > 0 {
		cc.line = int(start.Line)
	}
}

func newCompileContext() *compileContext {
	return &compileContext{
		subContext: make(map[string]*compileContext),
	}
}

// newSub creates the context of a function body. All functions, including
// lambdas nested in other functions, are registered on the top-level
// context.
func (cc *compileContext) newSub(name string) *compileContext {
	sub := newCompileContext()
	sub.name = name
	sub.root = cc.top()
	sub.line = cc.line
	return sub
}

func (cc *compileContext) top() *compileContext {
	if cc.root != nil {
		return cc.root
	}
	return cc
}

func CompilePath(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	synFile, err := fileOptions.Parse(path, f, 0)
	if err != nil {
		return nil, err
	}
	return Compile(synFile)
}

func Compile(file *syntax.File) (*Program, error) {
	cc, err := buildCompileContextTree(file)
	if err != nil {
		return nil, err
	}
	p, err := cc.intoProgram()
	if err != nil {
		return nil, err
	}
	p.Filename = file.Path
	return p, nil
}

func (cc *compileContext) intoProgram() (*Program, error) {
	p := &Program{
		Definitions: make(map[string]int),
	}
	if !cc.topLevel {
		return nil, errors.New("Can't make a program out of a non-top-level context")
	}
	f, err := cc.intoFunction()
	if err != nil {
		return nil, err
	}
	f.Name = "<main>"
	p.Main = f
	names := make([]string, 0, len(cc.subContext))
	for k := range cc.subContext {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		f, err := cc.subContext[k].intoFunction()
		if err != nil {
			return nil, err
		}
		f.Name = k
		p.Code = append(p.Code, f)
		p.Definitions[k] = len(p.Code)
	}
	return p, nil
}

func (cc *compileContext) intoFunction() (*Function, error) {
	f := &Function{}
	f.Params = cc.params
	offsetmap := make(map[string]int)
	for _, b := range cc.ops {
		if b.Code == LABEL {
			offsetmap[string(b.Arg.(StrValue))] = len(f.Bytecode)
			continue
		}
		f.Bytecode = append(f.Bytecode, b)
	}
	for i, b := range f.Bytecode {
		switch b.Code {
		case JMP, JFALSE, ITER_START, ITER_START_2:
			if v, ok := b.Arg.(StrValue); ok {
				off, ok := offsetmap[string(v)]
				if !ok {
					return nil, fmt.Errorf("Compiler error: undefined label %s", v)
				}
				b.Arg = IntValue(off)
			}
		}
		f.Bytecode[i] = b // Replace after changes
	}
	return f, nil
}

func buildCompileContextTree(file *syntax.File) (*compileContext, error) {
	cc := newCompileContext()
	cc.topLevel = true
	err := cc.buildFromStatements(file.Stmts)
	if err != nil {
		return nil, err
	}
	return cc, nil
}

func buildExprContextTree(e syntax.Expr) (*compileContext, error) {
	cc := newCompileContext()
	cc.topLevel = true
	err := cc.expr(e)
	if err != nil {
		return nil, err
	}
	cc.emit(RETURN)
	return cc, nil
}

func (cc *compileContext) buildFromStatements(stmts []syntax.Stmt) error {
	for _, s := range stmts {
		err := cc.statement(s)
		if err != nil {
			return err
		}
	}
	return nil
}

func getFunctionParams(e []syntax.Expr) ([]FunctionParam, error) {
	var out []FunctionParam
	for _, x := range e {
		switch v := x.(type) {
		case *syntax.Ident:
			out = append(out, FunctionParam{Name: v.Name})
		case *syntax.BinaryExpr:
			if v.Op != syntax.EQ {
				return nil, fmt.Errorf("Only assignments are allowed within a function parameter")
			}
			arg, ok := v.X.(*syntax.Ident)
			if !ok {
				return nil, fmt.Errorf("Function parameter names must be identifiers")
			}
			val, err := constantValue(v.Y)
			if err != nil {
				return nil, err
			}
			out = append(out, FunctionParam{Name: arg.Name, Default: val})
		default:
			return nil, fmt.Errorf("Unhandled function param expr type %T", x)
		}
	}
	return out, nil
}

// constantValue evaluates the expressions allowed as parameter defaults.
func constantValue(e syntax.Expr) (Value, error) {
	switch y := unparen(e).(type) {
	case *syntax.Literal:
		return litToValue(y.Value)
	case *syntax.Ident:
		switch y.Name {
		case "True":
			return BoolTrue, nil
		case "False":
			return BoolFalse, nil
		case "None":
			return None, nil
		}
	case *syntax.UnaryExpr:
		if y.Op == syntax.MINUS {
			v, err := constantValue(y.X)
			if err != nil {
				return nil, err
			}
			switch n := v.(type) {
			case IntValue:
				return -n, nil
			case FloatValue:
				return -n, nil
			}
		}
	}
	return nil, fmt.Errorf("Only constants are supported as default arguments to functions")
}

func unparen(e syntax.Expr) syntax.Expr {
	if p, ok := e.(*syntax.ParenExpr); ok {
		return unparen(p.X)
	}
	return e
}

func litToValue(l any) (Value, error) {
	switch t := l.(type) {
	case int64:
		return IntValue(int(t)), nil
	case string:
		return StrValue(t), nil
	case float64:
		return FloatValue(t), nil
	}
	return nil, fmt.Errorf("litToValue: Unsupported literal value type %T", l)
}
