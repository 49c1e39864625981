package vm

import (
	"io"

	"go.starlark.net/syntax"
)

var fileOptions = syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

func LoadFile(name string, r io.Reader) (*Program, error) {
	f, err := fileOptions.Parse(name, r, 0)
	if err != nil {
		return nil, err
	}
	return Compile(f)
}

// CompileLiteral compiles source held in memory.
func CompileLiteral(name, src string) (*Program, error) {
	f, err := fileOptions.Parse(name, src, 0)
	if err != nil {
		return nil, err
	}
	return Compile(f)
}

// CompileExpr compiles a single expression into a program whose Main
// returns its value.
func CompileExpr(src string) (*Program, error) {
	e, err := fileOptions.ParseExpr("<expr>", src, 0)
	if err != nil {
		return nil, err
	}
	cc, err := buildExprContextTree(e)
	if err != nil {
		return nil, err
	}
	p, err := cc.intoProgram()
	if err != nil {
		return nil, err
	}
	p.Filename = "<expr>"
	return p, nil
}
