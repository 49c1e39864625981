package vm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

type Program struct {
	Filename    string
	Definitions map[string]int
	Code        []*Function
	Main        *Function
}

func (p *Program) DebugPrint() {
	p.Disassemble(os.Stdout)
}

// Disassemble writes a listing of every function in the program.
func (p *Program) Disassemble(w io.Writer) {
	fmt.Fprintf(w, "Defs: %v\n", p.Definitions)
	fmt.Fprintln(w, "*** Main")
	p.Main.Disassemble(w)
	names := make([]string, 0, len(p.Definitions))
	for k := range p.Definitions {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		return p.Definitions[names[i]] < p.Definitions[names[j]]
	})
	for _, name := range names {
		fmt.Fprintf(w, "*** %d: %s\n", p.Definitions[name], name)
		p.Code[p.Definitions[name]-1].Disassemble(w)
	}
}

var ErrEndOfCode = errors.New("End of code block")

func (p *Program) GetFunction(ptr ExecPtr) *Function {
	if ptr.CodeID() == 0 {
		return p.Main
	}
	if ptr.CodeID() > len(p.Code) {
		return nil
	}
	return p.Code[ptr.CodeID()-1]
}

func (p *Program) GetInstruction(ptr ExecPtr) (Op, error) {
	f := p.GetFunction(ptr)
	if f == nil {
		return Op{}, fmt.Errorf("no code block %d", ptr.CodeID())
	}
	if len(f.Bytecode) <= ptr.Offset() {
		return Op{}, ErrEndOfCode
	}
	return f.Bytecode[ptr.Offset()], nil
}

// Resolve finds a compiled function by name. Code block 0 is Main, so
// definitions are numbered from 1.
func (p *Program) Resolve(name string) (ExecPtr, bool) {
	if v, ok := p.Definitions[name]; ok {
		return NewExecPtr(v), true
	}
	return 0, false
}

// GetLineNumber returns the source line of the instruction at ptr, or 0.
func (p *Program) GetLineNumber(ptr ExecPtr) int {
	f := p.GetFunction(ptr)
	if f == nil || ptr.Offset() >= len(f.Bytecode) {
		return 0
	}
	return f.Bytecode[ptr.Offset()].Line
}

// Merge adds the functions of next to p and makes next's Main the new
// entry point. Names are resolved at run time, so the merged code keeps
// working against functions defined by earlier programs.
func (p *Program) Merge(next *Program) {
	base := len(p.Code)
	p.Code = append(p.Code, next.Code...)
	if p.Definitions == nil {
		p.Definitions = make(map[string]int)
	}
	for name, id := range next.Definitions {
		p.Definitions[name] = base + id
	}
	p.Main = next.Main
	if next.Filename != "" {
		p.Filename = next.Filename
	}
}

type Function struct {
	Name     string
	Bytecode []Op
	Params   []FunctionParam
}

func (f *Function) DebugPrint() {
	f.Disassemble(os.Stdout)
}

func (f *Function) Disassemble(w io.Writer) {
	fmt.Fprintf(w, "Params: %v\n", f.Params)
	for i, b := range f.Bytecode {
		fmt.Fprintf(w, "  %03d: %s\n", i, b)
	}
}

type ExecPtr uint64

func (ptr ExecPtr) MarshalJSON() ([]byte, error) {
	out := make(map[string]int)
	out["offset"] = ptr.Offset()
	out["code_id"] = ptr.CodeID()
	return json.Marshal(out)
}

func (ptr ExecPtr) String() string {
	return fmt.Sprintf("%d:%03d", ptr.CodeID(), ptr.Offset())
}

func (ptr ExecPtr) Offset() int {
	return int(0xFFFFFFFF & ptr)
}

func (ptr ExecPtr) CodeID() int {
	return int(ptr >> 32)
}

func (ptr ExecPtr) Inc() ExecPtr {
	return ptr + 1
}

func (ptr ExecPtr) SetOffset(off int) ExecPtr {
	return ExecPtr((ptr.CodeID() << 32) | int(0xFFFFFFFF&off))
}

func NewExecPtr(block int) ExecPtr {
	return ExecPtr(block << 32)
}

type FunctionParam struct {
	Name    string
	Default Value
}

func (p FunctionParam) String() string {
	if p.Default == nil {
		return p.Name
	}
	return fmt.Sprintf("%s=%s", p.Name, FormatValue(p.Default))
}
