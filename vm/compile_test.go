package vm

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileTestdata(t *testing.T) {
	err := filepath.WalkDir("../testdata", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".star") {
			return nil
		}
		t.Run(filepath.Base(path), fileTest(path))
		return nil
	})
	require.NoError(t, err)
}

func fileTest(path string) func(t *testing.T) {
	return func(t *testing.T) {
		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()
		p, err := LoadFile(path, f)
		require.NoError(t, err)
		require.NotNil(t, p.Main)
		for name, id := range p.Definitions {
			require.NotNil(t, p.GetFunction(NewExecPtr(id)), name)
		}
	}
}

func opcodes(f *Function) []Opcode {
	out := make([]Opcode, len(f.Bytecode))
	for i, op := range f.Bytecode {
		out[i] = op.Code
	}
	return out
}

func TestCompileCompoundAssign(t *testing.T) {
	p, err := CompileLiteral("t.star", "v += 1\n")
	require.NoError(t, err)
	assert.Equal(t, []Opcode{PUSH, GETVAL, PUSH, ADD_ASSIGN, PUSH, SETVAL}, opcodes(p.Main))

	p, err = CompileLiteral("t.star", "v.x -= 1\n")
	require.NoError(t, err)
	assert.Equal(t, []Opcode{PUSH, GETVAL, DUP, PUSH, GETATTR, PUSH, SUBTRACT_ASSIGN, PUSH, SWAP, SETATTR}, opcodes(p.Main))

	p, err = CompileLiteral("t.star", "v[0] *= 2\n")
	require.NoError(t, err)
	assert.Equal(t, []Opcode{PUSH, GETVAL, PUSH, DUP2, INDEX, PUSH, MULTIPLY_ASSIGN, SETINDEX}, opcodes(p.Main))
}

func TestCompileFunctions(t *testing.T) {
	src := `
def add(a, b=2):
    return a + b

f = lambda x: x * 2
`
	p, err := CompileLiteral("t.star", src)
	require.NoError(t, err)
	ptr, ok := p.Resolve("add")
	require.True(t, ok)
	fn := p.GetFunction(ptr)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Nil(t, fn.Params[0].Default)
	assert.Equal(t, IntValue(2), fn.Params[1].Default)
	assert.Equal(t, "add", fn.Name)

	lambdas := 0
	for name := range p.Definitions {
		if strings.HasPrefix(name, "lambda#") {
			lambdas++
		}
	}
	assert.Equal(t, 1, lambdas)
}

func TestCompileDictLiteral(t *testing.T) {
	p, err := CompileLiteral("t.star", `v = {"x": 1, "@+": None}`+"\n")
	require.NoError(t, err)
	ops := p.Main.Bytecode
	var build *Op
	for i := range ops {
		if ops[i].Code == BUILD_DICT {
			build = &ops[i]
		}
	}
	require.NotNil(t, build)
	assert.Equal(t, IntValue(2), build.Arg)
}

func TestCompileAssert(t *testing.T) {
	p, err := CompileLiteral("t.star", "assert(1 == 1)\n")
	require.NoError(t, err)
	assert.Equal(t, []Opcode{PUSH, PUSH, EQ, ASSERT, POP}, opcodes(p.Main))
	assert.Equal(t, StrValue("t.star:1:1"), p.Main.Bytecode[3].Arg)
}

func TestCompileLabelsResolved(t *testing.T) {
	src := `
total = 0
for i in range(10):
    if i == 3:
        continue
    if i == 8:
        break
    total += i
while total > 0:
    total -= 5
`
	p, err := CompileLiteral("t.star", src)
	require.NoError(t, err)
	for _, op := range p.Main.Bytecode {
		require.NotEqual(t, LABEL, op.Code)
		switch op.Code {
		case JMP, JFALSE, ITER_START, ITER_START_2:
			off, ok := op.Arg.(IntValue)
			require.True(t, ok, "%s has unresolved target", op)
			assert.LessOrEqual(t, int(off), len(p.Main.Bytecode))
		}
	}
}

func TestCompileLineNumbers(t *testing.T) {
	p, err := CompileLiteral("t.star", "a = 1\n\nb = 2\n")
	require.NoError(t, err)
	last := p.Main.Bytecode[len(p.Main.Bytecode)-1]
	assert.Equal(t, SETVAL, last.Code)
	assert.Equal(t, 3, last.Line)
	assert.Equal(t, 1, p.GetLineNumber(NewExecPtr(0)))
}

func TestCompileErrors(t *testing.T) {
	cases := map[string]string{
		"nested def":    "def f():\n    def g():\n        pass\n",
		"comprehension": "x = [i for i in range(3)]\n",
		"load":          "load(\"x.star\", \"y\")\n",
		"break outside": "break\n",
		"reassign True": "True = 1\n",
		"slice step":    "x = [1, 2][::2]\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := CompileLiteral("t.star", src)
			assert.Error(t, err)
		})
	}
}

func TestCompileExpr(t *testing.T) {
	p, err := CompileExpr("1 + 2")
	require.NoError(t, err)
	assert.Equal(t, []Opcode{PUSH, PUSH, ADD, RETURN}, opcodes(p.Main))
	assert.Equal(t, "<expr>", p.Filename)

	_, err = CompileExpr("x = 1")
	assert.Error(t, err)
}

func TestProgramMerge(t *testing.T) {
	a, err := CompileLiteral("a.star", "def f():\n    return 1\n")
	require.NoError(t, err)
	b, err := CompileLiteral("b.star", "def g():\n    return 2\n")
	require.NoError(t, err)
	a.Merge(b)
	fp, ok := a.Resolve("f")
	require.True(t, ok)
	gp, ok := a.Resolve("g")
	require.True(t, ok)
	assert.Equal(t, "f", a.GetFunction(fp).Name)
	assert.Equal(t, "g", a.GetFunction(gp).Name)
	assert.Equal(t, "b.star", a.Filename)
}
