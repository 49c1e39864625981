package vm

import (
	"fmt"
	"slices"

	"go.starlark.net/syntax"
)

type Special string

const (
	Assert Special = "assert"
)

var allSpecials = []Special{
	Assert,
}

func (cc *compileContext) specialCall(call *syntax.CallExpr) (bool, error) {
	if _, ok := call.Fn.(*syntax.Ident); !ok {
		return false, nil
	}
	fn := call.Fn.(*syntax.Ident)
	if !slices.Contains(allSpecials, Special(fn.Name)) {
		return false, nil
	}
	switch Special(fn.Name) {
	case Assert:
		if len(call.Args) != 1 {
			return true, fmt.Errorf("%s takes exactly one argument, got %d", fn.Name, len(call.Args))
		}
		if err := cc.expr(call.Args[0]); err != nil {
			return true, err
		}
		start, _ := call.Span()
		cc.emit(ASSERT, StrValue(start.String()))
	default:
		return true, fmt.Errorf("Unhandled special: %s", fn.Name)
	}
	return true, nil
}
