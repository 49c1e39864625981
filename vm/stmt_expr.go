package vm

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.starlark.net/syntax"
)

func (cc *compileContext) statement(s syntax.Stmt) error {
	// Record source line for this statement
	cc.setLine(s)

	switch v := s.(type) {
	case *syntax.AssignStmt:
		return cc.assign(v.Op, v.LHS, v.RHS)
	case *syntax.BranchStmt:
		return cc.branch(v)
	case *syntax.DefStmt:
		if !cc.topLevel {
			return errors.New("Nested defs are unsupported")
		}
		name := v.Name.Name
		sub := cc.newSub(name)
		var err error
		sub.params, err = getFunctionParams(v.Params)
		if err != nil {
			return err
		}
		err = sub.buildFromStatements(v.Body)
		if err != nil {
			return err
		}
		// Add implicit return at end of function if not already present
		if len(sub.ops) == 0 || sub.ops[len(sub.ops)-1].Code != RETURN {
			sub.emit(PUSH, None)
			sub.emit(RETURN)
		}
		cc.subContext[name] = sub
	case *syntax.ExprStmt:
		if _, ok := v.X.(*syntax.Literal); ok {
			// Opt: don't compile literals only to pop them.
			return nil
		}
		err := cc.expr(v.X)
		if err != nil {
			return err
		}
		// All expressions leave a value on the stack, so always POP it
		cc.emit(POP)
	case *syntax.ForStmt:
		idents := 0
		switch vars := unparen(v.Vars).(type) {
		case *syntax.Ident:
			cc.emit(PUSH, StrValue(vars.Name))
			idents = 1
		case *syntax.TupleExpr:
			if len(vars.List) > 2 {
				return errors.New("Too many variables in for list")
			}
			idents = len(vars.List)
			for _, id := range vars.List {
				if v, ok := id.(*syntax.Ident); ok {
					cc.emit(PUSH, StrValue(v.Name))
				} else {
					return errors.New("Non-identifier in for variable")
				}
			}
		default:
			return errors.New("Unsupported for variables")
		}
		err := cc.expr(v.X)
		if err != nil {
			return err
		}
		endLabel := cc.newLabel()
		nextLabel := cc.newLabel()
		if idents == 1 {
			cc.emit(ITER_START, StrValue(endLabel))
		} else if idents == 2 {
			cc.emit(ITER_START_2, StrValue(endLabel))
		} else {
			return errors.New("Too many identifiers")
		}
		cc.loops = append(cc.loops, loopLabels{breakLabel: endLabel, continueLabel: nextLabel, forLoop: true})
		err = cc.buildFromStatements(v.Body)
		cc.loops = cc.loops[:len(cc.loops)-1]
		if err != nil {
			return err
		}
		cc.emitLabel(nextLabel)
		cc.emit(ITER_NEXT)
		cc.emitLabel(endLabel)
	case *syntax.WhileStmt:
		// while condition:
		//   body
		// Compiles to:
		//   start_label:
		//     <condition>
		//     JFALSE end_label  ; JFALSE consumes the condition value
		//     <body>
		//     JMP start_label
		//   end_label:
		startLabel := cc.newLabel()
		endLabel := cc.newLabel()
		cc.emitLabel(startLabel)
		err := cc.expr(v.Cond)
		if err != nil {
			return err
		}
		cc.emit(JFALSE, StrValue(endLabel))
		cc.loops = append(cc.loops, loopLabels{breakLabel: endLabel, continueLabel: startLabel})
		err = cc.buildFromStatements(v.Body)
		cc.loops = cc.loops[:len(cc.loops)-1]
		if err != nil {
			return err
		}
		cc.emit(JMP, StrValue(startLabel))
		cc.emitLabel(endLabel)
	case *syntax.IfStmt:
		err := cc.expr(v.Cond)
		if err != nil {
			return err
		}
		label := cc.newLabel()
		cc.emit(JFALSE, StrValue(label))
		if err := cc.buildFromStatements(v.True); err != nil {
			return err
		}
		if len(v.False) == 0 {
			cc.emitLabel(label)
			return nil
		}
		endLabel := cc.newLabel()
		cc.emit(JMP, StrValue(endLabel))
		cc.emitLabel(label)
		if err := cc.buildFromStatements(v.False); err != nil {
			return err
		}
		cc.emitLabel(endLabel)
	case *syntax.LoadStmt:
		return errors.New("LoadStmt is unimplemented")
	case *syntax.ReturnStmt:
		if v.Result == nil {
			cc.emit(PUSH, None)
		} else {
			err := cc.expr(v.Result)
			if err != nil {
				return err
			}
		}
		cc.emit(RETURN)
	default:
		return fmt.Errorf("Unhandled statment type %T", s)
	}
	return nil
}

func (cc *compileContext) branch(v *syntax.BranchStmt) error {
	if v.Token == syntax.PASS {
		return nil
	}
	if len(cc.loops) == 0 {
		return fmt.Errorf("%s outside of a loop", v.Token)
	}
	loop := cc.loops[len(cc.loops)-1]
	switch v.Token {
	case syntax.BREAK:
		if loop.forLoop {
			// ITER_END pops the iterator and jumps to its end label
			cc.emit(ITER_END)
		} else {
			cc.emit(JMP, StrValue(loop.breakLabel))
		}
	case syntax.CONTINUE:
		cc.emit(JMP, StrValue(loop.continueLabel))
	default:
		return fmt.Errorf("Unhandled branch statement %s", v.Token)
	}
	return nil
}

func (cc *compileContext) expr(e syntax.Expr) error {
	// Record source line for this expression
	cc.setLine(e)

	switch v := e.(type) {
	case *syntax.BinaryExpr:
		// Handle short-circuit operators (AND, OR) specially
		if v.Op == syntax.AND || v.Op == syntax.OR {
			return cc.shortCircuitBinOp(v)
		}
		// Regular binary operators - evaluate both sides first
		err := cc.expr(v.X)
		if err != nil {
			return err
		}
		err = cc.expr(v.Y)
		if err != nil {
			return err
		}
		return cc.binOp(v.Op)
	case *syntax.CallExpr:
		if ok, err := cc.specialCall(v); ok {
			return err
		}

		// Check if this is a method call: obj.method(args)
		if dotExpr, ok := v.Fn.(*syntax.DotExpr); ok {
			// Stack layout: arg1, arg2, ..., argN, receiver, methodName, N
			for _, a := range v.Args {
				err := cc.callArg(a)
				if err != nil {
					return err
				}
			}
			err := cc.expr(dotExpr.X)
			if err != nil {
				return err
			}
			cc.emit(PUSH, StrValue(dotExpr.Name.Name))
			cc.emit(CALL_METHOD, IntValue(len(v.Args)))
		} else {
			for _, a := range v.Args {
				err := cc.callArg(a)
				if err != nil {
					return err
				}
			}
			err := cc.expr(v.Fn)
			if err != nil {
				return err
			}
			cc.emit(CALL, IntValue(len(v.Args)))
		}
	case *syntax.Comprehension:
		return errors.New("Comprehensions are as yet unsupported")
	case *syntax.CondExpr:
		err := cc.expr(v.Cond)
		if err != nil {
			return err
		}
		label := cc.newLabel()
		cc.emit(JFALSE, StrValue(label))
		err = cc.expr(v.True)
		if err != nil {
			return err
		}
		endLabel := cc.newLabel()
		cc.emit(JMP, StrValue(endLabel))
		cc.emitLabel(label)
		err = cc.expr(v.False)
		if err != nil {
			return err
		}
		cc.emitLabel(endLabel)
	case *syntax.DictEntry:
		err := cc.expr(v.Key)
		if err != nil {
			return err
		}
		err = cc.expr(v.Value)
		if err != nil {
			return err
		}
		cc.emit(BUILD_TUPLE, IntValue(2))
	case *syntax.DictExpr:
		for _, expr := range v.List {
			err := cc.expr(expr)
			if err != nil {
				return err
			}
		}
		cc.emit(BUILD_DICT, IntValue(len(v.List)))
	case *syntax.DotExpr:
		err := cc.expr(v.X)
		if err != nil {
			return err
		}
		cc.emit(PUSH, StrValue(v.Name.Name))
		cc.emit(GETATTR)
	case *syntax.Ident:
		switch v.Name {
		case "True":
			cc.emit(PUSH, BoolTrue)
		case "False":
			cc.emit(PUSH, BoolFalse)
		case "None":
			cc.emit(PUSH, None)
		default:
			cc.emit(PUSH, StrValue(v.Name))
			cc.emit(GETVAL)
		}
	case *syntax.IndexExpr:
		err := cc.expr(v.X)
		if err != nil {
			return err
		}
		err = cc.expr(v.Y)
		if err != nil {
			return err
		}
		cc.emit(INDEX)
	case *syntax.LambdaExpr:
		return cc.lambda(v)
	case *syntax.ListExpr:
		for _, exp := range v.List {
			err := cc.expr(exp)
			if err != nil {
				return err
			}
		}
		cc.emit(BUILD_LIST, IntValue(len(v.List)))
	case *syntax.Literal:
		val, err := litToValue(v.Value)
		if err != nil {
			return err
		}
		cc.emit(PUSH, val)
	case *syntax.ParenExpr:
		return cc.expr(unparen(v))
	case *syntax.SliceExpr:
		// array[start:end:step] - step is not supported yet
		if v.Step != nil {
			return errors.New("Slice step is not supported")
		}
		err := cc.expr(v.X)
		if err != nil {
			return err
		}
		if v.Lo != nil {
			err = cc.expr(v.Lo)
			if err != nil {
				return err
			}
		} else {
			cc.emit(PUSH, None)
		}
		if v.Hi != nil {
			err = cc.expr(v.Hi)
			if err != nil {
				return err
			}
		} else {
			cc.emit(PUSH, None)
		}
		cc.emit(SLICE)
	case *syntax.TupleExpr:
		for _, exp := range v.List {
			err := cc.expr(exp)
			if err != nil {
				return err
			}
		}
		cc.emit(BUILD_TUPLE, IntValue(len(v.List)))
	case *syntax.UnaryExpr:
		return cc.unary(v)
	default:
		return fmt.Errorf("Unhandled expr type %T", e)
	}
	return nil
}

// lambda compiles the body into its own function. Lambdas see their own
// parameters and globals only.
func (cc *compileContext) lambda(v *syntax.LambdaExpr) error {
	name := "lambda#" + uuid.NewString()
	sub := cc.newSub(name)
	var err error
	sub.params, err = getFunctionParams(v.Params)
	if err != nil {
		return err
	}
	err = sub.expr(v.Body)
	if err != nil {
		return err
	}
	sub.emit(RETURN)
	cc.top().subContext[name] = sub
	cc.emit(PUSH, StrValue(name))
	cc.emit(GETVAL)
	return nil
}

// shortCircuitBinOp handles AND and OR operators with short-circuit evaluation
func (cc *compileContext) shortCircuitBinOp(e *syntax.BinaryExpr) error {
	if e.Op == syntax.AND {
		// AND short-circuit: if left is false, skip right and return left
		//   eval left
		//   DUP
		//   JFALSE end_label
		//   POP
		//   eval right
		//   end_label:
		err := cc.expr(e.X)
		if err != nil {
			return err
		}
		endLabel := cc.newLabel()
		cc.emit(DUP)
		cc.emit(JFALSE, StrValue(endLabel))
		cc.emit(POP)
		err = cc.expr(e.Y)
		if err != nil {
			return err
		}
		cc.emitLabel(endLabel)
		return nil
	}

	if e.Op == syntax.OR {
		// OR short-circuit: if left is true, skip right and return left
		//   eval left
		//   DUP
		//   JFALSE else_label
		//   JMP end_label
		//   else_label:
		//   POP
		//   eval right
		//   end_label:
		err := cc.expr(e.X)
		if err != nil {
			return err
		}
		elseLabel := cc.newLabel()
		endLabel := cc.newLabel()
		cc.emit(DUP)
		cc.emit(JFALSE, StrValue(elseLabel))
		cc.emit(JMP, StrValue(endLabel))
		cc.emitLabel(elseLabel)
		cc.emit(POP)
		err = cc.expr(e.Y)
		if err != nil {
			return err
		}
		cc.emitLabel(endLabel)
		return nil
	}

	return fmt.Errorf("shortCircuitBinOp: unexpected op %v", e.Op)
}

func (cc *compileContext) binOp(op syntax.Token) error {
	switch op {
	case syntax.PLUS: // +
		cc.emit(ADD)
	case syntax.MINUS: // -
		cc.emit(SUBTRACT)
	case syntax.STAR: // *
		cc.emit(MULTIPLY)
	case syntax.SLASH: // /
		cc.emit(DIVIDE)
	case syntax.SLASHSLASH: // //
		cc.emit(FLOOR_DIVIDE)
	case syntax.PERCENT: // %
		cc.emit(MODULO)
	case syntax.LT: // <
		cc.emit(LT)
	case syntax.GT: // >
		cc.emit(GT)
	case syntax.GE: // >=
		cc.emit(GTE)
	case syntax.LE: // <=
		cc.emit(LTE)
	case syntax.EQL: // ==
		cc.emit(EQ)
	case syntax.NEQ: // !=
		cc.emit(NEQ)
	case syntax.IN:
		cc.emit(IN)
	case syntax.NOT_IN: // synthesized by parser from NOT IN
		cc.emit(IN)
		cc.emit(NOT)
	default:
		return fmt.Errorf("compileContext: Unhandled binary operation %s", op)
	}
	return nil
}

func (cc *compileContext) unary(e *syntax.UnaryExpr) error {
	err := cc.expr(e.X)
	if err != nil {
		return err
	}
	switch e.Op {
	case syntax.NOT:
		cc.emit(NOT)
	case syntax.MINUS:
		cc.emit(NEGATE)
	case syntax.PLUS:
		// Unary plus is a no-op
	default:
		return fmt.Errorf("compileContext: Unhandled unary operation %s", e.Op)
	}
	return nil
}

func (cc *compileContext) callArg(arg syntax.Expr) error {
	switch v := arg.(type) {
	case *syntax.BinaryExpr:
		if v.Op == syntax.EQ {
			// Keyword argument: name=value
			if g, ok := v.X.(*syntax.Ident); ok {
				err := cc.expr(v.Y)
				if err != nil {
					return err
				}
				cc.emit(PUSH, StrValue(g.Name))
				cc.emit(BUILD_ARG)
			} else {
				return fmt.Errorf("Only identifiers are allowed on the left-hand side of a function call argument")
			}
			return nil
		}
	case *syntax.UnaryExpr:
		if v.Op == syntax.STAR || v.Op == syntax.STARSTAR {
			return fmt.Errorf("Splats are currently unsupported")
		}
	}
	err := cc.expr(arg)
	if err != nil {
		return err
	}
	cc.emit(PUSH, None)
	cc.emit(BUILD_ARG)
	return nil
}

var compoundOps = map[syntax.Token]Opcode{
	syntax.PLUS_EQ:       ADD_ASSIGN,
	syntax.MINUS_EQ:      SUBTRACT_ASSIGN,
	syntax.STAR_EQ:       MULTIPLY_ASSIGN,
	syntax.SLASH_EQ:      DIVIDE_ASSIGN,
	syntax.PERCENT_EQ:    MODULO_ASSIGN,
	syntax.SLASHSLASH_EQ: FLOOR_DIVIDE,
}

func (cc *compileContext) assign(op syntax.Token, lhs syntax.Expr, rhs syntax.Expr) error {
	if op != syntax.EQ {
		return cc.compoundAssign(op, lhs, rhs)
	}
	switch v := unparen(lhs).(type) {
	case *syntax.Ident:
		if err := checkAssignable(v); err != nil {
			return err
		}
		err := cc.expr(rhs)
		if err != nil {
			return err
		}
		cc.emit(PUSH, StrValue(v.Name))
		cc.emit(SETVAL)
	case *syntax.IndexExpr:
		if err := cc.expr(v.X); err != nil {
			return err
		}
		if err := cc.expr(v.Y); err != nil {
			return err
		}
		if err := cc.expr(rhs); err != nil {
			return err
		}
		cc.emit(SETINDEX)
	case *syntax.DotExpr:
		if err := cc.expr(v.X); err != nil {
			return err
		}
		cc.emit(PUSH, StrValue(v.Name.Name))
		if err := cc.expr(rhs); err != nil {
			return err
		}
		cc.emit(SETATTR)
	case *syntax.TupleExpr:
		return cc.unpackAssign(v.List, rhs)
	case *syntax.ListExpr:
		return cc.unpackAssign(v.List, rhs)
	default:
		return fmt.Errorf("assign: Unhandled LHS expr type %T", lhs)
	}
	return nil
}

// unpackAssign compiles `a, b = rhs`. UNPACK leaves the last element on
// top, so the targets are stored right to left.
func (cc *compileContext) unpackAssign(targets []syntax.Expr, rhs syntax.Expr) error {
	idents := make([]*syntax.Ident, len(targets))
	for i, t := range targets {
		id, ok := unparen(t).(*syntax.Ident)
		if !ok {
			return fmt.Errorf("assign: only identifiers can be unpacked into, got %T", t)
		}
		if err := checkAssignable(id); err != nil {
			return err
		}
		idents[i] = id
	}
	err := cc.expr(rhs)
	if err != nil {
		return err
	}
	cc.emit(UNPACK, IntValue(len(idents)))
	for i := len(idents) - 1; i >= 0; i-- {
		cc.emit(PUSH, StrValue(idents[i].Name))
		cc.emit(SETVAL)
	}
	return nil
}

// compoundAssign compiles `target op= rhs`. The operator's result is
// always stored back into the target.
func (cc *compileContext) compoundAssign(op syntax.Token, lhs syntax.Expr, rhs syntax.Expr) error {
	code, ok := compoundOps[op]
	if !ok {
		return fmt.Errorf("%s assignments unimplemented", op)
	}
	switch v := unparen(lhs).(type) {
	case *syntax.Ident:
		if err := checkAssignable(v); err != nil {
			return err
		}
		if err := cc.expr(v); err != nil {
			return err
		}
		if err := cc.expr(rhs); err != nil {
			return err
		}
		cc.emit(code)
		cc.emit(PUSH, StrValue(v.Name))
		cc.emit(SETVAL)
	case *syntax.DotExpr:
		// obj DUP name GETATTR rhs OP name SWAP SETATTR
		if err := cc.expr(v.X); err != nil {
			return err
		}
		cc.emit(DUP)
		cc.emit(PUSH, StrValue(v.Name.Name))
		cc.emit(GETATTR)
		if err := cc.expr(rhs); err != nil {
			return err
		}
		cc.emit(code)
		cc.emit(PUSH, StrValue(v.Name.Name))
		cc.emit(SWAP)
		cc.emit(SETATTR)
	case *syntax.IndexExpr:
		// obj key DUP2 INDEX rhs OP SETINDEX
		if err := cc.expr(v.X); err != nil {
			return err
		}
		if err := cc.expr(v.Y); err != nil {
			return err
		}
		cc.emit(DUP2)
		cc.emit(INDEX)
		if err := cc.expr(rhs); err != nil {
			return err
		}
		cc.emit(code)
		cc.emit(SETINDEX)
	default:
		return fmt.Errorf("assign: Unhandled compound LHS expr type %T", lhs)
	}
	return nil
}

func checkAssignable(v *syntax.Ident) error {
	switch v.Name {
	case "True", "False", "None":
		return fmt.Errorf("Reassigning `%s` is not allowed", v.Name)
	}
	return nil
}
