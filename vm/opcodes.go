package vm

type Opcode uint32

const (
	NOP Opcode = iota
	// PRE-STACK ... TOS+1 TOS | OP |  POST-STACK |
	POP      // A | | NIL
	PUSH     // NIL | x | A
	SETVAL   // A B | B = A | NIL
	GETVAL   // A | retrieve B given A | B
	GETATTR  // A B | C = A.B | C
	SETATTR  // A B C | A.B = C |
	INDEX    // A B | C = A[B] | C
	SETINDEX // A B C | A[B] = C |
	SWAP     // A B | | B A
	DUP      // A | | A A
	DUP2     // A B | | A B A B
	UNPACK   // A | n | A[0] ... A[n-1]

	ADD          // A B | C = A + B | C
	SUBTRACT     // A B | C = A - B | C
	MULTIPLY     // A B | C = A * B | C
	DIVIDE       // A B | C = A / B | C
	MODULO       // A B | C = A % B | C
	FLOOR_DIVIDE // A B | C = A // B | C

	ADD_ASSIGN      // A B | C = (A += B) | C, C is stored back by the compiler
	SUBTRACT_ASSIGN // A B | C = (A -= B) | C
	MULTIPLY_ASSIGN // A B | C = (A *= B) | C
	DIVIDE_ASSIGN   // A B | C = (A /= B) | C
	MODULO_ASSIGN   // A B | C = (A %= B) | C

	EQ     // A B | C = A == B | C
	NEQ    // A B | C = A != B | C
	LT     // A B | C = A < B | C
	LTE    // A B | C = A <= B | C
	GT     // A B | C = A > B | C
	GTE    // A B | C = A >= B | C
	NOT    // A | B = not A | B
	NEGATE // A | B = -A | B
	IN     // A B | C = A in B | C

	SLICE // Array Start End | Result = Array[Start:End] | Result (None for start/end means beginning/end)

	JMP    // | Jumps Unconditionally to Arg |
	JFALSE // A | Jumps to Arg if A is false |

	RETURN // A | Returns A up a stack frame |

	BUILD_LIST  // A B C | 3 | [A B C]
	BUILD_TUPLE // A B C | 3 | (A, B, C)
	BUILD_DICT  // [A B] [C D] | 2 | {A: B, C: D}, "@" keys go to the meta map
	BUILD_ARG   // A | name | ARG(name, A)

	ITER_START   // X IT | Pushes to iterator stack, arg is the end label |
	ITER_START_2 // X Y IT | Pushes to iterator stack, arg is the end label |
	ITER_NEXT    // Nexts the iteration
	ITER_END     // Pops the iterator stack prematurely, jumps to end label

	CALL        // A B C Fn | arg: 3, calls Fn with the top three args |
	CALL_METHOD // A B receiver methodName | arg: 2, calls receiver.methodName(A, B) |

	ASSERT // A | arg: source location | fails unless A is truthy

	LABEL
	OpcodeMax
)

var opcodeNames = [...]string{
	NOP:             "NOP",
	POP:             "POP",
	PUSH:            "PUSH",
	SETVAL:          "SETVAL",
	GETVAL:          "GETVAL",
	GETATTR:         "GETATTR",
	SETATTR:         "SETATTR",
	INDEX:           "INDEX",
	SETINDEX:        "SETINDEX",
	SWAP:            "SWAP",
	DUP:             "DUP",
	DUP2:            "DUP2",
	UNPACK:          "UNPACK",
	ADD:             "ADD",
	SUBTRACT:        "SUBTRACT",
	MULTIPLY:        "MULTIPLY",
	DIVIDE:          "DIVIDE",
	MODULO:          "MODULO",
	FLOOR_DIVIDE:    "FLOOR_DIVIDE",
	ADD_ASSIGN:      "ADD_ASSIGN",
	SUBTRACT_ASSIGN: "SUBTRACT_ASSIGN",
	MULTIPLY_ASSIGN: "MULTIPLY_ASSIGN",
	DIVIDE_ASSIGN:   "DIVIDE_ASSIGN",
	MODULO_ASSIGN:   "MODULO_ASSIGN",
	EQ:              "EQ",
	NEQ:             "NEQ",
	LT:              "LT",
	LTE:             "LTE",
	GT:              "GT",
	GTE:             "GTE",
	NOT:             "NOT",
	NEGATE:          "NEGATE",
	IN:              "IN",
	SLICE:           "SLICE",
	JMP:             "JMP",
	JFALSE:          "JFALSE",
	RETURN:          "RETURN",
	BUILD_LIST:      "BUILD_LIST",
	BUILD_TUPLE:     "BUILD_TUPLE",
	BUILD_DICT:      "BUILD_DICT",
	BUILD_ARG:       "BUILD_ARG",
	ITER_START:      "ITER_START",
	ITER_START_2:    "ITER_START_2",
	ITER_NEXT:       "ITER_NEXT",
	ITER_END:        "ITER_END",
	CALL:            "CALL",
	CALL_METHOD:     "CALL_METHOD",
	ASSERT:          "ASSERT",
	LABEL:           "LABEL",
}

func (o Opcode) String() string {
	if int(o) < len(opcodeNames) && opcodeNames[o] != "" {
		return opcodeNames[o]
	}
	panic("Unnamed opcode")
}

// OperatorKey maps an operator opcode to the meta key it dispatches on.
func (o Opcode) OperatorKey() (MetaKey, bool) {
	switch o {
	case ADD:
		return KeyOf(MetaAdd), true
	case SUBTRACT:
		return KeyOf(MetaSubtract), true
	case MULTIPLY:
		return KeyOf(MetaMultiply), true
	case DIVIDE:
		return KeyOf(MetaDivide), true
	case MODULO:
		return KeyOf(MetaRemainder), true
	case ADD_ASSIGN:
		return KeyOf(MetaAddAssign), true
	case SUBTRACT_ASSIGN:
		return KeyOf(MetaSubtractAssign), true
	case MULTIPLY_ASSIGN:
		return KeyOf(MetaMultiplyAssign), true
	case DIVIDE_ASSIGN:
		return KeyOf(MetaDivideAssign), true
	case MODULO_ASSIGN:
		return KeyOf(MetaRemainderAssign), true
	case EQ:
		return KeyOf(MetaEqual), true
	case NEQ:
		return KeyOf(MetaNotEqual), true
	case LT:
		return KeyOf(MetaLess), true
	case LTE:
		return KeyOf(MetaLessOrEqual), true
	case GT:
		return KeyOf(MetaGreater), true
	case GTE:
		return KeyOf(MetaGreaterOrEqual), true
	case NOT:
		return KeyOf(MetaNot), true
	case NEGATE:
		return KeyOf(MetaNegate), true
	case INDEX:
		return KeyOf(MetaIndex), true
	}
	return MetaKey{}, false
}

// BinaryOf maps a compound assignment opcode to the plain operator used
// when no assignment entry exists.
func (o Opcode) BinaryOf() (Opcode, bool) {
	switch o {
	case ADD_ASSIGN:
		return ADD, true
	case SUBTRACT_ASSIGN:
		return SUBTRACT, true
	case MULTIPLY_ASSIGN:
		return MULTIPLY, true
	case DIVIDE_ASSIGN:
		return DIVIDE, true
	case MODULO_ASSIGN:
		return MODULO, true
	}
	return o, false
}

// Symbol is the source spelling used in error messages.
func (o Opcode) Symbol() string {
	if k, ok := o.OperatorKey(); ok {
		switch k.ID {
		case MetaNegate:
			return "-"
		case MetaNot:
			return "not"
		}
		return k.Symbol()
	}
	switch o {
	case FLOOR_DIVIDE:
		return "//"
	case IN:
		return "in"
	}
	return o.String()
}
