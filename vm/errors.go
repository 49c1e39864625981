package vm

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrUnknownAttribute    = errors.New("unknown attribute")
	ErrMetaMapAbsent       = errors.New("meta map absent")
	ErrMetaMapShared       = errors.New("meta map is shared")
	ErrAssertionFailed     = errors.New("assertion failed")
	ErrStepBudgetExceeded  = errors.New("step budget exceeded")
	ErrCallDepthExceeded   = errors.New("call depth exceeded")
	ErrNestingTooDeep      = errors.New("values nested too deeply")
)

// MaxNestingDepth bounds recursion over nested values in structural
// equality and display, so a value that contains itself fails.
const MaxNestingDepth = 128

// OperatorError reports an operator that has neither a meta entry nor a
// built-in implementation for the operand.
type OperatorError struct {
	Op       string
	TypeName string
	Detail   string
}

func (e *OperatorError) Error() string {
	msg := fmt.Sprintf("unsupported operator '%s' for %s", e.Op, e.TypeName)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *OperatorError) Unwrap() error {
	return ErrUnsupportedOperator
}

// AttributeError reports an attribute found neither in a map's data nor
// in its meta map.
type AttributeError struct {
	Name     string
	TypeName string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("unknown attribute '%s' on %s", e.Name, e.TypeName)
}

func (e *AttributeError) Unwrap() error {
	return ErrUnknownAttribute
}
