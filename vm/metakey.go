package vm

import (
	"fmt"
	"strings"
)

type MetaKeyID int

const (
	MetaAdd MetaKeyID = iota
	MetaSubtract
	MetaMultiply
	MetaDivide
	MetaRemainder
	MetaAddAssign
	MetaSubtractAssign
	MetaMultiplyAssign
	MetaDivideAssign
	MetaRemainderAssign
	MetaLess
	MetaLessOrEqual
	MetaGreater
	MetaGreaterOrEqual
	MetaEqual
	MetaNotEqual
	MetaNegate
	MetaNot
	MetaCall
	MetaIndex
	MetaIterator
	MetaNext
	MetaNextBack
	MetaDisplay
	MetaType
	MetaBase
	MetaPreTest
	MetaPostTest
	MetaTest  // carries a test name
	MetaNamed // carries an attribute name
)

var metaKeySpelling = map[MetaKeyID]string{
	MetaAdd:             "+",
	MetaSubtract:        "-",
	MetaMultiply:        "*",
	MetaDivide:          "/",
	MetaRemainder:       "%",
	MetaAddAssign:       "+=",
	MetaSubtractAssign:  "-=",
	MetaMultiplyAssign:  "*=",
	MetaDivideAssign:    "/=",
	MetaRemainderAssign: "%=",
	MetaLess:            "<",
	MetaLessOrEqual:     "<=",
	MetaGreater:         ">",
	MetaGreaterOrEqual:  ">=",
	MetaEqual:           "==",
	MetaNotEqual:        "!=",
	MetaNegate:          "negate",
	MetaNot:             "not",
	MetaCall:            "()",
	MetaIndex:           "[]",
	MetaIterator:        "iterator",
	MetaNext:            "next",
	MetaNextBack:        "next_back",
	MetaDisplay:         "display",
	MetaType:            "type",
	MetaBase:            "base",
	MetaPreTest:         "pre_test",
	MetaPostTest:        "post_test",
}

var metaKeyBySpelling = func() map[string]MetaKeyID {
	out := make(map[string]MetaKeyID, len(metaKeySpelling))
	for id, s := range metaKeySpelling {
		out[s] = id
	}
	return out
}()

// MetaKey identifies an entry of a meta map. Name is only set for
// MetaNamed and MetaTest keys.
type MetaKey struct {
	ID   MetaKeyID
	Name string
}

func KeyOf(id MetaKeyID) MetaKey {
	return MetaKey{ID: id}
}

func NamedKey(name string) MetaKey {
	return MetaKey{ID: MetaNamed, Name: name}
}

func TestKey(name string) MetaKey {
	return MetaKey{ID: MetaTest, Name: name}
}

// Symbol is the operator or name the key is spelled with, without the
// leading '@'.
func (k MetaKey) Symbol() string {
	switch k.ID {
	case MetaNamed:
		return k.Name
	case MetaTest:
		return "test " + k.Name
	}
	return metaKeySpelling[k.ID]
}

func (k MetaKey) String() string {
	if k.ID == MetaNamed {
		return "@meta " + k.Name
	}
	return "@" + k.Symbol()
}

// IsMetaKey reports whether a dict literal key belongs to the meta
// namespace.
func IsMetaKey(s string) bool {
	return strings.HasPrefix(s, "@")
}

// ParseMetaKey parses the script spelling of a meta key, e.g. "@+",
// "@display", "@meta greet" or "@test addition".
func ParseMetaKey(s string) (MetaKey, error) {
	if !IsMetaKey(s) {
		return MetaKey{}, fmt.Errorf("meta key %q must start with '@'", s)
	}
	body := strings.TrimSpace(s[1:])
	if name, ok := strings.CutPrefix(body, "meta "); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			return MetaKey{}, fmt.Errorf("meta key %q is missing a name", s)
		}
		return NamedKey(name), nil
	}
	if name, ok := strings.CutPrefix(body, "test "); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			return MetaKey{}, fmt.Errorf("meta key %q is missing a test name", s)
		}
		return TestKey(name), nil
	}
	if id, ok := metaKeyBySpelling[body]; ok {
		return KeyOf(id), nil
	}
	return MetaKey{}, fmt.Errorf("unknown meta key %q", s)
}
