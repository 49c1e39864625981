package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DisplayHook lets the interpreter render a value itself, e.g. through a
// @display meta entry. It reports false to fall back to structural
// rendering.
type DisplayHook func(v Value) (string, bool, error)

// FormatValue renders v structurally, without consulting any meta map.
func FormatValue(v Value) string {
	s, _ := Render(v, nil)
	return s
}

// Render renders v at top level: strings are returned unquoted.
func Render(v Value, hook DisplayHook) (string, error) {
	if s, ok := v.(StrValue); ok {
		return string(s), nil
	}
	var b strings.Builder
	err := render(&b, v, hook, true, 0)
	return b.String(), err
}

func render(b *strings.Builder, v Value, hook DisplayHook, top bool, depth int) error {
	if depth > MaxNestingDepth {
		b.WriteString("...")
		return fmt.Errorf("%w: can't display %s deeper than %d levels", ErrNestingTooDeep, KindName(v), MaxNestingDepth)
	}
	if hook != nil {
		s, ok, err := hook(v)
		if err != nil {
			return err
		}
		if ok {
			b.WriteString(s)
			return nil
		}
	}
	switch val := v.(type) {
	case IntValue:
		b.WriteString(strconv.Itoa(int(val)))
	case FloatValue:
		b.WriteString(formatFloat(float64(val)))
	case BoolValue:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case StrValue:
		if top {
			b.WriteString(string(val))
		} else {
			b.WriteString(strconv.Quote(string(val)))
		}
	case NoneValue:
		b.WriteString("null")
	case FnPtrValue:
		fmt.Fprintf(b, "<function@0x%x>", uint64(val))
	case BuiltinValue:
		fmt.Fprintf(b, "<builtin:%s>", val.Name)
	case *NativeValue:
		fmt.Fprintf(b, "<native:%s>", val.Name)
	case *IteratorValue:
		b.WriteString("<iterator>")
	case *ListValue:
		return renderSeq(b, "[", "]", val.Items, hook, depth)
	case TupleValue:
		if len(val) == 1 {
			return renderSeq(b, "(", ",)", val, hook, depth)
		}
		return renderSeq(b, "(", ")", val, hook, depth)
	case *MapValue:
		b.WriteString("{")
		i := 0
		var err error
		val.Each(func(k string, elem Value) bool {
			if i > 0 {
				b.WriteString(", ")
			}
			i++
			b.WriteString(k)
			b.WriteString(": ")
			err = render(b, elem, hook, false, depth+1)
			return err == nil
		})
		if err != nil {
			return err
		}
		b.WriteString("}")
	case ArgValue:
		if val.Key != "" {
			b.WriteString(val.Key)
			b.WriteString("=")
		}
		return render(b, val.Value, hook, false, depth)
	default:
		fmt.Fprintf(b, "<%T>", v)
	}
	return nil
}

func renderSeq(b *strings.Builder, open, close string, items []Value, hook DisplayHook, depth int) error {
	b.WriteString(open)
	for i, elem := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := render(b, elem, hook, false, depth+1); err != nil {
			return err
		}
	}
	b.WriteString(close)
	return nil
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
