// Package color is a host module for working with colors. Colors are maps
// with r, g, b and a fields in the range 0-1, all stamped with one shared
// meta map.
package color

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/jasal82/koto/vm"
)

const TypeName = "Color"

// colorMeta is shared by every color value.
var colorMeta *vm.MetaMap

func init() {
	colorMeta = buildColorMeta()
}

var namedColors = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"green":   "#008000",
	"lime":    "#00ff00",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"cyan":    "#00ffff",
	"magenta": "#ff00ff",
	"gray":    "#808080",
	"orange":  "#ffa500",
	"purple":  "#800080",
	"pink":    "#ffc0cb",
	"brown":   "#a52a2a",
	"navy":    "#000080",
	"teal":    "#008080",
}

// Module returns the color module map. The module can also be called:
// color("red"), color(r, g, b) and color(r, g, b, a).
func Module() *vm.MapValue {
	mod := vm.NewMap()
	mod.Set("rgb", vm.NewNative("color.rgb", rgbFn))
	mod.Set("rgba", vm.NewNative("color.rgba", rgbaFn))
	mod.Set("hsl", vm.NewNative("color.hsl", hslFn))
	mod.Set("hsv", vm.NewNative("color.hsv", hsvFn))
	mod.Set("hex", vm.NewNative("color.hex", hexFn))
	mod.Set("named", vm.NewNative("color.named", namedFn))

	meta := mod.MetaMut()
	mustInsert(meta, vm.KeyOf(vm.MetaType), vm.StrValue("color"))
	mustInsert(meta, vm.KeyOf(vm.MetaCall), vm.NewNative("color.@()", func(c vm.Caller, args []vm.Value) (vm.Value, error) {
		// args[0] is the module itself
		args = args[1:]
		switch len(args) {
		case 1:
			return namedFn(c, args)
		case 3:
			return rgbFn(c, args)
		case 4:
			return rgbaFn(c, args)
		}
		return nil, fmt.Errorf("color() expects a String, 3 Numbers or 4 Numbers, got %d arguments", len(args))
	}))
	return mod
}

// New returns a color value.
func New(c colorful.Color, alpha float64) *vm.MapValue {
	m := vm.NewMapWithMeta(colorMeta)
	m.Set("r", vm.FloatValue(c.R))
	m.Set("g", vm.FloatValue(c.G))
	m.Set("b", vm.FloatValue(c.B))
	m.Set("a", vm.FloatValue(alpha))
	return m
}

// FromValue reads a color back out of a script value.
func FromValue(v vm.Value) (colorful.Color, float64, error) {
	m, ok := v.(*vm.MapValue)
	if !ok || m.Meta() != colorMeta {
		return colorful.Color{}, 0, fmt.Errorf("expected a %s, got %s", TypeName, vm.KindName(v))
	}
	var ch [4]float64
	for i, k := range []string{"r", "g", "b", "a"} {
		f, err := channel(m, k)
		if err != nil {
			return colorful.Color{}, 0, err
		}
		ch[i] = f
	}
	return colorful.Color{R: ch[0], G: ch[1], B: ch[2]}, ch[3], nil
}

func channel(m *vm.MapValue, k string) (float64, error) {
	v, ok := m.Get(k)
	if !ok {
		return 0, fmt.Errorf("color is missing channel '%s'", k)
	}
	return number(v)
}

func number(v vm.Value) (float64, error) {
	switch n := v.(type) {
	case vm.IntValue:
		return float64(n), nil
	case vm.FloatValue:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected a Number, got %s", vm.KindName(v))
}

func numbers(name string, args []vm.Value, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s expects %d Numbers, got %d arguments", name, n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := number(a)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[i] = f
	}
	return out, nil
}

func rgbFn(_ vm.Caller, args []vm.Value) (vm.Value, error) {
	ch, err := numbers("rgb", args, 3)
	if err != nil {
		return nil, err
	}
	return New(colorful.Color{R: ch[0], G: ch[1], B: ch[2]}, 1), nil
}

func rgbaFn(_ vm.Caller, args []vm.Value) (vm.Value, error) {
	ch, err := numbers("rgba", args, 4)
	if err != nil {
		return nil, err
	}
	return New(colorful.Color{R: ch[0], G: ch[1], B: ch[2]}, ch[3]), nil
}

// hslFn takes the hue in degrees.
func hslFn(_ vm.Caller, args []vm.Value) (vm.Value, error) {
	ch, err := numbers("hsl", args, 3)
	if err != nil {
		return nil, err
	}
	return New(colorful.Hsl(ch[0], ch[1], ch[2]), 1), nil
}

func hsvFn(_ vm.Caller, args []vm.Value) (vm.Value, error) {
	ch, err := numbers("hsv", args, 3)
	if err != nil {
		return nil, err
	}
	return New(colorful.Hsv(ch[0], ch[1], ch[2]), 1), nil
}

func hexFn(_ vm.Caller, args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("hex expects a String, got %d arguments", len(args))
	}
	s, ok := args[0].(vm.StrValue)
	if !ok {
		return nil, fmt.Errorf("hex expects a String, got %s", vm.KindName(args[0]))
	}
	c, err := colorful.Hex(string(s))
	if err != nil {
		return nil, err
	}
	return New(c, 1), nil
}

// namedFn returns None for unknown names.
func namedFn(_ vm.Caller, args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("named expects a String, got %d arguments", len(args))
	}
	s, ok := args[0].(vm.StrValue)
	if !ok {
		return nil, fmt.Errorf("named expects a String, got %s", vm.KindName(args[0]))
	}
	hex, ok := namedColors[strings.ToLower(string(s))]
	if !ok {
		return vm.None, nil
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, err
	}
	return New(c, 1), nil
}

func mustInsert(meta *vm.MetaMap, key vm.MetaKey, v vm.Value) {
	if err := meta.Insert(key, v); err != nil {
		panic(err)
	}
}
