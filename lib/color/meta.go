package color

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/jasal82/koto/vm"
)

func buildColorMeta() *vm.MetaMap {
	meta := vm.NewMetaMap()
	mustInsert(meta, vm.KeyOf(vm.MetaType), vm.StrValue(TypeName))
	mustInsert(meta, vm.KeyOf(vm.MetaDisplay), method("@display", 0, display))
	mustInsert(meta, vm.KeyOf(vm.MetaAdd), method("@+", 1, add))
	mustInsert(meta, vm.KeyOf(vm.MetaMultiply), method("@*", 1, multiply))
	mustInsert(meta, vm.KeyOf(vm.MetaEqual), method("@==", 1, equal))
	mustInsert(meta, vm.NamedKey("hex"), method("hex", 0, hex))
	mustInsert(meta, vm.NamedKey("mix"), method("mix", 2, mix))
	return meta
}

// method adapts a color operation to a meta entry taking self plus n
// arguments.
func method(name string, n int, fn func(c colorful.Color, alpha float64, args []vm.Value) (vm.Value, error)) *vm.NativeValue {
	return vm.NewNative("color."+name, func(_ vm.Caller, args []vm.Value) (vm.Value, error) {
		if len(args) != n+1 {
			return nil, fmt.Errorf("%s expects %d argument(s), got %d", name, n, len(args)-1)
		}
		c, alpha, err := FromValue(args[0])
		if err != nil {
			return nil, err
		}
		return fn(c, alpha, args[1:])
	})
}

func display(c colorful.Color, alpha float64, _ []vm.Value) (vm.Value, error) {
	return vm.StrValue(fmt.Sprintf("Color(r: %s, g: %s, b: %s, a: %s)",
		channelString(c.R), channelString(c.G), channelString(c.B), channelString(alpha))), nil
}

func channelString(f float64) string {
	return vm.FormatValue(vm.FloatValue(math.Round(f*1000) / 1000))
}

func add(c colorful.Color, alpha float64, args []vm.Value) (vm.Value, error) {
	o, oa, err := FromValue(args[0])
	if err != nil {
		return nil, err
	}
	return New(colorful.Color{R: c.R + o.R, G: c.G + o.G, B: c.B + o.B}, math.Min(1, alpha+oa)), nil
}

// multiply scales the color channels by a Number, or by another color
// channel-wise.
func multiply(c colorful.Color, alpha float64, args []vm.Value) (vm.Value, error) {
	if f, err := number(args[0]); err == nil {
		return New(colorful.Color{R: c.R * f, G: c.G * f, B: c.B * f}, alpha), nil
	}
	o, oa, err := FromValue(args[0])
	if err != nil {
		return nil, err
	}
	return New(colorful.Color{R: c.R * o.R, G: c.G * o.G, B: c.B * o.B}, alpha*oa), nil
}

func equal(c colorful.Color, alpha float64, args []vm.Value) (vm.Value, error) {
	o, oa, err := FromValue(args[0])
	if err != nil {
		return vm.BoolFalse, nil
	}
	return vm.BoolValue(c.AlmostEqualRgb(o) && math.Abs(alpha-oa) < 1.0/255), nil
}

func hex(c colorful.Color, _ float64, _ []vm.Value) (vm.Value, error) {
	return vm.StrValue(c.Clamped().Hex()), nil
}

// mix blends towards another color in Lab space; t is the blend amount.
func mix(c colorful.Color, alpha float64, args []vm.Value) (vm.Value, error) {
	o, oa, err := FromValue(args[0])
	if err != nil {
		return nil, err
	}
	t, err := number(args[1])
	if err != nil {
		return nil, err
	}
	return New(c.BlendLab(o, t).Clamped(), alpha+(oa-alpha)*t), nil
}
