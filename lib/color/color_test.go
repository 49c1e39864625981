package color

import (
	"bytes"
	"os"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasal82/koto/interp"
	"github.com/jasal82/koto/vm"
)

func TestColorScript(t *testing.T) {
	f, err := os.Open("testdata/color.star")
	require.NoError(t, err)
	defer f.Close()
	p, err := vm.LoadFile("color.star", f)
	require.NoError(t, err)
	m := interp.NewMachine(p)
	m.Out = &bytes.Buffer{}
	m.SetGlobal("color", Module())
	_, err = m.Run()
	require.NoError(t, err)
}

func TestColorsShareMeta(t *testing.T) {
	a := New(colorful.Color{R: 1}, 1)
	b := New(colorful.Color{G: 1}, 1)
	assert.Same(t, a.Meta(), b.Meta())
	assert.True(t, a.Meta().Shared())
	assert.ErrorIs(t, a.Meta().Insert(vm.NamedKey("x"), vm.None), vm.ErrMetaMapShared)
}

func TestFromValue(t *testing.T) {
	c, alpha, err := FromValue(New(colorful.Color{R: 0.25, G: 0.5, B: 1}, 0.75))
	require.NoError(t, err)
	assert.Equal(t, colorful.Color{R: 0.25, G: 0.5, B: 1}, c)
	assert.Equal(t, 0.75, alpha)

	_, _, err = FromValue(vm.NewMap())
	assert.Error(t, err)
	_, _, err = FromValue(vm.IntValue(1))
	assert.Error(t, err)
}

func TestConstructors(t *testing.T) {
	m := interp.NewMachine(nil)
	mod := Module()

	v, err := m.Call(mod, vm.IntValue(0), vm.IntValue(1), vm.IntValue(0))
	require.NoError(t, err)
	c, _, err := FromValue(v)
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", c.Hex())

	hsl, _ := mod.Get("hsl")
	v, err = m.Call(hsl, vm.IntValue(240), vm.IntValue(1), vm.FloatValue(0.5))
	require.NoError(t, err)
	c, _, err = FromValue(v)
	require.NoError(t, err)
	assert.Equal(t, "#0000ff", c.Hex())

	hex, _ := mod.Get("hex")
	v, err = m.Call(hex, vm.StrValue("#336699"))
	require.NoError(t, err)
	s, err := m.Display(v)
	require.NoError(t, err)
	assert.Equal(t, "Color(r: 0.2, g: 0.4, b: 0.6, a: 1.0)", s)

	_, err = m.Call(hex, vm.StrValue("nope"))
	assert.Error(t, err)
	_, err = m.Call(mod, vm.IntValue(1), vm.IntValue(2))
	assert.ErrorContains(t, err, "got 2 arguments")

	name, err := m.TypeName(mod)
	require.NoError(t, err)
	assert.Equal(t, "color", name)
}
