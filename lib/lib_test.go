package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasal82/koto/interp"
	"github.com/jasal82/koto/vm"
)

func TestInstall(t *testing.T) {
	m := interp.NewMachine(nil)
	require.NoError(t, Install(m, []string{"color"}))
	v, ok := m.Global("color")
	require.True(t, ok)
	_, isMap := v.(*vm.MapValue)
	assert.True(t, isMap)

	res, err := m.Eval(`color("red").hex()`)
	require.NoError(t, err)
	assert.Equal(t, vm.StrValue("#ff0000"), res)
}

func TestInstallUnknown(t *testing.T) {
	m := interp.NewMachine(nil)
	err := Install(m, []string{"nope"})
	assert.ErrorContains(t, err, "unknown module 'nope'")
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"color"}, Names())
}
