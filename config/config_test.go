package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 0, c.Runtime.MaxSteps)
	assert.Equal(t, 256, c.Runtime.MaxCallDepth)
	assert.Equal(t, []string{"color"}, c.Prelude.Modules)
	lvl, err := c.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse(strings.NewReader(`
[runtime]
max_steps = 1000

[log]
level = "debug"
`))
	require.NoError(t, err)
	assert.Equal(t, 1000, c.Runtime.MaxSteps)
	assert.Equal(t, 256, c.Runtime.MaxCallDepth)
	assert.Equal(t, []string{"color"}, c.Prelude.Modules)
	lvl, err := c.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":    "[runtime]\nmax_stepz = 1\n",
		"negative steps": "[runtime]\nmax_steps = -1\n",
		"bad level":      "[log]\nlevel = \"loud\"\n",
		"bad toml":       "[runtime\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(src))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFileResolvesScripts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "koto.toml")
	abs := filepath.Join(dir, "abs.star")
	src := "[prelude]\nmodules = []\nscripts = [\"lib/prelude.star\", \"" + filepath.ToSlash(abs) + "\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, c.Prelude.Modules)
	assert.Equal(t, []string{filepath.Join(dir, "lib", "prelude.star"), abs}, c.Prelude.Scripts)

	_, err = LoadFromFile(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}
