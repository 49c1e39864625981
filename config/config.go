// Package config loads the runtime configuration of the koto CLI.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

type Config struct {
	Runtime RuntimeConfig `toml:"runtime"`
	Log     LogConfig     `toml:"log"`
	Prelude PreludeConfig `toml:"prelude"`
}

type RuntimeConfig struct {
	// MaxSteps is the instruction budget of a run, 0 for unlimited.
	MaxSteps     int `toml:"max_steps"`
	MaxCallDepth int `toml:"max_call_depth"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type PreludeConfig struct {
	// Modules are host modules bound as globals before a script runs.
	Modules []string `toml:"modules"`
	// Scripts run before the main script, in order. Relative paths are
	// resolved against the directory of the config file.
	Scripts []string `toml:"scripts,omitempty"`
}

func Default() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			MaxCallDepth: 256,
		},
		Log: LogConfig{
			Level: "info",
		},
		Prelude: PreludeConfig{
			Modules: []string{"color"},
		},
	}
}

// Parse decodes a config on top of the defaults.
func Parse(r io.Reader) (*Config, error) {
	out := Default()
	md, err := toml.NewDecoder(r).Decode(out)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("unknown config key %s", undecoded[0])
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i, s := range c.Prelude.Scripts {
		if !filepath.IsAbs(s) {
			c.Prelude.Scripts[i] = filepath.Clean(filepath.Join(dir, s))
		}
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Runtime.MaxSteps < 0 {
		return fmt.Errorf("runtime.max_steps must not be negative, got %d", c.Runtime.MaxSteps)
	}
	if c.Runtime.MaxCallDepth < 0 {
		return fmt.Errorf("runtime.max_call_depth must not be negative, got %d", c.Runtime.MaxCallDepth)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses the configured level name. An empty name means info.
func (c *Config) LogLevel() (zerolog.Level, error) {
	if c.Log.Level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}
