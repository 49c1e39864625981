package main

import (
	"github.com/rs/zerolog/log"

	"github.com/jasal82/koto/interp"
	"github.com/jasal82/koto/lib"
	"github.com/jasal82/koto/vm"
)

// newMachine builds a machine with the configured limits, host modules and
// prelude scripts loaded.
func newMachine() (*interp.Machine, error) {
	m := interp.NewMachine(nil)
	m.MaxSteps = cfg.Runtime.MaxSteps
	m.MaxCallDepth = cfg.Runtime.MaxCallDepth
	if err := lib.Install(m, cfg.Prelude.Modules); err != nil {
		return nil, err
	}
	for _, path := range cfg.Prelude.Scripts {
		p, err := vm.CompilePath(path)
		if err != nil {
			return nil, err
		}
		if _, err := m.Load(p); err != nil {
			return nil, err
		}
		log.Debug().Str("script", path).Msg("Loaded prelude")
	}
	return m, nil
}

// loadScript compiles path and runs it on a fresh machine.
func loadScript(path string) (*interp.Machine, vm.Value, error) {
	p, err := vm.CompilePath(path)
	if err != nil {
		return nil, nil, err
	}
	m, err := newMachine()
	if err != nil {
		return nil, nil, err
	}
	v, err := m.Load(p)
	return m, v, err
}
