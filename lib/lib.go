// Package lib registers the host modules that can be bound into a
// machine's globals.
package lib

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/jasal82/koto/interp"
	"github.com/jasal82/koto/lib/color"
	"github.com/jasal82/koto/vm"
)

var Modules = map[string]func() *vm.MapValue{
	"color": color.Module,
}

func Names() []string {
	out := make([]string, 0, len(Modules))
	for k := range Modules {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Install binds each named module as a global of the same name.
func Install(m *interp.Machine, names []string) error {
	for _, name := range names {
		mod, ok := Modules[name]
		if !ok {
			return fmt.Errorf("unknown module '%s', have %v", name, Names())
		}
		m.SetGlobal(name, mod())
		log.Debug().Str("module", name).Msg("Install")
	}
	return nil
}
