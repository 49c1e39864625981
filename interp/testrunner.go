package interp

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jasal82/koto/vm"
)

type TestResult struct {
	Name string
	Err  error
}

func (r TestResult) Passed() bool {
	return r.Err == nil
}

// HasTests reports whether v carries any "@test name" entries.
func HasTests(v vm.Value) bool {
	mv, ok := v.(*vm.MapValue)
	if !ok || !mv.HasMeta() {
		return false
	}
	found := false
	mv.Meta().Each(func(k vm.MetaKey, _ vm.Value) bool {
		found = k.ID == vm.MetaTest
		return !found
	})
	return found
}

// RunTests calls every "@test name" entry of tests in definition order,
// each with tests as self. @pre_test and @post_test run around every
// test. A failing test doesn't stop the others.
func (m *Machine) RunTests(tests *vm.MapValue) []TestResult {
	if !tests.HasMeta() {
		return nil
	}
	pre, hasPre := m.lookupMeta(tests, vm.KeyOf(vm.MetaPreTest))
	post, hasPost := m.lookupMeta(tests, vm.KeyOf(vm.MetaPostTest))
	var results []TestResult
	tests.Meta().Each(func(key vm.MetaKey, fn vm.Value) bool {
		if key.ID != vm.MetaTest {
			return true
		}
		res := TestResult{Name: key.Name}
		if hasPre {
			_, res.Err = m.dispatch(vm.KeyOf(vm.MetaPreTest), pre, tests)
		}
		if res.Err == nil {
			_, res.Err = m.dispatch(key, fn, tests)
		}
		if hasPost {
			if _, err := m.dispatch(vm.KeyOf(vm.MetaPostTest), post, tests); err != nil && res.Err == nil {
				res.Err = err
			}
		}
		log.Debug().Str("test", key.Name).Bool("passed", res.Passed()).Msg("RunTests")
		results = append(results, res)
		return true
	})
	return results
}

// builtinRunTests runs the tests of a map and fails with the first
// failing test.
func builtinRunTests(m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount("run_tests", args, 1); err != nil {
		return nil, err
	}
	tests, ok := args[0].(*vm.MapValue)
	if !ok {
		return nil, fmt.Errorf("run_tests() argument must be a map, got %s", m.reportedType(args[0]))
	}
	for _, r := range m.RunTests(tests) {
		if r.Err != nil {
			return nil, fmt.Errorf("test '%s' failed: %w", r.Name, r.Err)
		}
	}
	return vm.None, nil
}
