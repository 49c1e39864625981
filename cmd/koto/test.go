package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jasal82/koto/interp"
	"github.com/jasal82/koto/vm"
)

var testCmd = &cobra.Command{
	Use:   "test FILE",
	Short: "Run the @test entries of every global map a script defines",
	Args:  cobra.ExactArgs(1),
	Run:   testCommand,
}

func testCommand(cmd *cobra.Command, args []string) {
	m, _, err := loadScript(args[0])
	if err != nil {
		log.Fatal().Err(err).Msg("Script failed")
	}
	names := make([]string, 0, len(m.Globals.Variables))
	for k, v := range m.Globals.Variables {
		if interp.HasTests(v) {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, color.Yellow.Sprint("No tests found"))
		return
	}
	failed := 0
	total := 0
	for _, name := range names {
		v, _ := m.Global(name)
		for _, r := range m.RunTests(v.(*vm.MapValue)) {
			total++
			if r.Passed() {
				fmt.Fprintf(os.Stderr, "%s %s.%s\n", color.Green.Sprint("PASS"), name, r.Name)
				continue
			}
			failed++
			fmt.Fprintf(os.Stderr, "%s %s.%s: %s\n", color.Red.Sprint("FAIL"), name, r.Name, r.Err)
		}
	}
	fmt.Fprintln(os.Stderr)
	if failed != 0 {
		fmt.Fprintln(os.Stderr, color.Red.Sprintf("%d of %d tests failed", failed, total))
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, color.Green.Sprintf("All %d tests passed", total))
}
