package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jasal82/koto/vm"
)

var runCmd = &cobra.Command{
	Use:   "run FILE",
	Short: "Run a script",
	Args:  cobra.ExactArgs(1),
	Run:   runCommand,
}

var printResult bool

func init() {
	runCmd.Flags().BoolVar(&printResult, "print-result", false, "Print the value the script returns")
}

func runCommand(cmd *cobra.Command, args []string) {
	m, v, err := loadScript(args[0])
	if err != nil {
		log.Fatal().Err(err).Msg("Script failed")
	}
	log.Debug().Int("steps", m.Steps()).Msg("Script finished")
	if printResult {
		if _, ok := v.(vm.NoneValue); ok {
			return
		}
		s, err := m.Display(v)
		if err != nil {
			log.Fatal().Err(err).Msg("Couldn't display result")
		}
		fmt.Fprintln(os.Stdout, s)
	}
}
