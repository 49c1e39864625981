package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jasal82/koto/vm"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm FILE",
	Short: "Print the compiled bytecode of a script",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p, err := vm.CompilePath(args[0])
		if err != nil {
			log.Fatal().Err(err).Msg("Couldn't compile")
		}
		p.Disassemble(os.Stdout)
	},
}
