package main

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jasal82/koto/interp"
	"github.com/jasal82/koto/vm"
)

var traceCmd = &cobra.Command{
	Use:   "trace FILE",
	Short: "Run a script, printing every instruction with the frame it runs in",
	Args:  cobra.ExactArgs(1),
	Run:   traceCommand,
}

func traceCommand(cmd *cobra.Command, args []string) {
	p, err := vm.CompilePath(args[0])
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't compile")
	}
	m, err := newMachine()
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't start machine")
	}
	m.Trace = func(frames interp.StackFrames) {
		fmt.Println(color.Gray.Sprint("*******"))
		prettyPrint(m.Program, len(frames), frames.CurrentStack())
	}
	if _, err := m.Load(p); err != nil {
		log.Fatal().Err(err).Msg("Script failed")
	}
	fmt.Fprintln(os.Stdout, color.Green.Sprintf("Finished after %d steps", m.Steps()))
}

func prettyPrint(prog *vm.Program, depth int, f *interp.StackFrame) {
	fmt.Printf("Depth: %d PC: %s\n", depth, f.PC)
	fmt.Printf("Stack: %s\n", vm.FormatValue(vm.TupleValue(f.Stack)))
	fmt.Printf("Variables:\n%s", f.PrettyPrint())
	inst, err := prog.GetInstruction(f.PC)
	if err != nil {
		fmt.Println("End of instructions")
	} else {
		fmt.Printf("NextOp: %s\n", color.Cyan.Sprint(inst))
	}
}
