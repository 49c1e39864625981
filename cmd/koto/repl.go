package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gookit/color"
	"github.com/peterh/liner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jasal82/koto/interp"
	"github.com/jasal82/koto/vm"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	Args:  cobra.NoArgs,
	Run:   replCommand,
}

var historyFile string

func init() {
	home, _ := os.UserHomeDir()
	replCmd.Flags().StringVar(&historyFile, "history", filepath.Join(home, ".koto_history"), "History file, empty to disable")
}

func replCommand(cmd *cobra.Command, args []string) {
	m, err := newMachine()
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't start machine")
	}
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		return complete(m, prefix)
	})
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	for {
		src, err := line.Prompt("» ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				break
			}
			log.Error().Err(err).Msg("Couldn't read input")
			break
		}
		// A trailing ':' opens a block that ends at the first empty line
		if strings.HasSuffix(strings.TrimSpace(src), ":") {
			src = readBlock(line, src)
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		line.AppendHistory(src)
		v, err := m.Eval(src)
		if err != nil {
			fmt.Fprintln(os.Stderr, color.Red.Sprint(err))
			continue
		}
		if _, ok := v.(vm.NoneValue); ok {
			continue
		}
		s, err := m.Display(v)
		if err != nil {
			fmt.Fprintln(os.Stderr, color.Red.Sprint(err))
			continue
		}
		fmt.Println(s)
	}

	if historyFile != "" {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}
}

func readBlock(line *liner.State, first string) string {
	lines := []string{first}
	for {
		next, err := line.Prompt("… ")
		if err != nil || strings.TrimSpace(next) == "" {
			break
		}
		lines = append(lines, next)
	}
	return strings.Join(lines, "\n") + "\n"
}

// complete offers globals and builtins starting with the last word of
// the input.
func complete(m *interp.Machine, input string) []string {
	i := strings.LastIndexAny(input, " ([{,=+-*/%")
	head, word := input[:i+1], input[i+1:]
	var out []string
	for k := range m.Globals.Variables {
		if strings.HasPrefix(k, word) {
			out = append(out, head+k)
		}
	}
	for _, k := range interp.BuiltinNames() {
		if strings.HasPrefix(k, word) {
			out = append(out, head+k)
		}
	}
	sort.Strings(out)
	return out
}
