package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jasal82/koto/config"
)

var (
	logLevel   string
	configPath string

	cfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "koto",
	Short: "Run scripts with meta map operator dispatch",
	Long:  "koto runs scripts whose maps gain operators, iteration, display and tests through shared meta maps.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

		if configPath != "" {
			c, err := config.LoadFromFile(configPath)
			if err != nil {
				log.Fatal().Err(err).Msg("Couldn't load config")
			}
			cfg = c
		}
		level, err := cfg.LogLevel()
		if cmd.Flags().Changed("log-level") || configPath == "" {
			level, err = zerolog.ParseLevel(logLevel)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid log level '%s', using 'info'\n", logLevel)
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Set log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML config file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(disasmCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
