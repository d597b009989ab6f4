package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/mklimuk/chargemon/cmd/dev/cmd"
)

var debug bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "dev",
		Short: "build and test tool for chargemon",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			charm := log.NewWithOptions(os.Stdout, log.Options{
				ReportTimestamp: true,
				TimeFormat:      time.DateTime,
				Prefix:          "chargemon",
			})
			charm.SetColorProfile(termenv.TrueColor)
			charm.SetLevel(log.InfoLevel)
			if debug {
				charm.SetLevel(log.DebugLevel)
			}
			slog.SetDefault(slog.New(charm))
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(cmd.BuildCmd())
	rootCmd.AddCommand(cmd.TestCmd())
	rootCmd.AddCommand(cmd.LintCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("unexpected error", "error", err)
		os.Exit(1)
	}
}
