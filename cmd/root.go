package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	debug  bool
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "sightreader",
	Short: "Follows your place in a score as you play",
	Long: `Listens to a MIDI keyboard, tracks the performer through a loaded score,
and forwards what is played to output instruments.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger(debug)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging (adds source location)")
}

// initLogger configures the shared logger and makes it the slog default.
func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
