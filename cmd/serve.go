package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jsphweid/sightreader/constants"
	"github.com/jsphweid/sightreader/output"
	"github.com/spf13/cobra"
)

var serveConfig engineConfig

func init() {
	serveConfig.register(serveCmd.Flags())
	serveCmd.Flags().StringVar(&serveConfig.listen, "listen", constants.GetListenAddr(), "command server address (SIGHTREADER_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the command server without MIDI devices",
	Long: `Runs the command server only. Scores, seeks and events arrive over HTTP
and interpreted events are logged.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		e := newEngine(serveConfig)
		defer e.close()
		e.projector.Add(output.LogDevice{Logger: logger})

		return e.newServer(serveConfig).ListenAndServe(ctx, serveConfig.listen)
	},
}
