package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"bookshelf/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bookshelf",
	Short: "Bookshelf tracks downloads and serves a live, sorted view of them",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(); err != nil {
			return err
		}
		setupLogging(config.Load().LogLevel)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	config.BindFlags(rootCmd)
	rootCmd.AddCommand(serveCmd, watchCmd)
}

// Execute runs the command line until it finishes or an interrupt arrives
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command failed")
		return err
	}
	return nil
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}
