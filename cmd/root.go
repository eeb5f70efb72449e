package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/reelai/backend/internal/app"
	"github.com/reelai/backend/internal/config"
	"github.com/reelai/backend/internal/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "reelai",
	Short:         "ReelAI media functions: audio extraction, transcription, info cards and sign-in links",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		logging.Init(cfg.LogLevel, cfg.LogFormat)
		return app.EnsureDirs(cfg)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// withApp builds the services for the duration of fn.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close clients")
		}
	}()
	return fn(a)
}
