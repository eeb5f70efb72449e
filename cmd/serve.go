package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/reelai/backend/internal/api/handlers"
	"github.com/reelai/backend/internal/app"
	"github.com/reelai/backend/internal/job"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return withApp(ctx, func(a *app.App) error {
			return serve(ctx, a)
		})
	},
}

func serve(ctx context.Context, a *app.App) error {
	if err := a.Tools.Check(ctx); err != nil {
		log.Warn().Err(err).Msg("media tools unavailable, audio extraction will fail")
	}

	var jobs handlers.Enqueuer
	if cfg.RabbitMQURL != "" {
		broker, err := job.Dial(cfg.RabbitMQURL, cfg.QueueName)
		if err != nil {
			return err
		}
		defer broker.Close()
		jobs = broker
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.Router(ctx, jobs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("storage", cfg.StorageBackend).Str("docstore", cfg.DocstoreBackend).Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
