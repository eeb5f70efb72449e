package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/reelai/backend/internal/app"
	"github.com/reelai/backend/internal/job"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume media jobs from RabbitMQ",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RabbitMQURL == "" {
			return errors.New("RABBITMQ_URL is not set")
		}
		ctx, stop := signalContext()
		defer stop()

		return withApp(ctx, func(a *app.App) error {
			if err := a.Tools.Check(ctx); err != nil {
				return fmt.Errorf("media tools unavailable: %w", err)
			}
			broker, err := job.Dial(cfg.RabbitMQURL, cfg.QueueName)
			if err != nil {
				return err
			}
			defer broker.Close()

			err = broker.Consume(ctx, job.NewDispatcher(a.JobHandlers(), a.Notifier))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	},
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <extract_audio|create_transcript> <video_id>",
	Short: "Queue a media job for the worker",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RabbitMQURL == "" {
			return errors.New("RABBITMQ_URL is not set")
		}
		broker, err := job.Dial(cfg.RabbitMQURL, cfg.QueueName)
		if err != nil {
			return err
		}
		defer broker.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		msg, err := broker.Publish(ctx, job.Type(args[0]), args[1])
		if err != nil {
			return err
		}
		log.Info().Str("jobId", msg.JobID).Str("type", string(msg.Type)).Str("videoId", msg.VideoID).Msg("job queued")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd, enqueueCmd)
}
