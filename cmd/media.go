package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/reelai/backend/internal/app"
)

var extractCmd = &cobra.Command{
	Use:   "extract <video_id>",
	Short: "Extract a video's audio once and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return withApp(ctx, func(a *app.App) error {
			res, err := a.Extractor.Extract(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(res)
		})
	},
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <video_id>",
	Short: "Transcribe a video's extracted audio and print the transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return withApp(ctx, func(a *app.App) error {
			res, err := a.Transcripts.Create(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(res)
		})
	},
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(extractCmd, transcribeCmd)
}
