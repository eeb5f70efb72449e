package cmd

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/reelai/backend/internal/app"
	"github.com/reelai/backend/internal/lambdaproxy"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Serve the HTTP API as an AWS Lambda behind an API Gateway HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return withApp(ctx, func(a *app.App) error {
			lambda.StartWithOptions(lambdaproxy.Handler(a.Router(ctx, nil)), lambda.WithContext(ctx))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(lambdaCmd)
}
