package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/letter-recognizer/internal/grpcclient"
	"github.com/example/letter-recognizer/internal/logging"
)

func newPredictCmd() *cobra.Command {
	var (
		addr     string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "predict <image>",
		Short: "Classify a local image with a running server",
		Example: `  letter-recognizer predict ka.png
  letter-recognizer predict --addr recognizer:50051 ka.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			logger, err := logging.NewLogger(logging.Options{Level: logLevel})
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			client, conn, err := grpcclient.DialRecognizer(cmd.Context(), addr, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			label, err := client.Predict(cmd.Context(), data)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), label)
			return err
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:50051", "gRPC address of the recognizer")
	cmd.Flags().StringVar(&logLevel, "log-level", "error", "Log level for client diagnostics")
	return cmd
}
