package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "letter-recognizer",
		Short: "Handwritten Devanagari letter recognition service",
		Long: `letter-recognizer serves a pretrained ONNX classifier that maps a
32x32 grayscale rendering of an uploaded image to one of 384 Devanagari
letter and vowel-mark combinations.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd(), newPredictCmd(), newLabelsCmd())
	return cmd
}
