package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clpixelcheck/internal/check"
)

var (
	logLevel string
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "clpixelcheck",
	Short: "Pixel-exact correctness checks for image processing kernels",
	Long: `clpixelcheck runs video and image kernels on a compute device and compares
every output pixel against a host reference. Failures are dumped as images and,
for device errors, explained with the device limits and a work-group checklist.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelWarn
		}

		// Check results own stdout; structured logs go to stderr.
		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", check.ErrConfig, err)
	})
}
