package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clpixelcheck/internal/check"
	"github.com/cwbudde/clpixelcheck/internal/device"
	"github.com/cwbudde/clpixelcheck/internal/store"
	"github.com/cwbudde/clpixelcheck/internal/suite"
)

var (
	suiteMode           string
	suiteBackend        string
	suiteOutDir         string
	suiteDataDir        string
	suiteArtifactFormat string
	suiteApps           []string
)

var suiteCmd = &cobra.Command{
	Use:   "suite",
	Short: "Run every check over the variant table",
	Long: `Runs the checks in sequence with odd, even and padded sizes, captures each
check's output in logs/<check>_<variant>.log and writes results.{json,jsonl,csv,md}
plus a collage of the dumped images. The run is recorded under --data-dir.

quick runs every check once at 63x65 with dumps. full adds 320x320 "pretty"
renders for the collage, "tail" sizes that leave partial work groups and a
padded scanout run.`,
	Args: cobra.NoArgs,
	RunE: runSuite,
}

func init() {
	suiteCmd.Flags().StringVar(&suiteMode, "mode", suite.ModeQuick, "Variant table: quick or full")
	suiteCmd.Flags().StringVar(&suiteBackend, "backend", string(device.KindHost), "Device backend: host or opencl")
	suiteCmd.Flags().StringVar(&suiteOutDir, "outdir", "", "Output directory (default: the run directory under --data-dir)")
	suiteCmd.Flags().StringVar(&suiteDataDir, "data-dir", "./data", "Base directory for run records")
	suiteCmd.Flags().StringVar(&suiteArtifactFormat, "artifact-format", string(store.FormatPPM), "Output image format: ppm, png, tiff or bmp")
	suiteCmd.Flags().StringSliceVar(&suiteApps, "apps", nil, "Run only these checks (comma separated)")
	rootCmd.AddCommand(suiteCmd)
}

func runSuite(cmd *cobra.Command, args []string) error {
	format, err := store.ParseImageFormat(suiteArtifactFormat)
	if err != nil {
		return fmt.Errorf("%w: %v", check.ErrConfig, err)
	}
	runs, err := store.NewFSStore(suiteDataDir)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}

	s, err := suite.New(suite.Options{
		Mode:    suiteMode,
		Backend: suiteBackend,
		OutDir:  suiteOutDir,
		Format:  format,
		Apps:    suiteApps,
	}, runs)
	if err != nil {
		return err
	}
	s.Out, s.Err = cmd.OutOrStdout(), cmd.ErrOrStderr()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	run, err := s.Run(ctx)
	passed, failed := run.Counts()
	fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d passed, %d failed (results in %s)\n", run.ID, passed, failed, run.OutDir)
	if errors.Is(err, suite.ErrFailed) {
		return &exitError{code: check.ExitMismatch, err: err}
	}
	return err
}
