package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clpixelcheck/internal/check"
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Check the pixel utilities every check relies on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := check.SelfTest(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "video_utils self-test failed: %v\n", err)
			return &exitError{code: check.ExitMismatch, err: err}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "video_utils self-test passed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(selftestCmd)
}
