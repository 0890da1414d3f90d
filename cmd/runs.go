package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clpixelcheck/internal/store"
)

var (
	runsDataDir   string
	showJSON      bool
	olderThanDays int
	keepLast      int
	forceDelete   bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage recorded suite runs",
	Long: `Lists, shows and deletes the suite runs recorded under the data directory.
Each run directory holds the run record and, unless the suite was given
--outdir, its logs, tables and images.`,
}

var listRunsCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  runListRuns,
}

var showRunCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the results of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowRun,
}

var deleteRunsCmd = &cobra.Command{
	Use:   "delete [run-id...]",
	Short: "Delete runs by ID or retention policy",
	Long: `Deletes the named runs, or selects runs with --older-than and --keep-last.
Asks for confirmation unless --force is given.`,
	RunE: runDeleteRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(listRunsCmd, showRunCmd, deleteRunsCmd)

	runsCmd.PersistentFlags().StringVar(&runsDataDir, "data-dir", "./data", "Base directory for run records")
	showRunCmd.Flags().BoolVar(&showJSON, "json", false, "Print the run record as JSON")
	deleteRunsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N runs (0 = keep all)")
	deleteRunsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	deleteRunsCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "Skip confirmation prompt")
}

func runListRuns(cmd *cobra.Command, args []string) error {
	runs, err := store.NewFSStore(runsDataDir)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}
	infos, err := runs.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTARTED\tMODE\tDRIVER\tPASSED\tFAILED\tELAPSED\tSIZE")
	for _, info := range infos {
		sizeStr := "unknown"
		if size, err := dirSize(runs.RunDir(info.ID)); err == nil {
			sizeStr = formatBytes(size)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%.2fs\t%s\n",
			shortID(info.ID),
			info.StartedAt.Format("2006-01-02 15:04:05"),
			info.Mode,
			info.Driver,
			info.Passed,
			info.Failed,
			info.Elapsed,
			sizeStr,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal runs: %d\n", len(infos))
	return nil
}

func runShowRun(cmd *cobra.Command, args []string) error {
	runs, err := store.NewFSStore(runsDataDir)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}
	run, err := runs.LoadRun(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if showJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}
	printRun(out, run)
	return nil
}

func printRun(out io.Writer, run *store.Run) {
	info := run.ToInfo()
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Mode:     %s\n", run.Mode)
	fmt.Fprintf(out, "Driver:   %s\n", run.Driver)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Elapsed:  %.2fs\n", info.Elapsed)
	fmt.Fprintf(out, "Output:   %s\n", run.OutDir)
	fmt.Fprintf(out, "Passed:   %d\n", info.Passed)
	fmt.Fprintf(out, "Failed:   %d\n\n", info.Failed)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "APP\tVARIANT\tEXIT\tELAPSED\tARTIFACTS\tLOG")
	for _, r := range run.Results {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2fs\t%d\t%s\n", r.App, r.Variant, r.ExitCode, r.Elapsed, len(r.Artifacts), r.Log)
	}
	w.Flush()
}

func runDeleteRuns(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must name runs or specify --keep-last or --older-than")
	}
	runs, err := store.NewFSStore(runsDataDir)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}
	infos, err := runs.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	toDelete := selectRunsForDeletion(infos, keepLast, olderThanDays)
	for _, id := range args {
		toDelete = appendUnique(toDelete, store.RunInfo{ID: id})
	}
	out := cmd.OutOrStdout()
	if len(toDelete) == 0 {
		fmt.Fprintln(out, "No runs match deletion criteria.")
		return nil
	}

	fmt.Fprintf(out, "Found %d run(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Fprintf(out, "  - %s\n", shortID(info.ID))
	}

	if !forceDelete {
		fmt.Fprint(out, "\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Fscanln(cmd.InOrStdin(), &response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	deleted, failed := 0, 0
	for _, info := range toDelete {
		if err := runs.DeleteRun(info.ID); err != nil {
			slog.Error("Failed to delete run", "run_id", info.ID, "error", err)
			failed++
			continue
		}
		slog.Info("Deleted run", "run_id", info.ID)
		deleted++
	}
	fmt.Fprintf(out, "\nDeleted %d run(s), %d failed.\n", deleted, failed)
	return nil
}

// selectRunsForDeletion picks runs older than olderThanDays and all but
// the newest keepLast. infos must be sorted oldest first.
func selectRunsForDeletion(infos []store.RunInfo, keepLast, olderThanDays int) []store.RunInfo {
	var toDelete []store.RunInfo
	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.StartedAt.Before(cutoff) {
				toDelete = append(toDelete, info)
			}
		}
	}
	if keepLast > 0 && len(infos) > keepLast {
		for _, info := range infos[:len(infos)-keepLast] {
			toDelete = appendUnique(toDelete, info)
		}
	}
	return toDelete
}

func appendUnique(list []store.RunInfo, info store.RunInfo) []store.RunInfo {
	for _, existing := range list {
		if existing.ID == info.ID {
			return list
		}
	}
	return append(list, info)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// dirSize calculates the total size of a directory
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
