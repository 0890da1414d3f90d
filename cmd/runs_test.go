package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/clpixelcheck/internal/store"
)

func TestSelectRunsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{ID: "run4", StartedAt: now.AddDate(0, 0, -30)},
		{ID: "run1", StartedAt: now.AddDate(0, 0, -10)},
		{ID: "run2", StartedAt: now.AddDate(0, 0, -5)},
		{ID: "run3", StartedAt: now.AddDate(0, 0, -1)},
	}

	toDelete := selectRunsForDeletion(infos, 0, 7)
	if len(toDelete) != 2 || toDelete[0].ID != "run4" || toDelete[1].ID != "run1" {
		t.Errorf("toDelete = %+v, want run4 and run1", toDelete)
	}
}

func TestSelectRunsForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{ID: "run4", StartedAt: now.AddDate(0, 0, -30)},
		{ID: "run1", StartedAt: now.AddDate(0, 0, -10)},
		{ID: "run2", StartedAt: now.AddDate(0, 0, -5)},
	}

	toDelete := selectRunsForDeletion(infos, 2, 0)
	if len(toDelete) != 1 || toDelete[0].ID != "run4" {
		t.Errorf("toDelete = %+v, want run4", toDelete)
	}
	if got := selectRunsForDeletion(infos, 5, 0); len(got) != 0 {
		t.Errorf("keep-last above count deleted %d runs", len(got))
	}
}

func TestSelectRunsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{ID: "run4", StartedAt: now.AddDate(0, 0, -30)},
		{ID: "run1", StartedAt: now.AddDate(0, 0, -10)},
		{ID: "run2", StartedAt: now.AddDate(0, 0, -5)},
		{ID: "run3", StartedAt: now.AddDate(0, 0, -1)},
	}

	// Age selects run4 and run1; keep-last 3 selects run4 again.
	toDelete := selectRunsForDeletion(infos, 3, 7)
	if len(toDelete) != 2 {
		t.Errorf("toDelete = %+v, want 2 unique runs", toDelete)
	}
}

func TestListAndShowRuns(t *testing.T) {
	dir := t.TempDir()
	fs, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := &store.Run{
		ID:         "0123456789abcdef",
		Mode:       "quick",
		Driver:     "host",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Results: []store.Result{
			{App: "pattern", Variant: "quick", ExitCode: 0, Elapsed: 0.5, Log: "logs/pattern_quick.log"},
			{App: "blend", Variant: "quick", ExitCode: 1, Elapsed: 0.25},
		},
	}
	if err := fs.SaveRun(run); err != nil {
		t.Fatal(err)
	}

	runsDataDir = dir
	defer func() { runsDataDir = "./data" }()

	var out bytes.Buffer
	listRunsCmd.SetOut(&out)
	if err := runListRuns(listRunsCmd, nil); err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"0123456789ab...", "2026-03-01 12:00:00", "quick", "1.50s", "Total runs: 1"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("list output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	showRunCmd.SetOut(&out)
	if err := runShowRun(showRunCmd, []string{run.ID}); err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"Passed:   1", "Failed:   1", "logs/pattern_quick.log"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("show output missing %q:\n%s", want, out.String())
		}
	}

	if err := runShowRun(showRunCmd, []string{"missing"}); err == nil {
		t.Error("show of missing run succeeded")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 << 20, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
