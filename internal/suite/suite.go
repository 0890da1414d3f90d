// Package suite runs every check over a table of size and layout variants
// and records the outcome: per-check logs, result tables, a collage of the
// dumped images and a stored run record.
package suite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/clpixelcheck/internal/check"
	"github.com/cwbudde/clpixelcheck/internal/diag"
	"github.com/cwbudde/clpixelcheck/internal/store"
)

var (
	// ErrFailed is returned when any check or post-run verification failed.
	ErrFailed = errors.New("suite failed")
	// ErrScalerMissing is reported when the pretty scaler outputs were not written.
	ErrScalerMissing = errors.New("scaler pretty outputs missing; cannot verify nearest vs bilinear difference")
	// ErrScalerIdentical is reported when nearest and bilinear produced the same bytes.
	ErrScalerIdentical = errors.New("scaler outputs identical; scaling coverage insufficient")
)

// Collage layout.
const (
	collageTile = 160
	collageCols = 4
)

// Options configures a suite run.
type Options struct {
	Mode    string
	Backend string
	// OutDir receives artifacts, logs and tables. Empty selects the run
	// directory of the store.
	OutDir string
	Format store.ImageFormat
	// Apps limits the run to these checks; empty runs all.
	Apps []string
}

// Suite is one run over its job table.
type Suite struct {
	mu   sync.RWMutex
	id   string
	opts Options
	jobs []*Job

	runs store.Store
	// NewBackend opens the backend of every check.
	NewBackend check.Factory
	// Out receives one status line per check, Err the post-run errors.
	Out io.Writer
	Err io.Writer
	// OnResult, when set, is called after every check.
	OnResult func(store.Result)
}

// New plans a run. A nil runs store keeps no run record; OutDir must then
// be set.
func New(opts Options, runs store.Store) (*Suite, error) {
	if opts.Mode == "" {
		opts.Mode = ModeQuick
	}
	if opts.Format == "" {
		opts.Format = store.FormatPPM
	}
	if opts.OutDir == "" && runs == nil {
		return nil, fmt.Errorf("%w: suite needs an output directory or a run store", check.ErrConfig)
	}
	jobs, err := Plan(opts.Mode, opts.Apps)
	if err != nil {
		return nil, err
	}
	return &Suite{
		id:         uuid.New().String(),
		opts:       opts,
		jobs:       jobs,
		runs:       runs,
		NewBackend: check.DefaultFactory,
		Out:        os.Stdout,
		Err:        os.Stderr,
	}, nil
}

// ID returns the run ID.
func (s *Suite) ID() string { return s.id }

// Jobs returns a snapshot of the job table.
func (s *Suite) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, len(s.jobs))
	for i, j := range s.jobs {
		out[i] = *j
	}
	return out
}

// updateJob atomically updates job i.
func (s *Suite) updateJob(i int, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.jobs[i])
}

// OutDir resolves the directory the run writes to.
func (s *Suite) OutDir() string {
	if s.opts.OutDir != "" {
		return s.opts.OutDir
	}
	if fs, ok := s.runs.(interface{ RunDir(string) string }); ok {
		return fs.RunDir(s.id)
	}
	return s.id
}

// Run executes every job in order. The returned run carries a row per
// executed check; the error wraps ErrFailed when anything failed and is the
// context error when the run was cancelled.
func (s *Suite) Run(ctx context.Context) (*store.Run, error) {
	outDir := s.OutDir()
	run := &store.Run{
		ID:        s.id,
		Mode:      s.opts.Mode,
		Driver:    s.opts.Backend,
		OutDir:    outDir,
		StartedAt: time.Now(),
	}
	if err := os.MkdirAll(filepath.Join(outDir, "logs"), 0755); err != nil {
		return run, fmt.Errorf("failed to create output directory: %w", err)
	}
	rw, err := store.NewResultWriter(outDir, false)
	if err != nil {
		return run, err
	}
	defer rw.Close()

	slog.Info("Starting suite", "run_id", s.id, "mode", s.opts.Mode, "backend", s.opts.Backend, "jobs", len(s.jobs))

	var failures []error
	for i := range s.jobs {
		select {
		case <-ctx.Done():
			s.cancelFrom(i)
			s.finish(run)
			slog.Info("Suite cancelled", "run_id", s.id, "completed", i)
			return run, ctx.Err()
		default:
		}

		res := s.runJob(i, outDir)
		run.Results = append(run.Results, res)
		if err := rw.Write(res); err != nil {
			slog.Warn("Failed to append result", "run_id", s.id, "error", err)
		}
		if s.OnResult != nil {
			s.OnResult(res)
		}
		if !res.Passed() {
			failures = append(failures, fmt.Errorf("%s:%s exit=%d", res.App, res.Variant, res.ExitCode))
		}

		job := s.jobs[i]
		if job.App == "scale" && job.Variant == "pretty" {
			if err := verifyScaler(s.artifacts(outDir, job)); err != nil {
				fmt.Fprintf(s.Err, "ERROR: %v\n", err)
				failures = append(failures, err)
			}
		}
	}

	if err := store.WriteTables(outDir, run.Results); err != nil {
		failures = append(failures, err)
		fmt.Fprintf(s.Err, "ERROR: %v\n", err)
	}

	collage := filepath.Join(outDir, store.CollageName)
	if err := store.WriteCollage(collage, collectArtifacts(run.Results), collageTile, collageCols); err != nil {
		fmt.Fprintf(s.Err, "ERROR: collage: %v\n", err)
		failures = append(failures, fmt.Errorf("collage: %w", err))
	} else {
		fmt.Fprintf(s.Out, "Collage written: %s\n", collage)
	}

	s.finish(run)
	passed, failed := run.Counts()
	slog.Info("Suite finished", "run_id", s.id, "passed", passed, "failed", failed,
		"elapsed", run.FinishedAt.Sub(run.StartedAt))

	if len(failures) > 0 {
		return run, fmt.Errorf("%w: %w", ErrFailed, errors.Join(failures...))
	}
	return run, nil
}

// runJob executes job i with its output captured in a per-check log.
func (s *Suite) runJob(i int, outDir string) store.Result {
	job := s.jobs[i]
	s.updateJob(i, func(j *Job) { j.State = StateRunning })

	res := store.Result{
		App:     job.App,
		Variant: job.Variant,
		Driver:  s.opts.Backend,
		Args:    job.Args(),
		Log:     filepath.Join(outDir, "logs", job.App+"_"+job.Variant+".log"),
	}

	start := time.Now()
	err := s.execute(job, outDir, res.Log, &res)
	res.Elapsed = time.Since(start).Seconds()
	res.ExitCode = check.ExitCode(err)
	if err != nil {
		res.Error = err.Error()
	}

	state := StateCompleted
	if !res.Passed() {
		state = StateFailed
		slog.Warn("Check failed", "app", job.App, "variant", job.Variant, "exit", res.ExitCode, "error", err)
	}
	s.updateJob(i, func(j *Job) {
		j.State = state
		j.Result = &res
	})
	fmt.Fprintf(s.Out, "%s:%s exit=%d elapsed=%.2fs\n", res.App, res.Variant, res.ExitCode, res.Elapsed)
	return res
}

func (s *Suite) execute(job *Job, outDir, logPath string, res *store.Result) error {
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("failed to create log: %w", err)
	}
	defer logFile.Close()

	cfg := check.DefaultConfig()
	cfg.Backend = s.opts.Backend
	cfg.OutDir = outDir
	cfg.ArtifactFormat = s.opts.Format
	cfg = job.Config(cfg)

	fmt.Fprintf(logFile, "$ %s %s\n", job.App, job.Args())
	runner := &check.Runner{
		Out:        logFile,
		Err:        logFile,
		Reporter:   diag.NewReporter(logFile, diag.VerboseFromEnv()),
		NewBackend: s.NewBackend,
	}
	rep, err := runner.Run(job.App, cfg)
	if rep != nil {
		res.Artifacts = rep.Artifacts
	}
	return err
}

func (s *Suite) artifacts(outDir string, job *Job) store.Artifacts {
	return store.Artifacts{Dir: outDir, Prefix: job.Prefix(), Format: s.opts.Format}
}

func (s *Suite) cancelFrom(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs[i:] {
		j.State = StateCancelled
	}
}

// finish stamps the run and stores its record. Store failures are logged;
// the tables on disk remain the primary output.
func (s *Suite) finish(run *store.Run) {
	run.FinishedAt = time.Now()
	if s.runs == nil {
		return
	}
	if err := s.runs.SaveRun(run); err != nil {
		slog.Error("Failed to save run", "run_id", run.ID, "error", err)
	}
}

// verifyScaler checks that nearest and bilinear outputs both exist and
// differ.
func verifyScaler(a store.Artifacts) error {
	nearest, err := os.ReadFile(a.Path("output_nearest"))
	if err != nil {
		return ErrScalerMissing
	}
	bilinear, err := os.ReadFile(a.Path("output_bilinear"))
	if err != nil {
		return ErrScalerMissing
	}
	if bytes.Equal(nearest, bilinear) {
		return ErrScalerIdentical
	}
	return nil
}

func collectArtifacts(results []store.Result) []string {
	var out []string
	for _, r := range results {
		out = append(out, r.Artifacts...)
	}
	return out
}
