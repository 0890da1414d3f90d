package suite

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cwbudde/clpixelcheck/internal/check"
	"github.com/cwbudde/clpixelcheck/internal/store"
)

// JobState is the lifecycle state of one check invocation.
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Job is one check invocation of a suite run.
type Job struct {
	App     string
	Variant string

	Width     int
	Height    int
	OutWidth  int
	OutHeight int
	// Stride in bytes; 0 keeps the check default.
	Stride int
	// Mode is passed only to the pattern check.
	Mode int
	Dump bool

	State  JobState
	Result *store.Result
}

// Prefix is the artifact file prefix of the job, <variant>_<app>.
func (j *Job) Prefix() string {
	return j.Variant + "_" + j.App
}

// Args renders the job as the equivalent check command line.
func (j *Job) Args() string {
	args := []string{"-W", strconv.Itoa(j.Width), "-H", strconv.Itoa(j.Height)}
	if j.OutWidth > 0 || j.OutHeight > 0 {
		args = append(args, "--outw", strconv.Itoa(j.OutWidth), "--outh", strconv.Itoa(j.OutHeight))
	}
	if j.Stride > 0 {
		args = append(args, "--stride", strconv.Itoa(j.Stride))
	}
	if j.App == "pattern" {
		args = append(args, "--mode", strconv.Itoa(j.Mode))
	}
	if j.Dump {
		args = append(args, "--dump")
	}
	args = append(args, "--prefix", j.Prefix())
	return strings.Join(args, " ")
}

// Config builds the check configuration of the job on top of base.
func (j *Job) Config(base check.Config) check.Config {
	cfg := base
	cfg.Width, cfg.Height = j.Width, j.Height
	cfg.OutWidth, cfg.OutHeight = j.OutWidth, j.OutHeight
	cfg.Stride = j.Stride
	cfg.Mode = j.Mode
	cfg.Dump = j.Dump
	cfg.Prefix = j.Prefix()
	return cfg
}

// Modes of a suite run.
const (
	ModeQuick = "quick"
	ModeFull  = "full"
)

// Apps lists the checks a suite runs, in order.
var Apps = []string{"pattern", "yuv2rgb", "scale", "convolution", "blend", "scanout"}

// Plan expands mode into the ordered job table. A non-empty apps limits
// the table to those checks.
func Plan(mode string, apps []string) ([]*Job, error) {
	if mode != ModeQuick && mode != ModeFull {
		return nil, fmt.Errorf("%w: suite mode %q, want quick or full", check.ErrConfig, mode)
	}
	selected := Apps
	if len(apps) > 0 {
		known := make(map[string]bool, len(Apps))
		for _, a := range Apps {
			known[a] = true
		}
		for _, a := range apps {
			if !known[a] {
				return nil, fmt.Errorf("%w: suite has no check %q", check.ErrConfig, a)
			}
		}
		selected = apps
	}

	var jobs []*Job
	for _, app := range selected {
		if mode == ModeQuick {
			jobs = append(jobs, quickJob(app))
			continue
		}
		jobs = append(jobs, prettyJob(app), tailJob(app))
		if app == "scanout" {
			jobs = append(jobs, &Job{App: app, Variant: "padding", Width: 63, Height: 65, Dump: true, State: StatePending})
		}
	}
	return jobs, nil
}

// quickJob covers odd sizes with a dump of every output.
func quickJob(app string) *Job {
	j := &Job{App: app, Variant: "quick", Width: 63, Height: 65, Dump: true, State: StatePending}
	switch app {
	case "yuv2rgb":
		j.Width, j.Height = 62, 66
	case "scale":
		j.OutWidth, j.OutHeight = 96, 96
	}
	return j
}

// prettyJob renders presentable 320x320 outputs for the collage.
func prettyJob(app string) *Job {
	j := &Job{App: app, Variant: "pretty", Width: 320, Height: 320, Dump: true, State: StatePending}
	switch app {
	case "scale":
		j.Width, j.Height = 191, 193
		j.OutWidth, j.OutHeight = 320, 320
	case "scanout":
		j.Stride = 1344
	}
	return j
}

// tailJob uses sizes that leave partial work groups at the right and
// bottom edges.
func tailJob(app string) *Job {
	j := &Job{App: app, Variant: "tail", Width: 319, Height: 321, State: StatePending}
	switch app {
	case "yuv2rgb":
		j.Width, j.Height = 318, 322
	case "scale":
		j.Width, j.Height = 197, 199
		j.OutWidth, j.OutHeight = 319, 321
	}
	return j
}
