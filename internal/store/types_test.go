package store

import (
	"errors"
	"testing"
	"time"
)

func TestRun_Validate(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		run   Run
		field string
	}{
		{"valid", Run{ID: "a", Mode: "full", StartedAt: start}, ""},
		{"missing id", Run{Mode: "full", StartedAt: start}, "ID"},
		{"missing mode", Run{ID: "a", StartedAt: start}, "Mode"},
		{"zero start", Run{ID: "a", Mode: "full"}, "StartedAt"},
		{"finished early", Run{ID: "a", Mode: "full", StartedAt: start, FinishedAt: start.Add(-time.Second)}, "FinishedAt"},
		{"unnamed result", Run{ID: "a", Mode: "full", StartedAt: start, Results: []Result{{Variant: "quick"}}}, "Results[0].App"},
		{"negative elapsed", Run{ID: "a", Mode: "full", StartedAt: start, Results: []Result{{App: "blend", Elapsed: -1}}}, "Results[0].Elapsed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestRun_ToInfoUnfinished(t *testing.T) {
	run := &Run{ID: "a", Mode: "quick", Driver: "opencl", StartedAt: time.Now(),
		Results: []Result{{App: "yuv2rgb", ExitCode: 2}}}
	info := run.ToInfo()
	if info.Elapsed != 0 {
		t.Errorf("unfinished run elapsed = %v, want 0", info.Elapsed)
	}
	if info.Passed != 0 || info.Failed != 1 || info.Driver != "opencl" {
		t.Errorf("info = %+v", info)
	}
}
