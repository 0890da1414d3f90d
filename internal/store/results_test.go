package store

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleResults() []Result {
	return []Result{
		{App: "pattern", Variant: "pretty", Driver: "host", Args: "-W 320 -H 320 --dump", Elapsed: 0.123,
			Log: "/tmp/x/logs/pattern_pretty.log", Artifacts: []string{"/tmp/x/pretty_pattern_output.ppm"}},
		{App: "scale", Variant: "tail", Driver: "host", Args: "-W 197", ExitCode: 1, Elapsed: 2.5,
			Log: "/tmp/x/logs/scale_tail.log", Artifacts: []string{"/tmp/x/a.ppm", "/tmp/x/b.ppm"}},
	}
}

func TestResultWriter_WriteAndRead(t *testing.T) {
	dir := t.TempDir()
	w, err := NewResultWriter(dir, false)
	if err != nil {
		t.Fatalf("NewResultWriter failed: %v", err)
	}
	for _, r := range sampleResults() {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if w.Path() != filepath.Join(dir, ResultsJSONL) {
		t.Errorf("Path() = %s", w.Path())
	}

	r, err := NewResultReader(dir)
	if err != nil {
		t.Fatalf("NewResultReader failed: %v", err)
	}
	defer r.Close()
	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	want := sampleResults()
	if len(got) != len(want) {
		t.Fatalf("read %d results, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].App != want[i].App || got[i].ExitCode != want[i].ExitCode || len(got[i].Artifacts) != len(want[i].Artifacts) {
			t.Errorf("result %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestResultWriter_Append(t *testing.T) {
	dir := t.TempDir()
	for i, r := range sampleResults() {
		w, err := NewResultWriter(dir, i > 0)
		if err != nil {
			t.Fatal(err)
		}
		if err := w.Write(r); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	}
	r, err := NewResultReader(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 appended results, got %d", len(got))
	}
}

func TestResultReader_Missing(t *testing.T) {
	if _, err := NewResultReader(t.TempDir()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResultReader_Corrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ResultsJSONL), []byte("{\"app\":\"blend\"}\nnot json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	r, err := NewResultReader(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if _, err := r.Read(); err != nil {
		t.Fatalf("first line: %v", err)
	}
	if _, err := r.Read(); err == nil {
		t.Error("expected unmarshal error on second line")
	}
}

func TestWriteTables(t *testing.T) {
	dir := t.TempDir()
	if err := WriteTables(dir, sampleResults()); err != nil {
		t.Fatalf("WriteTables failed: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, ResultsCSV))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("csv rows = %d, want 3", len(rows))
	}
	if strings.Join(rows[0], ",") != "app,variant,driver,args,exit_code,elapsed_s,log,artifacts" {
		t.Errorf("csv header = %v", rows[0])
	}
	if rows[1][5] != "0.12" || rows[2][4] != "1" || rows[2][7] != "/tmp/x/a.ppm|/tmp/x/b.ppm" {
		t.Errorf("csv rows = %v", rows[1:])
	}

	md, err := os.ReadFile(filepath.Join(dir, ResultsMarkdown))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(md)), "\n")
	if lines[0] != "# Video Suite Results" {
		t.Errorf("markdown title = %q", lines[0])
	}
	wantRow := "| scale | tail | host | -W 197 | 1 | 2.50 | /tmp/x/logs/scale_tail.log | a.ppm;b.ppm |"
	if lines[len(lines)-1] != wantRow {
		t.Errorf("markdown row = %q, want %q", lines[len(lines)-1], wantRow)
	}

	data, err := os.ReadFile(filepath.Join(dir, ResultsJSON))
	if err != nil {
		t.Fatal(err)
	}
	var decoded []Result
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Elapsed != 0.123 {
		t.Errorf("json results = %+v", decoded)
	}
}

func TestWriteTables_Empty(t *testing.T) {
	dir := t.TempDir()
	if err := WriteTables(dir, nil); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ResultsJSON))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("empty json = %q, want []", data)
	}
}

func TestWriteMarkdown_EscapesPipes(t *testing.T) {
	var b strings.Builder
	if err := WriteMarkdown(&b, []Result{{App: "a|b"}}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), `| a\|b |`) {
		t.Errorf("pipe not escaped: %s", b.String())
	}
}
