package store

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Result table file names, written to the suite output directory.
const (
	ResultsJSONL    = "results.jsonl"
	ResultsJSON     = "results.json"
	ResultsCSV      = "results.csv"
	ResultsMarkdown = "results.md"
)

// ResultWriter streams results to a JSONL file as the suite progresses, so a
// crashed run still leaves the finished rows behind. It is safe for
// concurrent use.
type ResultWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewResultWriter creates <dir>/results.jsonl. If append is true, rows are
// added to an existing file.
func NewResultWriter(dir string, append bool) (*ResultWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	path := filepath.Join(dir, ResultsJSONL)

	var file *os.File
	var err error
	if append {
		file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}

	return &ResultWriter{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
	}, nil
}

// Write appends one result and flushes it to disk.
func (rw *ResultWriter) Write(r Result) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if _, err := rw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	if err := rw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := rw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush results: %w", err)
	}
	return nil
}

// Close flushes buffered data and closes the file.
func (rw *ResultWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if err := rw.writer.Flush(); err != nil {
		rw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := rw.file.Close(); err != nil {
		return fmt.Errorf("failed to close results file: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the JSONL file.
func (rw *ResultWriter) Path() string {
	return rw.path
}

// ResultReader reads results back from a JSONL file.
type ResultReader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewResultReader opens <dir>/results.jsonl.
func NewResultReader(dir string) (*ResultReader, error) {
	file, err := os.Open(filepath.Join(dir, ResultsJSONL))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{RunID: filepath.Base(dir)}
		}
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	// Logs paths and artifact lists can make long lines.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &ResultReader{file: file, scanner: scanner}, nil
}

// Read returns the next result, or io.EOF when no more are available.
func (rr *ResultReader) Read() (*Result, error) {
	if !rr.scanner.Scan() {
		if err := rr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan results line: %w", err)
		}
		return nil, io.EOF
	}
	var r Result
	if err := json.Unmarshal(rr.scanner.Bytes(), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &r, nil
}

// ReadAll reads every remaining result.
func (rr *ResultReader) ReadAll() ([]Result, error) {
	var out []Result
	for {
		r, err := rr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
}

// Close closes the reader.
func (rr *ResultReader) Close() error {
	if err := rr.file.Close(); err != nil {
		return fmt.Errorf("failed to close results file: %w", err)
	}
	return nil
}

var csvHeader = []string{"app", "variant", "driver", "args", "exit_code", "elapsed_s", "log", "artifacts"}

// WriteCSV writes the results table with one row per result. Artifacts are
// joined with '|'.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.App, r.Variant, r.Driver, r.Args,
			strconv.Itoa(r.ExitCode),
			strconv.FormatFloat(r.Elapsed, 'f', 2, 64),
			r.Log,
			strings.Join(r.Artifacts, "|"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMarkdown writes the results as a Markdown table. Artifacts are
// listed by base name.
func WriteMarkdown(w io.Writer, results []Result) error {
	var b strings.Builder
	b.WriteString("# Video Suite Results\n\n")
	b.WriteString("| app | variant | driver | args | exit | elapsed(s) | log | artifacts |\n")
	b.WriteString("|---|---|---|---|---:|---:|---|---|\n")
	for _, r := range results {
		names := make([]string, len(r.Artifacts))
		for i, a := range r.Artifacts {
			names[i] = filepath.Base(a)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %.2f | %s | %s |\n",
			cell(r.App), cell(r.Variant), cell(r.Driver), cell(r.Args),
			r.ExitCode, r.Elapsed, cell(r.Log), cell(strings.Join(names, ";")))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// cell escapes the column separator.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// WriteTables writes results.json, results.csv and results.md to dir. Each
// file is replaced atomically.
func WriteTables(dir string, results []Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	if results == nil {
		results = []Result{}
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize results: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, ResultsJSON), data); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, results); err != nil {
		return fmt.Errorf("failed to encode csv: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, ResultsCSV), buf.Bytes()); err != nil {
		return err
	}

	buf.Reset()
	if err := WriteMarkdown(&buf, results); err != nil {
		return fmt.Errorf("failed to encode markdown: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, ResultsMarkdown), buf.Bytes())
}
