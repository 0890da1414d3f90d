package check

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/cwbudde/clpixelcheck/internal/compare"
	"github.com/cwbudde/clpixelcheck/internal/device"
	"github.com/cwbudde/clpixelcheck/internal/diag"
	"github.com/cwbudde/clpixelcheck/internal/kernels"
	"github.com/cwbudde/clpixelcheck/internal/pixel"
)

// Exit codes of a check run.
const (
	ExitPass     = 0
	ExitMismatch = 1
	ExitConfig   = 2
	ExitBackend  = 3
)

// ExitCode maps the error of Run to a process exit code.
func ExitCode(err error) int {
	var be *diag.BackendError
	switch {
	case err == nil:
		return ExitPass
	case errors.Is(err, ErrConfig):
		return ExitConfig
	case errors.As(err, &be), errors.Is(err, device.ErrBackendUnavailable), errors.Is(err, device.ErrUnknownBackend):
		return ExitBackend
	default:
		return ExitMismatch
	}
}

// Factory opens a backend by name and returns its cleanup hook.
type Factory func(name string) (device.Backend, func(), error)

// DefaultFactory opens backends with the host emulation of every kernel.
func DefaultFactory(name string) (device.Backend, func(), error) {
	return device.New(name, device.Options{Emulations: kernels.Emulations()})
}

// Comparison is the outcome of one reference comparison of a check.
type Comparison struct {
	Label  string
	Result compare.Result
}

// Report collects what a check produced.
type Report struct {
	Check       string
	Comparisons []Comparison
	Artifacts   []string
}

// Runner executes checks. Results go to Out, failures to Err and backend
// diagnostics to Reporter.
type Runner struct {
	Out        io.Writer
	Err        io.Writer
	Reporter   *diag.Reporter
	NewBackend Factory
}

// NewRunner returns a runner with the default backend factory and a
// reporter on errw gated by the verbose environment switch.
func NewRunner(out, errw io.Writer) *Runner {
	if out == nil {
		out = os.Stdout
	}
	if errw == nil {
		errw = os.Stderr
	}
	return &Runner{
		Out:        out,
		Err:        errw,
		Reporter:   diag.NewReporter(errw, diag.VerboseFromEnv()),
		NewBackend: DefaultFactory,
	}
}

type checkFunc func(s *Session) error

var registry = map[string]checkFunc{
	"pattern":     runPattern,
	"blend":       runBlend,
	"scale":       runScale,
	"convolution": runConvolution,
	"yuv2rgb":     runYUV,
	"scanout":     runScanout,
	"polyhedron":  runPolyhedron,
}

// Names lists the registered checks.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run executes the named check. The returned error wraps ErrConfig,
// ErrMismatch or a *diag.BackendError; backend errors have already been
// routed through the reporter.
func (r *Runner) Run(name string, cfg Config) (*Report, error) {
	rep := &Report{Check: name}
	fn, ok := registry[name]
	if !ok {
		return rep, fmt.Errorf("%w: unknown check %q", ErrConfig, name)
	}
	if err := SelfTest(); err != nil {
		fmt.Fprintf(r.Err, "video_utils self-test failed: %v\n", err)
		return rep, err
	}
	if err := cfg.Validate(); err != nil {
		return rep, err
	}

	s := &Session{cfg: cfg, runner: r, report: rep}
	defer s.close()

	err := fn(s)
	if err != nil && s.backend != nil {
		r.Reporter.Report(err, s.backend)
	}
	slog.Debug("Check finished", "check", name, "backend", cfg.Backend, "error", err)
	return rep, err
}

// Session is the state of one check run. The backend is opened on first
// use so configuration errors never touch a device.
type Session struct {
	cfg     Config
	runner  *Runner
	report  *Report
	backend device.Backend
	cleanup func()
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.runner.Out, format+"\n", args...)
}

func (s *Session) errorf(format string, args ...any) {
	fmt.Fprintf(s.runner.Err, format+"\n", args...)
}

// device opens the backend and builds the kernel program.
func (s *Session) device() (device.Backend, error) {
	if s.backend != nil {
		return s.backend, nil
	}
	factory := s.runner.NewBackend
	if factory == nil {
		factory = DefaultFactory
	}
	b, cleanup, err := factory(s.cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}
	s.backend, s.cleanup = b, cleanup

	src, err := kernels.Source()
	if err != nil {
		return nil, err
	}
	if err := b.Build(src, kernels.BuildOptions); err != nil {
		return nil, err
	}
	slog.Debug("Program built", "backend", b.Name())
	return b, nil
}

func (s *Session) close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// buffer allocates a device buffer of size bytes.
func (s *Session) buffer(size int, init []byte) (device.Buffer, error) {
	b, err := s.device()
	if err != nil {
		return nil, err
	}
	return b.NewBuffer(size, init)
}

// launch dispatches kernel over a 2D grid with the configured local size.
func (s *Session) launch(kernel string, w, h int, args ...any) error {
	b, err := s.device()
	if err != nil {
		return err
	}
	global := []int{w, h}
	return b.Launch(kernel, global, s.local(len(global)), args...)
}

// local fits the configured work-group size to dims dimensions, padding
// with 1.
func (s *Session) local(dims int) []int {
	if len(s.cfg.Local) == 0 {
		return nil
	}
	out := make([]int, dims)
	for i := range out {
		out[i] = 1
		if i < len(s.cfg.Local) {
			out[i] = s.cfg.Local[i]
		}
	}
	return out
}

// read copies a device buffer into a fresh slice.
func (s *Session) read(buf device.Buffer) ([]byte, error) {
	b, err := s.device()
	if err != nil {
		return nil, err
	}
	out := make([]byte, buf.Size())
	if err := b.Read(buf, out); err != nil {
		return nil, err
	}
	return out, nil
}

// readImage reads buf and wraps it as a w×h image with the given stride.
func (s *Session) readImage(buf device.Buffer, w, h, stride int, f pixel.Format) (*pixel.Image, error) {
	data, err := s.read(buf)
	if err != nil {
		return nil, err
	}
	return pixel.Wrap(data, w, h, stride, f)
}

// compare checks act against ref and records the result. Failures are
// logged with the aggregate error metrics.
func (s *Session) compare(label string, ref, act *pixel.Image, tolerance int) (compare.Result, error) {
	res, err := compare.Images(ref, act, tolerance)
	if err != nil {
		return res, fmt.Errorf("compare %s: %w", label, err)
	}
	s.report.Comparisons = append(s.report.Comparisons, Comparison{Label: label, Result: res})
	if !res.OK {
		attrs := []any{"label", label, "max_err", res.MaxError, "mismatched", res.Mismatched}
		if m, err := s.metrics(ref, act); err == nil {
			attrs = append(attrs, "mse", m.MSE, "psnr", m.PSNR)
		}
		slog.Info("Comparison failed", attrs...)
	}
	return res, nil
}

func (s *Session) metrics(ref, act *pixel.Image) (compare.Metrics, error) {
	if ref.Format == pixel.RGB565 {
		var err error
		if ref, err = ref.Convert(pixel.RGB888, 0); err != nil {
			return compare.Metrics{}, err
		}
		if act, err = act.Convert(pixel.RGB888, 0); err != nil {
			return compare.Metrics{}, err
		}
	}
	rv, err := compare.ViewOf(ref)
	if err != nil {
		return compare.Metrics{}, err
	}
	av, err := compare.ViewOf(act)
	if err != nil {
		return compare.Metrics{}, err
	}
	return compare.Measure(rv, av)
}

// dump writes img as the named artifact when dumping was requested or the
// check failed. Write failures are printed and otherwise ignored.
func (s *Session) dump(name string, img *pixel.Image, failed bool) {
	if !s.cfg.Dump && !failed {
		return
	}
	path, err := s.cfg.artifacts().WriteImage(name, img)
	if err != nil {
		s.errorf("Failed to write %s: %v", s.cfg.artifacts().Path(name), err)
		return
	}
	s.report.Artifacts = append(s.report.Artifacts, path)
	s.printf("Wrote %s", path)
}

// mismatch prints the one-line failure summary and returns ErrMismatch.
func (s *Session) mismatch(tag string, res compare.Result) error {
	label := "FAILED"
	if tag != "" {
		label += " (" + tag + ")"
	}
	s.errorf("%s: %s", label, res.Summary())
	if tag == "" {
		return fmt.Errorf("%w: %s", ErrMismatch, res.Summary())
	}
	return fmt.Errorf("%w: %s %s", ErrMismatch, tag, res.Summary())
}

// SelfTest verifies the pixel utilities every check relies on.
func SelfTest() error {
	if pixel.AlignUp(5, 4) != 8 {
		return errors.New("align_up failed")
	}
	if pixel.ClampInt(5, 0, 3) != 3 {
		return errors.New("clamp_int failed")
	}
	img, err := pixel.Wrap([]byte{255, 0, 0, 255, 0, 255, 0, 255}, 2, 1, 0, pixel.RGBA8888)
	if err != nil {
		return fmt.Errorf("rgba_to_rgb failed: %w", err)
	}
	rgb, err := img.ToRGB()
	if err != nil || len(rgb) != 6 || rgb[0] != 255 || rgb[1] != 0 || rgb[2] != 0 || rgb[3] != 0 || rgb[4] != 255 || rgb[5] != 0 {
		return errors.New("rgba_to_rgb failed")
	}
	return nil
}
