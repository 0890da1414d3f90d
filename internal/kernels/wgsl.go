package kernels

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"

	"github.com/cwbudde/clpixelcheck/internal/diag"
)

// Shader is one compiled WGSL rendition.
type Shader struct {
	Name  string
	SPIRV []byte
	// EntryPoints are the compute entry points with their workgroup sizes.
	EntryPoints []EntryPoint
}

// EntryPoint is a compute entry point and its @workgroup_size.
type EntryPoint struct {
	Name      string
	Workgroup [3]uint32
}

// ShaderError is a WGSL compile failure. It satisfies diag.Program so the
// compiler output is printed like an OpenCL build log.
type ShaderError struct {
	Name string
	Err  error
}

func (e *ShaderError) Error() string { return fmt.Sprintf("compile %s: %v", e.Name, e.Err) }

func (e *ShaderError) Unwrap() error { return e.Err }

// BuildLogs reports the compiler message as the log of the naga compiler.
func (e *ShaderError) BuildLogs() ([]diag.BuildLog, error) {
	return []diag.BuildLog{{Device: "naga " + e.Name, Text: e.Err.Error()}}, nil
}

// ShaderNames lists the embedded WGSL files without extension.
func ShaderNames() ([]string, error) {
	files, err := fs.Glob(wgslFS, "wgsl/*.wgsl")
	if err != nil {
		return nil, err
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = strings.TrimSuffix(path.Base(f), ".wgsl")
	}
	sort.Strings(names)
	return names, nil
}

// ShaderSource returns the WGSL text of the named shader.
func ShaderSource(name string) (string, error) {
	data, err := wgslFS.ReadFile("wgsl/" + name + ".wgsl")
	if err != nil {
		return "", fmt.Errorf("shader %q: %w", name, err)
	}
	return string(data), nil
}

// SPIRVVersion is the SPIR-V version shaders are compiled for.
var SPIRVVersion = spirv.Version1_3

// CompileShader compiles WGSL source to SPIR-V and extracts the compute
// entry points. The source is parsed and lowered once; the lowered module
// feeds both validation and code generation. Failures are returned as
// *ShaderError.
func CompileShader(name, source string) (*Shader, error) {
	fail := func(err error) (*Shader, error) {
		return nil, &ShaderError{Name: name, Err: err}
	}
	ast, err := naga.Parse(source)
	if err != nil {
		return fail(err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return fail(fmt.Errorf("lowering error: %w", err))
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return fail(fmt.Errorf("validation error: %w", err))
	}
	if len(verrs) > 0 {
		return fail(fmt.Errorf("validation failed: %w", verrs[0]))
	}
	code, err := naga.GenerateSPIRV(module, spirv.Options{Version: SPIRVVersion})
	if err != nil {
		return fail(err)
	}

	s := &Shader{Name: name, SPIRV: code}
	for _, ep := range module.EntryPoints {
		if ep.Stage != ir.StageCompute {
			continue
		}
		s.EntryPoints = append(s.EntryPoints, EntryPoint{Name: ep.Name, Workgroup: ep.Workgroup})
	}
	return s, nil
}

// CheckLimits runs every entry point's workgroup size through the legality
// checklist of dev. The result is keyed by entry point name.
func (s *Shader) CheckLimits(dev diag.LimitsDevice) map[string]diag.Legality {
	out := make(map[string]diag.Legality, len(s.EntryPoints))
	for _, ep := range s.EntryPoints {
		wg := ep.Workgroup
		out[ep.Name] = dev.CheckWorkgroupSize(max(int(wg[0]), 1), max(int(wg[1]), 1), max(int(wg[2]), 1))
	}
	return out
}
