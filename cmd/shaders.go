package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clpixelcheck/internal/check"
	"github.com/cwbudde/clpixelcheck/internal/diag"
	"github.com/cwbudde/clpixelcheck/internal/kernels"
)

var shadersCmd = &cobra.Command{
	Use:   "shaders [name...]",
	Short: "Compile the WGSL kernel renditions and check their workgroup sizes",
	Long: `Compiles every embedded WGSL shader (or the named ones) to SPIR-V and checks
each compute entry point's workgroup size against the default WebGPU limits.
Compiler errors are reported like OpenCL build failures.`,
	RunE: runShaders,
}

func init() {
	rootCmd.AddCommand(shadersCmd)
}

func runShaders(cmd *cobra.Command, args []string) error {
	names := args
	if len(names) == 0 {
		var err error
		if names, err = kernels.ShaderNames(); err != nil {
			return err
		}
	}

	rep := diag.NewReporter(cmd.ErrOrStderr(), diag.VerboseFromEnv())
	limits := diag.DefaultLimitsDevice()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SHADER\tENTRY\tWORKGROUP\tSPIRV\tLEGAL")

	var failed []error
	for _, name := range names {
		src, err := kernels.ShaderSource(name)
		if err != nil {
			return fmt.Errorf("%w: %v", check.ErrConfig, err)
		}
		sh, err := kernels.CompileShader(name, src)
		if err != nil {
			var se *kernels.ShaderError
			if errors.As(err, &se) {
				rep.Printf("naga compile failed: %s", name)
				rep.BuildLogs(se)
			}
			fmt.Fprintf(w, "%s\t-\t-\t-\tcompile error\n", name)
			failed = append(failed, err)
			continue
		}

		legality := sh.CheckLimits(limits)
		for _, ep := range sh.EntryPoints {
			l := legality[ep.Name]
			verdict := "ok"
			if !l.OK() {
				verdict = "VIOLATION"
				failed = append(failed, fmt.Errorf("%s.%s: workgroup size", name, ep.Name))
				for _, line := range l.Lines() {
					rep.Printf("%s.%s: %s", name, ep.Name, line)
				}
			}
			fmt.Fprintf(w, "%s\t%s\t[%d,%d,%d]\t%d B\t%s\n", name, ep.Name,
				ep.Workgroup[0], ep.Workgroup[1], ep.Workgroup[2], len(sh.SPIRV), verdict)
		}
	}
	w.Flush()

	if len(failed) > 0 {
		return &exitError{code: check.ExitBackend, err: errors.Join(failed...)}
	}
	return nil
}
