package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clpixelcheck/internal/device"
	"github.com/cwbudde/clpixelcheck/internal/device/opencl"
	"github.com/cwbudde/clpixelcheck/internal/diag"
)

var devicesFull bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List compute devices and their limits",
	Long: `Lists the host emulator and every OpenCL platform and device. OpenCL
devices are only visible in builds with the gpu tag. --full prints the
complete limit dump the diagnostics use.`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

func init() {
	devicesCmd.Flags().BoolVar(&devicesFull, "full", false, "Print the full limit dump of every device")
	rootCmd.AddCommand(devicesCmd)
}

type deviceRow struct {
	platform string
	kind     string
	info     diag.DeviceInfo
}

func runDevices(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	host := device.NewHost(nil)
	defer host.Close()
	hostInfo, err := host.Device().DeviceInfo()
	if err != nil {
		return err
	}
	rows := []deviceRow{{platform: "host", kind: "Emulator", info: hostInfo}}

	platforms, err := opencl.EnumeratePlatforms()
	if err != nil {
		fmt.Fprintf(out, "OpenCL: %v\n\n", err)
	}
	for _, p := range platforms {
		for _, d := range p.Devices {
			rows = append(rows, deviceRow{platform: p.Name, kind: string(d.Type), info: d.Info})
		}
	}

	if devicesFull {
		printDeviceDumps(out, platforms, rows)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tDEVICE\tTYPE\tCU\tMAX_WG\tMAX_WI\tLOCAL_MEM\tMAX_ALLOC")
	for _, r := range rows {
		i := r.info
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t[%d,%d,%d]\t%s\t%s\n",
			r.platform, i.Name, r.kind, i.ComputeUnits, i.MaxWorkGroupSize,
			i.MaxWorkItemSizes[0], i.MaxWorkItemSizes[1], i.MaxWorkItemSizes[2],
			formatBytes(int64(i.LocalMemSize)), formatBytes(int64(i.MaxAllocSize)))
	}
	return w.Flush()
}

func printDeviceDumps(out io.Writer, platforms []opencl.PlatformInfo, rows []deviceRow) {
	rep := diag.NewReporter(out, true)
	for _, p := range platforms {
		rep.Platform(p.Name, p.Vendor, p.Version)
	}
	for _, r := range rows {
		rep.DeviceLimits(r.info)
	}
	rep.HostCPU()
}
