package diag

import (
	"fmt"
	"strings"
)

// Dispatch is the shape of a kernel launch. A nil Local leaves the
// work-group size to the implementation.
type Dispatch struct {
	Dims   int
	Global []uint64
	Local  []uint64
}

// NewDispatch builds a dispatch from int sizes. A nil or empty local yields
// an implementation-selected work-group size.
func NewDispatch(global, local []int) Dispatch {
	d := Dispatch{Dims: len(global), Global: toU64(global)}
	if len(local) > 0 {
		d.Local = toU64(local)
	}
	return d
}

func toU64(v []int) []uint64 {
	out := make([]uint64, len(v))
	for i, x := range v {
		if x > 0 {
			out[i] = uint64(x)
		}
	}
	return out
}

// Product multiplies the first dims sizes. It is 0 when sizes is empty or
// any factor is 0.
func Product(dims int, sizes []uint64) uint64 {
	if dims <= 0 || len(sizes) < dims {
		return 0
	}
	p := uint64(1)
	for _, s := range sizes[:dims] {
		if s == 0 {
			return 0
		}
		p *= s
	}
	return p
}

func (d Dispatch) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "OpenCL work sizes: dims=%d", d.Dims)
	if d.Global != nil {
		fmt.Fprintf(&b, " gws=[%s] (product=%d)", joinSizes(d.Dims, d.Global), Product(d.Dims, d.Global))
	}
	if d.Local != nil {
		fmt.Fprintf(&b, " lws=[%s] (product=%d)", joinSizes(d.Dims, d.Local), Product(d.Dims, d.Local))
	}
	return b.String()
}

func joinSizes(dims int, sizes []uint64) string {
	parts := make([]string, 0, dims)
	for i := 0; i < dims && i < len(sizes); i++ {
		parts = append(parts, fmt.Sprint(sizes[i]))
	}
	return strings.Join(parts, ",")
}

// Legality is the outcome of a work-group check. Violations are fatal
// constraint breaches; Notes are advisory.
type Legality struct {
	Checked    bool
	Violations []string
	Notes      []string
}

// OK reports whether no violation was found.
func (l Legality) OK() bool { return len(l.Violations) == 0 }

// Lines renders the checklist as printed by the reporter.
func (l Legality) Lines() []string {
	if !l.Checked {
		return []string{"OpenCL work-group check: local size is NULL (implementation-selected)"}
	}
	lines := []string{"OpenCL work-group check:"}
	for _, v := range l.Violations {
		lines = append(lines, "  - "+v)
	}
	for _, n := range l.Notes {
		lines = append(lines, "  - "+n)
	}
	if l.OK() {
		lines = append(lines, "  - no obvious limit violations detected")
	}
	return lines
}

// CheckWorkGroup evaluates d against the limits in s. Zero limits are
// treated as unknown and never trigger a violation.
func CheckWorkGroup(s Snapshot, d Dispatch) Legality {
	if d.Local == nil {
		return Legality{}
	}
	l := Legality{Checked: true}
	dev, k := s.Device, s.Kernel

	lprod := Product(d.Dims, d.Local)
	if dev.MaxWorkGroupSize != 0 && lprod > dev.MaxWorkGroupSize {
		l.Violations = append(l.Violations,
			fmt.Sprintf("local product %d exceeds device max_wg=%d", lprod, dev.MaxWorkGroupSize))
	}
	if k.WorkGroupSize != 0 && lprod > k.WorkGroupSize {
		l.Violations = append(l.Violations,
			fmt.Sprintf("local product %d exceeds kernel_wg=%d", lprod, k.WorkGroupSize))
	}
	for i := 0; i < d.Dims && i < 3 && i < len(d.Local); i++ {
		if lim := dev.MaxWorkItemSizes[i]; lim != 0 && d.Local[i] > lim {
			l.Violations = append(l.Violations,
				fmt.Sprintf("lws[%d]=%d exceeds device max_wi[%d]=%d", i, d.Local[i], i, lim))
		}
		if req := k.CompileWorkGroupSize[i]; req != 0 && d.Local[i] != req {
			l.Violations = append(l.Violations,
				fmt.Sprintf("lws[%d]=%d does not match kernel compile_wg[%d]=%d", i, d.Local[i], i, req))
		}
	}
	if k.LocalMemSize != 0 && dev.LocalMemSize != 0 && k.LocalMemSize > dev.LocalMemSize {
		l.Violations = append(l.Violations,
			fmt.Sprintf("kernel local_mem=%d exceeds device local_mem=%d", k.LocalMemSize, dev.LocalMemSize))
	}
	if k.PreferredMultiple != 0 && lprod != 0 && lprod%k.PreferredMultiple != 0 {
		l.Notes = append(l.Notes,
			fmt.Sprintf("local product %d is not multiple of preferred %d", lprod, k.PreferredMultiple))
	}
	return l
}
