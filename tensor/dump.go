// dump.go - human-readable Mat rendering, grounded on ml.Dump in the
// teacher pack. Supplements spec.md (not named in the distilled text)
// for debugging and the cmd/netrun example surface.
package tensor

import (
	"strconv"
	"strings"
)

// DumpOptions configures Dump's output.
type DumpOptions struct {
	Precision int
	EdgeItems int
	Threshold int
}

// DefaultDumpOptions mirrors the teacher's defaults.
func DefaultDumpOptions() DumpOptions {
	return DumpOptions{Precision: 4, EdgeItems: 3, Threshold: 1000}
}

// Dump renders m as a nested bracketed string, eliding the middle of
// long axes beyond EdgeItems once the total element count exceeds
// Threshold.
func Dump(m Mat, opts DumpOptions) string {
	if m.Empty() {
		return "[]"
	}

	vals, err := m.ToF32()
	if err != nil {
		return "<unsupported dtype: " + err.Error() + ">"
	}

	shape := dimsOf(m)
	edge := opts.EdgeItems
	if m.Total() <= opts.Threshold {
		edge = len(vals)
	}

	var sb strings.Builder
	var walk func(dims []int, stride, prefixLen int)
	walk = func(dims []int, stride, prefixLen int) {
		sb.WriteString("[")
		n := dims[0]
		for i := 0; i < n; i++ {
			if i >= edge && i < n-edge {
				sb.WriteString("..., ")
				skip := n - 2*edge
				if len(dims) > 1 {
					inner := 1
					for _, d := range dims[1:] {
						inner *= d
					}
					stride += inner * skip
				}
				i += skip - 1
				continue
			}
			if len(dims) > 1 {
				walk(dims[1:], stride, prefixLen+1)
				inner := 1
				for _, d := range dims[1:] {
					inner *= d
				}
				stride += inner
			} else {
				sb.WriteString(strconv.FormatFloat(float64(vals[stride+i]), 'f', opts.Precision, 32))
			}
			if i < n-1 {
				sb.WriteString(", ")
			}
		}
		sb.WriteString("]")
	}
	walk(shape, 0, 0)

	return sb.String()
}

func dimsOf(m Mat) []int {
	switch m.Dims {
	case 1:
		return []int{m.W}
	case 2:
		return []int{m.H, m.W}
	case 3:
		return []int{m.C, m.H, m.W}
	default:
		return []int{m.C, m.D, m.H, m.W}
	}
}
