// Package format renders values for human consumption in CLI output.
package format

import "fmt"

const (
	KibiByte = 1 << (10 * (iota + 1))
	MebiByte
	GibiByte
)

// HumanBytes renders a byte count with a binary unit suffix.
func HumanBytes(b int64) string {
	switch {
	case b >= GibiByte:
		return fmt.Sprintf("%.1f GiB", float64(b)/GibiByte)
	case b >= MebiByte:
		return fmt.Sprintf("%.1f MiB", float64(b)/MebiByte)
	case b >= KibiByte:
		return fmt.Sprintf("%.1f KiB", float64(b)/KibiByte)
	default:
		return fmt.Sprintf("%d B", b)
	}
}
