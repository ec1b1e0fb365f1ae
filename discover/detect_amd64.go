package discover

import (
	"golang.org/x/sys/cpu"

	"github.com/fatlib/fatlib/features"
)

// SSE2 is part of the amd64 baseline but reported explicitly so artifacts
// built with an sse2-tagged variant still match.
func detectHost() features.Set {
	flags := []string{"sse2"}
	if cpu.X86.HasSSE41 {
		flags = append(flags, "sse4.1")
	}
	if cpu.X86.HasSSE42 {
		flags = append(flags, "sse4.2")
	}
	if cpu.X86.HasAVX {
		flags = append(flags, "avx")
	}
	if cpu.X86.HasAVX2 {
		flags = append(flags, "avx2")
	}
	if cpu.X86.HasFMA {
		flags = append(flags, "fma")
	}
	if cpu.X86.HasAVX512F {
		flags = append(flags, "avx512f")
	}
	if cpu.X86.HasAVX512VL {
		flags = append(flags, "avx512vl")
	}
	if cpu.X86.HasAVX512BW {
		flags = append(flags, "avx512bw")
	}
	if cpu.X86.HasAVX512DQ {
		flags = append(flags, "avx512dq")
	}
	return features.New(flags...)
}
