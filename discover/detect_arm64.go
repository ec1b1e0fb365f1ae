package discover

import (
	"runtime"

	"golang.org/x/sys/cpu"

	"github.com/fatlib/fatlib/features"
)

func detectHost() features.Set {
	// NEON (asimd) is architecturally mandatory on arm64; darwin does not
	// expose hwcaps through the cpu package so start from that floor.
	flags := []string{"neon"}
	if runtime.GOOS == "darwin" {
		return features.New(flags...)
	}
	if cpu.ARM64.HasASIMDDP {
		flags = append(flags, "dotprod")
	}
	if cpu.ARM64.HasASIMDHP {
		flags = append(flags, "fp16")
	}
	if cpu.ARM64.HasSVE {
		flags = append(flags, "sve")
	}
	if cpu.ARM64.HasATOMICS {
		flags = append(flags, "lse")
	}
	return features.New(flags...)
}
