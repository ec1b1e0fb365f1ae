// Package discover probes the capabilities of the running CPU and maps
// target specifications onto feature sets for specialization.
package discover

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fatlib/fatlib/features"
)

var hostOnce = sync.OnceValue(func() features.Set {
	s := detectHost()
	slog.Debug("detected host CPU features", "features", s.String())
	return s
})

// Host returns the feature set of the running CPU. The probe runs once per
// process; results may legitimately differ between machines running the
// same artifact.
func Host() features.Set {
	return hostOnce()
}

// ResolveTarget maps a target spec onto a feature set. "host" resolves to
// the running CPU's features; anything else is parsed as an explicit comma
// separated flag list. When explicit is non-nil it wins over spec.
func ResolveTarget(spec string, explicit features.Set) (features.Set, error) {
	if explicit != nil {
		return explicit, nil
	}
	switch spec {
	case "", "host":
		return Host(), nil
	default:
		s := features.Parse(spec)
		if len(s) == 0 {
			return nil, fmt.Errorf("unrecognized target spec %q", spec)
		}
		return s, nil
	}
}
