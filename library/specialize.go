package library

import (
	"context"

	"github.com/fatlib/fatlib/artifact"
	"github.com/fatlib/fatlib/specialize"
)

// Specialize recompiles this library's embedded IR for the target in opts
// (the running host by default) and publishes a new artifact at the
// conventional specialized location for this library's path. The live
// process keeps its current bindings; the result is picked up by the next
// process to load the artifact.
func (l *Library) Specialize(ctx context.Context, backend specialize.Backend, opts specialize.Options) (*artifact.Artifact, error) {
	if opts.OutputPath == "" {
		opts.OutputPath = specializedPath(l.path)
	}
	eng := &specialize.Engine{Backend: backend}
	return eng.Specialize(ctx, l.art, opts)
}
