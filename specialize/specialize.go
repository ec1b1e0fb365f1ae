// Package specialize recompiles an artifact's embedded IR for an exact
// target CPU through an external code-generation backend, producing a new
// artifact that carries the original's identity and is marked specialized.
//
// Specialization is an explicit, out-of-band, potentially slow operation.
// It never mutates the input artifact and never rebinds a live process; its
// output is only picked up by a later load.
package specialize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fatlib/fatlib/artifact"
	"github.com/fatlib/fatlib/discover"
	"github.com/fatlib/fatlib/envconfig"
	"github.com/fatlib/fatlib/features"
	"github.com/fatlib/fatlib/manifest"
)

// ErrRecompilation wraps backend failures. The input artifact remains fully
// usable; the failure is local to the specialize call.
var ErrRecompilation = errors.New("recompilation failed")

// SymbolSpec names one function the backend must emit: the exported name
// and signature it implements and the exact compiled symbol name, which
// must match the original so the regenerated artifact binds identically.
type SymbolSpec struct {
	Name      string
	Signature manifest.Signature
	Symbol    string
}

// CompileRequest is the input to the code-generation backend.
type CompileRequest struct {
	// IR is the portable payload extracted from the source artifact.
	IR []byte

	// Target is the exact feature set to compile for.
	Target features.Set

	// Symbols lists every function the output image must export, with
	// the original symbol names.
	Symbols []SymbolSpec
}

// CompileResult is the backend's output.
type CompileResult struct {
	// Image is the compiled, linked shared library.
	Image []byte
}

// Backend is the external code-generation collaborator.
type Backend interface {
	Compile(ctx context.Context, req CompileRequest) (CompileResult, error)
}

// Options control one specialization run.
type Options struct {
	// Target is a target spec: "host" (default) or an explicit comma
	// separated feature list.
	Target string

	// Features, when non-nil, overrides Target with an explicit set.
	Features features.Set

	// OutputPath overrides the conventional specialized location.
	OutputPath string
}

// Engine drives specialization runs against one backend.
type Engine struct {
	Backend Backend
}

// Specialize recompiles art's embedded IR for the resolved target and
// publishes the result as a new artifact. The output manifest keeps one
// baseline variant per exported (name, signature), pointing at the original
// baseline symbol: the whole image is compiled for the exact target, so
// feature variants collapse. The original identity is carried forward
// unchanged and the specialized flag is set.
//
// The output file is written only after the backend succeeds; cancelling
// ctx beforehand leaves no partial artifact behind.
func (e *Engine) Specialize(ctx context.Context, art *artifact.Artifact, opts Options) (*artifact.Artifact, error) {
	ir := art.IR()
	if len(ir) == 0 {
		return nil, fmt.Errorf("artifact %s has no embedded IR", art.Path)
	}

	target, err := discover.ResolveTarget(opts.Target, opts.Features)
	if err != nil {
		return nil, err
	}

	req := CompileRequest{IR: ir, Target: target}
	for _, g := range art.Manifest.Groups() {
		base := g.Baseline()
		req.Symbols = append(req.Symbols, SymbolSpec{
			Name:      g.Name,
			Signature: g.Signature,
			Symbol:    base.Symbol,
		})
	}

	slog.Info("specializing artifact",
		"artifact", art.Path,
		"identity", art.Identity(),
		"target", target.String())

	result, err := e.Backend.Compile(ctx, req)
	if err != nil {
		// abandonment is the caller's doing, not a backend failure
		if ctxErr := context.Cause(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrRecompilation, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := manifest.NewBuilder().SetSpecialized(true)
	for _, g := range art.Manifest.Groups() {
		base := g.Baseline()
		if _, err := b.AddVariant(g.Name, g.Signature, base.Symbol, features.New(), base.Provenance); err != nil {
			return nil, err
		}
	}
	m, err := b.Finalize(ir, art.Identity())
	if err != nil {
		return nil, err
	}

	out := &artifact.Artifact{
		Path:     e.outputPath(art, opts),
		Manifest: m,
		Image:    result.Image,
	}
	if err := artifact.Write(out.Path, out); err != nil {
		return nil, err
	}

	slog.Info("published specialized artifact", "path", out.Path, "identity", out.Identity())
	return out, nil
}

func (e *Engine) outputPath(art *artifact.Artifact, opts Options) string {
	if opts.OutputPath != "" {
		return opts.OutputPath
	}
	path := artifact.SpecializedPath(art.Path)
	if envconfig.CacheDir != "" {
		path = filepath.Join(envconfig.CacheDir, filepath.Base(path))
	}
	return path
}
