package specialize

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandBackend invokes an external compiler binary as the code-generation
// backend. The IR payload is handed over as a file; the backend is expected
// to write a linked shared library to the requested output path.
//
// Invocation:
//
//	<path> <args...> --ir <irfile> --out <imagefile>
//	       --features <flag,flag,...> --symbol <name>=<symbol> ...
type CommandBackend struct {
	// Path is the compiler executable.
	Path string

	// Args are fixed arguments placed before the generated ones.
	Args []string
}

func (b *CommandBackend) Compile(ctx context.Context, req CompileRequest) (CompileResult, error) {
	workdir, err := os.MkdirTemp("", "fatlib-specialize-")
	if err != nil {
		return CompileResult{}, err
	}
	defer os.RemoveAll(workdir)

	irPath := filepath.Join(workdir, "payload.ir")
	if err := os.WriteFile(irPath, req.IR, 0o644); err != nil {
		return CompileResult{}, err
	}
	outPath := filepath.Join(workdir, "image.out")

	args := append([]string{}, b.Args...)
	args = append(args,
		"--ir", irPath,
		"--out", outPath,
		"--features", strings.Join(req.Target, ","),
	)
	for _, sym := range req.Symbols {
		args = append(args, "--symbol", fmt.Sprintf("%s=%s", sym.Name, sym.Symbol))
	}

	cmd := exec.CommandContext(ctx, b.Path, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return CompileResult{}, fmt.Errorf("%s: %w: %s", b.Path, err, strings.TrimSpace(string(out)))
	}

	image, err := os.ReadFile(outPath)
	if err != nil {
		return CompileResult{}, fmt.Errorf("backend produced no image: %w", err)
	}
	return CompileResult{Image: image}, nil
}
