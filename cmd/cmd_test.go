package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatlib/fatlib/artifact"
	"github.com/fatlib/fatlib/manifest"
)

func writeInputs(t *testing.T, dir string) (image, ir, exports string) {
	t.Helper()
	image = filepath.Join(dir, "mathlib.so")
	ir = filepath.Join(dir, "mathlib.bc")
	exports = filepath.Join(dir, "exports.json")

	require.NoError(t, os.WriteFile(image, []byte("fake image"), 0o644))
	require.NoError(t, os.WriteFile(ir, []byte("fake bitcode"), 0o644))

	data, err := json.Marshal(exportsFile{Exports: []exportEntry{
		{Name: "add", Signature: "int64(int64,int64)", Symbol: "_add", Module: "mathlib", Source: "add.c"},
		{Name: "add", Signature: "int64(int64,int64)", Symbol: "_add_avx2", Features: "avx2"},
	}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(exports, data, 0o644))
	return image, ir, exports
}

func TestPackCommand(t *testing.T) {
	dir := t.TempDir()
	image, ir, exports := writeInputs(t, dir)
	out := filepath.Join(dir, "mathlib.fat")

	cmd := packCmd()
	cmd.SetArgs([]string{"--image", image, "--ir", ir, "--exports", exports, "--out", out})
	require.NoError(t, cmd.Execute())

	a, err := artifact.Read(out)
	require.NoError(t, err)
	assert.NotEmpty(t, a.Identity())
	assert.Equal(t, []byte("fake bitcode"), a.IR())

	g, ok := a.Manifest.Lookup("add", manifest.Sig("int64", "int64", "int64"))
	require.True(t, ok)
	assert.Len(t, g.Variants, 2)
}

func TestPackRejectsMissingBaseline(t *testing.T) {
	dir := t.TempDir()
	image, ir, _ := writeInputs(t, dir)

	exports := filepath.Join(dir, "nobaseline.json")
	data, err := json.Marshal(exportsFile{Exports: []exportEntry{
		{Name: "add", Signature: "int64(int64,int64)", Symbol: "_add_avx2", Features: "avx2"},
	}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(exports, data, 0o644))

	cmd := packCmd()
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{"--image", image, "--ir", ir, "--exports", exports, "--out", filepath.Join(dir, "x.fat")})
	assert.ErrorIs(t, cmd.Execute(), manifest.ErrNoBaseline)
}

func TestVerifyCommand(t *testing.T) {
	dir := t.TempDir()
	image, ir, exports := writeInputs(t, dir)
	out := filepath.Join(dir, "mathlib.fat")

	pack := packCmd()
	pack.SetArgs([]string{"--image", image, "--ir", ir, "--exports", exports, "--out", out})
	require.NoError(t, pack.Execute())

	// a matching specialized copy verifies cleanly
	a, err := artifact.Read(out)
	require.NoError(t, err)
	require.NoError(t, artifact.Write(artifact.SpecializedPath(out), a))

	verify := verifyCmd()
	verify.SetArgs([]string{out})
	assert.NoError(t, verify.Execute())

	// a stale one fails
	stale := packCmd()
	stale.SetArgs([]string{"--image", image, "--ir", ir, "--exports", exports, "--out", artifact.SpecializedPath(out)})
	require.NoError(t, stale.Execute())

	verify = verifyCmd()
	verify.SetArgs([]string{out})
	verify.SilenceErrors = true
	assert.Error(t, verify.Execute())
}
