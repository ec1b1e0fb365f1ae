package library

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatlib/fatlib/artifact"
	"github.com/fatlib/fatlib/dispatch"
	"github.com/fatlib/fatlib/features"
	"github.com/fatlib/fatlib/loader/loadertest"
	"github.com/fatlib/fatlib/manifest"
)

var sigAdd = manifest.Sig("int64", "int64", "int64")

func writeGeneric(t *testing.T, dir string, id manifest.Identity) string {
	t.Helper()
	b := manifest.NewBuilder()
	_, err := b.AddVariant("add", sigAdd, "_add", features.New(), nil)
	require.NoError(t, err)
	_, err = b.AddVariant("add", sigAdd, "_add_avx2", features.New("avx2"), nil)
	require.NoError(t, err)
	m, err := b.Finalize([]byte("bitcode"), id)
	require.NoError(t, err)

	path := filepath.Join(dir, "mathlib.fat")
	require.NoError(t, artifact.Write(path, &artifact.Artifact{Manifest: m, Image: []byte("generic")}))
	return path
}

func writeSpecialized(t *testing.T, genericPath string, id manifest.Identity) string {
	t.Helper()
	b := manifest.NewBuilder().SetSpecialized(true)
	_, err := b.AddVariant("add", sigAdd, "_add", features.New(), nil)
	require.NoError(t, err)
	m, err := b.Finalize([]byte("bitcode"), id)
	require.NoError(t, err)

	path := artifact.SpecializedPath(genericPath)
	require.NoError(t, artifact.Write(path, &artifact.Artifact{Manifest: m, Image: []byte("tuned")}))
	return path
}

func fakeImages() (*loadertest.Image, *loadertest.Image, *loadertest.Loader) {
	generic := &loadertest.Image{Symbols: map[string]uintptr{
		"_add":      0x1000,
		"_add_avx2": 0x2000,
	}}
	tuned := &loadertest.Image{Symbols: map[string]uintptr{
		"_add": 0x9000,
	}}
	ld := &loadertest.Loader{Images: map[string]*loadertest.Image{
		"mathlib" + artifact.ImageExt():             generic,
		"mathlib_specialized" + artifact.ImageExt(): tuned,
	}}
	return generic, tuned, ld
}

type warnRecorder struct {
	mu    sync.Mutex
	warns []string
}

func (h *warnRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (h *warnRecorder) Handle(_ context.Context, r slog.Record) error {
	if r.Level == slog.LevelWarn {
		h.mu.Lock()
		h.warns = append(h.warns, r.Message)
		h.mu.Unlock()
	}
	return nil
}

func (h *warnRecorder) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *warnRecorder) WithGroup(string) slog.Handler      { return h }

func (h *warnRecorder) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.warns)
}

func captureWarnings(t *testing.T) *warnRecorder {
	t.Helper()
	rec := &warnRecorder{}
	prev := slog.Default()
	slog.SetDefault(slog.New(rec))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return rec
}

func TestLoadGeneric(t *testing.T) {
	t.Cleanup(resetLoaded)
	dir := t.TempDir()
	path := writeGeneric(t, dir, "A1")
	_, _, ld := fakeImages()

	lib, err := Load(path, Options{Loader: ld, Host: features.New("avx2", "avx512f"), ImageDir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, manifest.Identity("A1"), lib.Identity())
	assert.False(t, lib.Specialized())

	v, ok := lib.Table().Selected("add", sigAdd)
	require.True(t, ok)
	assert.Equal(t, "_add_avx2", v.Symbol)

	bnd, ok := lib.Resolve("add", sigAdd)
	require.True(t, ok)
	assert.Equal(t, uintptr(0x2000), bnd.Addr)
}

func TestLoadBaselineHost(t *testing.T) {
	t.Cleanup(resetLoaded)
	path := writeGeneric(t, t.TempDir(), "A1")
	_, _, ld := fakeImages()

	lib, err := Load(path, Options{Loader: ld, Host: features.New(), ImageDir: t.TempDir()})
	require.NoError(t, err)
	v, _ := lib.Table().Selected("add", sigAdd)
	assert.Equal(t, "_add", v.Symbol)
}

func TestLoadOncePerProcess(t *testing.T) {
	t.Cleanup(resetLoaded)
	path := writeGeneric(t, t.TempDir(), "A1")
	_, _, ld := fakeImages()
	opts := Options{Loader: ld, Host: features.New(), ImageDir: t.TempDir()}

	first, err := Load(path, opts)
	require.NoError(t, err)
	second, err := Load(path, opts)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, ld.Opened(), 1)
}

func TestConcurrentFirstLoads(t *testing.T) {
	t.Cleanup(resetLoaded)
	path := writeGeneric(t, t.TempDir(), "A1")
	_, _, ld := fakeImages()
	opts := Options{Loader: ld, Host: features.New("avx2"), ImageDir: t.TempDir()}

	var wg sync.WaitGroup
	libs := make([]*Library, 16)
	for i := range libs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lib, err := Load(path, opts)
			assert.NoError(t, err)
			libs[i] = lib
		}(i)
	}
	wg.Wait()

	for _, lib := range libs[1:] {
		assert.Same(t, libs[0], lib)
	}
	assert.Len(t, ld.Opened(), 1)
}

func TestSpecializedLoaded(t *testing.T) {
	t.Cleanup(resetLoaded)
	rec := captureWarnings(t)
	dir := t.TempDir()
	path := writeGeneric(t, dir, "A1")
	writeSpecialized(t, path, "A1")
	generic, _, ld := fakeImages()

	lib, err := Load(path, Options{Loader: ld, Host: features.New("avx2"), ImageDir: t.TempDir()})
	require.NoError(t, err)

	assert.True(t, lib.Specialized())
	assert.Equal(t, manifest.Identity("A1"), lib.Identity())
	assert.Equal(t, 0, rec.count())

	// the table is bound against the specialized image's symbols
	bnd, ok := lib.Resolve("add", sigAdd)
	require.True(t, ok)
	assert.Equal(t, uintptr(0x9000), bnd.Addr)

	// the generic image is released after the swap
	assert.True(t, generic.Closed())
	assert.Len(t, ld.Opened(), 2)
}

func TestRevertedToGeneric(t *testing.T) {
	t.Cleanup(resetLoaded)
	rec := captureWarnings(t)
	dir := t.TempDir()
	path := writeGeneric(t, dir, "A1")
	writeSpecialized(t, path, "A2")
	_, tuned, ld := fakeImages()

	lib, err := Load(path, Options{Loader: ld, Host: features.New("avx2"), ImageDir: t.TempDir()})
	require.NoError(t, err)

	assert.False(t, lib.Specialized())
	assert.Equal(t, manifest.Identity("A1"), lib.Identity())
	assert.Equal(t, 1, rec.count(), "stale specialization must warn exactly once")

	// generic bindings stay in effect; the stale image was never opened
	bnd, _ := lib.Resolve("add", sigAdd)
	assert.Equal(t, uintptr(0x2000), bnd.Addr)
	assert.False(t, tuned.Closed())
	assert.Len(t, ld.Opened(), 1)
}

func TestNoSpecializeOption(t *testing.T) {
	t.Cleanup(resetLoaded)
	dir := t.TempDir()
	path := writeGeneric(t, dir, "A1")
	writeSpecialized(t, path, "A1")
	_, _, ld := fakeImages()

	lib, err := Load(path, Options{Loader: ld, Host: features.New(), ImageDir: t.TempDir(), NoSpecialize: true})
	require.NoError(t, err)
	assert.False(t, lib.Specialized())
	assert.Len(t, ld.Opened(), 1)
}

func TestMissingSymbolFailsAndDoesNotCache(t *testing.T) {
	t.Cleanup(resetLoaded)
	path := writeGeneric(t, t.TempDir(), "A1")

	broken := &loadertest.Image{Symbols: map[string]uintptr{"_add": 0x1000}}
	ld := &loadertest.Loader{Images: map[string]*loadertest.Image{
		"mathlib" + artifact.ImageExt(): broken,
	}}
	opts := Options{Loader: ld, Host: features.New("avx2"), ImageDir: t.TempDir()}

	_, err := Load(path, opts)
	assert.ErrorIs(t, err, dispatch.ErrMissingSymbol)
	assert.True(t, broken.Closed())

	// nothing was cached; a retry with a complete image succeeds
	_, _, good := fakeImages()
	opts.Loader = good
	lib, err := Load(path, opts)
	require.NoError(t, err)
	assert.Equal(t, manifest.Identity("A1"), lib.Identity())
}

func TestUnreadableSpecializedCandidateWarnsAndReverts(t *testing.T) {
	t.Cleanup(resetLoaded)
	rec := captureWarnings(t)
	dir := t.TempDir()
	path := writeGeneric(t, dir, "A1")

	spath := artifact.SpecializedPath(path)
	require.NoError(t, os.WriteFile(spath, []byte("definitely not a container"), 0o644))
	_, _, ld := fakeImages()

	lib, err := Load(path, Options{Loader: ld, Host: features.New(), ImageDir: t.TempDir()})
	require.NoError(t, err)
	assert.False(t, lib.Specialized())
	assert.Equal(t, 1, rec.count())
}
