// Package library is the load manager: it opens a fatlib artifact, binds
// the best variant of every export for the running CPU, and prefers an
// identity-matched specialized artifact when one exists on disk.
//
// Load states for one artifact path:
//
//	Unloaded -> GenericLoaded -> Resolved
//	Resolved -> SpecializedCandidate -> SpecializedLoaded | RevertedToGeneric
//
// The first load of a path runs the whole state machine exactly once per
// process; concurrent callers share that run and every later Load returns
// the cached result. The resolved table is immutable once published, so
// calls need no further locking.
package library

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/fatlib/fatlib/artifact"
	"github.com/fatlib/fatlib/discover"
	"github.com/fatlib/fatlib/dispatch"
	"github.com/fatlib/fatlib/envconfig"
	"github.com/fatlib/fatlib/features"
	"github.com/fatlib/fatlib/loader"
	"github.com/fatlib/fatlib/manifest"
)

// Options tune a Load. The zero value is the production configuration.
type Options struct {
	// Loader opens compiled images; defaults to loader.System().
	Loader loader.Loader

	// Host overrides the detected host feature set.
	Host features.Set

	// ImageDir is where compiled images are extracted before loading;
	// defaults to FATLIB_TMPDIR or a fresh temp directory.
	ImageDir string

	// NoSpecialize skips the specialized-artifact check, as does
	// FATLIB_NOSPECIALIZE.
	NoSpecialize bool
}

// Library is one loaded artifact with its resolved dispatch table.
type Library struct {
	path        string
	art         *artifact.Artifact
	table       *dispatch.ResolvedTable
	image       loader.Image
	specialized bool
}

var (
	loadGroup singleflight.Group

	loadedMu sync.Mutex
	loaded   = make(map[string]*Library)
)

// Load runs the state machine for the artifact at path, or returns the
// library already resolved for it in this process. Concurrent first-time
// loads of the same path are serialized; none observes a partial table.
// Fatal errors (unreadable artifact, missing symbol) leave nothing cached,
// so a later Load may retry.
func Load(path string, opts Options) (*Library, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	loadedMu.Lock()
	if lib, ok := loaded[abs]; ok {
		loadedMu.Unlock()
		return lib, nil
	}
	loadedMu.Unlock()

	v, err, _ := loadGroup.Do(abs, func() (any, error) {
		lib, err := load(abs, opts)
		if err != nil {
			return nil, err
		}
		loadedMu.Lock()
		loaded[abs] = lib
		loadedMu.Unlock()
		return lib, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Library), nil
}

func load(path string, opts Options) (*Library, error) {
	ld := opts.Loader
	if ld == nil {
		ld = loader.System()
	}
	host := opts.Host
	if host == nil {
		host = discover.Host()
	}

	// Unloaded -> GenericLoaded
	art, err := artifact.Read(path)
	if err != nil {
		return nil, err
	}
	img, err := openImage(art, ld, opts)
	if err != nil {
		return nil, err
	}

	// GenericLoaded -> Resolved
	table, err := dispatch.Bind(art.Manifest, img, host)
	if err != nil {
		img.Close()
		return nil, err
	}
	lib := &Library{path: path, art: art, table: table, image: img}

	// Resolved -> SpecializedCandidate
	if opts.NoSpecialize || envconfig.NoSpecialize {
		return lib, nil
	}
	spath := specializedPath(path)
	if _, err := os.Stat(spath); err != nil {
		return lib, nil
	}

	spec, err := artifact.Read(spath)
	if err != nil {
		// a candidate we cannot even parse is treated like a stale one
		slog.Warn("ignoring unreadable specialized artifact",
			"artifact", path, "specialized", spath, "error", err)
		return lib, nil
	}

	// SpecializedCandidate -> RevertedToGeneric
	if spec.Identity() != art.Identity() {
		slog.Warn("specialized artifact identity does not match, specialization will not be used",
			"artifact", path,
			"specialized", spath,
			"identity", art.Identity(),
			"specialized_identity", spec.Identity())
		return lib, nil
	}

	// SpecializedCandidate -> SpecializedLoaded
	simg, err := openImage(spec, ld, opts)
	if err != nil {
		img.Close()
		return nil, err
	}
	stable, err := dispatch.Bind(spec.Manifest, simg, host)
	if err != nil {
		// the candidate promised symbols it does not have; the pairing
		// is malformed and the load fails rather than guessing
		simg.Close()
		img.Close()
		return nil, err
	}

	img.Close()
	slog.Info("loaded specialized artifact", "artifact", path, "specialized", spath, "identity", spec.Identity())
	return &Library{path: path, art: spec, table: stable, image: simg, specialized: true}, nil
}

func openImage(art *artifact.Artifact, ld loader.Loader, opts Options) (loader.Image, error) {
	dir := opts.ImageDir
	if dir == "" {
		dir = envconfig.TmpDir
	}
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "fatlib-")
		if err != nil {
			return nil, err
		}
	}
	imgPath, err := art.ExtractImage(dir)
	if err != nil {
		return nil, err
	}
	img, err := ld.Open(imgPath)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", imgPath, err)
	}
	return img, nil
}

func specializedPath(path string) string {
	spath := artifact.SpecializedPath(path)
	if envconfig.CacheDir != "" {
		spath = filepath.Join(envconfig.CacheDir, filepath.Base(spath))
	}
	return spath
}

// Path returns the generic artifact path this library was loaded from.
func (l *Library) Path() string { return l.path }

// Identity returns the loaded artifact's identity.
func (l *Library) Identity() manifest.Identity { return l.art.Identity() }

// Specialized reports whether the load ended in SpecializedLoaded.
func (l *Library) Specialized() bool { return l.specialized }

// Artifact returns the artifact actually bound: the generic one, or the
// specialized one when the identity check passed.
func (l *Library) Artifact() *artifact.Artifact { return l.art }

// Table returns the resolved dispatch table.
func (l *Library) Table() *dispatch.ResolvedTable { return l.table }

// IR returns the embedded IR payload of the bound artifact.
func (l *Library) IR() []byte { return l.art.IR() }

// Resolve returns the callable binding for an exported name and signature.
func (l *Library) Resolve(name string, sig manifest.Signature) (*dispatch.Binding, bool) {
	return l.table.Binding(name, sig)
}
