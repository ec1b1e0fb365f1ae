// Package artifact reads and writes fatlib containers: single distributable
// files that carry a compiled shared library image, the export manifest
// describing its CPU-feature variants, and the compressed IR payload the
// library was built from.
//
// Container layout (little-endian, version 1):
//
//	magic   [4]byte "FAT1"
//	version uint32
//	flags   uint32 (bit 0: specialized)
//	section manifest: uint64 length + CBOR bytes
//	section image:    uint64 length + zstd-compressed shared library
//	section ir:       uint64 length + zstd-compressed IR payload
//	digest  [32]byte sha256 over everything above
package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/fatlib/fatlib/manifest"
)

var magic = [4]byte{'F', 'A', 'T', '1'}

const formatVersion uint32 = 1

const flagSpecialized uint32 = 1 << 0

// ErrInvalidArtifact wraps all container parse failures: bad magic,
// unsupported version, truncated sections, digest mismatch.
var ErrInvalidArtifact = errors.New("invalid artifact")

// Artifact is one loadable unit: compiled image, export manifest, and
// embedded IR, read from or destined for a container file.
type Artifact struct {
	// Path is where the container lives on disk. Empty for artifacts not
	// yet written.
	Path string

	// Manifest is the export table, including identity and IR payload.
	Manifest *manifest.Manifest

	// Image is the raw shared library, decompressed.
	Image []byte
}

// IR returns the embedded IR payload.
func (a *Artifact) IR() []byte {
	return a.Manifest.IR()
}

// Identity returns the artifact identity from its manifest.
func (a *Artifact) Identity() manifest.Identity {
	return a.Manifest.Identity()
}

// Specialized reports whether this artifact was produced by specialization.
func (a *Artifact) Specialized() bool {
	return a.Manifest.Specialized()
}

type container struct {
	Version uint32
	Flags   uint32
}

// Write serializes the artifact to path. Publication is atomic: the
// container is assembled in a sibling partial file and renamed into place
// only once fully written, so readers never observe a truncated artifact.
func Write(path string, a *Artifact) error {
	var buf bytes.Buffer
	if err := encode(&buf, a); err != nil {
		return err
	}

	partial := path + "-partial"
	if err := os.WriteFile(partial, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	if err := os.Rename(partial, path); err != nil {
		os.Remove(partial)
		return fmt.Errorf("publish artifact %s: %w", path, err)
	}
	return nil
}

func encode(w io.Writer, a *Artifact) error {
	mdata, err := a.Manifest.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	defer enc.Close()
	image := enc.EncodeAll(a.Image, nil)
	ir := enc.EncodeAll(a.Manifest.IR(), nil)

	digest := sha256.New()
	out := io.MultiWriter(w, digest)

	if _, err := out.Write(magic[:]); err != nil {
		return err
	}
	hdr := container{Version: formatVersion}
	if a.Manifest.Specialized() {
		hdr.Flags |= flagSpecialized
	}
	if err := binary.Write(out, binary.LittleEndian, hdr); err != nil {
		return err
	}
	for _, section := range [][]byte{mdata, image, ir} {
		if err := binary.Write(out, binary.LittleEndian, uint64(len(section))); err != nil {
			return err
		}
		if _, err := out.Write(section); err != nil {
			return err
		}
	}
	if _, err := w.Write(digest.Sum(nil)); err != nil {
		return err
	}
	return nil
}

// Read parses the container at path, verifying magic, version, and digest.
func Read(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}

	a, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.Path = path
	return a, nil
}

func decode(data []byte) (*Artifact, error) {
	r := bytes.NewReader(data)

	var m [4]byte
	if _, err := io.ReadFull(r, m[:]); err != nil || m != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidArtifact)
	}
	var hdr container
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: truncated header", ErrInvalidArtifact)
	}
	if hdr.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidArtifact, hdr.Version)
	}

	sections := make([][]byte, 3)
	for i := range sections {
		var n uint64
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("%w: truncated section header", ErrInvalidArtifact)
		}
		if n > uint64(r.Len()) {
			return nil, fmt.Errorf("%w: section length %d exceeds remaining data", ErrInvalidArtifact, n)
		}
		sections[i] = make([]byte, n)
		if _, err := io.ReadFull(r, sections[i]); err != nil {
			return nil, fmt.Errorf("%w: truncated section", ErrInvalidArtifact)
		}
	}

	var digest [sha256.Size]byte
	if _, err := io.ReadFull(r, digest[:]); err != nil {
		return nil, fmt.Errorf("%w: missing digest", ErrInvalidArtifact)
	}
	if digest != sha256.Sum256(data[:len(data)-sha256.Size-r.Len()]) {
		return nil, fmt.Errorf("%w: digest mismatch", ErrInvalidArtifact)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	image, err := dec.DecodeAll(sections[1], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: image section: %v", ErrInvalidArtifact, err)
	}
	ir, err := dec.DecodeAll(sections[2], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: ir section: %v", ErrInvalidArtifact, err)
	}

	man, err := manifest.Unmarshal(sections[0], ir)
	if err != nil {
		return nil, err
	}
	return &Artifact{Manifest: man, Image: image}, nil
}

// SpecializedPath derives the conventional location of the specialized
// counterpart of the artifact at path: the same directory and extension
// with "_specialized" appended to the base name. The load manager consults
// this location on every fresh load.
func SpecializedPath(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	return filepath.Join(filepath.Dir(path), base+"_specialized"+ext)
}

// ImageExt is the shared library extension for the running platform.
func ImageExt() string {
	switch runtime.GOOS {
	case "darwin":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

// ExtractImage writes the artifact's shared library image into dir and
// returns its path, ready for the host loader to open. Existing files are
// overwritten; extraction is idempotent.
func (a *Artifact) ExtractImage(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir %s: %w", dir, err)
	}
	ext := filepath.Ext(a.Path)
	base := strings.TrimSuffix(filepath.Base(a.Path), ext)
	if base == "" {
		base = string(a.Identity())
	}
	dest := filepath.Join(dir, base+ImageExt())
	if err := os.WriteFile(dest, a.Image, 0o755); err != nil {
		return "", fmt.Errorf("extract image %s: %w", dest, err)
	}
	return dest, nil
}
