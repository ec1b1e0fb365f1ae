// Package loadertest provides an in-memory loader double for resolver and
// load-manager tests. Images are keyed by file base name because the load
// manager extracts images into per-run temp directories.
package loadertest

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fatlib/fatlib/loader"
)

// Image is a fake mapped image exposing a fixed symbol table.
type Image struct {
	Symbols map[string]uintptr

	mu     sync.Mutex
	closed bool
}

func (img *Image) Symbol(name string) (uintptr, error) {
	addr, ok := img.Symbols[name]
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, loader.ErrNotFound)
	}
	return addr, nil
}

func (img *Image) Close() error {
	img.mu.Lock()
	defer img.mu.Unlock()
	img.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (img *Image) Closed() bool {
	img.mu.Lock()
	defer img.mu.Unlock()
	return img.closed
}

// Loader serves fake images by the base name of the opened path.
type Loader struct {
	Images map[string]*Image

	mu     sync.Mutex
	opened []string
}

func (l *Loader) Open(path string) (loader.Image, error) {
	l.mu.Lock()
	l.opened = append(l.opened, path)
	l.mu.Unlock()

	img, ok := l.Images[filepath.Base(path)]
	if !ok {
		return nil, fmt.Errorf("no fake image for %s", path)
	}
	return img, nil
}

// Opened returns the paths passed to Open, in order.
func (l *Loader) Opened() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.opened...)
}
