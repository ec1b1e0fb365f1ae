// Package loader defines the host loader contract fatlib uses to map a
// compiled image into the process and resolve symbol addresses, plus the
// platform implementation backed by dlopen.
package loader

import "errors"

var (
	// ErrNotFound is returned by Image.Symbol when the image does not
	// export the requested symbol.
	ErrNotFound = errors.New("symbol not found")

	// ErrUnsupportedPlatform is returned by System().Open on platforms
	// without a dynamic loader implementation.
	ErrUnsupportedPlatform = errors.New("dynamic loading not supported on this platform")
)

// Image is a shared library mapped into the process.
type Image interface {
	// Symbol resolves an exported symbol to its address in the mapped
	// image. Returns ErrNotFound if the image does not export it.
	Symbol(name string) (uintptr, error)

	// Close unmaps the image. Addresses resolved from it are invalid
	// afterwards.
	Close() error
}

// Loader opens compiled images. Implementations: System for the running
// platform's dynamic loader, or a test double.
type Loader interface {
	Open(path string) (Image, error)
}
