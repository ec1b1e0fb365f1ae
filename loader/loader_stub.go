//go:build !((linux || darwin) && cgo)

package loader

// System returns the platform dynamic loader. This build has none.
func System() Loader {
	return unsupported{}
}

type unsupported struct{}

func (unsupported) Open(path string) (Image, error) {
	return nil, ErrUnsupportedPlatform
}
