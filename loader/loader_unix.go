//go:build (linux || darwin) && cgo

package loader

/*
#cgo linux LDFLAGS: -ldl

#include <dlfcn.h>
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

// System returns the platform dynamic loader.
func System() Loader {
	return dlLoader{}
}

type dlLoader struct{}

// dlerror reports failures process-wide, so serialize dl* calls.
var dlMutex sync.Mutex

func (dlLoader) Open(path string) (Image, error) {
	dlMutex.Lock()
	defer dlMutex.Unlock()

	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	handle := C.dlopen(cpath, C.RTLD_LAZY|C.RTLD_LOCAL)
	if handle == nil {
		return nil, fmt.Errorf("dlopen %s: %s", path, C.GoString(C.dlerror()))
	}
	return &dlImage{handle: handle, path: path}, nil
}

type dlImage struct {
	handle unsafe.Pointer
	path   string
}

func (img *dlImage) Symbol(name string) (uintptr, error) {
	dlMutex.Lock()
	defer dlMutex.Unlock()

	if img.handle == nil {
		return 0, fmt.Errorf("%s: image closed", img.path)
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	// A symbol can legitimately resolve to address zero, so clear and
	// re-check dlerror instead of testing the pointer.
	C.dlerror()
	addr := C.dlsym(img.handle, cname)
	if msg := C.dlerror(); msg != nil {
		return 0, fmt.Errorf("%s: %q: %w", img.path, name, ErrNotFound)
	}
	return uintptr(addr), nil
}

func (img *dlImage) Close() error {
	dlMutex.Lock()
	defer dlMutex.Unlock()

	if img.handle == nil {
		return nil
	}
	if C.dlclose(img.handle) != 0 {
		return fmt.Errorf("dlclose %s: %s", img.path, C.GoString(C.dlerror()))
	}
	img.handle = nil
	return nil
}
