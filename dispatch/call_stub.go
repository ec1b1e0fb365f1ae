//go:build !((linux || darwin) && cgo)

package dispatch

func call(addr uintptr, args []uint64) (uint64, error) {
	return 0, ErrUncallable
}
