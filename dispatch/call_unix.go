//go:build (linux || darwin) && cgo

package dispatch

/*
#include <stdint.h>

typedef uint64_t (*fatlib_fn0)(void);
typedef uint64_t (*fatlib_fn1)(uint64_t);
typedef uint64_t (*fatlib_fn2)(uint64_t, uint64_t);
typedef uint64_t (*fatlib_fn3)(uint64_t, uint64_t, uint64_t);
typedef uint64_t (*fatlib_fn4)(uint64_t, uint64_t, uint64_t, uint64_t);
typedef uint64_t (*fatlib_fn5)(uint64_t, uint64_t, uint64_t, uint64_t, uint64_t);
typedef uint64_t (*fatlib_fn6)(uint64_t, uint64_t, uint64_t, uint64_t, uint64_t, uint64_t);

static uint64_t fatlib_call(uintptr_t addr, uint64_t *args, int n) {
	switch (n) {
	case 0: return ((fatlib_fn0)addr)();
	case 1: return ((fatlib_fn1)addr)(args[0]);
	case 2: return ((fatlib_fn2)addr)(args[0], args[1]);
	case 3: return ((fatlib_fn3)addr)(args[0], args[1], args[2]);
	case 4: return ((fatlib_fn4)addr)(args[0], args[1], args[2], args[3]);
	case 5: return ((fatlib_fn5)addr)(args[0], args[1], args[2], args[3], args[4]);
	default: return ((fatlib_fn6)addr)(args[0], args[1], args[2], args[3], args[4], args[5]);
	}
}
*/
import "C"

import "unsafe"

func call(addr uintptr, args []uint64) (uint64, error) {
	// the trampoline indexes args unconditionally up to arity
	buf := make([]uint64, maxCallArity)
	copy(buf, args)
	ret := C.fatlib_call(C.uintptr_t(addr), (*C.uint64_t)(unsafe.Pointer(&buf[0])), C.int(len(args)))
	return uint64(ret), nil
}
