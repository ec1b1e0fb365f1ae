package dispatch

import (
	"errors"
	"fmt"

	"github.com/fatlib/fatlib/manifest"
)

// ErrUncallable is returned by Binding.Call when the running platform has
// no foreign call support or the signature's arity exceeds what the static
// trampolines cover.
var ErrUncallable = errors.New("binding is not callable on this platform")

// maxCallArity is the highest parameter count the static trampolines
// support.
const maxCallArity = 6

// Binding is a typed callable for one resolved export: a signature plus the
// bound machine address. It is a fixed, static construction; no code is
// generated at runtime. Arguments and results are passed as 64-bit words
// with the interpretation fixed by the Signature.
type Binding struct {
	Signature manifest.Signature
	Addr      uintptr
}

// Call invokes the bound function with the given word arguments. The
// argument count must match the signature's arity.
func (b *Binding) Call(args ...uint64) (uint64, error) {
	arity := b.Signature.Arity()
	if arity < 0 {
		return 0, fmt.Errorf("malformed signature %q", b.Signature)
	}
	if len(args) != arity {
		return 0, fmt.Errorf("%s: got %d arguments, want %d", b.Signature, len(args), arity)
	}
	if arity > maxCallArity {
		return 0, fmt.Errorf("%s: arity %d: %w", b.Signature, arity, ErrUncallable)
	}
	return call(b.Addr, args)
}
