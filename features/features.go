// Package features models CPU capability sets and the partial order used to
// pick the best compiled variant of a function for a given host.
//
// A Set is an ordered list of lower-case capability flag names such as
// "avx2" or "neon". The empty set is the universal baseline: every host
// satisfies it. Sets form a partial order under superset inclusion, which is
// what Satisfies implements; Specificity is only ever a tie-break between
// variants that are already known to be satisfied.
package features

import (
	"sort"
	"strings"
)

// Set is an ordered collection of CPU capability flags. Flags are
// lower-case and duplicate-free; use New or Parse to build one.
type Set []string

// New returns a normalized Set from the given flags. Flags are lower-cased,
// trimmed, and de-duplicated while preserving first-seen order.
func New(flags ...string) Set {
	s := make(Set, 0, len(flags))
	seen := make(map[string]struct{}, len(flags))
	for _, f := range flags {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		s = append(s, f)
	}
	return s
}

// Parse builds a Set from a comma separated flag list, e.g. "avx,avx2".
func Parse(spec string) Set {
	return New(strings.Split(spec, ",")...)
}

// Has reports whether the set contains the given flag.
func (s Set) Has(flag string) bool {
	flag = strings.ToLower(flag)
	for _, f := range s {
		if f == flag {
			return true
		}
	}
	return false
}

// Satisfies reports whether host provides every flag in required. An empty
// required set is satisfied by any host, including the empty one.
func Satisfies(host, required Set) bool {
	for _, f := range required {
		if !host.Has(f) {
			return false
		}
	}
	return true
}

// Specificity is the number of flags in the set. It is monotonic in set
// size and used only to rank satisfied variants against each other, never
// as a correctness criterion.
func Specificity(s Set) int {
	return len(s)
}

// Equal reports whether two sets contain the same flags, ignoring order.
func Equal(a, b Set) bool {
	if len(a) != len(b) {
		return false
	}
	for _, f := range a {
		if !b.Has(f) {
			return false
		}
	}
	return true
}

// Key returns a canonical string usable as a map key: the flags sorted and
// joined with "+". The empty set yields "".
func (s Set) Key() string {
	if len(s) == 0 {
		return ""
	}
	sorted := make([]string, len(s))
	copy(sorted, s)
	sort.Strings(sorted)
	return strings.Join(sorted, "+")
}

// String renders the set in its insertion order, comma separated. The empty
// set renders as "baseline".
func (s Set) String() string {
	if len(s) == 0 {
		return "baseline"
	}
	return strings.Join(s, ",")
}
