// Package dispatch selects, for every exported function of a loaded
// artifact, the best compiled variant the running CPU can execute, and
// binds the chosen symbols to addresses in the mapped image.
//
// Selection is per variant group: among the variants whose required feature
// set the host satisfies, the one with the highest specificity wins; on a
// tie the variant inserted first at manifest build time wins. The baseline
// variant makes every group resolvable on any host.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/fatlib/fatlib/features"
	"github.com/fatlib/fatlib/loader"
	"github.com/fatlib/fatlib/manifest"
)

var (
	// ErrMissingSymbol means the image lacks a symbol the manifest
	// promises. The artifact is malformed; the load is aborted.
	ErrMissingSymbol = errors.New("image is missing a symbol promised by the manifest")

	// ErrUnsupportedFeature means no variant in a group, not even a
	// baseline, satisfies the host. Unreachable for manifests that pass
	// Finalize validation; seeing it indicates a packaging bug.
	ErrUnsupportedFeature = errors.New("no variant satisfies the host feature set")
)

type tableKey struct {
	name string
	sig  manifest.Signature
}

type resolved struct {
	variant *manifest.Variant
	addr    uintptr
}

// ResolvedTable maps every exported (name, signature) pair of one loaded
// artifact to its selected variant and bound address. It is immutable after
// Bind and safe for concurrent readers.
type ResolvedTable struct {
	identity    manifest.Identity
	specialized bool
	host        features.Set
	entries     map[tableKey]resolved
}

// Bind resolves every variant group in m against the host feature set and
// the mapped image. It fails with ErrMissingSymbol if the image lacks a
// selected symbol, and with ErrUnsupportedFeature if a group has no
// satisfiable variant.
func Bind(m *manifest.Manifest, img loader.Image, host features.Set) (*ResolvedTable, error) {
	t := &ResolvedTable{
		identity:    m.Identity(),
		specialized: m.Specialized(),
		host:        host,
		entries:     make(map[tableKey]resolved, len(m.Groups())),
	}

	for _, g := range m.Groups() {
		v := Select(g, host)
		if v == nil {
			return nil, fmt.Errorf("%q %s: %w", g.Name, g.Signature, ErrUnsupportedFeature)
		}

		addr, err := img.Symbol(v.Symbol)
		if err != nil {
			if errors.Is(err, loader.ErrNotFound) {
				return nil, fmt.Errorf("%q %s: symbol %q: %w", g.Name, g.Signature, v.Symbol, ErrMissingSymbol)
			}
			return nil, fmt.Errorf("%q %s: resolve %q: %w", g.Name, g.Signature, v.Symbol, err)
		}

		slog.Debug("bound variant",
			"name", g.Name,
			"signature", g.Signature,
			"features", v.Requires.String(),
			"symbol", v.Symbol)
		t.entries[tableKey{g.Name, g.Signature}] = resolved{variant: v, addr: addr}
	}
	return t, nil
}

// Select returns the best variant of the group for the host: maximal
// specificity among satisfied variants, first inserted wins ties. Returns
// nil when nothing satisfies, which a well-formed group (baseline present)
// never produces.
func Select(g *manifest.Group, host features.Set) *manifest.Variant {
	var best *manifest.Variant
	for _, v := range g.Variants {
		if !features.Satisfies(host, v.Requires) {
			continue
		}
		// strictly greater keeps the first-inserted variant on ties
		if best == nil || features.Specificity(v.Requires) > features.Specificity(best.Requires) {
			best = v
		}
	}
	return best
}

// Identity returns the identity of the manifest this table was bound from.
func (t *ResolvedTable) Identity() manifest.Identity { return t.identity }

// Specialized reports whether the bound artifact was a specialized one.
func (t *ResolvedTable) Specialized() bool { return t.specialized }

// Host returns the feature set the table was resolved against.
func (t *ResolvedTable) Host() features.Set { return t.host }

// Len returns the number of resolved (name, signature) pairs.
func (t *ResolvedTable) Len() int { return len(t.entries) }

// Selected returns the variant chosen for an exported name and signature.
func (t *ResolvedTable) Selected(name string, sig manifest.Signature) (*manifest.Variant, bool) {
	r, ok := t.entries[tableKey{name, sig}]
	return r.variant, ok
}

// Addr returns the bound address for an exported name and signature.
func (t *ResolvedTable) Addr(name string, sig manifest.Signature) (uintptr, bool) {
	r, ok := t.entries[tableKey{name, sig}]
	return r.addr, ok
}

// Binding returns the typed callable binding for an exported name and
// signature.
func (t *ResolvedTable) Binding(name string, sig manifest.Signature) (*Binding, bool) {
	r, ok := t.entries[tableKey{name, sig}]
	if !ok {
		return nil, false
	}
	return &Binding{Signature: sig, Addr: r.addr}, true
}
