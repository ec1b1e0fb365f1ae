// Package manifest defines the export table of a fatlib artifact: the
// mapping from exported names and signatures to the compiled variants of
// each function, plus the artifact's identity and its embedded IR payload.
//
// A manifest is assembled through a Builder at build time and is immutable
// once finalized. Insertion order of variants is preserved all the way
// through serialization; dispatch relies on it to break specificity ties
// deterministically.
package manifest

import (
	"fmt"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/google/uuid"

	"github.com/fatlib/fatlib/features"
)

// Identity is an opaque token naming one build of one library's logical
// symbol set. Two artifacts are interchangeable only if their identities
// are equal; a specialized artifact carries its generic parent's identity.
type Identity string

// NewIdentity returns a fresh globally unique Identity.
func NewIdentity() Identity {
	return Identity(uuid.NewString())
}

// Variant is one compiled implementation of one (name, signature) pair.
// Fields are read-only once the owning manifest is finalized; resolved
// addresses live in the dispatch table, not here.
type Variant struct {
	// Symbol is the compiled symbol name to resolve in the loaded image.
	Symbol string

	// Requires is the CPU feature set this variant needs. Empty means
	// baseline: runnable on any host of the target architecture.
	Requires features.Set

	// Provenance is opaque build metadata (originating module, source
	// file). See DecodeProvenance for the typed view.
	Provenance map[string]any
}

// Baseline reports whether the variant requires no CPU features.
func (v *Variant) Baseline() bool {
	return len(v.Requires) == 0
}

// Group is the ordered set of all variants for one (exported name,
// signature) pair. A finalized group is non-empty and contains a baseline.
type Group struct {
	Name      string
	Signature Signature
	Variants  []*Variant
}

// Baseline returns the group's baseline variant, or nil if absent. Absence
// is a packaging bug that Finalize rejects.
func (g *Group) Baseline() *Variant {
	for _, v := range g.Variants {
		if v.Baseline() {
			return v
		}
	}
	return nil
}

// Manifest is the immutable export table of one artifact.
type Manifest struct {
	identity    Identity
	specialized bool
	groups      []*Group
	index       map[groupKey]*Group
	ir          []byte
}

type groupKey struct {
	name string
	sig  Signature
}

// Identity returns the artifact identity.
func (m *Manifest) Identity() Identity { return m.identity }

// Specialized reports whether this manifest was produced by recompiling an
// artifact's IR for an exact target.
func (m *Manifest) Specialized() bool { return m.specialized }

// IR returns the embedded IR payload. Callers must not modify it.
func (m *Manifest) IR() []byte { return m.ir }

// Groups returns the variant groups in insertion order.
func (m *Manifest) Groups() []*Group { return m.groups }

// Lookup returns the variant group for an exported name and signature.
func (m *Manifest) Lookup(name string, sig Signature) (*Group, bool) {
	g, ok := m.index[groupKey{name, sig}]
	return g, ok
}

// Builder assembles a Manifest. Not safe for concurrent use.
type Builder struct {
	groups      *linkedhashmap.Map // groupKey -> *Group
	specialized bool
	frozen      bool
}

// NewBuilder returns an empty manifest builder.
func NewBuilder() *Builder {
	return &Builder{groups: linkedhashmap.New()}
}

// SetSpecialized marks the manifest under construction as the product of a
// specialization run.
func (b *Builder) SetSpecialized(v bool) *Builder {
	b.specialized = v
	return b
}

// AddVariant registers a compiled variant for (name, sig). The variant's
// required feature set may be empty, which makes it the group's baseline.
// Returns ErrDuplicateVariant if a variant with the same feature set is
// already registered for the pair, and ErrFrozenManifest after Finalize.
func (b *Builder) AddVariant(name string, sig Signature, symbol string, requires features.Set, provenance map[string]any) (*Variant, error) {
	if b.frozen {
		return nil, ErrFrozenManifest
	}
	if name == "" || sig == "" || symbol == "" {
		return nil, fmt.Errorf("add variant %q %q: name, signature, and symbol are required", name, sig)
	}

	key := groupKey{name, sig}
	var group *Group
	if g, ok := b.groups.Get(key); ok {
		group = g.(*Group)
	} else {
		group = &Group{Name: name, Signature: sig}
		b.groups.Put(key, group)
	}

	for _, existing := range group.Variants {
		if features.Equal(existing.Requires, requires) {
			return nil, fmt.Errorf("%q %s [%s]: %w", name, sig, requires, ErrDuplicateVariant)
		}
	}

	v := &Variant{
		Symbol:     symbol,
		Requires:   features.New(requires...),
		Provenance: provenance,
	}
	group.Variants = append(group.Variants, v)
	return v, nil
}

// Finalize validates the export table, attaches the embedded IR payload,
// and freezes the builder. A fresh Identity is assigned unless id is given
// (the specialization path carries the parent's identity forward). Any
// later AddVariant fails with ErrFrozenManifest.
func (b *Builder) Finalize(ir []byte, id ...Identity) (*Manifest, error) {
	if b.frozen {
		return nil, ErrFrozenManifest
	}

	m := &Manifest{
		identity:    NewIdentity(),
		specialized: b.specialized,
		index:       make(map[groupKey]*Group, b.groups.Size()),
		ir:          ir,
	}
	if len(id) > 0 && id[0] != "" {
		m.identity = id[0]
	}

	it := b.groups.Iterator()
	for it.Next() {
		g := it.Value().(*Group)
		if g.Baseline() == nil {
			return nil, fmt.Errorf("%q %s: %w", g.Name, g.Signature, ErrNoBaseline)
		}
		m.groups = append(m.groups, g)
		m.index[it.Key().(groupKey)] = g
	}

	b.frozen = true
	return m, nil
}
