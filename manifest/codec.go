package manifest

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/fatlib/fatlib/features"
)

// Wire form of the export table. The IR payload is framed separately by
// the artifact container and re-attached on decode. Field order inside a
// group is the insertion order from manifest construction; decode preserves
// it so dispatch tie-breaking survives the round trip.

type variantWire struct {
	Symbol     string         `cbor:"symbol"`
	Requires   []string       `cbor:"requires,omitempty"`
	Provenance map[string]any `cbor:"provenance,omitempty"`
}

type groupWire struct {
	Name      string        `cbor:"name"`
	Signature string        `cbor:"signature"`
	Variants  []variantWire `cbor:"variants"`
}

type manifestWire struct {
	Identity    string      `cbor:"identity"`
	Specialized bool        `cbor:"specialized"`
	Exports     []groupWire `cbor:"exports"`
}

var encMode, _ = cbor.CoreDetEncOptions().EncMode()

// MarshalBinary encodes the export table, identity, and specialized flag
// as deterministic CBOR. The IR payload is not included.
func (m *Manifest) MarshalBinary() ([]byte, error) {
	w := manifestWire{
		Identity:    string(m.identity),
		Specialized: m.specialized,
		Exports:     make([]groupWire, 0, len(m.groups)),
	}
	for _, g := range m.groups {
		gw := groupWire{
			Name:      g.Name,
			Signature: string(g.Signature),
			Variants:  make([]variantWire, 0, len(g.Variants)),
		}
		for _, v := range g.Variants {
			gw.Variants = append(gw.Variants, variantWire{
				Symbol:     v.Symbol,
				Requires:   v.Requires,
				Provenance: v.Provenance,
			})
		}
		w.Exports = append(w.Exports, gw)
	}
	return encMode.Marshal(w)
}

// Unmarshal decodes a CBOR export table produced by MarshalBinary and
// re-attaches the IR payload, reproducing an equal Manifest.
func Unmarshal(data, ir []byte) (*Manifest, error) {
	var w manifestWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	b := NewBuilder().SetSpecialized(w.Specialized)
	for _, gw := range w.Exports {
		for _, vw := range gw.Variants {
			var prov map[string]any
			if len(vw.Provenance) > 0 {
				prov = vw.Provenance
			}
			if _, err := b.AddVariant(gw.Name, Signature(gw.Signature), vw.Symbol, features.New(vw.Requires...), prov); err != nil {
				return nil, fmt.Errorf("decode manifest: %w", err)
			}
		}
	}
	return b.Finalize(ir, Identity(w.Identity))
}
