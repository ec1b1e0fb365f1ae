package manifest

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Provenance is the typed view of a variant's opaque provenance metadata.
// The wire format round-trips provenance as a generic map so unknown keys
// written by other toolchains survive; the conventional keys are decoded
// here.
type Provenance struct {
	Module string         `mapstructure:"module"`
	Source string         `mapstructure:"source"`
	Extra  map[string]any `mapstructure:",remain"`
}

// NewProvenance builds the opaque map form stored on a Variant.
func NewProvenance(module, source string) map[string]any {
	p := make(map[string]any, 2)
	if module != "" {
		p["module"] = module
	}
	if source != "" {
		p["source"] = source
	}
	return p
}

// DecodeProvenance decodes the variant's opaque provenance map. A variant
// without provenance decodes to the zero Provenance.
func (v *Variant) DecodeProvenance() (Provenance, error) {
	var p Provenance
	if len(v.Provenance) == 0 {
		return p, nil
	}
	if err := mapstructure.Decode(v.Provenance, &p); err != nil {
		return Provenance{}, fmt.Errorf("decode provenance for %q: %w", v.Symbol, err)
	}
	return p, nil
}
