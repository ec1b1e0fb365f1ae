package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatlib/fatlib/features"
)

func buildManifest(t *testing.T) *Manifest {
	t.Helper()
	b := NewBuilder()
	sig := Sig("int64", "int64", "int64")
	_, err := b.AddVariant("add", sig, "_add", features.New(), NewProvenance("mathlib", "add.c"))
	require.NoError(t, err)
	_, err = b.AddVariant("add", sig, "_add_avx2", features.New("avx2"), nil)
	require.NoError(t, err)
	_, err = b.AddVariant("add", sig, "_add_avx512", features.New("avx512f", "avx512vl"), nil)
	require.NoError(t, err)
	m, err := b.Finalize([]byte("fake bitcode"))
	require.NoError(t, err)
	return m
}

func TestRoundTrip(t *testing.T) {
	m := buildManifest(t)

	data, err := m.MarshalBinary()
	require.NoError(t, err)

	got, err := Unmarshal(data, m.IR())
	require.NoError(t, err)

	assert.Equal(t, m.Identity(), got.Identity())
	assert.Equal(t, m.Specialized(), got.Specialized())
	assert.Equal(t, m.IR(), got.IR())
	require.Len(t, got.Groups(), 1)

	want := m.Groups()[0]
	g := got.Groups()[0]
	assert.Equal(t, want.Name, g.Name)
	assert.Equal(t, want.Signature, g.Signature)
	require.Len(t, g.Variants, len(want.Variants))
	for i, v := range g.Variants {
		assert.Equal(t, want.Variants[i].Symbol, v.Symbol, "variant order must survive the round trip")
		assert.True(t, features.Equal(want.Variants[i].Requires, v.Requires))
	}
}

func TestRoundTripSpecializedFlag(t *testing.T) {
	b := NewBuilder().SetSpecialized(true)
	_, err := b.AddVariant("f", Sig("void"), "_f", features.New(), nil)
	require.NoError(t, err)
	m, err := b.Finalize(nil, Identity("A1"))
	require.NoError(t, err)

	data, err := m.MarshalBinary()
	require.NoError(t, err)
	got, err := Unmarshal(data, nil)
	require.NoError(t, err)

	assert.True(t, got.Specialized())
	assert.Equal(t, Identity("A1"), got.Identity())
}

func TestMarshalDeterministic(t *testing.T) {
	m := buildManifest(t)
	a, err := m.MarshalBinary()
	require.NoError(t, err)
	b, err := m.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestProvenanceRoundTrip(t *testing.T) {
	m := buildManifest(t)
	data, err := m.MarshalBinary()
	require.NoError(t, err)
	got, err := Unmarshal(data, nil)
	require.NoError(t, err)

	g := got.Groups()[0]
	p, err := g.Variants[0].DecodeProvenance()
	require.NoError(t, err)
	assert.Equal(t, "mathlib", p.Module)
	assert.Equal(t, "add.c", p.Source)

	// variants without provenance decode to the zero value
	p, err = g.Variants[1].DecodeProvenance()
	require.NoError(t, err)
	assert.Empty(t, p.Module)
}
