package discover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatlib/fatlib/features"
)

func TestHostIsStable(t *testing.T) {
	assert.Equal(t, Host(), Host())
}

func TestResolveTargetHost(t *testing.T) {
	got, err := ResolveTarget("host", nil)
	require.NoError(t, err)
	assert.Equal(t, Host(), got)

	got, err = ResolveTarget("", nil)
	require.NoError(t, err)
	assert.Equal(t, Host(), got)
}

func TestResolveTargetExplicit(t *testing.T) {
	got, err := ResolveTarget("avx,avx2", nil)
	require.NoError(t, err)
	assert.Equal(t, features.New("avx", "avx2"), got)

	// an explicit set wins over the spec string
	got, err = ResolveTarget("host", features.New("sve"))
	require.NoError(t, err)
	assert.Equal(t, features.New("sve"), got)
}

func TestResolveTargetInvalid(t *testing.T) {
	_, err := ResolveTarget(",,,", nil)
	assert.Error(t, err)
}
