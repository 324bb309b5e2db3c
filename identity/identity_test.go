package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapabilityValidation(t *testing.T) {
	_, err := NewCapability("Bad_ID", "x", "1.0.0", []string{"read"})
	require.Error(t, err)

	_, err = NewCapability("code-review", "Code Review", "1.0.0", nil)
	require.Error(t, err)

	cap, err := NewCapability("code-review", "Code Review", "1.0.0", []string{"repo:read"})
	require.NoError(t, err)
	assert.Equal(t, "code-review", cap.ID())
	assert.True(t, cap.HasScope("repo:read"))
	assert.False(t, cap.HasScope("repo:write"))
}

func TestManifestIsImmutableCopy(t *testing.T) {
	cap, err := NewCapability("debug", "Debug", "1.0.0", []string{"repo:read"})
	require.NoError(t, err)

	tags := []string{"beta"}
	manifest := NewManifest("reviewer", "1.2.0", "reviews code", tags, []Capability{cap})

	tags[0] = "mutated"
	assert.Equal(t, "beta", manifest.Tags()[0], "manifest must copy input slices")

	got := manifest.Capabilities()
	got[0] = Capability{}
	assert.True(t, manifest.HasCapability("debug"), "manifest capability slice must not alias caller's copy")
}

func TestAgentIdentityIDsAreUnique(t *testing.T) {
	m := NewManifest("a", "1.0.0", "", nil, nil)
	a := New(m)
	b := New(m)
	assert.NotEqual(t, a.ID(), b.ID())
}
