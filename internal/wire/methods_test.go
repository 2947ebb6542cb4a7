package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllMethodsHaveUniqueSelectors(t *testing.T) {
	seen := map[[4]byte]string{}
	for _, spec := range All() {
		if other, found := seen[spec.Selector]; found {
			t.Fatalf("selector collision between %s and %s", spec.Name, other)
		}
		seen[spec.Selector] = spec.Name
	}
	assert.Len(t, seen, len(All()))
}

func TestLookupRoundTrip(t *testing.T) {
	spec, ok := ByName("addStake")
	require.True(t, ok)
	assert.Equal(t, ReceiverRegistry, spec.Receiver)

	found, ok := Lookup(spec.Selector)
	require.True(t, ok)
	assert.Equal(t, "addStake", found.Name)
}

func TestByNameUnknownMethod(t *testing.T) {
	_, ok := ByName("notAMethod")
	assert.False(t, ok)
}
