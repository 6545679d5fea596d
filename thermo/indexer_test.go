package thermo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowIndexerMassView(t *testing.T) {
	registry := newTestRegistry(t, "Water", "Ethanol")
	stream := NewStream(registry, "feed")

	stream.Imol().MustSet("Water", 10)
	assert.InDelta(t, 180.15, stream.Imass().MustGet("Water"), 1e-9)

	// the mass view writes through to the molar vector
	stream.Imass().MustSet("Ethanol", 46.069)
	assert.InDelta(t, 1.0, stream.Imol().MustGet("Ethanol"), 1e-12)

	_, err := stream.Imol().Get("Benzene")
	assert.NotNil(t, err)
	assert.NotNil(t, stream.Imass().Set("Benzene", 1))
}

func TestFlowIndexerGroups(t *testing.T) {
	registry := newTestRegistry(t, "Water", "Glucose", "Sucrose")
	require.Nil(t, registry.DefineGroup("sugars", "Glucose", "Sucrose"))
	stream := NewStream(registry, "juice")

	// all-zero group splits equally
	stream.Imol().MustSet("sugars", 10)
	assert.InDelta(t, 5.0, stream.Imol().MustGet("Glucose"), 1e-12)
	assert.InDelta(t, 5.0, stream.Imol().MustGet("Sucrose"), 1e-12)

	// a later group set preserves the current composition
	stream.Imol().MustSet("Glucose", 6)
	stream.Imol().MustSet("Sucrose", 2)
	stream.Imol().MustSet("sugars", 4)
	assert.InDelta(t, 3.0, stream.Imol().MustGet("Glucose"), 1e-12)
	assert.InDelta(t, 1.0, stream.Imol().MustGet("Sucrose"), 1e-12)
	assert.InDelta(t, 4.0, stream.Imol().MustGet("sugars"), 1e-12)

	// group get on the mass view sums member masses
	wantMass := 3*180.156 + 1*342.297
	assert.InDelta(t, wantMass, stream.Imass().MustGet("sugars"), 1e-9)
}
