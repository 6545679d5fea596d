package thermo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, ids ...string) *Registry {
	t.Helper()
	registry, err := Default(ids...)
	require.Nil(t, err)
	return registry
}

func TestRegistry(t *testing.T) {
	registry := newTestRegistry(t, "Water", "Glucose", "Sucrose")

	assert.Equal(t, 3, registry.Size())
	assert.Equal(t, 0, registry.Index("Water"))
	assert.Equal(t, -1, registry.Index("Ethanol"))

	err := registry.DefineGroup("sugars", "Glucose", "Sucrose")
	assert.Nil(t, err)

	indices, err := registry.Resolve("sugars")
	assert.Nil(t, err)
	assert.Equal(t, []int{1, 2}, indices)

	_, err = registry.Resolve("Unknown")
	assert.NotNil(t, err)

	assert.NotNil(t, registry.DefineGroup("Water", "Glucose"), "group name colliding with chemical")
	assert.NotNil(t, registry.DefineGroup("bad", "Ethanol"), "unknown member")
}

func TestStreamTotals(t *testing.T) {
	registry := newTestRegistry(t, "Water", "Ethanol")
	stream := NewStream(registry, "feed")
	stream.Imol().MustSet("Water", 10)
	stream.Imol().MustSet("Ethanol", 2)

	assert.InDelta(t, 12.0, stream.Fmol(), 1e-12)
	assert.InDelta(t, 10*18.015+2*46.069, stream.Fmass(), 1e-9)
	assert.InDelta(t, 10*0.01807+2*0.05841, stream.Fvol(), 1e-9)

	frac := stream.MolFrac()
	assert.InDelta(t, 10.0/12.0, frac[0], 1e-12)
}

func TestStreamMixEnergyBalance(t *testing.T) {
	registry := newTestRegistry(t, "Water")

	hot := NewStream(registry, "hot").WithThermal(350, 2*101325)
	hot.Imol().MustSet("Water", 10)
	cold := NewStream(registry, "cold").WithThermal(300, 101325)
	cold.Imol().MustSet("Water", 10)

	mixed := NewStream(registry, "mixed")
	err := mixed.MixFrom([]*Stream{hot, cold})
	require.Nil(t, err)

	// outlet pressure is the minimum inlet pressure
	assert.InDelta(t, 101325, mixed.P, 1e-9)
	assert.InDelta(t, 325, mixed.T, 1e-6)
	assert.InDelta(t, 20, mixed.Fmol(), 1e-12)
	// the enthalpy balance must close exactly
	assert.InDelta(t, hot.Enthalpy()+cold.Enthalpy(), mixed.Enthalpy(), 1e-6)
}

func TestStreamMixEmpty(t *testing.T) {
	registry := newTestRegistry(t, "Water")
	a := NewStream(registry, "a").WithThermal(310, 5e5)
	b := NewStream(registry, "b").WithThermal(320, 3e5)
	mixed := NewStream(registry, "mixed")

	err := mixed.MixFrom([]*Stream{a, b})
	assert.Nil(t, err)
	assert.True(t, mixed.IsEmpty())
	assert.InDelta(t, 3e5, mixed.P, 1e-9)
	assert.InDelta(t, 310, mixed.T, 1e-9, "empty mix keeps the first inlet temperature")
}

func TestStreamCopy(t *testing.T) {
	registry := newTestRegistry(t, "Water", "Ethanol")
	source := NewStream(registry, "source").WithThermal(330, 2e5)
	source.Imol().MustSet("Ethanol", 4)

	clone := source.Copy("clone")
	assert.Equal(t, "clone", clone.Name())
	assert.InDelta(t, 330.0, clone.T, 1e-12)
	assert.InDelta(t, 4.0, clone.Imol().MustGet("Ethanol"), 1e-12)

	// copies are independent
	clone.Imol().MustSet("Ethanol", 1)
	assert.InDelta(t, 4.0, source.Imol().MustGet("Ethanol"), 1e-12)

	other, err := Default("Water")
	require.Nil(t, err)
	foreign := NewStream(other, "foreign")
	assert.NotNil(t, clone.CopyFlow(foreign), "cross-registry copy must fail")
}
