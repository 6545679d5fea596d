package system

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsimlabs/flowsim/thermo"
)

func TestNetworkDiscoversRecycle(t *testing.T) {
	registry := newRegistry(t, "Water")
	feed := thermo.NewStream(registry, "feed")
	feed.SetMol(0, 10)
	mixed := thermo.NewStream(registry, "mixed")
	product := thermo.NewStream(registry, "product")
	recycle := thermo.NewStream(registry, "recycle")

	mixer := NewMixer("M1", []*thermo.Stream{feed, recycle}, mixed)
	splitter := NewSplitter("S1", mixed, product, recycle, 0.5)

	g := buildGraph([]Unit{mixer, splitter})
	network := NetworkFromFeedstock(feed, nil, nil, g)

	recycles := network.allRecycles(nil)
	require.Len(t, recycles, 1)
	assert.Equal(t, "recycle", recycles[0].Name())
	assert.True(t, network.units[mixer])
	assert.True(t, network.units[splitter])
}

func TestNetworkSeparatesSequentialLoops(t *testing.T) {
	registry := newRegistry(t, "Water")
	feed := thermo.NewStream(registry, "feed")
	feed.SetMol(0, 10)
	firstMixed := thermo.NewStream(registry, "firstMixed")
	mid := thermo.NewStream(registry, "mid")
	firstRecycle := thermo.NewStream(registry, "firstRecycle")
	secondMixed := thermo.NewStream(registry, "secondMixed")
	product := thermo.NewStream(registry, "product")
	secondRecycle := thermo.NewStream(registry, "secondRecycle")

	m1 := NewMixer("M1", []*thermo.Stream{feed, firstRecycle}, firstMixed)
	s1 := NewSplitter("S1", firstMixed, mid, firstRecycle, 0.5)
	m2 := NewMixer("M2", []*thermo.Stream{mid, secondRecycle}, secondMixed)
	s2 := NewSplitter("S2", secondMixed, product, secondRecycle, 0.5)

	sys, err := FromUnits("twoLoops", []Unit{s2, m1, s1, m2})
	require.NoError(t, err)

	ids := make([]string, 0, 4)
	for _, unit := range sys.Units() {
		ids = append(ids, unit.ID())
	}
	assert.Equal(t, []string{"M1", "S1", "M2", "S2"}, ids)

	// each loop converges on its own, not as one joint fixed point
	require.Len(t, sys.Network().Path, 2)
	for _, node := range sys.Network().Path {
		require.NotNil(t, node.Sub)
		assert.Len(t, node.Sub.Recycle, 1)
	}

	require.NoError(t, sys.Simulate(context.Background()))
	assert.True(t, sys.Converged())
	assert.InDelta(t, 10.0, product.Fmol(), 1e-2)
}

func TestGraphFeedsAndProducts(t *testing.T) {
	registry := newRegistry(t, "Water")
	big := thermo.NewStream(registry, "big")
	big.SetMol(0, 100)
	small := thermo.NewStream(registry, "small")
	small.SetMol(0, 1)
	boosted := thermo.NewStream(registry, "boosted")
	heated := thermo.NewStream(registry, "heated")
	mixed := thermo.NewStream(registry, "mixed")

	pump := NewPump("P1", small, boosted)
	hx := NewHXUtility("H1", big, heated, 320)
	mixer := NewMixer("M1", []*thermo.Stream{boosted, heated}, mixed)

	g := buildGraph([]Unit{pump, hx, mixer})

	feeds := g.feeds()
	require.Len(t, feeds, 2)
	assert.Equal(t, "big", feeds[0].Name(), "feeds sort largest first")
	assert.Equal(t, "small", feeds[1].Name())

	products := g.products()
	require.Len(t, products, 1)
	assert.Equal(t, "mixed", products[0].Name())
}
