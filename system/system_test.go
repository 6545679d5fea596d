package system

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsimlabs/flowsim/thermo"
)

func newRegistry(t *testing.T, ids ...string) *thermo.Registry {
	t.Helper()
	registry, err := thermo.Default(ids...)
	require.NoError(t, err)
	return registry
}

func TestMixerOutletPressureIsMinimumInlet(t *testing.T) {
	registry := newRegistry(t, "Water")
	warm := thermo.NewStream(registry, "warm").WithThermal(298.15, 2*101325)
	warm.SetMol(0, 10)
	cool := thermo.NewStream(registry, "cool").WithThermal(298.15, 101325)
	cool.SetMol(0, 10)
	out := thermo.NewStream(registry, "mixed")

	mixer := NewMixer("M1", []*thermo.Stream{warm, cool}, out)
	require.NoError(t, mixer.Run(context.Background()))

	assert.EqualValues(t, 101325, out.P, "the joint line runs at the lowest inlet pressure")
	assert.InDelta(t, 20.0, out.Fmol(), 1e-9)
	assert.InDelta(t, 298.15, out.T, 1e-9)
}

func TestSplitterGroupSplit(t *testing.T) {
	registry := newRegistry(t, "Water", "Glucose", "Sucrose")
	require.NoError(t, registry.DefineGroup("sugars", "Glucose", "Sucrose"))
	in := thermo.NewStream(registry, "feed")
	in.SetMol(0, 10)
	in.SetMol(1, 4)
	in.SetMol(2, 2)
	top := thermo.NewStream(registry, "top")
	bottom := thermo.NewStream(registry, "bottom")

	splitter := NewSplitter("S1", in, top, bottom, 0.5)
	require.NoError(t, splitter.Isplit().Set("sugars", 0.8))
	require.NoError(t, splitter.Run(context.Background()))

	assert.InDelta(t, 5.0, top.Mol(0), 1e-9)
	assert.InDelta(t, 3.2, top.Mol(1), 1e-9)
	assert.InDelta(t, 1.6, top.Mol(2), 1e-9)
	assert.InDelta(t, 0.8, bottom.Mol(1), 1e-9)

	value, err := splitter.Isplit().Get("sugars")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, value, 1e-12)

	require.NoError(t, splitter.Isplit().Set("Glucose", 0.3))
	_, err = splitter.Isplit().Get("sugars")
	assert.Error(t, err, "mixed group fractions cannot be read as one number")

	assert.Error(t, splitter.Isplit().Set("Water", 1.2))
}

func TestPumpRaisesPressureAndCosts(t *testing.T) {
	registry := newRegistry(t, "Water")
	in := thermo.NewStream(registry, "feed")
	in.SetMol(0, 100)
	out := thermo.NewStream(registry, "boosted")

	pump := NewPump("P1", in, out).WithPout(5 * 101325)
	require.NoError(t, pump.Run(context.Background()))
	assert.EqualValues(t, 5*101325, out.P)

	require.NoError(t, pump.Design())
	q := 100 * 0.01807
	ideal := q * 4 * 101325 / 3.6e6
	assert.InDelta(t, q, pump.DesignResults["Flow rate"], 1e-9)
	assert.InDelta(t, ideal, pump.DesignResults["Ideal power"], 1e-9)
	assert.InDelta(t, ideal/0.7, pump.PowerUtility.Consumption, 1e-9)

	require.NoError(t, pump.Cost())
	assert.Greater(t, pump.PurchaseCosts["Pump"], 0.0)
	assert.EqualValues(t, 2.3, pump.BareModuleFactors["Pump"])
}

func TestPumpRejectsOutletBelowInlet(t *testing.T) {
	registry := newRegistry(t, "Water")
	in := thermo.NewStream(registry, "feed").WithThermal(298.15, 2*101325)
	in.SetMol(0, 10)
	out := thermo.NewStream(registry, "out")

	pump := NewPump("P1", in, out).WithPout(101325)
	assert.Error(t, pump.Run(context.Background()))
}

func TestHXUtilityDuty(t *testing.T) {
	registry := newRegistry(t, "Water")
	in := thermo.NewStream(registry, "feed")
	in.SetMol(0, 10)
	out := thermo.NewStream(registry, "heated")

	hx := NewHXUtility("H1", in, out, 330)
	require.NoError(t, hx.Run(context.Background()))

	assert.InDelta(t, 330.0, out.T, 1e-9)
	assert.InDelta(t, 10*75.3*(330-298.15), hx.Duty, 1e-6)

	require.NoError(t, hx.Design())
	assert.InDelta(t, hx.Duty, hx.DesignResults["Low pressure steam"], 1e-9)
	require.NoError(t, hx.Cost())
	assert.Greater(t, hx.PurchaseCosts["Heat exchanger"], 0.0)
}

func TestFlashDrumSeparatesVaporAndLiquid(t *testing.T) {
	registry := newRegistry(t, "Water", "Ethanol")
	in := thermo.NewStream(registry, "feed")
	in.SetMol(0, 50)
	in.SetMol(1, 50)
	vapor := thermo.NewStream(registry, "vapor")
	liquid := thermo.NewStream(registry, "liquid")

	drum := NewFlashDrum("F1", in, vapor, liquid, 360, 101325)
	require.NoError(t, drum.Run(context.Background()))

	assert.Greater(t, vapor.Fmol(), 0.0)
	assert.Greater(t, liquid.Fmol(), 0.0)
	assert.InDelta(t, 100.0, vapor.Fmol()+liquid.Fmol(), 1e-6, "mass balance")

	iEthanol := registry.Index("Ethanol")
	yEthanol := vapor.MolFrac()[iEthanol]
	xEthanol := liquid.MolFrac()[iEthanol]
	assert.Greater(t, yEthanol, xEthanol, "the light component enriches the vapor")

	require.NoError(t, drum.Design())
	require.NoError(t, drum.Cost())
	assert.Greater(t, drum.PurchaseCosts["Vertical vessel"], 0.0)
}

func TestWashingTankDesignAndCost(t *testing.T) {
	registry := newRegistry(t, "Water", "Ethanol")
	feed := thermo.NewStream(registry, "feed")
	feed.SetMol(0, 10)
	solvent := thermo.NewStream(registry, "solvent")
	solvent.SetMol(1, 5)
	washed := thermo.NewStream(registry, "washed")
	spent := thermo.NewStream(registry, "spent")

	tank := NewWashingTank("W1", feed, solvent, washed, spent)
	require.NoError(t, tank.Run(context.Background()))
	assert.InDelta(t, 10.0, washed.Mol(0), 1e-9)
	assert.InDelta(t, 5.0, spent.Mol(1), 1e-9)

	require.NoError(t, tank.Design())
	flow := 10*0.01807 + 5*0.05841
	assert.InDelta(t, flow, tank.DesignResults["Flow rate"], 1e-9)
	assert.InDelta(t, flow*(5.0/60.0)/0.9, tank.DesignResults["Tank volume"], 1e-9)

	require.NoError(t, tank.Cost())
	for _, name := range []string{"Tanks", "Agitators", "Transfer pumps"} {
		assert.Greater(t, tank.PurchaseCosts[name], 0.0, name)
	}
	assert.Greater(t, tank.PowerUtility.Consumption, 0.0)
}

func TestWashingTankRecostKeepsPowerDemand(t *testing.T) {
	registry := newRegistry(t, "Water", "Ethanol")
	feed := thermo.NewStream(registry, "feed")
	feed.SetMol(0, 10)
	solvent := thermo.NewStream(registry, "solvent")
	solvent.SetMol(1, 5)
	washed := thermo.NewStream(registry, "washed")
	spent := thermo.NewStream(registry, "spent")

	tank := NewWashingTank("W1", feed, solvent, washed, spent)
	require.NoError(t, tank.Run(context.Background()))
	require.NoError(t, tank.Design())
	require.NoError(t, tank.Cost())

	power := tank.PowerUtility.Consumption
	cost := tank.TotalPurchaseCost()
	require.Greater(t, power, 0.0)

	// re-simulating must not inflate the demand or the costs
	require.NoError(t, tank.Run(context.Background()))
	require.NoError(t, tank.Design())
	require.NoError(t, tank.Cost())
	assert.InDelta(t, power, tank.PowerUtility.Consumption, 1e-12)
	assert.InDelta(t, cost, tank.TotalPurchaseCost(), 1e-9)
}

func TestScrewFeederPower(t *testing.T) {
	registry := newRegistry(t, "Glucose")
	in := thermo.NewStream(registry, "solids")
	in.SetMol(0, 20)
	out := thermo.NewStream(registry, "conveyed")

	feeder := NewScrewFeeder("C1", in, out)
	require.NoError(t, feeder.Run(context.Background()))
	assert.InDelta(t, 20.0, out.Mol(0), 1e-9)

	require.NoError(t, feeder.Design())
	assert.Greater(t, feeder.DesignResults["Flow rate"], 0.0)
	assert.Greater(t, feeder.PowerUtility.Consumption, 0.0)

	require.NoError(t, feeder.Cost())
	assert.Greater(t, feeder.PurchaseCosts["Screw feeder"], 0.0)
}

func TestSystemOrdersUnitsByConnectivity(t *testing.T) {
	registry := newRegistry(t, "Water")
	feedA := thermo.NewStream(registry, "feedA")
	feedA.SetMol(0, 10)
	feedB := thermo.NewStream(registry, "feedB")
	feedB.SetMol(0, 5)
	boosted := thermo.NewStream(registry, "boosted")
	heated := thermo.NewStream(registry, "heated")
	product := thermo.NewStream(registry, "product")

	pump := NewPump("P1", feedA, boosted)
	hx := NewHXUtility("H1", feedB, heated, 320)
	mixer := NewMixer("M1", []*thermo.Stream{boosted, heated}, product)

	// order of the input slice must not matter
	sys, err := FromUnits("plant", []Unit{mixer, hx, pump})
	require.NoError(t, err)

	order := map[string]int{}
	for i, unit := range sys.Units() {
		order[unit.ID()] = i
	}
	assert.Greater(t, order["M1"], order["P1"])
	assert.Greater(t, order["M1"], order["H1"])

	require.NoError(t, sys.Simulate(context.Background()))
	assert.True(t, sys.Converged())
	assert.InDelta(t, 15.0, product.Fmol(), 1e-9)
}

func TestSystemRecycleConverges(t *testing.T) {
	registry := newRegistry(t, "Water")
	feed := thermo.NewStream(registry, "feed")
	feed.SetMol(0, 10)
	mixed := thermo.NewStream(registry, "mixed")
	product := thermo.NewStream(registry, "product")
	recycle := thermo.NewStream(registry, "recycle")

	mixer := NewMixer("M1", []*thermo.Stream{feed, recycle}, mixed)
	splitter := NewSplitter("S1", mixed, product, recycle, 0.5)

	sys, err := FromUnits("loop", []Unit{splitter, mixer})
	require.NoError(t, err)

	recycles := sys.Recycles()
	require.Len(t, recycles, 1)
	assert.Equal(t, "recycle", recycles[0].Name())

	require.NoError(t, sys.Simulate(context.Background()))
	assert.True(t, sys.Converged())

	// at steady state the purge matches the feed and the loop doubles it
	assert.InDelta(t, 10.0, product.Fmol(), 1e-2)
	assert.InDelta(t, 10.0, recycle.Fmol(), 1e-2)
	assert.InDelta(t, 20.0, mixed.Fmol(), 2e-2)
	assert.Less(t, sys.Iterations(), 50, "acceleration should close the loop quickly")
}

func TestSystemReportsNonConvergence(t *testing.T) {
	registry := newRegistry(t, "Water")
	feed := thermo.NewStream(registry, "feed")
	feed.SetMol(0, 10)
	mixed := thermo.NewStream(registry, "mixed")
	product := thermo.NewStream(registry, "product")
	recycle := thermo.NewStream(registry, "recycle")

	mixer := NewMixer("M1", []*thermo.Stream{feed, recycle}, mixed)
	splitter := NewSplitter("S1", mixed, product, recycle, 0.1)

	sys, err := FromUnits("loop", []Unit{mixer, splitter})
	require.NoError(t, err)
	sys.Convergence.MaxIter = 1
	sys.Convergence.Method = "fixed-point"

	err = sys.Simulate(context.Background())
	require.Error(t, err)
	var convErr *ConvergenceError
	require.True(t, errors.As(err, &convErr))
	assert.Contains(t, convErr.Recycles, "recycle")
	assert.False(t, sys.Converged())
}

func TestFromUnitsRejectsDuplicateIDs(t *testing.T) {
	registry := newRegistry(t, "Water")
	feed := thermo.NewStream(registry, "feed")
	feed.SetMol(0, 1)
	mid := thermo.NewStream(registry, "mid")
	out := thermo.NewStream(registry, "out")

	first := NewPump("P1", feed, mid)
	second := NewPump("P1", mid, out)
	_, err := FromUnits("plant", []Unit{first, second})
	assert.Error(t, err)
}

func TestFromFeedstockBuildsDownstreamNetwork(t *testing.T) {
	registry := newRegistry(t, "Water")
	feed := thermo.NewStream(registry, "feed")
	feed.SetMol(0, 10)
	heated := thermo.NewStream(registry, "heated")
	product := thermo.NewStream(registry, "product")

	hx := NewHXUtility("H1", feed, heated, 320)
	pump := NewPump("P1", heated, product)

	sys, err := FromFeedstock("train", feed, []Unit{hx, pump})
	require.NoError(t, err)
	require.Len(t, sys.Units(), 2)
	assert.Equal(t, "H1", sys.Units()[0].ID())
	assert.Equal(t, "P1", sys.Units()[1].ID())

	require.NoError(t, sys.Simulate(context.Background()))
	assert.InDelta(t, 320.0, product.T, 1e-9)
}
