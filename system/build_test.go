package system

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsimlabs/flowsim/model"
)

func TestBuildAndSimulate(t *testing.T) {
	flowsheet := model.NewFlowsheet("dilution").WithChemicals("Water", "Ethanol")
	flowsheet.AddStream("feed").WithFlow("Ethanol", 10).WithFlow("Water", 10)
	flowsheet.AddStream("water").WithFlow("Water", 40)
	flowsheet.AddStream("diluted")
	flowsheet.AddStream("heated")
	flowsheet.AddUnit("M1", "mixer", []string{"feed", "water"}, []string{"diluted"})
	flowsheet.AddUnit("H1", "hx", []string{"diluted"}, []string{"heated"}).
		WithSetting("targetT", 320)

	sys, err := Build(flowsheet)
	require.NoError(t, err)
	require.NoError(t, sys.Simulate(context.Background()))

	products := sys.Products()
	require.Len(t, products, 1)
	assert.Equal(t, "heated", products[0].Name())
	assert.InDelta(t, 60.0, products[0].Fmol(), 1e-9)
	assert.InDelta(t, 320.0, products[0].T, 1e-9)
}

func TestBuildAppliesSplitSettings(t *testing.T) {
	flowsheet := model.NewFlowsheet("separation").WithChemicals("Water", "Glucose")
	flowsheet.AddStream("feed").WithFlow("Water", 10).WithFlow("Glucose", 5)
	flowsheet.AddStream("top")
	flowsheet.AddStream("bottom")
	flowsheet.AddUnit("S1", "splitter", []string{"feed"}, []string{"top", "bottom"}).
		WithSetting("split", 0.1).
		WithSetting("splits", map[string]interface{}{"Glucose": 0.9})

	sys, err := Build(flowsheet)
	require.NoError(t, err)
	require.NoError(t, sys.Simulate(context.Background()))

	splitter := sys.Unit("S1").(*Splitter)
	value, err := splitter.Isplit().Get("Glucose")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, value, 1e-12)
	assert.InDelta(t, 1.0, splitter.Outs()[0].Mol(0), 1e-9)
	assert.InDelta(t, 4.5, splitter.Outs()[0].Mol(1), 1e-9)
}

func TestBuildMassFlowSpecification(t *testing.T) {
	flowsheet := model.NewFlowsheet("massFeed").WithChemicals("Water")
	flowsheet.AddStream("feed").WithFlow("Water", 180.15).WithUnits("kg/hr")
	flowsheet.AddStream("out")
	flowsheet.AddUnit("P1", "pump", []string{"feed"}, []string{"out"})

	sys, err := Build(flowsheet)
	require.NoError(t, err)
	require.NoError(t, sys.Simulate(context.Background()))
	assert.InDelta(t, 10.0, sys.Unit("P1").Outs()[0].Fmol(), 1e-6)
}

func TestBuildRejectsInvalidDefinition(t *testing.T) {
	flowsheet := model.NewFlowsheet("broken").WithChemicals("Water")
	flowsheet.AddStream("feed").WithFlow("Water", 1)
	flowsheet.AddStream("out")
	flowsheet.AddUnit("H1", "hx", []string{"feed"}, []string{"out"})
	// targetT missing
	_, err := Build(flowsheet)
	assert.Error(t, err)

	flowsheet = model.NewFlowsheet("unknownChemical").WithChemicals("Unobtainium")
	flowsheet.AddStream("feed").WithFlow("Unobtainium", 1)
	flowsheet.AddStream("out")
	flowsheet.AddUnit("P1", "pump", []string{"feed"}, []string{"out"})
	_, err = Build(flowsheet)
	assert.Error(t, err)
}

func TestBuildAppliesConvergenceOptions(t *testing.T) {
	flowsheet := model.NewFlowsheet("loop").WithChemicals("Water")
	flowsheet.AddStream("feed").WithFlow("Water", 10)
	flowsheet.AddStream("mixed")
	flowsheet.AddStream("product")
	flowsheet.AddStream("recycle")
	flowsheet.AddUnit("M1", "mixer", []string{"feed", "recycle"}, []string{"mixed"})
	flowsheet.AddUnit("S1", "splitter", []string{"mixed"}, []string{"product", "recycle"}).
		WithSetting("split", 0.5)
	flowsheet.WithConvergence(&model.ConvergenceDef{MaxIter: 75, Method: "fixed-point"})

	sys, err := Build(flowsheet)
	require.NoError(t, err)
	assert.Equal(t, 75, sys.Convergence.MaxIter)
	assert.Equal(t, "fixed-point", sys.Convergence.Method)

	require.NoError(t, sys.Simulate(context.Background()))
	assert.True(t, sys.Converged())
}
