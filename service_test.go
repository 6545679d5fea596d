package flowsim_test

import (
	"context"
	"embed"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "github.com/viant/afs/embed"

	"github.com/flowsimlabs/flowsim"
	"github.com/flowsimlabs/flowsim/runtime/simulation"
)

//go:embed testdata/*
var embedFS embed.FS

func newService() *flowsim.Service {
	return flowsim.New(
		flowsim.WithMetaFsOptions(&embedFS),
		flowsim.WithMetaBaseURL("embed:///testdata"),
	)
}

func TestService(t *testing.T) {
	srv := newService()

	runtime := srv.Runtime()
	ctx := context.Background()
	flowsheet, err := runtime.LoadFlowsheet(ctx, "brew.yaml")
	require.NoError(t, err)
	require.NotNil(t, flowsheet)
	assert.Equal(t, "brew", flowsheet.Name)
	assert.Equal(t, []string{"Water", "Ethanol"}, flowsheet.Chemicals)
	assert.Len(t, flowsheet.Units, 3)
}

func TestRuntimeRunOnce(t *testing.T) {
	srv := newService()
	runtime := srv.Runtime()
	ctx := context.Background()

	run, err := runtime.RunOnce(ctx, "brew")
	require.NoError(t, err)
	assert.Equal(t, simulation.StateCompleted, run.State)
	assert.True(t, run.Converged)
	assert.Greater(t, run.Iterations, 0)

	product := run.Streams["product"]
	require.NotNil(t, product)
	assert.InDelta(t, 20.0, product.Fmol, 1e-3)
	assert.InDelta(t, 320.0, product.T, 1e-9)
	assert.Greater(t, run.PurchaseCost, 0.0, "the heat exchanger carries a cost")

	loaded, err := runtime.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, loaded.ID)

	runs, err := runtime.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRuntimeUpsertDefinition(t *testing.T) {
	srv := newService()
	runtime := srv.Runtime()
	ctx := context.Background()

	data := []byte(`
name: adhoc
chemicals: [Water]
streams:
  feed:
    flow:
      Water: 5
  product: {}
units:
  P1:
    type: pump
    ins: [feed]
    outs: [product]
    pout: 405300
`)
	require.NoError(t, runtime.UpsertDefinition("adhoc.yaml", data))

	flowsheet, err := runtime.LoadFlowsheet(ctx, "adhoc")
	require.NoError(t, err)
	assert.Equal(t, "adhoc", flowsheet.Name)

	run, err := runtime.Simulate(ctx, flowsheet)
	require.NoError(t, err)
	assert.Equal(t, simulation.StateCompleted, run.State)
	assert.Greater(t, run.PowerDemand, 0.0)

	// after a refresh the definition is no longer cached and the location
	// does not exist in the backing store
	require.NoError(t, runtime.RefreshFlowsheet("adhoc.yaml"))
	_, err = runtime.LoadFlowsheet(ctx, "adhoc")
	assert.Error(t, err)
}
