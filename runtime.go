package flowsim

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowsimlabs/flowsim/evaluation"
	"github.com/flowsimlabs/flowsim/model"
	"github.com/flowsimlabs/flowsim/runtime/simulation"
	"github.com/flowsimlabs/flowsim/service/dao"
	"github.com/flowsimlabs/flowsim/service/dao/flowsheet"
	"github.com/flowsimlabs/flowsim/system"
)

// Runtime loads flowsheet definitions, simulates them and records the
// outcome of every run.
type Runtime struct {
	flowsheetDAO      *flowsheet.Service
	runDAO            dao.Service[string, simulation.Run]
	convergence       *system.ConvergenceOptions
	chemicals         []string
	evaluationWorkers int
}

// LoadFlowsheet loads a flowsheet definition from the meta service.
func (r *Runtime) LoadFlowsheet(ctx context.Context, location string) (*model.Flowsheet, error) {
	return r.flowsheetDAO.Load(ctx, location)
}

// DecodeYAMLFlowsheet decodes a flowsheet definition from YAML bytes.
func (r *Runtime) DecodeYAMLFlowsheet(data []byte) (*model.Flowsheet, error) {
	return r.flowsheetDAO.DecodeYAML(data)
}

// ---------------------------------------------------------------------------
// Flowsheet hot-swap helpers
// ---------------------------------------------------------------------------

// RefreshFlowsheet discards any cached copy of the flowsheet definition
// located at the given URL/location. The next LoadFlowsheet call will reload
// the file via the configured meta-service.
func (r *Runtime) RefreshFlowsheet(location string) error {
	if r == nil || r.flowsheetDAO == nil {
		return fmt.Errorf("runtime not fully initialised, flowsheetDAO missing")
	}
	r.flowsheetDAO.Refresh(location)
	return nil
}

// UpsertDefinition parses the supplied YAML bytes and stores the resulting
// flowsheet definition in the in-memory cache under the specified location.
// When data is nil the call falls back to RefreshFlowsheet, causing a lazy
// reload on next use.
func (r *Runtime) UpsertDefinition(location string, data []byte) error {
	if r == nil || r.flowsheetDAO == nil {
		return fmt.Errorf("runtime not fully initialised, flowsheetDAO missing")
	}
	if data == nil {
		return r.RefreshFlowsheet(location)
	}
	definition, err := r.flowsheetDAO.DecodeYAML(data)
	if err != nil {
		return fmt.Errorf("failed to decode flowsheet YAML: %w", err)
	}
	if definition.Source == nil {
		definition.Source = &model.Source{URL: location}
	} else {
		definition.Source.URL = location
	}
	r.flowsheetDAO.Upsert(location, definition)
	return nil
}

// Build assembles a simulable system from a flowsheet definition, applying
// the runtime chemical basis and convergence defaults unless the definition
// overrides them.
func (r *Runtime) Build(definition *model.Flowsheet) (*system.System, error) {
	if len(definition.Chemicals) == 0 && len(r.chemicals) > 0 {
		definition = definition.Clone().WithChemicals(r.chemicals...)
	}
	sys, err := system.Build(definition)
	if err != nil {
		return nil, err
	}
	if r.convergence != nil && definition.Convergence == nil {
		sys.Convergence = *r.convergence
	}
	return sys, nil
}

// Simulate builds and simulates the flowsheet, recording the outcome as a
// run. The returned run carries the result even when simulation fails; the
// error is also recorded on the run.
func (r *Runtime) Simulate(ctx context.Context, definition *model.Flowsheet) (*simulation.Run, error) {
	run := simulation.NewRun(definition.Name)
	if err := r.runDAO.Save(ctx, run); err != nil {
		return nil, err
	}
	run.Start()
	if err := r.runDAO.Save(ctx, run); err != nil {
		return nil, err
	}

	sys, err := r.Build(definition)
	if err != nil {
		run.Fail(err)
		_ = r.runDAO.Save(ctx, run)
		return run, err
	}
	err = sys.Simulate(ctx)
	run.Iterations = sys.Iterations()
	run.Converged = sys.Converged()
	if err != nil {
		var convergenceErr *system.ConvergenceError
		if errors.As(err, &convergenceErr) {
			// a non-converged solution still carries partial results
			r.snapshot(run, sys)
		}
		run.Fail(err)
		_ = r.runDAO.Save(ctx, run)
		return run, err
	}
	r.snapshot(run, sys)
	run.Complete()
	if err := r.runDAO.Save(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

// RunOnce loads the flowsheet at the given location and simulates it. It is
// intended for quick ad-hoc jobs, debugging and unit tests.
func (r *Runtime) RunOnce(ctx context.Context, location string) (*simulation.Run, error) {
	definition, err := r.LoadFlowsheet(ctx, location)
	if err != nil {
		return nil, err
	}
	return r.Simulate(ctx, definition)
}

func (r *Runtime) snapshot(run *simulation.Run, sys *system.System) {
	run.Streams = make(map[string]*simulation.StreamSnapshot)
	for _, stream := range sys.Products() {
		run.Streams[stream.Name()] = &simulation.StreamSnapshot{
			T:     stream.T,
			P:     stream.P,
			Fmol:  stream.Fmol(),
			Fmass: stream.Fmass(),
		}
	}
	run.PurchaseCost = sys.TotalPurchaseCost()
	run.InstalledCost = sys.InstalledCost()
	run.PowerDemand = sys.PowerDemand()
}

// NewModel creates an evaluation model backed by the runtime's worker
// default; options may override it.
func (r *Runtime) NewModel(factory evaluation.Factory, options ...evaluation.Option) (*evaluation.Model, error) {
	if r.evaluationWorkers > 0 {
		options = append([]evaluation.Option{evaluation.WithWorkers(r.evaluationWorkers)}, options...)
	}
	return evaluation.New(factory, options...)
}

// Run returns a recorded simulation run.
func (r *Runtime) Run(ctx context.Context, id string) (*simulation.Run, error) {
	return r.runDAO.Load(ctx, id)
}

// Runs returns recorded runs matching the given criteria.
func (r *Runtime) Runs(ctx context.Context, parameter ...*dao.Parameter) ([]*simulation.Run, error) {
	return r.runDAO.List(ctx, parameter...)
}
