package evaluation

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/flowsimlabs/flowsim/internal/idgen"
	"github.com/flowsimlabs/flowsim/progress"
	"github.com/flowsimlabs/flowsim/service/messaging/memory"
	"github.com/flowsimlabs/flowsim/system"
	"github.com/flowsimlabs/flowsim/tracing"
)

// Exception policies decide what happens when a sample fails to simulate.
const (
	// ExceptionIgnore leaves NaN metrics for the failed sample.
	ExceptionIgnore = "ignore"
	// ExceptionWarn logs the failure and leaves NaN metrics.
	ExceptionWarn = "warn"
	// ExceptionRaise aborts the evaluation on the first failure.
	ExceptionRaise = "raise"
)

// Replica bundles an independent copy of a simulation with its parameter
// setters and metric getters. Workers evaluate samples against their own
// replica, so replicas must not share mutable state.
type Replica struct {
	System     *system.System
	Parameters []*Parameter
	Metrics    []*Metric
}

// Factory builds a fresh replica. It is called once per worker.
type Factory func() (*Replica, error)

// Model evaluates metrics over sampled parameter values, distributing
// samples to workers over an in-memory queue.
type Model struct {
	factory   Factory
	exception string
	workers   int

	parameters []*Parameter
	metrics    []*Metric
	samples    [][]float64
}

// Option configures a model.
type Option func(*Model)

// WithWorkers sets the number of evaluation workers, each with its own
// replica.
func WithWorkers(workers int) Option {
	return func(m *Model) {
		m.workers = workers
	}
}

// WithExceptionPolicy sets how sample failures are handled.
func WithExceptionPolicy(policy string) Option {
	return func(m *Model) {
		m.exception = policy
	}
}

// New creates a model. The factory is probed once to validate the parameter
// and metric definitions.
func New(factory Factory, options ...Option) (*Model, error) {
	if factory == nil {
		return nil, fmt.Errorf("model: factory is required")
	}
	m := &Model{
		factory:   factory,
		exception: ExceptionIgnore,
		workers:   1,
	}
	for _, option := range options {
		option(m)
	}
	switch m.exception {
	case ExceptionIgnore, ExceptionWarn, ExceptionRaise:
	default:
		return nil, fmt.Errorf("model: unknown exception policy %q", m.exception)
	}
	if m.workers <= 0 {
		m.workers = 1
	}

	probe, err := factory()
	if err != nil {
		return nil, fmt.Errorf("model: factory: %w", err)
	}
	if len(probe.Parameters) == 0 {
		return nil, fmt.Errorf("model: no parameters")
	}
	if len(probe.Metrics) == 0 {
		return nil, fmt.Errorf("model: no metrics")
	}
	parameterNames := make(map[string]bool, len(probe.Parameters))
	for _, parameter := range probe.Parameters {
		if err := parameter.Validate(); err != nil {
			return nil, fmt.Errorf("model: %w", err)
		}
		if parameterNames[parameter.Name] {
			return nil, fmt.Errorf("model: duplicate parameter %s", parameter.Name)
		}
		parameterNames[parameter.Name] = true
	}
	metricNames := make(map[string]bool, len(probe.Metrics))
	for _, metric := range probe.Metrics {
		if err := metric.Validate(); err != nil {
			return nil, fmt.Errorf("model: %w", err)
		}
		if metricNames[metric.Name] {
			return nil, fmt.Errorf("model: duplicate metric %s", metric.Name)
		}
		metricNames[metric.Name] = true
	}
	m.parameters = probe.Parameters
	m.metrics = probe.Metrics
	return m, nil
}

// Parameters returns the parameter descriptions in column order.
func (m *Model) Parameters() []string {
	out := make([]string, len(m.parameters))
	for i, parameter := range m.parameters {
		out[i] = parameter.Describe()
	}
	return out
}

// Metrics returns the metric descriptions in column order.
func (m *Model) Metrics() []string {
	out := make([]string, len(m.metrics))
	for i, metric := range m.metrics {
		out[i] = metric.Describe()
	}
	return out
}

// Sample draws n samples from the parameter distributions and loads them.
func (m *Model) Sample(n int, seed int64) ([][]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("model: sample count must be positive, got %d", n)
	}
	for _, parameter := range m.parameters {
		if parameter.Distribution == nil {
			return nil, fmt.Errorf("model: parameter %s has no distribution", parameter.Name)
		}
	}
	r := rand.New(rand.NewSource(seed))
	samples := make([][]float64, n)
	for i := range samples {
		row := make([]float64, len(m.parameters))
		for j, parameter := range m.parameters {
			row[j] = parameter.Distribution.Sample(r)
		}
		samples[i] = row
	}
	m.samples = samples
	return samples, nil
}

// LoadSamples installs an explicit sample matrix; every row must have one
// value per parameter.
func (m *Model) LoadSamples(samples [][]float64) error {
	if len(samples) == 0 {
		return fmt.Errorf("model: no samples")
	}
	for i, row := range samples {
		if len(row) != len(m.parameters) {
			return fmt.Errorf("model: sample %d has %d values, expected %d", i, len(row), len(m.parameters))
		}
	}
	m.samples = samples
	return nil
}

// Table holds evaluation results; rows follow the loaded sample order.
type Table struct {
	Parameters []string
	Metrics    []string
	Samples    [][]float64
	// Results holds one metric row per sample; failed samples hold NaN.
	Results [][]float64
	// Failures holds the error text per sample, empty when the sample
	// evaluated cleanly.
	Failures []string
}

// FailureCount returns the number of failed samples.
func (t *Table) FailureCount() int {
	count := 0
	for _, failure := range t.Failures {
		if failure != "" {
			count++
		}
	}
	return count
}

type job struct {
	index  int
	values []float64
}

// Evaluate runs every loaded sample and returns the result table. Samples
// are distributed to workers over an in-memory queue; results keep the
// sample order regardless of scheduling.
func (m *Model) Evaluate(ctx context.Context) (table *Table, err error) {
	ctx, span := tracing.StartSpan(ctx, "evaluation.evaluate", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	if len(m.samples) == 0 {
		return nil, fmt.Errorf("model: no samples loaded")
	}
	total := len(m.samples)
	span.WithAttributes(map[string]string{"evaluation.samples": fmt.Sprintf("%d", total)})

	table = &Table{
		Parameters: m.Parameters(),
		Metrics:    m.Metrics(),
		Samples:    m.samples,
		Results:    make([][]float64, total),
		Failures:   make([]string, total),
	}
	for i := range table.Results {
		row := make([]float64, len(m.metrics))
		for j := range row {
			row[j] = math.NaN()
		}
		table.Results[i] = row
	}

	queue := memory.NewQueue[job](memory.Config{QueueBuffer: total})
	for i, values := range m.samples {
		if err := queue.Publish(ctx, &job{index: i, values: values}); err != nil {
			return nil, err
		}
	}

	ctx, tracker := progress.WithNewTracker(ctx, idgen.New(), "evaluation", nil)
	tracker.Update(progress.Delta{Total: total, Pending: total})

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu        sync.Mutex
		firstErr  error
		processed int64
		workerWg  sync.WaitGroup
	)
	fail := func(workerErr error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = workerErr
		}
		mu.Unlock()
		cancel()
	}

	workers := m.workers
	if workers > total {
		workers = total
	}
	for i := 0; i < workers; i++ {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			replica, replicaErr := m.factory()
			if replicaErr != nil {
				fail(fmt.Errorf("model: factory: %w", replicaErr))
				return
			}
			var lastValues []float64
			for {
				msg, consumeErr := queue.Consume(workerCtx)
				if consumeErr != nil {
					return
				}
				sample := msg.T()
				progress.UpdateCtx(workerCtx, progress.Delta{Pending: -1, Running: 1})

				sampleErr := m.evaluateSample(workerCtx, replica, sample, lastValues, table)
				if sampleErr == nil {
					lastValues = sample.values
				} else {
					// state after a failure is undefined, force a full run
					lastValues = nil
				}

				_ = msg.Ack()
				if sampleErr != nil {
					progress.UpdateCtx(workerCtx, progress.Delta{Running: -1, Failed: 1})
					table.Failures[sample.index] = sampleErr.Error()
					switch m.exception {
					case ExceptionWarn:
						log.Printf("evaluation: sample %d failed: %v", sample.index, sampleErr)
					case ExceptionRaise:
						fail(fmt.Errorf("sample %d: %w", sample.index, sampleErr))
						return
					}
				} else {
					progress.UpdateCtx(workerCtx, progress.Delta{Running: -1, Completed: 1})
				}
				if atomic.AddInt64(&processed, 1) == int64(total) {
					cancel()
					return
				}
			}
		}()
	}
	workerWg.Wait()

	if firstErr != nil {
		return table, firstErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil && atomic.LoadInt64(&processed) < int64(total) {
		return table, ctxErr
	}
	return table, nil
}

// evaluateSample applies the sample values and refreshes the metrics. When
// no coupled parameter changed since the previous sample on this replica
// only design and costing are re-run.
func (m *Model) evaluateSample(ctx context.Context, replica *Replica, sample *job, lastValues []float64, table *Table) error {
	coupledChanged := lastValues == nil
	for i, parameter := range replica.Parameters {
		if !coupledChanged && parameter.Coupled() && sample.values[i] != lastValues[i] {
			coupledChanged = true
		}
	}
	for i, parameter := range replica.Parameters {
		if err := parameter.Apply(sample.values[i]); err != nil {
			return fmt.Errorf("parameter %s: %w", parameter.Name, err)
		}
	}
	if coupledChanged {
		if err := replica.System.Simulate(ctx); err != nil {
			return err
		}
	} else if err := replica.System.DesignAndCost(); err != nil {
		return err
	}
	for i, metric := range replica.Metrics {
		value, err := metric.Get()
		if err != nil {
			return fmt.Errorf("metric %s: %w", metric.Name, err)
		}
		table.Results[sample.index][i] = value
	}
	return nil
}

// MetricsAtBaseline applies every parameter baseline, simulates once and
// returns the metric values in column order.
func (m *Model) MetricsAtBaseline(ctx context.Context) ([]float64, error) {
	replica, err := m.factory()
	if err != nil {
		return nil, fmt.Errorf("model: factory: %w", err)
	}
	for _, parameter := range replica.Parameters {
		if err := parameter.Apply(parameter.Baseline); err != nil {
			return nil, fmt.Errorf("parameter %s: %w", parameter.Name, err)
		}
	}
	if err := replica.System.Simulate(ctx); err != nil {
		return nil, err
	}
	out := make([]float64, len(replica.Metrics))
	for i, metric := range replica.Metrics {
		value, err := metric.Get()
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", metric.Name, err)
		}
		out[i] = value
	}
	return out, nil
}

// Sensitivity holds one-at-a-time bound sweeps: metric values with each
// parameter at its distribution bounds while the others stay at baseline.
type Sensitivity struct {
	Parameters []string
	Metrics    []string
	// Baseline holds the metric values with every parameter at its
	// baseline, evaluated before the sweeps.
	Baseline []float64
	AtLower  [][]float64
	AtUpper  [][]float64
}

// LocalSensitivity evaluates each parameter at its distribution bounds with
// the remaining parameters at baseline. It runs on a single replica. The
// baseline is evaluated before and re-checked after the sweeps; a drift
// means a setter leaked state the baseline cannot restore.
func (m *Model) LocalSensitivity(ctx context.Context) (*Sensitivity, error) {
	replica, err := m.factory()
	if err != nil {
		return nil, fmt.Errorf("model: factory: %w", err)
	}
	out := &Sensitivity{
		Parameters: m.Parameters(),
		Metrics:    m.Metrics(),
		AtLower:    make([][]float64, len(replica.Parameters)),
		AtUpper:    make([][]float64, len(replica.Parameters)),
	}
	evaluate := func(target int, value float64) ([]float64, error) {
		for i, parameter := range replica.Parameters {
			v := parameter.Baseline
			if i == target {
				v = value
			}
			if err := parameter.Apply(v); err != nil {
				return nil, fmt.Errorf("parameter %s: %w", parameter.Name, err)
			}
		}
		if err := replica.System.Simulate(ctx); err != nil {
			return nil, err
		}
		row := make([]float64, len(replica.Metrics))
		for i, metric := range replica.Metrics {
			v, err := metric.Get()
			if err != nil {
				return nil, fmt.Errorf("metric %s: %w", metric.Name, err)
			}
			row[i] = v
		}
		return row, nil
	}
	if out.Baseline, err = evaluate(-1, 0); err != nil {
		return nil, err
	}
	for i, parameter := range replica.Parameters {
		if parameter.Distribution == nil {
			return nil, fmt.Errorf("model: parameter %s has no distribution", parameter.Name)
		}
		lower, upper := parameter.Distribution.Bounds()
		if out.AtLower[i], err = evaluate(i, lower); err != nil {
			return nil, err
		}
		if out.AtUpper[i], err = evaluate(i, upper); err != nil {
			return nil, err
		}
	}
	after, err := evaluate(-1, 0)
	if err != nil {
		return nil, err
	}
	for i := range after {
		scale := math.Max(math.Abs(out.Baseline[i]), math.Abs(after[i]))
		if math.Abs(after[i]-out.Baseline[i]) > 1e-6*scale+1e-9 {
			return nil, fmt.Errorf("model: metric %s drifted from %g to %g at baseline after the bound sweeps",
				m.metrics[i].Name, out.Baseline[i], after[i])
		}
	}
	return out, nil
}
