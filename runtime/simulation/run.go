package simulation

import (
	"time"

	"github.com/flowsimlabs/flowsim/internal/clock"
	"github.com/flowsimlabs/flowsim/internal/idgen"
)

// Run states
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Run records one simulation of a flowsheet: lifecycle timestamps,
// convergence outcome and the headline results.
type Run struct {
	ID        string `json:"id"`
	Flowsheet string `json:"flowsheet"`
	State     string `json:"state"`

	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`

	// Iterations counts recycle iterations across all loops.
	Iterations int  `json:"iterations"`
	Converged  bool `json:"converged"`

	// Streams snapshots the product streams after the run.
	Streams map[string]*StreamSnapshot `json:"streams,omitempty"`

	// Cost results, filled when the run completes.
	PurchaseCost  float64 `json:"purchaseCost"`
	InstalledCost float64 `json:"installedCost"`
	PowerDemand   float64 `json:"powerDemand"`

	Error string `json:"error,omitempty"`
}

// StreamSnapshot captures the state of one stream at the end of a run.
type StreamSnapshot struct {
	T     float64 `json:"T"`
	P     float64 `json:"P"`
	Fmol  float64 `json:"fmol"`
	Fmass float64 `json:"fmass"`
}

// NewRun creates a pending run for the named flowsheet.
func NewRun(flowsheet string) *Run {
	return &Run{
		ID:        idgen.New(),
		Flowsheet: flowsheet,
		State:     StatePending,
		CreatedAt: clock.Now(),
	}
}

// Start transitions the run to the running state.
func (r *Run) Start() {
	now := clock.Now()
	r.StartedAt = &now
	r.State = StateRunning
}

// Complete transitions the run to the completed state.
func (r *Run) Complete() {
	now := clock.Now()
	r.FinishedAt = &now
	r.State = StateCompleted
}

// Fail transitions the run to the failed state and records the error.
func (r *Run) Fail(err error) {
	now := clock.Now()
	r.FinishedAt = &now
	r.State = StateFailed
	if err != nil {
		r.Error = err.Error()
	}
}

// CopyFrom overwrites this run with another run's data.
func (r *Run) CopyFrom(other *Run) {
	if other == nil {
		return
	}
	*r = *other
	if other.Streams != nil {
		r.Streams = make(map[string]*StreamSnapshot, len(other.Streams))
		for name, snapshot := range other.Streams {
			copied := *snapshot
			r.Streams[name] = &copied
		}
	}
}
