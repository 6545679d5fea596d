package evaluation

import (
	"fmt"
	"math"
	"math/rand"
)

// Parameter kinds. A coupled parameter changes the mass and energy balance
// and forces a full re-simulation; an isolated parameter only affects design
// and cost figures, so samples that differ in isolated values alone skip the
// balance and re-run design and costing only.
const (
	KindCoupled  = "coupled"
	KindIsolated = "isolated"
)

// Setter applies a parameter value to the simulation.
type Setter func(value float64) error

// Parameter is one uncertain input of an evaluation model.
type Parameter struct {
	// Name identifies the parameter in result tables.
	Name string
	// Units is the unit of measure shown alongside the name.
	Units string
	// Element names the unit or stream the parameter acts on.
	Element string
	// Kind is KindCoupled (default) or KindIsolated.
	Kind string
	// Baseline is the nominal value used outside of sampling.
	Baseline float64
	// Distribution draws sample values; required for Sample.
	Distribution Distribution
	// Hook transforms a value before it is applied, e.g. rounding a tank
	// count to an integer.
	Hook func(value float64) float64
	// Set applies the value to the simulation.
	Set Setter
}

// Apply runs the hook, if any, and applies the value to the simulation.
func (p *Parameter) Apply(value float64) error {
	if p.Hook != nil {
		value = p.Hook(value)
	}
	return p.Set(value)
}

// Validate checks the parameter for usable values.
func (p *Parameter) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("parameter has no name")
	}
	if p.Set == nil {
		return fmt.Errorf("parameter %s has no setter", p.Name)
	}
	switch p.Kind {
	case "", KindCoupled, KindIsolated:
	default:
		return fmt.Errorf("parameter %s has unknown kind %q", p.Name, p.Kind)
	}
	return nil
}

// Coupled reports whether the parameter requires a full re-simulation.
func (p *Parameter) Coupled() bool {
	return p.Kind == "" || p.Kind == KindCoupled
}

// Describe renders "Name (Units)" or just the name.
func (p *Parameter) Describe() string {
	if p.Units == "" {
		return p.Name
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.Units)
}

// Distribution draws values for one parameter.
type Distribution interface {
	// Sample draws one value using the supplied source.
	Sample(r *rand.Rand) float64
	// Bounds returns the distribution support.
	Bounds() (lower, upper float64)
}

// Uniform is a flat distribution over [Lower, Upper].
type Uniform struct {
	Lower float64
	Upper float64
}

func (u Uniform) Sample(r *rand.Rand) float64 {
	return u.Lower + r.Float64()*(u.Upper-u.Lower)
}

func (u Uniform) Bounds() (float64, float64) {
	return u.Lower, u.Upper
}

// Triangular is a triangular distribution over [Lower, Upper] peaking at
// Mode.
type Triangular struct {
	Lower float64
	Mode  float64
	Upper float64
}

func (t Triangular) Sample(r *rand.Rand) float64 {
	u := r.Float64()
	span := t.Upper - t.Lower
	if span <= 0 {
		return t.Lower
	}
	cut := (t.Mode - t.Lower) / span
	if u < cut {
		return t.Lower + math.Sqrt(u*span*(t.Mode-t.Lower))
	}
	return t.Upper - math.Sqrt((1-u)*span*(t.Upper-t.Mode))
}

func (t Triangular) Bounds() (float64, float64) {
	return t.Lower, t.Upper
}
