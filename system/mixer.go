package system

import (
	"context"

	"github.com/flowsimlabs/flowsim/thermo"
)

// Mixer combines any number of inlets into a single outlet. The outlet
// pressure is the MINIMUM of the inlet pressures: a mixer has no means of
// raising pressure, so the joint line can only run at the lowest inlet
// level. Inlets that must not be let down should be boosted upstream.
//
// By default the outlet phase is resolved from the enthalpy balance alone
// (non-rigorous); enable rigorous mode to run an adiabatic flash on the
// outlet.
type Mixer struct {
	BaseUnit
	rigorous bool
}

// NewMixer creates a mixer with the given inlets and outlet.
func NewMixer(id string, ins []*thermo.Stream, out *thermo.Stream) *Mixer {
	return &Mixer{BaseUnit: NewBaseUnit(id, ins, []*thermo.Stream{out})}
}

// WithRigorous toggles rigorous phase equilibrium of the outlet.
func (m *Mixer) WithRigorous(rigorous bool) *Mixer {
	m.rigorous = rigorous
	return m
}

func (m *Mixer) Run(ctx context.Context) error {
	out := m.outs[0]
	var targetH float64
	if m.rigorous {
		for _, in := range m.ins {
			targetH += in.Enthalpy()
		}
	}
	if err := out.MixFrom(m.ins); err != nil {
		return err
	}
	if m.rigorous && !out.IsEmpty() {
		return out.FlashAdiabatic(targetH, out.P)
	}
	return nil
}
