package system

import (
	"context"
	"fmt"

	"github.com/flowsimlabs/flowsim/thermo"
)

// Pump raises the pressure of a liquid stream. Everything else about the
// pressure profile of a flowsheet is simplified: units have no internal
// pressure drop, so outlet pressure equals inlet pressure unless a unit
// (like this one) sets it explicitly.
type Pump struct {
	BaseUnit
	// Pout is the absolute outlet pressure in Pa; zero defers to DeltaP.
	Pout float64
	// DeltaP is the pressure rise in Pa applied when Pout is zero.
	DeltaP float64
	// Efficiency is the pump efficiency used for the power estimate.
	Efficiency float64
}

// NewPump creates a pump; with neither Pout nor DeltaP configured it is a
// plain pass-through that preserves the inlet pressure.
func NewPump(id string, in, out *thermo.Stream) *Pump {
	return &Pump{
		BaseUnit:   NewBaseUnit(id, []*thermo.Stream{in}, []*thermo.Stream{out}),
		Efficiency: 0.7,
	}
}

// WithPout sets the absolute outlet pressure in Pa.
func (p *Pump) WithPout(pout float64) *Pump {
	p.Pout = pout
	return p
}

// WithDeltaP sets the pressure rise in Pa.
func (p *Pump) WithDeltaP(deltaP float64) *Pump {
	p.DeltaP = deltaP
	return p
}

func (p *Pump) Run(ctx context.Context) error {
	in, out := p.ins[0], p.outs[0]
	if err := out.CopyLike(in); err != nil {
		return err
	}
	switch {
	case p.Pout > 0:
		if p.Pout < in.P {
			return fmt.Errorf("pump %s: outlet pressure %g Pa below inlet %g Pa", p.id, p.Pout, in.P)
		}
		out.P = p.Pout
	case p.DeltaP > 0:
		out.P = in.P + p.DeltaP
	default:
		out.P = in.P
	}
	return nil
}

// Design fills the hydraulic power demand of the pump.
func (p *Pump) Design() error {
	in, out := p.ins[0], p.outs[0]
	q := in.Fvol()                        // m3/hr
	deltaP := out.P - in.P                // Pa
	ideal := q * deltaP / 3.6e6           // kW
	if p.Efficiency <= 0 || p.Efficiency > 1 {
		return fmt.Errorf("pump %s: invalid efficiency %v", p.id, p.Efficiency)
	}
	brake := ideal / p.Efficiency
	p.SetDesign("Flow rate", "m3/hr", q)
	p.SetDesign("Ideal power", "kW", ideal)
	p.SetDesign("Brake power", "kW", brake)
	if q > 0 {
		density := in.Fmass() / q // kg/m3
		if density > 0 {
			p.SetDesign("Head", "m", deltaP/(density*9.80665))
		}
	}
	p.PowerUtility.Consumption = brake
	return nil
}

// Cost estimates the pump purchase cost from its flow rate.
func (p *Pump) Cost() error {
	return Correlation{
		Basis: "Flow rate", Units: "m3/hr", Name: "Pump",
		S0: 79.93, Base: 9350, CE: 522, N: 0.8, BM: 2.3,
		LB: 1, UB: 1500,
	}.Apply(&p.BaseUnit)
}
