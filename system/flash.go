package system

import (
	"context"

	"github.com/flowsimlabs/flowsim/thermo"
)

// FlashDrum performs an isothermal flash of its inlet at T and P and sends
// the vapor to the top outlet and the liquid to the bottom outlet.
type FlashDrum struct {
	BaseUnit
	// T and P are the flash conditions; zero values keep the inlet state.
	T float64
	P float64
}

// NewFlashDrum creates a flash drum operating at the given conditions.
func NewFlashDrum(id string, in *thermo.Stream, vapor, liquid *thermo.Stream, T, P float64) *FlashDrum {
	return &FlashDrum{
		BaseUnit: NewBaseUnit(id, []*thermo.Stream{in}, []*thermo.Stream{vapor, liquid}),
		T:        T,
		P:        P,
	}
}

func (f *FlashDrum) Run(ctx context.Context) error {
	in := f.ins[0]
	vapor, liquid := f.outs[0], f.outs[1]

	T, P := f.T, f.P
	if T == 0 {
		T = in.T
	}
	if P == 0 {
		P = in.P
	}

	if in.IsEmpty() {
		vapor.Empty()
		liquid.Empty()
		vapor.T, vapor.P, vapor.Phase = T, P, thermo.PhaseGas
		liquid.T, liquid.P, liquid.Phase = T, P, thermo.PhaseLiquid
		return nil
	}

	scratch := in.Copy(f.id + ".flash")
	if err := scratch.Flash(T, P); err != nil {
		return err
	}

	vapor.Empty()
	liquid.Empty()
	vapor.T, vapor.P, vapor.Phase = T, P, thermo.PhaseGas
	liquid.T, liquid.P, liquid.Phase = T, P, thermo.PhaseLiquid
	registry := in.Registry()
	for i := 0; i < registry.Size(); i++ {
		total := scratch.Mol(i)
		vap := scratch.VaporMol(i)
		vapor.SetMol(i, vap)
		liquid.SetMol(i, total-vap)
	}
	// SetMol clears phase splits; restore the single-phase outlets
	vapor.Phase = thermo.PhaseGas
	liquid.Phase = thermo.PhaseLiquid
	return nil
}

// Design sizes the drum from the vapor volumetric flow.
func (f *FlashDrum) Design() error {
	f.SetDesign("Vapor flow", "m3/hr", f.outs[0].Fvol())
	f.SetDesign("Liquid flow", "m3/hr", f.outs[1].Fvol())
	return nil
}

// Cost estimates the vessel purchase cost from the vapor flow.
func (f *FlashDrum) Cost() error {
	if f.DesignResults["Vapor flow"] == 0 {
		return nil
	}
	return Correlation{
		Basis: "Vapor flow", Units: "m3/hr", Name: "Vertical vessel",
		S0: 4500, Base: 101000, CE: 567, N: 0.6, BM: 3.0,
	}.Apply(&f.BaseUnit)
}
