package system

import (
	"context"
	"fmt"
	"math"

	"github.com/flowsimlabs/flowsim/thermo"
)

// HXUtility heats or cools a stream against a utility to a target
// temperature. By default the outlet keeps the inlet phase split and only
// sensible heat is exchanged (non-rigorous); enable VLE to flash the outlet
// at the target temperature so that boiling and condensation are resolved.
type HXUtility struct {
	BaseUnit
	// TargetT is the outlet temperature in K.
	TargetT float64
	vle     bool

	// Duty is the exchanged heat in kJ/hr, filled by Run.
	Duty float64
}

// NewHXUtility creates a utility heat exchanger with a target temperature.
func NewHXUtility(id string, in, out *thermo.Stream, targetT float64) *HXUtility {
	return &HXUtility{
		BaseUnit: NewBaseUnit(id, []*thermo.Stream{in}, []*thermo.Stream{out}),
		TargetT:  targetT,
	}
}

// WithVLE enables rigorous phase equilibrium of the outlet.
func (h *HXUtility) WithVLE(vle bool) *HXUtility {
	h.vle = vle
	return h
}

func (h *HXUtility) Run(ctx context.Context) error {
	if h.TargetT <= 0 {
		return fmt.Errorf("hx %s: target temperature not set", h.id)
	}
	in, out := h.ins[0], h.outs[0]
	if err := out.CopyLike(in); err != nil {
		return err
	}
	if out.IsEmpty() {
		h.Duty = 0
		out.T = h.TargetT
		return nil
	}
	inH := in.Enthalpy()
	if h.vle {
		if err := out.Flash(h.TargetT, out.P); err != nil {
			return err
		}
	} else {
		out.T = h.TargetT
	}
	h.Duty = out.Enthalpy() - inH
	return nil
}

// Design records the duty and the utility it implies: low-pressure steam
// when heating, cooling water when cooling.
func (h *HXUtility) Design() error {
	h.SetDesign("Duty", "kJ/hr", h.Duty)
	if h.Duty >= 0 {
		h.SetDesign("Low pressure steam", "kJ/hr", h.Duty)
	} else {
		h.SetDesign("Cooling water", "kJ/hr", -h.Duty)
	}
	return nil
}

// Cost estimates the exchanger purchase cost from its duty.
func (h *HXUtility) Cost() error {
	duty := math.Abs(h.Duty)
	if duty == 0 {
		return nil
	}
	// duty-based shortcut: area proportional to duty at a fixed approach
	h.SetDesign("Duty basis", "kJ/hr", duty)
	return Correlation{
		Basis: "Duty basis", Units: "kJ/hr", Name: "Heat exchanger",
		S0: 1e6, Base: 23400, CE: 567, N: 0.7, BM: 2.2,
	}.Apply(&h.BaseUnit)
}
