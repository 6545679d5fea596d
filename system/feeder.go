package system

import (
	"context"
	"math"

	"github.com/flowsimlabs/flowsim/thermo"
)

// ScrewFeeder conveys a solids stream unchanged; it exists for its power
// demand and purchase cost.
type ScrewFeeder struct {
	BaseUnit
	// Length is the conveyor length in ft.
	Length float64
}

// NewScrewFeeder creates a screw feeder with the default 30 ft length.
func NewScrewFeeder(id string, in, out *thermo.Stream) *ScrewFeeder {
	return &ScrewFeeder{
		BaseUnit: NewBaseUnit(id, []*thermo.Stream{in}, []*thermo.Stream{out}),
		Length:   30,
	}
}

func (f *ScrewFeeder) Run(ctx context.Context) error {
	return f.outs[0].CopyLike(f.ins[0])
}

// Design fills the volumetric throughput and the conveyor motor demand.
func (f *ScrewFeeder) Design() error {
	feed := f.ins[0]
	f.SetDesign("Flow rate", "ft3/hr", feed.Fvol()*ft3PerM3)
	massLbPerSec := lbPerSecPerKgHr * feed.Fmass()
	f.PowerUtility.Consumption = 0.0146 * math.Pow(massLbPerSec, 0.85) * f.Length * hp2kW
	return nil
}

// Cost applies the feeder correlation; sizes outside [400, 1e5] ft3/hr are
// estimated with a warning.
func (f *ScrewFeeder) Cost() error {
	return Correlation{
		Basis: "Flow rate", Units: "ft3/hr", Name: "Screw feeder",
		S0: 1, Base: 1096, CE: 567, N: 0.22,
		LB: 400, UB: 10e4,
	}.Apply(&f.BaseUnit)
}
