package system

import (
	"context"

	"github.com/flowsimlabs/flowsim/thermo"
)

// Unit is a unit operation: a node of the flowsheet graph that reads its
// inlet streams and writes its outlet streams.
type Unit interface {
	ID() string
	Ins() []*thermo.Stream
	Outs() []*thermo.Stream

	// Run executes the mass and energy balance of the unit.
	Run(ctx context.Context) error
}

// Designer is implemented by units that size equipment after the balance
// has converged, filling their design results.
type Designer interface {
	Design() error
}

// Coster is implemented by units that estimate purchase costs from their
// design results.
type Coster interface {
	Cost() error
}

// PowerUtility tracks the electricity demand of a unit in kW.
type PowerUtility struct {
	Consumption float64
	Production  float64
}

// Rate returns the net electricity demand in kW.
func (p PowerUtility) Rate() float64 {
	return p.Consumption - p.Production
}

// BaseUnit carries identity, ports and result tables shared by all unit
// operations. Concrete units embed it and implement Run.
type BaseUnit struct {
	id   string
	ins  []*thermo.Stream
	outs []*thermo.Stream

	// DesignResults holds sizing figures keyed by measure name; DesignUnits
	// records the unit of measure of each entry.
	DesignResults map[string]float64
	DesignUnits   map[string]string

	// PurchaseCosts holds per-equipment baseline purchase costs in USD.
	PurchaseCosts map[string]float64

	// BareModuleFactors holds the installation factor per equipment entry.
	BareModuleFactors map[string]float64

	// EquipmentLifetimes holds replacement lifetimes in years, when they
	// differ from the project lifetime.
	EquipmentLifetimes map[string]int

	// PowerDemands holds correlation-sourced electricity demand per equipment
	// entry in kW; PowerUtility.Consumption carries their sum.
	PowerDemands map[string]float64

	PowerUtility PowerUtility
}

// NewBaseUnit creates the shared unit core.
func NewBaseUnit(id string, ins, outs []*thermo.Stream) BaseUnit {
	return BaseUnit{
		id:                 id,
		ins:                ins,
		outs:               outs,
		DesignResults:      make(map[string]float64),
		DesignUnits:        make(map[string]string),
		PurchaseCosts:      make(map[string]float64),
		BareModuleFactors:  make(map[string]float64),
		EquipmentLifetimes: make(map[string]int),
		PowerDemands:       make(map[string]float64),
	}
}

func (u *BaseUnit) ID() string { return u.id }

func (u *BaseUnit) Ins() []*thermo.Stream { return u.ins }

func (u *BaseUnit) Outs() []*thermo.Stream { return u.outs }

// SetDesign records a design result with its unit of measure.
func (u *BaseUnit) SetDesign(name, units string, value float64) {
	u.DesignResults[name] = value
	u.DesignUnits[name] = units
}

// PowerRate returns the net electricity demand of the unit in kW.
func (u *BaseUnit) PowerRate() float64 {
	return u.PowerUtility.Rate()
}

// TotalPurchaseCost sums the baseline purchase costs of the unit.
func (u *BaseUnit) TotalPurchaseCost() float64 {
	var total float64
	for _, cost := range u.PurchaseCosts {
		total += cost
	}
	return total
}

// InstalledCost sums purchase costs scaled by their bare-module factors.
func (u *BaseUnit) InstalledCost() float64 {
	var total float64
	for name, cost := range u.PurchaseCosts {
		factor := u.BareModuleFactors[name]
		if factor == 0 {
			factor = 1
		}
		total += cost * factor
	}
	return total
}
