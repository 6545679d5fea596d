package system

import (
	"fmt"
	"log"
	"math"
)

// CEIndex is the Chemical Engineering plant cost index used to escalate
// correlation base costs to present-day values.
var CEIndex = 567.5

// Correlation is a power-law purchase-cost correlation
//
//	cost = N · base · (size / (N·S0))^n · (CEIndex / CE)
//
// anchored at reference size S0 and reference cost index CE, optionally
// split over N parallel items. Out-of-range sizes are estimated anyway with
// a warning, matching common practice for early-stage design.
type Correlation struct {
	// Basis is the design-result key supplying the size (e.g. "Flow rate").
	Basis string
	// Units is the unit of measure of the basis.
	Units string
	// Name is the equipment entry the cost is recorded under; empty uses
	// the basis name.
	Name string

	S0   float64 // reference size
	Base float64 // purchase cost at S0 and CE
	CE   float64 // cost index the correlation was published at
	N    float64 // scaling exponent
	BM   float64 // bare-module (installation) factor
	KW   float64 // electricity demand at S0, scaled linearly with size

	// LB and UB bound the validated size range; zero disables the check.
	LB float64
	UB float64

	// Items is the number of parallel equipment items; zero means one.
	Items int

	// Lifetime is the equipment replacement lifetime in years; zero means
	// the project lifetime.
	Lifetime int
}

// Apply evaluates the correlation against the unit's design results and
// records the purchase cost, bare-module factor, lifetime and electricity
// demand on the unit.
func (c Correlation) Apply(u *BaseUnit) error {
	size, ok := u.DesignResults[c.Basis]
	if !ok {
		return fmt.Errorf("unit %s: missing design result %q for cost correlation", u.ID(), c.Basis)
	}
	if c.S0 <= 0 || c.Base <= 0 {
		return fmt.Errorf("unit %s: invalid cost correlation anchor for %q", u.ID(), c.Basis)
	}
	if c.LB > 0 && size < c.LB {
		log.Printf("unit %s: size %.4g %s is below the correlation range [%g, %g]", u.ID(), size, c.Units, c.LB, c.UB)
	}
	if c.UB > 0 && size > c.UB {
		log.Printf("unit %s: size %.4g %s is above the correlation range [%g, %g]", u.ID(), size, c.Units, c.LB, c.UB)
	}

	items := c.Items
	if items <= 0 {
		items = 1
	}
	perItem := size / float64(items)

	ce := c.CE
	if ce <= 0 {
		ce = CEIndex
	}
	cost := float64(items) * c.Base * math.Pow(perItem/c.S0, c.N) * (CEIndex / ce)

	name := c.Name
	if name == "" {
		name = c.Basis
	}
	u.PurchaseCosts[name] = cost
	if c.BM > 0 {
		u.BareModuleFactors[name] = c.BM
	}
	if c.Lifetime > 0 {
		u.EquipmentLifetimes[name] = c.Lifetime
	}
	if c.KW > 0 {
		u.PowerDemands[name] = c.KW * size / c.S0
		var total float64
		for _, kw := range u.PowerDemands {
			total += kw
		}
		u.PowerUtility.Consumption = total
	}
	return nil
}
