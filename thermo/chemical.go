package thermo

import "math"

// Reference temperature for enthalpy calculations (K).
const TRef = 298.15

// Phase identifies the phase of a stream or the reference phase of a chemical.
type Phase byte

const (
	PhaseLiquid Phase = 'l'
	PhaseGas    Phase = 'g'
	PhaseSolid  Phase = 's'
)

// Antoine holds log10-form Antoine coefficients with pressure in Pa and
// temperature in K: log10(Psat) = A - B/(T + C).
type Antoine struct {
	A float64
	B float64
	C float64
}

// IsZero reports whether no coefficients were supplied.
func (a Antoine) IsZero() bool {
	return a.A == 0 && a.B == 0 && a.C == 0
}

// Psat returns the saturation pressure in Pa at temperature T (K).
func (a Antoine) Psat(T float64) float64 {
	return math.Pow(10, a.A-a.B/(T+a.C))
}

// Tsat returns the saturation temperature in K at pressure P (Pa), the
// inverse of Psat.
func (a Antoine) Tsat(P float64) float64 {
	return a.B/(a.A-math.Log10(P)) - a.C
}

// Chemical describes a pure component. Molar quantities use kmol, so MW in
// g/mol doubles as kg/kmol and heat capacities are kJ/kmol/K.
type Chemical struct {
	// ID is the canonical chemical name used by stream indexers.
	ID string
	// CAS registry number, informative only.
	CAS string
	// MW is the molecular weight in g/mol.
	MW float64
	// Tb is the normal boiling point in K.
	Tb float64
	// Vl is the liquid (or solid) molar volume in m3/kmol.
	Vl float64
	// Cpl and Cpg are liquid and gas molar heat capacities in kJ/kmol/K.
	Cpl float64
	Cpg float64
	// Hvap is the heat of vaporization at Tb in kJ/kmol.
	Hvap float64
	// Antoine coefficients; zero value marks the chemical as non-volatile
	// (solids) or non-condensable (permanent gases), depending on RefPhase.
	Antoine Antoine
	// RefPhase is the phase at reference conditions.
	RefPhase Phase
}

// Volatile reports whether the chemical takes part in vapor-liquid
// equilibrium. Permanent gases and solids are excluded.
func (c *Chemical) Volatile() bool {
	return !c.Antoine.IsZero() && c.RefPhase == PhaseLiquid
}

// H returns the molar enthalpy in kJ/kmol at T for the given phase,
// relative to the chemical's reference phase at TRef.
func (c *Chemical) H(T float64, phase Phase) float64 {
	switch phase {
	case PhaseGas:
		if c.RefPhase == PhaseGas {
			return c.Cpg * (T - TRef)
		}
		// liquid reference: heat to Tb, vaporize, then gas sensible heat
		return c.Cpl*(c.Tb-TRef) + c.Hvap + c.Cpg*(T-c.Tb)
	default:
		if c.RefPhase == PhaseGas {
			// condensed permanent gas is not modelled; fall back to gas heat capacity
			return c.Cpg * (T - TRef)
		}
		return c.Cpl * (T - TRef)
	}
}

// Cp returns the molar heat capacity in kJ/kmol/K for the given phase.
func (c *Chemical) Cp(phase Phase) float64 {
	if phase == PhaseGas || c.RefPhase == PhaseGas {
		if c.Cpg != 0 {
			return c.Cpg
		}
	}
	return c.Cpl
}
