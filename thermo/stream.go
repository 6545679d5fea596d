package thermo

import (
	"fmt"
	"math"
	"strings"
)

// Default stream conditions.
const (
	DefaultT = 298.15 // K
	DefaultP = 101325 // Pa
)

// Stream is a material stream: thermal state plus a molar flow vector
// (kmol/hr) aligned with its registry. A stream is single phase unless a
// flash has populated the per-component vapor split.
type Stream struct {
	name     string
	registry *Registry

	// T is the stream temperature in K.
	T float64
	// P is the stream pressure in Pa.
	P float64
	// Phase is the bulk phase; ignored when the stream is two-phase.
	Phase Phase

	mol []float64
	// vapor holds the kmol/hr of each component in the vapor phase when the
	// stream is two-phase; nil for single-phase streams.
	vapor []float64
}

// NewStream creates an empty stream at default conditions.
func NewStream(registry *Registry, name string) *Stream {
	return &Stream{
		name:     name,
		registry: registry,
		T:        DefaultT,
		P:        DefaultP,
		Phase:    PhaseLiquid,
		mol:      make([]float64, registry.Size()),
	}
}

// WithThermal sets temperature and pressure and returns the stream.
func (s *Stream) WithThermal(T, P float64) *Stream {
	s.T = T
	s.P = P
	return s
}

// WithPhase sets the bulk phase and returns the stream.
func (s *Stream) WithPhase(phase Phase) *Stream {
	s.Phase = phase
	return s
}

// Name returns the stream name.
func (s *Stream) Name() string { return s.name }

// Rename sets the stream name.
func (s *Stream) Rename(name string) { s.name = name }

// Registry returns the chemical registry the flow vector is aligned with.
func (s *Stream) Registry() *Registry { return s.registry }

// Mol returns the molar flow of the component at index i in kmol/hr.
func (s *Stream) Mol(i int) float64 { return s.mol[i] }

// SetMol sets the molar flow of the component at index i in kmol/hr.
func (s *Stream) SetMol(i int, value float64) {
	s.mol[i] = value
	s.vapor = nil
}

// MolVector returns a copy of the molar flow vector.
func (s *Stream) MolVector() []float64 {
	out := make([]float64, len(s.mol))
	copy(out, s.mol)
	return out
}

// Fmol returns the total molar flow in kmol/hr.
func (s *Stream) Fmol() float64 {
	var total float64
	for _, v := range s.mol {
		total += v
	}
	return total
}

// Fmass returns the total mass flow in kg/hr.
func (s *Stream) Fmass() float64 {
	var total float64
	for i, v := range s.mol {
		total += v * s.registry.Chemical(i).MW
	}
	return total
}

// Fvol returns the total volumetric flow in m3/hr, using liquid molar
// volumes for condensed components and the ideal-gas law for vapor.
func (s *Stream) Fvol() float64 {
	var total float64
	for i, v := range s.mol {
		if v == 0 {
			continue
		}
		vap := s.vaporMol(i)
		liq := v - vap
		chemical := s.registry.Chemical(i)
		total += liq * chemical.Vl
		if vap > 0 {
			// ideal gas: V = nRT/P with R = 8314 J/kmol/K
			total += vap * 8314 * s.T / s.P
		}
	}
	return total
}

// MolFrac returns the overall molar composition; an empty stream yields a
// zero vector.
func (s *Stream) MolFrac() []float64 {
	total := s.Fmol()
	out := make([]float64, len(s.mol))
	if total == 0 {
		return out
	}
	for i, v := range s.mol {
		out[i] = v / total
	}
	return out
}

func (s *Stream) vaporMol(i int) float64 {
	if s.vapor != nil {
		return s.vapor[i]
	}
	if s.Phase == PhaseGas || s.registry.Chemical(i).RefPhase == PhaseGas {
		return s.mol[i]
	}
	return 0
}

// VaporMol returns the kmol/hr of component i in the vapor phase.
func (s *Stream) VaporMol(i int) float64 {
	return s.vaporMol(i)
}

// VaporFraction returns the molar vapor fraction of the stream.
func (s *Stream) VaporFraction() float64 {
	total := s.Fmol()
	if total == 0 {
		return 0
	}
	var vap float64
	for i := range s.mol {
		vap += s.vaporMol(i)
	}
	return vap / total
}

// setVaporSplit installs a per-component vapor split (kmol/hr).
func (s *Stream) setVaporSplit(vapor []float64) {
	s.vapor = vapor
}

// Enthalpy returns the total enthalpy flow in kJ/hr relative to TRef.
func (s *Stream) Enthalpy() float64 {
	var total float64
	for i, v := range s.mol {
		if v == 0 {
			continue
		}
		chemical := s.registry.Chemical(i)
		vap := s.vaporMol(i)
		if liq := v - vap; liq > 0 {
			total += liq * chemical.H(s.T, PhaseLiquid)
		}
		if vap > 0 {
			total += vap * chemical.H(s.T, PhaseGas)
		}
	}
	return total
}

// HeatCapacityFlow returns the sensible heat capacity flow in kJ/hr/K.
func (s *Stream) HeatCapacityFlow() float64 {
	var total float64
	for i, v := range s.mol {
		if v == 0 {
			continue
		}
		chemical := s.registry.Chemical(i)
		vap := s.vaporMol(i)
		total += (v - vap) * chemical.Cp(PhaseLiquid)
		if vap > 0 {
			total += vap * chemical.Cp(PhaseGas)
		}
	}
	return total
}

// Empty zeroes the flow vector.
func (s *Stream) Empty() {
	for i := range s.mol {
		s.mol[i] = 0
	}
	s.vapor = nil
}

// IsEmpty reports whether the stream carries no material.
func (s *Stream) IsEmpty() bool {
	for _, v := range s.mol {
		if v != 0 {
			return false
		}
	}
	return true
}

// CopyLike copies flow and thermal state from another stream.
func (s *Stream) CopyLike(other *Stream) error {
	if err := s.CopyFlow(other); err != nil {
		return err
	}
	s.T = other.T
	s.P = other.P
	s.Phase = other.Phase
	if other.vapor != nil {
		s.vapor = append([]float64(nil), other.vapor...)
	}
	return nil
}

// CopyFlow copies only the flow vector from another stream.
func (s *Stream) CopyFlow(other *Stream) error {
	if other.registry != s.registry {
		return fmt.Errorf("stream %s: cannot copy flow across registries", s.name)
	}
	copy(s.mol, other.mol)
	s.vapor = nil
	return nil
}

// Copy returns an independent copy of the stream under a new name.
func (s *Stream) Copy(name string) *Stream {
	out := NewStream(s.registry, name)
	_ = out.CopyLike(s)
	return out
}

// MixFrom overwrites this stream with the mixture of the sources: flows are
// summed component-wise, the outlet pressure is the minimum inlet pressure
// and the outlet temperature is solved from the enthalpy balance. No phase
// equilibrium is performed; callers that need a rigorous outlet phase run a
// flash afterwards.
func (s *Stream) MixFrom(sources []*Stream) error {
	s.Empty()
	if len(sources) == 0 {
		return nil
	}
	var totalH float64
	minP := math.Inf(1)
	for _, source := range sources {
		if source == nil {
			continue
		}
		if source.registry != s.registry {
			return fmt.Errorf("stream %s: cannot mix across registries", s.name)
		}
		for i, v := range source.mol {
			s.mol[i] += v
		}
		totalH += source.Enthalpy()
		if source.P < minP {
			minP = source.P
		}
	}
	s.P = minP
	s.Phase = PhaseLiquid
	if s.IsEmpty() {
		s.T = sources[0].T
		return nil
	}
	return s.SetEnthalpy(totalH)
}

// SetEnthalpy solves the stream temperature such that Enthalpy() matches
// the target at the current phase split. With constant heat capacities the
// balance is linear in T, so a single correction is exact.
func (s *Stream) SetEnthalpy(target float64) error {
	c := s.HeatCapacityFlow()
	if c <= 0 {
		return fmt.Errorf("stream %s: cannot set enthalpy of an empty stream", s.name)
	}
	s.T += (target - s.Enthalpy()) / c
	if s.T <= 0 || math.IsNaN(s.T) {
		return fmt.Errorf("stream %s: enthalpy balance produced invalid temperature", s.name)
	}
	return nil
}

// String renders the stream in a compact, stable format for logs and tests.
func (s *Stream) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stream: %s\n phase: %q, T: %.5g K, P: %.6g Pa\n flow (kmol/hr):", s.name, string(s.Phase), s.T, s.P)
	empty := true
	for i, v := range s.mol {
		if v == 0 {
			continue
		}
		empty = false
		fmt.Fprintf(&b, " %s=%.4g", s.registry.Chemical(i).ID, v)
	}
	if empty {
		b.WriteString(" (empty)")
	}
	return b.String()
}
