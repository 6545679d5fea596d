package thermo

import (
	"fmt"
	"math"
)

// Vapor-liquid equilibrium with the ideal Raoult model: K = Psat/P from
// Antoine coefficients. Permanent gases are pinned to the vapor phase and
// solids to the liquid phase via extreme K values.

const (
	vleTmin = 200.0
	vleTmax = 700.0
	vleTol  = 1e-6

	kNonVolatile    = 1e-9
	kNonCondensable = 1e9
)

func equilibriumK(chemical *Chemical, T, P float64) float64 {
	switch {
	case chemical.RefPhase == PhaseGas:
		return kNonCondensable
	case chemical.RefPhase == PhaseSolid || chemical.Antoine.IsZero():
		return kNonVolatile
	default:
		return chemical.Antoine.Psat(T) / P
	}
}

// BubblePoint returns the bubble-point temperature and the incipient vapor
// composition for liquid composition x at pressure P. Non-volatile
// components contribute nothing to the vapor.
func BubblePoint(registry *Registry, x []float64, P float64) (float64, []float64, error) {
	if len(x) != registry.Size() {
		return 0, nil, fmt.Errorf("composition length %d does not match registry size %d", len(x), registry.Size())
	}
	residual := func(T float64) float64 {
		var sum float64
		for i, xi := range x {
			if xi == 0 {
				continue
			}
			chemical := registry.Chemical(i)
			if !chemical.Volatile() {
				continue
			}
			sum += xi * chemical.Antoine.Psat(T)
		}
		return sum - P
	}
	T, err := bisect(residual, vleTmin, vleTmax)
	if err != nil {
		return 0, nil, fmt.Errorf("bubble point at P=%g Pa: %w", P, err)
	}
	y := make([]float64, len(x))
	for i, xi := range x {
		chemical := registry.Chemical(i)
		if xi == 0 || !chemical.Volatile() {
			continue
		}
		y[i] = xi * chemical.Antoine.Psat(T) / P
	}
	return T, y, nil
}

// DewPoint returns the dew-point temperature and the incipient liquid
// composition for vapor composition y at pressure P. The vapor must be free
// of permanent gases, which cannot condense in this model.
func DewPoint(registry *Registry, y []float64, P float64) (float64, []float64, error) {
	if len(y) != registry.Size() {
		return 0, nil, fmt.Errorf("composition length %d does not match registry size %d", len(y), registry.Size())
	}
	for i, yi := range y {
		if yi > 0 && registry.Chemical(i).RefPhase == PhaseGas {
			return 0, nil, fmt.Errorf("dew point undefined: %s is non-condensable", registry.Chemical(i).ID)
		}
	}
	residual := func(T float64) float64 {
		var sum float64
		for i, yi := range y {
			if yi == 0 {
				continue
			}
			chemical := registry.Chemical(i)
			if !chemical.Volatile() {
				// non-volatile in the vapor has no equilibrium liquid; treat as
				// an infinitely heavy component
				sum += yi * 1e9
				continue
			}
			sum += yi * P / chemical.Antoine.Psat(T)
		}
		return sum - 1
	}
	// residual decreases with T; bisect on the negated function
	T, err := bisect(func(T float64) float64 { return -residual(T) }, vleTmin, vleTmax)
	if err != nil {
		return 0, nil, fmt.Errorf("dew point at P=%g Pa: %w", P, err)
	}
	x := make([]float64, len(y))
	for i, yi := range y {
		chemical := registry.Chemical(i)
		if yi == 0 || !chemical.Volatile() {
			continue
		}
		x[i] = yi * P / chemical.Antoine.Psat(T)
	}
	return T, x, nil
}

// Flash performs an isothermal two-phase flash at T, P and installs the
// resulting per-component vapor split on the stream. Streams that turn out
// to be entirely liquid or vapor are left single-phase.
func (s *Stream) Flash(T, P float64) error {
	total := s.Fmol()
	if total == 0 {
		return fmt.Errorf("stream %s: cannot flash an empty stream", s.name)
	}
	s.T = T
	s.P = P

	k := make([]float64, len(s.mol))
	z := make([]float64, len(s.mol))
	for i, v := range s.mol {
		z[i] = v / total
		k[i] = equilibriumK(s.registry.Chemical(i), T, P)
	}

	rachford := func(vf float64) float64 {
		var sum float64
		for i, zi := range z {
			if zi == 0 {
				continue
			}
			sum += zi * (k[i] - 1) / (1 + vf*(k[i]-1))
		}
		return sum
	}

	switch {
	case rachford(0) <= 0:
		// subcooled or saturated liquid
		s.vapor = nil
		s.Phase = PhaseLiquid
		return nil
	case rachford(1) >= 0:
		// superheated vapor
		s.vapor = nil
		s.Phase = PhaseGas
		return nil
	}

	vf, err := bisect(rachford, 1e-12, 1-1e-12)
	if err != nil {
		return fmt.Errorf("stream %s: flash did not converge: %w", s.name, err)
	}
	vapor := make([]float64, len(s.mol))
	for i, zi := range z {
		if zi == 0 {
			continue
		}
		// solids and other non-volatiles stay entirely in the liquid
		if k[i] == kNonVolatile {
			continue
		}
		yi := zi * k[i] / (1 + vf*(k[i]-1))
		vapor[i] = yi * vf * total
		if vapor[i] > s.mol[i] {
			vapor[i] = s.mol[i]
		}
	}
	// two-phase: the vapor split, not the Phase field, governs from here on
	s.setVaporSplit(vapor)
	return nil
}

// FlashAdiabatic flashes the stream at pressure P such that its enthalpy
// matches the target (kJ/hr). The temperature is iterated with the local
// heat-capacity slope; a handful of corrections suffice because enthalpy is
// near-linear in T between phase boundaries.
func (s *Stream) FlashAdiabatic(targetH, P float64) error {
	if s.Fmol() == 0 {
		return fmt.Errorf("stream %s: cannot flash an empty stream", s.name)
	}
	T := s.T
	for i := 0; i < 50; i++ {
		if err := s.Flash(T, P); err != nil {
			return err
		}
		diff := targetH - s.Enthalpy()
		c := s.HeatCapacityFlow()
		if c <= 0 {
			return fmt.Errorf("stream %s: invalid heat capacity during flash", s.name)
		}
		step := diff / c
		if math.Abs(step) < vleTol {
			return nil
		}
		// damp steps across the phase boundary where dH/dT exceeds the
		// sensible heat-capacity slope
		if step > 5 {
			step = 5
		} else if step < -5 {
			step = -5
		}
		T += step
	}
	return fmt.Errorf("stream %s: adiabatic flash did not converge", s.name)
}

// bisect finds a root of f in [lo, hi], requiring a sign change.
func bisect(f func(float64) float64, lo, hi float64) (float64, error) {
	flo, fhi := f(lo), f(hi)
	if flo == 0 {
		return lo, nil
	}
	if fhi == 0 {
		return hi, nil
	}
	if flo*fhi > 0 {
		return 0, fmt.Errorf("no sign change in [%g, %g]", lo, hi)
	}
	for i := 0; i < 200; i++ {
		mid := 0.5 * (lo + hi)
		fmid := f(mid)
		if math.Abs(fmid) < vleTol || (hi-lo) < vleTol {
			return mid, nil
		}
		if flo*fmid < 0 {
			hi = mid
		} else {
			lo, flo = mid, fmid
		}
	}
	return 0.5 * (lo + hi), nil
}
