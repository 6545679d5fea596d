package system

import (
	"fmt"
	"math"

	"github.com/flowsimlabs/flowsim/thermo"
)

// ConvergenceOptions tune the recycle loop solver.
type ConvergenceOptions struct {
	// MolRtol is the relative tolerance on component molar flows.
	MolRtol float64
	// MolAtol is the absolute tolerance floor on molar flows in kmol/hr.
	MolAtol float64
	// TRtol is the relative tolerance on stream temperature.
	TRtol float64
	// MaxIter bounds the number of recycle iterations.
	MaxIter int
	// Method selects the accelerator: "wegstein" (default) or "fixed-point".
	Method string
}

// DefaultConvergence returns the solver defaults.
func DefaultConvergence() ConvergenceOptions {
	return ConvergenceOptions{
		MolRtol: 1e-4,
		MolAtol: 1e-6,
		TRtol:   1e-4,
		MaxIter: 200,
		Method:  "wegstein",
	}
}

// Validate checks the options for usable values.
func (o ConvergenceOptions) Validate() error {
	if o.MolRtol <= 0 {
		return fmt.Errorf("convergence: molRtol must be positive, got %g", o.MolRtol)
	}
	if o.TRtol <= 0 {
		return fmt.Errorf("convergence: tRtol must be positive, got %g", o.TRtol)
	}
	if o.MaxIter <= 0 {
		return fmt.Errorf("convergence: maxIter must be positive, got %d", o.MaxIter)
	}
	switch o.Method {
	case "", "wegstein", "fixed-point":
	default:
		return fmt.Errorf("convergence: unknown method %q", o.Method)
	}
	return nil
}

// recycleState packs the recycle streams' molar flows and temperatures into
// one vector so the accelerator treats the loop as a single fixed point.
func recycleState(recycles []*thermo.Stream) []float64 {
	var out []float64
	for _, stream := range recycles {
		out = append(out, stream.MolVector()...)
		out = append(out, stream.T)
	}
	return out
}

// converged compares two recycle states against the tolerances.
func (o ConvergenceOptions) converged(recycles []*thermo.Stream, prev, next []float64) bool {
	offset := 0
	for _, stream := range recycles {
		n := stream.Registry().Size()
		for i := 0; i < n; i++ {
			a, b := prev[offset+i], next[offset+i]
			scale := math.Max(math.Abs(a), math.Abs(b))
			if math.Abs(a-b) > o.MolRtol*scale+o.MolAtol {
				return false
			}
		}
		tPrev, tNext := prev[offset+n], next[offset+n]
		if math.Abs(tPrev-tNext) > o.TRtol*math.Max(tPrev, tNext) {
			return false
		}
		offset += n + 1
	}
	return true
}

// wegstein accelerates the fixed-point iteration x_{k+1} = f(x_k) using the
// secant slope of each coordinate. Factors are clamped to keep the step from
// diverging on noisy coordinates.
type wegstein struct {
	x0, g0 []float64
	primed bool
}

const (
	wegsteinMin = -5.0
	wegsteinMax = 0.5
)

// next consumes the pair (x, g=f(x)) and returns the next iterate.
func (w *wegstein) next(x, g []float64) []float64 {
	out := make([]float64, len(g))
	if !w.primed {
		w.x0 = append([]float64(nil), x...)
		w.g0 = append([]float64(nil), g...)
		w.primed = true
		copy(out, g)
		return out
	}
	for i := range g {
		dx := x[i] - w.x0[i]
		dg := g[i] - w.g0[i]
		q := 0.0
		if dx != 0 {
			s := dg / dx
			if s != 1 {
				q = s / (s - 1)
			}
		}
		if q < wegsteinMin {
			q = wegsteinMin
		} else if q > wegsteinMax {
			q = wegsteinMax
		}
		out[i] = q*x[i] + (1-q)*g[i]
		if out[i] < 0 {
			out[i] = 0
		}
	}
	copy(w.x0, x)
	copy(w.g0, g)
	return out
}

// applyState writes a packed state vector back onto the recycle streams.
func applyState(recycles []*thermo.Stream, state []float64) {
	offset := 0
	for _, stream := range recycles {
		n := stream.Registry().Size()
		for i := 0; i < n; i++ {
			stream.SetMol(i, state[offset+i])
		}
		if t := state[offset+n]; t > 0 {
			stream.T = t
		}
		offset += n + 1
	}
}
