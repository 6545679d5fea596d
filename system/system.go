package system

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/flowsimlabs/flowsim/thermo"
	"github.com/flowsimlabs/flowsim/tracing"
)

// System owns an ordered network of unit operations and drives the
// simulation: mass and energy balances with recycle convergence, followed
// by equipment design and costing.
type System struct {
	id      string
	network *Network
	graph   *graph
	units   []Unit

	// Convergence tunes the recycle solver.
	Convergence ConvergenceOptions

	converged  bool
	iterations int
}

// FromUnits assembles a system from an unordered unit set. Feeds and the
// recycle structure are discovered from stream connectivity.
func FromUnits(id string, units []Unit) (*System, error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("system %s: no units", id)
	}
	seen := make(map[string]bool, len(units))
	for _, unit := range units {
		if seen[unit.ID()] {
			return nil, fmt.Errorf("system %s: duplicate unit id %q", id, unit.ID())
		}
		seen[unit.ID()] = true
	}
	g := buildGraph(units)
	feeds := g.feeds()
	if len(feeds) == 0 {
		return nil, fmt.Errorf("system %s: no feed streams, every stream has a source", id)
	}
	network := NetworkFromFeedstock(feeds[0], feeds[1:], nil, g)
	for _, unit := range units {
		if !network.units[unit] {
			return nil, fmt.Errorf("system %s: unit %q is not reachable from any feed", id, unit.ID())
		}
	}
	return &System{
		id:          id,
		network:     network,
		graph:       g,
		units:       orderedUnits(network),
		Convergence: DefaultConvergence(),
	}, nil
}

// FromFeedstock assembles a system from the units downstream of a feed.
func FromFeedstock(id string, feedstock *thermo.Stream, units []Unit) (*System, error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("system %s: no units", id)
	}
	g := buildGraph(units)
	if g.sink[feedstock] == nil {
		return nil, fmt.Errorf("system %s: feedstock %q enters no unit", id, feedstock.Name())
	}
	var feeds []*thermo.Stream
	for _, feed := range g.feeds() {
		if feed != feedstock {
			feeds = append(feeds, feed)
		}
	}
	network := NetworkFromFeedstock(feedstock, feeds, nil, g)
	return &System{
		id:          id,
		network:     network,
		graph:       g,
		units:       orderedUnits(network),
		Convergence: DefaultConvergence(),
	}, nil
}

func orderedUnits(network *Network) []Unit {
	var out []Unit
	for _, node := range network.Path {
		if node.Sub != nil {
			out = append(out, orderedUnits(node.Sub)...)
		} else {
			out = append(out, node.Unit)
		}
	}
	return out
}

// ID returns the system identifier.
func (s *System) ID() string { return s.id }

// Units returns the units in execution order.
func (s *System) Units() []Unit { return s.units }

// Unit returns the unit with the given id, or nil.
func (s *System) Unit(id string) Unit {
	for _, unit := range s.units {
		if unit.ID() == id {
			return unit
		}
	}
	return nil
}

// Network returns the nested execution network.
func (s *System) Network() *Network { return s.network }

// Feeds returns the system feed streams, largest first.
func (s *System) Feeds() []*thermo.Stream { return s.graph.feeds() }

// Products returns the system product streams.
func (s *System) Products() []*thermo.Stream { return s.graph.products() }

// Recycles returns every recycle stream in the network.
func (s *System) Recycles() []*thermo.Stream { return s.network.allRecycles(nil) }

// Streams returns every stream attached to the system, sorted by name.
func (s *System) Streams() []*thermo.Stream {
	set := s.network.streams(s.graph)
	out := make([]*thermo.Stream, 0, len(set))
	for stream := range set {
		out = append(out, stream)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Converged reports whether the last Simulate converged all recycles.
func (s *System) Converged() bool { return s.converged }

// Iterations returns the recycle iteration count of the last Simulate.
func (s *System) Iterations() int { return s.iterations }

// Simulate runs the full pipeline: mass and energy balances with recycle
// convergence, then Design and Cost on every unit that implements them.
func (s *System) Simulate(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "system.simulate", "INTERNAL")
	span.WithAttributes(map[string]string{"system.id": s.id})
	err := s.simulate(ctx)
	tracing.EndSpan(span, err)
	return err
}

func (s *System) simulate(ctx context.Context) error {
	if err := s.Convergence.Validate(); err != nil {
		return err
	}
	s.converged = false
	s.iterations = 0
	if err := s.runNetwork(ctx, s.network); err != nil {
		return err
	}
	s.converged = true
	return s.DesignAndCost()
}

// DesignAndCost runs the equipment design and costing passes against the
// current stream state, without re-solving the balances.
func (s *System) DesignAndCost() error {
	for _, unit := range s.units {
		if designer, ok := unit.(Designer); ok {
			if err := designer.Design(); err != nil {
				return fmt.Errorf("unit %s: design: %w", unit.ID(), err)
			}
		}
	}
	for _, unit := range s.units {
		if coster, ok := unit.(Coster); ok {
			if err := coster.Cost(); err != nil {
				return fmt.Errorf("unit %s: cost: %w", unit.ID(), err)
			}
		}
	}
	return nil
}

// runNetwork executes the path once for linear sections and iterates
// sub-networks with recycles to convergence.
func (s *System) runNetwork(ctx context.Context, network *Network) error {
	if len(network.Recycle) == 0 {
		return s.runPath(ctx, network)
	}
	return s.converge(ctx, network)
}

func (s *System) runPath(ctx context.Context, network *Network) error {
	for _, node := range network.Path {
		if err := ctx.Err(); err != nil {
			return err
		}
		if node.Sub != nil {
			if err := s.runNetwork(ctx, node.Sub); err != nil {
				return err
			}
			continue
		}
		if err := node.Unit.Run(ctx); err != nil {
			return fmt.Errorf("unit %s: %w", node.Unit.ID(), err)
		}
	}
	return nil
}

// converge iterates the loop body until the recycle streams stop changing.
func (s *System) converge(ctx context.Context, network *Network) error {
	recycles := network.Recycle
	options := s.Convergence
	accelerate := options.Method != "fixed-point"
	var acc wegstein
	for iteration := 1; iteration <= options.MaxIter; iteration++ {
		s.iterations++
		prev := recycleState(recycles)
		if err := s.runPath(ctx, network); err != nil {
			return err
		}
		next := recycleState(recycles)
		if options.converged(recycles, prev, next) {
			return nil
		}
		if accelerate {
			applyState(recycles, acc.next(prev, next))
		}
	}
	return &ConvergenceError{System: s.id, Recycles: recycleNames(recycles), Iterations: options.MaxIter}
}

func recycleNames(recycles []*thermo.Stream) []string {
	out := make([]string, len(recycles))
	for i, stream := range recycles {
		out[i] = stream.Name()
	}
	return out
}

// ConvergenceError reports a recycle loop that failed to close within the
// iteration budget.
type ConvergenceError struct {
	System     string
	Recycles   []string
	Iterations int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("system %s: recycle %s did not converge within %d iterations",
		e.System, strings.Join(e.Recycles, ", "), e.Iterations)
}

// TotalPurchaseCost sums the purchase cost of every unit.
func (s *System) TotalPurchaseCost() float64 {
	var total float64
	for _, unit := range s.units {
		if base, ok := unit.(interface{ TotalPurchaseCost() float64 }); ok {
			total += base.TotalPurchaseCost()
		}
	}
	return total
}

// InstalledCost sums the installed cost of every unit.
func (s *System) InstalledCost() float64 {
	var total float64
	for _, unit := range s.units {
		if base, ok := unit.(interface{ InstalledCost() float64 }); ok {
			total += base.InstalledCost()
		}
	}
	return total
}

// PowerDemand sums the net electricity demand of every unit in kW.
func (s *System) PowerDemand() float64 {
	var total float64
	for _, unit := range s.units {
		if base, ok := unit.(interface{ PowerRate() float64 }); ok {
			total += base.PowerRate()
		}
	}
	return total
}
