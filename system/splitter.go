package system

import (
	"context"
	"fmt"

	"github.com/flowsimlabs/flowsim/thermo"
)

// Splitter divides its inlet between a top and a bottom outlet according to
// per-component split fractions. Thermal state passes through unchanged.
type Splitter struct {
	BaseUnit
	split []float64
}

// NewSplitter creates a splitter with a uniform split fraction sent to the
// top outlet.
func NewSplitter(id string, in *thermo.Stream, top, bottom *thermo.Stream, split float64) *Splitter {
	s := &Splitter{BaseUnit: NewBaseUnit(id, []*thermo.Stream{in}, []*thermo.Stream{top, bottom})}
	s.split = make([]float64, in.Registry().Size())
	for i := range s.split {
		s.split[i] = split
	}
	return s
}

// Isplit returns the split-fraction indexer. Unlike flow indexers, setting
// a group assigns the SAME fraction to every member (fractions are not
// additive), and getting a group returns that shared fraction only when all
// members agree.
func (s *Splitter) Isplit() SplitIndexer {
	return SplitIndexer{splitter: s}
}

func (s *Splitter) Run(ctx context.Context) error {
	in := s.ins[0]
	top, bottom := s.outs[0], s.outs[1]
	if err := top.CopyLike(in); err != nil {
		return err
	}
	if err := bottom.CopyLike(in); err != nil {
		return err
	}
	for i := 0; i < in.Registry().Size(); i++ {
		top.SetMol(i, in.Mol(i)*s.split[i])
		bottom.SetMol(i, in.Mol(i)*(1-s.split[i]))
	}
	return nil
}

// SplitIndexer exposes the splitter's split fractions keyed by chemical ID
// or group name.
type SplitIndexer struct {
	splitter *Splitter
}

// Get returns the split fraction for a chemical, or the shared fraction of
// a group whose members all agree.
func (ix SplitIndexer) Get(key string) (float64, error) {
	registry := ix.splitter.ins[0].Registry()
	indices, err := registry.Resolve(key)
	if err != nil {
		return 0, err
	}
	value := ix.splitter.split[indices[0]]
	for _, i := range indices[1:] {
		if ix.splitter.split[i] != value {
			return 0, fmt.Errorf("group %s has mixed split fractions", key)
		}
	}
	return value, nil
}

// Set assigns a split fraction to a chemical or to every member of a group.
func (ix SplitIndexer) Set(key string, value float64) error {
	if value < 0 || value > 1 {
		return fmt.Errorf("split fraction %v out of [0, 1]", value)
	}
	registry := ix.splitter.ins[0].Registry()
	indices, err := registry.Resolve(key)
	if err != nil {
		return err
	}
	for _, i := range indices {
		ix.splitter.split[i] = value
	}
	return nil
}
