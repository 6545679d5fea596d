package thermo

// FlowIndexer exposes the stream flow vector keyed by chemical ID or
// component group name, either in kmol/hr (Imol) or kg/hr (Imass). The mass
// view is derived: reads convert on the fly and writes divide by molecular
// weight, so both views always agree.
//
// Getting a group sums its members. Setting a group distributes the value
// over the members proportionally to their current composition; when every
// member is at zero flow the value is split equally.
type FlowIndexer struct {
	stream *Stream
	mass   bool
}

// Imol returns the molar flow indexer (kmol/hr).
func (s *Stream) Imol() FlowIndexer {
	return FlowIndexer{stream: s}
}

// Imass returns the mass flow indexer (kg/hr).
func (s *Stream) Imass() FlowIndexer {
	return FlowIndexer{stream: s, mass: true}
}

func (ix FlowIndexer) value(i int) float64 {
	v := ix.stream.mol[i]
	if ix.mass {
		v *= ix.stream.registry.Chemical(i).MW
	}
	return v
}

func (ix FlowIndexer) setValue(i int, v float64) {
	if ix.mass {
		v /= ix.stream.registry.Chemical(i).MW
	}
	ix.stream.mol[i] = v
	ix.stream.vapor = nil
}

// Get returns the flow for a chemical ID or the sum over a group.
func (ix FlowIndexer) Get(key string) (float64, error) {
	indices, err := ix.stream.registry.Resolve(key)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, i := range indices {
		total += ix.value(i)
	}
	return total, nil
}

// Set assigns the flow for a chemical ID, or distributes a total over a
// group by current composition.
func (ix FlowIndexer) Set(key string, value float64) error {
	indices, err := ix.stream.registry.Resolve(key)
	if err != nil {
		return err
	}
	if len(indices) == 1 {
		ix.setValue(indices[0], value)
		return nil
	}
	var current float64
	for _, i := range indices {
		current += ix.value(i)
	}
	if current == 0 {
		share := value / float64(len(indices))
		for _, i := range indices {
			ix.setValue(i, share)
		}
		return nil
	}
	for _, i := range indices {
		ix.setValue(i, value*ix.value(i)/current)
	}
	return nil
}

// MustGet is a Get that panics on unknown keys; intended for literals in
// examples and tests.
func (ix FlowIndexer) MustGet(key string) float64 {
	v, err := ix.Get(key)
	if err != nil {
		panic(err)
	}
	return v
}

// MustSet is a Set that panics on unknown keys.
func (ix FlowIndexer) MustSet(key string, value float64) {
	if err := ix.Set(key, value); err != nil {
		panic(err)
	}
}
