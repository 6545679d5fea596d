package thermo

import (
	"fmt"
)

// Registry is an ordered, immutable set of chemicals shared by all streams
// of a flowsheet. Component groups give a single name to a slice of the
// flow vector (e.g. sugars = Glucose + Sucrose).
type Registry struct {
	chemicals []*Chemical
	index     map[string]int
	groups    map[string][]int
}

// NewRegistry creates a registry from explicit chemical definitions.
func NewRegistry(chemicals ...*Chemical) (*Registry, error) {
	if len(chemicals) == 0 {
		return nil, fmt.Errorf("registry requires at least one chemical")
	}
	r := &Registry{
		chemicals: chemicals,
		index:     make(map[string]int, len(chemicals)),
		groups:    make(map[string][]int),
	}
	for i, chemical := range chemicals {
		if chemical == nil || chemical.ID == "" {
			return nil, fmt.Errorf("chemical %d has no ID", i)
		}
		if chemical.MW <= 0 {
			return nil, fmt.Errorf("chemical %s has invalid molecular weight %v", chemical.ID, chemical.MW)
		}
		if _, ok := r.index[chemical.ID]; ok {
			return nil, fmt.Errorf("duplicate chemical %s", chemical.ID)
		}
		r.index[chemical.ID] = i
	}
	return r, nil
}

// Default creates a registry from built-in databank chemicals by ID.
func Default(ids ...string) (*Registry, error) {
	chemicals := make([]*Chemical, 0, len(ids))
	for _, id := range ids {
		chemical := LookupChemical(id)
		if chemical == nil {
			return nil, fmt.Errorf("unknown chemical %s", id)
		}
		chemicals = append(chemicals, chemical)
	}
	return NewRegistry(chemicals...)
}

// DefineGroup registers a named component group. Group names share the key
// space with chemical IDs and therefore must not collide with them.
func (r *Registry) DefineGroup(name string, members ...string) error {
	if name == "" {
		return fmt.Errorf("group name is empty")
	}
	if _, ok := r.index[name]; ok {
		return fmt.Errorf("group %s collides with a chemical ID", name)
	}
	if len(members) == 0 {
		return fmt.Errorf("group %s has no members", name)
	}
	indices := make([]int, 0, len(members))
	for _, member := range members {
		i, ok := r.index[member]
		if !ok {
			return fmt.Errorf("group %s refers to unknown chemical %s", name, member)
		}
		indices = append(indices, i)
	}
	r.groups[name] = indices
	return nil
}

// Resolve maps a chemical ID or group name onto flow-vector indices.
func (r *Registry) Resolve(key string) ([]int, error) {
	if i, ok := r.index[key]; ok {
		return []int{i}, nil
	}
	if indices, ok := r.groups[key]; ok {
		return indices, nil
	}
	return nil, fmt.Errorf("unknown chemical or group %s", key)
}

// Index returns the flow-vector position of a chemical ID, or -1.
func (r *Registry) Index(id string) int {
	if i, ok := r.index[id]; ok {
		return i
	}
	return -1
}

// Chemical returns the chemical at the given flow-vector position.
func (r *Registry) Chemical(i int) *Chemical {
	return r.chemicals[i]
}

// Chemicals returns the ordered chemical set.
func (r *Registry) Chemicals() []*Chemical {
	return r.chemicals
}

// Groups returns the defined group names.
func (r *Registry) Groups() []string {
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	return names
}

// Size returns the number of chemicals.
func (r *Registry) Size() int {
	return len(r.chemicals)
}
