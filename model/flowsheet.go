package model

import (
	"fmt"
	"strings"
)

// Flowsheet represents a flowsheet definition: the chemical basis, the
// streams and the unit operations wired between them. It is the serialisable
// counterpart of a simulation system.
type Flowsheet struct {

	// Source provides information about the origin of the flowsheet
	Source *Source `json:"source,omitempty" yaml:"source,omitempty"`

	// Name is the unique identifier for the flowsheet
	Name string `json:"name" yaml:"name"`

	// Description provides a human-readable description of the flowsheet
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Version specifies the flowsheet version
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Chemicals lists the databank chemical IDs of the flowsheet basis
	Chemicals []string `json:"chemicals" yaml:"chemicals"`

	// Groups defines named component groups over the chemical basis
	Groups map[string][]string `json:"groups,omitempty" yaml:"groups,omitempty"`

	// Streams declares the material streams, including feed conditions
	Streams []*StreamDef `json:"streams" yaml:"streams"`

	// Units declares the unit operations and their port wiring
	Units []*UnitDef `json:"units" yaml:"units"`

	// Convergence tunes the recycle solver
	Convergence *ConvergenceDef `json:"convergence,omitempty" yaml:"convergence,omitempty"`

	// Config contains flowsheet-level configuration
	Config map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
}

// StreamDef declares a stream: its name, optional thermal state and an
// optional flow specification for feeds.
type StreamDef struct {
	// Name is the unique stream identifier
	Name string `json:"name" yaml:"name"`

	// T is the temperature in K; zero uses the default
	T float64 `json:"T,omitempty" yaml:"T,omitempty"`

	// P is the pressure in Pa; zero uses the default
	P float64 `json:"P,omitempty" yaml:"P,omitempty"`

	// Phase is "l", "g" or "s"; empty defaults to liquid
	Phase string `json:"phase,omitempty" yaml:"phase,omitempty"`

	// Flow maps chemical IDs or group names to flows
	Flow map[string]float64 `json:"flow,omitempty" yaml:"flow,omitempty"`

	// Units is the unit of measure of Flow: "kmol/hr" (default) or "kg/hr"
	Units string `json:"units,omitempty" yaml:"units,omitempty"`
}

// UnitDef declares a unit operation and its stream wiring.
type UnitDef struct {
	// ID is the unique unit identifier
	ID string `json:"id" yaml:"id"`

	// Type selects the unit operation, e.g. "mixer" or "flash"
	Type string `json:"type" yaml:"type"`

	// Ins and Outs name the inlet and outlet streams in port order
	Ins  []string `json:"ins" yaml:"ins"`
	Outs []string `json:"outs" yaml:"outs"`

	// Settings holds type-specific options, e.g. split fractions or a
	// target temperature
	Settings map[string]interface{} `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// ConvergenceDef tunes the recycle solver of the flowsheet.
type ConvergenceDef struct {
	MolRtol float64 `json:"molRtol,omitempty" yaml:"molRtol,omitempty"`
	TRtol   float64 `json:"tRtol,omitempty" yaml:"tRtol,omitempty"`
	MaxIter int     `json:"maxIter,omitempty" yaml:"maxIter,omitempty"`
	Method  string  `json:"method,omitempty" yaml:"method,omitempty"`
}

// Source describes where a flowsheet definition was loaded from.
type Source struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// portCounts maps a unit type onto its expected inlet and outlet counts; a
// negative inlet count means "one or more".
var portCounts = map[string][2]int{
	"mixer":    {-1, 1},
	"splitter": {1, 2},
	"pump":     {1, 1},
	"hx":       {1, 1},
	"flash":    {1, 2},
	"washer":   {2, 2},
	"feeder":   {1, 1},
}

// KnownUnitTypes returns the supported unit type names.
func KnownUnitTypes() []string {
	types := make([]string, 0, len(portCounts))
	for name := range portCounts {
		types = append(types, name)
	}
	return types
}

// Validate performs a best-effort structural validation of the flowsheet.
// The returned slice is empty when the flowsheet is sound; otherwise it
// contains human-readable error descriptions. The function verifies static
// properties only, it does not build or simulate anything.
func (f *Flowsheet) Validate() []error {
	var issues []error

	if f.Name == "" {
		issues = append(issues, fmt.Errorf("flowsheet has no name"))
	}
	if len(f.Chemicals) == 0 {
		issues = append(issues, fmt.Errorf("flowsheet declares no chemicals"))
	}

	// chemical and group keys share one namespace
	keys := map[string]bool{}
	for _, id := range f.Chemicals {
		if keys[id] {
			issues = append(issues, fmt.Errorf("duplicate chemical %s", id))
		}
		keys[id] = true
	}
	for name, members := range f.Groups {
		if keys[name] {
			issues = append(issues, fmt.Errorf("group %s collides with a chemical ID", name))
		}
		if len(members) == 0 {
			issues = append(issues, fmt.Errorf("group %s has no members", name))
		}
		for _, member := range members {
			if !contains(f.Chemicals, member) {
				issues = append(issues, fmt.Errorf("group %s refers to unknown chemical %s", name, member))
			}
		}
	}
	for name := range f.Groups {
		keys[name] = true
	}

	streams := map[string]bool{}
	for _, stream := range f.Streams {
		if stream.Name == "" {
			issues = append(issues, fmt.Errorf("stream has no name"))
			continue
		}
		if streams[stream.Name] {
			issues = append(issues, fmt.Errorf("duplicate stream %s", stream.Name))
		}
		streams[stream.Name] = true
		switch stream.Phase {
		case "", "l", "g", "s":
		default:
			issues = append(issues, fmt.Errorf("stream %s has unknown phase %q", stream.Name, stream.Phase))
		}
		switch stream.Units {
		case "", "kmol/hr", "kg/hr":
		default:
			issues = append(issues, fmt.Errorf("stream %s has unknown flow units %q", stream.Name, stream.Units))
		}
		for key, value := range stream.Flow {
			if !keys[key] {
				issues = append(issues, fmt.Errorf("stream %s refers to unknown chemical or group %s", stream.Name, key))
			}
			if value < 0 {
				issues = append(issues, fmt.Errorf("stream %s has negative flow for %s", stream.Name, key))
			}
		}
		if stream.T < 0 || stream.P < 0 {
			issues = append(issues, fmt.Errorf("stream %s has negative thermal state", stream.Name))
		}
	}

	units := map[string]bool{}
	produced := map[string]string{}
	for _, unit := range f.Units {
		if unit.ID == "" {
			issues = append(issues, fmt.Errorf("unit has no id"))
			continue
		}
		if units[unit.ID] {
			issues = append(issues, fmt.Errorf("duplicate unit %s", unit.ID))
		}
		units[unit.ID] = true

		counts, known := portCounts[strings.ToLower(unit.Type)]
		if !known {
			issues = append(issues, fmt.Errorf("unit %s has unknown type %q", unit.ID, unit.Type))
		} else {
			if counts[0] < 0 {
				if len(unit.Ins) == 0 {
					issues = append(issues, fmt.Errorf("unit %s requires at least one inlet", unit.ID))
				}
			} else if len(unit.Ins) != counts[0] {
				issues = append(issues, fmt.Errorf("unit %s requires %d inlets, has %d", unit.ID, counts[0], len(unit.Ins)))
			}
			if len(unit.Outs) != counts[1] {
				issues = append(issues, fmt.Errorf("unit %s requires %d outlets, has %d", unit.ID, counts[1], len(unit.Outs)))
			}
		}

		inlets := map[string]bool{}
		for _, name := range unit.Ins {
			if !streams[name] {
				issues = append(issues, fmt.Errorf("unit %s inlet refers to unknown stream %s", unit.ID, name))
			}
			inlets[name] = true
		}
		for _, name := range unit.Outs {
			if !streams[name] {
				issues = append(issues, fmt.Errorf("unit %s outlet refers to unknown stream %s", unit.ID, name))
				continue
			}
			if inlets[name] {
				issues = append(issues, fmt.Errorf("unit %s connects stream %s to both an inlet and an outlet", unit.ID, name))
			}
			if owner, ok := produced[name]; ok {
				issues = append(issues, fmt.Errorf("stream %s is produced by both %s and %s", name, owner, unit.ID))
				continue
			}
			produced[name] = unit.ID
		}
	}

	// a feed stream with a producer makes its flow specification dead
	for _, stream := range f.Streams {
		if len(stream.Flow) > 0 {
			if owner, ok := produced[stream.Name]; ok {
				issues = append(issues, fmt.Errorf("stream %s has a feed flow but is produced by unit %s", stream.Name, owner))
			}
		}
	}

	if f.Convergence != nil {
		c := f.Convergence
		if c.MolRtol < 0 || c.TRtol < 0 || c.MaxIter < 0 {
			issues = append(issues, fmt.Errorf("convergence options must be non-negative"))
		}
		switch c.Method {
		case "", "wegstein", "fixed-point":
		default:
			issues = append(issues, fmt.Errorf("unknown convergence method %q", c.Method))
		}
	}

	return issues
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// NewFlowsheet creates a new flowsheet with the given name
func NewFlowsheet(name string) *Flowsheet {
	return &Flowsheet{
		Name:   name,
		Groups: make(map[string][]string),
	}
}

// WithDescription sets the description of the flowsheet
func (f *Flowsheet) WithDescription(description string) *Flowsheet {
	f.Description = description
	return f
}

// WithVersion sets the version of the flowsheet
func (f *Flowsheet) WithVersion(version string) *Flowsheet {
	f.Version = version
	return f
}

// WithChemicals sets the chemical basis of the flowsheet
func (f *Flowsheet) WithChemicals(ids ...string) *Flowsheet {
	f.Chemicals = ids
	return f
}

// WithGroup defines a named component group
func (f *Flowsheet) WithGroup(name string, members ...string) *Flowsheet {
	if f.Groups == nil {
		f.Groups = make(map[string][]string)
	}
	f.Groups[name] = members
	return f
}

// WithConfig adds a configuration parameter to the flowsheet
func (f *Flowsheet) WithConfig(key string, value interface{}) *Flowsheet {
	if f.Config == nil {
		f.Config = make(map[string]interface{})
	}
	f.Config[key] = value
	return f
}

// WithConvergence sets the recycle solver options
func (f *Flowsheet) WithConvergence(convergence *ConvergenceDef) *Flowsheet {
	f.Convergence = convergence
	return f
}

// AddStream declares a stream and returns its definition for further setup
func (f *Flowsheet) AddStream(name string) *StreamDef {
	stream := &StreamDef{Name: name}
	f.Streams = append(f.Streams, stream)
	return stream
}

// AddUnit declares a unit operation
func (f *Flowsheet) AddUnit(id, unitType string, ins, outs []string) *UnitDef {
	unit := &UnitDef{ID: id, Type: unitType, Ins: ins, Outs: outs}
	f.Units = append(f.Units, unit)
	return unit
}

// Stream returns the stream definition with the given name, or nil
func (f *Flowsheet) Stream(name string) *StreamDef {
	for _, stream := range f.Streams {
		if stream.Name == name {
			return stream
		}
	}
	return nil
}

// Unit returns the unit definition with the given id, or nil
func (f *Flowsheet) Unit(id string) *UnitDef {
	for _, unit := range f.Units {
		if unit.ID == id {
			return unit
		}
	}
	return nil
}

// WithThermal sets the stream's thermal state
func (s *StreamDef) WithThermal(T, P float64) *StreamDef {
	s.T = T
	s.P = P
	return s
}

// WithPhase sets the stream's phase
func (s *StreamDef) WithPhase(phase string) *StreamDef {
	s.Phase = phase
	return s
}

// WithFlow adds a flow entry to the stream
func (s *StreamDef) WithFlow(key string, value float64) *StreamDef {
	if s.Flow == nil {
		s.Flow = make(map[string]float64)
	}
	s.Flow[key] = value
	return s
}

// WithUnits sets the unit of measure of the stream's flow specification
func (s *StreamDef) WithUnits(units string) *StreamDef {
	s.Units = units
	return s
}

// WithSetting adds a type-specific option to the unit
func (u *UnitDef) WithSetting(key string, value interface{}) *UnitDef {
	if u.Settings == nil {
		u.Settings = make(map[string]interface{})
	}
	u.Settings[key] = value
	return u
}

// Clone creates a deep copy of the flowsheet
func (f *Flowsheet) Clone() *Flowsheet {
	if f == nil {
		return nil
	}
	clone := &Flowsheet{
		Name:        f.Name,
		Description: f.Description,
		Version:     f.Version,
	}
	if f.Source != nil {
		source := *f.Source
		clone.Source = &source
	}
	if f.Chemicals != nil {
		clone.Chemicals = append([]string(nil), f.Chemicals...)
	}
	if f.Groups != nil {
		clone.Groups = make(map[string][]string, len(f.Groups))
		for name, members := range f.Groups {
			clone.Groups[name] = append([]string(nil), members...)
		}
	}
	for _, stream := range f.Streams {
		copied := *stream
		if stream.Flow != nil {
			copied.Flow = make(map[string]float64, len(stream.Flow))
			for k, v := range stream.Flow {
				copied.Flow[k] = v
			}
		}
		clone.Streams = append(clone.Streams, &copied)
	}
	for _, unit := range f.Units {
		copied := *unit
		copied.Ins = append([]string(nil), unit.Ins...)
		copied.Outs = append([]string(nil), unit.Outs...)
		if unit.Settings != nil {
			copied.Settings = make(map[string]interface{}, len(unit.Settings))
			for k, v := range unit.Settings {
				copied.Settings[k] = v
			}
		}
		clone.Units = append(clone.Units, &copied)
	}
	if f.Convergence != nil {
		convergence := *f.Convergence
		clone.Convergence = &convergence
	}
	if f.Config != nil {
		clone.Config = make(map[string]interface{}, len(f.Config))
		for k, v := range f.Config {
			clone.Config[k] = v
		}
	}
	return clone
}
