package system

import (
	"fmt"
	"strings"

	"github.com/flowsimlabs/flowsim/model"
	"github.com/flowsimlabs/flowsim/thermo"
)

// Build materialises a flowsheet definition: it creates the chemical
// registry, the streams and the unit operations, wires them together and
// returns the assembled system ready to simulate.
func Build(flowsheet *model.Flowsheet) (*System, error) {
	if issues := flowsheet.Validate(); len(issues) > 0 {
		return nil, fmt.Errorf("flowsheet %s: %w", flowsheet.Name, issues[0])
	}

	registry, err := thermo.Default(flowsheet.Chemicals...)
	if err != nil {
		return nil, fmt.Errorf("flowsheet %s: %w", flowsheet.Name, err)
	}
	for name, members := range flowsheet.Groups {
		if err := registry.DefineGroup(name, members...); err != nil {
			return nil, fmt.Errorf("flowsheet %s: %w", flowsheet.Name, err)
		}
	}

	streams := make(map[string]*thermo.Stream, len(flowsheet.Streams))
	for _, def := range flowsheet.Streams {
		stream, err := buildStream(registry, def)
		if err != nil {
			return nil, fmt.Errorf("flowsheet %s: %w", flowsheet.Name, err)
		}
		streams[def.Name] = stream
	}

	units := make([]Unit, 0, len(flowsheet.Units))
	for _, def := range flowsheet.Units {
		unit, err := buildUnit(def, streams)
		if err != nil {
			return nil, fmt.Errorf("flowsheet %s: %w", flowsheet.Name, err)
		}
		units = append(units, unit)
	}

	sys, err := FromUnits(flowsheet.Name, units)
	if err != nil {
		return nil, err
	}
	if c := flowsheet.Convergence; c != nil {
		if c.MolRtol > 0 {
			sys.Convergence.MolRtol = c.MolRtol
		}
		if c.TRtol > 0 {
			sys.Convergence.TRtol = c.TRtol
		}
		if c.MaxIter > 0 {
			sys.Convergence.MaxIter = c.MaxIter
		}
		if c.Method != "" {
			sys.Convergence.Method = c.Method
		}
	}
	return sys, nil
}

func buildStream(registry *thermo.Registry, def *model.StreamDef) (*thermo.Stream, error) {
	stream := thermo.NewStream(registry, def.Name)
	if def.T > 0 {
		stream.T = def.T
	}
	if def.P > 0 {
		stream.P = def.P
	}
	if def.Phase != "" {
		stream.Phase = thermo.Phase(def.Phase[0])
	}
	indexer := stream.Imol()
	if def.Units == "kg/hr" {
		indexer = stream.Imass()
	}
	for key, value := range def.Flow {
		if err := indexer.Set(key, value); err != nil {
			return nil, fmt.Errorf("stream %s: %w", def.Name, err)
		}
	}
	return stream, nil
}

func buildUnit(def *model.UnitDef, streams map[string]*thermo.Stream) (Unit, error) {
	ins := make([]*thermo.Stream, len(def.Ins))
	for i, name := range def.Ins {
		ins[i] = streams[name]
	}
	outs := make([]*thermo.Stream, len(def.Outs))
	for i, name := range def.Outs {
		outs[i] = streams[name]
	}

	settings := settingReader{unit: def.ID, values: def.Settings}
	switch strings.ToLower(def.Type) {
	case "mixer":
		unit := NewMixer(def.ID, ins, outs[0])
		unit.WithRigorous(settings.boolValue("rigorous", false))
		return unit, settings.err
	case "splitter":
		unit := NewSplitter(def.ID, ins[0], outs[0], outs[1], settings.floatValue("split", 0))
		if splits, ok := def.Settings["splits"].(map[string]interface{}); ok {
			for key, raw := range splits {
				value, err := asFloat(raw)
				if err != nil {
					return nil, fmt.Errorf("unit %s: split %s: %w", def.ID, key, err)
				}
				if err := unit.Isplit().Set(key, value); err != nil {
					return nil, fmt.Errorf("unit %s: %w", def.ID, err)
				}
			}
		}
		return unit, settings.err
	case "pump":
		unit := NewPump(def.ID, ins[0], outs[0])
		if pout := settings.floatValue("pout", 0); pout > 0 {
			unit.WithPout(pout)
		}
		if deltaP := settings.floatValue("deltaP", 0); deltaP > 0 {
			unit.WithDeltaP(deltaP)
		}
		if efficiency := settings.floatValue("efficiency", 0); efficiency > 0 {
			unit.Efficiency = efficiency
		}
		return unit, settings.err
	case "hx":
		targetT := settings.floatValue("targetT", 0)
		if settings.err == nil && targetT <= 0 {
			return nil, fmt.Errorf("unit %s: hx requires a positive targetT", def.ID)
		}
		unit := NewHXUtility(def.ID, ins[0], outs[0], targetT)
		unit.WithVLE(settings.boolValue("vle", false))
		return unit, settings.err
	case "flash":
		unit := NewFlashDrum(def.ID, ins[0], outs[0], outs[1],
			settings.floatValue("T", 0), settings.floatValue("P", 0))
		return unit, settings.err
	case "washer":
		unit := NewWashingTank(def.ID, ins[0], ins[1], outs[0], outs[1])
		if tanks := settings.intValue("tanks", 0); tanks > 0 {
			unit.Tanks = tanks
		}
		if tau := settings.floatValue("tau", 0); tau > 0 {
			unit.Tau = tau
		}
		if fraction := settings.floatValue("workingFraction", 0); fraction > 0 {
			unit.WorkingFraction = fraction
		}
		return unit, settings.err
	case "feeder":
		unit := NewScrewFeeder(def.ID, ins[0], outs[0])
		if length := settings.floatValue("length", 0); length > 0 {
			unit.Length = length
		}
		return unit, settings.err
	}
	return nil, fmt.Errorf("unit %s: unknown type %q", def.ID, def.Type)
}

// settingReader reads loosely typed settings, remembering the first error.
type settingReader struct {
	unit   string
	values map[string]interface{}
	err    error
}

func (r *settingReader) floatValue(key string, fallback float64) float64 {
	raw, ok := r.values[key]
	if !ok {
		return fallback
	}
	value, err := asFloat(raw)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("unit %s: setting %s: %w", r.unit, key, err)
	}
	return value
}

func (r *settingReader) intValue(key string, fallback int) int {
	return int(r.floatValue(key, float64(fallback)))
}

func (r *settingReader) boolValue(key string, fallback bool) bool {
	raw, ok := r.values[key]
	if !ok {
		return fallback
	}
	value, ok := raw.(bool)
	if !ok && r.err == nil {
		r.err = fmt.Errorf("unit %s: setting %s: expected bool, got %T", r.unit, key, raw)
	}
	return value
}

func asFloat(raw interface{}) (float64, error) {
	switch actual := raw.(type) {
	case float64:
		return actual, nil
	case float32:
		return float64(actual), nil
	case int:
		return float64(actual), nil
	case int64:
		return float64(actual), nil
	case uint64:
		return float64(actual), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", raw)
	}
}
