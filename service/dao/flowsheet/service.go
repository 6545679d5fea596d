package flowsheet

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/flowsimlabs/flowsim/internal/yml"
	"github.com/flowsimlabs/flowsim/model"
	"github.com/flowsimlabs/flowsim/service/dao/flowsheet/flows"
	"github.com/flowsimlabs/flowsim/service/meta"
)

// Service loads and decodes flowsheet definitions from YAML documents.
// Loaded definitions are cached by URL until refreshed or replaced.
type Service struct {
	metaService *meta.Service
	cache       sync.Map
}

// DecodeYAML decodes a flowsheet from YAML
func (s *Service) DecodeYAML(encoded []byte) (*model.Flowsheet, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(encoded, &node); err != nil {
		return nil, err
	}
	return s.ParseFlowsheet("", &node)
}

// Load loads a flowsheet from YAML at the specified URL
func (s *Service) Load(ctx context.Context, URL string) (*model.Flowsheet, error) {
	URL = normalizeExt(URL)
	if cached, ok := s.cache.Load(URL); ok {
		return cached.(*model.Flowsheet), nil
	}
	var node yaml.Node
	if err := s.metaService.Load(ctx, URL, &node); err != nil {
		return nil, fmt.Errorf("failed to load flowsheet from %s: %w", URL, err)
	}
	flowsheet, err := s.ParseFlowsheet(URL, &node)
	if err != nil {
		return nil, err
	}
	s.cache.Store(URL, flowsheet)
	return flowsheet, nil
}

// Refresh discards the cached definition for the URL; the next Load reloads
// it from the meta service.
func (s *Service) Refresh(URL string) {
	s.cache.Delete(normalizeExt(URL))
}

// Upsert replaces the cached definition for the URL.
func (s *Service) Upsert(URL string, flowsheet *model.Flowsheet) {
	s.cache.Store(normalizeExt(URL), flowsheet)
}

func normalizeExt(URL string) string {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	return URL
}

// ParseFlowsheet converts a YAML node into a flowsheet model and validates
// it structurally.
func (s *Service) ParseFlowsheet(URL string, node *yaml.Node) (*model.Flowsheet, error) {
	flowsheet := &model.Flowsheet{
		Source: &model.Source{URL: URL},
		Name:   getFlowsheetNameFromURL(URL),
	}
	if err := s.parseFlowsheet((*yml.Node)(node), flowsheet); err != nil {
		return nil, fmt.Errorf("failed to parse flowsheet from %s: %w", URL, err)
	}
	if err := resolvePortRefs(flowsheet); err != nil {
		return nil, fmt.Errorf("failed to parse flowsheet from %s: %w", URL, err)
	}
	if flowsheet.Name == "" {
		flowsheet.Name = generateAnonymousName()
	}
	if issues := flowsheet.Validate(); len(issues) > 0 {
		return nil, issues[0]
	}
	return flowsheet, nil
}

// getFlowsheetNameFromURL extracts the flowsheet name from the URL (file
// name without extension)
func getFlowsheetNameFromURL(URL string) string {
	base := filepath.Base(URL)
	if base == "." {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parseFlowsheet converts a YAML node to the flowsheet model
func (s *Service) parseFlowsheet(node *yml.Node, flowsheet *model.Flowsheet) error {
	rootNode := node
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		rootNode = (*yml.Node)(node.Content[0])
	}
	return rootNode.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "name":
			if valueNode.Kind == yaml.ScalarNode {
				flowsheet.Name = valueNode.Value
			}
		case "description":
			if valueNode.Kind == yaml.ScalarNode {
				flowsheet.Description = valueNode.Value
			}
		case "version":
			if valueNode.Kind == yaml.ScalarNode {
				flowsheet.Version = valueNode.Value
			}
		case "chemicals":
			ids, err := stringSlice(valueNode)
			if err != nil {
				return fmt.Errorf("failed to parse chemicals: %w", err)
			}
			flowsheet.Chemicals = ids
		case "groups":
			if valueNode.Kind != yaml.MappingNode {
				return fmt.Errorf("groups node should be a mapping")
			}
			flowsheet.Groups = make(map[string][]string)
			if err := valueNode.Pairs(func(name string, membersNode *yml.Node) error {
				members, err := stringSlice(membersNode)
				if err != nil {
					return err
				}
				flowsheet.Groups[name] = members
				return nil
			}); err != nil {
				return fmt.Errorf("failed to parse groups: %w", err)
			}
		case "streams":
			if err := s.parseStreams(valueNode, flowsheet); err != nil {
				return fmt.Errorf("failed to parse streams: %w", err)
			}
		case "units":
			if err := s.parseUnits(valueNode, flowsheet); err != nil {
				return fmt.Errorf("failed to parse units: %w", err)
			}
		case "convergence":
			convergence, err := parseConvergence(valueNode)
			if err != nil {
				return fmt.Errorf("failed to parse convergence: %w", err)
			}
			flowsheet.Convergence = convergence
		case "config":
			if config, ok := valueNode.Interface().(map[string]interface{}); ok {
				flowsheet.Config = config
			}
		}
		return nil
	})
}

// parseStreams converts the streams mapping; each entry is keyed by the
// stream name.
func (s *Service) parseStreams(node *yml.Node, flowsheet *model.Flowsheet) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("streams node should be a mapping")
	}
	return node.Pairs(func(name string, streamNode *yml.Node) error {
		def := &model.StreamDef{Name: name}
		flowsheet.Streams = append(flowsheet.Streams, def)
		if streamNode.Kind != yaml.MappingNode {
			// bare stream declaration, no state
			return nil
		}
		return streamNode.Pairs(func(key string, valueNode *yml.Node) error {
			switch strings.ToLower(key) {
			case "t":
				def.T = asFloat(valueNode)
			case "p":
				def.P = asFloat(valueNode)
			case "phase":
				def.Phase = valueNode.Value
			case "units":
				def.Units = valueNode.Value
			case "flow":
				if valueNode.Kind != yaml.MappingNode {
					return fmt.Errorf("stream %s flow should be a mapping", name)
				}
				def.Flow = make(map[string]float64)
				return valueNode.Pairs(func(flowKey string, flowValue *yml.Node) error {
					parsed, err := flows.Parse([]byte(flowKey))
					if err != nil {
						return fmt.Errorf("stream %s: invalid flow key %q: %w", name, flowKey, err)
					}
					if parsed.IsGroup() {
						if err := declareGroup(flowsheet, parsed); err != nil {
							return fmt.Errorf("stream %s: %w", name, err)
						}
					}
					def.Flow[parsed.Name] = asFloat(flowValue)
					return nil
				})
			}
			return nil
		})
	})
}

// declareGroup registers an inline group declaration, rejecting conflicting
// redefinitions.
func declareGroup(flowsheet *model.Flowsheet, key *flows.Key) error {
	if flowsheet.Groups == nil {
		flowsheet.Groups = make(map[string][]string)
	}
	if existing, ok := flowsheet.Groups[key.Name]; ok {
		if !equalStrings(existing, key.Members) {
			return fmt.Errorf("group %s redeclared with different members", key.Name)
		}
		return nil
	}
	flowsheet.Groups[key.Name] = key.Members
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// parseUnits converts the units mapping; each entry is keyed by the unit id.
func (s *Service) parseUnits(node *yml.Node, flowsheet *model.Flowsheet) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("units node should be a mapping")
	}
	return node.Pairs(func(id string, unitNode *yml.Node) error {
		if unitNode.Kind != yaml.MappingNode {
			return fmt.Errorf("unit %s should be a mapping", id)
		}
		def := &model.UnitDef{ID: id}
		flowsheet.Units = append(flowsheet.Units, def)
		return unitNode.Pairs(func(key string, valueNode *yml.Node) error {
			switch strings.ToLower(key) {
			case "type":
				def.Type = valueNode.Value
			case "ins":
				names, err := stringSlice(valueNode)
				if err != nil {
					return fmt.Errorf("unit %s ins: %w", id, err)
				}
				def.Ins = names
			case "outs":
				names, err := stringSlice(valueNode)
				if err != nil {
					return fmt.Errorf("unit %s outs: %w", id, err)
				}
				def.Outs = names
			case "settings":
				if settings, ok := valueNode.Interface().(map[string]interface{}); ok {
					def.Settings = settings
				}
			default:
				// loose setting, e.g. "split: 0.5" directly on the unit
				if valueNode.Kind == yaml.ScalarNode || valueNode.Kind == yaml.MappingNode {
					if def.Settings == nil {
						def.Settings = make(map[string]interface{})
					}
					def.Settings[key] = valueNode.Interface()
				}
			}
			return nil
		})
	})
}

// resolvePortRefs rewrites unit inlet entries of the form unitID-outletIndex
// (e.g. "M1-0") to the name of the referenced unit's outlet stream. Entries
// whose prefix does not name a unit are left alone so stream names containing
// a hyphen keep working.
func resolvePortRefs(flowsheet *model.Flowsheet) error {
	units := make(map[string]*model.UnitDef, len(flowsheet.Units))
	for _, unit := range flowsheet.Units {
		units[unit.ID] = unit
	}
	for _, unit := range flowsheet.Units {
		for i, name := range unit.Ins {
			port, ok := flows.ParsePort([]byte(name))
			if !ok {
				continue
			}
			source, ok := units[port.Unit]
			if !ok {
				continue
			}
			if port.Outlet >= len(source.Outs) {
				return fmt.Errorf("unit %s: port %q refers to outlet %d of %s, which declares %d outlets",
					unit.ID, name, port.Outlet, port.Unit, len(source.Outs))
			}
			unit.Ins[i] = source.Outs[port.Outlet]
		}
	}
	return nil
}

// parseConvergence converts the recycle solver options
func parseConvergence(node *yml.Node) (*model.ConvergenceDef, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("convergence node should be a mapping")
	}
	convergence := &model.ConvergenceDef{}
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "molrtol":
			convergence.MolRtol = asFloat(valueNode)
		case "trtol":
			convergence.TRtol = asFloat(valueNode)
		case "maxiter":
			convergence.MaxIter = int(asFloat(valueNode))
		case "method":
			convergence.Method = valueNode.Value
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return convergence, nil
}

// stringSlice converts a sequence or scalar node to a string slice
func stringSlice(node *yml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("expected a scalar, got %v", item.Kind)
			}
			out = append(out, item.Value)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a string or a sequence of strings")
}

// asFloat reads a scalar node as float64, tolerating int scalars
func asFloat(node *yml.Node) float64 {
	switch actual := node.Interface().(type) {
	case float64:
		return actual
	case int:
		return float64(actual)
	case int64:
		return float64(actual)
	case uint64:
		return float64(actual)
	default:
		return 0
	}
}

// New creates a new flowsheet definition service
func New(opts ...Option) *Service {
	ret := &Service{
		metaService: meta.New(afs.New(), ""),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
