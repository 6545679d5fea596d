package evaluation

import "fmt"

// Getter computes a metric value from the current simulation state.
type Getter func() (float64, error)

// Metric is one evaluated output of a model.
type Metric struct {
	// Name identifies the metric in result tables.
	Name string
	// Units is the unit of measure shown alongside the name.
	Units string
	// Element names the flowsheet element the metric reads, e.g. a stream
	// or unit id; informative only.
	Element string
	// Get computes the metric after a simulation.
	Get Getter
}

// Validate checks the metric for usable values.
func (m *Metric) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("metric has no name")
	}
	if m.Get == nil {
		return fmt.Errorf("metric %s has no getter", m.Name)
	}
	return nil
}

// Describe renders "Name (Units)" or just the name.
func (m *Metric) Describe() string {
	if m.Units == "" {
		return m.Name
	}
	return fmt.Sprintf("%s (%s)", m.Name, m.Units)
}
