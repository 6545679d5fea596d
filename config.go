package flowsim

import (
	"fmt"

	"github.com/flowsimlabs/flowsim/system"
)

// Config is a serialisable representation of the service configuration. It
// can be populated from JSON, YAML, environment variables, etc. The
// zero-value is useful, every nested field inherits its package default.
type Config struct {
	Convergence ConvergenceConfig `json:"convergence" yaml:"convergence"`
	Evaluation  EvaluationConfig  `json:"evaluation" yaml:"evaluation"`
}

// ConvergenceConfig tunes the recycle solver applied to every simulated
// system.
type ConvergenceConfig struct {
	MolRtol float64 `json:"molRtol" yaml:"molRtol"`
	MolAtol float64 `json:"molAtol" yaml:"molAtol"`
	TRtol   float64 `json:"tRtol" yaml:"tRtol"`
	MaxIter int     `json:"maxIter" yaml:"maxIter"`
	Method  string  `json:"method" yaml:"method"`
}

// EvaluationConfig tunes model evaluation.
type EvaluationConfig struct {
	Workers int `json:"workers" yaml:"workers"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	defaults := system.DefaultConvergence()
	return &Config{
		Convergence: ConvergenceConfig{
			MolRtol: defaults.MolRtol,
			MolAtol: defaults.MolAtol,
			TRtol:   defaults.TRtol,
			MaxIter: defaults.MaxIter,
			Method:  defaults.Method,
		},
		Evaluation: EvaluationConfig{Workers: 1},
	}
}

// Options converts the convergence section into solver options, filling
// unset fields with the package defaults.
func (c ConvergenceConfig) Options() system.ConvergenceOptions {
	options := system.DefaultConvergence()
	if c.MolRtol > 0 {
		options.MolRtol = c.MolRtol
	}
	if c.MolAtol > 0 {
		options.MolAtol = c.MolAtol
	}
	if c.TRtol > 0 {
		options.TRtol = c.TRtol
	}
	if c.MaxIter > 0 {
		options.MaxIter = c.MaxIter
	}
	if c.Method != "" {
		options.Method = c.Method
	}
	return options
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	options := c.Convergence.Options()
	if err := options.Validate(); err != nil {
		return err
	}
	if c.Evaluation.Workers < 0 {
		return fmt.Errorf("evaluation.workers must be >= 0")
	}
	return nil
}
