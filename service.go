package flowsim

import (
	"github.com/viant/afs"
	"github.com/viant/afs/storage"

	"github.com/flowsimlabs/flowsim/service/dao/flowsheet"
	rmemory "github.com/flowsimlabs/flowsim/service/dao/run/memory"
	"github.com/flowsimlabs/flowsim/service/meta"
)

// Service is the high level facade: it wires the flowsheet definition
// service, the run store and the simulation runtime.
type Service struct {
	runtime       *Runtime
	metaService   *meta.Service
	metaBaseURL   string
	metaFsOptions []storage.Option
	config        *Config
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.metaService == nil {
		s.metaService = meta.New(afs.New(), s.metaBaseURL, s.metaFsOptions...)
	}
	if s.runtime.flowsheetDAO == nil {
		s.runtime.flowsheetDAO = flowsheet.New(flowsheet.WithMetaService(s.metaService))
	}
	if s.runtime.runDAO == nil {
		s.runtime.runDAO = rmemory.New()
	}
	if s.runtime.convergence == nil {
		convergence := s.config.Convergence.Options()
		s.runtime.convergence = &convergence
	}
	if s.runtime.evaluationWorkers == 0 {
		s.runtime.evaluationWorkers = s.config.Evaluation.Workers
	}
}

// Runtime returns the simulation runtime.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// New creates a service with the supplied options.
func New(options ...Option) *Service {
	ret := &Service{runtime: &Runtime{}}
	ret.init(options)
	return ret
}

// NewFromConfig creates a service from a validated configuration.
func NewFromConfig(config *Config, options ...Option) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return New(append([]Option{WithConfig(config)}, options...)...), nil
}
