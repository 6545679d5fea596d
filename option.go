package flowsim

import (
	"github.com/viant/afs/storage"

	"github.com/flowsimlabs/flowsim/runtime/simulation"
	"github.com/flowsimlabs/flowsim/service/dao"
	"github.com/flowsimlabs/flowsim/service/dao/flowsheet"
	"github.com/flowsimlabs/flowsim/service/meta"
	"github.com/flowsimlabs/flowsim/system"
	"github.com/flowsimlabs/flowsim/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises a Service.
type Option func(s *Service)

// WithConfig sets the service configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithMetaService sets the meta service
func WithMetaService(service *meta.Service) Option {
	return func(s *Service) {
		s.metaService = service
	}
}

// WithMetaBaseURL sets the meta base URL
func WithMetaBaseURL(url string) Option {
	return func(s *Service) {
		s.metaBaseURL = url
	}
}

// WithMetaFsOptions with meta file system options
func WithMetaFsOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.metaFsOptions = options
	}
}

// WithFlowsheetDAO sets the flowsheet definition service
func WithFlowsheetDAO(service *flowsheet.Service) Option {
	return func(s *Service) {
		s.runtime.flowsheetDAO = service
	}
}

// WithRunDAO sets the simulation run store
func WithRunDAO(dao dao.Service[string, simulation.Run]) Option {
	return func(s *Service) {
		s.runtime.runDAO = dao
	}
}

// WithConvergence sets the default recycle solver options applied to every
// built system, unless the flowsheet definition carries its own.
func WithConvergence(options system.ConvergenceOptions) Option {
	return func(s *Service) {
		s.runtime.convergence = &options
	}
}

// WithChemicals sets the default chemical basis applied to flowsheets that
// declare none.
func WithChemicals(ids ...string) Option {
	return func(s *Service) {
		s.runtime.chemicals = ids
	}
}

// WithEvaluationWorkers sets the default worker count for evaluation models
// created through the runtime.
func WithEvaluationWorkers(count int) Option {
	return func(s *Service) {
		s.runtime.evaluationWorkers = count
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The function is
// safe to call multiple times – the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter. This enables
// integrations with exporters other than the built-in stdout exporter, for example OTLP, Jaeger or
// Zipkin. The function is safe to call multiple times – the first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
