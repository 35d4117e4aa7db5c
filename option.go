package stratus

import (
	"net/http"

	"github.com/viant/stratus/client"
	"github.com/viant/stratus/resolver"
	"github.com/viant/stratus/secret"
	"github.com/viant/stratus/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customizes a Service at construction.
type Option func(s *Service) error

// WithConfig replaces the connection settings.
func WithConfig(config *Config) Option {
	return func(s *Service) error {
		s.config = config
		return nil
	}
}

// WithEndpoint sets the platform REST base URL.
func WithEndpoint(endpoint string) Option {
	return func(s *Service) error {
		s.config.Endpoint = endpoint
		return nil
	}
}

// WithHTTPClient replaces the HTTP client used to reach the platform.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Service) error {
		s.httpClient = httpClient
		return nil
	}
}

// WithCertificate trusts the CA bundle at pemPath in addition to the system
// roots.
func WithCertificate(pemPath string) Option {
	return func(s *Service) error {
		s.config.Certificate = pemPath
		return nil
	}
}

// WithClient replaces the platform client, bypassing credential resolution.
func WithClient(service client.Service) Option {
	return func(s *Service) error {
		s.client = service
		return nil
	}
}

// WithSecrets replaces the credential resolver.
func WithSecrets(secrets *secret.Resolver) Option {
	return func(s *Service) error {
		s.secrets = secrets
		return nil
	}
}

// WithContentStore wires a content-management store; sessions created by the
// service then render path inputs as prefix:id references and
// NewContentSession becomes available.
func WithContentStore(prefix string, store resolver.Service) Option {
	return func(s *Service) error {
		s.store = store
		s.storePrefix = prefix
		return nil
	}
}

// WithTracing configures OpenTelemetry tracing. If outputFile is empty spans
// go to stdout, otherwise to the named file. Safe to call multiple times;
// the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) error {
		return tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing with a custom
// SpanExporter, enabling integrations beyond the built-in stdout exporter,
// for example OTLP, Jaeger or Zipkin.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) error {
		return tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
