// Package observability wires OpenTelemetry trace export for quill.
//
// Traces are shipped to a local Datadog Agent over OTLP HTTP rather than
// straight to the Datadog intake: the agent buffers and retries locally,
// handles authentication, and keeps the export hop on localhost. Enable
// the OTLP receiver in the agent config:
//
//	otlp_config:
//	  receiver:
//	    protocols:
//	      http:
//	        endpoint: "localhost:4318"
//	  traces:
//	    enabled: true
//
// Export is best-effort: if the exporter cannot be built, tracing is
// disabled with a warning and the server runs untraced.
package observability

import (
	"context"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/quillhq/quill/internal/log"
)

// DefaultAgentHost is the default Datadog Agent OTLP HTTP endpoint.
const DefaultAgentHost = "localhost:4318"

// Config for trace export.
type Config struct {
	// AgentHost is the agent's OTLP endpoint; empty means DefaultAgentHost.
	AgentHost string
	// Environment tags every span (dev, staging, prod).
	Environment string
	// ServiceName is the service name shown in APM.
	ServiceName string
}

// Setup registers an OTLP span processor with Genkit's TracerProvider so
// planner and completion calls are traced alongside quill's own spans.
// The returned shutdown function flushes pending spans; it is non-nil
// even when tracing could not be enabled.
func Setup(ctx context.Context, cfg Config, logger log.Logger) func(context.Context) error {
	agentHost := cfg.AgentHost
	if agentHost == "" {
		agentHost = DefaultAgentHost
	}

	// Genkit's TracerProvider reads these at span creation time. Setup
	// runs once during startup, before any request goroutines exist.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	// The agent handles authentication and forwarding; localhost needs
	// no TLS.
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(agentHost),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("trace export enabled",
		"agent", agentHost,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown
}
