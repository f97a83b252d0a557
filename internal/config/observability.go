package config

// DatadogConfig holds Datadog APM tracing configuration. Traces are
// shipped over OTLP to a local Datadog Agent; see
// internal/observability for the exporter setup.
type DatadogConfig struct {
	// APIKey is optional; tracing is disabled when empty.
	APIKey string `mapstructure:"api_key" json:"-"`
	// AgentHost is the agent's OTLP HTTP endpoint (default localhost:4318).
	AgentHost string `mapstructure:"agent_host" json:"agent_host"`
	// Environment tags emitted traces (default dev).
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName is the APM service name (default quill).
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// Enabled reports whether tracing should be wired up.
func (d DatadogConfig) Enabled() bool {
	return d.APIKey != ""
}
