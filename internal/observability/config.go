package observability

import "io"

// Config groups the logging, metrics and tracing settings under the
// "observability" key of the config file.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Sink pairs the file settings with a destination writer.
func (c LoggingConfig) Sink(out io.Writer) LogConfig {
	return LogConfig{Level: c.Level, Format: c.Format, Output: out}
}

const (
	defaultServiceName    = "sheetgenie"
	defaultOTLPEndpoint   = "localhost:4318"
	defaultZipkinEndpoint = "http://localhost:9411/api/v2/spans"
)

func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Enabled: true},
		Tracing: TracingConfig{
			Exporter:       "otlp",
			OTLPEndpoint:   defaultOTLPEndpoint,
			ZipkinEndpoint: defaultZipkinEndpoint,
			SampleRate:     1.0,
			ServiceName:    defaultServiceName,
			ServiceVersion: "1.0.0",
		},
	}
}

// withDefaults fills the fields an enabled exporter cannot run without.
func (c TracingConfig) withDefaults() TracingConfig {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.SampleRate <= 0 || c.SampleRate > 1 {
		c.SampleRate = 1
	}
	if c.OTLPEndpoint == "" {
		c.OTLPEndpoint = defaultOTLPEndpoint
	}
	if c.ZipkinEndpoint == "" {
		c.ZipkinEndpoint = defaultZipkinEndpoint
	}
	return c
}
