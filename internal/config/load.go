package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SHEETGENIE_SERVER_PORT.
const EnvPrefix = "SHEETGENIE"

// FileName is the config file looked up in the search paths, without extension.
const FileName = "sheetgenie"

// ValueSource describes where a configuration value originated from.
type ValueSource string

const (
	SourceDefault ValueSource = "default"
	SourceFile    ValueSource = "file"
	SourceEnv     ValueSource = "environment"
	SourceFlag    ValueSource = "flag"
)

// keyAliases are extra environment variables read for a key, after the
// prefixed one.
var keyAliases = map[string][]string{
	"llm.api_key": {"OPENAI_API_KEY"},
}

// Metadata contains provenance details for loaded configuration.
type Metadata struct {
	sources  map[string]ValueSource
	settings map[string]any
	file     string
	loadedAt time.Time
}

// Source returns the origin for the given dotted key.
func (m Metadata) Source(key string) ValueSource {
	if src, ok := m.sources[strings.ToLower(key)]; ok {
		return src
	}
	return SourceDefault
}

// File is the config file that was read, or "".
func (m Metadata) File() string {
	return m.file
}

// LoadedAt returns the timestamp when the configuration was constructed.
func (m Metadata) LoadedAt() time.Time {
	return m.loadedAt
}

// Keys lists every known key, sorted.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m.sources))
	for k := range m.sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Option customises the loader behaviour.
type Option func(*loadOptions)

type loadOptions struct {
	configPath  string
	searchPaths []string
	flags       *pflag.FlagSet
	flagKeys    map[string]string
}

// WithConfigPath forces the loader to read configuration from a specific file.
// A missing file is an error.
func WithConfigPath(path string) Option {
	return func(o *loadOptions) {
		o.configPath = path
	}
}

// WithSearchPaths replaces the directories searched for sheetgenie.yaml.
func WithSearchPaths(paths ...string) Option {
	return func(o *loadOptions) {
		o.searchPaths = paths
	}
}

// WithFlags binds command-line flags to config keys. bindings maps a config
// key to a flag name; only flags the user actually set take effect.
func WithFlags(flags *pflag.FlagSet, bindings map[string]string) Option {
	return func(o *loadOptions) {
		o.flags = flags
		o.flagKeys = bindings
	}
}

// DefaultSearchPaths are the working directory and $HOME/.sheetgenie.
func DefaultSearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".sheetgenie"))
	}
	return paths
}

// Load resolves the effective configuration.
func Load(opts ...Option) (Config, Metadata, error) {
	options := loadOptions{searchPaths: DefaultSearchPaths()}
	for _, opt := range opts {
		opt(&options)
	}

	v := viper.New()
	defaults := Default()
	setDefaults(v, defaults)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range keyAliases {
		names := append([]string{envName(key)}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return Config{}, Metadata{}, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if options.configPath != "" {
		v.SetConfigFile(options.configPath)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		for _, p := range options.searchPaths {
			v.AddConfigPath(p)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if options.configPath != "" || !errors.As(err, &notFound) {
			return Config{}, Metadata{}, fmt.Errorf("read config: %w", err)
		}
	}

	changed := map[string]bool{}
	if options.flags != nil {
		for key, name := range options.flagKeys {
			flag := options.flags.Lookup(name)
			if flag == nil {
				return Config{}, Metadata{}, fmt.Errorf("flag --%s bound to %s is not defined", name, key)
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, Metadata{}, fmt.Errorf("bind flag --%s: %w", name, err)
			}
			changed[key] = flag.Changed
		}
	}

	cfg := defaults
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, Metadata{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, Metadata{}, err
	}

	meta := Metadata{
		sources:  map[string]ValueSource{},
		settings: v.AllSettings(),
		file:     v.ConfigFileUsed(),
		loadedAt: time.Now(),
	}
	for _, key := range v.AllKeys() {
		meta.sources[key] = sourceOf(v, key, changed[key])
	}
	return cfg, meta, nil
}

func sourceOf(v *viper.Viper, key string, flagChanged bool) ValueSource {
	if flagChanged {
		return SourceFlag
	}
	for _, name := range append([]string{envName(key)}, keyAliases[key]...) {
		if value, ok := os.LookupEnv(name); ok && value != "" {
			return SourceEnv
		}
	}
	if v.InConfig(key) {
		return SourceFile
	}
	return SourceDefault
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.debug", d.Server.Debug)
	v.SetDefault("server.cors", d.Server.CORS)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)

	v.SetDefault("context.max_tokens", d.Context.MaxTokens)
	v.SetDefault("context.sample_rows", d.Context.SampleRows)
	v.SetDefault("sessions.max", d.Sessions.Max)

	v.SetDefault("google_sheets.base_url", d.GoogleSheets.BaseURL)
	v.SetDefault("google_sheets.timeout", d.GoogleSheets.Timeout)
	v.SetDefault("google_sheets.max_body_bytes", d.GoogleSheets.MaxBodyBytes)

	obs := d.Observability
	v.SetDefault("observability.logging.level", obs.Logging.Level)
	v.SetDefault("observability.logging.format", obs.Logging.Format)
	v.SetDefault("observability.metrics.enabled", obs.Metrics.Enabled)
	v.SetDefault("observability.tracing.enabled", obs.Tracing.Enabled)
	v.SetDefault("observability.tracing.exporter", obs.Tracing.Exporter)
	v.SetDefault("observability.tracing.otlp_endpoint", obs.Tracing.OTLPEndpoint)
	v.SetDefault("observability.tracing.zipkin_endpoint", obs.Tracing.ZipkinEndpoint)
	v.SetDefault("observability.tracing.sample_rate", obs.Tracing.SampleRate)
	v.SetDefault("observability.tracing.service_name", obs.Tracing.ServiceName)
	v.SetDefault("observability.tracing.service_version", obs.Tracing.ServiceVersion)
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("server.max_upload_mb must be positive"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %.2f must be within [0, 2]", c.LLM.Temperature))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, errors.New("llm.max_tokens must be positive"))
	}
	if c.Context.MaxTokens <= 0 || c.Context.SampleRows <= 0 {
		errs = append(errs, errors.New("context.max_tokens and context.sample_rows must be positive"))
	}
	if c.Sessions.Max <= 0 {
		errs = append(errs, errors.New("sessions.max must be positive"))
	}
	switch strings.ToLower(c.Observability.Tracing.Exporter) {
	case "otlp", "zipkin":
	default:
		errs = append(errs, fmt.Errorf("observability.tracing.exporter %q must be otlp or zipkin", c.Observability.Tracing.Exporter))
	}
	return errors.Join(errs...)
}
