package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cavernlsd/crypto"
	"cavernlsd/native/lsdhub"
	"cavernlsd/services/monitor"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures runtime configuration for monitord.
type Config struct {
	ListenAddress string          `yaml:"listen"`
	Schedule      string          `yaml:"schedule"`
	DatabaseDSN   string          `yaml:"database"`
	Chain         ChainConfig     `yaml:"chain"`
	Logging       LoggingConfig   `yaml:"logging"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
	Admin         AdminConfig     `yaml:"admin"`
	Wrappers      []Wrapper       `yaml:"wrappers"`
}

// ChainConfig points at a node's gRPC endpoint.
type ChainConfig struct {
	GRPCAddress      string   `yaml:"grpc"`
	Insecure         bool     `yaml:"insecure"`
	Bech32Prefix     string   `yaml:"bech32_prefix"`
	QueriesPerSecond float64  `yaml:"qps"`
	Burst            int      `yaml:"burst"`
	Timeout          Duration `yaml:"timeout"`
}

// LoggingConfig tunes the service logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// TelemetryConfig enables OTLP export.
type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
	Traces   bool   `yaml:"traces"`
	Metrics  bool   `yaml:"metrics"`
	// SampleRatio keeps this fraction of root spans; 0 keeps all.
	SampleRatio float64 `yaml:"sample_ratio"`
}

// AdminConfig enables bearer-authenticated admin routes. The secret may be
// given inline or through the environment variable named by SecretEnv.
type AdminConfig struct {
	HMACSecret string `yaml:"hmac_secret"`
	SecretEnv  string `yaml:"hmac_secret_env"`
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
}

// Secret resolves the configured HMAC secret.
func (a AdminConfig) Secret() string {
	if a.SecretEnv != "" {
		if v := strings.TrimSpace(os.Getenv(a.SecretEnv)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(a.HMACSecret)
}

// Wrapper is one deployed wrapper contract to watch.
type Wrapper struct {
	Name     string        `yaml:"name"`
	Contract string        `yaml:"contract"`
	LSD      lsdhub.Config `yaml:"lsd"`
}

// Load reads configuration from the supplied path.
func Load(path string) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":7090"
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1m"
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "/var/data/monitord.sqlite"
	}
	if cfg.Chain.Bech32Prefix == "" {
		cfg.Chain.Bech32Prefix = string(crypto.TerraPrefix)
	}
	if cfg.Chain.QueriesPerSecond <= 0 {
		cfg.Chain.QueriesPerSecond = 5
	}
	if cfg.Chain.Burst <= 0 {
		cfg.Chain.Burst = 10
	}
	if cfg.Chain.Timeout.Duration == 0 {
		cfg.Chain.Timeout.Duration = 10 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	for i := range cfg.Wrappers {
		cfg.Wrappers[i].Name = strings.TrimSpace(cfg.Wrappers[i].Name)
		cfg.Wrappers[i].Contract = strings.TrimSpace(cfg.Wrappers[i].Contract)
	}
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Chain.GRPCAddress) == "" {
		return fmt.Errorf("chain.grpc must be configured")
	}
	if len(cfg.Wrappers) == 0 {
		return fmt.Errorf("at least one wrapper must be configured")
	}
	if r := cfg.Telemetry.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1], got %v", r)
	}
	validator := crypto.Bech32Validator{Prefix: crypto.AddressPrefix(cfg.Chain.Bech32Prefix)}
	seen := make(map[string]struct{}, len(cfg.Wrappers))
	for _, w := range cfg.Wrappers {
		if w.Name == "" {
			return fmt.Errorf("wrapper name must be set")
		}
		if _, dup := seen[w.Name]; dup {
			return fmt.Errorf("duplicate wrapper %q", w.Name)
		}
		seen[w.Name] = struct{}{}
		if _, err := validator.ValidateAddress(w.Contract); err != nil {
			return fmt.Errorf("wrapper %s: contract: %w", w.Name, err)
		}
		if _, err := w.LSD.Build(validator); err != nil {
			return fmt.Errorf("wrapper %s: %w", w.Name, err)
		}
	}
	return nil
}

// Targets converts the configured wrappers for the monitor.
func (c Config) Targets() []monitor.Target {
	out := make([]monitor.Target, 0, len(c.Wrappers))
	for _, w := range c.Wrappers {
		out = append(out, monitor.Target{Name: w.Name, Contract: w.Contract, LSD: w.LSD})
	}
	return out
}
