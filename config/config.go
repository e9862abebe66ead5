package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the lsdwrap network profile.
type Config struct {
	GRPCAddress      string       `toml:"GRPCAddress"`
	GRPCInsecure     bool         `toml:"GRPCInsecure"`
	Bech32Prefix     string       `toml:"Bech32Prefix"`
	QueriesPerSecond float64      `toml:"QueriesPerSecond"`
	QueryBurst       int          `toml:"QueryBurst"`
	TimeoutSeconds   uint64       `toml:"TimeoutSeconds"`
	DataDir          string       `toml:"DataDir"`
	StoreBackend     StoreBackend `toml:"StoreBackend"`
	Logging          Logging      `toml:"Logging"`
	Wrappers         []Wrapper    `toml:"Wrappers"`
}

// Load loads the configuration from the given path, writing a default
// profile there first when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the profile written for a fresh install.
func Default() *Config {
	return &Config{
		GRPCAddress:      "localhost:9090",
		GRPCInsecure:     true,
		Bech32Prefix:     "terra",
		QueriesPerSecond: 5,
		QueryBurst:       10,
		TimeoutSeconds:   10,
		DataDir:          "./lsdwrap-data",
		StoreBackend:     StoreBolt,
		Logging:          Logging{Level: "info"},
		Wrappers:         []Wrapper{},
	}
}

func (c *Config) normalise() {
	c.GRPCAddress = strings.TrimSpace(c.GRPCAddress)
	c.Bech32Prefix = strings.ToLower(strings.TrimSpace(c.Bech32Prefix))
	if c.Bech32Prefix == "" {
		c.Bech32Prefix = "terra"
	}
	if c.QueriesPerSecond == 0 {
		c.QueriesPerSecond = 5
	}
	if c.QueryBurst == 0 {
		c.QueryBurst = 1
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 10
	}
	if c.StoreBackend == "" {
		c.StoreBackend = StoreBolt
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Wrappers == nil {
		c.Wrappers = []Wrapper{}
	}
	for i := range c.Wrappers {
		c.Wrappers[i].Name = strings.TrimSpace(c.Wrappers[i].Name)
		c.Wrappers[i].Contract = strings.TrimSpace(c.Wrappers[i].Contract)
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path in TOML.
func Save(path string, cfg *Config) error {
	return persist(path, cfg)
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
