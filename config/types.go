package config

import (
	"cavernlsd/native/lsdhub"
)

// StoreBackend selects the KV engine used for local wrapper state.
type StoreBackend string

const (
	StoreMemory  StoreBackend = "memory"
	StoreBolt    StoreBackend = "bolt"
	StoreLevelDB StoreBackend = "leveldb"
)

// Wrapper names a deployed wrapper contract and the LSD hub behind it.
type Wrapper struct {
	Name     string        `toml:"Name"`
	Contract string        `toml:"Contract"`
	LSD      lsdhub.Config `toml:"LSD"`
}

// Logging configures the CLI's structured logger.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File,omitempty"`
	MaxSizeMB  int    `toml:"MaxSizeMB,omitempty"`
	MaxBackups int    `toml:"MaxBackups,omitempty"`
}
