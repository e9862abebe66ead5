package config

import (
	"fmt"

	"cavernlsd/crypto"
)

// Validate checks the profile, including every wrapper's addresses against
// the configured prefix.
func (c *Config) Validate() error {
	if c.GRPCAddress == "" {
		return fmt.Errorf("config: GRPCAddress required")
	}
	if c.QueriesPerSecond < 0 {
		return fmt.Errorf("config: QueriesPerSecond must not be negative")
	}
	if c.QueryBurst < 0 {
		return fmt.Errorf("config: QueryBurst must not be negative")
	}
	switch c.StoreBackend {
	case StoreMemory, StoreBolt, StoreLevelDB:
	default:
		return fmt.Errorf("config: unknown StoreBackend %q", c.StoreBackend)
	}
	validator := crypto.Bech32Validator{Prefix: crypto.AddressPrefix(c.Bech32Prefix)}
	seen := make(map[string]struct{}, len(c.Wrappers))
	for i, w := range c.Wrappers {
		if w.Name == "" {
			return fmt.Errorf("config: Wrappers[%d].Name required", i)
		}
		if _, dup := seen[w.Name]; dup {
			return fmt.Errorf("config: duplicate wrapper %q", w.Name)
		}
		seen[w.Name] = struct{}{}
		if _, err := validator.ValidateAddress(w.Contract); err != nil {
			return fmt.Errorf("config: wrapper %s contract: %w", w.Name, err)
		}
		if _, err := w.LSD.Build(validator); err != nil {
			return fmt.Errorf("config: wrapper %s: %w", w.Name, err)
		}
	}
	return nil
}

// Wrapper returns the wrapper profile called name.
func (c *Config) Wrapper(name string) (Wrapper, bool) {
	for _, w := range c.Wrappers {
		if w.Name == name {
			return w, true
		}
	}
	return Wrapper{}, false
}
