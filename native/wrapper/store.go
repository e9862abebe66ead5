package wrapper

import (
	"encoding/json"
	"fmt"
	"time"

	"cosmossdk.io/math"

	"cavernlsd/native/lsdhub"
)

var (
	hubContractKey      = []byte("wrapper/hub_contract")
	lsdConfigKey        = []byte("wrapper/lsd_config")
	decompoundConfigKey = []byte("wrapper/decompound/config")
	decompoundStateKey  = []byte("wrapper/decompound/state")
)

// storedDecompoundConfig keeps an empty ratio for "no cap".
type storedDecompoundConfig struct {
	MaxDecompoundRatio string
}

type storedDecompoundState struct {
	RatioSum       string
	TotalSeconds   uint64
	LastDecompound uint64 // unix nanoseconds
}

func newStoredDecompoundConfig(cfg DecompoundConfig) storedDecompoundConfig {
	if cfg.MaxDecompoundRatio == nil {
		return storedDecompoundConfig{}
	}
	return storedDecompoundConfig{MaxDecompoundRatio: cfg.MaxDecompoundRatio.String()}
}

func (s storedDecompoundConfig) toConfig() (DecompoundConfig, error) {
	if s.MaxDecompoundRatio == "" {
		return DecompoundConfig{}, nil
	}
	ratio, err := math.LegacyNewDecFromStr(s.MaxDecompoundRatio)
	if err != nil {
		return DecompoundConfig{}, fmt.Errorf("wrapper engine: stored ratio: %w", err)
	}
	return DecompoundConfig{MaxDecompoundRatio: &ratio}, nil
}

func newStoredDecompoundState(st DecompoundState) storedDecompoundState {
	return storedDecompoundState{
		RatioSum:       st.RatioSum.String(),
		TotalSeconds:   st.TotalSeconds,
		LastDecompound: uint64(st.LastDecompound.UnixNano()),
	}
}

func (s storedDecompoundState) toState() (DecompoundState, error) {
	ratio, err := math.LegacyNewDecFromStr(s.RatioSum)
	if err != nil {
		return DecompoundState{}, fmt.Errorf("wrapper engine: stored ratio sum: %w", err)
	}
	return DecompoundState{
		RatioSum:       ratio,
		TotalSeconds:   s.TotalSeconds,
		LastDecompound: time.Unix(0, int64(s.LastDecompound)).UTC(),
	}, nil
}

func (e *Engine) loadHubContract() (string, error) {
	var hub string
	ok, err := e.state.KVGet(hubContractKey, &hub)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errNotInstantiated
	}
	return hub, nil
}

func (e *Engine) storeLSDConfig(cfg lsdhub.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return e.state.KVPut(lsdConfigKey, raw)
}

// loadHub rebuilds the adapter from its stored JSON config.
func (e *Engine) loadHub() (lsdhub.Hub, error) {
	var raw []byte
	ok, err := e.state.KVGet(lsdConfigKey, &raw)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotInstantiated
	}
	_, hub, err := lsdhub.ParseConfig(raw, e.validator)
	return hub, err
}

// DecompoundConfig returns the stored cap.
func (e *Engine) DecompoundConfig() (DecompoundConfig, error) {
	if e.state == nil {
		return DecompoundConfig{}, errNilState
	}
	var stored storedDecompoundConfig
	ok, err := e.state.KVGet(decompoundConfigKey, &stored)
	if err != nil {
		return DecompoundConfig{}, err
	}
	if !ok {
		return DecompoundConfig{}, errNotInstantiated
	}
	return stored.toConfig()
}

func (e *Engine) storeDecompoundConfig(cfg DecompoundConfig) error {
	return e.state.KVPut(decompoundConfigKey, newStoredDecompoundConfig(cfg))
}

// DecompoundState returns the stored extraction record.
func (e *Engine) DecompoundState() (DecompoundState, error) {
	if e.state == nil {
		return DecompoundState{}, errNilState
	}
	var stored storedDecompoundState
	ok, err := e.state.KVGet(decompoundStateKey, &stored)
	if err != nil {
		return DecompoundState{}, err
	}
	if !ok {
		return DecompoundState{}, errNotInstantiated
	}
	return stored.toState()
}

func (e *Engine) storeDecompoundState(st DecompoundState) error {
	return e.state.KVPut(decompoundStateKey, newStoredDecompoundState(st))
}
