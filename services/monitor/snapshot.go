package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cosmossdk.io/math"
	"github.com/google/uuid"

	"cavernlsd/native/lsdhub"
	"cavernlsd/native/wrapper"
	"cavernlsd/services/chainquery"
)

// Raw storage keys of a deployed wrapper contract.
var (
	decompoundStateKey  = []byte("decompound_state")
	decompoundConfigKey = []byte("decompound_config")
)

// ErrStateUnreadable marks a capped wrapper whose decompound records could
// not be read, so its allowance is unknown.
var ErrStateUnreadable = errors.New("monitor: decompound records missing for a capped wrapper")

// ChainReader is the live chain view the monitor polls. QueryRaw reports an
// unset key with chainquery.ErrNotFound; wrappers deployed without a cap have
// no decompound records.
type ChainReader interface {
	lsdhub.Querier
	QueryRaw(ctx context.Context, contract string, key []byte) ([]byte, error)
}

// Target is one deployed wrapper to watch.
type Target struct {
	Name     string
	Contract string
	LSD      lsdhub.Config
}

// Snapshot is a point-in-time reading of a wrapper plus what a decompound
// would do at that moment.
type Snapshot struct {
	RunID              uuid.UUID
	Wrapper            string
	Contract           string
	TakenAt            time.Time
	LSDExchangeRate    math.LegacyDec
	LSDBalance         math.Int
	BackingValue       math.LegacyDec
	Supply             math.Int
	ExchangeRate       math.LegacyDec
	ExpectedRate       math.LegacyDec
	LSDRate            math.LegacyDec
	MaxDecompoundRatio *math.LegacyDec
	RatioSum           math.LegacyDec
	TotalSeconds       uint64
	LastDecompound     time.Time
	PendingLSD         math.Int
	PendingLuna        math.Int
	RateDecrease       math.LegacyDec
	Slashed            bool
	Blocked            string
}

type tokenInfoResponse struct {
	TotalSupply        math.Int        `json:"total_supply"`
	MaxDecompoundRatio *math.LegacyDec `json:"max_decompound_ratio"`
}

// rawDecompoundState mirrors the contract's JSON record. Timestamps are
// unix nanoseconds encoded as strings.
type rawDecompoundState struct {
	RatioSum       math.LegacyDec `json:"ratio_sum"`
	TotalSeconds   uint64         `json:"total_seconds"`
	LastDecompound string         `json:"last_decompound"`
}

type rawDecompoundConfig struct {
	MaxDecompoundRatio *math.LegacyDec `json:"max_decompound_ratio"`
}

func readDecompound(ctx context.Context, r ChainReader, contract string, now time.Time) (wrapper.DecompoundConfig, wrapper.DecompoundState, bool, error) {
	st := wrapper.DecompoundState{RatioSum: math.LegacyZeroDec(), LastDecompound: now}
	var cfg wrapper.DecompoundConfig

	raw, err := r.QueryRaw(ctx, contract, decompoundConfigKey)
	switch {
	case errors.Is(err, chainquery.ErrNotFound):
		return cfg, st, false, nil
	case err != nil:
		return cfg, st, false, fmt.Errorf("decompound config: %w", err)
	}
	var rc rawDecompoundConfig
	if err := json.Unmarshal(raw, &rc); err != nil {
		return cfg, st, false, fmt.Errorf("decode decompound config: %w", err)
	}
	cfg.MaxDecompoundRatio = rc.MaxDecompoundRatio

	raw, err = r.QueryRaw(ctx, contract, decompoundStateKey)
	if err != nil {
		return cfg, st, false, fmt.Errorf("decompound state: %w", err)
	}
	var rs rawDecompoundState
	if err := json.Unmarshal(raw, &rs); err != nil {
		return cfg, st, false, fmt.Errorf("decode decompound state: %w", err)
	}
	nanos, err := strconv.ParseInt(rs.LastDecompound, 10, 64)
	if err != nil {
		return cfg, st, false, fmt.Errorf("decode last_decompound %q: %w", rs.LastDecompound, err)
	}
	st.RatioSum = rs.RatioSum
	st.TotalSeconds = rs.TotalSeconds
	st.LastDecompound = time.Unix(0, nanos).UTC()
	return cfg, st, true, nil
}

// Read takes one snapshot of target at now.
func Read(ctx context.Context, r ChainReader, hub lsdhub.Hub, target Target, runID uuid.UUID, now time.Time) (Snapshot, error) {
	var info tokenInfoResponse
	if err := r.QuerySmart(ctx, target.Contract, map[string]struct{}{"token_info": {}}, &info); err != nil {
		return Snapshot{}, fmt.Errorf("token_info: %w", err)
	}
	cfg, st, found, err := readDecompound(ctx, r, target.Contract, now)
	if err != nil {
		return Snapshot{}, err
	}
	// A cap without a readable record leaves the allowance unknown.
	unreadable := !found && info.MaxDecompoundRatio != nil
	rate, err := hub.ExchangeRate(ctx, r, now)
	if err != nil {
		return Snapshot{}, fmt.Errorf("lsd exchange rate: %w", err)
	}
	balance, err := hub.BalanceOf(ctx, r, target.Contract, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("lsd balance: %w", err)
	}
	if info.TotalSupply.IsNil() {
		info.TotalSupply = math.ZeroInt()
	}
	ws, err := wrapper.NewWrapperState(rate, balance, info.TotalSupply)
	if err != nil {
		return Snapshot{}, err
	}
	p := wrapper.NewPreview(ws, cfg, st, now)
	snap := Snapshot{
		RunID:              runID,
		Wrapper:            target.Name,
		Contract:           target.Contract,
		TakenAt:            now,
		LSDExchangeRate:    ws.LSDExchangeRate,
		LSDBalance:         ws.LSDBalance,
		BackingValue:       ws.BackingValue,
		Supply:             ws.WrapperSupply,
		ExchangeRate:       p.CurrentRate,
		ExpectedRate:       p.ExpectedRate,
		LSDRate:            p.LSDRate,
		MaxDecompoundRatio: cfg.MaxDecompoundRatio,
		RatioSum:           st.RatioSum,
		TotalSeconds:       st.TotalSeconds,
		LastDecompound:     st.LastDecompound,
		PendingLSD:         p.Rewards.LSDRewards,
		PendingLuna:        p.Rewards.LunaRewards,
		RateDecrease:       p.Rewards.RateDecrease,
		Slashed:            p.Slashed,
	}
	if p.Blocked != nil {
		snap.Blocked = p.Blocked.Error()
	}
	if unreadable {
		snap.MaxDecompoundRatio = info.MaxDecompoundRatio
		snap.PendingLSD = math.ZeroInt()
		snap.PendingLuna = math.ZeroInt()
		snap.RateDecrease = math.LegacyZeroDec()
		snap.Blocked = ErrStateUnreadable.Error()
	}
	return snap, nil
}
