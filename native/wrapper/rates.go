package wrapper

import (
	"context"
	"fmt"
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"cavernlsd/native/lsdhub"
)

// CurrentRate is the number of underlying units backing one wrapper token.
// An empty wrapper is worth exactly one.
func (s WrapperState) CurrentRate() math.LegacyDec {
	if s.WrapperSupply.IsZero() {
		return math.LegacyOneDec()
	}
	return s.BackingValue.QuoInt(s.WrapperSupply)
}

// ExpectedRate projects the wrapper rate once every extraction allowed so far
// has been made. Slashed wrappers and uncapped wrappers report the current
// rate; otherwise the result never drops below one.
func ExpectedRate(current math.LegacyDec, cfg DecompoundConfig, st DecompoundState, now time.Time) math.LegacyDec {
	one := math.LegacyOneDec()
	if current.LT(one) || !cfg.Capped() {
		return current
	}
	elapsed := st.TotalSeconds + secondsBetween(st.LastDecompound, now)
	share := math.LegacyNewDecFromInt(math.NewIntFromUint64(elapsed)).QuoInt(math.NewIntFromUint64(SecondsPerYear))
	allowed := mulDec(*cfg.MaxDecompoundRatio, share)
	expected, err := subDec(current.Add(st.RatioSum), allowed)
	if err != nil || expected.LT(one) {
		return one
	}
	return expected
}

// LSDWrapperRate is the number of wrapper tokens issued per LSD unit held,
// one when either side is empty.
func LSDWrapperRate(supply, lsdBalance math.Int) (math.LegacyDec, error) {
	if supply.IsZero() || lsdBalance.IsZero() {
		return math.LegacyOneDec(), nil
	}
	return fromRatio(supply, lsdBalance)
}

// secondsBetween counts whole seconds from `from` to `to`, saturating at zero.
func secondsBetween(from, to time.Time) uint64 {
	f, t := from.Unix(), to.Unix()
	if t <= f {
		return 0
	}
	return uint64(t - f)
}

func (e *Engine) queryRate(ctx context.Context, env Env, hub lsdhub.Hub) (math.LegacyDec, error) {
	rate, err := hub.ExchangeRate(ctx, e.querier, env.Time)
	if err != nil {
		return math.LegacyDec{}, fmt.Errorf("%w: exchange rate: %w", ErrAdapterQuery, err)
	}
	return rate, nil
}

func (e *Engine) queryBalance(ctx context.Context, env Env, hub lsdhub.Hub, pending sdk.Coins) (math.Int, error) {
	balance, err := hub.BalanceOf(ctx, e.querier, env.Contract, pending)
	if err != nil {
		return math.Int{}, fmt.Errorf("%w: balance: %w", ErrAdapterQuery, err)
	}
	if err := checkAmount(balance); err != nil {
		return math.Int{}, err
	}
	return balance, nil
}

func (e *Engine) loadWrapperState(ctx context.Context, env Env, hub lsdhub.Hub) (WrapperState, error) {
	if e.querier == nil {
		return WrapperState{}, errNilQuerier
	}
	rate, err := e.queryRate(ctx, env, hub)
	if err != nil {
		return WrapperState{}, err
	}
	balance, err := e.queryBalance(ctx, env, hub, nil)
	if err != nil {
		return WrapperState{}, err
	}
	info, err := e.ledger().TokenInfo()
	if err != nil {
		return WrapperState{}, err
	}
	return NewWrapperState(rate, balance, info.TotalSupply)
}

// CurrentExchangeRate reads the backing from the hub and returns the wrapper
// rate along with the snapshot it was computed from.
func (e *Engine) CurrentExchangeRate(ctx context.Context, env Env) (math.LegacyDec, WrapperState, error) {
	if e.state == nil {
		return math.LegacyDec{}, WrapperState{}, errNilState
	}
	hub, err := e.loadHub()
	if err != nil {
		return math.LegacyDec{}, WrapperState{}, err
	}
	ws, err := e.loadWrapperState(ctx, env, hub)
	if err != nil {
		return math.LegacyDec{}, WrapperState{}, err
	}
	return ws.CurrentRate(), ws, nil
}

// ExpectedExchangeRate returns the rate net of the extraction allowance
// accrued so far.
func (e *Engine) ExpectedExchangeRate(ctx context.Context, env Env) (math.LegacyDec, error) {
	current, _, err := e.CurrentExchangeRate(ctx, env)
	if err != nil {
		return math.LegacyDec{}, err
	}
	cfg, err := e.DecompoundConfig()
	if err != nil {
		return math.LegacyDec{}, err
	}
	if !cfg.Capped() {
		return current, nil
	}
	st, err := e.DecompoundState()
	if err != nil {
		return math.LegacyDec{}, err
	}
	return ExpectedRate(current, cfg, st, env.Time), nil
}

// LSDWrapperRate returns wrapper tokens per LSD unit. pending lists coins
// attached to the current call; they are not counted as held yet.
func (e *Engine) LSDWrapperRate(ctx context.Context, env Env, pending sdk.Coins) (math.LegacyDec, error) {
	if e.state == nil {
		return math.LegacyDec{}, errNilState
	}
	hub, err := e.loadHub()
	if err != nil {
		return math.LegacyDec{}, err
	}
	return e.lsdWrapperRate(ctx, env, hub, pending)
}

func (e *Engine) lsdWrapperRate(ctx context.Context, env Env, hub lsdhub.Hub, pending sdk.Coins) (math.LegacyDec, error) {
	if e.querier == nil {
		return math.LegacyDec{}, errNilQuerier
	}
	balance, err := e.queryBalance(ctx, env, hub, pending)
	if err != nil {
		return math.LegacyDec{}, err
	}
	info, err := e.ledger().TokenInfo()
	if err != nil {
		return math.LegacyDec{}, err
	}
	return LSDWrapperRate(info.TotalSupply, balance)
}
