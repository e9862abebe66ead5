package wrapper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cosmossdk.io/math"
)

// ComputeRewards works out how much backing can be extracted from ws. It is
// pure: callers persist the result through DecompoundState.Advance.
//
// A slashed wrapper (rate below one) yields ErrSlashingDetected. Under a cap,
// the extracted share of the backing over the wrapper's lifetime may not
// exceed max_ratio * elapsed / year.
func ComputeRewards(ws WrapperState, cfg DecompoundConfig, st DecompoundState, now time.Time) (AccruedRewards, error) {
	if ws.CurrentRate().LT(math.LegacyOneDec()) {
		return AccruedRewards{}, ErrSlashingDetected
	}

	lunaRewards, err := subInt(ws.BackingValue.TruncateInt(), ws.WrapperSupply)
	if err != nil {
		return AccruedRewards{}, err
	}
	supplyInLSD, err := quoDec(math.LegacyNewDecFromInt(ws.WrapperSupply), ws.LSDExchangeRate)
	if err != nil {
		return AccruedRewards{}, err
	}
	excess, err := subDec(math.LegacyNewDecFromInt(ws.LSDBalance), supplyInLSD)
	if err != nil {
		return AccruedRewards{}, err
	}
	lsdRewards := excess.TruncateInt()

	if cfg.Capped() {
		period := st.TotalSeconds + secondsBetween(st.LastDecompound, now)
		share, err := fromRatio(math.NewIntFromUint64(period), math.NewIntFromUint64(SecondsPerYear))
		if err != nil {
			return AccruedRewards{}, err
		}
		maxRate, err := subDec(mulDec(*cfg.MaxDecompoundRatio, share), st.RatioSum)
		if err != nil {
			return AccruedRewards{}, fmt.Errorf("%w: ratio sum %s", ErrRatioAccountingUnderflow, st.RatioSum)
		}
		if !now.After(st.LastDecompound) {
			return AccruedRewards{}, ErrTooSoon
		}
		lunaRewards = minInt(lunaRewards, mulDec(maxRate, ws.BackingValue).TruncateInt())
		lsdRewards = minInt(lsdRewards, mulInt(maxRate, ws.LSDBalance))
	}

	// Keep one LSD unit (and its value) in the wrapper so rounding never
	// leaves the supply under-collateralised.
	if lsdRewards.IsPositive() {
		lsdRewards = lsdRewards.SubRaw(1)
		lunaRewards, err = subInt(lunaRewards, ws.LSDExchangeRate.TruncateInt())
		if err != nil {
			return AccruedRewards{}, err
		}
	}

	rateDecrease := math.LegacyZeroDec()
	if ws.BackingValue.IsPositive() {
		rateDecrease, err = quoDec(math.LegacyNewDecFromInt(lunaRewards), ws.BackingValue)
		if err != nil {
			return AccruedRewards{}, err
		}
	}
	return AccruedRewards{
		LunaRewards:  lunaRewards,
		LSDRewards:   lsdRewards,
		RateDecrease: rateDecrease,
	}, nil
}

// Advance records an extraction made at now.
func (st DecompoundState) Advance(rewards AccruedRewards, now time.Time) DecompoundState {
	return DecompoundState{
		RatioSum:       st.RatioSum.Add(rewards.RateDecrease),
		TotalSeconds:   st.TotalSeconds + secondsBetween(st.LastDecompound, now),
		LastDecompound: now,
	}
}

// Decompound extracts the excess backing and sends it, as LSD, to recipient
// (the hub when nil). Only the hub may call it. A slashed wrapper is left
// untouched and the call succeeds with zero rewards.
func (e *Engine) Decompound(ctx context.Context, env Env, info MessageInfo, recipient *string) (*Response, error) {
	if e.state == nil {
		return nil, errNilState
	}
	hubContract, err := e.loadHubContract()
	if err != nil {
		return nil, err
	}
	if info.Sender != hubContract {
		return nil, ErrUnauthorized
	}
	to := info.Sender
	if recipient != nil {
		if to, err = e.validator.ValidateAddress(*recipient); err != nil {
			return nil, err
		}
	}

	hub, err := e.loadHub()
	if err != nil {
		return nil, err
	}
	cfg, err := e.DecompoundConfig()
	if err != nil {
		return nil, err
	}
	st, err := e.DecompoundState()
	if err != nil {
		return nil, err
	}
	ws, err := e.loadWrapperState(ctx, env, hub)
	if err != nil {
		return nil, err
	}

	resp := &Response{}
	rewards, err := ComputeRewards(ws, cfg, st, env.Time)
	switch {
	case errors.Is(err, ErrSlashingDetected):
		rewards = zeroRewards()
		e.log().Warn("decompound skipped: wrapper rate below one",
			slog.String("wrapper", env.Contract),
			slog.String("rate", ws.CurrentRate().String()))
		e.emit(DecompoundSkipped{Wrapper: env.Contract, Rate: ws.CurrentRate()})
	case err != nil:
		return nil, err
	default:
		if cfg.Capped() {
			if err := e.storeDecompoundState(st.Advance(rewards, env.Time)); err != nil {
				return nil, err
			}
		}
		if rewards.LSDRewards.IsPositive() {
			msgs, err := hub.Withdraw(env.Contract, to, rewards.LSDRewards)
			if err != nil {
				return nil, err
			}
			resp.Messages = append(resp.Messages, msgs...)
		}
		e.log().Info("decompounded",
			slog.String("wrapper", env.Contract),
			slog.String("recipient", to),
			slog.String("luna_rewards", rewards.LunaRewards.String()),
			slog.String("lsd_rewards", rewards.LSDRewards.String()),
			slog.String("rate_decrease", rewards.RateDecrease.String()))
		e.emit(Decompounded{
			Wrapper:      env.Contract,
			Recipient:    to,
			LunaRewards:  rewards.LunaRewards,
			LSDRewards:   rewards.LSDRewards,
			RateDecrease: rewards.RateDecrease,
			Capped:       cfg.Capped(),
		})
	}

	resp.addAttribute("action", "execute_decompound").
		addAttribute("total_luna_rewards", rewards.LunaRewards.String()).
		addAttribute("lsd_rewards", rewards.LSDRewards.String()).
		addAttribute("rate_decrease", rewards.RateDecrease.String())
	return resp, nil
}

// UpdateDecompoundRate replaces the yearly cap. Only the hub may call it; a
// nil ratio lifts the cap.
func (e *Engine) UpdateDecompoundRate(info MessageInfo, ratio *math.LegacyDec) (*Response, error) {
	if e.state == nil {
		return nil, errNilState
	}
	hubContract, err := e.loadHubContract()
	if err != nil {
		return nil, err
	}
	if info.Sender != hubContract {
		return nil, ErrUnauthorized
	}
	if err := e.setDecompoundRatio(ratio); err != nil {
		return nil, err
	}
	resp := &Response{}
	resp.addAttribute("action", "update_decompound_rate")
	return resp, nil
}

// Migrate replaces the cap during a code migration. The extraction record is
// carried over unchanged.
func (e *Engine) Migrate(ratio *math.LegacyDec) (*Response, error) {
	if e.state == nil {
		return nil, errNilState
	}
	if _, err := e.DecompoundState(); err != nil {
		return nil, err
	}
	if err := e.setDecompoundRatio(ratio); err != nil {
		return nil, err
	}
	resp := &Response{}
	resp.addAttribute("action", "migrate")
	return resp, nil
}

func (e *Engine) setDecompoundRatio(ratio *math.LegacyDec) error {
	if err := validateRatio(ratio); err != nil {
		return err
	}
	cfg := DecompoundConfig{MaxDecompoundRatio: ratio}
	if err := e.storeDecompoundConfig(cfg); err != nil {
		return err
	}
	e.emit(DecompoundRateUpdated{MaxDecompoundRatio: ratio})
	return nil
}

func validateRatio(ratio *math.LegacyDec) error {
	if ratio == nil {
		return nil
	}
	if ratio.IsNil() || ratio.IsNegative() {
		return ErrInvalidRatio
	}
	return nil
}
