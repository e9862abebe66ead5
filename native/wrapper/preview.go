package wrapper

import (
	"errors"
	"time"

	"cosmossdk.io/math"
)

// Preview summarises what a decompound would do at a given time without
// touching state. Off-chain monitors build one from values read off the
// chain.
type Preview struct {
	CurrentRate  math.LegacyDec
	ExpectedRate math.LegacyDec
	LSDRate      math.LegacyDec
	Rewards      AccruedRewards
	// Slashed is set when the wrapper rate is below one.
	Slashed bool
	// Blocked holds the error a decompound would fail with, if any.
	Blocked error
}

// NewPreview evaluates ComputeRewards and the rate projections for one
// snapshot.
func NewPreview(ws WrapperState, cfg DecompoundConfig, st DecompoundState, now time.Time) Preview {
	current := ws.CurrentRate()
	p := Preview{
		CurrentRate:  current,
		ExpectedRate: ExpectedRate(current, cfg, st, now),
		Rewards:      zeroRewards(),
	}
	if rate, err := LSDWrapperRate(ws.WrapperSupply, ws.LSDBalance); err == nil {
		p.LSDRate = rate
	}
	rewards, err := ComputeRewards(ws, cfg, st, now)
	switch {
	case errors.Is(err, ErrSlashingDetected):
		p.Slashed = true
	case err != nil:
		p.Blocked = err
	default:
		p.Rewards = rewards
	}
	return p
}
