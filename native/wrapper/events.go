package wrapper

import (
	"strconv"

	"cosmossdk.io/math"

	"cavernlsd/core/types"
)

const (
	// TypeDecompounded is emitted when excess backing has been extracted.
	TypeDecompounded = "wrapper.decompounded"
	// TypeDecompoundSkipped is emitted when a slashed wrapper refuses to
	// extract anything.
	TypeDecompoundSkipped = "wrapper.decompound.skipped"
	// TypeDecompoundRateUpdated is emitted when the yearly cap changes.
	TypeDecompoundRateUpdated = "wrapper.decompound.rate_updated"
)

type Decompounded struct {
	Wrapper      string
	Recipient    string
	LunaRewards  math.Int
	LSDRewards   math.Int
	RateDecrease math.LegacyDec
	Capped       bool
}

func (Decompounded) EventType() string { return TypeDecompounded }

func (e Decompounded) Event() *types.Event {
	return &types.Event{
		Type: TypeDecompounded,
		Attributes: map[string]string{
			"wrapper":      e.Wrapper,
			"recipient":    e.Recipient,
			"lunaRewards":  e.LunaRewards.String(),
			"lsdRewards":   e.LSDRewards.String(),
			"rateDecrease": e.RateDecrease.String(),
			"capped":       strconv.FormatBool(e.Capped),
		},
	}
}

type DecompoundSkipped struct {
	Wrapper string
	Rate    math.LegacyDec
}

func (DecompoundSkipped) EventType() string { return TypeDecompoundSkipped }

func (e DecompoundSkipped) Event() *types.Event {
	return &types.Event{
		Type: TypeDecompoundSkipped,
		Attributes: map[string]string{
			"wrapper": e.Wrapper,
			"rate":    e.Rate.String(),
		},
	}
}

type DecompoundRateUpdated struct {
	MaxDecompoundRatio *math.LegacyDec
}

func (DecompoundRateUpdated) EventType() string { return TypeDecompoundRateUpdated }

func (e DecompoundRateUpdated) Event() *types.Event {
	ratio := "unlimited"
	if e.MaxDecompoundRatio != nil {
		ratio = e.MaxDecompoundRatio.String()
	}
	return &types.Event{
		Type:       TypeDecompoundRateUpdated,
		Attributes: map[string]string{"maxDecompoundRatio": ratio},
	}
}
