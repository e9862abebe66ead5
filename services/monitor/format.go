package monitor

import (
	"time"

	"cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

const secondsPerYear = 31_536_000

// decimalOf converts an 18-place fixed-point value for display arithmetic.
func decimalOf(d math.LegacyDec) decimal.Decimal {
	if d.IsNil() {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(d.BigInt(), -math.LegacyPrecision)
}

func decFloat(d math.LegacyDec) float64 {
	f, _ := decimalOf(d).Float64()
	return f
}

// View is the display form of a snapshot served over HTTP and printed by
// the CLI.
type View struct {
	Wrapper            string `json:"wrapper"`
	Contract           string `json:"contract"`
	TakenAt            string `json:"taken_at"`
	ExchangeRate       string `json:"exchange_rate"`
	ExpectedRate       string `json:"expected_exchange_rate"`
	LSDRate            string `json:"lsd_exchange_rate"`
	Supply             string `json:"supply"`
	MaxDecompoundRatio string `json:"max_decompound_ratio,omitempty"`
	// UsedYearlyRatio annualises the rate decrease extracted so far.
	UsedYearlyRatio string `json:"used_yearly_ratio,omitempty"`
	PendingLSD      string `json:"pending_lsd_rewards"`
	LastDecompound  string `json:"last_decompound"`
	Slashed         bool   `json:"slashed"`
	Blocked         string `json:"blocked,omitempty"`
}

// NewView formats s with rates rounded to places decimals.
func NewView(s Snapshot, places int32) View {
	v := View{
		Wrapper:        s.Wrapper,
		Contract:       s.Contract,
		TakenAt:        s.TakenAt.UTC().Format(time.RFC3339),
		ExchangeRate:   decimalOf(s.ExchangeRate).StringFixed(places),
		ExpectedRate:   decimalOf(s.ExpectedRate).StringFixed(places),
		LSDRate:        decimalOf(s.LSDRate).StringFixed(places),
		Supply:         s.Supply.String(),
		PendingLSD:     s.PendingLSD.String(),
		LastDecompound: s.LastDecompound.UTC().Format(time.RFC3339),
		Slashed:        s.Slashed,
		Blocked:        s.Blocked,
	}
	if s.MaxDecompoundRatio != nil {
		v.MaxDecompoundRatio = decimalOf(*s.MaxDecompoundRatio).StringFixed(places)
		if s.TotalSeconds > 0 {
			used := decimalOf(s.RatioSum).
				Mul(decimal.NewFromInt(secondsPerYear)).
				Div(decimal.NewFromInt(int64(s.TotalSeconds)))
			v.UsedYearlyRatio = used.StringFixed(places)
		}
	}
	return v
}
