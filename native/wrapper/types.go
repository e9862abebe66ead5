package wrapper

import (
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"cavernlsd/core/types"
	"cavernlsd/native/lsdhub"
	"cavernlsd/native/token"
)

// Env describes the block and contract an invocation runs in.
type Env struct {
	Height   uint64
	Time     time.Time
	Contract string
}

func (e Env) block() token.Block {
	return token.Block{Height: e.Height, Time: e.Time}
}

// MessageInfo identifies the caller and the coins attached to the call.
type MessageInfo struct {
	Sender string
	Funds  sdk.Coins
}

// Attribute is a key/value pair reported on a Response.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response carries the outcome of a state-changing call. Messages are
// dispatched by the host after the call's state is committed.
type Response struct {
	Messages   []sdk.Msg     `json:"-"`
	Attributes []Attribute   `json:"attributes"`
	Events     []types.Event `json:"events,omitempty"`
}

func (r *Response) addAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// Attribute returns the first value recorded under key.
func (r *Response) Attribute(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, attr := range r.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// WrapperState is a point-in-time view of the wrapper's backing. It is
// computed on every call and never stored.
type WrapperState struct {
	// LSDExchangeRate is the number of underlying units per LSD unit.
	LSDExchangeRate math.LegacyDec
	LSDBalance      math.Int
	// BackingValue is LSDBalance valued in underlying units.
	BackingValue  math.LegacyDec
	WrapperSupply math.Int
}

// NewWrapperState derives the backing value from the raw readings.
func NewWrapperState(rate math.LegacyDec, balance, supply math.Int) (WrapperState, error) {
	if err := checkAmount(balance); err != nil {
		return WrapperState{}, err
	}
	if err := checkAmount(supply); err != nil {
		return WrapperState{}, err
	}
	if rate.IsNil() || rate.IsNegative() {
		return WrapperState{}, ErrArithmetic
	}
	return WrapperState{
		LSDExchangeRate: rate,
		LSDBalance:      balance,
		BackingValue:    mulDec(math.LegacyNewDecFromInt(balance), rate),
		WrapperSupply:   supply,
	}, nil
}

// DecompoundConfig bounds how much value may be extracted per year. A nil
// MaxDecompoundRatio means extraction is unlimited.
type DecompoundConfig struct {
	MaxDecompoundRatio *math.LegacyDec `json:"max_decompound_ratio"`
}

// Capped reports whether a yearly ratio is configured.
func (c DecompoundConfig) Capped() bool {
	return c.MaxDecompoundRatio != nil
}

// DecompoundState tracks what has been extracted so far under the cap.
type DecompoundState struct {
	// RatioSum accumulates every rate decrease ever applied. It never decays.
	RatioSum       math.LegacyDec `json:"ratio_sum"`
	TotalSeconds   uint64         `json:"total_seconds"`
	LastDecompound time.Time      `json:"last_decompound"`
}

// AccruedRewards is the outcome of a decompound computation.
type AccruedRewards struct {
	// LunaRewards is the extracted value in underlying units.
	LunaRewards math.Int
	// LSDRewards is the amount of LSD sent to the recipient.
	LSDRewards   math.Int
	RateDecrease math.LegacyDec
}

func zeroRewards() AccruedRewards {
	return AccruedRewards{
		LunaRewards:  math.ZeroInt(),
		LSDRewards:   math.ZeroInt(),
		RateDecrease: math.LegacyZeroDec(),
	}
}

// InstantiateParams configures a new wrapper.
type InstantiateParams struct {
	Name               string
	Symbol             string
	Decimals           uint8
	InitialBalances    []token.Balance
	HubContract        string
	LSDConfig          lsdhub.Config
	MaxDecompoundRatio *math.LegacyDec
}

// TokenInfo is the token metadata extended with the wrapper's rates.
type TokenInfo struct {
	Name                 string          `json:"name"`
	Symbol               string          `json:"symbol"`
	Decimals             uint8           `json:"decimals"`
	TotalSupply          math.Int        `json:"total_supply"`
	ExchangeRate         math.LegacyDec  `json:"exchange_rate"`
	ExpectedExchangeRate math.LegacyDec  `json:"expected_exchange_rate"`
	MaxDecompoundRatio   *math.LegacyDec `json:"max_decompound_ratio"`
	LSDExchangeRate      math.LegacyDec  `json:"lsd_exchange_rate"`
}
