package lsdhub

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"

	"cavernlsd/crypto"
)

// CoinConfig binds a wrapper to a natively staked bank denom (e.g. a Stride
// stToken). The chain cannot price the denom itself, so the rate comes from
// an oracle contract quoting Denom in UnderlyingDenom.
type CoinConfig struct {
	Denom           string `json:"denom" toml:"denom" yaml:"denom"`
	UnderlyingDenom string `json:"underlying_token_denom" toml:"underlying_token_denom" yaml:"underlying_token_denom"`
	Oracle          string `json:"oracle_contract" toml:"oracle_contract" yaml:"oracle_contract"`
	// ValidTimeframe, in seconds, rejects oracle prices last updated before
	// block_time - ValidTimeframe. Zero disables the check.
	ValidTimeframe uint64 `json:"valid_timeframe,omitempty" toml:"valid_timeframe" yaml:"valid_timeframe,omitempty"`
}

type coinHub struct {
	denom          string
	underlying     string
	oracle         string
	validTimeframe uint64
}

func newCoinHub(cfg CoinConfig, v crypto.AddressValidator) (*coinHub, error) {
	denom := strings.TrimSpace(cfg.Denom)
	if err := sdk.ValidateDenom(denom); err != nil {
		return nil, fmt.Errorf("%w: coin.denom: %v", ErrInvalidConfig, err)
	}
	underlying := strings.TrimSpace(cfg.UnderlyingDenom)
	if underlying == "" {
		return nil, fmt.Errorf("%w: coin.underlying_token_denom required", ErrInvalidConfig)
	}
	oracle, err := validateField(v, "coin.oracle_contract", cfg.Oracle)
	if err != nil {
		return nil, err
	}
	return &coinHub{denom: denom, underlying: underlying, oracle: oracle, validTimeframe: cfg.ValidTimeframe}, nil
}

type priceQuery struct {
	Price struct {
		Base  string `json:"base"`
		Quote string `json:"quote"`
	} `json:"price"`
}

// priceResponse timestamps are unix seconds.
type priceResponse struct {
	Rate             math.LegacyDec `json:"rate"`
	LastUpdatedBase  uint64         `json:"last_updated_base"`
	LastUpdatedQuote uint64         `json:"last_updated_quote"`
}

// maxRateAtomics bounds oracle rates to what an 18-decimal, 128-bit decimal
// can carry.
var maxRateAtomics = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

func (h *coinHub) Kind() Kind { return KindCoin }

func (h *coinHub) ExchangeRate(ctx context.Context, q Querier, blockTime time.Time) (math.LegacyDec, error) {
	var req priceQuery
	req.Price.Base = h.denom
	req.Price.Quote = h.underlying
	var resp priceResponse
	if err := q.QuerySmart(ctx, h.oracle, req, &resp); err != nil {
		return math.LegacyDec{}, err
	}
	if h.validTimeframe > 0 {
		now := uint64(blockTime.Unix())
		var oldest uint64
		if now > h.validTimeframe {
			oldest = now - h.validTimeframe
		}
		if resp.LastUpdatedBase < oldest || resp.LastUpdatedQuote < oldest {
			return math.LegacyDec{}, fmt.Errorf("%w: updated at %d/%d, need >= %d",
				ErrStalePrice, resp.LastUpdatedBase, resp.LastUpdatedQuote, oldest)
		}
	}
	rate, err := checkRate(resp.Rate)
	if err != nil {
		return math.LegacyDec{}, err
	}
	if rate.BigInt().Cmp(maxRateAtomics) > 0 {
		return math.LegacyDec{}, fmt.Errorf("%w: %s overflows 128 bits", ErrInvalidRate, rate)
	}
	return rate, nil
}

// BalanceOf reads the bank balance. Coins attached to the current call have
// already been credited by the bank module, so they are subtracted.
func (h *coinHub) BalanceOf(ctx context.Context, q Querier, holder string, pending sdk.Coins) (math.Int, error) {
	balance, err := q.QueryBalance(ctx, holder, h.denom)
	if err != nil {
		return math.Int{}, err
	}
	if balance.IsNil() {
		balance = math.ZeroInt()
	}
	attached := pending.AmountOf(h.denom)
	if attached.GT(balance) {
		return math.ZeroInt(), nil
	}
	return balance.Sub(attached), nil
}

// Deposit emits no messages: the funds arrive with the call. It checks that
// exactly the LSD denom was attached and that it covers amount.
func (h *coinHub) Deposit(_, _ string, amount math.Int, funds sdk.Coins) ([]sdk.Msg, error) {
	if len(funds) != 1 || funds[0].Denom != h.denom || funds[0].Amount.LT(amount) {
		return nil, fmt.Errorf("%w: deposited %s, needed %s%s", ErrInvalidFunds, funds, amount, h.denom)
	}
	return nil, nil
}

func (h *coinHub) Withdraw(self, to string, amount math.Int) ([]sdk.Msg, error) {
	return []sdk.Msg{&banktypes.MsgSend{
		FromAddress: self,
		ToAddress:   to,
		Amount:      sdk.NewCoins(sdk.NewCoin(h.denom, amount)),
	}}, nil
}
