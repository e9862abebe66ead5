package lsdhub

import (
	"context"
	"fmt"
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"cavernlsd/crypto"
)

// GeneratorConfig binds a wrapper to a Spectrum-style compounding token. The
// cToken represents a share of the LP bonded by the token contract in the
// generator, so its rate is bond_amount / total_bond_share.
type GeneratorConfig struct {
	Token           string `json:"token" toml:"token" yaml:"token"`
	Generator       string `json:"generator" toml:"generator" yaml:"generator"`
	UnderlyingToken string `json:"underlying_token" toml:"underlying_token" yaml:"underlying_token"`
}

type generatorHub struct {
	token      string
	generator  string
	underlying string
}

func newGeneratorHub(cfg GeneratorConfig, v crypto.AddressValidator) (*generatorHub, error) {
	token, err := validateField(v, "generator.token", cfg.Token)
	if err != nil {
		return nil, err
	}
	generator, err := validateField(v, "generator.generator", cfg.Generator)
	if err != nil {
		return nil, err
	}
	underlying, err := validateField(v, "generator.underlying_token", cfg.UnderlyingToken)
	if err != nil {
		return nil, err
	}
	return &generatorHub{token: token, generator: generator, underlying: underlying}, nil
}

type cTokenStateQuery struct {
	State struct{} `json:"state"`
}

type cTokenStateResponse struct {
	TotalBondShare math.Int `json:"total_bond_share"`
}

type userInfoQuery struct {
	UserInfo struct {
		User    string `json:"user"`
		LPToken string `json:"lp_token"`
	} `json:"user_info"`
}

type userInfoResponse struct {
	BondAmount math.Int `json:"bond_amount"`
}

func (h *generatorHub) Kind() Kind { return KindGenerator }

func (h *generatorHub) ExchangeRate(ctx context.Context, q Querier, _ time.Time) (math.LegacyDec, error) {
	var state cTokenStateResponse
	if err := q.QuerySmart(ctx, h.token, cTokenStateQuery{}, &state); err != nil {
		return math.LegacyDec{}, err
	}
	var req userInfoQuery
	req.UserInfo.User = h.token
	req.UserInfo.LPToken = h.underlying
	var info userInfoResponse
	if err := q.QuerySmart(ctx, h.generator, req, &info); err != nil {
		return math.LegacyDec{}, err
	}
	if state.TotalBondShare.IsNil() || !state.TotalBondShare.IsPositive() {
		return math.LegacyDec{}, fmt.Errorf("%w: zero bond share", ErrInvalidRate)
	}
	amount := info.BondAmount
	if amount.IsNil() {
		amount = math.ZeroInt()
	}
	return math.LegacyNewDecFromInt(amount).QuoInt(state.TotalBondShare), nil
}

func (h *generatorHub) BalanceOf(ctx context.Context, q Querier, holder string, _ sdk.Coins) (math.Int, error) {
	return cw20Balance(ctx, q, h.token, holder)
}

func (h *generatorHub) Deposit(self, from string, amount math.Int, _ sdk.Coins) ([]sdk.Msg, error) {
	return cw20Pull(self, h.token, from, amount)
}

func (h *generatorHub) Withdraw(self, to string, amount math.Int) ([]sdk.Msg, error) {
	return cw20Push(self, h.token, to, amount)
}
