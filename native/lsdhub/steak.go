package lsdhub

import (
	"context"
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"cavernlsd/crypto"
)

// SteakConfig binds a wrapper to a Steak-style staking hub and its cw20 LSD.
type SteakConfig struct {
	Hub   string `json:"hub" toml:"hub" yaml:"hub"`
	Token string `json:"token" toml:"token" yaml:"token"`
}

type steakHub struct {
	hub   string
	token string
}

func newSteakHub(cfg SteakConfig, v crypto.AddressValidator) (*steakHub, error) {
	hub, err := validateField(v, "steak.hub", cfg.Hub)
	if err != nil {
		return nil, err
	}
	token, err := validateField(v, "steak.token", cfg.Token)
	if err != nil {
		return nil, err
	}
	return &steakHub{hub: hub, token: token}, nil
}

type steakStateQuery struct {
	State struct{} `json:"state"`
}

func (h *steakHub) Kind() Kind { return KindSteak }

func (h *steakHub) ExchangeRate(ctx context.Context, q Querier, _ time.Time) (math.LegacyDec, error) {
	var resp hubStateResponse
	if err := q.QuerySmart(ctx, h.hub, steakStateQuery{}, &resp); err != nil {
		return math.LegacyDec{}, err
	}
	return checkRate(resp.ExchangeRate)
}

func (h *steakHub) BalanceOf(ctx context.Context, q Querier, holder string, _ sdk.Coins) (math.Int, error) {
	return cw20Balance(ctx, q, h.token, holder)
}

func (h *steakHub) Deposit(self, from string, amount math.Int, _ sdk.Coins) ([]sdk.Msg, error) {
	return cw20Pull(self, h.token, from, amount)
}

func (h *steakHub) Withdraw(self, to string, amount math.Int) ([]sdk.Msg, error) {
	return cw20Push(self, h.token, to, amount)
}
