package lsdhub

import (
	"context"
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"cavernlsd/crypto"
)

// LPConfig binds a wrapper to an Eris amplified-LP hub. The hub compounds LP
// rewards into its own share token, which the wrapper holds.
type LPConfig struct {
	Hub   string `json:"hub" toml:"hub" yaml:"hub"`
	Token string `json:"token" toml:"token" yaml:"token"`
}

type lpHub struct {
	hub   string
	token string
}

func newLPHub(cfg LPConfig, v crypto.AddressValidator) (*lpHub, error) {
	hub, err := validateField(v, "lp.hub", cfg.Hub)
	if err != nil {
		return nil, err
	}
	token, err := validateField(v, "lp.token", cfg.Token)
	if err != nil {
		return nil, err
	}
	return &lpHub{hub: hub, token: token}, nil
}

// The amp-LP hub's state query takes an optional address and expects an
// explicit null when none is given.
type lpStateQuery struct {
	State struct {
		Addr *string `json:"addr"`
	} `json:"state"`
}

func (h *lpHub) Kind() Kind { return KindLP }

func (h *lpHub) ExchangeRate(ctx context.Context, q Querier, _ time.Time) (math.LegacyDec, error) {
	var resp hubStateResponse
	if err := q.QuerySmart(ctx, h.hub, lpStateQuery{}, &resp); err != nil {
		return math.LegacyDec{}, err
	}
	return checkRate(resp.ExchangeRate)
}

func (h *lpHub) BalanceOf(ctx context.Context, q Querier, holder string, _ sdk.Coins) (math.Int, error) {
	return cw20Balance(ctx, q, h.token, holder)
}

func (h *lpHub) Deposit(self, from string, amount math.Int, _ sdk.Coins) ([]sdk.Msg, error) {
	return cw20Pull(self, h.token, from, amount)
}

func (h *lpHub) Withdraw(self, to string, amount math.Int) ([]sdk.Msg, error) {
	return cw20Push(self, h.token, to, amount)
}
