package lsdhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cosmossdk.io/math"
	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"cavernlsd/crypto"
)

var (
	ErrInvalidConfig = errors.New("lsdhub: invalid config")
	ErrInvalidFunds  = errors.New("lsdhub: invalid funds")
	ErrStalePrice    = errors.New("lsdhub: price is too old")
	ErrInvalidRate   = errors.New("lsdhub: invalid exchange rate")
)

// Kind identifies the family of liquid staking hub a wrapper is bound to.
type Kind string

const (
	KindSteak     Kind = "steak"
	KindCoin      Kind = "coin"
	KindGenerator Kind = "generator"
	KindLP        Kind = "lp"
)

// Querier is the read-only view of the host chain the adapters need.
type Querier interface {
	// QuerySmart JSON-encodes request, sends it to contract and decodes the
	// reply into response.
	QuerySmart(ctx context.Context, contract string, request, response interface{}) error
	QueryBalance(ctx context.Context, address, denom string) (math.Int, error)
}

// Hub is the capability a wrapper needs from its underlying LSD: a price, a
// balance, and the messages that move the LSD in and out of the wrapper.
type Hub interface {
	Kind() Kind
	// ExchangeRate returns the number of underlying units one LSD unit is
	// worth.
	ExchangeRate(ctx context.Context, q Querier, blockTime time.Time) (math.LegacyDec, error)
	// BalanceOf returns holder's LSD balance. pending lists funds attached to
	// the current call that must not be counted yet.
	BalanceOf(ctx context.Context, q Querier, holder string, pending sdk.Coins) (math.Int, error)
	// Deposit pulls amount LSD from `from` into self. funds are the coins
	// attached to the call.
	Deposit(self, from string, amount math.Int, funds sdk.Coins) ([]sdk.Msg, error)
	// Withdraw sends amount LSD held by self to `to`.
	Withdraw(self, to string, amount math.Int) ([]sdk.Msg, error)
}

// Config selects and parameterises exactly one adapter. It mirrors the JSON
// shape accepted at instantiation, e.g. {"steak":{"hub":"...","token":"..."}}.
type Config struct {
	Steak     *SteakConfig     `json:"steak,omitempty" toml:"steak,omitempty" yaml:"steak,omitempty"`
	Coin      *CoinConfig      `json:"coin,omitempty" toml:"coin,omitempty" yaml:"coin,omitempty"`
	Generator *GeneratorConfig `json:"generator,omitempty" toml:"generator,omitempty" yaml:"generator,omitempty"`
	LP        *LPConfig        `json:"lp,omitempty" toml:"lp,omitempty" yaml:"lp,omitempty"`
}

// Kind reports which adapter the config selects. It returns an empty Kind
// when zero or several variants are set.
func (c Config) Kind() Kind {
	var kinds []Kind
	if c.Steak != nil {
		kinds = append(kinds, KindSteak)
	}
	if c.Coin != nil {
		kinds = append(kinds, KindCoin)
	}
	if c.Generator != nil {
		kinds = append(kinds, KindGenerator)
	}
	if c.LP != nil {
		kinds = append(kinds, KindLP)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Build validates the addresses in the config and returns the adapter.
func (c Config) Build(v crypto.AddressValidator) (Hub, error) {
	if v == nil {
		v = crypto.Bech32Validator{}
	}
	switch c.Kind() {
	case KindSteak:
		return newSteakHub(*c.Steak, v)
	case KindCoin:
		return newCoinHub(*c.Coin, v)
	case KindGenerator:
		return newGeneratorHub(*c.Generator, v)
	case KindLP:
		return newLPHub(*c.LP, v)
	default:
		return nil, fmt.Errorf("%w: exactly one of steak, coin, generator or lp must be set", ErrInvalidConfig)
	}
}

// ParseConfig decodes and builds an adapter from its JSON form.
func ParseConfig(raw []byte, v crypto.AddressValidator) (Config, Hub, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	hub, err := cfg.Build(v)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, hub, nil
}

func validateField(v crypto.AddressValidator, field, addr string) (string, error) {
	if strings.TrimSpace(addr) == "" {
		return "", fmt.Errorf("%w: %s required", ErrInvalidConfig, field)
	}
	out, err := v.ValidateAddress(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidConfig, field, err)
	}
	return out, nil
}

// cw20 wire shapes shared by the token-backed adapters.

type cw20BalanceQuery struct {
	Balance struct {
		Address string `json:"address"`
	} `json:"balance"`
}

type cw20BalanceResponse struct {
	Balance math.Int `json:"balance"`
}

type cw20Transfer struct {
	Recipient string   `json:"recipient"`
	Amount    math.Int `json:"amount"`
}

type cw20TransferFrom struct {
	Owner     string   `json:"owner"`
	Recipient string   `json:"recipient"`
	Amount    math.Int `json:"amount"`
}

type cw20ExecuteMsg struct {
	Transfer     *cw20Transfer     `json:"transfer,omitempty"`
	TransferFrom *cw20TransferFrom `json:"transfer_from,omitempty"`
}

func cw20Balance(ctx context.Context, q Querier, token, holder string) (math.Int, error) {
	var req cw20BalanceQuery
	req.Balance.Address = holder
	var resp cw20BalanceResponse
	if err := q.QuerySmart(ctx, token, req, &resp); err != nil {
		return math.Int{}, err
	}
	if resp.Balance.IsNil() {
		return math.ZeroInt(), nil
	}
	return resp.Balance, nil
}

func executeCw20(sender, token string, msg cw20ExecuteMsg) ([]sdk.Msg, error) {
	bz, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return []sdk.Msg{&wasmtypes.MsgExecuteContract{
		Sender:   sender,
		Contract: token,
		Msg:      bz,
	}}, nil
}

func cw20Pull(self, token, from string, amount math.Int) ([]sdk.Msg, error) {
	return executeCw20(self, token, cw20ExecuteMsg{TransferFrom: &cw20TransferFrom{
		Owner:     from,
		Recipient: self,
		Amount:    amount,
	}})
}

func cw20Push(self, token, to string, amount math.Int) ([]sdk.Msg, error) {
	return executeCw20(self, token, cw20ExecuteMsg{Transfer: &cw20Transfer{
		Recipient: to,
		Amount:    amount,
	}})
}

// hubStateResponse is the subset of a staking hub's `state` reply the
// adapters read.
type hubStateResponse struct {
	ExchangeRate math.LegacyDec `json:"exchange_rate"`
}

func checkRate(rate math.LegacyDec) (math.LegacyDec, error) {
	if rate.IsNil() || rate.IsNegative() {
		return math.LegacyDec{}, fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}
	return rate, nil
}
