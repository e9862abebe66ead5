package wrapper

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Mint issues amount wrapper tokens to recipient. The caller deposits
// floor(amount / lsd_wrapper_rate + 1) LSD, the extra unit keeping new
// tokens fully backed despite rounding.
func (e *Engine) Mint(ctx context.Context, env Env, info MessageInfo, recipient string, amount math.Int) (*Response, error) {
	if e.state == nil {
		return nil, errNilState
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	hub, err := e.loadHub()
	if err != nil {
		return nil, err
	}
	rate, err := e.lsdWrapperRate(ctx, env, hub, info.Funds)
	if err != nil {
		return nil, err
	}
	perRate, err := quoDec(math.LegacyNewDecFromInt(amount), rate)
	if err != nil {
		return nil, err
	}
	required := perRate.Add(math.LegacyOneDec()).TruncateInt()
	msgs, err := hub.Deposit(env.Contract, info.Sender, required, info.Funds)
	if err != nil {
		return nil, err
	}
	if err := e.ledger().Mint(env.Contract, recipient, amount); err != nil {
		return nil, err
	}
	resp := &Response{Messages: msgs}
	resp.addAttribute("action", "mint").
		addAttribute("to", recipient).
		addAttribute("amount", amount.String()).
		addAttribute("lsd_amount", required.String())
	return resp, nil
}

// MintWith deposits lsdAmount LSD and issues floor(lsdAmount *
// lsd_wrapper_rate) wrapper tokens to recipient.
func (e *Engine) MintWith(ctx context.Context, env Env, info MessageInfo, recipient string, lsdAmount math.Int) (*Response, error) {
	if e.state == nil {
		return nil, errNilState
	}
	if err := checkAmount(lsdAmount); err != nil {
		return nil, err
	}
	hub, err := e.loadHub()
	if err != nil {
		return nil, err
	}
	rate, err := e.lsdWrapperRate(ctx, env, hub, info.Funds)
	if err != nil {
		return nil, err
	}
	mintAmount := mulInt(rate, lsdAmount)
	msgs, err := hub.Deposit(env.Contract, info.Sender, lsdAmount, info.Funds)
	if err != nil {
		return nil, err
	}
	if err := e.ledger().Mint(env.Contract, recipient, mintAmount); err != nil {
		return nil, err
	}
	resp := &Response{Messages: msgs}
	resp.addAttribute("action", "mint").
		addAttribute("to", recipient).
		addAttribute("amount", mintAmount.String()).
		addAttribute("lsd_amount", lsdAmount.String())
	return resp, nil
}

// Burn destroys amount of the caller's tokens and returns
// floor(amount / lsd_wrapper_rate) LSD to the caller.
func (e *Engine) Burn(ctx context.Context, env Env, info MessageInfo, amount math.Int) (*Response, error) {
	return e.burn(ctx, env, info, amount, func() error {
		return e.ledger().Burn(info.Sender, amount)
	})
}

// BurnFrom burns owner's tokens against the caller's allowance. The LSD goes
// to the caller.
func (e *Engine) BurnFrom(ctx context.Context, env Env, info MessageInfo, owner string, amount math.Int) (*Response, error) {
	return e.burn(ctx, env, info, amount, func() error {
		return e.ledger().BurnFrom(info.Sender, owner, amount, env.block())
	})
}

// BurnAll burns the caller's whole balance. An empty balance is a no-op.
func (e *Engine) BurnAll(ctx context.Context, env Env, info MessageInfo) (*Response, error) {
	if e.state == nil {
		return nil, errNilState
	}
	balance, err := e.ledger().Balance(info.Sender)
	if err != nil {
		return nil, err
	}
	if balance.IsZero() {
		return &Response{}, nil
	}
	return e.Burn(ctx, env, info, balance)
}

// burn prices the LSD leg before the ledger changes, so the rate reflects
// the supply the tokens were issued against.
func (e *Engine) burn(ctx context.Context, env Env, info MessageInfo, amount math.Int, apply func() error) (*Response, error) {
	if e.state == nil {
		return nil, errNilState
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	hub, err := e.loadHub()
	if err != nil {
		return nil, err
	}
	rate, err := e.lsdWrapperRate(ctx, env, hub, nil)
	if err != nil {
		return nil, err
	}
	lsd, err := quoDec(math.LegacyNewDecFromInt(amount), rate)
	if err != nil {
		return nil, err
	}
	lsdAmount := lsd.TruncateInt()
	var msgs []sdk.Msg
	if lsdAmount.IsPositive() {
		if msgs, err = hub.Withdraw(env.Contract, info.Sender, lsdAmount); err != nil {
			return nil, err
		}
	}
	if err := apply(); err != nil {
		return nil, err
	}
	resp := &Response{Messages: msgs}
	resp.addAttribute("action", "burn").
		addAttribute("from", info.Sender).
		addAttribute("amount", amount.String()).
		addAttribute("lsd_amount", lsdAmount.String())
	return resp, nil
}

// GetMintAmount returns how many wrapper tokens lsdAmount LSD would mint.
func (e *Engine) GetMintAmount(ctx context.Context, env Env, lsdAmount math.Int) (math.Int, error) {
	if err := checkAmount(lsdAmount); err != nil {
		return math.Int{}, err
	}
	rate, err := e.LSDWrapperRate(ctx, env, nil)
	if err != nil {
		return math.Int{}, err
	}
	return mulInt(rate, lsdAmount), nil
}
