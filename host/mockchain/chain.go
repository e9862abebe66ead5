// Package mockchain simulates the slice of a CosmWasm chain the wrapper
// talks to: cw20 and bank balances, staking hub and oracle state, and
// execution of the messages a wrapper returns.
package mockchain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/math"
	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
)

var (
	ErrUnknownContract = errors.New("mockchain: unknown contract")
	ErrUnknownQuery    = errors.New("mockchain: unsupported query")
	ErrUnknownMsg      = errors.New("mockchain: unsupported message")
	ErrInsufficient    = errors.New("mockchain: insufficient funds")
)

// QueryHandler answers smart queries for a contract registered by the test.
type QueryHandler func(ctx context.Context, request []byte) ([]byte, error)

type price struct {
	rate    math.LegacyDec
	updated uint64
}

// Chain is an in-memory chain. The zero value is not usable; call New.
type Chain struct {
	mu     sync.RWMutex
	height uint64
	now    time.Time

	cw20      map[string]map[string]math.Int
	bank      map[string]map[string]math.Int
	hubRates  map[string]math.LegacyDec
	bondShare map[string]math.Int
	bondAmt   map[string]math.Int
	prices    map[string]price
	handlers  map[string]QueryHandler
	failures  map[string]error
}

// New returns a chain at height 1 with its clock set to genesis.
func New(genesis time.Time) *Chain {
	return &Chain{
		height:    1,
		now:       genesis.UTC(),
		cw20:      make(map[string]map[string]math.Int),
		bank:      make(map[string]map[string]math.Int),
		hubRates:  make(map[string]math.LegacyDec),
		bondShare: make(map[string]math.Int),
		bondAmt:   make(map[string]math.Int),
		prices:    make(map[string]price),
		handlers:  make(map[string]QueryHandler),
		failures:  make(map[string]error),
	}
}

// Height returns the current block height.
func (c *Chain) Height() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

// Now returns the current block time.
func (c *Chain) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves to the next block, d later.
func (c *Chain) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height++
	c.now = c.now.Add(d)
}

func (c *Chain) SetTokenBalance(token, holder string, amount math.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cw20[token] == nil {
		c.cw20[token] = make(map[string]math.Int)
	}
	c.cw20[token][holder] = amount
}

func (c *Chain) TokenBalance(token, holder string) math.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lookup(c.cw20[token], holder)
}

func (c *Chain) SetBankBalance(holder, denom string, amount math.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bank[holder] == nil {
		c.bank[holder] = make(map[string]math.Int)
	}
	c.bank[holder][denom] = amount
}

func (c *Chain) BankBalance(holder, denom string) math.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lookup(c.bank[holder], denom)
}

// SetHubRate sets the exchange_rate reported by a staking hub's state query.
func (c *Chain) SetHubRate(hub string, rate math.LegacyDec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hubRates[hub] = rate
}

// SetBondShare sets the total_bond_share of a compounding cToken.
func (c *Chain) SetBondShare(token string, share math.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bondShare[token] = share
}

// SetBondAmount sets what the generator reports as bonded by user for lpToken.
func (c *Chain) SetBondAmount(generator, user, lpToken string, amount math.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bondAmt[generator+"|"+user+"|"+lpToken] = amount
}

// SetPrice publishes an oracle price with both legs updated at `updated`.
func (c *Chain) SetPrice(oracle, base, quote string, rate math.LegacyDec, updated time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[oracle+"|"+base+"|"+quote] = price{rate: rate, updated: uint64(updated.Unix())}
}

// Register routes smart queries for contract to h.
func (c *Chain) Register(contract string, h QueryHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[contract] = h
}

// FailQueries makes every query against contract return err. A nil err
// clears the failure.
func (c *Chain) FailQueries(contract string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.failures, contract)
		return
	}
	c.failures[contract] = err
}

// QueryBalance returns a bank balance.
func (c *Chain) QueryBalance(_ context.Context, address, denom string) (math.Int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.failures[address]; err != nil {
		return math.Int{}, err
	}
	return lookup(c.bank[address], denom), nil
}

// QuerySmart answers a JSON smart query against one of the simulated contracts.
func (c *Chain) QuerySmart(ctx context.Context, contract string, request, response interface{}) error {
	raw, err := json.Marshal(request)
	if err != nil {
		return err
	}
	out, err := c.querySmartRaw(ctx, contract, raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(out, response)
}

func (c *Chain) querySmartRaw(ctx context.Context, contract string, raw []byte) ([]byte, error) {
	c.mu.RLock()
	if err := c.failures[contract]; err != nil {
		c.mu.RUnlock()
		return nil, err
	}
	handler := c.handlers[contract]
	c.mu.RUnlock()
	if handler != nil {
		return handler(ctx, raw)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownQuery, err)
	}
	if len(envelope) != 1 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuery, raw)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, body := range envelope {
		switch name {
		case "balance":
			var q struct {
				Address string `json:"address"`
			}
			if err := json.Unmarshal(body, &q); err != nil {
				return nil, err
			}
			holders, ok := c.cw20[contract]
			if !ok {
				return nil, fmt.Errorf("%w: %s is not a token", ErrUnknownContract, contract)
			}
			return json.Marshal(map[string]math.Int{"balance": lookup(holders, q.Address)})
		case "state":
			if share, ok := c.bondShare[contract]; ok {
				return json.Marshal(map[string]math.Int{"total_bond_share": share})
			}
			if rate, ok := c.hubRates[contract]; ok {
				return json.Marshal(map[string]math.LegacyDec{"exchange_rate": rate})
			}
		case "user_info":
			var q struct {
				User    string `json:"user"`
				LPToken string `json:"lp_token"`
			}
			if err := json.Unmarshal(body, &q); err != nil {
				return nil, err
			}
			amount, ok := c.bondAmt[contract+"|"+q.User+"|"+q.LPToken]
			if !ok {
				amount = math.ZeroInt()
			}
			return json.Marshal(map[string]math.Int{"bond_amount": amount})
		case "price":
			var q struct {
				Base  string `json:"base"`
				Quote string `json:"quote"`
			}
			if err := json.Unmarshal(body, &q); err != nil {
				return nil, err
			}
			p, ok := c.prices[contract+"|"+q.Base+"|"+q.Quote]
			if !ok {
				return nil, fmt.Errorf("%w: no price for %s/%s", ErrUnknownQuery, q.Base, q.Quote)
			}
			return json.Marshal(struct {
				Rate             math.LegacyDec `json:"rate"`
				LastUpdatedBase  uint64         `json:"last_updated_base"`
				LastUpdatedQuote uint64         `json:"last_updated_quote"`
			}{p.rate, p.updated, p.updated})
		}
		return nil, fmt.Errorf("%w: %s on %s", ErrUnknownQuery, name, contract)
	}
	return nil, ErrUnknownQuery
}

// Send moves coins between bank accounts, the way funds attached to a call
// reach the contract before it runs.
func (c *Chain) Send(from, to string, coins sdk.Coins) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(from, to, coins)
}

func (c *Chain) sendLocked(from, to string, coins sdk.Coins) error {
	for _, coin := range coins {
		have := lookup(c.bank[from], coin.Denom)
		if have.LT(coin.Amount) {
			return fmt.Errorf("%w: %s has %s%s, needs %s", ErrInsufficient, from, have, coin.Denom, coin)
		}
	}
	for _, coin := range coins {
		if c.bank[from] == nil {
			c.bank[from] = make(map[string]math.Int)
		}
		if c.bank[to] == nil {
			c.bank[to] = make(map[string]math.Int)
		}
		c.bank[from][coin.Denom] = lookup(c.bank[from], coin.Denom).Sub(coin.Amount)
		c.bank[to][coin.Denom] = lookup(c.bank[to], coin.Denom).Add(coin.Amount)
	}
	return nil
}

// Execute applies msgs in order. Execution stops at the first failure;
// messages already applied stay applied.
func (c *Chain) Execute(_ context.Context, msgs []sdk.Msg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, msg := range msgs {
		var err error
		switch m := msg.(type) {
		case *banktypes.MsgSend:
			err = c.sendLocked(m.FromAddress, m.ToAddress, m.Amount)
		case *wasmtypes.MsgExecuteContract:
			err = c.executeCw20(m.Sender, m.Contract, m.Msg)
		default:
			err = fmt.Errorf("%w: %T", ErrUnknownMsg, msg)
		}
		if err != nil {
			return fmt.Errorf("msg %d: %w", i, err)
		}
	}
	return nil
}

type cw20Msg struct {
	Transfer *struct {
		Recipient string   `json:"recipient"`
		Amount    math.Int `json:"amount"`
	} `json:"transfer"`
	TransferFrom *struct {
		Owner     string   `json:"owner"`
		Recipient string   `json:"recipient"`
		Amount    math.Int `json:"amount"`
	} `json:"transfer_from"`
}

// executeCw20 moves token balances. Allowances are not modelled: a
// transfer_from succeeds whenever the owner holds enough.
func (c *Chain) executeCw20(sender, token string, raw []byte) error {
	holders, ok := c.cw20[token]
	if !ok {
		return fmt.Errorf("%w: %s is not a token", ErrUnknownContract, token)
	}
	var msg cw20Msg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownMsg, err)
	}
	switch {
	case msg.Transfer != nil:
		return moveToken(holders, sender, msg.Transfer.Recipient, msg.Transfer.Amount)
	case msg.TransferFrom != nil:
		return moveToken(holders, msg.TransferFrom.Owner, msg.TransferFrom.Recipient, msg.TransferFrom.Amount)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMsg, raw)
	}
}

func moveToken(holders map[string]math.Int, from, to string, amount math.Int) error {
	have := lookup(holders, from)
	if have.LT(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficient, from, have, amount)
	}
	holders[from] = have.Sub(amount)
	holders[to] = lookup(holders, to).Add(amount)
	return nil
}

func lookup(m map[string]math.Int, key string) math.Int {
	if v, ok := m[key]; ok && !v.IsNil() {
		return v
	}
	return math.ZeroInt()
}
