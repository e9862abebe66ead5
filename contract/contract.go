// Package contract exposes a wrapper as a host-callable contract: JSON
// messages in, responses and outbound messages out. Every invocation runs
// against a write cache that is committed only when the handler succeeds.
package contract

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"cosmossdk.io/math"

	"cavernlsd/core/events"
	"cavernlsd/core/types"
	"cavernlsd/crypto"
	"cavernlsd/native/lsdhub"
	"cavernlsd/native/token"
	"cavernlsd/native/wrapper"
	"cavernlsd/observability"
	"cavernlsd/storage"
)

// Contract is one wrapper instance bound to its persistent store.
type Contract struct {
	mu        sync.Mutex
	address   string
	db        storage.Database
	querier   lsdhub.Querier
	validator crypto.AddressValidator
	logger    *slog.Logger
	nowFunc   func() time.Time
}

// Option customises a Contract.
type Option func(*Contract)

// WithValidator overrides address validation.
func WithValidator(v crypto.AddressValidator) Option {
	return func(c *Contract) { c.validator = v }
}

// WithLogger sets the logger handed to the engine.
func WithLogger(l *slog.Logger) Option {
	return func(c *Contract) { c.logger = l }
}

// New binds a contract at address to db, reading the LSD hub through q.
func New(address string, db storage.Database, q lsdhub.Querier, opts ...Option) *Contract {
	c := &Contract{
		address:   address,
		db:        db,
		querier:   q,
		validator: crypto.Bech32Validator{},
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns the contract's own address.
func (c *Contract) Address() string { return c.address }

func (c *Contract) engine(store *storage.Store, buf *events.Buffer) *wrapper.Engine {
	e := wrapper.NewEngine()
	e.SetState(store)
	e.SetQuerier(c.querier)
	e.SetValidator(c.validator)
	e.SetEmitter(buf)
	e.SetLogger(c.logger)
	return e
}

// run executes fn against a fresh cache and commits it when fn succeeds.
func (c *Contract) run(method string, fn func(*wrapper.Engine) (*wrapper.Response, error)) (*wrapper.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.nowFunc()
	cache := storage.NewCache(c.db)
	buf := &events.Buffer{}
	resp, err := fn(c.engine(storage.NewStore(cache), buf))
	if err == nil {
		err = cache.Write()
	}
	if err != nil {
		cache.Discard()
		cerr := AsError(err)
		observability.Contract().Observe(c.address, method, cerr.Kind, c.nowFunc().Sub(start))
		return nil, cerr
	}
	observability.Contract().Observe(c.address, method, "", c.nowFunc().Sub(start))

	if resp == nil {
		resp = &wrapper.Response{}
	}
	committed := buf.Events()
	for _, evt := range committed {
		observability.Events().RecordEvent(c.address, evt.Type)
		if evt.Type == wrapper.TypeDecompounded {
			c.recordDecompound(evt)
		}
	}
	resp.Events = append(resp.Events, committed...)
	return resp, nil
}

func (c *Contract) recordDecompound(evt types.Event) {
	lsd, ok := math.NewIntFromString(evt.Attributes["lsdRewards"])
	if !ok {
		return
	}
	luna, ok := math.NewIntFromString(evt.Attributes["lunaRewards"])
	if !ok {
		return
	}
	observability.Contract().RecordDecompound(c.address, lsd.BigInt(), luna.BigInt())
}

func (c *Contract) env(env wrapper.Env) wrapper.Env {
	if env.Contract == "" {
		env.Contract = c.address
	}
	return env
}

// Instantiate creates the wrapper's state.
func (c *Contract) Instantiate(_ context.Context, env wrapper.Env, msg InstantiateMsg) (*wrapper.Response, error) {
	env = c.env(env)
	return c.run("instantiate", func(e *wrapper.Engine) (*wrapper.Response, error) {
		return e.Instantiate(env, wrapper.InstantiateParams{
			Name:               msg.Name,
			Symbol:             msg.Symbol,
			Decimals:           msg.Decimals,
			InitialBalances:    msg.InitialBalances,
			HubContract:        msg.HubContract,
			LSDConfig:          msg.LSDConfig,
			MaxDecompoundRatio: msg.MaxDecompoundRatio,
		})
	})
}

// InstantiateJSON decodes raw into an InstantiateMsg first.
func (c *Contract) InstantiateJSON(ctx context.Context, env wrapper.Env, raw []byte) (*wrapper.Response, error) {
	var msg InstantiateMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, AsError(invalidMsg(err))
	}
	return c.Instantiate(ctx, env, msg)
}

// Migrate replaces the decompound cap and keeps the extraction record.
func (c *Contract) Migrate(_ context.Context, env wrapper.Env, msg MigrateMsg) (*wrapper.Response, error) {
	return c.run("migrate", func(e *wrapper.Engine) (*wrapper.Response, error) {
		return e.Migrate(msg.MaxDecompoundRatio)
	})
}

// Execute dispatches a state-changing message.
func (c *Contract) Execute(ctx context.Context, env wrapper.Env, info wrapper.MessageInfo, raw []byte) (*wrapper.Response, error) {
	var msg ExecuteMsg
	method, err := decode(raw, &msg)
	if err != nil {
		return nil, AsError(err)
	}
	env = c.env(env)
	block := token.Block{Height: env.Height, Time: env.Time}
	return c.run(method, func(e *wrapper.Engine) (*wrapper.Response, error) {
		switch {
		case msg.Mint != nil:
			return e.Mint(ctx, env, info, msg.Mint.Recipient, msg.Mint.Amount)
		case msg.MintWith != nil:
			return e.MintWith(ctx, env, info, msg.MintWith.Recipient, msg.MintWith.LSDAmount)
		case msg.Burn != nil:
			return e.Burn(ctx, env, info, msg.Burn.Amount)
		case msg.BurnAll != nil:
			return e.BurnAll(ctx, env, info)
		case msg.BurnFrom != nil:
			return e.BurnFrom(ctx, env, info, msg.BurnFrom.Owner, msg.BurnFrom.Amount)
		case msg.Decompound != nil:
			return e.Decompound(ctx, env, info, msg.Decompound.Recipient)
		case msg.UpdateDecompoundRate != nil:
			return e.UpdateDecompoundRate(info, msg.UpdateDecompoundRate.MaxDecompoundRatio)
		default:
			return executeLedger(e.Ledger(), env, info, block, msg)
		}
	})
}

func executeLedger(l *token.Ledger, env wrapper.Env, info wrapper.MessageInfo, block token.Block, msg ExecuteMsg) (*wrapper.Response, error) {
	switch {
	case msg.Transfer != nil:
		m := msg.Transfer
		if err := l.Transfer(info.Sender, m.Recipient, m.Amount); err != nil {
			return nil, err
		}
		return respond(nil, "transfer", "from", info.Sender, "to", m.Recipient, "amount", m.Amount.String()), nil
	case msg.TransferFrom != nil:
		m := msg.TransferFrom
		if err := l.TransferFrom(info.Sender, m.Owner, m.Recipient, m.Amount, block); err != nil {
			return nil, err
		}
		return respond(nil, "transfer_from", "from", m.Owner, "to", m.Recipient, "by", info.Sender, "amount", m.Amount.String()), nil
	case msg.Send != nil:
		m := msg.Send
		msgs, err := l.Send(env.Contract, info.Sender, m.Contract, m.Amount, m.Msg)
		if err != nil {
			return nil, err
		}
		resp := respond(nil, "send", "from", info.Sender, "to", m.Contract, "amount", m.Amount.String())
		resp.Messages = msgs
		return resp, nil
	case msg.SendFrom != nil:
		m := msg.SendFrom
		msgs, err := l.SendFrom(env.Contract, info.Sender, m.Owner, m.Contract, m.Amount, m.Msg, block)
		if err != nil {
			return nil, err
		}
		resp := respond(nil, "send_from", "from", m.Owner, "to", m.Contract, "by", info.Sender, "amount", m.Amount.String())
		resp.Messages = msgs
		return resp, nil
	case msg.IncreaseAllowance != nil:
		m := msg.IncreaseAllowance
		if err := l.IncreaseAllowance(info.Sender, m.Spender, m.Amount, m.Expires, block); err != nil {
			return nil, err
		}
		return respond(nil, "increase_allowance", "owner", info.Sender, "spender", m.Spender, "amount", m.Amount.String()), nil
	case msg.DecreaseAllowance != nil:
		m := msg.DecreaseAllowance
		if err := l.DecreaseAllowance(info.Sender, m.Spender, m.Amount, m.Expires, block); err != nil {
			return nil, err
		}
		return respond(nil, "decrease_allowance", "owner", info.Sender, "spender", m.Spender, "amount", m.Amount.String()), nil
	case msg.UpdateMinter != nil:
		if err := l.UpdateMinter(info.Sender, msg.UpdateMinter.NewMinter); err != nil {
			return nil, err
		}
		minter := ""
		if msg.UpdateMinter.NewMinter != nil {
			minter = *msg.UpdateMinter.NewMinter
		}
		return respond(nil, "update_minter", "new_minter", minter), nil
	}
	return nil, invalidMsg(nil)
}

func respond(resp *wrapper.Response, action string, kv ...string) *wrapper.Response {
	if resp == nil {
		resp = &wrapper.Response{}
	}
	resp.Attributes = append(resp.Attributes, wrapper.Attribute{Key: "action", Value: action})
	for i := 0; i+1 < len(kv); i += 2 {
		resp.Attributes = append(resp.Attributes, wrapper.Attribute{Key: kv[i], Value: kv[i+1]})
	}
	return resp
}

// Query answers a read-only message with its JSON response. Nothing a query
// touches is committed.
func (c *Contract) Query(ctx context.Context, env wrapper.Env, raw []byte) ([]byte, error) {
	var msg QueryMsg
	method, err := decode(raw, &msg)
	if err != nil {
		return nil, AsError(err)
	}
	env = c.env(env)

	c.mu.Lock()
	defer c.mu.Unlock()
	start := c.nowFunc()
	cache := storage.NewCache(c.db)
	defer cache.Discard()
	e := c.engine(storage.NewStore(cache), &events.Buffer{})

	out, err := query(ctx, e, env, msg)
	if err == nil {
		var bz []byte
		if bz, err = json.Marshal(out); err == nil {
			observability.Contract().Observe(c.address, method, "", c.nowFunc().Sub(start))
			return bz, nil
		}
	}
	cerr := AsError(err)
	observability.Contract().Observe(c.address, method, cerr.Kind, c.nowFunc().Sub(start))
	return nil, cerr
}

func query(ctx context.Context, e *wrapper.Engine, env wrapper.Env, msg QueryMsg) (interface{}, error) {
	switch {
	case msg.TokenInfo != nil:
		return e.TokenInfo(ctx, env)
	case msg.GetMintAmount != nil:
		amount, err := e.GetMintAmount(ctx, env, msg.GetMintAmount.Amount)
		if err != nil {
			return nil, err
		}
		return MintAmountResponse{MintAmount: amount}, nil
	case msg.GetExpectedExchangeRate != nil:
		rate, err := e.ExpectedExchangeRate(ctx, env)
		if err != nil {
			return nil, err
		}
		return ExpectedExchangeRateResponse{ExpectedExchangeRate: rate}, nil
	case msg.DecompoundState != nil:
		cfg, err := e.DecompoundConfig()
		if err != nil {
			return nil, err
		}
		st, err := e.DecompoundState()
		if err != nil {
			return nil, err
		}
		return DecompoundStateResponse{
			MaxDecompoundRatio: cfg.MaxDecompoundRatio,
			RatioSum:           st.RatioSum,
			TotalSeconds:       st.TotalSeconds,
			LastDecompound:     strconv.FormatInt(st.LastDecompound.UnixNano(), 10),
		}, nil
	case msg.Balance != nil:
		balance, err := e.Ledger().Balance(msg.Balance.Address)
		if err != nil {
			return nil, err
		}
		return BalanceResponse{Balance: balance}, nil
	case msg.Allowance != nil:
		return e.Ledger().Allowance(msg.Allowance.Owner, msg.Allowance.Spender)
	case msg.AllAccounts != nil:
		var limit uint32
		if msg.AllAccounts.Limit != nil {
			limit = *msg.AllAccounts.Limit
		}
		accounts, err := e.Ledger().AllAccounts(msg.AllAccounts.StartAfter, limit)
		if err != nil {
			return nil, err
		}
		return AllAccountsResponse{Accounts: accounts}, nil
	case msg.Minter != nil:
		return e.Ledger().Minter()
	}
	return nil, invalidMsg(nil)
}
