package wrapper

import (
	"context"
	"fmt"
	"log/slog"

	"cosmossdk.io/math"

	"cavernlsd/core/events"
	"cavernlsd/crypto"
	"cavernlsd/native/lsdhub"
	"cavernlsd/native/token"
)

type engineState interface {
	token.Storage
}

// Engine runs the wrapper's state transitions against a KV state and reads
// the LSD hub through a Querier. It holds no state of its own between calls.
type Engine struct {
	state     engineState
	querier   lsdhub.Querier
	validator crypto.AddressValidator
	emitter   events.Emitter
	logger    *slog.Logger
}

// NewEngine constructs a wrapper engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		validator: crypto.Bech32Validator{},
		emitter:   events.NoopEmitter{},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetQuerier configures the chain view used to reach the LSD hub.
func (e *Engine) SetQuerier(q lsdhub.Querier) { e.querier = q }

// SetValidator configures address validation.
func (e *Engine) SetValidator(v crypto.AddressValidator) {
	if v == nil {
		e.validator = crypto.Bech32Validator{}
		return
	}
	e.validator = v
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger configures the structured logger. Nil restores slog.Default.
func (e *Engine) SetLogger(logger *slog.Logger) { e.logger = logger }

func (e *Engine) log() *slog.Logger {
	if e.logger == nil {
		return slog.Default()
	}
	return e.logger
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

// ledger binds the token ledger to the engine's current state.
func (e *Engine) ledger() *token.Ledger {
	l := token.NewLedger(e.state, e.validator)
	l.SetEmitter(e.emitter)
	return l
}

// Ledger exposes the wrapper token ledger for the plain token operations.
func (e *Engine) Ledger() *token.Ledger { return e.ledger() }

// Instantiate stores the hub identity, the adapter config and the cap, opens
// the extraction record at env.Time and creates the token with this
// contract as its only minter.
func (e *Engine) Instantiate(env Env, params InstantiateParams) (*Response, error) {
	if e.state == nil {
		return nil, errNilState
	}
	var existing string
	if ok, err := e.state.KVGet(hubContractKey, &existing); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyInstantiated
	}
	hubContract, err := e.validator.ValidateAddress(params.HubContract)
	if err != nil {
		return nil, fmt.Errorf("hub_contract: %w", err)
	}
	if _, err := params.LSDConfig.Build(e.validator); err != nil {
		return nil, err
	}
	if err := validateRatio(params.MaxDecompoundRatio); err != nil {
		return nil, err
	}
	if err := e.storeLSDConfig(params.LSDConfig); err != nil {
		return nil, err
	}
	if err := e.state.KVPut(hubContractKey, hubContract); err != nil {
		return nil, err
	}
	if err := e.storeDecompoundConfig(DecompoundConfig{MaxDecompoundRatio: params.MaxDecompoundRatio}); err != nil {
		return nil, err
	}
	if err := e.storeDecompoundState(DecompoundState{
		RatioSum:       math.LegacyZeroDec(),
		LastDecompound: env.Time,
	}); err != nil {
		return nil, err
	}
	info := token.TokenInfo{Name: params.Name, Symbol: params.Symbol, Decimals: params.Decimals}
	if err := e.ledger().Instantiate(info, params.InitialBalances, &token.Minter{Minter: env.Contract}); err != nil {
		return nil, err
	}
	e.log().Info("wrapper instantiated",
		slog.String("wrapper", env.Contract),
		slog.String("symbol", params.Symbol),
		slog.String("hub", hubContract),
		slog.String("lsd_kind", string(params.LSDConfig.Kind())))
	resp := &Response{}
	resp.addAttribute("action", "instantiate")
	return resp, nil
}

// TokenInfo returns the token metadata together with the current, expected
// and LSD rates.
func (e *Engine) TokenInfo(ctx context.Context, env Env) (TokenInfo, error) {
	if e.state == nil {
		return TokenInfo{}, errNilState
	}
	info, err := e.ledger().TokenInfo()
	if err != nil {
		return TokenInfo{}, err
	}
	current, ws, err := e.CurrentExchangeRate(ctx, env)
	if err != nil {
		return TokenInfo{}, err
	}
	cfg, err := e.DecompoundConfig()
	if err != nil {
		return TokenInfo{}, err
	}
	st, err := e.DecompoundState()
	if err != nil {
		return TokenInfo{}, err
	}
	lsdRate, err := LSDWrapperRate(ws.WrapperSupply, ws.LSDBalance)
	if err != nil {
		return TokenInfo{}, err
	}
	return TokenInfo{
		Name:                 info.Name,
		Symbol:               info.Symbol,
		Decimals:             info.Decimals,
		TotalSupply:          info.TotalSupply,
		ExchangeRate:         current,
		ExpectedExchangeRate: ExpectedRate(current, cfg, st, env.Time),
		MaxDecompoundRatio:   cfg.MaxDecompoundRatio,
		LSDExchangeRate:      lsdRate,
	}, nil
}
