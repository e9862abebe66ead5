package token

import (
	"encoding/json"
	"fmt"
	"strings"

	"cosmossdk.io/math"
	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"cavernlsd/core/events"
	"cavernlsd/crypto"
)

const (
	defaultAccountsLimit = 10
	maxAccountsLimit     = 30
)

// Storage is the structured KV access the ledger persists through.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVIterate(prefix []byte, fn func(suffix []byte, decode func(out interface{}) error) bool) error
}

// Ledger implements the fungible token surface of a wrapper: balances,
// supply, the minter and allowances.
type Ledger struct {
	state     Storage
	validator crypto.AddressValidator
	emitter   events.Emitter
}

// NewLedger binds a ledger to state. A nil validator accepts any bech32
// address.
func NewLedger(state Storage, validator crypto.AddressValidator) *Ledger {
	if validator == nil {
		validator = crypto.Bech32Validator{}
	}
	return &Ledger{state: state, validator: validator, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used by the ledger.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// Instantiate writes the token info, initial balances and minter.
func (l *Ledger) Instantiate(info TokenInfo, initial []Balance, minter *Minter) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if err := validateInfo(info); err != nil {
		return err
	}
	total := math.ZeroInt()
	for _, bal := range initial {
		addr, err := l.validator.ValidateAddress(bal.Address)
		if err != nil {
			return err
		}
		if bal.Amount.IsNil() || bal.Amount.IsNegative() {
			return fmt.Errorf("%w: initial balance for %s", ErrInvalidTokenInfo, addr)
		}
		current, err := l.Balance(addr)
		if err != nil {
			return err
		}
		if err := l.putBalance(addr, current.Add(bal.Amount)); err != nil {
			return err
		}
		total = total.Add(bal.Amount)
	}
	if total.BigInt().BitLen() > 128 {
		return ErrAmountOverflow
	}
	if minter != nil {
		addr, err := l.validator.ValidateAddress(minter.Minter)
		if err != nil {
			return err
		}
		stored := storedMinter{Minter: addr}
		if minter.Cap != nil {
			if total.GT(*minter.Cap) {
				return fmt.Errorf("%w: initial supply greater than cap", ErrInvalidTokenInfo)
			}
			stored.Cap = minter.Cap.String()
		}
		if err := l.state.KVPut(minterKey, stored); err != nil {
			return err
		}
	}
	return l.state.KVPut(tokenInfoKey, storedTokenInfo{
		Name:        info.Name,
		Symbol:      info.Symbol,
		Decimals:    info.Decimals,
		TotalSupply: total.String(),
	})
}

func validateInfo(info TokenInfo) error {
	name := strings.TrimSpace(info.Name)
	if len(name) < 3 || len(name) > 50 {
		return fmt.Errorf("%w: name is not in the expected format (3-50 UTF-8 bytes)", ErrInvalidTokenInfo)
	}
	if len(info.Symbol) < 3 || len(info.Symbol) > 12 {
		return fmt.Errorf("%w: ticker symbol is not in expected format [a-zA-Z\\-]{3,12}", ErrInvalidTokenInfo)
	}
	for _, r := range info.Symbol {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '-') {
			return fmt.Errorf("%w: ticker symbol is not in expected format [a-zA-Z\\-]{3,12}", ErrInvalidTokenInfo)
		}
	}
	if info.Decimals > 18 {
		return fmt.Errorf("%w: decimals must not exceed 18", ErrInvalidTokenInfo)
	}
	return nil
}

// TokenInfo returns the stored token metadata and current supply.
func (l *Ledger) TokenInfo() (TokenInfo, error) {
	if l == nil || l.state == nil {
		return TokenInfo{}, errNilState
	}
	var stored storedTokenInfo
	ok, err := l.state.KVGet(tokenInfoKey, &stored)
	if err != nil {
		return TokenInfo{}, err
	}
	if !ok {
		return TokenInfo{}, errNotInstantiated
	}
	supply, err := parseAmount(stored.TotalSupply)
	if err != nil {
		return TokenInfo{}, err
	}
	return TokenInfo{Name: stored.Name, Symbol: stored.Symbol, Decimals: stored.Decimals, TotalSupply: supply}, nil
}

func (l *Ledger) putSupply(info TokenInfo) error {
	return l.state.KVPut(tokenInfoKey, storedTokenInfo{
		Name:        info.Name,
		Symbol:      info.Symbol,
		Decimals:    info.Decimals,
		TotalSupply: info.TotalSupply.String(),
	})
}

// Balance returns addr's balance, zero when it never held the token.
func (l *Ledger) Balance(addr string) (math.Int, error) {
	if l == nil || l.state == nil {
		return math.Int{}, errNilState
	}
	var stored string
	ok, err := l.state.KVGet(balanceKey(addr), &stored)
	if err != nil {
		return math.Int{}, err
	}
	if !ok {
		return math.ZeroInt(), nil
	}
	return parseAmount(stored)
}

func (l *Ledger) putBalance(addr string, amount math.Int) error {
	return l.state.KVPut(balanceKey(addr), amount.String())
}

func (l *Ledger) debit(addr string, amount math.Int) error {
	current, err := l.Balance(addr)
	if err != nil {
		return err
	}
	if current.LT(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, addr, current, amount)
	}
	return l.putBalance(addr, current.Sub(amount))
}

func (l *Ledger) credit(addr string, amount math.Int) error {
	current, err := l.Balance(addr)
	if err != nil {
		return err
	}
	next := current.Add(amount)
	if next.BigInt().BitLen() > 128 {
		return ErrAmountOverflow
	}
	return l.putBalance(addr, next)
}

// Minter returns the configured minter, or nil when minting is disabled.
func (l *Ledger) Minter() (*Minter, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	var stored storedMinter
	ok, err := l.state.KVGet(minterKey, &stored)
	if err != nil || !ok {
		return nil, err
	}
	out := &Minter{Minter: stored.Minter}
	if stored.Cap != "" {
		capAmount, err := parseAmount(stored.Cap)
		if err != nil {
			return nil, err
		}
		out.Cap = &capAmount
	}
	return out, nil
}

// Mint credits recipient. sender must be the minter.
func (l *Ledger) Mint(sender, recipient string, amount math.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	minter, err := l.Minter()
	if err != nil {
		return err
	}
	if minter == nil || minter.Minter != sender {
		return ErrUnauthorized
	}
	recipient, err = l.validator.ValidateAddress(recipient)
	if err != nil {
		return err
	}
	info, err := l.TokenInfo()
	if err != nil {
		return err
	}
	info.TotalSupply = info.TotalSupply.Add(amount)
	if info.TotalSupply.BigInt().BitLen() > 128 {
		return ErrAmountOverflow
	}
	if minter.Cap != nil && info.TotalSupply.GT(*minter.Cap) {
		return ErrCannotExceedCap
	}
	if err := l.putSupply(info); err != nil {
		return err
	}
	if err := l.credit(recipient, amount); err != nil {
		return err
	}
	l.emitter.Emit(events.TokenSupply{
		Token:   info.Symbol,
		Account: recipient,
		Total:   info.TotalSupply,
		Delta:   amount,
		Reason:  events.SupplyReasonMint,
	})
	return nil
}

// Burn destroys amount from owner's balance.
func (l *Ledger) Burn(owner string, amount math.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := l.debit(owner, amount); err != nil {
		return err
	}
	info, err := l.TokenInfo()
	if err != nil {
		return err
	}
	if info.TotalSupply.LT(amount) {
		return fmt.Errorf("%w: supply %s below burn %s", ErrInsufficientFunds, info.TotalSupply, amount)
	}
	info.TotalSupply = info.TotalSupply.Sub(amount)
	if err := l.putSupply(info); err != nil {
		return err
	}
	l.emitter.Emit(events.TokenSupply{
		Token:   info.Symbol,
		Account: owner,
		Total:   info.TotalSupply,
		Delta:   amount,
		Reason:  events.SupplyReasonBurn,
	})
	return nil
}

// BurnFrom burns owner's tokens against spender's allowance.
func (l *Ledger) BurnFrom(spender, owner string, amount math.Int, block Block) error {
	owner, err := l.validator.ValidateAddress(owner)
	if err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := l.deductAllowance(owner, spender, amount, block); err != nil {
		return err
	}
	return l.Burn(owner, amount)
}

// Transfer moves amount from sender to recipient.
func (l *Ledger) Transfer(sender, recipient string, amount math.Int) error {
	return l.transfer(sender, recipient, amount, "")
}

// TransferFrom moves owner's tokens to recipient against spender's allowance.
func (l *Ledger) TransferFrom(spender, owner, recipient string, amount math.Int, block Block) error {
	owner, err := l.validator.ValidateAddress(owner)
	if err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := l.deductAllowance(owner, spender, amount, block); err != nil {
		return err
	}
	return l.transfer(owner, recipient, amount, spender)
}

func (l *Ledger) transfer(from, to string, amount math.Int, spender string) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	to, err := l.validator.ValidateAddress(to)
	if err != nil {
		return err
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	if err := l.credit(to, amount); err != nil {
		return err
	}
	symbol := ""
	if info, err := l.TokenInfo(); err == nil {
		symbol = info.Symbol
	}
	l.emitter.Emit(events.Transfer{Token: symbol, From: from, To: to, Amount: amount, Spender: spender})
	return nil
}

type receiveMsg struct {
	Receive struct {
		Sender string   `json:"sender"`
		Amount math.Int `json:"amount"`
		Msg    []byte   `json:"msg"`
	} `json:"receive"`
}

func receiveHook(self, contract, sender string, amount math.Int, payload []byte) ([]sdk.Msg, error) {
	var hook receiveMsg
	hook.Receive.Sender = sender
	hook.Receive.Amount = amount
	hook.Receive.Msg = payload
	bz, err := json.Marshal(hook)
	if err != nil {
		return nil, err
	}
	return []sdk.Msg{&wasmtypes.MsgExecuteContract{Sender: self, Contract: contract, Msg: bz}}, nil
}

// Send transfers to a contract and returns the receive hook it must run.
func (l *Ledger) Send(self, sender, contract string, amount math.Int, payload []byte) ([]sdk.Msg, error) {
	if err := l.transfer(sender, contract, amount, ""); err != nil {
		return nil, err
	}
	return receiveHook(self, contract, sender, amount, payload)
}

// SendFrom is Send drawing on owner's balance through spender's allowance.
func (l *Ledger) SendFrom(self, spender, owner, contract string, amount math.Int, payload []byte, block Block) ([]sdk.Msg, error) {
	if err := l.TransferFrom(spender, owner, contract, amount, block); err != nil {
		return nil, err
	}
	return receiveHook(self, contract, spender, amount, payload)
}

// UpdateMinter replaces the minter. A nil newMinter disables minting for good.
func (l *Ledger) UpdateMinter(sender string, newMinter *string) error {
	current, err := l.Minter()
	if err != nil {
		return err
	}
	if current == nil || current.Minter != sender {
		return ErrUnauthorized
	}
	if newMinter == nil {
		return l.state.KVDelete(minterKey)
	}
	addr, err := l.validator.ValidateAddress(*newMinter)
	if err != nil {
		return err
	}
	stored := storedMinter{Minter: addr}
	if current.Cap != nil {
		stored.Cap = current.Cap.String()
	}
	return l.state.KVPut(minterKey, stored)
}

// AllAccounts lists holders in address order, after startAfter.
func (l *Ledger) AllAccounts(startAfter string, limit uint32) ([]string, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	n := int(limit)
	if n == 0 {
		n = defaultAccountsLimit
	}
	if n > maxAccountsLimit {
		n = maxAccountsLimit
	}
	accounts := make([]string, 0, n)
	err := l.state.KVIterate(balancePrefix, func(suffix []byte, _ func(interface{}) error) bool {
		addr := string(suffix)
		if startAfter != "" && addr <= startAfter {
			return true
		}
		accounts = append(accounts, addr)
		return len(accounts) < n
	})
	return accounts, err
}
