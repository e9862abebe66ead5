package token

import (
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/math"
)

var (
	errNilState          = errors.New("token ledger: state not configured")
	errNotInstantiated   = errors.New("token ledger: token info missing")
	ErrInvalidZeroAmount = errors.New("token ledger: invalid zero amount")
	ErrInsufficientFunds = errors.New("token ledger: insufficient funds")
	ErrUnauthorized      = errors.New("token ledger: unauthorized")
	ErrCannotExceedCap   = errors.New("token ledger: minting cannot exceed the cap")
	ErrNoAllowance       = errors.New("token ledger: no allowance for this account")
	ErrAllowanceExpired  = errors.New("token ledger: allowance is expired")
	ErrInvalidExpiration = errors.New("token ledger: invalid expiration value")
	ErrOwnAccount        = errors.New("token ledger: cannot set allowance on own account")
	ErrInvalidTokenInfo  = errors.New("token ledger: invalid token info")
	ErrAmountOverflow    = errors.New("token ledger: amount exceeds 128 bits")
)

// TokenInfo describes the wrapper token.
type TokenInfo struct {
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	Decimals    uint8    `json:"decimals"`
	TotalSupply math.Int `json:"total_supply"`
}

// Minter is the account allowed to mint, with an optional supply cap.
type Minter struct {
	Minter string    `json:"minter"`
	Cap    *math.Int `json:"cap,omitempty"`
}

// Balance is an initial allocation.
type Balance struct {
	Address string   `json:"address"`
	Amount  math.Int `json:"amount"`
}

// Block is the slice of the host block an allowance expiration is checked
// against.
type Block struct {
	Height uint64
	Time   time.Time
}

// Expiration bounds an allowance by height or time. The zero value never
// expires.
type Expiration struct {
	AtHeight *uint64   `json:"at_height,omitempty"`
	AtTime   *uint64   `json:"at_time,string,omitempty"` // unix nanoseconds
	Never    *struct{} `json:"never,omitempty"`
}

// IsExpired reports whether the expiration has been reached at block.
func (e Expiration) IsExpired(block Block) bool {
	switch {
	case e.AtHeight != nil:
		return block.Height >= *e.AtHeight
	case e.AtTime != nil:
		return uint64(block.Time.UnixNano()) >= *e.AtTime
	default:
		return false
	}
}

func (e Expiration) String() string {
	switch {
	case e.AtHeight != nil:
		return fmt.Sprintf("expiration height: %d", *e.AtHeight)
	case e.AtTime != nil:
		return fmt.Sprintf("expiration time: %d", *e.AtTime)
	default:
		return "expiration: never"
	}
}

// Allowance is what spender may move out of owner's balance.
type Allowance struct {
	Allowance math.Int   `json:"allowance"`
	Expires   Expiration `json:"expires"`
}

const (
	expiresNever uint8 = iota
	expiresAtHeight
	expiresAtTime
)

type storedTokenInfo struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply string
}

type storedMinter struct {
	Minter string
	Cap    string
}

type storedAllowance struct {
	Amount       string
	ExpiresKind  uint8
	ExpiresValue uint64
}

func newStoredAllowance(a Allowance) storedAllowance {
	out := storedAllowance{Amount: a.Allowance.String()}
	switch {
	case a.Expires.AtHeight != nil:
		out.ExpiresKind, out.ExpiresValue = expiresAtHeight, *a.Expires.AtHeight
	case a.Expires.AtTime != nil:
		out.ExpiresKind, out.ExpiresValue = expiresAtTime, *a.Expires.AtTime
	}
	return out
}

func (s storedAllowance) toAllowance() (Allowance, error) {
	amount, err := parseAmount(s.Amount)
	if err != nil {
		return Allowance{}, err
	}
	out := Allowance{Allowance: amount}
	value := s.ExpiresValue
	switch s.ExpiresKind {
	case expiresAtHeight:
		out.Expires.AtHeight = &value
	case expiresAtTime:
		out.Expires.AtTime = &value
	default:
		out.Expires.Never = &struct{}{}
	}
	return out, nil
}

func parseAmount(s string) (math.Int, error) {
	if s == "" {
		return math.ZeroInt(), nil
	}
	v, ok := math.NewIntFromString(s)
	if !ok {
		return math.Int{}, fmt.Errorf("token ledger: invalid stored amount %q", s)
	}
	return v, nil
}

func checkAmount(amount math.Int) error {
	if amount.IsNil() || amount.IsZero() {
		return ErrInvalidZeroAmount
	}
	if amount.IsNegative() {
		return fmt.Errorf("token ledger: negative amount %s", amount)
	}
	if amount.BigInt().BitLen() > 128 {
		return ErrAmountOverflow
	}
	return nil
}
