package token

import (
	"fmt"

	"cosmossdk.io/math"
)

// Allowance returns what spender may draw from owner. Missing allowances
// read as zero with no expiration.
func (l *Ledger) Allowance(owner, spender string) (Allowance, error) {
	if l == nil || l.state == nil {
		return Allowance{}, errNilState
	}
	var stored storedAllowance
	ok, err := l.state.KVGet(allowanceKey(owner, spender), &stored)
	if err != nil {
		return Allowance{}, err
	}
	if !ok {
		return Allowance{Allowance: math.ZeroInt(), Expires: Expiration{Never: &struct{}{}}}, nil
	}
	return stored.toAllowance()
}

func (l *Ledger) putAllowance(owner, spender string, allowance Allowance) error {
	return l.state.KVPut(allowanceKey(owner, spender), newStoredAllowance(allowance))
}

// IncreaseAllowance raises spender's allowance over owner's balance and
// optionally replaces its expiration.
func (l *Ledger) IncreaseAllowance(owner, spender string, amount math.Int, expires *Expiration, block Block) error {
	spender, err := l.validator.ValidateAddress(spender)
	if err != nil {
		return err
	}
	if spender == owner {
		return ErrOwnAccount
	}
	if amount.IsNil() || amount.IsNegative() {
		return fmt.Errorf("token ledger: invalid allowance amount")
	}
	current, err := l.Allowance(owner, spender)
	if err != nil {
		return err
	}
	if expires != nil {
		if expires.IsExpired(block) {
			return ErrInvalidExpiration
		}
		current.Expires = *expires
	}
	current.Allowance = current.Allowance.Add(amount)
	if current.Allowance.BigInt().BitLen() > 128 {
		return ErrAmountOverflow
	}
	return l.putAllowance(owner, spender, current)
}

// DecreaseAllowance lowers spender's allowance, deleting it once it reaches
// zero.
func (l *Ledger) DecreaseAllowance(owner, spender string, amount math.Int, expires *Expiration, block Block) error {
	spender, err := l.validator.ValidateAddress(spender)
	if err != nil {
		return err
	}
	if spender == owner {
		return ErrOwnAccount
	}
	if amount.IsNil() || amount.IsNegative() {
		return fmt.Errorf("token ledger: invalid allowance amount")
	}
	current, err := l.Allowance(owner, spender)
	if err != nil {
		return err
	}
	if amount.GTE(current.Allowance) {
		return l.state.KVDelete(allowanceKey(owner, spender))
	}
	if expires != nil {
		if expires.IsExpired(block) {
			return ErrInvalidExpiration
		}
		current.Expires = *expires
	}
	current.Allowance = current.Allowance.Sub(amount)
	return l.putAllowance(owner, spender, current)
}

func (l *Ledger) deductAllowance(owner, spender string, amount math.Int, block Block) error {
	current, err := l.Allowance(owner, spender)
	if err != nil {
		return err
	}
	if current.Expires.IsExpired(block) {
		return ErrAllowanceExpired
	}
	if current.Allowance.LT(amount) {
		return fmt.Errorf("%w: %s allowed, %s requested", ErrNoAllowance, current.Allowance, amount)
	}
	current.Allowance = current.Allowance.Sub(amount)
	return l.putAllowance(owner, spender, current)
}
