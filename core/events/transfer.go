package events

import (
	"strings"

	"cosmossdk.io/math"

	"cavernlsd/core/types"
)

const (
	// TypeTransfer is emitted for ledger balance movements between accounts.
	TypeTransfer = "token.transfer"
)

type Transfer struct {
	Token  string
	From   string
	To     string
	Amount math.Int
	// Spender is set when the movement consumed an allowance.
	Spender string
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{}
	if token := normalizeAsset(e.Token); token != "" {
		attrs["token"] = token
	}
	attrs["from"] = strings.TrimSpace(e.From)
	attrs["to"] = strings.TrimSpace(e.To)
	attrs["amount"] = formatAmount(e.Amount)
	if spender := strings.TrimSpace(e.Spender); spender != "" {
		attrs["spender"] = spender
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}
