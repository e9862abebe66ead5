package events

import (
	"strings"

	"cosmossdk.io/math"

	"cavernlsd/core/types"
)

const (
	// TypeTokenSupply is emitted whenever a wrapper token's supply changes.
	TypeTokenSupply = "token.supply"

	// SupplyReasonMint identifies mint driven supply increases.
	SupplyReasonMint = "mint"
	// SupplyReasonBurn identifies burn driven supply decreases.
	SupplyReasonBurn = "burn"
)

// TokenSupply captures a supply delta for a ledger token.
type TokenSupply struct {
	Token   string
	Account string
	Total   math.Int
	Delta   math.Int
	Reason  string
}

func (TokenSupply) EventType() string { return TypeTokenSupply }

// Event renders the structured supply change event for downstream consumers.
func (e TokenSupply) Event() *types.Event {
	attrs := map[string]string{}
	token := normalizeAsset(e.Token)
	if token == "" {
		token = "UNKNOWN"
	}
	attrs["token"] = token
	attrs["total"] = formatAmount(e.Total)
	if !e.Delta.IsNil() {
		attrs["delta"] = e.Delta.String()
	}
	if account := strings.TrimSpace(e.Account); account != "" {
		attrs["account"] = account
	}
	if reason := strings.TrimSpace(e.Reason); reason != "" {
		attrs["reason"] = reason
	}
	return &types.Event{Type: TypeTokenSupply, Attributes: attrs}
}
