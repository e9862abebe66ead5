package contract

import (
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"

	"cavernlsd/native/lsdhub"
	"cavernlsd/native/token"
)

// InstantiateMsg creates a wrapper around one LSD hub.
type InstantiateMsg struct {
	Name               string          `json:"name"`
	Symbol             string          `json:"symbol"`
	Decimals           uint8           `json:"decimals"`
	InitialBalances    []token.Balance `json:"initial_balances"`
	HubContract        string          `json:"hub_contract"`
	LSDConfig          lsdhub.Config   `json:"lsd_config"`
	MaxDecompoundRatio *math.LegacyDec `json:"max_decompound_ratio,omitempty"`
}

// MigrateMsg replaces the decompound cap. Omitting the ratio lifts it.
type MigrateMsg struct {
	MaxDecompoundRatio *math.LegacyDec `json:"max_decompound_ratio,omitempty"`
}

type MintMsg struct {
	Recipient string   `json:"recipient"`
	Amount    math.Int `json:"amount"`
}

type MintWithMsg struct {
	Recipient string   `json:"recipient"`
	LSDAmount math.Int `json:"lsd_amount"`
}

type BurnMsg struct {
	Amount math.Int `json:"amount"`
}

type BurnFromMsg struct {
	Owner  string   `json:"owner"`
	Amount math.Int `json:"amount"`
}

type DecompoundMsg struct {
	Recipient *string `json:"recipient,omitempty"`
}

type UpdateDecompoundRateMsg struct {
	MaxDecompoundRatio *math.LegacyDec `json:"max_decompound_ratio,omitempty"`
}

type TransferMsg struct {
	Recipient string   `json:"recipient"`
	Amount    math.Int `json:"amount"`
}

type TransferFromMsg struct {
	Owner     string   `json:"owner"`
	Recipient string   `json:"recipient"`
	Amount    math.Int `json:"amount"`
}

type SendMsg struct {
	Contract string   `json:"contract"`
	Amount   math.Int `json:"amount"`
	Msg      []byte   `json:"msg"`
}

type SendFromMsg struct {
	Owner    string   `json:"owner"`
	Contract string   `json:"contract"`
	Amount   math.Int `json:"amount"`
	Msg      []byte   `json:"msg"`
}

type AllowanceMsg struct {
	Spender string            `json:"spender"`
	Amount  math.Int          `json:"amount"`
	Expires *token.Expiration `json:"expires,omitempty"`
}

type UpdateMinterMsg struct {
	NewMinter *string `json:"new_minter"`
}

// ExecuteMsg is a tagged union: exactly one field must be set.
type ExecuteMsg struct {
	Mint                 *MintMsg                 `json:"mint,omitempty"`
	MintWith             *MintWithMsg             `json:"mint_with,omitempty"`
	Burn                 *BurnMsg                 `json:"burn,omitempty"`
	BurnAll              *struct{}                `json:"burn_all,omitempty"`
	BurnFrom             *BurnFromMsg             `json:"burn_from,omitempty"`
	Decompound           *DecompoundMsg           `json:"decompound,omitempty"`
	UpdateDecompoundRate *UpdateDecompoundRateMsg `json:"update_decompound_rate,omitempty"`
	Transfer             *TransferMsg             `json:"transfer,omitempty"`
	TransferFrom         *TransferFromMsg         `json:"transfer_from,omitempty"`
	Send                 *SendMsg                 `json:"send,omitempty"`
	SendFrom             *SendFromMsg             `json:"send_from,omitempty"`
	IncreaseAllowance    *AllowanceMsg            `json:"increase_allowance,omitempty"`
	DecreaseAllowance    *AllowanceMsg            `json:"decrease_allowance,omitempty"`
	UpdateMinter         *UpdateMinterMsg         `json:"update_minter,omitempty"`
}

// Method names the variant that is set, or "" when the union is malformed.
func (m ExecuteMsg) Method() string {
	return variant(map[string]bool{
		"mint":                   m.Mint != nil,
		"mint_with":              m.MintWith != nil,
		"burn":                   m.Burn != nil,
		"burn_all":               m.BurnAll != nil,
		"burn_from":              m.BurnFrom != nil,
		"decompound":             m.Decompound != nil,
		"update_decompound_rate": m.UpdateDecompoundRate != nil,
		"transfer":               m.Transfer != nil,
		"transfer_from":          m.TransferFrom != nil,
		"send":                   m.Send != nil,
		"send_from":              m.SendFrom != nil,
		"increase_allowance":     m.IncreaseAllowance != nil,
		"decrease_allowance":     m.DecreaseAllowance != nil,
		"update_minter":          m.UpdateMinter != nil,
	})
}

type BalanceQuery struct {
	Address string `json:"address"`
}

type AllowanceQuery struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

type AllAccountsQuery struct {
	StartAfter string  `json:"start_after,omitempty"`
	Limit      *uint32 `json:"limit,omitempty"`
}

type GetMintAmountQuery struct {
	Amount math.Int `json:"amount"`
}

// QueryMsg is a tagged union: exactly one field must be set.
type QueryMsg struct {
	TokenInfo               *struct{}           `json:"token_info,omitempty"`
	GetMintAmount           *GetMintAmountQuery `json:"get_mint_amount,omitempty"`
	GetExpectedExchangeRate *struct{}           `json:"get_expected_exchange_rate,omitempty"`
	DecompoundState         *struct{}           `json:"decompound_state,omitempty"`
	Balance                 *BalanceQuery       `json:"balance,omitempty"`
	Allowance               *AllowanceQuery     `json:"allowance,omitempty"`
	AllAccounts             *AllAccountsQuery   `json:"all_accounts,omitempty"`
	Minter                  *struct{}           `json:"minter,omitempty"`
}

// Method names the variant that is set, or "" when the union is malformed.
func (m QueryMsg) Method() string {
	return variant(map[string]bool{
		"token_info":                 m.TokenInfo != nil,
		"get_mint_amount":            m.GetMintAmount != nil,
		"get_expected_exchange_rate": m.GetExpectedExchangeRate != nil,
		"decompound_state":           m.DecompoundState != nil,
		"balance":                    m.Balance != nil,
		"allowance":                  m.Allowance != nil,
		"all_accounts":               m.AllAccounts != nil,
		"minter":                     m.Minter != nil,
	})
}

func variant(set map[string]bool) string {
	found := ""
	for name, ok := range set {
		if !ok {
			continue
		}
		if found != "" {
			return ""
		}
		found = name
	}
	return found
}

func decode(raw []byte, out interface{ Method() string }) (string, error) {
	if err := json.Unmarshal(raw, out); err != nil {
		return "", invalidMsg(err)
	}
	method := out.Method()
	if method == "" {
		return "", fmt.Errorf("%w: exactly one variant must be set", ErrInvalidMsg)
	}
	return method, nil
}

type MintAmountResponse struct {
	MintAmount math.Int `json:"mint_amount"`
}

type ExpectedExchangeRateResponse struct {
	ExpectedExchangeRate math.LegacyDec `json:"expected_exchange_rate"`
}

type DecompoundStateResponse struct {
	MaxDecompoundRatio *math.LegacyDec `json:"max_decompound_ratio"`
	RatioSum           math.LegacyDec  `json:"ratio_sum"`
	TotalSeconds       uint64          `json:"total_seconds"`
	LastDecompound     string          `json:"last_decompound"` // unix nanoseconds
}

type BalanceResponse struct {
	Balance math.Int `json:"balance"`
}

type AllAccountsResponse struct {
	Accounts []string `json:"accounts"`
}
