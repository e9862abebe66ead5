package mockchain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cosmossdk.io/math"
	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
)

func TestQueriesAnswerFromState(t *testing.T) {
	ctx := context.Background()
	chain := New(time.Unix(1_700_000_000, 0))
	token, hub, holder := Contract("token"), Contract("hub"), Addr("holder")
	chain.SetTokenBalance(token, holder, math.NewInt(42))
	chain.SetHubRate(hub, math.LegacyMustNewDecFromStr("1.25"))

	var bal struct {
		Balance math.Int `json:"balance"`
	}
	if err := chain.QuerySmart(ctx, token, map[string]any{"balance": map[string]string{"address": holder}}, &bal); err != nil {
		t.Fatalf("balance query: %v", err)
	}
	if !bal.Balance.Equal(math.NewInt(42)) {
		t.Fatalf("unexpected balance %s", bal.Balance)
	}

	var state struct {
		ExchangeRate math.LegacyDec `json:"exchange_rate"`
	}
	if err := chain.QuerySmart(ctx, hub, map[string]any{"state": struct{}{}}, &state); err != nil {
		t.Fatalf("state query: %v", err)
	}
	if !state.ExchangeRate.Equal(math.LegacyMustNewDecFromStr("1.25")) {
		t.Fatalf("unexpected rate %s", state.ExchangeRate)
	}

	boom := errors.New("node down")
	chain.FailQueries(hub, boom)
	if err := chain.QuerySmart(ctx, hub, map[string]any{"state": struct{}{}}, &state); !errors.Is(err, boom) {
		t.Fatalf("expected forced failure, got %v", err)
	}
}

func TestExecuteMovesBalances(t *testing.T) {
	ctx := context.Background()
	chain := New(time.Unix(0, 0))
	token, alice, bob := Contract("token"), Addr("alice"), Addr("bob")
	chain.SetTokenBalance(token, alice, math.NewInt(100))
	chain.SetBankBalance(alice, "ustride", math.NewInt(10))

	transfer, _ := json.Marshal(map[string]any{"transfer_from": map[string]any{
		"owner": alice, "recipient": bob, "amount": "60",
	}})
	msgs := []sdk.Msg{
		&wasmtypes.MsgExecuteContract{Sender: bob, Contract: token, Msg: transfer},
		&banktypes.MsgSend{FromAddress: alice, ToAddress: bob, Amount: sdk.NewCoins(sdk.NewInt64Coin("ustride", 4))},
	}
	if err := chain.Execute(ctx, msgs); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := chain.TokenBalance(token, bob); !got.Equal(math.NewInt(60)) {
		t.Fatalf("unexpected token balance %s", got)
	}
	if got := chain.BankBalance(bob, "ustride"); !got.Equal(math.NewInt(4)) {
		t.Fatalf("unexpected bank balance %s", got)
	}

	overdraw, _ := json.Marshal(map[string]any{"transfer": map[string]any{"recipient": alice, "amount": "61"}})
	err := chain.Execute(ctx, []sdk.Msg{&wasmtypes.MsgExecuteContract{Sender: bob, Contract: token, Msg: overdraw}})
	if !errors.Is(err, ErrInsufficient) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestAdvance(t *testing.T) {
	chain := New(time.Unix(100, 0))
	chain.Advance(time.Hour)
	if chain.Height() != 2 || !chain.Now().Equal(time.Unix(3700, 0)) {
		t.Fatalf("unexpected block %d at %s", chain.Height(), chain.Now())
	}
}
