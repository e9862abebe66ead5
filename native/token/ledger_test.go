package token

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cosmossdk.io/math"
	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"

	"cavernlsd/core/events"
	"cavernlsd/host/mockchain"
	"cavernlsd/storage"
)

var (
	minterAddr = mockchain.Contract("wrapper")
	alice      = mockchain.Addr("alice")
	bob        = mockchain.Addr("bob")
	carol      = mockchain.Addr("carol")
)

func newTestLedger(t *testing.T, initial ...Balance) *Ledger {
	t.Helper()
	ledger := NewLedger(storage.NewStore(storage.NewMemDB()), nil)
	info := TokenInfo{Name: "Cavern wrapped bLUNA", Symbol: "wbLUNA", Decimals: 6}
	if err := ledger.Instantiate(info, initial, &Minter{Minter: minterAddr}); err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	return ledger
}

func TestInstantiateRejectsBadInfo(t *testing.T) {
	ledger := NewLedger(storage.NewStore(storage.NewMemDB()), nil)
	cases := []TokenInfo{
		{Name: "ab", Symbol: "ABC", Decimals: 6},
		{Name: "valid name", Symbol: "A1", Decimals: 6},
		{Name: "valid name", Symbol: "ABC", Decimals: 19},
	}
	for _, info := range cases {
		if err := ledger.Instantiate(info, nil, nil); !errors.Is(err, ErrInvalidTokenInfo) {
			t.Fatalf("expected invalid info for %+v, got %v", info, err)
		}
	}
}

func TestMintAndBurnTrackSupply(t *testing.T) {
	ledger := newTestLedger(t, Balance{Address: alice, Amount: math.NewInt(100)})
	buf := &events.Buffer{}
	ledger.SetEmitter(buf)

	if err := ledger.Mint(alice, bob, math.NewInt(5)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-minter mint should fail, got %v", err)
	}
	if err := ledger.Mint(minterAddr, bob, math.ZeroInt()); !errors.Is(err, ErrInvalidZeroAmount) {
		t.Fatalf("zero mint should fail, got %v", err)
	}
	if err := ledger.Mint(minterAddr, bob, math.NewInt(50)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Burn(alice, math.NewInt(30)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if err := ledger.Burn(alice, math.NewInt(71)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("overdraw should fail, got %v", err)
	}

	info, err := ledger.TokenInfo()
	if err != nil {
		t.Fatalf("token info: %v", err)
	}
	if !info.TotalSupply.Equal(math.NewInt(120)) {
		t.Fatalf("unexpected supply %s", info.TotalSupply)
	}
	if got := buf.Events(); len(got) != 2 || got[0].Attributes["reason"] != events.SupplyReasonMint {
		t.Fatalf("unexpected events %+v", got)
	}
}

func TestMintCap(t *testing.T) {
	ledger := NewLedger(storage.NewStore(storage.NewMemDB()), nil)
	capAmount := math.NewInt(10)
	info := TokenInfo{Name: "capped token", Symbol: "CAP", Decimals: 6}
	if err := ledger.Instantiate(info, nil, &Minter{Minter: minterAddr, Cap: &capAmount}); err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if err := ledger.Mint(minterAddr, alice, math.NewInt(10)); err != nil {
		t.Fatalf("mint to cap: %v", err)
	}
	if err := ledger.Mint(minterAddr, alice, math.NewInt(1)); !errors.Is(err, ErrCannotExceedCap) {
		t.Fatalf("expected cap error, got %v", err)
	}
}

func TestAllowanceLifecycle(t *testing.T) {
	ledger := newTestLedger(t, Balance{Address: alice, Amount: math.NewInt(100)})
	block := Block{Height: 10, Time: time.Unix(1_000, 0)}

	if err := ledger.IncreaseAllowance(alice, alice, math.NewInt(1), nil, block); !errors.Is(err, ErrOwnAccount) {
		t.Fatalf("own allowance should fail, got %v", err)
	}
	past := uint64(5)
	if err := ledger.IncreaseAllowance(alice, bob, math.NewInt(1), &Expiration{AtHeight: &past}, block); !errors.Is(err, ErrInvalidExpiration) {
		t.Fatalf("expired expiration should fail, got %v", err)
	}

	expiry := uint64(20)
	if err := ledger.IncreaseAllowance(alice, bob, math.NewInt(40), &Expiration{AtHeight: &expiry}, block); err != nil {
		t.Fatalf("increase: %v", err)
	}
	if err := ledger.TransferFrom(bob, alice, carol, math.NewInt(25), block); err != nil {
		t.Fatalf("transfer_from: %v", err)
	}
	if err := ledger.BurnFrom(bob, alice, math.NewInt(16), block); !errors.Is(err, ErrNoAllowance) {
		t.Fatalf("burn_from over allowance should fail, got %v", err)
	}
	if err := ledger.BurnFrom(bob, alice, math.NewInt(15), block); err != nil {
		t.Fatalf("burn_from: %v", err)
	}
	allowance, err := ledger.Allowance(alice, bob)
	if err != nil || !allowance.Allowance.IsZero() {
		t.Fatalf("allowance should be spent, got %s (%v)", allowance.Allowance, err)
	}

	if err := ledger.IncreaseAllowance(alice, bob, math.NewInt(10), nil, block); err != nil {
		t.Fatalf("increase: %v", err)
	}
	late := Block{Height: 20, Time: block.Time}
	if err := ledger.TransferFrom(bob, alice, carol, math.NewInt(1), late); !errors.Is(err, ErrAllowanceExpired) {
		t.Fatalf("expired allowance should fail, got %v", err)
	}
	if err := ledger.DecreaseAllowance(alice, bob, math.NewInt(100), nil, block); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	allowance, _ = ledger.Allowance(alice, bob)
	if !allowance.Allowance.IsZero() || allowance.Expires.Never == nil {
		t.Fatalf("decrease past zero should delete, got %+v", allowance)
	}

	carolBal, _ := ledger.Balance(carol)
	aliceBal, _ := ledger.Balance(alice)
	if !carolBal.Equal(math.NewInt(25)) || !aliceBal.Equal(math.NewInt(60)) {
		t.Fatalf("unexpected balances alice=%s carol=%s", aliceBal, carolBal)
	}
}

func TestSendBuildsReceiveHook(t *testing.T) {
	ledger := newTestLedger(t, Balance{Address: alice, Amount: math.NewInt(10)})
	target := mockchain.Contract("vault")
	msgs, err := ledger.Send(minterAddr, alice, target, math.NewInt(4), []byte(`{"deposit":{}}`))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	exec := msgs[0].(*wasmtypes.MsgExecuteContract)
	var hook receiveMsg
	if err := json.Unmarshal(exec.Msg, &hook); err != nil {
		t.Fatalf("decode hook: %v", err)
	}
	if exec.Contract != target || hook.Receive.Sender != alice || string(hook.Receive.Msg) != `{"deposit":{}}` {
		t.Fatalf("unexpected hook %+v to %s", hook, exec.Contract)
	}
	if !hook.Receive.Amount.Equal(math.NewInt(4)) {
		t.Fatalf("unexpected hook amount %s", hook.Receive.Amount)
	}
}

func TestAllAccountsPaginates(t *testing.T) {
	ledger := newTestLedger(t,
		Balance{Address: alice, Amount: math.NewInt(1)},
		Balance{Address: bob, Amount: math.NewInt(1)},
		Balance{Address: carol, Amount: math.NewInt(1)},
	)
	first, err := ledger.AllAccounts("", 2)
	if err != nil || len(first) != 2 {
		t.Fatalf("first page: %v %v", first, err)
	}
	rest, err := ledger.AllAccounts(first[1], 2)
	if err != nil || len(rest) != 1 {
		t.Fatalf("second page: %v %v", rest, err)
	}
	if rest[0] <= first[1] {
		t.Fatalf("pages out of order: %v then %v", first, rest)
	}
}

func TestUpdateMinter(t *testing.T) {
	ledger := newTestLedger(t)
	if err := ledger.UpdateMinter(alice, &bob); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-minter update should fail, got %v", err)
	}
	if err := ledger.UpdateMinter(minterAddr, &bob); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := ledger.UpdateMinter(bob, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if m, err := ledger.Minter(); err != nil || m != nil {
		t.Fatalf("minter should be cleared, got %+v %v", m, err)
	}
	if err := ledger.Mint(bob, bob, math.NewInt(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("mint without minter should fail, got %v", err)
	}
}
