package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"cosmossdk.io/math"

	"cavernlsd/host/mockchain"
	"cavernlsd/native/token"
	"cavernlsd/native/wrapper"
	"cavernlsd/storage"
)

var genesis = time.Unix(1_700_000_000, 0).UTC()

type harness struct {
	t        *testing.T
	ctx      context.Context
	chain    *mockchain.Chain
	db       *storage.MemDB
	contract *Contract
	hub      string
	lsdHub   string
	token    string
	user     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		ctx:    context.Background(),
		chain:  mockchain.New(genesis),
		db:     storage.NewMemDB(),
		hub:    mockchain.Contract("cavern-hub"),
		lsdHub: mockchain.Contract("amp-hub"),
		token:  mockchain.Contract("amp-token"),
		user:   mockchain.Addr("alice"),
	}
	h.chain.SetHubRate(h.lsdHub, math.LegacyOneDec())
	h.chain.SetTokenBalance(h.token, h.user, math.NewInt(5_000_000))
	h.contract = New(mockchain.Contract("wrapper"), h.db, h.chain)
	return h
}

func (h *harness) env() wrapper.Env {
	return wrapper.Env{Height: h.chain.Height(), Time: h.chain.Now()}
}

func (h *harness) instantiateMsg(ratio string) string {
	capField := ""
	if ratio != "" {
		capField = fmt.Sprintf(`,"max_decompound_ratio":%q`, ratio)
	}
	return fmt.Sprintf(`{"name":"Cavern ampLUNA","symbol":"campLUNA","decimals":6,"initial_balances":[],`+
		`"hub_contract":%q,"lsd_config":{"lp":{"hub":%q,"token":%q}}%s}`, h.hub, h.lsdHub, h.token, capField)
}

func (h *harness) instantiate(ratio string) {
	h.t.Helper()
	if _, err := h.contract.InstantiateJSON(h.ctx, h.env(), []byte(h.instantiateMsg(ratio))); err != nil {
		h.t.Fatalf("instantiate: %v", err)
	}
}

func (h *harness) execute(sender, msg string) (*wrapper.Response, error) {
	resp, err := h.contract.Execute(h.ctx, h.env(), wrapper.MessageInfo{Sender: sender}, []byte(msg))
	if err != nil {
		return nil, err
	}
	if err := h.chain.Execute(h.ctx, resp.Messages); err != nil {
		h.t.Fatalf("execute messages: %v", err)
	}
	return resp, nil
}

func (h *harness) mustExecute(sender, msg string) *wrapper.Response {
	h.t.Helper()
	resp, err := h.execute(sender, msg)
	if err != nil {
		h.t.Fatalf("execute %s: %v", msg, err)
	}
	return resp
}

func (h *harness) query(msg string, out interface{}) {
	h.t.Helper()
	bz, err := h.contract.Query(h.ctx, h.env(), []byte(msg))
	if err != nil {
		h.t.Fatalf("query %s: %v", msg, err)
	}
	if err := json.Unmarshal(bz, out); err != nil {
		h.t.Fatalf("decode %s: %v", bz, err)
	}
}

func TestInstantiateOnlyOnce(t *testing.T) {
	h := newHarness(t)
	h.instantiate("0.1")
	_, err := h.contract.InstantiateJSON(h.ctx, h.env(), []byte(h.instantiateMsg("")))
	if !errors.Is(err, wrapper.ErrAlreadyInstantiated) {
		t.Fatalf("expected already instantiated, got %v", err)
	}
	if kind := AsError(err).Kind; kind != "already_instantiated" {
		t.Fatalf("unexpected kind %s", kind)
	}
}

func TestFailedInstantiateRollsBack(t *testing.T) {
	h := newHarness(t)
	bad := fmt.Sprintf(`{"name":"x","symbol":"campLUNA","decimals":6,"hub_contract":%q,"lsd_config":{"lp":{"hub":%q,"token":%q}}}`,
		h.hub, h.lsdHub, h.token)
	_, err := h.contract.InstantiateJSON(h.ctx, h.env(), []byte(bad))
	if !errors.Is(err, token.ErrInvalidTokenInfo) {
		t.Fatalf("expected invalid token info, got %v", err)
	}
	var keys int
	_ = h.db.Iterate(nil, func(_, _ []byte) bool { keys++; return true })
	if keys != 0 {
		t.Fatalf("failed instantiate left %d keys behind", keys)
	}
	h.instantiate("")
}

func TestMintDecompoundAndQueries(t *testing.T) {
	h := newHarness(t)
	h.instantiate("0.1")

	resp := h.mustExecute(h.user, `{"mint_with":{"recipient":"`+h.user+`","lsd_amount":"1000000"}}`)
	if amount, _ := resp.Attribute("amount"); amount != "1000000" {
		t.Fatalf("unexpected mint amount %s", amount)
	}

	var balance BalanceResponse
	h.query(`{"balance":{"address":"`+h.user+`"}}`, &balance)
	if !balance.Balance.Equal(math.NewInt(1_000_000)) {
		t.Fatalf("unexpected balance %s", balance.Balance)
	}

	h.chain.SetHubRate(h.lsdHub, math.LegacyNewDec(4))
	h.chain.Advance(24 * time.Hour)

	var expected ExpectedExchangeRateResponse
	h.query(`{"get_expected_exchange_rate":{}}`, &expected)
	if want := math.LegacyMustNewDecFromStr("3.999726027397260274"); !expected.ExpectedExchangeRate.Equal(want) {
		t.Fatalf("expected rate %s, got %s", want, expected.ExpectedExchangeRate)
	}

	resp = h.mustExecute(h.hub, `{"decompound":{}}`)
	if got, _ := resp.Attribute("lsd_rewards"); got != "272" {
		t.Fatalf("expected 272 lsd extracted, got %s", got)
	}
	var sawEvent bool
	for _, evt := range resp.Events {
		if evt.Type == wrapper.TypeDecompounded && evt.Attributes["lsdRewards"] == "272" {
			sawEvent = true
		}
	}
	if !sawEvent {
		t.Fatalf("decompound event missing from %+v", resp.Events)
	}

	var st DecompoundStateResponse
	h.query(`{"decompound_state":{}}`, &st)
	if st.TotalSeconds != 86400 || st.RatioSum.String() != "0.000272750000000000" {
		t.Fatalf("unexpected decompound state %+v", st)
	}
	if st.LastDecompound != fmt.Sprint(h.chain.Now().UnixNano()) {
		t.Fatalf("unexpected last decompound %s", st.LastDecompound)
	}

	_, err := h.execute(h.hub, `{"decompound":{}}`)
	if !errors.Is(err, wrapper.ErrTooSoon) || AsError(err).Kind != "too_soon" {
		t.Fatalf("expected too soon, got %v", err)
	}

	var info wrapper.TokenInfo
	h.query(`{"token_info":{}}`, &info)
	if info.Symbol != "campLUNA" || !info.TotalSupply.Equal(math.NewInt(1_000_000)) {
		t.Fatalf("unexpected token info %+v", info)
	}
	if info.MaxDecompoundRatio == nil || info.MaxDecompoundRatio.String() != "0.100000000000000000" {
		t.Fatalf("unexpected ratio %+v", info.MaxDecompoundRatio)
	}

	var mint MintAmountResponse
	h.query(`{"get_mint_amount":{"amount":"100000"}}`, &mint)
	if !mint.MintAmount.Equal(math.NewInt(100_027)) {
		t.Fatalf("unexpected mint amount %s", mint.MintAmount)
	}
}

func TestLedgerMessages(t *testing.T) {
	h := newHarness(t)
	h.instantiate("")
	h.mustExecute(h.user, `{"mint_with":{"recipient":"`+h.user+`","lsd_amount":"1000"}}`)

	bob := mockchain.Addr("bob")
	h.mustExecute(h.user, `{"transfer":{"recipient":"`+bob+`","amount":"100"}}`)
	h.mustExecute(h.user, `{"increase_allowance":{"spender":"`+bob+`","amount":"50"}}`)

	var allowance token.Allowance
	h.query(`{"allowance":{"owner":"`+h.user+`","spender":"`+bob+`"}}`, &allowance)
	if !allowance.Allowance.Equal(math.NewInt(50)) {
		t.Fatalf("unexpected allowance %s", allowance.Allowance)
	}

	h.mustExecute(bob, `{"burn_from":{"owner":"`+h.user+`","amount":"50"}}`)
	if got := h.chain.TokenBalance(h.token, bob); !got.Equal(math.NewInt(50)) {
		t.Fatalf("bob should hold 50 lsd, got %s", got)
	}

	_, err := h.execute(bob, `{"burn_from":{"owner":"`+h.user+`","amount":"1"}}`)
	if AsError(err).Kind != "allowance" {
		t.Fatalf("expected allowance error, got %v", err)
	}

	var accounts AllAccountsResponse
	h.query(`{"all_accounts":{}}`, &accounts)
	if len(accounts.Accounts) != 2 {
		t.Fatalf("expected two holders, got %v", accounts.Accounts)
	}

	var minter token.Minter
	h.query(`{"minter":{}}`, &minter)
	if minter.Minter != h.contract.Address() {
		t.Fatalf("wrapper should be the minter, got %s", minter.Minter)
	}
	_, err = h.execute(h.user, `{"update_minter":{"new_minter":"`+bob+`"}}`)
	if !errors.Is(err, token.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestMalformedMessages(t *testing.T) {
	h := newHarness(t)
	h.instantiate("")
	for _, raw := range []string{
		`{}`,
		`{"unknown":{}}`,
		`{"burn":{"amount":"1"},"burn_all":{}}`,
		`not json`,
	} {
		_, err := h.contract.Execute(h.ctx, h.env(), wrapper.MessageInfo{Sender: h.user}, []byte(raw))
		if !errors.Is(err, ErrInvalidMsg) {
			t.Fatalf("%s: expected invalid message, got %v", raw, err)
		}
	}
	if _, err := h.contract.Query(h.ctx, h.env(), []byte(`{"token_info":{},"minter":{}}`)); !errors.Is(err, ErrInvalidMsg) {
		t.Fatalf("expected invalid query, got %v", err)
	}
}

func TestMigrateKeepsRecord(t *testing.T) {
	h := newHarness(t)
	h.instantiate("0.1")
	h.mustExecute(h.user, `{"mint_with":{"recipient":"`+h.user+`","lsd_amount":"1000000"}}`)
	h.chain.SetHubRate(h.lsdHub, math.LegacyNewDec(2))
	h.chain.Advance(time.Hour)
	h.mustExecute(h.hub, `{"decompound":{}}`)

	var before DecompoundStateResponse
	h.query(`{"decompound_state":{}}`, &before)

	if _, err := h.contract.Migrate(h.ctx, h.env(), MigrateMsg{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	var after DecompoundStateResponse
	h.query(`{"decompound_state":{}}`, &after)
	if after.MaxDecompoundRatio != nil {
		t.Fatalf("cap should be lifted")
	}
	if after.TotalSeconds != before.TotalSeconds || !after.RatioSum.Equal(before.RatioSum) || after.LastDecompound != before.LastDecompound {
		t.Fatalf("record changed across migration: %+v -> %+v", before, after)
	}

	// Uncapped now: same block decompounds are allowed.
	h.mustExecute(h.hub, `{"decompound":{}}`)
	h.mustExecute(h.hub, `{"decompound":{}}`)
}
