package chainquery

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
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

type fakeWasm struct {
	wasmtypes.QueryClient
	smart map[string]json.RawMessage
	raw   map[string][]byte
	calls int
}

func (f *fakeWasm) SmartContractState(_ context.Context, req *wasmtypes.QuerySmartContractStateRequest, _ ...grpc.CallOption) (*wasmtypes.QuerySmartContractStateResponse, error) {
	f.calls++
	reply, ok := f.smart[req.Address+"|"+string(req.QueryData)]
	if !ok {
		return nil, errors.New("query not supported")
	}
	return &wasmtypes.QuerySmartContractStateResponse{Data: wasmtypes.RawContractMessage(reply)}, nil
}

func (f *fakeWasm) RawContractState(_ context.Context, req *wasmtypes.QueryRawContractStateRequest, _ ...grpc.CallOption) (*wasmtypes.QueryRawContractStateResponse, error) {
	f.calls++
	return &wasmtypes.QueryRawContractStateResponse{Data: f.raw[req.Address+"|"+string(req.QueryData)]}, nil
}

type fakeBank struct {
	banktypes.QueryClient
	balances map[string]sdk.Coin
}

func (f *fakeBank) Balance(_ context.Context, req *banktypes.QueryBalanceRequest, _ ...grpc.CallOption) (*banktypes.QueryBalanceResponse, error) {
	coin, ok := f.balances[req.Address+"|"+req.Denom]
	if !ok {
		return &banktypes.QueryBalanceResponse{}, nil
	}
	return &banktypes.QueryBalanceResponse{Balance: &coin}, nil
}

func TestQuerySmart(t *testing.T) {
	wasm := &fakeWasm{smart: map[string]json.RawMessage{
		`hub|{"state":{}}`: json.RawMessage(`{"exchange_rate":"1.25"}`),
	}}
	c := NewWithClients(wasm, &fakeBank{}, Config{})

	var resp struct {
		ExchangeRate math.LegacyDec `json:"exchange_rate"`
	}
	require.NoError(t, c.QuerySmart(context.Background(), "hub", map[string]struct{}{"state": {}}, &resp))
	require.Equal(t, "1.250000000000000000", resp.ExchangeRate.String())

	err := c.QuerySmart(context.Background(), "other", map[string]struct{}{"state": {}}, &resp)
	require.ErrorContains(t, err, "query not supported")
}

func TestQueryBalanceDefaultsToZero(t *testing.T) {
	bank := &fakeBank{balances: map[string]sdk.Coin{
		"wrapper|stuluna": sdk.NewInt64Coin("stuluna", 42),
	}}
	c := NewWithClients(&fakeWasm{}, bank, Config{})

	got, err := c.QueryBalance(context.Background(), "wrapper", "stuluna")
	require.NoError(t, err)
	require.True(t, got.Equal(math.NewInt(42)))

	got, err = c.QueryBalance(context.Background(), "wrapper", "uluna")
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestQueryRaw(t *testing.T) {
	wasm := &fakeWasm{raw: map[string][]byte{
		"wrapper|decompound_state": []byte(`{"ratio_sum":"0","total_seconds":0,"last_decompound":"1"}`),
	}}
	c := NewWithClients(wasm, &fakeBank{}, Config{})

	bz, err := c.QueryRaw(context.Background(), "wrapper", []byte("decompound_state"))
	require.NoError(t, err)
	require.Contains(t, string(bz), "ratio_sum")

	_, err = c.QueryRaw(context.Background(), "wrapper", []byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	wasm := &fakeWasm{raw: map[string][]byte{"w|k": []byte("1")}}
	c := NewWithClients(wasm, &fakeBank{}, Config{QueriesPerSecond: 0.001, Burst: 1})

	_, err := c.QueryRaw(context.Background(), "w", []byte("k"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.QueryRaw(ctx, "w", []byte("k"))
	require.Error(t, err)
	require.Equal(t, 1, wasm.calls)
}

func TestDialRequiresAddress(t *testing.T) {
	_, err := Dial(Config{})
	require.ErrorIs(t, err, ErrAddressRequired)
}

func TestCancelledContextFailsEveryQuery(t *testing.T) {
	wasm := &fakeWasm{raw: map[string][]byte{"w|k": []byte("1")}}
	c := NewWithClients(wasm, &fakeBank{}, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.QueryRaw(ctx, "w", []byte("k"))
	require.ErrorIs(t, err, context.Canceled)
	var out map[string]any
	require.ErrorIs(t, c.QuerySmart(ctx, "w", map[string]any{"token_info": struct{}{}}, &out), context.Canceled)
	_, err = c.QueryBalance(ctx, "terra1x", "uluna")
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, wasm.calls)
}
