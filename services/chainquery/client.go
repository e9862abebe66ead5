// Package chainquery reads wrapper and LSD hub state from a live chain over
// gRPC. It implements the adapters' Querier and adds raw contract reads.
package chainquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cosmossdk.io/math"
	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

var (
	// ErrAddressRequired is returned by Dial without an endpoint.
	ErrAddressRequired = errors.New("chainquery: grpc address required")
	// ErrNotFound is returned by QueryRaw when the key is unset.
	ErrNotFound = errors.New("chainquery: raw key not found")
)

// Config configures the client.
type Config struct {
	Address          string
	Insecure         bool
	QueriesPerSecond float64
	Burst            int
	Timeout          time.Duration
}

// Client issues rate-limited wasm and bank queries.
type Client struct {
	conn    *grpc.ClientConn
	wasm    wasmtypes.QueryClient
	bank    banktypes.QueryClient
	limiter *rate.Limiter
	timeout time.Duration
}

// Dial connects to a node's gRPC endpoint. Calls are traced through otelgrpc.
func Dial(cfg Config) (*Client, error) {
	addr := strings.TrimSpace(cfg.Address)
	if addr == "" {
		return nil, ErrAddressRequired
	}
	var creds credentials.TransportCredentials
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	} else {
		creds = credentials.NewClientTLSFromCert(nil, "")
	}
	cdc := codec.NewProtoCodec(codectypes.NewInterfaceRegistry())
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(cdc.GRPCCodec())),
	)
	if err != nil {
		return nil, fmt.Errorf("chainquery: dial %s: %w", addr, err)
	}
	c := NewWithClients(wasmtypes.NewQueryClient(conn), banktypes.NewQueryClient(conn), cfg)
	c.conn = conn
	return c, nil
}

// NewWithClients builds a client over existing query clients.
func NewWithClients(wasm wasmtypes.QueryClient, bank banktypes.QueryClient, cfg Config) *Client {
	limit := rate.Inf
	if cfg.QueriesPerSecond > 0 {
		limit = rate.Limit(cfg.QueriesPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		wasm:    wasm,
		bank:    bank,
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
	}
}

// Close releases the connection opened by Dial.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return ctx, func() {}, fmt.Errorf("chainquery: rate limit: %w", err)
	}
	qctx, cancel := context.WithTimeout(ctx, c.timeout)
	return qctx, cancel, nil
}

// QuerySmart JSON-encodes request, runs it against contract and decodes the
// reply into response.
func (c *Client) QuerySmart(ctx context.Context, contract string, request, response interface{}) (err error) {
	defer func() { clientMetrics().record(ctx, "smart", err) }()
	bz, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("chainquery: encode query: %w", err)
	}
	qctx, cancel, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	res, err := c.wasm.SmartContractState(qctx, &wasmtypes.QuerySmartContractStateRequest{
		Address:   contract,
		QueryData: bz,
	})
	if err != nil {
		return fmt.Errorf("chainquery: smart query %s: %w", contract, err)
	}
	if err := json.Unmarshal(res.Data, response); err != nil {
		return fmt.Errorf("chainquery: decode reply from %s: %w", contract, err)
	}
	return nil
}

// QueryBalance returns the bank balance of address in denom.
func (c *Client) QueryBalance(ctx context.Context, address, denom string) (_ math.Int, err error) {
	defer func() { clientMetrics().record(ctx, "balance", err) }()
	qctx, cancel, err := c.begin(ctx)
	if err != nil {
		return math.Int{}, err
	}
	defer cancel()
	res, err := c.bank.Balance(qctx, &banktypes.QueryBalanceRequest{Address: address, Denom: denom})
	if err != nil {
		return math.Int{}, fmt.Errorf("chainquery: balance %s/%s: %w", address, denom, err)
	}
	if res.Balance == nil || res.Balance.Amount.IsNil() {
		return math.ZeroInt(), nil
	}
	return res.Balance.Amount, nil
}

// QueryRaw reads a raw storage key of contract.
func (c *Client) QueryRaw(ctx context.Context, contract string, key []byte) (_ []byte, err error) {
	defer func() {
		if errors.Is(err, ErrNotFound) {
			clientMetrics().record(ctx, "raw", nil)
			return
		}
		clientMetrics().record(ctx, "raw", err)
	}()
	qctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	res, err := c.wasm.RawContractState(qctx, &wasmtypes.QueryRawContractStateRequest{
		Address:   contract,
		QueryData: key,
	})
	if err != nil {
		return nil, fmt.Errorf("chainquery: raw query %s: %w", contract, err)
	}
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("%w: %s on %s", ErrNotFound, key, contract)
	}
	return res.Data, nil
}
