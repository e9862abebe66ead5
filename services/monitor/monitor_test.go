package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"cavernlsd/contract"
	"cavernlsd/host/mockchain"
	"cavernlsd/native/lsdhub"
	"cavernlsd/native/wrapper"
	"cavernlsd/observability/metrics"
	"cavernlsd/services/chainquery"
	"cavernlsd/storage"
)

var genesis = time.Unix(1_700_000_000, 0).UTC()

// chainReader serves raw reads from the contracts' own decompound_state query.
type chainReader struct {
	*mockchain.Chain
	contracts map[string]*contract.Contract
	// hidden contracts answer every raw read with ErrNotFound.
	hidden map[string]bool
}

func (r *chainReader) env() wrapper.Env {
	return wrapper.Env{Height: r.Height(), Time: r.Now()}
}

func (r *chainReader) QueryRaw(ctx context.Context, addr string, key []byte) ([]byte, error) {
	c, ok := r.contracts[addr]
	if !ok || r.hidden[addr] {
		return nil, chainquery.ErrNotFound
	}
	bz, err := c.Query(ctx, r.env(), []byte(`{"decompound_state":{}}`))
	if err != nil {
		return nil, err
	}
	var st contract.DecompoundStateResponse
	if err := json.Unmarshal(bz, &st); err != nil {
		return nil, err
	}
	if st.MaxDecompoundRatio == nil {
		return nil, chainquery.ErrNotFound
	}
	switch string(key) {
	case "decompound_config":
		return json.Marshal(map[string]interface{}{"max_decompound_ratio": st.MaxDecompoundRatio})
	case "decompound_state":
		return json.Marshal(map[string]interface{}{
			"ratio_sum":       st.RatioSum,
			"total_seconds":   st.TotalSeconds,
			"last_decompound": st.LastDecompound,
		})
	}
	return nil, chainquery.ErrNotFound
}

type fixture struct {
	ctx    context.Context
	chain  *mockchain.Chain
	reader *chainReader
	hub    string
	lsdHub string
	token  string
	user   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	chain := mockchain.New(genesis)
	f := &fixture{
		ctx:    context.Background(),
		chain:  chain,
		reader: &chainReader{Chain: chain, contracts: make(map[string]*contract.Contract), hidden: make(map[string]bool)},
		hub:    mockchain.Contract("cavern-hub"),
		lsdHub: mockchain.Contract("amp-hub"),
		token:  mockchain.Contract("amp-token"),
		user:   mockchain.Addr("alice"),
	}
	chain.SetHubRate(f.lsdHub, math.LegacyOneDec())
	chain.SetTokenBalance(f.token, f.user, math.NewInt(10_000_000))
	return f
}

func (f *fixture) lsd() lsdhub.Config {
	return lsdhub.Config{LP: &lsdhub.LPConfig{Hub: f.lsdHub, Token: f.token}}
}

// deploy instantiates a wrapper named label and deposits amount LSD into it.
func (f *fixture) deploy(t *testing.T, label, ratio string, amount int64) Target {
	t.Helper()
	addr := mockchain.Contract(label)
	c := contract.New(addr, storage.NewMemDB(), f.chain)
	msg := contract.InstantiateMsg{
		Name:        "Cavern ampLUNA",
		Symbol:      "campLUNA",
		Decimals:    6,
		HubContract: f.hub,
		LSDConfig:   f.lsd(),
	}
	if ratio != "" {
		r := math.LegacyMustNewDecFromStr(ratio)
		msg.MaxDecompoundRatio = &r
	}
	_, err := c.Instantiate(f.ctx, f.reader.env(), msg)
	require.NoError(t, err)
	f.reader.contracts[addr] = c
	f.chain.Register(addr, func(ctx context.Context, raw []byte) ([]byte, error) {
		return c.Query(ctx, f.reader.env(), raw)
	})
	resp, err := c.Execute(f.ctx, f.reader.env(), wrapper.MessageInfo{Sender: f.user},
		[]byte(fmt.Sprintf(`{"mint_with":{"recipient":%q,"lsd_amount":"%d"}}`, f.user, amount)))
	require.NoError(t, err)
	require.NoError(t, f.chain.Execute(f.ctx, resp.Messages))
	return Target{Name: label, Contract: addr, LSD: f.lsd()}
}

func (f *fixture) monitor(t *testing.T, rec Recorder, targets ...Target) *Monitor {
	t.Helper()
	mm, err := metrics.NewMonitorMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	m, err := New(f.reader, targets, Options{Recorder: rec, Metrics: mm, NowFunc: f.chain.Now})
	require.NoError(t, err)
	return m
}

func TestPollMatchesContractPreview(t *testing.T) {
	f := newFixture(t)
	target := f.deploy(t, "wrapper", "0.1", 1_000_000)
	m := f.monitor(t, nil, target)

	f.chain.SetHubRate(f.lsdHub, math.LegacyNewDec(4))
	f.chain.Advance(24 * time.Hour)

	snaps, err := m.Poll(f.ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	snap := snaps[0]
	require.Equal(t, "wrapper", snap.Wrapper)
	require.Empty(t, snap.Blocked)
	require.False(t, snap.Slashed)
	require.NotNil(t, snap.MaxDecompoundRatio)
	require.Equal(t, "0.100000000000000000", snap.MaxDecompoundRatio.String())

	c := f.reader.contracts[target.Contract]
	bz, err := c.Query(f.ctx, f.reader.env(), []byte(`{"get_expected_exchange_rate":{}}`))
	require.NoError(t, err)
	var expected contract.ExpectedExchangeRateResponse
	require.NoError(t, json.Unmarshal(bz, &expected))
	require.True(t, expected.ExpectedExchangeRate.Equal(snap.ExpectedRate),
		"contract %s, monitor %s", expected.ExpectedExchangeRate, snap.ExpectedRate)

	resp, err := c.Execute(f.ctx, f.reader.env(), wrapper.MessageInfo{Sender: f.hub}, []byte(`{"decompound":{}}`))
	require.NoError(t, err)
	extracted, _ := resp.Attribute("lsd_rewards")
	require.Equal(t, snap.PendingLSD.String(), extracted)

	snaps, err = m.Poll(f.ctx)
	require.NoError(t, err)
	require.Equal(t, wrapper.ErrTooSoon.Error(), snaps[0].Blocked)
	require.Equal(t, uint64(86400), snaps[0].TotalSeconds)
	require.Equal(t, "0.000272750000000000", snaps[0].RatioSum.String())

	latest := m.Latest()
	require.Len(t, latest, 1)
	require.Equal(t, snaps[0].RunID, latest[0].RunID)
}

func TestPollUncappedWrapper(t *testing.T) {
	f := newFixture(t)
	target := f.deploy(t, "open", "", 1_000_000)
	m := f.monitor(t, nil, target)
	f.chain.SetHubRate(f.lsdHub, math.LegacyNewDec(4))

	snaps, err := m.Poll(f.ctx)
	require.NoError(t, err)
	require.Nil(t, snaps[0].MaxDecompoundRatio)
	require.Empty(t, snaps[0].Blocked)
	require.True(t, snaps[0].ExpectedRate.Equal(snaps[0].ExchangeRate), "rate %s", snaps[0].ExpectedRate)
	require.Equal(t, "749999", snaps[0].PendingLSD.String())
}

func TestPollFlagsCappedWrapperWithoutRecords(t *testing.T) {
	f := newFixture(t)
	target := f.deploy(t, "capped", "0.1", 1_000_000)
	f.reader.hidden[target.Contract] = true
	m := f.monitor(t, nil, target)
	f.chain.SetHubRate(f.lsdHub, math.LegacyNewDec(4))
	f.chain.Advance(24 * time.Hour)

	snaps, err := m.Poll(f.ctx)
	require.NoError(t, err)
	snap := snaps[0]
	require.Equal(t, ErrStateUnreadable.Error(), snap.Blocked)
	require.NotNil(t, snap.MaxDecompoundRatio)
	require.Equal(t, "0.100000000000000000", snap.MaxDecompoundRatio.String())
	require.True(t, snap.PendingLSD.IsZero())
	require.True(t, snap.PendingLuna.IsZero())
}

func TestPollSkipsFailingWrapper(t *testing.T) {
	f := newFixture(t)
	good := f.deploy(t, "good", "0.1", 500_000)
	broken := Target{Name: "broken", Contract: mockchain.Contract("missing"), LSD: f.lsd()}
	m := f.monitor(t, nil, broken, good)

	f.chain.FailQueries(broken.Contract, errors.New("node unavailable"))
	snaps, err := m.Poll(f.ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken")
	require.Len(t, snaps, 1)
	require.Equal(t, "good", snaps[0].Wrapper)
}

func TestGormRecorderHistory(t *testing.T) {
	f := newFixture(t)
	target := f.deploy(t, "wrapper", "0.1", 1_000_000)

	db, err := OpenDatabase(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	rec, err := NewGormRecorder(db)
	require.NoError(t, err)
	m := f.monitor(t, rec, target)

	f.chain.SetHubRate(f.lsdHub, math.LegacyNewDec(2))
	for i := 0; i < 3; i++ {
		f.chain.Advance(time.Hour)
		_, err := m.Poll(f.ctx)
		require.NoError(t, err)
	}

	rows, err := m.History(f.ctx, "wrapper", 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.True(t, rows[0].TakenAt.After(rows[1].TakenAt))
	require.Equal(t, target.Contract, rows[0].Contract)
	require.Equal(t, "0.100000000000000000", rows[0].MaxDecompoundRatio)
	require.NotEqual(t, rows[0].RunID, rows[1].RunID)

	none, err := m.History(f.ctx, "other", 10)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestOpenDatabaseRequiresDSN(t *testing.T) {
	_, err := OpenDatabase("  ")
	require.Error(t, err)
}

func TestNewViewAnnualisesRatio(t *testing.T) {
	ratio := math.LegacyMustNewDecFromStr("0.1")
	s := Snapshot{
		Wrapper:            "w",
		TakenAt:            genesis,
		ExchangeRate:       math.LegacyMustNewDecFromStr("1.23456789"),
		ExpectedRate:       math.LegacyOneDec(),
		LSDRate:            math.LegacyNewDec(4),
		Supply:             math.NewInt(10),
		PendingLSD:         math.ZeroInt(),
		MaxDecompoundRatio: &ratio,
		RatioSum:           math.LegacyMustNewDecFromStr("0.000272750000000000"),
		TotalSeconds:       86400,
		LastDecompound:     genesis,
	}
	v := NewView(s, 4)
	require.Equal(t, "1.2346", v.ExchangeRate)
	require.Equal(t, "0.1000", v.MaxDecompoundRatio)
	require.Equal(t, "0.0996", v.UsedYearlyRatio)
	require.Equal(t, genesis.Format(time.RFC3339), v.TakenAt)
}

func TestExportParquet(t *testing.T) {
	f := newFixture(t)
	target := f.deploy(t, "wrapper", "0.1", 1_000_000)
	db, err := OpenDatabase(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	rec, err := NewGormRecorder(db)
	require.NoError(t, err)
	m := f.monitor(t, rec, target)

	var streamed int
	m.OnPoll(func(snaps []Snapshot) { streamed += len(snaps) })
	f.chain.SetHubRate(f.lsdHub, math.LegacyNewDec(3))
	for i := 0; i < 2; i++ {
		f.chain.Advance(12 * time.Hour)
		_, err := m.Poll(f.ctx)
		require.NoError(t, err)
	}
	require.Equal(t, 2, streamed)

	rows, err := m.History(f.ctx, "wrapper", 10)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "snapshots.parquet")
	require.NoError(t, ExportParquet(path, rows))

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(parquetSnapshot), 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	require.Equal(t, int64(2), pr.GetNumRows())
	out := make([]parquetSnapshot, 2)
	require.NoError(t, pr.Read(&out))
	require.Equal(t, "wrapper", out[0].Wrapper)
	require.Equal(t, rows[0].ExchangeRate, out[0].ExchangeRate)
}
