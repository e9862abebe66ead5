// Package monitor polls deployed wrappers, recomputes their rates and
// decompound allowance with the wrapper engine math, and records the result.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cavernlsd/native/lsdhub"
	"cavernlsd/observability"
	"cavernlsd/observability/metrics"
)

var tracer = otel.Tracer("cavernlsd/monitor")

type target struct {
	Target
	hub lsdhub.Hub
}

// Options configures a Monitor.
type Options struct {
	Recorder Recorder
	Metrics  *metrics.MonitorMetrics
	Logger   *slog.Logger
	NowFunc  func() time.Time
}

// Monitor polls a fixed set of wrappers.
type Monitor struct {
	reader   ChainReader
	targets  []target
	recorder Recorder
	metrics  *metrics.MonitorMetrics
	logger   *slog.Logger
	nowFunc  func() time.Time

	mu        sync.RWMutex
	latest    map[string]Snapshot
	listeners []func([]Snapshot)
}

// New validates the targets and builds their adapters.
func New(reader ChainReader, targets []Target, opts Options) (*Monitor, error) {
	if reader == nil {
		return nil, errors.New("monitor: chain reader required")
	}
	built := make([]target, 0, len(targets))
	for _, t := range targets {
		hub, err := t.LSD.Build(nil)
		if err != nil {
			return nil, fmt.Errorf("monitor: wrapper %s: %w", t.Name, err)
		}
		built = append(built, target{Target: t, hub: hub})
	}
	m := &Monitor{
		reader:   reader,
		targets:  built,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		nowFunc:  opts.NowFunc,
		latest:   make(map[string]Snapshot),
	}
	if m.recorder == nil {
		m.recorder = NoopRecorder{}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	for _, t := range built {
		m.metrics.InitWrapper(t.Name)
	}
	return m, nil
}

// Poll snapshots every wrapper once. A wrapper that cannot be read is logged
// and skipped; the error returned joins every such failure.
func (m *Monitor) Poll(ctx context.Context) ([]Snapshot, error) {
	runID := uuid.New()
	ctx, span := tracer.Start(ctx, "monitor.poll", trace.WithAttributes(
		attribute.String("run_id", runID.String()),
		attribute.Int("wrappers", len(m.targets)),
	))
	defer span.End()

	start := m.nowFunc()
	snaps := make([]Snapshot, 0, len(m.targets))
	var errs []error
	for _, t := range m.targets {
		snap, err := m.read(ctx, t, runID)
		if err != nil {
			m.metrics.IncPollFailure(t.Name)
			m.logger.Warn("wrapper poll failed",
				slog.String("wrapper", t.Name),
				slog.String("run_id", runID.String()),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
			continue
		}
		m.observe(snap)
		snaps = append(snaps, snap)
	}
	if err := m.recorder.Record(ctx, snaps); err != nil {
		errs = append(errs, fmt.Errorf("record: %w", err))
	}
	m.metrics.ObservePollDuration(m.nowFunc().Sub(start))
	m.mu.RLock()
	listeners := slices.Clone(m.listeners)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(snaps)
	}
	if len(errs) > 0 {
		span.SetStatus(codes.Error, "wrapper poll failed")
	}
	m.logger.Info("poll complete",
		slog.String("run_id", runID.String()),
		slog.Int("wrappers", len(snaps)),
		slog.Int("failures", len(m.targets)-len(snaps)))
	return snaps, errors.Join(errs...)
}

func (m *Monitor) read(ctx context.Context, t target, runID uuid.UUID) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "monitor.read", trace.WithAttributes(
		attribute.String("wrapper", t.Name),
		attribute.String("contract", t.Contract),
	))
	defer span.End()
	snap, err := Read(ctx, m.reader, t.hub, t.Target, runID, m.nowFunc())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Snapshot{}, err
	}
	span.SetAttributes(
		attribute.String("exchange_rate", snap.ExchangeRate.String()),
		attribute.Bool("slashed", snap.Slashed),
	)
	return snap, nil
}

func (m *Monitor) observe(s Snapshot) {
	m.mu.Lock()
	m.latest[s.Wrapper] = s
	m.mu.Unlock()

	m.metrics.Observe(s.Wrapper, metrics.WrapperReading{
		ExchangeRate: decFloat(s.ExchangeRate),
		ExpectedRate: decFloat(s.ExpectedRate),
		LSDRate:      decFloat(s.LSDRate),
		Supply:       observability.BigToFloat(s.Supply.BigInt()),
		Backing:      decFloat(s.BackingValue),
		PendingLSD:   observability.BigToFloat(s.PendingLSD.BigInt()),
		RatioSum:     decFloat(s.RatioSum),
		Slashed:      s.Slashed,
		At:           s.TakenAt,
	})
	if s.Slashed {
		m.logger.Warn("wrapper rate below one",
			slog.String("wrapper", s.Wrapper),
			slog.String("rate", s.ExchangeRate.String()))
	}
}

// Latest returns the most recent snapshot of every wrapper, by name.
func (m *Monitor) Latest() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.latest))
	for _, s := range m.latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Wrapper < out[j].Wrapper })
	return out
}

// OnPoll registers fn to receive the snapshots of every completed poll.
func (m *Monitor) OnPoll(fn func([]Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// History forwards to the recorder.
func (m *Monitor) History(ctx context.Context, wrapper string, limit int) ([]SnapshotRecord, error) {
	return m.recorder.History(ctx, wrapper, limit)
}
