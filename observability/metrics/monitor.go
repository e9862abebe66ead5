package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MonitorMetrics exposes the latest wrapper snapshot taken by the monitor.
type MonitorMetrics struct {
	exchangeRate   *prometheus.GaugeVec
	expectedRate   *prometheus.GaugeVec
	lsdRate        *prometheus.GaugeVec
	supply         *prometheus.GaugeVec
	backing        *prometheus.GaugeVec
	pendingLSD     *prometheus.GaugeVec
	ratioSum       *prometheus.GaugeVec
	slashed        *prometheus.GaugeVec
	pollFailures   *prometheus.CounterVec
	lastPoll       *prometheus.GaugeVec
	pollDurationMs prometheus.Histogram
}

var (
	monitorOnce     sync.Once
	monitorRegistry *MonitorMetrics
)

func Monitor() *MonitorMetrics {
	monitorOnce.Do(func() {
		monitorRegistry = newMonitorMetrics()
		prometheus.MustRegister(monitorRegistry.collectors()...)
	})
	return monitorRegistry
}

// NewMonitorMetrics builds an unregistered set, for callers that keep their
// own registry.
func NewMonitorMetrics(reg prometheus.Registerer) (*MonitorMetrics, error) {
	m := newMonitorMetrics()
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func newMonitorMetrics() *MonitorMetrics {
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cavern_monitor_" + name,
			Help: help,
		}, []string{"wrapper"})
	}
	return &MonitorMetrics{
		exchangeRate: gauge("exchange_rate", "Underlying units backing one wrapper token."),
		expectedRate: gauge("expected_exchange_rate", "Wrapper rate net of the extraction allowance accrued so far."),
		lsdRate:      gauge("lsd_exchange_rate", "Wrapper tokens issued per LSD unit held."),
		supply:       gauge("supply", "Wrapper token supply in atomic units."),
		backing:      gauge("backing_value", "LSD balance valued in underlying units."),
		pendingLSD:   gauge("pending_lsd_rewards", "LSD a decompound would extract right now."),
		ratioSum:     gauge("ratio_sum", "Accumulated rate decrease across all capped decompounds."),
		slashed:      gauge("slashed", "1 when the wrapper rate is below one."),
		pollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cavern_monitor_poll_failures_total",
			Help: "Failed wrapper polls segmented by wrapper.",
		}, []string{"wrapper"}),
		lastPoll: gauge("last_poll_timestamp_seconds", "Unix time of the last successful poll."),
		pollDurationMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cavern_monitor_poll_duration_ms",
			Help:    "Duration of a full poll cycle in milliseconds.",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
	}
}

func (m *MonitorMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.exchangeRate, m.expectedRate, m.lsdRate, m.supply, m.backing,
		m.pendingLSD, m.ratioSum, m.slashed, m.pollFailures, m.lastPoll, m.pollDurationMs,
	}
}

// WrapperReading is the subset of a snapshot exported as gauges.
type WrapperReading struct {
	ExchangeRate float64
	ExpectedRate float64
	LSDRate      float64
	Supply       float64
	Backing      float64
	PendingLSD   float64
	RatioSum     float64
	Slashed      bool
	At           time.Time
}

func (m *MonitorMetrics) Observe(wrapper string, r WrapperReading) {
	if m == nil {
		return
	}
	if wrapper == "" {
		wrapper = "unknown"
	}
	m.exchangeRate.WithLabelValues(wrapper).Set(r.ExchangeRate)
	m.expectedRate.WithLabelValues(wrapper).Set(r.ExpectedRate)
	m.lsdRate.WithLabelValues(wrapper).Set(r.LSDRate)
	m.supply.WithLabelValues(wrapper).Set(r.Supply)
	m.backing.WithLabelValues(wrapper).Set(r.Backing)
	m.pendingLSD.WithLabelValues(wrapper).Set(r.PendingLSD)
	m.ratioSum.WithLabelValues(wrapper).Set(r.RatioSum)
	slashed := 0.0
	if r.Slashed {
		slashed = 1
	}
	m.slashed.WithLabelValues(wrapper).Set(slashed)
	m.lastPoll.WithLabelValues(wrapper).Set(float64(r.At.Unix()))
}

func (m *MonitorMetrics) IncPollFailure(wrapper string) {
	if m == nil {
		return
	}
	if wrapper == "" {
		wrapper = "unknown"
	}
	m.pollFailures.WithLabelValues(wrapper).Inc()
}

func (m *MonitorMetrics) ObservePollDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.pollDurationMs.Observe(float64(d.Milliseconds()))
}

func (m *MonitorMetrics) InitWrapper(wrapper string) {
	if m == nil {
		return
	}
	if wrapper == "" {
		wrapper = "unknown"
	}
	m.pollFailures.WithLabelValues(wrapper).Add(0)
}
