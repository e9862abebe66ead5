package observability

import (
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cavern"

type contractMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	extracted *prometheus.CounterVec
}

var (
	contractMetricsOnce sync.Once
	contractRegistry    *contractMetrics
)

// Contract returns the lazily-initialised registry recording wrapper contract
// invocations.
func Contract() *contractMetrics {
	contractMetricsOnce.Do(func() {
		contractRegistry = &contractMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "wrapper",
				Name:      "calls_total",
				Help:      "Wrapper contract invocations segmented by wrapper, method and outcome.",
			}, []string{"wrapper", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "wrapper",
				Name:      "errors_total",
				Help:      "Failed wrapper contract invocations segmented by error kind.",
			}, []string{"wrapper", "method", "kind"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "wrapper",
				Name:      "call_duration_seconds",
				Help:      "Latency distribution for wrapper contract invocations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"wrapper", "method"}),
			extracted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "wrapper",
				Name:      "decompounded_total",
				Help:      "Backing extracted by decompounding, in LSD units and underlying units.",
			}, []string{"wrapper", "unit"}),
		}
		prometheus.MustRegister(
			contractRegistry.requests,
			contractRegistry.errors,
			contractRegistry.latency,
			contractRegistry.extracted,
		)
	})
	return contractRegistry
}

// Observe records one invocation. kind is empty on success and names the
// error class otherwise.
func (m *contractMetrics) Observe(wrapper, method, kind string, duration time.Duration) {
	if m == nil {
		return
	}
	wrapper = label(wrapper)
	method = label(method)
	outcome := "success"
	if kind != "" {
		outcome = "error"
		m.errors.WithLabelValues(wrapper, method, kind).Inc()
	}
	m.requests.WithLabelValues(wrapper, method, outcome).Inc()
	m.latency.WithLabelValues(wrapper, method).Observe(duration.Seconds())
}

// RecordDecompound adds a committed extraction to the running totals.
func (m *contractMetrics) RecordDecompound(wrapper string, lsd, luna *big.Int) {
	if m == nil {
		return
	}
	wrapper = label(wrapper)
	m.extracted.WithLabelValues(wrapper, "lsd").Add(BigToFloat(lsd))
	m.extracted.WithLabelValues(wrapper, "underlying").Add(BigToFloat(luna))
}

func label(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

// BigToFloat converts an atomic amount for gauges, returning 0 for nil or
// values that do not fit a float64.
func BigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	if floatVal < 0 {
		return 0
	}
	return floatVal
}
