package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type eventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events counts the events wrappers commit, by wrapper and event type.
// Events of calls that fail are rolled back and never counted.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "committed_total",
				Help:      "Events committed by wrapper calls, by wrapper and event type.",
			}, []string{"wrapper", "type"}),
		}
		prometheus.MustRegister(eventRegistry.emitted)
	})
	return eventRegistry
}

// RecordEvent counts one committed event. Types are matched case-insensitively.
func (m *eventMetrics) RecordEvent(wrapper, eventType string) {
	if m == nil {
		return
	}
	m.emitted.WithLabelValues(label(wrapper), label(strings.ToLower(eventType))).Inc()
}
