package chainquery

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	metricsOnce   sync.Once
	sharedMetrics *queryMetrics
)

type queryMetrics struct {
	requests metric.Int64Counter
}

func clientMetrics() *queryMetrics {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("cavernlsd/chainquery")
		counter, err := meter.Int64Counter("cavern.chainquery.requests")
		if err != nil {
			fallback := noop.NewMeterProvider().Meter("cavernlsd/chainquery")
			counter, _ = fallback.Int64Counter("cavern.chainquery.requests")
		}
		sharedMetrics = &queryMetrics{requests: counter}
	})
	return sharedMetrics
}

func (m *queryMetrics) record(ctx context.Context, kind string, err error) {
	if m == nil || m.requests == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requests.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}
