package observability

import (
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestContractMetricsObserve(t *testing.T) {
	m := Contract()
	m.Observe("terra1wrapper", "decompound", "", 10*time.Millisecond)
	m.Observe("terra1wrapper", "decompound", "too_soon", time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("terra1wrapper", "decompound", "success")); got != 1 {
		t.Fatalf("expected one success, got %v", got)
	}
	if got := testutil.ToFloat64(m.errors.WithLabelValues("terra1wrapper", "decompound", "too_soon")); got != 1 {
		t.Fatalf("expected one too_soon error, got %v", got)
	}

	m.RecordDecompound("terra1wrapper", big.NewInt(272), big.NewInt(1091))
	if got := testutil.ToFloat64(m.extracted.WithLabelValues("terra1wrapper", "lsd")); got != 272 {
		t.Fatalf("unexpected lsd total %v", got)
	}
	if got := testutil.ToFloat64(m.extracted.WithLabelValues("terra1wrapper", "underlying")); got != 1091 {
		t.Fatalf("unexpected underlying total %v", got)
	}
}

func TestEventMetricsNormalise(t *testing.T) {
	m := Events()
	m.RecordEvent("terra1events", " Wrapper.Decompounded ")
	m.RecordEvent("", "")
	if got := testutil.ToFloat64(m.emitted.WithLabelValues("terra1events", "wrapper.decompounded")); got != 1 {
		t.Fatalf("unexpected count %v", got)
	}
	if got := testutil.ToFloat64(m.emitted.WithLabelValues("unknown", "unknown")); got != 1 {
		t.Fatalf("unexpected unknown count %v", got)
	}
}

func TestBigToFloat(t *testing.T) {
	if BigToFloat(nil) != 0 || BigToFloat(big.NewInt(-5)) != 0 {
		t.Fatalf("nil and negative amounts should read as zero")
	}
	if BigToFloat(big.NewInt(42)) != 42 {
		t.Fatalf("unexpected conversion")
	}
}
