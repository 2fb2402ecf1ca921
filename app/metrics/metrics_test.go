package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordNotification(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewNotificationMetrics(reg)

	m.RecordNotification("settled")
	m.RecordNotification("settled")
	m.RecordNotification("rejected")
	m.RecordStockShortfalls(2)
	m.RecordEmailFailure()

	if got := testutil.ToFloat64(m.outcomes.WithLabelValues("settled")); got != 2 {
		t.Fatalf("expected 2 settled, got %v", got)
	}
	if got := testutil.ToFloat64(m.outcomes.WithLabelValues("rejected")); got != 1 {
		t.Fatalf("expected 1 rejected, got %v", got)
	}
	if got := testutil.ToFloat64(m.shortfalls); got != 2 {
		t.Fatalf("expected 2 shortfalls, got %v", got)
	}
	if got := testutil.ToFloat64(m.mailErrors); got != 1 {
		t.Fatalf("expected 1 email failure, got %v", got)
	}
}
