package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestBotMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBotMetrics(reg)
	m.ObserveInbound("processed")
	m.ObserveInbound("processed")
	m.ObserveOutbound("buttons", true)
	m.ObserveOutbound("image", false)
	m.ObserveTransition("greeting", "main_menu")
	m.ObserveBookingCreated()
	m.ObserveWebhookLatency("processed", 0.25)

	if got := testutil.ToFloat64(m.inboundTotal.WithLabelValues("processed")); got != 2 {
		t.Fatalf("expected 2 processed webhooks, got %v", got)
	}
	if got := testutil.ToFloat64(m.outboundTotal.WithLabelValues("image", "failed")); got != 1 {
		t.Fatalf("expected 1 failed image send, got %v", got)
	}
	if got := testutil.ToFloat64(m.bookingsTotal); got != 1 {
		t.Fatalf("expected 1 booking, got %v", got)
	}
	if n := testutil.CollectAndCount(m.transitions); n != 1 {
		t.Fatalf("expected one transition series, got %d", n)
	}
}

func TestBotMetricsDoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewBotMetrics(reg)
	defer func() {
		if recover() == nil {
			t.Fatal("expected duplicate registration to panic")
		}
	}()
	NewBotMetrics(reg)
}

func TestBotMetricsNilSafe(t *testing.T) {
	var m *BotMetrics
	m.ObserveInbound("processed")
	m.ObserveOutbound("text", true)
	m.ObserveTransition("greeting", "main_menu")
	m.ObserveBookingCreated()
	m.ObserveWebhookLatency("processed", 0.1)
}

func TestWebhookLatencyHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBotMetrics(reg)
	m.ObserveWebhookLatency("processed", 0.02)
	m.ObserveWebhookLatency("processed", 0.3)
	m.ObserveWebhookLatency("error", 2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var hist *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "carrental_bot_webhook_latency_seconds" {
			hist = mf
		}
	}
	if hist == nil {
		t.Fatal("latency histogram not registered")
	}
	if hist.GetType() != dto.MetricType_HISTOGRAM {
		t.Fatalf("expected histogram, got %s", hist.GetType())
	}
	counts := map[string]uint64{}
	for _, metric := range hist.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "status" {
				counts[label.GetValue()] = metric.GetHistogram().GetSampleCount()
			}
		}
	}
	if counts["processed"] != 2 || counts["error"] != 1 {
		t.Fatalf("unexpected sample counts %v", counts)
	}
}
