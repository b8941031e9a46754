package metrics

import "github.com/prometheus/client_golang/prometheus"

// BotMetrics exposes counters/histograms for the booking bot.
type BotMetrics struct {
	inboundTotal   *prometheus.CounterVec
	outboundTotal  *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	bookingsTotal  prometheus.Counter
	webhookLatency *prometheus.HistogramVec
}

func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carrental",
			Subsystem: "bot",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound WhatsApp webhook deliveries by outcome",
		}, []string{"status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carrental",
			Subsystem: "bot",
			Name:      "outbound_total",
			Help:      "Total outbound WhatsApp sends",
		}, []string{"kind", "status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carrental",
			Subsystem: "bot",
			Name:      "transitions_total",
			Help:      "Conversation turns by classified intent and resulting state",
		}, []string{"intent", "state"}),
		bookingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carrental",
			Subsystem: "bot",
			Name:      "bookings_created_total",
			Help:      "Bookings created through the conversation",
		}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carrental",
			Subsystem: "bot",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of inbound webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.transitions, m.bookingsTotal, m.webhookLatency)
	return m
}

func (m *BotMetrics) ObserveInbound(status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(status).Inc()
}

func (m *BotMetrics) ObserveOutbound(kind string, ok bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !ok {
		status = "failed"
	}
	m.outboundTotal.WithLabelValues(kind, status).Inc()
}

func (m *BotMetrics) ObserveTransition(intent, state string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(intent, state).Inc()
}

func (m *BotMetrics) ObserveBookingCreated() {
	if m == nil {
		return
	}
	m.bookingsTotal.Inc()
}

func (m *BotMetrics) ObserveWebhookLatency(status string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(status).Observe(seconds)
}
