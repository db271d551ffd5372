package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		passesIssuedTotal,
		webhookEventsTotal,
	)
}

var (
	// outcome: issued|existing|conflict_retry|exhausted
	passesIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passes_issued_total",
			Help: "Pass issuance attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// outcome: paid|stale|not_found|ignored|bad_signature|payment_id_mismatch
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Gateway webhook deliveries by event type and outcome.",
		},
		[]string{"event", "outcome"},
	)
)

func IncPassIssued(outcome string) {
	passesIssuedTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncWebhookEvent(event, outcome string) {
	webhookEventsTotal.WithLabelValues(norm(event), norm(outcome)).Inc()
}
