package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics for the webhook ingestion path and the send worker.
var (
	WebhookRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "integration_webhook_requests_total",
			Help: "Total number of webhook deliveries received",
		},
	)

	WebhookRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "integration_webhook_rejected_total",
			Help: "Total number of webhook deliveries rejected by the signature gate",
		},
	)

	InboundMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "integration_inbound_messages_total",
			Help: "Total number of new inbound messages ingested",
		},
	)

	InboundDuplicatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "integration_inbound_duplicates_total",
			Help: "Total number of duplicate webhook deliveries short-circuited",
		},
	)

	StatusAppliedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "integration_status_applied_total",
			Help: "Total number of delivery-status callbacks applied",
		},
	)

	StatusIgnoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "integration_status_ignored_total",
			Help: "Total number of delivery-status callbacks ignored as stale or unknown",
		},
	)

	OutboundSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "integration_outbound_sent_total",
			Help: "Total number of outbound messages accepted by the provider",
		},
	)
)

// Register registers all metrics with the default registry.
func Register() {
	prometheus.MustRegister(
		WebhookRequestsTotal,
		WebhookRejectedTotal,
		InboundMessagesTotal,
		InboundDuplicatesTotal,
		StatusAppliedTotal,
		StatusIgnoredTotal,
		OutboundSentTotal,
	)
}

// Handler exposes the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
