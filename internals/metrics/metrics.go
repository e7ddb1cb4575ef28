// file: internals/metrics/metrics.go
package metrics

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopify_webhooks_received_total",
		Help: "Webhook delivery yang masuk, per topik.",
	}, []string{"topic"})

	WebhooksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopify_webhooks_rejected_total",
		Help: "Webhook yang ditolak saat checks, per alasan (missing_header, unknown_domain, bad_signature, malformed).",
	}, []string{"reason"})

	OrdersProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopify_orders_processed_total",
		Help: "Order yang sukses sampai status processed.",
	})

	OrdersFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopify_orders_failed_total",
		Help: "Order pass yang gagal dan ditinggal di status error.",
	})

	EnrollmentCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_enrollment_calls_total",
		Help: "Panggilan bulk enrollment ke LMS, per action dan hasil.",
	}, []string{"action", "result"})

	ReconcileRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_reconcile_runs_total",
		Help: "Berapa kali reconciliation sweep jalan.",
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_request_duration_seconds",
		Help:    "Durasi request webhook endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "status"})
)

// Handler expose /metrics lewat adaptor net/http → fiber.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
