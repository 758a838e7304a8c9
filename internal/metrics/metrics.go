// Package metrics holds process-wide Prometheus collectors served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "grabber"

// Результаты загрузки для downloads_total.
const (
	ResultDelivered = "delivered"
	ResultGated     = "gated"
	ResultRejected  = "rejected"
	ResultFailed    = "failed"
)

var (
	Downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "downloads_total",
		Help:      "Download jobs by platform and outcome.",
	}, []string{"platform", "result"})

	DownloadBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "download_bytes_total",
		Help:      "Bytes delivered to users.",
	}, []string{"platform"})

	JobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "download_jobs_in_flight",
		Help:      "Download jobs currently holding a user lock.",
	})

	PaymentsActivated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_activated_total",
		Help:      "Subscriptions activated by payment provider.",
	}, []string{"provider"})

	BroadcastMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_messages_total",
		Help:      "Broadcast deliveries by result.",
	}, []string{"result"})

	ExtractorUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "extractor_up",
		Help:      "1 if the last extractor health check succeeded.",
	})
)
