// Package metrics содержит Prometheus-счётчики сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEvents считает входящие события провайдера по типу и исходу:
	// processed, duplicate, ignored, failed.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitemechanic_webhook_events_total",
		Help: "Payment provider webhook events by type and outcome.",
	}, []string{"type", "outcome"})

	// Scans считает запуски сканера по исходу: ok, failed.
	Scans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitemechanic_scans_total",
		Help: "Site scans by outcome.",
	}, []string{"outcome"})
)
