// Package metrics declares the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	InquirySubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inquiry_submissions_total",
			Help: "Contact form submissions by result",
		},
		[]string{"result"},
	)

	RealtimeEventsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_relayed_total",
			Help: "Inquiry change events relayed to WebSocket clients",
		},
		[]string{"type"},
	)

	RealtimeClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_clients",
			Help: "Connected realtime WebSocket clients",
		},
	)

	RealtimeClientsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_clients_dropped_total",
			Help: "WebSocket clients dropped for falling behind",
		},
	)

	RealtimeSourceReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_source_reconnects_total",
			Help: "Change source resubscriptions by failure kind",
		},
		[]string{"reason"},
	)

	AlertFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inquiry_alert_failures_total",
			Help: "New-inquiry alerts that could not be delivered",
		},
		[]string{"channel"},
	)
)
