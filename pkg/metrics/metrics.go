package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Load balancer connection metrics
var (
	ConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "microservices_lb_connections_total",
			Help: "Total number of client connections accepted",
		},
	)

	ConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "microservices_lb_connections_current",
			Help: "Current number of active client connections",
		},
	)

	ConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microservices_lb_connections_rejected_total",
			Help: "Total number of client connections closed without relaying",
		},
		[]string{"reason"},
	)

	BytesThroughput = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microservices_lb_bytes_total",
			Help: "Total bytes relayed between clients and backends",
		},
		[]string{"direction"},
	)

	ConnectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "microservices_lb_connection_duration_seconds",
			Help:    "Duration of relayed connections in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Backend pool metrics
var (
	BackendsHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "microservices_lb_backends_healthy",
			Help: "Number of backends currently passing health checks",
		},
	)

	BackendSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microservices_lb_backend_selections_total",
			Help: "Total number of times each backend was selected",
		},
		[]string{"backend"},
	)

	HealthProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microservices_lb_health_probes_total",
			Help: "Total number of health probes by result",
		},
		[]string{"backend", "result"},
	)
)

// Email delivery metrics
var (
	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microservices_emails_sent_total",
			Help: "Total number of emails sent successfully",
		},
		[]string{"category"},
	)

	EmailsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microservices_emails_failed_total",
			Help: "Total number of email delivery failures",
		},
		[]string{"category", "kind"},
	)

	EmailDeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "microservices_email_delivery_duration_seconds",
			Help:    "Duration of SMTP delivery attempts in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
	)
)
