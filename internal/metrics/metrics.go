// Package metrics exposes Prometheus instrumentation for the simulation
// engine and the HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicksTotal counts scheduler ticks executed
	TicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridwatch_ticks_total",
			Help: "Total number of simulation ticks executed",
		},
	)

	// SamplesGenerated counts telemetry samples synthesized
	SamplesGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridwatch_samples_generated_total",
			Help: "Total number of telemetry samples synthesized",
		},
	)

	// AlertsEmitted counts voltage breach alerts raised
	AlertsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridwatch_alerts_emitted_total",
			Help: "Total number of voltage alerts emitted",
		},
	)

	// AlertPersistFailures counts swallowed persistence errors
	AlertPersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridwatch_alert_persist_failures_total",
			Help: "Total number of best-effort alert persistence failures",
		},
	)

	// SnapshotLoadFailures counts failed device/alert snapshot loads
	SnapshotLoadFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridwatch_snapshot_load_failures_total",
			Help: "Total number of failed external snapshot loads",
		},
	)

	// ActiveSubscribers tracks subscribers across all three channels
	ActiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gridwatch_active_subscribers",
			Help: "Current number of engine subscribers across all channels",
		},
	)

	// OnlineDevices tracks the derived online device count
	OnlineDevices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gridwatch_online_devices",
			Help: "Devices whose status is Online in the current snapshot",
		},
	)

	// RequestsTotal counts HTTP requests by route and status
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridwatch_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"path", "method", "status"},
	)
)
