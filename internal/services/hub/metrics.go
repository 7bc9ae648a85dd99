package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectedViewers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connected_viewers",
		Help: "Viewer connections currently registered for broadcast.",
	})
	deliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_deliveries_total",
		Help: "Successful per-viewer frame deliveries.",
	})
	deliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_delivery_failures_total",
		Help: "Per-viewer send failures that caused an unregister.",
	})
)
