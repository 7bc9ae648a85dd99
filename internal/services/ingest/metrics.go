package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	readingsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_readings_ingested_total",
		Help: "Readings validated, persisted and handed to the broadcast hub.",
	}, []string{"variant"})
	validationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_validation_failures_total",
		Help: "Upstream payloads rejected by the validator.",
	})
	persistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_persist_failures_total",
		Help: "Store append failures; these readings were never broadcast.",
	})
)
