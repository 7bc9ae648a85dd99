package relay

import (
	"context"
	"log"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sensorgrid/telemetry-relay/internal/services/auth"
	"github.com/sensorgrid/telemetry-relay/internal/services/history"
	"github.com/sensorgrid/telemetry-relay/internal/services/hub"
	"github.com/sensorgrid/telemetry-relay/internal/services/ingest"
	"github.com/sensorgrid/telemetry-relay/pkg/mqttbus"
)

// App assembles the relay: MQTT ingestion into the store and hub, plus the
// viewer-facing HTTP surface (history, authorize, live channel, health,
// metrics).
type App struct {
	ingest *ingest.Service
	hub    *hub.Hub
	mux    *http.ServeMux
}

func NewApp(mqttClient mqtt.Client, topics []string, store history.Store, verifier auth.Verifier) *App {
	h := hub.New()
	var consumer mqttbus.IConsumer
	if len(topics) == 1 {
		consumer = mqttbus.NewConsumer(mqttClient, topics[0], nil)
	} else {
		consumer = mqttbus.NewMultiConsumer(mqttClient, topics, nil)
	}
	svc := ingest.NewService(consumer, store, h)

	mux := http.NewServeMux()
	mux.Handle("/api/sensor-history", history.NewHandler(store))
	mux.Handle("/api/authorize", auth.NewHandler(verifier))
	mux.Handle("/ws", hub.NewSocketHandler(h))
	mux.Handle("/healthz", ingest.NewHealthHandler(mqttClient, svc))
	mux.Handle("/readyz", ingest.NewReadyHandler(mqttClient, svc, 30*time.Second))
	mux.Handle("/metrics", promhttp.Handler())

	return &App{ingest: svc, hub: h, mux: mux}
}

// Hub exposes the broadcast hub (the simulator tests and tooling use it).
func (a *App) Hub() *hub.Hub { return a.hub }

// Handler is the assembled HTTP surface.
func (a *App) Handler() http.Handler { return a.mux }

// Run starts the ingest loop and serves HTTP until ctx is cancelled, then
// shuts the server down gracefully.
func (a *App) Run(ctx context.Context, addr string) error {
	go a.ingest.Start(ctx)

	srv := &http.Server{Addr: addr, Handler: a.mux}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("relay listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
