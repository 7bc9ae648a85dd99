package main

import (
	"context"
	"log"
	"net"
	"os/signal"
	"syscall"

	"github.com/sensorgrid/telemetry-relay/internal/services/auth"
	"github.com/sensorgrid/telemetry-relay/internal/services/history"
	"github.com/sensorgrid/telemetry-relay/internal/services/relay"
	"github.com/sensorgrid/telemetry-relay/pkg/mqttbus"
)

func main() {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := mqttbus.NewBrokerConn(&mqttbus.BrokerConfig{
		Host:     cfg.MQTTHost,
		Port:     cfg.MQTTPort,
		User:     cfg.MQTTUser,
		Password: cfg.MQTTPassword,
		ClientID: cfg.MQTTClientID,
	}, ctx)
	if err != nil {
		log.Fatalf("mqtt: %v", err)
	}
	defer mqttbus.CloseBrokerConn(client)

	var store history.Store
	if cfg.InfluxURL != "" {
		influx, err := history.NewInfluxStore(history.InfluxConfig{
			URL:    cfg.InfluxURL,
			Token:  cfg.InfluxToken,
			Org:    cfg.InfluxOrg,
			Bucket: cfg.InfluxBucket,
		})
		if err != nil {
			log.Fatalf("influx: %v", err)
		}
		store = influx
		log.Printf("history: influx store at %s bucket=%s", cfg.InfluxURL, cfg.InfluxBucket)
	} else {
		store = history.NewMemoryStore()
		log.Printf("history: in-memory store")
	}

	if cfg.AuthToken == "" {
		log.Printf("WARNING: AUTH_TOKEN not set, all viewers will be denied")
	}
	verifier := auth.NewStaticVerifier(cfg.AuthToken)

	app := relay.NewApp(client, cfg.MQTTTopics, store, verifier)
	if err := app.Run(ctx, net.JoinHostPort(cfg.Host, cfg.Port)); err != nil {
		log.Fatalf("relay: %v", err)
	}
}
