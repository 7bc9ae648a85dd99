package sensor_simulator

import (
	"context"
	"log"
	"time"

	"github.com/sensorgrid/telemetry-relay/pkg/mqttbus"
)

// Simulator publishes generated telemetry to the ingest topic at a fixed
// interval until the context is cancelled.
type Simulator struct {
	generator *Generator
	publisher mqttbus.IPublisher
}

func NewSimulator(publisher mqttbus.IPublisher, gen *Generator) *Simulator {
	return &Simulator{
		generator: gen,
		publisher: publisher,
	}
}

func (s *Simulator) Start(ctx context.Context, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			s.publisher.Close()
			return
		case <-time.After(interval):
			payload, err := s.generator.Next(time.Now())
			if err != nil {
				log.Printf("data gen error: %v", err)
				continue
			}
			if err := s.publisher.PublishMessage(string(payload)); err != nil {
				log.Printf("publish error: %v", err)
			}
		}
	}
}
