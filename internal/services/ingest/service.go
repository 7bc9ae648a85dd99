package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sensorgrid/telemetry-relay/internal/model"
	"github.com/sensorgrid/telemetry-relay/internal/services/history"
	"github.com/sensorgrid/telemetry-relay/pkg/dedup"
	"github.com/sensorgrid/telemetry-relay/pkg/mqttbus"
)

// Broadcaster fans a persisted reading out to the live viewers.
type Broadcaster interface {
	Publish(r *model.Reading)
}

// Service consumes the upstream telemetry topic and drives each message
// through validate → append → broadcast. A reading is only broadcast after
// it was persisted; an append failure skips the broadcast entirely.
type Service struct {
	consumer mqttbus.IConsumer
	store    history.Store
	hub      Broadcaster
	deduper  *dedup.Deduper
	now      func() time.Time

	mu      sync.RWMutex
	lastErr time.Time
}

func NewService(consumer mqttbus.IConsumer, store history.Store, hub Broadcaster) *Service {
	return &Service{
		consumer: consumer,
		store:    store,
		hub:      hub,
		deduper:  dedup.New(2*time.Minute, 10000),
		now:      time.Now,
		lastErr:  time.Now().Add(-24 * time.Hour),
	}
}

// Start injects the handler and blocks on the consume loop until ctx is
// cancelled.
func (s *Service) Start(ctx context.Context) {
	s.consumer.SetHandler(s.messageHandler)
	s.consumer.ConsumeMessage(ctx)
}

func (s *Service) messageHandler(topic string, msg mqtt.Message) error {
	return s.ingest(topic, msg.Payload())
}

func (s *Service) ingest(topic string, payload []byte) error {
	// QoS 1 redelivery carries the same payload, so the hash dedups it
	h := sha256.Sum256(payload)
	if !s.deduper.ShouldProcess(hex.EncodeToString(h[:])) {
		return nil
	}

	reading, reasons := Validate(payload, s.now())
	if reasons != nil {
		validationFailures.Inc()
		log.Printf("ingest: payload on %s failed validation: %s; raw: %s",
			topic, strings.Join(reasons, "; "), payload)
		return nil // drop, do not stall the stream
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seq, err := s.store.Append(ctx, reading)
	if err != nil {
		persistFailures.Inc()
		s.markAppendError()
		log.Printf("ingest: append failed, broadcast skipped: %v; device=%s ts=%s",
			err, reading.DeviceID, reading.Timestamp.Format(time.RFC3339))
		return err
	}
	reading.Seq = seq

	s.hub.Publish(reading)
	readingsIngested.WithLabelValues(variantLabel(reading)).Inc()
	return nil
}

func variantLabel(r *model.Reading) string {
	if r.IsStructural() {
		return "structural"
	}
	return "environmental"
}

func (s *Service) markAppendError() {
	s.mu.Lock()
	s.lastErr = time.Now()
	s.mu.Unlock()
}

// LastAppendErrorAge reports how long the store has gone without an append
// failure; the health endpoints treat a recent failure as degraded.
func (s *Service) LastAppendErrorAge() time.Duration {
	s.mu.RLock()
	t := s.lastErr
	s.mu.RUnlock()
	return time.Since(t)
}
