package hub

import (
	"log"
	"sync"

	"github.com/sensorgrid/telemetry-relay/internal/model"
)

// Role tags a connection's part in the fan-out. Only viewers receive the
// stream; a relay connection is a message source and never a recipient.
type Role string

const (
	RoleViewer Role = "VIEWER"
	RoleRelay  Role = "RAW_RELAY"
)

// Conn is one live socket from the hub's point of view. Send is a single
// best-effort attempt; the hub never retries a failed delivery.
type Conn interface {
	ID() string
	Send(payload []byte) error
	Close() error
}

// Hub owns the registry of subscribed viewer connections. The registry is
// private and every mutation or iteration happens under one mutex, so a
// connection mid-removal is never sent to and a publish never observes a
// torn registry. Publishes therefore reach all viewers in append order.
type Hub struct {
	mu      sync.Mutex
	viewers map[string]Conn
}

func New() *Hub {
	return &Hub{viewers: make(map[string]Conn)}
}

// Register adds the connection to the recipient set if it is a viewer.
// Relay-role connections are tracked nowhere: they only inject payloads.
func (h *Hub) Register(c Conn, role Role) {
	if role != RoleViewer {
		return
	}
	h.mu.Lock()
	h.viewers[c.ID()] = c
	n := len(h.viewers)
	h.mu.Unlock()
	connectedViewers.Set(float64(n))
	log.Printf("hub: viewer %s registered (%d connected)", c.ID(), n)
}

// Unregister removes a connection; it is safe to call for connections that
// were never registered or already removed.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	_, ok := h.viewers[c.ID()]
	if ok {
		delete(h.viewers, c.ID())
	}
	n := len(h.viewers)
	h.mu.Unlock()
	if ok {
		connectedViewers.Set(float64(n))
		log.Printf("hub: viewer %s unregistered (%d connected)", c.ID(), n)
	}
}

// Publish serializes the reading once and attempts delivery to every
// registered viewer. A send failure is logged and unregisters that viewer
// without affecting delivery to the rest.
func (h *Hub) Publish(r *model.Reading) {
	frame, err := r.MarshalFrame()
	if err != nil {
		log.Printf("hub: marshal reading seq=%d: %v", r.Seq, err)
		return
	}
	h.broadcast(frame)
}

// RelayRaw forwards an already-serialized payload to all viewers. This is
// the secondary ingress for relay-role connections and bypasses both
// validation and persistence.
func (h *Hub) RelayRaw(payload []byte) {
	h.broadcast(payload)
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.viewers {
		if err := c.Send(payload); err != nil {
			log.Printf("hub: send to viewer %s failed, removing: %v", id, err)
			delete(h.viewers, id)
			_ = c.Close()
			deliveryFailures.Inc()
			continue
		}
		deliveries.Inc()
	}
	connectedViewers.Set(float64(len(h.viewers)))
}

// ViewerCount reports the current size of the recipient set.
func (h *Hub) ViewerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}
