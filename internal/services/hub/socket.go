package hub

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The live channel is guarded by the bearer-token authorize step, not
	// by origin; dashboards and sensor bridges connect from anywhere.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handshake is the first (and only) inbound frame shape the live channel
// understands. CLIENT registers a viewer; SENSOR relays raw sensor data.
type handshake struct {
	Type       string          `json:"type"`
	SensorData json.RawMessage `json:"sensorData"`
}

// wsConn adapts a gorilla connection to the hub's Conn interface. Writes
// are serialized by a mutex because the hub's broadcast and the keepalive
// ticker both touch the socket.
type wsConn struct {
	id   string
	conn *websocket.Conn

	writeMu sync.Mutex
	closed  bool
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *wsConn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (c *wsConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// NewSocketHandler upgrades HTTP requests into live-channel connections and
// runs the read loop. A connection starts unregistered; the CLIENT
// handshake adds it to the broadcast set, SENSOR frames are relayed to all
// viewers, and unparseable frames are logged without closing the socket.
func NewSocketHandler(h *Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ws: upgrade failed: %v", err)
			return
		}
		c := &wsConn{id: uuid.NewString(), conn: ws}
		log.Printf("ws: connection %s opened from %s", c.id, ws.RemoteAddr())

		go keepalive(c)
		go readLoop(h, c)
	})
}

func keepalive(c *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		if err := c.ping(); err != nil {
			return
		}
	}
}

func readLoop(h *Hub, c *wsConn) {
	defer func() {
		h.Unregister(c)
		_ = c.Close()
		log.Printf("ws: connection %s closed", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: read error on %s: %v", c.id, err)
			}
			return
		}

		var hs handshake
		if err := json.Unmarshal(message, &hs); err != nil {
			// protocol error: log and keep the connection open
			log.Printf("ws: unparseable frame on %s: %v", c.id, err)
			continue
		}

		switch hs.Type {
		case "CLIENT":
			h.Register(c, RoleViewer)
		case "SENSOR":
			if len(hs.SensorData) > 0 {
				h.RelayRaw(hs.SensorData)
			}
		default:
			log.Printf("ws: unknown frame type %q on %s", hs.Type, c.id)
		}
	}
}
