package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/sensorgrid/telemetry-relay/internal/model"
	"github.com/sensorgrid/telemetry-relay/internal/services/alert"
)

// State is the session lifecycle position. Closed is terminal.
type State string

const (
	StateUnauthenticated State = "UNAUTHENTICATED"
	StateAuthorizing     State = "AUTHORIZING"
	StateSubscribing     State = "SUBSCRIBING"
	StateSubscribed      State = "SUBSCRIBED"
	StateClosed          State = "CLOSED"
)

// Update is delivered to the session owner on every new reading: the
// reading plus its freshly computed classification. Exactly one of the two
// classification pointers is set, matching the reading's variant.
type Update struct {
	Reading       model.Reading
	Structural    *alert.StructuralClassification
	Environmental *alert.EnvironmentalClassification
}

// Config wires a Session.
type Config struct {
	// ServerURL is the relay's HTTP base, e.g. http://localhost:5000.
	ServerURL string
	// SocketURL is the live channel, e.g. ws://localhost:5000/ws.
	SocketURL string
	Token     string
	OnUpdate  func(Update)
	// GraceDelay is how long a denied session lingers before teardown so
	// the error can be surfaced. Defaults to 3s, the dashboard's delay.
	GraceDelay time.Duration
	// HTTPTimeout bounds each authorize/history request.
	HTTPTimeout time.Duration
}

// Session is one viewer connection's state machine: authorize, hydrate the
// last 100 readings, subscribe to the live stream, and re-evaluate the
// alert engine on every frame. Reconnects use capped exponential backoff
// and replay the whole sequence; a rejected credential ends the session.
type Session struct {
	upstream *Upstream
	dialer   *websocket.Dialer

	socketURL  string
	token      string
	onUpdate   func(Update)
	graceDelay time.Duration

	window *Window

	mu    sync.RWMutex
	state State
}

func NewSession(cfg Config) *Session {
	grace := cfg.GraceDelay
	if grace <= 0 {
		grace = 3 * time.Second
	}
	return &Session{
		upstream:   NewUpstream(cfg.ServerURL, cfg.HTTPTimeout),
		dialer:     websocket.DefaultDialer,
		socketURL:  cfg.SocketURL,
		token:      cfg.Token,
		onUpdate:   cfg.OnUpdate,
		graceDelay: grace,
		window:     NewWindow(WindowSize),
		state:      StateUnauthenticated,
	}
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Window exposes the rolling history for rendering.
func (s *Session) Window() *Window { return s.window }

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Run drives the session until the context is cancelled, the credential is
// rejected, or the reconnect budget is exhausted. Each attempt replays
// authorize → hydrate → handshake: the live stream is best-effort, so
// readings missed while disconnected are only recoverable from history.
func (s *Session) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		err := s.connectAndStream(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrUnauthorized) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		log.Printf("viewer: connection lost, will reconnect: %v", err)
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, 9), ctx))

	s.setState(StateClosed)
	if err != nil && ctx.Err() != nil {
		return nil // explicit teardown, not a failure
	}
	return err
}

func (s *Session) connectAndStream(ctx context.Context) error {
	s.setState(StateAuthorizing)

	granted, err := s.upstream.Authorize(ctx, s.token)
	if err != nil {
		return err
	}
	if !granted {
		// credential discarded, session lingers only to surface the error
		s.token = ""
		log.Printf("viewer: not authorized, closing session")
		select {
		case <-time.After(s.graceDelay):
		case <-ctx.Done():
		}
		return ErrUnauthorized
	}

	s.setState(StateSubscribing)

	readings, err := s.upstream.History(ctx, WindowSize)
	if err != nil {
		return err
	}
	s.window.Reset(readings)
	if latest, ok := s.window.Latest(); ok {
		s.deliver(latest)
	}

	conn, _, err := s.dialer.DialContext(ctx, s.socketURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "CLIENT"}); err != nil {
		return err
	}

	s.setState(StateSubscribed)
	log.Printf("viewer: subscribed with %d readings of history", s.window.Len())

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		reading, err := model.UnmarshalFrame(message)
		if err != nil {
			log.Printf("viewer: unparseable frame: %v", err)
			continue
		}
		s.window.Append(*reading)
		s.deliver(*reading)
	}
}

// deliver recomputes the classification for the latest reading and hands
// both to the owner. Evaluation is synchronous and stateless.
func (s *Session) deliver(r model.Reading) {
	if s.onUpdate == nil {
		return
	}
	u := Update{Reading: r}
	if st := r.Structural; st != nil {
		c := alert.EvaluateStructural(st)
		u.Structural = &c
	} else if e := r.Environmental; e != nil {
		c := alert.EvaluateEnvironmental(e)
		u.Environmental = &c
	}
	s.onUpdate(u)
}

// Describe renders a frame for logs; used by the headless viewer binary.
func Describe(u Update) string {
	b, _ := json.Marshal(struct {
		Device string `json:"device"`
		Danger bool   `json:"danger"`
	}{
		Device: u.Reading.DeviceID,
		Danger: (u.Structural != nil && u.Structural.Danger) ||
			(u.Environmental != nil && u.Environmental.Danger),
	})
	return string(b)
}
