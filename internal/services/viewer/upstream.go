package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sensorgrid/telemetry-relay/internal/model"
	"github.com/sensorgrid/telemetry-relay/internal/services/auth"
	"github.com/sensorgrid/telemetry-relay/internal/services/history"
)

// ErrUnauthorized marks a credential the server rejected. It is terminal
// for the session: the token is discarded and never retried.
var ErrUnauthorized = errors.New("credential rejected")

// Upstream is the session's REST client for the relay's authorize and
// history endpoints, each behind its own circuit breaker so a flapping
// endpoint fails fast instead of stacking timeouts.
type Upstream struct {
	http    *http.Client
	baseURL string

	authCB *gobreaker.CircuitBreaker
	histCB *gobreaker.CircuitBreaker
}

func NewUpstream(baseURL string, timeout time.Duration) *Upstream {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	mkCB := func(name string) *gobreaker.CircuitBreaker {
		return gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     name,
			Interval: 30 * time.Second,
			Timeout:  10 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		})
	}
	return &Upstream{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		authCB:  mkCB("authorize"),
		histCB:  mkCB("sensor-history"),
	}
}

// Authorize presents the bearer credential. A deny is reported as granted
// false with no error: it is a valid answer and must not trip the breaker.
func (u *Upstream) Authorize(ctx context.Context, token string) (bool, error) {
	res, err := u.authCB.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/api/authorize", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := u.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusOK:
			var body struct {
				Success bool   `json:"success"`
				Data    string `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return nil, err
			}
			return body.Success && body.Data == auth.Grant, nil
		case resp.StatusCode == http.StatusUnauthorized:
			return false, nil
		default:
			return nil, fmt.Errorf("GET /api/authorize -> %s", resp.Status)
		}
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

// History performs the one-shot hydration fetch, oldest first.
func (u *Upstream) History(ctx context.Context, limit int) ([]model.Reading, error) {
	limit = history.ClampLimit(limit)
	res, err := u.histCB.Execute(func() (any, error) {
		url := fmt.Sprintf("%s/api/sensor-history?limit=%d", u.baseURL, limit)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := u.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("GET /api/sensor-history -> %s", resp.Status)
		}
		var body struct {
			Success bool              `json:"success"`
			Data    []json.RawMessage `json:"data"`
			Error   string            `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, err
		}
		if !body.Success {
			return nil, fmt.Errorf("sensor-history: %s", body.Error)
		}
		out := make([]model.Reading, 0, len(body.Data))
		for _, raw := range body.Data {
			r, err := model.UnmarshalFrame(raw)
			if err != nil {
				continue // skip frames this client does not understand
			}
			out = append(out, *r)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]model.Reading), nil
}
