package ingest

import (
	"encoding/json"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type healthHandler struct {
	mqtt mqtt.Client
	svc  *Service
}

// NewHealthHandler serves /healthz: MQTT connection state plus the age of
// the last store append failure.
func NewHealthHandler(m mqtt.Client, svc *Service) http.Handler {
	return &healthHandler{mqtt: m, svc: svc}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	type status struct {
		Status           string  `json:"status"`
		MQTTConnected    bool    `json:"mqtt_connected"`
		LastAppendErrorS float64 `json:"last_append_error_age_sec"`
	}
	st := status{
		MQTTConnected:    h.mqtt != nil && h.mqtt.IsConnectionOpen(),
		LastAppendErrorS: h.svc.LastAppendErrorAge().Seconds(),
	}

	if st.MQTTConnected && h.svc.LastAppendErrorAge() > 30*time.Second {
		st.Status = "ok"
	} else if st.MQTTConnected {
		st.Status = "degraded"
	} else {
		st.Status = "down"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

type readyHandler struct {
	mqtt     mqtt.Client
	svc      *Service
	minError time.Duration
}

// NewReadyHandler serves /readyz: 200 only while all dependencies are ok.
func NewReadyHandler(m mqtt.Client, svc *Service, minOkErrorAge time.Duration) http.Handler {
	return &readyHandler{mqtt: m, svc: svc, minError: minOkErrorAge}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	ready := h.mqtt != nil && h.mqtt.IsConnectionOpen() && h.svc.LastAppendErrorAge() > h.minError
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	w.Header().Set("Content-Type", "application/json")
	type resp struct {
		Ready bool `json:"ready"`
	}
	_ = json.NewEncoder(w).Encode(resp{Ready: ready})
}
