package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sensorgrid/telemetry-relay/internal/model"
)

type recordingStore struct {
	lastLimit int
	readings  []model.Reading
	fail      error
}

func (s *recordingStore) Append(_ context.Context, r *model.Reading) (int64, error) {
	return 0, nil
}

func (s *recordingStore) Recent(_ context.Context, limit int) ([]model.Reading, error) {
	s.lastLimit = limit
	if s.fail != nil {
		return nil, s.fail
	}
	return s.readings, nil
}

func TestHistoryHandlerSuccessEnvelope(t *testing.T) {
	r := structuralReading("n1", time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	r.Seq = 7
	store := &recordingStore{readings: []model.Reading{*r}}

	rec := httptest.NewRecorder()
	NewHandler(store).ServeHTTP(rec, httptest.NewRequest("GET", "/api/sensor-history?limit=50", nil))

	if rec.Code != 200 {
		t.Fatalf("status: %d", rec.Code)
	}
	if store.lastLimit != 50 {
		t.Fatalf("limit passed through: got %d", store.lastLimit)
	}
	var body struct {
		Success bool `json:"success"`
		Data    []struct {
			Seq      int64  `json:"seq"`
			SensorID string `json:"sensorId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || len(body.Data) != 1 {
		t.Fatalf("envelope: %s", rec.Body.String())
	}
	if body.Data[0].Seq != 7 || body.Data[0].SensorID != "n1" {
		t.Fatalf("frame: %+v", body.Data[0])
	}
}

func TestHistoryHandlerClampsLimit(t *testing.T) {
	store := &recordingStore{}
	h := NewHandler(store)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/sensor-history?limit=9999", nil))
	if store.lastLimit != MaxLimit {
		t.Fatalf("limit above cap should clamp to %d, got %d", MaxLimit, store.lastLimit)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/sensor-history?limit=-1", nil))
	if store.lastLimit != DefaultLimit {
		t.Fatalf("non-positive limit should fall back to %d, got %d", DefaultLimit, store.lastLimit)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/sensor-history", nil))
	if store.lastLimit != DefaultLimit {
		t.Fatalf("missing limit should default to %d, got %d", DefaultLimit, store.lastLimit)
	}
}

func TestHistoryHandlerStoreFailure(t *testing.T) {
	store := &recordingStore{fail: errors.New("query timeout")}

	rec := httptest.NewRecorder()
	NewHandler(store).ServeHTTP(rec, httptest.NewRequest("GET", "/api/sensor-history", nil))

	if rec.Code != 500 {
		t.Fatalf("status: %d", rec.Code)
	}
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Error == "" {
		t.Fatalf("failure envelope: %s", rec.Body.String())
	}
}
