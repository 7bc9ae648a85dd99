package ingest

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func validStructuralPayload() string {
	return `{
		"sensor_id": "shm-node-alpha-01",
		"location": "beam-section-4F",
		"timestamp": "2026-03-14T09:00:00Z",
		"telemetry": {
			"vibration_x": 0.01,
			"vibration_y": -0.02,
			"vibration_z": 1.01,
			"temperature_c": 28.5,
			"humidity_percent": 61.2
		},
		"device_health": {"battery_v": 3.72, "error_code": 0}
	}`
}

func TestValidateStructuralAccepted(t *testing.T) {
	reading, reasons := Validate([]byte(validStructuralPayload()), fixedNow)
	if reasons != nil {
		t.Fatalf("expected acceptance, got reasons: %v", reasons)
	}
	if !reading.IsStructural() {
		t.Fatalf("expected structural variant")
	}
	if reading.DeviceID != "shm-node-alpha-01" {
		t.Fatalf("device id: got %q", reading.DeviceID)
	}
	s := reading.Structural
	if math.Abs(s.VibrationZ-1.01) > 1e-9 || math.Abs(s.TemperatureC-28.5) > 1e-9 {
		t.Fatalf("fields not preserved: %+v", s)
	}
	want := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	if !reading.Timestamp.Equal(want) {
		t.Fatalf("timestamp: got %s want %s", reading.Timestamp, want)
	}
}

func TestValidateReportsAllMissingFields(t *testing.T) {
	_, reasons := Validate([]byte(`{"telemetry": {}}`), fixedNow)
	if reasons == nil {
		t.Fatalf("expected rejection")
	}
	joined := strings.Join(reasons, "\n")
	for _, want := range []string{
		"sensor_id", "location",
		"vibration_x", "vibration_y", "vibration_z",
		"temperature_c", "humidity_percent",
		"battery_v", "error_code",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing reason for %s in %v", want, reasons)
		}
	}
}

func TestValidateNumericCoercion(t *testing.T) {
	payload := `{
		"sensor_id": "n1", "location": "l1",
		"telemetry": {
			"vibration_x": "0.1", "vibration_y": "0.0", "vibration_z": "1.0",
			"temperature_c": "25", "humidity_percent": "50"
		},
		"device_health": {"battery_v": "3.8", "error_code": 0}
	}`
	reading, reasons := Validate([]byte(payload), fixedNow)
	if reasons != nil {
		t.Fatalf("numeric strings should coerce, got: %v", reasons)
	}
	if math.Abs(reading.Structural.VibrationX-0.1) > 1e-9 {
		t.Fatalf("coerced vibration_x: %v", reading.Structural.VibrationX)
	}
}

func TestValidateRejectsNaNAndInfinity(t *testing.T) {
	for _, bad := range []string{`"NaN"`, `"Infinity"`, `"-Inf"`} {
		payload := fmt.Sprintf(`{
			"sensor_id": "n1", "location": "l1",
			"telemetry": {
				"vibration_x": %s, "vibration_y": 0, "vibration_z": 1,
				"temperature_c": 25, "humidity_percent": 50
			},
			"device_health": {"battery_v": 3.8, "error_code": 0}
		}`, bad)
		if _, reasons := Validate([]byte(payload), fixedNow); reasons == nil {
			t.Fatalf("vibration_x=%s should be rejected", bad)
		}
	}
}

func TestValidateRangeChecks(t *testing.T) {
	cases := []struct {
		field string
		value string
	}{
		{"vibration_x", "51"},
		{"vibration_y", "-50.1"},
		{"temperature_c", "201"},
		{"humidity_percent", "101"},
	}
	for _, c := range cases {
		payload := fmt.Sprintf(`{
			"sensor_id": "n1", "location": "l1",
			"telemetry": {
				"vibration_x": 0, "vibration_y": 0, "vibration_z": 1,
				"temperature_c": 25, "humidity_percent": 50,
				%q: %s
			},
			"device_health": {"battery_v": 3.8, "error_code": 0}
		}`, c.field, c.value)
		_, reasons := Validate([]byte(payload), fixedNow)
		if reasons == nil {
			t.Fatalf("%s=%s should be out of range", c.field, c.value)
		}
	}
}

func TestValidateTimestampDefaultsToIngestionTime(t *testing.T) {
	payload := `{
		"sensor_id": "n1", "location": "l1",
		"telemetry": {
			"vibration_x": 0, "vibration_y": 0, "vibration_z": 1,
			"temperature_c": 25, "humidity_percent": 50
		},
		"device_health": {"battery_v": 3.8, "error_code": 0}
	}`
	reading, reasons := Validate([]byte(payload), fixedNow)
	if reasons != nil {
		t.Fatalf("unexpected rejection: %v", reasons)
	}
	if !reading.Timestamp.Equal(fixedNow) {
		t.Fatalf("absent timestamp should default to ingestion time, got %s", reading.Timestamp)
	}
}

func TestValidateInvalidTimestampIsRejected(t *testing.T) {
	payload := `{
		"sensor_id": "n1", "location": "l1",
		"timestamp": "not-a-date",
		"telemetry": {
			"vibration_x": 0, "vibration_y": 0, "vibration_z": 1,
			"temperature_c": 25, "humidity_percent": 50
		},
		"device_health": {"battery_v": 3.8, "error_code": 0}
	}`
	if _, reasons := Validate([]byte(payload), fixedNow); reasons == nil {
		t.Fatalf("invalid timestamp must be a validation failure, not a silent default")
	}
}

func TestValidateEnvironmentalAccepted(t *testing.T) {
	payload := `{"deviceId":"MakerFeatherS3_01","temp":29.1,"humid":58.0,"soil":2400,"rain":4010,"pump":"OFF"}`
	reading, reasons := Validate([]byte(payload), fixedNow)
	if reasons != nil {
		t.Fatalf("expected acceptance, got: %v", reasons)
	}
	if reading.IsStructural() {
		t.Fatalf("expected environmental variant")
	}
	e := reading.Environmental
	if e.PumpState != "OFF" || math.Abs(e.SoilMoisture-2400) > 1e-9 {
		t.Fatalf("fields not preserved: %+v", e)
	}
}

func TestValidateRejectsUnknownShape(t *testing.T) {
	_, reasons := Validate([]byte(`{"foo": 1}`), fixedNow)
	if reasons == nil {
		t.Fatalf("payload matching neither variant must be rejected")
	}
	if len(reasons) < 2 {
		t.Fatalf("rejection should name both variants' requirements: %v", reasons)
	}
}

func TestValidateRejectsBadPump(t *testing.T) {
	payload := `{"deviceId":"d1","temp":20,"humid":60,"soil":2000,"rain":4100,"pump":"MAYBE"}`
	if _, reasons := Validate([]byte(payload), fixedNow); reasons == nil {
		t.Fatalf("pump=MAYBE should be rejected")
	}
}
