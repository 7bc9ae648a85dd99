package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sensorgrid/telemetry-relay/internal/model"
)

// Validate turns a raw upstream payload into a typed Reading or a list of
// human-readable rejection reasons. It never returns both. All field errors
// are collected so one log line is enough to fix a broken publisher.
//
// Variant selection: a nested "telemetry" object marks the structural shape;
// otherwise the environmental field set is expected. A payload matching
// neither is rejected with both sets' missing-field reasons.
func Validate(raw []byte, now time.Time) (*model.Reading, []string) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, []string{"payload must be a JSON object"}
	}
	if payload == nil {
		return nil, []string{"payload must be a JSON object"}
	}

	if _, ok := payload["telemetry"]; ok {
		return validateStructural(payload, now)
	}
	if hasAny(payload, "deviceId", "temp", "humid", "soil", "rain", "pump") {
		return validateEnvironmental(payload, now)
	}
	return nil, []string{
		"payload matches no known variant",
		"structural readings require sensor_id, location, telemetry and device_health",
		"environmental readings require deviceId, temp, humid, soil, rain and pump",
	}
}

func validateStructural(payload map[string]interface{}, now time.Time) (*model.Reading, []string) {
	var errs []string

	sensorID, ok := str(payload["sensor_id"])
	if !ok || sensorID == "" || len(sensorID) > model.MaxIDLength {
		errs = append(errs, "sensor_id is required and must be a string <= 128 chars")
	}
	location, ok := str(payload["location"])
	if !ok || location == "" || len(location) > model.MaxIDLength {
		errs = append(errs, "location is required and must be a string <= 128 chars")
	}

	telemetry := object(payload["telemetry"])
	health := object(payload["device_health"])

	vx, okX := num(telemetry["vibration_x"])
	if !okX || math.Abs(vx) > 50 {
		errs = append(errs, "vibration_x must be a finite number within [-50,50]")
	}
	vy, okY := num(telemetry["vibration_y"])
	if !okY || math.Abs(vy) > 50 {
		errs = append(errs, "vibration_y must be a finite number within [-50,50]")
	}
	vz, okZ := num(telemetry["vibration_z"])
	if !okZ || math.Abs(vz) > 50 {
		errs = append(errs, "vibration_z must be a finite number within [-50,50]")
	}
	temp, okT := num(telemetry["temperature_c"])
	if !okT || temp < -100 || temp > 200 {
		errs = append(errs, "temperature_c must be a finite number within [-100,200]")
	}
	hum, okH := num(telemetry["humidity_percent"])
	if !okH || hum < 0 || hum > 100 {
		errs = append(errs, "humidity_percent must be a finite number within [0,100]")
	}
	batt, okB := num(health["battery_v"])
	if !okB || batt < 0 || batt > 20 {
		errs = append(errs, "battery_v must be a finite number within [0,20]")
	}
	errCode, okE := num(health["error_code"])
	if !okE || errCode < 0 || errCode != math.Trunc(errCode) {
		errs = append(errs, "error_code must be a non-negative integer")
	}

	ts, tsErr := timestampOrDefault(payload["timestamp"], now)
	if tsErr != "" {
		errs = append(errs, tsErr)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return &model.Reading{
		DeviceID:  strings.TrimSpace(sensorID),
		Timestamp: ts,
		Structural: &model.Structural{
			Location:        strings.TrimSpace(location),
			VibrationX:      vx,
			VibrationY:      vy,
			VibrationZ:      vz,
			TemperatureC:    temp,
			HumidityPercent: hum,
			BatteryVoltage:  batt,
			ErrorCode:       int(errCode),
		},
	}, nil
}

func validateEnvironmental(payload map[string]interface{}, now time.Time) (*model.Reading, []string) {
	var errs []string

	deviceID, ok := str(payload["deviceId"])
	if !ok || deviceID == "" || len(deviceID) > model.MaxIDLength {
		errs = append(errs, "deviceId is required and must be a string <= 128 chars")
	}

	temp, okT := num(payload["temp"])
	if !okT {
		errs = append(errs, "temp must be a finite number")
	}
	humid, okH := num(payload["humid"])
	if !okH {
		errs = append(errs, "humid must be a finite number")
	}
	soil, okS := num(payload["soil"])
	if !okS {
		errs = append(errs, "soil must be a finite number")
	}
	rain, okR := num(payload["rain"])
	if !okR {
		errs = append(errs, "rain must be a finite number")
	}

	var pump model.PumpState
	if s, ok := str(payload["pump"]); ok {
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case string(model.PumpOn):
			pump = model.PumpOn
		case string(model.PumpOff):
			pump = model.PumpOff
		default:
			errs = append(errs, "pump must be ON or OFF")
		}
	} else {
		errs = append(errs, "pump must be ON or OFF")
	}

	ts, tsErr := timestampOrDefault(payload["timestamp"], now)
	if tsErr != "" {
		errs = append(errs, tsErr)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return &model.Reading{
		DeviceID:  strings.TrimSpace(deviceID),
		Timestamp: ts,
		Environmental: &model.Environmental{
			Temperature:  temp,
			Humidity:     humid,
			SoilMoisture: soil,
			RainLevel:    rain,
			PumpState:    pump,
		},
	}, nil
}

// num coerces JSON numbers and numeric-looking strings to a finite float64.
// NaN and infinities are rejected.
func num(v interface{}) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func str(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func object(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func hasAny(payload map[string]interface{}, keys ...string) bool {
	for _, k := range keys {
		if _, ok := payload[k]; ok {
			return true
		}
	}
	return false
}

// timestampOrDefault parses an optional upstream timestamp. Absent means
// ingestion time; present but unparseable is a validation failure, not a
// silent default. Accepts RFC3339 strings and epoch milliseconds.
func timestampOrDefault(v interface{}, now time.Time) (time.Time, string) {
	switch t := v.(type) {
	case nil:
		return now.UTC(), ""
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UTC(), ""
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UTC(), ""
		}
		return time.Time{}, fmt.Sprintf("timestamp %q is not a valid instant", t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return time.Time{}, "timestamp must be non-negative epoch milliseconds"
		}
		return time.UnixMilli(int64(t)).UTC(), ""
	default:
		return time.Time{}, "timestamp must be a string instant or epoch milliseconds"
	}
}
