package model

import (
	"encoding/json"
	"time"
)

// PumpState is the irrigation pump position reported by environmental nodes.
type PumpState string

const (
	PumpOn  PumpState = "ON"
	PumpOff PumpState = "OFF"
)

// MaxIDLength bounds DeviceID and Location.
const MaxIDLength = 128

// Environmental is the irrigation-node variant: a DHT temperature/humidity
// pair plus raw analog soil and rain levels and the pump position.
type Environmental struct {
	Temperature  float64
	Humidity     float64
	SoilMoisture float64
	RainLevel    float64
	PumpState    PumpState
}

// Structural is the vibration-node variant used for structural health
// monitoring. Vibration axes are in g; Z sits around 1g at rest (gravity).
type Structural struct {
	Location        string
	VibrationX      float64
	VibrationY      float64
	VibrationZ      float64
	TemperatureC    float64
	HumidityPercent float64
	BatteryVoltage  float64
	ErrorCode       int
}

// Reading is one validated telemetry record. Exactly one of the two variant
// pointers is set; identity is (DeviceID, Timestamp) plus the store-assigned
// Seq. Readings are immutable after validation.
type Reading struct {
	Seq           int64
	DeviceID      string
	Timestamp     time.Time
	Environmental *Environmental
	Structural    *Structural
}

// IsStructural reports which variant this reading carries.
func (r *Reading) IsStructural() bool { return r.Structural != nil }

// environmentalFrame is the live-channel wire shape for environmental
// readings. Field names match what the maker firmware publishes so the
// dashboard renders both ingest paths identically.
type environmentalFrame struct {
	Seq       int64     `json:"seq"`
	DeviceID  string    `json:"deviceId"`
	Temp      float64   `json:"temp"`
	Humid     float64   `json:"humid"`
	Soil      float64   `json:"soil"`
	Rain      float64   `json:"rain"`
	Pump      PumpState `json:"pump"`
	Timestamp int64     `json:"timestamp"`
}

// structuralFrame mirrors the flat camelCase shape the dashboard consumes.
type structuralFrame struct {
	Seq             int64   `json:"seq"`
	SensorID        string  `json:"sensorId"`
	Location        string  `json:"location"`
	VibrationX      float64 `json:"vibrationX"`
	VibrationY      float64 `json:"vibrationY"`
	VibrationZ      float64 `json:"vibrationZ"`
	TemperatureC    float64 `json:"temperatureC"`
	HumidityPercent float64 `json:"humidityPercent"`
	BatteryV        float64 `json:"batteryV"`
	ErrorCode       int     `json:"errorCode"`
	Timestamp       int64   `json:"timestamp"`
}

// MarshalFrame serializes the reading into the viewer-facing JSON frame,
// one message per reading, timestamp as epoch milliseconds.
func (r *Reading) MarshalFrame() ([]byte, error) {
	if s := r.Structural; s != nil {
		return json.Marshal(structuralFrame{
			Seq:             r.Seq,
			SensorID:        r.DeviceID,
			Location:        s.Location,
			VibrationX:      s.VibrationX,
			VibrationY:      s.VibrationY,
			VibrationZ:      s.VibrationZ,
			TemperatureC:    s.TemperatureC,
			HumidityPercent: s.HumidityPercent,
			BatteryV:        s.BatteryVoltage,
			ErrorCode:       s.ErrorCode,
			Timestamp:       r.Timestamp.UnixMilli(),
		})
	}
	e := r.Environmental
	return json.Marshal(environmentalFrame{
		Seq:       r.Seq,
		DeviceID:  r.DeviceID,
		Temp:      e.Temperature,
		Humid:     e.Humidity,
		Soil:      e.SoilMoisture,
		Rain:      e.RainLevel,
		Pump:      e.PumpState,
		Timestamp: r.Timestamp.UnixMilli(),
	})
}

// UnmarshalFrame decodes a viewer-facing frame back into a Reading. The
// viewer client uses it for history hydration and the live stream; relayed
// raw payloads that match neither shape fail here and are skipped upstream.
func UnmarshalFrame(data []byte) (*Reading, error) {
	var probe struct {
		SensorID *string `json:"sensorId"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	if probe.SensorID != nil {
		var f structuralFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return &Reading{
			Seq:       f.Seq,
			DeviceID:  f.SensorID,
			Timestamp: time.UnixMilli(f.Timestamp).UTC(),
			Structural: &Structural{
				Location:        f.Location,
				VibrationX:      f.VibrationX,
				VibrationY:      f.VibrationY,
				VibrationZ:      f.VibrationZ,
				TemperatureC:    f.TemperatureC,
				HumidityPercent: f.HumidityPercent,
				BatteryVoltage:  f.BatteryV,
				ErrorCode:       f.ErrorCode,
			},
		}, nil
	}
	var f environmentalFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &Reading{
		Seq:       f.Seq,
		DeviceID:  f.DeviceID,
		Timestamp: time.UnixMilli(f.Timestamp).UTC(),
		Environmental: &Environmental{
			Temperature:  f.Temp,
			Humidity:     f.Humid,
			SoilMoisture: f.Soil,
			RainLevel:    f.Rain,
			PumpState:    f.Pump,
		},
	}, nil
}
