package sensor_simulator

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

// Scenario selects the kind of telemetry the generator emits.
type Scenario string

const (
	// ScenarioNormal is a healthy structural node: vibration noise around
	// rest, mild environment, good battery.
	ScenarioNormal Scenario = "normal"
	// ScenarioDanger simulates structural stress, environmental extremes
	// and device faults.
	ScenarioDanger Scenario = "danger"
	// ScenarioEnvironmental emits irrigation-node payloads with the pump
	// rule the node firmware applies.
	ScenarioEnvironmental Scenario = "environmental"
)

const (
	soilDryThreshold = 2700 // analog value above this means dry soil
	rainDryThreshold = 4000 // analog value above this means no rain
)

// Generator produces upstream-shaped JSON payloads for one simulated node.
type Generator struct {
	scenario Scenario
	sensorID string
	location string
	rng      *rand.Rand
}

func NewGenerator(scenario Scenario, sensorID, location string, seed int64) (*Generator, error) {
	switch scenario {
	case ScenarioNormal, ScenarioDanger, ScenarioEnvironmental:
	default:
		return nil, fmt.Errorf("unknown scenario %q", scenario)
	}
	return &Generator{
		scenario: scenario,
		sensorID: sensorID,
		location: location,
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// Next returns one payload in the wire shape the relay validates.
func (g *Generator) Next(now time.Time) ([]byte, error) {
	switch g.scenario {
	case ScenarioEnvironmental:
		return g.nextEnvironmental()
	case ScenarioDanger:
		return g.nextStructural(now, true)
	default:
		return g.nextStructural(now, false)
	}
}

type structuralPayload struct {
	SensorID  string `json:"sensor_id"`
	Location  string `json:"location"`
	Timestamp string `json:"timestamp"`
	Telemetry struct {
		VibrationX      float64 `json:"vibration_x"`
		VibrationY      float64 `json:"vibration_y"`
		VibrationZ      float64 `json:"vibration_z"`
		TemperatureC    float64 `json:"temperature_c"`
		HumidityPercent float64 `json:"humidity_percent"`
	} `json:"telemetry"`
	DeviceHealth struct {
		BatteryV  float64 `json:"battery_v"`
		ErrorCode int     `json:"error_code"`
	} `json:"device_health"`
}

func (g *Generator) nextStructural(now time.Time, danger bool) ([]byte, error) {
	var p structuralPayload
	p.SensorID = g.sensorID
	p.Location = g.location
	p.Timestamp = now.UTC().Format(time.RFC3339)

	if danger {
		// high vibration, erratic Z, extreme environment, failing device
		p.Telemetry.VibrationX = (g.rng.Float64()-0.5)*0.8 + 0.4
		p.Telemetry.VibrationY = (g.rng.Float64()-0.5)*0.6 + 0.3
		p.Telemetry.VibrationZ = 1.0 + (g.rng.Float64()-0.5)*1.2
		if g.rng.Float64() > 0.5 {
			p.Telemetry.TemperatureC = -10 + g.rng.Float64()*5
		} else {
			p.Telemetry.TemperatureC = 55 + g.rng.Float64()*10
		}
		if g.rng.Float64() > 0.5 {
			p.Telemetry.HumidityPercent = 5 + g.rng.Float64()*10
		} else {
			p.Telemetry.HumidityPercent = 90 + g.rng.Float64()*10
		}
		p.DeviceHealth.BatteryV = 2.8 + g.rng.Float64()*0.4
		p.DeviceHealth.ErrorCode = g.rng.Intn(4) + 1
	} else {
		// small noise around rest, Z near 1g
		p.Telemetry.VibrationX = (g.rng.Float64() - 0.5) * 0.05
		p.Telemetry.VibrationY = (g.rng.Float64() - 0.5) * 0.05
		p.Telemetry.VibrationZ = 1.0 + (g.rng.Float64()-0.5)*0.02
		p.Telemetry.TemperatureC = 28 + (g.rng.Float64()-0.5)*4
		p.Telemetry.HumidityPercent = 60 + (g.rng.Float64()-0.5)*10
		p.DeviceHealth.BatteryV = 3.7 + (g.rng.Float64()-0.5)*0.1
		p.DeviceHealth.ErrorCode = 0
	}
	return json.Marshal(p)
}

type environmentalPayload struct {
	DeviceID string  `json:"deviceId"`
	Temp     float64 `json:"temp"`
	Humid    float64 `json:"humid"`
	Soil     int     `json:"soil"`
	Rain     int     `json:"rain"`
	Pump     string  `json:"pump"`
}

func (g *Generator) nextEnvironmental() ([]byte, error) {
	p := environmentalPayload{
		DeviceID: g.sensorID,
		Temp:     24 + (g.rng.Float64()-0.5)*16,
		Humid:    55 + (g.rng.Float64()-0.5)*30,
		Soil:     2200 + g.rng.Intn(1200),
		Rain:     3500 + g.rng.Intn(800),
		Pump:     "OFF",
	}
	// same watering rule the node firmware runs
	if (p.Soil > soilDryThreshold && p.Rain > rainDryThreshold) ||
		p.Temp > 31.0 || p.Humid < 50.0 {
		p.Pump = "ON"
	}
	return json.Marshal(p)
}
