package alert

import (
	"math"

	"github.com/sensorgrid/telemetry-relay/internal/model"
)

// Status is a per-metric classification label.
type Status string

const (
	StatusLow    Status = "LOW"
	StatusNormal Status = "NORMAL"
	StatusHigh   Status = "HIGH"
)

// Health is the device-health classification for structural nodes.
type Health string

const (
	HealthOK    Health = "OK"
	HealthFault Health = "FAULT"
)

// RainDryThreshold mirrors the rain sensor calibration in the node
// firmware: the analog value reads ABOVE this when it is not raining.
const RainDryThreshold = 4000

// StructuralClassification is derived from the latest structural reading
// and the fixed rule set; it has no lifecycle of its own and no memory of
// past classifications.
type StructuralClassification struct {
	Temperature Status
	Humidity    Status
	Battery     Status
	NodeHealth  Health
	Danger      bool
}

// EnvironmentalClassification is the environmental-variant counterpart.
// Pump is passed through from the reading, not derived.
type EnvironmentalClassification struct {
	Temperature Status
	Humidity    Status
	Raining     bool
	Pump        model.PumpState
	Danger      bool
}

// EvaluateStructural classifies one structural reading. VibrationZ sits
// around 1g at rest, so its danger band is centered on 1.0.
func EvaluateStructural(s *model.Structural) StructuralClassification {
	c := StructuralClassification{
		Temperature: band(s.TemperatureC, 0, 40),
		Humidity:    band(s.HumidityPercent, 30, 80),
		Battery:     band(s.BatteryVoltage, 3.4, 4.1),
		NodeHealth:  HealthOK,
	}
	if s.ErrorCode != 0 {
		c.NodeHealth = HealthFault
	}

	c.Danger = math.Abs(s.VibrationX) > 0.3 ||
		math.Abs(s.VibrationY) > 0.3 ||
		math.Abs(s.VibrationZ-1.0) > 0.4 ||
		s.TemperatureC < -5 || s.TemperatureC > 50 ||
		s.HumidityPercent < 10 || s.HumidityPercent > 95 ||
		s.BatteryVoltage < 3.0 ||
		s.ErrorCode > 0
	return c
}

// EvaluateEnvironmental classifies one environmental reading. The danger
// flag follows the irrigation rule the node itself waters on: hot or dry
// air means the plants are stressed.
func EvaluateEnvironmental(e *model.Environmental) EnvironmentalClassification {
	c := EnvironmentalClassification{
		Temperature: band(e.Temperature, 15, 31),
		Humidity:    band(e.Humidity, 50, 80),
		Raining:     e.RainLevel <= RainDryThreshold,
		Pump:        e.PumpState,
	}
	c.Danger = e.Temperature > 31 || e.Humidity < 50
	return c
}

func band(v, low, high float64) Status {
	switch {
	case v < low:
		return StatusLow
	case v > high:
		return StatusHigh
	default:
		return StatusNormal
	}
}
