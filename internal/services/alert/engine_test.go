package alert

import (
	"testing"

	"github.com/sensorgrid/telemetry-relay/internal/model"
)

func TestStructuralVibrationXTriggersDanger(t *testing.T) {
	c := EvaluateStructural(&model.Structural{
		VibrationX:      0.5,
		VibrationZ:      1.0,
		TemperatureC:    25,
		HumidityPercent: 50,
		BatteryVoltage:  3.8,
		ErrorCode:       0,
	})
	if !c.Danger {
		t.Fatalf("vibrationX=0.5 exceeds 0.3, danger expected")
	}
	if c.NodeHealth != HealthOK {
		t.Fatalf("errorCode=0 means node health OK, got %s", c.NodeHealth)
	}
}

func TestStructuralAllNormal(t *testing.T) {
	c := EvaluateStructural(&model.Structural{
		VibrationX:      0.1,
		VibrationY:      0.1,
		VibrationZ:      1.05,
		TemperatureC:    25,
		HumidityPercent: 50,
		BatteryVoltage:  3.8,
		ErrorCode:       0,
	})
	if c.Danger {
		t.Fatalf("reading inside every band must not be dangerous")
	}
	if c.Temperature != StatusNormal || c.Humidity != StatusNormal || c.Battery != StatusNormal {
		t.Fatalf("all statuses should be NORMAL: %+v", c)
	}
}

func TestStructuralStatusBands(t *testing.T) {
	cases := []struct {
		name  string
		mod   func(*model.Structural)
		check func(StructuralClassification) bool
	}{
		{"temp high", func(s *model.Structural) { s.TemperatureC = 41 }, func(c StructuralClassification) bool { return c.Temperature == StatusHigh }},
		{"temp low", func(s *model.Structural) { s.TemperatureC = -1 }, func(c StructuralClassification) bool { return c.Temperature == StatusLow }},
		{"humidity low", func(s *model.Structural) { s.HumidityPercent = 29 }, func(c StructuralClassification) bool { return c.Humidity == StatusLow }},
		{"humidity high", func(s *model.Structural) { s.HumidityPercent = 81 }, func(c StructuralClassification) bool { return c.Humidity == StatusHigh }},
		{"battery low", func(s *model.Structural) { s.BatteryVoltage = 3.3 }, func(c StructuralClassification) bool { return c.Battery == StatusLow }},
		{"battery high", func(s *model.Structural) { s.BatteryVoltage = 4.2 }, func(c StructuralClassification) bool { return c.Battery == StatusHigh }},
	}
	for _, tc := range cases {
		s := &model.Structural{VibrationZ: 1.0, TemperatureC: 25, HumidityPercent: 50, BatteryVoltage: 3.8}
		tc.mod(s)
		if c := EvaluateStructural(s); !tc.check(c) {
			t.Fatalf("%s: classification %+v", tc.name, c)
		}
	}
}

func TestStructuralDangerConditions(t *testing.T) {
	base := model.Structural{VibrationZ: 1.0, TemperatureC: 25, HumidityPercent: 50, BatteryVoltage: 3.8}
	cases := []struct {
		name string
		mod  func(*model.Structural)
	}{
		{"vibrationY", func(s *model.Structural) { s.VibrationY = -0.4 }},
		{"vibrationZ off gravity", func(s *model.Structural) { s.VibrationZ = 1.5 }},
		{"freezing", func(s *model.Structural) { s.TemperatureC = -6 }},
		{"overheating", func(s *model.Structural) { s.TemperatureC = 51 }},
		{"too dry", func(s *model.Structural) { s.HumidityPercent = 9 }},
		{"too humid", func(s *model.Structural) { s.HumidityPercent = 96 }},
		{"battery critical", func(s *model.Structural) { s.BatteryVoltage = 2.9 }},
		{"device fault", func(s *model.Structural) { s.ErrorCode = 3 }},
	}
	for _, tc := range cases {
		s := base
		tc.mod(&s)
		if c := EvaluateStructural(&s); !c.Danger {
			t.Fatalf("%s should raise the danger flag", tc.name)
		}
	}
}

func TestStructuralFaultCode(t *testing.T) {
	s := &model.Structural{VibrationZ: 1.0, TemperatureC: 25, HumidityPercent: 50, BatteryVoltage: 3.8, ErrorCode: 2}
	c := EvaluateStructural(s)
	if c.NodeHealth != HealthFault || !c.Danger {
		t.Fatalf("non-zero error code means FAULT and danger: %+v", c)
	}
}

func TestEnvironmentalClassification(t *testing.T) {
	c := EvaluateEnvironmental(&model.Environmental{
		Temperature:  25,
		Humidity:     60,
		RainLevel:    4100,
		PumpState:    model.PumpOn,
		SoilMoisture: 2500,
	})
	if c.Temperature != StatusNormal || c.Humidity != StatusNormal {
		t.Fatalf("classification: %+v", c)
	}
	if c.Raining {
		t.Fatalf("rain level above the dry threshold means no rain")
	}
	if c.Pump != model.PumpOn {
		t.Fatalf("pump status is passed through verbatim, got %s", c.Pump)
	}
}

func TestEnvironmentalBandsAndRain(t *testing.T) {
	hot := EvaluateEnvironmental(&model.Environmental{Temperature: 32, Humidity: 60, RainLevel: 4100})
	if hot.Temperature != StatusHigh || !hot.Danger {
		t.Fatalf("temp>31 is HIGH and dangerous: %+v", hot)
	}
	cold := EvaluateEnvironmental(&model.Environmental{Temperature: 14, Humidity: 60, RainLevel: 4100})
	if cold.Temperature != StatusLow {
		t.Fatalf("temp<15 is LOW: %+v", cold)
	}
	dry := EvaluateEnvironmental(&model.Environmental{Temperature: 25, Humidity: 45, RainLevel: 4100})
	if dry.Humidity != StatusLow || !dry.Danger {
		t.Fatalf("humidity<50 is LOW and dangerous: %+v", dry)
	}
	wet := EvaluateEnvironmental(&model.Environmental{Temperature: 25, Humidity: 85, RainLevel: 3000})
	if wet.Humidity != StatusHigh || !wet.Raining {
		t.Fatalf("humidity>80 is HIGH and low rain level means raining: %+v", wet)
	}
}
