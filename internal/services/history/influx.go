package history

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/sensorgrid/telemetry-relay/internal/model"
)

const measurement = "telemetry_reading"

// InfluxConfig configures the Influx-backed store.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
	// Window bounds how far back Recent queries range. Zero means 30 days.
	Window time.Duration
}

// InfluxStore persists readings to InfluxDB with a blocking write per
// append. Recent prefers a Flux query; when the query fails or returns
// nothing it falls back to the in-process ring cache, so a broker of
// freshly ingested readings stays answerable during an Influx outage.
type InfluxStore struct {
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	bucket   string
	window   time.Duration
	cache    *MemoryStore
	seq      atomic.Int64
}

func NewInfluxStore(cfg InfluxConfig) (*InfluxStore, error) {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	window := cfg.Window
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	return &InfluxStore{
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		queryAPI: client.QueryAPI(cfg.Org),
		bucket:   cfg.Bucket,
		window:   window,
		cache:    NewMemoryStore(),
	}, nil
}

func (s *InfluxStore) Append(ctx context.Context, r *model.Reading) (int64, error) {
	seq := s.seq.Add(1)

	tags := map[string]string{
		"device_id": r.DeviceID,
	}
	fields := map[string]interface{}{
		"seq": seq,
	}
	if st := r.Structural; st != nil {
		tags["variant"] = "structural"
		tags["location"] = st.Location
		fields["vibration_x"] = st.VibrationX
		fields["vibration_y"] = st.VibrationY
		fields["vibration_z"] = st.VibrationZ
		fields["temperature_c"] = st.TemperatureC
		fields["humidity_percent"] = st.HumidityPercent
		fields["battery_v"] = st.BatteryVoltage
		fields["error_code"] = int64(st.ErrorCode)
	} else {
		e := r.Environmental
		tags["variant"] = "environmental"
		fields["temp"] = e.Temperature
		fields["humid"] = e.Humidity
		fields["soil"] = e.SoilMoisture
		fields["rain"] = e.RainLevel
		fields["pump"] = string(e.PumpState)
	}

	point := influxdb2.NewPoint(measurement, tags, fields, r.Timestamp)
	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		return 0, err
	}

	stored := *r
	stored.Seq = seq
	cacheAppend(s.cache, &stored)
	return seq, nil
}

// cacheAppend mirrors a persisted reading into the fallback ring without
// letting the ring assign a second sequence id.
func cacheAppend(m *MemoryStore, r *model.Reading) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.buffer) >= m.capacity {
		m.buffer = m.buffer[1:]
	}
	m.buffer = append(m.buffer, *r)
}

func (s *InfluxStore) buildFlux(limit int) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%ds)
  |> filter(fn: (r) => r._measurement == %q)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, s.bucket, int(s.window.Seconds()), measurement, limit)
}

func (s *InfluxStore) Recent(ctx context.Context, limit int) ([]model.Reading, error) {
	limit = ClampLimit(limit)

	res, err := s.queryAPI.Query(ctx, s.buildFlux(limit))
	if err != nil {
		return s.cache.Recent(ctx, limit)
	}
	defer func() { _ = res.Close() }()

	out := make([]model.Reading, 0, limit)
	for res.Next() {
		rec := res.Record()
		r := model.Reading{
			Seq:       toInt(rec.ValueByKey("seq")),
			DeviceID:  toString(rec.ValueByKey("device_id")),
			Timestamp: rec.Time().UTC(),
		}
		switch toString(rec.ValueByKey("variant")) {
		case "structural":
			r.Structural = &model.Structural{
				Location:        toString(rec.ValueByKey("location")),
				VibrationX:      toFloat(rec.ValueByKey("vibration_x")),
				VibrationY:      toFloat(rec.ValueByKey("vibration_y")),
				VibrationZ:      toFloat(rec.ValueByKey("vibration_z")),
				TemperatureC:    toFloat(rec.ValueByKey("temperature_c")),
				HumidityPercent: toFloat(rec.ValueByKey("humidity_percent")),
				BatteryVoltage:  toFloat(rec.ValueByKey("battery_v")),
				ErrorCode:       int(toInt(rec.ValueByKey("error_code"))),
			}
		case "environmental":
			pump := model.PumpOff
			if strings.EqualFold(toString(rec.ValueByKey("pump")), string(model.PumpOn)) {
				pump = model.PumpOn
			}
			r.Environmental = &model.Environmental{
				Temperature:  toFloat(rec.ValueByKey("temp")),
				Humidity:     toFloat(rec.ValueByKey("humid")),
				SoilMoisture: toFloat(rec.ValueByKey("soil")),
				RainLevel:    toFloat(rec.ValueByKey("rain")),
				PumpState:    pump,
			}
		default:
			continue
		}
		out = append(out, r)
	}
	if res.Err() != nil || len(out) == 0 {
		return s.cache.Recent(ctx, limit)
	}

	// query returns newest first; callers expect append order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return 0
}

func toInt(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	}
	return 0
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
