package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	sensor_simulator "github.com/sensorgrid/telemetry-relay/internal/sensor-simulator"
	"github.com/sensorgrid/telemetry-relay/pkg/mqttbus"
)

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func main() {
	scenario := sensor_simulator.Scenario(getenv("SCENARIO", "normal"))
	sensorID := getenv("SENSOR_ID", "shm-node-alpha-01")
	location := getenv("LOCATION", "beam-section-4F")
	topic := getenv("MQTT_TOPIC", "iot")
	intervalS := getenvInt("INTERVAL_SEC", 2)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := mqttbus.NewBrokerConn(&mqttbus.BrokerConfig{
		Host:     getenv("MQTT_HOST", "localhost"),
		Port:     getenvInt("MQTT_PORT", 1883),
		User:     getenv("MQTT_USER", ""),
		Password: getenv("MQTT_PASSWORD", ""),
		ClientID: "simulator-" + sensorID,
	}, ctx)
	if err != nil {
		log.Fatalf("mqtt: %v", err)
	}

	gen, err := sensor_simulator.NewGenerator(scenario, sensorID, location, time.Now().UnixNano())
	if err != nil {
		log.Fatalf("generator: %v", err)
	}

	log.Printf("simulator: scenario=%s sensor=%s topic=%s", scenario, sensorID, topic)
	sim := sensor_simulator.NewSimulator(mqttbus.NewPublisher(client, topic), gen)
	sim.Start(ctx, time.Duration(intervalS)*time.Second)
}
