package main

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Host string
	Port string

	MQTTHost     string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	MQTTClientID string
	// MQTTTopics is the MQTT_TOPIC env var split on commas; each entry
	// gets its own subscription.
	MQTTTopics []string

	AuthToken string

	// Influx is optional; when URL is empty the relay keeps history in
	// memory only.
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
func splitTopics(s string) []string {
	var topics []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		topics = []string{"iot"}
	}
	return topics
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func loadConfig() Config {
	return Config{
		Host: getenv("HOST", "0.0.0.0"),
		Port: getenv("PORT", "5000"),

		MQTTHost:     getenv("MQTT_HOST", "localhost"),
		MQTTPort:     getenvInt("MQTT_PORT", 1883),
		MQTTUser:     getenv("MQTT_USER", ""),
		MQTTPassword: getenv("MQTT_PASSWORD", ""),
		MQTTClientID: getenv("MQTT_CLIENT_ID", "telemetry-relay"),
		MQTTTopics:   splitTopics(getenv("MQTT_TOPIC", "iot")),

		AuthToken: getenv("AUTH_TOKEN", ""),

		InfluxURL:    getenv("INFLUX_URL", ""),
		InfluxToken:  getenv("INFLUX_TOKEN", ""),
		InfluxOrg:    getenv("INFLUX_ORG", "sensorgrid"),
		InfluxBucket: getenv("INFLUX_BUCKET", "telemetry"),
	}
}
