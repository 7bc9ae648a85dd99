package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sensorgrid/telemetry-relay/internal/services/viewer"
)

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func main() {
	serverURL := getenv("RELAY_URL", "http://localhost:5000")
	socketURL := getenv("RELAY_WS_URL", "ws://localhost:5000/ws")
	token := getenv("AUTH_TOKEN", "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := viewer.NewSession(viewer.Config{
		ServerURL: serverURL,
		SocketURL: socketURL,
		Token:     token,
		OnUpdate: func(u viewer.Update) {
			if s := u.Structural; s != nil {
				if s.Danger {
					log.Printf("ALERT %s: danger conditions %s", u.Reading.DeviceID, viewer.Describe(u))
				} else {
					log.Printf("reading %s: temp=%s humidity=%s battery=%s health=%s",
						u.Reading.DeviceID, s.Temperature, s.Humidity, s.Battery, s.NodeHealth)
				}
				return
			}
			if e := u.Environmental; e != nil {
				log.Printf("reading %s: temp=%s humidity=%s raining=%t pump=%s",
					u.Reading.DeviceID, e.Temperature, e.Humidity, e.Raining, e.Pump)
			}
		},
	})

	if err := session.Run(ctx); err != nil {
		log.Fatalf("viewer: %v", err)
	}
}
