package mqttbus

import (
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher defines the method to publish a message
type IPublisher interface {
	PublishMessage(message interface{}) error
	Close()
}

// Publisher holds the client and topic for publishing messages
type Publisher struct {
	client mqtt.Client
	topic  string
}

func NewPublisher(client mqtt.Client, topic string) *Publisher {
	return &Publisher{
		client: client,
		topic:  topic,
	}
}

// PublishMessage publishes a message to the configured MQTT topic
func (p *Publisher) PublishMessage(message interface{}) error {
	messageStr, ok := message.(string)
	if !ok {
		return fmt.Errorf("invalid message format, expected string")
	}

	token := p.client.Publish(p.topic, qosFor(p.topic), false, messageStr)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to publish message: %v", token.Error())
	}

	log.Printf("Message published to topic '%s'", p.topic)
	return nil
}

// Close gracefully closes the MQTT connection for the publisher
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
		log.Println("MQTT client disconnected")
	}
}
