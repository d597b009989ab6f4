package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/mklimuk/chargemon/charger"
)

const DefaultMQTTTopic = "chargemon/slots"

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// MQTT publishes events as JSON to a broker topic with QoS 0.
type MQTT struct {
	client  publisher
	topic   string
	timeout time.Duration
	now     func() time.Time
}

// EventPayload is the JSON document published for every event.
type EventPayload struct {
	Timestamp string                `json:"timestamp"`
	Slot      int                   `json:"slot"`
	State     string                `json:"state"`
	Title     string                `json:"title"`
	Body      string                `json:"body"`
	Slots     []charger.SlotReading `json:"slots"`
}

func FormatPayload(event charger.Event, now time.Time) ([]byte, error) {
	return json.Marshal(EventPayload{
		Timestamp: now.UTC().Format(time.RFC3339),
		Slot:      event.Slot,
		State:     string(event.State),
		Title:     Title(event),
		Body:      Body(event),
		Slots:     event.Readings,
	})
}

// DialMQTT connects to the broker. A broker that is not reachable yet is not an error:
// the client keeps retrying in the background and publishes fail until it is connected.
func DialMQTT(broker, topic string) *MQTT {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("chargemon").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)
	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		slog.Warn("mqtt broker not reachable yet, retrying in background", "broker", broker)
	} else if err := token.Error(); err != nil {
		slog.Warn("mqtt connect failed", "broker", broker, "error", err)
	}
	return newMQTT(client, topic)
}

func newMQTT(client publisher, topic string) *MQTT {
	if topic == "" {
		topic = DefaultMQTTTopic
	}
	return &MQTT{client: client, topic: topic, timeout: 5 * time.Second, now: time.Now}
}

func (m *MQTT) Notify(ctx context.Context, event charger.Event) error {
	payload, err := FormatPayload(event, m.now())
	if err != nil {
		return fmt.Errorf("mqtt: format payload: %w", err)
	}
	token := m.client.Publish(m.topic, 0, false, payload)
	select {
	case <-token.Done():
	case <-time.After(m.timeout):
		return fmt.Errorf("mqtt: publish timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker when the sink owns a real client.
func (m *MQTT) Close() error {
	if c, ok := m.client.(paho.Client); ok {
		c.Disconnect(1000)
	}
	return nil
}
