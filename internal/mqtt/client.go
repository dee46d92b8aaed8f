package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"obdboard/internal/models"
	"obdboard/internal/poller"
	"obdboard/pkg/log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	DefaultClientID = "obdboard"
	DefaultTopic    = "vehicle/obd"

	publishTimeout = 2 * time.Second
)

// Config holds the broker settings.
type Config struct {
	Broker   string
	ClientID string
	Topic    string
}

// Client forwards poll ticks to a broker.
type Client struct {
	config  Config
	client  mqtt.Client
	now     func() time.Time
	timeout time.Duration
}

// Message is the payload published for each tick.
type Message struct {
	Timestamp time.Time        `json:"timestamp"`
	Readings  []models.Reading `json:"readings"`
}

var _ poller.Sink = (*Client)(nil)

func NewClient(config Config) *Client {
	if config.ClientID == "" {
		config.ClientID = DefaultClientID
	}
	if config.Topic == "" {
		config.Topic = DefaultTopic
	}
	return &Client{config: config, now: time.Now, timeout: publishTimeout}
}

// Connect dials the broker. The client reconnects on its own afterwards.
func (c *Client) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info("connected to MQTT broker", zap.String("broker", c.config.Broker))
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Warn("lost connection to MQTT broker", zap.Error(err))
	})

	c.client = mqtt.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect %s: %w", c.config.Broker, token.Error())
	}
	return nil
}

// Publish sends readings as one JSON message.
func (c *Client) Publish(ctx context.Context, readings []models.Reading) error {
	if c.client == nil || !c.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt: not connected")
	}

	data, err := encode(c.now(), readings)
	if err != nil {
		return err
	}

	token := c.client.Publish(c.config.Topic, 0, false, data)
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("mqtt publish: timed out after %v", c.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	log.Debug("readings published", zap.String("topic", c.config.Topic), zap.Int("bytes", len(data)))
	return nil
}

func (c *Client) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}

func encode(ts time.Time, readings []models.Reading) ([]byte, error) {
	data, err := json.Marshal(Message{Timestamp: ts.UTC(), Readings: readings})
	if err != nil {
		return nil, fmt.Errorf("encode readings: %w", err)
	}
	return data, nil
}
