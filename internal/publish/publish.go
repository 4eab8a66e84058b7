// Package publish sends decoded spots to an MQTT broker as JSON.
package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"goft8/internal/report"
)

// Publisher defaults
const (
	DefaultTopic   = "goft8/spots"
	DefaultTimeout = 5 * time.Second
)

// Client is the part of mqtt.Client used for publishing
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Config holds broker settings
type Config struct {
	Broker   string        `yaml:"broker"`
	Topic    string        `yaml:"topic"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	QoS      byte          `yaml:"qos"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SpotPayload is the JSON body of one published spot
type SpotPayload struct {
	Receiver   string   `json:"receiver"`
	Timestamp  int64    `json:"timestamp"`
	DT         float64  `json:"dt"`
	Frequency  float64  `json:"frequency"`
	SNR        int      `json:"snr"`
	Text       string   `json:"text"`
	Type       string   `json:"type"`
	Callsigns  []string `json:"callsigns,omitempty"`
	Grid       string   `json:"grid,omitempty"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
	Bearing    *float64 `json:"bearing,omitempty"`
}

// Publisher publishes spots to one topic
type Publisher struct {
	client   Client
	topic    string
	qos      byte
	timeout  time.Duration
	receiver string
	logger   *logrus.Logger
}

// Connect dials the broker and returns a publisher using it
func Connect(cfg Config, logger *logrus.Logger) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker address is required")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID("goft8_" + uuid.New().String()[:8])
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.WithField("broker", cfg.Broker).Info("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.WithError(err).Warn("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeoutOrDefault(cfg.Timeout)) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return NewPublisher(client, cfg, logger), nil
}

// NewPublisher wraps a connected client
func NewPublisher(client Client, cfg Config, logger *logrus.Logger) *Publisher {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	return &Publisher{
		client:   client,
		topic:    topic,
		qos:      cfg.QoS,
		timeout:  timeoutOrDefault(cfg.Timeout),
		receiver: uuid.New().String(),
		logger:   logger,
	}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Receiver returns the identifier stamped on every payload
func (p *Publisher) Receiver() string {
	return p.receiver
}

// Payload converts a spot to its JSON body
func (p *Publisher) Payload(s report.Spot) SpotPayload {
	payload := SpotPayload{
		Receiver:  p.receiver,
		Timestamp: s.Slot.Unix(),
		DT:        s.DT(),
		Frequency: s.Frequency,
		SNR:       int(math.Round(s.SNR)),
		Text:      s.Message.Text,
		Type:      s.Message.Type.String(),
		Callsigns: s.Message.Callsigns(),
		Grid:      s.Message.Grid,
	}
	if s.Path != nil {
		distance, bearing := s.Path.DistanceKm, s.Path.Bearing
		payload.DistanceKm = &distance
		payload.Bearing = &bearing
	}
	return payload
}

// PublishSpots publishes each spot and returns the joined failures
func (p *Publisher) PublishSpots(spots []report.Spot) error {
	if len(spots) == 0 {
		return nil
	}
	if !p.client.IsConnected() {
		return fmt.Errorf("mqtt client not connected, dropped %d spots", len(spots))
	}

	var errs []error
	for _, s := range spots {
		body, err := json.Marshal(p.Payload(s))
		if err != nil {
			errs = append(errs, err)
			continue
		}

		token := p.client.Publish(p.topic, p.qos, false, body)
		if !token.WaitTimeout(p.timeout) {
			errs = append(errs, fmt.Errorf("timed out publishing %q", s.Message.Text))
			continue
		}
		if err := token.Error(); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish %q: %w", s.Message.Text, err))
		}
	}

	p.logger.WithFields(logrus.Fields{
		"topic":  p.topic,
		"spots":  len(spots),
		"failed": len(errs),
	}).Debug("Published spots")

	return errors.Join(errs...)
}

// Close disconnects from the broker
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
