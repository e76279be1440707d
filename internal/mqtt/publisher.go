// Package mqtt publishes door events to an MQTT broker.
//
// Topics, relative to the configured prefix:
//   - <prefix>/events: every handled door request as JSON (QoS 1, not retained)
//   - <prefix>/position: position observed before the last action (QoS 1, retained)
//   - <prefix>/availability: "online" or "offline" (QoS 1, retained, also the will message)
//
// Publishing is synchronous. There is no background queue: a slow broker costs the caller at most the publish timeout.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/outjet/garage-api/internal/logger"
	"github.com/outjet/garage-api/internal/models"
)

const (
	defaultClientID       = "garage-api"
	defaultTopicPrefix    = "garage"
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	disconnectQuiesce     = 250 // milliseconds

	qosAtLeastOnce byte = 1

	availabilityOnline  = "online"
	availabilityOffline = "offline"
)

var (
	ErrNotConnected  = errors.New("mqtt client not connected")
	ErrPublishFailed = errors.New("mqtt publish failed")
)

type Config struct {
	// Broker URL, tcp://host:port or ssl://host:port
	Broker   string `yaml:"broker" validate:"omitempty,url"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Prefix for every topic
	// If not set than default is used
	TopicPrefix string `yaml:"topic_prefix"`
}

// Subset of pahomqtt.Client the publisher needs
type client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload any) pahomqtt.Token
	Disconnect(quiesce uint)
}

type Publisher struct {
	client  client
	topics  Topics
	timeout time.Duration
	logger  logger.Logger
}

// Connect dials the broker and announces the service online.
// paho reconnects on its own after the first successful connect.
func Connect(cfg Config, logger logger.Logger) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker must not be empty")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = defaultClientID
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = defaultTopicPrefix
	}

	topics := Topics{Prefix: cfg.TopicPrefix}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(defaultConnectTimeout).
		SetWill(topics.Availability(), availabilityOffline, qosAtLeastOnce, true)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		logger.Info("MQTT connected", "broker", cfg.Broker)
	})

	c := pahomqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("error while connecting to mqtt broker: timeout after %v", defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("error while connecting to mqtt broker. Err: %w", err)
	}

	p := NewPublisher(c, topics, logger)
	if err := p.publish(context.Background(), topics.Availability(), true, availabilityOnline); err != nil {
		logger.Warn("Could not announce availability", "error", err)
	}

	return p, nil
}

// NewPublisher wraps an already connected client
func NewPublisher(c client, topics Topics, logger logger.Logger) *Publisher {
	if topics.Prefix == "" {
		topics.Prefix = defaultTopicPrefix
	}

	return &Publisher{
		client:  c,
		topics:  topics,
		timeout: defaultPublishTimeout,
		logger:  logger,
	}
}

// PublishEvent sends the event, then the position it observed
func (p *Publisher) PublishEvent(ctx context.Context, event models.DoorEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error while encoding door event. Err: %w", err)
	}

	if err := p.publish(ctx, p.topics.Events(), false, payload); err != nil {
		return err
	}

	return p.publish(ctx, p.topics.Position(), true, event.Position)
}

// Close announces the service offline and disconnects
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		if err := p.publish(context.Background(), p.topics.Availability(), true, availabilityOffline); err != nil {
			p.logger.Warn("Could not announce offline", "error", err)
		}
	}
	p.client.Disconnect(disconnectQuiesce)
}

func (p *Publisher) publish(ctx context.Context, topic string, retained bool, payload any) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("error while publishing to %s. Err: %w", topic, ErrNotConnected)
	}

	token := p.client.Publish(topic, qosAtLeastOnce, retained, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("error while publishing to %s: %v. Err: %w", topic, err, ErrPublishFailed)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("error while publishing to %s: timeout after %v. Err: %w", topic, p.timeout, ErrPublishFailed)
	case <-ctx.Done():
		return fmt.Errorf("error while publishing to %s. Err: %w", topic, ctx.Err())
	}
}

// Topics builds topic names under one prefix
type Topics struct {
	Prefix string
}

func (t Topics) Events() string       { return t.Prefix + "/events" }
func (t Topics) Position() string     { return t.Prefix + "/position" }
func (t Topics) Availability() string { return t.Prefix + "/availability" }
