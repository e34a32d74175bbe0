package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/baymax-health/apiserver/config"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Decode unmarshals the JSON payload of msg into v.
func (m Message) Decode(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("while decoding message %s: %w", m.ID, err)
	}
	return nil
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Open connects the backend selected by cfg.MQBackend. It returns nil, nil
// when messaging is disabled.
func Open(ctx context.Context, cfg config.Config) (*MQ, error) {
	switch cfg.MQBackend {
	case config.MQRabbit:
		backend, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("while connecting to rabbitmq: %w", err)
		}
		return New(backend), nil
	case config.MQPubSub:
		backend, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("while connecting to pubsub: %w", err)
		}
		return New(backend), nil
	case config.MQLocal:
		return New(NewLocal()), nil
	case config.MQNone, "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown mq backend %q", cfg.MQBackend)
}

// Publish sends a message to the named channel.
func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, channel, data, attrs)
}

// PublishJSON marshals v and publishes it with a JSON content type.
func (m *MQ) PublishJSON(ctx context.Context, channel string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return m.backend.Publish(ctx, channel, data, map[string]string{"content-type": "application/json"})
}

// Subscribe consumes messages from the named channel.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return m.backend.Subscribe(ctx, channel, handler)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}
