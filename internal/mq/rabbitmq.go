package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/baymax-health/apiserver/config"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQClient wraps a RabbitMQ connection/channel pair. With an exchange
// configured, channels are routing keys on a durable topic exchange and
// subscribers share the configured queue. Without one, each channel is a
// durable queue of the same name.
type RabbitMQClient struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
}

// NewRabbitMQClient constructs a RabbitMQ client from config.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	closeAll := func() {
		_ = ch.Close()
		_ = conn.Close()
	}

	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			closeAll()
			return nil, err
		}
	}

	if cfg.Exchange != "" {
		if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			closeAll()
			return nil, fmt.Errorf("while declaring exchange %s: %w", cfg.Exchange, err)
		}
	}

	return &RabbitMQClient{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		queue:    cfg.Queue,
	}, nil
}

// Publish sends a persistent message for the named channel.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	if r.exchange == "" {
		if _, err := r.declareQueue(channel); err != nil {
			return "", err
		}
	}

	headers := amqp.Table{}
	contentType := "application/octet-stream"
	for key, value := range attrs {
		if key == "content-type" {
			contentType = value
			continue
		}
		headers[key] = value
	}

	messageID := uuid.NewString()
	err := r.channel.PublishWithContext(ctx, r.exchange, channel, false, false, amqp.Publishing{
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Headers:      headers,
		Body:         data,
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Subscribe consumes messages for the named channel until ctx is done.
// Messages whose handler fails are requeued.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	queue, err := r.bindQueue(channel)
	if err != nil {
		return err
	}

	consumerTag := "baymax-" + uuid.NewString()
	deliveries, err := r.channel.Consume(queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			message := Message{
				ID:         delivery.MessageId,
				Data:       delivery.Body,
				Attributes: headersToAttributes(delivery.Headers),
			}
			if err := handler(ctx, message); err != nil {
				_ = delivery.Nack(false, !delivery.Redelivered)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the underlying channel and connection.
func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQClient) declareQueue(name string) (amqp.Queue, error) {
	return r.channel.QueueDeclare(name, true, false, false, false, nil)
}

// bindQueue returns the queue to consume channel from.
func (r *RabbitMQClient) bindQueue(channel string) (string, error) {
	if r.exchange == "" {
		q, err := r.declareQueue(channel)
		return q.Name, err
	}

	name := r.queue
	if name == "" {
		name = channel
	}
	q, err := r.declareQueue(name)
	if err != nil {
		return "", err
	}
	if err := r.channel.QueueBind(q.Name, channel, r.exchange, false, nil); err != nil {
		return "", fmt.Errorf("while binding %s to %s: %w", q.Name, r.exchange, err)
	}
	return q.Name, nil
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}
