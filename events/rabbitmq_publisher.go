package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// DefaultQueue is used when no queue name is configured.
const DefaultQueue = "villas_queue"

// RabbitMQPublisher sends events to a durable queue through the default exchange.
type RabbitMQPublisher struct {
	mu         sync.Mutex // amqp channels are not safe for concurrent publishing
	connection *amqp.Connection
	channel    *amqp.Channel
	queueName  string
	logger     logrus.FieldLogger
}

// NewRabbitMQPublisher connects to rabbitURL and declares queueName.
func NewRabbitMQPublisher(rabbitURL, queueName string, logger logrus.FieldLogger) (*RabbitMQPublisher, error) {
	if queueName == "" {
		queueName = DefaultQueue
	}

	conn, err := amqp.Dial(rabbitURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	logger.WithField("queue", queueName).Info("RabbitMQ publisher ready")

	return &RabbitMQPublisher{
		connection: conn,
		channel:    ch,
		queueName:  queueName,
		logger:     logger,
	}, nil
}

// Publish sends the event as a persistent JSON message.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := event.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.Publish(
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         string(event.Action),
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Action, err)
	}

	p.logger.WithFields(logrus.Fields{
		"action":   event.Action,
		"villa_id": event.VillaID,
	}).Debug("event published")
	return nil
}

// Close closes the channel and the connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.Close(); err != nil {
		p.connection.Close()
		return err
	}
	return p.connection.Close()
}
