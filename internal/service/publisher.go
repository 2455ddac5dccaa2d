// Package service publishes domain notifications to RabbitMQ.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/seminars/internal/queue"
)

// Notifier publishes notifications.  Handlers and the scheduler depend on
// this interface so tests can record messages instead.
type Notifier interface {
	Publish(ctx context.Context, ev queue.RegistrationEvent) error
}

// Publisher keeps one AMQP connection and reopens it after failures.
type Publisher struct {
	url string
	log zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string, log zerolog.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

// channel returns an open channel with the notification queue declared,
// dialing when needed.  Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(queue.NotificationQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

// Publish sends ev as a persistent JSON message.  A message id and the
// occurrence time are filled in when missing.
func (p *Publisher) Publish(ctx context.Context, ev queue.RegistrationEvent) error {
	if ev.MessageID == "" {
		ev.MessageID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		p.log.Warn().Err(err).Str("kind", ev.Kind).Msg("rabbitmq unavailable, notification dropped")
		return err
	}
	err = ch.PublishWithContext(ctx, "", queue.NotificationQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.MessageID,
		Type:         ev.Kind,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
	if err != nil {
		p.log.Warn().Err(err).Str("kind", ev.Kind).Msg("publish failed")
		return err
	}
	return nil
}

// Close shuts the connection down.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.ch = nil, nil
	return err
}

// PublishAsync publishes in the background with its own timeout so the
// request that triggered it is not delayed.  Failures are only logged.
func PublishAsync(n Notifier, log zerolog.Logger, ev queue.RegistrationEvent) {
	if n == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.Publish(ctx, ev); err != nil {
			log.Warn().Err(err).Str("kind", ev.Kind).Uint64("event_id", ev.EventID).Msg("notification not published")
		}
	}()
}
