package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Handler processes one decoded notification.
type Handler func(ctx context.Context, ev RegistrationEvent) error

// StartConsumer consumes NotificationQueue until ctx is cancelled.  Broker
// outages are retried with exponential backoff capped at 30s.  Messages
// that fail to decode or to handle are rejected without requeue so a
// poison message cannot block the queue.
func StartConsumer(ctx context.Context, url string, handle Handler, log zerolog.Logger) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("notification consumer: dial failed")
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consume(ctx, conn, handle, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Msg("notification consumer: loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func consume(ctx context.Context, conn *amqp.Connection, handle Handler, log zerolog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		log.Warn().Err(err).Msg("notification consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(NotificationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	log.Info().Str("queue", NotificationQueue).Msg("notification consumer started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := Dispatch(ctx, d.Body, handle); err != nil {
				log.Error().Err(err).Str("message_id", d.MessageId).Msg("notification rejected")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Dispatch decodes a message body and hands it to handle.
func Dispatch(ctx context.Context, body []byte, handle Handler) error {
	var ev RegistrationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Kind == "" {
		return errors.New("message without kind")
	}
	return handle(ctx, ev)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
