// Package job moves media jobs through RabbitMQ so long extractions and
// transcriptions can run outside the request path.
package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/reelai/backend/internal/notify"
)

// Broker owns one connection and channel to a durable queue.
type Broker struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func Dial(url, queue string) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open a channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &Broker{conn: conn, ch: ch, queue: queue}, nil
}

func (b *Broker) Close() error {
	chErr := b.ch.Close()
	return errors.Join(chErr, b.conn.Close())
}

// Publish enqueues a persistent job and returns the message sent.
func (b *Broker) Publish(ctx context.Context, typ Type, videoID string) (*Message, error) {
	msg, err := NewMessage(typ, videoID)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	err = b.ch.PublishWithContext(ctx, "", b.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.JobID,
		Timestamp:    msg.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return nil, fmt.Errorf("publish job: %w", err)
	}
	return msg, nil
}

// Consume processes deliveries one at a time until ctx is cancelled or the
// channel closes.
func (b *Broker) Consume(ctx context.Context, d *Dispatcher) error {
	if err := b.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := b.ch.Consume(b.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume the queue: %w", err)
	}

	log.Info().Str("queue", b.queue).Msg("waiting for jobs")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			d.Handle(ctx, delivery)
		}
	}
}

// NewMessage builds a job message with a fresh ID.
func NewMessage(typ Type, videoID string) (*Message, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("unknown job type: %s", typ)
	}
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, errors.New("video_id is required")
	}
	return &Message{
		JobID:     uuid.NewString(),
		Type:      typ,
		VideoID:   videoID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Dispatcher runs the handler for each delivery and settles it. Failed
// jobs are dropped, not requeued.
type Dispatcher struct {
	handlers Handlers
	notifier notify.Notifier
}

func NewDispatcher(handlers Handlers, notifier notify.Notifier) *Dispatcher {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Dispatcher{handlers: handlers, notifier: notifier}
}

func (d *Dispatcher) Handle(ctx context.Context, delivery amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal the message")
		delivery.Nack(false, false)
		return
	}
	logger := log.With().Str("jobId", msg.JobID).Str("type", string(msg.Type)).Str("videoId", msg.VideoID).Logger()

	handler, ok := d.handlers[msg.Type]
	if !ok {
		logger.Error().Msg("no handler for the job type")
		delivery.Nack(false, false)
		return
	}

	ctx = notify.WithJobID(ctx, msg.JobID)
	d.notifier.Publish(ctx, notify.Event{JobID: msg.JobID, VideoID: msg.VideoID, Task: string(msg.Type), Stage: notify.StageQueued})

	start := time.Now()
	if err := handler(ctx, msg.VideoID); err != nil {
		logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("job failed")
		delivery.Nack(false, false)
		return
	}
	logger.Info().Dur("elapsed", time.Since(start)).Msg("job finished")
	delivery.Ack(false)
}
