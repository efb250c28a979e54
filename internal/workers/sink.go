package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/axellelanca/linkstats/internal/logger"
	"github.com/axellelanca/linkstats/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// VisitSink receives the visit events emitted by the redirect handler.
// Record must not block the redirect; it reports whether the event was accepted.
type VisitSink interface {
	Record(ctx context.Context, event models.VisitEvent) bool
}

// ChannelSink hands events to the in-process workers. It owns the send side
// of the channel: Close closes it once no Record is in flight.
type ChannelSink struct {
	mu     sync.RWMutex
	closed bool
	events chan<- models.VisitEvent
}

// NewChannelSink returns a sink feeding events.
func NewChannelSink(events chan<- models.VisitEvent) *ChannelSink {
	return &ChannelSink{events: events}
}

// Record drops the event when the buffer is full or the sink is closed,
// rather than delaying the caller.
func (s *ChannelSink) Record(ctx context.Context, event models.VisitEvent) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		logger.FromContext(ctx).Warn("visit sink closed, dropping event", "link_id", event.LinkID)
		return false
	}

	select {
	case s.events <- event:
		return true
	default:
		logger.FromContext(ctx).Warn("visit buffer full, dropping event", "link_id", event.LinkID)
		return false
	}
}

// Close closes the events channel so the workers drain and stop. Later
// calls to Record drop their event; Close is idempotent.
func (s *ChannelSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

// Publisher is the part of *amqp.Channel used to publish events.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes events as JSON on a queue through the default exchange.
type AMQPSink struct {
	publisher Publisher
	queue     string
}

// NewAMQPSink returns a sink publishing on queue.
func NewAMQPSink(publisher Publisher, queue string) *AMQPSink {
	return &AMQPSink{publisher: publisher, queue: queue}
}

func (s *AMQPSink) Record(ctx context.Context, event models.VisitEvent) bool {
	if err := s.publish(ctx, event); err != nil {
		logger.FromContext(ctx).Error("failed to publish visit event", "link_id", event.LinkID, "err", err)
		return false
	}
	return true
}

func (s *AMQPSink) publish(ctx context.Context, event models.VisitEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode visit event: %w", err)
	}
	return s.publisher.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.Timestamp,
		Body:         body,
	})
}
