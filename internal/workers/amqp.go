package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/axellelanca/linkstats/internal/logger"
	"github.com/axellelanca/linkstats/internal/models"
	"github.com/axellelanca/linkstats/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
)

// prefetch borne le nombre de messages non acquittés par consommateur.
const prefetch = 100

// Broker holds the AMQP connection used for visit events.
type Broker struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// DialBroker connects to url and declares the durable queue.
func DialBroker(url, queue string) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to open broker channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return &Broker{conn: conn, channel: ch, queue: queue}, nil
}

// Sink returns a VisitSink publishing on the broker's queue.
func (b *Broker) Sink() *AMQPSink {
	return NewAMQPSink(b.channel, b.queue)
}

// Deliveries registers a consumer on the queue.
func (b *Broker) Deliveries() (<-chan amqp.Delivery, error) {
	if err := b.channel.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}
	msgs, err := b.channel.Consume(b.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}
	return msgs, nil
}

func (b *Broker) Close() error {
	if err := b.channel.Close(); err != nil {
		b.conn.Close()
		return err
	}
	return b.conn.Close()
}

// ConsumeVisits stores every delivery as a visit until ctx is done or the
// delivery channel closes. Undecodable messages are rejected for good; a
// failed write is requeued.
func ConsumeVisits(ctx context.Context, deliveries <-chan amqp.Delivery, visitRepo repository.VisitRepository) {
	log := logger.With("component", "visit_consumer")
	log.Info("visit consumer started")

	for {
		select {
		case <-ctx.Done():
			log.Info("visit consumer stopped")
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Warn("broker delivery channel closed")
				return
			}
			handleDelivery(ctx, d, visitRepo)
		}
	}
}

func handleDelivery(ctx context.Context, d amqp.Delivery, visitRepo repository.VisitRepository) {
	log := logger.Default()

	var event models.VisitEvent
	if err := json.Unmarshal(d.Body, &event); err != nil || event.LinkID == 0 {
		log.Error("invalid visit message, rejecting", "err", err)
		if rerr := d.Reject(false); rerr != nil {
			log.Error("failed to reject message", "err", rerr)
		}
		return
	}

	if err := storeVisit(ctx, visitRepo, event); err != nil {
		log.Error("failed to save visit, requeueing", "link_id", event.LinkID, "err", err)
		if nerr := d.Nack(false, true); nerr != nil {
			log.Error("failed to nack message", "err", nerr)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		log.Error("failed to ack message", "link_id", event.LinkID, "err", err)
	}
}
