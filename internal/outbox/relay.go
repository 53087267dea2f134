package outbox

import (
	"context"
	"strconv"
	"time"

	"github.com/digibank/digibank-service/internal/repo"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher is the part of *kafka.Writer the relay needs.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Relay forwards committed outbox rows to Kafka.
type Relay struct {
	repo  repo.RepositoryInterface
	pub   Publisher
	log   *zap.SugaredLogger
	batch int
}

func NewRelay(r repo.RepositoryInterface, pub Publisher, log *zap.SugaredLogger, batch int) *Relay {
	if batch <= 0 {
		batch = 100
	}
	return &Relay{repo: r, pub: pub, log: log, batch: batch}
}

// NewWriter builds the Kafka writer used in production.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
}

// RunOnce publishes one batch and returns how many events were sent.
// An event that fails to publish stays unprocessed and is retried on the next call.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	events, err := r.repo.PollOutbox(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, evt := range events {
		msg := kafka.Message{
			Key:   []byte(strconv.FormatUint(evt.ID, 10)),
			Value: []byte(evt.Payload),
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(evt.EventType)},
				{Key: "aggregate", Value: []byte(evt.Aggregate)},
				{Key: "aggregate_id", Value: []byte(strconv.FormatUint(evt.AggregateID, 10))},
			},
		}
		if err := r.pub.WriteMessages(ctx, msg); err != nil {
			r.log.Errorf("publish id=%d: %v", evt.ID, err)
			continue
		}
		if err := r.repo.MarkOutboxProcessed(ctx, evt.ID); err != nil {
			r.log.Errorf("mark processed id=%d: %v", evt.ID, err)
			continue
		}
		sent++
	}
	if sent > 0 {
		r.log.Infof("relayed %d outbox events", sent)
	}
	return sent, nil
}

// Run polls every interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.log.Errorf("poll outbox: %v", err)
			}
		}
	}
}
