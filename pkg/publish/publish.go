// Package publish envoie la table client classée sur un topic Kafka,
// un message par client, clé = CustomerID.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"rfm-segments/pkg/models"

	"github.com/segmentio/kafka-go"
)

const (
	batchSize     = 500
	HeaderRunID   = "run_id"
	HeaderAsOf    = "as_of"
	HeaderSegment = "segment"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher écrit les résultats d'un calcul sur un topic.
type Publisher struct {
	w       messageWriter
	verbose bool
}

// NewPublisher crée un writer kafka-go (LeastBytes) sur topic.
func NewPublisher(brokers []string, topic string, verbose bool) *Publisher {
	return &Publisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		verbose: verbose,
	}
}

// Publish envoie un message JSON par client, par lots.
func (p *Publisher) Publish(ctx context.Context, res models.Result) error {
	asOf := []byte(res.AsOf.Format("2006-01-02"))
	batch := make([]kafka.Message, 0, batchSize)
	sent := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.w.WriteMessages(ctx, batch...); err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		sent += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, c := range res.Customers {
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		batch = append(batch, kafka.Message{
			Key:   []byte(c.CustomerID),
			Value: data,
			Headers: []kafka.Header{
				{Key: HeaderRunID, Value: []byte(res.RunID)},
				{Key: HeaderAsOf, Value: asOf},
				{Key: HeaderSegment, Value: []byte(c.Segment)},
			},
		})
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if p.verbose {
		log.Printf("[INFO] Kafka: %d messages envoyés (run %s)", sent, res.RunID)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.w.Close()
}
