// Package kafka wraps the franz-go producer used for outbound, best-effort
// event delivery. Only asynchronous produce is exposed; callers that need
// delivery guarantees do not belong on this path.
package kafka

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is a thin wrapper over a kgo.Client pinned to one topic.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer connects to the brokers and verifies the connection.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := client.Ping(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}

	return &Producer{client: client, topic: topic}, nil
}

// ProduceAsync fires a record and invokes done when the broker acks or the
// produce fails. It never blocks on delivery.
func (p *Producer) ProduceAsync(ctx context.Context, key, value []byte, done func(error)) {
	rec := &kgo.Record{Topic: p.topic, Key: key, Value: value}
	p.client.Produce(ctx, rec, func(_ *kgo.Record, err error) {
		if done != nil {
			done(err)
		}
	})
}

// Flush drains in-flight records, bounded by ctx.
func (p *Producer) Flush(ctx context.Context) error {
	return p.client.Flush(ctx)
}

// Close flushes and releases the client.
func (p *Producer) Close() {
	p.client.Close()
}
