package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"keygate/internal/notify/metrics"
	"keygate/internal/platform/kafka"
)

// KafkaDispatcher publishes notifications to the outbound email channel topic.
// The produce is asynchronous; delivery failures surface in the ack callback
// where they are logged and counted, matching the best-effort contract.
type KafkaDispatcher struct {
	producer *kafka.Producer
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewKafkaDispatcher wraps an existing producer.
func NewKafkaDispatcher(producer *kafka.Producer, logger *slog.Logger, m *metrics.Metrics) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer, logger: logger, metrics: m}
}

// Send enqueues the notification. It returns an error only when the payload
// cannot be produced at all; broker-side failures arrive via the callback.
func (d *KafkaDispatcher) Send(ctx context.Context, n Notification) error {
	value, err := json.Marshal(n)
	if err != nil {
		d.metrics.IncrementFailures()
		return fmt.Errorf("marshal notification: %w", err)
	}

	// Key by license key so redeliveries of the same license stay ordered.
	d.producer.ProduceAsync(ctx, []byte(n.Key), value, func(err error) {
		if err != nil {
			d.metrics.IncrementFailures()
			d.logger.Error("notification dispatch failed",
				"key", n.Key,
				"error", err.Error(),
			)
			return
		}
		d.metrics.IncrementSent()
	})
	return nil
}
