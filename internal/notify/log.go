package notify

import (
	"context"
	"log/slog"

	"keygate/internal/notify/metrics"
)

// LogDispatcher is the no-broker fallback: it logs the would-be email so a
// development setup still shows the key that was minted.
type LogDispatcher struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewLogDispatcher(logger *slog.Logger, m *metrics.Metrics) *LogDispatcher {
	return &LogDispatcher{logger: logger, metrics: m}
}

func (d *LogDispatcher) Send(_ context.Context, n Notification) error {
	d.logger.Info("license notification (no channel configured)",
		"to", n.Email,
		"greeting", n.Greeting,
		"license_key", n.Key,
		"plan", n.Plan,
	)
	d.metrics.IncrementSent()
	return nil
}
