// Package service implements the license lifecycle: the issuance workflow
// that consumes verified purchase events and the activation engine that
// enforces the device cap. Both paths share nothing but the store, whose
// conditional-update primitive is the only synchronization in play.
package service

import (
	"log/slog"

	"go.opentelemetry.io/otel"

	"keygate/internal/license/keygen"
	licensemetrics "keygate/internal/license/metrics"
	"keygate/internal/license/store"
	"keygate/internal/notify"
	"keygate/internal/payment/stripe"
)

var tracer = otel.Tracer("keygate/license")

// Service orchestrates license issuance, validation and administration.
type Service struct {
	store      store.Store
	verifier   *stripe.Verifier
	keys       *keygen.Generator
	dispatcher notify.Dispatcher
	logger     *slog.Logger
	metrics    *licensemetrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *licensemetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDispatcher sets the notification dispatcher.
func WithDispatcher(d notify.Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

// New creates a license Service backed by the given store and verifier.
func New(st store.Store, verifier *stripe.Verifier, opts ...Option) *Service {
	s := &Service{
		store:    st,
		verifier: verifier,
		keys:     keygen.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}
