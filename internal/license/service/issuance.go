package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"keygate/internal/license/models"
	"keygate/internal/license/store"
	"keygate/internal/notify"
	"keygate/internal/payment/stripe"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/platform/sentinel"
)

// EventTokenFor derives the persisted idempotency token from a provider event
// identifier. Deterministic by construction: the same redelivered event always
// maps to the same token.
func EventTokenFor(eventID string) string {
	sum := sha256.Sum256([]byte(eventID))
	return hex.EncodeToString(sum[:])
}

// HandlePurchaseCompleted authenticates a purchase-completion delivery and
// mints at most one license for it.
//
// Outcomes:
//   - (license, nil): a new license was created and handed to the dispatcher.
//   - (existing, CodeDuplicateEvent): redelivery; no new license.
//   - (nil, nil): verified event of a type we do not act on.
//   - (nil, CodeInvalidEvent): signature or payload failed verification; no
//     side effects of any kind.
//
// Dispatcher failures are logged, never propagated: the license is valid and
// usable even if the email never arrives.
func (s *Service) HandlePurchaseCompleted(ctx context.Context, payload []byte, sigHeader string) (*models.License, error) {
	ctx, span := tracer.Start(ctx, "license.HandlePurchaseCompleted")
	defer span.End()
	start := time.Now()
	defer s.metrics.ObserveIssue(start)

	event, err := s.verifier.Verify(payload, sigHeader)
	if err != nil {
		s.logger.WarnContext(ctx, "rejected purchase event", "error", err.Error())
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidEvent, "invalid signature")
	}

	span.SetAttributes(
		attribute.String("event.id", event.ID),
		attribute.String("event.type", event.Type),
	)

	if event.Type != stripe.EventCheckoutCompleted {
		s.logger.InfoContext(ctx, "ignoring purchase event type", "type", event.Type)
		return nil, nil
	}

	purchaser := event.Data.Object.CustomerDetails.Email
	if purchaser == "" {
		return nil, dErrors.New(dErrors.CodeInvalidEvent, "event missing purchaser email")
	}

	plan := models.Plan(event.Data.Object.Metadata.Plan)
	cap, known := models.DeviceCapFor(plan)
	if !known {
		// Safe default cap; never silently grant an elevated one.
		s.metrics.IncrementUnknownPlan()
		s.logger.WarnContext(ctx, "unknown plan tag on purchase event",
			"event_id", event.ID,
			"plan", string(plan),
			"device_cap", cap,
		)
	}

	token := EventTokenFor(event.ID)
	if existing, err := s.store.FindByEventToken(ctx, token); err == nil {
		s.metrics.IncrementDuplicateEvent()
		s.logger.InfoContext(ctx, "duplicate purchase event", "event_id", event.ID, "key", existing.Key)
		return existing, dErrors.New(dErrors.CodeDuplicateEvent, "event already processed")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check event token")
	}

	license, err := s.createWithFreshKey(ctx, purchaser, plan, cap, token)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeDuplicateEvent) {
			// Lost a redelivery race after the probe; the winner's license is
			// the one true record.
			s.metrics.IncrementDuplicateEvent()
			if existing, findErr := s.store.FindByEventToken(ctx, token); findErr == nil {
				return existing, err
			}
		}
		return nil, err
	}

	s.metrics.IncrementIssued()
	s.logger.InfoContext(ctx, "license issued",
		"key", license.Key,
		"plan", string(license.Plan),
		"device_cap", license.DeviceCap,
	)

	s.dispatch(ctx, license)
	return license, nil
}

// createWithFreshKey generates keys until the store accepts one. Collisions
// are expected never, but the contract handles them rather than assuming them
// away; the loop shares the store-wide retry ceiling.
func (s *Service) createWithFreshKey(ctx context.Context, purchaser string, plan models.Plan, cap int, token string) (*models.License, error) {
	for attempt := 0; attempt < store.MaxAttempts; attempt++ {
		key, err := s.keys.Generate()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate key")
		}

		license := &models.License{
			Key:         key,
			Email:       purchaser,
			Plan:        plan,
			DeviceCap:   cap,
			Activations: []string{},
			Active:      true,
			IssuedAt:    time.Now().UTC(),
			EventToken:  token,
		}

		err = s.store.Create(ctx, license)
		switch {
		case err == nil:
			return license, nil
		case errors.Is(err, sentinel.ErrDuplicateKey):
			s.logger.WarnContext(ctx, "license key collision, regenerating", "key", key)
			continue
		case errors.Is(err, sentinel.ErrDuplicateEvent):
			return nil, dErrors.New(dErrors.CodeDuplicateEvent, "event already processed")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create license")
		}
	}
	return nil, dErrors.New(dErrors.CodeContention, "could not allocate a unique key")
}

func (s *Service) dispatch(ctx context.Context, license *models.License) {
	if s.dispatcher == nil {
		return
	}
	// The request may complete before the channel acks; the dispatch must not
	// die with it.
	ctx = context.WithoutCancel(ctx)
	if err := s.dispatcher.Send(ctx, notify.ForLicense(license)); err != nil {
		s.logger.ErrorContext(ctx, "notification dispatch failed",
			"key", license.Key,
			"error", err.Error(),
		)
	}
}
