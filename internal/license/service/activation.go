package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"keygate/internal/license/models"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/platform/sentinel"
)

// ValidationResult is returned to a running application instance on success.
type ValidationResult struct {
	Valid     bool
	Plan      models.Plan
	DeviceCap int
	Email     string
}

// Validate checks a license key presented by a device and, when the device is
// new and a slot is free, consumes one activation slot.
//
// The membership check runs before the cap check inside the store's atomic
// update: a returning device on a full license must validate, not be rejected,
// and an app restart must never consume a second slot.
func (s *Service) Validate(ctx context.Context, key, deviceID string) (*ValidationResult, error) {
	ctx, span := tracer.Start(ctx, "license.Validate",
		trace.WithAttributes(attribute.String("license.key", key)),
	)
	defer span.End()
	start := time.Now()
	defer s.metrics.ObserveValidate(start)

	if key == "" || deviceID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing licenseKey or deviceId")
	}

	license, err := s.store.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementDenied("invalid_key")
			return nil, dErrors.New(dErrors.CodeInvalidKey, "invalid license key")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up license")
	}

	if !license.Active {
		s.metrics.IncrementDenied("deactivated")
		return nil, dErrors.New(dErrors.CodeDeactivated, "license deactivated")
	}

	updated, err := s.store.AddActivation(ctx, key, deviceID)
	switch {
	case err == nil:
		s.metrics.IncrementActivation()
		s.logger.InfoContext(ctx, "device activated",
			"key", key,
			"devices_used", len(updated.Activations),
			"device_cap", updated.DeviceCap,
		)
	case errors.Is(err, sentinel.ErrAlreadyBound):
		// Idempotent re-validation from a known device.
	case errors.Is(err, sentinel.ErrCapExceeded):
		s.metrics.IncrementDenied("device_limit")
		return nil, dErrors.Newf(dErrors.CodeDeviceLimit, "device limit reached (%d devices)", license.DeviceCap)
	case errors.Is(err, sentinel.ErrContention):
		s.metrics.IncrementDenied("contention")
		return nil, dErrors.New(dErrors.CodeContention, "activation contention, retry")
	case errors.Is(err, sentinel.ErrNotFound):
		s.metrics.IncrementDenied("invalid_key")
		return nil, dErrors.New(dErrors.CodeInvalidKey, "invalid license key")
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record activation")
	}

	return &ValidationResult{
		Valid:     true,
		Plan:      updated.Plan,
		DeviceCap: updated.DeviceCap,
		Email:     updated.Email,
	}, nil
}
