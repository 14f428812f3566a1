package service

import (
	"context"
	"errors"

	"keygate/internal/license/models"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/platform/sentinel"
)

// Deactivate revokes a license. The record stays in the store; only the flag
// flips, so activation history survives for audits.
func (s *Service) Deactivate(ctx context.Context, key string) (*models.License, error) {
	license, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := license.CanDeactivate(); err != nil {
		return nil, err
	}

	updated, err := s.store.SetActive(ctx, key, false)
	if err != nil {
		return nil, s.wrapStoreErr(err)
	}
	s.logger.InfoContext(ctx, "license deactivated", "key", key)
	return updated, nil
}

// Reactivate restores a revoked license, activation set intact.
func (s *Service) Reactivate(ctx context.Context, key string) (*models.License, error) {
	license, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := license.CanReactivate(); err != nil {
		return nil, err
	}

	updated, err := s.store.SetActive(ctx, key, true)
	if err != nil {
		return nil, s.wrapStoreErr(err)
	}
	s.logger.InfoContext(ctx, "license reactivated", "key", key)
	return updated, nil
}

// Get returns a license for support inspection.
func (s *Service) Get(ctx context.Context, key string) (*models.License, error) {
	return s.lookup(ctx, key)
}

// List returns every issued license.
func (s *Service) List(ctx context.Context) ([]*models.License, error) {
	licenses, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list licenses")
	}
	return licenses, nil
}

func (s *Service) lookup(ctx context.Context, key string) (*models.License, error) {
	license, err := s.store.FindByKey(ctx, key)
	if err != nil {
		return nil, s.wrapStoreErr(err)
	}
	return license, nil
}

func (s *Service) wrapStoreErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeInvalidKey, "invalid license key")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
}
