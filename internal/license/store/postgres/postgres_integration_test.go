//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"keygate/internal/license/models"
	"keygate/internal/license/store/postgres"
	"keygate/pkg/platform/sentinel"
	"keygate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "licenses"))
}

func newTestLicense(cap int) *models.License {
	id := uuid.NewString()
	return &models.License{
		Key:         "PZDT-" + id[:4] + "-" + id[4:8] + "-" + id[9:13] + "-" + id[14:18],
		Email:       "buyer@example.com",
		Plan:        models.PlanProfessional,
		DeviceCap:   cap,
		Activations: []string{},
		Active:      true,
		IssuedAt:    time.Now().UTC().Truncate(time.Microsecond),
		EventToken:  "tok-" + id,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	l := newTestLicense(3)
	s.Require().NoError(s.store.Create(ctx, l))

	found, err := s.store.FindByKey(ctx, l.Key)
	s.Require().NoError(err)
	s.Equal(l.Email, found.Email)
	s.Equal(l.Plan, found.Plan)
	s.Equal(3, found.DeviceCap)
	s.True(found.Active)
	s.Empty(found.Activations)
	s.Equal(l.EventToken, found.EventToken)

	byToken, err := s.store.FindByEventToken(ctx, l.EventToken)
	s.Require().NoError(err)
	s.Equal(l.Key, byToken.Key)

	_, err = s.store.FindByKey(ctx, "PZDT-DEAD-BEEF-DEAD-BEEF")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUniqueViolations() {
	ctx := context.Background()

	s.Run("duplicate key", func() {
		l1 := newTestLicense(1)
		l2 := newTestLicense(1)
		l2.Key = l1.Key

		s.Require().NoError(s.store.Create(ctx, l1))
		s.Require().ErrorIs(s.store.Create(ctx, l2), sentinel.ErrDuplicateKey)
	})

	s.Run("duplicate event token", func() {
		l1 := newTestLicense(1)
		l2 := newTestLicense(1)
		l2.EventToken = l1.EventToken

		s.Require().NoError(s.store.Create(ctx, l1))
		s.Require().ErrorIs(s.store.Create(ctx, l2), sentinel.ErrDuplicateEvent)
	})
}

// TestConcurrentCreateSameEventToken verifies that racing redeliveries of one
// purchase event result in exactly one stored license.
func (s *PostgresStoreSuite) TestConcurrentCreateSameEventToken() {
	ctx := context.Background()
	token := "tok-race-" + uuid.NewString()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, duplicateCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := newTestLicense(1)
			l.EventToken = token
			err := s.store.Create(ctx, l)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrDuplicateEvent):
				duplicateCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), duplicateCount.Load())
}

func (s *PostgresStoreSuite) TestAddActivation() {
	ctx := context.Background()
	l := newTestLicense(2)
	s.Require().NoError(s.store.Create(ctx, l))

	updated, err := s.store.AddActivation(ctx, l.Key, "device-a")
	s.Require().NoError(err)
	s.Equal([]string{"device-a"}, updated.Activations)

	updated, err = s.store.AddActivation(ctx, l.Key, "device-a")
	s.Require().ErrorIs(err, sentinel.ErrAlreadyBound)
	s.Len(updated.Activations, 1)

	_, err = s.store.AddActivation(ctx, l.Key, "device-b")
	s.Require().NoError(err)

	_, err = s.store.AddActivation(ctx, l.Key, "device-c")
	s.Require().ErrorIs(err, sentinel.ErrCapExceeded)

	_, err = s.store.AddActivation(ctx, "PZDT-DEAD-BEEF-DEAD-BEEF", "device-a")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentActivations drives many devices against one license and
// verifies the cap invariant survives the races through the version check.
func (s *PostgresStoreSuite) TestConcurrentActivations() {
	ctx := context.Background()
	const cap = 3
	const goroutines = 30

	l := newTestLicense(cap)
	s.Require().NoError(s.store.Create(ctx, l))

	var wg sync.WaitGroup
	var granted, capDenied, contended atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.store.AddActivation(ctx, l.Key, fmt.Sprintf("device-%d", n))
			switch {
			case err == nil:
				granted.Add(1)
			case errors.Is(err, sentinel.ErrCapExceeded):
				capDenied.Add(1)
			case errors.Is(err, sentinel.ErrContention):
				contended.Add(1)
			}
		}(i)
	}
	wg.Wait()

	found, err := s.store.FindByKey(ctx, l.Key)
	s.Require().NoError(err)
	s.LessOrEqual(len(found.Activations), cap, "activation set must never exceed the cap")
	s.Equal(int(granted.Load()), len(found.Activations), "every grant is persisted exactly once")
	s.Equal(int32(goroutines), granted.Load()+capDenied.Load()+contended.Load())
}

func (s *PostgresStoreSuite) TestSetActiveAndList() {
	ctx := context.Background()
	l := newTestLicense(1)
	s.Require().NoError(s.store.Create(ctx, l))

	updated, err := s.store.SetActive(ctx, l.Key, false)
	s.Require().NoError(err)
	s.False(updated.Active)

	updated, err = s.store.SetActive(ctx, l.Key, true)
	s.Require().NoError(err)
	s.True(updated.Active)

	_, err = s.store.SetActive(ctx, "PZDT-DEAD-BEEF-DEAD-BEEF", false)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	l2 := newTestLicense(1)
	s.Require().NoError(s.store.Create(ctx, l2))

	all, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}
