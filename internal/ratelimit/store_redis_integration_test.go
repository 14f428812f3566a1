//go:build integration

package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"keygate/internal/ratelimit"
	"keygate/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *ratelimit.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = ratelimit.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestIncrCountsWithinWindow() {
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		got, err := s.store.Incr(ctx, "ratelimit:validate:10.0.0.1", time.Minute)
		s.Require().NoError(err)
		s.Equal(want, got)
	}
}

func (s *RedisStoreSuite) TestKeysCountIndependently() {
	ctx := context.Background()

	_, err := s.store.Incr(ctx, "ratelimit:validate:10.0.0.1", time.Minute)
	s.Require().NoError(err)
	_, err = s.store.Incr(ctx, "ratelimit:validate:10.0.0.1", time.Minute)
	s.Require().NoError(err)

	got, err := s.store.Incr(ctx, "ratelimit:validate:10.0.0.2", time.Minute)
	s.Require().NoError(err)
	s.Equal(int64(1), got)
}

func (s *RedisStoreSuite) TestWindowExpires() {
	ctx := context.Background()

	got, err := s.store.Incr(ctx, "ratelimit:validate:10.0.0.1", time.Second)
	s.Require().NoError(err)
	s.Equal(int64(1), got)

	// The window is anchored at the first hit; a later hit must not extend it.
	time.Sleep(600 * time.Millisecond)
	got, err = s.store.Incr(ctx, "ratelimit:validate:10.0.0.1", time.Second)
	s.Require().NoError(err)
	s.Equal(int64(2), got)

	time.Sleep(600 * time.Millisecond)
	got, err = s.store.Incr(ctx, "ratelimit:validate:10.0.0.1", time.Second)
	s.Require().NoError(err)
	s.Equal(int64(1), got, "counter restarts after the window elapses")
}

func (s *RedisStoreSuite) TestConcurrentIncrements() {
	ctx := context.Background()
	const goroutines = 25

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Incr(ctx, "ratelimit:validate:shared", time.Minute)
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.store.Incr(ctx, "ratelimit:validate:shared", time.Minute)
	s.Require().NoError(err)
	s.Equal(int64(goroutines+1), got, "no increments lost under concurrency")
}
