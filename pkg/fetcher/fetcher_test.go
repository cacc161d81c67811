package fetcher

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialscope/pkg/cache"
	errs "socialscope/pkg/errors"
	"socialscope/pkg/history"
	"socialscope/pkg/logger"
	"socialscope/pkg/normalize"
	"socialscope/pkg/social"
)

// stubStrategy returns scripted payloads or errors, counting calls.
type stubStrategy struct {
	name    string
	payload normalize.RawPayload
	errs    []error
	calls   atomic.Int32
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Fetch(ctx context.Context, username string) (normalize.RawPayload, error) {
	call := int(s.calls.Add(1)) - 1
	if call < len(s.errs) && s.errs[call] != nil {
		return normalize.RawPayload{}, s.errs[call]
	}
	return s.payload, nil
}

func instagramPayload(username string) normalize.RawPayload {
	return normalize.RawPayload{
		Provider: normalize.ProviderInstagramWeb,
		Data: map[string]interface{}{
			"username":        username,
			"full_name":       "Test User",
			"follower_count":  float64(1234),
			"following_count": float64(56),
			"media_count":     float64(78),
			"is_verified":     true,
			"is_private":      false,
		},
	}
}

func newOrchestrator(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append(opts, WithLogger(logger.NewTestLogger()), WithRetry(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	}))
	return New(opts...)
}

func TestLookupSuccess(t *testing.T) {
	o := newOrchestrator(t)
	o.RegisterStrategies(social.Instagram, &stubStrategy{
		name:    "primary",
		payload: instagramPayload("testuser"),
	})

	record, err := o.Lookup(context.Background(), social.Instagram, "testuser")
	require.NoError(t, err)
	assert.Equal(t, "testuser", record.Username)
	assert.Equal(t, int64(1234), record.Followers)
	assert.False(t, record.FetchedAt.IsZero())
}

func TestLookupNormalizesInput(t *testing.T) {
	o := newOrchestrator(t)
	o.RegisterStrategies(social.Instagram, &stubStrategy{
		name:    "primary",
		payload: instagramPayload("testuser"),
	})

	record, err := o.Lookup(context.Background(), social.Instagram, "  @testuser/  ")
	require.NoError(t, err)
	assert.Equal(t, "testuser", record.Username)
}

func TestLookupRejectsInvalidUsername(t *testing.T) {
	o := newOrchestrator(t)
	o.RegisterStrategies(social.Instagram, &stubStrategy{name: "primary"})

	_, err := o.Lookup(context.Background(), social.Instagram, "not a user!")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfig))
}

func TestLookupFallsThroughToNextStrategy(t *testing.T) {
	failing := &stubStrategy{
		name: "failing",
		errs: []error{errs.New(errs.ErrorTypeNetwork, "connection refused")},
	}
	working := &stubStrategy{
		name:    "working",
		payload: instagramPayload("testuser"),
	}

	o := newOrchestrator(t)
	o.RegisterStrategies(social.Instagram, failing, working)

	record, err := o.Lookup(context.Background(), social.Instagram, "testuser")
	require.NoError(t, err)
	assert.Equal(t, "testuser", record.Username)
	assert.Equal(t, int32(1), failing.calls.Load())
	assert.Equal(t, int32(1), working.calls.Load())
}

func TestLookupNotFoundShortCircuits(t *testing.T) {
	first := &stubStrategy{
		name: "first",
		errs: []error{errs.New(errs.ErrorTypeNotFound, "no such profile")},
	}
	second := &stubStrategy{
		name:    "second",
		payload: instagramPayload("ghost"),
	}

	o := newOrchestrator(t)
	o.RegisterStrategies(social.Instagram, first, second)

	_, err := o.Lookup(context.Background(), social.Instagram, "ghost")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNotFound))
	assert.Equal(t, int32(0), second.calls.Load(), "not-found must not fall through")
}

func TestLookupRetriesRateLimit(t *testing.T) {
	strategy := &stubStrategy{
		name: "throttled",
		errs: []error{
			errs.New(errs.ErrorTypeRateLimit, "slow down"),
			errs.New(errs.ErrorTypeRateLimit, "slow down"),
		},
		payload: instagramPayload("testuser"),
	}

	o := newOrchestrator(t)
	o.RegisterStrategies(social.Instagram, strategy)

	record, err := o.Lookup(context.Background(), social.Instagram, "testuser")
	require.NoError(t, err)
	assert.Equal(t, "testuser", record.Username)
	assert.Equal(t, int32(3), strategy.calls.Load())
}

func TestLookupDoesNotRetryOtherErrors(t *testing.T) {
	strategy := &stubStrategy{
		name: "broken",
		errs: []error{
			errs.New(errs.ErrorTypeServerError, "boom"),
			errs.New(errs.ErrorTypeServerError, "boom"),
			errs.New(errs.ErrorTypeServerError, "boom"),
		},
	}

	o := newOrchestrator(t)
	o.RegisterStrategies(social.Instagram, strategy)

	_, err := o.Lookup(context.Background(), social.Instagram, "testuser")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeAllFailed))
	assert.Equal(t, int32(1), strategy.calls.Load())
}

func TestLookupAllStrategiesFailed(t *testing.T) {
	o := newOrchestrator(t)
	o.RegisterStrategies(social.Instagram,
		&stubStrategy{name: "a", errs: []error{errs.New(errs.ErrorTypeNetwork, "down")}},
		&stubStrategy{name: "b", errs: []error{errs.New(errs.ErrorTypeServerError, "boom")}},
	)

	_, err := o.Lookup(context.Background(), social.Instagram, "testuser")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeAllFailed))
}

func TestLookupNoStrategiesRegistered(t *testing.T) {
	o := newOrchestrator(t)

	_, err := o.Lookup(context.Background(), social.TikTok, "testuser")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfig))
}

func TestLookupServesFromCache(t *testing.T) {
	strategy := &stubStrategy{name: "primary", payload: instagramPayload("testuser")}
	c := cache.New(cache.DefaultSizeBytes, time.Hour, time.Hour, logger.NewTestLogger())

	o := newOrchestrator(t, WithCache(c))
	o.RegisterStrategies(social.Instagram, strategy)

	_, err := o.Lookup(context.Background(), social.Instagram, "testuser")
	require.NoError(t, err)
	_, err = o.Lookup(context.Background(), social.Instagram, "testuser")
	require.NoError(t, err)

	assert.Equal(t, int32(1), strategy.calls.Load(), "second lookup must hit the cache")
}

func TestLookupWritesHistory(t *testing.T) {
	store := history.NewStore(filepath.Join(t.TempDir(), "history.json"), logger.NewTestLogger())
	o := newOrchestrator(t, WithHistory(store))
	o.RegisterStrategies(social.Instagram, &stubStrategy{
		name:    "primary",
		payload: instagramPayload("testuser"),
	})

	_, err := o.Lookup(context.Background(), social.Instagram, "testuser")
	require.NoError(t, err)

	got, ok := store.Get(social.Instagram, "testuser")
	require.True(t, ok)
	assert.Equal(t, int64(1234), got.Followers)
}

func TestLookupFailuresNotWrittenToHistory(t *testing.T) {
	store := history.NewStore(filepath.Join(t.TempDir(), "history.json"), logger.NewTestLogger())
	o := newOrchestrator(t, WithHistory(store))
	o.RegisterStrategies(social.Instagram, &stubStrategy{
		name: "failing",
		errs: []error{errs.New(errs.ErrorTypeNotFound, "no such profile")},
	})

	_, err := o.Lookup(context.Background(), social.Instagram, "ghost")
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestLookupCoalescesConcurrentRequests(t *testing.T) {
	slow := &slowStrategy{payload: instagramPayload("testuser")}
	o := newOrchestrator(t)
	o.RegisterStrategies(social.Instagram, slow)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Lookup(context.Background(), social.Instagram, "testuser")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), slow.calls.Load(), "concurrent lookups must share one fetch")
}

// slowStrategy blocks long enough for concurrent callers to pile up.
type slowStrategy struct {
	payload normalize.RawPayload
	calls   atomic.Int32
}

func (s *slowStrategy) Name() string { return "slow" }

func (s *slowStrategy) Fetch(ctx context.Context, username string) (normalize.RawPayload, error) {
	s.calls.Add(1)
	time.Sleep(100 * time.Millisecond)
	return s.payload, nil
}

func TestBatchRunner(t *testing.T) {
	o := newOrchestrator(t)
	o.RegisterStrategies(social.Instagram, &stubStrategy{
		name:    "ig",
		payload: instagramPayload("alpha"),
	})
	o.RegisterStrategies(social.TikTok, &stubStrategy{
		name: "tt",
		errs: []error{errs.New(errs.ErrorTypeNotFound, "no such profile")},
	})

	runner := NewBatchRunner(o, 2, logger.NewTestLogger())
	results := runner.Run(context.Background(), []BatchJob{
		{Platform: social.Instagram, Username: "alpha"},
		{Platform: social.TikTok, Username: "missing"},
	})

	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "alpha", results[0].Record.Username)
	require.Error(t, results[1].Err)
	assert.True(t, errs.IsType(results[1].Err, errs.ErrorTypeNotFound))
}

func TestBatchRunnerPreservesJobOrder(t *testing.T) {
	o := newOrchestrator(t)
	o.RegisterStrategies(social.Instagram, &echoStrategy{})

	usernames := []string{"a", "b", "c", "d", "e", "f"}
	jobs := make([]BatchJob, len(usernames))
	for i, u := range usernames {
		jobs[i] = BatchJob{Platform: social.Instagram, Username: u}
	}

	runner := NewBatchRunner(o, 3, logger.NewTestLogger())
	results := runner.Run(context.Background(), jobs)

	require.Len(t, results, len(usernames))
	for i, result := range results {
		require.NoError(t, result.Err)
		assert.Equal(t, usernames[i], result.Record.Username)
	}
}

// echoStrategy answers every username with a minimal payload for it.
type echoStrategy struct{}

func (e *echoStrategy) Name() string { return "echo" }

func (e *echoStrategy) Fetch(ctx context.Context, username string) (normalize.RawPayload, error) {
	return normalize.RawPayload{
		Provider: normalize.ProviderInstagramWeb,
		Data:     map[string]interface{}{"username": username},
	}, nil
}
