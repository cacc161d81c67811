// Package fetcher drives profile lookups. A lookup walks an ordered list
// of acquisition strategies, retrying only rate-limited attempts, then
// normalizes the first payload that arrives and records it in the cache
// and the durable history.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"socialscope/pkg/cache"
	errs "socialscope/pkg/errors"
	"socialscope/pkg/history"
	"socialscope/pkg/logger"
	"socialscope/pkg/normalize"
	"socialscope/pkg/retry"
	"socialscope/pkg/social"
)

// Strategy is one way of acquiring a raw profile payload.
type Strategy interface {
	// Name identifies the strategy in logs and failure summaries.
	Name() string

	// Fetch retrieves the raw payload for username.
	Fetch(ctx context.Context, username string) (normalize.RawPayload, error)
}

// Orchestrator coordinates strategies, cache and history for both
// platforms.
type Orchestrator struct {
	strategies map[social.Platform][]Strategy
	cache      *cache.Cache
	history    *history.Store
	retryCfg   RetryConfig
	inflight   singleflight.Group
	logger     logger.Logger
}

// RetryConfig controls how rate-limited strategy attempts are retried.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCache attaches a result cache.
func WithCache(c *cache.Cache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithHistory attaches a durable history store.
func WithHistory(h *history.Store) Option {
	return func(o *Orchestrator) { o.history = h }
}

// WithRetry overrides the rate-limit retry parameters.
func WithRetry(cfg RetryConfig) Option {
	return func(o *Orchestrator) { o.retryCfg = cfg }
}

// WithLogger overrides the logger.
func WithLogger(log logger.Logger) Option {
	return func(o *Orchestrator) { o.logger = log }
}

// New creates an orchestrator. Strategies are registered per platform
// with RegisterStrategies; their order is the fallback order.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		strategies: make(map[social.Platform][]Strategy),
		retryCfg: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   10 * time.Second,
		},
		logger: logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RegisterStrategies sets the ordered strategy list for a platform.
func (o *Orchestrator) RegisterStrategies(platform social.Platform, strategies ...Strategy) {
	o.strategies[platform] = strategies
}

// Lookup fetches the profile for username on platform. Concurrent
// lookups for the same profile are coalesced into one upstream fetch.
func (o *Orchestrator) Lookup(ctx context.Context, platform social.Platform, username string) (social.UserRecord, error) {
	username = social.NormalizeUsername(username)
	if !social.ValidUsername(username) {
		return social.UserRecord{}, errs.Newf(errs.ErrorTypeConfig, "invalid username %q", username)
	}

	if o.cache != nil {
		if record, ok := o.cache.Get(platform, username); ok {
			o.logger.DebugWithFields("cache hit", map[string]interface{}{
				"platform": string(platform),
				"username": username,
			})
			return record, nil
		}
	}

	key := social.Key(platform, username)
	result, err, _ := o.inflight.Do(key, func() (interface{}, error) {
		return o.fetch(ctx, platform, username)
	})
	if err != nil {
		return social.UserRecord{}, err
	}
	return result.(social.UserRecord), nil
}

func (o *Orchestrator) fetch(ctx context.Context, platform social.Platform, username string) (social.UserRecord, error) {
	strategies := o.strategies[platform]
	if len(strategies) == 0 {
		return social.UserRecord{}, errs.Newf(errs.ErrorTypeConfig,
			"no strategies registered for platform %s", platform)
	}

	var lastErr error
	for _, strategy := range strategies {
		payload, err := o.fetchWithRetry(ctx, strategy, username)
		if err != nil {
			if errs.IsType(err, errs.ErrorTypeNotFound) {
				// A definitive "no such profile" answer; trying other
				// strategies would only waste quota.
				return social.UserRecord{}, err
			}
			if ctx.Err() != nil {
				return social.UserRecord{}, err
			}

			o.logger.WarnWithFields("strategy failed, trying next", map[string]interface{}{
				"strategy": strategy.Name(),
				"platform": string(platform),
				"username": username,
				"error":    err.Error(),
			})
			lastErr = err
			continue
		}

		record, err := normalize.Normalize(platform, payload, username)
		if err != nil {
			o.logger.WarnWithFields("payload failed normalization, trying next strategy", map[string]interface{}{
				"strategy": strategy.Name(),
				"provider": string(payload.Provider),
				"username": username,
				"error":    err.Error(),
			})
			lastErr = err
			continue
		}

		record.FetchedAt = time.Now().UTC()

		if o.cache != nil {
			o.cache.Put(record)
		}
		if o.history != nil {
			o.history.Upsert(record)
		}

		o.logger.InfoWithFields("profile fetched", map[string]interface{}{
			"strategy":  strategy.Name(),
			"platform":  string(platform),
			"username":  record.Username,
			"followers": record.Followers,
		})
		return record, nil
	}

	return social.UserRecord{}, errs.Wrap(errs.ErrorTypeAllFailed, lastErr,
		fmt.Sprintf("all strategies failed for %s profile %q", platform, username))
}

// fetchWithRetry runs one strategy, retrying only when it reports rate
// limiting. The delay grows linearly with the attempt number.
func (o *Orchestrator) fetchWithRetry(ctx context.Context, strategy Strategy, username string) (normalize.RawPayload, error) {
	cfg := &retry.Config{
		MaxAttempts: o.retryCfg.MaxAttempts,
		Backoff:     &retry.LinearBackoff{BaseDelay: o.retryCfg.BaseDelay},
		RetryIf:     retry.RateLimitOnly,
		Context:     ctx,
		Logger:      o.logger,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			o.logger.WarnWithFields("rate limited, backing off", map[string]interface{}{
				"strategy": strategy.Name(),
				"username": username,
				"attempt":  attempt,
				"delay":    delay,
			})
		},
	}

	return retry.DoWithResult(func() (normalize.RawPayload, error) {
		return strategy.Fetch(ctx, username)
	}, cfg)
}
