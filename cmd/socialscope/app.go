package main

import (
	"time"

	"socialscope/pkg/cache"
	"socialscope/pkg/config"
	"socialscope/pkg/fetcher"
	"socialscope/pkg/history"
	"socialscope/pkg/instagram"
	"socialscope/pkg/logger"
	"socialscope/pkg/proxyapi"
	"socialscope/pkg/ratelimit"
	"socialscope/pkg/session"
	"socialscope/pkg/social"
	"socialscope/pkg/tiktok"
)

// app bundles the wired lookup components behind the CLI commands.
type app struct {
	cfg          *config.Config
	orchestrator *fetcher.Orchestrator
	batch        *fetcher.BatchRunner
	cache        *cache.Cache
	history      *history.Store
	logger       logger.Logger
}

const scrapeTimeout = 15 * time.Second

// newApp wires strategies, cache and history from the configuration.
// Strategy order is the fallback order: for Instagram an authenticated
// session first, anonymous scraping next, the proxy API last; for
// TikTok the proxy API first (it is far more reliable) and anonymous
// scraping as the fallback.
func newApp(cfg *config.Config) (*app, error) {
	log := logger.GetLogger()

	resultCache := cache.New(cfg.Cache.SizeBytes, cfg.Cache.InstagramTTL, cfg.Cache.TikTokTTL, log)
	historyStore := history.NewStore(cfg.History.File, log)

	orchestrator := fetcher.New(
		fetcher.WithCache(resultCache),
		fetcher.WithHistory(historyStore),
		fetcher.WithRetry(fetcher.RetryConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
		}),
		fetcher.WithLogger(log),
	)

	scrapeLimiter := ratelimit.Limiter(ratelimit.Unlimited{})
	if cfg.Instagram.RequestsPerMinute > 0 {
		scrapeLimiter = ratelimit.NewTokenBucket(cfg.Instagram.RequestsPerMinute, time.Minute)
	}

	var instagramStrategies []fetcher.Strategy
	if sessionID, csrfToken := resolveSession(cfg, log); sessionID != "" {
		instagramStrategies = append(instagramStrategies, instagram.NewSessionStrategy(
			instagram.NewClient(scrapeTimeout, log), sessionID, csrfToken, scrapeLimiter, log))
	}
	instagramStrategies = append(instagramStrategies, instagram.NewAnonymousStrategy(
		instagram.NewClient(scrapeTimeout, log), scrapeLimiter, log))

	tiktokStrategies := []fetcher.Strategy{
		tiktok.NewScrapeStrategy(scrapeTimeout, ratelimit.Unlimited{}, log),
	}

	if cfg.ProxyAPI.Key != "" {
		igProxy, err := proxyapi.NewClient(cfg.ProxyAPI.Key, cfg.ProxyAPI.InstagramTimeout, log)
		if err != nil {
			return nil, err
		}
		ttProxy, err := proxyapi.NewClient(cfg.ProxyAPI.Key, cfg.ProxyAPI.TikTokTimeout, log)
		if err != nil {
			return nil, err
		}
		instagramStrategies = append(instagramStrategies,
			proxyapi.NewInstagramStrategy(igProxy, cfg.ProxyAPI.InstagramHost))
		tiktokStrategies = append([]fetcher.Strategy{
			proxyapi.NewTikTokStrategy(ttProxy, cfg.ProxyAPI.TikTokHost),
		}, tiktokStrategies...)
	}

	orchestrator.RegisterStrategies(social.Instagram, instagramStrategies...)
	orchestrator.RegisterStrategies(social.TikTok, tiktokStrategies...)

	return &app{
		cfg:          cfg,
		orchestrator: orchestrator,
		batch:        fetcher.NewBatchRunner(orchestrator, cfg.Batch.Workers, log),
		cache:        resultCache,
		history:      historyStore,
		logger:       log,
	}, nil
}

// resolveSession prefers explicit config credentials, then the stored
// session chain. Missing sessions are normal, not an error.
func resolveSession(cfg *config.Config, log logger.Logger) (string, string) {
	if cfg.Instagram.SessionID != "" && cfg.Instagram.CSRFToken != "" {
		return cfg.Instagram.SessionID, cfg.Instagram.CSRFToken
	}

	manager, err := session.NewManager()
	if err != nil {
		log.WithError(err).Debug("session manager unavailable")
		return "", ""
	}
	stored, err := manager.RetrieveDefault()
	if err != nil {
		return "", ""
	}

	log.WithField("account", stored.Username).Debug("using stored Instagram session")
	return stored.SessionID, stored.CSRFToken
}
