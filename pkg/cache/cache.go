// Package cache keeps recent lookup results in memory so repeated
// requests for the same profile inside the freshness window never touch
// the network. Instagram entries expire quickly because profiles churn;
// TikTok entries live longer to conserve proxy API quota.
package cache

import (
	"time"

	"github.com/coocood/freecache"
	"github.com/goccy/go-json"

	"socialscope/pkg/logger"
	"socialscope/pkg/social"
)

// DefaultSizeBytes is the in-memory cache budget when none is configured.
const DefaultSizeBytes = 8 * 1024 * 1024

// Cache stores normalized user records with per-platform TTLs.
type Cache struct {
	store        *freecache.Cache
	instagramTTL time.Duration
	tiktokTTL    time.Duration
	logger       logger.Logger
}

// New creates a cache with the given memory budget and per-platform TTLs.
func New(sizeBytes int, instagramTTL, tiktokTTL time.Duration, log logger.Logger) *Cache {
	if sizeBytes <= 0 {
		sizeBytes = DefaultSizeBytes
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Cache{
		store:        freecache.NewCache(sizeBytes),
		instagramTTL: instagramTTL,
		tiktokTTL:    tiktokTTL,
		logger:       log,
	}
}

// Get returns the cached record for the platform and username, if present
// and not expired.
func (c *Cache) Get(platform social.Platform, username string) (social.UserRecord, bool) {
	key := []byte(social.Key(platform, username))
	raw, err := c.store.Get(key)
	if err != nil {
		return social.UserRecord{}, false
	}

	var record social.UserRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		// A record that no longer decodes is useless; drop it.
		c.store.Del(key)
		c.logger.WithError(err).Warn("dropping undecodable cache entry")
		return social.UserRecord{}, false
	}
	return record, true
}

// Put stores a record under its platform TTL. Serialization failures are
// logged and swallowed: the cache is an optimization, not a store of
// record.
func (c *Cache) Put(record social.UserRecord) {
	raw, err := json.Marshal(record)
	if err != nil {
		c.logger.WithError(err).Warn("failed to serialize record for cache")
		return
	}

	key := []byte(social.Key(record.Platform, record.Username))
	if err := c.store.Set(key, raw, int(c.ttlFor(record.Platform).Seconds())); err != nil {
		c.logger.WithError(err).Warn("failed to cache record")
	}
}

// Invalidate removes a single cached record.
func (c *Cache) Invalidate(platform social.Platform, username string) {
	c.store.Del([]byte(social.Key(platform, username)))
}

// Clear drops every cached record.
func (c *Cache) Clear() {
	c.store.Clear()
}

// EntryCount reports how many records are currently cached.
func (c *Cache) EntryCount() int64 {
	return c.store.EntryCount()
}

func (c *Cache) ttlFor(platform social.Platform) time.Duration {
	if platform == social.TikTok {
		return c.tiktokTTL
	}
	return c.instagramTTL
}
