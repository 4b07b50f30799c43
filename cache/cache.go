package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"lyricsd/models"
	"lyricsd/schema"
)

// DefaultTTL is how long a resolved record stays cached.
const DefaultTTL = 365 * 24 * time.Hour

// Store is the raw key-value contract a cache backend provides.
// Get returns found=false for missing or expired keys.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key builds the cache key for an (artist, title) pair.
func Key(artist, title string) string {
	return normalize(artist) + ":" + normalize(title)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

// Cache stores LyricsRecords on top of a Store. It never returns errors:
// a broken backend degrades to cache misses and skipped writes.
type Cache struct {
	store Store
	ttl   time.Duration
}

func New(store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string) (models.LyricsRecord, bool) {
	logger := log.WithFields(log.Fields{"module": "cache", "key": key})

	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		logger.Warnf("cache read failed: %v", err)
		return models.LyricsRecord{}, false
	}
	if !found {
		return models.LyricsRecord{}, false
	}

	var record models.LyricsRecord
	if err := schema.Unmarshal(raw, &record); err != nil {
		logger.Warnf("discarding cached entry: %v", err)
		return models.LyricsRecord{}, false
	}
	if !record.Successful() {
		logger.Warn("discarding cached entry without lyrics")
		return models.LyricsRecord{}, false
	}

	logger.Trace("cache hit")
	return record, true
}

// Put writes record under key when it is successful; anything else is skipped.
func (c *Cache) Put(ctx context.Context, key string, record models.LyricsRecord) {
	if !record.Successful() {
		return
	}
	logger := log.WithFields(log.Fields{"module": "cache", "key": key})

	raw, err := json.Marshal(record)
	if err != nil {
		logger.Warnf("failed to encode record: %v", err)
		return
	}
	if err := c.store.Put(ctx, key, raw, c.ttl); err != nil {
		logger.Warnf("cache write failed: %v", err)
		return
	}
	logger.Tracef("cached record for %d days", int(c.ttl.Hours()/24))
}
