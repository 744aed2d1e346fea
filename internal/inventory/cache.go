package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"intranet-lending/internal/domain"
	"intranet-lending/internal/logger"
	"intranet-lending/internal/storage"
)

// ItemSource performs the full, uncached item fetch.
type ItemSource interface {
	ListItems(ctx context.Context) ([]domain.RemoteItem, error)
}

// ItemCache serves the full item list from memory, then from a file keyed
// by installation, then from the remote system. Both layers expire after
// ttl and are dropped synchronously by Invalidate.
type ItemCache struct {
	source ItemSource
	files  storage.Store
	key    string
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	items     []domain.RemoteItem
	fetchedAt time.Time
}

type cacheFile struct {
	FetchedAt time.Time           `json:"fetched_at"`
	Items     []domain.RemoteItem `json:"items"`
}

// NewItemCache builds a cache whose file name is derived from the
// installation (the inventory base URL), so several portals can share a
// cache directory. files may be nil to disable the file layer.
func NewItemCache(source ItemSource, files storage.Store, installation string, ttl time.Duration) *ItemCache {
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &ItemCache{
		source: source,
		files:  files,
		key:    "inventory-items-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(installation)).String() + ".json",
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source.
func (c *ItemCache) WithClock(now func() time.Time) *ItemCache {
	c.now = now
	return c
}

// GetItems returns every remote item. Callers receive their own copy.
func (c *ItemCache) GetItems(ctx context.Context) ([]domain.RemoteItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.items != nil && now.Sub(c.fetchedAt) < c.ttl {
		return cloneItems(c.items), nil
	}

	if cached, ok := c.readFile(ctx, now); ok {
		c.items, c.fetchedAt = cached.Items, cached.FetchedAt
		return cloneItems(c.items), nil
	}

	items, err := c.source.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.RemoteItem{}
	}
	c.items, c.fetchedAt = items, now
	c.writeFile(cacheFile{FetchedAt: now, Items: items})
	return cloneItems(items), nil
}

// Invalidate drops both layers before returning.
func (c *ItemCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.fetchedAt = time.Time{}
	if c.files == nil {
		return nil
	}
	if err := c.files.DeleteFile(ctx, c.key); err != nil {
		logger.Error("Failed to delete item cache file", "key", c.key, "error", err)
		return err
	}
	return nil
}

func (c *ItemCache) readFile(ctx context.Context, now time.Time) (cacheFile, bool) {
	if c.files == nil {
		return cacheFile{}, false
	}
	exists, _, err := c.files.FileExists(ctx, c.key)
	if err != nil || !exists {
		return cacheFile{}, false
	}
	rc, err := c.files.ReadFile(c.key)
	if err != nil {
		logger.Warn("Failed to open item cache file", "key", c.key, "error", err)
		return cacheFile{}, false
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return cacheFile{}, false
	}
	var cached cacheFile
	if err := json.Unmarshal(data, &cached); err != nil {
		logger.Warn("Discarding unreadable item cache file", "key", c.key, "error", err)
		return cacheFile{}, false
	}
	age := now.Sub(cached.FetchedAt)
	if cached.Items == nil || age < 0 || age >= c.ttl {
		return cacheFile{}, false
	}
	return cached, true
}

func (c *ItemCache) writeFile(cached cacheFile) {
	if c.files == nil {
		return
	}
	data, err := json.Marshal(cached)
	if err == nil {
		err = c.files.SaveFile(c.key, bytes.NewReader(data))
	}
	if err != nil {
		logger.Warn("Failed to write item cache file", "key", c.key, "error", err)
	}
}

func cloneItems(items []domain.RemoteItem) []domain.RemoteItem {
	out := make([]domain.RemoteItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.CustomFields != nil {
			out[i].CustomFields = append([]domain.CustomField(nil), item.CustomFields...)
		}
	}
	return out
}
