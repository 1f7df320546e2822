package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/observahq/observa/internal/domain/models"
)

const promptCacheTTL = 60 * time.Second

type promptCacheEntry struct {
	version   *models.PromptVersion
	expiresAt time.Time
}

// promptCache is a read-through cache over prompt fetches. Keys embed the
// prompt name so every mutation of a name can drop all of its entries.
type promptCache struct {
	entries sync.Map
	ttl     time.Duration
}

func newPromptCache() *promptCache {
	return &promptCache{ttl: promptCacheTTL}
}

func versionCacheKey(name string, version int) string {
	return fmt.Sprintf("%s\x00version\x00%d", name, version)
}

func stateCacheKey(name string, state models.PromptState) string {
	return fmt.Sprintf("%s\x00state\x00%s", name, state)
}

func (c *promptCache) get(key string) (*models.PromptVersion, bool) {
	value, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	entry := value.(promptCacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.entries.Delete(key)
		return nil, false
	}
	return entry.version, true
}

func (c *promptCache) put(key string, version *models.PromptVersion) {
	// Fallback versions are synthesized per call and never cached.
	if version.IsFallback() {
		return
	}
	c.entries.Store(key, promptCacheEntry{
		version:   version,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// invalidate drops every cached entry for a prompt name.
func (c *promptCache) invalidate(name string) {
	prefix := name + "\x00"
	c.entries.Range(func(key, _ any) bool {
		if strings.HasPrefix(key.(string), prefix) {
			c.entries.Delete(key)
		}
		return true
	})
}
