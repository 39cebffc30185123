package agg

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
)

// currentCacheVersion defines the version of the cache schema.
// Bump it whenever extraction output changes shape or meaning.
const currentCacheVersion = 1

// cacheTTL bounds how long an entry may be reused.
const cacheTTL = 7 * 24 * time.Hour

// cacheKey hashes a file snapshot. Only files with content are cacheable:
// summaries are cheap and deleted files produce nothing.
func cacheKey(fc schema.FileChange) (string, bool) {
	if fc.Content == "" || len(fc.Units) > 0 || fc.Kind == schema.Deleted {
		return "", false
	}
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s\x00%s\x00", fc.Path, fc.Content)
	for _, imp := range fc.Imports {
		_, _ = fmt.Fprintf(h, "%s\x00", imp)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), true
}

// checkCacheHit attempts to retrieve and validate a cached extraction.
func checkCacheHit(store contract.CacheStore, key string) *schema.CachedUnits {
	if store == nil {
		return nil
	}
	data, version, ts, err := store.Get(key)
	if err != nil {
		return nil // Cache miss
	}

	// Validate version and staleness
	if version != currentCacheVersion || time.Since(time.Unix(ts, 0)) > cacheTTL {
		return nil
	}
	var result schema.CachedUnits
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return &result // Cache hit
}

// storeUnits writes an extraction to the cache. Failures are logged and ignored.
func storeUnits(store contract.CacheStore, key string, entry schema.CachedUnits) {
	if store == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := store.Set(key, data, currentCacheVersion, time.Now().Unix()); err != nil {
		contract.LogWarn("Failed to write unit cache", err)
	}
}
