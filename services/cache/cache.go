package cache

import (
	"time"
)

// CacheService represents a generic cache service. The polling pipeline
// uses it as a cooldown store: a platform key present in the cache means
// the upstream asked us to back off and fetches should fail fast.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// BlockKey returns the cooldown key for a platform.
func BlockKey(platform string) string {
	return platform + "_rate_limited"
}
