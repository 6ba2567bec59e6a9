package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// NoExpiration marks an entry that never expires. Freshness of CODEOWNERS
// content is enforced by the pipeline's TTL check, not by cache eviction, so
// revalidation can reuse stale content on a 304 response.
const NoExpiration time.Duration = -1

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from a repository coordinate such as
// "owner/repo@branch".
func Key(coordinate string) string {
	hash := sha256.Sum256([]byte(coordinate))
	return "codeowners:v1:" + hex.EncodeToString(hash[:])
}
