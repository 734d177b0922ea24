package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a namespaced cache key. The identifier is hashed so URLs
// and case ids of any shape make safe file names. Namespaces keep fetch
// bodies and citator lookups from colliding.
func Key(namespace, id string) string {
	hash := sha256.Sum256([]byte(id))
	return "sentenza:v1:" + namespace + ":" + hex.EncodeToString(hash[:])
}

// DefaultDir returns the on-disk cache location, ~/.sentenza/cache
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "sentenza-cache")
	}
	return filepath.Join(home, ".sentenza", "cache")
}
