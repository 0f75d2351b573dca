package tracker

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	ragerr "github.com/ragdocs/ragdocs/internal/errors"
)

// Fingerprint records a file's content hash and modification time at the
// moment it was last indexed.
type Fingerprint struct {
	Hash  string `json:"hash"`
	MTime int64  `json:"mtime"`
	// LastIndexed is when an indexing pass last picked the file up as
	// new or modified, in nanoseconds since the epoch.
	LastIndexed int64 `json:"last_indexed"`
}

// cacheData maps technology -> file path -> fingerprint.
type cacheData map[string]map[string]Fingerprint

// loadCache reads the fingerprint cache from disk. A missing or corrupt
// cache yields an empty one; corruption is logged, not fatal, since a
// full re-index rebuilds it.
func loadCache(path string, logger *slog.Logger) cacheData {
	data, err := os.ReadFile(path)
	if err != nil {
		return make(cacheData)
	}

	var cache cacheData
	if err := json.Unmarshal(data, &cache); err != nil {
		logger.Warn("fingerprint cache is corrupt, starting fresh",
			slog.String("path", path),
			slog.String("code", string(ragerr.ErrCodeCacheCorrupt)),
			slog.String("error", err.Error()))
		return make(cacheData)
	}
	if cache == nil {
		cache = make(cacheData)
	}
	return cache
}

// saveCache writes the fingerprint cache atomically under a file lock so
// concurrent syncs on the same data dir cannot interleave writes.
func saveCache(path string, cache cacheData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ragerr.CacheWriteError("failed to create cache directory", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return ragerr.CacheWriteError("failed to lock fingerprint cache", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return ragerr.CacheWriteError("failed to encode fingerprint cache", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ragerr.CacheWriteError("failed to write fingerprint cache", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return ragerr.CacheWriteError("failed to replace fingerprint cache", err)
	}
	return nil
}
