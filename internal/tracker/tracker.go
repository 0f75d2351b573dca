// Package tracker detects which documentation files changed between syncs.
//
// A JSON fingerprint cache on disk records, per technology, the content
// hash and modification time of every indexed file. Diffing the current
// state of a docs directory against the cache yields the minimal set of
// files to re-index or remove.
package tracker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// hashChunkSize is the read size used when streaming file contents
// through the hash, keeping memory flat for large documents.
const hashChunkSize = 4096

// Changes is the outcome of diffing a docs directory against the cache.
// Paths are absolute and sorted.
type Changes struct {
	// New are files not previously tracked for the technology.
	New []string
	// Modified are tracked files whose content or mtime advanced.
	Modified []string
	// Deleted are tracked files no longer present on disk.
	Deleted []string
	// Skipped are files that could not be read or hashed this pass.
	// They stay tracked so a later successful read re-evaluates them.
	Skipped []string
}

// Total returns the number of files needing index work.
func (c *Changes) Total() int {
	return len(c.New) + len(c.Modified) + len(c.Deleted)
}

// Empty reports whether the diff found nothing to do.
func (c *Changes) Empty() bool {
	return c.Total() == 0
}

// Tracker diffs documentation trees against a persistent fingerprint
// cache. Safe for concurrent use.
type Tracker struct {
	cachePath string
	logger    *slog.Logger

	mu    sync.Mutex
	cache cacheData
}

// New creates a Tracker backed by the given cache file. A missing or
// unreadable cache starts empty.
func New(cachePath string, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		cachePath: cachePath,
		logger:    logger,
		cache:     loadCache(cachePath, logger),
	}
}

// Diff walks the docs directory for markdown files, compares them against
// the cached fingerprints for the technology, and returns the changes.
// The cache is updated to the observed state and persisted before
// returning, so an interrupted sync never re-reports work already
// fingerprinted.
func (t *Tracker) Diff(ctx context.Context, technology, docsDir string) (*Changes, error) {
	files, err := collectMarkdownFiles(docsDir)
	if err != nil {
		return nil, err
	}

	fresh, skipped, err := t.fingerprintAll(ctx, files)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tracked := t.cache[technology]
	if tracked == nil {
		tracked = make(map[string]Fingerprint)
	}

	changes := &Changes{Skipped: skipped}
	next := make(map[string]Fingerprint, len(fresh))
	now := time.Now().UnixNano()

	for path, fp := range fresh {
		prev, known := tracked[path]
		switch {
		case !known:
			fp.LastIndexed = now
			changes.New = append(changes.New, path)
		case prev.Hash != fp.Hash || prev.MTime < fp.MTime:
			fp.LastIndexed = now
			changes.Modified = append(changes.Modified, path)
		default:
			fp.LastIndexed = prev.LastIndexed
		}
		next[path] = fp
	}

	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		seen[f] = struct{}{}
	}
	for path, fp := range tracked {
		if _, present := seen[path]; !present {
			changes.Deleted = append(changes.Deleted, path)
			continue
		}
		// Unreadable this pass: keep the old fingerprint.
		if _, hashed := next[path]; !hashed {
			next[path] = fp
		}
	}

	sort.Strings(changes.New)
	sort.Strings(changes.Modified)
	sort.Strings(changes.Deleted)
	sort.Strings(changes.Skipped)

	t.cache[technology] = next
	if err := saveCache(t.cachePath, t.cache); err != nil {
		return nil, err
	}

	t.logger.Debug("change detection complete",
		slog.String("technology", technology),
		slog.Int("new", len(changes.New)),
		slog.Int("modified", len(changes.Modified)),
		slog.Int("deleted", len(changes.Deleted)),
		slog.Int("skipped", len(changes.Skipped)))

	return changes, nil
}

// Tracked returns the file paths currently fingerprinted for a technology.
func (t *Tracker) Tracked(technology string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	paths := make([]string, 0, len(t.cache[technology]))
	for path := range t.cache[technology] {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Forget drops all fingerprints for a technology and persists the cache.
// Used when a technology is removed from the index entirely.
func (t *Tracker) Forget(technology string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.cache[technology]; !ok {
		return nil
	}
	delete(t.cache, technology)
	return saveCache(t.cachePath, t.cache)
}

// fingerprintAll hashes files in parallel, bounded by CPU count. Files
// that cannot be read are reported as skipped rather than failing the
// whole diff.
func (t *Tracker) fingerprintAll(ctx context.Context, files []string) (map[string]Fingerprint, []string, error) {
	var (
		mu      sync.Mutex
		fresh   = make(map[string]Fingerprint, len(files))
		skipped []string
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fp, err := fingerprintFile(path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				t.logger.Warn("skipping unreadable file",
					slog.String("path", path),
					slog.String("error", err.Error()))
				skipped = append(skipped, path)
				return nil
			}
			fresh[path] = fp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return fresh, skipped, nil
}

// HashFile returns the hex sha256 of a file's contents, streamed in
// fixed-size chunks.
func HashFile(path string) (string, error) {
	fp, err := fingerprintFile(path)
	if err != nil {
		return "", err
	}
	return fp.Hash, nil
}

// fingerprintFile streams a file through sha256 and captures its mtime.
func fingerprintFile(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return Fingerprint{}, readErr
		}
	}

	return Fingerprint{
		Hash:  hex.EncodeToString(h.Sum(nil)),
		MTime: info.ModTime().UnixNano(),
	}, nil
}

// collectMarkdownFiles walks a directory tree for markdown documents.
// A missing directory yields an empty result so deletions still surface.
func collectMarkdownFiles(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return fs.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".md" || ext == ".markdown" {
			abs, absErr := filepath.Abs(path)
			if absErr != nil {
				abs = path
			}
			files = append(files, abs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
