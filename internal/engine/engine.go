// Package engine orchestrates incremental indexing and filtered
// semantic search over documentation collections.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ragdocs/ragdocs/internal/embed"
	ragerr "github.com/ragdocs/ragdocs/internal/errors"
	"github.com/ragdocs/ragdocs/internal/segment"
	"github.com/ragdocs/ragdocs/internal/store"
	"github.com/ragdocs/ragdocs/internal/tracker"
)

// DefaultTopK is the result cap when the caller does not specify one.
const DefaultTopK = 3

// SyncStats summarizes one sync pass for a technology.
type SyncStats struct {
	Technology    string
	NewFiles      int
	ModifiedFiles int
	DeletedFiles  int
	SkippedFiles  int
	Chunks        int
	Duration      time.Duration
}

// Changed reports whether the pass touched the index.
func (s *SyncStats) Changed() bool {
	return s.NewFiles+s.ModifiedFiles+s.DeletedFiles > 0
}

// Result is one search hit, ready for display.
type Result struct {
	Content      string  `json:"content"`
	Technology   string  `json:"technology"`
	FilePath     string  `json:"file_path"`
	SectionTitle string  `json:"section_title"`
	SectionLevel int     `json:"section_level"`
	Category     string  `json:"category"`
	Score        float64 `json:"score"`
}

// Engine wires change tracking, segmentation, embedding, and the index
// store into the two top-level operations: Sync and Search.
type Engine struct {
	tracker   *tracker.Tracker
	segmenter *segment.Segmenter
	embedder  embed.Embedder
	store     *store.Store
	logger    *slog.Logger

	mu        sync.Mutex
	syncLocks map[string]*sync.Mutex
	available map[string]struct{}
}

// New creates an Engine over the given components.
func New(tr *tracker.Tracker, emb embed.Embedder, st *store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		tracker:   tr,
		segmenter: segment.New(),
		embedder:  emb,
		store:     st,
		logger:    logger,
		syncLocks: make(map[string]*sync.Mutex),
		available: make(map[string]struct{}),
	}
}

// techLock returns the per-technology sync mutex, creating it on first
// use. Syncs for different technologies run concurrently; two syncs of
// the same technology serialize.
func (e *Engine) techLock(technology string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.syncLocks[technology]
	if !ok {
		l = &sync.Mutex{}
		e.syncLocks[technology] = l
	}
	return l
}

// Sync incrementally indexes a technology's docs directory: deleted
// and modified files leave the index, new and modified files are
// re-segmented, re-embedded, and inserted, and the index is flushed.
func (e *Engine) Sync(ctx context.Context, technology, docsDir string) (*SyncStats, error) {
	lock := e.techLock(technology)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	e.logger.Info("syncing documentation",
		slog.String("technology", technology),
		slog.String("path", docsDir))

	changes, err := e.tracker.Diff(ctx, technology, docsDir)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.ErrCodeSyncFailed, err)
	}

	stats := &SyncStats{
		Technology:    technology,
		NewFiles:      len(changes.New),
		ModifiedFiles: len(changes.Modified),
		DeletedFiles:  len(changes.Deleted),
		SkippedFiles:  len(changes.Skipped),
	}

	if changes.Empty() {
		e.markAvailable(technology)
		stats.Duration = time.Since(start)
		e.logger.Info("no changes detected", slog.String("technology", technology))
		return stats, nil
	}

	toRemove := append(append([]string{}, changes.Deleted...), changes.Modified...)
	if len(toRemove) > 0 {
		if _, err := e.store.DeleteByPaths(ctx, toRemove); err != nil {
			return nil, ragerr.Wrap(ragerr.ErrCodeSyncFailed, err)
		}
	}

	toProcess := append(append([]string{}, changes.New...), changes.Modified...)
	var chunks []store.Chunk
	for _, path := range toProcess {
		fileChunks, err := e.processFile(ctx, path, technology)
		if err != nil {
			e.logger.Warn("skipping file",
				slog.String("path", path),
				slog.String("error", err.Error()))
			stats.SkippedFiles++
			continue
		}
		chunks = append(chunks, fileChunks...)
	}

	if len(chunks) > 0 {
		if err := e.embedChunks(ctx, chunks); err != nil {
			return nil, err
		}
		if err := e.store.Insert(ctx, chunks); err != nil {
			return nil, ragerr.Wrap(ragerr.ErrCodeSyncFailed, err)
		}
	}

	if err := e.store.Flush(ctx); err != nil {
		return nil, ragerr.Wrap(ragerr.ErrCodeSyncFailed, err)
	}

	e.markAvailable(technology)
	stats.Chunks = len(chunks)
	stats.Duration = time.Since(start)

	e.logger.Info("sync complete",
		slog.String("technology", technology),
		slog.Int("new", stats.NewFiles),
		slog.Int("modified", stats.ModifiedFiles),
		slog.Int("deleted", stats.DeletedFiles),
		slog.Int("chunks", stats.Chunks),
		slog.Duration("duration", stats.Duration))

	return stats, nil
}

// processFile reads a markdown file and turns it into unembedded
// chunks.
func (e *Engine) processFile(ctx context.Context, path, technology string) ([]store.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeFileUnreadable, "failed to read file", err)
	}

	hash, err := tracker.HashFile(path)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeFileUnreadable, "failed to hash file", err)
	}

	sections, _ := e.segmenter.Segment(string(data))
	chunks := make([]store.Chunk, 0, len(sections))
	for _, sec := range sections {
		chunks = append(chunks, store.Chunk{
			Content:      sec.Content,
			Technology:   technology,
			FilePath:     path,
			FileHash:     hash,
			SectionTitle: sec.Title,
			SectionLevel: sec.Level,
			Category:     sec.Category,
		})
	}
	return chunks, nil
}

// embedChunks fills in the vectors for a chunk batch.
func (e *Engine) embedChunks(ctx context.Context, chunks []store.Chunk) error {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return ragerr.Wrap(ragerr.ErrCodeEmbeddingFailed, err)
	}
	if len(vectors) != len(chunks) {
		return ragerr.New(ragerr.ErrCodeEmbeddingFailed,
			fmt.Sprintf("expected %d vectors, got %d", len(chunks), len(vectors)), nil)
	}

	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}
	return nil
}

// Search embeds the query once, runs one filtered vector search, and
// groups the hits by technology. topK caps each technology's list
// independently; there is no re-ranking across technologies.
func (e *Engine) Search(ctx context.Context, query string, technologies, categories []string, topK int) (map[string][]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ragerr.New(ragerr.ErrCodeQueryEmpty, "search query must not be empty", nil)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.ErrCodeSearchFailed, err)
	}

	hits, err := e.store.Search(ctx, store.SearchRequest{
		Vector: vector,
		Filter: BuildFilterExpression(technologies, categories),
		Limit:  topK * e.searchSpan(ctx, technologies),
	})
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]Result)
	for _, hit := range hits {
		if len(grouped[hit.Chunk.Technology]) >= topK {
			continue
		}
		grouped[hit.Chunk.Technology] = append(grouped[hit.Chunk.Technology], Result{
			Content:      hit.Chunk.Content,
			Technology:   hit.Chunk.Technology,
			FilePath:     hit.Chunk.FilePath,
			SectionTitle: hit.Chunk.SectionTitle,
			SectionLevel: hit.Chunk.SectionLevel,
			Category:     hit.Chunk.Category,
			Score:        hit.Score,
		})
	}
	for tech := range grouped {
		sort.SliceStable(grouped[tech], func(i, j int) bool {
			return grouped[tech][i].Score > grouped[tech][j].Score
		})
	}

	e.logger.Debug("search complete",
		slog.String("query", query),
		slog.Int("hits", len(hits)))
	return grouped, nil
}

// searchSpan is the number of technologies a search can draw from,
// used to widen the shared candidate fetch so each group can fill its
// own cap.
func (e *Engine) searchSpan(ctx context.Context, technologies []string) int {
	n := len(technologies)
	if n == 0 {
		if counts, err := e.store.Technologies(ctx); err == nil {
			n = len(counts)
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

// BuildFilterExpression renders optional technology and category
// constraints as a filter expression. Empty inputs yield an empty
// expression (no filtering).
func BuildFilterExpression(technologies, categories []string) string {
	var parts []string
	if len(technologies) > 0 {
		parts = append(parts, membershipClause("technology", technologies))
	}
	if len(categories) > 0 {
		parts = append(parts, membershipClause("category", categories))
	}
	return strings.Join(parts, " && ")
}

func membershipClause(field string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return fmt.Sprintf("%s in [%s]", field, strings.Join(quoted, ", "))
}

// markAvailable records a technology as searchable. Any successful
// sync counts, including a no-change pass, so availability survives
// restarts over an already-built index.
func (e *Engine) markAvailable(technology string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.available[technology] = struct{}{}
}

// Available lists technologies synced during this process lifetime.
func (e *Engine) Available() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.available))
	for tech := range e.available {
		out = append(out, tech)
	}
	sort.Strings(out)
	return out
}

// Technologies lists indexed technologies with chunk counts, straight
// from the store so it reflects previous runs too.
func (e *Engine) Technologies(ctx context.Context) (map[string]int64, error) {
	return e.store.Technologies(ctx)
}

// Stats returns index statistics.
func (e *Engine) Stats(ctx context.Context) (*store.Stats, error) {
	return e.store.Stats(ctx)
}
