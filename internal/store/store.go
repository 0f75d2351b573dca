package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	ragerr "github.com/ragdocs/ragdocs/internal/errors"
)

const (
	dbFileName    = "chunks.db"
	graphFileName = "vectors.hnsw"
)

// Store holds chunk metadata in SQLite and vectors in an HNSW graph
// keyed by rowid. Safe for concurrent use.
type Store struct {
	db     *sql.DB
	graph  *vectorGraph
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	closed    bool
	lastFlush time.Time
}

// Open creates or opens a store in cfg.Dir. The schema is created on
// first open; on later opens the stored embedding dimension must match
// cfg.Dimensions.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dimensions <= 0 {
		return nil, ragerr.ValidationError("store dimensions must be positive", nil)
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, ragerr.StorageError("failed to create store directory", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(cfg.Dir, dbFileName))
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeStoreUnreachable, "failed to open database", err)
	}

	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent syncs.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, ragerr.StorageError(fmt.Sprintf("failed to apply %s", pragma), err)
		}
	}

	s := &Store{
		db:     db,
		graph:  newVectorGraph(cfg.M, cfg.EfConstruction, cfg.EfSearch),
		cfg:    cfg,
		logger: logger,
	}

	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := s.loadGraph(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// ensureSchema creates tables and indexes, and pins the embedding
// dimension so a model change cannot silently corrupt the index.
func (s *Store) ensureSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS chunks (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	content       TEXT NOT NULL,
	technology    TEXT NOT NULL,
	file_path     TEXT NOT NULL,
	file_hash     TEXT NOT NULL,
	section_title TEXT NOT NULL,
	section_level INTEGER NOT NULL,
	category      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_technology ON chunks(technology);
CREATE INDEX IF NOT EXISTS idx_chunks_file_path ON chunks(file_path);
CREATE INDEX IF NOT EXISTS idx_chunks_category ON chunks(category);
CREATE TABLE IF NOT EXISTS store_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return ragerr.SchemaError("failed to create schema", err)
	}

	var stored string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM store_meta WHERE key = 'dimensions'`).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO store_meta (key, value) VALUES ('dimensions', ?)`,
			strconv.Itoa(s.cfg.Dimensions))
		if err != nil {
			return ragerr.SchemaError("failed to record dimensions", err)
		}
	case err != nil:
		return ragerr.StorageError("failed to read store metadata", err)
	default:
		dims, _ := strconv.Atoi(stored)
		if dims != s.cfg.Dimensions {
			return ragerr.New(ragerr.ErrCodeDimensionMismatch,
				fmt.Sprintf("store has %d-dim vectors, embedder produces %d", dims, s.cfg.Dimensions), nil)
		}
	}
	return nil
}

// loadGraph restores the persisted HNSW graph. A store with rows but
// no readable graph is corrupt: vectors for those rows are gone.
func (s *Store) loadGraph() error {
	path := filepath.Join(s.cfg.Dir, graphFileName)
	err := s.graph.load(path)
	if err == nil {
		s.logger.Debug("vector graph loaded", slog.Int("vectors", s.graph.len()))
		return nil
	}
	if os.IsNotExist(err) {
		var count int64
		if qErr := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&count); qErr == nil && count > 0 {
			return ragerr.New(ragerr.ErrCodeCorruptIndex,
				fmt.Sprintf("vector index missing for %d stored chunks", count), nil)
		}
		return nil
	}
	return ragerr.New(ragerr.ErrCodeCorruptIndex, "failed to load vector index", err)
}

// Insert stores chunks and their vectors. All rows commit in one
// transaction; vectors join the graph after the commit succeeds.
func (s *Store) Insert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		if len(chunks[i].Vector) != s.cfg.Dimensions {
			return ragerr.New(ragerr.ErrCodeDimensionMismatch,
				fmt.Sprintf("chunk %d has %d-dim vector, store expects %d",
					i, len(chunks[i].Vector), s.cfg.Dimensions), nil)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ragerr.StorageError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (content, technology, file_path, file_hash, section_title, section_level, category)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return ragerr.StorageError("failed to prepare insert", err)
	}
	defer func() { _ = stmt.Close() }()

	ids := make([]int64, len(chunks))
	for i, c := range chunks {
		res, err := stmt.ExecContext(ctx,
			c.Content, c.Technology, c.FilePath, c.FileHash,
			c.SectionTitle, c.SectionLevel, c.Category)
		if err != nil {
			return ragerr.StorageError("failed to insert chunk", err)
		}
		ids[i], err = res.LastInsertId()
		if err != nil {
			return ragerr.StorageError("failed to read inserted id", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ragerr.StorageError("failed to commit insert", err)
	}

	for i, c := range chunks {
		s.graph.add(ids[i], c.Vector)
	}

	s.logger.Debug("inserted chunks", slog.Int("count", len(chunks)))
	return nil
}

// DeleteByPaths removes every chunk belonging to the given file paths
// and returns the number of rows deleted.
func (s *Store) DeleteByPaths(ctx context.Context, paths []string) (int64, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(paths)), ",")
	args := make([]any, len(paths))
	for i, p := range paths {
		args[i] = p
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id FROM chunks WHERE file_path IN (%s)`, placeholders), args...)
	if err != nil {
		return 0, ragerr.StorageError("failed to find chunks to delete", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, ragerr.StorageError("failed to scan chunk id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, ragerr.StorageError("failed to iterate chunk ids", err)
	}
	_ = rows.Close()

	if len(ids) == 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM chunks WHERE file_path IN (%s)`, placeholders), args...)
	if err != nil {
		return 0, ragerr.StorageError("failed to delete chunks", err)
	}
	deleted, _ := res.RowsAffected()

	s.graph.remove(ids)

	s.logger.Debug("deleted chunks",
		slog.Int("files", len(paths)),
		slog.Int64("chunks", deleted))
	return deleted, nil
}

// Search runs ANN retrieval and applies the metadata filter. The graph
// is overfetched when a filter is present so post-filtering still
// yields up to Limit hits.
func (s *Store) Search(ctx context.Context, req SearchRequest) ([]Hit, error) {
	if req.Limit <= 0 {
		return nil, ragerr.ValidationError("search limit must be positive", nil)
	}
	if len(req.Vector) != s.cfg.Dimensions {
		return nil, ragerr.New(ragerr.ErrCodeDimensionMismatch,
			fmt.Sprintf("query vector has %d dims, store expects %d",
				len(req.Vector), s.cfg.Dimensions), nil)
	}

	clauses, err := parseFilter(req.Filter)
	if err != nil {
		return nil, err
	}

	k := req.Limit
	if len(clauses) > 0 {
		k = req.Limit * overfetchFactor
	}
	ef := min(maxSearchEf, req.Limit*2)

	neighbors := s.graph.search(req.Vector, k, ef)
	if len(neighbors) == 0 {
		return []Hit{}, nil
	}

	ids := make([]any, len(neighbors))
	rank := make(map[int64]int, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.id
		rank[n.id] = i
	}

	query := fmt.Sprintf(`
SELECT id, content, technology, file_path, file_hash, section_title, section_level, category
FROM chunks WHERE id IN (%s)`,
		strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","))
	args := ids
	if where, filterArgs := clausesToSQL(clauses); where != "" {
		query += " AND " + where
		args = append(args, filterArgs...)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ragerr.StorageError("failed to fetch search results", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]Hit, 0, req.Limit)
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Content, &c.Technology, &c.FilePath, &c.FileHash,
			&c.SectionTitle, &c.SectionLevel, &c.Category); err != nil {
			return nil, ragerr.StorageError("failed to scan search result", err)
		}
		d := neighbors[rank[c.ID]].distance
		hits = append(hits, Hit{Chunk: c, Score: distanceToScore(d), Distance: d})
	}
	if err := rows.Err(); err != nil {
		return nil, ragerr.StorageError("failed to iterate search results", err)
	}

	// Restore ANN order lost by the SQL fetch.
	sortHitsByRank(hits, rank)
	if len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}
	return hits, nil
}

// distanceToScore maps Euclidean distance between unit vectors to a
// [0, 1] similarity. Unit vectors are at most 2 apart, so d²/4 spans
// [0, 1]; clamping guards against non-normalized input.
func distanceToScore(d float64) float64 {
	score := 1 - (d*d)/4
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func sortHitsByRank(hits []Hit, rank map[int64]int) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && rank[hits[j].Chunk.ID] < rank[hits[j-1].Chunk.ID]; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}

// Count returns the number of stored chunks, optionally for one
// technology.
func (s *Store) Count(ctx context.Context, technology string) (int64, error) {
	var count int64
	var err error
	if technology == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM chunks WHERE technology = ?`, technology).Scan(&count)
	}
	if err != nil {
		return 0, ragerr.StorageError("failed to count chunks", err)
	}
	return count, nil
}

// Technologies returns chunk counts per technology.
func (s *Store) Technologies(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT technology, COUNT(*) FROM chunks GROUP BY technology`)
	if err != nil {
		return nil, ragerr.StorageError("failed to list technologies", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int64)
	for rows.Next() {
		var tech string
		var count int64
		if err := rows.Scan(&tech, &count); err != nil {
			return nil, ragerr.StorageError("failed to scan technology count", err)
		}
		out[tech] = count
	}
	return out, rows.Err()
}

// Stats returns store-wide statistics.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	techs, err := s.Technologies(ctx)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, c := range techs {
		total += c
	}

	s.mu.Lock()
	lastFlush := s.lastFlush
	s.mu.Unlock()

	return &Stats{Chunks: total, Technologies: techs, LastFlush: lastFlush}, nil
}

// Flush persists the vector graph and checkpoints the WAL. Call after
// a batch of inserts or deletes; until then changes live only in
// memory and the WAL.
func (s *Store) Flush(ctx context.Context) error {
	if err := s.graph.save(filepath.Join(s.cfg.Dir, graphFileName)); err != nil {
		return ragerr.StorageError("failed to persist vector index", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Warn("wal checkpoint failed", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	s.lastFlush = time.Now()
	s.mu.Unlock()
	return nil
}

// Close flushes and releases the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.Flush(context.Background()); err != nil {
		s.logger.Warn("flush on close failed", slog.String("error", err.Error()))
	}
	return s.db.Close()
}
