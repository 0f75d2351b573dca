// Package telemetry records local search metrics for tuning. Nothing
// leaves the machine; data lives in a SQLite file next to the index.
package telemetry

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// zeroResultCap bounds how many zero-result queries are retained.
const zeroResultCap = 100

// LatencyBucket is a histogram bucket name.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// Snapshot is an aggregate view of recorded metrics.
type Snapshot struct {
	Searches          int64                   `json:"searches"`
	LatencyHistogram  map[LatencyBucket]int64 `json:"latency_histogram"`
	TechnologyHits    map[string]int64        `json:"technology_hits"`
	ZeroResultQueries []string                `json:"zero_result_queries"`
}

// QueryMetrics records search events in SQLite.
type QueryMetrics struct {
	db *sql.DB
}

// Open creates or opens the metrics database at path.
func Open(path string) (*QueryMetrics, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metrics database: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
CREATE TABLE IF NOT EXISTS search_latency (
	date   TEXT NOT NULL,
	bucket TEXT NOT NULL,
	count  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, bucket)
);
CREATE TABLE IF NOT EXISTS technology_hits (
	technology TEXT PRIMARY KEY,
	count      INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS zero_result_queries (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	query     TEXT NOT NULL,
	timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create metrics schema: %w", err)
	}
	return &QueryMetrics{db: db}, nil
}

// RecordSearch records one search's latency bucket, the technologies
// that produced hits, and the query text when nothing matched.
func (m *QueryMetrics) RecordSearch(query string, latency time.Duration, hitsByTechnology map[string]int) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("begin metrics transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	date := time.Now().UTC().Format("2006-01-02")
	if _, err := tx.Exec(`
INSERT INTO search_latency (date, bucket, count) VALUES (?, ?, 1)
ON CONFLICT(date, bucket) DO UPDATE SET count = count + 1`,
		date, string(LatencyToBucket(latency))); err != nil {
		return fmt.Errorf("record latency: %w", err)
	}

	total := 0
	for tech, hits := range hitsByTechnology {
		total += hits
		if _, err := tx.Exec(`
INSERT INTO technology_hits (technology, count) VALUES (?, ?)
ON CONFLICT(technology) DO UPDATE SET count = count + excluded.count`,
			tech, hits); err != nil {
			return fmt.Errorf("record technology hits: %w", err)
		}
	}

	if total == 0 {
		if _, err := tx.Exec(`INSERT INTO zero_result_queries (query) VALUES (?)`, query); err != nil {
			return fmt.Errorf("record zero-result query: %w", err)
		}
		if _, err := tx.Exec(`
DELETE FROM zero_result_queries WHERE id NOT IN (
	SELECT id FROM zero_result_queries ORDER BY id DESC LIMIT ?)`, zeroResultCap); err != nil {
			return fmt.Errorf("trim zero-result queries: %w", err)
		}
	}

	return tx.Commit()
}

// Snapshot aggregates everything recorded so far.
func (m *QueryMetrics) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{
		LatencyHistogram: make(map[LatencyBucket]int64),
		TechnologyHits:   make(map[string]int64),
	}

	rows, err := m.db.Query(`SELECT bucket, SUM(count) FROM search_latency GROUP BY bucket`)
	if err != nil {
		return nil, fmt.Errorf("read latency histogram: %w", err)
	}
	for rows.Next() {
		var bucket string
		var count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		snap.LatencyHistogram[LatencyBucket(bucket)] = count
		snap.Searches += count
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = m.db.Query(`SELECT technology, count FROM technology_hits`)
	if err != nil {
		return nil, fmt.Errorf("read technology hits: %w", err)
	}
	for rows.Next() {
		var tech string
		var count int64
		if err := rows.Scan(&tech, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		snap.TechnologyHits[tech] = count
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = m.db.Query(`SELECT query FROM zero_result_queries ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("read zero-result queries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, err
		}
		snap.ZeroResultQueries = append(snap.ZeroResultQueries, q)
	}
	return snap, rows.Err()
}

// Close releases the database.
func (m *QueryMetrics) Close() error {
	return m.db.Close()
}
