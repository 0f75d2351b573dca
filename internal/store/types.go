// Package store persists documentation chunks and serves filtered
// vector search over them.
//
// Chunk metadata lives in SQLite (pure Go driver, no CGO); vectors live
// in an HNSW graph keyed by the SQLite rowid. The two are saved
// together by Flush, with the graph written atomically via temp file
// and rename.
package store

import "time"

// Chunk is one indexed documentation section with its metadata.
type Chunk struct {
	ID           int64
	Content      string
	Technology   string
	FilePath     string
	FileHash     string
	SectionTitle string
	SectionLevel int
	Category     string
	// Vector is the embedding; required on insert, not returned by
	// search.
	Vector []float32
}

// Hit is a single search result.
type Hit struct {
	Chunk Chunk
	// Score is a similarity in [0, 1]; 1 means an identical vector.
	Score float64
	// Distance is the raw Euclidean distance the score derives from.
	Distance float64
}

// SearchRequest describes one vector search.
type SearchRequest struct {
	// Vector is the query embedding.
	Vector []float32
	// Filter is an optional boolean expression over metadata fields,
	// e.g. `technology in ["milvus"] && category in ["deployment"]`.
	Filter string
	// Limit caps the number of hits.
	Limit int
}

// Config configures a Store.
type Config struct {
	// Dir is the directory holding the database and index files.
	Dir string
	// Dimensions is the embedding dimension; fixed at first open.
	Dimensions int
	// M is the HNSW max connections per layer.
	M int
	// EfConstruction is the graph search width while inserting.
	EfConstruction int
	// EfSearch is the graph search width while querying.
	EfSearch int
}

// Stats summarizes store contents.
type Stats struct {
	Chunks       int64
	Technologies map[string]int64
	LastFlush    time.Time
}

// Default HNSW parameters, tuned for corpora in the tens of thousands
// of chunks.
const (
	DefaultM              = 8
	DefaultEfConstruction = 64
	DefaultEfSearch       = 64
)

// maxSearchEf caps the query-time search width regardless of limit.
const maxSearchEf = 64

// overfetchFactor widens ANN candidate retrieval when a metadata
// filter will discard some neighbors afterwards.
const overfetchFactor = 4
