package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// vectorGraph wraps the HNSW graph with locking and atomic
// persistence. Keys are SQLite rowids.
type vectorGraph struct {
	mu             sync.RWMutex
	graph          *hnsw.Graph[int64]
	efConstruction int
	efSearch       int
}

func newVectorGraph(m, efConstruction, efSearch int) *vectorGraph {
	if m <= 0 {
		m = DefaultM
	}
	if efConstruction <= 0 {
		efConstruction = DefaultEfConstruction
	}
	if efSearch <= 0 {
		efSearch = DefaultEfSearch
	}

	g := hnsw.NewGraph[int64]()
	g.Distance = hnsw.EuclideanDistance
	g.M = m
	g.Ml = 0.25
	g.EfSearch = efSearch

	return &vectorGraph{
		graph:          g,
		efConstruction: efConstruction,
		efSearch:       efSearch,
	}
}

// add inserts a vector under the given rowid. The graph's search width
// is raised to the construction setting while linking.
func (v *vectorGraph) add(id int64, vec []float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.graph.EfSearch = v.efConstruction
	v.graph.Add(hnsw.MakeNode(id, vec))
	v.graph.EfSearch = v.efSearch
}

func (v *vectorGraph) remove(ids []int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range ids {
		v.graph.Delete(id)
	}
}

// neighbor pairs a rowid with its distance to the query.
type neighbor struct {
	id       int64
	distance float64
}

// search returns up to k nearest rowids with exact recomputed
// distances, widening the graph's search breadth to ef when given.
func (v *vectorGraph) search(query []float32, k, ef int) []neighbor {
	v.mu.Lock()
	defer v.mu.Unlock()

	if ef > v.efSearch {
		v.graph.EfSearch = ef
		defer func() { v.graph.EfSearch = v.efSearch }()
	}

	nodes := v.graph.Search(query, k)
	out := make([]neighbor, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, neighbor{
			id:       node.Key,
			distance: float64(v.graph.Distance(query, node.Value)),
		})
	}
	return out
}

func (v *vectorGraph) len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.graph.Len()
}

// save writes the graph atomically: export to a temp file, then rename
// over the final path.
func (v *vectorGraph) save(path string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}

	if err := v.graph.Export(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace index file: %w", err)
	}
	return nil
}

// load replaces the graph contents from a previously saved file.
func (v *vectorGraph) load(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	// Import requires an io.ByteReader.
	if err := v.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("failed to import graph: %w", err)
	}
	v.graph.EfSearch = v.efSearch
	return nil
}
