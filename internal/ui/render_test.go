package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ragdocs/ragdocs/internal/engine"
	"github.com/ragdocs/ragdocs/internal/store"
)

func TestSyncStatsOutput(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, true)

	r.SyncStats(&engine.SyncStats{
		Technology:    "milvus",
		NewFiles:      2,
		ModifiedFiles: 1,
		DeletedFiles:  0,
		Chunks:        9,
		Duration:      123 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "milvus")
	assert.Contains(t, out, "2 new, 1 modified, 0 deleted")
	assert.Contains(t, out, "9 indexed")
}

func TestSyncStatsNoChanges(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, true)

	r.SyncStats(&engine.SyncStats{Technology: "milvus", Duration: time.Millisecond})

	assert.Contains(t, buf.String(), "no changes")
}

func TestSearchResultsOutput(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, true)

	r.SearchResults(map[string][]engine.Result{
		"milvus": {{
			Content:      "How to install and configure the cluster.",
			Technology:   "milvus",
			FilePath:     "/docs/install.md",
			SectionTitle: "Installation",
			SectionLevel: 2,
			Category:     "deployment",
			Score:        0.87,
		}},
	})

	out := buf.String()
	assert.Contains(t, out, "milvus")
	assert.Contains(t, out, "Installation")
	assert.Contains(t, out, "(0.87)")
	assert.Contains(t, out, "[deployment]")
	assert.Contains(t, out, "/docs/install.md")
}

func TestSearchResultsEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf, true).SearchResults(nil)
	assert.Contains(t, buf.String(), "no results")
}

func TestStatsOutput(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, true)

	r.Stats(&store.Stats{
		Chunks:       5,
		Technologies: map[string]int64{"milvus": 3, "qdrant": 2},
	})

	out := buf.String()
	assert.Contains(t, out, "milvus")
	assert.Contains(t, out, "qdrant")
	// Sorted order.
	assert.Less(t, strings.Index(out, "milvus"), strings.Index(out, "qdrant"))
}

func TestMakeSnippet(t *testing.T) {
	short := makeSnippet("a  b\n\nc")
	assert.Equal(t, "a b c", short)

	long := makeSnippet(strings.Repeat("word ", 200))
	assert.LessOrEqual(t, len(long), snippetLength+3)
	assert.True(t, strings.HasSuffix(long, "..."))
}
