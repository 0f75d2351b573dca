package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ragerr "github.com/ragdocs/ragdocs/internal/errors"
)

func TestParseFilterEmpty(t *testing.T) {
	clauses, err := parseFilter("")
	require.NoError(t, err)
	assert.Nil(t, clauses)

	clauses, err = parseFilter("   ")
	require.NoError(t, err)
	assert.Nil(t, clauses)
}

func TestParseFilterSingleClause(t *testing.T) {
	clauses, err := parseFilter(`technology in ["milvus", "qdrant"]`)

	require.NoError(t, err)
	require.Len(t, clauses, 1)
	assert.Equal(t, "technology", clauses[0].column)
	assert.Equal(t, []string{"milvus", "qdrant"}, clauses[0].values)
}

func TestParseFilterSingleQuotes(t *testing.T) {
	clauses, err := parseFilter(`category in ['deployment']`)

	require.NoError(t, err)
	require.Len(t, clauses, 1)
	assert.Equal(t, []string{"deployment"}, clauses[0].values)
}

func TestParseFilterConjunction(t *testing.T) {
	clauses, err := parseFilter(`technology in ["milvus"] && category in ["security", "deployment"]`)

	require.NoError(t, err)
	require.Len(t, clauses, 2)
	assert.Equal(t, "technology", clauses[0].column)
	assert.Equal(t, "category", clauses[1].column)
	assert.Equal(t, []string{"security", "deployment"}, clauses[1].values)
}

func TestParseFilterErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"unknown field", `severity in ["high"]`},
		{"missing in", `technology ["milvus"]`},
		{"missing brackets", `technology in "milvus"`},
		{"unquoted value", `technology in [milvus]`},
		{"unterminated string", `technology in ["milvus]`},
		{"empty list", `technology in []`},
		{"trailing comma", `technology in ["milvus",]`},
		{"bare word", `garbage`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFilter(tt.expr)
			require.Error(t, err)
			assert.Equal(t, ragerr.ErrCodeInvalidFilter, ragerr.GetCode(err))
		})
	}
}

func TestClausesToSQL(t *testing.T) {
	clauses, err := parseFilter(`technology in ["milvus", "qdrant"] && category in ["security"]`)
	require.NoError(t, err)

	where, args := clausesToSQL(clauses)

	assert.Equal(t, "technology IN (?,?) AND category IN (?)", where)
	assert.Equal(t, []any{"milvus", "qdrant", "security"}, args)
}

func TestClausesToSQLEmpty(t *testing.T) {
	where, args := clausesToSQL(nil)
	assert.Empty(t, where)
	assert.Nil(t, args)
}
