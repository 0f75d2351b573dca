package store

import (
	"fmt"
	"strings"

	ragerr "github.com/ragdocs/ragdocs/internal/errors"
)

// filterFields are the metadata fields a filter expression may use.
var filterFields = map[string]string{
	"technology": "technology",
	"category":   "category",
}

// filterClause is one `field in [values]` membership test.
type filterClause struct {
	column string
	values []string
}

// parseFilter parses a boolean expression of the form
//
//	technology in ["milvus", "qdrant"] && category in ["deployment"]
//
// into SQL clauses. Clauses join with AND; values may be single- or
// double-quoted. An empty expression yields no clauses.
func parseFilter(expr string) ([]filterClause, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	parts := strings.Split(expr, "&&")
	clauses := make([]filterClause, 0, len(parts))
	for _, part := range parts {
		clause, err := parseClause(part)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

func parseClause(part string) (filterClause, error) {
	s := strings.TrimSpace(part)

	field, rest, found := strings.Cut(s, " ")
	if !found {
		return filterClause{}, invalidFilter(part, "expected `field in [values]`")
	}

	column, ok := filterFields[field]
	if !ok {
		return filterClause{}, invalidFilter(part, fmt.Sprintf("unknown field %q", field))
	}

	rest = strings.TrimSpace(rest)
	rest, hasIn := strings.CutPrefix(rest, "in")
	if !hasIn {
		return filterClause{}, invalidFilter(part, "expected `in` operator")
	}

	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "[") || !strings.HasSuffix(rest, "]") {
		return filterClause{}, invalidFilter(part, "expected bracketed value list")
	}

	values, err := parseValueList(rest[1 : len(rest)-1])
	if err != nil {
		return filterClause{}, invalidFilter(part, err.Error())
	}
	if len(values) == 0 {
		return filterClause{}, invalidFilter(part, "empty value list")
	}

	return filterClause{column: column, values: values}, nil
}

// parseValueList parses comma-separated quoted strings.
func parseValueList(list string) ([]string, error) {
	var values []string
	rest := strings.TrimSpace(list)
	for rest != "" {
		if len(rest) < 2 || (rest[0] != '\'' && rest[0] != '"') {
			return nil, fmt.Errorf("values must be quoted strings")
		}
		quote := rest[0]
		end := strings.IndexByte(rest[1:], quote)
		if end == -1 {
			return nil, fmt.Errorf("unterminated string")
		}
		values = append(values, rest[1:1+end])

		rest = strings.TrimSpace(rest[end+2:])
		if rest == "" {
			break
		}
		if rest[0] != ',' {
			return nil, fmt.Errorf("expected comma between values")
		}
		rest = strings.TrimSpace(rest[1:])
		if rest == "" {
			return nil, fmt.Errorf("trailing comma in value list")
		}
	}
	return values, nil
}

func invalidFilter(expr, reason string) error {
	return ragerr.New(ragerr.ErrCodeInvalidFilter,
		fmt.Sprintf("invalid filter %q: %s", strings.TrimSpace(expr), reason), nil)
}

// toSQL renders clauses as a WHERE fragment with placeholders.
func clausesToSQL(clauses []filterClause) (string, []any) {
	if len(clauses) == 0 {
		return "", nil
	}

	var conds []string
	var args []any
	for _, c := range clauses {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(c.values)), ",")
		conds = append(conds, fmt.Sprintf("%s IN (%s)", c.column, placeholders))
		for _, v := range c.values {
			args = append(args, v)
		}
	}
	return strings.Join(conds, " AND "), args
}
