package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Predicates accumulates WHERE clauses with their parameters. Filtered
// lists and free-text search share one predicate set; only the ordering
// strategy differs, and the count query reuses the identical WHERE.
type Predicates struct {
	clauses []string
	params  map[string]interface{}
}

func NewPredicates() *Predicates {
	return &Predicates{params: make(map[string]interface{})}
}

func (p *Predicates) Add(clause string, params map[string]interface{}) {
	p.clauses = append(p.clauses, clause)
	for k, v := range params {
		p.params[k] = v
	}
}

func (p *Predicates) Eq(field, key string, value interface{}) {
	p.Add(fmt.Sprintf("%s = $%s", field, key), map[string]interface{}{key: value})
}

func (p *Predicates) Params() map[string]interface{} {
	return p.params
}

func (p *Predicates) Where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(p.clauses, " AND ")
}

// ListSpec describes one paginated list query over a single label.
type ListSpec struct {
	Label           string
	Alias           string
	Preds           *Predicates
	Query           string   // free-text term; empty selects structural ordering
	SearchFields    []string // property names scored high-to-low for relevance
	StructuralOrder string   // ORDER BY expression when not searching
	Limit           int
	Offset          int
}

// searchClause adds the CONTAINS predicate over the search fields and
// returns the relevance score expression.
func (spec *ListSpec) searchClause() string {
	var contains []string
	var score []string
	weight := len(spec.SearchFields)
	for _, field := range spec.SearchFields {
		prop := fmt.Sprintf("%s.%s", spec.Alias, field)
		contains = append(contains, fmt.Sprintf("toLower(coalesce(%s, '')) CONTAINS toLower($q)", prop))
		score = append(score, fmt.Sprintf("(CASE WHEN toLower(coalesce(%s, '')) CONTAINS toLower($q) THEN %d ELSE 0 END)", prop, weight))
		weight--
	}
	spec.Preds.Add("("+strings.Join(contains, " OR ")+")", map[string]interface{}{"q": spec.Query})
	return strings.Join(score, " + ")
}

func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// RecordProps extracts the "props" column from each record.
func RecordProps(result neo4j.EagerResult) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(result.Records))
	for _, rec := range result.Records {
		v, ok := rec.Get("props")
		if !ok {
			continue
		}
		if props, ok := v.(map[string]interface{}); ok {
			out = append(out, props)
		}
	}
	return out
}

// RunList executes the data query and its count twin, returning raw
// property maps plus the total computed from the same predicate set.
func RunList(ctx context.Context, d GraphDriver, database string, spec ListSpec) ([]map[string]interface{}, int64, error) {
	var dataQuery string
	if spec.Query != "" {
		scoreExpr := spec.searchClause()
		dataQuery = fmt.Sprintf(`
			MATCH (%s:%s)
			%s
			WITH %s, %s AS score
			RETURN properties(%s) AS props
			ORDER BY score DESC, %s.updatedAt DESC
			SKIP $offset LIMIT $limit
		`, spec.Alias, spec.Label, spec.Preds.Where(), spec.Alias, scoreExpr, spec.Alias, spec.Alias)
	} else {
		dataQuery = fmt.Sprintf(`
			MATCH (%s:%s)
			%s
			RETURN properties(%s) AS props
			ORDER BY %s
			SKIP $offset LIMIT $limit
		`, spec.Alias, spec.Label, spec.Preds.Where(), spec.Alias, spec.StructuralOrder)
	}

	countQuery := fmt.Sprintf(`
		MATCH (%s:%s)
		%s
		RETURN count(%s) AS total
	`, spec.Alias, spec.Label, spec.Preds.Where(), spec.Alias)

	params := spec.Preds.params
	params["limit"] = ClampLimit(spec.Limit)
	params["offset"] = spec.Offset

	result, err := d.ExecuteQuery(ctx, database, dataQuery, params)
	if err != nil {
		return nil, 0, err
	}
	props := RecordProps(result)

	countResult, err := d.ExecuteQuery(ctx, database, countQuery, params)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if len(countResult.Records) > 0 {
		if v, ok := countResult.Records[0].Get("total"); ok {
			if n, ok := v.(int64); ok {
				total = n
			}
		}
	}

	return props, total, nil
}
