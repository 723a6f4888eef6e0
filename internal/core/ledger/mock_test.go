package ledger

import (
	"context"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/tapestry/internal/driver"
)

type executedQuery struct {
	Query  string
	Params map[string]interface{}
}

// MockDriver records executed queries and serves canned results keyed
// by a query substring.
type MockDriver struct {
	Queries   []executedQuery
	TxQueries []executedQuery
	Results   map[string]neo4j.EagerResult
	Err       error
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, database, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.Queries = append(m.Queries, executedQuery{Query: query, Params: params})
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	for key, result := range m.Results {
		if strings.Contains(query, key) {
			return result, nil
		}
	}
	return neo4j.EagerResult{}, nil
}

type mockTx struct {
	driver *MockDriver
}

func (t mockTx) Run(ctx context.Context, query string, params map[string]interface{}) error {
	t.driver.TxQueries = append(t.driver.TxQueries, executedQuery{Query: query, Params: params})
	return t.driver.Err
}

func (m *MockDriver) ExecuteWrite(ctx context.Context, database string, work func(ctx context.Context, tx driver.Tx) error) error {
	return work(ctx, mockTx{driver: m})
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

func propsResult(props ...map[string]interface{}) neo4j.EagerResult {
	records := make([]*neo4j.Record, 0, len(props))
	for _, p := range props {
		records = append(records, &neo4j.Record{
			Keys:   []string{"props"},
			Values: []interface{}{p},
		})
	}
	return neo4j.EagerResult{Records: records}
}

func countResult(total int64) neo4j.EagerResult {
	return neo4j.EagerResult{Records: []*neo4j.Record{{
		Keys:   []string{"total"},
		Values: []interface{}{total},
	}}}
}
