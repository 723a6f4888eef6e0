package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Tx is the narrow write-transaction surface the stores use. Statements
// run through it commit or roll back together.
type Tx interface {
	Run(ctx context.Context, query string, params map[string]interface{}) error
}

// GraphDriver abstracts the graph store. The database argument selects
// the caller's logical database; empty means the driver default.
type GraphDriver interface {
	ExecuteQuery(ctx context.Context, database, query string, params map[string]interface{}) (neo4j.EagerResult, error)
	ExecuteWrite(ctx context.Context, database string, work func(ctx context.Context, tx Tx) error) error
	BuildIndices(ctx context.Context) error
	Close(ctx context.Context) error
}
