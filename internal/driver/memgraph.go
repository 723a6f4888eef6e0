package driver

import (
	"context"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type MemgraphDriver struct {
	Driver          neo4j.DriverWithContext
	DefaultDatabase string
}

func NewMemgraphDriver(uri, username, password, defaultDatabase string) (*MemgraphDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	log.Println("Connected to Memgraph")
	return &MemgraphDriver{Driver: driver, DefaultDatabase: defaultDatabase}, nil
}

func (d *MemgraphDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *MemgraphDriver) database(database string) string {
	if database == "" {
		return d.DefaultDatabase
	}
	return database
}

func (d *MemgraphDriver) ExecuteQuery(ctx context.Context, database, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(d.database(database)))
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

// managedTx adapts the driver's managed transaction to the Tx surface
// the stores consume.
type managedTx struct {
	tx neo4j.ManagedTransaction
}

func (t managedTx) Run(ctx context.Context, query string, params map[string]interface{}) error {
	result, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

func (d *MemgraphDriver) ExecuteWrite(ctx context.Context, database string, work func(ctx context.Context, tx Tx) error) error {
	session := d.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: d.database(database),
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return nil, work(ctx, managedTx{tx: tx})
	})
	if err != nil {
		return fmt.Errorf("write transaction failed: %w", err)
	}
	return nil
}

func (d *MemgraphDriver) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :TimelineAxis(id);",
		"CREATE INDEX ON :TimelineAxis(axisType);",
		"CREATE INDEX ON :TimelineEra(id);",
		"CREATE INDEX ON :TimelineEra(axisId);",
		"CREATE INDEX ON :TimelineSegment(id);",
		"CREATE INDEX ON :TimelineSegment(eraId);",
		"CREATE INDEX ON :TimelineSegment(axisId);",
		"CREATE INDEX ON :TimelineMarker(id);",
		"CREATE INDEX ON :TimelineMarker(segmentId);",
		"CREATE INDEX ON :TimelineMarker(axisId);",
		"CREATE INDEX ON :StateChange(id);",
		"CREATE INDEX ON :StateChange(axisId);",
		"CREATE INDEX ON :StateChange(subjectId);",
		"CREATE INDEX ON :StateChange(effectiveTick);",
	}

	for _, q := range queries {
		if _, err := d.ExecuteQuery(ctx, "", q, nil); err != nil {
			// Index may already exist; keep going.
			log.Printf("Warning: failed to create index '%s': %v", q, err)
		}
	}

	return nil
}
