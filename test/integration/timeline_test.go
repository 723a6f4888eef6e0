//go:build integration

package integration

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/tapestry/internal/config"
	"github.com/agenthands/tapestry/internal/core/ledger"
	"github.com/agenthands/tapestry/internal/core/model"
	"github.com/agenthands/tapestry/internal/core/temporal"
	"github.com/agenthands/tapestry/internal/core/timeline"
	"github.com/agenthands/tapestry/internal/driver"
)

// numPtr is a test helper for optional ticks.
func numPtr(f float64) *float64 { return &f }

func setup(t *testing.T) (context.Context, *driver.MemgraphDriver, string) {
	t.Helper()

	_ = godotenv.Load("../../.env")
	cfg, err := config.Load("../../config/config.toml")
	if err != nil {
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	d, err := driver.NewMemgraphDriver(cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, cfg.Memgraph.Database)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close(context.Background()) })

	return context.Background(), d, cfg.Memgraph.Database
}

func TestTimelineLifecycle(t *testing.T) {
	ctx, d, database := setup(t)

	tl := timeline.NewStore(d)
	lg := ledger.NewLedger(d, tl)
	svc := temporal.NewService(lg, tl)

	// Seed a subject node directly; subject CRUD lives outside this
	// service, the ledger only checks existence.
	charID := fmt.Sprintf("itest-char-%s", uuid.New().String())
	_, err := d.ExecuteQuery(ctx, database,
		`MERGE (c:Character {id: $id}) SET c.name = 'Integration Alice'`,
		map[string]interface{}{"id": charID})
	require.NoError(t, err)
	t.Cleanup(func() {
		d.ExecuteQuery(context.Background(), database,
			`MATCH (c:Character {id: $id}) DETACH DELETE c`,
			map[string]interface{}{"id": charID})
	})

	// A parallel axis avoids colliding with any main axis already in
	// the target database.
	axis, err := tl.CreateAxis(ctx, database, timeline.AxisInput{
		Name:     "Integration Axis " + uuid.New().String(),
		AxisType: model.AxisTypeParallel,
	})
	require.NoError(t, err)
	axisDeleted := false
	t.Cleanup(func() {
		if !axisDeleted {
			tl.DeleteAxis(context.Background(), database, axis.ID)
		}
	})

	era, err := tl.CreateEra(ctx, database, timeline.EraInput{
		AxisID: axis.ID,
		Name:   "First Age",
		Order:  1,
	})
	require.NoError(t, err)

	segment, err := tl.CreateSegment(ctx, database, timeline.SegmentInput{
		EraID:         era.ID,
		Name:          "The Long Peace",
		DurationYears: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, axis.ID, segment.AxisID)

	marker, err := tl.CreateMarker(ctx, database, timeline.MarkerInput{
		SegmentID: segment.ID,
		Label:     "The Fall",
		Tick:      numPtr(40),
	})
	require.NoError(t, err)
	assert.Equal(t, axis.ID, marker.AxisID)
	assert.Equal(t, era.ID, marker.EraID)

	// Two changes to one field, replayed across the tick range.
	markerID := marker.ID
	_, err = lg.Create(ctx, database, ledger.ChangeInput{
		AxisID:        axis.ID,
		SubjectType:   "character",
		SubjectID:     charID,
		FieldPath:     "status",
		ChangeType:    "update",
		NewValue:      `"alive"`,
		EffectiveTick: numPtr(1),
	})
	require.NoError(t, err)

	_, err = lg.Create(ctx, database, ledger.ChangeInput{
		AxisID:        axis.ID,
		MarkerID:      &markerID,
		SubjectType:   "character",
		SubjectID:     charID,
		FieldPath:     "status",
		ChangeType:    "update",
		NewValue:      `"dead"`,
		EffectiveTick: numPtr(40),
	})
	require.NoError(t, err)

	// Snapshot: alive before the marker, dead after.
	at3, err := svc.Snapshot(ctx, database, axis.ID, 3, "character", charID)
	require.NoError(t, err)
	require.Len(t, at3, 1)
	assert.Equal(t, `"alive"`, at3[0].NewValue)

	at50, err := svc.Snapshot(ctx, database, axis.ID, 50, "character", charID)
	require.NoError(t, err)
	require.Len(t, at50, 1)
	assert.Equal(t, `"dead"`, at50[0].NewValue)

	// History accumulates to the final state.
	history, err := svc.History(ctx, database, axis.ID, "character", charID, "", model.ChangeStatusActive, nil, nil, 0)
	require.NoError(t, err)
	require.Len(t, history.Steps, 2)
	assert.Equal(t, "dead", history.FinalState["status"])

	// Diff between the two epochs.
	diff, err := svc.Diff(ctx, database, axis.ID, "character", charID, 3, 50)
	require.NoError(t, err)
	require.Len(t, diff.Updated, 1)
	assert.Equal(t, "status", diff.Updated[0].FieldPath)

	// Cascade: deleting the axis removes the whole hierarchy.
	require.NoError(t, tl.DeleteAxis(ctx, database, axis.ID))
	axisDeleted = true

	_, err = tl.GetMarker(ctx, database, marker.ID)
	assert.Error(t, err)
	_, err = tl.GetEra(ctx, database, era.ID)
	assert.Error(t, err)
}
