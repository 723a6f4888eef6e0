package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/tapestry/internal/core/model"
)

func row(id string, tick float64, path, value string) *model.StateChange {
	return &model.StateChange{
		ID:            id,
		AxisID:        "axis-1",
		SubjectType:   "character",
		SubjectID:     "char-1",
		FieldPath:     path,
		ChangeType:    "update",
		NewValue:      value,
		EffectiveTick: tick,
		Status:        model.ChangeStatusActive,
		CreatedAt:     "2026-01-01T00:00:00Z",
		UpdatedAt:     "2026-01-01T00:00:00Z",
	}
}

func removal(id string, tick float64, path string) *model.StateChange {
	r := row(id, tick, path, "")
	r.ChangeType = "remove"
	return r
}

func TestSnapshotLatestWins(t *testing.T) {
	rows := []*model.StateChange{
		row("c1", 1, "status", `"alive"`),
		row("c2", 4, "status", `"dead"`),
	}

	at3 := Snapshot(rows, 3)
	require.Len(t, at3, 1)
	assert.Equal(t, "c1", at3[0].ID)

	at5 := Snapshot(rows, 5)
	require.Len(t, at5, 1)
	assert.Equal(t, "c2", at5[0].ID)
}

func TestSnapshotTieBreaksOnUpdatedAt(t *testing.T) {
	older := row("c1", 2, "status", `"alive"`)
	newer := row("c2", 2, "status", `"wounded"`)
	newer.UpdatedAt = "2026-01-02T00:00:00Z"

	// Sub-second precision must survive the tie-break too.
	newest := row("c3", 2, "status", `"dead"`)
	newest.UpdatedAt = "2026-01-02T00:00:00.5Z"

	winners := Snapshot([]*model.StateChange{older, newest, newer}, 10)
	require.Len(t, winners, 1)
	assert.Equal(t, "c3", winners[0].ID)
}

func TestSnapshotSkipsInactiveRows(t *testing.T) {
	reverted := row("c2", 4, "status", `"dead"`)
	reverted.Status = model.ChangeStatusReverted

	winners := Snapshot([]*model.StateChange{
		row("c1", 1, "status", `"alive"`),
		reverted,
	}, 10)
	require.Len(t, winners, 1)
	assert.Equal(t, "c1", winners[0].ID)
}

func TestSnapshotDeterministicOrder(t *testing.T) {
	faction := row("c3", 1, "name", `"Iron Pact"`)
	faction.SubjectType = "faction"
	faction.SubjectID = "fac-1"

	other := row("c4", 1, "title", `"Queen"`)
	other.SubjectID = "char-2"

	winners := Snapshot([]*model.StateChange{
		faction,
		other,
		row("c2", 1, "title", `"Knight"`),
		row("c1", 1, "status", `"alive"`),
	}, 10)

	require.Len(t, winners, 4)
	assert.Equal(t, "c1", winners[0].ID) // character/char-1/status
	assert.Equal(t, "c2", winners[1].ID) // character/char-1/title
	assert.Equal(t, "c4", winners[2].ID) // character/char-2/title
	assert.Equal(t, "c3", winners[3].ID) // faction/fac-1/name
}

func TestProjectBuildsNestedState(t *testing.T) {
	rows := []*model.StateChange{
		row("c1", 1, "stats.hp", "100"),
		row("c2", 2, "stats.mp", "40"),
		row("c3", 3, "name", `"Aldric"`),
	}

	projections := Project(rows, 10)
	require.Len(t, projections, 1)

	state := projections[0].State
	assert.Equal(t, "Aldric", state["name"])
	stats, ok := state["stats"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(100), stats["hp"])
	assert.Equal(t, float64(40), stats["mp"])
	assert.Len(t, projections[0].Fields, 3)
}

func TestProjectOmitsRemovedFields(t *testing.T) {
	rows := []*model.StateChange{
		row("c1", 1, "title", `"Knight"`),
		removal("c2", 5, "title"),
		row("c3", 2, "status", `"alive"`),
	}

	projections := Project(rows, 10)
	require.Len(t, projections, 1)

	_, present := projections[0].State["title"]
	assert.False(t, present)
	assert.Equal(t, "alive", projections[0].State["status"])

	// The winning removal still contributes a field row.
	assert.Len(t, projections[0].Fields, 2)
}

func TestProjectBracketPaths(t *testing.T) {
	rows := []*model.StateChange{
		row("c1", 1, "inventory[0].name", `"sword"`),
	}

	projections := Project(rows, 10)
	require.Len(t, projections, 1)

	inventory, ok := projections[0].State["inventory"].(map[string]interface{})
	require.True(t, ok)
	slot, ok := inventory["0"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "sword", slot["name"])
}

func TestReplayOrderAndStateAfter(t *testing.T) {
	rows := []*model.StateChange{
		row("c2", 4, "status", `"dead"`),
		row("c1", 1, "status", `"alive"`),
	}

	steps, final := Replay(rows)
	require.Len(t, steps, 2)
	assert.Equal(t, "c1", steps[0].StateChangeID)
	assert.Equal(t, "c2", steps[1].StateChangeID)

	// Each step's stateAfter is an independent copy.
	assert.Equal(t, "alive", steps[0].StateAfter["status"])
	assert.Equal(t, "dead", steps[1].StateAfter["status"])
	assert.Equal(t, "dead", final["status"])
}

func TestReplayTieBreaksOnCreatedAtDescending(t *testing.T) {
	first := row("c1", 2, "status", `"alive"`)
	first.CreatedAt = "2026-01-01T00:00:00Z"
	second := row("c2", 2, "status", `"dead"`)
	second.CreatedAt = "2026-01-02T00:00:00Z"

	steps, final := Replay([]*model.StateChange{first, second})
	require.Len(t, steps, 2)
	assert.Equal(t, "c2", steps[0].StateChangeID)
	assert.Equal(t, "alive", final["status"])
}

func TestReplayRemoval(t *testing.T) {
	steps, final := Replay([]*model.StateChange{
		row("c1", 1, "title", `"Knight"`),
		removal("c2", 5, "title"),
	})

	require.Len(t, steps, 2)
	assert.Equal(t, "Knight", steps[0].StateAfter["title"])
	_, present := steps[1].StateAfter["title"]
	assert.False(t, present)
	assert.Empty(t, final)
}

func TestReplayAppliesFetchedRowsRegardlessOfStatus(t *testing.T) {
	reverted := row("c2", 4, "status", `"dead"`)
	reverted.Status = model.ChangeStatusReverted

	_, final := Replay([]*model.StateChange{
		row("c1", 1, "status", `"alive"`),
		reverted,
	})
	assert.Equal(t, "dead", final["status"])
}

func TestDiffBuckets(t *testing.T) {
	rows := []*model.StateChange{
		row("c1", 1, "status", `"alive"`),
		row("c2", 1, "title", `"Knight"`),
		row("c3", 5, "status", `"dead"`),
		removal("c4", 5, "title"),
		row("c5", 5, "crown", `"iron"`),
	}

	result := Diff(rows, 2, 6)
	assert.Equal(t, float64(2), result.FromTick)
	assert.Equal(t, float64(6), result.ToTick)

	require.Len(t, result.Added, 1)
	assert.Equal(t, "crown", result.Added[0].FieldPath)
	assert.Equal(t, "iron", result.Added[0].ToValue)

	require.Len(t, result.Removed, 1)
	assert.Equal(t, "title", result.Removed[0].FieldPath)
	assert.Equal(t, "Knight", result.Removed[0].FromValue)

	require.Len(t, result.Updated, 1)
	assert.Equal(t, "status", result.Updated[0].FieldPath)
	assert.Equal(t, "alive", result.Updated[0].FromValue)
	assert.Equal(t, "dead", result.Updated[0].ToValue)
}

func TestDiffPathsNeverOverlapBuckets(t *testing.T) {
	rows := []*model.StateChange{
		row("c1", 1, "stats.hp", "100"),
		row("c2", 1, "stats.mp", "40"),
		row("c3", 5, "stats.hp", "60"),
		removal("c4", 5, "stats.mp"),
		row("c5", 5, "stats.rage", "10"),
	}

	result := Diff(rows, 2, 6)

	seen := make(map[string]int)
	for _, e := range result.Added {
		seen[e.FieldPath]++
	}
	for _, e := range result.Removed {
		seen[e.FieldPath]++
	}
	for _, e := range result.Updated {
		seen[e.FieldPath]++
	}
	for path, n := range seen {
		assert.Equalf(t, 1, n, "path %s in %d buckets", path, n)
	}
	assert.Equal(t, 1, seen["stats.hp"])
	assert.Equal(t, 1, seen["stats.mp"])
	assert.Equal(t, 1, seen["stats.rage"])
}

func TestDiffIdenticalTicksIsEmpty(t *testing.T) {
	rows := []*model.StateChange{
		row("c1", 1, "status", `"alive"`),
	}

	result := Diff(rows, 3, 3)
	assert.Empty(t, result.Added)
	assert.Empty(t, result.Removed)
	assert.Empty(t, result.Updated)
}
