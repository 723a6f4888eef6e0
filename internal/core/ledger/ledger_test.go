package ledger

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/tapestry/internal/core/common"
	"github.com/agenthands/tapestry/internal/core/model"
	"github.com/agenthands/tapestry/internal/core/timeline"
)

func strPtr(s string) *string   { return &s }
func numPtr(f float64) *float64 { return &f }
func ctxBg() context.Context    { return context.Background() }

func newLedger(mock *MockDriver) *Ledger {
	return NewLedger(mock, timeline.NewStore(mock))
}

func validInput() ChangeInput {
	return ChangeInput{
		AxisID:        "axis-1",
		SubjectType:   "character",
		SubjectID:     "char-1",
		FieldPath:     "status",
		ChangeType:    "update",
		NewValue:      `"dead"`,
		EffectiveTick: numPtr(5),
	}
}

// resolveMock serves the reference lookups a fully-referenced change
// needs: axis, marker, event and subject.
func resolveMock() *MockDriver {
	return &MockDriver{Results: map[string]neo4j.EagerResult{
		"TimelineAxis {id: $id}": propsResult(map[string]interface{}{
			"id": "axis-1", "name": "Prime", "axisType": "main", "status": "active",
		}),
		"TimelineMarker {id: $id}": propsResult(map[string]interface{}{
			"id": "marker-1", "axisId": "axis-1", "eraId": "era-1", "segmentId": "seg-1",
			"label": "The Fall", "tick": float64(5),
		}),
		":Event {id: $id}":     countResult(1),
		":Character {id: $id}": countResult(1),
	}}
}

func TestValidateChangeInputRequired(t *testing.T) {
	l := newLedger(&MockDriver{})

	cases := []struct {
		name   string
		mutate func(*ChangeInput)
	}{
		{"missing axisId", func(in *ChangeInput) { in.AxisID = "" }},
		{"missing subjectType", func(in *ChangeInput) { in.SubjectType = "" }},
		{"missing subjectId", func(in *ChangeInput) { in.SubjectID = "" }},
		{"missing fieldPath", func(in *ChangeInput) { in.FieldPath = "" }},
		{"missing effectiveTick", func(in *ChangeInput) { in.EffectiveTick = nil }},
		{"bad status", func(in *ChangeInput) { in.Status = "pending" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := l.Create(ctxBg(), "db1", in)
			var validation *common.ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}
}

func TestCreateChangeInheritsLineageFromMarker(t *testing.T) {
	mock := resolveMock()
	l := newLedger(mock)

	in := validInput()
	in.MarkerID = strPtr("marker-1")
	in.EventID = strPtr("event-9")

	change, err := l.Create(ctxBg(), "db1", in)
	require.NoError(t, err)
	require.NotNil(t, change.EraID)
	require.NotNil(t, change.SegmentID)
	assert.Equal(t, "era-1", *change.EraID)
	assert.Equal(t, "seg-1", *change.SegmentID)
	assert.Equal(t, model.ChangeStatusActive, change.Status)

	// Record plus all three edges re-synced in one transaction.
	require.Len(t, mock.TxQueries, 7)
	assert.Contains(t, mock.TxQueries[0].Query, "MERGE (c:StateChange")
	assert.Contains(t, mock.TxQueries[1].Query, "MARKS_CHANGE")
	assert.Contains(t, mock.TxQueries[2].Query, "MERGE (m)-[:MARKS_CHANGE]->(c)")
	assert.Equal(t, "marker-1", mock.TxQueries[2].Params["markerId"])
	assert.Contains(t, mock.TxQueries[3].Query, "TRIGGERS")
	assert.Contains(t, mock.TxQueries[4].Query, "MERGE (e)-[:TRIGGERS]->(c)")
	assert.Equal(t, "event-9", mock.TxQueries[4].Params["eventId"])
	assert.Contains(t, mock.TxQueries[5].Query, "APPLIES_TO")
	assert.Contains(t, mock.TxQueries[6].Query, ":Character {id: $subjectId}")
	assert.Equal(t, "char-1", mock.TxQueries[6].Params["subjectId"])
}

func TestCreateChangeMarkerAxisMismatch(t *testing.T) {
	mock := resolveMock()
	mock.Results["TimelineMarker {id: $id}"] = propsResult(map[string]interface{}{
		"id": "marker-1", "axisId": "other-axis", "eraId": "era-1", "segmentId": "seg-1",
		"label": "Elsewhere", "tick": float64(5),
	})
	l := newLedger(mock)

	in := validInput()
	in.MarkerID = strPtr("marker-1")

	_, err := l.Create(ctxBg(), "db1", in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not belong to axis")
}

func TestCreateChangeEraConflictsWithMarker(t *testing.T) {
	l := newLedger(resolveMock())

	in := validInput()
	in.MarkerID = strPtr("marker-1")
	in.EraID = strPtr("era-2")

	_, err := l.Create(ctxBg(), "db1", in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicts with marker's era")
}

func TestCreateChangeSegmentConflictsWithMarker(t *testing.T) {
	l := newLedger(resolveMock())

	in := validInput()
	in.MarkerID = strPtr("marker-1")
	in.SegmentID = strPtr("seg-2")

	_, err := l.Create(ctxBg(), "db1", in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicts with marker's segment")
}

func TestCreateChangeUnknownSubjectType(t *testing.T) {
	l := newLedger(resolveMock())

	in := validInput()
	in.SubjectType = "spaceship"

	_, err := l.Create(ctxBg(), "db1", in)
	var validation *common.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, err.Error(), "unknown subjectType")
}

func TestCreateChangeSubjectNotFound(t *testing.T) {
	mock := resolveMock()
	mock.Results[":Character {id: $id}"] = countResult(0)
	l := newLedger(mock)

	_, err := l.Create(ctxBg(), "db1", validInput())
	var notFound *common.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCreateChangeWithoutOptionalRefs(t *testing.T) {
	mock := resolveMock()
	l := newLedger(mock)

	// Empty strings on optional refs behave like absent refs.
	in := validInput()
	in.EraID = strPtr("")
	in.EventID = strPtr("")

	change, err := l.Create(ctxBg(), "db1", in)
	require.NoError(t, err)
	assert.Nil(t, change.EraID)
	assert.Nil(t, change.EventID)

	// No era lookup happened.
	for _, q := range mock.Queries {
		assert.NotContains(t, q.Query, "TimelineEra")
	}

	// Save, two edge clears, subject clear and relink.
	require.Len(t, mock.TxQueries, 5)
	assert.Contains(t, mock.TxQueries[0].Query, "MERGE (c:StateChange")
	assert.Contains(t, mock.TxQueries[4].Query, "APPLIES_TO")
}

func TestCreateChangeChecksEraWhenGivenWithoutMarker(t *testing.T) {
	mock := resolveMock()
	l := newLedger(mock)

	in := validInput()
	in.EraID = strPtr("era-missing")

	_, err := l.Create(ctxBg(), "db1", in)
	var notFound *common.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, err.Error(), "era")
}

func TestGetChangeNotFound(t *testing.T) {
	l := newLedger(&MockDriver{})

	_, err := l.Get(ctxBg(), "db1", "missing")
	var notFound *common.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestDeleteChange(t *testing.T) {
	mock := &MockDriver{Results: map[string]neo4j.EagerResult{
		"StateChange {id: $id}) RETURN properties": propsResult(map[string]interface{}{
			"id": "change-1", "axisId": "axis-1", "subjectType": "character",
			"subjectId": "char-1", "fieldPath": "status", "effectiveTick": float64(5),
			"status": "active",
		}),
	}}
	l := newLedger(mock)

	require.NoError(t, l.Delete(ctxBg(), "db1", "change-1"))

	last := mock.Queries[len(mock.Queries)-1]
	assert.Contains(t, last.Query, "DETACH DELETE c")
	assert.Equal(t, "change-1", last.Params["id"])
}

func TestFetchAllBuildsOrderedQuery(t *testing.T) {
	mock := &MockDriver{}
	l := newLedger(mock)

	_, err := l.FetchAll(ctxBg(), "db1", model.ChangeFilter{
		AxisID:      "axis-1",
		SubjectType: "character",
		Status:      model.ChangeStatusActive,
		TickTo:      numPtr(10),
	})
	require.NoError(t, err)

	q := mock.Queries[0]
	assert.Contains(t, q.Query, "ORDER BY c.effectiveTick ASC, c.createdAt DESC")
	assert.NotContains(t, q.Query, "LIMIT")
	assert.Contains(t, q.Query, "c.effectiveTick <= $tickTo")
	assert.Equal(t, "axis-1", q.Params["axisId"])
	assert.Equal(t, "character", q.Params["subjectType"])
	assert.Equal(t, "active", q.Params["status"])
	assert.Equal(t, float64(10), q.Params["tickTo"])
}

func TestListChangesSearchOrdering(t *testing.T) {
	mock := &MockDriver{Results: map[string]neo4j.EagerResult{
		"count(c)": countResult(0),
	}}
	l := newLedger(mock)

	_, _, err := l.List(ctxBg(), "db1", model.ChangeFilter{Query: "exile", FieldPath: "title"})
	require.NoError(t, err)

	data := mock.Queries[0]
	assert.Contains(t, data.Query, "ORDER BY score DESC")
	assert.Contains(t, data.Query, "c.fieldPath CONTAINS $fieldPath")
	assert.Equal(t, "exile", data.Params["q"])
}
