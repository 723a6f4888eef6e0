// Package ledger owns the append-style log of field-level state
// changes. Rows reference the temporal hierarchy, a narrative event and
// a domain subject; they never own or mutate what they reference. A row
// and its three relationship edges are written in one transaction, so a
// partially-synced change is never observable.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/tapestry/internal/core/common"
	"github.com/agenthands/tapestry/internal/core/fieldpath"
	"github.com/agenthands/tapestry/internal/core/model"
	"github.com/agenthands/tapestry/internal/core/subject"
	"github.com/agenthands/tapestry/internal/core/timeline"
	"github.com/agenthands/tapestry/internal/driver"
)

type Ledger struct {
	Driver   driver.GraphDriver
	Gateway  *subject.Gateway
	Timeline *timeline.Store
}

func NewLedger(d driver.GraphDriver, tl *timeline.Store) *Ledger {
	return &Ledger{
		Driver:   d,
		Gateway:  subject.NewGateway(d),
		Timeline: tl,
	}
}

type ChangeInput struct {
	AxisID        string   `json:"axisId"`
	EraID         *string  `json:"eraId"`
	SegmentID     *string  `json:"segmentId"`
	MarkerID      *string  `json:"markerId"`
	EventID       *string  `json:"eventId"`
	SubjectType   string   `json:"subjectType"`
	SubjectID     string   `json:"subjectId"`
	FieldPath     string   `json:"fieldPath"`
	ChangeType    string   `json:"changeType"`
	OldValue      string   `json:"oldValue"`
	NewValue      string   `json:"newValue"`
	EffectiveTick *float64 `json:"effectiveTick"`
	Detail        string   `json:"detail"`
	Notes         string   `json:"notes"`
	Tags          []string `json:"tags"`
	Status        string   `json:"status"`
}

func validateChangeInput(in *ChangeInput) error {
	if in.AxisID == "" {
		return common.Invalidf("axisId is required")
	}
	if in.SubjectType == "" || in.SubjectID == "" {
		return common.Invalidf("subjectType and subjectId are required")
	}
	if len(fieldpath.Segments(in.FieldPath)) == 0 {
		return common.Invalidf("fieldPath is required")
	}
	if in.EffectiveTick == nil {
		return common.Invalidf("effectiveTick is required")
	}
	if in.Status == "" {
		in.Status = model.ChangeStatusActive
	}
	switch in.Status {
	case model.ChangeStatusActive, model.ChangeStatusReverted, model.ChangeStatusVoid:
	default:
		return common.Invalidf("invalid status '%s'", in.Status)
	}

	// Normalize empty optional references to nil.
	for _, ref := range []**string{&in.EraID, &in.SegmentID, &in.MarkerID, &in.EventID} {
		if *ref != nil && **ref == "" {
			*ref = nil
		}
	}
	return nil
}

// resolveReferences validates the axis, marker, event and subject, and
// inherits eraId/segmentId from the marker when one is given. Explicit
// era/segment/axis ids that conflict with the marker's own lineage are
// rejected: ancestor ids are derived, never trusted.
func (l *Ledger) resolveReferences(ctx context.Context, database string, in *ChangeInput) (subjectLabel string, err error) {
	if _, err := l.Timeline.GetAxis(ctx, database, in.AxisID); err != nil {
		return "", err
	}

	if in.MarkerID != nil {
		marker, err := l.Timeline.GetMarker(ctx, database, *in.MarkerID)
		if err != nil {
			return "", err
		}
		if marker.AxisID != in.AxisID {
			return "", common.Invalidf("marker '%s' does not belong to axis '%s'", marker.ID, in.AxisID)
		}
		if in.EraID != nil && *in.EraID != marker.EraID {
			return "", common.Invalidf("eraId conflicts with marker's era")
		}
		if in.SegmentID != nil && *in.SegmentID != marker.SegmentID {
			return "", common.Invalidf("segmentId conflicts with marker's segment")
		}
		eraID := marker.EraID
		segmentID := marker.SegmentID
		in.EraID = &eraID
		in.SegmentID = &segmentID
	} else {
		if in.EraID != nil {
			if _, err := l.Timeline.GetEra(ctx, database, *in.EraID); err != nil {
				return "", err
			}
		}
		if in.SegmentID != nil {
			if _, err := l.Timeline.GetSegment(ctx, database, *in.SegmentID); err != nil {
				return "", err
			}
		}
	}

	if in.EventID != nil {
		if err := l.Gateway.CheckEvent(ctx, database, *in.EventID); err != nil {
			return "", err
		}
	}

	return l.Gateway.CheckSubject(ctx, database, in.SubjectType, in.SubjectID)
}

// persist writes the record and re-synchronizes its three edges
// (marker→change, event→change, change→subject) in one transaction.
func (l *Ledger) persist(ctx context.Context, database string, change *model.StateChange, subjectLabel string) error {
	params := map[string]interface{}{
		"id":            change.ID,
		"axisId":        change.AxisID,
		"eraId":         change.EraID,
		"segmentId":     change.SegmentID,
		"markerId":      change.MarkerID,
		"eventId":       change.EventID,
		"subjectType":   change.SubjectType,
		"subjectId":     change.SubjectID,
		"fieldPath":     change.FieldPath,
		"changeType":    change.ChangeType,
		"oldValue":      change.OldValue,
		"newValue":      change.NewValue,
		"effectiveTick": change.EffectiveTick,
		"detail":        change.Detail,
		"notes":         change.Notes,
		"tags":          change.Tags,
		"status":        change.Status,
		"createdAt":     change.CreatedAt,
		"updatedAt":     change.UpdatedAt,
	}

	linkSubjectQuery := fmt.Sprintf(`
		MATCH (c:StateChange {id: $id})
		MATCH (s:%s {id: $subjectId})
		MERGE (c)-[:APPLIES_TO]->(s)
	`, subjectLabel)

	return l.Driver.ExecuteWrite(ctx, database, func(ctx context.Context, tx driver.Tx) error {
		if err := tx.Run(ctx, driver.SaveStateChangeQuery, params); err != nil {
			return err
		}

		idParam := map[string]interface{}{"id": change.ID}

		if err := tx.Run(ctx, driver.ClearMarkerChangeEdgeQuery, idParam); err != nil {
			return err
		}
		if change.MarkerID != nil {
			if err := tx.Run(ctx, driver.LinkMarkerChangeQuery, map[string]interface{}{
				"id": change.ID, "markerId": *change.MarkerID,
			}); err != nil {
				return err
			}
		}

		if err := tx.Run(ctx, driver.ClearEventChangeEdgeQuery, idParam); err != nil {
			return err
		}
		if change.EventID != nil {
			if err := tx.Run(ctx, driver.LinkEventChangeQuery, map[string]interface{}{
				"id": change.ID, "eventId": *change.EventID,
			}); err != nil {
				return err
			}
		}

		if err := tx.Run(ctx, driver.ClearSubjectChangeEdgeQuery, idParam); err != nil {
			return err
		}
		return tx.Run(ctx, linkSubjectQuery, map[string]interface{}{
			"id": change.ID, "subjectId": change.SubjectID,
		})
	})
}

func changeFromInput(in ChangeInput) *model.StateChange {
	return &model.StateChange{
		AxisID:        in.AxisID,
		EraID:         in.EraID,
		SegmentID:     in.SegmentID,
		MarkerID:      in.MarkerID,
		EventID:       in.EventID,
		SubjectType:   in.SubjectType,
		SubjectID:     in.SubjectID,
		FieldPath:     in.FieldPath,
		ChangeType:    in.ChangeType,
		OldValue:      in.OldValue,
		NewValue:      in.NewValue,
		EffectiveTick: *in.EffectiveTick,
		Detail:        in.Detail,
		Notes:         in.Notes,
		Tags:          in.Tags,
		Status:        in.Status,
	}
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (l *Ledger) Create(ctx context.Context, database string, in ChangeInput) (*model.StateChange, error) {
	if err := validateChangeInput(&in); err != nil {
		return nil, err
	}
	subjectLabel, err := l.resolveReferences(ctx, database, &in)
	if err != nil {
		return nil, err
	}

	change := changeFromInput(in)
	change.ID = uuid.New().String()
	now := nowUTC()
	change.CreatedAt = now
	change.UpdatedAt = now

	if err := l.persist(ctx, database, change, subjectLabel); err != nil {
		return nil, err
	}
	return change, nil
}

func (l *Ledger) Update(ctx context.Context, database, id string, in ChangeInput) (*model.StateChange, error) {
	existing, err := l.Get(ctx, database, id)
	if err != nil {
		return nil, err
	}
	if err := validateChangeInput(&in); err != nil {
		return nil, err
	}
	subjectLabel, err := l.resolveReferences(ctx, database, &in)
	if err != nil {
		return nil, err
	}

	change := changeFromInput(in)
	change.ID = id
	change.CreatedAt = existing.CreatedAt
	change.UpdatedAt = nowUTC()

	if err := l.persist(ctx, database, change, subjectLabel); err != nil {
		return nil, err
	}
	return change, nil
}

func (l *Ledger) Get(ctx context.Context, database, id string) (*model.StateChange, error) {
	result, err := l.Driver.ExecuteQuery(ctx, database, driver.GetChangeQuery, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	props := driver.RecordProps(result)
	if len(props) == 0 {
		return nil, common.NotFoundf("state change '%s' not found", id)
	}
	return model.StateChangeFromProps(props[0]), nil
}

// Delete is a hard delete; all relationship edges go with the record.
func (l *Ledger) Delete(ctx context.Context, database, id string) error {
	if _, err := l.Get(ctx, database, id); err != nil {
		return err
	}
	_, err := l.Driver.ExecuteQuery(ctx, database, driver.DeleteChangeQuery, map[string]interface{}{"id": id})
	return err
}

func changePredicates(f model.ChangeFilter) *driver.Predicates {
	p := driver.NewPredicates()
	if f.AxisID != "" {
		p.Eq("c.axisId", "axisId", f.AxisID)
	}
	if f.EraID != "" {
		p.Eq("c.eraId", "eraId", f.EraID)
	}
	if f.SegmentID != "" {
		p.Eq("c.segmentId", "segmentId", f.SegmentID)
	}
	if f.MarkerID != "" {
		p.Eq("c.markerId", "markerId", f.MarkerID)
	}
	if f.EventID != "" {
		p.Eq("c.eventId", "eventId", f.EventID)
	}
	if f.SubjectType != "" {
		p.Eq("c.subjectType", "subjectType", f.SubjectType)
	}
	if f.SubjectID != "" {
		p.Eq("c.subjectId", "subjectId", f.SubjectID)
	}
	if f.FieldPath != "" {
		p.Add("c.fieldPath CONTAINS $fieldPath", map[string]interface{}{"fieldPath": f.FieldPath})
	}
	if f.Status != "" {
		p.Eq("c.status", "status", f.Status)
	}
	if f.TickFrom != nil {
		p.Add("c.effectiveTick >= $tickFrom", map[string]interface{}{"tickFrom": *f.TickFrom})
	}
	if f.TickTo != nil {
		p.Add("c.effectiveTick <= $tickTo", map[string]interface{}{"tickTo": *f.TickTo})
	}
	return p
}

// FetchAll returns every row matching the filter, ordered by
// effectiveTick ascending then createdAt descending, without
// pagination. The temporal engine consumes these.
func (l *Ledger) FetchAll(ctx context.Context, database string, f model.ChangeFilter) ([]*model.StateChange, error) {
	p := changePredicates(f)
	query := fmt.Sprintf(`
		MATCH (c:StateChange)
		%s
		RETURN properties(c) AS props
		ORDER BY c.effectiveTick ASC, c.createdAt DESC
	`, p.Where())

	result, err := l.Driver.ExecuteQuery(ctx, database, query, p.Params())
	if err != nil {
		return nil, err
	}

	props := driver.RecordProps(result)
	changes := make([]*model.StateChange, 0, len(props))
	for _, pr := range props {
		changes = append(changes, model.StateChangeFromProps(pr))
	}
	return changes, nil
}

func (l *Ledger) List(ctx context.Context, database string, f model.ChangeFilter) ([]*model.StateChange, int64, error) {
	props, total, err := driver.RunList(ctx, l.Driver, database, driver.ListSpec{
		Label:           "StateChange",
		Alias:           "c",
		Preds:           changePredicates(f),
		Query:           f.Query,
		SearchFields:    []string{"fieldPath", "changeType", "detail", "notes"},
		StructuralOrder: "c.effectiveTick ASC, c.updatedAt DESC",
		Limit:           f.Limit,
		Offset:          f.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	changes := make([]*model.StateChange, 0, len(props))
	for _, pr := range props {
		changes = append(changes, model.StateChangeFromProps(pr))
	}
	return changes, total, nil
}
