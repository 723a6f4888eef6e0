package timeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/agenthands/tapestry/internal/core/common"
	"github.com/agenthands/tapestry/internal/core/model"
	"github.com/agenthands/tapestry/internal/driver"
)

type MarkerInput struct {
	SegmentID   string   `json:"segmentId"`
	Label       string   `json:"label"`
	Tick        *float64 `json:"tick"`
	MarkerType  string   `json:"markerType"`
	Description string   `json:"description"`
	EventRefID  *string  `json:"eventRefId"`
}

func validateMarkerInput(in *MarkerInput) error {
	if in.Label == "" {
		return common.Invalidf("label is required")
	}
	if in.SegmentID == "" {
		return common.Invalidf("segmentId is required")
	}
	if in.Tick == nil {
		return common.Invalidf("tick is required")
	}
	return nil
}

func (s *Store) markerFromInput(ctx context.Context, database string, in MarkerInput) (*model.Marker, error) {
	if err := validateMarkerInput(&in); err != nil {
		return nil, err
	}
	// axisId and eraId are inherited from the resolved segment.
	segment, err := s.GetSegment(ctx, database, in.SegmentID)
	if err != nil {
		return nil, err
	}

	if in.EventRefID != nil && *in.EventRefID != "" {
		if err := s.Gateway.CheckEvent(ctx, database, *in.EventRefID); err != nil {
			return nil, err
		}
	} else {
		in.EventRefID = nil
	}

	return &model.Marker{
		AxisID:      segment.AxisID,
		EraID:       segment.EraID,
		SegmentID:   segment.ID,
		Label:       in.Label,
		Tick:        *in.Tick,
		MarkerType:  in.MarkerType,
		Description: in.Description,
		EventRefID:  in.EventRefID,
	}, nil
}

// saveMarker persists the marker and, when an event reference is set,
// steals that reference from any other marker holding it. Both writes
// run in one transaction: an event is referenced by at most one marker
// at any observable point.
func (s *Store) saveMarker(ctx context.Context, database string, marker *model.Marker) error {
	params := map[string]interface{}{
		"id":          marker.ID,
		"axisId":      marker.AxisID,
		"eraId":       marker.EraID,
		"segmentId":   marker.SegmentID,
		"label":       marker.Label,
		"tick":        marker.Tick,
		"markerType":  marker.MarkerType,
		"description": marker.Description,
		"eventRefId":  marker.EventRefID,
		"createdAt":   marker.CreatedAt,
		"updatedAt":   marker.UpdatedAt,
	}

	if marker.EventRefID == nil {
		_, err := s.Driver.ExecuteQuery(ctx, database, driver.SaveMarkerQuery, params)
		return err
	}

	return s.Driver.ExecuteWrite(ctx, database, func(ctx context.Context, tx driver.Tx) error {
		if err := tx.Run(ctx, driver.ClearOtherMarkerEventRefQuery, map[string]interface{}{
			"eventRefId": *marker.EventRefID,
			"markerId":   marker.ID,
		}); err != nil {
			return err
		}
		return tx.Run(ctx, driver.SaveMarkerQuery, params)
	})
}

func (s *Store) CreateMarker(ctx context.Context, database string, in MarkerInput) (*model.Marker, error) {
	marker, err := s.markerFromInput(ctx, database, in)
	if err != nil {
		return nil, err
	}

	marker.ID = uuid.New().String()
	now := nowUTC()
	marker.CreatedAt = now
	marker.UpdatedAt = now

	if err := s.saveMarker(ctx, database, marker); err != nil {
		return nil, err
	}
	return marker, nil
}

func (s *Store) UpdateMarker(ctx context.Context, database, id string, in MarkerInput) (*model.Marker, error) {
	existing, err := s.GetMarker(ctx, database, id)
	if err != nil {
		return nil, err
	}
	marker, err := s.markerFromInput(ctx, database, in)
	if err != nil {
		return nil, err
	}

	marker.ID = id
	marker.CreatedAt = existing.CreatedAt
	marker.UpdatedAt = nowUTC()

	if err := s.saveMarker(ctx, database, marker); err != nil {
		return nil, err
	}
	return marker, nil
}

func (s *Store) DeleteMarker(ctx context.Context, database, id string) error {
	if _, err := s.GetMarker(ctx, database, id); err != nil {
		return err
	}
	_, err := s.Driver.ExecuteQuery(ctx, database, driver.DeleteMarkerQuery, map[string]interface{}{"id": id})
	return err
}

func (s *Store) ListMarkers(ctx context.Context, database string, f model.MarkerFilter) ([]*model.Marker, int64, error) {
	p := driver.NewPredicates()
	if f.AxisID != "" {
		p.Eq("m.axisId", "axisId", f.AxisID)
	}
	if f.EraID != "" {
		p.Eq("m.eraId", "eraId", f.EraID)
	}
	if f.SegmentID != "" {
		p.Eq("m.segmentId", "segmentId", f.SegmentID)
	}
	if f.MarkerType != "" {
		p.Eq("m.markerType", "markerType", f.MarkerType)
	}
	if f.TickFrom != nil {
		p.Add("m.tick >= $tickFrom", map[string]interface{}{"tickFrom": *f.TickFrom})
	}
	if f.TickTo != nil {
		p.Add("m.tick <= $tickTo", map[string]interface{}{"tickTo": *f.TickTo})
	}

	props, total, err := driver.RunList(ctx, s.Driver, database, driver.ListSpec{
		Label:           "TimelineMarker",
		Alias:           "m",
		Preds:           p,
		Query:           f.Query,
		SearchFields:    []string{"label", "description"},
		StructuralOrder: "m.tick ASC, m.updatedAt DESC",
		Limit:           f.Limit,
		Offset:          f.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	markers := make([]*model.Marker, 0, len(props))
	for _, pr := range props {
		markers = append(markers, model.MarkerFromProps(pr))
	}
	return markers, total, nil
}
