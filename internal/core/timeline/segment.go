package timeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/agenthands/tapestry/internal/core/common"
	"github.com/agenthands/tapestry/internal/core/model"
	"github.com/agenthands/tapestry/internal/driver"
)

type SegmentInput struct {
	EraID         string   `json:"eraId"`
	Name          string   `json:"name"`
	DurationYears float64  `json:"durationYears"`
	Code          string   `json:"code"`
	Summary       string   `json:"summary"`
	Description   string   `json:"description"`
	Order         float64  `json:"order"`
	StartTick     *float64 `json:"startTick"`
	EndTick       *float64 `json:"endTick"`
	Status        string   `json:"status"`
	Notes         string   `json:"notes"`
	Tags          []string `json:"tags"`
}

func validateSegmentInput(in *SegmentInput) error {
	if in.Name == "" {
		return common.Invalidf("name is required")
	}
	if in.EraID == "" {
		return common.Invalidf("eraId is required")
	}
	if in.DurationYears <= 0 {
		return common.Invalidf("durationYears must be > 0")
	}
	if in.Status == "" {
		in.Status = model.StatusActive
	}
	if in.Status != model.StatusActive && in.Status != model.StatusArchived {
		return common.Invalidf("invalid status '%s'", in.Status)
	}
	if in.Order < 0 {
		return common.Invalidf("order must be >= 0")
	}
	if !validTickRange(in.StartTick, in.EndTick) {
		return common.Invalidf("endTick must be >= startTick")
	}
	return nil
}

func (s *Store) saveSegment(ctx context.Context, database string, segment *model.Segment) error {
	params := map[string]interface{}{
		"id":            segment.ID,
		"axisId":        segment.AxisID,
		"eraId":         segment.EraID,
		"name":          segment.Name,
		"durationYears": segment.DurationYears,
		"code":          segment.Code,
		"summary":       segment.Summary,
		"description":   segment.Description,
		"order":         segment.Order,
		"startTick":     segment.StartTick,
		"endTick":       segment.EndTick,
		"status":        segment.Status,
		"notes":         segment.Notes,
		"tags":          segment.Tags,
		"createdAt":     segment.CreatedAt,
		"updatedAt":     segment.UpdatedAt,
	}
	_, err := s.Driver.ExecuteQuery(ctx, database, driver.SaveSegmentQuery, params)
	return err
}

func (s *Store) segmentFromInput(ctx context.Context, database string, in SegmentInput) (*model.Segment, error) {
	if err := validateSegmentInput(&in); err != nil {
		return nil, err
	}
	// axisId is inherited from the era; a caller-supplied value is
	// ignored outright (the input has no field for it).
	era, err := s.GetEra(ctx, database, in.EraID)
	if err != nil {
		return nil, err
	}

	return &model.Segment{
		AxisID:        era.AxisID,
		EraID:         era.ID,
		Name:          in.Name,
		DurationYears: in.DurationYears,
		Code:          in.Code,
		Summary:       in.Summary,
		Description:   in.Description,
		Order:         in.Order,
		StartTick:     in.StartTick,
		EndTick:       in.EndTick,
		Status:        in.Status,
		Notes:         in.Notes,
		Tags:          in.Tags,
	}, nil
}

func (s *Store) CreateSegment(ctx context.Context, database string, in SegmentInput) (*model.Segment, error) {
	segment, err := s.segmentFromInput(ctx, database, in)
	if err != nil {
		return nil, err
	}

	segment.ID = uuid.New().String()
	now := nowUTC()
	segment.CreatedAt = now
	segment.UpdatedAt = now

	if err := s.saveSegment(ctx, database, segment); err != nil {
		return nil, err
	}
	return segment, nil
}

func (s *Store) UpdateSegment(ctx context.Context, database, id string, in SegmentInput) (*model.Segment, error) {
	existing, err := s.GetSegment(ctx, database, id)
	if err != nil {
		return nil, err
	}
	segment, err := s.segmentFromInput(ctx, database, in)
	if err != nil {
		return nil, err
	}

	segment.ID = id
	segment.CreatedAt = existing.CreatedAt
	segment.UpdatedAt = nowUTC()

	if err := s.saveSegment(ctx, database, segment); err != nil {
		return nil, err
	}
	return segment, nil
}

// DeleteSegment cascades to the segment's markers.
func (s *Store) DeleteSegment(ctx context.Context, database, id string) error {
	if _, err := s.GetSegment(ctx, database, id); err != nil {
		return err
	}

	params := map[string]interface{}{"id": id}
	return s.Driver.ExecuteWrite(ctx, database, func(ctx context.Context, tx driver.Tx) error {
		for _, q := range []string{
			driver.DeleteSegmentMarkersQuery,
			driver.DeleteSegmentQuery,
		} {
			if err := tx.Run(ctx, q, params); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListSegments(ctx context.Context, database string, f model.SegmentFilter) ([]*model.Segment, int64, error) {
	p := driver.NewPredicates()
	if f.AxisID != "" {
		p.Eq("s.axisId", "axisId", f.AxisID)
	}
	if f.EraID != "" {
		p.Eq("s.eraId", "eraId", f.EraID)
	}
	if f.Status != "" {
		p.Eq("s.status", "status", f.Status)
	}
	if f.TickFrom != nil {
		p.Add("(s.endTick IS NULL OR s.endTick >= $tickFrom)", map[string]interface{}{"tickFrom": *f.TickFrom})
	}
	if f.TickTo != nil {
		p.Add("(s.startTick IS NULL OR s.startTick <= $tickTo)", map[string]interface{}{"tickTo": *f.TickTo})
	}

	props, total, err := driver.RunList(ctx, s.Driver, database, driver.ListSpec{
		Label:           "TimelineSegment",
		Alias:           "s",
		Preds:           p,
		Query:           f.Query,
		SearchFields:    []string{"name", "code", "summary", "description"},
		StructuralOrder: "s.order ASC, s.updatedAt DESC",
		Limit:           f.Limit,
		Offset:          f.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	segments := make([]*model.Segment, 0, len(props))
	for _, pr := range props {
		segments = append(segments, model.SegmentFromProps(pr))
	}
	return segments, total, nil
}
