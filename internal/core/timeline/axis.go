package timeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/agenthands/tapestry/internal/core/common"
	"github.com/agenthands/tapestry/internal/core/model"
	"github.com/agenthands/tapestry/internal/driver"
)

type AxisInput struct {
	Name              string   `json:"name"`
	Code              string   `json:"code"`
	AxisType          string   `json:"axisType"`
	Description       string   `json:"description"`
	ParentAxisID      *string  `json:"parentAxisId"`
	OriginSegmentID   *string  `json:"originSegmentId"`
	OriginOffsetYears *float64 `json:"originOffsetYears"`
	Policy            string   `json:"policy"`
	SortOrder         float64  `json:"sortOrder"`
	StartTick         *float64 `json:"startTick"`
	EndTick           *float64 `json:"endTick"`
	Status            string   `json:"status"`
	Notes             string   `json:"notes"`
	Tags              []string `json:"tags"`
}

func validateAxisInput(in *AxisInput) error {
	if in.Name == "" {
		return common.Invalidf("name is required")
	}
	if in.AxisType == "" {
		in.AxisType = model.AxisTypeMain
	}
	if in.Status == "" {
		in.Status = model.StatusActive
	}

	switch in.AxisType {
	case model.AxisTypeMain, model.AxisTypeParallel, model.AxisTypeBranch, model.AxisTypeLoop:
	default:
		return common.Invalidf("invalid axisType '%s'", in.AxisType)
	}
	if in.Status != model.StatusActive && in.Status != model.StatusArchived {
		return common.Invalidf("invalid status '%s'", in.Status)
	}
	if !validTickRange(in.StartTick, in.EndTick) {
		return common.Invalidf("endTick must be >= startTick")
	}
	if in.OriginOffsetYears != nil && *in.OriginOffsetYears < 0 {
		return common.Invalidf("originOffsetYears must be >= 0")
	}

	switch in.AxisType {
	case model.AxisTypeMain, model.AxisTypeParallel:
		if in.ParentAxisID != nil || in.OriginSegmentID != nil || in.OriginOffsetYears != nil {
			return common.Invalidf("%s axes must not set parentAxisId, originSegmentId or originOffsetYears", in.AxisType)
		}
	case model.AxisTypeBranch, model.AxisTypeLoop:
		if in.ParentAxisID == nil || *in.ParentAxisID == "" {
			return common.Invalidf("%s axes require parentAxisId", in.AxisType)
		}
		if in.AxisType == model.AxisTypeBranch && (in.OriginSegmentID == nil || *in.OriginSegmentID == "") {
			return common.Invalidf("branch axes require originSegmentId")
		}
	}

	return nil
}

// checkAxisReferences runs the reference checks that need the store:
// main-axis uniqueness, parent existence and branch origin ownership.
// The uniqueness check is optimistic (count-then-write, no lock); two
// concurrent creators can both pass it. Accepted race.
func (s *Store) checkAxisReferences(ctx context.Context, database, axisID string, in *AxisInput) error {
	if in.AxisType == model.AxisTypeMain {
		result, err := s.Driver.ExecuteQuery(ctx, database, driver.CountMainAxesQuery, map[string]interface{}{"excludeId": axisID})
		if err != nil {
			return err
		}
		if len(result.Records) > 0 {
			if v, ok := result.Records[0].Get("total"); ok {
				if n, ok := v.(int64); ok && n >= 1 {
					return common.Conflictf("a main axis already exists")
				}
			}
		}
		return nil
	}

	if in.ParentAxisID == nil {
		return nil
	}
	if *in.ParentAxisID == axisID {
		return common.Invalidf("axis cannot be its own parent")
	}
	parent, err := s.GetAxis(ctx, database, *in.ParentAxisID)
	if err != nil {
		return err
	}

	if in.AxisType == model.AxisTypeBranch {
		origin, err := s.GetSegment(ctx, database, *in.OriginSegmentID)
		if err != nil {
			return err
		}
		if origin.AxisID != parent.ID {
			return common.Invalidf("origin segment must belong to parent axis")
		}
	}

	return nil
}

func (s *Store) saveAxis(ctx context.Context, database string, axis *model.Axis) error {
	params := map[string]interface{}{
		"id":                axis.ID,
		"name":              axis.Name,
		"code":              axis.Code,
		"axisType":          axis.AxisType,
		"description":       axis.Description,
		"parentAxisId":      axis.ParentAxisID,
		"originSegmentId":   axis.OriginSegmentID,
		"originOffsetYears": axis.OriginOffsetYears,
		"policy":            axis.Policy,
		"sortOrder":         axis.SortOrder,
		"startTick":         axis.StartTick,
		"endTick":           axis.EndTick,
		"status":            axis.Status,
		"notes":             axis.Notes,
		"tags":              axis.Tags,
		"createdAt":         axis.CreatedAt,
		"updatedAt":         axis.UpdatedAt,
	}
	_, err := s.Driver.ExecuteQuery(ctx, database, driver.SaveAxisQuery, params)
	return err
}

func (s *Store) CreateAxis(ctx context.Context, database string, in AxisInput) (*model.Axis, error) {
	if err := validateAxisInput(&in); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	if err := s.checkAxisReferences(ctx, database, id, &in); err != nil {
		return nil, err
	}

	now := nowUTC()
	axis := &model.Axis{
		ID:                id,
		Name:              in.Name,
		Code:              in.Code,
		AxisType:          in.AxisType,
		Description:       in.Description,
		ParentAxisID:      in.ParentAxisID,
		OriginSegmentID:   in.OriginSegmentID,
		OriginOffsetYears: in.OriginOffsetYears,
		Policy:            in.Policy,
		SortOrder:         in.SortOrder,
		StartTick:         in.StartTick,
		EndTick:           in.EndTick,
		Status:            in.Status,
		Notes:             in.Notes,
		Tags:              in.Tags,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.saveAxis(ctx, database, axis); err != nil {
		return nil, err
	}
	return axis, nil
}

func (s *Store) UpdateAxis(ctx context.Context, database, id string, in AxisInput) (*model.Axis, error) {
	existing, err := s.GetAxis(ctx, database, id)
	if err != nil {
		return nil, err
	}
	if err := validateAxisInput(&in); err != nil {
		return nil, err
	}
	if err := s.checkAxisReferences(ctx, database, id, &in); err != nil {
		return nil, err
	}

	axis := &model.Axis{
		ID:                id,
		Name:              in.Name,
		Code:              in.Code,
		AxisType:          in.AxisType,
		Description:       in.Description,
		ParentAxisID:      in.ParentAxisID,
		OriginSegmentID:   in.OriginSegmentID,
		OriginOffsetYears: in.OriginOffsetYears,
		Policy:            in.Policy,
		SortOrder:         in.SortOrder,
		StartTick:         in.StartTick,
		EndTick:           in.EndTick,
		Status:            in.Status,
		Notes:             in.Notes,
		Tags:              in.Tags,
		CreatedAt:         existing.CreatedAt,
		UpdatedAt:         nowUTC(),
	}

	if err := s.saveAxis(ctx, database, axis); err != nil {
		return nil, err
	}
	return axis, nil
}

// DeleteAxis removes the axis with all eras, segments and markers it
// owns, and detaches any child axis pointing at it. One transaction so
// no partial cascade is ever observable.
func (s *Store) DeleteAxis(ctx context.Context, database, id string) error {
	if _, err := s.GetAxis(ctx, database, id); err != nil {
		return err
	}

	params := map[string]interface{}{"id": id}
	return s.Driver.ExecuteWrite(ctx, database, func(ctx context.Context, tx driver.Tx) error {
		for _, q := range []string{
			driver.DetachChildAxesQuery,
			driver.DeleteAxisMarkersQuery,
			driver.DeleteAxisSegmentsQuery,
			driver.DeleteAxisErasQuery,
			driver.DeleteAxisQuery,
		} {
			if err := tx.Run(ctx, q, params); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListAxes(ctx context.Context, database string, f model.AxisFilter) ([]*model.Axis, int64, error) {
	p := driver.NewPredicates()
	if f.AxisType != "" {
		p.Eq("a.axisType", "axisType", f.AxisType)
	}
	if f.Status != "" {
		p.Eq("a.status", "status", f.Status)
	}
	if f.ParentAxisID != "" {
		p.Eq("a.parentAxisId", "parentAxisId", f.ParentAxisID)
	}
	if f.TickFrom != nil {
		p.Add("(a.endTick IS NULL OR a.endTick >= $tickFrom)", map[string]interface{}{"tickFrom": *f.TickFrom})
	}
	if f.TickTo != nil {
		p.Add("(a.startTick IS NULL OR a.startTick <= $tickTo)", map[string]interface{}{"tickTo": *f.TickTo})
	}

	props, total, err := driver.RunList(ctx, s.Driver, database, driver.ListSpec{
		Label:           "TimelineAxis",
		Alias:           "a",
		Preds:           p,
		Query:           f.Query,
		SearchFields:    []string{"name", "code", "description"},
		StructuralOrder: "a.sortOrder ASC, a.updatedAt DESC",
		Limit:           f.Limit,
		Offset:          f.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	axes := make([]*model.Axis, 0, len(props))
	for _, pr := range props {
		axes = append(axes, model.AxisFromProps(pr))
	}
	return axes, total, nil
}
