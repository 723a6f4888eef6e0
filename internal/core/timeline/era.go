package timeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/agenthands/tapestry/internal/core/common"
	"github.com/agenthands/tapestry/internal/core/model"
	"github.com/agenthands/tapestry/internal/driver"
)

type EraInput struct {
	AxisID      string   `json:"axisId"`
	Name        string   `json:"name"`
	Code        string   `json:"code"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Order       float64  `json:"order"`
	StartTick   *float64 `json:"startTick"`
	EndTick     *float64 `json:"endTick"`
	Status      string   `json:"status"`
	Notes       string   `json:"notes"`
	Tags        []string `json:"tags"`
}

func validateEraInput(in *EraInput) error {
	if in.Name == "" {
		return common.Invalidf("name is required")
	}
	if in.AxisID == "" {
		return common.Invalidf("axisId is required")
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

func (s *Store) saveEra(ctx context.Context, database string, era *model.Era) error {
	params := map[string]interface{}{
		"id":          era.ID,
		"axisId":      era.AxisID,
		"name":        era.Name,
		"code":        era.Code,
		"summary":     era.Summary,
		"description": era.Description,
		"order":       era.Order,
		"startTick":   era.StartTick,
		"endTick":     era.EndTick,
		"status":      era.Status,
		"notes":       era.Notes,
		"tags":        era.Tags,
		"createdAt":   era.CreatedAt,
		"updatedAt":   era.UpdatedAt,
	}
	_, err := s.Driver.ExecuteQuery(ctx, database, driver.SaveEraQuery, params)
	return err
}

func (s *Store) eraFromInput(ctx context.Context, database string, in EraInput) (*model.Era, error) {
	if err := validateEraInput(&in); err != nil {
		return nil, err
	}
	// The owning axis id comes from the resolved axis record, not from
	// caller state.
	axis, err := s.GetAxis(ctx, database, in.AxisID)
	if err != nil {
		return nil, err
	}

	return &model.Era{
		AxisID:      axis.ID,
		Name:        in.Name,
		Code:        in.Code,
		Summary:     in.Summary,
		Description: in.Description,
		Order:       in.Order,
		StartTick:   in.StartTick,
		EndTick:     in.EndTick,
		Status:      in.Status,
		Notes:       in.Notes,
		Tags:        in.Tags,
	}, nil
}

func (s *Store) CreateEra(ctx context.Context, database string, in EraInput) (*model.Era, error) {
	era, err := s.eraFromInput(ctx, database, in)
	if err != nil {
		return nil, err
	}

	era.ID = uuid.New().String()
	now := nowUTC()
	era.CreatedAt = now
	era.UpdatedAt = now

	if err := s.saveEra(ctx, database, era); err != nil {
		return nil, err
	}
	return era, nil
}

func (s *Store) UpdateEra(ctx context.Context, database, id string, in EraInput) (*model.Era, error) {
	existing, err := s.GetEra(ctx, database, id)
	if err != nil {
		return nil, err
	}
	era, err := s.eraFromInput(ctx, database, in)
	if err != nil {
		return nil, err
	}

	era.ID = id
	era.CreatedAt = existing.CreatedAt
	era.UpdatedAt = nowUTC()

	if err := s.saveEra(ctx, database, era); err != nil {
		return nil, err
	}
	return era, nil
}

// DeleteEra cascades to the era's segments and markers.
func (s *Store) DeleteEra(ctx context.Context, database, id string) error {
	if _, err := s.GetEra(ctx, database, id); err != nil {
		return err
	}

	params := map[string]interface{}{"id": id}
	return s.Driver.ExecuteWrite(ctx, database, func(ctx context.Context, tx driver.Tx) error {
		for _, q := range []string{
			driver.DeleteEraMarkersQuery,
			driver.DeleteEraSegmentsQuery,
			driver.DeleteEraQuery,
		} {
			if err := tx.Run(ctx, q, params); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListEras(ctx context.Context, database string, f model.EraFilter) ([]*model.Era, int64, error) {
	p := driver.NewPredicates()
	if f.AxisID != "" {
		p.Eq("e.axisId", "axisId", f.AxisID)
	}
	if f.Status != "" {
		p.Eq("e.status", "status", f.Status)
	}
	if f.TickFrom != nil {
		p.Add("(e.endTick IS NULL OR e.endTick >= $tickFrom)", map[string]interface{}{"tickFrom": *f.TickFrom})
	}
	if f.TickTo != nil {
		p.Add("(e.startTick IS NULL OR e.startTick <= $tickTo)", map[string]interface{}{"tickTo": *f.TickTo})
	}

	props, total, err := driver.RunList(ctx, s.Driver, database, driver.ListSpec{
		Label:           "TimelineEra",
		Alias:           "e",
		Preds:           p,
		Query:           f.Query,
		SearchFields:    []string{"name", "code", "summary", "description"},
		StructuralOrder: "e.order ASC, e.updatedAt DESC",
		Limit:           f.Limit,
		Offset:          f.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	eras := make([]*model.Era, 0, len(props))
	for _, pr := range props {
		eras = append(eras, model.EraFromProps(pr))
	}
	return eras, total, nil
}
