package temporal

import (
	"context"

	"github.com/agenthands/tapestry/internal/core/common"
	"github.com/agenthands/tapestry/internal/core/ledger"
	"github.com/agenthands/tapestry/internal/core/model"
	"github.com/agenthands/tapestry/internal/core/subject"
	"github.com/agenthands/tapestry/internal/core/timeline"
)

// Service fetches ledger rows and runs the engine over them. All
// reference validation happens before any fetch.
type Service struct {
	Ledger   *ledger.Ledger
	Timeline *timeline.Store
	Gateway  *subject.Gateway
}

func NewService(l *ledger.Ledger, tl *timeline.Store) *Service {
	return &Service{
		Ledger:   l,
		Timeline: tl,
		Gateway:  l.Gateway,
	}
}

// HistoryResult carries the replayed steps plus the accumulated state.
type HistoryResult struct {
	Steps      []HistoryStep          `json:"steps"`
	FinalState map[string]interface{} `json:"finalState"`
	Total      int                    `json:"total"`
	HasMore    bool                   `json:"hasMore"`
}

func (s *Service) checkAxis(ctx context.Context, database, axisID string) error {
	if axisID == "" {
		return common.Invalidf("axisId is required")
	}
	_, err := s.Timeline.GetAxis(ctx, database, axisID)
	return err
}

func (s *Service) checkSubject(ctx context.Context, database, subjectType, subjectID string) error {
	if subjectType == "" && subjectID == "" {
		return nil
	}
	if subjectType == "" || subjectID == "" {
		return common.Invalidf("subjectType and subjectId must be supplied together")
	}
	_, err := s.Gateway.CheckSubject(ctx, database, subjectType, subjectID)
	return err
}

// Snapshot returns the latest active row per (subject, fieldPath) as of
// tick, optionally narrowed to one subject.
func (s *Service) Snapshot(ctx context.Context, database, axisID string, tick float64, subjectType, subjectID string) ([]*model.StateChange, error) {
	if err := s.checkAxis(ctx, database, axisID); err != nil {
		return nil, err
	}
	if err := s.checkSubject(ctx, database, subjectType, subjectID); err != nil {
		return nil, err
	}

	rows, err := s.Ledger.FetchAll(ctx, database, model.ChangeFilter{
		AxisID:      axisID,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Status:      model.ChangeStatusActive,
		TickTo:      &tick,
	})
	if err != nil {
		return nil, err
	}
	return Snapshot(rows, tick), nil
}

// Projection materializes nested per-subject state objects as of tick.
func (s *Service) Projection(ctx context.Context, database, axisID string, tick float64, subjectType, subjectID string) ([]SubjectProjection, error) {
	if err := s.checkAxis(ctx, database, axisID); err != nil {
		return nil, err
	}
	if err := s.checkSubject(ctx, database, subjectType, subjectID); err != nil {
		return nil, err
	}

	rows, err := s.Ledger.FetchAll(ctx, database, model.ChangeFilter{
		AxisID:      axisID,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Status:      model.ChangeStatusActive,
		TickTo:      &tick,
	})
	if err != nil {
		return nil, err
	}

	projections := Project(rows, tick)
	if projections == nil {
		projections = []SubjectProjection{}
	}
	return projections, nil
}

// History replays a subject's changes chronologically. The status
// filter applies at fetch time only (empty means all); replay applies
// every fetched row regardless of its status.
func (s *Service) History(ctx context.Context, database, axisID, subjectType, subjectID, fieldPath, status string, tickFrom, tickTo *float64, limit int) (*HistoryResult, error) {
	if err := s.checkAxis(ctx, database, axisID); err != nil {
		return nil, err
	}
	if subjectType == "" || subjectID == "" {
		return nil, common.Invalidf("subjectType and subjectId are required")
	}
	if _, err := s.Gateway.CheckSubject(ctx, database, subjectType, subjectID); err != nil {
		return nil, err
	}
	if tickFrom != nil && tickTo != nil && *tickTo < *tickFrom {
		return nil, common.Invalidf("tickTo must be >= tickFrom")
	}

	rows, err := s.Ledger.FetchAll(ctx, database, model.ChangeFilter{
		AxisID:      axisID,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		FieldPath:   fieldPath,
		Status:      status,
		TickFrom:    tickFrom,
		TickTo:      tickTo,
	})
	if err != nil {
		return nil, err
	}

	total := len(rows)
	hasMore := false
	if limit > 0 && total > limit {
		rows = rows[:limit]
		hasMore = true
	}

	steps, finalState := Replay(rows)
	return &HistoryResult{
		Steps:      steps,
		FinalState: finalState,
		Total:      total,
		HasMore:    hasMore,
	}, nil
}

// Diff compares one subject's projected state at two ticks. Composed
// from Projection; no separate storage query.
func (s *Service) Diff(ctx context.Context, database, axisID, subjectType, subjectID string, fromTick, toTick float64) (*DiffResult, error) {
	if err := s.checkAxis(ctx, database, axisID); err != nil {
		return nil, err
	}
	if subjectType == "" || subjectID == "" {
		return nil, common.Invalidf("subjectType and subjectId are required")
	}
	if _, err := s.Gateway.CheckSubject(ctx, database, subjectType, subjectID); err != nil {
		return nil, err
	}

	maxTick := fromTick
	if toTick > maxTick {
		maxTick = toTick
	}
	rows, err := s.Ledger.FetchAll(ctx, database, model.ChangeFilter{
		AxisID:      axisID,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Status:      model.ChangeStatusActive,
		TickTo:      &maxTick,
	})
	if err != nil {
		return nil, err
	}

	result := Diff(rows, fromTick, toTick)
	return &result, nil
}
