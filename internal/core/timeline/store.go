// Package timeline owns the temporal hierarchy: axes, eras, segments
// and markers. Every write validates its payload first, re-derives
// ancestor ids from the direct parent record, then persists. Ancestor
// ids supplied independently by callers are never trusted.
package timeline

import (
	"context"
	"time"

	"github.com/agenthands/tapestry/internal/core/common"
	"github.com/agenthands/tapestry/internal/core/model"
	"github.com/agenthands/tapestry/internal/core/subject"
	"github.com/agenthands/tapestry/internal/driver"
)

type Store struct {
	Driver  driver.GraphDriver
	Gateway *subject.Gateway
}

func NewStore(d driver.GraphDriver) *Store {
	return &Store{
		Driver:  d,
		Gateway: subject.NewGateway(d),
	}
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (s *Store) fetchProps(ctx context.Context, database, query, id string) (map[string]interface{}, error) {
	result, err := s.Driver.ExecuteQuery(ctx, database, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	props := driver.RecordProps(result)
	if len(props) == 0 {
		return nil, nil
	}
	return props[0], nil
}

func (s *Store) GetAxis(ctx context.Context, database, id string) (*model.Axis, error) {
	props, err := s.fetchProps(ctx, database, driver.GetAxisQuery, id)
	if err != nil {
		return nil, err
	}
	if props == nil {
		return nil, common.NotFoundf("axis '%s' not found", id)
	}
	return model.AxisFromProps(props), nil
}

func (s *Store) GetEra(ctx context.Context, database, id string) (*model.Era, error) {
	props, err := s.fetchProps(ctx, database, driver.GetEraQuery, id)
	if err != nil {
		return nil, err
	}
	if props == nil {
		return nil, common.NotFoundf("era '%s' not found", id)
	}
	return model.EraFromProps(props), nil
}

func (s *Store) GetSegment(ctx context.Context, database, id string) (*model.Segment, error) {
	props, err := s.fetchProps(ctx, database, driver.GetSegmentQuery, id)
	if err != nil {
		return nil, err
	}
	if props == nil {
		return nil, common.NotFoundf("segment '%s' not found", id)
	}
	return model.SegmentFromProps(props), nil
}

func (s *Store) GetMarker(ctx context.Context, database, id string) (*model.Marker, error) {
	props, err := s.fetchProps(ctx, database, driver.GetMarkerQuery, id)
	if err != nil {
		return nil, err
	}
	if props == nil {
		return nil, common.NotFoundf("marker '%s' not found", id)
	}
	return model.MarkerFromProps(props), nil
}

func validTickRange(start, end *float64) bool {
	if start != nil && end != nil {
		return *end >= *start
	}
	return true
}
