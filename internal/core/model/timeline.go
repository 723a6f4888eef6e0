package model

import "github.com/agenthands/tapestry/internal/core/common"

// Axis types. Exactly one main axis may exist per logical database;
// branch and loop axes hang off a parent, branch additionally off an
// origin segment of that parent.
const (
	AxisTypeMain     = "main"
	AxisTypeParallel = "parallel"
	AxisTypeBranch   = "branch"
	AxisTypeLoop     = "loop"
)

const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

type Axis struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Code              string   `json:"code,omitempty"`
	AxisType          string   `json:"axisType"`
	Description       string   `json:"description,omitempty"`
	ParentAxisID      *string  `json:"parentAxisId,omitempty"`
	OriginSegmentID   *string  `json:"originSegmentId,omitempty"`
	OriginOffsetYears *float64 `json:"originOffsetYears,omitempty"`
	Policy            string   `json:"policy,omitempty"`
	SortOrder         float64  `json:"sortOrder"`
	StartTick         *float64 `json:"startTick,omitempty"`
	EndTick           *float64 `json:"endTick,omitempty"`
	Status            string   `json:"status"`
	Notes             string   `json:"notes,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	CreatedAt         string   `json:"createdAt"`
	UpdatedAt         string   `json:"updatedAt"`
}

type Era struct {
	ID          string   `json:"id"`
	AxisID      string   `json:"axisId"`
	Name        string   `json:"name"`
	Code        string   `json:"code,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	Order       float64  `json:"order"`
	StartTick   *float64 `json:"startTick,omitempty"`
	EndTick     *float64 `json:"endTick,omitempty"`
	Status      string   `json:"status"`
	Notes       string   `json:"notes,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

type Segment struct {
	ID            string   `json:"id"`
	AxisID        string   `json:"axisId"`
	EraID         string   `json:"eraId"`
	Name          string   `json:"name"`
	DurationYears float64  `json:"durationYears"`
	Code          string   `json:"code,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	Description   string   `json:"description,omitempty"`
	Order         float64  `json:"order"`
	StartTick     *float64 `json:"startTick,omitempty"`
	EndTick       *float64 `json:"endTick,omitempty"`
	Status        string   `json:"status"`
	Notes         string   `json:"notes,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

type Marker struct {
	ID          string  `json:"id"`
	AxisID      string  `json:"axisId"`
	EraID       string  `json:"eraId"`
	SegmentID   string  `json:"segmentId"`
	Label       string  `json:"label"`
	Tick        float64 `json:"tick"`
	MarkerType  string  `json:"markerType,omitempty"`
	Description string  `json:"description,omitempty"`
	EventRefID  *string `json:"eventRefId,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// List filters. Query switches the list into free-text search mode with
// relevance ordering; the other fields always apply as predicates.

type AxisFilter struct {
	Query        string
	AxisType     string
	Status       string
	ParentAxisID string
	TickFrom     *float64
	TickTo       *float64
	Limit        int
	Offset       int
}

type EraFilter struct {
	Query    string
	AxisID   string
	Status   string
	TickFrom *float64
	TickTo   *float64
	Limit    int
	Offset   int
}

type SegmentFilter struct {
	Query    string
	AxisID   string
	EraID    string
	Status   string
	TickFrom *float64
	TickTo   *float64
	Limit    int
	Offset   int
}

type MarkerFilter struct {
	Query      string
	AxisID     string
	EraID      string
	SegmentID  string
	MarkerType string
	TickFrom   *float64
	TickTo     *float64
	Limit      int
	Offset     int
}

func AxisFromProps(props map[string]interface{}) *Axis {
	return &Axis{
		ID:                common.PropString(props, "id"),
		Name:              common.PropString(props, "name"),
		Code:              common.PropString(props, "code"),
		AxisType:          common.PropString(props, "axisType"),
		Description:       common.PropString(props, "description"),
		ParentAxisID:      common.PropStringPtr(props, "parentAxisId"),
		OriginSegmentID:   common.PropStringPtr(props, "originSegmentId"),
		OriginOffsetYears: common.PropFloatPtr(props, "originOffsetYears"),
		Policy:            common.PropString(props, "policy"),
		SortOrder:         common.PropFloat(props, "sortOrder"),
		StartTick:         common.PropFloatPtr(props, "startTick"),
		EndTick:           common.PropFloatPtr(props, "endTick"),
		Status:            common.PropString(props, "status"),
		Notes:             common.PropString(props, "notes"),
		Tags:              common.PropStrings(props, "tags"),
		CreatedAt:         common.PropString(props, "createdAt"),
		UpdatedAt:         common.PropString(props, "updatedAt"),
	}
}

func EraFromProps(props map[string]interface{}) *Era {
	return &Era{
		ID:          common.PropString(props, "id"),
		AxisID:      common.PropString(props, "axisId"),
		Name:        common.PropString(props, "name"),
		Code:        common.PropString(props, "code"),
		Summary:     common.PropString(props, "summary"),
		Description: common.PropString(props, "description"),
		Order:       common.PropFloat(props, "order"),
		StartTick:   common.PropFloatPtr(props, "startTick"),
		EndTick:     common.PropFloatPtr(props, "endTick"),
		Status:      common.PropString(props, "status"),
		Notes:       common.PropString(props, "notes"),
		Tags:        common.PropStrings(props, "tags"),
		CreatedAt:   common.PropString(props, "createdAt"),
		UpdatedAt:   common.PropString(props, "updatedAt"),
	}
}

func SegmentFromProps(props map[string]interface{}) *Segment {
	return &Segment{
		ID:            common.PropString(props, "id"),
		AxisID:        common.PropString(props, "axisId"),
		EraID:         common.PropString(props, "eraId"),
		Name:          common.PropString(props, "name"),
		DurationYears: common.PropFloat(props, "durationYears"),
		Code:          common.PropString(props, "code"),
		Summary:       common.PropString(props, "summary"),
		Description:   common.PropString(props, "description"),
		Order:         common.PropFloat(props, "order"),
		StartTick:     common.PropFloatPtr(props, "startTick"),
		EndTick:       common.PropFloatPtr(props, "endTick"),
		Status:        common.PropString(props, "status"),
		Notes:         common.PropString(props, "notes"),
		Tags:          common.PropStrings(props, "tags"),
		CreatedAt:     common.PropString(props, "createdAt"),
		UpdatedAt:     common.PropString(props, "updatedAt"),
	}
}

func MarkerFromProps(props map[string]interface{}) *Marker {
	return &Marker{
		ID:          common.PropString(props, "id"),
		AxisID:      common.PropString(props, "axisId"),
		EraID:       common.PropString(props, "eraId"),
		SegmentID:   common.PropString(props, "segmentId"),
		Label:       common.PropString(props, "label"),
		Tick:        common.PropFloat(props, "tick"),
		MarkerType:  common.PropString(props, "markerType"),
		Description: common.PropString(props, "description"),
		EventRefID:  common.PropStringPtr(props, "eventRefId"),
		CreatedAt:   common.PropString(props, "createdAt"),
		UpdatedAt:   common.PropString(props, "updatedAt"),
	}
}
