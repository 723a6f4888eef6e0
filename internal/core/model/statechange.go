package model

import (
	"strings"

	"github.com/agenthands/tapestry/internal/core/common"
)

// State change statuses. Non-active rows are ignored by snapshot and
// projection but still surface in raw listings and history replay.
const (
	ChangeStatusActive   = "active"
	ChangeStatusReverted = "reverted"
	ChangeStatusVoid     = "void"
)

// StateChange is one field-level mutation record in the ledger. Old and
// new values are serialized scalars stored as strings; effectiveTick is
// the simulated-time coordinate at which the change takes effect.
type StateChange struct {
	ID            string   `json:"id"`
	AxisID        string   `json:"axisId"`
	EraID         *string  `json:"eraId,omitempty"`
	SegmentID     *string  `json:"segmentId,omitempty"`
	MarkerID      *string  `json:"markerId,omitempty"`
	EventID       *string  `json:"eventId,omitempty"`
	SubjectType   string   `json:"subjectType"`
	SubjectID     string   `json:"subjectId"`
	FieldPath     string   `json:"fieldPath"`
	ChangeType    string   `json:"changeType,omitempty"`
	OldValue      string   `json:"oldValue,omitempty"`
	NewValue      string   `json:"newValue,omitempty"`
	EffectiveTick float64  `json:"effectiveTick"`
	Detail        string   `json:"detail,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Status        string   `json:"status"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

// IsRemoval classifies the row: remove/delete/unset change types clear
// the field, anything else assigns newValue.
func (c *StateChange) IsRemoval() bool {
	switch strings.ToLower(c.ChangeType) {
	case "remove", "delete", "unset":
		return true
	}
	return false
}

type ChangeFilter struct {
	Query       string
	AxisID      string
	EraID       string
	SegmentID   string
	MarkerID    string
	EventID     string
	SubjectType string
	SubjectID   string
	FieldPath   string
	Status      string
	TickFrom    *float64
	TickTo      *float64
	Limit       int
	Offset      int
}

func StateChangeFromProps(props map[string]interface{}) *StateChange {
	return &StateChange{
		ID:            common.PropString(props, "id"),
		AxisID:        common.PropString(props, "axisId"),
		EraID:         common.PropStringPtr(props, "eraId"),
		SegmentID:     common.PropStringPtr(props, "segmentId"),
		MarkerID:      common.PropStringPtr(props, "markerId"),
		EventID:       common.PropStringPtr(props, "eventId"),
		SubjectType:   common.PropString(props, "subjectType"),
		SubjectID:     common.PropString(props, "subjectId"),
		FieldPath:     common.PropString(props, "fieldPath"),
		ChangeType:    common.PropString(props, "changeType"),
		OldValue:      common.PropString(props, "oldValue"),
		NewValue:      common.PropString(props, "newValue"),
		EffectiveTick: common.PropFloat(props, "effectiveTick"),
		Detail:        common.PropString(props, "detail"),
		Notes:         common.PropString(props, "notes"),
		Tags:          common.PropStrings(props, "tags"),
		Status:        common.PropString(props, "status"),
		CreatedAt:     common.PropString(props, "createdAt"),
		UpdatedAt:     common.PropString(props, "updatedAt"),
	}
}
