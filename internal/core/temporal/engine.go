// Package temporal reconstructs subject state from ledger rows. The
// four operations (snapshot, projection, history replay, diff) are pure
// functions over rows already fetched; they never touch the store.
package temporal

import (
	"sort"
	"time"

	"github.com/agenthands/tapestry/internal/core/common"
	"github.com/agenthands/tapestry/internal/core/fieldpath"
	"github.com/agenthands/tapestry/internal/core/model"
)

// FieldRow is one contributing ledger row in a projection, with the
// new value parsed alongside its raw serialized form.
type FieldRow struct {
	StateChangeID string      `json:"stateChangeId"`
	FieldPath     string      `json:"fieldPath"`
	ChangeType    string      `json:"changeType,omitempty"`
	Value         interface{} `json:"value"`
	RawValue      string      `json:"rawValue,omitempty"`
	EffectiveTick float64     `json:"effectiveTick"`
	MarkerID      *string     `json:"markerId,omitempty"`
	EventID       *string     `json:"eventId,omitempty"`
	UpdatedAt     string      `json:"updatedAt"`
}

// SubjectProjection is one subject's materialized state as of a tick,
// plus the flat list of rows that produced it.
type SubjectProjection struct {
	SubjectType string                 `json:"subjectType"`
	SubjectID   string                 `json:"subjectId"`
	State       map[string]interface{} `json:"state"`
	Fields      []FieldRow             `json:"fields"`
}

// HistoryStep is one replayed change with the accumulated state after
// applying it.
type HistoryStep struct {
	StateChangeID string                 `json:"stateChangeId"`
	EffectiveTick float64                `json:"effectiveTick"`
	FieldPath     string                 `json:"fieldPath"`
	ChangeType    string                 `json:"changeType,omitempty"`
	OldValue      interface{}            `json:"oldValue"`
	NewValue      interface{}            `json:"newValue"`
	MarkerID      *string                `json:"markerId,omitempty"`
	EventID       *string                `json:"eventId,omitempty"`
	UpdatedAt     string                 `json:"updatedAt"`
	StateAfter    map[string]interface{} `json:"stateAfter"`
}

type DiffEntry struct {
	FieldPath string      `json:"fieldPath"`
	FromValue interface{} `json:"fromValue,omitempty"`
	ToValue   interface{} `json:"toValue,omitempty"`
}

type DiffResult struct {
	FromTick float64     `json:"fromTick"`
	ToTick   float64     `json:"toTick"`
	Added    []DiffEntry `json:"added"`
	Removed  []DiffEntry `json:"removed"`
	Updated  []DiffEntry `json:"updated"`
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

type groupKey struct {
	subjectType string
	subjectID   string
	fieldPath   string
}

// Snapshot keeps, per (subjectType, subjectId, fieldPath), the active
// row with the greatest effectiveTick not after the given tick.
// Tie-break on the greatest updatedAt. The result is the latest value
// per field as of tick, in deterministic field order.
func Snapshot(rows []*model.StateChange, tick float64) []*model.StateChange {
	winners := make(map[groupKey]*model.StateChange)
	for _, row := range rows {
		if row.Status != model.ChangeStatusActive || row.EffectiveTick > tick {
			continue
		}
		key := groupKey{row.SubjectType, row.SubjectID, row.FieldPath}
		current, ok := winners[key]
		if !ok {
			winners[key] = row
			continue
		}
		if row.EffectiveTick > current.EffectiveTick ||
			(row.EffectiveTick == current.EffectiveTick &&
				parseTime(row.UpdatedAt).After(parseTime(current.UpdatedAt))) {
			winners[key] = row
		}
	}

	out := make([]*model.StateChange, 0, len(winners))
	for _, row := range winners {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SubjectType != b.SubjectType {
			return a.SubjectType < b.SubjectType
		}
		if a.SubjectID != b.SubjectID {
			return a.SubjectID < b.SubjectID
		}
		return a.FieldPath < b.FieldPath
	})
	return out
}

// Project materializes one nested state object per subject from the
// snapshot winners. A winning removal contributes its row but no
// assignment: a field whose latest change is a removal never appears in
// the projected state at all.
func Project(rows []*model.StateChange, tick float64) []SubjectProjection {
	winners := Snapshot(rows, tick)

	type subjectKey struct{ subjectType, subjectID string }
	index := make(map[subjectKey]int)
	var projections []SubjectProjection

	for _, row := range winners {
		key := subjectKey{row.SubjectType, row.SubjectID}
		i, ok := index[key]
		if !ok {
			i = len(projections)
			index[key] = i
			projections = append(projections, SubjectProjection{
				SubjectType: row.SubjectType,
				SubjectID:   row.SubjectID,
				State:       make(map[string]interface{}),
			})
		}

		value := common.ParseValue(row.NewValue)
		projections[i].Fields = append(projections[i].Fields, FieldRow{
			StateChangeID: row.ID,
			FieldPath:     row.FieldPath,
			ChangeType:    row.ChangeType,
			Value:         value,
			RawValue:      row.NewValue,
			EffectiveTick: row.EffectiveTick,
			MarkerID:      row.MarkerID,
			EventID:       row.EventID,
			UpdatedAt:     row.UpdatedAt,
		})
		if !row.IsRemoval() {
			fieldpath.Set(projections[i].State, row.FieldPath, value)
		}
	}

	return projections
}

// copyState deep-copies a nested state object so later replay steps
// cannot mutate an earlier step's stateAfter.
func copyState(state map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(state))
	for k, v := range state {
		if nested, ok := v.(map[string]interface{}); ok {
			out[k] = copyState(nested)
		} else {
			out[k] = v
		}
	}
	return out
}

// Replay walks rows chronologically (effectiveTick ascending, then
// createdAt descending) into one evolving state object, capturing the
// state after every step. Status does not gate replay: the caller's
// fetch filter decides which rows participate, and every fetched row
// applies. Deterministic for a given row sequence.
func Replay(rows []*model.StateChange) ([]HistoryStep, map[string]interface{}) {
	ordered := make([]*model.StateChange, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].EffectiveTick != ordered[j].EffectiveTick {
			return ordered[i].EffectiveTick < ordered[j].EffectiveTick
		}
		return parseTime(ordered[i].CreatedAt).After(parseTime(ordered[j].CreatedAt))
	})

	state := make(map[string]interface{})
	steps := make([]HistoryStep, 0, len(ordered))
	for _, row := range ordered {
		newValue := common.ParseValue(row.NewValue)
		if row.IsRemoval() {
			fieldpath.Remove(state, row.FieldPath)
		} else {
			fieldpath.Set(state, row.FieldPath, newValue)
		}
		steps = append(steps, HistoryStep{
			StateChangeID: row.ID,
			EffectiveTick: row.EffectiveTick,
			FieldPath:     row.FieldPath,
			ChangeType:    row.ChangeType,
			OldValue:      common.ParseValue(row.OldValue),
			NewValue:      newValue,
			MarkerID:      row.MarkerID,
			EventID:       row.EventID,
			UpdatedAt:     row.UpdatedAt,
			StateAfter:    copyState(state),
		})
	}
	return steps, state
}

// flatten walks a nested state object into dotted leaf paths.
func flatten(prefix string, state map[string]interface{}, out map[string]interface{}) {
	for k, v := range state {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok && len(nested) > 0 {
			flatten(path, nested, out)
		} else {
			out[path] = v
		}
	}
}

// Diff compares the projected states of one subject at two ticks,
// field path by field path. No path appears in more than one bucket.
func Diff(rows []*model.StateChange, fromTick, toTick float64) DiffResult {
	stateAt := func(tick float64) map[string]interface{} {
		for _, p := range Project(rows, tick) {
			return p.State
		}
		return map[string]interface{}{}
	}

	fromFlat := make(map[string]interface{})
	toFlat := make(map[string]interface{})
	flatten("", stateAt(fromTick), fromFlat)
	flatten("", stateAt(toTick), toFlat)

	result := DiffResult{
		FromTick: fromTick,
		ToTick:   toTick,
		Added:    []DiffEntry{},
		Removed:  []DiffEntry{},
		Updated:  []DiffEntry{},
	}

	paths := make(map[string]bool)
	for p := range fromFlat {
		paths[p] = true
	}
	for p := range toFlat {
		paths[p] = true
	}
	ordered := make([]string, 0, len(paths))
	for p := range paths {
		ordered = append(ordered, p)
	}
	sort.Strings(ordered)

	for _, path := range ordered {
		fromValue, inFrom := fromFlat[path]
		toValue, inTo := toFlat[path]
		switch {
		case inTo && !inFrom:
			result.Added = append(result.Added, DiffEntry{FieldPath: path, ToValue: toValue})
		case inFrom && !inTo:
			result.Removed = append(result.Removed, DiffEntry{FieldPath: path, FromValue: fromValue})
		case common.EncodeValue(fromValue) != common.EncodeValue(toValue):
			result.Updated = append(result.Updated, DiffEntry{FieldPath: path, FromValue: fromValue, ToValue: toValue})
		}
	}

	return result
}
