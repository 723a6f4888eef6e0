package common

import (
	"encoding/json"
	"strings"
)

// ParseValue decodes a serialized ledger value. Values are stored as
// strings and are usually JSON ("\"alive\"", "42", "{\"hp\":10}"), but
// rows written by hand may hold bare text, so anything that fails to
// unmarshal is returned as the raw string.
func ParseValue(raw string) interface{} {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	var v interface{}
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return raw
	}
	return v
}

// EncodeValue is the inverse of ParseValue for comparison purposes:
// a canonical serialized form of an in-memory value.
func EncodeValue(v interface{}) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Property accessors for records coming back from the graph store.
// Memgraph returns int64 for integers and float64 for reals; ticks and
// order fields normalize to float64.

func PropString(props map[string]interface{}, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func PropStringPtr(props map[string]interface{}, key string) *string {
	if v, ok := props[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return &s
		}
	}
	return nil
}

func PropFloat(props map[string]interface{}, key string) float64 {
	switch n := props[key].(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func PropFloatPtr(props map[string]interface{}, key string) *float64 {
	if v, ok := props[key]; ok && v != nil {
		f := PropFloat(props, key)
		return &f
	}
	return nil
}

func PropStrings(props map[string]interface{}, key string) []string {
	v, ok := props[key]
	if !ok || v == nil {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
