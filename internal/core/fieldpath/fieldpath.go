// Package fieldpath parses dotted attribute paths ("stats.power",
// "inventory[0].name") and applies them to nested state objects.
// Bracket indices are rewritten to dotted numeric tokens, so the two
// spellings "inventory[0].name" and "inventory.0.name" are equivalent
// and intermediate containers are always plain objects, never arrays.
package fieldpath

import "strings"

var bracketRewriter = strings.NewReplacer("[", ".", "]", "")

// Segments splits a path into ordered tokens. Empty tokens (leading or
// trailing dots, "[]") are dropped; a blank path yields nil.
func Segments(path string) []string {
	normalized := bracketRewriter.Replace(strings.TrimSpace(path))
	if normalized == "" {
		return nil
	}

	parts := strings.Split(normalized, ".")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			segments = append(segments, p)
		}
	}
	if len(segments) == 0 {
		return nil
	}
	return segments
}

// Set assigns value at path inside root, creating intermediate objects
// as needed. An empty path is a no-op.
func Set(root map[string]interface{}, path string, value interface{}) {
	segments := Segments(path)
	if len(segments) == 0 {
		return
	}

	current := root
	for _, seg := range segments[:len(segments)-1] {
		next, ok := current[seg].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			current[seg] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

// Remove deletes the field at path. Missing intermediates, or an
// intermediate that is not an object, make this a silent no-op:
// removing a field that was never set must not fail.
func Remove(root map[string]interface{}, path string) {
	segments := Segments(path)
	if len(segments) == 0 {
		return
	}

	current := root
	for _, seg := range segments[:len(segments)-1] {
		next, ok := current[seg].(map[string]interface{})
		if !ok {
			return
		}
		current = next
	}
	delete(current, segments[len(segments)-1])
}
