// Package subject maps state-change subject types to the node labels
// owned by the domain CRUD modules, and performs the existence checks
// the ledger runs before accepting a change. New subject types are
// added by extending the table only.
package subject

import (
	"context"
	"fmt"
	"sort"

	"github.com/agenthands/tapestry/internal/core/common"
	"github.com/agenthands/tapestry/internal/driver"
)

var labels = map[string]string{
	"character":    "Character",
	"faction":      "Faction",
	"location":     "Location",
	"event":        "Event",
	"chapter":      "Chapter",
	"scene":        "Scene",
	"item":         "Item",
	"artifact":     "Artifact",
	"creature":     "Creature",
	"species":      "Species",
	"culture":      "Culture",
	"language":     "Language",
	"religion":     "Religion",
	"organization": "Organization",
	"deity":        "Deity",
	"plotline":     "Plotline",
	"lore":         "Lore",
	"technology":   "Technology",
	"vehicle":      "Vehicle",
	"calendar":     "Calendar",
	"map":          "Map",
	"note":         "Note",
	"prophecy":     "Prophecy",
}

// Label resolves a subject type to its node label.
func Label(subjectType string) (string, bool) {
	label, ok := labels[subjectType]
	return label, ok
}

// Types lists the known subject types, sorted.
func Types() []string {
	types := make([]string, 0, len(labels))
	for t := range labels {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Gateway performs entity-existence checks against the graph store.
type Gateway struct {
	Driver driver.GraphDriver
}

func NewGateway(d driver.GraphDriver) *Gateway {
	return &Gateway{Driver: d}
}

// NodeExists checks for a node of the given label and id. The label is
// always taken from a static table, never from caller input.
func (g *Gateway) NodeExists(ctx context.Context, database, label, id string) (bool, error) {
	query := fmt.Sprintf(`MATCH (n:%s {id: $id}) RETURN count(n) AS total`, label)
	result, err := g.Driver.ExecuteQuery(ctx, database, query, map[string]interface{}{"id": id})
	if err != nil {
		return false, err
	}
	if len(result.Records) == 0 {
		return false, nil
	}
	total, _ := result.Records[0].Get("total")
	count, ok := total.(int64)
	return ok && count > 0, nil
}

// CheckSubject validates a (subjectType, subjectId) pair: the type must
// be in the table and the node must exist under the mapped label.
func (g *Gateway) CheckSubject(ctx context.Context, database, subjectType, subjectID string) (string, error) {
	label, ok := Label(subjectType)
	if !ok {
		return "", common.Invalidf("unknown subjectType '%s'", subjectType)
	}
	exists, err := g.NodeExists(ctx, database, label, subjectID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", common.NotFoundf("%s '%s' not found", subjectType, subjectID)
	}
	return label, nil
}

// CheckEvent validates a narrative event reference.
func (g *Gateway) CheckEvent(ctx context.Context, database, eventID string) error {
	exists, err := g.NodeExists(ctx, database, "Event", eventID)
	if err != nil {
		return err
	}
	if !exists {
		return common.NotFoundf("event '%s' not found", eventID)
	}
	return nil
}
