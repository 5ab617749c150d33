package graph

import (
	"context"
	"fmt"

	"github.com/corpintel/edgargraph/internal/resolve"
)

const candidatePoolLimit = 200

// Directory adapts the graph store to the resolver's lookup surface.
// Normalized names written by the loader and queried here both come from
// the resolve package, so the two sides agree on canonical form.
type Directory struct {
	store Store
}

func NewDirectory(store Store) *Directory {
	return &Directory{store: store}
}

const cypherFindExact = `
MATCH (e:%s {normalized_name: $norm})
RETURN e.id AS id, e.name AS name, e.normalized_name AS normalized_name, e.cik AS cik
LIMIT 1`

// Neighbors of the subject company are the likeliest homes for a party
// name mentioned in its filings.
const cypherHintedCandidates = `
MATCH (subject:Company {cik: $cik})--(e:%s)
RETURN DISTINCT e.id AS id, e.name AS name, e.normalized_name AS normalized_name, e.cik AS cik
LIMIT $limit`

const cypherAllCandidates = `
MATCH (e:%s)
RETURN e.id AS id, e.name AS name, e.normalized_name AS normalized_name, e.cik AS cik
LIMIT $limit`

func (d *Directory) FindExact(ctx context.Context, kind resolve.EntityKind, normalized string) (*resolve.Entity, error) {
	rows, err := d.store.Read(ctx, labelQuery(cypherFindExact, kind), map[string]any{"norm": normalized})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	entity := entityFromRow(rows[0], kind)
	return &entity, nil
}

func (d *Directory) Candidates(ctx context.Context, kind resolve.EntityKind, hints resolve.Hints) ([]resolve.Entity, error) {
	cypher := labelQuery(cypherAllCandidates, kind)
	params := map[string]any{"limit": candidatePoolLimit}
	if hints.SubjectCIK != "" {
		cypher = labelQuery(cypherHintedCandidates, kind)
		params["cik"] = hints.SubjectCIK
	}

	rows, err := d.store.Read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	entities := make([]resolve.Entity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, entityFromRow(row, kind))
	}
	return entities, nil
}

func labelQuery(template string, kind resolve.EntityKind) string {
	return fmt.Sprintf(template, partyLabel(kind))
}

func entityFromRow(row Row, kind resolve.EntityKind) resolve.Entity {
	return resolve.Entity{
		ID:             stringProp(row, "id"),
		Kind:           kind,
		Name:           stringProp(row, "name"),
		NormalizedName: stringProp(row, "normalized_name"),
		CIK:            stringProp(row, "cik"),
	}
}

func stringProp(row Row, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}
