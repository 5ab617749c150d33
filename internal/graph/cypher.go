package graph

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// isValidIdentifier reports whether a string is safe to interpolate as a
// Cypher label or property key. Values always travel as parameters;
// identifiers are the only strings spliced into query text, so they are
// restricted to alphanumerics and underscores.
func isValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

// CypherBuilder assembles parameterized MERGE statements. Every value
// becomes a $pN parameter; labels and keys are validated identifiers.
type CypherBuilder struct {
	params  map[string]any
	counter int
}

func NewCypherBuilder() *CypherBuilder {
	return &CypherBuilder{params: make(map[string]any)}
}

// AddParam registers a value and returns its placeholder.
func (b *CypherBuilder) AddParam(value any) string {
	name := fmt.Sprintf("p%d", b.counter)
	b.counter++
	b.params[name] = value
	return "$" + name
}

// Params returns the accumulated parameter map.
func (b *CypherBuilder) Params() map[string]any {
	return b.params
}

// BuildMergeNode produces an idempotent node upsert keyed on uniqueKey.
// onCreate properties apply only when the node is minted (identity fields
// like id and created_at); always properties apply on every load.
// Property keys are emitted in sorted order so the generated text is
// stable.
func (b *CypherBuilder) BuildMergeNode(label, uniqueKey string, uniqueValue any, onCreate, always map[string]any) (string, error) {
	if !isValidIdentifier(label) {
		return "", fmt.Errorf("invalid node label %q", label)
	}
	if !isValidIdentifier(uniqueKey) {
		return "", fmt.Errorf("invalid unique key %q", uniqueKey)
	}

	uniqueParam := b.AddParam(uniqueValue)
	query := fmt.Sprintf("MERGE (n:%s {%s: %s})", label, uniqueKey, uniqueParam)

	createClauses, err := b.setClauses(onCreate)
	if err != nil {
		return "", err
	}
	if len(createClauses) > 0 {
		query += " ON CREATE SET " + strings.Join(createClauses, ", ")
	}

	alwaysClauses, err := b.setClauses(always)
	if err != nil {
		return "", err
	}
	if len(alwaysClauses) > 0 {
		query += " SET " + strings.Join(alwaysClauses, ", ")
	}
	return query + " RETURN n", nil
}

func (b *CypherBuilder) setClauses(properties map[string]any) ([]string, error) {
	clauses := make([]string, 0, len(properties))
	for _, key := range sortedKeys(properties) {
		if !isValidIdentifier(key) {
			return nil, fmt.Errorf("invalid property key %q", key)
		}
		clauses = append(clauses, fmt.Sprintf("n.%s = %s", key, b.AddParam(properties[key])))
	}
	return clauses, nil
}

// BuildMergeEdge produces an idempotent edge upsert between two existing
// nodes, keyed by (from, to, edge label).
func (b *CypherBuilder) BuildMergeEdge(
	fromLabel, fromKey string, fromValue any,
	toLabel, toKey string, toValue any,
	edgeLabel string,
	properties map[string]any,
) (string, error) {
	for _, id := range []string{fromLabel, fromKey, toLabel, toKey, edgeLabel} {
		if !isValidIdentifier(id) {
			return "", fmt.Errorf("invalid identifier %q", id)
		}
	}

	fromParam := b.AddParam(fromValue)
	toParam := b.AddParam(toValue)

	setClauses := make([]string, 0, len(properties))
	for _, key := range sortedKeys(properties) {
		if !isValidIdentifier(key) {
			return "", fmt.Errorf("invalid edge property key %q", key)
		}
		setClauses = append(setClauses, fmt.Sprintf("r.%s = %s", key, b.AddParam(properties[key])))
	}

	query := fmt.Sprintf(
		"MATCH (from:%s {%s: %s}) MATCH (to:%s {%s: %s}) MERGE (from)-[r:%s]->(to)",
		fromLabel, fromKey, fromParam,
		toLabel, toKey, toParam,
		edgeLabel,
	)
	if len(setClauses) > 0 {
		query += " SET " + strings.Join(setClauses, ", ")
	}
	return query + " RETURN from, to", nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
