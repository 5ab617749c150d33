package graph

import (
	"context"
)

// CompanyWork is one backfill work item: a company whose stored signals
// say insider data would be valuable, ranked by signal tier.
type CompanyWork struct {
	CIK      string
	Name     string
	Priority int // 1 high, 2 medium, 3 low
}

const cypherMissingInsiderData = `
MATCH (c:Company)-[:FILED_EVENT]->(e:Event)
WHERE e.is_ma_signal = true
AND NOT EXISTS {
    MATCH (c)-[:INSIDER_TRADE_OF]->(:InsiderTransaction)
}
WITH c,
     collect(DISTINCT e.signal_level) AS levels,
     count(DISTINCT e) AS event_count
RETURN c.cik AS cik, c.name AS name,
       CASE
           WHEN 'high' IN levels THEN 1
           WHEN 'medium' IN levels THEN 2
           ELSE 3
       END AS priority
ORDER BY priority, event_count DESC`

const cypherStats = `
CALL {
    MATCH (c:Company) WHERE c.cik IS NOT NULL RETURN 'companies' AS label, count(c) AS cnt
    UNION ALL
    MATCH (e:Event) RETURN 'events' AS label, count(e) AS cnt
    UNION ALL
    MATCH (p:Person) RETURN 'persons' AS label, count(p) AS cnt
    UNION ALL
    MATCH (t:InsiderTransaction) RETURN 'insider_transactions' AS label, count(t) AS cnt
    UNION ALL
    MATCH (j:Jurisdiction) RETURN 'jurisdictions' AS label, count(j) AS cnt
}
RETURN label, cnt`

// Queries bundles the read-side questions other components ask of the
// graph: backfill work discovery and overview statistics.
type Queries struct {
	store Store
}

func NewQueries(store Store) *Queries {
	return &Queries{store: store}
}

// CompaniesMissingInsiderData lists companies with M&A signal events but
// no stored insider transactions, highest signal tier first.
func (q *Queries) CompaniesMissingInsiderData(ctx context.Context) ([]CompanyWork, error) {
	rows, err := q.store.Read(ctx, cypherMissingInsiderData, nil)
	if err != nil {
		return nil, err
	}
	work := make([]CompanyWork, 0, len(rows))
	for _, row := range rows {
		work = append(work, CompanyWork{
			CIK:      stringProp(row, "cik"),
			Name:     stringProp(row, "name"),
			Priority: intProp(row, "priority"),
		})
	}
	return work, nil
}

// Stats returns node counts by label for status reporting.
func (q *Queries) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := q.store.Read(ctx, cypherStats, nil)
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int, len(rows))
	for _, row := range rows {
		stats[stringProp(row, "label")] = intProp(row, "cnt")
	}
	return stats, nil
}

func intProp(row Row, key string) int {
	switch v := row[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
