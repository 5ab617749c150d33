package graph

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpintel/edgargraph/internal/models"
	"github.com/corpintel/edgargraph/internal/resolve"
)

// fakeStore records every statement and answers reads from canned rows.
type fakeStore struct {
	batches [][]Query
	reads   []Query
	rows    []Row
	summary WriteSummary
}

func (s *fakeStore) Read(_ context.Context, cypher string, params map[string]any) ([]Row, error) {
	s.reads = append(s.reads, Query{Cypher: cypher, Params: params})
	return s.rows, nil
}

func (s *fakeStore) Write(_ context.Context, cypher string, params map[string]any) (WriteSummary, error) {
	s.batches = append(s.batches, []Query{{Cypher: cypher, Params: params}})
	return s.summary, nil
}

func (s *fakeStore) WriteBatch(_ context.Context, queries []Query) (WriteSummary, error) {
	s.batches = append(s.batches, queries)
	return s.summary, nil
}

func (s *fakeStore) Close(context.Context) error { return nil }

var loaderFiling = models.FilingReference{
	AccessionNumber: "0000320193-24-000001",
	CIK:             "0000320193",
	FormType:        "DEF 14A",
	FilingDate:      "2024-01-15",
	DocumentURL:     "https://www.sec.gov/Archives/edgar/data/320193/proxy.htm",
}

func ownershipResolved() ResolvedCandidate {
	return ResolvedCandidate{
		Candidate: models.Candidate{
			Kind:        models.KindOwnership,
			Method:      models.MethodRuleBased,
			Confidence:  0.95,
			SubjectCIK:  loaderFiling.CIK,
			SubjectName: "Apple Inc.",
			ExtractedAt: time.Now(),
			Citation: models.SourceCitation{
				Filing:  loaderFiling,
				Section: "Security Ownership",
				RawText: "The Vanguard Group, Inc. 1,234,567 8.1%",
			},
			Ownership: &models.OwnershipFact{
				OwnerName:     "The Vanguard Group, Inc.",
				OwnerIsEntity: true,
				SharesOwned:   1234567,
				Percentage:    8.1,
				IsBeneficial:  true,
				IsDirect:      true,
			},
		},
		Party: resolve.ResolvedEntity{
			ID:             "owner-1",
			Kind:           resolve.EntityCompany,
			Name:           "The Vanguard Group, Inc.",
			NormalizedName: "vanguard group",
		},
	}
}

func transactionResolved() ResolvedCandidate {
	return ResolvedCandidate{
		Candidate: models.Candidate{
			Kind:       models.KindTransaction,
			Method:     models.MethodRuleBased,
			Confidence: 0.95,
			SubjectCIK: loaderFiling.CIK,
			Citation:   models.SourceCitation{Filing: loaderFiling},
			Transaction: &models.TransactionFact{
				InsiderName:   "COOK TIMOTHY D",
				InsiderTitle:  "Chief Executive Officer",
				SecurityTitle: "Common Stock",
				Date:          "2024-01-10",
				Code:          "S",
				Shares:        50000,
				PricePerShare: 170.25,
				TotalValue:    8512500,
			},
		},
		Party: resolve.ResolvedEntity{
			ID:             "person-1",
			Kind:           resolve.EntityPerson,
			Name:           "COOK TIMOTHY D",
			NormalizedName: "cook timothy d",
		},
	}
}

func TestLoadBatchBuildsSingleTransaction(t *testing.T) {
	store := &fakeStore{summary: WriteSummary{NodesCreated: 4, RelationshipsCreated: 5, PropertiesSet: 20}}
	loader := NewLoader(store)

	result, err := loader.Load(context.Background(), loaderFiling, "Apple Inc.",
		[]ResolvedCandidate{ownershipResolved(), transactionResolved()})
	require.NoError(t, err)

	// All statements go through one WriteBatch call.
	require.Len(t, store.batches, 1)
	batch := store.batches[0]

	// Subject company, filing, then per-candidate party + relationship.
	assert.Contains(t, batch[0].Cypher, "MERGE (c:Company {cik: $cik})")
	assert.Equal(t, "0000320193", batch[0].Params["cik"])
	assert.Equal(t, "apple", batch[0].Params["normalized_name"])

	assert.Contains(t, batch[1].Cypher, "MERGE (f:Filing {accession_number: $accession_number})")
	assert.Contains(t, batch[1].Cypher, "MERGE (c)-[:FILED]->(f)")

	var joined strings.Builder
	for _, q := range batch {
		joined.WriteString(q.Cypher)
		joined.WriteString("\n")
	}
	all := joined.String()
	assert.Contains(t, all, "MERGE (owner)-[r:OWNS]->(c)")
	assert.Contains(t, all, "MERGE (owner)-[:MENTIONED_IN]->(f)")
	assert.Contains(t, all, "MERGE (t:InsiderTransaction {id: $txn_id})")
	assert.Contains(t, all, "MERGE (c)-[:INSIDER_TRADE_OF]->(t)")
	assert.Contains(t, all, "MERGE (p)-[:TRADED_BY]->(t)")

	assert.Equal(t, 4, result.EntitiesCreated)
	assert.Equal(t, 5, result.RelationshipsCreated)
}

func TestLoadOwnershipParams(t *testing.T) {
	store := &fakeStore{}
	loader := NewLoader(store)

	_, err := loader.Load(context.Background(), loaderFiling, "Apple Inc.",
		[]ResolvedCandidate{ownershipResolved()})
	require.NoError(t, err)

	batch := store.batches[0]
	var ownsQuery *Query
	for i := range batch {
		if strings.Contains(batch[i].Cypher, "[r:OWNS]->(c)") {
			ownsQuery = &batch[i]
		}
	}
	require.NotNil(t, ownsQuery)

	// Owner is a company, so the MATCH uses the Company label.
	assert.Contains(t, ownsQuery.Cypher, "MATCH (owner:Company {normalized_name: $owner_norm})")
	assert.Equal(t, "vanguard group", ownsQuery.Params["owner_norm"])
	assert.Equal(t, 8.1, ownsQuery.Params["percentage"])
	assert.Equal(t, int64(1234567), ownsQuery.Params["shares"])
	assert.Equal(t, 0.95, ownsQuery.Params["confidence"])
}

func TestLoadTransactionKeyedByReportedFacts(t *testing.T) {
	store := &fakeStore{}
	loader := NewLoader(store)

	_, err := loader.Load(context.Background(), loaderFiling, "Apple Inc.",
		[]ResolvedCandidate{transactionResolved()})
	require.NoError(t, err)

	batch := store.batches[0]
	var txnQuery *Query
	for i := range batch {
		if strings.Contains(batch[i].Cypher, "InsiderTransaction") {
			txnQuery = &batch[i]
		}
	}
	require.NotNil(t, txnQuery)

	// Keyed by subject + instrument + date + code + amount, not by filing
	// position, so an amended filing cannot double-count the trade.
	assert.Equal(t, "0000320193|Common Stock|2024-01-10|S|50000.0000", txnQuery.Params["txn_id"])
	assert.Equal(t, "cook timothy d", txnQuery.Params["person_norm"])
}

func TestLoadIdenticalBatchReusesSameKeys(t *testing.T) {
	store := &fakeStore{}
	loader := NewLoader(store)

	_, err := loader.Load(context.Background(), loaderFiling, "Apple Inc.",
		[]ResolvedCandidate{ownershipResolved(), transactionResolved()})
	require.NoError(t, err)
	_, err = loader.Load(context.Background(), loaderFiling, "Apple Inc.",
		[]ResolvedCandidate{ownershipResolved(), transactionResolved()})
	require.NoError(t, err)

	require.Len(t, store.batches, 2)
	first, second := store.batches[0], store.batches[1]
	require.Equal(t, len(first), len(second))
	for i := range first {
		// Statement text is identical; every upsert is keyed the same way
		// both times, which is what makes the second load a no-op in the
		// store.
		assert.Equal(t, first[i].Cypher, second[i].Cypher)
	}
	assert.Equal(t, first[0].Params["cik"], second[0].Params["cik"])
}

func TestLoadSubsidiaryDefaultsWhollyOwnedPercentage(t *testing.T) {
	store := &fakeStore{}
	loader := NewLoader(store)

	rc := ResolvedCandidate{
		Candidate: models.Candidate{
			Kind:       models.KindSubsidiary,
			Method:     models.MethodRuleBased,
			Confidence: 0.85,
			SubjectCIK: loaderFiling.CIK,
			Citation:   models.SourceCitation{Filing: loaderFiling},
			Subsidiary: &models.SubsidiaryFact{
				Name:          "Braeburn Capital Inc.",
				Jurisdiction:  "Nevada",
				IsWhollyOwned: true,
			},
		},
		Party: resolve.ResolvedEntity{
			ID:             "sub-1",
			Kind:           resolve.EntityCompany,
			Name:           "Braeburn Capital Inc.",
			NormalizedName: "braeburn capital",
		},
	}

	_, err := loader.Load(context.Background(), loaderFiling, "Apple Inc.", []ResolvedCandidate{rc})
	require.NoError(t, err)

	batch := store.batches[0]
	var subQuery, jurNode, jurEdge *Query
	for i := range batch {
		if strings.Contains(batch[i].Cypher, "[r:OWNS]->(sub)") {
			subQuery = &batch[i]
		}
		if strings.Contains(batch[i].Cypher, "MERGE (n:Jurisdiction") {
			jurNode = &batch[i]
		}
		if strings.Contains(batch[i].Cypher, "[r:INCORPORATED_IN]->(to)") {
			jurEdge = &batch[i]
		}
	}
	require.NotNil(t, subQuery)
	require.NotNil(t, jurNode)
	require.NotNil(t, jurEdge)

	assert.Equal(t, float64(100), subQuery.Params["percentage"])

	assert.Contains(t, jurNode.Cypher, "ON CREATE SET n.name =")
	assert.Equal(t, map[string]any{"p0": "NEVADA", "p1": "Nevada"}, jurNode.Params)

	assert.Contains(t, jurEdge.Cypher, "MATCH (from:Company {normalized_name:")
	assert.Contains(t, jurEdge.Cypher, "MATCH (to:Jurisdiction {code:")
	assert.Equal(t, map[string]any{"p0": "braeburn capital", "p1": "NEVADA"}, jurEdge.Params)
}

func TestLoadRejectsInvalidCandidate(t *testing.T) {
	store := &fakeStore{}
	loader := NewLoader(store)

	bad := ResolvedCandidate{Candidate: models.Candidate{Kind: models.KindOwnership, Confidence: 0.9}}
	_, err := loader.Load(context.Background(), loaderFiling, "Apple Inc.", []ResolvedCandidate{bad})
	require.Error(t, err)
	assert.Empty(t, store.batches)
}

func TestLoadEvents(t *testing.T) {
	store := &fakeStore{summary: WriteSummary{NodesCreated: 2, RelationshipsCreated: 1}}
	loader := NewLoader(store)

	events := []EventRecord{
		{ItemNumber: "1.01", ItemName: "Material Agreement", SignalType: "material_agreement", SignalLevel: "medium", IsMASignal: true, RawText: "entered into a merger agreement"},
		{ItemNumber: "9.01", ItemName: "Financial Statements and Exhibits", SignalType: "exhibits"},
	}
	result, err := loader.LoadEvents(context.Background(), loaderFiling, "Apple Inc.", events)
	require.NoError(t, err)

	require.Len(t, store.batches, 1)
	batch := store.batches[0]
	require.Len(t, batch, 3) // company + 2 events

	assert.Contains(t, batch[1].Cypher, "MERGE (e:Event {accession_number: $accession_number, item_number: $item_number})")
	assert.Contains(t, batch[1].Cypher, "MERGE (c)-[:FILED_EVENT]->(e)")
	assert.Equal(t, "1.01", batch[1].Params["item_number"])
	assert.Equal(t, "medium", batch[1].Params["signal_level"])
	assert.Equal(t, true, batch[1].Params["is_ma_signal"])

	assert.Equal(t, 2, result.EntitiesCreated)
}
