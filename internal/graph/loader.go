package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/corpintel/edgargraph/internal/errors"
	"github.com/corpintel/edgargraph/internal/logging"
	"github.com/corpintel/edgargraph/internal/models"
	"github.com/corpintel/edgargraph/internal/resolve"
)

const maxRawTextProp = 1000

// ResolvedCandidate pairs an accepted candidate with the canonical entity
// its party name resolved to.
type ResolvedCandidate struct {
	Candidate models.Candidate
	Party     resolve.ResolvedEntity
}

// Loader upserts accepted candidates into the graph. Every statement is a
// MERGE keyed on the fact's logical identity, so loading the same batch
// twice creates nothing on the second pass. One Load call runs inside a
// single write transaction.
type Loader struct {
	store Store
	log   *slog.Logger
}

func NewLoader(store Store) *Loader {
	return &Loader{store: store, log: logging.Component("graph.loader")}
}

const cypherEnsureCompanyByCIK = `
MERGE (c:Company {cik: $cik})
ON CREATE SET
    c.id = $id,
    c.name = $name,
    c.normalized_name = $normalized_name,
    c.created_at = datetime(),
    c.source = 'sec_edgar'
ON MATCH SET
    c.name = COALESCE($name, c.name),
    c.normalized_name = COALESCE($normalized_name, c.normalized_name),
    c.updated_at = datetime()
RETURN c.id AS id`

const cypherEnsureFiling = `
MERGE (f:Filing {accession_number: $accession_number})
ON CREATE SET
    f.id = $id,
    f.form_type = $form_type,
    f.filing_date = $filing_date,
    f.filing_url = $filing_url,
    f.created_at = datetime()
ON MATCH SET
    f.filing_date = COALESCE($filing_date, f.filing_date),
    f.filing_url = COALESCE($filing_url, f.filing_url),
    f.updated_at = datetime()
WITH f
MATCH (c:Company {cik: $cik})
MERGE (c)-[:FILED]->(f)
RETURN f.id AS id`

const cypherOwnership = `
MATCH (owner:%s {normalized_name: $owner_norm})
MATCH (c:Company {cik: $cik})
MATCH (f:Filing {accession_number: $accession_number})
MERGE (owner)-[r:OWNS]->(c)
SET r.percentage = $percentage,
    r.shares = $shares,
    r.is_beneficial = $is_beneficial,
    r.is_direct = $is_direct,
    r.extraction_method = $extraction_method,
    r.confidence = $confidence,
    r.source_filing = $accession_number,
    r.source_section = $source_section,
    r.raw_text = $raw_text,
    r.updated_at = datetime()
MERGE (owner)-[:MENTIONED_IN]->(f)`

const cypherOfficer = `
MATCH (p:Person {normalized_name: $person_norm})
MATCH (c:Company {cik: $cik})
MATCH (f:Filing {accession_number: $accession_number})
MERGE (p)-[r:OFFICER_OF]->(c)
SET r.title = $title,
    r.is_executive = $is_executive,
    r.extraction_method = $extraction_method,
    r.confidence = $confidence,
    r.source_filing = $accession_number,
    r.source_section = $source_section,
    r.raw_text = $raw_text,
    r.updated_at = datetime()
MERGE (p)-[:MENTIONED_IN]->(f)`

const cypherDirector = `
MATCH (p:Person {normalized_name: $person_norm})
MATCH (c:Company {cik: $cik})
MATCH (f:Filing {accession_number: $accession_number})
MERGE (p)-[r:DIRECTOR_OF]->(c)
SET r.since = $since,
    r.extraction_method = $extraction_method,
    r.confidence = $confidence,
    r.source_filing = $accession_number,
    r.source_section = $source_section,
    r.raw_text = $raw_text,
    r.updated_at = datetime()
MERGE (p)-[:MENTIONED_IN]->(f)`

const cypherSubsidiary = `
MATCH (parent:Company {cik: $cik})
MATCH (sub:Company {normalized_name: $sub_norm})
MATCH (f:Filing {accession_number: $accession_number})
MERGE (parent)-[r:OWNS]->(sub)
SET r.percentage = $percentage,
    r.is_wholly_owned = $is_wholly_owned,
    r.extraction_method = $extraction_method,
    r.confidence = $confidence,
    r.source_filing = $accession_number,
    r.raw_text = $raw_text,
    r.updated_at = datetime()
MERGE (sub)-[:MENTIONED_IN]->(f)`

const cypherTransaction = `
MATCH (c:Company {cik: $cik})
MERGE (t:InsiderTransaction {id: $txn_id})
SET t.accession_number = $accession_number,
    t.filing_date = $filing_date,
    t.transaction_date = $transaction_date,
    t.transaction_code = $transaction_code,
    t.security_title = $security_title,
    t.shares = $shares,
    t.price_per_share = $price_per_share,
    t.total_value = $total_value,
    t.shares_after_transaction = $shares_after,
    t.ownership_type = $ownership_type,
    t.is_derivative = $is_derivative,
    t.insider_name = $insider_name,
    t.insider_title = $insider_title
MERGE (c)-[:INSIDER_TRADE_OF]->(t)
WITH t
MATCH (p:Person {normalized_name: $person_norm})
MERGE (p)-[:TRADED_BY]->(t)`

const cypherEvent = `
MATCH (c:Company {cik: $cik})
MERGE (e:Event {accession_number: $accession_number, item_number: $item_number})
SET e.company_name = $company_name,
    e.filing_date = $filing_date,
    e.item_name = $item_name,
    e.signal_type = $signal_type,
    e.signal_level = $signal_level,
    e.is_ma_signal = $is_ma_signal,
    e.raw_text = $raw_text
MERGE (c)-[:FILED_EVENT]->(e)`

// Load upserts one filing's accepted candidates. The subject company and
// the filing node are ensured first, then each candidate becomes one
// relationship upsert; the whole batch commits in a single transaction.
func (l *Loader) Load(ctx context.Context, ref models.FilingReference, subjectName string, batch []ResolvedCandidate) (models.LoadResult, error) {
	queries := []Query{
		{
			Cypher: cypherEnsureCompanyByCIK,
			Params: map[string]any{
				"cik":             ref.CIK,
				"id":              uuid.NewString(),
				"name":            subjectName,
				"normalized_name": resolve.NormalizeCompanyName(subjectName),
			},
		},
		{
			Cypher: cypherEnsureFiling,
			Params: map[string]any{
				"accession_number": ref.AccessionNumber,
				"id":               uuid.NewString(),
				"form_type":        ref.FormType,
				"filing_date":      ref.FilingDate,
				"filing_url":       ref.DocumentURL,
				"cik":              ref.CIK,
			},
		},
	}
	relAttempts := 1 // the FILED edge

	for _, rc := range batch {
		if err := rc.Candidate.Validate(); err != nil {
			return models.LoadResult{}, errors.Wrap(err, errors.CategoryInternal, "invalid candidate in load batch")
		}
		candidateQueries, rels, err := l.candidateQueries(ref, rc)
		if err != nil {
			return models.LoadResult{}, err
		}
		queries = append(queries, candidateQueries...)
		relAttempts += rels
	}

	summary, err := l.store.WriteBatch(ctx, queries)
	if err != nil {
		return models.LoadResult{}, err
	}

	result := models.LoadResult{
		EntitiesCreated:      summary.NodesCreated,
		RelationshipsCreated: summary.RelationshipsCreated,
		PropertiesSet:        summary.PropertiesSet,
	}
	if updated := relAttempts - summary.RelationshipsCreated; updated > 0 {
		result.RelationshipsUpdated = updated
	}
	l.log.Info("loaded batch",
		"accession", ref.AccessionNumber,
		"candidates", len(batch),
		"entities_created", result.EntitiesCreated,
		"relationships_created", result.RelationshipsCreated)
	return result, nil
}

// candidateQueries emits the party-node upsert followed by the
// relationship upsert for one candidate. The second return value counts
// relationship MERGE attempts so the loader can report updates.
func (l *Loader) candidateQueries(ref models.FilingReference, rc ResolvedCandidate) ([]Query, int, error) {
	c := rc.Candidate
	citation := c.Citation

	partyQuery, err := l.ensurePartyQuery(rc.Party)
	if err != nil {
		return nil, 0, err
	}
	queries := []Query{partyQuery}

	common := map[string]any{
		"cik":               c.SubjectCIK,
		"accession_number":  ref.AccessionNumber,
		"extraction_method": string(c.Method),
		"confidence":        c.Confidence,
		"source_section":    citation.Section,
		"raw_text":          truncateProp(citation.RawText),
	}

	switch c.Kind {
	case models.KindOwnership:
		params := withCommon(common, map[string]any{
			"owner_norm":    rc.Party.NormalizedName,
			"percentage":    c.Ownership.Percentage,
			"shares":        c.Ownership.SharesOwned,
			"is_beneficial": c.Ownership.IsBeneficial,
			"is_direct":     c.Ownership.IsDirect,
		})
		queries = append(queries, Query{
			Cypher: fmt.Sprintf(cypherOwnership, partyLabel(rc.Party.Kind)),
			Params: params,
		})
		return queries, 2, nil // OWNS + MENTIONED_IN

	case models.KindOfficer:
		params := withCommon(common, map[string]any{
			"person_norm":  rc.Party.NormalizedName,
			"title":        c.Officer.Title,
			"is_executive": c.Officer.IsExecutive,
		})
		queries = append(queries, Query{Cypher: cypherOfficer, Params: params})
		return queries, 2, nil

	case models.KindDirector:
		params := withCommon(common, map[string]any{
			"person_norm": rc.Party.NormalizedName,
			"since":       c.Director.Since,
		})
		queries = append(queries, Query{Cypher: cypherDirector, Params: params})
		return queries, 2, nil

	case models.KindSubsidiary:
		percentage := c.Subsidiary.Percentage
		if percentage == 0 && c.Subsidiary.IsWhollyOwned {
			percentage = 100
		}
		params := withCommon(common, map[string]any{
			"sub_norm":        rc.Party.NormalizedName,
			"percentage":      percentage,
			"is_wholly_owned": c.Subsidiary.IsWhollyOwned,
		})
		delete(params, "source_section")
		queries = append(queries, Query{Cypher: cypherSubsidiary, Params: params})
		rels := 2
		if j := c.Subsidiary.Jurisdiction; j != "" {
			jq, err := jurisdictionQueries(rc.Party.NormalizedName, j)
			if err != nil {
				return nil, 0, err
			}
			queries = append(queries, jq...)
			rels++
		}
		return queries, rels, nil

	case models.KindTransaction:
		t := c.Transaction
		queries = append(queries, Query{
			Cypher: cypherTransaction,
			Params: map[string]any{
				"cik":              c.SubjectCIK,
				"txn_id":           transactionID(c.SubjectCIK, t),
				"accession_number": ref.AccessionNumber,
				"filing_date":      ref.FilingDate,
				"transaction_date": t.Date,
				"transaction_code": t.Code,
				"security_title":   t.SecurityTitle,
				"shares":           t.Shares,
				"price_per_share":  t.PricePerShare,
				"total_value":      t.TotalValue,
				"shares_after":     t.SharesAfter,
				"ownership_type":   t.OwnershipType,
				"is_derivative":    t.IsDerivative,
				"insider_name":     t.InsiderName,
				"insider_title":    t.InsiderTitle,
				"person_norm":      rc.Party.NormalizedName,
			},
		})
		return queries, 2, nil // INSIDER_TRADE_OF + TRADED_BY
	}

	return nil, 0, errors.Internalf("unhandled candidate kind %q", c.Kind)
}

// ensurePartyQuery upserts the canonical node for a resolved party,
// keyed on normalized name. Identity fields are set only on create so a
// rerun never re-mints ids.
func (l *Loader) ensurePartyQuery(party resolve.ResolvedEntity) (Query, error) {
	builder := NewCypherBuilder()
	onCreate := map[string]any{
		"id":     party.ID,
		"name":   party.Name,
		"source": "sec_edgar",
	}
	always := map[string]any{}
	if party.CIK != "" {
		always["cik"] = party.CIK
	}
	cypher, err := builder.BuildMergeNode(partyLabel(party.Kind), "normalized_name", party.NormalizedName, onCreate, always)
	if err != nil {
		return Query{}, errors.Internalf("build party upsert: %v", err)
	}
	return Query{Cypher: cypher, Params: builder.Params()}, nil
}

// jurisdictionQueries upserts the jurisdiction node and links the
// subsidiary company to it.
func jurisdictionQueries(companyNorm, jurisdiction string) ([]Query, error) {
	nodeBuilder := NewCypherBuilder()
	code := jurisdictionCode(jurisdiction)
	nodeCypher, err := nodeBuilder.BuildMergeNode("Jurisdiction", "code", code, map[string]any{"name": jurisdiction}, nil)
	if err != nil {
		return nil, errors.Internalf("build jurisdiction upsert: %v", err)
	}

	edgeBuilder := NewCypherBuilder()
	edgeCypher, err := edgeBuilder.BuildMergeEdge("Company", "normalized_name", companyNorm, "Jurisdiction", "code", code, "INCORPORATED_IN", nil)
	if err != nil {
		return nil, errors.Internalf("build incorporation edge: %v", err)
	}

	return []Query{
		{Cypher: nodeCypher, Params: nodeBuilder.Params()},
		{Cypher: edgeCypher, Params: edgeBuilder.Params()},
	}, nil
}

// LoadEvents upserts the 8-K item events for one filing, keyed on
// (accession number, item number).
func (l *Loader) LoadEvents(ctx context.Context, ref models.FilingReference, companyName string, events []EventRecord) (models.LoadResult, error) {
	queries := []Query{
		{
			Cypher: cypherEnsureCompanyByCIK,
			Params: map[string]any{
				"cik":             ref.CIK,
				"id":              uuid.NewString(),
				"name":            companyName,
				"normalized_name": resolve.NormalizeCompanyName(companyName),
			},
		},
	}
	for _, e := range events {
		queries = append(queries, Query{
			Cypher: cypherEvent,
			Params: map[string]any{
				"cik":              ref.CIK,
				"accession_number": ref.AccessionNumber,
				"item_number":      e.ItemNumber,
				"company_name":     companyName,
				"filing_date":      ref.FilingDate,
				"item_name":        e.ItemName,
				"signal_type":      e.SignalType,
				"signal_level":     e.SignalLevel,
				"is_ma_signal":     e.IsMASignal,
				"raw_text":         truncateProp(e.RawText),
			},
		})
	}

	summary, err := l.store.WriteBatch(ctx, queries)
	if err != nil {
		return models.LoadResult{}, err
	}
	return models.LoadResult{
		EntitiesCreated:      summary.NodesCreated,
		RelationshipsCreated: summary.RelationshipsCreated,
		PropertiesSet:        summary.PropertiesSet,
	}, nil
}

// EventRecord is one 8-K item event ready to store, with the signal
// level the classifier assigned to the filing.
type EventRecord struct {
	ItemNumber  string
	ItemName    string
	SignalType  string
	SignalLevel string
	IsMASignal  bool
	RawText     string
}

func partyLabel(kind resolve.EntityKind) string {
	if kind == resolve.EntityPerson {
		return "Person"
	}
	return "Company"
}

// transactionID keys an insider transaction by its reported facts rather
// than filing position, so re-ingesting an amended filing cannot
// double-count the trade.
func transactionID(cik string, t *models.TransactionFact) string {
	return fmt.Sprintf("%s|%s|%s|%s|%.4f", cik, t.SecurityTitle, t.Date, t.Code, t.Shares)
}

func jurisdictionCode(name string) string {
	code := make([]rune, 0, 10)
	for _, r := range name {
		if len(code) == 10 {
			break
		}
		if r == ' ' {
			code = append(code, '_')
			continue
		}
		code = append(code, toUpperRune(r))
	}
	return string(code)
}

func toUpperRune(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

func withCommon(common, extra map[string]any) map[string]any {
	out := make(map[string]any, len(common)+len(extra))
	for k, v := range common {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func truncateProp(s string) string {
	if len(s) > maxRawTextProp {
		return s[:maxRawTextProp]
	}
	return s
}

