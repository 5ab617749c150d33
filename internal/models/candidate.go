package models

import (
	"fmt"
	"strings"
	"time"
)

// CandidateKind enumerates the fact types an extractor can propose.
type CandidateKind string

const (
	KindOwnership   CandidateKind = "ownership"
	KindOfficer     CandidateKind = "officer"
	KindDirector    CandidateKind = "director"
	KindSubsidiary  CandidateKind = "subsidiary"
	KindTransaction CandidateKind = "transaction"
)

// ExtractionMethod records which extractor family produced a candidate.
type ExtractionMethod string

const (
	MethodRuleBased ExtractionMethod = "rule_based"
	MethodLLM       ExtractionMethod = "llm"
)

// SourceCitation locates the extracted fact inside its source filing.
type SourceCitation struct {
	Filing  FilingReference
	Section string // e.g. "Security Ownership of Certain Beneficial Owners"
	Table   string // table caption or index, when the fact came from a table
	Page    int    // 0 when unknown
	RawText string // original snippet for verification, truncated
}

// OwnershipFact is a beneficial-ownership claim: owner holds a stake in
// the subject company.
type OwnershipFact struct {
	OwnerName     string
	OwnerIsEntity bool // true for company owners, false for persons
	SharesOwned   int64
	Percentage    float64 // 0 when unreported
	IsBeneficial  bool
	IsDirect      bool
	AsOfDate      string
}

// OfficerFact is an officer or named-executive relation.
type OfficerFact struct {
	Name        string
	Title       string
	IsExecutive bool
	Age         int
}

// DirectorFact is a board membership relation.
type DirectorFact struct {
	Name  string
	Since string
}

// SubsidiaryFact is a parent→subsidiary ownership relation from a 10-K
// Exhibit 21.
type SubsidiaryFact struct {
	Name          string
	Jurisdiction  string
	Percentage    float64
	IsWhollyOwned bool
}

// TransactionFact is one insider transaction line from a Form 4.
type TransactionFact struct {
	InsiderName   string
	InsiderTitle  string
	SecurityTitle string
	Date          string // YYYY-MM-DD
	Code          string // SEC transaction code: P, S, M, F, A, ...
	Shares        float64
	PricePerShare float64
	TotalValue    float64
	SharesAfter   float64
	OwnershipType string // "D" direct, "I" indirect
	IsDerivative  bool
}

// Candidate is a proposed fact extracted from a filing, not yet committed
// to the graph. Exactly one payload field is non-nil, selected by Kind.
type Candidate struct {
	Kind        CandidateKind
	Method      ExtractionMethod
	Confidence  float64 // [0,1]
	Citation    SourceCitation
	ExtractedAt time.Time

	// Subject of the fact: the company the filing is about.
	SubjectCIK  string
	SubjectName string

	Ownership   *OwnershipFact
	Officer     *OfficerFact
	Director    *DirectorFact
	Subsidiary  *SubsidiaryFact
	Transaction *TransactionFact
}

// PartyName returns the free-text counterparty name the candidate refers
// to, the input to entity resolution. Transactions name the insider.
func (c Candidate) PartyName() string {
	switch c.Kind {
	case KindOwnership:
		return c.Ownership.OwnerName
	case KindOfficer:
		return c.Officer.Name
	case KindDirector:
		return c.Director.Name
	case KindSubsidiary:
		return c.Subsidiary.Name
	case KindTransaction:
		return c.Transaction.InsiderName
	}
	return ""
}

// Key returns the logical identity of the candidate: same kind, same
// normalized party, same citation. Used by the review queue to deduplicate
// retried submissions and by the loader for idempotent upserts.
func (c Candidate) Key() string {
	party := strings.ToUpper(strings.TrimSpace(c.PartyName()))
	switch c.Kind {
	case KindTransaction:
		t := c.Transaction
		return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%.4f",
			c.Kind, c.SubjectCIK, party, t.SecurityTitle, t.Date, t.Code, t.Shares)
	default:
		return fmt.Sprintf("%s|%s|%s|%s|%s",
			c.Kind, c.SubjectCIK, party,
			c.Citation.Filing.AccessionNumber, c.Citation.Section)
	}
}

// Validate reports whether the candidate's payload matches its kind.
func (c Candidate) Validate() error {
	var ok bool
	switch c.Kind {
	case KindOwnership:
		ok = c.Ownership != nil
	case KindOfficer:
		ok = c.Officer != nil
	case KindDirector:
		ok = c.Director != nil
	case KindSubsidiary:
		ok = c.Subsidiary != nil
	case KindTransaction:
		ok = c.Transaction != nil
	default:
		return fmt.Errorf("unknown candidate kind %q", c.Kind)
	}
	if !ok {
		return fmt.Errorf("candidate kind %s has no payload", c.Kind)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence %f outside [0,1]", c.Confidence)
	}
	return nil
}
