package models

import "time"

// FilingReference is the immutable identity of a source document.
// Created when a filing is discovered from the EDGAR submissions index
// and never mutated afterwards.
type FilingReference struct {
	AccessionNumber string // Regulator-assigned, unique per filing
	CIK             string // Filer identifier (zero-padded, 10 digits)
	FormType        string // "DEF 14A", "10-K", "8-K", "4", "SC 13D", ...
	FilingDate      string // YYYY-MM-DD as reported by EDGAR
	PrimaryDocument string
	DocumentURL     string
}

// AccessionNoDash returns the accession number without dashes, as used
// in EDGAR archive directory paths.
func (f FilingReference) AccessionNoDash() string {
	out := make([]byte, 0, len(f.AccessionNumber))
	for i := 0; i < len(f.AccessionNumber); i++ {
		if f.AccessionNumber[i] != '-' {
			out = append(out, f.AccessionNumber[i])
		}
	}
	return string(out)
}

// CompanyInfo is basic issuer information from the EDGAR submissions API.
type CompanyInfo struct {
	CIK                  string
	Name                 string
	Tickers              []string
	SIC                  string
	SICDescription       string
	StateOfIncorporation string
	FiscalYearEnd        string
}

// LoadResult reports what a single load batch changed in the graph.
// Counters come from the store's write summary, so loading an identical
// batch twice yields zero creations on the second call.
type LoadResult struct {
	EntitiesCreated      int
	RelationshipsCreated int
	RelationshipsUpdated int
	PropertiesSet        int
}

// Add accumulates another result into this one.
func (r *LoadResult) Add(other LoadResult) {
	r.EntitiesCreated += other.EntitiesCreated
	r.RelationshipsCreated += other.RelationshipsCreated
	r.RelationshipsUpdated += other.RelationshipsUpdated
	r.PropertiesSet += other.PropertiesSet
}

// FilingOutcome is the per-filing result of one orchestrator run.
// Outcomes are reported in input order for reproducible reporting.
type FilingOutcome struct {
	Filing     FilingReference
	Success    bool
	Error      string
	Candidates int
	AutoLoaded int
	Queued     int
	Load       LoadResult
	Duration   time.Duration
}
