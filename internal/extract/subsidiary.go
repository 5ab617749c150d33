package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/corpintel/edgargraph/internal/logging"
	"github.com/corpintel/edgargraph/internal/models"
)

// jurisdictions maps common abbreviations and names in Exhibit 21 lists
// to canonical jurisdiction names.
var jurisdictions = map[string]string{
	"de": "Delaware", "delaware": "Delaware",
	"ca": "California", "california": "California",
	"ny": "New York", "new york": "New York",
	"tx": "Texas", "texas": "Texas",
	"nv": "Nevada", "nevada": "Nevada",
	"fl": "Florida", "florida": "Florida",
	"wa": "Washington", "washington": "Washington",
	"il": "Illinois", "illinois": "Illinois",
	"ma": "Massachusetts", "massachusetts": "Massachusetts",
	"pa": "Pennsylvania", "pennsylvania": "Pennsylvania",
	"oh": "Ohio", "ohio": "Ohio",
	"ga": "Georgia", "georgia": "Georgia",
	"nc": "North Carolina", "north carolina": "North Carolina",
	"nj": "New Jersey", "new jersey": "New Jersey",
	"va": "Virginia", "virginia": "Virginia",
	"md": "Maryland", "maryland": "Maryland",
	"co": "Colorado", "colorado": "Colorado",
	"az": "Arizona", "arizona": "Arizona",
	"ireland":   "Ireland",
	"uk":        "United Kingdom",
	"united kingdom": "United Kingdom", "england": "United Kingdom",
	"cayman": "Cayman Islands", "cayman islands": "Cayman Islands",
	"bermuda":     "Bermuda",
	"netherlands": "Netherlands", "holland": "Netherlands",
	"luxembourg":  "Luxembourg",
	"singapore":   "Singapore",
	"hong kong":   "Hong Kong",
	"japan":       "Japan",
	"germany":     "Germany",
	"france":      "France",
	"canada":      "Canada",
	"australia":   "Australia",
	"switzerland": "Switzerland",
	"india":       "India",
	"china":       "China", "prc": "China",
	"brazil": "Brazil",
	"mexico": "Mexico",
	"israel": "Israel",
	"bvi":    "British Virgin Islands",
	"british virgin islands": "British Virgin Islands",
}

var (
	nonAlphaRe = regexp.MustCompile(`[^a-z\s]`)

	// "Subsidiary Corp (Delaware)"
	subsidiaryParenRe = regexp.MustCompile(`([A-Z][A-Za-z0-9\s,.'&-]+?)\s*\(([A-Za-z\s]+)\)`)
	// "Subsidiary Corp, a Delaware corporation"
	subsidiaryProseRe = regexp.MustCompile(`(?i)([A-Z][A-Za-z0-9\s,.'&-]+?),?\s+a\s+([A-Za-z\s]+)\s+(?:corporation|company|llc|limited)`)
)

// SubsidiaryExtractor parses subsidiary lists from 10-K Exhibit 21, in
// either tabular or plain-list form.
type SubsidiaryExtractor struct {
	log *slog.Logger
}

func NewSubsidiaryExtractor() *SubsidiaryExtractor {
	return &SubsidiaryExtractor{log: logging.Component("extract.subsidiary")}
}

func (e *SubsidiaryExtractor) Extract(_ context.Context, content string, ref models.FilingReference) ([]models.Candidate, error) {
	candidates := e.parseTables(content, ref)
	if len(candidates) == 0 {
		candidates = e.parseText(content, ref)
	}
	e.log.Debug("subsidiary extraction complete",
		"accession", ref.AccessionNumber, "subsidiaries", len(candidates))
	return candidates, nil
}

func (e *SubsidiaryExtractor) parseTables(content string, ref models.FilingReference) []models.Candidate {
	var candidates []models.Candidate

	for _, table := range extractTables(content) {
		if len(table.Rows) < 2 {
			continue
		}

		nameCol, jurCol, ownCol := -1, -1, -1
		for j, cell := range table.Rows[0] {
			lower := strings.ToLower(cell)
			if nameCol < 0 && containsAny(lower, "name", "subsidiary", "company", "entity") {
				nameCol = j
			}
			if jurCol < 0 && containsAny(lower, "state", "jurisdiction", "incorporated", "country", "organization") {
				jurCol = j
			}
			if ownCol < 0 && containsAny(lower, "ownership", "percent", "owned", "%") {
				ownCol = j
			}
		}
		if nameCol < 0 {
			if len(table.Rows[0]) < 2 {
				continue
			}
			nameCol, jurCol = 0, 1
		}

		for i := 1; i < len(table.Rows); i++ {
			row := table.Rows[i]
			if len(row) <= nameCol {
				continue
			}
			name := cleanText(row[nameCol])
			if len(name) < 3 {
				continue
			}
			switch strings.ToLower(name) {
			case "name", "subsidiary", "company", "entity":
				continue
			}

			fact := &models.SubsidiaryFact{Name: name}
			if jurCol >= 0 && jurCol < len(row) {
				fact.Jurisdiction = normalizeJurisdiction(row[jurCol])
			}
			if ownCol >= 0 && ownCol < len(row) {
				ownText := strings.ToLower(row[ownCol])
				if pct, ok := parseOwnershipPercent(ownText); ok {
					fact.Percentage = pct
				}
				fact.IsWhollyOwned = fact.Percentage == 100 || strings.Contains(ownText, "wholly")
			}

			var snippet string
			if i < len(table.RawRows) {
				snippet = truncate(table.RawRows[i], maxSnippetLength)
			}
			candidates = append(candidates, models.Candidate{
				Kind:        models.KindSubsidiary,
				Method:      models.MethodRuleBased,
				Confidence:  RuleBasedConfidence,
				ExtractedAt: time.Now().UTC(),
				SubjectCIK:  ref.CIK,
				Citation: models.SourceCitation{
					Filing:  ref,
					Section: "Exhibit 21 - Subsidiaries",
					Table:   table.Caption,
					RawText: snippet,
				},
				Subsidiary: fact,
			})
		}
	}
	return candidates
}

var blockBreakRe = regexp.MustCompile(`(?i)<(?:/p|/div|/tr|/li|/h[1-4]|br[^>]*)>|\n`)

func (e *SubsidiaryExtractor) parseText(content string, ref models.FilingReference) []models.Candidate {
	var candidates []models.Candidate
	seen := make(map[string]bool)

	add := func(name, jurRaw string, confidence float64, snippet string) {
		name = cleanText(name)
		jur := normalizeJurisdiction(jurRaw)
		if len(name) < 3 || jur == "" {
			return
		}
		key := strings.ToLower(name)
		if seen[key] {
			return
		}
		seen[key] = true
		candidates = append(candidates, models.Candidate{
			Kind:        models.KindSubsidiary,
			Method:      models.MethodRuleBased,
			Confidence:  confidence,
			ExtractedAt: time.Now().UTC(),
			SubjectCIK:  ref.CIK,
			Citation: models.SourceCitation{
				Filing:  ref,
				Section: "Exhibit 21 - Subsidiaries",
				RawText: truncate(snippet, maxSnippetLength),
			},
			Subsidiary: &models.SubsidiaryFact{Name: name, Jurisdiction: jur},
		})
	}

	// Entries are one per line; matching line by line keeps headings and
	// prose from bleeding into the captured names.
	for _, line := range blockBreakRe.Split(content, -1) {
		line = stripHTML(line)
		if len(line) < 5 || len(line) > 300 {
			continue
		}
		for _, m := range subsidiaryParenRe.FindAllStringSubmatch(line, -1) {
			add(m[1], m[2], 0.85, m[0])
		}
		for _, m := range subsidiaryProseRe.FindAllStringSubmatch(line, -1) {
			add(m[1], m[2], 0.80, m[0])
		}
	}
	return candidates
}

// normalizeJurisdiction canonicalizes a jurisdiction string, returning
// empty for unparseable input.
func normalizeJurisdiction(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	raw = strings.TrimSpace(nonAlphaRe.ReplaceAllString(raw, ""))
	if raw == "" {
		return ""
	}
	if canonical, ok := jurisdictions[raw]; ok {
		return canonical
	}
	for key, canonical := range jurisdictions {
		if len(key) > 3 && (strings.Contains(raw, key) || strings.Contains(key, raw)) {
			return canonical
		}
	}
	return titleCase(raw)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func parseOwnershipPercent(text string) (float64, bool) {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return 0, false
	}
	if containsAny(text, "wholly", "100%", "100 %") {
		return 100, true
	}
	return parsePercentage(text)
}
