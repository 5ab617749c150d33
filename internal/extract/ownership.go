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

// Ownership table detection patterns, matched against the table text and
// the heading before it.
var ownershipTablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)beneficial\s*own`),
	regexp.MustCompile(`(?i)shares\s*(of\s*common\s*stock\s*)?beneficially\s*owned`),
	regexp.MustCompile(`(?i)security\s*ownership`),
	regexp.MustCompile(`(?i)principal\s*(stock)?holders`),
	regexp.MustCompile(`(?i)percent\s*(of\s*)?(class|outstanding)`),
}

var (
	ownerNameHeaderRe = regexp.MustCompile(`(?i)name|beneficial\s*owner|holder|stockholder|shareholder`)
	sharesHeaderRe    = regexp.MustCompile(`(?i)shares|number\s*of\s*shares|amount|shares\s*owned`)
	percentHeaderRe   = regexp.MustCompile(`(?i)percent|%|percentage`)
)

var ownerSkipPatterns = []string{
	"name", "beneficial owner", "total", "shares", "percent",
	"class", "amount", "nature", "sole", "shared", "voting",
	"see footnote", "see note", "n/a", "none", "—", "–",
}

// OwnershipExtractor parses beneficial ownership tables out of DEF 14A,
// 13D, and 13G filings.
type OwnershipExtractor struct {
	log *slog.Logger
}

func NewOwnershipExtractor() *OwnershipExtractor {
	return &OwnershipExtractor{log: logging.Component("extract.ownership")}
}

func (e *OwnershipExtractor) Extract(_ context.Context, content string, ref models.FilingReference) ([]models.Candidate, error) {
	var candidates []models.Candidate
	seen := make(map[string]bool)

	for _, table := range extractTables(content) {
		if !looksLikeOwnershipTable(table) {
			continue
		}
		for _, c := range e.parseTable(table, ref) {
			key := strings.ToLower(strings.TrimSpace(c.Ownership.OwnerName))
			if seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, c)
		}
	}

	e.log.Debug("ownership extraction complete",
		"accession", ref.AccessionNumber, "owners", len(candidates))
	return candidates, nil
}

func looksLikeOwnershipTable(t htmlTable) bool {
	probe := t.Section + " " + truncate(t.FullText, 500)
	for _, re := range ownershipTablePatterns {
		if re.MatchString(probe) {
			return true
		}
	}
	return false
}

func (e *OwnershipExtractor) parseTable(t htmlTable, ref models.FilingReference) []models.Candidate {
	if len(t.Rows) < 2 {
		return nil
	}

	nameCol, sharesCol, percentCol, headerRow := -1, -1, -1, 0
	for i, row := range t.Rows {
		if i >= 5 {
			break
		}
		for j, cell := range row {
			lower := strings.ToLower(strings.TrimSpace(cell))
			if nameCol < 0 && ownerNameHeaderRe.MatchString(lower) {
				nameCol = j
				headerRow = i
			}
			if sharesHeaderRe.MatchString(lower) {
				sharesCol = j
			}
			if percentHeaderRe.MatchString(lower) {
				percentCol = j
			}
		}
		if nameCol >= 0 {
			break
		}
	}
	if nameCol < 0 {
		return nil
	}

	var candidates []models.Candidate
	for i := headerRow + 1; i < len(t.Rows); i++ {
		row := t.Rows[i]
		if len(row) <= nameCol {
			continue
		}

		ownerName := cleanText(row[nameCol])
		if len(ownerName) < 2 || !isPlausibleOwnerName(ownerName) {
			continue
		}

		var shares int64
		var sharesOK bool
		if sharesCol >= 0 && sharesCol < len(row) {
			shares, sharesOK = parseShareCount(row[sharesCol])
		}
		var percent float64
		var percentOK bool
		if percentCol >= 0 && percentCol < len(row) {
			percent, percentOK = parsePercentage(row[percentCol])
		}
		if !sharesOK && !percentOK {
			continue
		}

		var snippet string
		if i < len(t.RawRows) {
			snippet = truncate(t.RawRows[i], maxSnippetLength)
		}

		candidates = append(candidates, models.Candidate{
			Kind:        models.KindOwnership,
			Method:      models.MethodRuleBased,
			Confidence:  RuleBasedConfidence,
			ExtractedAt: time.Now().UTC(),
			SubjectCIK:  ref.CIK,
			Citation: models.SourceCitation{
				Filing:  ref,
				Section: t.Section,
				Table:   t.Caption,
				RawText: snippet,
			},
			Ownership: &models.OwnershipFact{
				OwnerName:     ownerName,
				OwnerIsEntity: IsEntityName(ownerName),
				SharesOwned:   shares,
				Percentage:    percent,
				IsBeneficial:  true,
				IsDirect:      true,
				AsOfDate:      ref.FilingDate,
			},
		})
	}
	return candidates
}

// isPlausibleOwnerName filters header rows and garbage cells. Unlike
// person-name validation this accepts institutions.
func isPlausibleOwnerName(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, p := range ownerSkipPatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	if enumRowRe.MatchString(lower) {
		return false
	}
	if len(name) < 3 || len(name) > 200 {
		return false
	}
	alpha := 0
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			alpha++
		}
	}
	if alpha < 3 {
		return false
	}
	// Sentence fragments starting with articles are not owner names,
	// unless it is an institution like "The Vanguard Group".
	if !IsEntityName(name) {
		for _, prefix := range []string{"a change", "the ", "all ", "each ", "any "} {
			if strings.HasPrefix(lower, prefix) {
				return false
			}
		}
	}
	return true
}
