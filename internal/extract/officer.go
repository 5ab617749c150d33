package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/corpintel/edgargraph/internal/logging"
	"github.com/corpintel/edgargraph/internal/models"
)

var executiveTitles = []string{
	"chief executive officer", "ceo",
	"chief financial officer", "cfo",
	"chief operating officer", "coo",
	"chief technology officer", "cto",
	"chief information officer", "cio",
	"chief marketing officer", "cmo",
	"chief legal officer", "clo",
	"chief human resources officer", "chro",
	"chief strategy officer", "cso",
	"president",
	"executive vice president", "evp",
	"senior vice president", "svp",
	"general counsel",
	"treasurer",
	"controller",
	"secretary",
}

var directorIndicators = []string{
	"director",
	"board member",
	"chairman",
	"chair",
	"lead independent",
	"independent director",
	"non-executive",
}

var officerSectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)executive\s*officers?`),
	regexp.MustCompile(`(?i)directors?\s*and\s*executive\s*officers?`),
	regexp.MustCompile(`(?i)board\s*of\s*directors?`),
	regexp.MustCompile(`(?i)our\s*directors?`),
	regexp.MustCompile(`(?i)named\s*executive\s*officers?`),
	regexp.MustCompile(`(?i)directors?\s*nominees?`),
	regexp.MustCompile(`(?i)election\s*of\s*directors?`),
	regexp.MustCompile(`(?i)nominees?\s*for\s*director`),
	regexp.MustCompile(`(?i)continuing\s*directors?`),
	regexp.MustCompile(`(?i)class\s*[iI]{1,3}\s*directors?`),
	regexp.MustCompile(`(?i)independent\s*directors?`),
	regexp.MustCompile(`(?i)non-employee\s*directors?`),
	regexp.MustCompile(`(?i)members?\s*of\s*the\s*board`),
	regexp.MustCompile(`(?i)biographical\s*information`),
}

var directorSectionKeywords = []string{
	"board of director", "director nominee", "our director", "election of director",
}

var officerSectionKeywords = []string{
	"executive officer", "named executive", "management",
}

// narrativeBioRe matches "John Smith, 65, has served as ..." paragraphs.
// Anchored to the paragraph start so headings cannot bleed into the name.
var narrativeBioRe = regexp.MustCompile(`^([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z.]+){1,3}),?\s*(?:age\s*)?(\d{2})[,\s]+([^.]{3,120})`)

// OfficerExtractor parses officers and directors from DEF 14A proxy
// statements: tables first, then narrative bio paragraphs.
type OfficerExtractor struct {
	log *slog.Logger
}

func NewOfficerExtractor() *OfficerExtractor {
	return &OfficerExtractor{log: logging.Component("extract.officer")}
}

func (e *OfficerExtractor) Extract(_ context.Context, content string, ref models.FilingReference) ([]models.Candidate, error) {
	var candidates []models.Candidate
	seen := make(map[string]bool)

	add := func(c models.Candidate) {
		key := strings.ToLower(c.PartyName())
		if seen[key] {
			return
		}
		seen[key] = true
		candidates = append(candidates, c)
	}

	for _, c := range e.parseTables(content, ref) {
		add(c)
	}
	for _, c := range e.parseNarrative(content, ref) {
		add(c)
	}

	var officers, directors int
	for _, c := range candidates {
		if c.Kind == models.KindOfficer {
			officers++
		} else {
			directors++
		}
	}
	e.log.Debug("officer extraction complete",
		"accession", ref.AccessionNumber, "officers", officers, "directors", directors)
	return candidates, nil
}

func (e *OfficerExtractor) parseTables(content string, ref models.FilingReference) []models.Candidate {
	var candidates []models.Candidate

	for _, table := range extractTables(content) {
		probe := table.Section + " " + table.FullText
		if !matchesAny(probe, officerSectionPatterns) {
			continue
		}
		if len(table.Rows) < 2 {
			continue
		}

		nameCol, titleCol, ageCol := -1, -1, -1
		for j, cell := range table.Rows[0] {
			lower := strings.ToLower(cell)
			if nameCol < 0 && containsAny(lower, "name", "director", "officer") {
				nameCol = j
			}
			if titleCol < 0 && containsAny(lower, "title", "position", "office") {
				titleCol = j
			}
			if ageCol < 0 && strings.Contains(lower, "age") {
				ageCol = j
			}
		}
		if nameCol < 0 && len(table.Rows[0]) >= 2 {
			nameCol, titleCol = 0, 1
		}
		if nameCol < 0 {
			continue
		}

		for i := 1; i < len(table.Rows); i++ {
			row := table.Rows[i]
			if len(row) <= nameCol {
				continue
			}

			rawName, extractedTitle := splitNameAndTitle(cleanText(row[nameCol]))
			name := CleanPersonName(rawName)
			if !IsValidPersonName(name) {
				continue
			}

			title := extractedTitle
			if titleCol >= 0 && titleCol < len(row) {
				if t := cleanText(row[titleCol]); t != "" {
					title = t
				}
			}
			age := 0
			if ageCol >= 0 && ageCol < len(row) {
				age = parseAge(row[ageCol])
			}

			isDirector, isOfficer, isExecutive := classifyRole(title)
			if !isDirector && !isOfficer {
				// No role in the title; fall back to the section context.
				sectionLower := strings.ToLower(table.Section)
				if containsAnyOf(sectionLower, directorSectionKeywords) {
					isDirector = true
				} else if containsAnyOf(sectionLower, officerSectionKeywords) {
					isOfficer = true
					isExecutive = true
				}
			}
			if !isDirector && !isOfficer {
				continue
			}

			var snippet string
			if i < len(table.RawRows) {
				snippet = truncate(table.RawRows[i], maxSnippetLength)
			}

			candidates = append(candidates, makePersonCandidate(
				ref, name, title, age, isDirector, isOfficer, isExecutive,
				RuleBasedConfidence, table.Section, table.Caption, snippet))
		}
	}
	return candidates
}

// parseNarrative catches director bios written as prose, the common
// "Jane Smith, 62, has served as a director since 2015" format.
func (e *OfficerExtractor) parseNarrative(content string, ref models.FilingReference) []models.Candidate {
	var candidates []models.Candidate
	for _, line := range blockBreakRe.Split(content, -1) {
		m := narrativeBioRe.FindStringSubmatch(stripHTML(line))
		if m == nil {
			continue
		}
		name := CleanPersonName(m[1])
		if !IsValidPersonName(name) {
			continue
		}
		age, _ := strconv.Atoi(m[2])
		if age < 25 || age > 100 {
			age = 0
		}
		title := strings.TrimSpace(m[3])

		isDirector, isOfficer, isExecutive := classifyRole(title)
		if !isDirector && !isOfficer {
			continue
		}

		snippet := truncate(strings.Join(m[1:], ", "), maxSnippetLength)
		// Prose parses are less reliable than labeled table columns.
		candidates = append(candidates, makePersonCandidate(
			ref, name, title, age, isDirector, isOfficer, isExecutive,
			0.85, "", "", snippet))
	}
	return candidates
}

func makePersonCandidate(
	ref models.FilingReference,
	name, title string,
	age int,
	isDirector, isOfficer, isExecutive bool,
	confidence float64,
	section, table, snippet string,
) models.Candidate {
	c := models.Candidate{
		Method:      models.MethodRuleBased,
		Confidence:  confidence,
		ExtractedAt: time.Now().UTC(),
		SubjectCIK:  ref.CIK,
		Citation: models.SourceCitation{
			Filing:  ref,
			Section: section,
			Table:   table,
			RawText: snippet,
		},
	}
	// A person can be both; board membership wins for candidate kind and
	// the officer title is preserved on the fact.
	if isDirector && !isOfficer {
		c.Kind = models.KindDirector
		c.Director = &models.DirectorFact{Name: name}
	} else {
		c.Kind = models.KindOfficer
		c.Officer = &models.OfficerFact{
			Name:        name,
			Title:       title,
			IsExecutive: isExecutive,
			Age:         age,
		}
	}
	return c
}

// classifyRole maps a title onto director/officer/executive flags.
// Short abbreviations match on word boundaries so "cto" does not match
// inside "director".
func classifyRole(title string) (isDirector, isOfficer, isExecutive bool) {
	if title == "" {
		return false, false, false
	}
	lower := strings.ToLower(title)

	for _, ind := range directorIndicators {
		if titleMatch(ind, lower) {
			isDirector = true
			break
		}
	}
	for _, ind := range executiveTitles {
		if titleMatch(ind, lower) {
			isExecutive = true
			break
		}
	}
	isOfficer = isExecutive
	if !isOfficer {
		for _, w := range []string{"vice president", "vp", "officer", "counsel", "secretary", "treasurer"} {
			if titleMatch(w, lower) {
				isOfficer = true
				break
			}
		}
	}
	return isDirector, isOfficer, isExecutive
}

var (
	presidentRe     = regexp.MustCompile(`\bpresident\b`)
	vicePresidentRe = regexp.MustCompile(`\bvice\s+president\b`)
)

func titleMatch(term, text string) bool {
	if term == "president" {
		// "Vice President" alone is not a president title.
		return len(presidentRe.FindAllString(text, -1)) > len(vicePresidentRe.FindAllString(text, -1))
	}
	if len(term) <= 4 {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
		return re.MatchString(text)
	}
	return strings.Contains(text, term)
}

// splitNameAndTitle separates "Jane Smith Chief Executive Officer" cells
// that merge name and title into one column.
func splitNameAndTitle(text string) (name, title string) {
	lower := strings.ToLower(text)
	titleKeywords := []string{
		"chief executive officer", "chief operating officer",
		"chief financial officer", "chief technology officer",
		"chief legal officer", "chief marketing officer",
		"senior vice president", "executive vice president",
		"vice president", "president", "chairman", "chair",
		"general counsel", "secretary", "treasurer", "director",
		"ceo", "coo", "cfo", "cto", "cmo", "clo", "svp", "evp", "vp",
	}
	for _, kw := range titleKeywords {
		idx := strings.Index(lower, kw)
		if idx <= 0 {
			continue
		}
		namePart := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text[:idx]), ","))
		words := strings.Fields(namePart)
		if len(words) >= 2 && len(words) <= 4 {
			return namePart, strings.TrimSpace(text[idx:])
		}
	}
	return strings.TrimSpace(text), ""
}

var ageCellRe = regexp.MustCompile(`(?i)age[:\s]+(\d{2})|^\s*(\d{2})\s*$|,\s*(\d{2})\s*,`)

func parseAge(text string) int {
	m := ageCellRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0
	}
	for _, g := range m[1:] {
		if g == "" {
			continue
		}
		age, err := strconv.Atoi(g)
		if err == nil && age >= 30 && age <= 95 {
			return age
		}
	}
	return 0
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func containsAny(text string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

func containsAnyOf(text string, subs []string) bool {
	return containsAny(text, subs...)
}
