package extract

import (
	"regexp"
	"strings"
)

// Person-name validation. Table parsers and LLM output both produce
// garbage rows (section headers, sentences, product names mistaken for
// people), so names are filtered hard before they can become Person
// nodes.

var companySuffixes = []string{
	" inc.", " inc", " corp.", " corp", " llc", " l.l.c.",
	" l.p.", " lp", " ltd.", " ltd", " limited", " plc",
	" co.", " company", " corporation", " incorporated",
	" holdings", " enterprises", " partners", " group",
	" s.a.", " n.v.", " b.v.", " gmbh", " ag",
}

var nameSkipExact = []string{
	"name", "director", "officer", "age", "position", "title",
	"executive", "board", "committee", "n/a", "none", "—", "–",
	"see footnote", "see note", "total", "former", "current",
	"chief executive officer", "chief financial officer",
	"chief operating officer", "chief technology officer",
	"non-employee directors", "independent directors",
	"risk management", "five percent holders", "pay versus performance",
	"pay ratio", "equity compensation", "beneficial ownership",
	"security ownership", "audit committee", "accounting",
	"performance graph", "compensation discussion", "principal stockholders",
	"related party", "certain relationships", "director compensation",
	"executive compensation", "stock ownership", "delinquent section",
	"corporate governance", "shareholder engagement",
}

var nameSkipContains = []string{
	"highlights", "transition", "compensation", "proposal",
	"table of contents", "notice of", "election of", "annual",
	"meeting", "shareholders", "guidelines", "policies",
	"prohibitions", "hedging", "pledging", "voting", "majority",
	"summary", "the role of", "the following table", "named executive",
	"fiscal", "target", "million", "$",
	"questions and answers", "proxy statement", "form 4",
	"schedule 13", "section 16", "rule 10b", "exchange act",
	"securities act", "item ", "part ", "exhibit",
	"information is based on", "filed by", "filed with",
}

var nameSkipPrefixes = []string{
	"proposal no", "notice of", "table of", "summary of",
	"the ", "our ", "all ", "each ", "any ", "this ",
	"20", "19",
	"on ", "in ", "at ", "by ", "for ", "to ", "as ",
	"former ", "current ", "see ", "note ", "per ",
	"initial ", "maximum ", "other ", "stock ", "market ",
	"shareholder ", "audit ",
}

var sentenceWords = []string{
	" is ", " are ", " was ", " were ", " has ", " have ", " had ",
	" based on ", " filed ", " pursuant ", " accordance ", " regarding ",
	" with respect to ", " in connection ",
	" with the ", " by the ", " on the ", " of the ", " to the ",
	" january ", " february ", " march ", " april ", " june ",
	" july ", " august ", " september ", " october ", " november ",
	" december ",
}

var lowercaseConnectors = map[string]bool{
	"de": true, "van": true, "von": true, "der": true,
	"la": true, "le": true, "du": true,
}

var (
	enumRowRe    = regexp.MustCompile(`^[\d()]+[a-z]?\.?$`)
	yearRe       = regexp.MustCompile(`\b20\d{2}\b`)
	longParenRe  = regexp.MustCompile(`\([^)]{15,}\)`)
	enumPrefixRe = regexp.MustCompile(`^\s*\(?\d+\)?[.)]\s+`)

	// A lowercase word ending in a period followed by a capitalized word
	// marks a sentence boundary. Middle initials ("Mary J. Blige") and
	// suffixes ("Jr.") stay clear of this.
	sentenceBreakRe = regexp.MustCompile(`[a-z]{2,}\.\s+[A-Z]`)

	trailingRoleRe  = regexp.MustCompile(`(?i)\s+(Chair|Chairman|Director|Lead|Former)$`)
	formerParenRe   = regexp.MustCompile(`(?i)\s*\(Former[^)]*\)?`)
	unclosedParenRe = regexp.MustCompile(`\s*\([^)]*$`)
	trailingRefRe   = regexp.MustCompile(`\s*\(\d+\)\s*$|\s*\*+\s*$`)
	roleParenRe     = regexp.MustCompile(`(?i)\s*\((?:Chair|Chairman|Lead\s*Independent|Vice\s*Chair)\)`)
)

// CleanPersonName strips footnote markers, role annotations, and
// truncated parentheticals from a candidate person name.
func CleanPersonName(name string) string {
	name = cleanText(name)
	name = enumPrefixRe.ReplaceAllString(name, "")
	name = roleParenRe.ReplaceAllString(name, "")
	name = trailingRoleRe.ReplaceAllString(name, "")
	name = strings.TrimPrefix(name, "Former ")
	name = trailingRefRe.ReplaceAllString(name, "")
	name = formerParenRe.ReplaceAllString(name, "")
	name = unclosedParenRe.ReplaceAllString(name, "")
	return strings.Trim(strings.TrimSpace(name), ",;")
}

// IsValidPersonName reports whether a string plausibly names a single
// person rather than a section header, company, or sentence fragment.
func IsValidPersonName(name string) bool {
	if len(name) < 3 || len(name) > 50 {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(name))

	for _, suffix := range companySuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}
	// ALL CAPS beyond a short string is a header or company.
	if name == strings.ToUpper(name) && len(name) > 10 {
		return false
	}
	if sentenceBreakRe.MatchString(name) {
		return false
	}
	for _, exact := range nameSkipExact {
		if lower == exact || strings.HasPrefix(lower, exact+" ") {
			return false
		}
	}
	for _, sub := range nameSkipContains {
		if strings.Contains(lower, sub) {
			return false
		}
	}
	for _, prefix := range nameSkipPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	for _, w := range sentenceWords {
		if strings.Contains(lower, w) {
			return false
		}
	}
	if enumRowRe.MatchString(lower) || yearRe.MatchString(name) || longParenRe.MatchString(name) {
		return false
	}

	var alpha, digits int
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			alpha++
		case r >= '0' && r <= '9':
			digits++
		}
	}
	if alpha < 3 || float64(digits) > float64(alpha)*0.3 {
		return false
	}

	words := strings.Fields(name)
	if len(words) < 2 || len(words) > 6 {
		return false
	}
	if name[0] < 'A' || name[0] > 'Z' {
		return false
	}

	// Reject concatenated names like "Andrea Jung Alex Gorsky":
	// too many capitalized non-suffix words in a row.
	capWords := 0
	for _, w := range words {
		if len(w) > 1 && w[0] >= 'A' && w[0] <= 'Z' {
			capWords++
		}
	}
	if capWords > 4 {
		return false
	}

	for _, w := range words {
		clean := strings.Trim(w, ".,;:()")
		if len(clean) > 1 && (clean[0] < 'A' || clean[0] > 'Z') {
			if !lowercaseConnectors[strings.ToLower(clean)] {
				return false
			}
		}
	}
	return true
}

var knownInstitutions = []string{
	"vanguard", "blackrock", "state street", "fidelity", "berkshire",
	"jpmorgan", "morgan stanley", "goldman sachs", "bank of america",
	"wells fargo", "citadel", "bridgewater", "capital group",
	"t. rowe price", "invesco", "schwab", "northern trust",
	"geode capital", "norges bank", "calpers", "tiaa",
}

var entityIndicators = []string{
	"inc", "corp", "llc", "llp", "ltd", "l.p.", "lp", "company", "co.",
	"n.a.", "n.v.", "s.a.", "fund", "funds", "partners", "partnership",
	"holdings", "trust", "investment", "investments", "investors",
	"capital", "management", "asset", "assets", "group", "advisors",
	"advisers", "associates", "association", "bank", "financial",
	"securities", "services", "international", "global", "worldwide",
	"pension", "retirement", "endowment",
}

var personIndicators = []string{"mr.", "mrs.", "ms.", "dr.", "jr.", "sr.", "iii", "ii", "iv"}

// IsEntityName guesses whether an owner name refers to an institution
// rather than a person.
func IsEntityName(name string) bool {
	lower := strings.ToLower(name)

	for _, inst := range knownInstitutions {
		if strings.Contains(lower, inst) {
			return true
		}
	}
	for _, ind := range entityIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	for _, ind := range personIndicators {
		if strings.Contains(lower, ind) {
			return false
		}
	}
	words := strings.Fields(name)
	if len(words) >= 2 && len(words) <= 4 {
		return false
	}
	return true
}
