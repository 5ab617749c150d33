package extract

import (
	"regexp"
	"strings"
)

// SEC filings are messy HTML, often generated by ancient tooling, so
// parsing works on regex-extracted tables and stripped text rather than
// a DOM.

var (
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)

	tableRe   = regexp.MustCompile(`(?is)<table[^>]*>.*?</table>`)
	rowRe     = regexp.MustCompile(`(?is)<tr[^>]*>.*?</tr>`)
	cellRe    = regexp.MustCompile(`(?is)<t[hd][^>]*>(.*?)</t[hd]>`)
	captionRe = regexp.MustCompile(`(?is)<caption[^>]*>(.*?)</caption>`)

	headingRe = regexp.MustCompile(`(?is)<(?:h[1-4]|p|b|strong|span|div)[^>]*>(.*?)</(?:h[1-4]|p|b|strong|span|div)>`)

	numericEntityRe = regexp.MustCompile(`&#\d+;`)
	namedEntityRe   = regexp.MustCompile(`(?i)&[a-z]+;`)
	spaceRe         = regexp.MustCompile(`\s+`)

	footnoteRe = regexp.MustCompile(`\(\d+\)|\[\d+\]`)
	asteriskRe = regexp.MustCompile(`\*+`)
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&nbsp;", " ",
)

// stripHTML removes script/style blocks, strips tags, decodes entities,
// and collapses whitespace into plain text.
func stripHTML(html string) string {
	html = scriptRe.ReplaceAllString(html, "")
	html = styleRe.ReplaceAllString(html, "")
	html = tagRe.ReplaceAllString(html, " ")
	html = decodeEntities(html)
	html = spaceRe.ReplaceAllString(html, " ")
	return strings.TrimSpace(html)
}

func decodeEntities(s string) string {
	s = entityReplacer.Replace(s)
	s = numericEntityRe.ReplaceAllString(s, " ")
	s = namedEntityRe.ReplaceAllString(s, " ")
	return s
}

// htmlTable is one <table> reduced to text cells, with the heading or
// caption nearest before it for citation.
type htmlTable struct {
	Rows     [][]string
	RawRows  []string // stripped text of each row, for snippets
	Caption  string
	Section  string // nearest preceding heading text
	FullText string // entire table as plain text
}

// extractTables pulls every table out of the document with its rows
// split into cell text.
func extractTables(html string) []htmlTable {
	var tables []htmlTable

	locations := tableRe.FindAllStringIndex(html, -1)
	for _, loc := range locations {
		raw := html[loc[0]:loc[1]]

		t := htmlTable{
			Section:  precedingHeading(html[:loc[0]]),
			FullText: stripHTML(raw),
		}
		if m := captionRe.FindStringSubmatch(raw); m != nil {
			t.Caption = truncate(stripHTML(m[1]), 100)
		}

		for _, rowRaw := range rowRe.FindAllString(raw, -1) {
			cellMatches := cellRe.FindAllStringSubmatch(rowRaw, -1)
			if len(cellMatches) == 0 {
				continue
			}
			cells := make([]string, len(cellMatches))
			for i, cm := range cellMatches {
				cells[i] = stripHTML(cm[1])
			}
			t.Rows = append(t.Rows, cells)
			t.RawRows = append(t.RawRows, stripHTML(rowRaw))
		}
		tables = append(tables, t)
	}
	return tables
}

// precedingHeading finds the text of the last heading-like element
// before a table, used as the section name in citations.
func precedingHeading(before string) string {
	// Only scan the tail; headings further back belong to other content.
	const window = 4000
	if len(before) > window {
		before = before[len(before)-window:]
	}
	matches := headingRe.FindAllStringSubmatch(before, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		text := strings.TrimSpace(stripHTML(matches[i][1]))
		if len(text) >= 4 && len(text) <= 200 {
			return truncate(text, 100)
		}
	}
	return ""
}

// cleanText collapses whitespace and removes footnote markers and
// asterisks from extracted cell text.
func cleanText(text string) string {
	text = spaceRe.ReplaceAllString(text, " ")
	text = footnoteRe.ReplaceAllString(text, "")
	text = asteriskRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
