package resolve

import (
	"regexp"
	"strings"
)

// Corporate suffixes stripped before matching, longest variants first.
var companySuffixes = []string{
	", inc.", " inc.", ", inc", " inc",
	", llc", " llc", " l.l.c.",
	" ltd.", " ltd", " limited",
	" corp.", " corp", " corporation",
	" co.", " co", " company",
	" plc", " s.a.s.", " s.a.", " n.v.", " se",
	" group", " holdings",
	" lp", " l.p.", " llp",
}

var (
	punctRe      = regexp.MustCompile(`[.,;:'"()&/]`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeCompanyName canonicalizes a company name for matching:
// case-fold, strip one corporate suffix and a leading "The", collapse
// punctuation variance.
func NormalizeCompanyName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, suffix := range companySuffixes {
		if strings.HasSuffix(n, suffix) {
			n = strings.TrimSpace(n[:len(n)-len(suffix)])
			break
		}
	}
	n = strings.TrimPrefix(n, "the ")
	n = punctRe.ReplaceAllString(n, " ")
	n = multiSpaceRe.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// NormalizePersonName canonicalizes a person name: case-fold and collapse
// punctuation variance. "COOK TIMOTHY D" and "Cook, Timothy D." normalize
// to the same key.
func NormalizePersonName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = punctRe.ReplaceAllString(n, " ")
	n = multiSpaceRe.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// tokenOverlap is the Jaccard similarity between the word sets of two
// normalized names.
func tokenOverlap(a, b string) float64 {
	as := strings.Fields(a)
	bs := strings.Fields(b)
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}
	set := make(map[string]bool, len(as))
	for _, t := range as {
		set[t] = true
	}
	inter := 0
	bset := make(map[string]bool, len(bs))
	for _, t := range bs {
		if set[t] && !bset[t] {
			inter++
		}
		bset[t] = true
	}
	union := len(set)
	for t := range bset {
		if !set[t] {
			union++
		}
	}
	return float64(inter) / float64(union)
}

// editSimilarity is 1 - normalized Levenshtein distance.
func editSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(maxLen)
}

func levenshtein(a, b string) int {
	ar := []rune(a)
	br := []rune(b)
	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ar); i++ {
		curr[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(br)]
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Similarity scores two normalized names as the better of token overlap
// and edit similarity. Token overlap catches word reorderings ("Cook
// Timothy" vs "Timothy Cook"); edit distance catches near-spellings.
// The linker's minimum bar and ambiguity margin guard against the
// looseness of taking the max.
func Similarity(a, b string) float64 {
	t := tokenOverlap(a, b)
	e := editSimilarity(a, b)
	if t > e {
		return t
	}
	return e
}
