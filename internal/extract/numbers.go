package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numberRe      = regexp.MustCompile(`(\d+)`)
	percentRe     = regexp.MustCompile(`([\d]+\.?\d*)\s*%`)
	percentWordRe = regexp.MustCompile(`([\d]+\.?\d*)\s*percent`)
	bareNumberRe  = regexp.MustCompile(`^([\d]+\.?\d*)$`)
	lessThanRe    = regexp.MustCompile(`less\s+than\s+([\d.]+)\s*%?`)
)

var emptyCellValues = map[string]bool{
	"-": true, "—": true, "–": true, "*": true,
	"n/a": true, "": true, "—%": true, "*%": true,
}

// parseShareCount parses an integer share count, tolerating commas and
// placeholder dashes. Returns 0, false for empty or non-numeric cells.
func parseShareCount(text string) (int64, bool) {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	text = strings.ReplaceAll(text, " ", "")
	if emptyCellValues[strings.ToLower(text)] {
		return 0, false
	}
	m := numberRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parsePercentage parses an ownership percentage. "Less than X%" cells
// are approximated as half of X; a lone asterisk footnote referencing
// "less than 1%" becomes 0.5.
func parsePercentage(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if emptyCellValues[strings.ToLower(text)] {
		return 0, false
	}

	lower := strings.ToLower(strings.ReplaceAll(text, ",", ""))

	if m := lessThanRe.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v / 2, true
		}
		return 0.5, true
	}
	if strings.Contains(text, "*") && strings.Contains(text, "1") {
		return 0.5, true
	}

	for _, re := range []*regexp.Regexp{percentRe, percentWordRe, bareNumberRe} {
		if m := re.FindStringSubmatch(lower); m != nil {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			if v >= 0 && v <= 100 {
				return v, true
			}
			// Values over 100 are share counts that leaked into the
			// percent column.
		}
	}
	return 0, false
}

// parseFloat parses a float, returning 0 on failure.
func parseFloat(text string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0
	}
	return v
}
