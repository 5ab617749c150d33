package classify

import (
	"fmt"
	"strings"
	"time"

	"github.com/corpintel/edgargraph/internal/models"
)

// Signal levels, ordered from strongest to weakest.
const (
	LevelCritical    = "critical"
	LevelHighBearish = "high_bearish"
	LevelHigh        = "high"
	LevelMedium      = "medium"
	LevelLow         = "low"
	LevelNone        = "none"
)

// LevelPriority maps a level to a sort priority, lower is stronger.
func LevelPriority(level string) int {
	switch level {
	case LevelCritical:
		return 0
	case LevelHigh, LevelHighBearish:
		return 1
	case LevelMedium:
		return 2
	default:
		return 3
	}
}

const largePurchaseThreshold = 500_000

// InsiderSignal grades recent insider buying. Trades outside the window
// ending at now provide classification context only.
func InsiderSignal(txns []models.TransactionFact, now time.Time, windowDays int) (level, summary string) {
	cutoff := now.AddDate(0, 0, -windowDays).Format("2006-01-02")

	types := ClassifyTrades(txns)

	recentBuyers := make(map[string]bool)
	var firstBuyer string
	var purchaseValue float64

	for i, txn := range txns {
		if txn.Date >= cutoff && IsBullish(types[i]) {
			if len(recentBuyers) == 0 {
				firstBuyer = txn.InsiderName
			}
			recentBuyers[txn.InsiderName] = true
			purchaseValue += txn.TotalValue
		}
	}

	switch n := len(recentBuyers); {
	case n >= 3:
		return LevelHigh, fmt.Sprintf("Cluster Buy - %d insiders purchasing", n)
	case n == 2:
		return LevelMedium, fmt.Sprintf("%d insiders purchasing", n)
	case n == 1 && purchaseValue > largePurchaseThreshold:
		return LevelMedium, fmt.Sprintf("Large purchase by %s ($%s)", firstBuyer, formatDollars(purchaseValue))
	case n == 1:
		return LevelLow, fmt.Sprintf("Single purchase by %s", firstBuyer)
	default:
		return LevelNone, "No recent purchases"
	}
}

// formatDollars renders a value with thousands separators, no cents.
func formatDollars(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// ipoKeywords downgrade 8-K signals generated by offerings rather than
// deals. "business combination agreement" catches SPAC mergers.
var ipoKeywords = []string{
	"underwriting agreement",
	"initial public offering",
	"ipo",
	"prospectus supplement",
	"public offering price",
	"shares of common stock registered",
	"business combination agreement",
}

func looksLikeOffering(rawTexts []string) bool {
	var b strings.Builder
	for _, t := range rawTexts {
		b.WriteString(strings.ToLower(t))
		b.WriteByte(' ')
	}
	combined := b.String()
	for _, kw := range ipoKeywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}

// EventSignal grades an 8-K filing by the predictive value of its items.
// A completed acquisition (2.01) or control change (5.01) means the deal
// is done; the predictive signal is a material agreement (1.01) before
// either appears, strongest when paired with leadership or governance
// changes.
func EventSignal(items []string, rawTexts []string) (level, summary string) {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}

	dealClosed := set["2.01"] || set["5.01"]
	materialAgreement := set["1.01"]
	execChanges := set["5.02"]
	governanceChanges := set["5.03"]

	if materialAgreement && !dealClosed {
		if execChanges || governanceChanges {
			if looksLikeOffering(rawTexts) {
				return LevelLow, "IPO/Offering Filing - Not M&A"
			}
			return LevelHigh, "Deal in Progress - Material Agreement + Leadership Changes"
		}
		if looksLikeOffering(rawTexts) {
			return LevelLow, "IPO/Offering Filing - Not M&A"
		}
		return LevelMedium, "Material Agreement Filed - Potential Deal"
	}

	if execChanges && governanceChanges && !dealClosed {
		return LevelMedium, "Multiple Leadership/Governance Changes"
	}
	if dealClosed {
		if materialAgreement {
			return LevelLow, "Acquisition Completed"
		}
		return LevelLow, "Control Change Completed"
	}
	if execChanges {
		return LevelLow, "Executive Change"
	}
	if governanceChanges {
		return LevelLow, "Governance Change"
	}
	return LevelLow, "SEC Filing"
}

// InsiderContext summarizes trading activity around a filing for signal
// combination.
type InsiderContext struct {
	TradeCount          int
	NearFilingCount     int    // trades within the +-90 day window
	NearFilingDirection string // "buying", "selling", or ""
}

// CombinedSignal layers insider activity on an 8-K signal level. Buying
// near a high signal upgrades it to critical; selling flags it bearish.
func CombinedSignal(level string, ctx *InsiderContext) string {
	if ctx == nil || ctx.TradeCount == 0 || ctx.NearFilingCount == 0 {
		return level
	}
	switch level {
	case LevelHigh:
		switch ctx.NearFilingDirection {
		case "buying":
			return LevelCritical
		case "selling":
			return LevelHighBearish
		}
	case LevelMedium:
		if ctx.NearFilingDirection == "buying" {
			return LevelHigh
		}
	}
	return level
}
