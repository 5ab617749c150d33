package classify

import (
	"strings"

	"github.com/corpintel/edgargraph/internal/models"
)

// TradeType is the semantic classification of a Form 4 transaction.
type TradeType string

const (
	TradeBuy          TradeType = "buy"
	TradeSell         TradeType = "sell"
	TradeExerciseHold TradeType = "exercise_hold"
	TradeExerciseSell TradeType = "exercise_sell"
	TradeAward        TradeType = "award"
	TradeTax          TradeType = "tax"
	TradeDisposition  TradeType = "disposition"
	TradeGift         TradeType = "gift"
	TradeConversion   TradeType = "conversion"
	TradeWill         TradeType = "will"
	TradeOther        TradeType = "other"
)

var bullishTradeTypes = map[TradeType]bool{
	TradeBuy:          true,
	TradeExerciseHold: true,
}

var bearishTradeTypes = map[TradeType]bool{
	TradeSell:        true,
	TradeDisposition: true,
}

// Codes that classify without same-day context.
var simpleCodeMap = map[string]TradeType{
	"P": TradeBuy,
	"S": TradeSell,
	"A": TradeAward,
	"D": TradeDisposition,
	"G": TradeGift,
	"C": TradeConversion,
	"W": TradeWill,
}

// ClassifyTrade classifies one transaction code. sameDayCodes holds every
// code the same insider reported for the same date; it decides whether an
// option exercise (M) was held or immediately sold.
func ClassifyTrade(code string, sameDayCodes map[string]bool) TradeType {
	code = strings.ToUpper(strings.TrimSpace(code))

	if t, ok := simpleCodeMap[code]; ok {
		return t
	}
	if code == "M" {
		if sameDayCodes["S"] {
			return TradeExerciseSell
		}
		return TradeExerciseHold
	}
	if code == "F" {
		// F alone is tax withholding; with M it is still the tax leg of
		// the exercise, the M classifies itself.
		return TradeTax
	}
	return TradeOther
}

// ClassifyTrades classifies a batch, grouping by (insider, date) to build
// the same-day code sets first. The result is index-aligned with the
// input.
func ClassifyTrades(txns []models.TransactionFact) []TradeType {
	type groupKey struct {
		name string
		date string
	}

	groups := make(map[groupKey]map[string]bool)
	for _, txn := range txns {
		name := strings.ToUpper(strings.TrimSpace(txn.InsiderName))
		date := strings.TrimSpace(txn.Date)
		code := strings.ToUpper(strings.TrimSpace(txn.Code))
		if name == "" || date == "" || code == "" {
			continue
		}
		key := groupKey{name, date}
		if groups[key] == nil {
			groups[key] = make(map[string]bool)
		}
		groups[key][code] = true
	}

	types := make([]TradeType, len(txns))
	for i, txn := range txns {
		key := groupKey{
			name: strings.ToUpper(strings.TrimSpace(txn.InsiderName)),
			date: strings.TrimSpace(txn.Date),
		}
		types[i] = ClassifyTrade(txn.Code, groups[key])
	}
	return types
}

// IsBullish reports whether a trade type signals accumulation.
func IsBullish(t TradeType) bool { return bullishTradeTypes[t] }

// IsBearish reports whether a trade type signals distribution.
func IsBearish(t TradeType) bool { return bearishTradeTypes[t] }

// NetShares sums shares across a batch, counting bullish trades as
// positive and bearish trades as negative. Awards, gifts and other
// neutral codes contribute nothing.
func NetShares(txns []models.TransactionFact) float64 {
	types := ClassifyTrades(txns)
	var net float64
	for i, txn := range txns {
		switch {
		case IsBullish(types[i]):
			net += txn.Shares
		case IsBearish(types[i]):
			net -= txn.Shares
		}
	}
	return net
}

// HasPurchases reports whether any transaction in the batch is an
// open-market buy or an exercise the insider held.
func HasPurchases(txns []models.TransactionFact) bool {
	for _, t := range ClassifyTrades(txns) {
		if IsBullish(t) {
			return true
		}
	}
	return false
}
