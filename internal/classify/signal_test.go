package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/corpintel/edgargraph/internal/models"
)

var now = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func TestInsiderSignalClusterBuy(t *testing.T) {
	txns := []models.TransactionFact{
		{InsiderName: "A", Date: "2024-04-20", Code: "P", TotalValue: 10_000},
		{InsiderName: "B", Date: "2024-04-21", Code: "P", TotalValue: 20_000},
		{InsiderName: "C", Date: "2024-04-22", Code: "M", TotalValue: 30_000},
	}
	level, summary := InsiderSignal(txns, now, 30)
	assert.Equal(t, LevelHigh, level)
	assert.Equal(t, "Cluster Buy - 3 insiders purchasing", summary)
}

func TestInsiderSignalTwoBuyers(t *testing.T) {
	txns := []models.TransactionFact{
		{InsiderName: "A", Date: "2024-04-20", Code: "P", TotalValue: 10_000},
		{InsiderName: "B", Date: "2024-04-21", Code: "P", TotalValue: 20_000},
	}
	level, summary := InsiderSignal(txns, now, 30)
	assert.Equal(t, LevelMedium, level)
	assert.Equal(t, "2 insiders purchasing", summary)
}

func TestInsiderSignalLargeSinglePurchase(t *testing.T) {
	txns := []models.TransactionFact{
		{InsiderName: "Jane Roe", Date: "2024-04-20", Code: "P", TotalValue: 750_000},
	}
	level, summary := InsiderSignal(txns, now, 30)
	assert.Equal(t, LevelMedium, level)
	assert.Equal(t, "Large purchase by Jane Roe ($750,000)", summary)
}

func TestInsiderSignalSingleSmallPurchase(t *testing.T) {
	txns := []models.TransactionFact{
		{InsiderName: "Jane Roe", Date: "2024-04-20", Code: "P", TotalValue: 10_000},
	}
	level, summary := InsiderSignal(txns, now, 30)
	assert.Equal(t, LevelLow, level)
	assert.Equal(t, "Single purchase by Jane Roe", summary)
}

func TestInsiderSignalIgnoresOldAndBearishTrades(t *testing.T) {
	txns := []models.TransactionFact{
		{InsiderName: "A", Date: "2023-01-01", Code: "P", TotalValue: 900_000}, // outside window
		{InsiderName: "B", Date: "2024-04-20", Code: "S", TotalValue: 900_000}, // bearish
	}
	level, summary := InsiderSignal(txns, now, 30)
	assert.Equal(t, LevelNone, level)
	assert.Equal(t, "No recent purchases", summary)
}

func TestInsiderSignalCashlessExerciseNotBullish(t *testing.T) {
	// Exercise with same-day sale counts as neutral, not buying.
	txns := []models.TransactionFact{
		{InsiderName: "A", Date: "2024-04-20", Code: "M", TotalValue: 600_000},
		{InsiderName: "A", Date: "2024-04-20", Code: "S", TotalValue: 600_000},
	}
	level, _ := InsiderSignal(txns, now, 30)
	assert.Equal(t, LevelNone, level)
}

func TestEventSignalDealInProgress(t *testing.T) {
	level, summary := EventSignal([]string{"1.01", "5.02"}, nil)
	assert.Equal(t, LevelHigh, level)
	assert.Equal(t, "Deal in Progress - Material Agreement + Leadership Changes", summary)
}

func TestEventSignalMaterialAgreementAlone(t *testing.T) {
	level, summary := EventSignal([]string{"1.01", "9.01"}, nil)
	assert.Equal(t, LevelMedium, level)
	assert.Equal(t, "Material Agreement Filed - Potential Deal", summary)
}

func TestEventSignalDealClosedIsLow(t *testing.T) {
	// 2.01 means the deal already happened; the predictive window is gone.
	level, summary := EventSignal([]string{"1.01", "2.01", "5.02"}, nil)
	assert.Equal(t, LevelLow, level)
	assert.Equal(t, "Acquisition Completed", summary)

	level, summary = EventSignal([]string{"5.01"}, nil)
	assert.Equal(t, LevelLow, level)
	assert.Equal(t, "Control Change Completed", summary)
}

func TestEventSignalOfferingDowngrade(t *testing.T) {
	rawTexts := []string{"the Company entered into an Underwriting Agreement in connection with its initial public offering"}
	level, summary := EventSignal([]string{"1.01", "5.03"}, rawTexts)
	assert.Equal(t, LevelLow, level)
	assert.Equal(t, "IPO/Offering Filing - Not M&A", summary)
}

func TestEventSignalRoutineChanges(t *testing.T) {
	level, _ := EventSignal([]string{"5.02", "5.03"}, nil)
	assert.Equal(t, LevelMedium, level)

	level, summary := EventSignal([]string{"5.02"}, nil)
	assert.Equal(t, LevelLow, level)
	assert.Equal(t, "Executive Change", summary)

	level, summary = EventSignal([]string{"7.01", "9.01"}, nil)
	assert.Equal(t, LevelLow, level)
	assert.Equal(t, "SEC Filing", summary)
}

func TestCombinedSignal(t *testing.T) {
	buying := &InsiderContext{TradeCount: 5, NearFilingCount: 2, NearFilingDirection: "buying"}
	selling := &InsiderContext{TradeCount: 5, NearFilingCount: 2, NearFilingDirection: "selling"}
	farOnly := &InsiderContext{TradeCount: 5, NearFilingCount: 0, NearFilingDirection: "buying"}

	assert.Equal(t, LevelCritical, CombinedSignal(LevelHigh, buying))
	assert.Equal(t, LevelHighBearish, CombinedSignal(LevelHigh, selling))
	assert.Equal(t, LevelHigh, CombinedSignal(LevelMedium, buying))
	assert.Equal(t, LevelMedium, CombinedSignal(LevelMedium, selling))
	assert.Equal(t, LevelHigh, CombinedSignal(LevelHigh, farOnly))
	assert.Equal(t, LevelLow, CombinedSignal(LevelLow, buying))
	assert.Equal(t, LevelHigh, CombinedSignal(LevelHigh, nil))
}

func TestLevelPriority(t *testing.T) {
	assert.Equal(t, 0, LevelPriority(LevelCritical))
	assert.Equal(t, 1, LevelPriority(LevelHigh))
	assert.Equal(t, 1, LevelPriority(LevelHighBearish))
	assert.Equal(t, 2, LevelPriority(LevelMedium))
	assert.Equal(t, 3, LevelPriority(LevelLow))
	assert.Equal(t, 3, LevelPriority(LevelNone))
}
