package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/corpintel/edgargraph/internal/logging"
	"github.com/corpintel/edgargraph/internal/models"
)

// ItemDefinition describes one 8-K item type.
type ItemDefinition struct {
	Name        string
	Signal      string
	Description string
}

// ItemDefinitions maps 8-K item numbers to their meaning.
var ItemDefinitions = map[string]ItemDefinition{
	"1.01": {"Entry into Material Agreement", "material_agreement", "Company entered into a material definitive agreement"},
	"1.02": {"Termination of Material Agreement", "agreement_terminated", "Material definitive agreement was terminated"},
	"1.03": {"Bankruptcy or Receivership", "bankruptcy", "Company entered bankruptcy or receivership"},
	"2.01": {"Completion of Acquisition or Disposition", "acquisition_disposition", "Completed acquisition or disposition of assets"},
	"2.03": {"Creation of Direct Financial Obligation", "new_debt", "Created a direct financial obligation or off-balance sheet arrangement"},
	"2.04": {"Triggering Events for Acceleration of Obligations", "debt_acceleration", "Triggering events that accelerate or increase financial obligations"},
	"2.05": {"Costs for Exit or Disposal Activities", "restructuring", "Costs associated with exit or disposal activities"},
	"2.06": {"Material Impairments", "impairment", "Material impairments to assets"},
	"3.01": {"Notice of Delisting", "delisting", "Notice of delisting or failure to satisfy listing rules"},
	"3.02": {"Unregistered Sales of Equity Securities", "equity_sale", "Unregistered sales of equity securities"},
	"3.03": {"Material Modification to Rights", "rights_modification", "Material modification to rights of security holders"},
	"4.01": {"Changes in Accountant", "auditor_change", "Changes in registrant's certifying accountant"},
	"4.02": {"Non-Reliance on Financial Statements", "restatement", "Non-reliance on previously issued financial statements"},
	"5.01": {"Changes in Control", "control_change", "Changes in control of registrant"},
	"5.02": {"Departure/Appointment of Officers/Directors", "executive_change", "Departure or election of directors; appointment of principal officers"},
	"5.03": {"Amendments to Articles/Bylaws", "governance_change", "Amendments to articles of incorporation or bylaws"},
	"5.04": {"Temporary Suspension of Trading", "trading_suspended", "Temporary suspension of trading under employee benefit plans"},
	"5.05": {"Amendment to Code of Ethics", "ethics_change", "Amendments to, or waivers from, code of ethics"},
	"5.06": {"Change in Shell Company Status", "shell_status_change", "Change in shell company status"},
	"5.07": {"Shareholder Vote Results", "vote_results", "Submission of matters to a vote of security holders"},
	"5.08": {"Shareholder Nominations", "nominations", "Shareholder director nominations"},
	"7.01": {"Regulation FD Disclosure", "reg_fd", "Regulation FD disclosure"},
	"8.01": {"Other Events", "other", "Other events the company considers important"},
	"9.01": {"Financial Statements and Exhibits", "exhibits", "Financial statements and exhibits"},
}

// MASignalItems are the 8-K items treated as M&A-relevant signals.
var MASignalItems = []string{"1.01", "2.01", "3.03", "5.01", "5.02", "5.03"}

var itemNumberRe = regexp.MustCompile(`(?i)Item\s*(\d+\.\d+)[.\s]*([^\n<]{0,100})`)

// Event is a single 8-K item occurrence with its surrounding text.
type Event struct {
	ItemNumber  string
	ItemName    string
	SignalType  string
	Description string
	RawText     string
	IsMASignal  bool
}

// EventResult is everything extracted from one 8-K filing.
type EventResult struct {
	Filing      models.FilingReference
	CompanyName string
	Events      []Event
	HasMASignal bool
	Warnings    []string
}

// MAItems lists the item numbers of the M&A signals present.
func (r EventResult) MAItems() []string {
	var out []string
	for _, e := range r.Events {
		if e.IsMASignal {
			out = append(out, e.ItemNumber)
		}
	}
	return out
}

// EventExtractor parses 8-K material event filings into item events.
// Events are not graph candidates themselves; the pipeline classifies
// them into signals.
type EventExtractor struct {
	log *slog.Logger
}

func NewEventExtractor() *EventExtractor {
	return &EventExtractor{log: logging.Component("extract.event")}
}

// ParseEvents extracts item events from an 8-K document.
func (e *EventExtractor) ParseEvents(content, companyName string, ref models.FilingReference) EventResult {
	result := EventResult{Filing: ref, CompanyName: companyName}

	text := stripHTML(content)
	items := findItems(text)
	if len(items) == 0 {
		result.Warnings = append(result.Warnings, "no item numbers found in filing")
		return result
	}

	maSet := make(map[string]bool, len(MASignalItems))
	for _, item := range MASignalItems {
		maSet[item] = true
	}

	for i, item := range items {
		end := len(text)
		if i+1 < len(items) {
			end = items[i+1].pos
		}
		if end > item.pos+5000 {
			end = item.pos + 5000
		}

		def, ok := ItemDefinitions[item.number]
		if !ok {
			def = ItemDefinition{
				Name:        "Item " + item.number,
				Signal:      "unknown",
				Description: "Unknown item type",
			}
		}

		event := Event{
			ItemNumber:  item.number,
			ItemName:    def.Name,
			SignalType:  def.Signal,
			Description: def.Description,
			RawText:     strings.TrimSpace(text[item.pos:end]),
			IsMASignal:  maSet[item.number],
		}
		result.Events = append(result.Events, event)
		if event.IsMASignal {
			result.HasMASignal = true
		}
	}

	e.log.Debug("8-K parsed",
		"accession", ref.AccessionNumber,
		"events", len(result.Events),
		"ma_signal", result.HasMASignal)
	return result
}

type foundItem struct {
	number string
	pos    int
}

// findItems locates the first occurrence of each item number.
func findItems(text string) []foundItem {
	var items []foundItem
	seen := make(map[string]bool)

	for _, loc := range itemNumberRe.FindAllStringSubmatchIndex(text, -1) {
		number := normalizeItemNumber(text[loc[2]:loc[3]])
		if seen[number] {
			continue
		}
		seen[number] = true
		items = append(items, foundItem{number: number, pos: loc[0]})
	}
	return items
}

// normalizeItemNumber pads the minor part to two digits: "5.2" → "5.02".
func normalizeItemNumber(raw string) string {
	parts := strings.SplitN(raw, ".", 2)
	if len(parts) != 2 {
		return raw
	}
	minor := parts[1]
	if len(minor) == 1 {
		minor = "0" + minor
	}
	return fmt.Sprintf("%s.%s", parts[0], minor)
}

// Summary renders a one-line description of the M&A signals in a
// filing, empty when there are none.
func (r EventResult) Summary() string {
	if !r.HasMASignal {
		return ""
	}
	var parts []string
	for _, event := range r.Events {
		if !event.IsMASignal {
			continue
		}
		switch event.ItemNumber {
		case "5.02":
			parts = append(parts, "Executive change")
		case "2.01":
			parts = append(parts, "Acquisition or disposition completed")
		case "5.01":
			parts = append(parts, "Change in control")
		case "1.01":
			parts = append(parts, "Material agreement entered")
		case "5.03":
			parts = append(parts, "Governance/bylaw changes")
		case "3.03":
			parts = append(parts, "Security holder rights modified")
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("%s: %s", r.CompanyName, strings.Join(parts, "; "))
}
