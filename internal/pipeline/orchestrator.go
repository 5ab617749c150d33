package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/corpintel/edgargraph/internal/classify"
	"github.com/corpintel/edgargraph/internal/edgar"
	"github.com/corpintel/edgargraph/internal/errors"
	"github.com/corpintel/edgargraph/internal/extract"
	"github.com/corpintel/edgargraph/internal/graph"
	"github.com/corpintel/edgargraph/internal/llm"
	"github.com/corpintel/edgargraph/internal/models"
	"github.com/corpintel/edgargraph/internal/resolve"
	"github.com/corpintel/edgargraph/internal/review"
)

// insiderWindowDays is the lookback for insider signal classification.
const insiderWindowDays = 30

// Orchestrator drives the per-company flow: fetch filings, extract
// candidates, route by confidence, resolve parties, load accepted facts.
// One filing's failure never aborts the rest of the batch; only fatal
// errors (store unreachable, bad config) stop a run.
type Orchestrator struct {
	fetcher edgar.FilingFetcher
	router  *review.Router
	linker  *resolve.Linker
	loader  *graph.Loader
	logger  *logrus.Logger

	ownership  extract.Extractor
	officer    extract.Extractor
	subsidiary extract.Extractor
	form4      *extract.Form4Extractor
	events     *extract.EventExtractor

	llmOwnership  extract.Extractor
	llmOfficer    extract.Extractor
	llmSubsidiary extract.Extractor
}

func NewOrchestrator(
	fetcher edgar.FilingFetcher,
	router *review.Router,
	linker *resolve.Linker,
	loader *graph.Loader,
	llmClient *llm.Client,
	logger *logrus.Logger,
) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Orchestrator{
		fetcher:       fetcher,
		router:        router,
		linker:        linker,
		loader:        loader,
		logger:        logger,
		ownership:     extract.NewOwnershipExtractor(),
		officer:       extract.NewOfficerExtractor(),
		subsidiary:    extract.NewSubsidiaryExtractor(),
		form4:         extract.NewForm4Extractor(),
		events:        extract.NewEventExtractor(),
		llmOwnership:  extract.NewLLMExtractor(llmClient, models.KindOwnership),
		llmOfficer:    extract.NewLLMExtractor(llmClient, models.KindOfficer),
		llmSubsidiary: extract.NewLLMExtractor(llmClient, models.KindSubsidiary),
	}
}

// ProcessCompany runs the ingestion flow over up to limit ownership,
// proxy, and annual-report filings for one company. Outcomes are
// returned in filing order, one per filing, including failures.
func (o *Orchestrator) ProcessCompany(ctx context.Context, cik string, limit int) ([]models.FilingOutcome, error) {
	cik = edgar.NormalizeCIK(cik)
	start := time.Now()
	o.logger.WithFields(logrus.Fields{"cik": cik, "limit": limit}).Info("Starting company ingestion")

	info, err := o.fetcher.GetCompanyInfo(ctx, cik)
	if err != nil {
		return nil, err
	}

	forms := append([]string{}, edgar.OwnershipForms...)
	forms = append(forms, edgar.SubsidiaryForms...)
	filings, err := o.fetcher.GetCompanyFilings(ctx, cik, forms, limit)
	if err != nil {
		return nil, err
	}

	outcomes := make([]models.FilingOutcome, 0, len(filings))
	for _, filing := range filings {
		outcome, fatal := o.processFiling(ctx, info, filing)
		outcomes = append(outcomes, outcome)
		if fatal != nil {
			return outcomes, fatal
		}
	}

	o.logger.WithFields(logrus.Fields{
		"cik":      cik,
		"company":  info.Name,
		"filings":  len(outcomes),
		"duration": time.Since(start).String(),
	}).Info("Company ingestion completed")
	return outcomes, nil
}

// processFiling handles one filing end to end. The returned error is
// non-nil only for fatal conditions; everything else is folded into the
// outcome.
func (o *Orchestrator) processFiling(ctx context.Context, info *models.CompanyInfo, filing models.FilingReference) (models.FilingOutcome, error) {
	start := time.Now()
	outcome := models.FilingOutcome{Filing: filing}

	candidates, err := o.extractFiling(ctx, info, filing)
	if err != nil {
		if errors.IsFatal(err) {
			return failOutcome(outcome, err, start), err
		}
		o.logger.WithFields(logrus.Fields{
			"accession": filing.AccessionNumber,
			"form":      filing.FormType,
			"error":     err.Error(),
		}).Warn("Filing failed, continuing with batch")
		return failOutcome(outcome, err, start), nil
	}
	outcome.Candidates = len(candidates)

	auto, queued, load, fatal := o.routeResolveLoad(ctx, filing, info.Name, candidates)
	outcome.AutoLoaded = auto
	outcome.Queued = queued
	outcome.Load = load
	if fatal != nil {
		return failOutcome(outcome, fatal, start), fatal
	}

	outcome.Success = true
	outcome.Duration = time.Since(start)
	return outcome, nil
}

// extractFiling picks extractors by form type. When rule-based parsing
// finds nothing the LLM extractor gets a chance, mirroring the original
// fallback order.
func (o *Orchestrator) extractFiling(ctx context.Context, info *models.CompanyInfo, filing models.FilingReference) ([]models.Candidate, error) {
	form := filing.FormType
	switch {
	case strings.HasPrefix(form, "10-K"):
		content, err := o.fetcher.GetExhibit21(ctx, info.CIK, filing)
		if err != nil {
			return nil, err
		}
		return o.extractWithFallback(ctx, content, filing, o.subsidiary, o.llmSubsidiary)

	case strings.HasPrefix(form, "SC 13"):
		content, err := o.fetcher.GetFilingDocument(ctx, info.CIK, filing)
		if err != nil {
			return nil, err
		}
		return o.extractWithFallback(ctx, content, filing, o.ownership, o.llmOwnership)

	case form == "4" || form == "4/A":
		content, err := o.fetcher.GetForm4XML(ctx, info.CIK, filing)
		if err != nil {
			return nil, err
		}
		return o.form4.Extract(ctx, content, filing)

	default: // proxy statements: ownership tables plus officers/directors
		content, err := o.fetcher.GetFilingDocument(ctx, info.CIK, filing)
		if err != nil {
			return nil, err
		}
		owners, err := o.extractWithFallback(ctx, content, filing, o.ownership, o.llmOwnership)
		if err != nil {
			return nil, err
		}
		officers, err := o.extractWithFallback(ctx, content, filing, o.officer, o.llmOfficer)
		if err != nil {
			return nil, err
		}
		return append(owners, officers...), nil
	}
}

func (o *Orchestrator) extractWithFallback(ctx context.Context, content string, filing models.FilingReference, rules, llmFallback extract.Extractor) ([]models.Candidate, error) {
	candidates, err := rules.Extract(ctx, content, filing)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 || llmFallback == nil {
		return candidates, nil
	}
	fromLLM, err := llmFallback.Extract(ctx, content, filing)
	if err != nil {
		// LLM transport failures degrade to the rule-based (empty) result.
		o.logger.WithFields(logrus.Fields{
			"accession": filing.AccessionNumber,
			"error":     err.Error(),
		}).Warn("LLM fallback extraction failed")
		return candidates, nil
	}
	return fromLLM, nil
}

// routeResolveLoad routes each candidate, resolves parties for accepted
// ones, and commits the batch. Ambiguous resolutions go to review rather
// than being guessed. The returned error is non-nil only when fatal.
func (o *Orchestrator) routeResolveLoad(ctx context.Context, filing models.FilingReference, subjectName string, candidates []models.Candidate) (auto, queued int, load models.LoadResult, fatal error) {
	hints := resolve.Hints{SubjectCIK: normalizedSubject(candidates, filing), AccessionNumber: filing.AccessionNumber}

	accepted := make([]graph.ResolvedCandidate, 0, len(candidates))
	for _, c := range candidates {
		decision, err := o.router.Route(c)
		if err != nil {
			o.logger.WithFields(logrus.Fields{
				"kind":  c.Kind,
				"party": c.PartyName(),
				"error": err.Error(),
			}).Warn("Candidate rejected by router")
			continue
		}
		if decision == review.DecisionQueued {
			queued++
			continue
		}

		party, err := o.linker.Resolve(ctx, EntityKind(c), c.PartyName(), hints)
		if err != nil {
			switch errors.CategoryOf(err) {
			case errors.CategoryAmbiguous:
				if qerr := o.router.ForceReview(c, err.Error()); qerr != nil {
					return auto, queued, load, qerr
				}
				queued++
			case errors.CategoryMalformed:
				o.logger.WithFields(logrus.Fields{
					"party": c.PartyName(),
					"error": err.Error(),
				}).Debug("Skipping unresolvable party")
			default:
				if errors.IsFatal(err) {
					return auto, queued, load, err
				}
				o.logger.WithField("error", err.Error()).Warn("Resolution failed, skipping candidate")
			}
			continue
		}

		accepted = append(accepted, graph.ResolvedCandidate{Candidate: c, Party: party})
		auto++
	}

	if len(accepted) == 0 {
		return auto, queued, load, nil
	}

	result, err := o.loader.Load(ctx, filing, subjectName, accepted)
	if err != nil {
		return auto, queued, load, err
	}
	return auto, queued, result, nil
}

// EventScan is the per-filing result of an 8-K scan.
type EventScan struct {
	Filing      models.FilingReference
	Events      int
	HasMASignal bool
	MAItems     []string
	SignalLevel string
	// CombinedLevel layers recent insider trading onto the event signal.
	// Equal to SignalLevel when no insider context applies.
	CombinedLevel string
	Summary       string
	Error         string
}

// ScanEvents parses a company's recent 8-K filings into item events,
// classifies each filing's signal level, and stores the events.
func (o *Orchestrator) ScanEvents(ctx context.Context, cik string, limit int) ([]EventScan, error) {
	cik = edgar.NormalizeCIK(cik)
	info, err := o.fetcher.GetCompanyInfo(ctx, cik)
	if err != nil {
		return nil, err
	}
	filings, err := o.fetcher.GetCompanyFilings(ctx, cik, edgar.EventForms, limit)
	if err != nil {
		return nil, err
	}

	scans := make([]EventScan, 0, len(filings))
	for _, filing := range filings {
		scan := EventScan{Filing: filing}

		content, err := o.fetcher.GetFilingDocument(ctx, cik, filing)
		if err != nil {
			if errors.IsFatal(err) {
				return append(scans, scan), err
			}
			scan.Error = err.Error()
			scans = append(scans, scan)
			continue
		}

		result := o.events.ParseEvents(content, info.Name, filing)
		scan.Events = len(result.Events)
		scan.HasMASignal = result.HasMASignal
		scan.MAItems = result.MAItems()

		items := make([]string, 0, len(result.Events))
		rawTexts := make([]string, 0, len(result.Events))
		records := make([]graph.EventRecord, 0, len(result.Events))
		for _, e := range result.Events {
			items = append(items, e.ItemNumber)
			rawTexts = append(rawTexts, e.RawText)
		}
		scan.SignalLevel, scan.Summary = classify.EventSignal(items, rawTexts)
		for _, e := range result.Events {
			records = append(records, graph.EventRecord{
				ItemNumber:  e.ItemNumber,
				ItemName:    e.ItemName,
				SignalType:  e.SignalType,
				SignalLevel: scan.SignalLevel,
				IsMASignal:  e.IsMASignal,
				RawText:     e.RawText,
			})
		}

		if len(records) > 0 {
			if _, err := o.loader.LoadEvents(ctx, filing, info.Name, records); err != nil {
				return append(scans, scan), err
			}
		}
		scans = append(scans, scan)

		o.logger.WithFields(logrus.Fields{
			"accession": filing.AccessionNumber,
			"events":    scan.Events,
			"signal":    scan.SignalLevel,
		}).Info("Scanned 8-K filing")
	}

	o.applyInsiderContext(ctx, cik, limit, scans)
	return scans, nil
}

// applyInsiderContext upgrades or downgrades flagged event scans based
// on insider trading around each filing. Form 4s are parsed here without
// being stored; ingestion is ScanInsiderTrades' job.
func (o *Orchestrator) applyInsiderContext(ctx context.Context, cik string, limit int, scans []EventScan) {
	flagged := false
	for i := range scans {
		scans[i].CombinedLevel = scans[i].SignalLevel
		if scans[i].HasMASignal {
			flagged = true
		}
	}
	if !flagged {
		return
	}

	txns := o.recentTransactions(ctx, cik, limit)
	if len(txns) == 0 {
		return
	}
	for i := range scans {
		if !scans[i].HasMASignal {
			continue
		}
		ic := insiderContextAround(txns, scans[i].Filing.FilingDate)
		scans[i].CombinedLevel = classify.CombinedSignal(scans[i].SignalLevel, ic)
	}
}

func (o *Orchestrator) recentTransactions(ctx context.Context, cik string, limit int) []models.TransactionFact {
	filings, err := o.fetcher.GetCompanyFilings(ctx, cik, edgar.Form4Forms, limit)
	if err != nil {
		o.logger.WithError(err).Debug("Form 4 lookup for insider context failed")
		return nil
	}

	var txns []models.TransactionFact
	for _, filing := range filings {
		content, err := o.fetcher.GetForm4XML(ctx, cik, filing)
		if err != nil {
			continue
		}
		candidates, err := o.form4.Extract(ctx, content, filing)
		if err != nil {
			continue
		}
		for _, c := range candidates {
			if c.Transaction != nil {
				txns = append(txns, *c.Transaction)
			}
		}
	}
	return txns
}

const nearFilingWindowDays = 90

// insiderContextAround counts trades within the near-filing window and
// nets their direction.
func insiderContextAround(txns []models.TransactionFact, filingDate string) *classify.InsiderContext {
	ic := &classify.InsiderContext{TradeCount: len(txns)}
	filed, err := time.Parse("2006-01-02", filingDate)
	if err != nil {
		return ic
	}

	types := classify.ClassifyTrades(txns)
	var net float64
	for i, txn := range txns {
		traded, err := time.Parse("2006-01-02", txn.Date)
		if err != nil {
			continue
		}
		days := traded.Sub(filed).Hours() / 24
		if days < -nearFilingWindowDays || days > nearFilingWindowDays {
			continue
		}
		ic.NearFilingCount++
		switch {
		case classify.IsBullish(types[i]):
			net += txn.Shares
		case classify.IsBearish(types[i]):
			net -= txn.Shares
		}
	}
	switch {
	case ic.NearFilingCount == 0:
	case net > 0:
		ic.NearFilingDirection = "buying"
	case net < 0:
		ic.NearFilingDirection = "selling"
	}
	return ic
}

// InsiderScan summarizes one company's Form 4 scan.
type InsiderScan struct {
	CIK                string
	CompanyName        string
	FilingsFound       int
	FilingsParsed      int
	TransactionsStored int
	Queued             int
	NetShares          float64
	HasPurchases       bool
	SignalLevel        string
	SignalSummary      string
}

// ScanInsiderTrades ingests a company's recent Form 4 filings and
// classifies the resulting insider activity into a signal level.
func (o *Orchestrator) ScanInsiderTrades(ctx context.Context, cik string, limit int) (*InsiderScan, error) {
	cik = edgar.NormalizeCIK(cik)
	info, err := o.fetcher.GetCompanyInfo(ctx, cik)
	if err != nil {
		return nil, err
	}
	filings, err := o.fetcher.GetCompanyFilings(ctx, cik, edgar.Form4Forms, limit)
	if err != nil {
		return nil, err
	}

	scan := &InsiderScan{CIK: cik, CompanyName: info.Name, FilingsFound: len(filings)}
	var transactions []models.TransactionFact

	for _, filing := range filings {
		content, err := o.fetcher.GetForm4XML(ctx, cik, filing)
		if err != nil {
			if errors.IsFatal(err) {
				return scan, err
			}
			o.logger.WithFields(logrus.Fields{
				"accession": filing.AccessionNumber,
				"error":     err.Error(),
			}).Warn("Form 4 fetch failed, skipping")
			continue
		}

		candidates, err := o.form4.Extract(ctx, content, filing)
		if err != nil || len(candidates) == 0 {
			continue
		}
		scan.FilingsParsed++

		auto, queued, _, fatal := o.routeResolveLoad(ctx, filing, info.Name, candidates)
		if fatal != nil {
			return scan, fatal
		}
		scan.TransactionsStored += auto
		scan.Queued += queued

		for _, c := range candidates {
			if c.Transaction != nil {
				transactions = append(transactions, *c.Transaction)
			}
		}
	}

	scan.NetShares = classify.NetShares(transactions)
	scan.HasPurchases = classify.HasPurchases(transactions)
	scan.SignalLevel, scan.SignalSummary = classify.InsiderSignal(transactions, time.Now(), insiderWindowDays)
	o.logger.WithFields(logrus.Fields{
		"cik":          cik,
		"filings":      scan.FilingsFound,
		"parsed":       scan.FilingsParsed,
		"transactions": scan.TransactionsStored,
		"signal":       scan.SignalLevel,
	}).Info("Insider scan completed")
	return scan, nil
}

// EntityKind maps a candidate to the kind of entity its party resolves
// to: company owners and subsidiaries are companies, everyone else is a
// person.
func EntityKind(c models.Candidate) resolve.EntityKind {
	switch c.Kind {
	case models.KindOwnership:
		if c.Ownership.OwnerIsEntity {
			return resolve.EntityCompany
		}
		return resolve.EntityPerson
	case models.KindSubsidiary:
		return resolve.EntityCompany
	default:
		return resolve.EntityPerson
	}
}

func normalizedSubject(candidates []models.Candidate, filing models.FilingReference) string {
	if len(candidates) > 0 && candidates[0].SubjectCIK != "" {
		return candidates[0].SubjectCIK
	}
	return filing.CIK
}

func failOutcome(outcome models.FilingOutcome, err error, start time.Time) models.FilingOutcome {
	outcome.Success = false
	outcome.Error = err.Error()
	outcome.Duration = time.Since(start)
	return outcome
}
