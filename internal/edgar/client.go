package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/corpintel/edgargraph/internal/errors"
	"github.com/corpintel/edgargraph/internal/logging"
	"github.com/corpintel/edgargraph/internal/models"
)

const (
	baseURL           = "https://data.sec.gov"
	archivesURL       = "https://www.sec.gov/Archives/edgar/data"
	fullTextSearchURL = "https://efts.sec.gov/LATEST/search-index"
	companyTickersURL = "https://www.sec.gov/files/company_tickers.json"
)

// Form type groups for the filings we extract from.
var (
	OwnershipForms  = []string{"DEF 14A", "DEFA14A", "DEF14A", "SC 13D", "SC 13D/A", "SC 13G", "SC 13G/A"}
	SubsidiaryForms = []string{"10-K", "10-K/A"}
	OfficerForms    = []string{"DEF 14A", "DEFA14A", "DEF14A"}
	EventForms      = []string{"8-K", "8-K/A"}
	Form4Forms      = []string{"4", "4/A"}
)

var nonDigits = regexp.MustCompile(`[^\d]`)

// FilingFetcher is the surface the pipeline needs from EDGAR. The HTTP
// client implements it; tests substitute fixtures.
type FilingFetcher interface {
	GetCompanyInfo(ctx context.Context, cik string) (*models.CompanyInfo, error)
	GetCompanyFilings(ctx context.Context, cik string, formTypes []string, limit int) ([]models.FilingReference, error)
	GetFilingDocument(ctx context.Context, cik string, filing models.FilingReference) (string, error)
	GetExhibit21(ctx context.Context, cik string, filing models.FilingReference) (string, error)
	GetForm4XML(ctx context.Context, cik string, filing models.FilingReference) (string, error)
}

// Client talks to SEC EDGAR with the mandatory User-Agent and the
// 10 requests/second fair-access limit.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	rateLimiter *rate.Limiter
	log         *slog.Logger

	// Endpoint bases, overridable in tests.
	baseURL     string
	archivesURL string
	searchURL   string
	tickersURL  string
}

// NewClient creates an EDGAR client. SEC rejects requests without a
// User-Agent identifying the caller ("Name email@example.com").
func NewClient(userAgent string, requestsPerSecond int, timeout time.Duration) (*Client, error) {
	if userAgent == "" || strings.Contains(strings.ToLower(userAgent), "example") {
		return nil, errors.Configf("SEC requires a valid User-Agent with your name and email, set SEC_EDGAR_USER_AGENT")
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent:   userAgent,
		rateLimiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		log:         logging.Component("edgar"),
		baseURL:     baseURL,
		archivesURL: archivesURL,
		searchURL:   fullTextSearchURL,
		tickersURL:  companyTickersURL,
	}, nil
}

// NormalizeCIK pads a CIK to the 10-digit form EDGAR URLs use.
func NormalizeCIK(cik string) string {
	clean := nonDigits.ReplaceAllString(cik, "")
	for len(clean) < 10 {
		clean = "0" + clean
	}
	return clean
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	// Accept-Encoding is left to the transport: setting it manually
	// disables net/http's transparent gzip decompression and the SEC
	// servers do compress.
	req.Header.Set("User-Agent", c.userAgent)

	c.log.Debug("requesting", "url", rawURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryTransient, "edgar request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryTransient, "read edgar response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Malformedf("edgar returned 404 for %s", rawURL)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, errors.Transientf(nil, "edgar returned %d for %s", resp.StatusCode, rawURL)
	default:
		return nil, errors.Malformedf("edgar returned %d for %s", resp.StatusCode, rawURL)
	}
}

// submissionsResponse mirrors the shape of data.sec.gov/submissions/CIK*.json.
type submissionsResponse struct {
	Name                 string   `json:"name"`
	Tickers              []string `json:"tickers"`
	SIC                  string   `json:"sic"`
	SICDescription       string   `json:"sicDescription"`
	StateOfIncorporation string   `json:"stateOfIncorporation"`
	FiscalYearEnd        string   `json:"fiscalYearEnd"`
	Filings              struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			Form            []string `json:"form"`
			FilingDate      []string `json:"filingDate"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// GetCompanyInfo fetches company metadata from the submissions index.
func (c *Client) GetCompanyInfo(ctx context.Context, cik string) (*models.CompanyInfo, error) {
	cik = NormalizeCIK(cik)
	body, err := c.get(ctx, fmt.Sprintf("%s/submissions/CIK%s.json", c.baseURL, cik))
	if err != nil {
		return nil, err
	}

	var sub submissionsResponse
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, errors.Wrap(err, errors.CategoryMalformed, "parse submissions json")
	}

	return &models.CompanyInfo{
		CIK:                  cik,
		Name:                 sub.Name,
		Tickers:              sub.Tickers,
		SIC:                  sub.SIC,
		SICDescription:       sub.SICDescription,
		StateOfIncorporation: sub.StateOfIncorporation,
		FiscalYearEnd:        sub.FiscalYearEnd,
	}, nil
}

// GetCompanyFilings lists recent filings for a company, filtered by form
// type. A form matches a requested type exactly or as an amendment of
// it, case-insensitively, so "8-K" also catches "8-K/A".
func (c *Client) GetCompanyFilings(ctx context.Context, cik string, formTypes []string, limit int) ([]models.FilingReference, error) {
	cik = NormalizeCIK(cik)
	body, err := c.get(ctx, fmt.Sprintf("%s/submissions/CIK%s.json", c.baseURL, cik))
	if err != nil {
		return nil, err
	}

	var sub submissionsResponse
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, errors.Wrap(err, errors.CategoryMalformed, "parse submissions json")
	}

	recent := sub.Filings.Recent
	var filings []models.FilingReference
	for i, accession := range recent.AccessionNumber {
		form := ""
		if i < len(recent.Form) {
			form = recent.Form[i]
		}
		if len(formTypes) > 0 && !matchesForm(form, formTypes) {
			continue
		}

		ref := models.FilingReference{
			AccessionNumber: accession,
			CIK:             cik,
			FormType:        form,
		}
		if i < len(recent.FilingDate) {
			ref.FilingDate = recent.FilingDate[i]
		}
		if i < len(recent.PrimaryDocument) {
			ref.PrimaryDocument = recent.PrimaryDocument[i]
		}
		ref.DocumentURL = fmt.Sprintf("%s/%s/%s/%s", c.archivesURL, cik, ref.AccessionNoDash(), ref.PrimaryDocument)
		filings = append(filings, ref)

		if limit > 0 && len(filings) >= limit {
			break
		}
	}

	return filings, nil
}

func matchesForm(form string, formTypes []string) bool {
	upper := strings.ToUpper(strings.TrimSpace(form))
	for _, ft := range formTypes {
		want := strings.ToUpper(ft)
		if upper == want || strings.HasPrefix(upper, want+"/") {
			return true
		}
	}
	return false
}

// GetFilingDocument fetches the primary document content for a filing.
func (c *Client) GetFilingDocument(ctx context.Context, cik string, filing models.FilingReference) (string, error) {
	cik = NormalizeCIK(cik)
	u := fmt.Sprintf("%s/%s/%s/%s", c.archivesURL, cik, filing.AccessionNoDash(), filing.PrimaryDocument)
	body, err := c.get(ctx, u)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

type filingIndex struct {
	Directory struct {
		Item []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"item"`
	} `json:"directory"`
}

func (c *Client) getFilingIndex(ctx context.Context, cik string, filing models.FilingReference) (*filingIndex, error) {
	u := fmt.Sprintf("%s/%s/%s/index.json", c.archivesURL, cik, filing.AccessionNoDash())
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	var idx filingIndex
	if err := json.Unmarshal(body, &idx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryMalformed, "parse filing index")
	}
	return &idx, nil
}

// GetExhibit21 fetches the subsidiaries exhibit from a 10-K filing.
// Returns an empty string when the filing has no Exhibit 21.
func (c *Client) GetExhibit21(ctx context.Context, cik string, filing models.FilingReference) (string, error) {
	cik = NormalizeCIK(cik)
	idx, err := c.getFilingIndex(ctx, cik, filing)
	if err != nil {
		c.log.Warn("could not fetch filing index", "accession", filing.AccessionNumber, "error", err)
		return "", nil
	}

	var exhibitDoc string
	for _, item := range idx.Directory.Item {
		name := strings.ToLower(item.Name)
		desc := strings.ToLower(item.Description)
		if strings.Contains(name, "ex21") || strings.Contains(name, "ex-21") || strings.Contains(name, "exhibit21") {
			exhibitDoc = item.Name
			break
		}
		if strings.Contains(name, "21") && (strings.Contains(desc, "exhibit") || strings.Contains(desc, "subsidiaries")) {
			exhibitDoc = item.Name
			break
		}
	}
	if exhibitDoc == "" {
		c.log.Debug("no exhibit 21 in filing", "accession", filing.AccessionNumber)
		return "", nil
	}

	u := fmt.Sprintf("%s/%s/%s/%s", c.archivesURL, cik, filing.AccessionNoDash(), exhibitDoc)
	body, err := c.get(ctx, u)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetForm4XML fetches the raw XML document of a Form 4. The primary
// document is often the XSLT-rendered HTML; the raw XML is a sibling
// file in the filing index. Returns an empty string when none is found.
func (c *Client) GetForm4XML(ctx context.Context, cik string, filing models.FilingReference) (string, error) {
	cik = NormalizeCIK(cik)
	idx, err := c.getFilingIndex(ctx, cik, filing)
	if err != nil {
		c.log.Warn("could not fetch form 4 index", "accession", filing.AccessionNumber, "error", err)
		return "", nil
	}

	for _, item := range idx.Directory.Item {
		name := item.Name
		if strings.HasSuffix(name, ".xml") && !strings.Contains(strings.ToLower(name), "index") {
			u := fmt.Sprintf("%s/%s/%s/%s", c.archivesURL, cik, filing.AccessionNoDash(), name)
			body, err := c.get(ctx, u)
			if err != nil {
				return "", err
			}
			return string(body), nil
		}
	}
	return "", nil
}

// CompanySearchResult is a match from the SEC company ticker directory.
type CompanySearchResult struct {
	CIK    string
	Name   string
	Ticker string
}

// SearchCompanies searches the SEC company directory by name or ticker.
// Results are scored: exact ticker matches rank highest, then name
// prefixes, then substring matches.
func (c *Client) SearchCompanies(ctx context.Context, query string, limit int) ([]CompanySearchResult, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	body, err := c.get(ctx, c.tickersURL)
	if err != nil {
		return nil, err
	}

	var entries map[string]struct {
		CIK    json.Number `json:"cik_str"`
		Ticker string      `json:"ticker"`
		Title  string      `json:"title"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, errors.Wrap(err, errors.CategoryMalformed, "parse company tickers")
	}

	type scored struct {
		score  int
		result CompanySearchResult
	}
	var matches []scored

	for _, entry := range entries {
		name := strings.ToLower(entry.Title)
		ticker := strings.ToLower(entry.Ticker)

		score := 0
		switch {
		case ticker == query:
			score = 1000
		case ticker != "" && strings.HasPrefix(ticker, query):
			score = 500
		case name == query:
			score = 400
		case strings.HasPrefix(name, query):
			score = 300
		case wordPrefixMatch(name, query):
			score = 200
		case strings.Contains(name, query):
			score = 100
		case strings.Contains(ticker, query):
			score = 50
		}
		if score == 0 {
			continue
		}

		matches = append(matches, scored{
			score: score,
			result: CompanySearchResult{
				CIK:    NormalizeCIK(entry.CIK.String()),
				Name:   entry.Title,
				Ticker: entry.Ticker,
			},
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].result.Name < matches[j].result.Name
	})

	if limit <= 0 || limit > len(matches) {
		limit = len(matches)
	}
	results := make([]CompanySearchResult, 0, limit)
	for _, m := range matches[:limit] {
		results = append(results, m.result)
	}
	return results, nil
}

func wordPrefixMatch(name, query string) bool {
	for _, word := range strings.Fields(name) {
		if strings.HasPrefix(word, query) {
			return true
		}
	}
	return false
}

// RecentFiler identifies a company discovered through full-text search.
type RecentFiler struct {
	CIK  string
	Name string
}

var (
	cikSuffix    = regexp.MustCompile(`\s*\(CIK[^)]*\)`)
	tickerSuffix = regexp.MustCompile(`\s*\([A-Z0-9,\s]+\)\s*$`)
)

// GetRecent8KFilers discovers companies that filed 8-Ks in the last
// daysBack days, via the EFTS full-text search, paginating all results.
func (c *Client) GetRecent8KFilers(ctx context.Context, daysBack int) ([]RecentFiler, error) {
	if daysBack <= 0 {
		daysBack = 3
	}
	today := time.Now()
	startDate := today.AddDate(0, 0, -daysBack).Format("2006-01-02")
	endDate := today.Format("2006-01-02")

	seen := make(map[string]string)
	var order []string

	for from := 0; ; from += 100 {
		params := url.Values{}
		params.Set("forms", "8-K")
		params.Set("dateRange", "custom")
		params.Set("startdt", startDate)
		params.Set("enddt", endDate)
		params.Set("from", fmt.Sprintf("%d", from))

		body, err := c.get(ctx, c.searchURL+"?"+params.Encode())
		if err != nil {
			c.log.Warn("efts search failed", "error", err)
			break
		}

		var result struct {
			Hits struct {
				Hits []struct {
					Source struct {
						CIKs         []string `json:"ciks"`
						DisplayNames []string `json:"display_names"`
					} `json:"_source"`
				} `json:"hits"`
			} `json:"hits"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			c.log.Warn("efts response malformed", "error", err)
			break
		}

		hits := result.Hits.Hits
		if len(hits) == 0 {
			break
		}

		for _, hit := range hits {
			for i, cik := range hit.Source.CIKs {
				if _, ok := seen[cik]; ok {
					continue
				}
				name := ""
				if i < len(hit.Source.DisplayNames) {
					name = cikSuffix.ReplaceAllString(hit.Source.DisplayNames[i], "")
					name = strings.TrimSpace(tickerSuffix.ReplaceAllString(name, ""))
				}
				if name == "" {
					name = "CIK " + cik
				}
				seen[cik] = name
				order = append(order, cik)
			}
		}

		if len(hits) < 100 {
			break
		}
	}

	c.log.Info("efts discovery complete", "filers", len(order), "days_back", daysBack)
	filers := make([]RecentFiler, 0, len(order))
	for _, cik := range order {
		filers = append(filers, RecentFiler{CIK: cik, Name: seen[cik]})
	}
	return filers, nil
}
