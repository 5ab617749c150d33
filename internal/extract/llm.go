package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/corpintel/edgargraph/internal/llm"
	"github.com/corpintel/edgargraph/internal/logging"
	"github.com/corpintel/edgargraph/internal/models"
)

const llmSystemPrompt = "You extract structured facts from SEC filings. " +
	"Respond with valid JSON only, no markdown formatting, no explanation."

const ownershipPrompt = `Extract all beneficial ownership information from this SEC filing.

For each owner, extract:
- owner_name: Full name of the beneficial owner
- owner_type: "person" or "company"
- shares_owned: Number of shares owned (integer, or null if not specified)
- percentage: Ownership percentage (float between 0-100, or null if not specified)
- is_direct: true if direct ownership, false if indirect
- source_text: the original text this came from

Return a JSON object:
{"owners": [{"owner_name": "...", "owner_type": "person", "shares_owned": 1000000, "percentage": 5.5, "is_direct": true, "source_text": "..."}], "confidence": 0.95}

Only include owners with specific ownership data. Set confidence based on data clarity.`

const officerPrompt = `Extract all executive officers and directors from this SEC proxy statement (DEF 14A).

For each person, extract:
- name: Full name
- title: Job title or position (e.g., "Chief Executive Officer", "Director")
- is_director: true if they serve on the board of directors
- is_officer: true if they are an executive officer
- is_executive: true if they are a named executive officer
- age: Age if specified (integer or null)
- source_text: the original text this came from

Return a JSON object:
{"officers": [{"name": "John Smith", "title": "Chief Executive Officer", "is_director": true, "is_officer": true, "is_executive": true, "age": 55, "source_text": "..."}], "confidence": 0.95}

Include all officers and directors. Set confidence based on data clarity.`

const subsidiaryPrompt = `Extract all subsidiary companies from this SEC 10-K Exhibit 21.

For each subsidiary, extract:
- name: Full legal name of the subsidiary
- jurisdiction: State or country of incorporation (e.g., "Delaware", "Cayman Islands")
- ownership_percentage: Ownership percentage if specified (float 0-100, or null)
- is_wholly_owned: true if 100% owned or described as "wholly owned"
- source_text: the original text this came from

Return a JSON object:
{"subsidiaries": [{"name": "Subsidiary Corp", "jurisdiction": "Delaware", "ownership_percentage": 100.0, "is_wholly_owned": true, "source_text": "..."}], "confidence": 0.95}

Include all subsidiaries listed. Set confidence based on data clarity.`

// LLMExtractor extracts candidates with an LLM when rule-based parsing
// finds nothing. It degrades gracefully: a disabled client or a
// malformed response yields no candidates, never an error surfaced past
// the log.
type LLMExtractor struct {
	client *llm.Client
	kind   models.CandidateKind
	log    *slog.Logger
}

// NewLLMExtractor builds an extractor for one candidate kind. Supported
// kinds: ownership, officer, subsidiary.
func NewLLMExtractor(client *llm.Client, kind models.CandidateKind) *LLMExtractor {
	return &LLMExtractor{
		client: client,
		kind:   kind,
		log:    logging.Component("extract.llm"),
	}
}

func (e *LLMExtractor) Extract(ctx context.Context, content string, ref models.FilingReference) ([]models.Candidate, error) {
	if e.client == nil || !e.client.IsEnabled() {
		return nil, nil
	}

	text := truncate(stripHTML(content), maxLLMInput)

	var prompt string
	switch e.kind {
	case models.KindOwnership:
		prompt = ownershipPrompt
	case models.KindOfficer:
		prompt = officerPrompt
	case models.KindSubsidiary:
		prompt = subsidiaryPrompt
	default:
		return nil, nil
	}

	response, err := e.client.CompleteJSON(ctx, llmSystemPrompt, prompt+"\n\nTEXT TO EXTRACT FROM:\n---\n"+text+"\n---")
	if err != nil {
		e.log.Warn("llm extraction failed", "accession", ref.AccessionNumber, "error", err)
		return nil, err
	}

	switch e.kind {
	case models.KindOwnership:
		return e.parseOwnershipResponse(response, ref), nil
	case models.KindOfficer:
		return e.parseOfficerResponse(response, ref), nil
	default:
		return e.parseSubsidiaryResponse(response, ref), nil
	}
}

func (e *LLMExtractor) parseOwnershipResponse(response string, ref models.FilingReference) []models.Candidate {
	var parsed struct {
		Owners []struct {
			OwnerName   string   `json:"owner_name"`
			OwnerType   string   `json:"owner_type"`
			SharesOwned *int64   `json:"shares_owned"`
			Percentage  *float64 `json:"percentage"`
			IsDirect    *bool    `json:"is_direct"`
			SourceText  string   `json:"source_text"`
		} `json:"owners"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		e.log.Warn("llm response is not valid json", "accession", ref.AccessionNumber, "error", err)
		return nil
	}

	confidence := llmConfidence(parsed.Confidence)
	var candidates []models.Candidate
	for _, owner := range parsed.Owners {
		if owner.OwnerName == "" {
			continue
		}
		fact := &models.OwnershipFact{
			OwnerName:     owner.OwnerName,
			OwnerIsEntity: owner.OwnerType == "company",
			IsBeneficial:  true,
			IsDirect:      true,
			AsOfDate:      ref.FilingDate,
		}
		if owner.SharesOwned != nil {
			fact.SharesOwned = *owner.SharesOwned
		}
		if owner.Percentage != nil {
			fact.Percentage = *owner.Percentage
		}
		if owner.IsDirect != nil {
			fact.IsDirect = *owner.IsDirect
		}
		candidates = append(candidates, models.Candidate{
			Kind:        models.KindOwnership,
			Method:      models.MethodLLM,
			Confidence:  confidence,
			ExtractedAt: time.Now().UTC(),
			SubjectCIK:  ref.CIK,
			Citation: models.SourceCitation{
				Filing:  ref,
				RawText: truncate(owner.SourceText, maxSnippetLength),
			},
			Ownership: fact,
		})
	}
	return candidates
}

func (e *LLMExtractor) parseOfficerResponse(response string, ref models.FilingReference) []models.Candidate {
	var parsed struct {
		Officers []struct {
			Name        string `json:"name"`
			Title       string `json:"title"`
			IsDirector  bool   `json:"is_director"`
			IsOfficer   bool   `json:"is_officer"`
			IsExecutive bool   `json:"is_executive"`
			Age         *int   `json:"age"`
			SourceText  string `json:"source_text"`
		} `json:"officers"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		e.log.Warn("llm response is not valid json", "accession", ref.AccessionNumber, "error", err)
		return nil
	}

	confidence := llmConfidence(parsed.Confidence)
	var candidates []models.Candidate
	for _, officer := range parsed.Officers {
		name := CleanPersonName(officer.Name)
		// The model hallucinates product names and section headers as
		// people; the same validation as the rule-based path applies.
		if !IsValidPersonName(name) {
			e.log.Debug("llm returned invalid name, skipping", "name", officer.Name)
			continue
		}

		isDirector := officer.IsDirector
		isOfficer := officer.IsOfficer
		isExecutive := officer.IsExecutive
		if officer.Title != "" && !isDirector && !isOfficer {
			isDirector, isOfficer, isExecutive = classifyRole(officer.Title)
		}
		if !isDirector && !isOfficer {
			continue
		}

		age := 0
		if officer.Age != nil {
			age = *officer.Age
		}

		c := makePersonCandidate(ref, name, officer.Title, age,
			isDirector, isOfficer, isExecutive,
			confidence, "", "", truncate(officer.SourceText, maxSnippetLength))
		c.Method = models.MethodLLM
		candidates = append(candidates, c)
	}
	return candidates
}

func (e *LLMExtractor) parseSubsidiaryResponse(response string, ref models.FilingReference) []models.Candidate {
	var parsed struct {
		Subsidiaries []struct {
			Name                string   `json:"name"`
			Jurisdiction        string   `json:"jurisdiction"`
			OwnershipPercentage *float64 `json:"ownership_percentage"`
			IsWhollyOwned       bool     `json:"is_wholly_owned"`
			SourceText          string   `json:"source_text"`
		} `json:"subsidiaries"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		e.log.Warn("llm response is not valid json", "accession", ref.AccessionNumber, "error", err)
		return nil
	}

	confidence := llmConfidence(parsed.Confidence)
	var candidates []models.Candidate
	for _, sub := range parsed.Subsidiaries {
		if sub.Name == "" {
			continue
		}
		fact := &models.SubsidiaryFact{
			Name:          sub.Name,
			Jurisdiction:  normalizeJurisdiction(sub.Jurisdiction),
			IsWhollyOwned: sub.IsWhollyOwned,
		}
		if sub.OwnershipPercentage != nil {
			fact.Percentage = *sub.OwnershipPercentage
		}
		candidates = append(candidates, models.Candidate{
			Kind:        models.KindSubsidiary,
			Method:      models.MethodLLM,
			Confidence:  confidence,
			ExtractedAt: time.Now().UTC(),
			SubjectCIK:  ref.CIK,
			Citation: models.SourceCitation{
				Filing:  ref,
				Section: "Exhibit 21 - Subsidiaries",
				RawText: truncate(sub.SourceText, maxSnippetLength),
			},
			Subsidiary: fact,
		})
	}
	return candidates
}

// llmConfidence clamps a self-reported confidence, defaulting to 0.85
// when the model omitted it.
func llmConfidence(v float64) float64 {
	if v <= 0 || v > 1 {
		return 0.85
	}
	return v
}
