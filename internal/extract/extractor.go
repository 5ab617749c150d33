package extract

import (
	"context"

	"github.com/corpintel/edgargraph/internal/models"
)

const (
	// RuleBasedConfidence is assigned to candidates from verified table
	// parses. Heuristic text parses get lower values.
	RuleBasedConfidence = 0.95

	// maxSnippetLength bounds citation snippets stored with candidates.
	maxSnippetLength = 300

	// maxLLMInput bounds the text handed to the LLM extractor.
	maxLLMInput = 30000
)

// Extractor proposes candidate facts from one filing document. Malformed
// or unrecognized content yields an empty slice, never an error; errors
// are reserved for infrastructure failures (LLM transport, context
// cancellation).
type Extractor interface {
	Extract(ctx context.Context, content string, ref models.FilingReference) ([]models.Candidate, error)
}
