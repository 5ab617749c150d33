package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpintel/edgargraph/internal/config"
	"github.com/corpintel/edgargraph/internal/errors"
)

func clientFor(provider, anthropicKey, openaiKey string) *Client {
	cfg := config.Default()
	cfg.LLM.Provider = provider
	cfg.LLM.AnthropicKey = anthropicKey
	cfg.LLM.OpenAIKey = openaiKey
	return NewClient(cfg, nil)
}

func TestNewClientProviderSelection(t *testing.T) {
	assert.False(t, clientFor("none", "", "").IsEnabled())
	assert.False(t, clientFor("", "", "").IsEnabled())

	// Provider selected but no key: disabled, not an error.
	assert.False(t, clientFor("anthropic", "", "").IsEnabled())
	assert.False(t, clientFor("openai", "", "").IsEnabled())

	c := clientFor("anthropic", "sk-ant-test", "")
	assert.True(t, c.IsEnabled())
	assert.Equal(t, ProviderAnthropic, c.GetProvider())

	c = clientFor("openai", "", "sk-test")
	assert.True(t, c.IsEnabled())
	assert.Equal(t, ProviderOpenAI, c.GetProvider())

	assert.False(t, clientFor("cohere", "", "").IsEnabled())
}

func TestCompleteDisabledClient(t *testing.T) {
	c := clientFor("none", "", "")
	_, err := c.Complete(context.Background(), "system", "user")
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfig, errors.CategoryOf(err))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, StripCodeFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripCodeFences("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripCodeFences(`{"a": 1}`))
	assert.Equal(t, `{"a": 1}`, StripCodeFences("  {\"a\": 1}  "))
}

func TestEstimateTokens(t *testing.T) {
	// Floor of chars/4 plus the completion budget.
	assert.Equal(t, int64(maxCompletionTokens+2), estimateTokens("12345678"))
	assert.Equal(t, int64(maxCompletionTokens), estimateTokens())
}
