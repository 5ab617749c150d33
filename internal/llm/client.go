package llm

import (
	"context"
	"log/slog"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sashabaranov/go-openai"

	"github.com/corpintel/edgargraph/internal/config"
	"github.com/corpintel/edgargraph/internal/errors"
	"github.com/corpintel/edgargraph/internal/logging"
)

// Provider identifies the LLM backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderNone      Provider = "none"
)

const (
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
	defaultOpenAIModel    = "gpt-4o"

	maxCompletionTokens = 4096
)

// Client is a multi-provider LLM client. When no API key is configured
// it degrades to a disabled client so rule-based extraction can still
// run without LLM assistance.
type Client struct {
	provider        Provider
	anthropicClient *sdk.Client
	openaiClient    *openai.Client
	model           string
	limiter         *RateLimiter
	log             *slog.Logger
}

// NewClient builds a client from config. limiter may be nil when no
// Redis is configured.
func NewClient(cfg *config.Config, limiter *RateLimiter) *Client {
	log := logging.Component("llm")

	c := &Client{
		provider: ProviderNone,
		limiter:  limiter,
		log:      log,
	}

	switch Provider(cfg.LLM.Provider) {
	case ProviderAnthropic:
		if cfg.LLM.AnthropicKey == "" {
			log.Warn("anthropic provider selected but no API key configured, LLM extraction disabled")
			return c
		}
		client := sdk.NewClient(option.WithAPIKey(cfg.LLM.AnthropicKey))
		c.provider = ProviderAnthropic
		c.anthropicClient = &client
		c.model = cfg.LLM.Model
		if c.model == "" {
			c.model = defaultAnthropicModel
		}
	case ProviderOpenAI:
		if cfg.LLM.OpenAIKey == "" {
			log.Warn("openai provider selected but no API key configured, LLM extraction disabled")
			return c
		}
		c.provider = ProviderOpenAI
		c.openaiClient = openai.NewClient(cfg.LLM.OpenAIKey)
		c.model = cfg.LLM.Model
		if c.model == "" {
			c.model = defaultOpenAIModel
		}
	case ProviderNone, Provider(""):
		log.Info("llm provider disabled")
		return c
	default:
		log.Warn("unknown llm provider, LLM extraction disabled", "provider", cfg.LLM.Provider)
		return c
	}

	log.Info("llm client initialized", "provider", c.provider, "model", c.model)
	return c
}

// IsEnabled reports whether a provider is configured and ready.
func (c *Client) IsEnabled() bool {
	return c.provider != ProviderNone
}

// GetProvider returns the active provider.
func (c *Client) GetProvider() Provider {
	return c.provider
}

// Complete sends a system and user prompt and returns the raw text
// response.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.IsEnabled() {
		return "", errors.Configf("llm client not enabled (set a provider and API key)")
	}

	if c.limiter != nil {
		if err := c.limiter.CheckAndIncrement(ctx, estimateTokens(systemPrompt, userPrompt)); err != nil {
			return "", err
		}
	}

	switch c.provider {
	case ProviderAnthropic:
		return c.completeAnthropic(ctx, systemPrompt, userPrompt)
	case ProviderOpenAI:
		return c.completeOpenAI(ctx, systemPrompt, userPrompt)
	default:
		return "", errors.Configf("no llm provider configured")
	}
}

// CompleteJSON sends the prompts and returns the response with any
// markdown code fences stripped, ready for json.Unmarshal.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	return StripCodeFences(resp), nil
}

func (c *Client) completeAnthropic(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	msg, err := c.anthropicClient.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: maxCompletionTokens,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(userPrompt)),
		},
		Temperature: sdk.Float(0.1),
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryTransient, "anthropic completion failed")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.Transientf(nil, "anthropic returned no text content")
	}

	c.log.Debug("anthropic completion",
		"model", c.model,
		"prompt_length", len(userPrompt),
		"response_length", text.Len(),
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens,
	)
	return text.String(), nil
}

func (c *Client) completeOpenAI(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.1,
		MaxTokens:   maxCompletionTokens,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryTransient, "openai completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.Transientf(nil, "openai returned no choices")
	}

	response := resp.Choices[0].Message.Content
	c.log.Debug("openai completion",
		"model", c.model,
		"prompt_length", len(userPrompt),
		"response_length", len(response),
		"tokens_used", resp.Usage.TotalTokens,
	)
	return response, nil
}

// StripCodeFences removes a surrounding ```json ... ``` fence if the
// model wrapped its output in one.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// estimateTokens gives a rough token count for rate limiting. Four
// characters per token overestimates slightly for prose, which is the
// safe direction.
func estimateTokens(prompts ...string) int64 {
	var chars int
	for _, p := range prompts {
		chars += len(p)
	}
	return int64(chars/4) + maxCompletionTokens
}
