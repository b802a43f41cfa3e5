package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// DefaultClaudeTimeout bounds one completion request.
const DefaultClaudeTimeout = 120 * time.Second

// ClaudeProvider implements LLMProvider using the Anthropic API.
type ClaudeProvider struct {
	client  anthropic.Client
	timeout time.Duration
	logger  arbor.ILogger
}

// NewClaudeProvider creates a Claude provider. The API key is required.
func NewClaudeProvider(apiKey string, logger arbor.ILogger) (*ClaudeProvider, error) {
	if apiKey == "" {
		return nil, models.Errorf(models.ErrMissingConfig, "anthropic api key is required")
	}
	return &ClaudeProvider{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		timeout: DefaultClaudeTimeout,
		logger:  logger,
	}, nil
}

func (p *ClaudeProvider) ProviderName() string { return "claude" }

// GenerateContent runs one completion. No retries here; the agent manager
// owns the single repair retry.
func (p *ClaudeProvider) GenerateContent(ctx context.Context, req *interfaces.ContentRequest) (*interfaces.ContentResponse, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msgs := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "assistant":
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  msgs,
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	start := time.Now()
	resp, err := p.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return nil, classifyProviderError("claude", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, models.Errorf(models.ErrParse, "claude returned no text content")
	}

	p.logger.Debug().
		Str("model", req.Model).
		Int64("input_tokens", resp.Usage.InputTokens).
		Int64("output_tokens", resp.Usage.OutputTokens).
		Dur("duration", time.Since(start)).
		Msg("Claude completion finished")

	return &interfaces.ContentResponse{
		Text:         text.String(),
		Model:        req.Model,
		Provider:     p.ProviderName(),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

func (p *ClaudeProvider) Close() error { return nil }

// classifyProviderError maps SDK errors onto the taxonomy by message
// inspection. SDK error types differ per provider; status text is stable
// enough for routing.
func classifyProviderError(provider string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "overloaded"):
		return models.NewWorkerError(models.ErrRateLimited, fmt.Errorf("%s: %w", provider, err))
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "invalid api key") || strings.Contains(msg, "authentication"):
		return models.NewWorkerError(models.ErrMissingConfig, fmt.Errorf("%s: %w", provider, err))
	case strings.Contains(msg, "400") || strings.Contains(msg, "invalid request"):
		return models.NewWorkerError(models.ErrPermanentSource, fmt.Errorf("%s: %w", provider, err))
	}
	return models.NewWorkerError(models.ErrTransientNetwork, fmt.Errorf("%s: %w", provider, err))
}
