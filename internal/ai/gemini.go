package ai

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// DefaultGeminiTimeout bounds one completion request.
const DefaultGeminiTimeout = 120 * time.Second

// GeminiProvider implements LLMProvider using the Gemini API.
type GeminiProvider struct {
	client  *genai.Client
	timeout time.Duration
	logger  arbor.ILogger
}

// NewGeminiProvider creates a Gemini provider. The API key is required.
func NewGeminiProvider(ctx context.Context, apiKey string, logger arbor.ILogger) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, models.Errorf(models.ErrMissingConfig, "gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, models.NewWorkerError(models.ErrMissingConfig, err)
	}
	return &GeminiProvider{
		client:  client,
		timeout: DefaultGeminiTimeout,
		logger:  logger,
	}, nil
}

func (p *GeminiProvider) ProviderName() string { return "gemini" }

// GenerateContent runs one completion against the configured model.
func (p *GeminiProvider) GenerateContent(ctx context.Context, req *interfaces.ContentRequest) (*interfaces.ContentResponse, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
		})
	}

	config := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(req.Temperature)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	start := time.Now()
	resp, err := p.client.Models.GenerateContent(timeoutCtx, req.Model, contents, config)
	if err != nil {
		return nil, classifyProviderError("gemini", err)
	}

	var text strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					text.WriteString(part.Text)
				}
			}
			if text.Len() > 0 {
				break
			}
		}
	}
	if text.Len() == 0 {
		return nil, models.Errorf(models.ErrParse, "gemini returned no text content")
	}

	out := &interfaces.ContentResponse{
		Text:     text.String(),
		Model:    req.Model,
		Provider: p.ProviderName(),
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	p.logger.Debug().
		Str("model", req.Model).
		Int("input_tokens", out.InputTokens).
		Int("output_tokens", out.OutputTokens).
		Dur("duration", time.Since(start)).
		Msg("Gemini completion finished")
	return out, nil
}

func (p *GeminiProvider) Close() error { return nil }
