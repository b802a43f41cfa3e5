package ai

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// NewProvider creates the LLMProvider for one agent config. The cli
// interface wins over the provider name: any provider can be driven
// through a local command.
func NewProvider(ctx context.Context, agent models.AgentConfig, aiCfg *common.AIConfig, logger arbor.ILogger) (interfaces.LLMProvider, error) {
	if agent.Interface == models.AgentInterfaceCLI {
		return NewCLIProvider(agent.Command, logger)
	}

	switch agent.Provider {
	case "claude", "anthropic":
		return NewClaudeProvider(aiCfg.AnthropicAPIKey, logger)
	case "gemini", "google":
		return NewGeminiProvider(ctx, aiCfg.GeminiAPIKey, logger)
	default:
		return nil, models.Errorf(models.ErrMissingConfig, "unsupported agent provider: %s", agent.Provider)
	}
}

// providerKey identifies a cached provider instance.
func providerKey(agent models.AgentConfig) string {
	return fmt.Sprintf("%s/%s/%s", agent.Provider, agent.Interface, agent.Model)
}
