package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// Per-million-token prices used for budget accounting. CLI agents are
// local and free.
var costRates = map[string]struct{ input, output float64 }{
	"claude": {3.00, 15.00},
	"gemini": {0.30, 2.50},
	"cli":    {0, 0},
}

// costCounterKey returns the per-kind daily cost counter key (micro-USD).
func costCounterKey(taskKind string, day time.Time) string {
	return fmt.Sprintf("counter:ai-cost-microusd:%s:%s", taskKind, day.UTC().Format("2006-01-02"))
}

// Manager routes the AI task kinds to their configured agents,
// enforcing token and cost budgets and owning the single repair retry on
// parse failures. Providers are created lazily and cached per
// provider/interface/model triple.
type Manager struct {
	settings func() *models.AISettings
	aiCfg    *common.AIConfig
	kv       interfaces.KeyValueStorage
	logger   arbor.ILogger

	mu        sync.Mutex
	providers map[string]interfaces.LLMProvider
	now       func() time.Time
}

// NewManager creates the agent manager. settings is read per run so policy
// reloads take effect without restart.
func NewManager(settings func() *models.AISettings, aiCfg *common.AIConfig, kv interfaces.KeyValueStorage, logger arbor.ILogger) *Manager {
	return &Manager{
		settings:  settings,
		aiCfg:     aiCfg,
		kv:        kv,
		logger:    logger,
		providers: make(map[string]interfaces.LLMProvider),
		now:       time.Now,
	}
}

// Close releases all cached providers.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.providers {
		_ = p.Close()
	}
	m.providers = make(map[string]interfaces.LLMProvider)
	return nil
}

func (m *Manager) providerFor(ctx context.Context, agent models.AgentConfig) (interfaces.LLMProvider, error) {
	key := providerKey(agent)
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.providers[key]; ok {
		return p, nil
	}
	p, err := NewProvider(ctx, agent, m.aiCfg, m.logger)
	if err != nil {
		return nil, err
	}
	m.providers[key] = p
	return p, nil
}

// companyExtraction mirrors the company_extraction response schema.
type companyExtraction struct {
	About                string   `json:"about"`
	Culture              string   `json:"culture"`
	Mission              string   `json:"mission"`
	Industry             string   `json:"industry"`
	Website              string   `json:"website"`
	HeadquartersLocation string   `json:"headquarters_location"`
	Founded              string   `json:"founded"`
	EmployeeCount        int      `json:"employee_count"`
	IsRemoteFirst        bool     `json:"is_remote_first"`
	AIMLFocus            bool     `json:"ai_ml_focus"`
	Products             []string `json:"products"`
	TechStack            []string `json:"tech_stack"`
}

// ExtractCompany runs company_extraction and maps the answer onto a
// company record keyed by the normalized name.
func (m *Manager) ExtractCompany(ctx context.Context, taskID string, input *interfaces.CompanyExtractionInput) (*models.Company, *interfaces.AIResult, error) {
	system, user := BuildCompanyExtractionPrompt(input)

	var extracted companyExtraction
	result, err := m.run(ctx, models.AITaskCompanyExtraction, taskID, system, user, &extracted)
	if err != nil {
		return nil, result, err
	}

	company := &models.Company{
		Name:                 models.NormalizeCompanyName(input.CompanyName),
		DisplayName:          input.CompanyName,
		Website:              extracted.Website,
		About:                extracted.About,
		Culture:              extracted.Culture,
		Mission:              extracted.Mission,
		Industry:             extracted.Industry,
		Founded:              extracted.Founded,
		HeadquartersLocation: extracted.HeadquartersLocation,
		EmployeeCount:        extracted.EmployeeCount,
		SizeCategory:         models.SizeCategoryForCount(extracted.EmployeeCount),
		IsRemoteFirst:        extracted.IsRemoteFirst,
		AIMLFocus:            extracted.AIMLFocus,
		Products:             extracted.Products,
		TechStack:            extracted.TechStack,
	}
	return company, result, nil
}

// ExtractJob runs job_extraction.
func (m *Manager) ExtractJob(ctx context.Context, taskID string, input *interfaces.JobExtractionInput) (*models.JobExtraction, *interfaces.AIResult, error) {
	system, user := BuildJobExtractionPrompt(input)

	var extraction models.JobExtraction
	result, err := m.run(ctx, models.AITaskJobExtraction, taskID, system, user, &extraction)
	if err != nil {
		return nil, result, err
	}
	return &extraction, result, nil
}

// AnalyzeMatch runs match_analysis.
func (m *Manager) AnalyzeMatch(ctx context.Context, taskID string, input *interfaces.MatchAnalysisInput) (*models.MatchAnalysis, *interfaces.AIResult, error) {
	system, user := BuildMatchAnalysisPrompt(input)

	var analysis models.MatchAnalysis
	result, err := m.run(ctx, models.AITaskMatchAnalysis, taskID, system, user, &analysis)
	if err != nil {
		return nil, result, err
	}
	if analysis.MatchScore < 0 {
		analysis.MatchScore = 0
	}
	if analysis.MatchScore > 100 {
		analysis.MatchScore = 100
	}
	result.Reasoning = analysis.Reasoning
	return &analysis, result, nil
}

// ProposeSelectors runs selector_discovery over a careers-page HTML sample.
func (m *Manager) ProposeSelectors(ctx context.Context, taskID string, input *interfaces.SelectorDiscoveryInput) (*interfaces.SelectorProposal, *interfaces.AIResult, error) {
	system, user := BuildSelectorDiscoveryPrompt(input)

	var proposal interfaces.SelectorProposal
	result, err := m.run(ctx, models.AITaskSelectorDiscovery, taskID, system, user, &proposal)
	if err != nil {
		return nil, result, err
	}
	return &proposal, result, nil
}

// run executes one agent invocation: budget gate, generation, strict JSON
// parse with one repair retry, cost accounting. The returned AIResult is
// non-nil for every outcome that reached routing, so callers can persist
// the audit record even on failure.
func (m *Manager) run(ctx context.Context, taskKind, taskID, system, user string, out interface{}) (*interfaces.AIResult, error) {
	settings := m.settings()
	agent, ok := settings.AgentFor(taskKind)
	if !ok {
		return nil, models.Errorf(models.ErrMissingConfig, "no agent configured for %s", taskKind)
	}

	result := &interfaces.AIResult{
		TaskKind: taskKind,
		Status:   interfaces.AIResultOK,
		Provider: agent.Provider,
		Model:    agent.Model,
	}

	estimated := EstimateTokens(system) + EstimateTokens(user)
	if estimated > agent.MaxTokens {
		result.Status = interfaces.AIResultFailedBudget
		return result, models.Errorf(models.ErrBudgetExhausted, "%s input estimate %d tokens exceeds agent budget %d", taskKind, estimated, agent.MaxTokens)
	}

	if agent.MaxCostUSD > 0 {
		spent, err := m.kv.GetCounter(ctx, costCounterKey(taskKind, m.now()))
		if err != nil {
			return result, fmt.Errorf("cost counter read: %w", err)
		}
		if float64(spent)/1e6 >= agent.MaxCostUSD {
			result.Status = interfaces.AIResultFailedBudget
			return result, models.Errorf(models.ErrBudgetExhausted, "%s daily cost budget %.2f USD exhausted", taskKind, agent.MaxCostUSD)
		}
	}

	provider, err := m.providerFor(ctx, agent)
	if err != nil {
		return result, err
	}

	req := &interfaces.ContentRequest{
		Messages:    []interfaces.Message{{Role: "user", Content: user}},
		Model:       agent.Model,
		Temperature: settings.Temperature,
		MaxTokens:   agent.MaxTokens,
		System:      system,
	}

	resp, err := provider.GenerateContent(ctx, req)
	if err != nil {
		return result, err
	}
	m.recordUsage(ctx, result, agent, resp)

	cleaned := StripJSONFences(resp.Text)
	if parseErr := json.Unmarshal([]byte(cleaned), out); parseErr != nil {
		m.logger.Warn().
			Str("task_id", taskID).
			Str("task_kind", taskKind).
			Err(parseErr).
			Msg("Agent answer unparseable, attempting repair")

		req.Messages = append(req.Messages,
			interfaces.Message{Role: "assistant", Content: resp.Text},
			interfaces.Message{Role: "user", Content: repairPrompt(resp.Text)},
		)
		repaired, rerr := provider.GenerateContent(ctx, req)
		if rerr != nil {
			result.Status = interfaces.AIResultFailedParse
			return result, rerr
		}
		m.recordUsage(ctx, result, agent, repaired)

		cleaned = StripJSONFences(repaired.Text)
		if parseErr = json.Unmarshal([]byte(cleaned), out); parseErr != nil {
			result.Status = interfaces.AIResultFailedParse
			return result, models.NewWorkerError(models.ErrParse, fmt.Errorf("%s answer unparseable after repair: %w", taskKind, parseErr))
		}
	}

	result.Content = json.RawMessage(cleaned)
	m.logger.Info().
		Str("task_id", taskID).
		Str("task_kind", taskKind).
		Str("provider", result.Provider).
		Str("model", result.Model).
		Int("input_tokens", result.InputTokens).
		Int("output_tokens", result.OutputTokens).
		Float64("cost_usd", result.CostUSD).
		Msg("Agent run complete")
	return result, nil
}

// recordUsage accumulates token and cost totals on the result and in the
// daily cost counter.
func (m *Manager) recordUsage(ctx context.Context, result *interfaces.AIResult, agent models.AgentConfig, resp *interfaces.ContentResponse) {
	result.InputTokens += resp.InputTokens
	result.OutputTokens += resp.OutputTokens

	rates, ok := costRates[resp.Provider]
	if !ok {
		return
	}
	cost := float64(resp.InputTokens)/1e6*rates.input + float64(resp.OutputTokens)/1e6*rates.output
	result.CostUSD += cost

	if cost > 0 {
		if _, err := m.kv.IncrementCounter(ctx, costCounterKey(result.TaskKind, m.now()), int64(cost*1e6)); err != nil {
			m.logger.Warn().Err(err).Msg("Cost counter update failed")
		}
	}
}
