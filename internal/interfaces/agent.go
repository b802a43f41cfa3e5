package interfaces

import (
	"context"
	"encoding/json"

	"github.com/ternarybob/venari/internal/models"
)

// AIResultStatus is the outcome class of one agent run.
type AIResultStatus string

const (
	AIResultOK           AIResultStatus = "ok"
	AIResultFailedBudget AIResultStatus = "failed_budget"
	AIResultFailedParse  AIResultStatus = "failed_parse"
)

// AIResult is the structured output of one agent run, stored alongside the
// record it enriched. Reasoning is audit-only and never replayed.
type AIResult struct {
	TaskKind     string          `json:"task_kind"`
	Status       AIResultStatus  `json:"status"`
	Content      json.RawMessage `json:"content,omitempty"`
	Reasoning    string          `json:"reasoning,omitempty"`
	Provider     string          `json:"provider"`
	Model        string          `json:"model"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
	CostUSD      float64         `json:"cost_usd"`
}

// CompanyExtractionInput is the prompt context for company_extraction.
type CompanyExtractionInput struct {
	CompanyName string
	SearchText  string
	WikiText    string
	PageSample  string
}

// JobExtractionInput is the prompt context for job_extraction.
type JobExtractionInput struct {
	Title       string
	Description string
	Location    string
	URL         string
}

// SelectorDiscoveryInput is the prompt context for selector_discovery.
type SelectorDiscoveryInput struct {
	URL         string
	CompanyName string
	PageSample  string
}

// SelectorProposal is the agent's answer for selector_discovery: a CSS
// selector for the repeating job element plus per-field selectors relative
// to it.
type SelectorProposal struct {
	JobSelector string            `json:"job_selector"`
	Fields      map[string]string `json:"fields"`
}

// MatchAnalysisInput is the prompt context for match_analysis.
type MatchAnalysisInput struct {
	Listing            *models.JobListing
	Extraction         *models.JobExtraction
	Company            *models.Company
	Personal           *models.PersonalInfo
	DeterministicScore *models.ScoreBreakdown
}

// AgentService routes AI task kinds to configured agents under budget.
type AgentService interface {
	ExtractCompany(ctx context.Context, taskID string, input *CompanyExtractionInput) (*models.Company, *AIResult, error)
	ExtractJob(ctx context.Context, taskID string, input *JobExtractionInput) (*models.JobExtraction, *AIResult, error)
	AnalyzeMatch(ctx context.Context, taskID string, input *MatchAnalysisInput) (*models.MatchAnalysis, *AIResult, error)
	ProposeSelectors(ctx context.Context, taskID string, input *SelectorDiscoveryInput) (*SelectorProposal, *AIResult, error)
}
