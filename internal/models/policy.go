package models

// The five runtime policy blobs. Stored as JSON in the KV store under fixed
// keys, validated on load, and published to processors as immutable snapshots.

// Config blob keys.
const (
	PolicyKeyPrefilter      = "prefilter-policy"
	PolicyKeyMatch          = "match-policy"
	PolicyKeyWorkerSettings = "worker-settings"
	PolicyKeyAISettings     = "ai-settings"
	PolicyKeyPersonalInfo   = "personal-info"
)

// StrikeWeights are the per-issue strike increments for the soft filter.
type StrikeWeights struct {
	LowSalary         int `json:"low_salary" validate:"min=0"`
	LowExperience     int `json:"low_experience" validate:"min=0"`
	NonIdealSeniority int `json:"non_ideal_seniority" validate:"min=0"`
	MissingTechnology int `json:"missing_technology" validate:"min=0"`
	ShortDescription  int `json:"short_description" validate:"min=0"`
	PostingAge        int `json:"posting_age" validate:"min=0"`
}

// PrefilterPolicy drives the filter engine. The excluded lists are evaluated
// in struct order; the first matching hard rejection wins.
type PrefilterPolicy struct {
	ExcludedJobTypes     []string      `json:"excluded_job_types"`
	ExcludedSeniority    []string      `json:"excluded_seniority"`
	ExcludedCompanies    []string      `json:"excluded_companies"`
	ExcludedKeywords     []string      `json:"excluded_keywords"`
	ExcludedDomains      []string      `json:"excluded_domains"`
	RejectDays           int           `json:"reject_days" validate:"min=0"`
	AllowedArrangements  []string      `json:"allowed_arrangements"`
	MinSalaryFloor       int           `json:"min_salary_floor" validate:"min=0"`
	SalaryThreshold      int           `json:"salary_threshold" validate:"min=0"`
	RequiredTechnologies []string      `json:"required_technologies"`
	MinDescriptionLength int           `json:"min_description_length" validate:"min=0"`
	IdealSeniority       []string      `json:"ideal_seniority"`
	MinExperienceYears   int           `json:"min_experience_years" validate:"min=0"`
	Strikes              StrikeWeights `json:"strikes"`
	StrikeThreshold      int           `json:"strike_threshold" validate:"required,min=1"`
}

// SenioritySplit buckets seniority labels with per-bucket scores.
type SenioritySplit struct {
	Preferred       []string `json:"preferred" validate:"required,min=1"`
	PreferredScore  int      `json:"preferred_score"`
	Acceptable      []string `json:"acceptable"`
	AcceptableScore int      `json:"acceptable_score"`
	Rejected        []string `json:"rejected"`
}

// LocationWeights score remote/hybrid/onsite arrangements against the
// user's timezone.
type LocationWeights struct {
	RemoteScore         int     `json:"remote_score"`
	HybridScore         int     `json:"hybrid_score"`
	OnsitePenalty       int     `json:"onsite_penalty"`
	MaxTimezoneDiffHrs  float64 `json:"max_timezone_diff_hours" validate:"min=0"`
	TimezonePenaltyPerH int     `json:"timezone_penalty_per_hour" validate:"min=0"`
}

// SkillWeights drive the skill-match component.
type SkillWeights struct {
	Scores            map[string]int      `json:"scores" validate:"required,min=1"`
	Required          []string            `json:"required"`
	AnalogGroups      map[string][]string `json:"analog_groups"`
	AnalogCreditPct   int                 `json:"analog_credit_pct" validate:"min=0,max=100"`
	YearsMultiplier   float64             `json:"years_multiplier" validate:"min=0"`
	MaxYearsBonus     int                 `json:"max_years_bonus" validate:"min=0"`
	MissingReqPenalty int                 `json:"missing_required_penalty"`
	MaxBonus          int                 `json:"max_bonus" validate:"min=0"`
	MaxPenalty        int                 `json:"max_penalty" validate:"min=0"`
}

// CompanyWeights are per-company bonuses applied during scoring.
type CompanyWeights struct {
	RemoteFirstBonus int            `json:"remote_first_bonus"`
	AIMLFocusBonus   int            `json:"ai_ml_focus_bonus"`
	SizeBonuses      map[string]int `json:"size_bonuses"`
}

// MatchPolicy holds the deterministic scoring weights and the AI match
// threshold.
type MatchPolicy struct {
	MinScore       int             `json:"min_score" validate:"required"`
	MinMatchScore  int             `json:"min_match_score" validate:"required,min=0,max=100"`
	Seniority      SenioritySplit  `json:"seniority" validate:"required"`
	Location       LocationWeights `json:"location"`
	Skills         SkillWeights    `json:"skills" validate:"required"`
	TargetSalary   int             `json:"target_salary" validate:"min=0"`
	SalaryBonus    int             `json:"salary_bonus"`
	FreshDays      int             `json:"fresh_days" validate:"min=0"`
	FreshBonus     int             `json:"fresh_bonus"`
	StaleDays      int             `json:"stale_days" validate:"min=0"`
	StalePenalty   int             `json:"stale_penalty"`
	TitleKeywords  map[string]int  `json:"title_keywords"`
	Company        CompanyWeights  `json:"company"`
}

// WorkerSettings configure queue, retry, spawn and budget behavior.
type WorkerSettings struct {
	Concurrency              int     `json:"concurrency" validate:"required,min=1"`
	PollInterval             string  `json:"poll_interval" validate:"required"`
	VisibilityTimeout        string  `json:"visibility_timeout" validate:"required"`
	ProcessingTimeoutSeconds int     `json:"processing_timeout_seconds" validate:"required,min=1"`
	MaxRetries               int     `json:"max_retries" validate:"min=0"`
	MaxSpawnDepth            int     `json:"max_spawn_depth" validate:"required,min=1"`
	BackoffBaseSeconds       float64 `json:"backoff_base_seconds" validate:"required"`
	BackoffMaxSeconds        float64 `json:"backoff_max_seconds" validate:"required"`
	BackoffJitter            float64 `json:"backoff_jitter" validate:"min=0,max=1"`
	MaxCompanyWaitRetries    int     `json:"max_company_wait_retries" validate:"required,min=0"`
	CompanyWaitSeconds       float64 `json:"company_wait_seconds" validate:"min=0"`
	SourceFailDisable        int     `json:"source_fail_disable" validate:"required,min=1"`
	RescrapeSchedule         string  `json:"rescrape_schedule"`
	DailySearchCap           int     `json:"daily_search_cap" validate:"min=0"`
}

// AgentInterface selects how a model is invoked.
const (
	AgentInterfaceAPI = "api"
	AgentInterfaceCLI = "cli"
)

// AI task kinds served by the agent manager.
const (
	AITaskCompanyExtraction = "company_extraction"
	AITaskJobExtraction     = "job_extraction"
	AITaskMatchAnalysis     = "match_analysis"
	AITaskSelectorDiscovery = "selector_discovery"
)

// AgentConfig declares one agent's routing and budget.
type AgentConfig struct {
	Provider   string  `json:"provider" validate:"required"`
	Interface  string  `json:"interface" validate:"required,oneof=api cli"`
	Model      string  `json:"model" validate:"required"`
	Command    string  `json:"command,omitempty"` // cli interface only
	MaxTokens  int     `json:"max_tokens" validate:"required,min=1"`
	MaxCostUSD float64 `json:"max_cost_usd" validate:"min=0"`
}

// AISettings route the AI task kinds to configured agents.
type AISettings struct {
	Agents      map[string]AgentConfig `json:"agents" validate:"required,min=1,dive"`
	Temperature float32                `json:"temperature" validate:"min=0,max=2"`
}

// AgentFor returns the agent configured for an AI task kind.
func (s *AISettings) AgentFor(taskKind string) (AgentConfig, bool) {
	a, ok := s.Agents[taskKind]
	return a, ok
}

// SkillExperience is one user skill with years of experience.
type SkillExperience struct {
	Name  string  `json:"name" validate:"required"`
	Years float64 `json:"years" validate:"min=0"`
}

// PersonalInfo is the user profile jobs are scored against.
type PersonalInfo struct {
	Name             string            `json:"name" validate:"required"`
	TimezoneOffset   float64           `json:"timezone_offset"`
	Location         string            `json:"location,omitempty"`
	Skills           []SkillExperience `json:"skills" validate:"required,min=1,dive"`
	SeniorityLevel   string            `json:"seniority_level,omitempty"`
	MinSalary        int               `json:"min_salary" validate:"min=0"`
	RemotePreference string            `json:"remote_preference,omitempty"` // remote|hybrid|onsite
	DesiredRoles     []string          `json:"desired_roles,omitempty"`
}
