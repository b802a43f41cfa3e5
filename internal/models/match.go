package models

import "time"

// MatchPriority grades how strongly a match should be surfaced.
type MatchPriority string

const (
	PriorityHigh   MatchPriority = "high"
	PriorityMedium MatchPriority = "medium"
	PriorityLow    MatchPriority = "low"
)

// MatchAnalysis is the structured result of AI match analysis.
type MatchAnalysis struct {
	MatchScore    int           `json:"match_score"`
	Reasoning     string        `json:"reasoning"`
	MatchedSkills []string      `json:"matched_skills,omitempty"`
	MissingSkills []string      `json:"missing_skills,omitempty"`
	Priority      MatchPriority `json:"priority"`
}

// JobMatch is the terminal persisted record for a listing that survived
// deterministic scoring and AI match analysis.
type JobMatch struct {
	ID            string        `json:"id" badgerhold:"key"`
	JobListingID  string        `json:"job_listing_id" badgerhold:"index"`
	CompanyID     string        `json:"company_id,omitempty" badgerhold:"index"`
	MatchScore    int           `json:"match_score"`
	Reasoning     string        `json:"reasoning,omitempty"`
	MatchedSkills []string      `json:"matched_skills,omitempty"`
	MissingSkills []string      `json:"missing_skills,omitempty"`
	Priority      MatchPriority `json:"priority,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ScoreBreakdown is the deterministic scoring engine's output.
type ScoreBreakdown struct {
	FinalScore      int    `json:"final_score"`
	SkillMatch      int    `json:"skill_match"`
	SeniorityMatch  int    `json:"seniority_match"`
	LocationScore   int    `json:"location_score"`
	SalaryScore     int    `json:"salary_score"`
	CompanyScore    int    `json:"company_score"`
	FreshnessScore  int    `json:"freshness_score"`
	RoleFitScore    int    `json:"role_fit_score"`
	Passed          bool   `json:"passed"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}
