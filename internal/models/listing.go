package models

import "time"

// ListingStatus is the lifecycle of a scraped posting.
type ListingStatus string

const (
	ListingStatusPending   ListingStatus = "pending"
	ListingStatusAnalyzing ListingStatus = "analyzing"
	ListingStatusAnalyzed  ListingStatus = "analyzed"
	ListingStatusSkipped   ListingStatus = "skipped"
	ListingStatusMatched   ListingStatus = "matched"
)

// NormalizedJob is the scraper's output shape: one job posting reduced to
// the common field set, regardless of source type.
type NormalizedJob struct {
	Title       string `json:"title"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	PostedDate  string `json:"posted_date,omitempty"` // ISO-8601
	Salary      string `json:"salary,omitempty"`
	SalaryMin   int    `json:"salary_min,omitempty"`
	SalaryMax   int    `json:"salary_max,omitempty"`
}

// JobExtraction is the structured result of AI job extraction.
type JobExtraction struct {
	Seniority       string   `json:"seniority,omitempty"`
	Technologies    []string `json:"technologies,omitempty"`
	WorkArrangement string   `json:"work_arrangement,omitempty"` // remote|hybrid|onsite
	YearsRequired   int      `json:"years_required,omitempty"`
	PostedDate      string   `json:"posted_date,omitempty"`
	UpdatedDate     string   `json:"updated_date,omitempty"`
	SalaryMin       int      `json:"salary_min,omitempty"`
	SalaryMax       int      `json:"salary_max,omitempty"`
	RoleSummary     string   `json:"role_summary,omitempty"`
}

// JobListing is a scraped posting. URL is unique across all sources after
// normalization.
type JobListing struct {
	ID               string          `json:"id" badgerhold:"key"`
	SourceID         string          `json:"source_id,omitempty" badgerhold:"index"`
	CompanyID        string          `json:"company_id,omitempty" badgerhold:"index"`
	URL              string          `json:"url" badgerhold:"unique"`
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	Location         string          `json:"location,omitempty"`
	PostedDate       string          `json:"posted_date,omitempty"`
	SalaryRange      string          `json:"salary_range,omitempty"`
	Status           ListingStatus   `json:"status" badgerhold:"index"`
	ExtractionResult *JobExtraction  `json:"extraction_result,omitempty"`
	ScoringResult    *ScoreBreakdown `json:"scoring_result,omitempty"`
	MatchScore       int             `json:"match_score,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
