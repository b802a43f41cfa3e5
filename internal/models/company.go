package models

import (
	"strings"
	"time"
)

// CompanyAnalysisStatus is the enrichment lifecycle of a company record.
type CompanyAnalysisStatus string

const (
	CompanyStatusPending   CompanyAnalysisStatus = "pending"
	CompanyStatusAnalyzing CompanyAnalysisStatus = "analyzing"
	CompanyStatusActive    CompanyAnalysisStatus = "active"
	CompanyStatusFailed    CompanyAnalysisStatus = "failed"
)

// companyTransitions is the allowed company status machine.
// active -> analyzing is re-analysis; failed -> pending is manual retry.
var companyTransitions = map[CompanyAnalysisStatus][]CompanyAnalysisStatus{
	CompanyStatusPending:   {CompanyStatusAnalyzing},
	CompanyStatusAnalyzing: {CompanyStatusActive, CompanyStatusFailed},
	CompanyStatusActive:    {CompanyStatusAnalyzing},
	CompanyStatusFailed:    {CompanyStatusPending},
}

// CanTransition reports whether moving to the given status is legal.
func (s CompanyAnalysisStatus) CanTransition(to CompanyAnalysisStatus) bool {
	for _, allowed := range companyTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CompanySizeCategory buckets employee counts.
type CompanySizeCategory string

const (
	CompanySizeSmall  CompanySizeCategory = "small"
	CompanySizeMedium CompanySizeCategory = "medium"
	CompanySizeLarge  CompanySizeCategory = "large"
)

// Company is an enriched employer record, keyed by normalized name.
type Company struct {
	Name                 string                `json:"name" badgerhold:"key"`
	DisplayName          string                `json:"display_name,omitempty"`
	Website              string                `json:"website,omitempty"`
	About                string                `json:"about,omitempty"`
	Culture              string                `json:"culture,omitempty"`
	Mission              string                `json:"mission,omitempty"`
	Industry             string                `json:"industry,omitempty"`
	Founded              string                `json:"founded,omitempty"`
	HeadquartersLocation string                `json:"headquarters_location,omitempty"`
	EmployeeCount        int                   `json:"employee_count,omitempty"`
	SizeCategory         CompanySizeCategory   `json:"company_size_category,omitempty"`
	IsRemoteFirst        bool                  `json:"is_remote_first,omitempty"`
	AIMLFocus            bool                  `json:"ai_ml_focus,omitempty"`
	TimezoneOffset       float64               `json:"timezone_offset,omitempty"`
	Products             []string              `json:"products,omitempty"`
	TechStack            []string              `json:"tech_stack,omitempty"`
	AnalysisStatus       CompanyAnalysisStatus `json:"analysis_status" badgerhold:"index"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// HasGoodData reports whether the record is enriched enough for scoring
// without waiting on a company task.
func (c *Company) HasGoodData() bool {
	return len(c.About) > 100 && len(c.Culture) > 50
}

// HasMinimalData reports whether the record carries any usable enrichment.
func (c *Company) HasMinimalData() bool {
	return len(c.About) > 50 || len(c.Culture) > 25
}

// SizeCategoryForCount buckets an employee count into small/medium/large.
func SizeCategoryForCount(count int) CompanySizeCategory {
	switch {
	case count <= 0:
		return ""
	case count < 200:
		return CompanySizeSmall
	case count < 2000:
		return CompanySizeMedium
	default:
		return CompanySizeLarge
	}
}

// NormalizeCompanyName produces the storage key for a company name:
// lowercase, trimmed, collapsed whitespace, common legal suffixes removed.
func NormalizeCompanyName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, suffix := range []string{", inc.", ", inc", " inc.", " inc", ", llc", " llc", ", ltd", " ltd.", " ltd", " gmbh", " pty ltd", " plc", " corp.", " corp", " co."} {
		n = strings.TrimSuffix(n, suffix)
	}
	return strings.Join(strings.Fields(n), " ")
}
