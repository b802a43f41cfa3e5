package models

import (
	"fmt"
	"time"
)

// SourceType constants for the generic scraper.
const (
	SourceTypeAPI  = "api"
	SourceTypeRSS  = "rss"
	SourceTypeHTML = "html"
)

// SourceStatus is the lifecycle of a configured scrape target.
type SourceStatus string

const (
	SourceStatusPendingValidation SourceStatus = "pending_validation"
	SourceStatusActive            SourceStatus = "active"
	SourceStatusDisabled          SourceStatus = "disabled"
	SourceStatusFailed            SourceStatus = "failed"
)

// DiscoveryConfidence grades how certain source discovery was about the
// detected type and selectors.
type DiscoveryConfidence string

const (
	ConfidenceHigh   DiscoveryConfidence = "high"
	ConfidenceMedium DiscoveryConfidence = "medium"
	ConfidenceLow    DiscoveryConfidence = "low"
)

// Rank orders confidences so discovery merges can keep the higher one.
func (c DiscoveryConfidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// AuthType constants for scraper authentication.
const (
	AuthTypeHeader = "header"
	AuthTypeQuery  = "query"
	AuthTypeBearer = "bearer"
)

// ScrapeConfig is the declarative record that drives the generic scraper.
// Field paths are dotted for api/rss responses and CSS selectors with an
// optional "@attr" suffix for html.
type ScrapeConfig struct {
	Type           string            `json:"type"`
	URL            string            `json:"url"`
	ResponsePath   string            `json:"response_path,omitempty"`
	JobSelector    string            `json:"job_selector,omitempty"`
	Fields         map[string]string `json:"fields"`
	Headers        map[string]string `json:"headers,omitempty"`
	CompanyName    string            `json:"company_name,omitempty"`
	AuthType       string            `json:"auth_type,omitempty"`
	AuthParam      string            `json:"auth_param,omitempty"`
	APIKey         string            `json:"api_key,omitempty"`
	SalaryMinField string            `json:"salary_min_field,omitempty"`
	SalaryMaxField string            `json:"salary_max_field,omitempty"`
}

// Validate checks the declarative config for the invariants the scraper
// relies on.
func (c *ScrapeConfig) Validate() error {
	switch c.Type {
	case SourceTypeAPI, SourceTypeRSS, SourceTypeHTML:
	default:
		return fmt.Errorf("invalid source type: %s", c.Type)
	}
	if c.URL == "" {
		return fmt.Errorf("source url is required")
	}
	if len(c.Fields) == 0 {
		return fmt.Errorf("source field map is required")
	}
	if c.Type == SourceTypeHTML && c.JobSelector == "" {
		return fmt.Errorf("job_selector is required for html sources")
	}
	switch c.AuthType {
	case "", AuthTypeBearer:
	case AuthTypeHeader, AuthTypeQuery:
		if c.AuthParam == "" {
			return fmt.Errorf("auth_param is required for auth_type %s", c.AuthType)
		}
	default:
		return fmt.Errorf("invalid auth_type: %s", c.AuthType)
	}
	if c.AuthType != "" && c.APIKey == "" {
		return fmt.Errorf("api_key is required when auth_type is set")
	}
	return nil
}

// JobSource is a configured scrape target with health tracking.
type JobSource struct {
	ID                  string              `json:"id" badgerhold:"key"`
	CompanyID           string              `json:"company_id,omitempty" badgerhold:"index"`
	SourceType          string              `json:"source_type"`
	Config              ScrapeConfig        `json:"config"`
	Status              SourceStatus        `json:"status" badgerhold:"index"`
	DiscoveryConfidence DiscoveryConfidence `json:"discovery_confidence,omitempty"`
	ConsecutiveFailures int                 `json:"consecutive_failures"`
	LastSuccessAt       time.Time           `json:"last_success_at,omitempty"`
	LastFailureAt       time.Time           `json:"last_failure_at,omitempty"`
	ValidationRequired  bool                `json:"validation_required"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// RecordFailure increments the failure counter and disables the source once
// the threshold is reached. Returns true when the call disabled the source.
func (s *JobSource) RecordFailure(threshold int, now time.Time) bool {
	s.ConsecutiveFailures++
	s.LastFailureAt = now
	if s.ConsecutiveFailures >= threshold && s.Status != SourceStatusDisabled {
		s.Status = SourceStatusDisabled
		return true
	}
	return false
}

// RecordSuccess resets the failure counter.
func (s *JobSource) RecordSuccess(now time.Time) {
	s.ConsecutiveFailures = 0
	s.LastSuccessAt = now
}
